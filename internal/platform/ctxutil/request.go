package ctxutil

import (
	"context"

	"github.com/google/uuid"
)

type requestDataKey struct{}

// RequestData is attached by the HTTP middleware; UserID is uuid.Nil for
// anonymous requests.
type RequestData struct {
	RequestID string
	TraceID   string
	UserID    uuid.UUID
}

func WithRequestData(ctx context.Context, rd *RequestData) context.Context {
	return context.WithValue(ctx, requestDataKey{}, rd)
}

func GetRequestData(ctx context.Context) *RequestData {
	if ctx == nil {
		return nil
	}
	if rd, ok := ctx.Value(requestDataKey{}).(*RequestData); ok {
		return rd
	}
	return nil
}

// UserID returns the authenticated caller, if any.
func UserID(ctx context.Context) (uuid.UUID, bool) {
	rd := GetRequestData(ctx)
	if rd == nil || rd.UserID == uuid.Nil {
		return uuid.Nil, false
	}
	return rd.UserID, true
}

// Default returns context.Background() when ctx is nil.
func Default(ctx context.Context) context.Context {
	if ctx == nil {
		return context.Background()
	}
	return ctx
}
