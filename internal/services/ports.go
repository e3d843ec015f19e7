package services

import (
	"context"

	"github.com/google/uuid"

	"github.com/yungbote/travelog-backend/internal/platform/apierr"
	"github.com/yungbote/travelog-backend/internal/platform/ctxutil"
	"github.com/yungbote/travelog-backend/internal/platform/weather"
)

// ImageStore is the object storage gateway for record images. URLs returned
// by Upload are the only values Delete accepts.
type ImageStore interface {
	Upload(ctx context.Context, data []byte, contentType string) (string, error)
	Delete(ctx context.Context, url string) error
}

type WeatherLookup interface {
	CurrentWeather(ctx context.Context, x, y int) (*weather.Observation, error)
}

// authorizeOwner rejects a request whose authenticated caller is not ownerID.
// Calls without a caller (CLI, jobs) are trusted.
func authorizeOwner(ctx context.Context, op string, ownerID uuid.UUID) error {
	caller, ok := ctxutil.UserID(ctx)
	if !ok || caller == ownerID {
		return nil
	}
	return apierr.Forbidden(op, "caller does not own this resource")
}

// isOwnerOrSystem reports whether the caller may see private rows of ownerID.
func isOwnerOrSystem(ctx context.Context, ownerID uuid.UUID) bool {
	caller, ok := ctxutil.UserID(ctx)
	return !ok || caller == ownerID
}
