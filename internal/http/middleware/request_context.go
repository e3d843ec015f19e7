package middleware

import (
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel/trace"

	"github.com/yungbote/travelog-backend/internal/platform/ctxutil"
)

const (
	headerTraceID   = "X-Trace-Id"
	headerRequestID = "X-Request-Id"
)

// AttachRequestContext puts a RequestData on every request. Auth middleware
// fills in UserID later on the same value.
func AttachRequestContext() gin.HandlerFunc {
	return func(c *gin.Context) {
		reqID := strings.TrimSpace(c.GetHeader(headerRequestID))
		if reqID == "" {
			reqID = uuid.New().String()
		}
		traceID := ""
		if spanCtx := trace.SpanContextFromContext(c.Request.Context()); spanCtx.HasTraceID() {
			traceID = spanCtx.TraceID().String()
		}
		if traceID == "" {
			traceID = strings.TrimSpace(c.GetHeader(headerTraceID))
		}
		ctx := ctxutil.WithRequestData(c.Request.Context(), &ctxutil.RequestData{
			RequestID: reqID,
			TraceID:   traceID,
		})
		c.Request = c.Request.WithContext(ctx)
		c.Writer.Header().Set(headerRequestID, reqID)
		if traceID != "" {
			c.Writer.Header().Set(headerTraceID, traceID)
		}
		c.Next()
	}
}
