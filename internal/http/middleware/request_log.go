package middleware

import (
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/travelog-backend/internal/platform/ctxutil"
	"github.com/yungbote/travelog-backend/internal/platform/logger"
)

// quietRoutes are logged at debug so probes and scrapes do not flood info.
var quietRoutes = map[string]bool{
	"/healthcheck": true,
	"/metrics":     true,
}

func routeOf(c *gin.Context) string {
	if r := c.FullPath(); r != "" {
		return r
	}
	return "unmatched"
}

// RequestLogger writes one line per request after the handler chain ran.
func RequestLogger(log *logger.Logger) gin.HandlerFunc {
	if log == nil {
		return func(c *gin.Context) { c.Next() }
	}
	return func(c *gin.Context) {
		began := time.Now()
		c.Next()

		route := routeOf(c)
		status := c.Writer.Status()
		kv := []interface{}{
			"method", c.Request.Method,
			"route", route,
			"path", c.Request.URL.Path,
			"status", status,
			"bytes", c.Writer.Size(),
			"client_ip", c.ClientIP(),
			"duration_ms", time.Since(began).Milliseconds(),
		}
		if rd := ctxutil.GetRequestData(c.Request.Context()); rd != nil {
			kv = append(kv, "request_id", rd.RequestID)
			if rd.TraceID != "" {
				kv = append(kv, "trace_id", rd.TraceID)
			}
			if uid, ok := ctxutil.UserID(c.Request.Context()); ok {
				kv = append(kv, "user_id", uid.String())
			}
		}
		if len(c.Errors) > 0 {
			kv = append(kv, "error", c.Errors.String())
		}

		logFn := log.Info
		switch {
		case status >= 500:
			logFn = log.Error
		case status >= 400:
			logFn = log.Warn
		case quietRoutes[route]:
			logFn = log.Debug
		}
		logFn("request", kv...)
	}
}
