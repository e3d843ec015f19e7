package middleware

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/travelog-backend/internal/observability"
)

// Metrics records per-route request counts and latency. The scrape endpoint
// itself is not counted.
func Metrics(m *observability.Metrics) gin.HandlerFunc {
	return func(c *gin.Context) {
		if m == nil || c.Request.URL.Path == "/metrics" {
			c.Next()
			return
		}
		m.ApiInflightInc()
		began := time.Now()
		defer func() {
			m.ApiInflightDec()
			m.ObserveAPI(c.Request.Method, routeOf(c), strconv.Itoa(c.Writer.Status()), time.Since(began))
		}()
		c.Next()
	}
}
