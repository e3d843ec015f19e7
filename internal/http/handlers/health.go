package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

type HealthHandler struct {
	check func(ctx context.Context) error
}

// NewHealthHandler reports unhealthy when check fails; a nil check always passes.
func NewHealthHandler(check func(ctx context.Context) error) *HealthHandler {
	return &HealthHandler{check: check}
}

func (h *HealthHandler) HealthCheck(c *gin.Context) {
	if h.check != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.check(ctx); err != nil {
			c.String(http.StatusServiceUnavailable, "unavailable")
			return
		}
	}
	c.String(http.StatusOK, "ok")
}
