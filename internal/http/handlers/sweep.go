package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/travelog-backend/internal/http/response"
	"github.com/yungbote/travelog-backend/internal/services"
)

type SweepRunner interface {
	Today() time.Time
	RunOnce(ctx context.Context, today time.Time, trigger string) (*services.SweepReport, error)
}

type SweepHandler struct {
	runner SweepRunner
}

func NewSweepHandler(runner SweepRunner) *SweepHandler {
	return &SweepHandler{runner: runner}
}

// POST /api/admin/sweep
func (h *SweepHandler) RunSweep(c *gin.Context) {
	// Detached so a client disconnect does not abandon a half-finished pass.
	ctx := context.WithoutCancel(c.Request.Context())
	report, err := h.runner.RunOnce(ctx, h.runner.Today(), "manual")
	if err != nil {
		response.RespondError(c, http.StatusInternalServerError, "sweep_failed", err)
		return
	}
	response.RespondOK(c, gin.H{"report": report})
}
