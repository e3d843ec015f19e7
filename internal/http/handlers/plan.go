package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/yungbote/travelog-backend/internal/http/response"
	"github.com/yungbote/travelog-backend/internal/services"
)

type PlanHandler struct {
	plans   services.PlanService
	details services.PlanDetailService
}

func NewPlanHandler(plans services.PlanService, details services.PlanDetailService) *PlanHandler {
	return &PlanHandler{plans: plans, details: details}
}

// POST /api/plans
func (h *PlanHandler) SavePlan(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	var in services.SavePlanInput
	if err := c.ShouldBindJSON(&in); err != nil {
		response.RespondError(c, http.StatusBadRequest, "invalid_request", err)
		return
	}
	plan, err := h.plans.Save(c.Request.Context(), userID, in)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondCreated(c, gin.H{"plan": plan})
}

// GET /api/plans
func (h *PlanHandler) ListMyPlans(c *gin.Context) {
	userID, ok := callerID(c)
	if !ok {
		return
	}
	plans, err := h.plans.ListByUser(c.Request.Context(), userID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"plans": plans})
}

// GET /api/plans/:id
func (h *PlanHandler) GetPlan(c *gin.Context) {
	planID, ok := pathID(c, "invalid_plan_id")
	if !ok {
		return
	}
	detail, err := h.details.Compose(c.Request.Context(), planID)
	if err != nil {
		response.RespondServiceError(c, err)
		return
	}
	response.RespondOK(c, gin.H{"plan": detail})
}

// DELETE /api/plans/:id
func (h *PlanHandler) DeletePlan(c *gin.Context) {
	planID, ok := pathID(c, "invalid_plan_id")
	if !ok {
		return
	}
	if err := h.plans.Delete(c.Request.Context(), planID); err != nil {
		response.RespondServiceError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
