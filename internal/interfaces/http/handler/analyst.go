package handler

import (
	"github.com/backoffice/prdesk/internal/application/pricing"
	domain "github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/backoffice/prdesk/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// AnalystHandler serves the Pricing Analyst endpoints under /pa/pr
type AnalystHandler struct {
	BaseHandler
	workflow *pricing.WorkflowService
}

// NewAnalystHandler creates a new analyst handler
func NewAnalystHandler(workflow *pricing.WorkflowService) *AnalystHandler {
	return &AnalystHandler{workflow: workflow}
}

// ListAvailable godoc
// @Summary      List the unassigned pool
// @Tags         analyst
// @Produce      json
// @Param        pa_status query string false "Analyst track label"
// @Success      200 {array} dto.PricingRequestWire
// @Router       /pa/pr [get]
func (h *AnalystHandler) ListAvailable(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	prs, err := h.workflow.ListAvailable(c.Request.Context(), actor, statusQuery(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToWireList(prs))
}

// ListMine lists the requests assigned to the actor
func (h *AnalystHandler) ListMine(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	prs, err := h.workflow.ListAssigned(c.Request.Context(), actor, statusQuery(c))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToWireList(prs))
}

// Get returns a submitted request
func (h *AnalystHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	pr, err := h.workflow.GetForReview(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToWire(pr))
}

// Assign claims an unassigned request
func (h *AnalystHandler) Assign(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	pr, err := h.workflow.Assign(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToWire(pr))
}

// Decide godoc
// @Summary      Approve, reject or request action
// @Description  Rejecting and requesting action both require a comment
// @Tags         analyst
// @Accept       json
// @Produce      json
// @Param        id path string true "Pricing request ID"
// @Param        request body dto.DecisionRequest true "Decision"
// @Success      200 {object} dto.PricingRequestWire
// @Failure      400 {object} dto.ErrorBody
// @Failure      403 {object} dto.ErrorBody
// @Failure      409 {object} dto.ErrorBody
// @Router       /pa/pr/{id}/approve-reject [post]
func (h *AnalystHandler) Decide(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	var req dto.DecisionRequest
	if !h.BindJSON(c, &req) {
		return
	}
	decision, ok := domain.ParseDecision(req.Action)
	if !ok {
		h.Error(c, dto.ErrCodeInvalidInput, "action must be approve, reject or action_required")
		return
	}
	pr, err := h.workflow.Decide(c.Request.Context(), actor, c.Param("id"), decision, req.Comment)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToWire(pr))
}

func statusQuery(c *gin.Context) string {
	if s := c.Query("pa_status"); s != "" {
		return s
	}
	return c.Query("status")
}
