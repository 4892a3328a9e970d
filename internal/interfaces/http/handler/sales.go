package handler

import (
	"github.com/backoffice/prdesk/internal/application/pricing"
	domain "github.com/backoffice/prdesk/internal/domain/pricing"
	"github.com/backoffice/prdesk/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
)

// SalesHandler serves the Sales Executive endpoints under /sales/pr
type SalesHandler struct {
	BaseHandler
	workflow *pricing.WorkflowService
}

// NewSalesHandler creates a new sales handler
func NewSalesHandler(workflow *pricing.WorkflowService) *SalesHandler {
	return &SalesHandler{workflow: workflow}
}

// Save godoc
// @Summary      Save a draft
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        request body dto.PricingRequestWire true "Pricing request"
// @Success      201 {object} dto.PricingRequestWire
// @Failure      400 {object} dto.ErrorBody
// @Failure      422 {object} dto.ErrorBody
// @Router       /sales/pr/save [post]
func (h *SalesHandler) Save(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	details, ok := h.bindDetails(c)
	if !ok {
		return
	}
	pr, err := h.workflow.SaveDraft(c.Request.Context(), actor, details)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToWire(pr))
}

// Submit godoc
// @Summary      Create and submit
// @Description  Create a pricing request and put it in the analysts' pool in one step
// @Tags         sales
// @Accept       json
// @Produce      json
// @Param        request body dto.PricingRequestWire true "Pricing request"
// @Success      201 {object} dto.PricingRequestWire
// @Failure      422 {object} dto.ErrorBody
// @Router       /sales/pr/submit [post]
func (h *SalesHandler) Submit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	details, ok := h.bindDetails(c)
	if !ok {
		return
	}
	pr, err := h.workflow.Submit(c.Request.Context(), actor, details)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, dto.ToWire(pr))
}

// List godoc
// @Summary      List own requests
// @Tags         sales
// @Produce      json
// @Param        sales_status query string false "Sales track label"
// @Success      200 {array} dto.PricingRequestWire
// @Router       /sales/pr [get]
func (h *SalesHandler) List(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	filter := c.Query("sales_status")
	if filter == "" {
		filter = c.Query("status")
	}
	prs, err := h.workflow.ListCreated(c.Request.Context(), actor, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToWireList(prs))
}

// Get returns one of the actor's own requests
func (h *SalesHandler) Get(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	pr, err := h.workflow.GetCreated(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToWire(pr))
}

// Update replaces the details of a draft or action-required request
func (h *SalesHandler) Update(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	details, ok := h.bindDetails(c)
	if !ok {
		return
	}
	pr, err := h.workflow.Update(c.Request.Context(), actor, c.Param("id"), details)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToWire(pr))
}

// Resubmit sends revised details back to the analysts' pool
func (h *SalesHandler) Resubmit(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	details, ok := h.bindDetails(c)
	if !ok {
		return
	}
	pr, err := h.workflow.Resubmit(c.Request.Context(), actor, c.Param("id"), details)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToWire(pr))
}

// SendToAnalyst submits an existing draft
func (h *SalesHandler) SendToAnalyst(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	pr, err := h.workflow.SendToAnalyst(c.Request.Context(), actor, c.Param("id"))
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, dto.ToWire(pr))
}

// Delete removes a draft
func (h *SalesHandler) Delete(c *gin.Context) {
	actor, ok := h.actor(c)
	if !ok {
		return
	}
	if err := h.workflow.Delete(c.Request.Context(), actor, c.Param("id")); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}

func (h *SalesHandler) bindDetails(c *gin.Context) (domain.Details, bool) {
	var req dto.PricingRequestWire
	if !h.BindJSON(c, &req) {
		return domain.Details{}, false
	}
	details, err := dto.DetailsFromWire(req)
	if err != nil {
		h.HandleError(c, err)
		return domain.Details{}, false
	}
	return details, true
}
