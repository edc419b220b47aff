package handler

import (
	"time"

	"github.com/gin-gonic/gin"

	appquotation "github.com/retailbill/backend/internal/application/quotation"
)

// QuotationHandler handles quotation API endpoints
type QuotationHandler struct {
	BaseHandler
	service *appquotation.QuotationService
}

// NewQuotationHandler creates a new QuotationHandler
func NewQuotationHandler(service *appquotation.QuotationService) *QuotationHandler {
	return &QuotationHandler{service: service}
}

// Create creates a new quotation with computed totals
func (h *QuotationHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	var req appquotation.CreateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.CreateQuotation(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get returns a single quotation by ID
func (h *QuotationHandler) Get(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.GetQuotation(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List returns quotations matching the filter, paginated
func (h *QuotationHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	var filter appquotation.QuotationListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	quotations, total, err := h.service.ListQuotations(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, quotations, total, filter.Page, filter.PageSize)
}

// Update reprices an open quotation's line items
func (h *QuotationHandler) Update(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req appquotation.UpdateQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.UpdateQuotation(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Extend pushes an open quotation's validity forward
func (h *QuotationHandler) Extend(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req appquotation.ExtendValidityRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.ExtendValidity(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel cancels an open quotation
func (h *QuotationHandler) Cancel(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	resp, err := h.service.CancelQuotation(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ConvertResponse pairs the converted quotation with the invoice it produced
type ConvertResponse struct {
	Quotation any `json:"quotation"`
	Invoice   any `json:"invoice"`
}

// Convert converts an open quotation into an invoice at today's prices
func (h *QuotationHandler) Convert(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}
	id, err := parseUUIDParam(c, "id")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req appquotation.ConvertQuotationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	quote, invoice, err := h.service.ConvertQuotation(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, ConvertResponse{Quotation: quote, Invoice: invoice})
}

// ExpireOpen sweeps the tenant's open quotations past their validity
// date and marks them expired.
func (h *QuotationHandler) ExpireOpen(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	expired, err := h.service.ExpireOpenQuotations(c.Request.Context(), tenantID, time.Now())
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, gin.H{"expired": expired})
}
