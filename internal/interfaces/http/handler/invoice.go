package handler

import (
	"github.com/gin-gonic/gin"

	appbilling "github.com/retailbill/backend/internal/application/billing"
)

// InvoiceHandler handles invoice API endpoints
type InvoiceHandler struct {
	BaseHandler
	service *appbilling.InvoiceService
}

// NewInvoiceHandler creates a new InvoiceHandler
func NewInvoiceHandler(service *appbilling.InvoiceService) *InvoiceHandler {
	return &InvoiceHandler{service: service}
}

// Create creates a new invoice with computed totals and, for EMI
// invoices, a generated installment schedule.
func (h *InvoiceHandler) Create(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	var req appbilling.CreateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.CreateInvoice(c.Request.Context(), tenantID, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Created(c, resp)
}

// Get returns a single invoice by ID
func (h *InvoiceHandler) Get(c *gin.Context) {
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

	resp, err := h.service.GetInvoice(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// List returns invoices matching the filter, paginated
func (h *InvoiceHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	var filter appbilling.InvoiceListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	invoices, total, err := h.service.ListInvoices(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, invoices, total, filter.Page, filter.PageSize)
}

// Summary returns the tenant's aggregate billing summary
func (h *InvoiceHandler) Summary(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	summary, err := h.service.GetSummary(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, summary)
}

// Update edits invoice line items and re-reconciles payments against
// the recomputed totals.
func (h *InvoiceHandler) Update(c *gin.Context) {
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

	var req appbilling.UpdateInvoiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.UpdateInvoice(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// PayInstallment records a payment against a specific EMI installment
func (h *InvoiceHandler) PayInstallment(c *gin.Context) {
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
	number, err := parseIntParam(c, "number")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req appbilling.InstallmentPaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.RecordInstallmentPayment(c.Request.Context(), tenantID, id, number, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Pay records a lump payment against a non-EMI invoice
func (h *InvoiceHandler) Pay(c *gin.Context) {
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

	var req appbilling.PaymentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.RecordPayment(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ChangeDueDate moves an unpaid installment's due date
func (h *InvoiceHandler) ChangeDueDate(c *gin.Context) {
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
	number, err := parseIntParam(c, "number")
	if err != nil {
		h.BadRequest(c, err.Error())
		return
	}

	var req appbilling.ChangeDueDateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.ChangeInstallmentDueDate(c.Request.Context(), tenantID, id, number, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ChangeStatus transitions the invoice's payment status
func (h *InvoiceHandler) ChangeStatus(c *gin.Context) {
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

	var req appbilling.ChangeStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.ChangePaymentStatus(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Reset clears recorded payments and returns the invoice to pending
func (h *InvoiceHandler) Reset(c *gin.Context) {
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

	var req appbilling.ResetRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.ResetToPending(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// ScheduleDelivery sets a future delivery date on the invoice
func (h *InvoiceHandler) ScheduleDelivery(c *gin.Context) {
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

	var req appbilling.ScheduleDeliveryRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.BindError(c, err)
		return
	}

	resp, err := h.service.ScheduleDelivery(c.Request.Context(), tenantID, id, req)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// MarkDelivered marks the invoice's goods as delivered
func (h *InvoiceHandler) MarkDelivered(c *gin.Context) {
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

	resp, err := h.service.MarkDelivered(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Delete removes an invoice
func (h *InvoiceHandler) Delete(c *gin.Context) {
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

	if err := h.service.DeleteInvoice(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
