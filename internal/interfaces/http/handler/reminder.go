package handler

import (
	"github.com/gin-gonic/gin"

	appreminder "github.com/retailbill/backend/internal/application/reminder"
)

// ReminderHandler handles due-date reminder API endpoints
type ReminderHandler struct {
	BaseHandler
	service *appreminder.ReminderService
}

// NewReminderHandler creates a new ReminderHandler
func NewReminderHandler(service *appreminder.ReminderService) *ReminderHandler {
	return &ReminderHandler{service: service}
}

// Sweep generates pending reminders for installments inside the lead
// window and cancels reminders whose installment was paid or moved.
func (h *ReminderHandler) Sweep(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	report, err := h.service.GenerateDueReminders(c.Request.Context(), tenantID)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, report)
}

// List returns reminders matching the filter
func (h *ReminderHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	var filter appreminder.ReminderListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	reminders, err := h.service.ListReminders(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, reminders)
}

// MarkSent records that the reminder was delivered to the customer
func (h *ReminderHandler) MarkSent(c *gin.Context) {
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

	resp, err := h.service.MarkSent(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Acknowledge records the customer's response to a sent reminder
func (h *ReminderHandler) Acknowledge(c *gin.Context) {
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

	resp, err := h.service.Acknowledge(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Cancel cancels a pending reminder
func (h *ReminderHandler) Cancel(c *gin.Context) {
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

	resp, err := h.service.CancelReminder(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}
