package router

import (
	"github.com/gin-gonic/gin"

	"github.com/retailbill/backend/internal/interfaces/http/handler"
)

// Handlers bundles the API handlers the router wires up
type Handlers struct {
	System    *handler.SystemHandler
	Invoice   *handler.InvoiceHandler
	Quotation *handler.QuotationHandler
	Product   *handler.ProductHandler
	Reminder  *handler.ReminderHandler
}

// Router owns the billing API route table
type Router struct {
	engine     *gin.Engine
	apiVersion string
	handlers   Handlers
}

// RouterOption is a functional option for Router configuration
type RouterOption func(*Router)

// WithAPIVersion sets the API version prefix (e.g., "v1", "v2")
func WithAPIVersion(version string) RouterOption {
	return func(r *Router) {
		r.apiVersion = version
	}
}

// New creates a new Router instance
func New(engine *gin.Engine, handlers Handlers, opts ...RouterOption) *Router {
	r := &Router{
		engine:     engine,
		apiVersion: "v1",
		handlers:   handlers,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Setup registers all routes with the engine. Health endpoints live
// outside the versioned group so probes skip authentication.
func (r *Router) Setup() {
	if r.handlers.System != nil {
		r.engine.GET("/health", r.handlers.System.Health)
		r.engine.GET("/healthz", r.handlers.System.Health)
	}

	api := r.engine.Group("/api/" + r.apiVersion)

	if r.handlers.System != nil {
		api.GET("/system/info", r.handlers.System.Info)
	}
	r.registerInvoices(api)
	r.registerQuotations(api)
	r.registerProducts(api)
	r.registerReminders(api)
}

func (r *Router) registerInvoices(api *gin.RouterGroup) {
	h := r.handlers.Invoice
	if h == nil {
		return
	}

	invoices := api.Group("/invoices")
	invoices.POST("", h.Create)
	invoices.GET("", h.List)
	invoices.GET("/summary", h.Summary)
	invoices.GET("/:id", h.Get)
	invoices.PUT("/:id", h.Update)
	invoices.DELETE("/:id", h.Delete)

	// Payments and the EMI schedule
	invoices.POST("/:id/payments", h.Pay)
	invoices.POST("/:id/installments/:number/payments", h.PayInstallment)
	invoices.PUT("/:id/installments/:number/due-date", h.ChangeDueDate)

	// Lifecycle transitions
	invoices.PUT("/:id/status", h.ChangeStatus)
	invoices.POST("/:id/reset", h.Reset)
	invoices.POST("/:id/delivery/schedule", h.ScheduleDelivery)
	invoices.POST("/:id/delivery/delivered", h.MarkDelivered)
}

func (r *Router) registerQuotations(api *gin.RouterGroup) {
	h := r.handlers.Quotation
	if h == nil {
		return
	}

	quotations := api.Group("/quotations")
	quotations.POST("", h.Create)
	quotations.GET("", h.List)
	quotations.GET("/:id", h.Get)
	quotations.PUT("/:id", h.Update)
	quotations.POST("/:id/extend", h.Extend)
	quotations.POST("/:id/cancel", h.Cancel)
	quotations.POST("/:id/convert", h.Convert)
	quotations.POST("/expire", h.ExpireOpen)
}

func (r *Router) registerProducts(api *gin.RouterGroup) {
	h := r.handlers.Product
	if h == nil {
		return
	}

	products := api.Group("/products")
	products.GET("", h.List)
	products.GET("/:id", h.Get)
	products.POST("/:id/deactivate", h.Deactivate)
}

func (r *Router) registerReminders(api *gin.RouterGroup) {
	h := r.handlers.Reminder
	if h == nil {
		return
	}

	reminders := api.Group("/reminders")
	reminders.GET("", h.List)
	reminders.POST("/sweep", h.Sweep)
	reminders.POST("/:id/sent", h.MarkSent)
	reminders.POST("/:id/acknowledge", h.Acknowledge)
	reminders.POST("/:id/cancel", h.Cancel)
}
