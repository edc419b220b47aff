package handler

import (
	"github.com/gin-gonic/gin"

	appcatalog "github.com/retailbill/backend/internal/application/catalog"
)

// ProductHandler handles catalog API endpoints. The catalog is
// write-through from billing: entries are upserted when invoices are
// created, so the HTTP surface is read plus deactivate.
type ProductHandler struct {
	BaseHandler
	service *appcatalog.ProductService
}

// NewProductHandler creates a new ProductHandler
func NewProductHandler(service *appcatalog.ProductService) *ProductHandler {
	return &ProductHandler{service: service}
}

// List returns catalog products matching the filter, paginated
func (h *ProductHandler) List(c *gin.Context) {
	tenantID, err := getTenantID(c)
	if err != nil {
		h.Unauthorized(c, err.Error())
		return
	}

	var filter appcatalog.ProductListFilter
	if err := c.ShouldBindQuery(&filter); err != nil {
		h.BindError(c, err)
		return
	}

	products, total, err := h.service.ListProducts(c.Request.Context(), tenantID, filter)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.SuccessWithMeta(c, products, total, filter.Page, filter.PageSize)
}

// Get returns a single catalog product by ID
func (h *ProductHandler) Get(c *gin.Context) {
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

	resp, err := h.service.GetProduct(c.Request.Context(), tenantID, id)
	if err != nil {
		h.HandleError(c, err)
		return
	}
	h.Success(c, resp)
}

// Deactivate retires a catalog entry from autocomplete suggestions
func (h *ProductHandler) Deactivate(c *gin.Context) {
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

	if err := h.service.DeactivateProduct(c.Request.Context(), tenantID, id); err != nil {
		h.HandleError(c, err)
		return
	}
	h.NoContent(c)
}
