package catalog

import "github.com/retailbill/backend/internal/domain/shared"

const (
	// EventProductRegistered is emitted when a product enters the catalog
	EventProductRegistered = "catalog.product.registered"
)

const aggregateTypeProduct = "Product"

// ProductRegisteredEvent is emitted when a product is first billed
type ProductRegisteredEvent struct {
	shared.BaseDomainEvent
	Name    string `json:"name"`
	HSNCode string `json:"hsn_code,omitempty"`
}

// NewProductRegisteredEvent creates a ProductRegisteredEvent
func NewProductRegisteredEvent(product *Product) *ProductRegisteredEvent {
	return &ProductRegisteredEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventProductRegistered, aggregateTypeProduct, product.ID, product.TenantID),
		Name:            product.Name,
		HSNCode:         product.HSNCode,
	}
}
