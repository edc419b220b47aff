package catalog

import (
	"context"

	"github.com/retailbill/backend/internal/domain/billing"
	"github.com/retailbill/backend/internal/domain/shared"
	"go.uber.org/zap"
)

// InvoiceCatalogHook keeps the product catalog in sync with billing. It runs
// on the post-commit event bus, and a failed upsert only logs: catalog drift
// must never fail or roll back a sale.
type InvoiceCatalogHook struct {
	products *ProductService
	logger   *zap.Logger
}

// NewInvoiceCatalogHook creates the hook
func NewInvoiceCatalogHook(products *ProductService, logger *zap.Logger) *InvoiceCatalogHook {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &InvoiceCatalogHook{
		products: products,
		logger:   logger,
	}
}

// EventTypes returns the invoice events that carry line items
func (h *InvoiceCatalogHook) EventTypes() []string {
	return []string{billing.EventInvoiceCreated, billing.EventInvoiceEdited}
}

// Handle upserts a catalog entry for each billed line item
func (h *InvoiceCatalogHook) Handle(ctx context.Context, event shared.DomainEvent) error {
	var items billing.LineItems

	switch e := event.(type) {
	case *billing.InvoiceCreatedEvent:
		items = e.Items
	case *billing.InvoiceEditedEvent:
		items = e.Items
	default:
		return nil
	}

	if err := h.products.UpsertFromItems(ctx, event.TenantID(), items); err != nil {
		h.logger.Error("catalog sync failed",
			zap.String("event_type", event.EventType()),
			zap.String("aggregate_id", event.AggregateID().String()),
			zap.Error(err),
		)
	}
	return nil
}

var _ shared.EventHandler = (*InvoiceCatalogHook)(nil)
