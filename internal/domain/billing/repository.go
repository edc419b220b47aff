package billing

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// InvoiceFilter defines filtering options for invoice queries
type InvoiceFilter struct {
	shared.Filter
	CustomerID    *uuid.UUID
	PaymentStatus *PaymentStatus
	Delivery      *DeliveryStatus
	FullyPaid     *bool
	FromDate      *time.Time
	ToDate        *time.Time
}

// InvoiceSummary aggregates a tenant's billing position
type InvoiceSummary struct {
	TotalInvoices    int64           `json:"total_invoices"`
	FullyPaidCount   int64           `json:"fully_paid_count"`
	EMICount         int64           `json:"emi_count"`
	TotalBilled      decimal.Decimal `json:"total_billed"`
	TotalOutstanding decimal.Decimal `json:"total_outstanding"`
}

// InvoiceRepository persists Invoice aggregates
type InvoiceRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Invoice, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Invoice, error)
	FindByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*Invoice, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) ([]Invoice, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter InvoiceFilter) (int64, error)
	// FindEMIDueBefore returns EMI invoices holding at least one unpaid
	// installment due on or before the cutoff. Used by reminder generation.
	FindEMIDueBefore(ctx context.Context, tenantID uuid.UUID, cutoff time.Time) ([]Invoice, error)
	Summarize(ctx context.Context, tenantID uuid.UUID) (*InvoiceSummary, error)
	Save(ctx context.Context, invoice *Invoice) error
	// SaveWithLock persists the aggregate only if its stored version matches
	// the version the mutation started from, serializing concurrent
	// mutations per invoice.
	SaveWithLock(ctx context.Context, invoice *Invoice) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}

// SequenceRepository hands out monotonically increasing, gap-tolerant
// per-tenant sequences through an atomic increment. Invoice and quotation
// numbering both draw from it.
type SequenceRepository interface {
	Next(ctx context.Context, tenantID uuid.UUID, name string) (int64, error)
}
