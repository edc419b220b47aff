package quotation

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/shared"
)

// QuotationFilter defines filtering options for quotation queries
type QuotationFilter struct {
	shared.Filter
	CustomerID *uuid.UUID
	Status     *Status
	FromDate   *time.Time
	ToDate     *time.Time
}

// QuotationRepository persists Quotation aggregates
type QuotationRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Quotation, error)
	FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*Quotation, error)
	FindByQuotationNumber(ctx context.Context, tenantID uuid.UUID, quotationNumber string) (*Quotation, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter QuotationFilter) ([]Quotation, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter QuotationFilter) (int64, error)
	// FindOpenExpiredBefore returns open quotations whose validity lapsed on
	// or before the cutoff, for the expiry sweep.
	FindOpenExpiredBefore(ctx context.Context, tenantID uuid.UUID, cutoff time.Time) ([]Quotation, error)
	Save(ctx context.Context, quotation *Quotation) error
	SaveWithLock(ctx context.Context, quotation *Quotation) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
