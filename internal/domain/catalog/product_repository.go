package catalog

import (
	"context"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/shared"
)

// ProductFilter defines filtering options for product queries
type ProductFilter struct {
	shared.Filter
	Status *ProductStatus
}

// ProductRepository persists Product aggregates. Lookups use the normalized
// name as the per-tenant identity key.
type ProductRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Product, error)
	FindByNormalizedName(ctx context.Context, tenantID uuid.UUID, normalizedName string) (*Product, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ProductFilter) ([]Product, error)
	CountForTenant(ctx context.Context, tenantID uuid.UUID, filter ProductFilter) (int64, error)
	Save(ctx context.Context, product *Product) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
