package persistence

import (
	"context"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GormTenantProvider enumerates tenants for cross-tenant jobs. A tenant
// is active once it has billed at least one invoice.
type GormTenantProvider struct {
	db *gorm.DB
}

// NewGormTenantProvider creates a new GormTenantProvider
func NewGormTenantProvider(db *gorm.DB) *GormTenantProvider {
	return &GormTenantProvider{db: db}
}

// GetAllActiveTenantIDs returns the distinct tenant IDs present in the
// invoices table
func (p *GormTenantProvider) GetAllActiveTenantIDs(ctx context.Context) ([]uuid.UUID, error) {
	var ids []uuid.UUID
	err := p.db.WithContext(ctx).
		Table("invoices").
		Distinct("tenant_id").
		Pluck("tenant_id", &ids).Error
	if err != nil {
		return nil, err
	}
	return ids, nil
}
