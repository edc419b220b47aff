package persistence

import (
	"context"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/billing"
	"gorm.io/gorm"
)

// GormSequenceRepository implements SequenceRepository using GORM. Each named
// counter is one row; the upsert increments and reads it in a single
// statement, so concurrent callers always see distinct values.
type GormSequenceRepository struct {
	db *gorm.DB
}

// NewGormSequenceRepository creates a new GormSequenceRepository
func NewGormSequenceRepository(db *gorm.DB) *GormSequenceRepository {
	return &GormSequenceRepository{db: db}
}

// Next atomically increments the named per-tenant counter and returns the
// new value
func (r *GormSequenceRepository) Next(ctx context.Context, tenantID uuid.UUID, name string) (int64, error) {
	var value int64
	err := r.db.WithContext(ctx).Raw(
		`INSERT INTO sequences (tenant_id, name, value, updated_at)
		 VALUES (?, ?, 1, NOW())
		 ON CONFLICT (tenant_id, name)
		 DO UPDATE SET value = sequences.value + 1, updated_at = NOW()
		 RETURNING value`,
		tenantID, name,
	).Scan(&value).Error
	if err != nil {
		return 0, err
	}
	return value, nil
}

// Ensure GormSequenceRepository implements SequenceRepository
var _ billing.SequenceRepository = (*GormSequenceRepository)(nil)
