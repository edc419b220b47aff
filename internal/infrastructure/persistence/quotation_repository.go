package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/quotation"
	"github.com/retailbill/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormQuotationRepository implements QuotationRepository using GORM
type GormQuotationRepository struct {
	db *gorm.DB
}

// NewGormQuotationRepository creates a new GormQuotationRepository
func NewGormQuotationRepository(db *gorm.DB) *GormQuotationRepository {
	return &GormQuotationRepository{db: db}
}

// FindByID finds a quotation by its ID
func (r *GormQuotationRepository) FindByID(ctx context.Context, id uuid.UUID) (*quotation.Quotation, error) {
	var q quotation.Quotation
	if err := r.db.WithContext(ctx).First(&q, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

// FindByIDForTenant finds a quotation by ID within a tenant
func (r *GormQuotationRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*quotation.Quotation, error) {
	var q quotation.Quotation
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&q).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

// FindByQuotationNumber finds a quotation by its business number
func (r *GormQuotationRepository) FindByQuotationNumber(ctx context.Context, tenantID uuid.UUID, quotationNumber string) (*quotation.Quotation, error) {
	var q quotation.Quotation
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND quotation_number = ?", tenantID, quotationNumber).
		First(&q).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &q, nil
}

// FindAllForTenant finds all quotations for a tenant with filtering
func (r *GormQuotationRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter quotation.QuotationFilter) ([]quotation.Quotation, error) {
	var quotations []quotation.Quotation
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&quotation.Quotation{}).Where("tenant_id = ?", tenantID),
		filter,
	)

	if err := query.Find(&quotations).Error; err != nil {
		return nil, err
	}
	return quotations, nil
}

// CountForTenant counts quotations for a tenant with filtering
func (r *GormQuotationRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter quotation.QuotationFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&quotation.Quotation{}).Where("tenant_id = ?", tenantID),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindOpenExpiredBefore returns open quotations whose validity lapsed on or
// before the cutoff
func (r *GormQuotationRepository) FindOpenExpiredBefore(ctx context.Context, tenantID uuid.UUID, cutoff time.Time) ([]quotation.Quotation, error) {
	var quotations []quotation.Quotation
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND status = ? AND valid_until <= ?", tenantID, quotation.StatusOpen, cutoff).
		Order("valid_until ASC").
		Find(&quotations).Error; err != nil {
		return nil, err
	}
	return quotations, nil
}

// Save creates or updates a quotation without a version check
func (r *GormQuotationRepository) Save(ctx context.Context, q *quotation.Quotation) error {
	return r.db.WithContext(ctx).Save(q).Error
}

// SaveWithLock persists the quotation only if the stored version still
// matches the version the quotation was loaded at. Domain mutators leave
// Version untouched; the bump happens here, on the write.
func (r *GormQuotationRepository) SaveWithLock(ctx context.Context, q *quotation.Quotation) error {
	baseVersion := q.Version
	q.IncrementVersion()
	q.UpdatedAt = time.Now()

	result := r.db.WithContext(ctx).
		Model(&quotation.Quotation{}).
		Where("id = ? AND version = ?", q.ID, baseVersion).
		Updates(map[string]interface{}{
			"customer_id":          q.CustomerID,
			"customer_name":        q.CustomerName,
			"customer_phone":       q.CustomerPhone,
			"items":                q.Items,
			"bulk_pricing":         q.BulkPricing,
			"subtotal":             q.Subtotal,
			"total_gst":            q.TotalGST,
			"grand_total":          q.GrandTotal,
			"status":               q.Status,
			"valid_until":          q.ValidUntil,
			"converted_invoice_id": q.ConvertedInvoiceID,
			"remark":               q.Remark,
			"version":              q.Version,
			"updated_at":           q.UpdatedAt,
		})

	if result.Error != nil {
		q.Version = baseVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		q.Version = baseVersion
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// DeleteForTenant deletes a quotation for a tenant
func (r *GormQuotationRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&quotation.Quotation{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormQuotationRepository) applyFilter(query *gorm.DB, filter quotation.QuotationFilter) *gorm.DB {
	query = r.applyFilterWithoutPagination(query, filter)

	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	if filter.OrderBy != "" {
		orderDir := "ASC"
		if strings.ToLower(filter.OrderDir) == "desc" {
			orderDir = "DESC"
		}
		query = query.Order(filter.OrderBy + " " + orderDir)
	} else {
		query = query.Order("created_at DESC")
	}

	return query
}

func (r *GormQuotationRepository) applyFilterWithoutPagination(query *gorm.DB, filter quotation.QuotationFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("quotation_number ILIKE ? OR customer_name ILIKE ?",
			searchPattern, searchPattern)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("created_at <= ?", *filter.ToDate)
	}

	return query
}

// Ensure GormQuotationRepository implements QuotationRepository
var _ quotation.QuotationRepository = (*GormQuotationRepository)(nil)
