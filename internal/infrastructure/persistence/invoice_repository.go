package persistence

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/billing"
	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/retailbill/backend/internal/infrastructure/persistence/models"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// GormInvoiceRepository implements InvoiceRepository using GORM
type GormInvoiceRepository struct {
	db *gorm.DB
}

// NewGormInvoiceRepository creates a new GormInvoiceRepository
func NewGormInvoiceRepository(db *gorm.DB) *GormInvoiceRepository {
	return &GormInvoiceRepository{db: db}
}

// FindByID finds an invoice by its ID
func (r *GormInvoiceRepository) FindByID(ctx context.Context, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).First(&model, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByIDForTenant finds an invoice by ID within a tenant
func (r *GormInvoiceRepository) FindByIDForTenant(ctx context.Context, tenantID, id uuid.UUID) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND id = ?", tenantID, id).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindByInvoiceNumber finds an invoice by the business invoice number
func (r *GormInvoiceRepository) FindByInvoiceNumber(ctx context.Context, tenantID uuid.UUID, invoiceNumber string) (*billing.Invoice, error) {
	var model models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_number = ?", tenantID, invoiceNumber).
		First(&model).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return model.ToDomain(), nil
}

// FindAllForTenant finds all invoices for a tenant with filtering
func (r *GormInvoiceRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter billing.InvoiceFilter) ([]billing.Invoice, error) {
	var rows []models.InvoiceModel
	query := r.applyFilter(
		r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("tenant_id = ?", tenantID),
		filter,
	)

	if err := query.Find(&rows).Error; err != nil {
		return nil, err
	}

	invoices := make([]billing.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices, nil
}

// CountForTenant counts invoices for a tenant with filtering
func (r *GormInvoiceRepository) CountForTenant(ctx context.Context, tenantID uuid.UUID, filter billing.InvoiceFilter) (int64, error) {
	var count int64
	query := r.applyFilterWithoutPagination(
		r.db.WithContext(ctx).Model(&models.InvoiceModel{}).Where("tenant_id = ?", tenantID),
		filter,
	)

	if err := query.Count(&count).Error; err != nil {
		return 0, err
	}
	return count, nil
}

// FindEMIDueBefore returns EMI invoices holding at least one unpaid
// installment due on or before the cutoff. The next_due_date column is
// refreshed from the schedule on every save, so the sweep never has to open
// the JSONB plan.
func (r *GormInvoiceRepository) FindEMIDueBefore(ctx context.Context, tenantID uuid.UUID, cutoff time.Time) ([]billing.Invoice, error) {
	var rows []models.InvoiceModel
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND payment_status = ? AND fully_paid = ? AND next_due_date <= ?",
			tenantID, billing.PaymentStatusEMI, false, cutoff).
		Order("next_due_date ASC").
		Find(&rows).Error; err != nil {
		return nil, err
	}

	invoices := make([]billing.Invoice, len(rows))
	for i := range rows {
		invoices[i] = *rows[i].ToDomain()
	}
	return invoices, nil
}

// Summarize aggregates the tenant's billing position in one query. The
// outstanding figure sums the remaining balance stored in the payment JSONB.
func (r *GormInvoiceRepository) Summarize(ctx context.Context, tenantID uuid.UUID) (*billing.InvoiceSummary, error) {
	var row struct {
		TotalInvoices    int64
		FullyPaidCount   int64
		EMICount         int64
		TotalBilled      decimal.Decimal
		TotalOutstanding decimal.Decimal
	}

	err := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Select(`COUNT(*) AS total_invoices,
			COUNT(*) FILTER (WHERE fully_paid) AS fully_paid_count,
			COUNT(*) FILTER (WHERE payment_status = ?) AS emi_count,
			COALESCE(SUM(grand_total), 0) AS total_billed,
			COALESCE(SUM(CASE WHEN fully_paid THEN 0 ELSE (payment->>'remaining_balance')::numeric END), 0) AS total_outstanding`,
			billing.PaymentStatusEMI).
		Where("tenant_id = ?", tenantID).
		Scan(&row).Error
	if err != nil {
		return nil, err
	}

	return &billing.InvoiceSummary{
		TotalInvoices:    row.TotalInvoices,
		FullyPaidCount:   row.FullyPaidCount,
		EMICount:         row.EMICount,
		TotalBilled:      row.TotalBilled,
		TotalOutstanding: row.TotalOutstanding,
	}, nil
}

// Save creates or updates an invoice without a version check
func (r *GormInvoiceRepository) Save(ctx context.Context, invoice *billing.Invoice) error {
	model := models.InvoiceModelFromDomain(invoice)
	return r.db.WithContext(ctx).Save(model).Error
}

// SaveWithLock persists the aggregate only if the stored version still
// matches the version the aggregate was loaded at. Domain mutators leave
// Version untouched; the bump happens here, on the write.
func (r *GormInvoiceRepository) SaveWithLock(ctx context.Context, invoice *billing.Invoice) error {
	baseVersion := invoice.Version
	invoice.IncrementVersion()
	invoice.UpdatedAt = time.Now()

	model := models.InvoiceModelFromDomain(invoice)
	result := r.db.WithContext(ctx).
		Model(&models.InvoiceModel{}).
		Where("id = ? AND version = ?", invoice.ID, baseVersion).
		Updates(map[string]interface{}{
			"customer_id":               model.CustomerID,
			"customer_name":             model.CustomerName,
			"customer_phone":            model.CustomerPhone,
			"items":                     model.Items,
			"subtotal":                  model.Subtotal,
			"total_gst":                 model.TotalGST,
			"grand_total":               model.GrandTotal,
			"payment_status":            model.PaymentStatus,
			"original_payment_category": model.OriginalPaymentCategory,
			"delivery_status":           model.DeliveryStatus,
			"fully_paid":                model.FullyPaid,
			"payment":                   model.Payment,
			"emi":                       model.EMI,
			"bulk_pricing":              model.BulkPricing,
			"due_date_flags":            model.DueDateFlags,
			"next_due_date":             model.NextDueDate,
			"scheduled_delivery_date":   model.ScheduledDeliveryDate,
			"delivered_at":              model.DeliveredAt,
			"payment_date":              model.PaymentDate,
			"remark":                    model.Remark,
			"version":                   model.Version,
			"updated_at":                model.UpdatedAt,
		})

	if result.Error != nil {
		invoice.Version = baseVersion
		return result.Error
	}
	if result.RowsAffected == 0 {
		invoice.Version = baseVersion
		return shared.ErrConcurrencyConflict
	}
	return nil
}

// DeleteForTenant deletes an invoice for a tenant
func (r *GormInvoiceRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&models.InvoiceModel{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

func (r *GormInvoiceRepository) applyFilter(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
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

func (r *GormInvoiceRepository) applyFilterWithoutPagination(query *gorm.DB, filter billing.InvoiceFilter) *gorm.DB {
	if filter.Search != "" {
		searchPattern := "%" + filter.Search + "%"
		query = query.Where("invoice_number ILIKE ? OR customer_name ILIKE ?",
			searchPattern, searchPattern)
	}
	if filter.CustomerID != nil {
		query = query.Where("customer_id = ?", *filter.CustomerID)
	}
	if filter.PaymentStatus != nil {
		query = query.Where("payment_status = ?", *filter.PaymentStatus)
	}
	if filter.Delivery != nil {
		query = query.Where("delivery_status = ?", *filter.Delivery)
	}
	if filter.FullyPaid != nil {
		query = query.Where("fully_paid = ?", *filter.FullyPaid)
	}
	if filter.FromDate != nil {
		query = query.Where("created_at >= ?", *filter.FromDate)
	}
	if filter.ToDate != nil {
		query = query.Where("created_at <= ?", *filter.ToDate)
	}

	return query
}

// Ensure GormInvoiceRepository implements InvoiceRepository
var _ billing.InvoiceRepository = (*GormInvoiceRepository)(nil)
