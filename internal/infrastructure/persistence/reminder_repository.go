package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/reminder"
	"github.com/retailbill/backend/internal/domain/shared"
	"gorm.io/gorm"
)

// GormReminderRepository implements ReminderRepository using GORM
type GormReminderRepository struct {
	db *gorm.DB
}

// NewGormReminderRepository creates a new GormReminderRepository
func NewGormReminderRepository(db *gorm.DB) *GormReminderRepository {
	return &GormReminderRepository{db: db}
}

// FindByID finds a reminder by its ID
func (r *GormReminderRepository) FindByID(ctx context.Context, id uuid.UUID) (*reminder.Reminder, error) {
	var rem reminder.Reminder
	if err := r.db.WithContext(ctx).First(&rem, "id = ?", id).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rem, nil
}

// FindByKey resolves the dedupe slot: invoice, installment and due date. The
// due date matches on the calendar day, mirroring the dedupe key format.
func (r *GormReminderRepository) FindByKey(ctx context.Context, tenantID, invoiceID uuid.UUID, installmentNumber int, dueDate time.Time) (*reminder.Reminder, error) {
	var rem reminder.Reminder
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ? AND installment_number = ? AND due_date::date = ?::date",
			tenantID, invoiceID, installmentNumber, dueDate).
		First(&rem).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return &rem, nil
}

// FindAllForTenant finds all reminders for a tenant with filtering
func (r *GormReminderRepository) FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter reminder.ReminderFilter) ([]reminder.Reminder, error) {
	var reminders []reminder.Reminder
	query := r.db.WithContext(ctx).Model(&reminder.Reminder{}).Where("tenant_id = ?", tenantID)

	if filter.InvoiceID != nil {
		query = query.Where("invoice_id = ?", *filter.InvoiceID)
	}
	if filter.Status != nil {
		query = query.Where("status = ?", *filter.Status)
	}
	if filter.DueBefore != nil {
		query = query.Where("due_date <= ?", *filter.DueBefore)
	}
	if filter.Page > 0 && filter.PageSize > 0 {
		offset := (filter.Page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}
	query = query.Order("due_date ASC")

	if err := query.Find(&reminders).Error; err != nil {
		return nil, err
	}
	return reminders, nil
}

// FindActiveForInvoice returns pending and sent reminders on the invoice
func (r *GormReminderRepository) FindActiveForInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]reminder.Reminder, error) {
	var reminders []reminder.Reminder
	if err := r.db.WithContext(ctx).
		Where("tenant_id = ? AND invoice_id = ? AND status IN ?",
			tenantID, invoiceID, []reminder.Status{reminder.StatusPending, reminder.StatusSent}).
		Find(&reminders).Error; err != nil {
		return nil, err
	}
	return reminders, nil
}

// Save creates or updates a reminder
func (r *GormReminderRepository) Save(ctx context.Context, rem *reminder.Reminder) error {
	return r.db.WithContext(ctx).Save(rem).Error
}

// DeleteForTenant deletes a reminder for a tenant
func (r *GormReminderRepository) DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error {
	result := r.db.WithContext(ctx).
		Delete(&reminder.Reminder{}, "tenant_id = ? AND id = ?", tenantID, id)
	if result.Error != nil {
		return result.Error
	}
	if result.RowsAffected == 0 {
		return shared.ErrNotFound
	}
	return nil
}

// Ensure GormReminderRepository implements ReminderRepository
var _ reminder.ReminderRepository = (*GormReminderRepository)(nil)
