package reminder

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/billing"
	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Status is the delivery state of a reminder
type Status string

const (
	StatusPending      Status = "pending"
	StatusSent         Status = "sent"
	StatusAcknowledged Status = "acknowledged"
	StatusCancelled    Status = "cancelled"
)

// IsValid checks if the status is a valid reminder Status
func (s Status) IsValid() bool {
	switch s {
	case StatusPending, StatusSent, StatusAcknowledged, StatusCancelled:
		return true
	}
	return false
}

// Reminder is one collection nudge for an unpaid installment. The dedupe key
// ties it to the installment's due date, so moving the due date naturally
// produces a fresh reminder while the stale one is cancelled by the sweep.
type Reminder struct {
	shared.TenantAggregateRoot
	InvoiceID         uuid.UUID         `gorm:"type:uuid;not null;index:idx_reminder_invoice_slot,priority:1"`
	InvoiceNumber     string            `gorm:"type:varchar(30);not null"`
	CustomerID        uuid.UUID         `gorm:"type:uuid;not null;index"`
	CustomerName      string            `gorm:"type:varchar(200);not null"`
	CustomerPhone     string            `gorm:"type:varchar(20)"`
	InstallmentNumber int               `gorm:"not null;index:idx_reminder_invoice_slot,priority:2"`
	DueDate           time.Time         `gorm:"not null;index"`
	Amount            decimal.Decimal   `gorm:"type:decimal(18,2);not null;default:0"`
	Risk              billing.RiskLevel `gorm:"type:varchar(20);not null"`
	Status            Status            `gorm:"type:varchar(20);not null;default:'pending';index"`
	SentAt            *time.Time
	AcknowledgedAt    *time.Time
}

// TableName returns the table name for GORM
func (Reminder) TableName() string {
	return "reminders"
}

// DedupeKey identifies a reminder slot: one reminder per installment per due
// date per invoice
func DedupeKey(invoiceID uuid.UUID, installmentNumber int, dueDate time.Time) string {
	return fmt.Sprintf("%s:%d:%s", invoiceID, installmentNumber, dueDate.Format("2006-01-02"))
}

// NewReminder creates a pending reminder for an unpaid installment
func NewReminder(
	tenantID uuid.UUID,
	invoice *billing.Invoice,
	installment *billing.Installment,
	now time.Time,
) (*Reminder, error) {
	if invoice == nil || installment == nil {
		return nil, shared.NewDomainError("INVALID_REMINDER", "Invoice and installment are required")
	}
	if installment.Paid {
		return nil, shared.NewDomainError("INSTALLMENT_PAID", fmt.Sprintf("Installment %d is already paid", installment.InstallmentNumber))
	}

	daysUntilDue := int(installment.DueDate.Sub(now).Hours() / 24)
	if installment.DueDate.Before(now) {
		daysUntilDue = -int(now.Sub(installment.DueDate).Hours()/24) - 1
	}

	risk := billing.ClassifyDueDateRisk(daysUntilDue, installment.DueDateChangeCount, invoice.DueDateFlags.TotalChanges)

	return &Reminder{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		InvoiceID:           invoice.ID,
		InvoiceNumber:       invoice.InvoiceNumber,
		CustomerID:          invoice.CustomerID,
		CustomerName:        invoice.CustomerName,
		CustomerPhone:       invoice.CustomerPhone,
		InstallmentNumber:   installment.InstallmentNumber,
		DueDate:             installment.DueDate,
		Amount:              installment.Amount,
		Risk:                risk,
		Status:              StatusPending,
	}, nil
}

// Key returns the reminder's dedupe key
func (r *Reminder) Key() string {
	return DedupeKey(r.InvoiceID, r.InstallmentNumber, r.DueDate)
}

// MarkSent records delivery of the reminder
func (r *Reminder) MarkSent(at time.Time) error {
	if r.Status != StatusPending {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot send a %s reminder", r.Status))
	}

	r.Status = StatusSent
	r.SentAt = &at
	r.UpdatedAt = at
	return nil
}

// Acknowledge records that the customer responded to the reminder
func (r *Reminder) Acknowledge(at time.Time) error {
	if r.Status != StatusSent {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot acknowledge a %s reminder", r.Status))
	}

	r.Status = StatusAcknowledged
	r.AcknowledgedAt = &at
	r.UpdatedAt = at
	return nil
}

// Cancel withdraws a reminder whose installment was paid or rescheduled
func (r *Reminder) Cancel() error {
	if r.Status == StatusAcknowledged || r.Status == StatusCancelled {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot cancel a %s reminder", r.Status))
	}

	r.Status = StatusCancelled
	r.UpdatedAt = time.Now()
	return nil
}
