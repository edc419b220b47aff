package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/shared"
)

// ReminderFilter defines filtering options for reminder queries
type ReminderFilter struct {
	shared.Filter
	InvoiceID *uuid.UUID
	Status    *Status
	DueBefore *time.Time
}

// ReminderRepository persists Reminder aggregates
type ReminderRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*Reminder, error)
	// FindByKey resolves the dedupe slot: invoice, installment and due date.
	FindByKey(ctx context.Context, tenantID, invoiceID uuid.UUID, installmentNumber int, dueDate time.Time) (*Reminder, error)
	FindAllForTenant(ctx context.Context, tenantID uuid.UUID, filter ReminderFilter) ([]Reminder, error)
	// FindActiveForInvoice returns pending and sent reminders on the invoice,
	// used to cancel stale slots after payments and due-date moves.
	FindActiveForInvoice(ctx context.Context, tenantID, invoiceID uuid.UUID) ([]Reminder, error)
	Save(ctx context.Context, reminder *Reminder) error
	DeleteForTenant(ctx context.Context, tenantID, id uuid.UUID) error
}
