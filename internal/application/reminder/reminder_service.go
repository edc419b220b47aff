package reminder

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/billing"
	"github.com/retailbill/backend/internal/domain/reminder"
	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/retailbill/backend/internal/infrastructure/cache"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

const (
	generateJobName = "reminder:generate"

	// defaultLeadTime is how far ahead of a due date reminders are raised.
	defaultLeadTime = 7 * 24 * time.Hour

	// inFlightTTL bounds a crashed sweep; the cooldown spaces successful runs.
	inFlightTTL     = 5 * time.Minute
	defaultCooldown = time.Hour
)

// SweepGuard serializes the reminder sweep across instances.
// *cache.JobGuard satisfies it.
type SweepGuard interface {
	TryAcquire(ctx context.Context, jobName string, ttl time.Duration) (bool, error)
	Extend(ctx context.Context, jobName string, cooldown time.Duration) error
	Release(ctx context.Context, jobName string) error
}

// ReminderService raises and manages collection reminders for unpaid
// installments
type ReminderService struct {
	reminderRepo reminder.ReminderRepository
	invoiceRepo  billing.InvoiceRepository
	guard        SweepGuard
	clock        cache.Clock
	leadTime     time.Duration
	cooldown     time.Duration
	logger       *zap.Logger
}

// ReminderServiceOption is a functional option for configuring ReminderService
type ReminderServiceOption func(*ReminderService)

// WithSweepGuard installs the cross-instance job guard for the sweep
func WithSweepGuard(guard SweepGuard) ReminderServiceOption {
	return func(s *ReminderService) {
		s.guard = guard
	}
}

// WithClock overrides the time source
func WithClock(clock cache.Clock) ReminderServiceOption {
	return func(s *ReminderService) {
		s.clock = clock
	}
}

// WithLeadTime overrides how far ahead of the due date reminders are raised
func WithLeadTime(leadTime time.Duration) ReminderServiceOption {
	return func(s *ReminderService) {
		s.leadTime = leadTime
	}
}

// WithCooldown overrides how long the guard spaces successful sweeps
func WithCooldown(cooldown time.Duration) ReminderServiceOption {
	return func(s *ReminderService) {
		s.cooldown = cooldown
	}
}

// WithLogger sets the service logger
func WithLogger(logger *zap.Logger) ReminderServiceOption {
	return func(s *ReminderService) {
		s.logger = logger
	}
}

// NewReminderService creates a new ReminderService
func NewReminderService(
	reminderRepo reminder.ReminderRepository,
	invoiceRepo billing.InvoiceRepository,
	opts ...ReminderServiceOption,
) *ReminderService {
	s := &ReminderService{
		reminderRepo: reminderRepo,
		invoiceRepo:  invoiceRepo,
		clock:        cache.SystemClock,
		leadTime:     defaultLeadTime,
		cooldown:     defaultCooldown,
		logger:       zap.NewNop(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// SweepReport summarizes one reminder generation run
type SweepReport struct {
	Skipped   bool `json:"skipped"`
	Scanned   int  `json:"scanned"`
	Created   int  `json:"created"`
	Cancelled int  `json:"cancelled"`
}

// ReminderResponse represents a reminder in API responses
type ReminderResponse struct {
	ID                uuid.UUID       `json:"id"`
	TenantID          uuid.UUID       `json:"tenant_id"`
	InvoiceID         uuid.UUID       `json:"invoice_id"`
	InvoiceNumber     string          `json:"invoice_number"`
	CustomerName      string          `json:"customer_name"`
	CustomerPhone     string          `json:"customer_phone,omitempty"`
	InstallmentNumber int             `json:"installment_number"`
	DueDate           time.Time       `json:"due_date"`
	Amount            decimal.Decimal `json:"amount"`
	Risk              string          `json:"risk"`
	Status            string          `json:"status"`
	SentAt            *time.Time      `json:"sent_at,omitempty"`
	AcknowledgedAt    *time.Time      `json:"acknowledged_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
}

// ReminderListFilter defines filtering options for reminder list queries
type ReminderListFilter struct {
	InvoiceID *uuid.UUID `form:"invoice_id"`
	Status    string     `form:"status"`
	Page      int        `form:"page"`
	PageSize  int        `form:"page_size"`
}

// GenerateDueReminders sweeps the tenant's EMI invoices and raises one
// pending reminder per unpaid installment falling due within the lead
// window (or already overdue). Reminders whose installment was since paid
// or rescheduled are cancelled. The sweep is deduplicated per installment
// per due date and serialized through the job guard when one is installed.
func (s *ReminderService) GenerateDueReminders(ctx context.Context, tenantID uuid.UUID) (*SweepReport, error) {
	jobName := generateJobName + ":" + tenantID.String()
	if s.guard != nil {
		acquired, err := s.guard.TryAcquire(ctx, jobName, inFlightTTL)
		if err != nil {
			return nil, err
		}
		if !acquired {
			s.logger.Debug("reminder sweep skipped, guard held", zap.String("tenant_id", tenantID.String()))
			return &SweepReport{Skipped: true}, nil
		}
	}

	report, err := s.sweep(ctx, tenantID)
	if s.guard != nil {
		if err != nil {
			if releaseErr := s.guard.Release(ctx, jobName); releaseErr != nil {
				s.logger.Warn("failed to release reminder sweep guard", zap.Error(releaseErr))
			}
		} else if extendErr := s.guard.Extend(ctx, jobName, s.cooldown); extendErr != nil {
			s.logger.Warn("failed to extend reminder sweep guard", zap.Error(extendErr))
		}
	}
	if err != nil {
		return nil, err
	}

	s.logger.Info("reminder sweep completed",
		zap.String("tenant_id", tenantID.String()),
		zap.Int("scanned", report.Scanned),
		zap.Int("created", report.Created),
		zap.Int("cancelled", report.Cancelled),
	)
	return report, nil
}

func (s *ReminderService) sweep(ctx context.Context, tenantID uuid.UUID) (*SweepReport, error) {
	now := s.clock.Now()
	cutoff := now.Add(s.leadTime)

	invoices, err := s.invoiceRepo.FindEMIDueBefore(ctx, tenantID, cutoff)
	if err != nil {
		return nil, err
	}

	report := &SweepReport{Scanned: len(invoices)}
	for i := range invoices {
		invoice := &invoices[i]
		if invoice.EMI == nil {
			continue
		}

		created, err := s.raiseForInvoice(ctx, tenantID, invoice, now, cutoff)
		if err != nil {
			return nil, err
		}
		report.Created += created

		cancelled, err := s.cancelStaleForInvoice(ctx, tenantID, invoice)
		if err != nil {
			return nil, err
		}
		report.Cancelled += cancelled
	}
	return report, nil
}

func (s *ReminderService) raiseForInvoice(ctx context.Context, tenantID uuid.UUID, invoice *billing.Invoice, now, cutoff time.Time) (int, error) {
	created := 0
	for _, installment := range invoice.EMI.UnpaidInstallments() {
		if installment.DueDate.After(cutoff) {
			continue
		}

		existing, err := s.reminderRepo.FindByKey(ctx, tenantID, invoice.ID, installment.InstallmentNumber, installment.DueDate)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}

		r, err := reminder.NewReminder(tenantID, invoice, installment, now)
		if err != nil {
			return created, err
		}
		if err := s.reminderRepo.Save(ctx, r); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}

// cancelStaleForInvoice withdraws active reminders whose slot no longer
// matches an unpaid installment, either because it was paid or because a
// due-date move left the reminder pointing at the old date.
func (s *ReminderService) cancelStaleForInvoice(ctx context.Context, tenantID uuid.UUID, invoice *billing.Invoice) (int, error) {
	active, err := s.reminderRepo.FindActiveForInvoice(ctx, tenantID, invoice.ID)
	if err != nil {
		return 0, err
	}

	liveKeys := make(map[string]struct{})
	for _, installment := range invoice.EMI.UnpaidInstallments() {
		liveKeys[reminder.DedupeKey(invoice.ID, installment.InstallmentNumber, installment.DueDate)] = struct{}{}
	}

	cancelled := 0
	for i := range active {
		r := &active[i]
		if _, live := liveKeys[r.Key()]; live {
			continue
		}
		if err := r.Cancel(); err != nil {
			continue
		}
		if err := s.reminderRepo.Save(ctx, r); err != nil {
			return cancelled, err
		}
		cancelled++
	}
	return cancelled, nil
}

// ListReminders lists reminders with filtering
func (s *ReminderService) ListReminders(ctx context.Context, tenantID uuid.UUID, filter ReminderListFilter) ([]ReminderResponse, error) {
	domainFilter := reminder.ReminderFilter{
		InvoiceID: filter.InvoiceID,
	}
	domainFilter.Page = filter.Page
	domainFilter.PageSize = filter.PageSize
	if filter.Status != "" {
		status := reminder.Status(filter.Status)
		domainFilter.Status = &status
	}

	reminders, err := s.reminderRepo.FindAllForTenant(ctx, tenantID, domainFilter)
	if err != nil {
		return nil, err
	}

	responses := make([]ReminderResponse, len(reminders))
	for i := range reminders {
		responses[i] = *toReminderResponse(&reminders[i])
	}
	return responses, nil
}

// MarkSent records delivery of a pending reminder
func (s *ReminderService) MarkSent(ctx context.Context, tenantID, id uuid.UUID) (*ReminderResponse, error) {
	r, err := s.findReminder(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := r.MarkSent(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.reminderRepo.Save(ctx, r); err != nil {
		return nil, err
	}
	return toReminderResponse(r), nil
}

// Acknowledge records a customer response to a sent reminder
func (s *ReminderService) Acknowledge(ctx context.Context, tenantID, id uuid.UUID) (*ReminderResponse, error) {
	r, err := s.findReminder(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := r.Acknowledge(s.clock.Now()); err != nil {
		return nil, err
	}
	if err := s.reminderRepo.Save(ctx, r); err != nil {
		return nil, err
	}
	return toReminderResponse(r), nil
}

// CancelReminder withdraws a reminder manually
func (s *ReminderService) CancelReminder(ctx context.Context, tenantID, id uuid.UUID) (*ReminderResponse, error) {
	r, err := s.findReminder(ctx, tenantID, id)
	if err != nil {
		return nil, err
	}

	if err := r.Cancel(); err != nil {
		return nil, err
	}
	if err := s.reminderRepo.Save(ctx, r); err != nil {
		return nil, err
	}
	return toReminderResponse(r), nil
}

func (s *ReminderService) findReminder(ctx context.Context, tenantID, id uuid.UUID) (*reminder.Reminder, error) {
	r, err := s.reminderRepo.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if r == nil || r.TenantID != tenantID {
		return nil, shared.NewDomainError("NOT_FOUND", "Reminder not found")
	}
	return r, nil
}

func toReminderResponse(r *reminder.Reminder) *ReminderResponse {
	return &ReminderResponse{
		ID:                r.ID,
		TenantID:          r.TenantID,
		InvoiceID:         r.InvoiceID,
		InvoiceNumber:     r.InvoiceNumber,
		CustomerName:      r.CustomerName,
		CustomerPhone:     r.CustomerPhone,
		InstallmentNumber: r.InstallmentNumber,
		DueDate:           r.DueDate,
		Amount:            r.Amount,
		Risk:              string(r.Risk),
		Status:            string(r.Status),
		SentAt:            r.SentAt,
		AcknowledgedAt:    r.AcknowledgedAt,
		CreatedAt:         r.CreatedAt,
	}
}
