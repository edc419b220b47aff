package billing

import (
	"time"

	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// Event types for the invoice aggregate
const (
	EventInvoiceCreated    = "billing.invoice.created"
	EventInvoiceEdited     = "billing.invoice.edited"
	EventInstallmentPaid   = "billing.invoice.installment_paid"
	EventInvoiceFullyPaid  = "billing.invoice.fully_paid"
	EventOverpaymentExcess = "billing.invoice.overpayment_excess"
	EventDueDateChanged    = "billing.invoice.due_date_changed"
	EventPaymentReset      = "billing.invoice.payment_reset"
	EventInvoiceDeleted    = "billing.invoice.deleted"
)

const aggregateTypeInvoice = "Invoice"

// InvoiceCreatedEvent fires when a new invoice is created. The catalog
// upsert hook subscribes to this.
type InvoiceCreatedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	GrandTotal    decimal.Decimal `json:"grand_total"`
	PaymentStatus PaymentStatus   `json:"payment_status"`
	Items         LineItems       `json:"items"`
}

// NewInvoiceCreatedEvent creates an InvoiceCreatedEvent
func NewInvoiceCreatedEvent(inv *Invoice) *InvoiceCreatedEvent {
	return &InvoiceCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceCreated, aggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		GrandTotal:      inv.GrandTotal,
		PaymentStatus:   inv.PaymentStatus,
		Items:           inv.Items,
	}
}

// InvoiceEditedEvent fires when the items or bulk pricing of an invoice
// change and the totals are recomputed
type InvoiceEditedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string          `json:"invoice_number"`
	PreviousTotal decimal.Decimal `json:"previous_total"`
	NewTotal      decimal.Decimal `json:"new_total"`
	Items         LineItems       `json:"items"`
}

// NewInvoiceEditedEvent creates an InvoiceEditedEvent
func NewInvoiceEditedEvent(inv *Invoice, previousTotal decimal.Decimal) *InvoiceEditedEvent {
	return &InvoiceEditedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceEdited, aggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		PreviousTotal:   previousTotal,
		NewTotal:        inv.GrandTotal,
		Items:           inv.Items,
	}
}

// InstallmentPaidEvent fires when an installment payment is recorded
type InstallmentPaidEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber       string          `json:"invoice_number"`
	InstallmentNumber   int             `json:"installment_number"`
	PaidAmount          decimal.Decimal `json:"paid_amount"`
	PaidFromOverpayment []int           `json:"paid_from_overpayment,omitempty"`
	TotalRemaining      decimal.Decimal `json:"total_remaining"`
}

// NewInstallmentPaidEvent creates an InstallmentPaidEvent
func NewInstallmentPaidEvent(inv *Invoice, outcome *PaymentOutcome) *InstallmentPaidEvent {
	return &InstallmentPaidEvent{
		BaseDomainEvent:     shared.NewBaseDomainEvent(EventInstallmentPaid, aggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:       inv.InvoiceNumber,
		InstallmentNumber:   outcome.InstallmentNumber,
		PaidAmount:          outcome.PaidAmount,
		PaidFromOverpayment: outcome.PaidFromOverpayment,
		TotalRemaining:      outcome.TotalRemaining,
	}
}

// InvoiceFullyPaidEvent fires once the cumulative payments match the grand
// total
type InvoiceFullyPaidEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string        `json:"invoice_number"`
	Category      PaymentStatus `json:"category"`
}

// NewInvoiceFullyPaidEvent creates an InvoiceFullyPaidEvent
func NewInvoiceFullyPaidEvent(inv *Invoice) *InvoiceFullyPaidEvent {
	return &InvoiceFullyPaidEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceFullyPaid, aggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		Category:        inv.PaymentStatus,
	}
}

// OverpaymentExcessEvent fires when a payment leaves credit that no
// installment can absorb. Whether this becomes a refund or customer credit
// is a downstream decision; the core only surfaces it.
type OverpaymentExcessEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber     string          `json:"invoice_number"`
	InstallmentNumber int             `json:"installment_number,omitempty"`
	ExcessAmount      decimal.Decimal `json:"excess_amount"`
}

// NewOverpaymentExcessEvent creates an OverpaymentExcessEvent
func NewOverpaymentExcessEvent(inv *Invoice, installmentNumber int, excess decimal.Decimal) *OverpaymentExcessEvent {
	return &OverpaymentExcessEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventOverpaymentExcess, aggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:     inv.InvoiceNumber,
		InstallmentNumber: installmentNumber,
		ExcessAmount:      excess,
	}
}

// DueDateChangedEvent fires when an installment due date is edited
type DueDateChangedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber     string                     `json:"invoice_number"`
	InstallmentNumber int                        `json:"installment_number"`
	NewDueDate        time.Time                  `json:"new_due_date"`
	Flags             CustomerDueDateChangeFlags `json:"flags"`
}

// NewDueDateChangedEvent creates a DueDateChangedEvent
func NewDueDateChangedEvent(inv *Invoice, installmentNumber int, newDueDate time.Time, flags CustomerDueDateChangeFlags) *DueDateChangedEvent {
	return &DueDateChangedEvent{
		BaseDomainEvent:   shared.NewBaseDomainEvent(EventDueDateChanged, aggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:     inv.InvoiceNumber,
		InstallmentNumber: installmentNumber,
		NewDueDate:        newDueDate,
		Flags:             flags,
	}
}

// PaymentResetEvent fires on the destructive reset-to-pending transition;
// it is the audit trail for the cleared payment history
type PaymentResetEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
	Reason        string `json:"reason"`
	Actor         string `json:"actor"`
}

// NewPaymentResetEvent creates a PaymentResetEvent
func NewPaymentResetEvent(inv *Invoice, reason, actor string) *PaymentResetEvent {
	return &PaymentResetEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventPaymentReset, aggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
		Reason:          reason,
		Actor:           actor,
	}
}

// InvoiceDeletedEvent fires when an invoice (and its plan) is destroyed
type InvoiceDeletedEvent struct {
	shared.BaseDomainEvent
	InvoiceNumber string `json:"invoice_number"`
}

// NewInvoiceDeletedEvent creates an InvoiceDeletedEvent
func NewInvoiceDeletedEvent(inv *Invoice) *InvoiceDeletedEvent {
	return &InvoiceDeletedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventInvoiceDeleted, aggregateTypeInvoice, inv.ID, inv.TenantID),
		InvoiceNumber:   inv.InvoiceNumber,
	}
}
