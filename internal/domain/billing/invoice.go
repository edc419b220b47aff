package billing

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/retailbill/backend/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// Segment is the tenant's retail vertical
type Segment string

const (
	SegmentElectronics Segment = "electronics"
	SegmentFurniture   Segment = "furniture"
)

// IsValid checks if the segment is valid
func (s Segment) IsValid() bool {
	return s == SegmentElectronics || s == SegmentFurniture
}

// Prefix returns the invoice-number prefix for the segment
func (s Segment) Prefix() string {
	if s == SegmentFurniture {
		return "FU"
	}
	return "EL"
}

// TaxMode is the tax treatment encoded into the invoice number
type TaxMode string

const (
	TaxModeGST    TaxMode = "GST"
	TaxModeNonGST TaxMode = "NGST"
)

// FormatInvoiceNumber renders the business invoice number,
// e.g. EL_GST_001. The sequence comes from an atomic per-tenant counter.
func FormatInvoiceNumber(segment Segment, mode TaxMode, sequence int64) string {
	return fmt.Sprintf("%s_%s_%03d", segment.Prefix(), mode, sequence)
}

// Invoice is the sale aggregate root: line items and derived totals, the
// payment tracking category, the optional EMI plan, delivery tracking and
// due-date churn flags. Subtotal/TotalGST/GrandTotal are derived values and
// are only ever recomputed through the totals engine.
type Invoice struct {
	shared.TenantAggregateRoot
	InvoiceNumber           string
	CustomerID              uuid.UUID
	CustomerName            string
	CustomerPhone           string
	Segment                 Segment
	Jurisdiction            tax.Jurisdiction
	Items                   LineItems
	Subtotal                decimal.Decimal
	TotalGST                decimal.Decimal
	GrandTotal              decimal.Decimal
	PaymentStatus           PaymentStatus
	OriginalPaymentCategory PaymentStatus
	DeliveryStatus          DeliveryStatus
	FullyPaid               bool
	Payment                 PaymentDetails
	EMI                     *EMIPlan
	BulkPricing             *BulkPricingDetails
	DueDateFlags            CustomerDueDateChangeFlags
	ScheduledDeliveryDate   *time.Time
	DeliveredAt             *time.Time
	PaymentDate             *time.Time
	Remark                  string
}

// EMIPlanInput carries the caller-supplied parameters for an EMI plan
type EMIPlanInput struct {
	DownPayment          decimal.Decimal
	NumberOfInstallments int
	StartDate            time.Time
}

// NewInvoice creates an invoice, running the totals engine over the items
// (or the bulk override) and generating the EMI schedule when the payment
// category is emi. The invoice number is assigned exactly once here.
func NewInvoice(
	tenantID uuid.UUID,
	invoiceNumber string,
	customerID uuid.UUID,
	customerName, customerPhone string,
	segment Segment,
	jurisdiction tax.Jurisdiction,
	items LineItems,
	bulk *BulkPricingDetails,
	paymentStatus PaymentStatus,
	downPayment decimal.Decimal,
	emi *EMIPlanInput,
	calc tax.Calculator,
) (*Invoice, error) {
	if invoiceNumber == "" {
		return nil, shared.NewDomainError("INVALID_INVOICE_NUMBER", "Invoice number cannot be empty")
	}
	if customerID == uuid.Nil {
		return nil, shared.NewDomainError("INVALID_CUSTOMER", "Customer ID cannot be empty")
	}
	if customerName == "" {
		return nil, shared.NewDomainError("INVALID_CUSTOMER_NAME", "Customer name cannot be empty")
	}
	if !segment.IsValid() {
		return nil, shared.NewDomainError("INVALID_SEGMENT", "Segment is not valid")
	}
	if !paymentStatus.IsValid() {
		return nil, shared.NewDomainError("INVALID_PAYMENT_STATUS", "Payment status is not valid")
	}
	if len(items) == 0 && !bulk.Active() {
		return nil, shared.NewDomainError("NO_ITEMS", "Invoice requires at least one item or a bulk price")
	}
	if downPayment.IsNegative() {
		return nil, shared.NewDomainError("INVALID_DOWN_PAYMENT", "Down payment cannot be negative")
	}

	totals, err := ComputeTotals(items, calc, jurisdiction, bulk)
	if err != nil {
		return nil, err
	}
	if totals.GrandTotal.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Invoice grand total must be positive")
	}

	inv := &Invoice{
		TenantAggregateRoot:     shared.NewTenantAggregateRoot(tenantID),
		InvoiceNumber:           invoiceNumber,
		CustomerID:              customerID,
		CustomerName:            customerName,
		CustomerPhone:           customerPhone,
		Segment:                 segment,
		Jurisdiction:            jurisdiction,
		Items:                   totals.Items,
		Subtotal:                totals.Subtotal,
		TotalGST:                totals.TotalGST,
		GrandTotal:              totals.GrandTotal,
		PaymentStatus:           paymentStatus,
		OriginalPaymentCategory: paymentStatus,
		DeliveryStatus:          DeliveryStatusPending,
		BulkPricing:             bulk,
		Payment: PaymentDetails{
			DownPayment:      downPayment,
			RemainingBalance: totals.GrandTotal.Sub(downPayment),
			PaymentHistory:   PaymentRecords{},
		},
	}

	if paymentStatus == PaymentStatusEMI {
		if emi == nil {
			return nil, shared.NewDomainError("SCHEDULE_MISSING", "EMI invoices require plan parameters")
		}
		plan, err := NewEMIPlan(totals.GrandTotal, downPayment, emi.NumberOfInstallments, emi.StartDate)
		if err != nil {
			return nil, err
		}
		inv.EMI = plan
	}

	inv.AddDomainEvent(NewInvoiceCreatedEvent(inv))

	return inv, nil
}

// UpdateItems replaces the line items (or bulk override), recomputes the
// derived totals and reconciles an existing EMI schedule against the new
// grand total. Paid installments and their settled amounts are preserved.
// The invoice number never changes here.
func (inv *Invoice) UpdateItems(items LineItems, bulk *BulkPricingDetails, calc tax.Calculator) error {
	if len(items) == 0 && !bulk.Active() {
		return shared.NewDomainError("NO_ITEMS", "Invoice requires at least one item or a bulk price")
	}

	totals, err := ComputeTotals(items, calc, inv.Jurisdiction, bulk)
	if err != nil {
		return err
	}
	if totals.GrandTotal.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Invoice grand total must be positive")
	}

	previousTotal := inv.GrandTotal
	inv.Items = totals.Items
	inv.BulkPricing = bulk
	inv.Subtotal = totals.Subtotal
	inv.TotalGST = totals.TotalGST
	inv.GrandTotal = totals.GrandTotal

	if inv.EMI != nil {
		outcome, err := inv.EMI.ReconcileAfterEdit(totals.GrandTotal)
		if err != nil {
			return err
		}
		inv.Payment.RemainingBalance = inv.EMI.TotalRemaining
		// A total-changing edit is the one path allowed to reopen a
		// settled invoice.
		inv.FullyPaid = outcome.Settled
		if !outcome.Settled {
			inv.PaymentDate = nil
		}
		if outcome.ExcessCredit.IsPositive() {
			inv.AddDomainEvent(NewOverpaymentExcessEvent(inv, 0, outcome.ExcessCredit))
		}
	} else {
		received := inv.Payment.TotalReceived()
		remaining := totals.GrandTotal.Sub(received)
		if remaining.IsNegative() {
			remaining = decimal.Zero
		}
		inv.Payment.RemainingBalance = remaining
		inv.FullyPaid = remaining.IsZero()
		if !inv.FullyPaid {
			inv.PaymentDate = nil
		}
	}

	inv.UpdatedAt = time.Now()
	inv.AddDomainEvent(NewInvoiceEditedEvent(inv, previousTotal))

	return nil
}

// RecordInstallmentPayment settles an installment on the EMI schedule and
// applies the redistribution rules. The payment category stays "emi" even
// once the schedule settles; only FullyPaid flips.
func (inv *Invoice) RecordInstallmentPayment(number int, amount decimal.Decimal, record InstallmentPaymentRecord) (*PaymentOutcome, error) {
	if inv.EMI == nil {
		return nil, shared.NewDomainError("SCHEDULE_MISSING", "Invoice has no EMI schedule")
	}

	outcome, err := inv.EMI.RecordInstallmentPayment(number, amount, record)
	if err != nil {
		return nil, err
	}

	inv.Payment.RemainingBalance = inv.EMI.TotalRemaining
	inv.AddDomainEvent(NewInstallmentPaidEvent(inv, outcome))

	if outcome.Settled {
		now := time.Now()
		inv.FullyPaid = true
		inv.PaymentDate = &now
		inv.AddDomainEvent(NewInvoiceFullyPaidEvent(inv))
	}
	if outcome.ExcessCredit.IsPositive() {
		inv.AddDomainEvent(NewOverpaymentExcessEvent(inv, number, outcome.ExcessCredit))
	}

	inv.UpdatedAt = time.Now()
	return outcome, nil
}

// RecordPayment applies a direct payment against a non-EMI balance.
// Paying more than the remaining balance is rejected.
func (inv *Invoice) RecordPayment(amount decimal.Decimal, method, reference, recordedBy string) error {
	if inv.EMI != nil {
		return shared.NewDomainError("INVALID_STATE", "Use installment payments for EMI invoices")
	}
	if amount.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Payment amount must be positive")
	}
	if amount.GreaterThan(inv.Payment.RemainingBalance) {
		return shared.NewDomainError("VALIDATION_ERROR", fmt.Sprintf(
			"Payment %s exceeds remaining balance %s",
			amount.StringFixed(2), inv.Payment.RemainingBalance.StringFixed(2)))
	}

	inv.Payment.PaymentHistory = append(inv.Payment.PaymentHistory, NewPaymentRecord(amount, method, reference, recordedBy))
	inv.Payment.RemainingBalance = inv.Payment.RemainingBalance.Sub(amount)

	if inv.Payment.RemainingBalance.IsZero() {
		now := time.Now()
		inv.FullyPaid = true
		inv.PaymentDate = &now
		inv.AddDomainEvent(NewInvoiceFullyPaidEvent(inv))
	}

	inv.UpdatedAt = time.Now()
	return nil
}

// ChangeInstallmentDueDate moves an installment's due date and refreshes the
// invoice-level churn flags
func (inv *Invoice) ChangeInstallmentDueDate(number int, newDate time.Time, reason, actor string) error {
	if inv.EMI == nil {
		return shared.NewDomainError("SCHEDULE_MISSING", "Invoice has no EMI schedule")
	}
	target := inv.EMI.FindInstallment(number)
	if target == nil {
		return shared.NewDomainError("INSTALLMENT_NOT_FOUND", fmt.Sprintf("Installment %d does not exist", number))
	}
	if err := target.ChangeDueDate(newDate, reason, actor); err != nil {
		return err
	}

	inv.DueDateFlags = inv.EMI.RecountDueDateChanges()
	inv.UpdatedAt = time.Now()
	inv.AddDomainEvent(NewDueDateChangedEvent(inv, number, newDate, inv.DueDateFlags))
	return nil
}

// ChangePaymentStatus assigns a payment category from pending.
// Moving back to pending must go through ResetToPending. Moving to emi
// requires plan parameters and generates the installment schedule, so an
// EMI-categorized invoice can never exist without one.
func (inv *Invoice) ChangePaymentStatus(target PaymentStatus, emi *EMIPlanInput) error {
	if target == PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Use ResetToPending to clear payment state")
	}
	if !inv.PaymentStatus.CanTransitionTo(target) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf(
			"Cannot change payment status from %s to %s", inv.PaymentStatus, target))
	}

	if target == PaymentStatusEMI {
		if emi == nil {
			return shared.NewDomainError("SCHEDULE_MISSING", "Changing to emi requires plan parameters")
		}
		if len(inv.Payment.PaymentHistory) > 0 {
			return shared.NewDomainError("INVALID_STATE", "Cannot change to emi after payments were recorded")
		}
		plan, err := NewEMIPlan(inv.GrandTotal, emi.DownPayment, emi.NumberOfInstallments, emi.StartDate)
		if err != nil {
			return err
		}
		inv.EMI = plan
		inv.Payment.DownPayment = emi.DownPayment
		inv.Payment.RemainingBalance = inv.GrandTotal.Sub(emi.DownPayment)
	}

	inv.PaymentStatus = target
	inv.UpdatedAt = time.Now()
	return nil
}

// ResetToPending is the destructive fallback transition: it clears all
// payment history, balances and the EMI schedule. The reset is recorded as
// an audit event.
func (inv *Invoice) ResetToPending(reason, actor string) error {
	if inv.PaymentStatus == PaymentStatusPending {
		return shared.NewDomainError("INVALID_STATE", "Invoice is already pending")
	}
	if reason == "" {
		return shared.NewDomainError("INVALID_REASON", "Reset reason is required")
	}

	inv.PaymentStatus = PaymentStatusPending
	inv.FullyPaid = false
	inv.PaymentDate = nil
	inv.EMI = nil
	inv.Payment = PaymentDetails{
		DownPayment:      decimal.Zero,
		RemainingBalance: inv.GrandTotal,
		PaymentHistory:   PaymentRecords{},
	}
	inv.DueDateFlags = CustomerDueDateChangeFlags{}

	inv.UpdatedAt = time.Now()
	inv.AddDomainEvent(NewPaymentResetEvent(inv, reason, actor))
	return nil
}

// ScheduleDelivery moves delivery to scheduled with the given date
func (inv *Invoice) ScheduleDelivery(date time.Time) error {
	if !inv.DeliveryStatus.CanTransitionTo(DeliveryStatusScheduled) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf(
			"Cannot schedule delivery from %s", inv.DeliveryStatus))
	}
	if date.IsZero() {
		return shared.NewDomainError("INVALID_DELIVERY_DATE", "Scheduled delivery date is required")
	}

	inv.DeliveryStatus = DeliveryStatusScheduled
	inv.ScheduledDeliveryDate = &date
	inv.UpdatedAt = time.Now()
	return nil
}

// MarkDelivered completes delivery and stamps the delivery time
func (inv *Invoice) MarkDelivered() error {
	if !inv.DeliveryStatus.CanTransitionTo(DeliveryStatusDelivered) {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf(
			"Cannot mark delivered from %s", inv.DeliveryStatus))
	}

	now := time.Now()
	inv.DeliveryStatus = DeliveryStatusDelivered
	inv.DeliveredAt = &now
	inv.UpdatedAt = now
	return nil
}

// IsEMI reports whether the invoice carries an installment plan
func (inv *Invoice) IsEMI() bool {
	return inv.EMI != nil
}

// TaxMode returns the tax treatment encoded in the invoice
func (inv *Invoice) TaxMode() TaxMode {
	if inv.TotalGST.IsZero() {
		return TaxModeNonGST
	}
	return TaxModeGST
}
