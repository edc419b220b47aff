package quotation

import (
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/billing"
	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/retailbill/backend/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// Status is the lifecycle state of a quotation
type Status string

const (
	StatusOpen      Status = "open"
	StatusConverted Status = "converted"
	StatusExpired   Status = "expired"
	StatusCancelled Status = "cancelled"
)

// IsValid checks if the status is a valid quotation Status
func (s Status) IsValid() bool {
	switch s {
	case StatusOpen, StatusConverted, StatusExpired, StatusCancelled:
		return true
	}
	return false
}

// FormatQuotationNumber renders the business quotation number, e.g. QT_EL_001
func FormatQuotationNumber(segment billing.Segment, sequence int64) string {
	return fmt.Sprintf("QT_%s_%03d", segment.Prefix(), sequence)
}

// Quotation is a priced offer that has not yet become a sale. It shares the
// totals engine with invoices so a converted quotation carries identical
// amounts, and it never reserves an invoice number until conversion.
type Quotation struct {
	shared.TenantAggregateRoot
	QuotationNumber    string                      `gorm:"type:varchar(30);not null;uniqueIndex:idx_quotation_tenant_number,priority:2"`
	CustomerID         uuid.UUID                   `gorm:"type:uuid;not null;index"`
	CustomerName       string                      `gorm:"type:varchar(200);not null"`
	CustomerPhone      string                      `gorm:"type:varchar(20)"`
	Segment            billing.Segment             `gorm:"type:varchar(20);not null"`
	Jurisdiction       tax.Jurisdiction            `gorm:"type:varchar(20);not null"`
	Items              billing.LineItems           `gorm:"type:jsonb"`
	BulkPricing        *billing.BulkPricingDetails `gorm:"type:jsonb"`
	Subtotal           decimal.Decimal             `gorm:"type:decimal(18,2);not null;default:0"`
	TotalGST           decimal.Decimal             `gorm:"type:decimal(18,2);not null;default:0"`
	GrandTotal         decimal.Decimal             `gorm:"type:decimal(18,2);not null;default:0"`
	Status             Status                      `gorm:"type:varchar(20);not null;default:'open';index"`
	ValidUntil         time.Time                   `gorm:"not null;index"`
	ConvertedInvoiceID *uuid.UUID                  `gorm:"type:uuid"`
	Remark             string                      `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (Quotation) TableName() string {
	return "quotations"
}

// NewQuotation creates a quotation, pricing it through the totals engine
func NewQuotation(
	tenantID uuid.UUID,
	quotationNumber string,
	customerID uuid.UUID,
	customerName, customerPhone string,
	segment billing.Segment,
	jurisdiction tax.Jurisdiction,
	items billing.LineItems,
	bulk *billing.BulkPricingDetails,
	validUntil time.Time,
	calc tax.Calculator,
) (*Quotation, error) {
	if quotationNumber == "" {
		return nil, shared.NewDomainError("INVALID_QUOTATION_NUMBER", "Quotation number cannot be empty")
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
	if validUntil.IsZero() {
		return nil, shared.NewDomainError("INVALID_VALIDITY", "Quotation validity date is required")
	}

	totals, err := billing.ComputeTotals(items, calc, jurisdiction, bulk)
	if err != nil {
		return nil, err
	}
	if totals.GrandTotal.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_AMOUNT", "Quotation grand total must be positive")
	}

	q := &Quotation{
		TenantAggregateRoot: shared.NewTenantAggregateRoot(tenantID),
		QuotationNumber:     quotationNumber,
		CustomerID:          customerID,
		CustomerName:        customerName,
		CustomerPhone:       customerPhone,
		Segment:             segment,
		Jurisdiction:        jurisdiction,
		Items:               totals.Items,
		BulkPricing:         bulk,
		Subtotal:            totals.Subtotal,
		TotalGST:            totals.TotalGST,
		GrandTotal:          totals.GrandTotal,
		Status:              StatusOpen,
		ValidUntil:          validUntil,
	}

	q.AddDomainEvent(NewQuotationCreatedEvent(q))

	return q, nil
}

// UpdateItems reprices an open quotation
func (q *Quotation) UpdateItems(items billing.LineItems, bulk *billing.BulkPricingDetails, calc tax.Calculator) error {
	if q.Status != StatusOpen {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot edit a %s quotation", q.Status))
	}

	totals, err := billing.ComputeTotals(items, calc, q.Jurisdiction, bulk)
	if err != nil {
		return err
	}
	if totals.GrandTotal.LessThanOrEqual(decimal.Zero) {
		return shared.NewDomainError("INVALID_AMOUNT", "Quotation grand total must be positive")
	}

	q.Items = totals.Items
	q.BulkPricing = bulk
	q.Subtotal = totals.Subtotal
	q.TotalGST = totals.TotalGST
	q.GrandTotal = totals.GrandTotal
	q.UpdatedAt = time.Now()

	return nil
}

// ExtendValidity pushes the expiry forward and reopens an expired quotation
func (q *Quotation) ExtendValidity(until time.Time) error {
	if q.Status == StatusConverted || q.Status == StatusCancelled {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot extend a %s quotation", q.Status))
	}
	if !until.After(q.ValidUntil) {
		return shared.NewDomainError("INVALID_VALIDITY", "New validity must be after the current one")
	}

	q.ValidUntil = until
	q.Status = StatusOpen
	q.UpdatedAt = time.Now()

	return nil
}

// MarkExpired flags an open quotation whose validity has lapsed
func (q *Quotation) MarkExpired(now time.Time) error {
	if q.Status != StatusOpen {
		return shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot expire a %s quotation", q.Status))
	}
	if now.Before(q.ValidUntil) {
		return shared.NewDomainError("INVALID_STATE", "Quotation is still valid")
	}

	q.Status = StatusExpired
	q.UpdatedAt = now

	return nil
}

// Cancel withdraws a quotation that has not been converted
func (q *Quotation) Cancel() error {
	if q.Status == StatusConverted {
		return shared.NewDomainError("INVALID_STATE", "Cannot cancel a converted quotation")
	}
	if q.Status == StatusCancelled {
		return shared.NewDomainError("INVALID_STATE", "Quotation is already cancelled")
	}

	q.Status = StatusCancelled
	q.UpdatedAt = time.Now()

	return nil
}

// ConvertToInvoice produces the invoice for an open quotation. The caller
// supplies the freshly assigned invoice number and the payment parameters;
// items and totals carry over unchanged. Conversion is one-way.
func (q *Quotation) ConvertToInvoice(
	invoiceNumber string,
	paymentStatus billing.PaymentStatus,
	downPayment decimal.Decimal,
	emi *billing.EMIPlanInput,
	calc tax.Calculator,
) (*billing.Invoice, error) {
	if q.Status != StatusOpen {
		return nil, shared.NewDomainError("INVALID_STATE", fmt.Sprintf("Cannot convert a %s quotation", q.Status))
	}

	invoice, err := billing.NewInvoice(
		q.TenantID,
		invoiceNumber,
		q.CustomerID,
		q.CustomerName,
		q.CustomerPhone,
		q.Segment,
		q.Jurisdiction,
		q.Items,
		q.BulkPricing,
		paymentStatus,
		downPayment,
		emi,
		calc,
	)
	if err != nil {
		return nil, err
	}

	q.Status = StatusConverted
	q.ConvertedInvoiceID = &invoice.ID
	q.UpdatedAt = time.Now()
	q.AddDomainEvent(NewQuotationConvertedEvent(q, invoice.ID, invoice.InvoiceNumber))

	return invoice, nil
}
