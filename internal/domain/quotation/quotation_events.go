package quotation

import (
	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/shared"
)

const (
	// EventQuotationCreated is emitted when a quotation is created
	EventQuotationCreated = "quotation.created"
	// EventQuotationConverted is emitted when a quotation becomes an invoice
	EventQuotationConverted = "quotation.converted"
)

const aggregateTypeQuotation = "Quotation"

// QuotationCreatedEvent is emitted when a quotation is created
type QuotationCreatedEvent struct {
	shared.BaseDomainEvent
	QuotationNumber string `json:"quotation_number"`
	CustomerName    string `json:"customer_name"`
	GrandTotal      string `json:"grand_total"`
}

// NewQuotationCreatedEvent creates a QuotationCreatedEvent
func NewQuotationCreatedEvent(q *Quotation) *QuotationCreatedEvent {
	return &QuotationCreatedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventQuotationCreated, aggregateTypeQuotation, q.ID, q.TenantID),
		QuotationNumber: q.QuotationNumber,
		CustomerName:    q.CustomerName,
		GrandTotal:      q.GrandTotal.StringFixed(2),
	}
}

// QuotationConvertedEvent is emitted when a quotation becomes an invoice
type QuotationConvertedEvent struct {
	shared.BaseDomainEvent
	QuotationNumber string    `json:"quotation_number"`
	InvoiceID       uuid.UUID `json:"invoice_id"`
	InvoiceNumber   string    `json:"invoice_number"`
}

// NewQuotationConvertedEvent creates a QuotationConvertedEvent
func NewQuotationConvertedEvent(q *Quotation, invoiceID uuid.UUID, invoiceNumber string) *QuotationConvertedEvent {
	return &QuotationConvertedEvent{
		BaseDomainEvent: shared.NewBaseDomainEvent(EventQuotationConverted, aggregateTypeQuotation, q.ID, q.TenantID),
		QuotationNumber: q.QuotationNumber,
		InvoiceID:       invoiceID,
		InvoiceNumber:   invoiceNumber,
	}
}
