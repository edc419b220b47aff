package models

import (
	"time"

	"github.com/google/uuid"
	"github.com/retailbill/backend/internal/domain/billing"
	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/retailbill/backend/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// InvoiceModel is the persistence model for the Invoice aggregate. The line
// items, payment details, EMI plan and due-date flags live in JSONB columns;
// the columns queried by lists, the summary and the reminder sweep are kept
// flat and refreshed from the aggregate on every save.
type InvoiceModel struct {
	TenantAggregateModel
	InvoiceNumber           string                             `gorm:"type:varchar(30);not null;uniqueIndex:idx_invoice_tenant_number,priority:2"`
	CustomerID              uuid.UUID                          `gorm:"type:uuid;not null;index"`
	CustomerName            string                             `gorm:"type:varchar(200);not null"`
	CustomerPhone           string                             `gorm:"type:varchar(20)"`
	Segment                 billing.Segment                    `gorm:"type:varchar(20);not null"`
	Jurisdiction            tax.Jurisdiction                   `gorm:"type:varchar(20);not null"`
	Items                   billing.LineItems                  `gorm:"type:jsonb"`
	Subtotal                decimal.Decimal                    `gorm:"type:decimal(18,2);not null;default:0"`
	TotalGST                decimal.Decimal                    `gorm:"type:decimal(18,2);not null;default:0"`
	GrandTotal              decimal.Decimal                    `gorm:"type:decimal(18,2);not null;default:0"`
	PaymentStatus           billing.PaymentStatus              `gorm:"type:varchar(20);not null;index"`
	OriginalPaymentCategory billing.PaymentStatus              `gorm:"type:varchar(20);not null"`
	DeliveryStatus          billing.DeliveryStatus             `gorm:"type:varchar(20);not null"`
	FullyPaid               bool                               `gorm:"not null;default:false;index"`
	Payment                 billing.PaymentDetails             `gorm:"type:jsonb"`
	EMI                     *billing.EMIPlan                   `gorm:"type:jsonb"`
	BulkPricing             *billing.BulkPricingDetails        `gorm:"type:jsonb"`
	DueDateFlags            billing.CustomerDueDateChangeFlags `gorm:"type:jsonb"`
	NextDueDate             *time.Time                         `gorm:"index"`
	ScheduledDeliveryDate   *time.Time
	DeliveredAt             *time.Time
	PaymentDate             *time.Time
	Remark                  string `gorm:"type:text"`
}

// TableName returns the table name for GORM
func (InvoiceModel) TableName() string {
	return "invoices"
}

// ToDomain converts the persistence model to an Invoice aggregate
func (m *InvoiceModel) ToDomain() *billing.Invoice {
	inv := &billing.Invoice{
		InvoiceNumber:           m.InvoiceNumber,
		CustomerID:              m.CustomerID,
		CustomerName:            m.CustomerName,
		CustomerPhone:           m.CustomerPhone,
		Segment:                 m.Segment,
		Jurisdiction:            m.Jurisdiction,
		Items:                   m.Items,
		Subtotal:                m.Subtotal,
		TotalGST:                m.TotalGST,
		GrandTotal:              m.GrandTotal,
		PaymentStatus:           m.PaymentStatus,
		OriginalPaymentCategory: m.OriginalPaymentCategory,
		DeliveryStatus:          m.DeliveryStatus,
		FullyPaid:               m.FullyPaid,
		Payment:                 m.Payment,
		EMI:                     m.EMI,
		BulkPricing:             m.BulkPricing,
		DueDateFlags:            m.DueDateFlags,
		ScheduledDeliveryDate:   m.ScheduledDeliveryDate,
		DeliveredAt:             m.DeliveredAt,
		PaymentDate:             m.PaymentDate,
		Remark:                  m.Remark,
	}
	var root shared.TenantAggregateRoot
	m.PopulateTenantAggregateRoot(&root)
	inv.TenantAggregateRoot = root
	return inv
}

// FromDomain populates the persistence model from an Invoice aggregate
func (m *InvoiceModel) FromDomain(inv *billing.Invoice) {
	m.FromDomainTenantAggregateRoot(inv.TenantAggregateRoot)
	m.InvoiceNumber = inv.InvoiceNumber
	m.CustomerID = inv.CustomerID
	m.CustomerName = inv.CustomerName
	m.CustomerPhone = inv.CustomerPhone
	m.Segment = inv.Segment
	m.Jurisdiction = inv.Jurisdiction
	m.Items = inv.Items
	m.Subtotal = inv.Subtotal
	m.TotalGST = inv.TotalGST
	m.GrandTotal = inv.GrandTotal
	m.PaymentStatus = inv.PaymentStatus
	m.OriginalPaymentCategory = inv.OriginalPaymentCategory
	m.DeliveryStatus = inv.DeliveryStatus
	m.FullyPaid = inv.FullyPaid
	m.Payment = inv.Payment
	m.EMI = inv.EMI
	m.BulkPricing = inv.BulkPricing
	m.DueDateFlags = inv.DueDateFlags
	m.NextDueDate = nextDueDate(inv)
	m.ScheduledDeliveryDate = inv.ScheduledDeliveryDate
	m.DeliveredAt = inv.DeliveredAt
	m.PaymentDate = inv.PaymentDate
	m.Remark = inv.Remark
}

// InvoiceModelFromDomain creates a new persistence model from an Invoice aggregate
func InvoiceModelFromDomain(inv *billing.Invoice) *InvoiceModel {
	m := &InvoiceModel{}
	m.FromDomain(inv)
	return m
}

// nextDueDate returns the earliest unpaid installment due date, which the
// reminder sweep filters on instead of digging into the JSONB schedule
func nextDueDate(inv *billing.Invoice) *time.Time {
	if inv.EMI == nil {
		return nil
	}
	var next *time.Time
	for _, installment := range inv.EMI.UnpaidInstallments() {
		due := installment.DueDate
		if next == nil || due.Before(*next) {
			next = &due
		}
	}
	return next
}
