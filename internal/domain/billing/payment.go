package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PaymentStatus is the payment tracking category of an invoice.
// It is a reporting category, not a settlement flag: an EMI invoice stays
// "emi" even after the schedule is fully paid (FullyPaid covers settlement).
type PaymentStatus string

const (
	PaymentStatusPending      PaymentStatus = "pending"
	PaymentStatusPaid         PaymentStatus = "paid"
	PaymentStatusEMI          PaymentStatus = "emi"
	PaymentStatusFinance      PaymentStatus = "finance"
	PaymentStatusBankTransfer PaymentStatus = "bank_transfer"
)

// IsValid checks if the status is a valid PaymentStatus
func (s PaymentStatus) IsValid() bool {
	switch s {
	case PaymentStatusPending, PaymentStatusPaid, PaymentStatusEMI,
		PaymentStatusFinance, PaymentStatusBankTransfer:
		return true
	}
	return false
}

// String returns the string representation of PaymentStatus
func (s PaymentStatus) String() string {
	return string(s)
}

// CanTransitionTo checks if the status can transition to the target status.
// Pending may move to any assigned category; any category may fall back to
// pending, which is the destructive reset handled by Invoice.ResetToPending.
func (s PaymentStatus) CanTransitionTo(target PaymentStatus) bool {
	if !target.IsValid() {
		return false
	}
	if s == PaymentStatusPending {
		return target != PaymentStatusPending
	}
	return target == PaymentStatusPending
}

// DeliveryStatus tracks physical delivery of the sold goods
type DeliveryStatus string

const (
	DeliveryStatusPending   DeliveryStatus = "pending"
	DeliveryStatusScheduled DeliveryStatus = "scheduled"
	DeliveryStatusDelivered DeliveryStatus = "delivered"
)

// IsValid checks if the status is a valid DeliveryStatus
func (s DeliveryStatus) IsValid() bool {
	switch s {
	case DeliveryStatusPending, DeliveryStatusScheduled, DeliveryStatusDelivered:
		return true
	}
	return false
}

// CanTransitionTo checks if the delivery status can move to the target
func (s DeliveryStatus) CanTransitionTo(target DeliveryStatus) bool {
	switch s {
	case DeliveryStatusPending:
		return target == DeliveryStatusScheduled || target == DeliveryStatusDelivered
	case DeliveryStatusScheduled:
		return target == DeliveryStatusDelivered
	}
	return false
}

// PaymentRecord is one payment applied to the invoice balance
type PaymentRecord struct {
	ID         uuid.UUID       `json:"id"`
	Amount     decimal.Decimal `json:"amount"`
	Method     string          `json:"method"`
	Reference  string          `json:"reference,omitempty"`
	RecordedBy string          `json:"recorded_by,omitempty"`
	ReceivedAt time.Time       `json:"received_at"`
	Remark     string          `json:"remark,omitempty"`
}

// NewPaymentRecord creates a payment record stamped with the current time
func NewPaymentRecord(amount decimal.Decimal, method, reference, recordedBy string) PaymentRecord {
	return PaymentRecord{
		ID:         uuid.New(),
		Amount:     amount,
		Method:     method,
		Reference:  reference,
		RecordedBy: recordedBy,
		ReceivedAt: time.Now(),
	}
}

// PaymentRecords is a slice of PaymentRecord stored as JSONB
type PaymentRecords []PaymentRecord

// Value implements driver.Valuer for JSONB storage
func (p PaymentRecords) Value() (driver.Value, error) {
	if p == nil {
		return "[]", nil
	}
	return json.Marshal(p)
}

// Scan implements sql.Scanner for JSONB storage
func (p *PaymentRecords) Scan(value interface{}) error {
	if value == nil {
		*p = PaymentRecords{}
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan PaymentRecords: unsupported type")
	}
	if len(bytes) == 0 {
		*p = PaymentRecords{}
		return nil
	}
	return json.Unmarshal(bytes, p)
}

// PaymentDetails aggregates the payment side of an invoice
type PaymentDetails struct {
	DownPayment      decimal.Decimal `json:"down_payment"`
	RemainingBalance decimal.Decimal `json:"remaining_balance"`
	PaymentMethod    string          `json:"payment_method,omitempty"`
	PaymentHistory   PaymentRecords  `json:"payment_history"`
}

// TotalReceived sums all recorded payments plus the down payment
func (d *PaymentDetails) TotalReceived() decimal.Decimal {
	total := d.DownPayment
	for _, rec := range d.PaymentHistory {
		total = total.Add(rec.Amount)
	}
	return total
}

// Value implements driver.Valuer for JSONB storage
func (d PaymentDetails) Value() (driver.Value, error) {
	return json.Marshal(d)
}

// Scan implements sql.Scanner for JSONB storage
func (d *PaymentDetails) Scan(value interface{}) error {
	if value == nil {
		return nil
	}
	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan PaymentDetails: unsupported type")
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, d)
}
