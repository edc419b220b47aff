package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/shopspring/decimal"
)

// LineItem represents a single sellable line on an invoice or quotation.
// BaseAmount/GSTAmount/TotalAmount are derived by the totals engine and
// zeroed when a bulk pricing override is in effect.
type LineItem struct {
	Name             string          `json:"name"`
	Quantity         decimal.Decimal `json:"quantity"`
	Rate             decimal.Decimal `json:"rate"`
	HSNCode          string          `json:"hsn_code,omitempty"`
	GSTSlab          decimal.Decimal `json:"gst_slab"`
	IsPriceInclusive bool            `json:"is_price_inclusive"`
	BaseAmount       decimal.Decimal `json:"base_amount"`
	GSTAmount        decimal.Decimal `json:"gst_amount"`
	TotalAmount      decimal.Decimal `json:"total_amount"`
	BulkPricing      bool            `json:"bulk_pricing"`
}

// NewLineItem creates a line item with derived amounts not yet computed
func NewLineItem(name string, quantity, rate, gstSlab decimal.Decimal, hsnCode string, inclusive bool) (*LineItem, error) {
	if name == "" {
		return nil, shared.NewDomainError("INVALID_ITEM_NAME", "Item name cannot be empty")
	}
	if quantity.LessThanOrEqual(decimal.Zero) {
		return nil, shared.NewDomainError("INVALID_QUANTITY", "Item quantity must be positive")
	}
	if rate.IsNegative() {
		return nil, shared.NewDomainError("INVALID_RATE", "Item rate cannot be negative")
	}
	if gstSlab.IsNegative() {
		return nil, shared.NewDomainError("INVALID_GST_SLAB", "GST slab cannot be negative")
	}

	return &LineItem{
		Name:             name,
		Quantity:         quantity,
		Rate:             rate,
		HSNCode:          hsnCode,
		GSTSlab:          gstSlab,
		IsPriceInclusive: inclusive,
	}, nil
}

// GrossAmount returns quantity * rate before any tax treatment
func (i *LineItem) GrossAmount() decimal.Decimal {
	return i.Quantity.Mul(i.Rate)
}

// zeroAmounts clears the derived amounts, used under bulk pricing
func (i *LineItem) zeroAmounts() {
	i.BaseAmount = decimal.Zero
	i.GSTAmount = decimal.Zero
	i.TotalAmount = decimal.Zero
	i.BulkPricing = true
}

// LineItems is a slice of LineItem stored as JSONB
type LineItems []LineItem

// Value implements driver.Valuer for JSONB storage
func (l LineItems) Value() (driver.Value, error) {
	if l == nil {
		return "[]", nil
	}
	return json.Marshal(l)
}

// Scan implements sql.Scanner for JSONB storage
func (l *LineItems) Scan(value interface{}) error {
	if value == nil {
		*l = LineItems{}
		return nil
	}

	var bytes []byte
	switch v := value.(type) {
	case []byte:
		bytes = v
	case string:
		bytes = []byte(v)
	default:
		return errors.New("failed to scan LineItems: unsupported type")
	}

	if len(bytes) == 0 {
		*l = LineItems{}
		return nil
	}

	return json.Unmarshal(bytes, l)
}
