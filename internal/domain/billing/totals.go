package billing

import (
	"database/sql/driver"
	"encoding/json"
	"errors"

	"github.com/retailbill/backend/internal/domain/shared"
	"github.com/retailbill/backend/internal/domain/shared/valueobject"
	"github.com/retailbill/backend/internal/domain/tax"
	"github.com/shopspring/decimal"
)

// BulkPricingDetails is an order-level price override. When active, per-item
// amounts are not meaningful and are zeroed.
type BulkPricingDetails struct {
	TotalPrice       decimal.Decimal `json:"total_price"`
	GSTRate          decimal.Decimal `json:"gst_rate"`
	IsPriceInclusive bool            `json:"is_price_inclusive"`
	IsTaxExempt      bool            `json:"is_tax_exempt"`
}

// Active reports whether the override takes effect over per-item pricing
func (b *BulkPricingDetails) Active() bool {
	return b != nil && b.TotalPrice.GreaterThan(decimal.Zero)
}

// Value implements driver.Valuer for JSONB storage
func (b BulkPricingDetails) Value() (driver.Value, error) {
	return json.Marshal(b)
}

// Scan implements sql.Scanner for JSONB storage
func (b *BulkPricingDetails) Scan(value interface{}) error {
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
		return errors.New("failed to scan BulkPricingDetails: unsupported type")
	}
	if len(bytes) == 0 {
		return nil
	}
	return json.Unmarshal(bytes, b)
}

// InvoiceTotals is the result of the totals engine
type InvoiceTotals struct {
	Subtotal   decimal.Decimal
	TotalGST   decimal.Decimal
	GrandTotal decimal.Decimal
	Items      LineItems
}

// ComputeTotals derives subtotal, GST and grand total from the line items,
// or from a bulk pricing override when one is active. Rounding to the cent
// happens at every accumulation boundary so recomputed totals always match
// stored ones.
func ComputeTotals(items LineItems, calc tax.Calculator, jurisdiction tax.Jurisdiction, bulk *BulkPricingDetails) (InvoiceTotals, error) {
	if calc == nil {
		return InvoiceTotals{}, shared.NewDomainError("MISSING_TAX_CALCULATOR", "Tax calculator is required")
	}

	out := make(LineItems, len(items))
	copy(out, items)

	if bulk.Active() {
		return computeBulkTotals(out, bulk), nil
	}

	subtotal := decimal.Zero
	totalGST := decimal.Zero
	for idx := range out {
		item := &out[idx]
		item.BulkPricing = false
		breakdown := calc.Compute(item.GrossAmount(), item.GSTSlab, item.IsPriceInclusive, jurisdiction)
		item.BaseAmount = breakdown.Base
		item.GSTAmount = breakdown.Tax
		item.TotalAmount = breakdown.Total
		subtotal = valueobject.RoundCent(subtotal.Add(item.BaseAmount))
		totalGST = valueobject.RoundCent(totalGST.Add(item.GSTAmount))
	}

	return InvoiceTotals{
		Subtotal:   subtotal,
		TotalGST:   totalGST,
		GrandTotal: valueobject.RoundCent(subtotal.Add(totalGST)),
		Items:      out,
	}, nil
}

// computeBulkTotals handles the override branch: exempt, inclusive or
// exclusive pricing on the single bulk amount.
func computeBulkTotals(items LineItems, bulk *BulkPricingDetails) InvoiceTotals {
	for idx := range items {
		items[idx].zeroAmounts()
	}

	price := valueobject.RoundCent(bulk.TotalPrice)

	var subtotal, totalGST decimal.Decimal
	switch {
	case bulk.IsTaxExempt || bulk.GSTRate.IsZero():
		subtotal = price
		totalGST = decimal.Zero
	case bulk.IsPriceInclusive:
		rate := bulk.GSTRate.Div(decimal.NewFromInt(100))
		subtotal = valueobject.RoundCent(price.Div(decimal.NewFromInt(1).Add(rate)))
		totalGST = price.Sub(subtotal)
	default:
		subtotal = price
		totalGST = valueobject.RoundCent(price.Mul(bulk.GSTRate.Div(decimal.NewFromInt(100))))
	}

	return InvoiceTotals{
		Subtotal:   subtotal,
		TotalGST:   totalGST,
		GrandTotal: valueobject.RoundCent(subtotal.Add(totalGST)),
		Items:      items,
	}
}
