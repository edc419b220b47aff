package tax

import (
	"github.com/retailbill/backend/internal/domain/shared/valueobject"
	"github.com/shopspring/decimal"
)

// Jurisdiction determines how GST is split between components
type Jurisdiction string

const (
	JurisdictionIntraState Jurisdiction = "INTRA_STATE" // CGST + SGST
	JurisdictionInterState Jurisdiction = "INTER_STATE" // IGST
)

// IsValid checks if the jurisdiction is valid
func (j Jurisdiction) IsValid() bool {
	return j == JurisdictionIntraState || j == JurisdictionInterState
}

// Breakdown is the result of a tax computation
type Breakdown struct {
	Base  decimal.Decimal `json:"base"`
	Tax   decimal.Decimal `json:"tax"`
	Total decimal.Decimal `json:"total"`
	CGST  decimal.Decimal `json:"cgst"`
	SGST  decimal.Decimal `json:"sgst"`
	IGST  decimal.Decimal `json:"igst"`
}

// Calculator computes a base/tax/total breakdown for an amount at a slab rate.
// Implementations must be pure functions of their inputs.
type Calculator interface {
	Compute(amount decimal.Decimal, slabPercent decimal.Decimal, inclusive bool, jurisdiction Jurisdiction) Breakdown
}

// GSTCalculator is the default slab-rate GST calculator
type GSTCalculator struct{}

// NewGSTCalculator creates the default calculator
func NewGSTCalculator() *GSTCalculator {
	return &GSTCalculator{}
}

var oneHundred = decimal.NewFromInt(100)

// Compute derives the breakdown for a single amount.
// For tax-inclusive amounts the base is backed out of the total; otherwise
// the tax is added on top. All outputs are rounded to the cent.
func (c *GSTCalculator) Compute(amount decimal.Decimal, slabPercent decimal.Decimal, inclusive bool, jurisdiction Jurisdiction) Breakdown {
	if amount.IsZero() || slabPercent.IsZero() {
		rounded := valueobject.RoundCent(amount)
		return Breakdown{Base: rounded, Tax: decimal.Zero, Total: rounded}
	}

	var base, taxAmt, total decimal.Decimal
	rate := slabPercent.Div(oneHundred)

	if inclusive {
		total = valueobject.RoundCent(amount)
		base = valueobject.RoundCent(amount.Div(decimal.NewFromInt(1).Add(rate)))
		taxAmt = total.Sub(base)
	} else {
		base = valueobject.RoundCent(amount)
		taxAmt = valueobject.RoundCent(base.Mul(rate))
		total = base.Add(taxAmt)
	}

	b := Breakdown{Base: base, Tax: taxAmt, Total: total}
	if jurisdiction == JurisdictionInterState {
		b.IGST = taxAmt
	} else {
		// Intra-state tax is split evenly; CGST takes the odd cent.
		half := valueobject.RoundCent(taxAmt.Div(decimal.NewFromInt(2)))
		b.SGST = half
		b.CGST = taxAmt.Sub(half)
	}
	return b
}
