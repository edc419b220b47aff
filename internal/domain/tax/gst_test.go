package tax

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
)

func d(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func TestGSTCalculator_Exclusive(t *testing.T) {
	calc := NewGSTCalculator()

	b := calc.Compute(d("1000"), d("18"), false, JurisdictionIntraState)
	assert.Equal(t, "1000", b.Base.String())
	assert.Equal(t, "180", b.Tax.String())
	assert.Equal(t, "1180", b.Total.String())
	assert.Equal(t, "90", b.CGST.String())
	assert.Equal(t, "90", b.SGST.String())
	assert.True(t, b.IGST.IsZero())
}

func TestGSTCalculator_Inclusive(t *testing.T) {
	calc := NewGSTCalculator()

	b := calc.Compute(d("1180"), d("18"), true, JurisdictionIntraState)
	assert.Equal(t, "1000", b.Base.String())
	assert.Equal(t, "180", b.Tax.String())
	assert.Equal(t, "1180", b.Total.String())
}

func TestGSTCalculator_InclusiveRounding(t *testing.T) {
	calc := NewGSTCalculator()

	// 100 / 1.18 = 84.7457... -> 84.75 base, tax is the difference
	b := calc.Compute(d("100"), d("18"), true, JurisdictionInterState)
	assert.Equal(t, "84.75", b.Base.String())
	assert.Equal(t, "15.25", b.Tax.String())
	assert.Equal(t, "100", b.Total.String())
	assert.Equal(t, "15.25", b.IGST.String())
}

func TestGSTCalculator_ZeroSlab(t *testing.T) {
	calc := NewGSTCalculator()

	b := calc.Compute(d("500"), decimal.Zero, false, JurisdictionIntraState)
	assert.Equal(t, "500", b.Base.String())
	assert.True(t, b.Tax.IsZero())
	assert.Equal(t, "500", b.Total.String())
}

func TestGSTCalculator_OddCentSplit(t *testing.T) {
	calc := NewGSTCalculator()

	// 5% of 10.30 = 0.515 -> 0.52 tax; split 0.26 SGST rounds to 0.26, CGST gets 0.26
	b := calc.Compute(d("10.30"), d("5"), false, JurisdictionIntraState)
	assert.Equal(t, b.Tax.String(), b.CGST.Add(b.SGST).String())
}

func TestJurisdiction_IsValid(t *testing.T) {
	assert.True(t, JurisdictionIntraState.IsValid())
	assert.True(t, JurisdictionInterState.IsValid())
	assert.False(t, Jurisdiction("OFFSHORE").IsValid())
}
