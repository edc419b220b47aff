package valueobject

import (
	"encoding/json"
	"math"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewMoney(t *testing.T) {
	m, err := NewMoney(decimal.NewFromInt(100), INR)
	require.NoError(t, err)
	assert.Equal(t, INR, m.Currency())
	assert.True(t, m.Amount().Equal(decimal.NewFromInt(100)))

	_, err = NewMoney(decimal.Zero, "")
	assert.Error(t, err)
}

func TestNewMoneyINRFromFloat_CoercesNaNAndInf(t *testing.T) {
	tests := []struct {
		name  string
		input float64
		want  string
	}{
		{"nan", math.NaN(), "0"},
		{"positive inf", math.Inf(1), "0"},
		{"negative inf", math.Inf(-1), "0"},
		{"normal", 1250.50, "1250.5"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := NewMoneyINRFromFloat(tt.input)
			assert.Equal(t, tt.want, m.Amount().String())
		})
	}
}

func TestMoney_Arithmetic(t *testing.T) {
	a := NewMoneyINRFromFloat(100.50)
	b := NewMoneyINRFromFloat(49.50)

	sum, err := a.Add(b)
	require.NoError(t, err)
	assert.Equal(t, "150", sum.Amount().String())

	diff, err := a.Sub(b)
	require.NoError(t, err)
	assert.Equal(t, "51", diff.Amount().String())

	product := a.Mul(decimal.NewFromInt(2))
	assert.Equal(t, "201", product.Amount().String())
}

func TestMoney_CurrencyMismatch(t *testing.T) {
	a := NewMoneyINRFromFloat(10)
	b, err := NewMoney(decimal.NewFromInt(10), USD)
	require.NoError(t, err)

	_, err = a.Add(b)
	assert.Error(t, err)

	_, err = a.Sub(b)
	assert.Error(t, err)
}

func TestMoney_RoundCent(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"33.333333", "33.33"},
		{"33.335", "33.34"}, // half rounds up
		{"33.334999", "33.33"},
		{"0.005", "0.01"},
		{"100", "100"},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			m, err := NewMoneyINRFromString(tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.want, m.RoundCent().Amount().String())
		})
	}
}

func TestMoney_Comparisons(t *testing.T) {
	a := NewMoneyINRFromFloat(10)
	b := NewMoneyINRFromFloat(20)

	assert.True(t, b.GreaterThan(a))
	assert.True(t, a.LessThan(b))
	assert.False(t, a.IsZero())
	assert.True(t, ZeroINR().IsZero())
	assert.True(t, a.IsPositive())
	assert.True(t, NewMoneyINRFromFloat(-5).IsNegative())
	assert.True(t, a.Equals(NewMoneyINRFromFloat(10)))
}

func TestMoney_JSONRoundTrip(t *testing.T) {
	m := NewMoneyINRFromFloat(1234.56)

	data, err := json.Marshal(m)
	require.NoError(t, err)

	var decoded Money
	require.NoError(t, json.Unmarshal(data, &decoded))
	assert.True(t, m.Equals(decoded))
}

func TestMoney_JSONDefaultsCurrency(t *testing.T) {
	var decoded Money
	require.NoError(t, json.Unmarshal([]byte(`{"amount":"42.5"}`), &decoded))
	assert.Equal(t, DefaultCurrency, decoded.Currency())
	assert.Equal(t, "42.5", decoded.Amount().String())
}

func TestRoundCent(t *testing.T) {
	assert.Equal(t, "33.33", RoundCent(decimal.RequireFromString("33.333")).String())
	assert.Equal(t, "33.34", RoundCent(decimal.RequireFromString("33.335")).String())
}
