package currency

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseCurrency(t *testing.T) {
	c, err := ParseCurrency("EUR")
	require.NoError(t, err)
	assert.Equal(t, CurrencyEUR, c)

	_, err = ParseCurrency("euro")
	assert.ErrorIs(t, err, ErrInvalidCurrency)

	_, err = ParseCurrency("e1r")
	assert.ErrorIs(t, err, ErrInvalidCurrency)
}

func TestFormatMinor(t *testing.T) {
	tests := []struct {
		currency Currency
		amount   int64
		want     string
	}{
		{CurrencyEUR, 1990, "19,90 €"},
		{CurrencyEUR, 5, "0,05 €"},
		{CurrencyEUR, 123450, "1 234,50 €"},
		{CurrencyUSD, 100, "1,00 $"},
		{Currency("chf"), 2500, "25,00 CHF"},
		{CurrencyEUR, -250, "-2,50 €"},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.currency.FormatMinor(tt.amount))
	}
}
