package currency

import (
	"errors"
	"strconv"
	"strings"
)

// Currency is a lowercase ISO 4217 code as Stripe reports it.
type Currency string

const (
	CurrencyEUR Currency = "eur"
	CurrencyUSD Currency = "usd"
	CurrencyGBP Currency = "gbp"
)

// Default is used when a completed session carries no currency.
const Default = CurrencyEUR

var ErrInvalidCurrency = errors.New("invalid currency")

var symbols = map[Currency]string{
	CurrencyEUR: "€",
	CurrencyUSD: "$",
	CurrencyGBP: "£",
}

func (c Currency) String() string {
	return string(c)
}

// ParseCurrency accepts any three-letter code, case-insensitively.
func ParseCurrency(s string) (Currency, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if len(s) != 3 {
		return "", ErrInvalidCurrency
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return "", ErrInvalidCurrency
		}
	}

	return Currency(s), nil
}

// FormatMinor renders an amount in minor units for display, French style: "1 234,50 €".
func (c Currency) FormatMinor(amount int64) string {
	neg := amount < 0
	if neg {
		amount = -amount
	}

	units := strconv.FormatInt(amount/100, 10)
	cents := amount % 100

	var grouped strings.Builder
	for i, r := range units {
		if i > 0 && (len(units)-i)%3 == 0 {
			grouped.WriteByte(' ')
		}
		grouped.WriteRune(r)
	}

	out := grouped.String() + "," + twoDigits(cents)
	if neg {
		out = "-" + out
	}

	symbol, ok := symbols[c]
	if !ok {
		symbol = strings.ToUpper(c.String())
	}

	return out + " " + symbol
}

func twoDigits(n int64) string {
	if n < 10 {
		return "0" + strconv.FormatInt(n, 10)
	}

	return strconv.FormatInt(n, 10)
}
