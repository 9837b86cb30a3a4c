// Package core holds the domain types shared by every layer.
//
// Amounts are decimal.Decimal values and are stored exactly as received.
// Display code rounds to CurrencyScale.
package core

import (
	"math"
	"strings"

	"github.com/shopspring/decimal"
)

// CurrencyScale is the number of fractional digits kept on amounts.
const CurrencyScale = 2

// AmountFromFloat validates a model- or client-supplied amount and converts
// it to the shortest decimal that round-trips to f.
//
// NaN, ±Inf, zero and negative values are rejected with ErrInvalidAmount.
func AmountFromFloat(f float64) (decimal.Decimal, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f <= 0 {
		return decimal.Zero, ErrInvalidAmount
	}
	return decimal.NewFromFloat(f), nil
}

// ParseStoredAmount reads an amount persisted as text. Stored values were
// validated on the way in, so only the syntax is checked.
func ParseStoredAmount(s string) (decimal.Decimal, error) {
	return decimal.NewFromString(strings.TrimSpace(s))
}
