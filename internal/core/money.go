// Package core provides the ledger domain types, amount handling and budget math.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// ParseAmount parses a non-negative decimal amount such as "12.50" or " 7 ".
//
// Surrounding whitespace is ignored. Zero is a valid amount. Negative values,
// exponent notation, empty strings and anything decimal.NewFromString
// rejects return ErrInvalidAmount.
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" || strings.ContainsAny(s, "eE") {
		return decimal.Zero, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if d.IsNegative() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// FormatDollars renders an amount as "$12.34".
func FormatDollars(d decimal.Decimal) string {
	return "$" + d.StringFixed(2)
}
