// Package decimal holds amount helpers for FatturaPA values. Amounts are
// written with a dot separator and up to eight decimals; euro totals round
// to cents.
package decimal

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Zero is decimal zero
var Zero = decimal.Zero

var hundred = decimal.NewFromInt(100)

// Parse reads a FatturaPA amount such as "1234.50"
func Parse(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Zero, fmt.Errorf("empty amount")
	}
	if strings.Contains(s, ",") {
		return Zero, fmt.Errorf("amount %q must use a dot decimal separator", s)
	}
	return decimal.NewFromString(s)
}

// MustParse parses an amount, panics on error
func MustParse(s string) decimal.Decimal {
	d, err := Parse(s)
	if err != nil {
		panic(err)
	}
	return d
}

// RoundEUR rounds to cents
func RoundEUR(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// FormatEUR renders d with exactly two decimals, as FatturaPA totals are written
func FormatEUR(d decimal.Decimal) string {
	return d.StringFixed(2)
}

// CalculateVAT computes imposta from imponibile and an aliquota in percent
// (e.g. 22.00), rounded to cents
func CalculateVAT(taxable, ratePercent decimal.Decimal) decimal.Decimal {
	if ratePercent.IsZero() {
		return Zero
	}
	return taxable.Mul(ratePercent).Div(hundred).Round(2)
}

// Sum sums a slice of decimals
func Sum(values []decimal.Decimal) decimal.Decimal {
	result := Zero
	for _, v := range values {
		result = result.Add(v)
	}
	return result
}

// IsPositive returns true if decimal is greater than zero
func IsPositive(d decimal.Decimal) bool {
	return d.GreaterThan(Zero)
}

// IsNonNegative returns true if decimal is >= zero
func IsNonNegative(d decimal.Decimal) bool {
	return d.GreaterThanOrEqual(Zero)
}
