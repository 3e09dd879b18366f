// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user input
// and rendering them for display. Amounts are decimal.Decimal throughout so
// sums never accumulate floating-point error.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

var million = decimal.NewFromInt(1_000_000)

// ParseAmount converts a decimal string to an amount.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs,
// exponents and anything that is not a plain positive decimal are rejected,
// and so is zero.
//
// Examples:
//
//	ParseAmount("12.34") -> 12.34, nil
//	ParseAmount("12,34") -> 12.34, nil
//	ParseAmount("-1")    -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, p := range parts {
		for _, r := range p {
			if !unicode.IsDigit(r) {
				return decimal.Zero, ErrInvalidAmount
			}
		}
	}
	if parts[0] == "" {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	if err := ValidateAmount(d); err != nil {
		return decimal.Zero, err
	}
	return d, nil
}

// ParseBudget is ParseAmount for budgets: zero is allowed.
func ParseBudget(s string) (decimal.Decimal, error) {
	if d, err := ParseAmount(s); err == nil {
		return d, nil
	}
	s = strings.ReplaceAll(strings.TrimSpace(s), ",", ".")
	if strings.ContainsAny(s, "+-eE") {
		return decimal.Zero, ErrInvalidBudget
	}
	if z, err := decimal.NewFromString(s); err == nil && z.IsZero() {
		return decimal.Zero, nil
	}
	return decimal.Zero, ErrInvalidBudget
}

// FormatAmount renders an amount for display: grouped thousands with at most
// three fraction digits, or a two-digit "M" form from one million upwards.
func FormatAmount(a decimal.Decimal) string {
	if a.GreaterThanOrEqual(million) {
		s := a.Div(million).StringFixed(2)
		return strings.TrimSuffix(s, ".00") + "M"
	}
	neg := a.IsNegative()
	s := a.Abs().Round(3).String()
	intPart, frac, _ := strings.Cut(s, ".")
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	for i, r := range intPart {
		if i > 0 && (len(intPart)-i)%3 == 0 {
			b.WriteByte(',')
		}
		b.WriteRune(r)
	}
	if frac != "" {
		b.WriteByte('.')
		b.WriteString(frac)
	}
	return b.String()
}

// Sum adds up the amounts of the given expenses.
func Sum(expenses []Expense) decimal.Decimal {
	total := decimal.Zero
	for _, e := range expenses {
		total = total.Add(e.Amount)
	}
	return total
}
