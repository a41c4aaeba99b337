// Package core provides money parsing and handling utilities.
//
// Amounts are carried as decimal.Decimal so that quantity × rate products
// and document totals never pick up binary floating-point drift.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a user-entered numeric string to a decimal.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators, an
// optional leading sign and an optional leading currency symbol. When both
// separators appear the comma is treated as a thousands separator. Without
// a dot, commas that split the digits into groups of three are thousands
// separators too, unless the leading group is 0.
//
// Examples:
//
//	ParseAmount("12.50")      -> 12.5, nil
//	ParseAmount("12,50")      -> 12.5, nil
//	ParseAmount("$1,250")     -> 1250, nil
//	ParseAmount("1,250,000")  -> 1250000, nil
//	ParseAmount("0,125")      -> 0.125, nil
//	ParseAmount("$1,250.5")   -> 1250.5, nil
//	ParseAmount("-3")         -> -3, nil
//	ParseAmount("abc")        -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	s = strings.TrimLeft(s, "$€£")
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}

	sign := ""
	if s[0] == '+' || s[0] == '-' {
		if s[0] == '-' {
			sign = "-"
		}
		s = s[1:]
	}

	if strings.Contains(s, ",") && (strings.Contains(s, ".") || thousandsGrouped(s)) {
		s = strings.ReplaceAll(s, ",", "")
	} else {
		s = strings.ReplaceAll(s, ",", ".")
	}

	parts := strings.Split(s, ".")
	if len(parts) > 2 {
		return decimal.Zero, ErrInvalidAmount
	}
	intPart := parts[0]
	fracPart := ""
	if len(parts) == 2 {
		fracPart = parts[1]
	}
	if intPart == "" && fracPart == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	if intPart == "" {
		intPart = "0"
	}
	for _, r := range intPart + fracPart {
		if !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}

	normalized := sign + intPart
	if fracPart != "" {
		normalized += "." + fracPart
	}
	d, err := decimal.NewFromString(normalized)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// thousandsGrouped reports whether s reads as 1,234 or 12,345,678: a leading
// group of one to three digits not starting with 0, then groups of exactly
// three.
func thousandsGrouped(s string) bool {
	groups := strings.Split(s, ",")
	if len(groups) < 2 {
		return false
	}
	first := groups[0]
	if len(first) == 0 || len(first) > 3 || first[0] == '0' {
		return false
	}
	for _, g := range groups[1:] {
		if len(g) != 3 {
			return false
		}
	}
	return true
}

// ParseLenient is ParseAmount with a zero fallback, used for quantity and
// rate cells where unparsable input counts as 0.
func ParseLenient(s string) decimal.Decimal {
	d, err := ParseAmount(s)
	if err != nil {
		return decimal.Zero
	}
	return d
}

// FormatCurrency renders d with two fixed decimals prefixed by symbol.
// Negative values render as "-$5.00".
func FormatCurrency(symbol string, d decimal.Decimal) string {
	rounded := d.Round(2)
	if rounded.Sign() < 0 {
		return "-" + symbol + rounded.Neg().StringFixed(2)
	}
	return symbol + rounded.StringFixed(2)
}

// ToCents converts a decimal amount to integer cents with half-up rounding.
func ToCents(d decimal.Decimal) int64 {
	return d.Shift(2).Round(0).IntPart()
}

// FromCents converts integer cents back into a decimal amount.
func FromCents(cents int64) decimal.Decimal {
	return decimal.New(cents, -2)
}
