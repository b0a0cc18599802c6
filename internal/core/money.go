// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts typed into
// forms and query strings, and for rendering them back for display.
package core

import (
	"strings"
	"unicode"

	"github.com/shopspring/decimal"
)

// ParseAmount converts a decimal string into an amount rounded to cents.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators and rounds
// half-up on the third decimal place. Only strictly positive values are
// accepted.
//
// Examples:
//
//	ParseAmount("12.34")  -> 12.34, nil
//	ParseAmount("12,34")  -> 12.34, nil
//	ParseAmount("12.345") -> 12.35, nil
//	ParseAmount("-1")     -> 0, ErrInvalidAmount
func ParseAmount(s string) (decimal.Decimal, error) {
	d, err := parseCents(s)
	if err != nil || !d.IsPositive() {
		return decimal.Zero, ErrInvalidAmount
	}
	return d, nil
}

// ParseAmountBound parses a filter bound the way ParseAmount does but also
// accepts zero, so "0" works as an inclusive lower bound.
func ParseAmountBound(s string) (decimal.Decimal, error) {
	return parseCents(s)
}

func parseCents(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.Count(s, ".") > 1 {
		return decimal.Zero, ErrInvalidAmount
	}
	for _, r := range s {
		if r != '.' && !unicode.IsDigit(r) {
			return decimal.Zero, ErrInvalidAmount
		}
	}
	if strings.HasPrefix(s, ".") {
		s = "0" + s
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return decimal.Zero, ErrInvalidAmount
	}
	return d.Round(2), nil
}

// FormatAmount renders an amount with two decimals followed by the currency
// code, e.g. "1250.00 USD".
func FormatAmount(d decimal.Decimal, currency string) string {
	if currency == "" {
		return d.StringFixed(2)
	}
	return d.StringFixed(2) + " " + currency
}
