// Package core provides money parsing and handling utilities.
//
// This file contains functions for parsing monetary amounts from user text
// and rendering cents back to a decimal representation.
package core

import (
	"strings"

	"github.com/shopspring/decimal"
)

// maxAmount keeps amount*100 inside int64.
var maxAmount = decimal.New((1<<63-1)/100, 0)

var hundred = decimal.NewFromInt(100)

// ParseAmount converts a decimal string to cents with half-up rounding.
//
// It accepts both dot (12.34) and comma (12,34) decimal separators. Signs are
// not accepted here: the caller strips and interprets them. The result is
// always strictly positive.
//
// Examples:
//
//	ParseAmount("12.34")  -> 1234, nil
//	ParseAmount("12,34")  -> 1234, nil
//	ParseAmount("12.345") -> 1235, nil (rounds half up)
//	ParseAmount("0")      -> 0, ErrInvalidAmount
func ParseAmount(s string) (Money, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Money{}, ErrInvalidAmount
	}
	s = strings.ReplaceAll(s, ",", ".")
	if strings.HasPrefix(s, "+") || strings.HasPrefix(s, "-") {
		return Money{}, ErrInvalidAmount
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return Money{}, ErrInvalidAmount
	}
	if d.GreaterThan(maxAmount) {
		return Money{}, ErrInvalidAmount
	}
	cents := d.Mul(hundred).Round(0).IntPart()
	if cents <= 0 {
		return Money{}, ErrInvalidAmount
	}
	return Money{Cents: cents}, nil
}

// Decimal returns the amount in major units.
func (m Money) Decimal() decimal.Decimal {
	return decimal.New(m.Cents, -2)
}

// Float returns the amount as a float64 for chart data.
// Use cents for calculations.
func (m Money) Float() float64 {
	return m.Decimal().InexactFloat64()
}

// String renders the amount with two decimals, e.g. "1000.50".
func (m Money) String() string {
	return m.Decimal().StringFixed(2)
}
