// Package types provides common type aliases and utilities.
package types

import (
	"github.com/shopspring/decimal"
)

// Money represents a monetary value with full precision.
// Uses decimal.Decimal to avoid floating-point errors in tax and balance
// arithmetic.
type Money = decimal.Decimal

// NewMoneyFromInt creates a Money value from an integer count. Exact for
// any int64, unlike the float constructor.
func NewMoneyFromInt(n int64) Money {
	return decimal.NewFromInt(n)
}

// NewMoneyFromString creates a Money value from a string.
// This is the preferred method for monetary values.
func NewMoneyFromString(s string) (Money, error) {
	return decimal.NewFromString(s)
}

// MustMoney creates a Money value from a string, panics on error.
// Use only for constants.
func MustMoney(s string) Money {
	d, err := decimal.NewFromString(s)
	if err != nil {
		panic(err)
	}
	return d
}

// Zero returns zero Money value.
func Zero() Money {
	return decimal.Zero
}

// RoundMoney rounds to 2 decimal places, the precision of all persisted
// amounts.
func RoundMoney(m Money) Money {
	return m.Round(2)
}

// Quantity is a count of whole inventory units (towels, minibar items,
// fixed assets). Consumables are tracked per piece, so no fractional scale
// is needed.
type Quantity int64

func (q Quantity) IsZero() bool     { return q == 0 }
func (q Quantity) IsPositive() bool { return q > 0 }
func (q Quantity) IsNegative() bool { return q < 0 }

func (q Quantity) Int64() int64 { return int64(q) }

// Sub returns q - other, floored at zero.
// Used for "consumed = assigned - returned" style arithmetic where negative
// results are meaningless.
func (q Quantity) Sub(other Quantity) Quantity {
	if d := q - other; d > 0 {
		return d
	}
	return 0
}
