package billing

import (
	"stayledger/internal/core/types"
)

// Policy holds the bracket table applied to room and package charges plus
// the flat rate for food and consumables. Single jurisdiction; rates are
// decimal fractions (0.05 = 5%).
//
// Bracket selection for room/package:
//
//	amount <  BracketLower             -> RateLow
//	BracketLower <= amount <= BracketUpper -> RateMid
//	amount >  BracketUpper             -> RateHigh
//
// Service, inventory usage and asset damage are pass-through (0%).
type Policy struct {
	BracketLower types.Money
	BracketUpper types.Money
	RateLow      types.Money
	RateMid      types.Money
	RateHigh     types.Money
	RateFlatFood types.Money
}

// DefaultPolicy returns the standard GST bracket table.
func DefaultPolicy() Policy {
	return Policy{
		BracketLower: types.MustMoney("5000"),
		BracketUpper: types.MustMoney("7500"),
		RateLow:      types.MustMoney("0.05"),
		RateMid:      types.MustMoney("0.12"),
		RateHigh:     types.MustMoney("0.18"),
		RateFlatFood: types.MustMoney("0.05"),
	}
}

// RateFor returns the tax rate for a category and base amount.
func (p Policy) RateFor(category Category, base types.Money) types.Money {
	switch category {
	case CategoryRoom, CategoryPackage:
		switch {
		case base.LessThan(p.BracketLower):
			return p.RateLow
		case base.LessThanOrEqual(p.BracketUpper):
			return p.RateMid
		default:
			return p.RateHigh
		}
	case CategoryFood, CategoryConsumable:
		return p.RateFlatFood
	default:
		return types.Zero()
	}
}

// TaxFor computes the tax amount for a category's base, rounded to 2 decimal
// places, together with the rate that was applied.
func (p Policy) TaxFor(category Category, base types.Money) (tax, rate types.Money) {
	rate = p.RateFor(category, base)
	if rate.IsZero() || !base.IsPositive() {
		return types.Zero(), rate
	}
	return types.RoundMoney(base.Mul(rate)), rate
}
