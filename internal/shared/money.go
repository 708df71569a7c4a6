package shared

import "github.com/shopspring/decimal"

// Tolerance absorbs rounding when comparing monetary amounts.
var Tolerance = decimal.New(1, -2)

// RoundMoney rounds to cents.
func RoundMoney(d decimal.Decimal) decimal.Decimal {
	return d.Round(2)
}

// RoundCost rounds unit costs to four decimals.
func RoundCost(d decimal.Decimal) decimal.Decimal {
	return d.Round(4)
}

// IsSettled reports whether an outstanding balance counts as paid.
func IsSettled(balance decimal.Decimal) bool {
	return balance.LessThanOrEqual(Tolerance)
}

// WithinTolerance reports |a-b| <= 0.01.
func WithinTolerance(a, b decimal.Decimal) bool {
	return a.Sub(b).Abs().LessThanOrEqual(Tolerance)
}

// ClampMoney bounds value to [lo, hi].
func ClampMoney(value, lo, hi decimal.Decimal) decimal.Decimal {
	if value.LessThan(lo) {
		return lo
	}
	if value.GreaterThan(hi) {
		return hi
	}
	return value
}

// WeightedAverageCost blends existing stock at currentCost with an inbound lot.
func WeightedAverageCost(stock int, currentCost decimal.Decimal, qty int, unitCost decimal.Decimal) decimal.Decimal {
	total := stock + qty
	if total <= 0 || stock <= 0 {
		return RoundCost(unitCost)
	}
	value := decimal.NewFromInt(int64(stock)).Mul(currentCost).Add(decimal.NewFromInt(int64(qty)).Mul(unitCost))
	return RoundCost(value.Div(decimal.NewFromInt(int64(total))))
}
