package decimalx

import "github.com/shopspring/decimal"

var hundred = decimal.NewFromInt(100)

// PercentChange returns (latest - prev) / prev * 100.
// ok is false when prev is zero and the change is undefined.
func PercentChange(prev, latest decimal.Decimal) (change decimal.Decimal, ok bool) {
	if prev.IsZero() {
		return decimal.Zero, false
	}
	return latest.Sub(prev).Div(prev).Mul(hundred), true
}

// ReachesThreshold reports whether |change| >= threshold.
func ReachesThreshold(change, threshold decimal.Decimal) bool {
	return change.Abs().GreaterThanOrEqual(threshold)
}
