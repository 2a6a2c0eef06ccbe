package game

import "github.com/shopspring/decimal"

var numberUnits = []string{"", "K", "M", "B", "T", "Qa", "Qi", "Sx", "Sp", "Oc"}

// FormatNumber renders a value with a short-scale suffix, e.g. 1.50M.
// Values past the last suffix use exponent notation, e.g. 1.23e33.
func FormatNumber(d decimal.Decimal) string {
	if d.IsZero() {
		return "0"
	}
	if d.Abs().LessThan(decimal.NewFromInt(1000)) {
		return d.StringFixed(0)
	}
	exp := magnitude(d)
	tier := exp / 3
	if tier >= len(numberUnits) {
		return d.Shift(int32(-exp)).StringFixed(2) + "e" + decimal.NewFromInt(int64(exp)).String()
	}
	return d.Shift(int32(-3*tier)).StringFixed(2) + numberUnits[tier]
}
