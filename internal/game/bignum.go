package game

import (
	"math"
	"strconv"
	"strings"

	"github.com/shopspring/decimal"
)

// powScale bounds the fractional digits kept while raising growth rates to
// integer powers. Growth rates are > 1, so every intermediate is >= 1 and the
// rounding stays far below the precision a cost is displayed with.
const powScale = 24

var (
	one     = decimal.NewFromInt(1)
	hundred = decimal.NewFromInt(100)
)

// powInt returns base^n for n >= 0 by repeated squaring.
func powInt(base decimal.Decimal, n int) decimal.Decimal {
	result := one
	for n > 0 {
		if n&1 == 1 {
			result = result.Mul(base).Round(powScale)
		}
		n >>= 1
		if n > 0 {
			base = base.Mul(base).Round(powScale)
		}
	}
	return result
}

// log10 returns the base-10 logarithm of a positive decimal of any magnitude.
func log10(d decimal.Decimal) float64 {
	if d.Sign() <= 0 {
		return math.Inf(-1)
	}
	digits, exp := trimmedCoefficient(d)
	if digits == "1" {
		return float64(exp)
	}
	lead := len(digits)
	if lead > 17 {
		lead = 17
	}
	mantissa, err := strconv.ParseFloat(digits[:lead], 64)
	if err != nil {
		return math.NaN()
	}
	return math.Log10(mantissa) + float64(len(digits)-lead) + float64(exp)
}

// trimmedCoefficient returns |d| as digits × 10^exp with no trailing zeros.
func trimmedCoefficient(d decimal.Decimal) (string, int) {
	digits := strings.TrimPrefix(d.Coefficient().String(), "-")
	exp := int(d.Exponent())
	for len(digits) > 1 && digits[len(digits)-1] == '0' {
		digits = digits[:len(digits)-1]
		exp++
	}
	return digits, exp
}

// magnitude is floor(log10(|d|)) computed exactly from the digits.
func magnitude(d decimal.Decimal) int {
	digits, exp := trimmedCoefficient(d)
	return len(digits) - 1 + exp
}

// fromLog10 is the inverse of log10, keeping 15 significant digits.
func fromLog10(l float64) decimal.Decimal {
	if math.IsInf(l, -1) {
		return decimal.Zero
	}
	exp := math.Floor(l)
	mantissa := decimal.NewFromFloat(math.Pow(10, l-exp)).Round(14)
	return mantissa.Shift(int32(exp))
}

// powFloat raises a positive decimal to a real exponent.
func powFloat(d decimal.Decimal, p float64) decimal.Decimal {
	if d.Sign() <= 0 {
		return decimal.Zero
	}
	return fromLog10(log10(d) * p)
}

func ratio(f float64) decimal.Decimal {
	return decimal.NewFromFloat(f)
}
