package game

import (
	"math"

	"github.com/shopspring/decimal"
)

// Cost is the price of the unit bought at the given level.
func Cost(g *Generator, level int) decimal.Decimal {
	raw := g.BaseCost.Mul(powInt(ratio(g.GrowthRate), level))
	return reduce(raw, g.CostReduction)
}

// BulkCost is the price of amount consecutive units starting at owned.
func BulkCost(g *Generator, owned, amount int) decimal.Decimal {
	if amount <= 0 {
		return decimal.Zero
	}
	if amount == 1 {
		return Cost(g, owned)
	}
	r := ratio(g.GrowthRate)
	series := powInt(r, amount).Sub(one).Div(r.Sub(one))
	raw := g.BaseCost.Mul(powInt(r, owned)).Mul(series)
	return reduce(raw, g.CostReduction)
}

func reduce(raw decimal.Decimal, costReduction float64) decimal.Decimal {
	if costReduction == 1 {
		return raw
	}
	return raw.Div(ratio(costReduction))
}

// MaxAffordable is the largest n such that BulkCost(g, g.Level, n) <= currency.
func MaxAffordable(currency decimal.Decimal, g *Generator) int {
	if currency.LessThan(Cost(g, g.Level)) {
		return 0
	}

	r := g.GrowthRate
	x := currency.Mul(ratio(r - 1)).Mul(ratio(g.CostReduction)).
		Div(g.BaseCost.Mul(powInt(ratio(r), g.Level))).
		Add(one)
	n := int(math.Floor(log10(x) / math.Log10(r)))
	if n < 1 {
		n = 1
	}

	// The log inversion is only float-accurate; settle the exact boundary.
	for n > 1 && BulkCost(g, g.Level, n).GreaterThan(currency) {
		n--
	}
	for BulkCost(g, g.Level, n+1).LessThanOrEqual(currency) {
		n++
	}
	return n
}

// Production is the currency granted per completed fill cycle.
func Production(g *Generator, milestones Milestones) decimal.Decimal {
	if g.Level == 0 {
		return decimal.Zero
	}
	return g.BaseProduction.
		Mul(decimal.NewFromInt(int64(g.Level))).
		Mul(decimal.NewFromInt(milestones.Multiplier(g.Level))).
		Mul(g.EarnBonus)
}

// Unlock pays the unlock cost. It reports false and changes nothing when the
// generator is already unlocked or the cost cannot be paid.
func Unlock(s *GameState, g *Generator) bool {
	if g.Unlocked {
		return false
	}
	if s.Currency.LessThan(g.UnlockCost) {
		return false
	}
	s.Currency = s.Currency.Sub(g.UnlockCost)
	g.Unlocked = true
	return true
}

// ResolveAmount turns a buy mode into a concrete number of levels.
func ResolveAmount(s *GameState, g *Generator, mode BuyMode) int {
	switch mode {
	case BuyMax:
		return MaxAffordable(s.Currency, g)
	case BuyNext:
		next, ok := s.Rules.Milestones.Next(g.Level)
		if !ok {
			return 1
		}
		return next - g.Level
	case BuyOne, BuyTen:
		return int(mode)
	}
	return 0
}

// Buy purchases amount levels, where amount may be BuyMax or BuyNext.
// Either the whole purchase applies or nothing does.
func Buy(s *GameState, g *Generator, amount int) bool {
	if !g.Unlocked {
		return false
	}
	n := amount
	if amount < 0 {
		n = ResolveAmount(s, g, BuyMode(amount))
	}
	if n <= 0 {
		return false
	}
	cost := BulkCost(g, g.Level, n)
	if s.Currency.LessThan(cost) {
		return false
	}
	s.Currency = s.Currency.Sub(cost)
	g.Level += n
	return true
}
