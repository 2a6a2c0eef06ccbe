package game

import (
	"math/rand/v2"
	"time"

	"github.com/shopspring/decimal"
)

type BonusType string

const (
	BonusEarn  BonusType = "earn"
	BonusSpeed BonusType = "speed"
	BonusCost  BonusType = "cost"
)

var BonusTypes = []BonusType{BonusEarn, BonusSpeed, BonusCost}

func (b BonusType) Valid() bool {
	return b == BonusEarn || b == BonusSpeed || b == BonusCost
}

func (b BonusType) Label() string {
	switch b {
	case BonusEarn:
		return "Earn"
	case BonusSpeed:
		return "Speed"
	case BonusCost:
		return "Cost Reduction"
	}
	return string(b)
}

// Choice is a player-picked prestige target, required while selectables remain.
type Choice struct {
	GeneratorID int
	Bonus       BonusType
}

// Award describes an applied prestige.
type Award struct {
	GeneratorID int
	Generator   string
	Bonus       BonusType
	Magnitude   decimal.Decimal
	Value       decimal.Decimal
	Selectable  bool
}

// PrestigeValue is the number of prestige points the current run is worth.
func PrestigeValue(s *GameState) decimal.Decimal {
	base := s.Stats.LifetimeEarnings.Div(s.Rules.PrestigeDivisor).Floor()
	scaled := base.Mul(ratio(s.Prestige.CurrentIdleMultiplier))

	pow := s.Global.Pow
	if pow > 1.0 {
		if scaled.Sign() <= 0 {
			return decimal.Zero
		}
		bonus := ratio((pow - 1) * 20)
		return powFloat(scaled, pow).Add(bonus).Floor()
	}
	return scaled.Floor()
}

// BonusMagnitude is the multiplicative buff granted for a prestige value.
func BonusMagnitude(value decimal.Decimal) decimal.Decimal {
	return one.Add(value.Div(hundred))
}

// ApplyPrestige converts the run into a permanent buff and resets progress.
// While selectables remain the caller's choice is required; otherwise the
// target and bonus are drawn from rng and choice is ignored. Rejected calls
// change nothing and report false.
func ApplyPrestige(s *GameState, choice *Choice, rng *rand.Rand, now time.Time) (Award, bool) {
	value := PrestigeValue(s)
	if value.Sign() <= 0 {
		return Award{}, false
	}

	selectable := s.Prestige.SelectablesRemaining > 0
	var (
		target *Generator
		bonus  BonusType
	)
	if selectable {
		if choice == nil || !choice.Bonus.Valid() {
			return Award{}, false
		}
		target = s.Generator(choice.GeneratorID)
		if target == nil {
			return Award{}, false
		}
		if !target.Unlocked && !s.Rules.LockedTargets {
			return Award{}, false
		}
		bonus = choice.Bonus
	} else {
		var candidates []int
		for i := range s.Generators {
			if s.Generators[i].Unlocked {
				candidates = append(candidates, i)
			}
		}
		if len(candidates) == 0 {
			return Award{}, false
		}
		target = &s.Generators[candidates[rng.IntN(len(candidates))]]
		bonus = drawBonus(rng.Float64(), s.Rules)
	}

	magnitude := BonusMagnitude(value)
	switch bonus {
	case BonusEarn:
		target.EarnBonus = target.EarnBonus.Mul(magnitude)
	case BonusSpeed:
		target.SpeedBonus *= magnitude.InexactFloat64()
	case BonusCost:
		target.CostReduction *= magnitude.InexactFloat64()
	}

	award := Award{
		GeneratorID: target.ID,
		Generator:   target.Name,
		Bonus:       bonus,
		Magnitude:   magnitude,
		Value:       value,
		Selectable:  selectable,
	}
	recordHistory(s, HistoryEntry{
		Generator: target.Name,
		Bonus:     bonus.Label(),
		Amount:    magnitude.StringFixed(2) + "×",
		Timestamp: now,
	})
	resetRun(s, now)
	if selectable {
		s.Prestige.SelectablesRemaining--
	}
	return award, true
}

func drawBonus(roll float64, r *Rules) BonusType {
	w := r.Weights
	total := w.Earn + w.Speed + w.Cost
	if total <= 0 {
		return BonusEarn
	}
	roll *= total
	switch {
	case roll < w.Earn:
		return BonusEarn
	case roll < w.Earn+w.Speed:
		return BonusSpeed
	}
	return BonusCost
}

func recordHistory(s *GameState, entry HistoryEntry) {
	limit := s.Rules.HistoryLimit
	if limit <= 0 {
		limit = 10
	}
	history := append([]HistoryEntry{entry}, s.Prestige.History...)
	if len(history) > limit {
		history = history[:limit]
	}
	s.Prestige.History = history
}

// resetRun clears run-scoped progress. Buffs survive.
func resetRun(s *GameState, now time.Time) {
	s.Currency = s.Rules.StartingCurrency
	for i := range s.Generators {
		g := &s.Generators[i]
		g.Level = 0
		g.FillProgress = 0
		if !s.Rules.KeepUnlocks {
			g.Unlocked = i == 0 || g.UnlockedAtStart
		}
	}
	s.Stats.LifetimeEarnings = decimal.Zero
	s.Stats.IncomePerSecond = decimal.Zero
	s.Prestige.TotalPrestiges++
	s.Prestige.CurrentIdleMultiplier = 1
	s.Timestamps.LastPrestige = now
}
