package game

import (
	"math"
	"time"

	"github.com/shopspring/decimal"
)

// DefaultMaxTickDelta bounds a single tick when the rules leave it unset.
const DefaultMaxTickDelta = time.Second

func (r *Rules) maxTickDelta() time.Duration {
	if r == nil || r.MaxTickDelta <= 0 {
		return DefaultMaxTickDelta
	}
	return r.MaxTickDelta
}

// Tick advances every active generator by delta and credits completed cycles.
// Longer gaps are clamped; offline time is handled by idle accrual instead.
func Tick(s *GameState, delta time.Duration) {
	delta = min(max(delta, 0), s.Rules.maxTickDelta())
	deltaMs := float64(delta) / float64(time.Millisecond)

	for i := range s.Generators {
		g := &s.Generators[i]
		if !g.Active() {
			continue
		}
		g.FillProgress += deltaMs / g.FillMillis()
		if g.FillProgress < 1 {
			continue
		}
		cycles := math.Floor(g.FillProgress)
		g.FillProgress -= cycles

		earned := Production(g, s.Rules.Milestones).Mul(decimal.NewFromFloat(cycles))
		s.Currency = s.Currency.Add(earned)
		s.Stats.LifetimeEarnings = s.Stats.LifetimeEarnings.Add(earned)
	}

	s.Stats.IncomePerSecond = IncomePerSecond(s)
}

// IncomePerSecond is the steady-state production rate of all active generators.
func IncomePerSecond(s *GameState) decimal.Decimal {
	total := decimal.Zero
	for i := range s.Generators {
		g := &s.Generators[i]
		if !g.Active() {
			continue
		}
		perCycle := Production(g, s.Rules.Milestones)
		total = total.Add(perCycle.Mul(ratio(1000 / g.FillMillis())))
	}
	return total
}

// Advance runs one frame of the game loop: tick, idle accrual and the
// session bookkeeping that rides along with it.
func Advance(s *GameState, delta time.Duration, now time.Time) {
	delta = min(max(delta, 0), s.Rules.maxTickDelta())
	Tick(s, delta)
	AccrueIdle(s, now)
	s.Stats.TimePlayed += delta
	s.Timestamps.LastTick = now
}
