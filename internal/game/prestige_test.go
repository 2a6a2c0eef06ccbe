package game

import (
	"math"
	"math/rand/v2"
	"testing"
	"time"
)

func newRand() *rand.Rand {
	return rand.New(rand.NewPCG(7, 11))
}

func TestPrestigeValue(t *testing.T) {
	tests := []struct {
		name     string
		lifetime string
		idle     float64
		pow      float64
		want     string
	}{
		{"base", "100000000", 1, 1, "10"},
		{"idle multiplier", "100000000", 1.55, 1, "15"},
		{"below divisor", "9999999", 3, 1, "0"},
		{"floors earnings first", "19999999", 1, 1, "1"},
		{"pow", "100000000", 1, 2, "120"},
		{"pow with nothing earned", "5", 1, 1.5, "0"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			s := newTestState(t)
			s.Stats.LifetimeEarnings = dec(tt.lifetime)
			s.Prestige.CurrentIdleMultiplier = tt.idle
			s.Global.Pow = tt.pow
			if got := PrestigeValue(s); !got.Equal(dec(tt.want)) {
				t.Fatalf("expected %s, got %s", tt.want, got)
			}
		})
	}
}

func TestApplyPrestigeRefusesWithoutValue(t *testing.T) {
	s := newTestState(t)
	s.Generator(1).Level = 12
	s.Stats.LifetimeEarnings = dec("9999")

	if _, ok := ApplyPrestige(s, nil, newRand(), testNow); ok {
		t.Fatal("expected prestige to be refused")
	}
	if s.Generator(1).Level != 12 || s.Prestige.TotalPrestiges != 0 {
		t.Fatal("state changed on refused prestige")
	}
}

func TestApplyRandomPrestige(t *testing.T) {
	s := newTestState(t)
	red := s.Generator(1)
	red.Level = 40
	red.FillProgress = 0.5
	s.Currency = dec("123456")
	s.Stats.LifetimeEarnings = dec("100000000")
	s.Prestige.CurrentIdleMultiplier = 1.8
	now := testNow.Add(3 * time.Hour)

	award, ok := ApplyPrestige(s, nil, newRand(), now)
	if !ok {
		t.Fatal("expected prestige to apply")
	}
	if award.GeneratorID != 1 {
		t.Fatalf("expected the only unlocked generator to be chosen, got %d", award.GeneratorID)
	}
	if !award.Value.Equal(dec("18")) || !award.Magnitude.Equal(dec("1.18")) {
		t.Fatalf("unexpected award %+v", award)
	}

	buffed := 0
	if red.EarnBonus.Equal(dec("1.18")) {
		buffed++
	}
	if red.SpeedBonus == 1.18 {
		buffed++
	}
	if red.CostReduction == 1.18 {
		buffed++
	}
	if buffed != 1 {
		t.Fatalf("expected exactly one buff applied, got earn=%s speed=%f cost=%f", red.EarnBonus, red.SpeedBonus, red.CostReduction)
	}

	if red.Level != 0 || red.FillProgress != 0 {
		t.Errorf("expected run progress reset, got level=%d fill=%f", red.Level, red.FillProgress)
	}
	if !s.Currency.Equal(dec("10")) {
		t.Errorf("expected currency reset to seed, got %s", s.Currency)
	}
	if !s.Stats.LifetimeEarnings.IsZero() {
		t.Errorf("expected lifetime earnings reset, got %s", s.Stats.LifetimeEarnings)
	}
	if s.Prestige.TotalPrestiges != 1 || s.Prestige.CurrentIdleMultiplier != 1 {
		t.Errorf("unexpected prestige state %+v", s.Prestige)
	}
	if !s.Timestamps.LastPrestige.Equal(now) {
		t.Errorf("expected last prestige re-anchored to %v, got %v", now, s.Timestamps.LastPrestige)
	}
	if len(s.Prestige.History) != 1 {
		t.Fatalf("expected one history entry, got %d", len(s.Prestige.History))
	}
	h := s.Prestige.History[0]
	if h.Generator != "Red" || h.Amount != "1.18×" || !h.Timestamp.Equal(now) {
		t.Errorf("unexpected history entry %+v", h)
	}
}

func TestApplyRandomPrestigeNeedsUnlockedGenerator(t *testing.T) {
	s := newTestState(t)
	s.Generators[0].Unlocked = false
	s.Stats.LifetimeEarnings = dec("1e9")
	if _, ok := ApplyPrestige(s, nil, newRand(), testNow); ok {
		t.Fatal("expected no-op with nothing unlocked")
	}
}

func TestSelectablePrestige(t *testing.T) {
	s := newTestState(t)
	s.Prestige.SelectablesRemaining = 2
	s.Stats.LifetimeEarnings = dec("100000000")

	rejected := []*Choice{
		nil,
		{GeneratorID: 2},
		{GeneratorID: 99, Bonus: BonusSpeed},
		{GeneratorID: 2, Bonus: "luck"},
	}
	for _, c := range rejected {
		if _, ok := ApplyPrestige(s, c, newRand(), testNow); ok {
			t.Fatalf("expected choice %+v to be rejected", c)
		}
	}
	if s.Prestige.SelectablesRemaining != 2 {
		t.Fatal("rejected choice consumed a selectable")
	}

	award, ok := ApplyPrestige(s, &Choice{GeneratorID: 2, Bonus: BonusSpeed}, newRand(), testNow)
	if !ok || !award.Selectable {
		t.Fatal("expected selectable prestige on a locked generator to apply")
	}
	orange := s.Generator(2)
	if orange.SpeedBonus != 1.1 {
		t.Fatalf("expected speed 1.1, got %f", orange.SpeedBonus)
	}
	if s.Prestige.SelectablesRemaining != 1 {
		t.Fatalf("expected one selectable left, got %d", s.Prestige.SelectablesRemaining)
	}

	// Same factor again compounds rather than adds.
	s.Stats.LifetimeEarnings = dec("100000000")
	if _, ok := ApplyPrestige(s, &Choice{GeneratorID: 2, Bonus: BonusSpeed}, newRand(), testNow); !ok {
		t.Fatal("expected second selectable prestige to apply")
	}
	if math.Abs(orange.SpeedBonus-1.21) > 1e-12 {
		t.Fatalf("expected speed 1.21, got %f", orange.SpeedBonus)
	}
	if s.Prestige.SelectablesRemaining != 0 {
		t.Fatalf("expected normal mode, got %d selectables", s.Prestige.SelectablesRemaining)
	}
}

func TestSelectablePrestigeLockedTargetsDisallowed(t *testing.T) {
	s := newTestState(t)
	s.Rules.LockedTargets = false
	s.Prestige.SelectablesRemaining = 1
	s.Stats.LifetimeEarnings = dec("100000000")

	if _, ok := ApplyPrestige(s, &Choice{GeneratorID: 3, Bonus: BonusEarn}, newRand(), testNow); ok {
		t.Fatal("expected locked target to be rejected")
	}
	if _, ok := ApplyPrestige(s, &Choice{GeneratorID: 1, Bonus: BonusEarn}, newRand(), testNow); !ok {
		t.Fatal("expected unlocked target to be accepted")
	}
}

func TestPrestigeUnlockPolicy(t *testing.T) {
	for _, keep := range []bool{false, true} {
		s := newTestState(t)
		s.Rules.KeepUnlocks = keep
		s.Generator(2).Unlocked = true
		s.Generator(3).Unlocked = true
		s.Stats.LifetimeEarnings = dec("1e8")

		if _, ok := ApplyPrestige(s, nil, newRand(), testNow); !ok {
			t.Fatal("expected prestige to apply")
		}
		if !s.Generator(1).Unlocked {
			t.Error("first generator must stay unlocked")
		}
		if got := s.Generator(2).Unlocked; got != keep {
			t.Errorf("keepUnlocks=%v: expected orange unlocked=%v, got %v", keep, keep, got)
		}
	}
}

func TestPrestigeHistoryIsBounded(t *testing.T) {
	s := newTestState(t)
	for i := 0; i < 12; i++ {
		s.Stats.LifetimeEarnings = dec("1e8")
		if _, ok := ApplyPrestige(s, nil, newRand(), testNow.Add(time.Duration(i)*time.Minute)); !ok {
			t.Fatalf("prestige %d refused", i)
		}
	}
	if len(s.Prestige.History) != 10 {
		t.Fatalf("expected 10 history entries, got %d", len(s.Prestige.History))
	}
	if want := testNow.Add(11 * time.Minute); !s.Prestige.History[0].Timestamp.Equal(want) {
		t.Fatalf("expected most recent first, got %v", s.Prestige.History[0].Timestamp)
	}
	if s.Prestige.TotalPrestiges != 12 {
		t.Fatalf("expected 12 prestiges, got %d", s.Prestige.TotalPrestiges)
	}
}

func TestBuffsSurvivePrestige(t *testing.T) {
	s := newTestState(t)
	s.Prestige.SelectablesRemaining = 1
	s.Stats.LifetimeEarnings = dec("1e9")
	if _, ok := ApplyPrestige(s, &Choice{GeneratorID: 1, Bonus: BonusEarn}, newRand(), testNow); !ok {
		t.Fatal("expected prestige to apply")
	}
	s.Stats.LifetimeEarnings = dec("1e9")
	if _, ok := ApplyPrestige(s, nil, newRand(), testNow); !ok {
		t.Fatal("expected prestige to apply")
	}
	if s.Generator(1).EarnBonus.LessThan(dec("2")) {
		t.Fatalf("expected earn bonus to persist, got %s", s.Generator(1).EarnBonus)
	}
}

func TestDrawBonusWeights(t *testing.T) {
	r := testRules()
	tests := []struct {
		roll float64
		want BonusType
	}{
		{0.0, BonusEarn},
		{0.25, BonusEarn},
		{0.5, BonusSpeed},
		{0.65, BonusSpeed},
		{0.75, BonusCost},
		{0.99, BonusCost},
	}
	for _, tt := range tests {
		if got := drawBonus(tt.roll, r); got != tt.want {
			t.Errorf("roll %v: expected %s, got %s", tt.roll, tt.want, got)
		}
	}
}
