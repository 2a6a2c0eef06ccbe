package game

import (
	"time"

	"github.com/shopspring/decimal"

	"archuser.org/idle-game/internal/config"
)

// BuyMode is the purchase-size policy applied when a buy is triggered.
type BuyMode int

const (
	BuyOne  BuyMode = 1
	BuyTen  BuyMode = 10
	BuyMax  BuyMode = -1
	BuyNext BuyMode = -2
)

func (m BuyMode) Valid() bool {
	switch m {
	case BuyOne, BuyTen, BuyMax, BuyNext:
		return true
	}
	return false
}

func (m BuyMode) String() string {
	switch m {
	case BuyOne:
		return "x1"
	case BuyTen:
		return "x10"
	case BuyMax:
		return "MAX"
	case BuyNext:
		return "NEXT"
	}
	return "?"
}

// Next cycles 1 → 10 → MAX → NEXT → 1.
func (m BuyMode) Next() BuyMode {
	switch m {
	case BuyOne:
		return BuyTen
	case BuyTen:
		return BuyMax
	case BuyMax:
		return BuyNext
	}
	return BuyOne
}

type Generator struct {
	config.GeneratorConfig

	Level        int
	FillProgress float64
	Unlocked     bool

	EarnBonus     decimal.Decimal
	SpeedBonus    float64
	CostReduction float64
}

// NewGenerator builds a generator at level zero with identity buffs.
func NewGenerator(def config.GeneratorConfig) Generator {
	return Generator{
		GeneratorConfig: def,
		Unlocked:        def.UnlockedAtStart,
		EarnBonus:       decimal.NewFromInt(1),
		SpeedBonus:      1,
		CostReduction:   1,
	}
}

// FillMillis is the cycle length in milliseconds after the speed buff.
func (g *Generator) FillMillis() float64 {
	return float64(g.FillTime) / float64(time.Millisecond) / g.SpeedBonus
}

func (g *Generator) Active() bool {
	return g.Unlocked && g.Level > 0
}

type Stats struct {
	LifetimeEarnings decimal.Decimal
	IncomePerSecond  decimal.Decimal
	TimePlayed       time.Duration
}

type HistoryEntry struct {
	Generator string
	Bonus     string
	Amount    string
	Timestamp time.Time
}

type PrestigeState struct {
	TotalPrestiges        int
	CurrentIdleMultiplier float64
	SelectablesRemaining  int
	History               []HistoryEntry
}

type GlobalState struct {
	Pow             float64
	IdlePower       float64
	WorldsCompleted int
}

type Timestamps struct {
	LastSave     time.Time
	LastTick     time.Time
	SessionStart time.Time
	LastPrestige time.Time
}

type Settings struct {
	SoundEnabled  bool
	BuyMode       BuyMode
	BuyModeSticky bool
	Theme         string
}

func DefaultSettings() Settings {
	return Settings{SoundEnabled: true, BuyMode: BuyOne, Theme: "nostalgia"}
}

// GameState is the aggregate root mutated by the engine operations.
type GameState struct {
	Rules *Rules

	Currency   decimal.Decimal
	Generators []Generator
	Stats      Stats
	Prestige   PrestigeState
	Global     GlobalState
	Timestamps Timestamps
	Settings   Settings
}

// New returns a fresh game anchored at now.
func New(rules *Rules, now time.Time) *GameState {
	gens := make([]Generator, 0, len(rules.Roster))
	for _, def := range rules.Roster {
		gens = append(gens, NewGenerator(def))
	}
	if len(gens) > 0 {
		gens[0].Unlocked = true
	}
	return &GameState{
		Rules:      rules,
		Currency:   rules.StartingCurrency,
		Generators: gens,
		Stats: Stats{
			LifetimeEarnings: decimal.Zero,
			IncomePerSecond:  decimal.Zero,
		},
		Prestige: PrestigeState{CurrentIdleMultiplier: 1},
		Global:   GlobalState{Pow: 1},
		Timestamps: Timestamps{
			LastSave:     now,
			LastTick:     now,
			SessionStart: now,
			LastPrestige: now,
		},
		Settings: DefaultSettings(),
	}
}

// Generator returns the generator with the given id, or nil.
func (s *GameState) Generator(id int) *Generator {
	for i := range s.Generators {
		if s.Generators[i].ID == id {
			return &s.Generators[i]
		}
	}
	return nil
}

// Clone returns a deep copy sharing only the immutable rules.
func (s *GameState) Clone() *GameState {
	c := *s
	c.Generators = append([]Generator(nil), s.Generators...)
	c.Prestige.History = append([]HistoryEntry(nil), s.Prestige.History...)
	return &c
}

// Rules are the immutable tuning values a game runs under.
type Rules struct {
	Roster           []config.GeneratorConfig
	Milestones       Milestones
	StartingCurrency decimal.Decimal
	PrestigeDivisor  decimal.Decimal
	KeepUnlocks      bool
	LockedTargets    bool
	HistoryLimit     int
	Weights          config.BonusWeights
	Idle             config.IdleConfig
	MaxTickDelta     time.Duration
}

func NewRules(cfg config.Config) *Rules {
	return &Rules{
		Roster:           append([]config.GeneratorConfig(nil), cfg.Generators...),
		Milestones:       Milestones(append([]int(nil), cfg.Milestones...)),
		StartingCurrency: cfg.StartingCurrency,
		PrestigeDivisor:  cfg.Prestige.Divisor,
		KeepUnlocks:      cfg.Prestige.KeepUnlocks,
		LockedTargets:    cfg.Prestige.LockedTargets,
		HistoryLimit:     cfg.Prestige.HistoryLimit,
		Weights:          cfg.Prestige.Weights,
		Idle:             cfg.Idle,
		MaxTickDelta:     cfg.Loop.MaxTickDelta,
	}
}
