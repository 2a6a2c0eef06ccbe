// Package save converts a game state to and from the persisted save blob.
package save

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// Version is stamped on every blob written by this package.
const Version = "1.0.0"

var (
	// ErrNoSave means the slot is empty or held something unreadable.
	ErrNoSave = errors.New("save: no save")
	// ErrCorrupt wraps decode failures of a present slot.
	ErrCorrupt = errors.New("save: corrupt blob")
)

// Blob is the persisted document. Big numbers travel as decimal strings and
// times as Unix milliseconds.
type Blob struct {
	Version   string      `json:"version"`
	Timestamp int64       `json:"timestamp"`
	State     StateRecord `json:"state"`
}

type StateRecord struct {
	Currency   string            `json:"currency"`
	Generators []GeneratorRecord `json:"generators"`
	Prestige   PrestigeRecord    `json:"prestige"`
	Stats      StatsRecord       `json:"stats"`
	Global     GlobalRecord      `json:"global"`
	Timestamps TimestampsRecord  `json:"timestamps"`
	Settings   SettingsRecord    `json:"settings"`
}

type GeneratorRecord struct {
	ID            int     `json:"id"`
	Level         int     `json:"level"`
	FillProgress  float64 `json:"fillProgress"`
	Unlocked      *bool   `json:"unlocked,omitempty"`
	EarnBonus     string  `json:"earnBonus"`
	SpeedBonus    float64 `json:"speedBonus"`
	CostReduction float64 `json:"costReduction"`
}

// UnmarshalJSON fills buff defaults for fields older saves did not carry.
func (g *GeneratorRecord) UnmarshalJSON(data []byte) error {
	type plain GeneratorRecord
	rec := plain{EarnBonus: "1", SpeedBonus: 1, CostReduction: 1}
	if err := json.Unmarshal(data, &rec); err != nil {
		return err
	}
	if rec.EarnBonus == "" {
		rec.EarnBonus = "1"
	}
	if rec.SpeedBonus <= 0 {
		rec.SpeedBonus = 1
	}
	if rec.CostReduction <= 0 {
		rec.CostReduction = 1
	}
	*g = GeneratorRecord(rec)
	return nil
}

type PrestigeRecord struct {
	TotalPrestiges        int             `json:"totalPrestiges"`
	CurrentIdleMultiplier float64         `json:"currentIdleMultiplier"`
	SelectablesRemaining  int             `json:"selectablesRemaining"`
	History               []HistoryRecord `json:"history"`
}

type HistoryRecord struct {
	Generator string `json:"generator"`
	Bonus     string `json:"bonus"`
	Amount    string `json:"amount"`
	Timestamp int64  `json:"timestamp"`
}

type StatsRecord struct {
	LifetimeEarnings string `json:"lifetimeEarnings"`
	IncomePerSecond  string `json:"incomePerSecond"`
	TimePlayedMs     int64  `json:"timePlayedMs"`
}

type GlobalRecord struct {
	Pow             float64 `json:"pow"`
	IdlePower       float64 `json:"idlePower"`
	WorldsCompleted int     `json:"worldsCompleted"`
}

type TimestampsRecord struct {
	LastSave     int64 `json:"lastSave"`
	LastTick     int64 `json:"lastTick"`
	SessionStart int64 `json:"sessionStart"`
	LastPrestige int64 `json:"lastPrestige,omitempty"`
}

type SettingsRecord struct {
	SoundEnabled  bool   `json:"soundEnabled"`
	BuyMode       int    `json:"buyMode"`
	BuyModeSticky bool   `json:"buyModeSticky"`
	Theme         string `json:"theme"`
}

// defaultBlob is what a decode starts from so that absent fields keep
// sensible values.
func defaultBlob() Blob {
	return Blob{
		State: StateRecord{
			Currency: "0",
			Prestige: PrestigeRecord{CurrentIdleMultiplier: 1},
			Stats:    StatsRecord{LifetimeEarnings: "0"},
			Global:   GlobalRecord{Pow: 1},
			Settings: SettingsRecord{SoundEnabled: true, BuyMode: 1, Theme: "nostalgia"},
		},
	}
}

// Validate checks that a decoded blob has the sections a restore needs and
// that no amount in it is negative.
func Validate(b Blob) error {
	if b.Version == "" {
		return fmt.Errorf("%w: missing version", ErrCorrupt)
	}
	if b.Timestamp <= 0 {
		return fmt.Errorf("%w: missing timestamp", ErrCorrupt)
	}
	if b.State.Currency == "" {
		return fmt.Errorf("%w: missing currency", ErrCorrupt)
	}
	amounts := []struct {
		field, value string
	}{
		{"currency", b.State.Currency},
		{"lifetimeEarnings", b.State.Stats.LifetimeEarnings},
		{"incomePerSecond", b.State.Stats.IncomePerSecond},
	}
	for _, a := range amounts {
		if err := checkAmount(a.field, a.value); err != nil {
			return err
		}
	}
	seen := make(map[int]bool, len(b.State.Generators))
	for _, g := range b.State.Generators {
		if seen[g.ID] {
			return fmt.Errorf("%w: duplicate generator %d", ErrCorrupt, g.ID)
		}
		seen[g.ID] = true
		if g.Level < 0 {
			return fmt.Errorf("%w: generator %d has negative level", ErrCorrupt, g.ID)
		}
		if err := checkAmount(fmt.Sprintf("generator %d earnBonus", g.ID), g.EarnBonus); err != nil {
			return err
		}
	}
	return nil
}

// checkAmount rejects a decimal field that does not parse or is negative.
// Empty fields are left to their defaults.
func checkAmount(field, value string) error {
	if value == "" {
		return nil
	}
	d, err := decimal.NewFromString(value)
	if err != nil {
		return fmt.Errorf("%w: %s: %v", ErrCorrupt, field, err)
	}
	if d.IsNegative() {
		return fmt.Errorf("%w: negative %s", ErrCorrupt, field)
	}
	return nil
}
