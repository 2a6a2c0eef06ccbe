package save

import (
	"bytes"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"
	"github.com/shopspring/decimal"

	"archuser.org/idle-game/internal/game"
)

const (
	CompressionZstd = "zstd"
	CompressionNone = "none"
)

var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var (
	zstdEncoder = sync.OnceValues(func() (*zstd.Encoder, error) {
		return zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
	})
	zstdDecoder = sync.OnceValues(func() (*zstd.Decoder, error) {
		return zstd.NewReader(nil)
	})
)

// Marshal builds the blob for s as of now.
func Marshal(s *game.GameState, now time.Time) Blob {
	st := StateRecord{
		Currency:   s.Currency.String(),
		Generators: make([]GeneratorRecord, 0, len(s.Generators)),
		Prestige: PrestigeRecord{
			TotalPrestiges:        s.Prestige.TotalPrestiges,
			CurrentIdleMultiplier: s.Prestige.CurrentIdleMultiplier,
			SelectablesRemaining:  s.Prestige.SelectablesRemaining,
			History:               make([]HistoryRecord, 0, len(s.Prestige.History)),
		},
		Stats: StatsRecord{
			LifetimeEarnings: s.Stats.LifetimeEarnings.String(),
			IncomePerSecond:  s.Stats.IncomePerSecond.String(),
			TimePlayedMs:     s.Stats.TimePlayed.Milliseconds(),
		},
		Global: GlobalRecord{
			Pow:             s.Global.Pow,
			IdlePower:       s.Global.IdlePower,
			WorldsCompleted: s.Global.WorldsCompleted,
		},
		Timestamps: TimestampsRecord{
			LastSave:     now.UnixMilli(),
			LastTick:     unixMilli(s.Timestamps.LastTick),
			SessionStart: unixMilli(s.Timestamps.SessionStart),
			LastPrestige: unixMilli(s.Timestamps.LastPrestige),
		},
		Settings: SettingsRecord{
			SoundEnabled:  s.Settings.SoundEnabled,
			BuyMode:       int(s.Settings.BuyMode),
			BuyModeSticky: s.Settings.BuyModeSticky,
			Theme:         s.Settings.Theme,
		},
	}
	for _, g := range s.Generators {
		unlocked := g.Unlocked
		st.Generators = append(st.Generators, GeneratorRecord{
			ID:            g.ID,
			Level:         g.Level,
			FillProgress:  g.FillProgress,
			Unlocked:      &unlocked,
			EarnBonus:     g.EarnBonus.String(),
			SpeedBonus:    g.SpeedBonus,
			CostReduction: g.CostReduction,
		})
	}
	for _, h := range s.Prestige.History {
		st.Prestige.History = append(st.Prestige.History, HistoryRecord{
			Generator: h.Generator,
			Bonus:     h.Bonus,
			Amount:    h.Amount,
			Timestamp: unixMilli(h.Timestamp),
		})
	}
	return Blob{Version: Version, Timestamp: now.UnixMilli(), State: st}
}

// Encode serializes s into the text stored in a save slot.
func Encode(s *game.GameState, now time.Time, compression string) (string, error) {
	raw, err := json.Marshal(Marshal(s, now))
	if err != nil {
		return "", fmt.Errorf("marshal save: %w", err)
	}
	switch compression {
	case CompressionZstd, "":
		enc, err := zstdEncoder()
		if err != nil {
			return "", fmt.Errorf("zstd encoder: %w", err)
		}
		raw = enc.EncodeAll(raw, nil)
	case CompressionNone:
	default:
		return "", fmt.Errorf("unknown compression %q", compression)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

// Decode parses slot text written by Encode. Plain base64 JSON and raw JSON
// are accepted as well.
func Decode(text string) (Blob, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return Blob{}, fmt.Errorf("%w: empty", ErrCorrupt)
	}

	var raw []byte
	if strings.HasPrefix(text, "{") {
		raw = []byte(text)
	} else {
		decoded, err := base64.StdEncoding.DecodeString(text)
		if err != nil {
			return Blob{}, fmt.Errorf("%w: base64: %v", ErrCorrupt, err)
		}
		raw = decoded
	}

	if bytes.HasPrefix(raw, zstdMagic) {
		dec, err := zstdDecoder()
		if err != nil {
			return Blob{}, fmt.Errorf("zstd decoder: %w", err)
		}
		out, err := dec.DecodeAll(raw, nil)
		if err != nil {
			return Blob{}, fmt.Errorf("%w: zstd: %v", ErrCorrupt, err)
		}
		raw = out
	}

	b := defaultBlob()
	if err := json.Unmarshal(raw, &b); err != nil {
		return Blob{}, fmt.Errorf("%w: json: %v", ErrCorrupt, err)
	}
	if err := Validate(b); err != nil {
		return Blob{}, err
	}
	return b, nil
}

// Restore rebuilds a game from b under rules. Generators are matched to the
// roster by id; roster entries the blob does not mention start fresh and blob
// entries the roster no longer has are dropped. The session anchors move to
// now while lastSave and lastPrestige are kept. Saves without lastPrestige
// anchor the run at lastSave so offline credit outlives the first tick.
func Restore(b Blob, rules *game.Rules, now time.Time) (*game.GameState, error) {
	s := game.New(rules, now)
	st := b.State

	var err error
	if s.Currency, err = parseDecimal(st.Currency, rules.StartingCurrency); err != nil {
		return nil, fmt.Errorf("%w: currency: %v", ErrCorrupt, err)
	}

	byID := make(map[int]GeneratorRecord, len(st.Generators))
	for _, rec := range st.Generators {
		byID[rec.ID] = rec
	}
	for i := range s.Generators {
		g := &s.Generators[i]
		rec, ok := byID[g.ID]
		if !ok {
			continue
		}
		g.Level = rec.Level
		g.FillProgress = min(max(rec.FillProgress, 0), 1)
		if rec.Unlocked != nil {
			g.Unlocked = *rec.Unlocked
		}
		if g.EarnBonus, err = parseDecimal(rec.EarnBonus, decimal.NewFromInt(1)); err != nil {
			return nil, fmt.Errorf("%w: generator %d earnBonus: %v", ErrCorrupt, g.ID, err)
		}
		g.SpeedBonus = rec.SpeedBonus
		g.CostReduction = rec.CostReduction
	}

	s.Prestige.TotalPrestiges = st.Prestige.TotalPrestiges
	s.Prestige.CurrentIdleMultiplier = st.Prestige.CurrentIdleMultiplier
	if s.Prestige.CurrentIdleMultiplier < 1 {
		s.Prestige.CurrentIdleMultiplier = 1
	}
	s.Prestige.SelectablesRemaining = max(st.Prestige.SelectablesRemaining, 0)
	history := st.Prestige.History
	if limit := rules.HistoryLimit; limit > 0 && len(history) > limit {
		history = history[:limit]
	}
	for _, h := range history {
		s.Prestige.History = append(s.Prestige.History, game.HistoryEntry{
			Generator: h.Generator,
			Bonus:     h.Bonus,
			Amount:    h.Amount,
			Timestamp: fromMilli(h.Timestamp),
		})
	}

	if s.Stats.LifetimeEarnings, err = parseDecimal(st.Stats.LifetimeEarnings, decimal.Zero); err != nil {
		return nil, fmt.Errorf("%w: lifetimeEarnings: %v", ErrCorrupt, err)
	}
	s.Stats.TimePlayed = time.Duration(st.Stats.TimePlayedMs) * time.Millisecond
	if st.Stats.IncomePerSecond == "" {
		s.Stats.IncomePerSecond = game.IncomePerSecond(s)
	} else if s.Stats.IncomePerSecond, err = parseDecimal(st.Stats.IncomePerSecond, decimal.Zero); err != nil {
		return nil, fmt.Errorf("%w: incomePerSecond: %v", ErrCorrupt, err)
	}

	s.Global.Pow = st.Global.Pow
	if s.Global.Pow < 1 {
		s.Global.Pow = 1
	}
	s.Global.IdlePower = max(st.Global.IdlePower, 0)
	s.Global.WorldsCompleted = st.Global.WorldsCompleted

	s.Timestamps.LastSave = fromMilli(st.Timestamps.LastSave)
	if s.Timestamps.LastSave.IsZero() {
		s.Timestamps.LastSave = fromMilli(b.Timestamp)
	}
	s.Timestamps.LastPrestige = fromMilli(st.Timestamps.LastPrestige)
	if s.Timestamps.LastPrestige.IsZero() {
		s.Timestamps.LastPrestige = s.Timestamps.LastSave
	}

	s.Settings = game.Settings{
		SoundEnabled:  st.Settings.SoundEnabled,
		BuyMode:       game.BuyMode(st.Settings.BuyMode),
		BuyModeSticky: st.Settings.BuyModeSticky,
		Theme:         st.Settings.Theme,
	}
	if !s.Settings.BuyMode.Valid() {
		s.Settings.BuyMode = game.BuyOne
	}
	return s, nil
}

func parseDecimal(s string, def decimal.Decimal) (decimal.Decimal, error) {
	if s == "" {
		return def, nil
	}
	return decimal.NewFromString(s)
}

func unixMilli(t time.Time) int64 {
	if t.IsZero() {
		return 0
	}
	return t.UnixMilli()
}

func fromMilli(ms int64) time.Time {
	if ms <= 0 {
		return time.Time{}
	}
	return time.UnixMilli(ms).UTC()
}
