// Package session owns one running game: the state, its loop and its save slot.
package session

import (
	"context"
	"errors"
	"fmt"
	"math/rand/v2"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"

	"archuser.org/idle-game/internal/clock"
	"archuser.org/idle-game/internal/config"
	"archuser.org/idle-game/internal/game"
	"archuser.org/idle-game/internal/save"
)

var (
	ErrUnknownGenerator = errors.New("unknown generator")
	// ErrRejected means the game refused the action: not affordable, locked,
	// nothing to prestige for, or an invalid prestige choice.
	ErrRejected = errors.New("action rejected")
	ErrBadMode  = errors.New("invalid buy mode")
)

const finalSaveTimeout = 5 * time.Second

type Options struct {
	Rules  *game.Rules
	Codec  *save.Codec
	Clock  clock.Clock
	Rand   *rand.Rand
	Loop   config.LoopConfig
	Logger *log.Logger
}

type Session struct {
	id     uuid.UUID
	rules  *game.Rules
	codec  *save.Codec
	clk    clock.Clock
	loop   config.LoopConfig
	logger *log.Logger

	mu  sync.Mutex
	st  *game.GameState
	rng *rand.Rand

	// saveMu orders slot writes so an older encoding never lands last.
	saveMu sync.Mutex

	subMu   sync.Mutex
	subs    map[int]chan Event
	nextID  int
	eventID uint64
}

// Open restores the saved game or starts a new one. loaded reports which.
func Open(ctx context.Context, opts Options) (*Session, bool, error) {
	if opts.Clock == nil {
		opts.Clock = clock.Real{}
	}
	if opts.Rand == nil {
		opts.Rand = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}
	if opts.Logger == nil {
		opts.Logger = log.Default()
	}

	id := uuid.New()
	s := &Session{
		id:     id,
		rules:  opts.Rules,
		codec:  opts.Codec,
		clk:    opts.Clock,
		loop:   opts.Loop,
		logger: opts.Logger.With("session", id.String()),
		rng:    opts.Rand,
		subs:   make(map[int]chan Event),
	}

	now := s.clk.Now()
	st, res, err := s.codec.Load(ctx, s.rules, now)
	switch {
	case errors.Is(err, save.ErrNoSave):
		s.st = game.New(s.rules, now)
		s.logger.Info("starting new game")
		return s, false, nil
	case err != nil:
		return nil, false, fmt.Errorf("load save: %w", err)
	}
	s.st = st
	s.logger.Info("resumed game", "savedAt", res.SavedAt, "offline", res.OfflineApplied)
	return s, true, nil
}

func (s *Session) ID() uuid.UUID { return s.id }

// Step runs one frame of the loop at now.
func (s *Session) Step(now time.Time) {
	s.mu.Lock()
	delta := now.Sub(s.st.Timestamps.LastTick)
	game.Advance(s.st, delta, now)
	currency := s.st.Currency.String()
	s.mu.Unlock()

	s.publish(now, EventTick, TickData{Delta: delta, Currency: currency})
}

// Run drives the tick loop and autosave until ctx is done, then saves once more.
func (s *Session) Run(ctx context.Context) error {
	interval := s.loop.TickInterval
	if interval <= 0 {
		interval = 50 * time.Millisecond
	}
	tick := time.NewTicker(interval)
	defer tick.Stop()

	var autosave <-chan time.Time
	if s.loop.AutosaveInterval > 0 {
		t := time.NewTicker(s.loop.AutosaveInterval)
		defer t.Stop()
		autosave = t.C
	}

	s.logger.Info("loop started", "tick", interval, "autosave", s.loop.AutosaveInterval)
	for {
		select {
		case <-ctx.Done():
			saveCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), finalSaveTimeout)
			defer cancel()
			if err := s.save(saveCtx, false); err != nil {
				return fmt.Errorf("final save: %w", err)
			}
			s.logger.Info("loop stopped")
			return nil
		case <-tick.C:
			s.Step(s.clk.Now())
		case <-autosave:
			if err := s.save(ctx, true); err != nil {
				s.logger.Error("autosave failed", "err", err)
			}
		}
	}
}

// Buy purchases amount levels of generator id. amount may be game.BuyMax or
// game.BuyNext.
func (s *Session) Buy(id, amount int) error {
	s.mu.Lock()
	g := s.st.Generator(id)
	if g == nil {
		s.mu.Unlock()
		return ErrUnknownGenerator
	}
	n := amount
	if amount < 0 {
		n = game.ResolveAmount(s.st, g, game.BuyMode(amount))
	}
	cost := game.BulkCost(g, g.Level, n)
	if !game.Buy(s.st, g, n) {
		s.mu.Unlock()
		return ErrRejected
	}
	data := PurchaseData{GeneratorID: id, Amount: n, Level: g.Level, Cost: cost.String()}
	s.mu.Unlock()

	s.publish(s.clk.Now(), EventPurchase, data)
	return nil
}

// BuyWithMode buys using the current buy mode setting.
func (s *Session) BuyWithMode(id int) error {
	s.mu.Lock()
	mode := s.st.Settings.BuyMode
	s.mu.Unlock()
	return s.Buy(id, int(mode))
}

func (s *Session) Unlock(id int) error {
	s.mu.Lock()
	g := s.st.Generator(id)
	if g == nil {
		s.mu.Unlock()
		return ErrUnknownGenerator
	}
	if !game.Unlock(s.st, g) {
		s.mu.Unlock()
		return ErrRejected
	}
	data := UnlockData{GeneratorID: id, Cost: g.UnlockCost.String()}
	s.mu.Unlock()

	s.publish(s.clk.Now(), EventUnlock, data)
	return nil
}

// Prestige resets the run for a permanent buff. choice is required while
// selectable prestiges remain and ignored otherwise.
func (s *Session) Prestige(choice *game.Choice) (game.Award, error) {
	now := s.clk.Now()
	s.mu.Lock()
	award, ok := game.ApplyPrestige(s.st, choice, s.rng, now)
	if !ok {
		s.mu.Unlock()
		return game.Award{}, ErrRejected
	}
	if !s.st.Settings.BuyModeSticky {
		s.st.Settings.BuyMode = game.BuyOne
	}
	s.mu.Unlock()

	s.logger.Info("prestige",
		"generator", award.Generator,
		"bonus", award.Bonus,
		"magnitude", award.Magnitude.StringFixed(2),
		"selectable", award.Selectable,
	)
	s.publish(now, EventPrestige, PrestigeData{
		GeneratorID: award.GeneratorID,
		Generator:   award.Generator,
		Bonus:       string(award.Bonus),
		Magnitude:   award.Magnitude.String(),
		Value:       award.Value.String(),
		Selectable:  award.Selectable,
	})
	return award, nil
}

// SetBuyMode changes the buy mode. A nil sticky leaves that flag alone.
func (s *Session) SetBuyMode(mode game.BuyMode, sticky *bool) error {
	if !mode.Valid() {
		return ErrBadMode
	}
	s.mu.Lock()
	s.st.Settings.BuyMode = mode
	if sticky != nil {
		s.st.Settings.BuyModeSticky = *sticky
	}
	data := BuyModeData{Mode: mode.String(), Sticky: s.st.Settings.BuyModeSticky}
	s.mu.Unlock()

	s.publish(s.clk.Now(), EventBuyMode, data)
	return nil
}

// CycleBuyMode advances 1 → 10 → MAX → NEXT → 1.
func (s *Session) CycleBuyMode() game.BuyMode {
	s.mu.Lock()
	mode := s.st.Settings.BuyMode.Next()
	s.mu.Unlock()
	_ = s.SetBuyMode(mode, nil)
	return mode
}

// Save writes the current state to the slot.
func (s *Session) Save(ctx context.Context) error {
	return s.save(ctx, false)
}

// save holds the state lock only while encoding. The store write and its
// retries run without it.
func (s *Session) save(ctx context.Context, auto bool) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()

	now := s.clk.Now()
	s.mu.Lock()
	st := s.st
	text, err := s.codec.Encode(st, now)
	s.mu.Unlock()
	if err != nil {
		return err
	}
	if err := s.codec.Write(ctx, text); err != nil {
		return err
	}

	s.mu.Lock()
	// A restart during the write replaced the state; its lastSave stays.
	if s.st == st {
		st.Timestamps.LastSave = now
	}
	s.mu.Unlock()
	s.publish(now, EventSave, SaveData{Auto: auto})
	return nil
}

// Restart wipes the save and starts over, keeping the player's settings.
func (s *Session) Restart(ctx context.Context) error {
	s.saveMu.Lock()
	defer s.saveMu.Unlock()
	if err := s.codec.Clear(ctx); err != nil {
		return err
	}
	now := s.clk.Now()
	s.mu.Lock()
	settings := s.st.Settings
	s.st = game.New(s.rules, now)
	s.st.Settings = settings
	s.mu.Unlock()

	s.logger.Info("game restarted")
	s.publish(now, EventRestart, nil)
	return nil
}

// Snapshot returns a read-only view of the current state.
func (s *Session) Snapshot() game.Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return game.TakeSnapshot(s.st, s.clk.Now())
}

// State returns a deep copy of the state.
func (s *Session) State() *game.GameState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.st.Clone()
}

// Subscribe returns a channel of events and a func that ends the
// subscription. Events are dropped for a subscriber whose buffer is full.
func (s *Session) Subscribe(buffer int) (<-chan Event, func()) {
	ch := make(chan Event, max(buffer, 1))
	s.subMu.Lock()
	id := s.nextID
	s.nextID++
	s.subs[id] = ch
	s.subMu.Unlock()

	var once sync.Once
	return ch, func() {
		once.Do(func() {
			s.subMu.Lock()
			delete(s.subs, id)
			s.subMu.Unlock()
			close(ch)
		})
	}
}

func (s *Session) publish(at time.Time, typ EventType, data any) {
	s.subMu.Lock()
	defer s.subMu.Unlock()
	s.eventID++
	ev := Event{ID: s.eventID, At: at, Type: typ, Data: data}
	for _, ch := range s.subs {
		select {
		case ch <- ev:
		default:
		}
	}
}

// Export returns the blob currently in the save slot.
func (s *Session) Export(ctx context.Context) (save.Blob, error) {
	return s.codec.Export(ctx)
}
