package save

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/charmbracelet/log"
	"github.com/sethvargo/go-retry"

	"archuser.org/idle-game/internal/config"
	"archuser.org/idle-game/internal/game"
	"archuser.org/idle-game/internal/store"
)

// LoadResult describes what a successful Load found.
type LoadResult struct {
	Version        string
	SavedAt        time.Time
	Away           time.Duration
	OfflineApplied bool
}

// Codec reads and writes one save slot in a store.
type Codec struct {
	store       store.Store
	key         string
	compression string
	logger      *log.Logger
	backoff     func() retry.Backoff
}

func NewCodec(st store.Store, cfg config.SaveConfig, logger *log.Logger) *Codec {
	return &Codec{
		store:       st,
		key:         cfg.Key,
		compression: cfg.Compression,
		logger:      logger,
		backoff: func() retry.Backoff {
			return retry.WithMaxRetries(3, retry.NewExponential(50*time.Millisecond))
		},
	}
}

// Save writes s to the slot and stamps its lastSave.
func (c *Codec) Save(ctx context.Context, s *game.GameState, now time.Time) error {
	text, err := c.Encode(s, now)
	if err != nil {
		return err
	}
	if err := c.Write(ctx, text); err != nil {
		return err
	}
	s.Timestamps.LastSave = now
	return nil
}

// Encode serializes s with the slot's compression without touching the store.
func (c *Codec) Encode(s *game.GameState, now time.Time) (string, error) {
	return Encode(s, now, c.compression)
}

// Write stores encoded slot text, retrying transient store failures.
func (c *Codec) Write(ctx context.Context, text string) error {
	attempt := 0
	err := retry.Do(ctx, c.backoff(), func(ctx context.Context) error {
		attempt++
		if err := c.store.Set(ctx, c.key, text); err != nil {
			c.logger.Warn("save write failed", "key", c.key, "attempt", attempt, "err", err)
			return retry.RetryableError(err)
		}
		return nil
	})
	if err != nil {
		return fmt.Errorf("write save %q: %w", c.key, err)
	}
	c.logger.Debug("saved", "key", c.key, "bytes", len(text))
	return nil
}

// Load restores the slot under rules and credits offline time up to now.
// An empty or unreadable slot yields ErrNoSave so the caller can start fresh.
func (c *Codec) Load(ctx context.Context, rules *game.Rules, now time.Time) (*game.GameState, LoadResult, error) {
	b, err := c.Export(ctx)
	if err != nil {
		if errors.Is(err, ErrCorrupt) {
			c.logger.Error("discarding unreadable save", "key", c.key, "err", err)
			return nil, LoadResult{}, ErrNoSave
		}
		return nil, LoadResult{}, err
	}
	if b.Version != Version {
		c.logger.Warn("save version mismatch", "saved", b.Version, "current", Version)
	}

	s, err := Restore(b, rules, now)
	if err != nil {
		c.logger.Error("discarding unreadable save", "key", c.key, "err", err)
		return nil, LoadResult{}, ErrNoSave
	}

	savedAt := fromMilli(b.Timestamp)
	res := LoadResult{
		Version: b.Version,
		SavedAt: savedAt,
		Away:    max(now.Sub(savedAt), 0),
	}
	res.OfflineApplied = game.ApplyOffline(s, savedAt, now)
	c.logger.Info("loaded save",
		"key", c.key,
		"version", b.Version,
		"away", res.Away.Round(time.Second),
		"offline", res.OfflineApplied,
		"idleMultiplier", s.Prestige.CurrentIdleMultiplier,
	)
	return s, res, nil
}

// Export returns the decoded blob in the slot.
func (c *Codec) Export(ctx context.Context) (Blob, error) {
	text, err := c.store.Get(ctx, c.key)
	if errors.Is(err, store.ErrNotFound) {
		return Blob{}, ErrNoSave
	}
	if err != nil {
		return Blob{}, fmt.Errorf("read save %q: %w", c.key, err)
	}
	return Decode(text)
}

// Clear empties the slot.
func (c *Codec) Clear(ctx context.Context) error {
	if err := c.store.Remove(ctx, c.key); err != nil {
		return fmt.Errorf("clear save %q: %w", c.key, err)
	}
	c.logger.Info("save cleared", "key", c.key)
	return nil
}
