// Package store holds the key-value backends a save slot is written to.
package store

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"

	"archuser.org/idle-game/internal/config"
)

// ErrNotFound is returned by Get when the key has never been set or was removed.
var ErrNotFound = errors.New("store: key not found")

// Store is a string key-value slot store.
type Store interface {
	Get(ctx context.Context, key string) (string, error)
	Set(ctx context.Context, key, value string) error
	Remove(ctx context.Context, key string) error
	Close() error
}

// Open builds the backend named by cfg.Backend.
func Open(cfg config.SaveConfig) (Store, error) {
	switch cfg.Backend {
	case "memory":
		return NewMemory(), nil
	case "file":
		return NewFile(cfg.Path)
	case "sqlite":
		return NewSQLite(filepath.Join(cfg.Path, "idle.db"))
	}
	return nil, fmt.Errorf("unknown store backend %q", cfg.Backend)
}
