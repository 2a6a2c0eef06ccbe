package game

import (
	"time"

	"archuser.org/idle-game/internal/config"
)

// IdleMultiplier converts elapsed wall time into a prestige multiplier:
// 1 + min(hours, cap) × (baseRate + idlePower × powerRate).
func IdleMultiplier(elapsed time.Duration, idlePower float64, cfg config.IdleConfig) float64 {
	hours := max(elapsed.Hours(), 0)
	if cfg.CapHours > 0 {
		hours = min(hours, cfg.CapHours)
	}
	rate := cfg.BaseRatePerHour + idlePower*cfg.PowerRatePerHour
	return 1 + hours*rate
}

// AccrueIdle overwrites the idle multiplier from the time since the run began.
func AccrueIdle(s *GameState, now time.Time) {
	anchor := s.Timestamps.LastPrestige
	if anchor.IsZero() {
		anchor = s.Timestamps.SessionStart
	}
	s.Prestige.CurrentIdleMultiplier = IdleMultiplier(now.Sub(anchor), s.Global.IdlePower, s.Rules.Idle)
}

// ApplyOffline credits time spent away since savedAt. Gaps at or below the
// configured threshold leave the multiplier untouched and report false.
func ApplyOffline(s *GameState, savedAt, now time.Time) bool {
	away := now.Sub(savedAt)
	if away <= s.Rules.Idle.OfflineThreshold {
		return false
	}
	s.Prestige.CurrentIdleMultiplier = IdleMultiplier(away, s.Global.IdlePower, s.Rules.Idle)
	return true
}
