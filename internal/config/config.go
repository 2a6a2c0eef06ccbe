package config

import (
	_ "embed"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

//go:embed default.yaml
var defaultYAML []byte

type Config struct {
	StartingCurrency decimal.Decimal   `yaml:"startingCurrency"`
	Milestones       []int             `yaml:"milestones"`
	Generators       []GeneratorConfig `yaml:"generators"`
	Prestige         PrestigeConfig    `yaml:"prestige"`
	Idle             IdleConfig        `yaml:"idle"`
	Loop             LoopConfig        `yaml:"loop"`
	Save             SaveConfig        `yaml:"save"`
	Server           ServerConfig      `yaml:"server"`
	LogLevel         string            `yaml:"logLevel"`
}

// GeneratorConfig is the immutable definition of one roster entry.
type GeneratorConfig struct {
	ID              int             `yaml:"id"`
	Name            string          `yaml:"name"`
	Color           string          `yaml:"color"`
	BaseCost        decimal.Decimal `yaml:"baseCost"`
	GrowthRate      float64         `yaml:"growthRate"`
	BaseProduction  decimal.Decimal `yaml:"baseProduction"`
	FillTime        time.Duration   `yaml:"fillTime"`
	UnlockCost      decimal.Decimal `yaml:"unlockCost"`
	UnlockedAtStart bool            `yaml:"unlocked"`
}

type PrestigeConfig struct {
	// Divisor is the lifetime earnings needed per prestige point.
	Divisor decimal.Decimal `yaml:"divisor"`
	// KeepUnlocks leaves unlocked generators unlocked across a prestige.
	// When false only generators flagged unlocked in the roster stay open.
	KeepUnlocks bool `yaml:"keepUnlocks"`
	// LockedTargets allows selectable prestiges to target locked generators.
	LockedTargets bool         `yaml:"lockedTargets"`
	HistoryLimit  int          `yaml:"historyLimit"`
	Weights       BonusWeights `yaml:"weights"`
}

type BonusWeights struct {
	Earn  float64 `yaml:"earn"`
	Speed float64 `yaml:"speed"`
	Cost  float64 `yaml:"cost"`
}

type IdleConfig struct {
	BaseRatePerHour  float64       `yaml:"baseRatePerHour"`
	PowerRatePerHour float64       `yaml:"powerRatePerHour"`
	CapHours         float64       `yaml:"capHours"`
	OfflineThreshold time.Duration `yaml:"offlineThreshold"`
}

type LoopConfig struct {
	TickInterval     time.Duration `yaml:"tickInterval"`
	MaxTickDelta     time.Duration `yaml:"maxTickDelta"`
	AutosaveInterval time.Duration `yaml:"autosaveInterval"`
}

type SaveConfig struct {
	Key         string `yaml:"key"`
	Backend     string `yaml:"backend"`
	Path        string `yaml:"path"`
	Compression string `yaml:"compression"`
}

type ServerConfig struct {
	Addr      string  `yaml:"addr"`
	RateLimit float64 `yaml:"rateLimit"`
	Burst     int     `yaml:"burst"`
}

// Default returns the built-in configuration.
func Default() Config {
	cfg, err := Parse(defaultYAML, Config{})
	if err != nil {
		panic(fmt.Sprintf("embedded config: %v", err))
	}
	return cfg
}

// Load reads a YAML file and overlays it on the built-in configuration.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("read config: %w", err)
	}
	return Parse(data, Default())
}

// Parse unmarshals data on top of base and validates the result.
func Parse(data []byte, base Config) (Config, error) {
	cfg := base
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("parse yaml: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) Validate() error {
	if len(c.Generators) == 0 {
		return fmt.Errorf("no generators defined")
	}
	if c.StartingCurrency.IsNegative() {
		return fmt.Errorf("startingCurrency must not be negative")
	}

	seen := make(map[int]bool, len(c.Generators))
	for i, gen := range c.Generators {
		if gen.ID <= 0 {
			return fmt.Errorf("generator %d missing id", i)
		}
		if seen[gen.ID] {
			return fmt.Errorf("generator %d duplicates id %d", i, gen.ID)
		}
		seen[gen.ID] = true
		if i > 0 && gen.ID <= c.Generators[i-1].ID {
			return fmt.Errorf("generator %d: ids must be ascending", gen.ID)
		}
		if gen.Name == "" {
			return fmt.Errorf("generator %d missing name", gen.ID)
		}
		if !gen.BaseCost.IsPositive() {
			return fmt.Errorf("generator %s missing baseCost", gen.Name)
		}
		if gen.GrowthRate <= 1 {
			return fmt.Errorf("generator %s growthRate must be greater than 1", gen.Name)
		}
		if !gen.BaseProduction.IsPositive() {
			return fmt.Errorf("generator %s missing baseProduction", gen.Name)
		}
		if gen.FillTime <= 0 {
			return fmt.Errorf("generator %s missing fillTime", gen.Name)
		}
		if gen.UnlockCost.IsNegative() {
			return fmt.Errorf("generator %s unlockCost must not be negative", gen.Name)
		}
	}

	for i, m := range c.Milestones {
		if m <= 0 {
			return fmt.Errorf("milestone %d must be positive", i)
		}
		if i > 0 && m <= c.Milestones[i-1] {
			return fmt.Errorf("milestones must be ascending")
		}
	}

	if !c.Prestige.Divisor.IsPositive() {
		return fmt.Errorf("prestige divisor must be positive")
	}
	if c.Prestige.HistoryLimit <= 0 {
		return fmt.Errorf("prestige historyLimit must be positive")
	}
	w := c.Prestige.Weights
	if w.Earn < 0 || w.Speed < 0 || w.Cost < 0 || w.Earn+w.Speed+w.Cost <= 0 {
		return fmt.Errorf("prestige weights must be non-negative and not all zero")
	}

	if c.Idle.CapHours < 0 || c.Idle.BaseRatePerHour < 0 || c.Idle.PowerRatePerHour < 0 {
		return fmt.Errorf("idle rates must not be negative")
	}

	if c.Loop.TickInterval <= 0 {
		return fmt.Errorf("loop tickInterval must be positive")
	}
	if c.Loop.MaxTickDelta <= 0 {
		return fmt.Errorf("loop maxTickDelta must be positive")
	}

	if c.Save.Key == "" {
		return fmt.Errorf("save key missing")
	}
	switch c.Save.Backend {
	case "memory", "file", "sqlite":
	default:
		return fmt.Errorf("unknown save backend %q", c.Save.Backend)
	}
	switch c.Save.Compression {
	case "zstd", "none":
	default:
		return fmt.Errorf("unknown save compression %q", c.Save.Compression)
	}
	return nil
}

// ApplyEnv overrides selected fields from IDLE_* environment variables.
func (c *Config) ApplyEnv(getenv func(string) string) error {
	if v := getenv("IDLE_SAVE_BACKEND"); v != "" {
		c.Save.Backend = v
	}
	if v := getenv("IDLE_SAVE_PATH"); v != "" {
		c.Save.Path = v
	}
	if v := getenv("IDLE_SAVE_KEY"); v != "" {
		c.Save.Key = v
	}
	if v := getenv("IDLE_SAVE_COMPRESSION"); v != "" {
		c.Save.Compression = v
	}
	if v := getenv("IDLE_HTTP_ADDR"); v != "" {
		c.Server.Addr = v
	}
	if v := getenv("IDLE_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
	if v := getenv("IDLE_AUTOSAVE"); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return fmt.Errorf("IDLE_AUTOSAVE: %w", err)
		}
		c.Loop.AutosaveInterval = d
	}
	if v := getenv("IDLE_IDLE_POWER_RATE"); v != "" {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("IDLE_IDLE_POWER_RATE: %w", err)
		}
		c.Idle.PowerRatePerHour = f
	}
	return c.Validate()
}
