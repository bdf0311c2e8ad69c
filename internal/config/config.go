// Package config loads and validates the engine configuration: the tracked
// universe, sector membership, leverage-tier table and collaborator tuning.
package config

import (
	"fmt"
	"math"
	"os"

	"github.com/creasty/defaults"
	"github.com/go-playground/validator/v10"
	"gopkg.in/yaml.v3"

	"github.com/rotorscan/rotorscan/internal/domain/errs"
)

// Config is the root configuration document.
type Config struct {
	Benchmark string            `yaml:"benchmark" default:"BTC" validate:"required"`
	Universe  []UniverseEntry   `yaml:"universe" validate:"min=1,dive"`
	Sectors   map[string]Sector `yaml:"sectors" validate:"min=1,dive"`

	Liquidation LiquidationConfig `yaml:"liquidation"`
	Providers   ProvidersConfig   `yaml:"providers"`
	Cache       CacheConfig       `yaml:"cache"`
	HTTP        HTTPConfig        `yaml:"http"`
}

// UniverseEntry is one tracked symbol with its regime category.
type UniverseEntry struct {
	Symbol   string `yaml:"symbol" validate:"required"`
	Category string `yaml:"category" validate:"oneof=risk safe_haven benchmark"`
}

// Sector maps a named sector to its constituent symbols.
type Sector struct {
	Coins       []string `yaml:"coins" validate:"min=1"`
	Description string   `yaml:"description"`
}

// LiquidationConfig tunes the estimator.
type LiquidationConfig struct {
	TierWeights       map[int]float64 `yaml:"tier_weights"`
	WindowPct         float64         `yaml:"window_pct" default:"0.20" validate:"gt=0,lte=1"`
	BucketGranularity float64         `yaml:"bucket_granularity" default:"1000" validate:"gt=0"`
	MajorZoneUSD      float64         `yaml:"major_zone_usd" default:"500000000"`
}

// ProvidersConfig tunes the exchange collaborators.
type ProvidersConfig struct {
	Priority       []string `yaml:"priority" default:"[\"binance\",\"okx\",\"kucoin\"]"`
	TimeoutSeconds int      `yaml:"timeout_seconds" default:"10" validate:"gt=0"`
	MaxConcurrent  int      `yaml:"max_concurrent" default:"8" validate:"gt=0"`
	RequestsPerSec float64  `yaml:"requests_per_sec" default:"10" validate:"gt=0"`
	Burst          int      `yaml:"burst" default:"20" validate:"gt=0"`
}

// CacheConfig tunes the raw-history cache owned by the collaborator.
type CacheConfig struct {
	TTLSeconds     int    `yaml:"ttl_seconds" default:"300" validate:"gt=0"`
	CleanupSeconds int    `yaml:"cleanup_seconds" default:"60" validate:"gt=0"`
	RedisAddr      string `yaml:"redis_addr"`
	RedisDB        int    `yaml:"redis_db"`
}

// HTTPConfig tunes the read-only API server.
type HTTPConfig struct {
	Host string `yaml:"host" default:"127.0.0.1"`
	Port int    `yaml:"port" default:"8090" validate:"gt=0,lt=65536"`
}

var validate = validator.New()

// Load reads, defaults and validates a YAML config file.
func Load(path string) (*Config, error) {
	raw, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}
	return Parse(raw)
}

// Parse decodes config bytes, applies defaults and validates invariants.
func Parse(raw []byte) (*Config, error) {
	cfg := &Config{}
	if err := yaml.Unmarshal(raw, cfg); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}
	if err := defaults.Set(cfg); err != nil {
		return nil, fmt.Errorf("apply defaults: %w", err)
	}
	if len(cfg.Liquidation.TierWeights) == 0 {
		cfg.Liquidation.TierWeights = map[int]float64{5: 0.10, 10: 0.25, 20: 0.30, 50: 0.25, 100: 0.10}
	}
	if err := validate.Struct(cfg); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}
	if err := cfg.checkInvariants(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) checkInvariants() error {
	var sum float64
	for _, w := range c.Liquidation.TierWeights {
		sum += w
	}
	if math.Abs(sum-1.0) > 1e-9 {
		return &errs.ConfigurationError{Detail: fmt.Sprintf("liquidation tier weights sum to %.4f, want 1.0", sum)}
	}

	tracked := make(map[string]bool, len(c.Universe))
	for _, u := range c.Universe {
		tracked[u.Symbol] = true
	}
	if !tracked[c.Benchmark] {
		return &errs.ConfigurationError{Detail: "benchmark " + c.Benchmark + " not in universe"}
	}
	for name, sector := range c.Sectors {
		if len(sector.Coins) == 0 {
			return &errs.ConfigurationError{Detail: "sector " + name + " has no constituents"}
		}
	}
	return nil
}

// SectorConstituents returns the coin list for a sector, or a
// ConfigurationError when the sector is undefined.
func (c *Config) SectorConstituents(name string) ([]string, error) {
	sector, ok := c.Sectors[name]
	if !ok {
		return nil, &errs.ConfigurationError{Detail: "undefined sector " + name}
	}
	return sector.Coins, nil
}

// Categories returns the symbol→category map used by the regime detector.
func (c *Config) Categories() map[string]string {
	out := make(map[string]string, len(c.Universe))
	for _, u := range c.Universe {
		out[u.Symbol] = u.Category
	}
	return out
}
