// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New() to build a Config with defaults.
// - Load layers a YAML file and PHSTATS_ environment variables on top.
// - External errors are wrapped with this package's sentinels.
package config

import (
	"fmt"

	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/scoring"
	"github.com/notactuallytreyanastasio/phstats-sub000/internal/domain/war"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects the log encoding: text or json.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// DBPath is the SQLite file holding performance records.
	DBPath string `koanf:"db_path"`

	// CacheSize bounds the number of memoized leaderboard results. Zero disables caching.
	CacheSize int `koanf:"cache_size"`

	// ParallelThreshold is the record count at which scoring fans out across songs.
	ParallelThreshold int `koanf:"parallel_threshold"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// JIS signal weights. They are normalized to sum to 1 by the scorer.
	DurationWeight float64 `koanf:"duration_weight"`
	CurationWeight float64 `koanf:"curation_weight"`
	ApprovalWeight float64 `koanf:"approval_weight"`

	// WARScale divides JIS above replacement to produce WAR.
	WARScale float64 `koanf:"war_scale"`
}

// New creates a Config populated with defaults.
func New() *Config {
	return &Config{
		LogLevel:            "info",
		LogFormat:           "text",
		Addr:                ":9080",
		DBPath:              "phstats.db",
		CacheSize:           256,
		ParallelThreshold:   2048,
		MaxLeaderboardLimit: 500,
		DurationWeight:      scoring.DefaultDurationWeight,
		CurationWeight:      scoring.DefaultCurationWeight,
		ApprovalWeight:      scoring.DefaultApprovalWeight,
		WARScale:            war.DefaultScale,
	}
}

// Weights returns the configured JIS weights.
func (c *Config) Weights() scoring.Weights {
	return scoring.Weights{
		Duration: c.DurationWeight,
		Curation: c.CurationWeight,
		Approval: c.ApprovalWeight,
	}
}

// Validate reports the first invalid field, wrapped in ErrInvalidConfig.
func (c *Config) Validate() error {
	switch {
	case c.Addr == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.WARScale <= 0:
		return fmt.Errorf("%w: war_scale must be positive, got %v", ErrInvalidConfig, c.WARScale)
	case c.DurationWeight < 0 || c.CurationWeight < 0 || c.ApprovalWeight < 0:
		return fmt.Errorf("%w: weights must not be negative", ErrInvalidConfig)
	case c.DurationWeight+c.CurationWeight+c.ApprovalWeight == 0:
		return fmt.Errorf("%w: at least one weight must be positive", ErrInvalidConfig)
	case c.MaxLeaderboardLimit <= 0:
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidConfig)
	}
	return nil
}
