// Package config defines service configuration structures and loading hooks.
//
// Conventions:
// - Provide New(ctx) to build a Config with defaults.
// - Validate before use; errors wrap ErrInvalidConfig.
package config

import (
	"context"
	"fmt"
	"runtime"
	"time"
)

// Store drivers.
const (
	DriverMemory   = "memory"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// LogFormat selects text or json output.
	LogFormat string `koanf:"log_format"`

	// Addr configures the HTTP listen address, e.g. ":8080".
	Addr string `koanf:"addr"`

	// QueueSize bounds the in-memory activity queue.
	QueueSize int `koanf:"queue_size"`

	// WorkerCount sets the number of gamification workers.
	WorkerCount int `koanf:"worker_count"`

	// DedupeSize sets how many submission ids are remembered.
	DedupeSize int `koanf:"dedupe_size"`

	// MaxLeaderboardLimit caps GET /leaderboard?limit.
	MaxLeaderboardLimit int `koanf:"max_leaderboard_limit"`

	// StoreDriver is memory, sqlite or postgres; StoreDSN is passed to the driver.
	StoreDriver string `koanf:"store_driver"`
	StoreDSN    string `koanf:"store_dsn"`

	// Timezone decides calendar days for streaks, inactivity and monthly trends.
	Timezone string `koanf:"timezone"`

	// XP awards.
	XPPerAssessmentGiven    int64 `koanf:"xp_per_assessment_given"`
	XPPerAssessmentReceived int64 `koanf:"xp_per_assessment_received"`
	XPPerBadge              int64 `koanf:"xp_per_badge"`
	XPHighScoreBonus        int64 `koanf:"xp_high_score_bonus"`
}

// New creates a Config with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:                "info",
		LogFormat:               "text",
		Addr:                    ":9080",
		QueueSize:               10_000,
		WorkerCount:             runtime.NumCPU(),
		DedupeSize:              100_000,
		MaxLeaderboardLimit:     100,
		StoreDriver:             DriverMemory,
		Timezone:                "UTC",
		XPPerAssessmentGiven:    50,
		XPPerAssessmentReceived: 30,
		XPPerBadge:              100,
		XPHighScoreBonus:        20,
	}
}

// Location loads the configured time zone.
func (c *Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %v", ErrInvalidTimezone, c.Timezone, err)
	}
	return loc, nil
}

// Validate checks the configuration for values the service cannot run with.
func (c *Config) Validate() error {
	if c.Addr == "" {
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	}
	switch c.StoreDriver {
	case DriverMemory:
	case DriverSQLite, DriverPostgres:
		if c.StoreDSN == "" {
			return fmt.Errorf("%w for %s", ErrMissingDSN, c.StoreDriver)
		}
	default:
		return fmt.Errorf("%w %q", ErrUnknownDriver, c.StoreDriver)
	}
	if c.QueueSize < 1 {
		return fmt.Errorf("%w: queue_size must be positive", ErrInvalidSize)
	}
	if c.WorkerCount < 1 {
		return fmt.Errorf("%w: worker_count must be positive", ErrInvalidSize)
	}
	if c.DedupeSize < 0 {
		return fmt.Errorf("%w: dedupe_size must not be negative", ErrInvalidSize)
	}
	if c.MaxLeaderboardLimit < 1 {
		return fmt.Errorf("%w: max_leaderboard_limit must be positive", ErrInvalidSize)
	}
	if c.XPPerAssessmentGiven < 0 || c.XPPerAssessmentReceived < 0 || c.XPPerBadge < 0 || c.XPHighScoreBonus < 0 {
		return fmt.Errorf("%w: xp awards must not be negative", ErrInvalidConfig)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	return nil
}
