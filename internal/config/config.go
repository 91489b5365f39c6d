// Package config defines process configuration and its loading.
package config

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/okian/localrank/internal/domain/model"
)

// Config contains process configuration.
type Config struct {
	// LogLevel controls verbosity: debug, info, warn, error.
	LogLevel string `koanf:"log_level"`

	// Addr configures the HTTP listen address, e.g. ":9080".
	Addr string `koanf:"addr"`

	// TickIntervalMS is the update loop period in milliseconds.
	TickIntervalMS int `koanf:"tick_interval_ms"`

	// SchedulerCapacity bounds the number of queued badge updates.
	SchedulerCapacity int `koanf:"scheduler_capacity"`

	// DefaultRuleset is the ruleset id selected at start.
	DefaultRuleset int `koanf:"default_ruleset"`

	// UserID and Username log a user in at start. Zero leaves nobody logged in.
	UserID   int64  `koanf:"user_id"`
	Username string `koanf:"username"`

	// ScoresFile is an optional YAML seed of local scores.
	ScoresFile string `koanf:"scores_file"`

	// EventBuffer is the per-subscriber buffer of the in-process event bus.
	EventBuffer int `koanf:"event_buffer"`
}

// New returns a Config populated with defaults.
func New(_ context.Context) *Config {
	return &Config{
		LogLevel:          "info",
		Addr:              ":9080",
		TickIntervalMS:    16,
		SchedulerCapacity: 10_000,
		DefaultRuleset:    model.RulesetOsu.ID,
		EventBuffer:       64,
	}
}

// TickInterval returns TickIntervalMS as a duration.
func (c *Config) TickInterval() time.Duration {
	return time.Duration(c.TickIntervalMS) * time.Millisecond
}

// User returns the configured start-up user, if any.
func (c *Config) User() (model.User, bool) {
	if c.UserID <= 0 {
		return model.User{}, false
	}
	return model.User{ID: c.UserID, Username: c.Username}, true
}

// Validate checks every field and returns an ErrInvalidConfig describing the
// first problem found.
func (c *Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.LogLevel)) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("%w: unknown log_level %q", ErrInvalidConfig, c.LogLevel)
	}
	switch {
	case strings.TrimSpace(c.Addr) == "":
		return fmt.Errorf("%w: addr must not be empty", ErrInvalidConfig)
	case c.TickIntervalMS <= 0:
		return fmt.Errorf("%w: tick_interval_ms must be positive", ErrInvalidConfig)
	case c.SchedulerCapacity <= 0:
		return fmt.Errorf("%w: scheduler_capacity must be positive", ErrInvalidConfig)
	case c.UserID < 0:
		return fmt.Errorf("%w: user_id must not be negative", ErrInvalidConfig)
	case c.EventBuffer < 0:
		return fmt.Errorf("%w: event_buffer must not be negative", ErrInvalidConfig)
	}
	if _, ok := model.LookupRuleset(c.DefaultRuleset); !ok {
		return fmt.Errorf("%w: unknown default_ruleset %d", ErrInvalidConfig, c.DefaultRuleset)
	}
	return nil
}
