package repository

import (
	"time"

	"github.com/okian/localrank/internal/domain/scoring"
	"github.com/okian/localrank/pkg/logger"
)

// Option applies a configuration option to the ScoreStore.
type Option func(*ScoreStore)

// WithMetricsUpdateInterval sets the interval for background metrics updates.
func WithMetricsUpdateInterval(interval time.Duration) Option {
	return func(s *ScoreStore) {
		if interval > 0 {
			s.metricsUpdateInterval = interval
		}
	}
}

// WithGrader sets the grader used for scores stored without a rank.
func WithGrader(g *scoring.Grader) Option {
	return func(s *ScoreStore) {
		if g != nil {
			s.grader = g
		}
	}
}

// WithClock sets the time source used to date undated scores.
func WithClock(now func() time.Time) Option {
	return func(s *ScoreStore) {
		if now != nil {
			s.clock = now
		}
	}
}

// WithLogger sets a custom logger for the store.
func WithLogger(l logger.Logger) Option {
	return func(s *ScoreStore) {
		if l != nil {
			s.logger = l
		}
	}
}
