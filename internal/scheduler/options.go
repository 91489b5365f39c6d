package scheduler

import (
	"time"

	"github.com/okian/localrank/pkg/logger"
)

// Option applies a configuration option to the Scheduler.
type Option func(*Scheduler)

// WithCapacity bounds how many delegates may wait for a tick.
func WithCapacity(capacity int) Option {
	return func(s *Scheduler) {
		if capacity > 0 {
			s.capacity = capacity
		}
	}
}

// WithLogger sets a custom logger for the scheduler.
func WithLogger(l logger.Logger) Option {
	return func(s *Scheduler) {
		if l != nil {
			s.logger = l
		}
	}
}

// LoopOption applies a configuration option to the Loop.
type LoopOption func(*Loop)

// WithInterval sets the tick interval.
func WithInterval(interval time.Duration) LoopOption {
	return func(l *Loop) {
		if interval > 0 {
			l.interval = interval
		}
	}
}

// WithLoopLogger sets a custom logger for the loop.
func WithLoopLogger(lg logger.Logger) LoopOption {
	return func(l *Loop) {
		if lg != nil {
			l.logger = lg
		}
	}
}
