package eventbus

import (
	"time"

	"github.com/okian/localrank/pkg/logger"
)

// Option applies a configuration option to the Bridge.
type Option func(*Bridge)

// WithLogger sets a custom logger for the bridge.
func WithLogger(l logger.Logger) Option {
	return func(b *Bridge) {
		if l != nil {
			b.logger = l
		}
	}
}

// WithClock sets the time source for event timestamps.
func WithClock(now func() time.Time) Option {
	return func(b *Bridge) {
		if now != nil {
			b.clock = now
		}
	}
}
