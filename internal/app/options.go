package service

import (
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/okian/localrank/internal/domain/model"
	"github.com/okian/localrank/pkg/logger"
)

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithTickInterval sets the update loop period.
func WithTickInterval(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.tickInterval = d
		}
	}
}

// WithSchedulerCapacity sets the maximum number of queued updates.
func WithSchedulerCapacity(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.schedulerCapacity = n
		}
	}
}

// WithDefaultRuleset sets the ruleset selected at start.
func WithDefaultRuleset(id int) Option {
	return func(s *Service) {
		s.defaultRuleset = id
	}
}

// WithDefaultUser logs u in at start. A zero id leaves the session empty.
func WithDefaultUser(u model.User) Option {
	return func(s *Service) {
		s.defaultUser = u
	}
}

// WithSeedFile loads scores from a YAML file at start.
func WithSeedFile(path string) Option {
	return func(s *Service) {
		s.seedFile = path
	}
}

// WithPublisher forwards store mutations to pub.
func WithPublisher(pub message.Publisher) Option {
	return func(s *Service) {
		s.publisher = pub
	}
}

// WithManualTicks disables the update loop; the caller drives Tick instead.
func WithManualTicks() Option {
	return func(s *Service) {
		s.manualTicks = true
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(l logger.Logger) Option {
	return func(s *Service) {
		if l != nil {
			s.logger = l
		}
	}
}
