package scheduler

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/okian/localrank/pkg/logger"
)

const defaultInterval = time.Second / 60

// Loop is the update thread: it calls Scheduler.Update once per interval
// from a single goroutine.
type Loop struct {
	sched    *Scheduler
	interval time.Duration
	logger   logger.Logger

	shutdown     chan struct{}
	shutdownOnce sync.Once
	done         chan struct{}
}

// NewLoop creates a loop driving s.
func NewLoop(s *Scheduler, opts ...LoopOption) *Loop {
	l := &Loop{
		sched:    s,
		interval: defaultInterval,
		shutdown: make(chan struct{}),
		done:     make(chan struct{}),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get().Named("loop")
	}
	return l
}

// Run ticks until ctx is cancelled or Shutdown is called. Any delegates still
// queued when it stops get one final tick.
func (l *Loop) Run(ctx context.Context) {
	defer close(l.done)

	ticker := time.NewTicker(l.interval)
	defer ticker.Stop()

	l.logger.Debug(ctx, "update loop started", logger.Duration("interval", l.interval))
	for {
		select {
		case <-ctx.Done():
			l.sched.Update(context.WithoutCancel(ctx))
			return
		case <-l.shutdown:
			l.sched.Update(ctx)
			return
		case <-ticker.C:
			l.sched.Update(ctx)
		}
	}
}

// Shutdown stops the loop and waits for it to exit or ctx to expire.
func (l *Loop) Shutdown(ctx context.Context) error {
	l.shutdownOnce.Do(func() { close(l.shutdown) })

	select {
	case <-l.done:
		return nil
	case <-ctx.Done():
		l.logger.Warn(ctx, "update loop shutdown timed out")
		return fmt.Errorf("loop shutdown timed out: %w", ctx.Err())
	}
}

// Done is closed when Run returns.
func (l *Loop) Done() <-chan struct{} {
	return l.done
}
