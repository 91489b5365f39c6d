// Package scheduler runs callbacks on a single update thread, one tick at a time.
package scheduler

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/localrank/pkg/logger"
	"github.com/okian/localrank/pkg/metrics"
)

const defaultCapacity = 10_000

const (
	statePending int32 = iota
	stateRunning
	stateCompleted
	stateCancelled
)

// Delegate is a handle to a scheduled callback.
type Delegate struct {
	fn    func()
	state atomic.Int32
}

// Pending reports whether the callback has neither run nor been cancelled.
func (d *Delegate) Pending() bool {
	s := d.state.Load()
	return s == statePending || s == stateRunning
}

// Completed reports whether the callback has finished running.
func (d *Delegate) Completed() bool { return d.state.Load() == stateCompleted }

// Cancelled reports whether the callback was cancelled before it ran.
func (d *Delegate) Cancelled() bool { return d.state.Load() == stateCancelled }

// Cancel prevents a pending callback from running. It has no effect once the
// callback has started.
func (d *Delegate) Cancel() bool {
	return d.state.CompareAndSwap(statePending, stateCancelled)
}

// Scheduler queues callbacks for the next Update. It is safe to Add from any
// goroutine; Update must only be called from the owning update goroutine.
type Scheduler struct {
	mu       sync.Mutex
	queue    []*Delegate
	capacity int
	stopped  bool
	logger   logger.Logger
}

// New creates a Scheduler.
func New(opts ...Option) *Scheduler {
	s := &Scheduler{capacity: defaultCapacity}
	for _, opt := range opts {
		opt(s)
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("scheduler")
	}
	metrics.UpdateSchedulerQueueDepth(0)
	return s
}

// Add queues fn for the next tick. fn never runs inside Add.
func (s *Scheduler) Add(fn func()) (*Delegate, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.stopped {
		metrics.RecordSchedulerTaskRejected()
		return nil, ErrStopped
	}
	if len(s.queue) >= s.capacity {
		metrics.RecordSchedulerTaskRejected()
		return nil, fmt.Errorf("%w: capacity %d", ErrQueueFull, s.capacity)
	}

	d := &Delegate{fn: fn}
	s.queue = append(s.queue, d)
	metrics.UpdateSchedulerQueueDepth(len(s.queue))
	return d, nil
}

// Update runs, in the order they were added, every delegate queued before the
// call. Delegates added while the tick runs wait for the next one. It returns
// the number of delegates that ran.
func (s *Scheduler) Update(ctx context.Context) int {
	s.mu.Lock()
	batch := s.queue
	s.queue = nil
	s.mu.Unlock()

	if len(batch) == 0 {
		return 0
	}

	start := time.Now()
	ran := 0
	for _, d := range batch {
		if !d.state.CompareAndSwap(statePending, stateRunning) {
			metrics.RecordSchedulerTaskCancelled()
			continue
		}
		s.run(ctx, d)
		d.state.Store(stateCompleted)
		ran++
		metrics.RecordSchedulerTaskRun()
	}

	metrics.UpdateSchedulerQueueDepth(s.Len())
	metrics.RecordSchedulerTick(float64(time.Since(start).Microseconds()) / 1000)
	return ran
}

func (s *Scheduler) run(ctx context.Context, d *Delegate) {
	defer func() {
		if r := recover(); r != nil {
			metrics.RecordErrorByComponent("scheduler", "panic")
			s.logger.Error(ctx, "scheduled callback panicked", logger.Any("panic", r))
		}
	}()
	d.fn()
}

// Len returns the number of delegates waiting for the next tick.
func (s *Scheduler) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.queue)
}

// Stop rejects further Adds and cancels everything still queued.
func (s *Scheduler) Stop() {
	s.mu.Lock()
	batch := s.queue
	s.queue = nil
	s.stopped = true
	s.mu.Unlock()

	for _, d := range batch {
		d.Cancel()
	}
	metrics.UpdateSchedulerQueueDepth(0)
}

// Stopped reports whether Stop has been called.
func (s *Scheduler) Stopped() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.stopped
}
