package scheduler

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/okian/localrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func newTestScheduler(opts ...Option) *Scheduler {
	return New(append([]Option{WithLogger(logger.New(io.Discard))}, opts...)...)
}

func TestScheduler(t *testing.T) {
	Convey("Given a scheduler", t, func() {
		ctx := context.Background()
		s := newTestScheduler()

		Convey("When callbacks are added", func() {
			var order []int
			d1, err1 := s.Add(func() { order = append(order, 1) })
			d2, err2 := s.Add(func() { order = append(order, 2) })

			Convey("Then nothing runs until the next tick", func() {
				So(err1, ShouldBeNil)
				So(err2, ShouldBeNil)
				So(order, ShouldBeEmpty)
				So(d1.Pending(), ShouldBeTrue)
				So(s.Len(), ShouldEqual, 2)
			})

			Convey("And a tick runs them in order and marks them completed", func() {
				So(s.Update(ctx), ShouldEqual, 2)
				So(order, ShouldResemble, []int{1, 2})
				So(d1.Completed(), ShouldBeTrue)
				So(d2.Completed(), ShouldBeTrue)
				So(d1.Pending(), ShouldBeFalse)
				So(s.Len(), ShouldEqual, 0)
			})
		})

		Convey("When a callback schedules another during a tick", func() {
			var order []string
			s.Add(func() {
				order = append(order, "outer")
				s.Add(func() { order = append(order, "inner") })
			})
			s.Update(ctx)

			Convey("Then the nested one waits for the following tick", func() {
				So(order, ShouldResemble, []string{"outer"})
				s.Update(ctx)
				So(order, ShouldResemble, []string{"outer", "inner"})
			})
		})

		Convey("When a pending delegate is cancelled", func() {
			ran := false
			d, _ := s.Add(func() { ran = true })
			So(d.Cancel(), ShouldBeTrue)

			Convey("Then it is skipped and no longer pending", func() {
				So(s.Update(ctx), ShouldEqual, 0)
				So(ran, ShouldBeFalse)
				So(d.Cancelled(), ShouldBeTrue)
				So(d.Pending(), ShouldBeFalse)
				So(d.Completed(), ShouldBeFalse)
			})

			Convey("And cancelling a completed delegate has no effect", func() {
				d2, _ := s.Add(func() {})
				s.Update(ctx)
				So(d2.Cancel(), ShouldBeFalse)
				So(d2.Completed(), ShouldBeTrue)
			})
		})

		Convey("When a callback panics", func() {
			after := false
			d, _ := s.Add(func() { panic("boom") })
			s.Add(func() { after = true })

			Convey("Then the tick carries on", func() {
				So(func() { s.Update(ctx) }, ShouldNotPanic)
				So(after, ShouldBeTrue)
				So(d.Completed(), ShouldBeTrue)
			})
		})

		Convey("When stopped", func() {
			d, _ := s.Add(func() {})
			s.Stop()

			Convey("Then queued delegates are cancelled and new ones rejected", func() {
				So(d.Cancelled(), ShouldBeTrue)
				So(s.Stopped(), ShouldBeTrue)
				_, err := s.Add(func() {})
				So(errors.Is(err, ErrStopped), ShouldBeTrue)
			})
		})
	})

	Convey("Given a scheduler with capacity 1", t, func() {
		s := newTestScheduler(WithCapacity(1))
		_, err := s.Add(func() {})
		So(err, ShouldBeNil)

		Convey("When the queue is full", func() {
			_, err := s.Add(func() {})

			Convey("Then ErrQueueFull is returned", func() {
				So(errors.Is(err, ErrQueueFull), ShouldBeTrue)
			})
		})
	})
}

func TestScheduler_ConcurrentAdd(t *testing.T) {
	s := newTestScheduler()
	ctx := context.Background()

	var (
		mu    sync.Mutex
		count int
		wg    sync.WaitGroup
	)
	for g := 0; g < 8; g++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := 0; i < 100; i++ {
				if _, err := s.Add(func() {
					mu.Lock()
					count++
					mu.Unlock()
				}); err != nil {
					t.Errorf("unexpected error: %v", err)
				}
			}
		}()
	}
	wg.Wait()

	if ran := s.Update(ctx); ran != 800 {
		t.Errorf("expected 800 delegates to run, got %d", ran)
	}
	if count != 800 {
		t.Errorf("expected count 800, got %d", count)
	}
}

func TestLoop(t *testing.T) {
	Convey("Given a running loop", t, func() {
		s := newTestScheduler()
		l := NewLoop(s, WithInterval(time.Millisecond), WithLoopLogger(logger.New(io.Discard)))
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		go l.Run(ctx)

		Convey("When a delegate is added", func() {
			ran := make(chan struct{})
			d, err := s.Add(func() { close(ran) })
			So(err, ShouldBeNil)

			Convey("Then the loop runs it", func() {
				select {
				case <-ran:
				case <-time.After(time.Second):
					t.Fatal("delegate did not run")
				}
				So(l.Shutdown(context.Background()), ShouldBeNil)
				So(d.Completed(), ShouldBeTrue)
			})
		})

		Convey("When shut down twice", func() {
			So(l.Shutdown(context.Background()), ShouldBeNil)
			So(l.Shutdown(context.Background()), ShouldBeNil)

			Convey("Then Done is closed", func() {
				select {
				case <-l.Done():
				default:
					t.Fatal("expected loop to be done")
				}
			})
		})
	})

	Convey("Given a loop that was never started", t, func() {
		l := NewLoop(newTestScheduler(), WithLoopLogger(logger.New(io.Discard)))

		Convey("When shutting down with a short deadline", func() {
			ctx, cancel := context.WithTimeout(context.Background(), 10*time.Millisecond)
			defer cancel()
			err := l.Shutdown(ctx)

			Convey("Then it reports the timeout", func() {
				So(errors.Is(err, context.DeadlineExceeded), ShouldBeTrue)
			})
		})
	})
}
