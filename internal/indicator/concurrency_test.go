package indicator_test

import (
	"context"
	"io"
	"sync"
	"testing"
	"time"

	"github.com/okian/localrank/internal/domain/model"
	"github.com/okian/localrank/internal/domain/ranking"
	"github.com/okian/localrank/internal/indicator"
	"github.com/okian/localrank/internal/scheduler"
	"github.com/okian/localrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func TestLocalRankIndicator_RejectedSchedule(t *testing.T) {
	Convey("Given a scheduler that holds one update", t, func() {
		f := newFixture()
		Reset(func() { _ = f.store.Close() })
		f.sched = scheduler.New(scheduler.WithCapacity(1), scheduler.WithLogger(logger.New(io.Discard)))
		f.add(5, 1500, model.RankS, false)

		ind := indicator.New(&model.BeatmapInfo{ID: 5}, f.deps(), indicator.WithLogger(logger.New(io.Discard)))
		Reset(func() { ind.Dispose(f.ctx) })

		Convey("When activation queues an update and the next trigger is rejected", func() {
			ind.Activate(f.ctx)
			So(f.sched.Len(), ShouldEqual, 1)
			f.add(5, 800, model.RankB, false)
			So(f.sched.Len(), ShouldEqual, 1)

			Convey("Then the queued update is still pending", func() {
				So(ind.State().Pending, ShouldBeTrue)
				So(ind.IsPresent(), ShouldBeTrue)
			})

			Convey("Then the tick applies the queued result", func() {
				So(f.tick(), ShouldEqual, 1)
				rank, ok := ind.Rank()
				So(ok, ShouldBeTrue)
				So(rank, ShouldEqual, model.RankS)
				So(ind.IsPresent(), ShouldBeTrue)
				So(ind.State().Pending, ShouldBeFalse)
			})

			Convey("Then a later trigger is scheduled normally", func() {
				f.tick()
				f.add(5, 2000, model.RankX, false)
				So(f.sched.Len(), ShouldEqual, 1)
				f.tick()
				rank, _ := ind.Rank()
				So(rank, ShouldEqual, model.RankX)
			})
		})
	})
}

func TestLocalRankIndicator_ConcurrentTriggers(t *testing.T) {
	Convey("Given an indicator driven by a running update loop", t, func() {
		f := newFixture()
		Reset(func() { _ = f.store.Close() })

		ctx, cancel := context.WithCancel(context.Background())
		loop := scheduler.NewLoop(f.sched,
			scheduler.WithInterval(time.Millisecond),
			scheduler.WithLoopLogger(logger.New(io.Discard)),
		)
		go loop.Run(ctx)
		Reset(func() {
			cancel()
			<-loop.Done()
		})

		ind := indicator.New(&model.BeatmapInfo{ID: 5}, f.deps(), indicator.WithLogger(logger.New(io.Discard)))
		ind.Activate(f.ctx)
		Reset(func() { ind.Dispose(f.ctx) })

		Convey("When scores and rulesets change from many goroutines", func() {
			const writers = 8
			const perWriter = 40
			ranks := []model.ScoreRank{model.RankD, model.RankC, model.RankB, model.RankA, model.RankS, model.RankX}
			rulesets := []*model.RulesetInfo{&model.RulesetOsu, &model.RulesetTaiko}

			var (
				wg     sync.WaitGroup
				mu     sync.Mutex
				failed []error
			)
			for w := 0; w < writers; w++ {
				wg.Add(1)
				go func(w int) {
					defer wg.Done()
					for i := 0; i < perWriter; i++ {
						n := int64(w*perWriter + i)
						_, err := f.store.Add(f.ctx, model.ScoreInfo{
							UserID:        1,
							BeatmapID:     5 + n%2,
							RulesetID:     int((n / 2) % 2),
							TotalScore:    1000 + n*37%997,
							Accuracy:      0.9,
							Rank:          ranks[n%int64(len(ranks))],
							DeletePending: n%7 == 0,
						})
						if err != nil {
							mu.Lock()
							failed = append(failed, err)
							mu.Unlock()
						}
						if i%5 == 0 {
							f.ruleset.Set(rulesets[(w+i)%2])
						}
					}
				}(w)
			}
			wg.Wait()
			So(failed, ShouldBeEmpty)

			settled := func() bool {
				return f.sched.Len() == 0 && !ind.State().Pending
			}
			deadline := time.Now().Add(2 * time.Second)
			for !settled() && time.Now().Before(deadline) {
				time.Sleep(2 * time.Millisecond)
			}

			Convey("Then the badge matches the best score for the final state", func() {
				So(settled(), ShouldBeTrue)
				rs := f.ruleset.Value()
				want, found := f.store.First(f.ctx, ranking.Match(5, 1, rs.ID))
				rank, ok := ind.Rank()
				So(ok, ShouldEqual, found)
				if found {
					So(rank, ShouldEqual, want.Rank)
				}
				So(ind.IsPresent(), ShouldEqual, found)
			})
		})
	})
}
