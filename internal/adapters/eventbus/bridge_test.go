package eventbus_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"

	"github.com/okian/localrank/internal/adapters/eventbus"
	"github.com/okian/localrank/internal/adapters/repository"
	"github.com/okian/localrank/internal/domain/model"
	"github.com/okian/localrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

type failingPublisher struct {
	calls int
}

func (p *failingPublisher) Publish(string, ...*message.Message) error {
	p.calls++
	return errors.New("broker down")
}

func (p *failingPublisher) Close() error { return nil }

func receive(ch <-chan *message.Message) *message.Message {
	select {
	case msg := <-ch:
		msg.Ack()
		return msg
	case <-time.After(2 * time.Second):
		return nil
	}
}

func TestBridge(t *testing.T) {
	Convey("Given a store bridged onto an in-process pub/sub", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		quiet := logger.New(io.Discard)
		store := repository.NewScoreStore(ctx, repository.WithLogger(quiet))
		pubsub := eventbus.NewGoChannel(16, quiet)
		now := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

		bridge, err := eventbus.NewBridge(store, pubsub,
			eventbus.WithLogger(quiet),
			eventbus.WithClock(func() time.Time { return now }),
		)
		So(err, ShouldBeNil)
		Reset(func() {
			_ = bridge.Close()
			_ = pubsub.Close()
			_ = store.Close()
			cancel()
		})

		added, err := pubsub.Subscribe(ctx, eventbus.TopicScoreAdded)
		So(err, ShouldBeNil)
		removed, err := pubsub.Subscribe(ctx, eventbus.TopicScoreRemoved)
		So(err, ShouldBeNil)

		Convey("When a score is added", func() {
			s, err := store.Add(ctx, model.ScoreInfo{
				UserID: 1, BeatmapID: 5, TotalScore: 1200, Accuracy: 0.96, Rank: model.RankS,
			})
			So(err, ShouldBeNil)
			msg := receive(added)

			Convey("Then a score.added message carries it", func() {
				So(msg, ShouldNotBeNil)
				So(msg.UUID, ShouldNotBeEmpty)
				So(msg.Metadata.Get(eventbus.MetadataBeatmapID), ShouldEqual, "5")
				So(msg.Metadata.Get(eventbus.MetadataEventType), ShouldEqual, eventbus.TopicScoreAdded)

				var got eventbus.ScoreEvent
				So(json.Unmarshal(msg.Payload, &got), ShouldBeNil)
				want := eventbus.ScoreEvent{
					Type:       eventbus.TopicScoreAdded,
					ScoreID:    s.ID.String(),
					UserID:     1,
					BeatmapID:  5,
					TotalScore: 1200,
					Accuracy:   0.96,
					Rank:       "S",
					OccurredAt: now,
				}
				So(cmp.Diff(want, got, cmpopts.EquateApproxTime(time.Millisecond)), ShouldBeEmpty)
			})

			Convey("And then deleted", func() {
				So(store.Delete(ctx, s.ID), ShouldBeNil)
				msg := receive(removed)

				Convey("Then a score.removed message follows", func() {
					So(msg, ShouldNotBeNil)
					var got eventbus.ScoreEvent
					So(json.Unmarshal(msg.Payload, &got), ShouldBeNil)
					So(got.Type, ShouldEqual, eventbus.TopicScoreRemoved)
					So(got.DeletePending, ShouldBeTrue)
				})
			})
		})

		Convey("When the bridge is closed", func() {
			So(bridge.Close(), ShouldBeNil)
			So(bridge.Close(), ShouldBeNil)

			Convey("Then it leaves the store and publishes nothing", func() {
				a, r := store.ListenerCount()
				So(a, ShouldEqual, 0)
				So(r, ShouldEqual, 0)

				_, err := store.Add(ctx, model.ScoreInfo{UserID: 1, BeatmapID: 5, Accuracy: 0.5})
				So(err, ShouldBeNil)
				select {
				case <-added:
					So("unexpected message", ShouldBeEmpty)
				case <-time.After(50 * time.Millisecond):
				}
			})
		})
	})
}

func TestBridge_Errors(t *testing.T) {
	Convey("Given missing dependencies", t, func() {
		_, err := eventbus.NewBridge(nil, &failingPublisher{})
		So(errors.Is(err, eventbus.ErrNilSource), ShouldBeTrue)

		store := repository.NewScoreStore(context.Background(), repository.WithLogger(logger.New(io.Discard)))
		defer store.Close()
		_, err = eventbus.NewBridge(store, nil)
		So(errors.Is(err, eventbus.ErrNilPublisher), ShouldBeTrue)
	})

	Convey("Given a publisher that fails", t, func() {
		ctx := context.Background()
		quiet := logger.New(io.Discard)
		store := repository.NewScoreStore(ctx, repository.WithLogger(quiet))
		defer store.Close()
		pub := &failingPublisher{}
		bridge, err := eventbus.NewBridge(store, pub, eventbus.WithLogger(quiet))
		So(err, ShouldBeNil)
		defer bridge.Close()

		Convey("Then store writes still succeed", func() {
			_, err := store.Add(ctx, model.ScoreInfo{UserID: 1, BeatmapID: 5, Accuracy: 0.5})
			So(err, ShouldBeNil)
			So(pub.calls, ShouldEqual, 1)
		})
	})
}
