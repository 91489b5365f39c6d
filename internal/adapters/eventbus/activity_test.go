package eventbus_test

import (
	"context"
	"io"
	"testing"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/okian/localrank/internal/adapters/eventbus"
	"github.com/okian/localrank/internal/adapters/repository"
	"github.com/okian/localrank/internal/domain/model"
	"github.com/okian/localrank/pkg/logger"
	. "github.com/smartystreets/goconvey/convey"
)

func waitFor(cond func() bool) bool {
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return true
		}
		time.Sleep(5 * time.Millisecond)
	}
	return cond()
}

func TestActivityFeed(t *testing.T) {
	Convey("Given a feed consuming a bridged store", t, func() {
		ctx, cancel := context.WithCancel(context.Background())
		quiet := logger.New(io.Discard)
		store := repository.NewScoreStore(ctx, repository.WithLogger(quiet))
		pubsub := eventbus.NewGoChannel(16, quiet)

		feed, err := eventbus.NewActivityFeed(pubsub,
			eventbus.WithActivitySize(3),
			eventbus.WithActivityLogger(quiet),
		)
		So(err, ShouldBeNil)
		go func() { _ = feed.Run(ctx) }()
		<-feed.Running()

		bridge, err := eventbus.NewBridge(store, pubsub, eventbus.WithLogger(quiet))
		So(err, ShouldBeNil)
		Reset(func() {
			_ = bridge.Close()
			_ = feed.Close()
			_ = pubsub.Close()
			_ = store.Close()
			cancel()
		})

		Convey("When a score is added and then deleted", func() {
			s, err := store.Add(ctx, model.ScoreInfo{UserID: 1, BeatmapID: 5, TotalScore: 900, Accuracy: 0.91})
			So(err, ShouldBeNil)
			So(waitFor(func() bool { return len(feed.Recent(0)) == 1 }), ShouldBeTrue)
			So(store.Delete(ctx, s.ID), ShouldBeNil)

			Convey("Then both events are listed newest first", func() {
				So(waitFor(func() bool { return len(feed.Recent(0)) == 2 }), ShouldBeTrue)
				got := feed.Recent(0)
				So(got[0].Type, ShouldEqual, eventbus.TopicScoreRemoved)
				So(got[1].Type, ShouldEqual, eventbus.TopicScoreAdded)
				So(got[1].ScoreID, ShouldEqual, s.ID.String())
				So(got[1].Rank, ShouldEqual, "A")
			})
		})

		Convey("When more events arrive than the feed retains", func() {
			for i := int64(1); i <= 5; i++ {
				_, err := store.Add(ctx, model.ScoreInfo{UserID: 1, BeatmapID: i, TotalScore: i * 100, Accuracy: 0.9})
				So(err, ShouldBeNil)
			}

			Convey("Then only the last three consumed are kept", func() {
				So(waitFor(func() bool { return feed.Consumed() == 5 }), ShouldBeTrue)
				all := feed.Recent(0)
				So(all, ShouldHaveLength, 3)
				seen := map[int64]bool{}
				for _, ev := range all {
					seen[ev.BeatmapID] = true
				}
				So(seen, ShouldHaveLength, 3)
				So(feed.Recent(2), ShouldResemble, all[:2])
			})
		})

		Convey("When a malformed payload is published", func() {
			msg := message.NewMessage(watermill.NewUUID(), []byte("not json"))
			So(pubsub.Publish(eventbus.TopicScoreAdded, msg), ShouldBeNil)
			_, err := store.Add(ctx, model.ScoreInfo{UserID: 1, BeatmapID: 9, TotalScore: 100, Accuracy: 0.9})
			So(err, ShouldBeNil)

			Convey("Then it is dropped and later events still arrive", func() {
				So(waitFor(func() bool { return len(feed.Recent(0)) == 1 }), ShouldBeTrue)
				So(feed.Recent(0)[0].BeatmapID, ShouldEqual, 9)
			})
		})
	})

	Convey("Given no subscriber", t, func() {
		_, err := eventbus.NewActivityFeed(nil)

		Convey("Then the feed is rejected", func() {
			So(err, ShouldEqual, eventbus.ErrNilSubscriber)
		})
	})
}
