// Package eventbus republishes score store mutations as watermill messages.
package eventbus

import (
	"context"
	"encoding/json"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"

	"github.com/okian/localrank/internal/domain/model"
	"github.com/okian/localrank/pkg/logger"
	"github.com/okian/localrank/pkg/metrics"
)

// Topics and metadata keys.
const (
	TopicScoreAdded   = "score.added"
	TopicScoreRemoved = "score.removed"

	MetadataBeatmapID = "beatmap_id"
	MetadataEventType = "event_type"
)

// ScoreSource is the hook side of the score store.
type ScoreSource interface {
	OnItemAdded(fn func(model.ScoreInfo)) (unsubscribe func())
	OnItemRemoved(fn func(model.ScoreInfo)) (unsubscribe func())
}

// ScoreEvent is the JSON payload of every published message.
type ScoreEvent struct {
	Type          string    `json:"type"`
	ScoreID       string    `json:"score_id"`
	UserID        int64     `json:"user_id"`
	BeatmapID     int64     `json:"beatmap_id"`
	RulesetID     int       `json:"ruleset_id"`
	TotalScore    int64     `json:"total_score"`
	Accuracy      float64   `json:"accuracy"`
	Rank          string    `json:"rank"`
	DeletePending bool      `json:"delete_pending"`
	OccurredAt    time.Time `json:"occurred_at"`
}

// Bridge forwards store hooks to a publisher until closed.
type Bridge struct {
	publisher message.Publisher
	logger    logger.Logger
	clock     func() time.Time

	mu            sync.Mutex
	closed        bool
	unsubscribers []func()
}

// NewBridge subscribes to src and publishes every addition and removal to pub.
// The publisher stays owned by the caller.
func NewBridge(src ScoreSource, pub message.Publisher, opts ...Option) (*Bridge, error) {
	if src == nil {
		return nil, ErrNilSource
	}
	if pub == nil {
		return nil, ErrNilPublisher
	}
	b := &Bridge{
		publisher: pub,
		clock:     time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logger.Get().Named("eventbus")
	}

	b.unsubscribers = []func(){
		src.OnItemAdded(func(s model.ScoreInfo) { b.publish(TopicScoreAdded, s) }),
		src.OnItemRemoved(func(s model.ScoreInfo) { b.publish(TopicScoreRemoved, s) }),
	}
	return b, nil
}

// NewGoChannel returns an in-process pub/sub logging through lg.
func NewGoChannel(buffer int, lg logger.Logger) *gochannel.GoChannel {
	if buffer < 0 {
		buffer = 0
	}
	return gochannel.NewGoChannel(
		gochannel.Config{OutputChannelBuffer: int64(buffer)},
		watermill.NewSlogLogger(logger.Slog(lg)),
	)
}

// Close stops forwarding. It is safe to call more than once.
func (b *Bridge) Close() error {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return nil
	}
	b.closed = true
	subs := b.unsubscribers
	b.unsubscribers = nil
	b.mu.Unlock()

	for _, unsubscribe := range subs {
		unsubscribe()
	}
	return nil
}

func (b *Bridge) publish(topic string, s model.ScoreInfo) {
	b.mu.Lock()
	closed := b.closed
	b.mu.Unlock()
	if closed {
		return
	}

	ctx := context.Background()
	payload, err := json.Marshal(ScoreEvent{
		Type:          topic,
		ScoreID:       s.ID.String(),
		UserID:        s.UserID,
		BeatmapID:     s.BeatmapID,
		RulesetID:     s.RulesetID,
		TotalScore:    s.TotalScore,
		Accuracy:      s.Accuracy,
		Rank:          s.Rank.String(),
		DeletePending: s.DeletePending,
		OccurredAt:    b.clock().UTC(),
	})
	if err != nil {
		metrics.RecordPublishError()
		b.logger.Error(ctx, "failed to marshal score event", logger.String("topic", topic), logger.Error(err))
		return
	}

	msg := message.NewMessage(watermill.NewUUID(), payload)
	msg.Metadata.Set(MetadataBeatmapID, strconv.FormatInt(s.BeatmapID, 10))
	msg.Metadata.Set(MetadataEventType, topic)

	if err := b.publisher.Publish(topic, msg); err != nil {
		metrics.RecordPublishError()
		b.logger.Error(ctx, "failed to publish score event",
			logger.String("topic", topic),
			logger.String("message_id", msg.UUID),
			logger.Error(err),
		)
		return
	}
	metrics.RecordEventPublished(topic)
	b.logger.Debug(ctx, "score event published",
		logger.String("topic", topic),
		logger.String("score_id", s.ID.String()),
	)
}
