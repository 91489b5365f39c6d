package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/okian/localrank/pkg/logger"
	"github.com/okian/localrank/pkg/metrics"
)

const defaultActivitySize = 256

// ActivityFeed consumes score events from the bus and keeps the most recent
// ones for inspection, in the order they were consumed. Handlers run on the router's goroutines, never on the
// goroutine that wrote to the store.
type ActivityFeed struct {
	router *message.Router
	logger logger.Logger

	mu     sync.RWMutex
	events   []ScoreEvent
	next     int
	full     bool
	consumed uint64
}

// ActivityOption configures an ActivityFeed.
type ActivityOption func(*activityConfig)

type activityConfig struct {
	size   int
	logger logger.Logger
}

// WithActivitySize bounds how many events the feed retains.
func WithActivitySize(n int) ActivityOption {
	return func(c *activityConfig) {
		if n > 0 {
			c.size = n
		}
	}
}

// WithActivityLogger sets a custom logger for the feed and its router.
func WithActivityLogger(l logger.Logger) ActivityOption {
	return func(c *activityConfig) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewActivityFeed registers handlers for both score topics on sub.
func NewActivityFeed(sub message.Subscriber, opts ...ActivityOption) (*ActivityFeed, error) {
	if sub == nil {
		return nil, ErrNilSubscriber
	}
	cfg := activityConfig{size: defaultActivitySize}
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.logger == nil {
		cfg.logger = logger.Get().Named("activity")
	}

	router, err := message.NewRouter(message.RouterConfig{}, watermill.NewSlogLogger(logger.Slog(cfg.logger)))
	if err != nil {
		return nil, fmt.Errorf("create router: %w", err)
	}
	router.AddMiddleware(middleware.Recoverer)

	f := &ActivityFeed{
		router: router,
		logger: cfg.logger,
		events: make([]ScoreEvent, cfg.size),
	}
	for _, topic := range []string{TopicScoreAdded, TopicScoreRemoved} {
		router.AddNoPublisherHandler("activity."+topic, topic, sub, f.handle)
	}
	return f, nil
}

// Run consumes until ctx is cancelled or Close is called.
func (f *ActivityFeed) Run(ctx context.Context) error {
	return f.router.Run(ctx)
}

// Running is closed once the handlers are subscribed.
func (f *ActivityFeed) Running() <-chan struct{} {
	return f.router.Running()
}

// Close stops the router and waits for in-flight handlers.
func (f *ActivityFeed) Close() error {
	return f.router.Close()
}

// Recent returns up to limit events, newest first. A non-positive limit
// returns everything retained.
func (f *ActivityFeed) Recent(limit int) []ScoreEvent {
	f.mu.RLock()
	defer f.mu.RUnlock()

	n := f.next
	if f.full {
		n = len(f.events)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]ScoreEvent, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (f.next - i + len(f.events)) % len(f.events)
		out = append(out, f.events[idx])
	}
	return out
}

// Consumed returns how many events the feed has recorded since it started.
func (f *ActivityFeed) Consumed() uint64 {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.consumed
}

// handle records one message. Undecodable payloads are acked and dropped so
// the bus does not redeliver them forever.
func (f *ActivityFeed) handle(msg *message.Message) error {
	topic := msg.Metadata.Get(MetadataEventType)
	var ev ScoreEvent
	if err := json.Unmarshal(msg.Payload, &ev); err != nil {
		metrics.RecordErrorByComponent("activity", "decode")
		f.logger.Warn(msg.Context(), "dropping undecodable score event",
			logger.String("message_id", msg.UUID),
			logger.String("topic", topic),
			logger.Error(err),
		)
		return nil
	}

	f.mu.Lock()
	f.events[f.next] = ev
	f.next = (f.next + 1) % len(f.events)
	if f.next == 0 {
		f.full = true
	}
	f.consumed++
	f.mu.Unlock()

	metrics.RecordEventConsumed(ev.Type)
	f.logger.Debug(msg.Context(), "score event consumed",
		logger.String("topic", ev.Type),
		logger.String("score_id", ev.ScoreID),
		logger.Int64("beatmap_id", ev.BeatmapID),
	)
	return nil
}
