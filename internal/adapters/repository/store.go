// Package repository holds the local score store.
package repository

import (
	"context"
	"fmt"
	"math"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/okian/localrank/internal/domain/model"
	"github.com/okian/localrank/internal/domain/scoring"
	"github.com/okian/localrank/pkg/logger"
	"github.com/okian/localrank/pkg/metrics"
)

const defaultMetricsUpdateInterval = 5 * time.Second

// Predicate selects scores in a query.
type Predicate = func(model.ScoreInfo) bool

// Listener receives a copy of a score that was added to or removed from the
// visible set.
type Listener = func(model.ScoreInfo)

// Store is the score collection consumed by the rank indicator.
type Store interface {
	// Query returns matching scores ordered by total score desc, then storage order.
	Query(ctx context.Context, match Predicate) []model.ScoreInfo
	// OnItemAdded registers fn for added or restored scores.
	OnItemAdded(fn Listener) (unsubscribe func())
	// OnItemRemoved registers fn for scores marked for deletion.
	OnItemRemoved(fn Listener) (unsubscribe func())
}

type record struct {
	score model.ScoreInfo
	seq   uint64
}

type hook struct {
	id uint64
	fn Listener
}

// ScoreStore is an in-memory Store. Writes notify listeners after the store
// lock is released, on the writer's goroutine.
type ScoreStore struct {
	mu      sync.RWMutex
	root    *node
	byID    map[uuid.UUID]*record
	nextSeq uint64

	hooksMu  sync.RWMutex
	added    []hook
	removed  []hook
	nextHook uint64

	grader                *scoring.Grader
	clock                 func() time.Time
	logger                logger.Logger
	metricsUpdateInterval time.Duration

	wg       sync.WaitGroup
	stopChan chan struct{}
	stopOnce sync.Once
}

// NewScoreStore constructs an empty store and starts its metrics updater.
func NewScoreStore(ctx context.Context, opts ...Option) *ScoreStore {
	s := &ScoreStore{
		byID:                  make(map[uuid.UUID]*record),
		clock:                 time.Now,
		metricsUpdateInterval: defaultMetricsUpdateInterval,
		stopChan:              make(chan struct{}),
	}
	for _, opt := range opts {
		opt(s)
	}
	if s.grader == nil {
		s.grader = scoring.NewGrader()
	}
	if s.logger == nil {
		s.logger = logger.Get().Named("store")
	}

	metrics.UpdateStoreRecords(0)
	s.startMetricsUpdater(ctx)
	return s
}

// Close stops the background metrics updater. It is safe to call more than once.
func (s *ScoreStore) Close() error {
	s.stopOnce.Do(func() { close(s.stopChan) })
	s.wg.Wait()
	return nil
}

// Add stores score and returns the stored copy. A zero ID is replaced with a
// new UUID, an unset rank is graded from accuracy and mods, and a zero date
// is set to now.
func (s *ScoreStore) Add(ctx context.Context, score model.ScoreInfo) (model.ScoreInfo, error) {
	start := time.Now()
	defer func() { metrics.RecordStoreUpdateLatency(msSince(start)) }()

	if err := validate(score); err != nil {
		metrics.RecordErrorByComponent("store", "invalid_score")
		return model.ScoreInfo{}, err
	}

	score = score.Clone()
	if score.ID == uuid.Nil {
		score.ID = uuid.New()
	}
	score.Rank = s.grader.Rank(score)
	if score.Date.IsZero() {
		score.Date = s.clock()
	}

	s.mu.Lock()
	if _, ok := s.byID[score.ID]; ok {
		s.mu.Unlock()
		metrics.RecordErrorByComponent("store", "duplicate")
		return model.ScoreInfo{}, fmt.Errorf("%w: %s", ErrDuplicateScore, score.ID)
	}
	s.nextSeq++
	rec := &record{score: score, seq: s.nextSeq}
	s.byID[score.ID] = rec
	s.root = insert(s.root, rec)
	n := len(s.byID)
	s.mu.Unlock()

	metrics.RecordStoreMutation("add")
	metrics.UpdateStoreRecords(n)
	s.logger.Debug(ctx, "score added",
		logger.String("score_id", score.ID.String()),
		logger.Int64("beatmap_id", score.BeatmapID),
		logger.Int64("total_score", score.TotalScore),
	)

	out := score.Clone()
	if !score.DeletePending {
		s.notify(s.hooks(&s.added), out)
	}
	return out, nil
}

// Delete marks a score as pending deletion and notifies removal listeners.
// Deleting a score that is already pending is a no-op.
func (s *ScoreStore) Delete(ctx context.Context, id uuid.UUID) error {
	return s.setPending(ctx, id, true)
}

// Undelete clears the pending deletion mark and notifies addition listeners.
func (s *ScoreStore) Undelete(ctx context.Context, id uuid.UUID) error {
	return s.setPending(ctx, id, false)
}

func (s *ScoreStore) setPending(ctx context.Context, id uuid.UUID, pending bool) error {
	start := time.Now()
	defer func() { metrics.RecordStoreUpdateLatency(msSince(start)) }()

	s.mu.Lock()
	rec, ok := s.byID[id]
	if !ok {
		s.mu.Unlock()
		metrics.RecordErrorByComponent("store", "not_found")
		return fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if rec.score.DeletePending == pending {
		s.mu.Unlock()
		return nil
	}
	rec.score.DeletePending = pending
	out := rec.score.Clone()
	s.mu.Unlock()

	if pending {
		metrics.RecordStoreMutation("delete")
		s.logger.Debug(ctx, "score marked for deletion", logger.String("score_id", id.String()))
		s.notify(s.hooks(&s.removed), out)
	} else {
		metrics.RecordStoreMutation("undelete")
		s.logger.Debug(ctx, "score restored", logger.String("score_id", id.String()))
		s.notify(s.hooks(&s.added), out)
	}
	return nil
}

// PurgeDeleted physically removes every score pending deletion and returns
// how many were removed. Listeners were already told at Delete time.
func (s *ScoreStore) PurgeDeleted(ctx context.Context) int {
	s.mu.Lock()
	purged := 0
	for id, rec := range s.byID {
		if rec.score.DeletePending {
			s.root = remove(s.root, rec)
			delete(s.byID, id)
			purged++
		}
	}
	n := len(s.byID)
	s.mu.Unlock()

	if purged > 0 {
		metrics.RecordStoreMutation("purge")
		metrics.UpdateStoreRecords(n)
		s.logger.Info(ctx, "purged deleted scores", logger.Int("count", purged))
	}
	return purged
}

// Get returns a copy of the score with id.
func (s *ScoreStore) Get(ctx context.Context, id uuid.UUID) (model.ScoreInfo, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.byID[id]
	if !ok {
		return model.ScoreInfo{}, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	return rec.score.Clone(), nil
}

// Count returns the number of stored scores, including those pending deletion.
func (s *ScoreStore) Count(ctx context.Context) int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.byID)
}

// Query implements Store. A nil predicate matches everything. The whole walk
// happens under one read lock, so results reflect a single snapshot.
func (s *ScoreStore) Query(ctx context.Context, match Predicate) []model.ScoreInfo {
	var out []model.ScoreInfo
	s.mu.RLock()
	walk(s.root, func(r *record) bool {
		if match == nil || match(r.score) {
			out = append(out, r.score.Clone())
		}
		return true
	})
	s.mu.RUnlock()
	return out
}

// First returns the first score Query would return, stopping the walk early.
func (s *ScoreStore) First(ctx context.Context, match Predicate) (model.ScoreInfo, bool) {
	var (
		out   model.ScoreInfo
		found bool
	)
	s.mu.RLock()
	walk(s.root, func(r *record) bool {
		if match == nil || match(r.score) {
			out, found = r.score.Clone(), true
			return false
		}
		return true
	})
	s.mu.RUnlock()
	return out, found
}

// OnItemAdded implements Store.
func (s *ScoreStore) OnItemAdded(fn Listener) func() {
	return s.subscribe(&s.added, fn)
}

// OnItemRemoved implements Store.
func (s *ScoreStore) OnItemRemoved(fn Listener) func() {
	return s.subscribe(&s.removed, fn)
}

// ListenerCount returns the number of registered added and removed listeners.
func (s *ScoreStore) ListenerCount() (added, removed int) {
	s.hooksMu.RLock()
	defer s.hooksMu.RUnlock()
	return len(s.added), len(s.removed)
}

func (s *ScoreStore) subscribe(list *[]hook, fn Listener) func() {
	s.hooksMu.Lock()
	s.nextHook++
	id := s.nextHook
	*list = append(*list, hook{id: id, fn: fn})
	s.hooksMu.Unlock()

	var once sync.Once
	return func() {
		once.Do(func() {
			s.hooksMu.Lock()
			defer s.hooksMu.Unlock()
			for i, h := range *list {
				if h.id == id {
					*list = append((*list)[:i:i], (*list)[i+1:]...)
					return
				}
			}
		})
	}
}

func (s *ScoreStore) hooks(list *[]hook) []hook {
	s.hooksMu.RLock()
	defer s.hooksMu.RUnlock()
	out := make([]hook, len(*list))
	copy(out, *list)
	return out
}

func (s *ScoreStore) notify(hs []hook, score model.ScoreInfo) {
	for _, h := range hs {
		h.fn(score.Clone())
	}
}

func (s *ScoreStore) startMetricsUpdater(ctx context.Context) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		ticker := time.NewTicker(s.metricsUpdateInterval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-s.stopChan:
				return
			case <-ticker.C:
				metrics.UpdateStoreRecords(s.Count(ctx))
			}
		}
	}()
}

func validate(score model.ScoreInfo) error {
	switch {
	case score.UserID <= 0:
		return fmt.Errorf("%w: user id %d", ErrInvalidScore, score.UserID)
	case score.BeatmapID <= 0:
		return fmt.Errorf("%w: beatmap id %d", ErrInvalidScore, score.BeatmapID)
	case score.RulesetID < 0:
		return fmt.Errorf("%w: ruleset id %d", ErrInvalidScore, score.RulesetID)
	case score.TotalScore < 0:
		return fmt.Errorf("%w: total score %d", ErrInvalidScore, score.TotalScore)
	case math.IsNaN(score.Accuracy) || score.Accuracy < 0 || score.Accuracy > 1:
		return fmt.Errorf("%w: accuracy %v", ErrInvalidScore, score.Accuracy)
	case score.Rank != model.RankNone && !score.Rank.Valid():
		return fmt.Errorf("%w: rank %d", ErrInvalidScore, int(score.Rank))
	}
	return nil
}

func msSince(t time.Time) float64 {
	return float64(time.Since(t).Microseconds()) / 1000
}
