// Package indicator keeps a beatmap panel's "best local rank" badge up to date.
//
// A LocalRankIndicator watches the score store, the selected ruleset and the
// logged-in user. Every change recomputes the best score synchronously and
// schedules the result onto the update thread; only the most recent
// computation is ever written. Presence is derived: the badge is present while
// it has a rank to show or while an update is still on its way.
package indicator

import (
	"context"
	"sync"

	"github.com/okian/localrank/internal/domain/bindable"
	"github.com/okian/localrank/internal/domain/model"
	"github.com/okian/localrank/internal/domain/ranking"
	"github.com/okian/localrank/internal/scheduler"
	"github.com/okian/localrank/pkg/logger"
)

// ScoreSource is the score store as seen by the indicator.
type ScoreSource interface {
	ranking.Querier
	OnItemAdded(fn func(model.ScoreInfo)) (unsubscribe func())
	OnItemRemoved(fn func(model.ScoreInfo)) (unsubscribe func())
}

// IdentityProvider returns the logged-in user, or nil.
type IdentityProvider interface {
	CurrentUser() *model.User
}

// userObservable is implemented by identity providers whose user can be watched.
type userObservable interface {
	LocalUser() bindable.Observable[*model.User]
}

// Scheduler queues work for the update thread.
type Scheduler interface {
	Add(fn func()) (*scheduler.Delegate, error)
}

// Dependencies are the collaborators an indicator reads from. Any of them may
// be nil; a missing collaborator simply means there is no rank to show.
type Dependencies struct {
	Scores    ScoreSource
	Ruleset   bindable.Observable[*model.RulesetInfo]
	Identity  IdentityProvider
	Scheduler Scheduler
}

// Option applies a configuration option to the LocalRankIndicator.
type Option func(*LocalRankIndicator)

// WithBaseVisibility sets the container's own visibility rule (culling and
// the like). The badge is never present while it returns false.
func WithBaseVisibility(fn func() bool) Option {
	return func(l *LocalRankIndicator) {
		if fn != nil {
			l.baseVisible = fn
		}
	}
}

// WithInvalidate registers a callback run on the update thread after each
// applied result, with the recomputed presence.
func WithInvalidate(fn func(present bool)) Option {
	return func(l *LocalRankIndicator) {
		l.onInvalidate = fn
	}
}

// WithLogger sets a custom logger for the indicator.
func WithLogger(lg logger.Logger) Option {
	return func(l *LocalRankIndicator) {
		if lg != nil {
			l.logger = lg
		}
	}
}

// State is a point-in-time view of an indicator.
type State struct {
	Rank    model.ScoreRank
	HasRank bool
	Pending bool
	Present bool
}

// LocalRankIndicator shows the local user's best rank on one beatmap.
type LocalRankIndicator struct {
	beatmap      *model.BeatmapInfo
	deps         Dependencies
	baseVisible  func() bool
	onInvalidate func(bool)
	logger       logger.Logger

	mu            sync.Mutex
	ctx           context.Context
	activated     bool
	subscribed    bool
	disposed      bool
	unsubscribers []func()

	seq        uint64 // last trigger
	appliedSeq uint64 // trigger whose result is displayed
	latest     *scheduler.Delegate
	rank       model.ScoreRank
	hasRank    bool
	present    bool
}

// New creates an indicator for beatmap. Nothing is observed until Activate.
func New(beatmap *model.BeatmapInfo, deps Dependencies, opts ...Option) *LocalRankIndicator {
	if beatmap != nil {
		b := *beatmap
		beatmap = &b
	}
	l := &LocalRankIndicator{
		beatmap:     beatmap,
		deps:        deps,
		baseVisible: func() bool { return true },
		ctx:         context.Background(),
	}
	for _, opt := range opts {
		opt(l)
	}
	if l.logger == nil {
		l.logger = logger.Get().Named("indicator")
	}
	if beatmap != nil {
		l.logger = l.logger.With(logger.Int64("beatmap_id", beatmap.ID))
	}
	return l
}

// Beatmap returns the beatmap the indicator was created for, or nil.
func (l *LocalRankIndicator) Beatmap() *model.BeatmapInfo {
	if l.beatmap == nil {
		return nil
	}
	b := *l.beatmap
	return &b
}

// Rank returns the displayed rank. ok is false when no rank is displayed.
func (l *LocalRankIndicator) Rank() (rank model.ScoreRank, ok bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.rank, l.hasRank
}

// IsPresent reports whether the badge takes part in layout and drawing.
func (l *LocalRankIndicator) IsPresent() bool {
	base := l.baseVisible()
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.presentLocked(base)
}

// State returns rank, pending and presence read under one lock.
func (l *LocalRankIndicator) State() State {
	base := l.baseVisible()
	l.mu.Lock()
	defer l.mu.Unlock()
	return State{
		Rank:    l.rank,
		HasRank: l.hasRank,
		Pending: l.pendingLocked(),
		Present: l.presentLocked(base),
	}
}

func (l *LocalRankIndicator) presentLocked(base bool) bool {
	if l.disposed {
		return false
	}
	return base && (l.hasRank || l.pendingLocked())
}

// pendingLocked reports whether the latest scheduled update has yet to apply.
func (l *LocalRankIndicator) pendingLocked() bool {
	return l.latest != nil && l.appliedSeq != l.seq && l.latest.Pending()
}
