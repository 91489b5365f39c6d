package indicator

import (
	"context"

	"github.com/okian/localrank/internal/domain/bindable"
	"github.com/okian/localrank/internal/domain/model"
	"github.com/okian/localrank/pkg/logger"
	"github.com/okian/localrank/pkg/metrics"
)

// Trigger sources, used as metric labels.
const (
	sourceActivate     = "activate"
	sourceStoreAdded   = "store_added"
	sourceStoreRemoved = "store_removed"
	sourceRuleset      = "ruleset"
	sourceIdentity     = "identity"
)

// Activate subscribes to the collaborators and schedules the first
// recomputation. Later calls, and calls after Dispose, do nothing.
func (l *LocalRankIndicator) Activate(ctx context.Context) {
	l.mu.Lock()
	if l.activated || l.disposed {
		l.mu.Unlock()
		return
	}
	l.activated = true
	l.ctx = context.WithoutCancel(ctx)
	l.mu.Unlock()

	var subs []func()
	if l.deps.Scores != nil {
		subs = append(subs,
			l.deps.Scores.OnItemAdded(l.scoreChanged(sourceStoreAdded)),
			l.deps.Scores.OnItemRemoved(l.scoreChanged(sourceStoreRemoved)),
		)
	}
	if l.deps.Ruleset != nil {
		subs = append(subs, l.deps.Ruleset.OnValueChanged(func(bindable.ValueChangedEvent[*model.RulesetInfo]) {
			l.trigger(sourceRuleset)
		}))
	}
	if obs, ok := l.deps.Identity.(userObservable); ok {
		subs = append(subs, obs.LocalUser().OnValueChanged(func(bindable.ValueChangedEvent[*model.User]) {
			l.trigger(sourceIdentity)
		}))
	}

	l.mu.Lock()
	if l.disposed {
		// Disposed while subscribing.
		l.mu.Unlock()
		for _, unsubscribe := range subs {
			unsubscribe()
		}
		return
	}
	l.unsubscribers = subs
	l.subscribed = true
	l.mu.Unlock()

	metrics.AddActiveIndicators(1)
	metrics.AddSubscriptions(len(subs))
	l.logger.Debug(ctx, "indicator activated", logger.Int("subscriptions", len(subs)))

	l.trigger(sourceActivate)
}

// Dispose releases every subscription, cancels the pending update and clears
// the displayed rank. It is safe to call more than once and before Activate.
func (l *LocalRankIndicator) Dispose(ctx context.Context) {
	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		return
	}
	l.disposed = true
	subs := l.unsubscribers
	l.unsubscribers = nil
	latest := l.latest
	wasActive := l.subscribed
	l.rank, l.hasRank = model.RankNone, false
	l.present = false
	l.mu.Unlock()

	for _, unsubscribe := range subs {
		unsubscribe()
	}
	if latest != nil {
		latest.Cancel()
	}

	if wasActive {
		metrics.AddActiveIndicators(-1)
		metrics.AddSubscriptions(-len(subs))
	}
	l.logger.Debug(ctx, "indicator disposed", logger.Bool("was_active", wasActive))
}

// Disposed reports whether Dispose has been called.
func (l *LocalRankIndicator) Disposed() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.disposed
}

func (l *LocalRankIndicator) scoreChanged(source string) func(model.ScoreInfo) {
	return func(s model.ScoreInfo) {
		if l.beatmap == nil || s.BeatmapID != l.beatmap.ID {
			return
		}
		l.trigger(source)
	}
}
