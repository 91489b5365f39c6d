package indicator

import (
	"github.com/okian/localrank/internal/domain/model"
	"github.com/okian/localrank/internal/domain/ranking"
	"github.com/okian/localrank/pkg/logger"
	"github.com/okian/localrank/pkg/metrics"
)

// trigger recomputes the best rank and schedules it for the update thread.
// The lock is held across the query and the scheduling so that sequence
// numbers follow snapshot order.
func (l *LocalRankIndicator) trigger(source string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.disposed {
		return
	}
	metrics.RecordTrigger(source)

	var (
		user    *model.User
		ruleset *model.RulesetInfo
	)
	if l.deps.Identity != nil {
		user = l.deps.Identity.CurrentUser()
	}
	if l.deps.Ruleset != nil {
		ruleset = l.deps.Ruleset.Value()
	}

	next := l.seq + 1
	rank, ok := ranking.BestRank(l.ctx, l.deps.Scores, l.beatmap, user, ruleset)

	if l.deps.Scheduler == nil {
		l.logger.Warn(l.ctx, "no scheduler, dropping update", logger.String("source", source))
		return
	}
	// The sequence only advances once the apply is queued, so a rejected
	// trigger leaves the previously queued result valid.
	d, err := l.deps.Scheduler.Add(func() { l.apply(next, rank, ok) })
	if err != nil {
		metrics.RecordErrorByComponent("indicator", "schedule")
		l.logger.Warn(l.ctx, "failed to schedule update",
			logger.String("source", source),
			logger.Error(err),
		)
		return
	}
	l.seq = next
	l.latest = d
}

// apply runs on the update thread. Only the result of the latest trigger is
// written; anything older, or anything arriving after Dispose, is dropped.
func (l *LocalRankIndicator) apply(seq uint64, rank model.ScoreRank, ok bool) {
	base := l.baseVisible()

	l.mu.Lock()
	if l.disposed {
		l.mu.Unlock()
		metrics.RecordDisposedApply()
		return
	}
	if seq != l.seq {
		l.mu.Unlock()
		metrics.RecordStaleApply()
		return
	}
	l.rank, l.hasRank = rank, ok
	l.appliedSeq = seq
	present := l.presentLocked(base)
	changed := present != l.present
	l.present = present
	invalidate := l.onInvalidate
	l.mu.Unlock()

	metrics.RecordApply()
	if changed {
		metrics.RecordPresenceChange()
	}
	if invalidate != nil {
		invalidate(present)
	}
}
