// Package ranking answers "what is this user's best local score on this
// beatmap under this ruleset".
package ranking

import (
	"context"
	"time"

	"github.com/okian/localrank/internal/domain/model"
	"github.com/okian/localrank/pkg/metrics"
)

// Predicate selects scores in a query.
type Predicate = func(model.ScoreInfo) bool

// Querier is the read side of the score store. Query returns matches ordered
// best first.
type Querier interface {
	Query(ctx context.Context, match Predicate) []model.ScoreInfo
}

// firstQuerier is implemented by stores that can stop at the first match.
type firstQuerier interface {
	First(ctx context.Context, match Predicate) (model.ScoreInfo, bool)
}

// Match returns the predicate for scores that count toward a user's best on a
// beatmap under a ruleset. Scores pending deletion never match.
func Match(beatmapID, userID int64, rulesetID int) Predicate {
	return func(s model.ScoreInfo) bool {
		return s.UserID == userID &&
			s.BeatmapID == beatmapID &&
			s.RulesetID == rulesetID &&
			!s.DeletePending
	}
}

// BestScore returns the matching score with the highest total. A nil querier,
// beatmap, user or ruleset yields no result rather than an error. Ties go to
// whichever score the querier yields first.
func BestScore(ctx context.Context, q Querier, beatmap *model.BeatmapInfo, user *model.User, ruleset *model.RulesetInfo) (model.ScoreInfo, bool) {
	if q == nil || beatmap == nil || user == nil || ruleset == nil {
		metrics.RecordQueryResult("unavailable")
		return model.ScoreInfo{}, false
	}

	start := time.Now()
	defer func() {
		metrics.RecordQueryLatency(float64(time.Since(start).Microseconds()) / 1000)
	}()

	match := Match(beatmap.ID, user.ID, ruleset.ID)

	var (
		best  model.ScoreInfo
		found bool
	)
	if fq, ok := q.(firstQuerier); ok {
		best, found = fq.First(ctx, match)
	} else {
		for _, s := range q.Query(ctx, match) {
			if !found || s.TotalScore > best.TotalScore {
				best, found = s, true
			}
		}
	}

	if found {
		metrics.RecordQueryResult("found")
	} else {
		metrics.RecordQueryResult("absent")
	}
	return best, found
}

// BestRank returns the grade of BestScore.
func BestRank(ctx context.Context, q Querier, beatmap *model.BeatmapInfo, user *model.User, ruleset *model.RulesetInfo) (model.ScoreRank, bool) {
	s, ok := BestScore(ctx, q, beatmap, user, ruleset)
	if !ok {
		return model.RankNone, false
	}
	return s.Rank, true
}
