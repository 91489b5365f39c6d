package scoreload

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/okian/localrank/internal/domain/model"
	"github.com/okian/localrank/internal/domain/ranking"
	"github.com/okian/localrank/internal/domain/scoring"
	"github.com/okian/localrank/pkg/logger"
)

// scoreList is an in-memory ranking.Querier over the accepted scores.
type scoreList []model.ScoreInfo

func (l scoreList) Query(_ context.Context, match ranking.Predicate) []model.ScoreInfo {
	var out []model.ScoreInfo
	for _, s := range l {
		if match(s) {
			out = append(out, s)
		}
	}
	return out
}

// expectedPanels computes the badge every panel should settle on.
func expectedPanels(ctx context.Context, config *Config, accepted []Score) map[int64]Panel {
	grader := scoring.NewGrader()
	list := make(scoreList, 0, len(accepted))
	for _, s := range accepted {
		info := model.ScoreInfo{
			UserID:        s.UserID,
			BeatmapID:     s.BeatmapID,
			RulesetID:     s.RulesetID,
			TotalScore:    s.TotalScore,
			Accuracy:      s.Accuracy,
			Mods:          s.Mods,
			DeletePending: s.DeletePending,
		}
		info.ID, _ = uuid.Parse(s.ID)
		info.Rank = grader.Rank(info)
		list = append(list, info)
	}

	user := &model.User{ID: config.UserID}
	ruleset := &model.RulesetInfo{ID: config.RulesetID}
	out := make(map[int64]Panel, config.Beatmaps)
	for id := int64(1); id <= int64(config.Beatmaps); id++ {
		p := Panel{BeatmapID: id}
		if rank, ok := ranking.BestRank(ctx, list, &model.BeatmapInfo{ID: id}, user, ruleset); ok {
			p.Rank, p.HasRank, p.Present = rank.String(), true, true
		}
		out[id] = p
	}
	return out
}

// compare returns the beatmap ids whose panel differs from the expectation.
// A panel still pending never matches.
func compare(want, got map[int64]Panel) []int64 {
	var mismatched []int64
	for id, w := range want {
		g, ok := got[id]
		if !ok || g.Pending || g.HasRank != w.HasRank || g.Rank != w.Rank || g.Present != w.Present {
			mismatched = append(mismatched, id)
		}
	}
	return mismatched
}

// verifyResults reports mismatching panels and fails if any remain.
func verifyResults(ctx context.Context, config *Config, want, got map[int64]Panel, stats *Stats) error {
	mismatched := compare(want, got)
	stats.PanelsChecked = len(want)
	stats.PanelsMismatched = len(mismatched)

	for _, id := range mismatched {
		logger.Get().Warn(ctx, "panel mismatch",
			logger.Int64("beatmap_id", id),
			logger.String("want", want[id].Rank),
			logger.String("got", got[id].Rank),
			logger.Bool("pending", got[id].Pending),
		)
	}
	if config.Verbose {
		for id := int64(1); id <= int64(config.Beatmaps); id++ {
			logger.Get().Debug(ctx, "panel", logger.Int64("beatmap_id", id), logger.String("rank", got[id].Rank))
		}
	}
	if len(mismatched) > 0 {
		return fmt.Errorf("%d of %d panels do not show the expected rank", len(mismatched), len(want))
	}
	logger.Get().Info(ctx, "every panel shows the expected rank", logger.Int("panels", len(want)))
	return nil
}
