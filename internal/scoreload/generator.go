package scoreload

import (
	"context"
	"fmt"
	"math/rand/v2"

	"github.com/google/uuid"

	"github.com/okian/localrank/pkg/logger"
)

// Distribution knobs for generated scores.
const (
	otherUserShare     = 0.2  // scores owned by someone else
	otherRulesetShare  = 0.25 // scores set under another ruleset
	pendingDeleteShare = 0.1  // scores stored already pending deletion
	maxBaseScore       = 1_000_000
	minAccuracy        = 0.6
	rulesetCount       = 4
)

var modPool = []string{"HD", "HR", "DT", "FL", "NF"}

// generateScores creates NumScores scores spread over the configured
// beatmaps. Totals are unique so the best score per beatmap is unambiguous.
func generateScores(ctx context.Context, config *Config, stats *Stats) ([]Score, error) {
	if config.NumScores <= 0 || config.Beatmaps <= 0 {
		return nil, fmt.Errorf("need positive scores and beatmaps, got %d and %d", config.NumScores, config.Beatmaps)
	}
	logger.Get().Info(ctx, "generating scores",
		logger.Int("numScores", config.NumScores),
		logger.Int("beatmaps", config.Beatmaps),
	)

	scores := make([]Score, config.NumScores)
	for i := range scores {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("context cancelled during score generation: %w", err)
		}
		scores[i] = generateSingleScore(i, config)
	}

	stats.ScoresGenerated = len(scores)
	logger.Get().Info(ctx, "generated scores successfully", logger.Int("count", len(scores)))
	return scores, nil
}

func generateSingleScore(index int, config *Config) Score {
	s := Score{
		ID:         uuid.New().String(),
		UserID:     config.UserID,
		BeatmapID:  int64(rand.IntN(config.Beatmaps) + 1),
		RulesetID:  config.RulesetID,
		TotalScore: int64(rand.IntN(maxBaseScore))*int64(config.NumScores) + int64(index),
		Accuracy:   minAccuracy + rand.Float64()*(1-minAccuracy),
	}
	if rand.Float64() < otherUserShare {
		s.UserID = config.UserID + 1
	}
	if rand.Float64() < otherRulesetShare {
		s.RulesetID = (config.RulesetID + 1 + rand.IntN(rulesetCount-1)) % rulesetCount
	}
	if rand.Float64() < pendingDeleteShare {
		s.DeletePending = true
	}
	for _, m := range modPool {
		if rand.IntN(len(modPool)) == 0 {
			s.Mods = append(s.Mods, m)
		}
	}
	return s
}
