package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"

	"github.com/okian/localrank/internal/domain/model"
	"github.com/okian/localrank/pkg/logger"
)

// seedScore is the YAML shape of one score in a seed file.
type seedScore struct {
	ID            string   `koanf:"id"`
	UserID        int64    `koanf:"user_id"`
	BeatmapID     int64    `koanf:"beatmap_id"`
	RulesetID     int      `koanf:"ruleset_id"`
	TotalScore    int64    `koanf:"total_score"`
	Accuracy      float64  `koanf:"accuracy"`
	Mods          []string `koanf:"mods"`
	Rank          string   `koanf:"rank"`
	Date          string   `koanf:"date"`
	Failed        bool     `koanf:"failed"`
	DeletePending bool     `koanf:"delete_pending"`
}

func (s seedScore) toModel() (model.ScoreInfo, error) {
	out := model.ScoreInfo{
		UserID:        s.UserID,
		BeatmapID:     s.BeatmapID,
		RulesetID:     s.RulesetID,
		TotalScore:    s.TotalScore,
		Accuracy:      s.Accuracy,
		Mods:          s.Mods,
		Failed:        s.Failed,
		DeletePending: s.DeletePending,
	}
	if s.ID != "" {
		id, err := uuid.Parse(s.ID)
		if err != nil {
			return model.ScoreInfo{}, fmt.Errorf("%w: id %q: %w", ErrInvalidScore, s.ID, err)
		}
		out.ID = id
	}
	if s.Rank != "" {
		r, err := model.ParseRank(s.Rank)
		if err != nil {
			return model.ScoreInfo{}, fmt.Errorf("%w: %w", ErrInvalidScore, err)
		}
		out.Rank = r
	}
	if s.Date != "" {
		ts, err := time.Parse(time.RFC3339, s.Date)
		if err != nil {
			return model.ScoreInfo{}, fmt.Errorf("%w: date %q: %w", ErrInvalidScore, s.Date, err)
		}
		out.Date = ts
	}
	return out, nil
}

// LoadSeed reads a YAML file with a top-level "scores" list and adds every
// entry to the store. It stops at the first invalid entry and returns how many
// scores were added before it.
func (s *ScoreStore) LoadSeed(ctx context.Context, path string) (int, error) {
	k := koanf.New(".")
	if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
		return 0, fmt.Errorf("load seed %s: %w", path, err)
	}

	var entries []seedScore
	if err := k.UnmarshalWithConf("scores", &entries, koanf.UnmarshalConf{Tag: "koanf"}); err != nil {
		return 0, fmt.Errorf("decode seed %s: %w", path, err)
	}

	added := 0
	for i, e := range entries {
		score, err := e.toModel()
		if err != nil {
			return added, fmt.Errorf("seed entry %d: %w", i, err)
		}
		if _, err := s.Add(ctx, score); err != nil {
			return added, fmt.Errorf("seed entry %d: %w", i, err)
		}
		added++
	}

	s.logger.Info(ctx, "loaded seed scores", logger.String("path", path), logger.Int("count", added))
	return added, nil
}
