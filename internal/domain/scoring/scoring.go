// Package scoring derives rank grades from score statistics.
package scoring

import (
	"slices"

	"github.com/okian/localrank/internal/domain/model"
)

// Default grading thresholds, expressed as minimum accuracy.
const (
	thresholdS = 0.95
	thresholdA = 0.90
	thresholdB = 0.80
	thresholdC = 0.70
)

// Option applies a configuration option to the Grader.
type Option func(*Grader)

// WithSilverMods sets the mod acronyms that upgrade S and X to their silver variants.
func WithSilverMods(acronyms ...string) Option {
	return func(g *Grader) {
		if len(acronyms) > 0 {
			g.silverMods = slices.Clone(acronyms)
		}
	}
}

// WithThresholds overrides the minimum accuracy for S, A, B and C.
// Thresholds that are not strictly descending are ignored.
func WithThresholds(s, a, b, c float64) Option {
	return func(g *Grader) {
		if s <= 1 && s > a && a > b && b > c && c > 0 {
			g.s, g.a, g.b, g.c = s, a, b, c
		}
	}
}

// Grader maps accuracy and mods to a ScoreRank.
type Grader struct {
	s, a, b, c float64
	silverMods []string
}

// NewGrader creates a Grader with the standard thresholds.
func NewGrader(opts ...Option) *Grader {
	g := &Grader{
		s:          thresholdS,
		a:          thresholdA,
		b:          thresholdB,
		c:          thresholdC,
		silverMods: []string{"HD", "FL"},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Rank returns the grade for score. A score that already carries a grade keeps
// it; a failed play is graded F regardless of accuracy.
func (g *Grader) Rank(score model.ScoreInfo) model.ScoreRank {
	if score.Rank != model.RankNone {
		return score.Rank
	}
	if score.Failed {
		return model.RankF
	}
	return g.FromAccuracy(score.Accuracy, g.silver(score))
}

// FromAccuracy grades a raw accuracy in [0, 1].
func (g *Grader) FromAccuracy(accuracy float64, silver bool) model.ScoreRank {
	switch {
	case accuracy >= 1:
		if silver {
			return model.RankXH
		}
		return model.RankX
	case accuracy >= g.s:
		if silver {
			return model.RankSH
		}
		return model.RankS
	case accuracy >= g.a:
		return model.RankA
	case accuracy >= g.b:
		return model.RankB
	case accuracy >= g.c:
		return model.RankC
	default:
		return model.RankD
	}
}

func (g *Grader) silver(score model.ScoreInfo) bool {
	for _, m := range g.silverMods {
		if score.HasMod(m) {
			return true
		}
	}
	return false
}
