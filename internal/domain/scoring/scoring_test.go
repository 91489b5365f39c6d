package scoring_test

import (
	"testing"

	"github.com/okian/localrank/internal/domain/model"
	scoring "github.com/okian/localrank/internal/domain/scoring"
	. "github.com/smartystreets/goconvey/convey"
)

func TestGrader_FromAccuracy(t *testing.T) {
	Convey("Given a grader with default thresholds", t, func() {
		g := scoring.NewGrader()

		Convey("When grading accuracies across the scale", func() {
			cases := []struct {
				acc  float64
				want model.ScoreRank
			}{
				{1.0, model.RankX},
				{0.97, model.RankS},
				{0.95, model.RankS},
				{0.92, model.RankA},
				{0.85, model.RankB},
				{0.75, model.RankC},
				{0.40, model.RankD},
				{0, model.RankD},
			}

			Convey("Then each maps to the expected grade", func() {
				for _, c := range cases {
					So(g.FromAccuracy(c.acc, false), ShouldEqual, c.want)
				}
			})
		})

		Convey("When the play used a silver mod", func() {
			Convey("Then S and X become their silver variants", func() {
				So(g.FromAccuracy(1.0, true), ShouldEqual, model.RankXH)
				So(g.FromAccuracy(0.96, true), ShouldEqual, model.RankSH)
			})

			Convey("And lower grades are unaffected", func() {
				So(g.FromAccuracy(0.91, true), ShouldEqual, model.RankA)
			})
		})
	})
}

func TestGrader_Rank(t *testing.T) {
	Convey("Given a grader", t, func() {
		g := scoring.NewGrader()

		Convey("When the score already has a grade", func() {
			s := model.ScoreInfo{Accuracy: 0.5, Rank: model.RankS}

			Convey("Then the stored grade wins", func() {
				So(g.Rank(s), ShouldEqual, model.RankS)
			})
		})

		Convey("When the play was failed", func() {
			s := model.ScoreInfo{Accuracy: 1, Mods: []string{"HD"}, Failed: true}

			Convey("Then it is graded F whatever the accuracy", func() {
				So(g.Rank(s), ShouldEqual, model.RankF)
			})
		})

		Convey("When the score has hidden and full accuracy", func() {
			s := model.ScoreInfo{Accuracy: 1, Mods: []string{"HD"}}

			Convey("Then it is graded XH", func() {
				So(g.Rank(s), ShouldEqual, model.RankXH)
			})
		})
	})

	Convey("Given a grader with custom options", t, func() {
		g := scoring.NewGrader(
			scoring.WithSilverMods("NF"),
			scoring.WithThresholds(0.9, 0.8, 0.7, 0.6),
		)

		Convey("Then the custom thresholds and mods apply", func() {
			So(g.Rank(model.ScoreInfo{Accuracy: 0.91, Mods: []string{"NF"}}), ShouldEqual, model.RankSH)
			So(g.Rank(model.ScoreInfo{Accuracy: 0.91, Mods: []string{"HD"}}), ShouldEqual, model.RankS)
			So(g.Rank(model.ScoreInfo{Accuracy: 0.65}), ShouldEqual, model.RankC)
		})

		Convey("And invalid thresholds are ignored", func() {
			d := scoring.NewGrader(scoring.WithThresholds(0.5, 0.9, 0.8, 0.7))
			So(d.FromAccuracy(0.92, false), ShouldEqual, model.RankA)
		})
	})
}
