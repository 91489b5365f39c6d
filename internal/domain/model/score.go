// Package model contains domain models passed between layers.
package model

import (
	"slices"
	"time"

	"github.com/google/uuid"
)

// BeatmapInfo identifies a playable chart.
type BeatmapInfo struct {
	ID       int64  // local database id, used for score matching
	OnlineID int64  // remote id, informational only
	Title    string // song title
	Version  string // difficulty name
}

// RulesetInfo identifies a gameplay variant.
type RulesetInfo struct {
	ID        int
	ShortName string
}

// Built-in rulesets.
var (
	RulesetOsu    = RulesetInfo{ID: 0, ShortName: "osu"}
	RulesetTaiko  = RulesetInfo{ID: 1, ShortName: "taiko"}
	RulesetFruits = RulesetInfo{ID: 2, ShortName: "fruits"}
	RulesetMania  = RulesetInfo{ID: 3, ShortName: "mania"}
)

// LookupRuleset returns the built-in ruleset with the given id.
func LookupRuleset(id int) (RulesetInfo, bool) {
	for _, r := range []RulesetInfo{RulesetOsu, RulesetTaiko, RulesetFruits, RulesetMania} {
		if r.ID == id {
			return r, true
		}
	}
	return RulesetInfo{}, false
}

// User is the local player identity.
type User struct {
	ID       int64
	Username string
}

// ScoreInfo is a stored result of a play session.
type ScoreInfo struct {
	ID            uuid.UUID
	UserID        int64
	BeatmapID     int64
	RulesetID     int
	TotalScore    int64
	Accuracy      float64 // 0..1
	Mods          []string
	Rank          ScoreRank
	Date          time.Time
	Failed        bool // the player did not pass the beatmap
	DeletePending bool
}

// HasMod reports whether the score was set with the given mod acronym.
func (s ScoreInfo) HasMod(acronym string) bool {
	return slices.Contains(s.Mods, acronym)
}

// Clone returns a copy that shares no slices with s.
func (s ScoreInfo) Clone() ScoreInfo {
	s.Mods = slices.Clone(s.Mods)
	return s
}
