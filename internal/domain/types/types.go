// Package types contains read shapes shared by the container and the API.
package types

// Panel is the state of one beatmap panel's rank badge.
type Panel struct {
	BeatmapID int64  `json:"beatmap_id"`
	Title     string `json:"title,omitempty"`
	Version   string `json:"version,omitempty"`
	Rank      string `json:"rank,omitempty"`
	HasRank   bool   `json:"has_rank"`
	Pending   bool   `json:"pending"`
	Present   bool   `json:"present"`
}
