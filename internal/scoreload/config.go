package scoreload

import "time"

// Config holds configuration for a load check run.
type Config struct {
	BaseURL    string        // Base URL of the service
	NumScores  int           // Number of scores to generate
	Beatmaps   int           // Number of distinct beatmaps, ids 1..Beatmaps
	UserID     int64         // User whose badges are verified
	RulesetID  int           // Ruleset selected for verification
	Workers    int           // Number of concurrent workers
	Timeout    time.Duration // HTTP request timeout
	Settle     time.Duration // Maximum wait for panels to catch up
	OutputFile string        // Output file for generated scores
	LogFile    string        // Log file for run output
	Verbose    bool          // Enable verbose logging
}

// Score is the body posted to /scores.
type Score struct {
	ID            string   `json:"id"`
	UserID        int64    `json:"user_id"`
	BeatmapID     int64    `json:"beatmap_id"`
	RulesetID     int      `json:"ruleset_id"`
	TotalScore    int64    `json:"total_score"`
	Accuracy      float64  `json:"accuracy"`
	Mods          []string `json:"mods,omitempty"`
	DeletePending bool     `json:"delete_pending,omitempty"`
}

// Panel is the badge state returned by /panels.
type Panel struct {
	BeatmapID int64  `json:"beatmap_id"`
	Rank      string `json:"rank"`
	HasRank   bool   `json:"has_rank"`
	Pending   bool   `json:"pending"`
	Present   bool   `json:"present"`
}

// Stats holds run statistics.
type Stats struct {
	ScoresGenerated  int
	ScoresSubmitted  int
	ScoresSuccessful int
	ScoresFailed     int
	PanelsChecked    int
	PanelsMismatched int
	StartTime        time.Time
	EndTime          time.Time
	Duration         time.Duration
}
