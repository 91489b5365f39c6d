package scoreload

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"path/filepath"
	"time"

	"github.com/okian/localrank/pkg/logger"
)

const directoryPermission = 0750

// Run executes the complete load check: it fills the store over HTTP, opens
// one panel per beatmap and verifies that every badge settles on the best
// rank computed locally from the accepted scores.
func Run(ctx context.Context, config *Config) error {
	stats := &Stats{StartTime: time.Now()}
	if config.Workers <= 0 {
		config.Workers = 1
	}

	logger.Get().Info(ctx, "starting load check",
		logger.String("base_url", config.BaseURL),
		logger.Int("scores", config.NumScores),
		logger.Int("beatmaps", config.Beatmaps),
		logger.Int("workers", config.Workers),
		logger.Duration("timeout", config.Timeout),
		logger.Bool("verbose", config.Verbose))

	if err := checkServiceHealth(ctx, config); err != nil {
		return fmt.Errorf("service health check failed: %w", err)
	}

	scores, err := generateScores(ctx, config, stats)
	if err != nil {
		return fmt.Errorf("score generation failed: %w", err)
	}

	if err := prepareSession(ctx, config); err != nil {
		return fmt.Errorf("session setup failed: %w", err)
	}
	if err := openPanels(ctx, config); err != nil {
		return fmt.Errorf("panel setup failed: %w", err)
	}

	accepted, err := submitScores(ctx, config, scores, stats)
	if err != nil {
		return fmt.Errorf("score submission failed: %w", err)
	}

	want := expectedPanels(ctx, config, accepted)
	got, err := waitForPanels(ctx, config, want)
	if err != nil {
		return fmt.Errorf("panel retrieval failed: %w", err)
	}

	if err := verifyResults(ctx, config, want, got, stats); err != nil {
		return fmt.Errorf("result verification failed: %w", err)
	}

	if config.OutputFile != "" {
		if err := saveScoresToFile(ctx, config.OutputFile, scores); err != nil {
			logger.Get().Warn(ctx, "failed to save scores to file", logger.Error(err))
		}
	}

	stats.EndTime = time.Now()
	stats.Duration = stats.EndTime.Sub(stats.StartTime)
	displayFinalStats(ctx, stats)

	logger.Get().Info(ctx, "load check completed successfully")
	return nil
}

// checkServiceHealth verifies the service is running.
func checkServiceHealth(ctx context.Context, config *Config) error {
	logger.Get().Info(ctx, "checking service health")
	if err := newHTTPClient(config.Timeout).Do(ctx, http.MethodGet, config.BaseURL+"/healthz", nil, http.StatusOK, nil); err != nil {
		return fmt.Errorf("failed to reach service: %w", err)
	}
	logger.Get().Info(ctx, "service is healthy")
	return nil
}

// waitForPanels polls the panels until they match want or Settle elapses,
// and returns the last observed state.
func waitForPanels(ctx context.Context, config *Config, want map[int64]Panel) (map[int64]Panel, error) {
	deadline := time.Now().Add(config.Settle)
	ticker := time.NewTicker(PollInterval)
	defer ticker.Stop()

	for {
		got, err := fetchPanels(ctx, config)
		if err != nil {
			return nil, err
		}
		if len(compare(want, got)) == 0 || time.Now().After(deadline) {
			return got, nil
		}
		select {
		case <-ctx.Done():
			return nil, fmt.Errorf("waiting for panels: %w", ctx.Err())
		case <-ticker.C:
		}
	}
}

// saveScoresToFile writes the generated scores as a JSON array.
func saveScoresToFile(ctx context.Context, filename string, scores []Score) error {
	if len(scores) == 0 {
		return fmt.Errorf("no scores to save")
	}
	if dir := filepath.Dir(filename); dir != "." {
		if err := os.MkdirAll(dir, directoryPermission); err != nil {
			return fmt.Errorf("failed to create directory: %w", err)
		}
	}
	data, err := json.MarshalIndent(scores, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal scores: %w", err)
	}
	if err := os.WriteFile(filename, data, 0o600); err != nil {
		return fmt.Errorf("failed to write file: %w", err)
	}
	logger.Get().Info(ctx, "scores saved to file", logger.String("filename", filename))
	return nil
}

// displayFinalStats logs the final run statistics.
func displayFinalStats(ctx context.Context, stats *Stats) {
	var successRate, scoresPerSecond float64
	if stats.ScoresSubmitted > 0 {
		successRate = float64(stats.ScoresSuccessful) / float64(stats.ScoresSubmitted) * PercentageMultiplier
	}
	if stats.Duration > 0 {
		scoresPerSecond = float64(stats.ScoresSubmitted) / stats.Duration.Seconds()
	}

	logger.Get().Info(ctx, "final statistics",
		logger.Int("scores_generated", stats.ScoresGenerated),
		logger.Int("scores_submitted", stats.ScoresSubmitted),
		logger.Int("scores_successful", stats.ScoresSuccessful),
		logger.Int("scores_failed", stats.ScoresFailed),
		logger.Int("panels_checked", stats.PanelsChecked),
		logger.Int("panels_mismatched", stats.PanelsMismatched),
		logger.Duration("duration", stats.Duration),
		logger.String("success_rate", fmt.Sprintf("%.2f%%", successRate)),
		logger.String("scores_per_second", fmt.Sprintf("%.1f", scoresPerSecond)))
}
