package scoreload

import (
	"context"
	"fmt"
	"net/http"

	"github.com/okian/localrank/pkg/logger"
)

// prepareSession selects the ruleset and logs in the verified user.
func prepareSession(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	if err := client.Do(ctx, http.MethodPut, config.BaseURL+"/ruleset",
		map[string]int{"id": config.RulesetID}, http.StatusOK, nil); err != nil {
		return fmt.Errorf("failed to select ruleset: %w", err)
	}
	if err := client.Do(ctx, http.MethodPut, config.BaseURL+"/session",
		map[string]any{"user_id": config.UserID, "username": "scoreload"}, http.StatusNoContent, nil); err != nil {
		return fmt.Errorf("failed to log in: %w", err)
	}
	return nil
}

// openPanels opens one panel per beatmap id in 1..Beatmaps.
func openPanels(ctx context.Context, config *Config) error {
	client := newHTTPClient(config.Timeout)
	for id := 1; id <= config.Beatmaps; id++ {
		body := map[string]any{"beatmap_id": id, "title": fmt.Sprintf("beatmap %d", id)}
		if err := client.Do(ctx, http.MethodPost, config.BaseURL+"/panels", body, http.StatusCreated, nil); err != nil {
			return fmt.Errorf("failed to open panel %d: %w", id, err)
		}
	}
	logger.Get().Info(ctx, "panels opened", logger.Int("count", config.Beatmaps))
	return nil
}

// fetchPanels returns every open panel keyed by beatmap id.
func fetchPanels(ctx context.Context, config *Config) (map[int64]Panel, error) {
	client := newHTTPClient(config.Timeout)
	var panels []Panel
	if err := client.Do(ctx, http.MethodGet, config.BaseURL+"/panels", nil, http.StatusOK, &panels); err != nil {
		return nil, fmt.Errorf("failed to list panels: %w", err)
	}
	out := make(map[int64]Panel, len(panels))
	for _, p := range panels {
		out[p.BeatmapID] = p
	}
	return out, nil
}
