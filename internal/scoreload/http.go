package scoreload

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"sync"
	"sync/atomic"
	"time"

	"github.com/okian/localrank/pkg/logger"
)

// HTTPClient wraps http.Client with timeout.
type HTTPClient struct {
	client *http.Client
}

func newHTTPClient(timeout time.Duration) *HTTPClient {
	return &HTTPClient{client: &http.Client{Timeout: timeout}}
}

// Do sends a request with an optional JSON body and decodes a JSON response
// into out when out is non-nil. Any status other than want is an error.
func (c *HTTPClient) Do(ctx context.Context, method, url string, body any, want int, out any) error {
	var reader io.Reader = http.NoBody
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to marshal request body: %w", err)
		}
		reader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, url, reader)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("failed to read response: %w", err)
	}
	if resp.StatusCode != want {
		return fmt.Errorf("%s %s: HTTP %d: %s", method, url, resp.StatusCode, bytes.TrimSpace(data))
	}
	if out != nil {
		if err := json.Unmarshal(data, out); err != nil {
			return fmt.Errorf("failed to parse response: %w", err)
		}
	}
	return nil
}

// submitScores posts scores concurrently using a worker pool and returns the
// scores the service accepted.
func submitScores(ctx context.Context, config *Config, scores []Score, stats *Stats) ([]Score, error) {
	logger.Get().Info(ctx, "submitting scores",
		logger.Int("count", len(scores)),
		logger.Int("workers", config.Workers),
	)

	client := newHTTPClient(config.Timeout)
	url := config.BaseURL + "/scores"

	var (
		successful int64
		failed     int64
		acceptedMu sync.Mutex
		accepted   = make([]Score, 0, len(scores))
	)

	scoreChan := make(chan Score, config.Workers*WorkerChannelMultiplier)
	var wg sync.WaitGroup

	for i := 0; i < config.Workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for s := range scoreChan {
				if ctx.Err() != nil {
					return
				}
				if err := client.Do(ctx, http.MethodPost, url, s, http.StatusCreated, nil); err != nil {
					atomic.AddInt64(&failed, 1)
					if config.Verbose {
						logger.Get().Warn(ctx, "score submission failed", logger.String("id", s.ID), logger.Error(err))
					}
					continue
				}
				atomic.AddInt64(&successful, 1)
				acceptedMu.Lock()
				accepted = append(accepted, s)
				acceptedMu.Unlock()
			}
		}()
	}

	go func() {
		defer close(scoreChan)
		for _, s := range scores {
			select {
			case <-ctx.Done():
				return
			case scoreChan <- s:
			}
		}
	}()

	wg.Wait()

	stats.ScoresSuccessful = int(atomic.LoadInt64(&successful))
	stats.ScoresFailed = int(atomic.LoadInt64(&failed))
	stats.ScoresSubmitted = stats.ScoresSuccessful + stats.ScoresFailed

	logger.Get().Info(ctx, "score submission completed",
		logger.Int("successful", stats.ScoresSuccessful),
		logger.Int("failed", stats.ScoresFailed),
	)
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("submission interrupted: %w", err)
	}
	return accepted, nil
}
