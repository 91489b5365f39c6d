package scoreload

import (
	"context"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/okian/localrank/pkg/logger"
)

const logFilePermission = 0600

// SetupLogging sends the global logger to both stdout and a file.
// If logFile is empty, a timestamped filename is generated.
func SetupLogging(logFile string, verbose bool) error {
	if err := logger.Init(); err != nil {
		return fmt.Errorf("failed to initialize logger: %w", err)
	}
	if verbose {
		if err := logger.SetLevelString("debug"); err != nil {
			return err
		}
	}

	if logFile == "" {
		logFile = "scoreload_" + time.Now().Format("20060102_150405") + ".log"
	}
	file, err := os.OpenFile(logFile, os.O_CREATE|os.O_WRONLY|os.O_APPEND, logFilePermission)
	if err != nil {
		return fmt.Errorf("failed to create log file: %w", err)
	}

	logger.SetOutput(io.MultiWriter(os.Stdout, file))
	logger.Get().Info(context.Background(), "logging to file", logger.String("log_file", logFile))
	return nil
}

// ShowHelp prints usage information for the load check tool.
func ShowHelp() {
	os.Stdout.WriteString(`LocalRank Load Check
====================

Fills a running localrank service with generated scores, opens a panel per
beatmap and verifies that every badge settles on the locally computed best rank.

Usage:
  go run ./cmd/scoreload [options]

Options:
  -url string
        Base URL of the service (default "http://localhost:9080")
  -scores int
        Number of scores to generate and submit (default 5000)
  -beatmaps int
        Number of beatmaps, ids 1..N (default 50)
  -user int
        User whose badges are verified (default 1)
  -ruleset int
        Ruleset selected for verification (default 0)
  -workers int
        Number of concurrent workers (default CPU cores * 2)
  -timeout duration
        HTTP request timeout (default 30s)
  -settle duration
        Maximum wait for panels to catch up (default 5s)
  -output string
        Output file for generated scores (not written when empty)
  -log string
        Log file for run output (default: scoreload_TIMESTAMP.log)
  -verbose
        Enable verbose logging
  -help
        Show this help message

Examples:
  go run ./cmd/scoreload -scores 20000 -beatmaps 200
  go run ./cmd/scoreload -ruleset 1 -user 7 -verbose
`)
}
