package main

import (
	"context"
	"flag"
	"os"
	"runtime"
	"time"

	"github.com/okian/localrank/internal/scoreload"
)

const (
	defaultNumScores  = 5000
	defaultBeatmaps   = 50
	defaultWorkers    = 2 // multiplier for runtime.NumCPU()
	defaultTimeout    = 30 * time.Second
	defaultSettle     = 5 * time.Second
	defaultRunTimeout = 10 * time.Minute
)

func main() {
	var (
		baseURL    = flag.String("url", "http://localhost:9080", "Base URL of the service")
		numScores  = flag.Int("scores", defaultNumScores, "Number of scores to generate and submit")
		beatmaps   = flag.Int("beatmaps", defaultBeatmaps, "Number of beatmaps, ids 1..N")
		userID     = flag.Int64("user", 1, "User whose badges are verified")
		rulesetID  = flag.Int("ruleset", 0, "Ruleset selected for verification")
		workers    = flag.Int("workers", runtime.NumCPU()*defaultWorkers, "Number of concurrent workers")
		timeout    = flag.Duration("timeout", defaultTimeout, "HTTP request timeout")
		settle     = flag.Duration("settle", defaultSettle, "Maximum wait for panels to catch up")
		outputFile = flag.String("output", "", "Output file for generated scores")
		logFile    = flag.String("log", "", "Log file for run output (default: scoreload_TIMESTAMP.log)")
		verbose    = flag.Bool("verbose", false, "Enable verbose logging")
		help       = flag.Bool("help", false, "Show help")
	)
	flag.Parse()

	if *help {
		scoreload.ShowHelp()
		return
	}

	if err := scoreload.SetupLogging(*logFile, *verbose); err != nil {
		os.Stderr.WriteString("Failed to setup logging: " + err.Error() + "\n")
		os.Exit(1)
	}

	ctx, cancel := context.WithTimeout(context.Background(), defaultRunTimeout)
	defer cancel()

	config := &scoreload.Config{
		BaseURL:    *baseURL,
		NumScores:  *numScores,
		Beatmaps:   *beatmaps,
		UserID:     *userID,
		RulesetID:  *rulesetID,
		Workers:    *workers,
		Timeout:    *timeout,
		Settle:     *settle,
		OutputFile: *outputFile,
		LogFile:    *logFile,
		Verbose:    *verbose,
	}

	if err := scoreload.Run(ctx, config); err != nil {
		os.Stderr.WriteString("Load check failed: " + err.Error() + "\n")
		cancel()
		os.Exit(1)
	}
}
