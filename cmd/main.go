package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"runtime"
	"syscall"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"

	"github.com/okian/localrank/internal/adapters/eventbus"
	"github.com/okian/localrank/internal/adapters/http/api"
	"github.com/okian/localrank/internal/adapters/http/swagger"
	app "github.com/okian/localrank/internal/app"
	"github.com/okian/localrank/internal/config"
	"github.com/okian/localrank/pkg/logger"
	"github.com/okian/localrank/pkg/metrics"
)

// HTTP server timeout constants.
const (
	readTimeout            = 10 * time.Second
	writeTimeout           = 10 * time.Second
	idleTimeout            = 60 * time.Second
	readHeaderTimeout      = 5 * time.Second
	shutdownTimeout        = 30 * time.Second
	systemMetricsInterval  = 10 * time.Second
	serviceMetricsInterval = 5 * time.Second
	feedStartTimeout       = 5 * time.Second
)

func main() {
	if err := logger.Init(); err != nil {
		os.Stderr.WriteString("failed to initialize logging: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := logger.Sync(); err != nil {
			os.Stderr.WriteString("failed to sync logger: " + err.Error() + "\n")
		}
	}()

	loggerInstance := logger.Get()

	// Root context with cancel on SIGINT/SIGTERM.
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// defaults -> optional file -> env
	cfg, err := config.Load(ctx)
	if err != nil {
		os.Stderr.WriteString("failed to load config: " + err.Error() + "\n")
		return
	}

	if err := logger.SetLevelString(cfg.LogLevel); err != nil {
		loggerInstance.Warn(ctx, "invalid log_level; falling back to info", logger.String("log_level", cfg.LogLevel), logger.Error(err))
		_ = logger.SetLevelString("info")
	}

	bus := eventbus.NewGoChannel(cfg.EventBuffer, loggerInstance.Named("eventbus"))
	defer func() {
		if err := bus.Close(); err != nil {
			loggerInstance.Warn(ctx, "event bus close failed", logger.Error(err))
		}
	}()

	feed, err := startActivityFeed(ctx, bus, loggerInstance.Named("activity"))
	if err != nil {
		os.Stderr.WriteString("failed to start activity feed: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := feed.Close(); err != nil {
			loggerInstance.Warn(ctx, "activity feed close failed", logger.Error(err))
		}
	}()

	svc := app.New(serviceOptions(cfg, loggerInstance, bus)...)
	if err := svc.Start(ctx); err != nil {
		os.Stderr.WriteString("failed to start service: " + err.Error() + "\n")
		return
	}
	defer func() {
		if err := svc.Stop(context.Background()); err != nil {
			loggerInstance.Error(ctx, "service stop failed", logger.Error(err))
		}
	}()

	go startSystemMetricsUpdater(ctx)
	go startServiceMetricsUpdater(ctx, svc)

	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           newMux(ctx, svc, api.WithActivity(feed)),
		ReadTimeout:       readTimeout,
		WriteTimeout:      writeTimeout,
		IdleTimeout:       idleTimeout,
		ReadHeaderTimeout: readHeaderTimeout,
	}

	go func() {
		loggerInstance.Info(ctx, "starting HTTP server", logger.String("addr", cfg.Addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			os.Stderr.WriteString("HTTP server failed: " + err.Error() + "\n")
			stop()
		}
	}()

	<-ctx.Done()
	loggerInstance.Info(ctx, "shutting down server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		loggerInstance.Error(ctx, "server shutdown failed", logger.Error(err))
	}

	loggerInstance.Info(ctx, "server stopped")
}

// serviceOptions maps the loaded configuration onto service options.
func serviceOptions(cfg *config.Config, lg logger.Logger, pub message.Publisher) []app.Option {
	opts := []app.Option{
		app.WithLogger(lg),
		app.WithTickInterval(cfg.TickInterval()),
		app.WithSchedulerCapacity(cfg.SchedulerCapacity),
		app.WithDefaultRuleset(cfg.DefaultRuleset),
	}
	if pub != nil {
		opts = append(opts, app.WithPublisher(pub))
	}
	if u, ok := cfg.User(); ok {
		opts = append(opts, app.WithDefaultUser(u))
	}
	if cfg.ScoresFile != "" {
		opts = append(opts, app.WithSeedFile(cfg.ScoresFile))
	}
	return opts
}

// startActivityFeed subscribes the activity feed to sub and waits until its
// handlers are running, so events published by the service are not missed.
func startActivityFeed(ctx context.Context, sub message.Subscriber, lg logger.Logger) (*eventbus.ActivityFeed, error) {
	feed, err := eventbus.NewActivityFeed(sub, eventbus.WithActivityLogger(lg))
	if err != nil {
		return nil, err
	}
	go func() {
		if err := feed.Run(ctx); err != nil {
			lg.Error(ctx, "activity feed stopped", logger.Error(err))
		}
	}()
	select {
	case <-feed.Running():
		return feed, nil
	case <-time.After(feedStartTimeout):
		_ = feed.Close()
		return nil, fmt.Errorf("activity feed did not start within %s", feedStartTimeout)
	}
}

// newMux registers the API and documentation routes.
func newMux(ctx context.Context, svc *app.Service, opts ...api.ServerOption) *http.ServeMux {
	mux := http.NewServeMux()
	swagger.Register(ctx, mux)
	api.NewServer(svc, opts...).Register(ctx, mux)
	return mux
}

// startSystemMetricsUpdater updates system metrics until ctx is done.
func startSystemMetricsUpdater(ctx context.Context) {
	ticker := time.NewTicker(systemMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateSystemMetrics()
		}
	}
}

// startServiceMetricsUpdater updates service metrics until ctx is done.
func startServiceMetricsUpdater(ctx context.Context, svc *app.Service) {
	ticker := time.NewTicker(serviceMetricsInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			updateServiceMetrics(svc)
		}
	}
}

func updateSystemMetrics() {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	metrics.UpdateSystemMemoryUsage(m.Alloc)
	metrics.UpdateSystemGoroutineCount(runtime.NumGoroutine())
}

func updateServiceMetrics(svc *app.Service) {
	stats := svc.GetStats()
	if n, ok := stats["queueLength"].(int); ok {
		metrics.UpdateSchedulerQueueDepth(n)
	}
	if n, ok := stats["scores"].(int); ok {
		metrics.UpdateStoreRecords(n)
	}
}
