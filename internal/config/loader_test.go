package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/okian/localrank/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

var configEnvVars = []string{
	"LOCALRANK_CONFIG",
	"LOCALRANK_ADDR",
	"LOCALRANK_LOG_LEVEL",
	"LOCALRANK_TICK_INTERVAL_MS",
	"LOCALRANK_SCHEDULER_CAPACITY",
	"LOCALRANK_DEFAULT_RULESET",
	"LOCALRANK_USER_ID",
	"LOCALRANK_USERNAME",
	"LOCALRANK_SCORES_FILE",
	"LOCALRANK_EVENT_BUFFER",
}

func clearConfigEnvVars() {
	for _, k := range configEnvVars {
		_ = os.Unsetenv(k)
	}
}

func createTempConfigFile(t *testing.T, content string) string {
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()
		convey.Reset(clearConfigEnvVars)

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldResemble, config.New(ctx))
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("LOCALRANK_ADDR", ":8080")
			_ = os.Setenv("LOCALRANK_TICK_INTERVAL_MS", "5")
			_ = os.Setenv("LOCALRANK_USER_ID", "42")
			_ = os.Setenv("LOCALRANK_USERNAME", "cookiezi")
			_ = os.Setenv("LOCALRANK_DEFAULT_RULESET", "3")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.TickInterval(), convey.ShouldEqual, 5*time.Millisecond)
				convey.So(cfg.DefaultRuleset, convey.ShouldEqual, 3)
				u, ok := cfg.User()
				convey.So(ok, convey.ShouldBeTrue)
				convey.So(u.ID, convey.ShouldEqual, 42)
				convey.So(u.Username, convey.ShouldEqual, "cookiezi")
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			path := createTempConfigFile(t, `
addr: ":9090"
log_level: debug
scheduler_capacity: 500
scores_file: /tmp/scores.yaml
event_buffer: 8
`)
			_ = os.Setenv("LOCALRANK_CONFIG", path)

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load from YAML file and keep other defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.SchedulerCapacity, convey.ShouldEqual, 500)
				convey.So(cfg.ScoresFile, convey.ShouldEqual, "/tmp/scores.yaml")
				convey.So(cfg.EventBuffer, convey.ShouldEqual, 8)
				convey.So(cfg.TickIntervalMS, convey.ShouldEqual, 16)
			})

			convey.Convey("And environment variables override the file", func() {
				_ = os.Setenv("LOCALRANK_ADDR", ":7070")

				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.SchedulerCapacity, convey.ShouldEqual, 500)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			_ = os.Setenv("LOCALRANK_CONFIG", createTempConfigFile(t, `invalid: yaml: content: [`))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return ErrLoadConfig", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			_ = os.Setenv("LOCALRANK_CONFIG", filepath.Join(t.TempDir(), "missing.yaml"))

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return ErrLoadConfig", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with empty addr", func() {
			_ = os.Setenv("LOCALRANK_ADDR", "")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return a validation error", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
				convey.So(err.Error(), convey.ShouldContainSubstring, "addr must not be empty")
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with invalid numeric environment variables", func() {
			_ = os.Setenv("LOCALRANK_SCHEDULER_CAPACITY", "lots")

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})
	})
}
