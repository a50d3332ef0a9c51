package config_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/okian/datemaker/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

const yamlContent = `
addr: ":9090"
database:
  driver: memory
messaging:
  driver: redis
  stream: "events:commands"
meet:
  driver: static
scheduler:
  tick_interval: 30s
dating:
  round_duration: 7m
  wait_for_ready: false
matchmaking:
  default_group_capacity: 6
`

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

func clearConfigEnvVars() {
	for _, kv := range os.Environ() {
		if k, _, ok := strings.Cut(kv, "="); ok && strings.HasPrefix(k, "DATEMAKER_") {
			_ = os.Unsetenv(k)
		}
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()
		clearConfigEnvVars()

		convey.Convey("When loading config with defaults only", func() {
			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.Messaging.Driver, convey.ShouldEqual, "kafka")
				convey.So(cfg.Dating.WaitForReady, convey.ShouldBeTrue)
			})
		})

		convey.Convey("When loading config with nested environment variables", func() {
			_ = os.Setenv("DATEMAKER_ADDR", ":8080")
			_ = os.Setenv("DATEMAKER_SCHEDULER__TICK_INTERVAL", "15s")
			_ = os.Setenv("DATEMAKER_MESSAGING__QUEUE_SIZE", "42")
			_ = os.Setenv("DATEMAKER_MATCHMAKING__DEFAULT_GROUP_CAPACITY", "4")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.Scheduler.TickInterval, convey.ShouldEqual, 15*time.Second)
				convey.So(cfg.Messaging.QueueSize, convey.ShouldEqual, 42)
				convey.So(cfg.Matchmaking.DefaultGroupCapacity, convey.ShouldEqual, 4)
			})
		})

		convey.Convey("When loading config with YAML file", func() {
			cfg, err := config.Load(ctx, writeConfig(t, yamlContent))

			convey.Convey("Then it should load from YAML file", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9090")
				convey.So(cfg.Database.Driver, convey.ShouldEqual, "memory")
				convey.So(cfg.Messaging.Stream, convey.ShouldEqual, "events:commands")
				convey.So(cfg.Scheduler.TickInterval, convey.ShouldEqual, 30*time.Second)
				convey.So(cfg.Dating.RoundDuration, convey.ShouldEqual, 7*time.Minute)
				convey.So(cfg.Dating.WaitForReady, convey.ShouldBeFalse)
				convey.So(cfg.Matchmaking.DefaultGroupCapacity, convey.ShouldEqual, 6)
				// untouched keys keep their defaults
				convey.So(cfg.Dating.BreakDuration, convey.ShouldEqual, time.Minute)
			})
		})

		convey.Convey("When the file comes from DATEMAKER_CONFIG and env overrides it", func() {
			_ = os.Setenv("DATEMAKER_CONFIG", writeConfig(t, yamlContent))
			_ = os.Setenv("DATEMAKER_ADDR", ":7070")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then environment variables should override file values", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.Scheduler.TickInterval, convey.ShouldEqual, 30*time.Second)
			})
		})

		convey.Convey("When debug is switched on", func() {
			_ = os.Setenv("DATEMAKER_DEBUG", "true")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx, "")

			convey.Convey("Then the debug profile is applied", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.Confirmation.Timeout, convey.ShouldEqual, time.Second)
			})
		})

		convey.Convey("When loading config with invalid YAML file", func() {
			cfg, err := config.Load(ctx, writeConfig(t, `invalid: yaml: content: [`))

			convey.Convey("Then it should return an error", func() {
				convey.So(errors.Is(err, config.ErrLoadConfig), convey.ShouldBeTrue)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When loading config with non-existent file", func() {
			cfg, err := config.Load(ctx, filepath.Join(t.TempDir(), "missing.yaml"))

			convey.Convey("Then it should return an error", func() {
				convey.So(err, convey.ShouldNotBeNil)
				convey.So(cfg, convey.ShouldBeNil)
			})
		})

		convey.Convey("When the loaded values do not validate", func() {
			_ = os.Setenv("DATEMAKER_DATABASE__DRIVER", "oracle")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx, "")

			convey.Convey("Then the validation error surfaces", func() {
				convey.So(errors.Is(err, config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		})
	})
}
