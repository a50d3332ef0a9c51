package config_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/okian/datemaker/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New(context.Background())

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.Scheduler.TickInterval, convey.ShouldEqual, 59*time.Second)
			convey.So(cfg.Confirmation.PollInterval, convey.ShouldEqual, time.Minute)
			convey.So(cfg.Confirmation.Timeout, convey.ShouldEqual, time.Hour)
			convey.So(cfg.Dating.RulesLeadTime, convey.ShouldEqual, 5*time.Minute)
			convey.So(cfg.Dating.RoundDuration, convey.ShouldEqual, 5*time.Minute)
			convey.So(cfg.Dating.BreakDuration, convey.ShouldEqual, time.Minute)
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})

		convey.Convey("When the debug profile is applied", func() {
			cfg.ApplyDebugProfile()

			convey.Convey("Then timers shrink and logging gets chatty", func() {
				convey.So(cfg.Debug, convey.ShouldBeTrue)
				convey.So(cfg.LogLevel, convey.ShouldEqual, "debug")
				convey.So(cfg.Confirmation.Timeout, convey.ShouldBeLessThan, time.Minute)
				convey.So(cfg.Dating.RoundDuration, convey.ShouldBeLessThan, time.Minute)
				convey.So(cfg.Validate(), convey.ShouldBeNil)
			})
		})
	})
}

func TestConfig_Validate(t *testing.T) {
	convey.Convey("Given a valid config", t, func() {
		cfg := config.New(context.Background())

		cases := map[string]func(c *config.Config){
			"empty addr":           func(c *config.Config) { c.Addr = "" },
			"bad log format":       func(c *config.Config) { c.LogFormat = "xml" },
			"unknown database":     func(c *config.Config) { c.Database.Driver = "mysql" },
			"postgres without dsn": func(c *config.Config) { c.Database.DSN = "" },
			"unknown bus":          func(c *config.Config) { c.Messaging.Driver = "nats" },
			"kafka without broker": func(c *config.Config) { c.Messaging.Brokers = " , " },
			"google without creds": func(c *config.Config) { c.Meet.CredentialsFile = "" },
			"zero tick":            func(c *config.Config) { c.Scheduler.TickInterval = 0 },
			"zero capacity":        func(c *config.Config) { c.Matchmaking.DefaultGroupCapacity = 0 },
		}
		for name, mutate := range cases {
			convey.Convey("It rejects "+name, func() {
				mutate(cfg)
				convey.So(errors.Is(cfg.Validate(), config.ErrInvalidConfig), convey.ShouldBeTrue)
			})
		}

		convey.Convey("It accepts the in-process drivers", func() {
			cfg.Database.Driver = "memory"
			cfg.Database.DSN = ""
			cfg.Messaging.Driver = "memory"
			cfg.Meet.Driver = "static"
			cfg.Meet.CredentialsFile = ""
			convey.So(cfg.Validate(), convey.ShouldBeNil)
		})
	})
}

func TestMessaging_BrokerList(t *testing.T) {
	m := config.Messaging{Brokers: "a:9092, b:9092,,"}
	got := m.BrokerList()
	if len(got) != 2 || got[0] != "a:9092" || got[1] != "b:9092" {
		t.Fatalf("unexpected brokers %v", got)
	}
}
