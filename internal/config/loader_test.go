package config_test

import (
	"context"
	"os"
	"testing"

	"github.com/rxnight/tally/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func clearConfigEnvVars() {
	for _, key := range []string{
		"TALLY_CONFIG",
		"TALLY_ADDR",
		"TALLY_LOG_LEVEL",
		"TALLY_DB_PATH",
		"TALLY_MAILBOX_SIZE",
		"TALLY_SUBSCRIBER_BUFFER",
		"TALLY_SEND_TIMEOUT_MS",
		"TALLY_MAX_SEND_FAILURES",
	} {
		_ = os.Unsetenv(key)
	}
}

func TestConfigLoader(t *testing.T) {
	convey.Convey("Given a config loader", t, func() {
		ctx := context.Background()

		convey.Convey("When loading config with defaults only", func() {
			clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should load successfully with defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
				convey.So(cfg.MailboxSize, convey.ShouldEqual, 256)
				convey.So(cfg.SubscriberBuffer, convey.ShouldEqual, 16)
			})
		})

		convey.Convey("When loading config with environment variables", func() {
			_ = os.Setenv("TALLY_ADDR", ":8080")
			_ = os.Setenv("TALLY_DB_PATH", ":memory:")
			_ = os.Setenv("TALLY_MAILBOX_SIZE", "64")
			_ = os.Setenv("TALLY_SEND_TIMEOUT_MS", "500")
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then it should override defaults with env vars", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg, convey.ShouldNotBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":8080")
				convey.So(cfg.DBPath, convey.ShouldEqual, ":memory:")
				convey.So(cfg.MailboxSize, convey.ShouldEqual, 64)
				convey.So(cfg.SendTimeoutMS, convey.ShouldEqual, 500)
			})
		})

		convey.Convey("When a YAML config file is provided", func() {
			f, err := os.CreateTemp(t.TempDir(), "tally-*.yaml")
			convey.So(err, convey.ShouldBeNil)
			_, err = f.WriteString("addr: \":7070\"\nmailbox_size: 32\n")
			convey.So(err, convey.ShouldBeNil)
			convey.So(f.Close(), convey.ShouldBeNil)

			_ = os.Setenv("TALLY_CONFIG", f.Name())
			defer clearConfigEnvVars()

			cfg, err := config.Load(ctx)

			convey.Convey("Then file values override defaults", func() {
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":7070")
				convey.So(cfg.MailboxSize, convey.ShouldEqual, 32)
			})

			convey.Convey("And env vars override the file", func() {
				_ = os.Setenv("TALLY_ADDR", ":6060")
				cfg, err := config.Load(ctx)
				convey.So(err, convey.ShouldBeNil)
				convey.So(cfg.Addr, convey.ShouldEqual, ":6060")
			})
		})

		convey.Convey("When validation fails", func() {
			_ = os.Setenv("TALLY_MAILBOX_SIZE", "0")
			defer clearConfigEnvVars()

			_, err := config.Load(ctx)

			convey.Convey("Then loading reports the invalid field", func() {
				convey.So(err, convey.ShouldNotBeNil)
			})
		})
	})
}
