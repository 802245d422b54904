package config_test

import (
	"testing"
	"time"

	"github.com/rxnight/tally/internal/config"
	"github.com/smartystreets/goconvey/convey"
)

func TestConfig_New(t *testing.T) {
	convey.Convey("Given a new config with default options", t, func() {
		cfg := config.New()

		convey.Convey("Then it should have sensible defaults", func() {
			convey.So(cfg.Addr, convey.ShouldEqual, ":9080")
			convey.So(cfg.LogLevel, convey.ShouldEqual, "info")
			convey.So(cfg.DBPath, convey.ShouldEqual, "tally.db")
			convey.So(cfg.MailboxSize, convey.ShouldEqual, 256)
			convey.So(cfg.SubscriberBuffer, convey.ShouldEqual, 16)
			convey.So(cfg.MaxSendFailures, convey.ShouldEqual, 3)
		})

		convey.Convey("Then the send timeout converts to a duration", func() {
			convey.So(cfg.SendTimeout(), convey.ShouldEqual, 2*time.Second)
		})
	})
}
