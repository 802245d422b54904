package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	. "github.com/smartystreets/goconvey/convey"
)

func TestMetricsOptions(t *testing.T) {
	Convey("Given metrics options", t, func() {
		Convey("When creating options", func() {
			namespaceOpt := WithNamespace("test-namespace")
			subsystemOpt := WithSubsystem("test-subsystem")
			histogramBucketsOpt := WithHistogramBuckets([]float64{0.1, 0.5, 1.0})
			metricsEnabledOpt := WithMetricsEnabled(true)
			refreshIntervalOpt := WithRefreshInterval(5 * time.Second)
			customLabelsOpt := WithCustomLabels(map[string]string{"env": "test"})

			Convey("Then they should be valid functions", func() {
				So(namespaceOpt, ShouldNotBeNil)
				So(subsystemOpt, ShouldNotBeNil)
				So(histogramBucketsOpt, ShouldNotBeNil)
				So(metricsEnabledOpt, ShouldNotBeNil)
				So(refreshIntervalOpt, ShouldNotBeNil)
				So(customLabelsOpt, ShouldNotBeNil)
			})
		})
	})
}

func TestManagerCreation(t *testing.T) {
	Convey("Given metrics manager creation", t, func() {
		Convey("When creating with default options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(WithPrometheusRegistry(registry))

			Convey("Then it should be created successfully", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "tally")
				So(manager.subsystem, ShouldEqual, "scoreboard")
			})
		})

		Convey("When creating with custom options", func() {
			registry := prometheus.NewRegistry()
			manager := NewManager(
				WithNamespace("test-namespace"),
				WithSubsystem("test-subsystem"),
				WithHistogramBuckets([]float64{0.1, 0.5, 1.0}),
				WithRefreshInterval(10*time.Second),
				WithPrometheusRegistry(registry),
			)

			Convey("Then the options should be applied", func() {
				So(manager, ShouldNotBeNil)
				So(manager.namespace, ShouldEqual, "test-namespace")
				So(manager.subsystem, ShouldEqual, "test-subsystem")
				So(manager.histogramBuckets, ShouldResemble, []float64{0.1, 0.5, 1.0})
			})
		})
	})
}

func TestRecordHelpers(t *testing.T) {
	Convey("Given the global metrics manager", t, func() {
		Convey("When recording tabulation metrics", func() {
			So(func() {
				RecordScoreUpserted()
				RecordScoreDeleted()
				RecordMutationApplied("score-updated")
				RecordMutationLatency(1.5)
			}, ShouldNotPanic)
		})

		Convey("When recording broadcast metrics", func() {
			So(func() {
				RecordBroadcastPublished()
				RecordBroadcastDelivery()
				RecordBroadcastDeliveryFailure()
				RecordSubscriberEvicted()
				UpdateSubscriberCount("ev1", 3)
				UpdateMailboxDepth("ev1", 2)
				UpdateChannelCount(1)
				DropChannelGauges("ev1")
			}, ShouldNotPanic)
		})

		Convey("When recording HTTP and error metrics", func() {
			So(func() {
				RecordHTTPRequest("scores", "POST", "201")
				RecordHTTPRequestDuration("scores", "POST", "201", 4.2)
				RecordErrorByComponent("broadcast", "transport")
				RecordErrorByType("client_error", "medium")
				RecordErrorByEndpoint("scores", "POST", "client_error")
				RecordErrorLatency("http", "client_error", 2.1)
			}, ShouldNotPanic)
		})

		Convey("Then the custom registry is exposed", func() {
			So(GetRegistry(), ShouldNotBeNil)
		})
	})
}
