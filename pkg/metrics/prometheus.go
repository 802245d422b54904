// Package metrics provides Prometheus metrics for the tally scoring service.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Default metrics configuration constants.
const (
	defaultRefreshInterval = 10 * time.Second
)

// Manager manages all Prometheus metrics for the tally service.
type Manager struct {
	namespace        string
	subsystem        string
	histogramBuckets []float64
	enabled          bool
	refreshInterval  time.Duration
	customLabels     map[string]string
	registry         prometheus.Registerer

	// Core Business Metrics - score flow through the tabulation core
	scoresSubmitted  prometheus.Counter
	scoresDeleted    prometheus.Counter
	mutationsApplied *prometheus.CounterVec
	mutationLatency  prometheus.Histogram

	// Broadcast Metrics - fan-out health per event channel
	broadcastsPublished       prometheus.Counter
	broadcastDeliveries       prometheus.Counter
	broadcastDeliveryFailures prometheus.Counter
	subscriberEvictions       prometheus.Counter
	subscriberCount           *prometheus.GaugeVec
	channelCount              prometheus.Gauge

	// Mailbox Metrics - per-event serialized mutation queue
	mailboxCapacity prometheus.Gauge
	mailboxDepth    *prometheus.GaugeVec

	// Operational Health Metrics
	eventsTracked prometheus.Gauge
	scoresTracked prometheus.Gauge

	// Repository Metrics
	repositoryUpdateLatency prometheus.Histogram
	repositoryQueryLatency  prometheus.Histogram

	// HTTP Performance Metrics
	httpRequests        *prometheus.CounterVec
	httpRequestDuration *prometheus.HistogramVec

	// Enhanced Error Metrics - Detailed error tracking
	errorRateByComponent *prometheus.CounterVec
	errorRateByType      *prometheus.CounterVec
	errorRateByEndpoint  *prometheus.CounterVec
	errorLatency         *prometheus.HistogramVec

	// System Performance Metrics
	systemMemoryUsage    prometheus.Gauge
	systemGoroutineCount prometheus.Gauge
	systemGCPauseTime    prometheus.Histogram
}

// Global metrics manager instance.
var globalManager *Manager //nolint:gochecknoglobals // intentional global for singleton metrics manager

// Custom registry to avoid default Go metrics.
var customRegistry = prometheus.NewRegistry() //nolint:gochecknoglobals // intentional global for metrics registry

// Initialize global metrics.
func init() { //nolint:gochecknoinits // intentional init for global metrics setup
	globalManager = NewManager(WithPrometheusRegistry(customRegistry))
}

// NewManager creates a new metrics manager with default configuration.
func NewManager(opts ...Option) *Manager {
	m := &Manager{
		namespace:        "tally",
		subsystem:        "scoreboard",
		histogramBuckets: prometheus.DefBuckets,
		enabled:          true,
		refreshInterval:  defaultRefreshInterval,
		customLabels:     make(map[string]string),
		registry:         prometheus.DefaultRegisterer,
	}

	// Apply all options
	for _, opt := range opts {
		opt(m)
	}

	m.initializeMetrics()

	return m
}

// initializeMetrics creates all the Prometheus metrics.
func (m *Manager) initializeMetrics() { //nolint:funlen // long function required for comprehensive metrics initialization
	auto := promauto.With(m.registry)

	m.scoresSubmitted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scores_submitted_total",
		Help:      "Total number of judge scores committed to the ledger",
	})

	m.scoresDeleted = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scores_deleted_total",
		Help:      "Total number of judge scores removed from the ledger",
	})

	m.mutationsApplied = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "mutations_applied_total",
			Help:      "Total number of event-channel mutations applied, by kind",
		},
		[]string{"kind"},
	)

	m.mutationLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "mutation_latency_milliseconds",
		Help:      "Histogram of apply+recompute+publish latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.broadcastsPublished = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcasts_published_total",
		Help:      "Total number of ranking broadcasts published to event channels",
	})

	m.broadcastDeliveries = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcast_deliveries_total",
		Help:      "Total number of per-subscriber deliveries attempted",
	})

	m.broadcastDeliveryFailures = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcast_delivery_failures_total",
		Help:      "Total number of per-subscriber deliveries that failed",
	})

	m.subscriberEvictions = auto.NewCounter(prometheus.CounterOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "subscriber_evictions_total",
		Help:      "Total number of subscribers evicted after repeated delivery failures",
	})

	m.subscriberCount = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "subscribers",
			Help:      "Current number of subscribers per event channel",
		},
		[]string{"event_id"},
	)

	m.channelCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "broadcast_channels",
		Help:      "Current number of live event broadcast channels",
	})

	m.mailboxCapacity = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "mailbox_capacity",
		Help:      "Configured per-event mutation mailbox capacity",
	})

	m.mailboxDepth = auto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "mailbox_depth",
			Help:      "Queued mutations per event channel (backlog indicator)",
		},
		[]string{"event_id"},
	)

	m.eventsTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "events_tracked",
		Help:      "Total number of events in the record store",
	})

	m.scoresTracked = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "scores_tracked",
		Help:      "Total number of scores in the ledger",
	})

	m.repositoryUpdateLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_update_latency_milliseconds",
		Help:      "Repository update operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.repositoryQueryLatency = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "repository_query_latency_milliseconds",
		Help:      "Repository query operation latency in milliseconds",
		Buckets:   m.histogramBuckets,
	})

	m.httpRequests = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests by endpoint and method",
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.httpRequestDuration = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "http_request_duration_milliseconds",
			Help:      "HTTP request duration in milliseconds (user experience)",
			Buckets:   m.histogramBuckets,
		},
		[]string{"endpoint", "method", "status_code"},
	)

	m.errorRateByComponent = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_component_total",
			Help:      "Total number of errors by component",
		},
		[]string{"component", "error_type"},
	)

	m.errorRateByType = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_type_total",
			Help:      "Total number of errors by type",
		},
		[]string{"error_type", "severity"},
	)

	m.errorRateByEndpoint = auto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "errors_by_endpoint_total",
			Help:      "Total number of errors by endpoint",
		},
		[]string{"endpoint", "method", "error_type"},
	)

	m.errorLatency = auto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: m.namespace,
			Subsystem: m.subsystem,
			Name:      "error_latency_milliseconds",
			Help:      "Latency of operations that resulted in errors",
			Buckets:   m.histogramBuckets,
		},
		[]string{"component", "error_type"},
	)

	m.systemMemoryUsage = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_memory_usage_bytes",
		Help:      "System memory usage in bytes",
	})

	m.systemGoroutineCount = auto.NewGauge(prometheus.GaugeOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_goroutine_count",
		Help:      "Number of goroutines",
	})

	m.systemGCPauseTime = auto.NewHistogram(prometheus.HistogramOpts{
		Namespace: m.namespace,
		Subsystem: m.subsystem,
		Name:      "system_gc_pause_time_milliseconds",
		Help:      "GC pause time in milliseconds",
		Buckets:   []float64{0.1, 0.5, 1, 2, 5, 10, 25, 50, 100, 250, 500, 1000},
	})
}

// RecordScoreUpserted increments the committed scores counter.
func RecordScoreUpserted() {
	globalManager.scoresSubmitted.Inc()
}

// RecordScoreDeleted increments the deleted scores counter.
func RecordScoreDeleted() {
	globalManager.scoresDeleted.Inc()
}

// RecordMutationApplied increments the applied-mutations counter for a kind.
func RecordMutationApplied(kind string) {
	globalManager.mutationsApplied.WithLabelValues(kind).Inc()
}

// RecordMutationLatency records apply+recompute+publish latency in milliseconds.
func RecordMutationLatency(latencyMs float64) {
	globalManager.mutationLatency.Observe(latencyMs)
}

// RecordBroadcastPublished increments the published broadcasts counter.
func RecordBroadcastPublished() {
	globalManager.broadcastsPublished.Inc()
}

// RecordBroadcastDelivery increments the attempted deliveries counter.
func RecordBroadcastDelivery() {
	globalManager.broadcastDeliveries.Inc()
}

// RecordBroadcastDeliveryFailure increments the failed deliveries counter.
func RecordBroadcastDeliveryFailure() {
	globalManager.broadcastDeliveryFailures.Inc()
}

// RecordSubscriberEvicted increments the evicted subscribers counter.
func RecordSubscriberEvicted() {
	globalManager.subscriberEvictions.Inc()
}

// UpdateSubscriberCount sets the subscriber count for an event channel.
func UpdateSubscriberCount(eventID string, count int) {
	globalManager.subscriberCount.WithLabelValues(eventID).Set(float64(count))
}

// DropChannelGauges removes the per-event gauges of a closed channel.
func DropChannelGauges(eventID string) {
	globalManager.subscriberCount.DeleteLabelValues(eventID)
	globalManager.mailboxDepth.DeleteLabelValues(eventID)
}

// UpdateChannelCount sets the number of live event channels.
func UpdateChannelCount(count int) {
	globalManager.channelCount.Set(float64(count))
}

// UpdateMailboxCapacity sets the configured mailbox capacity.
func UpdateMailboxCapacity(capacity int) {
	globalManager.mailboxCapacity.Set(float64(capacity))
}

// UpdateMailboxDepth sets the queued mutation count for an event channel.
func UpdateMailboxDepth(eventID string, depth int) {
	globalManager.mailboxDepth.WithLabelValues(eventID).Set(float64(depth))
}

// UpdateEventsTracked sets the total events count.
func UpdateEventsTracked(count int) {
	globalManager.eventsTracked.Set(float64(count))
}

// UpdateScoresTracked sets the total scores count.
func UpdateScoresTracked(count int) {
	globalManager.scoresTracked.Set(float64(count))
}

// RecordRepositoryUpdateLatency records repository update operation latency.
func RecordRepositoryUpdateLatency(latencyMs float64) {
	globalManager.repositoryUpdateLatency.Observe(latencyMs)
}

// RecordRepositoryQueryLatency records repository query operation latency.
func RecordRepositoryQueryLatency(latencyMs float64) {
	globalManager.repositoryQueryLatency.Observe(latencyMs)
}

// RecordHTTPRequest records an HTTP request.
func RecordHTTPRequest(endpoint, method, statusCode string) {
	globalManager.httpRequests.WithLabelValues(endpoint, method, statusCode).Inc()
}

// RecordHTTPRequestDuration records HTTP request duration.
func RecordHTTPRequestDuration(endpoint, method, statusCode string, duration float64) {
	globalManager.httpRequestDuration.WithLabelValues(endpoint, method, statusCode).Observe(duration)
}

// RecordErrorByComponent records an error with component and type labels.
func RecordErrorByComponent(component, errorType string) {
	globalManager.errorRateByComponent.WithLabelValues(component, errorType).Inc()
}

// RecordErrorByType records an error with type and severity labels.
func RecordErrorByType(errorType, severity string) {
	globalManager.errorRateByType.WithLabelValues(errorType, severity).Inc()
}

// RecordErrorByEndpoint records an error with endpoint, method, and error type labels.
func RecordErrorByEndpoint(endpoint, method, errorType string) {
	globalManager.errorRateByEndpoint.WithLabelValues(endpoint, method, errorType).Inc()
}

// RecordErrorLatency records the latency of an operation that resulted in an error.
func RecordErrorLatency(component, errorType string, latencyMs float64) {
	globalManager.errorLatency.WithLabelValues(component, errorType).Observe(latencyMs)
}

// UpdateSystemMemoryUsage sets the system memory usage in bytes.
func UpdateSystemMemoryUsage(bytes uint64) {
	globalManager.systemMemoryUsage.Set(float64(bytes))
}

// UpdateSystemGoroutineCount sets the number of goroutines.
func UpdateSystemGoroutineCount(count int) {
	globalManager.systemGoroutineCount.Set(float64(count))
}

// RecordSystemGCPauseTime records GC pause time in milliseconds.
func RecordSystemGCPauseTime(pauseMs float64) {
	globalManager.systemGCPauseTime.Observe(pauseMs)
}

// GetRegistry returns the custom Prometheus registry used by our metrics.
func GetRegistry() *prometheus.Registry {
	return customRegistry
}
