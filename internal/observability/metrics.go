package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captionboard_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "captionboard_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// StoreErrors counts store failures by operation and error code.
	StoreErrors = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captionboard_store_errors_total",
		Help: "Total number of caption store errors by operation and code",
	}, []string{"operation", "code"})

	// CaptionsCreated counts successfully created captions by department.
	CaptionsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captionboard_captions_created_total",
		Help: "Total number of captions created",
	}, []string{"department"})

	// LikeOperations counts like/unlike calls by outcome.
	LikeOperations = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captionboard_like_operations_total",
		Help: "Total number of like and unlike operations by outcome",
	}, []string{"operation", "outcome"})

	// ProfileEnsureFailures counts profile creations that failed during caption submission.
	ProfileEnsureFailures = promauto.NewCounter(prometheus.CounterOpts{
		Name: "captionboard_profile_ensure_failures_total",
		Help: "Total number of profile creations that failed while submitting a caption",
	})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "captionboard_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captionboard_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by hub and reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "captionboard_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// DatabaseMetrics records query latency per table.
type DatabaseMetrics struct {
	table string
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance for table.
func NewDatabaseMetrics(table string) *DatabaseMetrics {
	return &DatabaseMetrics{table: table}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation string, start time.Time) {
	DatabaseQueryLatency.WithLabelValues(operation, m.table).Observe(time.Since(start).Seconds())
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, start)
	}
}

// RecordStoreError counts a store error under its AppError code.
func RecordStoreError(operation, code string) {
	if code == "" {
		code = "UNKNOWN"
	}
	StoreErrors.WithLabelValues(operation, code).Inc()
}
