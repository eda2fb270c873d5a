package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"gorm.io/gorm"
)

var (
	// RedisErrorRate counts Redis errors by operation type.
	RedisErrorRate = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accessdesk_redis_error_rate_total",
		Help: "Total number of Redis errors by operation type",
	}, []string{"operation"})

	// DatabaseQueryLatency records database query latency by operation and table.
	DatabaseQueryLatency = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "accessdesk_database_query_latency_seconds",
		Help:    "Database query latency in seconds",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "table"})

	// RequestsCreated counts access requests created, by request type.
	RequestsCreated = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accessdesk_requests_created_total",
		Help: "Total number of access requests created by request type",
	}, []string{"request_type"})

	// RequestTransitions counts lifecycle transitions by action and outcome.
	RequestTransitions = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accessdesk_request_transitions_total",
		Help: "Total number of lifecycle transitions by action and outcome",
	}, []string{"action", "outcome"})

	// NumberAllocationConflicts counts request number allocation collisions.
	NumberAllocationConflicts = promauto.NewCounter(prometheus.CounterOpts{
		Name: "accessdesk_number_allocation_conflicts_total",
		Help: "Total number of request number allocation conflicts",
	})

	// WebSocketConnectionsTotal is the gauge of total WebSocket connections.
	WebSocketConnectionsTotal = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "accessdesk_websocket_connections_total",
		Help: "Total number of active WebSocket connections",
	})

	// WebSocketEventsTotal counts WebSocket events by type.
	WebSocketEventsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accessdesk_websocket_events_total",
		Help: "Total WebSocket events by type",
	}, []string{"event_type"})

	// WebSocketBackpressureDrops counts messages dropped due to backpressure by reason.
	WebSocketBackpressureDrops = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "accessdesk_websocket_backpressure_drops_total",
		Help: "Total number of WebSocket messages dropped due to backpressure",
	}, []string{"hub", "reason"})
)

// DatabaseMetrics wraps DB access for recording query latency.
type DatabaseMetrics struct {
	db *gorm.DB
}

// NewDatabaseMetrics returns a new DatabaseMetrics instance.
func NewDatabaseMetrics(db *gorm.DB) *DatabaseMetrics {
	return &DatabaseMetrics{db: db}
}

// ObserveQuery records the latency of a database query.
func (m *DatabaseMetrics) ObserveQuery(operation, table string, start time.Time) {
	latency := time.Since(start).Seconds()
	DatabaseQueryLatency.WithLabelValues(operation, table).Observe(latency)
}

// TrackQuery returns a function that records query latency when called (e.g. defer).
func (m *DatabaseMetrics) TrackQuery(operation, table string) func() {
	start := time.Now()
	return func() {
		m.ObserveQuery(operation, table, start)
	}
}

// RecordRequestCreated increments the created-requests counter.
func RecordRequestCreated(requestType string) {
	RequestsCreated.WithLabelValues(requestType).Inc()
}

// RecordTransition increments the transition counter for an action and outcome.
func RecordTransition(action, outcome string) {
	RequestTransitions.WithLabelValues(action, outcome).Inc()
}
