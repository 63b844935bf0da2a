package observability

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds all Prometheus metrics for the application
type Metrics struct {
	// Interpreter metrics
	InterpretRequestsTotal *prometheus.CounterVec
	InterpretDuration      *prometheus.HistogramVec
	InterpretFallbacks     *prometheus.CounterVec

	// Screener metrics
	ScreenRequestsTotal *prometheus.CounterVec
	ScreenDuration      *prometheus.HistogramVec
	ScreenResultSize    *prometheus.HistogramVec

	// Snapshot metrics
	SnapshotBuildsTotal  *prometheus.CounterVec
	SnapshotBuildSeconds prometheus.Histogram
	SnapshotSize         prometheus.Gauge
	SnapshotAge          prometheus.Gauge

	// External API metrics
	ExternalAPIRequestsTotal *prometheus.CounterVec
	ExternalAPIErrorsTotal   *prometheus.CounterVec
	ExternalAPIDuration      *prometheus.HistogramVec

	// Database metrics
	DBQueryDuration *prometheus.HistogramVec
	DBQueryTotal    *prometheus.CounterVec
	DBErrorsTotal   *prometheus.CounterVec

	// HTTP metrics
	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPResponseSize    *prometheus.HistogramVec

	// Circuit breaker metrics
	CircuitBreakerState *prometheus.GaugeVec
	CircuitBreakerTrips *prometheus.CounterVec
}

// defaultBuckets are the default histogram buckets for duration metrics (in seconds)
var defaultBuckets = []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30}

// resultSizeBuckets are histogram buckets for screen result sizes (0 to the safety cap)
var resultSizeBuckets = []float64{0, 1, 2, 5, 10, 20, 30, 40, 50}

// globalMetrics is the global metrics instance
var globalMetrics *Metrics

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(reg prometheus.Registerer) *Metrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	factory := promauto.With(reg)

	m := &Metrics{
		InterpretRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_scout",
				Subsystem: "interpreter",
				Name:      "requests_total",
				Help:      "Total number of query interpretations by path",
			},
			[]string{"path"}, // fast, model, fallback
		),
		InterpretDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_scout",
				Subsystem: "interpreter",
				Name:      "duration_seconds",
				Help:      "Duration of query interpretation in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"path"},
		),
		InterpretFallbacks: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_scout",
				Subsystem: "interpreter",
				Name:      "fallbacks_total",
				Help:      "Total number of downgrades to the default specification",
			},
			[]string{"reason"},
		),
		ScreenRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_scout",
				Subsystem: "screener",
				Name:      "requests_total",
				Help:      "Total number of screen executions by intent",
			},
			[]string{"intent"},
		),
		ScreenDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_scout",
				Subsystem: "screener",
				Name:      "duration_seconds",
				Help:      "Duration of screen execution in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"intent"},
		),
		ScreenResultSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_scout",
				Subsystem: "screener",
				Name:      "result_size",
				Help:      "Distribution of screen result sizes",
				Buckets:   resultSizeBuckets,
			},
			[]string{"intent"},
		),
		SnapshotBuildsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_scout",
				Subsystem: "snapshot",
				Name:      "builds_total",
				Help:      "Total number of snapshot builds by status",
			},
			[]string{"status"}, // completed, failed
		),
		SnapshotBuildSeconds: factory.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: "stock_scout",
				Subsystem: "snapshot",
				Name:      "build_duration_seconds",
				Help:      "Duration of snapshot builds in seconds",
				Buckets:   defaultBuckets,
			},
		),
		SnapshotSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "stock_scout",
				Subsystem: "snapshot",
				Name:      "records",
				Help:      "Number of stock records in the current snapshot",
			},
		),
		SnapshotAge: factory.NewGauge(
			prometheus.GaugeOpts{
				Namespace: "stock_scout",
				Subsystem: "snapshot",
				Name:      "age_seconds",
				Help:      "Age of the current snapshot in seconds",
			},
		),
		ExternalAPIRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_scout",
				Subsystem: "external_api",
				Name:      "requests_total",
				Help:      "Total number of external API requests",
			},
			[]string{"service", "operation"},
		),
		ExternalAPIErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_scout",
				Subsystem: "external_api",
				Name:      "errors_total",
				Help:      "Total number of external API errors",
			},
			[]string{"service", "operation", "error_type"},
		),
		ExternalAPIDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_scout",
				Subsystem: "external_api",
				Name:      "duration_seconds",
				Help:      "Duration of external API calls in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"service", "operation"},
		),
		DBQueryDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_scout",
				Subsystem: "db",
				Name:      "query_duration_seconds",
				Help:      "Duration of database queries in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"operation", "table"},
		),
		DBQueryTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_scout",
				Subsystem: "db",
				Name:      "queries_total",
				Help:      "Total number of database queries",
			},
			[]string{"operation", "table"},
		),
		DBErrorsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_scout",
				Subsystem: "db",
				Name:      "errors_total",
				Help:      "Total number of database errors",
			},
			[]string{"operation", "table"},
		),
		HTTPRequestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_scout",
				Subsystem: "http",
				Name:      "requests_total",
				Help:      "Total number of HTTP requests",
			},
			[]string{"method", "path", "status_code"},
		),
		HTTPRequestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_scout",
				Subsystem: "http",
				Name:      "request_duration_seconds",
				Help:      "Duration of HTTP requests in seconds",
				Buckets:   defaultBuckets,
			},
			[]string{"method", "path"},
		),
		HTTPResponseSize: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "stock_scout",
				Subsystem: "http",
				Name:      "response_size_bytes",
				Help:      "Size of HTTP responses in bytes",
				Buckets:   []float64{100, 1000, 10000, 100000, 1000000},
			},
			[]string{"method", "path"},
		),
		CircuitBreakerState: factory.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "stock_scout",
				Subsystem: "circuit_breaker",
				Name:      "state",
				Help:      "Circuit breaker state (0=closed, 1=half-open, 2=open)",
			},
			[]string{"service"},
		),
		CircuitBreakerTrips: factory.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "stock_scout",
				Subsystem: "circuit_breaker",
				Name:      "trips_total",
				Help:      "Total number of circuit breaker trips",
			},
			[]string{"service"},
		),
	}

	return m
}

// InitMetrics initializes the global metrics instance
func InitMetrics() *Metrics {
	globalMetrics = NewMetrics(nil)
	return globalMetrics
}

// GetMetrics returns the global metrics instance, creating one on a private
// registry if InitMetrics was never called (keeps tests isolated)
func GetMetrics() *Metrics {
	if globalMetrics == nil {
		globalMetrics = NewMetrics(prometheus.NewRegistry())
	}
	return globalMetrics
}

// RecordInterpretation records a query interpretation by path
func (m *Metrics) RecordInterpretation(path string, duration time.Duration) {
	m.InterpretRequestsTotal.WithLabelValues(path).Inc()
	m.InterpretDuration.WithLabelValues(path).Observe(duration.Seconds())
}

// RecordInterpretFallback records a downgrade to the default specification
func (m *Metrics) RecordInterpretFallback(reason string) {
	m.InterpretFallbacks.WithLabelValues(reason).Inc()
}

// RecordScreen records a screen execution
func (m *Metrics) RecordScreen(intent string, duration time.Duration, resultSize int) {
	if intent == "" {
		intent = "none"
	}
	m.ScreenRequestsTotal.WithLabelValues(intent).Inc()
	m.ScreenDuration.WithLabelValues(intent).Observe(duration.Seconds())
	m.ScreenResultSize.WithLabelValues(intent).Observe(float64(resultSize))
}

// RecordSnapshotBuild records a snapshot build attempt
func (m *Metrics) RecordSnapshotBuild(status string, duration time.Duration, records int) {
	m.SnapshotBuildsTotal.WithLabelValues(status).Inc()
	m.SnapshotBuildSeconds.Observe(duration.Seconds())
	if status == "completed" {
		m.SnapshotSize.Set(float64(records))
		m.SnapshotAge.Set(0)
	}
}

// SetSnapshotAge updates the current snapshot age gauge
func (m *Metrics) SetSnapshotAge(age time.Duration) {
	m.SnapshotAge.Set(age.Seconds())
}

// RecordExternalAPIRequest records an external API request
func (m *Metrics) RecordExternalAPIRequest(service, operation string) {
	m.ExternalAPIRequestsTotal.WithLabelValues(service, operation).Inc()
}

// RecordExternalAPIError records an external API error
func (m *Metrics) RecordExternalAPIError(service, operation, errorType string) {
	m.ExternalAPIErrorsTotal.WithLabelValues(service, operation, errorType).Inc()
}

// RecordExternalAPIDuration records the duration of an external API call
func (m *Metrics) RecordExternalAPIDuration(service, operation string, duration time.Duration) {
	m.ExternalAPIDuration.WithLabelValues(service, operation).Observe(duration.Seconds())
}

// RecordDBQuery records a database query
func (m *Metrics) RecordDBQuery(operation, table string, duration time.Duration) {
	m.DBQueryTotal.WithLabelValues(operation, table).Inc()
	m.DBQueryDuration.WithLabelValues(operation, table).Observe(duration.Seconds())
}

// RecordDBError records a database error
func (m *Metrics) RecordDBError(operation, table string) {
	m.DBErrorsTotal.WithLabelValues(operation, table).Inc()
}

// RecordHTTPRequest records an HTTP request
func (m *Metrics) RecordHTTPRequest(method, path, statusCode string, duration time.Duration, responseSize int) {
	m.HTTPRequestsTotal.WithLabelValues(method, path, statusCode).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, path).Observe(duration.Seconds())
	m.HTTPResponseSize.WithLabelValues(method, path).Observe(float64(responseSize))
}

// SetCircuitBreakerState sets the circuit breaker state gauge
func (m *Metrics) SetCircuitBreakerState(service string, state int) {
	m.CircuitBreakerState.WithLabelValues(service).Set(float64(state))
}

// RecordCircuitBreakerTrip records a circuit breaker trip
func (m *Metrics) RecordCircuitBreakerTrip(service string) {
	m.CircuitBreakerTrips.WithLabelValues(service).Inc()
}

// Timer is a helper for timing operations
type Timer struct {
	start   time.Time
	metrics *Metrics
}

// NewTimer creates a new timer
func (m *Metrics) NewTimer() *Timer {
	return &Timer{
		start:   time.Now(),
		metrics: m,
	}
}

// ObserveInterpretation records interpretation duration since the timer started
func (t *Timer) ObserveInterpretation(path string) {
	t.metrics.RecordInterpretation(path, time.Since(t.start))
}

// ObserveScreen records screen duration since the timer started
func (t *Timer) ObserveScreen(intent string, resultSize int) {
	t.metrics.RecordScreen(intent, time.Since(t.start), resultSize)
}

// ObserveExternalAPI records external API call duration since the timer started
func (t *Timer) ObserveExternalAPI(service, operation string) {
	t.metrics.RecordExternalAPIDuration(service, operation, time.Since(t.start))
}

// ObserveDB records database query duration since the timer started
func (t *Timer) ObserveDB(operation, table string) {
	t.metrics.RecordDBQuery(operation, table, time.Since(t.start))
}

// Duration returns the elapsed time since the timer started
func (t *Timer) Duration() time.Duration {
	return time.Since(t.start)
}
