package observability

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func newTestMetrics() *Metrics {
	return NewMetrics(prometheus.NewRegistry())
}

func TestNewMetrics(t *testing.T) {
	m := newTestMetrics()

	if m.InterpretRequestsTotal == nil {
		t.Error("InterpretRequestsTotal is nil")
	}
	if m.InterpretFallbacks == nil {
		t.Error("InterpretFallbacks is nil")
	}
	if m.ScreenRequestsTotal == nil {
		t.Error("ScreenRequestsTotal is nil")
	}
	if m.SnapshotBuildsTotal == nil {
		t.Error("SnapshotBuildsTotal is nil")
	}
	if m.ExternalAPIRequestsTotal == nil {
		t.Error("ExternalAPIRequestsTotal is nil")
	}
	if m.DBQueryTotal == nil {
		t.Error("DBQueryTotal is nil")
	}
	if m.HTTPRequestsTotal == nil {
		t.Error("HTTPRequestsTotal is nil")
	}
	if m.CircuitBreakerState == nil {
		t.Error("CircuitBreakerState is nil")
	}
}

func TestGetMetricsLazyInit(t *testing.T) {
	saved := globalMetrics
	defer func() { globalMetrics = saved }()

	globalMetrics = nil
	m := GetMetrics()
	if m == nil {
		t.Fatal("GetMetrics must never return nil")
	}
	if GetMetrics() != m {
		t.Error("GetMetrics must return the same instance")
	}
}

func TestRecordInterpretation(t *testing.T) {
	m := newTestMetrics()

	m.RecordInterpretation("fast", time.Millisecond)
	m.RecordInterpretation("model", 200*time.Millisecond)
	m.RecordInterpretation("model", 300*time.Millisecond)

	if got := testutil.ToFloat64(m.InterpretRequestsTotal.WithLabelValues("fast")); got != 1 {
		t.Errorf("fast path count = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.InterpretRequestsTotal.WithLabelValues("model")); got != 2 {
		t.Errorf("model path count = %f, want 2", got)
	}
}

func TestRecordInterpretFallback(t *testing.T) {
	m := newTestMetrics()

	m.RecordInterpretFallback("timeout")
	m.RecordInterpretFallback("parse_error")
	m.RecordInterpretFallback("parse_error")

	if got := testutil.ToFloat64(m.InterpretFallbacks.WithLabelValues("parse_error")); got != 2 {
		t.Errorf("parse_error fallbacks = %f, want 2", got)
	}
}

func TestRecordScreen(t *testing.T) {
	m := newTestMetrics()

	m.RecordScreen("high_volume", 5*time.Millisecond, 10)
	m.RecordScreen("", time.Millisecond, 50)

	if got := testutil.ToFloat64(m.ScreenRequestsTotal.WithLabelValues("high_volume")); got != 1 {
		t.Errorf("high_volume count = %f, want 1", got)
	}
	// Empty intent is normalized to a stable label
	if got := testutil.ToFloat64(m.ScreenRequestsTotal.WithLabelValues("none")); got != 1 {
		t.Errorf("none count = %f, want 1", got)
	}
}

func TestRecordSnapshotBuild(t *testing.T) {
	m := newTestMetrics()

	m.RecordSnapshotBuild("completed", 2*time.Second, 12)
	m.RecordSnapshotBuild("failed", time.Second, 0)

	if got := testutil.ToFloat64(m.SnapshotBuildsTotal.WithLabelValues("completed")); got != 1 {
		t.Errorf("completed count = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.SnapshotBuildsTotal.WithLabelValues("failed")); got != 1 {
		t.Errorf("failed count = %f, want 1", got)
	}
	if got := testutil.ToFloat64(m.SnapshotSize); got != 12 {
		t.Errorf("snapshot size = %f, want 12", got)
	}
	if got := testutil.ToFloat64(m.SnapshotAge); got != 0 {
		t.Errorf("snapshot age = %f, want 0 after completed build", got)
	}
}

func TestSetSnapshotAge(t *testing.T) {
	m := newTestMetrics()

	m.SetSnapshotAge(90 * time.Second)
	if got := testutil.ToFloat64(m.SnapshotAge); got != 90 {
		t.Errorf("snapshot age = %f, want 90", got)
	}
}

func TestRecordHTTPRequest(t *testing.T) {
	m := newTestMetrics()

	m.RecordHTTPRequest("GET", "/api/health", "200", 10*time.Millisecond, 256)
	m.RecordHTTPRequest("POST", "/api/chat", "200", 2*time.Second, 4096)
	m.RecordHTTPRequest("POST", "/api/screen", "503", 50*time.Millisecond, 128)

	healthOK := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("GET", "/api/health", "200"))
	if healthOK != 1 {
		t.Errorf("health count = %f, want 1", healthOK)
	}
	screenErr := testutil.ToFloat64(m.HTTPRequestsTotal.WithLabelValues("POST", "/api/screen", "503"))
	if screenErr != 1 {
		t.Errorf("screen 503 count = %f, want 1", screenErr)
	}
}

func TestCircuitBreakerMetrics(t *testing.T) {
	m := newTestMetrics()

	m.SetCircuitBreakerState("openai", 2)
	m.RecordCircuitBreakerTrip("openai")

	if got := testutil.ToFloat64(m.CircuitBreakerState.WithLabelValues("openai")); got != 2 {
		t.Errorf("breaker state = %f, want 2", got)
	}
	if got := testutil.ToFloat64(m.CircuitBreakerTrips.WithLabelValues("openai")); got != 1 {
		t.Errorf("breaker trips = %f, want 1", got)
	}
}

func TestTimer(t *testing.T) {
	m := newTestMetrics()
	timer := m.NewTimer()

	time.Sleep(time.Millisecond)
	if timer.Duration() <= 0 {
		t.Error("timer duration must be positive")
	}

	timer.ObserveInterpretation("fast")
	if got := testutil.ToFloat64(m.InterpretRequestsTotal.WithLabelValues("fast")); got != 1 {
		t.Errorf("fast count = %f, want 1", got)
	}
}
