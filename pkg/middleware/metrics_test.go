package middleware

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"

	"github.com/vango-dev/scrollkit/pkg/scroll"
)

func metricCounterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	if err := c.Write(&m); err != nil {
		t.Fatalf("counter Write() error: %v", err)
	}
	if m.Counter == nil {
		t.Fatal("expected counter metric to have Counter field")
	}
	return m.GetCounter().GetValue()
}

func metricGaugeValue(t *testing.T, g prometheus.Gauge) float64 {
	t.Helper()
	var m dto.Metric
	if err := g.Write(&m); err != nil {
		t.Fatalf("gauge Write() error: %v", err)
	}
	if m.Gauge == nil {
		t.Fatal("expected gauge metric to have Gauge field")
	}
	return m.GetGauge().GetValue()
}

func metricHistogramCount(t *testing.T, h prometheus.Histogram) uint64 {
	t.Helper()
	var m dto.Metric
	if err := h.Write(&m); err != nil {
		t.Fatalf("histogram Write() error: %v", err)
	}
	if m.Histogram == nil {
		t.Fatal("expected histogram metric to have Histogram field")
	}
	return m.GetHistogram().GetSampleCount()
}

func TestObserverRecordsTicks(t *testing.T) {
	m := NewMetrics()
	o := m.Observer()

	o.ObserveTick(scroll.TickStats{Invoked: 3, Throttled: 2, Duration: time.Millisecond})
	o.ObserveTick(scroll.TickStats{Invoked: 1, Removed: 1, Forced: true})
	o.ObserveCallbackPanic("fx")
	o.ObserveCoalesced()
	o.ObserveCoalesced()

	checks := []struct {
		name string
		c    prometheus.Counter
		want float64
	}{
		{"frame ticks", m.ticksTotal.WithLabelValues("frame"), 1},
		{"end ticks", m.ticksTotal.WithLabelValues("end"), 1},
		{"invoked", m.callbacksTotal.WithLabelValues("invoked"), 4},
		{"throttled", m.callbacksTotal.WithLabelValues("throttled"), 2},
		{"removed", m.callbacksTotal.WithLabelValues("removed"), 1},
		{"panicked", m.callbacksTotal.WithLabelValues("panicked"), 1},
		{"coalesced", m.coalesced, 2},
	}
	for _, c := range checks {
		if got := metricCounterValue(t, c.c); got != c.want {
			t.Errorf("%s = %v, want %v", c.name, got, c.want)
		}
	}
	if got := metricHistogramCount(t, m.tickDuration); got != 2 {
		t.Errorf("tick_duration count = %d, want 2", got)
	}
}

func TestObserverSubscribersAcrossHubs(t *testing.T) {
	m := NewMetrics()
	a, b := m.Observer(), m.Observer()

	a.ObserveSubscribers(3)
	b.ObserveSubscribers(2)
	if got := metricGaugeValue(t, m.subscribers); got != 5 {
		t.Fatalf("subscribers = %v, want 5", got)
	}

	a.ObserveSubscribers(1)
	b.ObserveSubscribers(0)
	if got := metricGaugeValue(t, m.subscribers); got != 1 {
		t.Fatalf("subscribers = %v, want 1", got)
	}
}

func TestSessionAndManifestMetrics(t *testing.T) {
	m := NewMetrics()

	m.RecordSessionOpen()
	m.RecordSessionOpen()
	m.RecordSessionClose()
	if got := metricGaugeValue(t, m.activeSessions); got != 1 {
		t.Errorf("active_sessions = %v, want 1", got)
	}

	m.RecordPatches(4)
	m.RecordPatches(0)
	if got := metricCounterValue(t, m.patchesSent); got != 4 {
		t.Errorf("patches_sent = %v, want 4", got)
	}

	m.RecordManifestLoad(nil)
	m.RecordManifestLoad(errors.New("boom"))
	if got := metricCounterValue(t, m.manifestLoads.WithLabelValues("error")); got != 1 {
		t.Errorf("manifest_loads(error) = %v, want 1", got)
	}

	m.RecordWebSocketError(errors.New("i/o timeout"))
	if got := metricCounterValue(t, m.wsErrors.WithLabelValues("timeout")); got != 1 {
		t.Errorf("websocket_errors(timeout) = %v, want 1", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordSessionOpen()
	m.RecordSessionClose()
	m.RecordPatches(1)
	m.RecordManifestLoad(nil)
	m.RecordWebSocketError(errors.New("x"))
	if m.Observer() != nil {
		t.Fatal("expected nil observer from nil metrics")
	}
}

func TestCategorizeError(t *testing.T) {
	tests := map[string]string{
		"read tcp: i/o timeout":     "timeout",
		"websocket: close 1001":     "closed",
		"protocol: frame too large": "protocol",
		"unexpected EOF":            "protocol",
		"handshake failed":          "handshake",
		"something else entirely":   "internal",
	}
	for msg, want := range tests {
		if got := categorizeError(errors.New(msg)); got != want {
			t.Errorf("categorizeError(%q) = %q, want %q", msg, got, want)
		}
	}
}

func TestPrometheusMiddlewareAndHandler(t *testing.T) {
	m := NewMetrics(WithNamespace("test"))

	r := chi.NewRouter()
	r.Use(Prometheus(m))
	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.Write([]byte("ok"))
	})
	r.Get("/fail", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	})
	r.Handle("/metrics", m.Handler())

	for _, path := range []string{"/healthz", "/healthz", "/fail"} {
		r.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, path, nil))
	}

	if got := metricCounterValue(t, m.httpRequests.WithLabelValues("/healthz", "200")); got != 2 {
		t.Errorf("http_requests(/healthz,200) = %v, want 2", got)
	}
	if got := metricCounterValue(t, m.httpRequests.WithLabelValues("/fail", "418")); got != 1 {
		t.Errorf("http_requests(/fail,418) = %v, want 1", got)
	}

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if !strings.Contains(rec.Body.String(), "test_http_requests_total") {
		t.Fatalf("metrics output missing http_requests_total:\n%s", rec.Body.String())
	}
}

func TestPrometheusNilMetricsPassesThrough(t *testing.T) {
	called := false
	h := Prometheus(nil)(http.HandlerFunc(func(http.ResponseWriter, *http.Request) { called = true }))
	h.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	if !called {
		t.Fatal("expected next handler to run")
	}
}
