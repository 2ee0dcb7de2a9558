package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"sync"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/vango-dev/scrollkit/pkg/scroll"
)

// MetricsConfig configures the Prometheus collectors.
type MetricsConfig struct {
	// Namespace is the metrics namespace (default: "scrollkit").
	Namespace string

	// Subsystem is the metrics subsystem (default: "").
	Subsystem string

	// ConstLabels are constant labels added to all metrics.
	ConstLabels prometheus.Labels

	// Buckets are the histogram buckets for tick duration.
	Buckets []float64

	// Registry receives the collectors. Default: a fresh registry.
	Registry *prometheus.Registry
}

// MetricsOption configures the Prometheus collectors.
type MetricsOption func(*MetricsConfig)

// WithNamespace sets the metrics namespace.
func WithNamespace(namespace string) MetricsOption {
	return func(c *MetricsConfig) {
		if namespace != "" {
			c.Namespace = namespace
		}
	}
}

// WithSubsystem sets the metrics subsystem.
func WithSubsystem(subsystem string) MetricsOption {
	return func(c *MetricsConfig) {
		c.Subsystem = subsystem
	}
}

// WithConstLabels sets constant labels for all metrics.
func WithConstLabels(labels prometheus.Labels) MetricsOption {
	return func(c *MetricsConfig) {
		c.ConstLabels = labels
	}
}

// WithBuckets sets the tick duration histogram buckets.
func WithBuckets(buckets []float64) MetricsOption {
	return func(c *MetricsConfig) {
		c.Buckets = buckets
	}
}

// WithRegistry sets the Prometheus registry.
func WithRegistry(registry *prometheus.Registry) MetricsOption {
	return func(c *MetricsConfig) {
		c.Registry = registry
	}
}

func defaultMetricsConfig() MetricsConfig {
	return MetricsConfig{
		Namespace: "scrollkit",
		// Ticks finish well inside one frame; resolve down to 10µs.
		Buckets: []float64{.00001, .00005, .0001, .0005, .001, .004, .008, .016, .05},
	}
}

// Metrics holds the scrollkit collectors. A nil *Metrics is valid and
// records nothing.
type Metrics struct {
	registry *prometheus.Registry

	ticksTotal     *prometheus.CounterVec
	callbacksTotal *prometheus.CounterVec
	tickDuration   prometheus.Histogram
	coalesced      prometheus.Counter
	subscribers    prometheus.Gauge
	activeSessions prometheus.Gauge
	patchesSent    prometheus.Counter
	wsErrors       *prometheus.CounterVec
	manifestLoads  *prometheus.CounterVec
	httpRequests   *prometheus.CounterVec
}

// NewMetrics creates and registers the collectors.
func NewMetrics(opts ...MetricsOption) *Metrics {
	config := defaultMetricsConfig()
	for _, opt := range opts {
		opt(&config)
	}
	if config.Registry == nil {
		config.Registry = prometheus.NewRegistry()
	}
	factory := promauto.With(config.Registry)

	counterOpts := func(name, help string) prometheus.CounterOpts {
		return prometheus.CounterOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}
	}
	gaugeOpts := func(name, help string) prometheus.GaugeOpts {
		return prometheus.GaugeOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        name,
			Help:        help,
			ConstLabels: config.ConstLabels,
		}
	}

	return &Metrics{
		registry: config.Registry,

		ticksTotal: factory.NewCounterVec(
			counterOpts("dispatch_ticks_total", "Dispatch ticks by kind"),
			[]string{"kind"}),

		callbacksTotal: factory.NewCounterVec(
			counterOpts("callbacks_total", "Subscriber callbacks by result"),
			[]string{"result"}),

		tickDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace:   config.Namespace,
			Subsystem:   config.Subsystem,
			Name:        "tick_duration_seconds",
			Help:        "Time spent dispatching one tick",
			ConstLabels: config.ConstLabels,
			Buckets:     config.Buckets,
		}),

		coalesced: factory.NewCounter(
			counterOpts("coalesced_events_total", "Scroll events folded into an already pending frame")),

		subscribers: factory.NewGauge(
			gaugeOpts("subscribers", "Registered subscribers across all hubs")),

		activeSessions: factory.NewGauge(
			gaugeOpts("active_sessions", "Number of open websocket sessions")),

		patchesSent: factory.NewCounter(
			counterOpts("patches_sent_total", "Total number of patches sent to clients")),

		wsErrors: factory.NewCounterVec(
			counterOpts("websocket_errors_total", "Total websocket errors by type"),
			[]string{"type"}),

		manifestLoads: factory.NewCounterVec(
			counterOpts("manifest_loads_total", "Manifest loads by result"),
			[]string{"result"}),

		httpRequests: factory.NewCounterVec(
			counterOpts("http_requests_total", "HTTP requests by route and status"),
			[]string{"route", "status"}),
	}
}

// Registry returns the registry the collectors are registered with.
func (m *Metrics) Registry() *prometheus.Registry {
	return m.registry
}

// Handler serves the registry in the Prometheus text format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{Registry: m.registry})
}

// Observer returns a scroll.Observer for one hub.
func (m *Metrics) Observer() scroll.Observer {
	if m == nil {
		return nil
	}
	return &hubObserver{m: m}
}

// RecordSessionOpen records a new session.
func (m *Metrics) RecordSessionOpen() {
	if m != nil {
		m.activeSessions.Inc()
	}
}

// RecordSessionClose records a closed session.
func (m *Metrics) RecordSessionClose() {
	if m != nil {
		m.activeSessions.Dec()
	}
}

// RecordPatches records patches written to a client.
func (m *Metrics) RecordPatches(count int) {
	if m != nil && count > 0 {
		m.patchesSent.Add(float64(count))
	}
}

// RecordWebSocketError records a websocket error, bucketed by type.
func (m *Metrics) RecordWebSocketError(err error) {
	if m != nil && err != nil {
		m.wsErrors.WithLabelValues(categorizeError(err)).Inc()
	}
}

// RecordManifestLoad records the outcome of a manifest load.
func (m *Metrics) RecordManifestLoad(err error) {
	if m == nil {
		return
	}
	result := "success"
	if err != nil {
		result = "error"
	}
	m.manifestLoads.WithLabelValues(result).Inc()
}

// categorizeError returns a low-cardinality label for err.
func categorizeError(err error) string {
	msg := strings.ToLower(err.Error())
	switch {
	case strings.Contains(msg, "timeout"):
		return "timeout"
	case strings.Contains(msg, "close"):
		return "closed"
	case strings.Contains(msg, "frame"), strings.Contains(msg, "varint"), strings.Contains(msg, "eof"):
		return "protocol"
	case strings.Contains(msg, "handshake"):
		return "handshake"
	default:
		return "internal"
	}
}

// hubObserver adapts Metrics to scroll.Observer. It remembers its own
// hub's subscriber count so the shared gauge moves by deltas.
type hubObserver struct {
	m *Metrics

	mu          sync.Mutex
	subscribers int
}

func (o *hubObserver) ObserveTick(s scroll.TickStats) {
	kind := "frame"
	if s.Forced {
		kind = "end"
	}
	o.m.ticksTotal.WithLabelValues(kind).Inc()
	o.m.tickDuration.Observe(s.Duration.Seconds())

	add := func(result string, n int) {
		if n > 0 {
			o.m.callbacksTotal.WithLabelValues(result).Add(float64(n))
		}
	}
	add("invoked", s.Invoked)
	add("throttled", s.Throttled)
	add("removed", s.Removed)
}

func (o *hubObserver) ObserveCallbackPanic(string) {
	o.m.callbacksTotal.WithLabelValues("panicked").Inc()
}

func (o *hubObserver) ObserveCoalesced() {
	o.m.coalesced.Inc()
}

func (o *hubObserver) ObserveSubscribers(n int) {
	o.mu.Lock()
	delta := n - o.subscribers
	o.subscribers = n
	o.mu.Unlock()
	o.m.subscribers.Add(float64(delta))
}

// Prometheus counts requests by chi route pattern and status.
func Prometheus(m *Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ww := chimw.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r)

			status := ww.Status()
			if status == 0 {
				status = http.StatusOK
			}
			m.httpRequests.WithLabelValues(routePattern(r), strconv.Itoa(status)).Inc()
		})
	}
}

// routePattern returns the matched chi pattern, or "unmatched".
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if p := rctx.RoutePattern(); p != "" {
			return p
		}
	}
	return "unmatched"
}
