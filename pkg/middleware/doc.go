// Package middleware provides the observability layer of the scrollkit
// server.
//
// # Prometheus Metrics
//
// Metrics holds every collector. It is a scroll.Observer factory: each
// session hub gets its own observer so subscriber gauges add up across
// sessions.
//
//	m := middleware.NewMetrics(middleware.WithNamespace("scrollkit"))
//	hub := scroll.NewHub(surface, scroll.WithObserver(m.Observer()))
//
//	r := chi.NewRouter()
//	r.Use(middleware.Prometheus(m))
//	r.Handle("/metrics", m.Handler())
//
// Collected:
//   - scrollkit_dispatch_ticks_total: dispatch ticks by kind (frame, end)
//   - scrollkit_callbacks_total: subscriber invocations by result
//   - scrollkit_tick_duration_seconds: time spent dispatching one tick
//   - scrollkit_coalesced_events_total: scroll events folded into a frame
//   - scrollkit_subscribers: registered subscribers across all hubs
//   - scrollkit_active_sessions: open websocket sessions
//   - scrollkit_patches_sent_total: patches written to clients
//   - scrollkit_websocket_errors_total: websocket errors by type
//   - scrollkit_manifest_loads_total: manifest loads by result
//   - scrollkit_http_requests_total: HTTP requests by route and status
//
// # OpenTelemetry
//
// OpenTelemetry wraps the router and starts a server span per request.
// The websocket route's span lives as long as the session. StartSpan
// starts child spans for work outside a request, such as manifest loads.
// The global tracer provider is used; configure it in main.
package middleware
