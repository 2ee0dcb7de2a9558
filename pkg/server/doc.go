// Package server runs scrollkit over WebSocket.
//
// Each connection becomes a Session: the browser reports raw scroll,
// resize and layout events; the session feeds them to a scroll.Hub through
// a Surface implementation; the page's effects turn the resulting Signals
// into patches that go back to the browser in batched Patches frames.
//
// # Session Lifecycle
//
// The session runs three goroutines:
//   - ReadLoop: receives frames, decodes events, dispatches them to the loop
//   - EventLoop: runs dispatched functions one at a time and flushes patches
//   - WriteLoop: sends heartbeat pings
//
// Everything that touches the hub or the effects runs on EventLoop. Frame
// callbacks and the scroll-end timer are posted there too, so subscribers
// never run concurrently with each other. Client events are dropped when
// the loop queue is full; hub callbacks wait for room instead.
//
// # Routes
//
//	GET /ws                    WebSocket endpoint
//	GET /healthz               liveness
//	GET /metrics               Prometheus, when metrics are enabled
//	GET /_scrollkit/client.js  browser client
//
// # Example Usage
//
//	store := manifest.NewStore(manifest.NewFileSource("site.yaml"), logger)
//	if err := store.Load(ctx); err != nil {
//	    return err
//	}
//	srv := server.New(server.DefaultServerConfig(), store,
//	    server.WithLogger(logger),
//	    server.WithMetrics(middleware.NewMetrics()),
//	)
//	return srv.Run(ctx)
package server
