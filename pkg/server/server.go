package server

import (
	"context"
	"errors"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/gorilla/websocket"

	clientdist "github.com/vango-dev/scrollkit/client/dist"
	"github.com/vango-dev/scrollkit/pkg/manifest"
	"github.com/vango-dev/scrollkit/pkg/middleware"
	"github.com/vango-dev/scrollkit/pkg/protocol"
)

// ClientPath is where the browser client is served.
const ClientPath = "/_scrollkit/client.js"

// Server is the HTTP/WebSocket server for scrollkit.
type Server struct {
	config   *ServerConfig
	sessions *SessionManager
	manifest *manifest.Store

	upgrader websocket.Upgrader
	router   chi.Router

	metrics    *middleware.Metrics
	tracer     string
	httpServer *http.Server
	logger     *slog.Logger
}

// Option configures a Server.
type Option func(*Server)

// WithLogger sets the logger.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Server) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics enables Prometheus collection and the /metrics route.
func WithMetrics(m *middleware.Metrics) Option {
	return func(s *Server) {
		s.metrics = m
	}
}

// WithTracing enables OpenTelemetry request spans under tracerName.
func WithTracing(tracerName string) Option {
	return func(s *Server) {
		s.tracer = tracerName
	}
}

// New creates a server serving pages from store.
func New(config *ServerConfig, store *manifest.Store, opts ...Option) *Server {
	config = config.withDefaults()

	s := &Server{
		config:   config,
		manifest: store,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.logger = s.logger.With("component", "server")

	s.upgrader = websocket.Upgrader{
		ReadBufferSize:  config.ReadBufferSize,
		WriteBufferSize: config.WriteBufferSize,
		CheckOrigin:     config.CheckOrigin,
	}
	s.sessions = NewSessionManager(config.MaxSessions, s.metrics, s.logger)
	s.router = s.routes()
	return s
}

func (s *Server) routes() chi.Router {
	r := chi.NewRouter()
	r.Use(chimw.RealIP)
	r.Use(chimw.Recoverer)
	if s.tracer != "" {
		r.Use(middleware.OpenTelemetry(
			middleware.WithTracerName(s.tracer),
			middleware.WithRequestFilter(func(r *http.Request) bool {
				return r.URL.Path != "/healthz"
			}),
		))
	}
	r.Use(middleware.Prometheus(s.metrics))

	r.Get("/ws", s.HandleWebSocket)
	r.Get("/healthz", s.handleHealth)
	r.Get(ClientPath, s.handleClient)
	if s.metrics != nil {
		r.Handle("/metrics", s.metrics.Handler())
	}
	return r
}

// Handler returns the server's HTTP handler.
func (s *Server) Handler() http.Handler {
	return s.router
}

// ServeHTTP implements http.Handler.
func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	if s.manifest == nil || s.manifest.Current() == nil {
		http.Error(w, "manifest not loaded", http.StatusServiceUnavailable)
		return
	}
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.Write([]byte("ok"))
}

func (s *Server) handleClient(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/javascript; charset=utf-8")
	w.Header().Set("Cache-Control", "public, max-age=3600")
	w.Write(clientdist.ScrollkitJS)
}

// HandleWebSocket upgrades the connection, performs the handshake and
// serves the session until it ends.
func (s *Server) HandleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(w, r, nil)
	if err != nil {
		s.logger.Warn("websocket upgrade failed", "error", err)
		s.metrics.RecordWebSocketError(err)
		return
	}
	conn.SetReadLimit(maxMessageSize)

	hello, err := s.readClientHello(conn)
	if err != nil {
		s.logger.Warn("handshake failed", "remote", r.RemoteAddr, "error", err)
		s.sendHandshakeError(conn, protocol.HandshakeInvalidFormat)
		conn.Close()
		return
	}
	if !hello.Version.Compatible() {
		s.sendHandshakeError(conn, protocol.HandshakeVersionMismatch)
		conn.Close()
		return
	}
	if err := s.sessions.Reserve(); err != nil {
		s.logger.Warn("session rejected", "reason", err)
		s.sendHandshakeError(conn, protocol.HandshakeServerBusy)
		conn.Close()
		return
	}

	var page *manifest.Page
	if s.manifest != nil {
		page, _ = s.manifest.Page(hello.Path)
	}

	session := newSession(conn, hello, page, s.config, s.metrics, s.logger)
	if err := s.sessions.Add(session); err != nil {
		s.sendHandshakeError(conn, protocol.HandshakeServerBusy)
		conn.Close()
		return
	}

	if err := s.sendServerHello(session); err != nil {
		session.Close()
		return
	}
	if page == nil {
		session.sendErrorMessage(protocol.ErrNotFound, "no effects configured for "+hello.Path)
	}

	session.logger.Info("session started",
		"remote", r.RemoteAddr,
		"viewport", []uint16{hello.ViewportW, hello.ViewportH},
		"effects", session.effects.Len())
	session.Serve()
}

// readClientHello waits for the first frame, which must be a handshake.
func (s *Server) readClientHello(conn *websocket.Conn) (*protocol.ClientHello, error) {
	conn.SetReadDeadline(time.Now().Add(s.config.HandshakeTimeout))
	defer conn.SetReadDeadline(time.Time{})

	_, msg, err := conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	frame, err := protocol.DecodeFrame(msg)
	if err != nil {
		return nil, err
	}
	if frame.Type != protocol.FrameHandshake {
		return nil, ErrInvalidHandshake
	}
	return protocol.DecodeClientHello(frame.Payload)
}

func (s *Server) sendHandshakeError(conn *websocket.Conn, status protocol.HandshakeStatus) {
	payload := protocol.EncodeServerHello(protocol.NewServerHelloError(status))
	conn.SetWriteDeadline(time.Now().Add(s.config.WriteTimeout))
	conn.WriteMessage(websocket.BinaryMessage, protocol.NewFrame(protocol.FrameHandshake, payload).Encode())
}

func (s *Server) sendServerHello(session *Session) error {
	hello := protocol.NewServerHello(
		session.ID,
		uint64(time.Now().UnixMilli()),
		uint16(min(s.config.FrameInterval.Milliseconds(), 0xffff)),
		uint16(min(s.config.QuietWindow.Milliseconds(), 0xffff)),
	)
	return session.writeFrame(protocol.NewFrame(protocol.FrameHandshake, protocol.EncodeServerHello(hello)))
}

// Run listens on the configured address and serves until ctx is done,
// then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	ln, err := net.Listen("tcp", s.config.Address)
	if err != nil {
		return err
	}
	return s.Serve(ctx, ln)
}

// Serve serves on ln until ctx is done.
func (s *Server) Serve(ctx context.Context, ln net.Listener) error {
	s.httpServer = &http.Server{
		Handler:           s.router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("server starting", "address", ln.Addr().String())
		errCh <- s.httpServer.Serve(ln)
	}()

	select {
	case err := <-errCh:
		if errors.Is(err, http.ErrServerClosed) {
			return nil
		}
		return err

	case <-ctx.Done():
		s.logger.Info("shutting down...")
		return s.Shutdown(context.Background())
	}
}

// Shutdown closes every session and stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, s.config.ShutdownTimeout)
	defer cancel()

	s.sessions.Shutdown()

	if s.httpServer != nil {
		if err := s.httpServer.Shutdown(ctx); err != nil {
			s.logger.Error("shutdown error", "error", err)
			return err
		}
	}

	s.logger.Info("server shutdown complete")
	return nil
}

// Sessions returns the session manager.
func (s *Server) Sessions() *SessionManager {
	return s.sessions
}

// Config returns the effective configuration.
func (s *Server) Config() *ServerConfig {
	return s.config
}
