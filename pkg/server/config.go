package server

import (
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/vango-dev/scrollkit/pkg/protocol"
	"github.com/vango-dev/scrollkit/pkg/scroll"
)

// ServerConfig configures the HTTP and WebSocket server.
type ServerConfig struct {
	// Address is the TCP address to listen on.
	// Default: "localhost:8080".
	Address string

	// ReadBufferSize is the WebSocket read buffer size.
	// Default: 4096.
	ReadBufferSize int

	// WriteBufferSize is the WebSocket write buffer size.
	// Default: 4096.
	WriteBufferSize int

	// CheckOrigin is called to validate the request origin.
	// Default: SameOriginCheck.
	CheckOrigin func(r *http.Request) bool

	// HandshakeTimeout bounds the wait for the ClientHello.
	// Default: 10 seconds.
	HandshakeTimeout time.Duration

	// IdleTimeout closes a session that sends nothing, not even a pong,
	// for this long.
	// Default: 2 minutes.
	IdleTimeout time.Duration

	// WriteTimeout bounds a single frame write.
	// Default: 10 seconds.
	WriteTimeout time.Duration

	// HeartbeatInterval is the ping interval.
	// Default: 30 seconds.
	HeartbeatInterval time.Duration

	// FrameInterval is the delay between a scroll event and the frame
	// that samples it. It plays the role of the browser's animation frame.
	// Default: 16ms.
	FrameInterval time.Duration

	// QuietWindow is the scroll-end debounce window.
	// Default: scroll.DefaultQuietWindow.
	QuietWindow time.Duration

	// MaxSessions is the maximum number of concurrent sessions.
	// 0 means no limit.
	MaxSessions int

	// MaxDispatchQueue is the capacity of each session's loop queue.
	// Default: 256.
	MaxDispatchQueue int

	// ShutdownTimeout is the maximum time to wait for graceful shutdown.
	// Default: 30 seconds.
	ShutdownTimeout time.Duration
}

// DefaultServerConfig returns a ServerConfig with sensible defaults.
func DefaultServerConfig() *ServerConfig {
	return &ServerConfig{
		Address:           "localhost:8080",
		ReadBufferSize:    4096,
		WriteBufferSize:   4096,
		CheckOrigin:       SameOriginCheck,
		HandshakeTimeout:  10 * time.Second,
		IdleTimeout:       2 * time.Minute,
		WriteTimeout:      10 * time.Second,
		HeartbeatInterval: 30 * time.Second,
		FrameInterval:     16 * time.Millisecond,
		QuietWindow:       scroll.DefaultQuietWindow,
		MaxDispatchQueue:  256,
		ShutdownTimeout:   30 * time.Second,
	}
}

// withDefaults returns a copy of c with zero fields filled in.
func (c *ServerConfig) withDefaults() *ServerConfig {
	d := DefaultServerConfig()
	if c == nil {
		return d
	}
	out := *c
	if out.Address == "" {
		out.Address = d.Address
	}
	if out.ReadBufferSize <= 0 {
		out.ReadBufferSize = d.ReadBufferSize
	}
	if out.WriteBufferSize <= 0 {
		out.WriteBufferSize = d.WriteBufferSize
	}
	if out.CheckOrigin == nil {
		out.CheckOrigin = d.CheckOrigin
	}
	if out.HandshakeTimeout <= 0 {
		out.HandshakeTimeout = d.HandshakeTimeout
	}
	if out.IdleTimeout <= 0 {
		out.IdleTimeout = d.IdleTimeout
	}
	if out.WriteTimeout <= 0 {
		out.WriteTimeout = d.WriteTimeout
	}
	if out.HeartbeatInterval <= 0 {
		out.HeartbeatInterval = d.HeartbeatInterval
	}
	if out.FrameInterval <= 0 {
		out.FrameInterval = d.FrameInterval
	}
	if out.QuietWindow <= 0 {
		out.QuietWindow = d.QuietWindow
	}
	if out.MaxDispatchQueue <= 0 {
		out.MaxDispatchQueue = d.MaxDispatchQueue
	}
	if out.ShutdownTimeout <= 0 {
		out.ShutdownTimeout = d.ShutdownTimeout
	}
	return &out
}

// maxMessageSize is the largest websocket message a client may send.
const maxMessageSize = protocol.FrameHeaderSize + protocol.MaxPayloadSize

// SameOriginCheck accepts requests without an Origin header and requests
// whose Origin host matches the request host.
func SameOriginCheck(r *http.Request) bool {
	origin := r.Header.Get("Origin")
	if origin == "" {
		return true
	}
	u, err := url.Parse(origin)
	if err != nil {
		return false
	}
	return strings.EqualFold(u.Host, r.Host)
}

// AllowOrigins returns a CheckOrigin function accepting same-origin
// requests plus the listed origins. "*" allows every origin.
func AllowOrigins(origins ...string) func(r *http.Request) bool {
	allowed := make(map[string]bool, len(origins))
	for _, o := range origins {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		allowed[strings.ToLower(strings.TrimRight(o, "/"))] = true
	}
	return func(r *http.Request) bool {
		if SameOriginCheck(r) {
			return true
		}
		return allowed[strings.ToLower(r.Header.Get("Origin"))]
	}
}
