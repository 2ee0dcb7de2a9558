package server

import (
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/vango-dev/scrollkit/pkg/middleware"
	"github.com/vango-dev/scrollkit/pkg/protocol"
)

// SessionManager tracks the open sessions.
type SessionManager struct {
	mu       sync.RWMutex
	sessions map[string]*Session
	shutdown bool

	maxSessions int

	totalCreated atomic.Uint64
	totalClosed  atomic.Uint64
	peakSessions int

	metrics *middleware.Metrics
	logger  *slog.Logger
}

// NewSessionManager creates a manager. maxSessions <= 0 means no limit.
func NewSessionManager(maxSessions int, metrics *middleware.Metrics, logger *slog.Logger) *SessionManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionManager{
		sessions:    make(map[string]*Session),
		maxSessions: maxSessions,
		metrics:     metrics,
		logger:      logger,
	}
}

// Reserve checks that a new session fits. It is advisory; Add enforces
// the limit.
func (sm *SessionManager) Reserve() error {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.checkLocked()
}

func (sm *SessionManager) checkLocked() error {
	if sm.shutdown {
		return ErrSessionClosed
	}
	if sm.maxSessions > 0 && len(sm.sessions) >= sm.maxSessions {
		return ErrMaxSessionsReached
	}
	return nil
}

// Add registers s. The session is removed automatically when it closes.
func (sm *SessionManager) Add(s *Session) error {
	sm.mu.Lock()
	if err := sm.checkLocked(); err != nil {
		sm.mu.Unlock()
		return err
	}
	sm.sessions[s.ID] = s
	if n := len(sm.sessions); n > sm.peakSessions {
		sm.peakSessions = n
	}
	sm.mu.Unlock()

	sm.totalCreated.Add(1)
	sm.metrics.RecordSessionOpen()

	go func() {
		<-s.Done()
		sm.remove(s)
	}()
	return nil
}

func (sm *SessionManager) remove(s *Session) {
	sm.mu.Lock()
	cur, ok := sm.sessions[s.ID]
	if ok && cur == s {
		delete(sm.sessions, s.ID)
	}
	sm.mu.Unlock()

	if ok && cur == s {
		sm.totalClosed.Add(1)
		sm.metrics.RecordSessionClose()
	}
}

// Get returns the session with id, or nil.
func (sm *SessionManager) Get(id string) *Session {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return sm.sessions[id]
}

// Count returns the number of open sessions.
func (sm *SessionManager) Count() int {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return len(sm.sessions)
}

// Close closes the session with id. Unknown ids are ignored.
func (sm *SessionManager) Close(id string) {
	if s := sm.Get(id); s != nil {
		s.Close()
	}
}

// Shutdown refuses new sessions and closes every open one with
// CloseServerShutdown.
func (sm *SessionManager) Shutdown() {
	sm.mu.Lock()
	sm.shutdown = true
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.mu.Unlock()

	for _, s := range sessions {
		s.CloseWithReason(protocol.CloseServerShutdown, "server shutting down")
	}
	sm.logger.Info("sessions closed", "count", len(sessions))
}

// ManagerStats summarizes session activity.
type ManagerStats struct {
	Active       int
	Peak         int
	TotalCreated uint64
	TotalClosed  uint64
}

// Stats returns the manager's counters.
func (sm *SessionManager) Stats() ManagerStats {
	sm.mu.RLock()
	defer sm.mu.RUnlock()
	return ManagerStats{
		Active:       len(sm.sessions),
		Peak:         sm.peakSessions,
		TotalCreated: sm.totalCreated.Load(),
		TotalClosed:  sm.totalClosed.Load(),
	}
}

// Each calls fn for every open session.
func (sm *SessionManager) Each(fn func(*Session)) {
	sm.mu.RLock()
	sessions := make([]*Session, 0, len(sm.sessions))
	for _, s := range sm.sessions {
		sessions = append(sessions, s)
	}
	sm.mu.RUnlock()

	for _, s := range sessions {
		fn(s)
	}
}
