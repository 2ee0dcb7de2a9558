package server

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vango-dev/scrollkit/pkg/middleware"
	"github.com/vango-dev/scrollkit/pkg/protocol"
)

func detachedSession(t *testing.T, m *middleware.Metrics) *Session {
	t.Helper()
	hello := protocol.NewClientHello("/", 800, 600)
	return newSession(nil, hello, nil, DefaultServerConfig().withDefaults(), m, quietLogger())
}

func TestManagerLimit(t *testing.T) {
	sm := NewSessionManager(2, nil, quietLogger())

	a, b, c := detachedSession(t, nil), detachedSession(t, nil), detachedSession(t, nil)
	require.NoError(t, sm.Add(a))
	require.NoError(t, sm.Reserve())
	require.NoError(t, sm.Add(b))

	assert.True(t, errors.Is(sm.Reserve(), ErrMaxSessionsReached))
	assert.True(t, errors.Is(sm.Add(c), ErrMaxSessionsReached))
	assert.Equal(t, 2, sm.Count())
	assert.Same(t, a, sm.Get(a.ID))

	sm.Close(a.ID)
	require.Eventually(t, func() bool { return sm.Count() == 1 }, time.Second, time.Millisecond)
	require.NoError(t, sm.Add(c))

	stats := sm.Stats()
	assert.Equal(t, 2, stats.Active)
	assert.Equal(t, 2, stats.Peak)
	assert.Equal(t, uint64(3), stats.TotalCreated)
}

func TestManagerShutdown(t *testing.T) {
	m := middleware.NewMetrics()
	sm := NewSessionManager(0, m, quietLogger())

	s := detachedSession(t, m)
	require.NoError(t, sm.Add(s))

	sm.Shutdown()
	assert.True(t, s.IsClosed())
	assert.False(t, s.surface.Available())
	assert.True(t, errors.Is(sm.Reserve(), ErrSessionClosed))
	assert.Eventually(t, func() bool { return sm.Count() == 0 }, time.Second, time.Millisecond)

	// Closing twice is harmless.
	s.Close()
}

func TestManagerEach(t *testing.T) {
	sm := NewSessionManager(0, nil, quietLogger())
	for range 3 {
		require.NoError(t, sm.Add(detachedSession(t, nil)))
	}

	seen := 0
	sm.Each(func(*Session) { seen++ })
	assert.Equal(t, 3, seen)
	sm.Shutdown()
}
