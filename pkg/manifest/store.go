package manifest

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	otelcodes "go.opentelemetry.io/otel/codes"
)

const tracerName = "github.com/vango-dev/scrollkit/pkg/manifest"

// Store holds the active manifest. Reloads swap it atomically; sessions
// that already built their effects keep the manifest they started with.
type Store struct {
	source Source
	logger *slog.Logger

	current atomic.Pointer[Manifest]

	mu        sync.Mutex
	listeners []func(*Manifest)
	loadHooks []func(error)
}

// NewStore returns an empty store backed by source.
func NewStore(source Source, logger *slog.Logger) *Store {
	if logger == nil {
		logger = slog.Default()
	}
	return &Store{
		source: source,
		logger: logger.With("component", "manifest", "source", source.String()),
	}
}

// Load fetches the manifest and makes it current. On error the previous
// manifest stays active.
func (s *Store) Load(ctx context.Context) error {
	ctx, span := otel.Tracer(tracerName).Start(ctx, "manifest.Load")
	defer span.End()
	span.SetAttributes(attribute.String("manifest.source", s.source.String()))

	m, err := s.source.Load(ctx)
	s.mu.Lock()
	hooks := append([]func(error){}, s.loadHooks...)
	s.mu.Unlock()
	for _, fn := range hooks {
		fn(err)
	}
	if err != nil {
		span.RecordError(err)
		span.SetStatus(otelcodes.Error, err.Error())
		return err
	}
	span.SetAttributes(attribute.Int("manifest.pages", len(m.Pages)))
	s.Set(m)
	return nil
}

// Set makes m current and notifies listeners.
func (s *Store) Set(m *Manifest) {
	s.current.Store(m)
	s.logger.Info("manifest loaded", "pages", len(m.Pages))

	s.mu.Lock()
	listeners := append([]func(*Manifest){}, s.listeners...)
	s.mu.Unlock()
	for _, fn := range listeners {
		fn(m)
	}
}

// Current returns the active manifest, or nil before the first Load.
func (s *Store) Current() *Manifest {
	return s.current.Load()
}

// Page looks up path in the active manifest.
func (s *Store) Page(path string) (*Page, bool) {
	m := s.current.Load()
	if m == nil {
		return nil, false
	}
	return m.Page(path)
}

// OnChange registers fn to run after every successful load.
func (s *Store) OnChange(fn func(*Manifest)) {
	s.mu.Lock()
	s.listeners = append(s.listeners, fn)
	s.mu.Unlock()
}

// OnLoad registers fn to run after every Load attempt with its error.
func (s *Store) OnLoad(fn func(error)) {
	s.mu.Lock()
	s.loadHooks = append(s.loadHooks, fn)
	s.mu.Unlock()
}

// Source returns the store's source.
func (s *Store) Source() Source {
	return s.source
}
