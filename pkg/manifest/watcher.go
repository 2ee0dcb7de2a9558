package manifest

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sync"
	"time"

	"github.com/fsnotify/fsnotify"
)

// DefaultDebounce groups the burst of events an editor save produces.
const DefaultDebounce = 100 * time.Millisecond

// Watcher reloads a Store when its manifest file changes on disk.
type Watcher struct {
	store    *Store
	path     string
	debounce time.Duration
	logger   *slog.Logger

	watcher *fsnotify.Watcher

	mu    sync.Mutex
	timer *time.Timer
	done  chan struct{}
}

// NewWatcher watches the file behind a FileSource store.
func NewWatcher(store *Store, debounce time.Duration) (*Watcher, error) {
	fs, ok := store.Source().(*FileSource)
	if !ok {
		return nil, fmt.Errorf("manifest: cannot watch %s", store.Source())
	}
	if debounce <= 0 {
		debounce = DefaultDebounce
	}

	watcher, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("manifest: creating watcher: %w", err)
	}

	abs, err := filepath.Abs(fs.Path)
	if err != nil {
		watcher.Close()
		return nil, err
	}

	return &Watcher{
		store:    store,
		path:     abs,
		debounce: debounce,
		logger:   store.logger.With("watch", abs),
		watcher:  watcher,
		done:     make(chan struct{}),
	}, nil
}

// Start watches the manifest's directory until ctx is cancelled or Stop
// is called. Editors often replace the file by rename, so the directory
// is watched and events are filtered by name.
func (w *Watcher) Start(ctx context.Context) error {
	if err := w.watcher.Add(filepath.Dir(w.path)); err != nil {
		return fmt.Errorf("manifest: watching %s: %w", filepath.Dir(w.path), err)
	}
	go w.watchLoop(ctx)
	return nil
}

// Stop stops watching.
func (w *Watcher) Stop() error {
	w.mu.Lock()
	if w.timer != nil {
		w.timer.Stop()
		w.timer = nil
	}
	w.mu.Unlock()
	return w.watcher.Close()
}

// Done is closed when the watch loop exits.
func (w *Watcher) Done() <-chan struct{} {
	return w.done
}

func (w *Watcher) watchLoop(ctx context.Context) {
	defer close(w.done)
	for {
		select {
		case <-ctx.Done():
			return

		case event, ok := <-w.watcher.Events:
			if !ok {
				return
			}
			w.handleEvent(ctx, event)

		case err, ok := <-w.watcher.Errors:
			if !ok {
				return
			}
			w.logger.Warn("watch error", "error", err)
		}
	}
}

func (w *Watcher) handleEvent(ctx context.Context, event fsnotify.Event) {
	if filepath.Clean(event.Name) != w.path {
		return
	}
	if event.Op&(fsnotify.Write|fsnotify.Create|fsnotify.Rename) == 0 {
		return
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.timer != nil {
		w.timer.Stop()
	}
	w.timer = time.AfterFunc(w.debounce, func() {
		w.reload(ctx)
	})
}

func (w *Watcher) reload(ctx context.Context) {
	if ctx.Err() != nil {
		return
	}
	if err := w.store.Load(ctx); err != nil {
		w.logger.Error("manifest reload failed, keeping previous", "error", err)
		return
	}
	w.logger.Info("manifest reloaded")
}
