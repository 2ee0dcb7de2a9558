package effects

import (
	"sync"

	"github.com/vango-dev/scrollkit/pkg/protocol"
)

// Rect is a section's vertical extent in document coordinates.
type Rect struct {
	Top    int
	Height int
}

// Layout holds the measured geometry of a page's sections. The client
// reports it after load and after every resize.
type Layout struct {
	mu    sync.RWMutex
	rects map[string]Rect
}

// NewLayout returns an empty layout.
func NewLayout() *Layout {
	return &Layout{rects: make(map[string]Rect)}
}

// Set replaces the layout with sections.
func (l *Layout) Set(sections []protocol.Section) {
	rects := make(map[string]Rect, len(sections))
	for _, s := range sections {
		rects[s.ID] = Rect{Top: s.Top, Height: max(s.Height, 0)}
	}

	l.mu.Lock()
	l.rects = rects
	l.mu.Unlock()
}

// Put sets a single section.
func (l *Layout) Put(id string, r Rect) {
	l.mu.Lock()
	l.rects[id] = r
	l.mu.Unlock()
}

// Rect returns the rect for id.
func (l *Layout) Rect(id string) (Rect, bool) {
	l.mu.RLock()
	defer l.mu.RUnlock()
	r, ok := l.rects[id]
	return r, ok
}

// Len returns the number of known sections.
func (l *Layout) Len() int {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return len(l.rects)
}
