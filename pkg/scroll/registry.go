package scroll

import (
	"sort"
	"sync"
	"sync/atomic"
	"time"
)

// entry is one registered subscriber.
type entry struct {
	id       string
	callback func(Signal)
	throttle time.Duration
	seq      uint64

	// Owned by the dispatcher.
	lastInvokedAt time.Time
	invoked       bool

	// Set when the entry leaves the registry. Checked by the dispatcher
	// right before each invocation.
	removed atomic.Bool
}

// due reports whether the entry may be invoked at now.
func (e *entry) due(now time.Time) bool {
	if !e.invoked {
		return true
	}
	return now.Sub(e.lastInvokedAt) >= e.throttle
}

// registry keeps subscribers ordered by (throttle, seq).
type registry struct {
	mu      sync.Mutex
	entries []*entry
	byID    map[string]*entry
	nextSeq uint64
}

func newRegistry() *registry {
	return &registry{
		byID: make(map[string]*entry),
	}
}

// add inserts a subscriber, replacing any live entry with the same id.
// It returns the new entry and the entry it replaced, if any.
func (r *registry) add(id string, callback func(Signal), throttle time.Duration) (*entry, *entry) {
	if throttle < 0 {
		throttle = 0
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	var replaced *entry
	if old, ok := r.byID[id]; ok {
		r.removeLocked(old)
		replaced = old
	}

	r.nextSeq++
	e := &entry{
		id:       id,
		callback: callback,
		throttle: throttle,
		seq:      r.nextSeq,
	}

	// Later seq always sorts after equal throttles, so the insertion point
	// is the first entry with a strictly larger throttle.
	i := sort.Search(len(r.entries), func(i int) bool {
		return r.entries[i].throttle > throttle
	})
	r.entries = append(r.entries, nil)
	copy(r.entries[i+1:], r.entries[i:])
	r.entries[i] = e
	r.byID[id] = e

	return e, replaced
}

// remove deletes exactly e. It returns false if e is no longer registered.
func (r *registry) remove(e *entry) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if cur, ok := r.byID[e.id]; !ok || cur != e {
		return false
	}
	r.removeLocked(e)
	return true
}

// removeID deletes the live entry registered under id, if any.
func (r *registry) removeID(id string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	e, ok := r.byID[id]
	if !ok {
		return false
	}
	r.removeLocked(e)
	return true
}

func (r *registry) removeLocked(e *entry) {
	e.removed.Store(true)
	delete(r.byID, e.id)
	for i, cur := range r.entries {
		if cur == e {
			r.entries = append(r.entries[:i], r.entries[i+1:]...)
			break
		}
	}
}

// snapshot returns the entries in dispatch order. The slice is a copy, so
// registrations made while it is iterated do not affect it.
func (r *registry) snapshot() []*entry {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*entry, len(r.entries))
	copy(out, r.entries)
	return out
}

// ids returns the registered ids in dispatch order.
func (r *registry) ids() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]string, len(r.entries))
	for i, e := range r.entries {
		out[i] = e.id
	}
	return out
}

func (r *registry) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.entries)
}

// clear removes every entry.
func (r *registry) clear() {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, e := range r.entries {
		e.removed.Store(true)
	}
	r.entries = nil
	r.byID = make(map[string]*entry)
}
