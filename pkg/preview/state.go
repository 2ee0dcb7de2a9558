package preview

import (
	"sort"

	"github.com/vango-dev/scrollkit/pkg/protocol"
)

// State is the document state built from the patches the effects emit.
// It stands in for the browser DOM. The empty target is the document
// element.
type State struct {
	classes map[string]map[string]bool
	styles  map[string]map[string]string
	data    map[string]map[string]string
	applied int
}

// NewState returns an empty document.
func NewState() *State {
	return &State{
		classes: make(map[string]map[string]bool),
		styles:  make(map[string]map[string]string),
		data:    make(map[string]map[string]string),
	}
}

// Apply implements effects.Sink.
func (s *State) Apply(patches ...protocol.Patch) {
	for _, p := range patches {
		switch p.Op {
		case protocol.PatchAddClass:
			entry(s.classes, p.Target)[p.Value] = true
		case protocol.PatchRemoveClass:
			delete(s.classes[p.Target], p.Value)
		case protocol.PatchSetStyle:
			entry(s.styles, p.Target)[p.Key] = p.Value
		case protocol.PatchRemoveStyle:
			delete(s.styles[p.Target], p.Key)
		case protocol.PatchSetData:
			entry(s.data, p.Target)[p.Key] = p.Value
		default:
			continue
		}
		s.applied++
	}
}

// HasClass reports whether target carries class.
func (s *State) HasClass(target, class string) bool {
	return s.classes[target][class]
}

// Classes returns target's classes, sorted.
func (s *State) Classes(target string) []string {
	out := make([]string, 0, len(s.classes[target]))
	for c := range s.classes[target] {
		out = append(out, c)
	}
	sort.Strings(out)
	return out
}

// Style returns the value of property on target, or "".
func (s *State) Style(target, property string) string {
	return s.styles[target][property]
}

// Data returns target's data-* value for key, or "".
func (s *State) Data(target, key string) string {
	return s.data[target][key]
}

// Applied returns the number of patches applied.
func (s *State) Applied() int {
	return s.applied
}

func entry[V any](m map[string]map[string]V, target string) map[string]V {
	e, ok := m[target]
	if !ok {
		e = make(map[string]V)
		m[target] = e
	}
	return e
}
