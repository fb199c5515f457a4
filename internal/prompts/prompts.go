// ABOUTME: Weighted prompt model and derived views
// ABOUTME: Holds the requested prompt set and the remote-rejected filter set
package prompts

import (
	"sort"
	"sync"

	"github.com/promptjam/promptjam-go/internal/protocol"
)

// Prompt is one steering prompt as requested by the user
type Prompt struct {
	Text   string
	Weight float64
}

// Map is the full requested prompt set, keyed by a stable prompt ID
type Map map[string]Prompt

// Clone returns a shallow copy of the map
func (m Map) Clone() Map {
	out := make(Map, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

// Active computes the subset of prompts eligible to steer generation:
// non-zero weight and not rejected by the remote service. The result is
// ordered by key so the wire payload is deterministic.
func (m Map) Active(filtered func(text string) bool) []protocol.WeightedPrompt {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	var active []protocol.WeightedPrompt
	for _, k := range keys {
		p := m[k]
		if p.Weight == 0 {
			continue
		}
		if filtered != nil && filtered(p.Text) {
			continue
		}
		active = append(active, protocol.WeightedPrompt{Text: p.Text, Weight: p.Weight})
	}
	return active
}

// FilteredSet records prompt texts the remote service has rejected.
// It only grows; a text once filtered stays filtered for the lifetime
// of the set.
type FilteredSet struct {
	mu    sync.Mutex
	texts map[string]struct{}
}

// NewFilteredSet creates an empty filtered set
func NewFilteredSet() *FilteredSet {
	return &FilteredSet{texts: make(map[string]struct{})}
}

// Add records a rejected prompt text
func (s *FilteredSet) Add(text string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.texts[text] = struct{}{}
}

// Contains reports whether a prompt text has been rejected
func (s *FilteredSet) Contains(text string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.texts[text]
	return ok
}

// Len returns the number of rejected texts
func (s *FilteredSet) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.texts)
}
