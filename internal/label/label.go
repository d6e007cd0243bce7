// Package label abstracts floating map labels behind a small capability so
// the measurement renderer never depends on a specific rendering
// technology.
package label

import (
	"sync"

	"github.com/paulmach/orb"
)

// Handle identifies a placed label.
type Handle int

// Manager places and removes floating labels anchored to map positions.
// An optional onDelete callback gives a label a delete affordance wired to
// its owning feature.
type Manager interface {
	Place(position orb.Point, text string, onDelete func()) Handle
	Remove(Handle)
}

// Entry is a placed label as seen by a renderer or a test.
type Entry struct {
	Position orb.Point
	Text     string
	OnDelete func()
}

// MemManager is an in-memory Manager. It backs tests and any headless use
// of the measurement renderer; a browser-facing renderer would implement
// Manager over its own marker elements.
type MemManager struct {
	mu     sync.Mutex
	next   Handle
	labels map[Handle]Entry
}

// NewMemManager creates an empty in-memory label manager.
func NewMemManager() *MemManager {
	return &MemManager{labels: make(map[Handle]Entry)}
}

// Place records a label and returns its handle.
func (m *MemManager) Place(position orb.Point, text string, onDelete func()) Handle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.next++
	m.labels[m.next] = Entry{Position: position, Text: text, OnDelete: onDelete}
	return m.next
}

// Remove drops a label. Removing an unknown handle is a no-op.
func (m *MemManager) Remove(h Handle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.labels, h)
}

// Entries returns the currently placed labels.
func (m *MemManager) Entries() []Entry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]Entry, 0, len(m.labels))
	for _, e := range m.labels {
		out = append(out, e)
	}
	return out
}

// Len returns the number of placed labels.
func (m *MemManager) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.labels)
}
