package draw

import "sync"

// Action describes what happened to a feature.
type Action string

const (
	ActionCreate  Action = "create"
	ActionUpdate  Action = "update"
	ActionDelete  Action = "delete"
	ActionReplace Action = "replace" // wholesale snapshot install
)

// Change is a geometry mutation event.
type Change struct {
	Action Action
	ID     string // empty for replace
}

// bus fans a change out to subscribers synchronously and in subscription
// order. Every change triggers a full persistence save that the next
// change depends on reading back, so delivery must never reorder or
// coalesce. Subscribers run outside the engine lock and may read the
// engine back.
type bus struct {
	mu   sync.RWMutex
	subs []func(Change)
}

func (b *bus) subscribe(fn func(Change)) {
	b.mu.Lock()
	b.subs = append(b.subs, fn)
	b.mu.Unlock()
}

func (b *bus) publish(c Change) {
	b.mu.RLock()
	subs := b.subs
	b.mu.RUnlock()
	for _, fn := range subs {
		fn(c)
	}
}
