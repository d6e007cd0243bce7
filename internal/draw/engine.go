// Package draw implements the drawing engine: a state machine over the
// feature collection through which every geometry mutation flows.
package draw

import (
	"errors"
	"fmt"
	"sync"

	"github.com/paulmach/orb"

	"github.com/bhupatram/tippan/internal/feature"
	"github.com/bhupatram/tippan/internal/geom"
)

// Mode is the interaction state of the engine.
type Mode int

const (
	ModeIdle Mode = iota
	ModeDrawLine
	ModeDrawPolygon
	ModeSelected
	ModeEditVertex
)

func (m Mode) String() string {
	switch m {
	case ModeIdle:
		return "idle"
	case ModeDrawLine:
		return "draw_line"
	case ModeDrawPolygon:
		return "draw_polygon"
	case ModeSelected:
		return "selected"
	case ModeEditVertex:
		return "edit_vertex"
	}
	return fmt.Sprintf("mode(%d)", int(m))
}

var (
	// ErrLocked is returned when an edit touches a locked feature. The
	// engine also resets itself to a neutral state with nothing selected.
	ErrLocked = errors.New("feature is locked")

	// ErrNotFound is returned for an unknown feature id.
	ErrNotFound = errors.New("feature not found")

	// ErrBadMode is returned when an operation is invalid in the current
	// interaction mode.
	ErrBadMode = errors.New("operation not valid in current mode")
)

// Engine owns the feature collection. All mutation flows through a single
// reducer-like commit point that publishes changes to subscribers in
// dispatch order, after the engine lock is released so listeners may read
// the engine back.
type Engine struct {
	mu         sync.Mutex
	features   *feature.Collection
	mode       Mode
	selectedID string
	pending    *feature.Feature // in-progress, outside the collection until finalized
	revision   uint64
	bus        bus
}

// NewEngine creates an engine with an empty feature set.
func NewEngine() *Engine {
	return &Engine{features: feature.NewCollection()}
}

// Subscribe registers a synchronous change listener. Listeners run in
// subscription order on the mutating goroutine.
func (e *Engine) Subscribe(fn func(Change)) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.bus.subscribe(fn)
}

// Mode returns the current interaction mode.
func (e *Engine) Mode() Mode {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.mode
}

// SelectedID returns the explicitly selected feature id, or "".
func (e *Engine) SelectedID() string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.selectedID
}

// Revision increments on every committed change.
func (e *Engine) Revision() uint64 {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.revision
}

// Len returns the number of finalized features.
func (e *Engine) Len() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.features.Len()
}

// Feature returns a clone of a finalized feature.
func (e *Engine) Feature(id string) (*feature.Feature, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	f, ok := e.features.Get(id)
	if !ok {
		return nil, false
	}
	return f.Clone(), true
}

// First returns a clone of the first feature in creation order, or nil.
func (e *Engine) First() *feature.Feature {
	e.mu.Lock()
	defer e.mu.Unlock()
	f := e.features.First()
	if f == nil {
		return nil
	}
	return f.Clone()
}

// Features returns clones of all finalized features in creation order.
func (e *Engine) Features() []*feature.Feature {
	e.mu.Lock()
	defer e.mu.Unlock()
	all := e.features.All()
	out := make([]*feature.Feature, len(all))
	for i, f := range all {
		out[i] = f.Clone()
	}
	return out
}

// Pending returns a clone of the in-progress feature, or nil when not
// drawing.
func (e *Engine) Pending() *feature.Feature {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.pending == nil {
		return nil
	}
	return e.pending.Clone()
}

// commit bumps the revision under the lock; the caller publishes the
// returned change once the lock is released.
func (e *Engine) commit(c Change) Change {
	e.revision++
	return c
}

// StartLine enters line drawing. Any unfinalized feature is discarded
// without being persisted.
func (e *Engine) StartLine() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = feature.New(feature.Line)
	e.mode = ModeDrawLine
	e.selectedID = ""
}

// StartPolygon enters polygon drawing, discarding unfinalized work.
func (e *Engine) StartPolygon() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.pending = feature.New(feature.Polygon)
	e.mode = ModeDrawPolygon
	e.selectedID = ""
}

// AddVertex places the next vertex of the in-progress feature. While
// drawing a polygon, a vertex within the snap tolerance of the first one
// closes the ring instead and finalizes the feature.
func (e *Engine) AddVertex(p orb.Point) error {
	e.mu.Lock()

	if e.mode != ModeDrawLine && e.mode != ModeDrawPolygon {
		e.mu.Unlock()
		return fmt.Errorf("add vertex: %w (%s)", ErrBadMode, e.mode)
	}

	if e.mode == ModeDrawPolygon && len(e.pending.Coordinates) >= 3 {
		first := e.pending.Coordinates[0]
		if geom.SegmentLength(p, first) <= geom.SnapCloseTolerance {
			change, ok, err := e.finalizeLocked()
			e.mu.Unlock()
			if ok {
				e.bus.publish(change)
			}
			return err
		}
	}

	e.pending.Coordinates = append(e.pending.Coordinates, p)
	e.mu.Unlock()
	return nil
}

// Finish finalizes the in-progress feature: the double-action that
// completes a line, or an explicit polygon close. Features too small to
// be valid are discarded, matching the cancel semantics.
func (e *Engine) Finish() error {
	e.mu.Lock()

	if e.mode != ModeDrawLine && e.mode != ModeDrawPolygon {
		e.mu.Unlock()
		return fmt.Errorf("finish: %w (%s)", ErrBadMode, e.mode)
	}

	change, ok, err := e.finalizeLocked()
	e.mu.Unlock()
	if ok {
		e.bus.publish(change)
	}
	return err
}

func (e *Engine) finalizeLocked() (Change, bool, error) {
	f := e.pending
	e.pending = nil

	switch f.Type {
	case feature.Line:
		if len(f.Coordinates) < 2 {
			e.resetLocked()
			return Change{}, false, nil
		}
	case feature.Polygon:
		if len(f.Coordinates) < 3 {
			e.resetLocked()
			return Change{}, false, nil
		}
		// Close the ring by repeating the first vertex.
		f.Coordinates = append(f.Coordinates, f.Coordinates[0])
	}

	if err := f.Validate(); err != nil {
		e.resetLocked()
		return Change{}, false, err
	}
	if err := e.features.Add(f); err != nil {
		e.resetLocked()
		return Change{}, false, err
	}

	e.mode = ModeSelected
	e.selectedID = f.ID
	return e.commit(Change{Action: ActionCreate, ID: f.ID}), true, nil
}

// Cancel discards the in-progress feature without persisting it and
// returns to idle.
func (e *Engine) Cancel() {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.resetLocked()
}

// Select marks an existing, unlocked feature as selected. Clicking a
// locked feature cancels any selection and resets to neutral.
func (e *Engine) Select(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.features.Get(id)
	if !ok {
		return fmt.Errorf("select %s: %w", id, ErrNotFound)
	}
	if f.Locked {
		e.resetLocked()
		return fmt.Errorf("select %s: %w", id, ErrLocked)
	}
	e.mode = ModeSelected
	e.selectedID = id
	return nil
}

// BeginVertexEdit transitions from selection to vertex editing.
func (e *Engine) BeginVertexEdit(id string) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	f, ok := e.features.Get(id)
	if !ok {
		return fmt.Errorf("edit %s: %w", id, ErrNotFound)
	}
	if f.Locked {
		e.resetLocked()
		return fmt.Errorf("edit %s: %w", id, ErrLocked)
	}
	if e.mode != ModeSelected || e.selectedID != id {
		return fmt.Errorf("edit %s: %w (%s)", id, ErrBadMode, e.mode)
	}
	e.mode = ModeEditVertex
	return nil
}

// MoveVertex moves a vertex of an unlocked feature. Moving either end of
// a closed ring moves both so the ring stays closed.
func (e *Engine) MoveVertex(id string, index int, p orb.Point) error {
	e.mu.Lock()

	f, ok := e.features.Get(id)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("move vertex of %s: %w", id, ErrNotFound)
	}
	if f.Locked {
		e.resetLocked()
		e.mu.Unlock()
		return fmt.Errorf("move vertex of %s: %w", id, ErrLocked)
	}
	if index < 0 || index >= len(f.Coordinates) {
		e.mu.Unlock()
		return fmt.Errorf("move vertex of %s: index %d out of range", id, index)
	}

	last := len(f.Coordinates) - 1
	if f.Closed() && (index == 0 || index == last) {
		f.Coordinates[0] = p
		f.Coordinates[last] = p
	} else {
		f.Coordinates[index] = p
	}

	if e.selectedID == id && e.mode == ModeEditVertex {
		e.mode = ModeSelected
	}
	change := e.commit(Change{Action: ActionUpdate, ID: id})
	e.mu.Unlock()
	e.bus.publish(change)
	return nil
}

// DeleteVertex removes a vertex, refusing edits that would break the
// minimum-point invariants.
func (e *Engine) DeleteVertex(id string, index int) error {
	e.mu.Lock()

	f, ok := e.features.Get(id)
	if !ok {
		e.mu.Unlock()
		return fmt.Errorf("delete vertex of %s: %w", id, ErrNotFound)
	}
	if f.Locked {
		e.resetLocked()
		e.mu.Unlock()
		return fmt.Errorf("delete vertex of %s: %w", id, ErrLocked)
	}
	if index < 0 || index >= len(f.Coordinates) {
		e.mu.Unlock()
		return fmt.Errorf("delete vertex of %s: index %d out of range", id, index)
	}

	switch f.Type {
	case feature.Line:
		if len(f.Coordinates) <= 2 {
			e.mu.Unlock()
			return fmt.Errorf("delete vertex of %s: line needs at least 2 points", id)
		}
		f.Coordinates = append(f.Coordinates[:index], f.Coordinates[index+1:]...)
	case feature.Polygon:
		if len(f.Coordinates) <= 4 {
			e.mu.Unlock()
			return fmt.Errorf("delete vertex of %s: ring needs at least 3 distinct points", id)
		}
		last := len(f.Coordinates) - 1
		if index == 0 || index == last {
			// Dropping the shared end vertex: promote the second point to
			// both ends.
			f.Coordinates = f.Coordinates[1:last]
			f.Coordinates = append(f.Coordinates, f.Coordinates[0])
		} else {
			f.Coordinates = append(f.Coordinates[:index], f.Coordinates[index+1:]...)
		}
	}

	change := e.commit(Change{Action: ActionUpdate, ID: id})
	e.mu.Unlock()
	e.bus.publish(change)
	return nil
}

// Delete removes a feature entirely, via the trash control or a label's
// delete affordance.
func (e *Engine) Delete(id string) error {
	e.mu.Lock()

	if !e.features.Remove(id) {
		e.mu.Unlock()
		return fmt.Errorf("delete %s: %w", id, ErrNotFound)
	}
	e.mode = ModeIdle
	e.selectedID = ""
	change := e.commit(Change{Action: ActionDelete, ID: id})
	e.mu.Unlock()
	e.bus.publish(change)
	return nil
}

// InstallSnapshot replaces the whole feature set, as on snapshot load.
// Any in-progress drawing is discarded.
func (e *Engine) InstallSnapshot(features []*feature.Feature) {
	e.mu.Lock()
	e.features.Replace(features)
	e.resetLocked()
	change := e.commit(Change{Action: ActionReplace})
	e.mu.Unlock()
	e.bus.publish(change)
}

// resetLocked forces the engine back to a neutral state with nothing
// selected.
func (e *Engine) resetLocked() {
	e.pending = nil
	e.mode = ModeIdle
	e.selectedID = ""
}
