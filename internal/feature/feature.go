// Package feature defines the user-drawn annotation model shared by the
// drawing engine, the measurement renderer and the snapshot store.
package feature

import (
	"fmt"

	"github.com/google/uuid"
	"github.com/paulmach/orb"
)

// Type is the geometry kind of a drawn feature.
type Type string

const (
	Line    Type = "line"
	Polygon Type = "polygon"
)

// Feature is a single user-drawn annotation. For a Polygon the
// coordinates are the outer ring, closed (first == last) once finalized.
// A locked feature is rendered but never editable.
type Feature struct {
	ID          string
	Type        Type
	Coordinates []orb.Point
	Locked      bool
}

// New creates an empty feature of the given type with a fresh ID.
func New(t Type) *Feature {
	return &Feature{ID: uuid.NewString(), Type: t}
}

// Closed reports whether a polygon ring is closed. Lines are never
// considered closed.
func (f *Feature) Closed() bool {
	if f.Type != Polygon || len(f.Coordinates) < 4 {
		return false
	}
	return f.Coordinates[0] == f.Coordinates[len(f.Coordinates)-1]
}

// Ring returns the polygon outer ring.
func (f *Feature) Ring() orb.Ring {
	return orb.Ring(f.Coordinates)
}

// Line returns the coordinates as a line string.
func (f *Feature) Line() orb.LineString {
	return orb.LineString(f.Coordinates)
}

// Clone returns a deep copy. The drawing engine hands clones to readers so
// label rendering can never mutate engine-owned geometry.
func (f *Feature) Clone() *Feature {
	coords := make([]orb.Point, len(f.Coordinates))
	copy(coords, f.Coordinates)
	return &Feature{ID: f.ID, Type: f.Type, Coordinates: coords, Locked: f.Locked}
}

// Validate enforces the geometry invariants: a line has at least two
// points, a finalized polygon ring has at least four with first == last.
func (f *Feature) Validate() error {
	switch f.Type {
	case Line:
		if len(f.Coordinates) < 2 {
			return fmt.Errorf("line %s has %d points, need at least 2", f.ID, len(f.Coordinates))
		}
	case Polygon:
		if len(f.Coordinates) < 4 {
			return fmt.Errorf("polygon %s has %d points, need at least 4", f.ID, len(f.Coordinates))
		}
		if !f.Closed() {
			return fmt.Errorf("polygon %s ring is not closed", f.ID)
		}
	default:
		return fmt.Errorf("feature %s has unknown type %q", f.ID, f.Type)
	}
	return nil
}

// Collection is an ordered set of features with id lookup. Order is
// creation order; the stored snapshot preserves it.
type Collection struct {
	features []*Feature
	index    map[string]int
}

// NewCollection creates an empty collection.
func NewCollection() *Collection {
	return &Collection{index: make(map[string]int)}
}

// Len returns the number of features.
func (c *Collection) Len() int { return len(c.features) }

// Get returns the feature with the given id.
func (c *Collection) Get(id string) (*Feature, bool) {
	i, ok := c.index[id]
	if !ok {
		return nil, false
	}
	return c.features[i], true
}

// First returns the first feature in creation order, or nil.
func (c *Collection) First() *Feature {
	if len(c.features) == 0 {
		return nil
	}
	return c.features[0]
}

// Add appends a feature. Duplicate ids are rejected.
func (c *Collection) Add(f *Feature) error {
	if _, exists := c.index[f.ID]; exists {
		return fmt.Errorf("feature %q already exists", f.ID)
	}
	c.index[f.ID] = len(c.features)
	c.features = append(c.features, f)
	return nil
}

// Remove deletes a feature by id.
func (c *Collection) Remove(id string) bool {
	i, ok := c.index[id]
	if !ok {
		return false
	}
	c.features = append(c.features[:i], c.features[i+1:]...)
	delete(c.index, id)
	for j := i; j < len(c.features); j++ {
		c.index[c.features[j].ID] = j
	}
	return true
}

// Replace installs a whole new feature set, discarding the old one.
func (c *Collection) Replace(features []*Feature) {
	c.features = c.features[:0]
	c.index = make(map[string]int, len(features))
	for _, f := range features {
		if _, dup := c.index[f.ID]; dup {
			continue
		}
		c.index[f.ID] = len(c.features)
		c.features = append(c.features, f)
	}
}

// All returns the features in order. Callers must not mutate them;
// mutation goes through the drawing engine.
func (c *Collection) All() []*Feature {
	out := make([]*Feature, len(c.features))
	copy(out, c.features)
	return out
}
