// Package measure turns feature geometry into segment and area labels and
// into the explicit measurement shown in the on-screen panel.
package measure

import (
	"github.com/paulmach/orb"

	"github.com/bhupatram/tippan/internal/feature"
	"github.com/bhupatram/tippan/internal/geom"
	"github.com/bhupatram/tippan/internal/label"
)

// Kind distinguishes the two measurement results.
type Kind string

const (
	Distance Kind = "distance"
	Area     Kind = "area"
)

// Result is the explicitly requested measurement for the panel. It is
// recomputed from the feature's current geometry on every request, never
// cached.
type Result struct {
	Kind Kind
	Text string
}

// Measure computes the panel measurement for a finalized feature:
// total distance for a line, geodesic area for a polygon.
func Measure(f *feature.Feature) (Result, bool) {
	if f == nil {
		return Result{}, false
	}
	switch f.Type {
	case feature.Line:
		return Result{Kind: Distance, Text: geom.FormatDistance(geom.LineLength(f.Line()))}, true
	case feature.Polygon:
		return Result{Kind: Area, Text: geom.FormatArea(geom.PolygonArea(f.Ring()))}, true
	}
	return Result{}, false
}

// Renderer owns the ephemeral segment and area labels for the feature
// currently shown. Labels are destroyed and recreated on every geometry
// change; only one feature's labels exist at a time.
type Renderer struct {
	labels   label.Manager
	segments []label.Handle
	area     label.Handle
	hasArea  bool
}

// NewRenderer creates a renderer placing labels through the manager.
func NewRenderer(m label.Manager) *Renderer {
	return &Renderer{labels: m}
}

// Clear removes all labels owned by the renderer.
func (r *Renderer) Clear() {
	for _, h := range r.segments {
		r.labels.Remove(h)
	}
	r.segments = r.segments[:0]
	if r.hasArea {
		r.labels.Remove(r.area)
		r.hasArea = false
	}
}

// Render replaces all labels with those of the given feature: one
// distance label per consecutive vertex pair, plus an area label for a
// closed polygon. onDelete wires the area label's delete affordance to
// the owning feature.
func (r *Renderer) Render(f *feature.Feature, onDelete func()) {
	r.Clear()
	if f == nil {
		return
	}
	r.renderSegments(f.Coordinates)
	if f.Type == feature.Polygon && f.Closed() {
		r.renderArea(f.Ring(), onDelete)
	}
}

// LivePreview renders labels for an in-progress feature with the cursor
// as a provisional trailing vertex. The feature itself is not touched;
// the preview is never persisted.
func (r *Renderer) LivePreview(pending *feature.Feature, cursor orb.Point) {
	r.Clear()
	if pending == nil || len(pending.Coordinates) == 0 {
		return
	}

	coords := make([]orb.Point, 0, len(pending.Coordinates)+2)
	coords = append(coords, pending.Coordinates...)
	coords = append(coords, cursor)
	r.renderSegments(coords)

	if pending.Type == feature.Polygon && len(coords) >= 3 {
		ring := make(orb.Ring, 0, len(coords)+1)
		ring = append(ring, coords...)
		if ring[0] != ring[len(ring)-1] {
			ring = append(ring, ring[0])
		}
		r.renderArea(ring, nil)
	}
}

func (r *Renderer) renderSegments(coords []orb.Point) {
	for i := 0; i+1 < len(coords); i++ {
		a, b := coords[i], coords[i+1]
		text := geom.FormatDistance(geom.SegmentLength(a, b))
		h := r.labels.Place(geom.Midpoint(a, b), text, nil)
		r.segments = append(r.segments, h)
	}
}

func (r *Renderer) renderArea(ring orb.Ring, onDelete func()) {
	area := geom.PolygonArea(ring)
	if area <= geom.MinPolygonArea {
		// Near-zero ring from an accidental click; suppress the label
		// instead of showing "0.00 m²".
		return
	}
	anchor := geom.InteriorPoint(ring)
	r.area = r.labels.Place(anchor, "Area: "+geom.FormatArea(area), onDelete)
	r.hasArea = true
}
