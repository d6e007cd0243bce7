// Package viewer composes the map canvas, drawing engine, measurement
// renderer, snapshot store and position tracker into the interactive
// parcel viewer. It owns the wiring: every engine change refreshes the
// labels of the affected feature and saves the snapshot before the
// change callback returns.
package viewer

import (
	"context"
	"errors"
	"fmt"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"

	"github.com/bhupatram/tippan/internal/canvas"
	"github.com/bhupatram/tippan/internal/draw"
	"github.com/bhupatram/tippan/internal/geocode"
	"github.com/bhupatram/tippan/internal/label"
	"github.com/bhupatram/tippan/internal/measure"
	"github.com/bhupatram/tippan/internal/store"
	"github.com/bhupatram/tippan/internal/track"
)

// Options wires the viewer's collaborators. Canvas, Labels and Store are
// required; TrackSource and Geocoder are optional and their features are
// simply absent without them.
type Options struct {
	Canvas      *canvas.Canvas
	Labels      label.Manager
	Store       *store.Snapshot
	TrackSource track.Source
	Geocoder    *geocode.Client
	// Notify surfaces one-line user-facing notices; may be nil.
	Notify func(string)
	Log    zerolog.Logger
}

// Viewer is the top-level interactive component.
type Viewer struct {
	engine   *draw.Engine
	canvas   *canvas.Canvas
	renderer *measure.Renderer
	store    *store.Snapshot
	tracker  *track.Tracker
	geocoder *geocode.Client
	notify   func(string)
	log      zerolog.Logger

	// displayID is the feature whose labels are currently shown. Only
	// one feature's labels exist at a time.
	displayID          string
	annotationsVisible bool
}

// New assembles a viewer around a fresh drawing engine.
func New(opts Options) *Viewer {
	notify := opts.Notify
	if notify == nil {
		notify = func(string) {}
	}

	v := &Viewer{
		engine:             draw.NewEngine(),
		canvas:             opts.Canvas,
		renderer:           measure.NewRenderer(opts.Labels),
		store:              opts.Store,
		geocoder:           opts.Geocoder,
		notify:             notify,
		log:                opts.Log,
		annotationsVisible: true,
	}
	if opts.TrackSource != nil {
		v.tracker = track.New(opts.TrackSource, opts.Canvas, notify, opts.Log)
	}
	v.engine.Subscribe(v.onChange)
	return v
}

// Engine exposes the drawing engine for interaction handlers.
func (v *Viewer) Engine() *draw.Engine {
	return v.engine
}

// Initialize binds the canvas, restores the stored snapshot into the
// engine and starts the position watch. A missing snapshot starts empty;
// a corrupt one is logged by the store and also starts empty.
func (v *Viewer) Initialize(ctx context.Context, container canvas.Container) error {
	if err := v.canvas.Initialize(container); err != nil {
		return fmt.Errorf("initializing canvas: %w", err)
	}

	features, err := v.store.Load()
	if err != nil && !errors.Is(err, store.ErrNoSnapshot) {
		return fmt.Errorf("loading snapshot: %w", err)
	}
	if len(features) > 0 {
		v.engine.InstallSnapshot(features)
	}

	if v.tracker != nil {
		// Failure here is already surfaced as a notice; the rest of the
		// viewer works without a position.
		_ = v.tracker.Start(ctx)
	}
	return nil
}

// Dispose stops the tracker, clears all labels and releases the canvas.
func (v *Viewer) Dispose() {
	if v.tracker != nil {
		v.tracker.Close()
	}
	v.renderer.Clear()
	v.displayID = ""
	v.canvas.Dispose()
}

// onChange runs synchronously, in dispatch order, for every committed
// engine change. It refreshes the affected feature's labels and saves
// the snapshot before returning.
func (v *Viewer) onChange(c draw.Change) {
	switch c.Action {
	case draw.ActionCreate, draw.ActionUpdate:
		v.display(c.ID)
		v.save()
	case draw.ActionDelete:
		if v.displayID == c.ID {
			v.renderer.Clear()
			v.displayID = ""
		}
		v.save()
	case draw.ActionReplace:
		// Snapshot install: show the first restored feature. The data
		// just came from the store, so no save.
		if f := v.engine.First(); f != nil {
			v.display(f.ID)
		} else {
			v.renderer.Clear()
			v.displayID = ""
		}
	}
}

// display makes id the labeled feature.
func (v *Viewer) display(id string) {
	v.displayID = id
	if !v.annotationsVisible {
		return
	}
	f, ok := v.engine.Feature(id)
	if !ok {
		v.renderer.Clear()
		return
	}
	v.renderer.Render(f, func() {
		if err := v.engine.Delete(id); err != nil {
			v.log.Warn().Err(err).Str("feature", id).Msg("delete from label failed")
		}
	})
}

func (v *Viewer) save() {
	if err := v.store.Save(v.engine.Features()); err != nil {
		v.log.Error().Err(err).Msg("snapshot save failed")
		v.notify("saving failed, recent changes may be lost")
	}
}

// PreviewCursor refreshes the live measurement preview while drawing,
// treating the cursor as a provisional trailing vertex. Nothing is
// persisted until the feature is finalized.
func (v *Viewer) PreviewCursor(p orb.Point) {
	if !v.annotationsVisible {
		return
	}
	pending := v.engine.Pending()
	if pending == nil {
		return
	}
	v.renderer.LivePreview(pending, p)
}

// CancelDrawing discards the in-progress feature and its preview
// labels, restoring the previously displayed feature's labels.
func (v *Viewer) CancelDrawing() {
	v.engine.Cancel()
	v.renderer.Clear()
	if v.displayID != "" {
		v.display(v.displayID)
	}
}

// DisplayedID returns the id of the feature whose labels are shown.
func (v *Viewer) DisplayedID() string {
	return v.displayID
}

// Measurement computes the panel measurement for the selected feature,
// falling back to the displayed one. It is recomputed from current
// geometry on every call.
func (v *Viewer) Measurement() (measure.Result, bool) {
	id := v.engine.SelectedID()
	if id == "" {
		id = v.displayID
	}
	if id == "" {
		return measure.Result{}, false
	}
	f, ok := v.engine.Feature(id)
	if !ok {
		return measure.Result{}, false
	}
	return measure.Measure(f)
}

// SetParcelsVisible toggles the read-only parcel reference layer.
func (v *Viewer) SetParcelsVisible(visible bool) {
	v.canvas.SetParcelsVisible(visible)
}

// SetAnnotationsVisible toggles the user's own drawn features and their
// labels, independently of the parcel layer.
func (v *Viewer) SetAnnotationsVisible(visible bool) {
	if v.annotationsVisible == visible {
		return
	}
	v.annotationsVisible = visible
	if !visible {
		v.renderer.Clear()
		return
	}
	if v.displayID != "" {
		v.display(v.displayID)
	}
}

// AnnotationsVisible reports the annotation toggle state.
func (v *Viewer) AnnotationsVisible() bool {
	return v.annotationsVisible
}

// Recenter moves the camera to the last known position. It reports false
// when tracking is off or no fix has arrived yet.
func (v *Viewer) Recenter() bool {
	if v.tracker == nil {
		return false
	}
	return v.tracker.Recenter()
}

// Search returns place candidates for a free-text query. Upstream
// failures degrade to an empty list; search never breaks the map.
func (v *Viewer) Search(ctx context.Context, query string) []geocode.Candidate {
	if v.geocoder == nil {
		return nil
	}
	candidates, err := v.geocoder.Search(ctx, query)
	if err != nil {
		v.log.Warn().Err(err).Str("query", query).Msg("geocode search failed")
		return nil
	}
	return candidates
}

// FlyToCandidate moves the camera to a chosen search result.
func (v *Viewer) FlyToCandidate(c geocode.Candidate) {
	v.canvas.FlyTo(c.Lon, c.Lat, 16)
}
