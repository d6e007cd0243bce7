// Package canvas models the map viewport and its layers: the base style,
// the read-only parcel reference layer and the markers other components
// place. Rendering itself happens in the web frontend; the canvas is the
// single owner of viewport and layer state.
package canvas

import (
	"errors"
	"sync"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
)

// ErrAlreadyInitialized guards against double initialization without an
// intervening Dispose.
var ErrAlreadyInitialized = errors.New("canvas already initialized")

// Container is the mount point for the map. Ready reports whether the
// underlying element exists yet.
type Container interface {
	Ready() bool
}

// Viewport is the camera state.
type Viewport struct {
	Center orb.Point
	Zoom   float64
}

// ParcelLayer is the tiled vector reference layer of pre-existing
// parcels. It renders as an outline, a near-transparent fill for
// hit-testing clicks and a zoom-gated label layer on the parcel-number
// property.
type ParcelLayer struct {
	SourceURL     string
	LabelProperty string
	MinLabelZoom  float64
	FillOpacity   float64
	Visible       bool
	Degraded      bool // tile source failed to load; base map still works
}

// Options configures a canvas.
type Options struct {
	StyleURL string
	Center   orb.Point
	Zoom     float64
	// Probe checks a tile source URL; nil skips the check. A failing
	// probe degrades the parcel layer instead of failing the canvas.
	Probe func(url string) error
	Log   zerolog.Logger
}

// Canvas owns the viewport, the parcel layer and the position indicator.
type Canvas struct {
	mu          sync.Mutex
	opts        Options
	initialized bool
	deferred    bool

	viewport Viewport
	parcels  *ParcelLayer

	position       *orb.Point
	accuracyRadius float64
}

// New creates an uninitialized canvas.
func New(opts Options) *Canvas {
	return &Canvas{opts: opts}
}

// Initialize binds the canvas to its container. When the container is
// not yet ready the canvas records the attempt and a later call
// completes it; this is not an error. Initializing an already
// initialized canvas is.
func (c *Canvas) Initialize(container Container) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if c.initialized {
		return ErrAlreadyInitialized
	}
	if container == nil || !container.Ready() {
		c.deferred = true
		c.opts.Log.Debug().Msg("canvas container not ready, deferring init")
		return nil
	}

	c.initialized = true
	c.deferred = false
	c.viewport = Viewport{Center: c.opts.Center, Zoom: c.opts.Zoom}
	return nil
}

// Initialized reports whether the canvas is bound to a container.
func (c *Canvas) Initialized() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.initialized
}

// Deferred reports whether an initialization attempt is waiting on the
// container.
func (c *Canvas) Deferred() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.deferred
}

// Dispose tears the canvas down. A disposed canvas may be initialized
// again.
func (c *Canvas) Dispose() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.initialized = false
	c.deferred = false
	c.parcels = nil
	c.position = nil
	c.accuracyRadius = 0
}

// Viewport returns the current camera state.
func (c *Canvas) Viewport() Viewport {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.viewport
}

// FlyTo moves the camera.
func (c *Canvas) FlyTo(lon, lat, zoom float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.viewport = Viewport{Center: orb.Point{lon, lat}, Zoom: zoom}
}

// AddParcelLayer registers the tiled parcel source. A failing tile
// source degrades gracefully: the layer is marked degraded and logged,
// base map and drawing keep working.
func (c *Canvas) AddParcelLayer(tileSourceURL string) {
	layer := &ParcelLayer{
		SourceURL:     tileSourceURL,
		LabelProperty: "parcel_no",
		MinLabelZoom:  14,
		FillOpacity:   0.12,
		Visible:       true,
	}

	if c.opts.Probe != nil {
		if err := c.opts.Probe(tileSourceURL); err != nil {
			layer.Degraded = true
			c.opts.Log.Warn().Err(err).Str("url", tileSourceURL).
				Msg("parcel tile source unavailable, continuing without parcels")
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	c.parcels = layer
}

// Parcels returns a copy of the parcel layer state, or nil when no layer
// was added.
func (c *Canvas) Parcels() *ParcelLayer {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.parcels == nil {
		return nil
	}
	cp := *c.parcels
	return &cp
}

// SetParcelsVisible toggles the reference layer. This only ever affects
// parcels, never the user's own annotations.
func (c *Canvas) SetParcelsVisible(visible bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.parcels != nil {
		c.parcels.Visible = visible
	}
}

// SetPosition places or moves the live position indicator.
func (c *Canvas) SetPosition(p orb.Point, accuracyRadius float64) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = &p
	c.accuracyRadius = accuracyRadius
}

// ClearPosition removes the position indicator.
func (c *Canvas) ClearPosition() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.position = nil
	c.accuracyRadius = 0
}

// Position returns the indicator position and accuracy radius, if set.
func (c *Canvas) Position() (orb.Point, float64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.position == nil {
		return orb.Point{}, 0, false
	}
	return *c.position, c.accuracyRadius, true
}
