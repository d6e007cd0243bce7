// Package track follows the device position: it keeps a live position
// marker and accuracy circle on the map, recenters on the first fix and
// supports manual recentering from the last known position.
package track

import (
	"context"
	"sync"

	"github.com/paulmach/orb"
	"github.com/rs/zerolog"
)

const (
	// Rendered accuracy radius is clamped so the circle stays visually
	// reasonable regardless of raw GPS accuracy swings.
	MinAccuracyRadius = 12.0
	MaxAccuracyRadius = 60.0

	// FirstFixZoom is the camera zoom applied once, on the first fix.
	FirstFixZoom = 15.0
)

// Fix is a single position report.
type Fix struct {
	Lon      float64
	Lat      float64
	Accuracy float64 // reported accuracy radius in meters
}

// Point returns the fix as a (lon, lat) point.
func (f Fix) Point() orb.Point {
	return orb.Point{f.Lon, f.Lat}
}

// Source is a continuous position watch. Watch returns a channel of
// fixes that closes when the context is cancelled; an error means
// geolocation is unavailable or denied.
type Source interface {
	Watch(ctx context.Context) (<-chan Fix, error)
}

// Map is the slice of the map canvas the tracker drives.
type Map interface {
	FlyTo(lon, lat, zoom float64)
	SetPosition(p orb.Point, accuracyRadius float64)
	ClearPosition()
}

// Tracker consumes a position source and renders the live position.
type Tracker struct {
	source Source
	m      Map
	notify func(string)
	log    zerolog.Logger

	mu       sync.Mutex
	last     *Fix
	firstFix bool
	cancel   context.CancelFunc
	done     chan struct{}
}

// New creates a tracker. notify surfaces a one-time, user-facing notice
// when geolocation is unavailable; it may be nil.
func New(source Source, m Map, notify func(string), log zerolog.Logger) *Tracker {
	if notify == nil {
		notify = func(string) {}
	}
	return &Tracker{source: source, m: m, notify: notify, log: log}
}

// ClampRadius limits the rendered accuracy radius.
func ClampRadius(accuracy float64) float64 {
	if accuracy < MinAccuracyRadius {
		return MinAccuracyRadius
	}
	if accuracy > MaxAccuracyRadius {
		return MaxAccuracyRadius
	}
	return accuracy
}

// Start begins the position watch. Failure to start is surfaced as a
// notice and does not block any other map functionality.
func (t *Tracker) Start(ctx context.Context) error {
	ctx, cancel := context.WithCancel(ctx)

	fixes, err := t.source.Watch(ctx)
	if err != nil {
		cancel()
		t.log.Warn().Err(err).Msg("geolocation unavailable")
		t.notify("location unavailable")
		return err
	}

	t.mu.Lock()
	t.cancel = cancel
	t.done = make(chan struct{})
	done := t.done
	t.mu.Unlock()

	go func() {
		defer close(done)
		for fix := range fixes {
			t.handle(fix)
		}
	}()
	return nil
}

func (t *Tracker) handle(fix Fix) {
	t.mu.Lock()
	first := !t.firstFix
	t.firstFix = true
	t.last = &fix
	t.mu.Unlock()

	if first {
		t.m.FlyTo(fix.Lon, fix.Lat, FirstFixZoom)
	}
	t.m.SetPosition(fix.Point(), ClampRadius(fix.Accuracy))
}

// Recenter moves the camera to the last known position without waiting
// for a new fix. It reports whether a fix was available.
func (t *Tracker) Recenter() bool {
	t.mu.Lock()
	last := t.last
	t.mu.Unlock()

	if last == nil {
		return false
	}
	t.m.FlyTo(last.Lon, last.Lat, FirstFixZoom)
	return true
}

// Close cancels the position watch and removes the position indicator.
// It must be called on teardown so background polling does not leak.
func (t *Tracker) Close() {
	t.mu.Lock()
	cancel := t.cancel
	done := t.done
	t.cancel = nil
	t.done = nil
	t.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if done != nil {
		<-done
	}
	t.m.ClearPosition()
}
