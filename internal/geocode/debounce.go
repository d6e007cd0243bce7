package geocode

import (
	"sync"
	"time"
)

// Debouncer delays a suggestion callback until keystrokes settle. Each
// Trigger resets the window; only the latest query fires.
type Debouncer struct {
	window time.Duration
	fn     func(query string)

	mu    sync.Mutex
	timer *time.Timer
}

// NewDebouncer creates a debouncer firing fn after the window elapses
// with no further triggers. A zero window uses DebounceWindow.
func NewDebouncer(window time.Duration, fn func(query string)) *Debouncer {
	if window <= 0 {
		window = DebounceWindow
	}
	return &Debouncer{window: window, fn: fn}
}

// Trigger schedules fn for the query, cancelling any pending one.
func (d *Debouncer) Trigger(query string) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.window, func() { d.fn(query) })
}

// Stop cancels any pending callback.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
