// Package debounce provides a per-input-stream quiet-period timer.
package debounce

import (
	"sync"
	"time"
)

const (
	DefaultInterval = 400 * time.Millisecond
	MinInterval     = 300 * time.Millisecond
	MaxInterval     = 500 * time.Millisecond
)

// Clamp bounds d to [MinInterval, MaxInterval]; non-positive values select DefaultInterval.
func Clamp(d time.Duration) time.Duration {
	switch {
	case d <= 0:
		return DefaultInterval
	case d < MinInterval:
		return MinInterval
	case d > MaxInterval:
		return MaxInterval
	default:
		return d
	}
}

// Debouncer runs only the last function triggered within a quiet period. Each trigger gets a
// generation number; the owner compares it against Latest to drop stale completions. Work that
// already started is never interrupted.
type Debouncer struct {
	interval time.Duration

	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	stopped    bool
}

// New returns a debouncer with the given quiet period.
func New(interval time.Duration) *Debouncer {
	if interval <= 0 {
		interval = DefaultInterval
	}
	return &Debouncer{interval: interval}
}

// Interval returns the configured quiet period.
func (d *Debouncer) Interval() time.Duration {
	return d.interval
}

// Trigger restarts the quiet period. fn runs on its own goroutine once the period elapses without
// a further trigger. The returned generation is the one fn will receive.
func (d *Debouncer) Trigger(fn func(generation uint64)) uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.generation++
	if d.stopped || fn == nil {
		return d.generation
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	gen := d.generation
	d.timer = time.AfterFunc(d.interval, func() {
		d.mu.Lock()
		current := !d.stopped && d.generation == gen
		d.mu.Unlock()
		if current {
			fn(gen)
		}
	})
	return gen
}

// Latest returns the most recent generation handed out.
func (d *Debouncer) Latest() uint64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.generation
}

// IsCurrent reports whether gen is still the latest generation.
func (d *Debouncer) IsCurrent(gen uint64) bool {
	return d.Latest() == gen
}

// Stop cancels any pending trigger. Further triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}
