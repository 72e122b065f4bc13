package persist

import (
	"sync"
	"time"
)

const (
	// DefaultQuietPeriod is how long metadata must stay unchanged before it
	// is written.
	DefaultQuietPeriod = time.Second
	// DefaultMaxWait caps how long a burst of changes can defer the write.
	DefaultMaxWait = 5 * time.Second
)

// Debouncer coalesces a burst of values into one call carrying the latest.
//
// fire runs after quiet has elapsed since the last Trigger, or maxWait after
// the first Trigger of the burst, whichever comes first. It runs on a timer
// goroutine.
type Debouncer[T any] struct {
	quiet   time.Duration
	maxWait time.Duration
	fire    func(T)

	mu         sync.Mutex
	pending    bool
	value      T
	gen        uint64
	quietTimer *time.Timer
	maxTimer   *time.Timer
	stopped    bool
}

// NewDebouncer creates a debouncer. Non-positive durations use the defaults.
func NewDebouncer[T any](quiet, maxWait time.Duration, fire func(T)) *Debouncer[T] {
	if quiet <= 0 {
		quiet = DefaultQuietPeriod
	}
	if maxWait <= 0 {
		maxWait = DefaultMaxWait
	}
	if maxWait < quiet {
		maxWait = quiet
	}
	return &Debouncer[T]{quiet: quiet, maxWait: maxWait, fire: fire}
}

// Trigger records v as the latest value and restarts the quiet period.
func (d *Debouncer[T]) Trigger(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if d.stopped {
		return
	}
	d.value = v
	if !d.pending {
		d.pending = true
		d.gen++
		gen := d.gen
		d.maxTimer = time.AfterFunc(d.maxWait, func() { d.fireIf(gen) })
	}
	if d.quietTimer != nil {
		d.quietTimer.Stop()
	}
	gen := d.gen
	d.quietTimer = time.AfterFunc(d.quiet, func() { d.fireIf(gen) })
}

// Flush fires immediately if a value is pending.
func (d *Debouncer[T]) Flush() {
	d.mu.Lock()
	v, ok := d.takeLocked()
	d.mu.Unlock()
	if ok {
		d.fire(v)
	}
}

// Cancel discards a pending value without firing.
func (d *Debouncer[T]) Cancel() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.takeLocked()
}

// Stop flushes and then ignores further triggers.
func (d *Debouncer[T]) Stop() {
	d.Flush()
	d.mu.Lock()
	d.stopped = true
	d.mu.Unlock()
}

// Pending reports whether a value is waiting to fire.
func (d *Debouncer[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending
}

func (d *Debouncer[T]) fireIf(gen uint64) {
	d.mu.Lock()
	if gen != d.gen {
		d.mu.Unlock()
		return
	}
	v, ok := d.takeLocked()
	d.mu.Unlock()
	if ok {
		d.fire(v)
	}
}

// takeLocked clears the pending value and bumps the generation so timers
// from this burst become no-ops.
func (d *Debouncer[T]) takeLocked() (T, bool) {
	var zero T
	if !d.pending {
		return zero, false
	}
	v := d.value
	d.value = zero
	d.pending = false
	d.gen++
	if d.quietTimer != nil {
		d.quietTimer.Stop()
		d.quietTimer = nil
	}
	if d.maxTimer != nil {
		d.maxTimer.Stop()
		d.maxTimer = nil
	}
	return v, true
}
