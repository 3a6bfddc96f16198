package session

import (
	"sync"
	"time"
)

// Timer is the handle of a scheduled callback.
type Timer interface {
	Stop() bool
}

// AfterFunc schedules f to run once after d.
type AfterFunc func(d time.Duration, f func()) Timer

func realAfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// Debouncer holds at most one pending task. Scheduling a new task replaces
// the pending one and restarts the delay.
type Debouncer struct {
	delay time.Duration
	after AfterFunc

	mu      sync.Mutex
	timer   Timer
	pending func()
	gen     uint64
}

// NewDebouncer returns a debouncer with the given quiet period. A nil
// after uses real timers.
func NewDebouncer(delay time.Duration, after AfterFunc) *Debouncer {
	if after == nil {
		after = realAfterFunc
	}
	return &Debouncer{delay: delay, after: after}
}

// Schedule replaces any pending task with fn.
func (d *Debouncer) Schedule(fn func()) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.stopLocked()
	d.pending = fn
	gen := d.gen
	d.timer = d.after(d.delay, func() { d.fire(gen) })
}

// Cancel drops the pending task. It reports whether one was pending.
func (d *Debouncer) Cancel() bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	had := d.pending != nil
	d.stopLocked()
	return had
}

// Flush runs the pending task now, on the caller's goroutine.
func (d *Debouncer) Flush() bool {
	d.mu.Lock()
	fn := d.pending
	d.stopLocked()
	d.mu.Unlock()

	if fn == nil {
		return false
	}
	fn()
	return true
}

// Pending reports whether a task is waiting.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.pending != nil
}

// stopLocked invalidates the current timer. A timer that already fired
// but has not taken the lock yet sees a newer generation and does nothing.
func (d *Debouncer) stopLocked() {
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.pending = nil
	d.gen++
}

func (d *Debouncer) fire(gen uint64) {
	d.mu.Lock()
	if gen != d.gen || d.pending == nil {
		d.mu.Unlock()
		return
	}
	fn := d.pending
	d.pending = nil
	d.timer = nil
	d.gen++
	d.mu.Unlock()

	fn()
}
