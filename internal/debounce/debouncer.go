// Package debounce coalesces bursts of triggers into a single delayed action.
package debounce

import (
	"sync"
	"time"
)

// Debouncer holds at most one pending action. Scheduling a new action
// replaces the pending one, which then never runs. Each coalescing point
// needs its own Debouncer.
type Debouncer struct {
	mu         sync.Mutex
	timer      *time.Timer
	generation uint64
	stopped    bool

	// OnSuperseded, if set, is called (outside the lock) each time a pending
	// action is dropped by Schedule or Cancel.
	OnSuperseded func()
}

func New() *Debouncer {
	return &Debouncer{}
}

// Schedule runs action after delay unless another Schedule or Cancel
// happens first. It reports false when the debouncer has been stopped.
func (d *Debouncer) Schedule(delay time.Duration, action func()) bool {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return false
	}
	superseded := d.dropLocked()
	d.generation++
	gen := d.generation
	d.timer = time.AfterFunc(delay, func() { d.fire(gen, action) })
	d.mu.Unlock()

	if superseded {
		d.notifySuperseded()
	}
	return true
}

// Cancel drops the pending action, if any.
func (d *Debouncer) Cancel() {
	d.mu.Lock()
	superseded := d.dropLocked()
	d.mu.Unlock()
	if superseded {
		d.notifySuperseded()
	}
}

// Stop cancels the pending action and rejects further schedules.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	d.stopped = true
	d.dropLocked()
	d.mu.Unlock()
}

// Pending reports whether an action is waiting to fire.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

func (d *Debouncer) fire(gen uint64, action func()) {
	d.mu.Lock()
	// A timer can fire while Schedule is replacing it; the generation check
	// keeps the replaced action from running.
	if gen != d.generation || d.timer == nil {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	action()
}

// dropLocked stops the pending timer and invalidates its generation.
func (d *Debouncer) dropLocked() bool {
	if d.timer == nil {
		return false
	}
	d.timer.Stop()
	d.timer = nil
	d.generation++
	return true
}

func (d *Debouncer) notifySuperseded() {
	if d.OnSuperseded != nil {
		d.OnSuperseded()
	}
}
