package search

import (
	"sync"
	"time"
)

// DefaultWindow is the quiescence window between the last query update and
// the search it triggers.
const DefaultWindow = 500 * time.Millisecond

// Timer is the part of *time.Timer the debouncer needs.
type Timer interface {
	Stop() bool
}

// Clock schedules delayed callbacks.
type Clock interface {
	AfterFunc(d time.Duration, f func()) Timer
}

type realClock struct{}

func (realClock) AfterFunc(d time.Duration, f func()) Timer {
	return time.AfterFunc(d, f)
}

// RealClock schedules callbacks with time.AfterFunc.
var RealClock Clock = realClock{}

// Debouncer runs action once the triggers stop arriving for a full window.
type Debouncer struct {
	mu      sync.Mutex
	wait    time.Duration
	clock   Clock
	action  func()
	timer   Timer
	seq     uint64
	stopped bool
}

// NewDebouncer returns a debouncer with nothing scheduled.
func NewDebouncer(wait time.Duration, clock Clock, action func()) *Debouncer {
	if wait <= 0 {
		wait = DefaultWindow
	}
	if clock == nil {
		clock = RealClock
	}
	return &Debouncer{wait: wait, clock: clock, action: action}
}

// Trigger cancels the pending action, if any, and schedules a new one.
func (d *Debouncer) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.stopped {
		return
	}
	if d.timer != nil {
		d.timer.Stop()
	}
	d.seq++
	seq := d.seq
	d.timer = d.clock.AfterFunc(d.wait, func() { d.fire(seq) })
}

// Pending reports whether an action is scheduled.
func (d *Debouncer) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil
}

// Stop cancels the pending action. Later triggers are ignored.
func (d *Debouncer) Stop() {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.stopped = true
	d.seq++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
}

func (d *Debouncer) fire(seq uint64) {
	d.mu.Lock()
	// A timer whose Stop lost the race still fires; seq tells it apart.
	if d.stopped || seq != d.seq {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.mu.Unlock()

	d.action()
}
