package search

import (
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDebouncerCoalescesBursts(t *testing.T) {
	clock := &fakeClock{}
	var calls atomic.Int32
	d := NewDebouncer(500*time.Millisecond, clock, func() { calls.Add(1) })

	for i := 0; i < 10; i++ {
		d.Trigger()
		clock.Advance(499 * time.Millisecond)
	}
	assert.Equal(t, int32(0), calls.Load())
	assert.Equal(t, 1, clock.active())
	assert.True(t, d.Pending())

	clock.Advance(time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
	assert.False(t, d.Pending())

	clock.Advance(10 * time.Second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncerStop(t *testing.T) {
	clock := &fakeClock{}
	var calls atomic.Int32
	d := NewDebouncer(500*time.Millisecond, clock, func() { calls.Add(1) })

	d.Trigger()
	d.Stop()
	clock.Advance(time.Second)
	assert.Equal(t, int32(0), calls.Load())

	d.Trigger()
	clock.Advance(time.Second)
	assert.Equal(t, int32(0), calls.Load())
	assert.False(t, d.Pending())
}

func TestDebouncerIgnoresSupersededFire(t *testing.T) {
	clock := &fakeClock{}
	var calls atomic.Int32
	d := NewDebouncer(time.Second, clock, func() { calls.Add(1) })

	d.Trigger()
	d.mu.Lock()
	stale := d.seq
	d.mu.Unlock()
	d.Trigger()

	// A callback from the first timer that was already running when Stop was called.
	d.fire(stale)
	assert.Equal(t, int32(0), calls.Load())

	clock.Advance(time.Second)
	assert.Equal(t, int32(1), calls.Load())
}

func TestDebouncerDefaults(t *testing.T) {
	d := NewDebouncer(0, nil, func() {})
	assert.Equal(t, DefaultWindow, d.wait)
	assert.Equal(t, RealClock, d.clock)
}

func TestDebouncerRealClock(t *testing.T) {
	fired := make(chan struct{}, 4)
	d := NewDebouncer(20*time.Millisecond, RealClock, func() { fired <- struct{}{} })
	defer d.Stop()

	d.Trigger()
	d.Trigger()
	d.Trigger()

	select {
	case <-fired:
	case <-time.After(2 * time.Second):
		require.FailNow(t, "debounced action never ran")
	}
	select {
	case <-fired:
		require.FailNow(t, "debounced action ran twice")
	case <-time.After(100 * time.Millisecond):
	}
}
