package stream

import (
	"bytes"
	"encoding/json"
	"sync"
	"time"
)

// Debounce collapses bursts of Trigger calls into a single evaluation of
// produce, run once no Trigger has arrived for the wait period. The produced
// value is forwarded to emit unless equal reports it unchanged from the last
// forwarded value.
type Debounce[T any] struct {
	wait    time.Duration
	produce func() T
	equal   func(a, b T) bool
	emit    func(T)

	mu      sync.Mutex
	timer   *time.Timer
	gen     uint64
	closed  bool
	hasLast bool
	last    T

	emitMu   sync.Mutex
	inflight sync.WaitGroup
}

// NewDebounce builds a debouncer. A nil equal forwards every produced value.
func NewDebounce[T any](wait time.Duration, produce func() T, equal func(a, b T) bool, emit func(T)) *Debounce[T] {
	return &Debounce[T]{
		wait:    wait,
		produce: produce,
		equal:   equal,
		emit:    emit,
	}
}

// Trigger (re)starts the quiet period.
func (d *Debounce[T]) Trigger() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.closed {
		return
	}
	d.gen++
	gen := d.gen
	if d.timer != nil {
		d.timer.Stop()
	}
	d.timer = time.AfterFunc(d.wait, func() { d.fire(gen) })
}

// Pending reports whether a timer is armed and has not fired yet.
func (d *Debounce[T]) Pending() bool {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.timer != nil && !d.closed
}

// Stop disarms the pending timer and waits for an evaluation already in
// progress. After Stop returns emit is not called again. Stop must not be
// called from inside produce or emit.
func (d *Debounce[T]) Stop() {
	d.mu.Lock()
	d.closed = true
	d.gen++
	if d.timer != nil {
		d.timer.Stop()
		d.timer = nil
	}
	d.mu.Unlock()
	d.inflight.Wait()
}

func (d *Debounce[T]) fire(gen uint64) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	if d.closed || gen != d.gen {
		d.mu.Unlock()
		return
	}
	d.timer = nil
	d.inflight.Add(1)
	d.mu.Unlock()
	defer d.inflight.Done()

	v := d.produce()

	d.mu.Lock()
	if d.closed || gen != d.gen {
		// superseded or stopped while producing
		d.mu.Unlock()
		return
	}
	if d.hasLast && d.equal != nil && d.equal(d.last, v) {
		d.mu.Unlock()
		return
	}
	d.last = v
	d.hasLast = true
	d.mu.Unlock()

	d.emit(v)
}

// EqualJSON reports whether a and b encode to identical JSON. Values that
// fail to encode are never equal.
func EqualJSON[T any](a, b T) bool {
	ra, err := json.Marshal(a)
	if err != nil {
		return false
	}
	rb, err := json.Marshal(b)
	if err != nil {
		return false
	}
	return bytes.Equal(ra, rb)
}
