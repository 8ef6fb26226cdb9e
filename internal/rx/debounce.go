package rx

import (
	"sync"
	"time"
)

// Debounce emits a value only after window has passed without a newer one.
// Each value cancels the pending emission of the previous one and restarts
// the timer on s. On completion the pending value, if any, is flushed
// first; on error it is dropped.
func (o Observable[T]) Debounce(window time.Duration, s Scheduler) Observable[T] {
	return New(func(obs Observer[T]) Disposable {
		d := &debouncer[T]{stage: stage[T]{out: obs}, window: window, sched: s}
		d.upstream.Set(o.Subscribe(ObserverFuncs[T]{
			Next:     d.next,
			Error:    d.fail,
			Complete: d.complete,
		}))
		return d
	})
}

type debouncer[T any] struct {
	stage[T]
	window time.Duration
	sched  Scheduler

	mu      sync.Mutex // guards the fields below
	gen     uint64
	latest  T
	has     bool
	pending Disposable

	emitMu sync.Mutex // serializes timer and upstream deliveries
}

func (d *debouncer[T]) next(v T) {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.done.Load() {
		return
	}
	d.gen++
	id := d.gen
	d.latest, d.has = v, true
	if d.pending != nil {
		d.pending.Dispose()
	}
	d.pending = d.sched.ScheduleAfter(d.window, func() { d.fire(id) })
}

// fire holds emitMu across taking and emitting the value, so a completion
// either flushes it itself or waits until it is delivered.
func (d *debouncer[T]) fire(id uint64) {
	d.emitMu.Lock()
	defer d.emitMu.Unlock()

	d.mu.Lock()
	if id != d.gen || !d.has {
		d.mu.Unlock()
		return
	}
	v := d.take()
	d.mu.Unlock()

	d.emit(v)
}

// take clears the pending value. d.mu must be held.
func (d *debouncer[T]) take() T {
	v := d.latest
	var zero T
	d.latest, d.has = zero, false
	d.pending = nil
	return v
}

func (d *debouncer[T]) cancelPending() (v T, had bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.gen++
	if d.pending != nil {
		d.pending.Dispose()
	}
	had = d.has
	v = d.take()
	return v, had
}

func (d *debouncer[T]) complete() {
	v, had := d.cancelPending()
	d.emitMu.Lock()
	defer d.emitMu.Unlock()
	if had {
		d.emit(v)
	}
	d.stage.complete()
}

func (d *debouncer[T]) fail(err error) {
	d.cancelPending()
	d.emitMu.Lock()
	defer d.emitMu.Unlock()
	d.stage.fail(err)
}

func (d *debouncer[T]) Dispose() {
	d.cancelPending()
	d.stage.Dispose()
}
