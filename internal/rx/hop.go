package rx

import (
	"sync"
	"sync/atomic"
)

// ObserveOn moves everything downstream of this point onto s. Signals keep
// their order and are delivered one at a time, whatever s is.
func (o Observable[T]) ObserveOn(s Scheduler) Observable[T] {
	return New(func(obs Observer[T]) Disposable {
		h := &hop[T]{out: obs, sched: s}
		h.upstream.Set(o.Subscribe(h))
		return h
	})
}

// SubscribeOn runs the subscription to this Observable, and with it the
// source's registration code, on s.
func (o Observable[T]) SubscribeOn(s Scheduler) Observable[T] {
	return New(func(obs Observer[T]) Disposable {
		var upstream Serial
		scheduled := s.Schedule(func() {
			upstream.Set(o.Subscribe(obs))
		})
		return NewDisposable(func() {
			scheduled.Dispose()
			upstream.Dispose()
		})
	})
}

type signalKind int

const (
	signalNext signalKind = iota
	signalError
	signalComplete
)

type signal[T any] struct {
	kind  signalKind
	value T
	err   error
}

// hop queues upstream signals and drains them in a task on sched. Only one
// drain runs at a time, which keeps delivery serial on pool schedulers.
type hop[T any] struct {
	out      Observer[T]
	sched    Scheduler
	upstream Serial
	disposed atomic.Bool

	mu         sync.Mutex
	queue      []signal[T]
	draining   bool
	terminated bool // a terminal signal was taken off the queue
}

func (h *hop[T]) OnNext(v T)        { h.enqueue(signal[T]{kind: signalNext, value: v}) }
func (h *hop[T]) OnError(err error) { h.enqueue(signal[T]{kind: signalError, err: err}) }
func (h *hop[T]) OnComplete()       { h.enqueue(signal[T]{kind: signalComplete}) }

func (h *hop[T]) enqueue(sig signal[T]) {
	if h.disposed.Load() {
		return
	}
	h.mu.Lock()
	if h.terminated {
		h.mu.Unlock()
		return
	}
	h.queue = append(h.queue, sig)
	if h.draining {
		h.mu.Unlock()
		return
	}
	h.draining = true
	h.mu.Unlock()

	h.sched.Schedule(h.drain)
}

func (h *hop[T]) drain() {
	for {
		h.mu.Lock()
		if len(h.queue) == 0 || h.terminated || h.disposed.Load() {
			h.queue = nil
			h.draining = false
			h.mu.Unlock()
			return
		}
		sig := h.queue[0]
		h.queue = h.queue[1:]
		if sig.kind != signalNext {
			h.terminated = true
		}
		h.mu.Unlock()

		if pe := h.deliver(sig); pe != nil {
			h.abort(sig, pe)
			return
		}
	}
}

func (h *hop[T]) deliver(sig signal[T]) (pe *PanicError) {
	defer func() {
		if r := recover(); r != nil {
			pe = newPanicError(r)
		}
	}()
	switch sig.kind {
	case signalNext:
		h.out.OnNext(sig.value)
	case signalError:
		h.out.OnError(sig.err)
	case signalComplete:
		h.out.OnComplete()
	}
	return nil
}

// abort ends the stage after the downstream observer panicked on sig. A
// panic on a value becomes the stage's error; one on a terminal signal
// can only be reported.
func (h *hop[T]) abort(sig signal[T], pe *PanicError) {
	h.mu.Lock()
	h.queue = nil
	h.draining = false
	h.terminated = true
	h.mu.Unlock()
	h.upstream.Dispose()

	if sig.kind != signalNext {
		reportUnhandled(pe)
		return
	}
	if again := h.deliver(signal[T]{kind: signalError, err: pe}); again != nil {
		reportUnhandled(again)
	}
}

func (h *hop[T]) Dispose() {
	h.disposed.Store(true)
	h.upstream.Dispose()
}

func (h *hop[T]) Disposed() bool {
	return h.disposed.Load()
}
