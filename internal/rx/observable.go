// Package rx is a small push-based stream library: cold Observables,
// a handful of operators and the Schedulers that decide where each part
// of a pipeline runs.
//
// A pipeline is built from sources (Create, FromEvent, Just), chained
// through operators (Filter, Map, Debounce, Merge, ObserveOn, ...) and
// started by Subscribe. Disposing the returned Disposable propagates
// upstream and releases every source exactly once.
package rx

import (
	"fmt"
	"sync/atomic"
)

// Observer receives the signals of an Observable: any number of values
// followed by at most one terminal signal.
type Observer[T any] interface {
	OnNext(value T)
	OnError(err error)
	OnComplete()
}

// ObserverFuncs adapts plain functions to an Observer. Nil fields are
// ignored, except Error: an error without a handler goes to the
// unhandled-error hook.
type ObserverFuncs[T any] struct {
	Next     func(T)
	Error    func(error)
	Complete func()
}

func (f ObserverFuncs[T]) OnNext(v T) {
	if f.Next != nil {
		f.Next(v)
	}
}

func (f ObserverFuncs[T]) OnError(err error) {
	if f.Error != nil {
		f.Error(err)
		return
	}
	reportUnhandled(err)
}

func (f ObserverFuncs[T]) OnComplete() {
	if f.Complete != nil {
		f.Complete()
	}
}

// Observable is a cold sequence of T. Nothing happens until Subscribe;
// every subscription gets its own run of the source. The zero value
// completes immediately.
type Observable[T any] struct {
	subscribe func(Observer[T]) Disposable
}

// New builds an Observable from a raw subscribe function. The function
// must deliver signals serially and return the Disposable that stops it.
// Signals after a terminal one are dropped and reported as violations.
func New[T any](subscribe func(Observer[T]) Disposable) Observable[T] {
	return Observable[T]{subscribe: subscribe}
}

// Subscribe starts the sequence and delivers its signals to obs.
func (o Observable[T]) Subscribe(obs Observer[T]) Disposable {
	g := &guard[T]{target: obs}
	if o.subscribe == nil {
		g.OnComplete()
		return g
	}
	g.upstream.Set(o.subscribe(g))
	return g
}

// guard sits between a source and its observer and enforces the
// delivery contract: nothing after a terminal signal or after Dispose.
type guard[T any] struct {
	target   Observer[T]
	upstream Serial
	done     atomic.Bool
	disposed atomic.Bool
}

func (g *guard[T]) OnNext(v T) {
	if g.done.Load() {
		reportViolation(fmt.Errorf("%w: OnNext(%v)", ErrContractViolation, v))
		return
	}
	if g.disposed.Load() {
		return
	}
	g.target.OnNext(v)
}

func (g *guard[T]) OnError(err error) {
	if !g.done.CompareAndSwap(false, true) {
		reportViolation(fmt.Errorf("%w: OnError(%v)", ErrContractViolation, err))
		return
	}
	if !g.disposed.Load() {
		g.target.OnError(err)
	}
	g.upstream.Dispose()
}

func (g *guard[T]) OnComplete() {
	if !g.done.CompareAndSwap(false, true) {
		reportViolation(fmt.Errorf("%w: OnComplete", ErrContractViolation))
		return
	}
	if !g.disposed.Load() {
		g.target.OnComplete()
	}
	g.upstream.Dispose()
}

func (g *guard[T]) Dispose() {
	g.disposed.Store(true)
	g.upstream.Dispose()
}

func (g *guard[T]) Disposed() bool {
	return g.disposed.Load() || g.done.Load()
}

// Emitter is handed to Create sources. Calls must not overlap.
type Emitter[T any] interface {
	Next(value T)
	Error(err error)
	Complete()
	// SetCancel registers fn to run exactly once when the subscription
	// is disposed or terminates. If that already happened fn runs now.
	SetCancel(fn CancelFunc)
	Disposed() bool
}

// CancelFunc detaches whatever a source registered.
type CancelFunc func()

type emitter[T any] struct {
	obs    Observer[T]
	done   atomic.Bool
	cancel Composite
}

func (e *emitter[T]) Next(v T) {
	if e.done.Load() {
		return
	}
	e.obs.OnNext(v)
}

func (e *emitter[T]) Error(err error) {
	if !e.done.CompareAndSwap(false, true) {
		return
	}
	e.obs.OnError(err)
	e.cancel.Dispose()
}

func (e *emitter[T]) Complete() {
	if !e.done.CompareAndSwap(false, true) {
		return
	}
	e.obs.OnComplete()
	e.cancel.Dispose()
}

func (e *emitter[T]) SetCancel(fn CancelFunc) {
	if fn == nil {
		return
	}
	e.cancel.Add(NewDisposable(fn))
}

func (e *emitter[T]) Dispose() {
	e.done.Store(true)
	e.cancel.Dispose()
}

func (e *emitter[T]) Disposed() bool {
	return e.done.Load()
}

// Create builds an Observable from an imperative source. A panic escaping
// source is delivered as a *PanicError.
func Create[T any](source func(Emitter[T])) Observable[T] {
	return New(func(obs Observer[T]) Disposable {
		e := &emitter[T]{obs: obs}
		func() {
			defer func() {
				if r := recover(); r != nil {
					e.Error(newPanicError(r))
				}
			}()
			source(e)
		}()
		return e
	})
}

// FromEvent adapts a callback registration to an Observable. register is
// called once per subscription with the emit callback and returns the
// func that detaches the listener. That func runs exactly once, on
// Dispose or on a terminal signal; emits after it are ignored. A panic
// escaping emit terminates the sequence with a *PanicError.
func FromEvent[T any](register func(emit func(T)) CancelFunc) Observable[T] {
	return Create(func(e Emitter[T]) {
		e.SetCancel(register(func(v T) {
			defer func() {
				if r := recover(); r != nil {
					e.Error(newPanicError(r))
				}
			}()
			e.Next(v)
		}))
	})
}

// Just emits values in order and completes.
func Just[T any](values ...T) Observable[T] {
	return Create(func(e Emitter[T]) {
		for _, v := range values {
			if e.Disposed() {
				return
			}
			e.Next(v)
		}
		e.Complete()
	})
}

// Fail returns an Observable that terminates with err on subscribe.
func Fail[T any](err error) Observable[T] {
	return Create(func(e Emitter[T]) {
		e.Error(err)
	})
}
