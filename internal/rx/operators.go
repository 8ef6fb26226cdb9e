package rx

import "sync/atomic"

// stage links an operator to its upstream subscription and owns the
// terminal state of its output.
type stage[T any] struct {
	out      Observer[T]
	upstream Serial
	done     atomic.Bool
}

func (s *stage[T]) emit(v T) {
	if !s.done.Load() {
		s.out.OnNext(v)
	}
}

func (s *stage[T]) fail(err error) {
	if s.done.CompareAndSwap(false, true) {
		s.upstream.Dispose()
		s.out.OnError(err)
	}
}

func (s *stage[T]) complete() {
	if s.done.CompareAndSwap(false, true) {
		s.out.OnComplete()
	}
}

func (s *stage[T]) Dispose() {
	s.done.Store(true)
	s.upstream.Dispose()
}

func (s *stage[T]) Disposed() bool {
	return s.done.Load()
}

// MapErr emits fn(v) for every upstream value. An error or panic from fn
// terminates the sequence and disposes upstream.
func MapErr[T, R any](src Observable[T], fn func(T) (R, error)) Observable[R] {
	return New(func(obs Observer[R]) Disposable {
		s := &stage[R]{out: obs}
		s.upstream.Set(src.Subscribe(ObserverFuncs[T]{
			Next: func(v T) {
				if s.done.Load() {
					return
				}
				r, err := protect(fn, v)
				if err != nil {
					s.fail(err)
					return
				}
				s.emit(r)
			},
			Error:    s.fail,
			Complete: s.complete,
		}))
		return s
	})
}

// Map emits fn(v) for every upstream value, one to one and in order.
func Map[T, R any](src Observable[T], fn func(T) R) Observable[R] {
	return MapErr(src, func(v T) (R, error) {
		return fn(v), nil
	})
}

// Filter emits only the values for which pred holds, in order.
func (o Observable[T]) Filter(pred func(T) bool) Observable[T] {
	return MapOrSkip(o, func(v T) (T, bool, error) {
		return v, pred(v), nil
	})
}

// DoOnNext calls fn for each value before passing it on unchanged.
func (o Observable[T]) DoOnNext(fn func(T)) Observable[T] {
	return Map(o, func(v T) T {
		fn(v)
		return v
	})
}

// MapOrSkip is the general one-in, at-most-one-out stage behind Filter:
// fn returns the mapped value, whether to emit it, and an optional error.
func MapOrSkip[T, R any](src Observable[T], fn func(T) (R, bool, error)) Observable[R] {
	return New(func(obs Observer[R]) Disposable {
		s := &stage[R]{out: obs}
		s.upstream.Set(src.Subscribe(ObserverFuncs[T]{
			Next: func(v T) {
				if s.done.Load() {
					return
				}
				var (
					r  R
					ok bool
				)
				_, err := protect(func(v T) (struct{}, error) {
					var err error
					r, ok, err = fn(v)
					return struct{}{}, err
				}, v)
				if err != nil {
					s.fail(err)
					return
				}
				if ok {
					s.emit(r)
				}
			},
			Error:    s.fail,
			Complete: s.complete,
		}))
		return s
	})
}

// protect runs fn and turns a panic into a *PanicError.
func protect[T, R any](fn func(T) (R, error), v T) (r R, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = newPanicError(p)
		}
	}()
	return fn(v)
}
