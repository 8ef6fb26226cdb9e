package rx

import "sync"

// Merge emits the values of every source as they arrive. Each source's own
// order is kept; the interleaving between sources is arrival order. The
// result completes once all sources complete. The first error disposes the
// remaining sources and terminates the result; nothing is emitted after it.
func Merge[T any](sources ...Observable[T]) Observable[T] {
	return New(func(obs Observer[T]) Disposable {
		m := &merger[T]{out: obs, remaining: len(sources)}
		if len(sources) == 0 {
			obs.OnComplete()
			return &m.subs
		}
		for _, src := range sources {
			if m.subs.Disposed() {
				break
			}
			m.subs.Add(src.Subscribe(ObserverFuncs[T]{
				Next:     m.next,
				Error:    m.fail,
				Complete: m.complete,
			}))
		}
		return &m.subs
	})
}

type merger[T any] struct {
	out  Observer[T]
	subs Composite

	mu        sync.Mutex // serializes delivery across sources
	remaining int
	done      bool
}

func (m *merger[T]) next(v T) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.done {
		return
	}
	m.out.OnNext(v)
}

func (m *merger[T]) fail(err error) {
	m.mu.Lock()
	if m.done {
		m.mu.Unlock()
		return
	}
	m.done = true
	m.mu.Unlock()

	m.subs.Dispose()
	m.out.OnError(err)
}

func (m *merger[T]) complete() {
	m.mu.Lock()
	m.remaining--
	last := m.remaining == 0 && !m.done
	if last {
		m.done = true
	}
	m.mu.Unlock()

	if last {
		m.out.OnComplete()
	}
}
