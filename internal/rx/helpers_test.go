package rx

import (
	"sync"
	"time"
)

// recorder is an Observer that keeps everything it receives.
type recorder[T any] struct {
	mu        sync.Mutex
	values    []T
	err       error
	completed bool
	terminals int
}

func (r *recorder[T]) OnNext(v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.values = append(r.values, v)
}

func (r *recorder[T]) OnError(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.err = err
	r.terminals++
}

func (r *recorder[T]) OnComplete() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.completed = true
	r.terminals++
}

func (r *recorder[T]) Values() []T {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]T(nil), r.values...)
}

func (r *recorder[T]) Err() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.err
}

func (r *recorder[T]) Completed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.completed
}

// listener is a fake callback-style event source, like a button or a text
// field, that counts how often it was attached and detached.
type listener[T any] struct {
	mu       sync.Mutex
	handlers map[int]func(T)
	nextID   int
	attached int
	detached int
}

func newListener[T any]() *listener[T] {
	return &listener[T]{handlers: make(map[int]func(T))}
}

func (l *listener[T]) register(emit func(T)) CancelFunc {
	l.mu.Lock()
	defer l.mu.Unlock()
	id := l.nextID
	l.nextID++
	l.handlers[id] = emit
	l.attached++
	return func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		delete(l.handlers, id)
		l.detached++
	}
}

func (l *listener[T]) fire(v T) {
	l.mu.Lock()
	handlers := make([]func(T), 0, len(l.handlers))
	for _, h := range l.handlers {
		handlers = append(handlers, h)
	}
	l.mu.Unlock()
	for _, h := range handlers {
		h(v)
	}
}

func (l *listener[T]) counts() (attached, detached, live int) {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.attached, l.detached, len(l.handlers)
}

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
