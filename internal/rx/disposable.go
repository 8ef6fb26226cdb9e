package rx

import (
	"sync"
	"sync/atomic"
)

// Disposable releases the resources behind a subscription or a scheduled task.
// Dispose must be safe to call more than once and from any goroutine.
type Disposable interface {
	Dispose()
	Disposed() bool
}

type funcDisposable struct {
	once     sync.Once
	fn       func()
	disposed atomic.Bool
}

// NewDisposable returns a Disposable that runs fn exactly once.
func NewDisposable(fn func()) Disposable {
	return &funcDisposable{fn: fn}
}

func (d *funcDisposable) Dispose() {
	d.once.Do(func() {
		d.disposed.Store(true)
		if d.fn != nil {
			d.fn()
		}
	})
}

func (d *funcDisposable) Disposed() bool {
	return d.disposed.Load()
}

// Empty returns a Disposable with nothing to release.
func Empty() Disposable {
	return NewDisposable(nil)
}

// Composite disposes a group of Disposables together.
// Anything added after Dispose is disposed immediately.
type Composite struct {
	mu       sync.Mutex
	items    []Disposable
	disposed bool
}

// Add registers d with the group.
func (c *Composite) Add(d Disposable) {
	if d == nil {
		return
	}
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		d.Dispose()
		return
	}
	c.items = append(c.items, d)
	c.mu.Unlock()
}

// Dispose releases every registered Disposable.
func (c *Composite) Dispose() {
	c.mu.Lock()
	if c.disposed {
		c.mu.Unlock()
		return
	}
	c.disposed = true
	items := c.items
	c.items = nil
	c.mu.Unlock()

	for _, d := range items {
		d.Dispose()
	}
}

// Disposed reports whether Dispose has been called.
func (c *Composite) Disposed() bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.disposed
}

// Serial holds a single Disposable that may be set after the holder itself
// was handed out. Setting a value on a disposed Serial disposes the value.
type Serial struct {
	mu       sync.Mutex
	current  Disposable
	disposed bool
}

// Set replaces the held Disposable without disposing the previous one.
func (s *Serial) Set(d Disposable) {
	if d == nil {
		return
	}
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		d.Dispose()
		return
	}
	s.current = d
	s.mu.Unlock()
}

// Dispose releases the held Disposable, if any.
func (s *Serial) Dispose() {
	s.mu.Lock()
	if s.disposed {
		s.mu.Unlock()
		return
	}
	s.disposed = true
	d := s.current
	s.current = nil
	s.mu.Unlock()

	if d != nil {
		d.Dispose()
	}
}

// Disposed reports whether Dispose has been called.
func (s *Serial) Disposed() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.disposed
}
