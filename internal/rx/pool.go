package rx

import (
	"fmt"
	"time"

	"github.com/panjf2000/ants/v2"
	"go.uber.org/zap"
)

// Pool is the background context: tasks run concurrently on a bounded
// set of worker goroutines and may block. Schedule blocks while every
// worker is busy.
type Pool struct {
	name   string
	pool   *ants.Pool
	logger *zap.Logger
}

// NewPool creates a worker pool with size workers (minimum 1).
func NewPool(name string, size int, opts ...Option) (*Pool, error) {
	if size < 1 {
		size = 1
	}
	o := buildOptions(opts)
	p := &Pool{
		name:   name,
		logger: o.logger.With(zap.String("scheduler", name)),
	}

	pool, err := ants.NewPool(size, ants.WithPanicHandler(func(v any) {
		p.logger.Error("task panicked", zap.Any("panic", v))
	}))
	if err != nil {
		return nil, fmt.Errorf("create %s pool: %w", name, err)
	}
	p.pool = pool
	return p, nil
}

func (p *Pool) Name() string   { return p.name }
func (p *Pool) Now() time.Time { return time.Now() }

// Schedule submits fn to the pool.
func (p *Pool) Schedule(fn func()) Disposable {
	t := &task{run: fn}
	p.submit(t)
	return t
}

// ScheduleAfter submits fn once delay has elapsed.
func (p *Pool) ScheduleAfter(delay time.Duration, fn func()) Disposable {
	return delayed(delay, &task{run: fn}, p.submit)
}

// Running returns the number of workers currently executing a task.
func (p *Pool) Running() int {
	return p.pool.Running()
}

// Release stops the pool. Tasks submitted afterwards are rejected.
func (p *Pool) Release() {
	p.pool.Release()
}

func (p *Pool) submit(t *task) {
	err := p.pool.Submit(func() {
		if !t.cancelled.Load() {
			t.run()
		}
	})
	if err != nil {
		p.logger.Error("task rejected", zap.Error(err))
		t.Dispose()
	}
}
