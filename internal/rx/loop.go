package rx

import (
	"context"
	"runtime/debug"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Loop is a single-threaded event loop: tasks run one at a time, in the
// order they were scheduled, on one goroutine. It models the interactive
// context, which must never be blocked by slow work.
type Loop struct {
	name     string
	logger   *zap.Logger
	executor func(func())

	mu     sync.Mutex
	queue  []*task
	closed bool

	wake chan struct{}
	quit chan struct{}
	done chan struct{}
	once sync.Once
}

// NewLoop starts a loop goroutine.
func NewLoop(name string, opts ...Option) *Loop {
	o := buildOptions(opts)
	l := &Loop{
		name:     name,
		logger:   o.logger.With(zap.String("scheduler", name)),
		executor: o.executor,
		wake:     make(chan struct{}, 1),
		quit:     make(chan struct{}),
		done:     make(chan struct{}),
	}
	if l.executor == nil {
		l.executor = func(fn func()) { fn() }
	}
	go l.run()
	return l
}

func (l *Loop) Name() string   { return l.name }
func (l *Loop) Now() time.Time { return time.Now() }

// Schedule queues fn behind every task already scheduled.
func (l *Loop) Schedule(fn func()) Disposable {
	t := &task{run: fn}
	l.enqueue(t)
	return t
}

// ScheduleAfter queues fn once delay has elapsed.
func (l *Loop) ScheduleAfter(delay time.Duration, fn func()) Disposable {
	return delayed(delay, &task{run: fn}, func(t *task) { l.enqueue(t) })
}

// Await blocks until every task scheduled before the call has run.
func (l *Loop) Await(ctx context.Context) error {
	reached := make(chan struct{})
	t := &task{run: func() { close(reached) }}
	if !l.enqueue(t) {
		return ErrSchedulerClosed
	}
	select {
	case <-reached:
		return nil
	case <-ctx.Done():
		t.Dispose()
		return ctx.Err()
	}
}

// Close stops the loop after the task in progress. Pending tasks are
// dropped. Close must not be called from a task running on the loop.
func (l *Loop) Close() {
	l.once.Do(func() {
		l.mu.Lock()
		l.closed = true
		l.queue = nil
		l.mu.Unlock()
		close(l.quit)
		<-l.done
	})
}

func (l *Loop) enqueue(t *task) bool {
	l.mu.Lock()
	if l.closed {
		l.mu.Unlock()
		l.logger.Warn("task rejected", zap.Error(ErrSchedulerClosed))
		t.Dispose()
		return false
	}
	l.queue = append(l.queue, t)
	l.mu.Unlock()

	select {
	case l.wake <- struct{}{}:
	default:
	}
	return true
}

func (l *Loop) run() {
	defer close(l.done)
	for {
		l.mu.Lock()
		batch := l.queue
		l.queue = nil
		l.mu.Unlock()

		for _, t := range batch {
			select {
			case <-l.quit:
				return
			default:
			}
			if t.cancelled.Load() {
				continue
			}
			l.executor(l.guarded(t))
		}
		if len(batch) > 0 {
			continue
		}

		select {
		case <-l.wake:
		case <-l.quit:
			return
		}
	}
}

// guarded keeps a panicking task from taking the loop down with it. The
// task is checked for cancellation again when it runs, since an executor
// may hold it for a while.
func (l *Loop) guarded(t *task) func() {
	return func() {
		if t.cancelled.Load() {
			return
		}
		defer func() {
			if r := recover(); r != nil {
				l.logger.Error("task panicked",
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
			}
		}()
		t.run()
	}
}
