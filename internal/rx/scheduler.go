package rx

import (
	"sync/atomic"
	"time"

	"go.uber.org/zap"
)

// Scheduler is an execution context: it decides where and when a task
// runs. Implementations never run a task synchronously inside
// ScheduleAfter; Schedule may run inline only on Immediate.
type Scheduler interface {
	Name() string
	Now() time.Time
	Schedule(task func()) Disposable
	ScheduleAfter(delay time.Duration, task func()) Disposable
}

// Option configures the Loop and Pool schedulers.
type Option func(*schedulerOptions)

type schedulerOptions struct {
	logger   *zap.Logger
	executor func(func())
}

// WithLogger sets the logger used to report task panics and rejected tasks.
// Default is the global zap logger.
func WithLogger(logger *zap.Logger) Option {
	return func(o *schedulerOptions) {
		if logger != nil {
			o.logger = logger
		}
	}
}

// WithExecutor makes a Loop hand each task to exec instead of running it
// on the loop goroutine. exec is called in FIFO order from that goroutine
// and may block; it is how a Loop forwards work to another event loop.
func WithExecutor(exec func(task func())) Option {
	return func(o *schedulerOptions) {
		o.executor = exec
	}
}

func buildOptions(opts []Option) schedulerOptions {
	o := schedulerOptions{logger: zap.L()}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// task is a unit of scheduled work that can be cancelled before it runs.
type task struct {
	run       func()
	cancelled atomic.Bool
}

func (t *task) Dispose() {
	t.cancelled.Store(true)
}

func (t *task) Disposed() bool {
	return t.cancelled.Load()
}

// delayed arms a timer that calls fire unless the returned Disposable was
// disposed first.
func delayed(delay time.Duration, t *task, fire func(*task)) Disposable {
	timer := time.AfterFunc(delay, func() {
		if !t.cancelled.Load() {
			fire(t)
		}
	})
	return NewDisposable(func() {
		t.Dispose()
		timer.Stop()
	})
}

type immediate struct{}

// Immediate runs Schedule'd tasks inline on the calling goroutine and
// delayed tasks on a timer goroutine.
func Immediate() Scheduler {
	return immediate{}
}

func (immediate) Name() string   { return "immediate" }
func (immediate) Now() time.Time { return time.Now() }

func (immediate) Schedule(fn func()) Disposable {
	fn()
	return Empty()
}

func (immediate) ScheduleAfter(delay time.Duration, fn func()) Disposable {
	return delayed(delay, &task{run: fn}, func(t *task) { t.run() })
}
