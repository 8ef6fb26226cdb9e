// Package finder turns query streams into searches and keeps the
// presentation in step: progress on, search in the background, progress
// off and results shown, all without blocking the UI context.
package finder

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"cheesefinder/internal/domain"
	"cheesefinder/internal/eventbus"
	"cheesefinder/internal/rx"
)

// Searcher is the slow, blocking search collaborator.
type Searcher interface {
	Search(ctx context.Context, query string) (domain.ResultSet, error)
}

// Presenter is the UI surface. Every method is called on the UI scheduler.
type Presenter interface {
	ShowProgress()
	HideProgress()
	ShowResult(rs domain.ResultSet)
	ShowError(err error)
}

// State is the consumer's position in its Idle -> Searching -> Idle cycle.
type State int32

const (
	Idle State = iota
	Searching
	Failed
)

func (s State) String() string {
	switch s {
	case Idle:
		return "idle"
	case Searching:
		return "searching"
	case Failed:
		return "failed"
	default:
		return fmt.Sprintf("State(%d)", int32(s))
	}
}

const maxRestarts = 3

// Finder is the terminal consumer of a query stream.
type Finder struct {
	engine    Searcher
	presenter Presenter
	ui        rx.Scheduler
	io        rx.Scheduler

	variant        Variant
	bus            eventbus.EventBus
	logger         *zap.Logger
	cancelInFlight bool
	restartOnError bool

	state  atomic.Int32
	latest atomic.Uint64 // generation of the newest query

	// parent of every search context, cancelled by Stop
	root       context.Context
	cancelRoot context.CancelFunc

	// owned by the UI scheduler
	lastQuery string
	inflight  context.CancelFunc
	failures  int // consecutive failures since the last rendered result

	mu      sync.Mutex
	sources Sources
	sub     rx.Disposable
	started bool
	stopped bool
}

// Option configures a Finder.
type Option func(*Finder) error

// WithVariant selects the wiring variant.
// Default is VariantMerged.
func WithVariant(v Variant) Option {
	return func(f *Finder) error {
		if _, err := ParseVariant(string(v)); err != nil {
			return err
		}
		if v == "" {
			v = VariantMerged
		}
		f.variant = v
		return nil
	}
}

// WithBus makes the Finder publish SearchStarted, SearchCompleted and
// SearchFailed events.
func WithBus(bus eventbus.EventBus) Option {
	return func(f *Finder) error {
		f.bus = bus
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is zap.L().
func WithLogger(logger *zap.Logger) Option {
	return func(f *Finder) error {
		if logger != nil {
			f.logger = logger
		}
		return nil
	}
}

// WithCancelInFlight cancels a running search as soon as a newer query
// arrives, and skips queued queries that are already superseded.
func WithCancelInFlight(enabled bool) Option {
	return func(f *Finder) error {
		f.cancelInFlight = enabled
		return nil
	}
}

// WithRestartOnError resubscribes to the sources after the pipeline
// terminated with an error. After maxRestarts failures in a row without a
// rendered result the Finder stays in Failed.
func WithRestartOnError(enabled bool) Option {
	return func(f *Finder) error {
		f.restartOnError = enabled
		return nil
	}
}

// NewFinder creates a Finder. ui must be the context the presenter lives
// on; io is where searches run.
func NewFinder(engine Searcher, presenter Presenter, ui, io rx.Scheduler, opts ...Option) (*Finder, error) {
	if engine == nil {
		return nil, ErrEngineRequired
	}
	if presenter == nil {
		return nil, ErrPresenterRequired
	}
	if ui == nil || io == nil {
		return nil, ErrSchedulerRequired
	}

	f := &Finder{
		engine:    engine,
		presenter: presenter,
		ui:        ui,
		io:        io,
		variant:   VariantMerged,
		logger:    zap.L().Named("finder"),
	}

	for _, opt := range opts {
		if err := opt(f); err != nil {
			return nil, err
		}
	}

	f.root, f.cancelRoot = context.WithCancel(context.Background())
	return f, nil
}

// Variant returns the wiring variant in use.
func (f *Finder) Variant() Variant {
	return f.variant
}

// State returns the current consumer state.
func (f *Finder) State() State {
	return State(f.state.Load())
}

// Start subscribes to the variant's query stream.
func (f *Finder) Start(src Sources) error {
	f.mu.Lock()
	if f.started {
		f.mu.Unlock()
		return ErrAlreadyStarted
	}
	f.started = true
	f.sources = src
	f.mu.Unlock()

	f.logger.Info("finder started",
		zap.Stringer("variant", f.variant),
		zap.Bool("cancel_in_flight", f.cancelInFlight))
	f.subscribe()
	return nil
}

// Stop disposes the subscription, which detaches every source listener,
// and cancels a search in progress. Stop is idempotent.
func (f *Finder) Stop() {
	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		return
	}
	f.stopped = true
	sub := f.sub
	f.sub = nil
	f.mu.Unlock()

	if sub != nil {
		sub.Dispose()
	}
	// Any result still on its way is now stale, and a running search is
	// abandoned even if the UI context no longer runs tasks
	f.latest.Add(1)
	f.cancelRoot()
	f.state.Store(int32(Idle))
	f.logger.Info("finder stopped")
}

func (f *Finder) subscribe() {
	f.mu.Lock()
	src, stopped := f.sources, f.stopped
	f.mu.Unlock()
	if stopped {
		return
	}

	var sub rx.Disposable
	if f.variant.Blocking() {
		sub = f.subscribeBlocking(src)
	} else {
		sub = f.subscribeBackground(src)
	}

	f.mu.Lock()
	if f.stopped {
		f.mu.Unlock()
		sub.Dispose()
		return
	}
	f.sub = sub
	f.mu.Unlock()
}

// request is a query on its way to the engine.
type request struct {
	gen    uint64
	query  string
	ctx    context.Context
	cancel context.CancelFunc
	issued time.Time
}

// outcome is a finished (or skipped) search on its way back.
type outcome struct {
	request
	result domain.ResultSet
	stale  bool
}

// subscribeBackground shows progress on the UI context, searches on the
// background context and comes back to the UI context to render.
func (f *Finder) subscribeBackground(src Sources) rx.Disposable {
	requests := rx.Map(f.variant.queries(src).ObserveOn(f.ui), f.begin)
	outcomes := rx.MapErr(requests.ObserveOn(f.io), f.run)

	return outcomes.ObserveOn(f.ui).Subscribe(rx.ObserverFuncs[outcome]{
		Next:     f.finish,
		Error:    f.fail,
		Complete: f.complete,
	})
}

// subscribeBlocking runs the search inline on the UI context.
func (f *Finder) subscribeBlocking(src Sources) rx.Disposable {
	results := rx.MapErr(f.variant.queries(src).ObserveOn(f.ui), func(query string) (outcome, error) {
		return f.run(f.begin(query))
	})

	return results.Subscribe(rx.ObserverFuncs[outcome]{
		Next:     f.finish,
		Error:    f.fail,
		Complete: f.complete,
	})
}

// begin runs on the UI context.
func (f *Finder) begin(query string) request {
	gen := f.latest.Add(1)
	if f.cancelInFlight && f.inflight != nil {
		f.inflight()
	}

	ctx, cancel := context.WithCancel(f.root)
	f.inflight = cancel
	f.lastQuery = query
	f.state.Store(int32(Searching))

	f.presenter.ShowProgress()
	f.publish(eventbus.SearchStartedEvent{Query: query})
	f.logger.Debug("search started", zap.String("query", query), zap.Uint64("generation", gen))

	return request{gen: gen, query: query, ctx: ctx, cancel: cancel, issued: time.Now()}
}

// run runs on the background context, or on the UI context for
// VariantBlocking.
func (f *Finder) run(req request) (outcome, error) {
	defer req.cancel()
	out := outcome{request: req}

	if req.ctx.Err() != nil || (f.cancelInFlight && req.gen != f.latest.Load()) {
		out.stale = true
		return out, nil
	}

	rs, err := f.engine.Search(req.ctx, req.query)
	if err != nil {
		if req.ctx.Err() != nil {
			out.stale = true
			return out, nil
		}
		return out, fmt.Errorf("%w: %q: %w", ErrSearchFailed, req.query, err)
	}
	out.result = rs
	return out, nil
}

// finish runs on the UI context.
func (f *Finder) finish(out outcome) {
	if out.stale || out.gen != f.latest.Load() {
		f.logger.Debug("dropping superseded result",
			zap.String("query", out.query),
			zap.Uint64("generation", out.gen))
		return
	}

	f.inflight = nil
	f.failures = 0
	f.state.Store(int32(Idle))
	f.presenter.HideProgress()
	f.presenter.ShowResult(out.result)

	took := time.Since(out.issued)
	f.publish(eventbus.SearchCompletedEvent{
		Query: out.query,
		Count: out.result.Len(),
		Took:  took,
	})
	f.logger.Info("search completed",
		zap.String("query", out.query),
		zap.Int("results", out.result.Len()),
		zap.Duration("took", took))
}

// fail runs on the UI context. The pipeline is already terminated.
func (f *Finder) fail(err error) {
	if f.inflight != nil {
		f.inflight()
		f.inflight = nil
	}
	f.failures++
	f.state.Store(int32(Failed))
	f.presenter.HideProgress()
	f.presenter.ShowError(err)

	var pe *rx.PanicError
	if errors.As(err, &pe) {
		f.logger.Error("search pipeline panicked",
			zap.String("query", f.lastQuery),
			zap.Any("panic", pe.Value),
			zap.ByteString("stack", pe.Stack))
	} else {
		f.logger.Error("search pipeline failed", zap.String("query", f.lastQuery), zap.Error(err))
	}
	f.publish(eventbus.SearchFailedEvent{Query: f.lastQuery, Err: err})

	if !f.restartOnError {
		return
	}
	if f.failures > maxRestarts {
		f.logger.Warn("giving up on search pipeline", zap.Int("failures", f.failures))
		return
	}
	f.logger.Info("restarting search pipeline", zap.Int("failures", f.failures))
	f.subscribe()
}

func (f *Finder) complete() {
	f.logger.Info("query stream completed")
}

func (f *Finder) publish(event eventbus.DomainEvent) {
	if f.bus != nil {
		f.bus.Publish(event)
	}
}
