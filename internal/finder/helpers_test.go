package finder

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cheesefinder/internal/cheese"
	"cheesefinder/internal/domain"
	"cheesefinder/internal/eventbus"
	"cheesefinder/internal/rx"
)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

// journal is an ordered, goroutine-safe record of what happened.
type journal struct {
	mu      sync.Mutex
	entries []string
}

func (j *journal) add(format string, args ...any) {
	j.mu.Lock()
	defer j.mu.Unlock()
	j.entries = append(j.entries, fmt.Sprintf(format, args...))
}

func (j *journal) snapshot() []string {
	j.mu.Lock()
	defer j.mu.Unlock()
	return append([]string(nil), j.entries...)
}

func (j *journal) count(entry string) int {
	n := 0
	for _, e := range j.snapshot() {
		if e == entry {
			n++
		}
	}
	return n
}

type fakePresenter struct {
	j *journal

	mu      sync.Mutex
	results []domain.ResultSet
	errs    []error
}

func (p *fakePresenter) ShowProgress() { p.j.add("progress on") }
func (p *fakePresenter) HideProgress() { p.j.add("progress off") }

func (p *fakePresenter) ShowResult(rs domain.ResultSet) {
	p.mu.Lock()
	p.results = append(p.results, rs)
	p.mu.Unlock()
	p.j.add("result %s: %s", rs.Query, strings.Join(rs.Items, ","))
}

func (p *fakePresenter) ShowError(err error) {
	p.mu.Lock()
	p.errs = append(p.errs, err)
	p.mu.Unlock()
	p.j.add("error")
}

func (p *fakePresenter) shownQueries() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, rs := range p.results {
		out = append(out, rs.Query)
	}
	return out
}

func (p *fakePresenter) lastError() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if len(p.errs) == 0 {
		return nil
	}
	return p.errs[len(p.errs)-1]
}

// searchFunc adapts a function to Searcher and journals every call.
type searchFunc struct {
	j  *journal
	fn func(ctx context.Context, query string) (domain.ResultSet, error)
}

func (s searchFunc) Search(ctx context.Context, query string) (domain.ResultSet, error) {
	s.j.add("search %s", query)
	return s.fn(ctx, query)
}

func catalogueSearch(t *testing.T, j *journal) searchFunc {
	t.Helper()
	engine, err := cheese.NewEngine(cheese.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	return searchFunc{j: j, fn: engine.Search}
}

// gate is an engine that blocks every search until released or cancelled.
type gate struct {
	started   chan string
	release   chan struct{}
	cancelled chan string
}

func newGate() *gate {
	return &gate{
		started:   make(chan string, 16),
		release:   make(chan struct{}),
		cancelled: make(chan string, 16),
	}
}

func (g *gate) search(ctx context.Context, query string) (domain.ResultSet, error) {
	g.started <- query
	select {
	case <-ctx.Done():
		g.cancelled <- query
		return domain.ResultSet{}, ctx.Err()
	case <-g.release:
		return domain.ResultSet{Query: query, Items: []string{strings.ToUpper(query)}}, nil
	}
}

func (g *gate) waitStarted(t *testing.T) string {
	t.Helper()
	select {
	case q := <-g.started:
		return q
	case <-time.After(2 * time.Second):
		t.Fatal("search never started")
		return ""
	}
}

// countingBus counts listener registrations and removals.
type countingBus struct {
	eventbus.EventBus

	mu           sync.Mutex
	subscribed   int
	unsubscribed int
}

func (c *countingBus) Subscribe(t eventbus.EventType, h eventbus.EventHandler) func() {
	unsub := c.EventBus.Subscribe(t, h)
	c.mu.Lock()
	c.subscribed++
	c.mu.Unlock()
	return func() {
		c.mu.Lock()
		c.unsubscribed++
		c.mu.Unlock()
		unsub()
	}
}

func (c *countingBus) counts() (subscribed, unsubscribed int) {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.subscribed, c.unsubscribed
}

func newFinder(t *testing.T, engine Searcher, p Presenter, ui, io rx.Scheduler, opts ...Option) *Finder {
	t.Helper()
	opts = append([]Option{WithLogger(zap.NewNop())}, opts...)
	f, err := NewFinder(engine, p, ui, io, opts...)
	require.NoError(t, err)
	return f
}

func press(bus eventbus.EventBus, text string) {
	bus.Publish(eventbus.SearchButtonPressedEvent{Text: text})
}

func typeText(bus eventbus.EventBus, text string) {
	bus.Publish(eventbus.QueryChangedEvent{Text: text})
}
