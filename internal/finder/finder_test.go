package finder

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"cheesefinder/internal/domain"
	"cheesefinder/internal/eventbus"
	"cheesefinder/internal/rx"
)

func TestButtonPressSearchesAndRenders(t *testing.T) {
	j := &journal{}
	bus := eventbus.NewSync()
	p := &fakePresenter{j: j}
	f := newFinder(t, catalogueSearch(t, j), p, rx.Immediate(), rx.Immediate(), WithVariant(VariantButton))

	require.NoError(t, f.Start(BusSources(bus, 2, time.Second, rx.Immediate())))
	defer f.Stop()

	press(bus, "brie")

	assert.Equal(t, []string{
		"progress on",
		"search brie",
		"progress off",
		"result brie: Brie,Brie de Meaux,Brie de Melun",
	}, j.snapshot())
	assert.Equal(t, Idle, f.State())
}

func TestTypingIsFilteredThenDebounced(t *testing.T) {
	j := &journal{}
	bus := eventbus.NewSync()
	ts := rx.NewTestScheduler(epoch)
	p := &fakePresenter{j: j}
	f := newFinder(t, catalogueSearch(t, j), p, rx.Immediate(), rx.Immediate(), WithVariant(VariantTextChange))

	require.NoError(t, f.Start(BusSources(bus, 2, time.Second, ts)))
	defer f.Stop()

	typeText(bus, "b")
	assert.Zero(t, ts.Pending(), "too short to schedule anything")
	ts.AdvanceBy(time.Minute)
	assert.Zero(t, j.count("search b"))

	typeText(bus, "br")
	ts.AdvanceBy(500 * time.Millisecond)
	typeText(bus, "brie")
	ts.AdvanceBy(999 * time.Millisecond)
	assert.Empty(t, j.snapshot(), "quiet window has not elapsed since the last keystroke")

	ts.AdvanceBy(time.Millisecond)
	assert.Equal(t, 1, j.count("search brie"))
	assert.Zero(t, j.count("search br"))

	ts.AdvanceBy(time.Minute)
	assert.Equal(t, 1, j.count("search brie"))
	assert.Equal(t, []string{"brie"}, p.shownQueries())
}

func TestMergedVariantListensToBoth(t *testing.T) {
	j := &journal{}
	bus := eventbus.NewSync()
	ts := rx.NewTestScheduler(epoch)
	p := &fakePresenter{j: j}
	f := newFinder(t, catalogueSearch(t, j), p, rx.Immediate(), rx.Immediate())

	require.NoError(t, f.Start(BusSources(bus, 2, time.Second, ts)))
	defer f.Stop()
	assert.Equal(t, VariantMerged, f.Variant())

	press(bus, "feta")
	typeText(bus, "gouda")
	ts.AdvanceBy(time.Second)

	assert.Equal(t, []string{"feta", "gouda"}, p.shownQueries())
}

func TestStopDetachesEveryListenerOnce(t *testing.T) {
	for _, v := range Variants {
		t.Run(v.String(), func(t *testing.T) {
			bus := &countingBus{EventBus: eventbus.NewSync()}
			j := &journal{}
			f := newFinder(t, catalogueSearch(t, j), &fakePresenter{j: j}, rx.Immediate(), rx.Immediate(), WithVariant(v))

			require.NoError(t, f.Start(BusSources(bus, 2, time.Second, rx.NewTestScheduler(epoch))))
			subscribed, unsubscribed := bus.counts()
			require.Positive(t, subscribed)
			assert.Zero(t, unsubscribed)

			f.Stop()
			f.Stop()

			_, unsubscribed = bus.counts()
			assert.Equal(t, subscribed, unsubscribed)

			press(bus, "brie")
			assert.Zero(t, j.count("search brie"))
		})
	}
}

func TestSearchErrorHidesProgressAndTerminates(t *testing.T) {
	j := &journal{}
	boom := errors.New("cheese cellar flooded")
	engine := searchFunc{j: j, fn: func(ctx context.Context, q string) (domain.ResultSet, error) {
		return domain.ResultSet{}, boom
	}}
	bus := &countingBus{EventBus: eventbus.NewSync()}
	var failed []eventbus.SearchFailedEvent
	bus.EventBus.Subscribe(eventbus.EventSearchFailed, func(e eventbus.DomainEvent) {
		failed = append(failed, e.(eventbus.SearchFailedEvent))
	})
	p := &fakePresenter{j: j}
	f := newFinder(t, engine, p, rx.Immediate(), rx.Immediate(), WithVariant(VariantButton), WithBus(bus))

	require.NoError(t, f.Start(BusSources(bus, 2, time.Second, rx.Immediate())))
	press(bus, "stilton")
	press(bus, "brie")

	assert.Equal(t, []string{"progress on", "search stilton", "progress off", "error"}, j.snapshot())
	assert.Equal(t, Failed, f.State())
	require.ErrorIs(t, p.lastError(), boom)
	assert.ErrorIs(t, p.lastError(), ErrSearchFailed)

	require.Len(t, failed, 1)
	assert.Equal(t, "stilton", failed[0].Query)

	// the button listener is gone
	subscribed, unsubscribed := bus.counts()
	assert.Equal(t, subscribed, unsubscribed)
}

func TestEnginePanicIsReportedNotFatal(t *testing.T) {
	j := &journal{}
	engine := searchFunc{j: j, fn: func(ctx context.Context, q string) (domain.ResultSet, error) {
		panic("engine bug")
	}}
	bus := eventbus.NewSync()
	p := &fakePresenter{j: j}
	f := newFinder(t, engine, p, rx.Immediate(), rx.Immediate(), WithVariant(VariantButton))
	require.NoError(t, f.Start(BusSources(bus, 2, time.Second, rx.Immediate())))

	require.NotPanics(t, func() { press(bus, "brie") })

	var pe *rx.PanicError
	require.ErrorAs(t, p.lastError(), &pe)
	assert.Equal(t, "engine bug", pe.Value)
	assert.Equal(t, 1, j.count("progress off"))
}

// renderPanics is a presenter whose first ShowResult panics.
type renderPanics struct {
	*fakePresenter
	panicked atomic.Bool
}

func (p *renderPanics) ShowResult(rs domain.ResultSet) {
	if p.panicked.CompareAndSwap(false, true) {
		panic("render failed")
	}
	p.fakePresenter.ShowResult(rs)
}

func TestPresenterPanicIsReportedAndRecovered(t *testing.T) {
	ui := rx.NewLoop("ui", rx.WithLogger(zap.NewNop()))
	defer ui.Close()
	io, err := rx.NewPool("io", 2, rx.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer io.Release()

	j := &journal{}
	bus := eventbus.NewSync()
	p := &renderPanics{fakePresenter: &fakePresenter{j: j}}
	f := newFinder(t, catalogueSearch(t, j), p, ui, io,
		WithVariant(VariantButton), WithRestartOnError(true))
	require.NoError(t, f.Start(BusSources(bus, 2, time.Second, ui)))
	defer f.Stop()

	press(bus, "brie")
	require.Eventually(t, func() bool { return p.lastError() != nil }, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, ui.Await(context.Background()))

	var pe *rx.PanicError
	require.ErrorAs(t, p.lastError(), &pe)
	assert.Equal(t, "render failed", pe.Value)
	assert.NotEqual(t, Searching, f.State())

	press(bus, "gouda")
	require.Eventually(t, func() bool {
		return len(p.shownQueries()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, ui.Await(context.Background()))
	assert.Equal(t, []string{"gouda"}, p.shownQueries())
	assert.Equal(t, Idle, f.State())
}

func TestPresenterPanicWithoutRestartFails(t *testing.T) {
	j := &journal{}
	bus := eventbus.NewSync()
	p := &renderPanics{fakePresenter: &fakePresenter{j: j}}
	f := newFinder(t, catalogueSearch(t, j), p, rx.Immediate(), rx.Immediate(), WithVariant(VariantButton))
	require.NoError(t, f.Start(BusSources(bus, 2, time.Second, rx.Immediate())))
	defer f.Stop()

	require.NotPanics(t, func() { press(bus, "brie") })
	assert.Equal(t, Failed, f.State())
	assert.Equal(t, "progress off", j.snapshot()[len(j.snapshot())-2])

	press(bus, "gouda")
	assert.Zero(t, j.count("search gouda"))
}

func TestRestartOnErrorResubscribes(t *testing.T) {
	j := &journal{}
	engine := searchFunc{j: j, fn: func(ctx context.Context, q string) (domain.ResultSet, error) {
		if q == "stilton" {
			return domain.ResultSet{}, errors.New("out of stock")
		}
		return domain.ResultSet{Query: q, Items: []string{q}}, nil
	}}
	bus := eventbus.NewSync()
	p := &fakePresenter{j: j}
	f := newFinder(t, engine, p, rx.Immediate(), rx.Immediate(),
		WithVariant(VariantButton), WithRestartOnError(true))
	require.NoError(t, f.Start(BusSources(bus, 2, time.Second, rx.Immediate())))
	defer f.Stop()

	press(bus, "stilton")
	assert.Equal(t, Failed, f.State())
	press(bus, "brie")

	assert.Equal(t, []string{"brie"}, p.shownQueries())
	assert.Equal(t, Idle, f.State())
}

func TestRestartGivesUpAfterRepeatedFailures(t *testing.T) {
	j := &journal{}
	engine := searchFunc{j: j, fn: func(ctx context.Context, q string) (domain.ResultSet, error) {
		return domain.ResultSet{}, errors.New("down")
	}}
	bus := eventbus.NewSync()
	f := newFinder(t, engine, &fakePresenter{j: j}, rx.Immediate(), rx.Immediate(),
		WithVariant(VariantButton), WithRestartOnError(true))
	require.NoError(t, f.Start(BusSources(bus, 2, time.Second, rx.Immediate())))
	defer f.Stop()

	for i := 0; i < 10; i++ {
		press(bus, "brie")
	}

	assert.Equal(t, maxRestarts+1, j.count("search brie"))
	assert.Equal(t, Failed, f.State())
}

func TestPublishesSearchEvents(t *testing.T) {
	j := &journal{}
	bus := eventbus.NewSync()
	var events []eventbus.DomainEvent
	record := func(e eventbus.DomainEvent) { events = append(events, e) }
	bus.Subscribe(eventbus.EventSearchStarted, record)
	bus.Subscribe(eventbus.EventSearchCompleted, record)

	f := newFinder(t, catalogueSearch(t, j), &fakePresenter{j: j}, rx.Immediate(), rx.Immediate(),
		WithVariant(VariantButton), WithBus(bus))
	require.NoError(t, f.Start(BusSources(bus, 2, time.Second, rx.Immediate())))
	defer f.Stop()

	press(bus, "brie")

	require.Len(t, events, 2)
	assert.Equal(t, eventbus.SearchStartedEvent{Query: "brie"}, events[0])
	completed, ok := events[1].(eventbus.SearchCompletedEvent)
	require.True(t, ok)
	assert.Equal(t, "brie", completed.Query)
	assert.Equal(t, 3, completed.Count)
}

func TestCancelInFlightAbandonsSupersededSearch(t *testing.T) {
	ui := rx.NewLoop("ui", rx.WithLogger(zap.NewNop()))
	defer ui.Close()
	io, err := rx.NewPool("io", 2, rx.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer io.Release()

	j := &journal{}
	g := newGate()
	engine := searchFunc{j: j, fn: func(ctx context.Context, q string) (domain.ResultSet, error) {
		if q == "gouda" {
			return domain.ResultSet{Query: q, Items: []string{"Gouda"}}, nil
		}
		return g.search(ctx, q)
	}}
	bus := eventbus.NewSync()
	p := &fakePresenter{j: j}
	f := newFinder(t, engine, p, ui, io, WithVariant(VariantButton), WithCancelInFlight(true))
	require.NoError(t, f.Start(BusSources(bus, 2, time.Second, ui)))
	defer f.Stop()

	press(bus, "brie")
	assert.Equal(t, "brie", g.waitStarted(t))
	press(bus, "gouda")

	select {
	case q := <-g.cancelled:
		assert.Equal(t, "brie", q)
	case <-time.After(2 * time.Second):
		t.Fatal("superseded search was not cancelled")
	}

	require.Eventually(t, func() bool {
		return len(p.shownQueries()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, ui.Await(context.Background()))

	assert.Equal(t, []string{"gouda"}, p.shownQueries())
	assert.Nil(t, p.lastError())
	assert.Equal(t, 1, j.count("progress off"))
	assert.Equal(t, Idle, f.State())
}

func TestSupersededResultIsNeverRendered(t *testing.T) {
	ui := rx.NewLoop("ui", rx.WithLogger(zap.NewNop()))
	defer ui.Close()
	io, err := rx.NewPool("io", 2, rx.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer io.Release()

	j := &journal{}
	g := newGate()
	engine := searchFunc{j: j, fn: func(ctx context.Context, q string) (domain.ResultSet, error) {
		if q == "gouda" {
			return domain.ResultSet{Query: q, Items: []string{"Gouda"}}, nil
		}
		return g.search(ctx, q)
	}}
	bus := eventbus.NewSync()
	p := &fakePresenter{j: j}
	f := newFinder(t, engine, p, ui, io, WithVariant(VariantButton), WithCancelInFlight(false))
	require.NoError(t, f.Start(BusSources(bus, 2, time.Second, ui)))
	defer f.Stop()

	press(bus, "brie")
	g.waitStarted(t)
	press(bus, "gouda")
	require.NoError(t, ui.Await(context.Background()))
	close(g.release)

	require.Eventually(t, func() bool {
		return j.count("search gouda") == 1 && len(p.shownQueries()) == 1
	}, 2*time.Second, 5*time.Millisecond)
	require.NoError(t, ui.Await(context.Background()))

	assert.Equal(t, []string{"gouda"}, p.shownQueries())
	assert.Empty(t, g.cancelled)
}

func TestStopAbandonsRunningSearch(t *testing.T) {
	ui := rx.NewLoop("ui", rx.WithLogger(zap.NewNop()))
	io, err := rx.NewPool("io", 1, rx.WithLogger(zap.NewNop()))
	require.NoError(t, err)
	defer io.Release()

	j := &journal{}
	g := newGate()
	bus := eventbus.NewSync()
	f := newFinder(t, searchFunc{j: j, fn: g.search}, &fakePresenter{j: j}, ui, io, WithVariant(VariantButton))
	require.NoError(t, f.Start(BusSources(bus, 2, time.Second, ui)))

	press(bus, "brie")
	assert.Equal(t, "brie", g.waitStarted(t))

	// The UI context is gone, as after the program exits
	ui.Close()
	f.Stop()

	select {
	case q := <-g.cancelled:
		assert.Equal(t, "brie", q)
	case <-time.After(2 * time.Second):
		t.Fatal("running search outlived Stop")
	}
	assert.Equal(t, Idle, f.State())
}

func TestStartTwice(t *testing.T) {
	j := &journal{}
	f := newFinder(t, catalogueSearch(t, j), &fakePresenter{j: j}, rx.Immediate(), rx.Immediate())
	require.NoError(t, f.Start(Sources{}))
	assert.ErrorIs(t, f.Start(Sources{}), ErrAlreadyStarted)
}

func TestNewFinderValidation(t *testing.T) {
	j := &journal{}
	engine := catalogueSearch(t, j)
	p := &fakePresenter{j: j}

	_, err := NewFinder(nil, p, rx.Immediate(), rx.Immediate())
	assert.ErrorIs(t, err, ErrEngineRequired)

	_, err = NewFinder(engine, nil, rx.Immediate(), rx.Immediate())
	assert.ErrorIs(t, err, ErrPresenterRequired)

	_, err = NewFinder(engine, p, nil, rx.Immediate())
	assert.ErrorIs(t, err, ErrSchedulerRequired)

	_, err = NewFinder(engine, p, rx.Immediate(), rx.Immediate(), WithVariant("psychic"))
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestParseVariant(t *testing.T) {
	for _, v := range Variants {
		got, err := ParseVariant(v.String())
		require.NoError(t, err)
		assert.Equal(t, v, got)
	}

	got, err := ParseVariant("")
	require.NoError(t, err)
	assert.Equal(t, VariantMerged, got)

	_, err = ParseVariant("Merged")
	assert.ErrorIs(t, err, ErrUnknownVariant)
}

func TestMinLengthCountsCharacters(t *testing.T) {
	atLeastTwo := MinLength(2)
	assert.False(t, atLeastTwo(""))
	assert.False(t, atLeastTwo("b"))
	assert.False(t, atLeastTwo("é"))
	assert.True(t, atLeastTwo("br"))
	assert.True(t, atLeastTwo("né"))
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", Idle.String())
	assert.Equal(t, "searching", Searching.String())
	assert.Equal(t, "failed", Failed.String())
	assert.Equal(t, "State(9)", State(9).String())
}
