package finder

import (
	"time"
	"unicode/utf8"

	"cheesefinder/internal/eventbus"
	"cheesefinder/internal/rx"
)

// Sources are the query streams a Finder can consume.
type Sources struct {
	// Clicks emits the query text every time the search button is pressed.
	Clicks rx.Observable[string]
	// Text emits the query text after typing settles.
	Text rx.Observable[string]
}

// BusSources builds both sources on top of the UI event bus.
func BusSources(bus eventbus.EventBus, minLen int, window time.Duration, s rx.Scheduler) Sources {
	return Sources{
		Clicks: ButtonClicks(bus),
		Text:   TextChanges(bus, minLen, window, s),
	}
}

// ButtonClicks emits the text carried by every SearchButtonPressedEvent.
// The bus handler is removed when the subscription ends.
func ButtonClicks(bus eventbus.EventBus) rx.Observable[string] {
	return rx.FromEvent(func(emit func(string)) rx.CancelFunc {
		return bus.Subscribe(eventbus.EventSearchButtonPressed, func(e eventbus.DomainEvent) {
			if ev, ok := e.(eventbus.SearchButtonPressedEvent); ok {
				emit(ev.Text)
			}
		})
	})
}

// QueryChanges emits the text of every QueryChangedEvent, unfiltered.
func QueryChanges(bus eventbus.EventBus) rx.Observable[string] {
	return rx.FromEvent(func(emit func(string)) rx.CancelFunc {
		return bus.Subscribe(eventbus.EventQueryChanged, func(e eventbus.DomainEvent) {
			if ev, ok := e.(eventbus.QueryChangedEvent); ok {
				emit(ev.Text)
			}
		})
	})
}

// TextChanges drops queries shorter than minLen, then waits for window of
// silence before emitting the latest one. Timers run on s.
func TextChanges(bus eventbus.EventBus, minLen int, window time.Duration, s rx.Scheduler) rx.Observable[string] {
	return QueryChanges(bus).
		Filter(MinLength(minLen)).
		Debounce(window, s)
}

// MinLength keeps strings of at least n characters.
func MinLength(n int) func(string) bool {
	return func(s string) bool {
		return utf8.RuneCountInString(s) >= n
	}
}
