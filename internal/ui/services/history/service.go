// Package history remembers the searches of a session so the query box
// can recall them.
package history

import (
	"strings"
	"sync"

	"go.uber.org/zap"

	"cheesefinder/internal/eventbus"
)

// DefaultLimit is how many searches are kept when no limit is given
const DefaultLimit = 10

// Service records finished searches from the bus
type Service struct {
	mu     sync.Mutex
	state  *State
	limit  int
	logger *zap.Logger

	unsubscribe []func()
}

// NewService creates a history fed by SearchCompleted and SearchFailed
// events. A limit below one means DefaultLimit.
func NewService(bus eventbus.EventBus, limit int) *Service {
	if limit < 1 {
		limit = DefaultLimit
	}
	s := &Service{
		state:  &State{Cursor: -1},
		limit:  limit,
		logger: zap.L().Named("history"),
	}
	if bus == nil {
		return s
	}

	s.unsubscribe = append(s.unsubscribe,
		bus.Subscribe(eventbus.EventSearchCompleted, func(e eventbus.DomainEvent) {
			if event, ok := e.(eventbus.SearchCompletedEvent); ok {
				s.Record(Entry{Query: event.Query, Count: event.Count, Took: event.Took})
			}
		}),
		bus.Subscribe(eventbus.EventSearchFailed, func(e eventbus.DomainEvent) {
			if event, ok := e.(eventbus.SearchFailedEvent); ok {
				s.Record(Entry{Query: event.Query, Failed: true})
			}
		}),
	)
	return s
}

// Record adds a search as the newest entry. A query already present moves
// to the front. Blank queries are not kept. Recording ends a recall,
// except when it records the recalled query itself: that entry is updated
// in place so the recall can keep stepping back.
func (s *Service) Record(e Entry) {
	if strings.TrimSpace(e.Query) == "" {
		return
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if c := s.state.Cursor; c >= 0 && c < len(s.state.Entries) && s.state.Entries[c].Query == e.Query {
		s.state.Entries[c] = e
		s.logger.Debug("recalled search recorded", zap.String("query", e.Query))
		return
	}

	entries := make([]Entry, 0, len(s.state.Entries)+1)
	entries = append(entries, e)
	for _, old := range s.state.Entries {
		if old.Query != e.Query {
			entries = append(entries, old)
		}
	}
	if len(entries) > s.limit {
		entries = entries[:s.limit]
	}
	s.state.Entries = entries
	s.state.Cursor = -1

	s.logger.Debug("search recorded", zap.String("query", e.Query), zap.Int("entries", len(entries)))
}

// Recent returns the recorded searches, newest first
func (s *Service) Recent() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Entry(nil), s.state.Entries...)
}

// Previous recalls the next older query, wrapping around to the newest.
// It reports false when nothing is recorded.
func (s *Service) Previous() (string, bool) {
	return s.move(1)
}

// Next recalls the next newer query, wrapping around to the oldest.
func (s *Service) Next() (string, bool) {
	return s.move(-1)
}

func (s *Service) move(delta int) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	n := len(s.state.Entries)
	if n == 0 {
		return "", false
	}
	if s.state.Cursor < 0 {
		if delta > 0 {
			s.state.Cursor = 0
		} else {
			s.state.Cursor = n - 1
		}
	} else {
		s.state.Cursor = (s.state.Cursor + delta + n) % n
	}
	return s.state.Entries[s.state.Cursor].Query, true
}

// Reset ends a recall, so the next Previous starts from the newest query
func (s *Service) Reset() {
	s.mu.Lock()
	s.state.Cursor = -1
	s.mu.Unlock()
}

// Close stops listening to the bus
func (s *Service) Close() {
	for _, unsubscribe := range s.unsubscribe {
		unsubscribe()
	}
	s.unsubscribe = nil
}
