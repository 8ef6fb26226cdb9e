package eventbus

import (
	"runtime/debug"
	"sync"

	"go.uber.org/zap"

	"cheesefinder/internal/domain"
)

// Re-export domain types for convenience
type DomainEvent = domain.DomainEvent
type EventType = domain.EventType

// Event type constants
const (
	EventQueryChanged        = domain.EventQueryChanged
	EventSearchButtonPressed = domain.EventSearchButtonPressed
	EventSearchStarted       = domain.EventSearchStarted
	EventSearchCompleted     = domain.EventSearchCompleted
	EventSearchFailed        = domain.EventSearchFailed
	EventConfigLoaded        = domain.EventConfigLoaded
	EventConfigSaved         = domain.EventConfigSaved
)

// Re-export domain event types
type QueryChangedEvent = domain.QueryChangedEvent
type SearchButtonPressedEvent = domain.SearchButtonPressedEvent
type SearchStartedEvent = domain.SearchStartedEvent
type SearchCompletedEvent = domain.SearchCompletedEvent
type SearchFailedEvent = domain.SearchFailedEvent
type ConfigLoadedEvent = domain.ConfigLoadedEvent
type ConfigSavedEvent = domain.ConfigSavedEvent

// EventHandler is a function that handles domain events
type EventHandler func(DomainEvent)

// EventBus is the interface for the event bus
type EventBus interface {
	Publish(event DomainEvent)
	// Subscribe registers handler for eventType and returns a function
	// that removes it again. Calling that function twice is a no-op.
	Subscribe(eventType EventType, handler EventHandler) func()
	Close()
}

const queueSize = 1000

type subscription struct {
	id      uint64
	handler EventHandler
}

// bus is the concrete implementation of EventBus
type bus struct {
	mu       sync.RWMutex
	handlers map[EventType][]subscription
	nextID   uint64
	logger   *zap.Logger

	// nil for a synchronous bus
	eventChan chan DomainEvent
	wg        sync.WaitGroup
	quit      chan struct{}
	closeOnce sync.Once
}

// Option configures a bus
type Option func(*bus)

// WithLogger sets the logger for dropped events and handler panics.
// Default is the global logger at construction time.
func WithLogger(logger *zap.Logger) Option {
	return func(b *bus) {
		b.logger = logger
	}
}

func (b *bus) apply(opts []Option) {
	for _, opt := range opts {
		opt(b)
	}
}

// New creates an asynchronous event bus. Events are delivered on a single
// dispatcher goroutine in the order they were published.
func New(opts ...Option) EventBus {
	b := &bus{
		handlers:  make(map[EventType][]subscription),
		logger:    zap.L().Named("eventbus"),
		eventChan: make(chan DomainEvent, queueSize),
		quit:      make(chan struct{}),
	}
	b.apply(opts)

	b.wg.Add(1)
	go b.dispatch()

	return b
}

// NewSync creates an event bus that calls handlers on the publishing
// goroutine before Publish returns.
func NewSync(opts ...Option) EventBus {
	b := &bus{
		handlers: make(map[EventType][]subscription),
		logger:   zap.L().Named("eventbus"),
		quit:     make(chan struct{}),
	}
	b.apply(opts)
	return b
}

// Publish publishes an event to all subscribers
func (b *bus) Publish(event DomainEvent) {
	select {
	case <-b.quit:
		b.logger.Debug("bus closed, dropping event", zap.String("event", string(event.Type())))
		return
	default:
	}

	// Keystrokes are too frequent to log
	if event.Type() != EventQueryChanged {
		b.logger.Debug("publishing event", zap.String("event", string(event.Type())))
	}

	if b.eventChan == nil {
		b.deliver(event)
		return
	}

	select {
	case b.eventChan <- event:
	default:
		b.logger.Warn("event bus channel full, dropping event", zap.String("event", string(event.Type())))
	}
}

// Subscribe subscribes to events of a specific type
func (b *bus) Subscribe(eventType EventType, handler EventHandler) func() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.nextID++
	id := b.nextID
	b.handlers[eventType] = append(b.handlers[eventType], subscription{id: id, handler: handler})

	var once sync.Once
	return func() {
		once.Do(func() {
			b.mu.Lock()
			defer b.mu.Unlock()

			subs := b.handlers[eventType]
			for i, s := range subs {
				if s.id == id {
					b.handlers[eventType] = append(subs[:i:i], subs[i+1:]...)
					break
				}
			}
		})
	}
}

// Close stops the dispatcher. Queued events are discarded and later
// publishes are dropped.
func (b *bus) Close() {
	b.closeOnce.Do(func() {
		close(b.quit)
		b.wg.Wait()
	})
}

// dispatch handles event distribution to subscribers
func (b *bus) dispatch() {
	defer b.wg.Done()

	for {
		select {
		case event := <-b.eventChan:
			b.deliver(event)

		case <-b.quit:
			for {
				select {
				case <-b.eventChan:
				default:
					return
				}
			}
		}
	}
}

func (b *bus) deliver(event DomainEvent) {
	// Copy so handlers may (un)subscribe without deadlocking
	b.mu.RLock()
	subs := make([]subscription, len(b.handlers[event.Type()]))
	copy(subs, b.handlers[event.Type()])
	b.mu.RUnlock()

	for _, s := range subs {
		b.call(s.handler, event)
	}
}

func (b *bus) call(h EventHandler, event DomainEvent) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("event handler panic",
				zap.String("event", string(event.Type())),
				zap.Any("panic", r),
				zap.ByteString("stack", debug.Stack()))
		}
	}()
	h(event)
}
