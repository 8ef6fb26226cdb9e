package domain

import "time"

// EventType represents the type of domain event
type EventType string

// Event types
const (
	EventQueryChanged        EventType = "QueryChanged"
	EventSearchButtonPressed EventType = "SearchButtonPressed"
	EventSearchStarted       EventType = "SearchStarted"
	EventSearchCompleted     EventType = "SearchCompleted"
	EventSearchFailed        EventType = "SearchFailed"
	EventConfigLoaded        EventType = "ConfigLoaded"
	EventConfigSaved         EventType = "ConfigSaved"
)

// DomainEvent is the interface for all domain events
type DomainEvent interface {
	Type() EventType
}

// QueryChangedEvent is emitted on every edit of the query box
type QueryChangedEvent struct {
	Text string
}

func (e QueryChangedEvent) Type() EventType { return EventQueryChanged }

// SearchButtonPressedEvent is emitted when the user asks for a search.
// Text is the query box content at the moment of the press.
type SearchButtonPressedEvent struct {
	Text string
}

func (e SearchButtonPressedEvent) Type() EventType { return EventSearchButtonPressed }

// SearchStartedEvent is emitted when a query is handed to the search engine
type SearchStartedEvent struct {
	Query string
}

func (e SearchStartedEvent) Type() EventType { return EventSearchStarted }

// SearchCompletedEvent is emitted when results for a query were rendered
type SearchCompletedEvent struct {
	Query string
	Count int
	Took  time.Duration
}

func (e SearchCompletedEvent) Type() EventType { return EventSearchCompleted }

// SearchFailedEvent is emitted when the search pipeline terminated with an error
type SearchFailedEvent struct {
	Query string
	Err   error
}

func (e SearchFailedEvent) Type() EventType { return EventSearchFailed }

// ConfigLoadedEvent is emitted when configuration is loaded
type ConfigLoadedEvent struct {
	Path string
}

func (e ConfigLoadedEvent) Type() EventType { return EventConfigLoaded }

// ConfigSavedEvent is emitted when configuration is saved
type ConfigSavedEvent struct {
	Path string
}

func (e ConfigSavedEvent) Type() EventType { return EventConfigSaved }
