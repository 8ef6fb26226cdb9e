package finder

import "errors"

var (
	// ErrEngineRequired is returned when no search engine is provided.
	ErrEngineRequired = errors.New("search engine required")

	// ErrPresenterRequired is returned when no presenter is provided.
	ErrPresenterRequired = errors.New("presenter required")

	// ErrSchedulerRequired is returned when the UI or background scheduler is missing.
	ErrSchedulerRequired = errors.New("ui and background schedulers required")

	// ErrUnknownVariant is returned for a wiring variant that does not exist.
	ErrUnknownVariant = errors.New("unknown variant")

	// ErrAlreadyStarted is returned by Start on a running Finder.
	ErrAlreadyStarted = errors.New("finder already started")

	// ErrSearchFailed wraps every error returned by the search engine.
	ErrSearchFailed = errors.New("search failed")
)
