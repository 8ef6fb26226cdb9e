package cheese

import "errors"

var (
	// ErrUnknownMatcher is returned when a matcher name is not recognised.
	ErrUnknownMatcher = errors.New("unknown matcher")

	// ErrNoNames is returned when the engine would search an empty catalogue.
	ErrNoNames = errors.New("cheese catalogue is empty")
)
