package dispatch

import "errors"

// Sentinel errors for the dispatch package.
var (
	// ErrEmptyAction is returned when a handler is registered under an empty name.
	ErrEmptyAction = errors.New("action name must not be empty")

	// ErrNilHandler is returned when a nil handler is registered.
	ErrNilHandler = errors.New("handler must not be nil")
)
