package improve

import "errors"

// Sentinel errors for the improve package.
var (
	// ErrNilStrategy is returned when a nil strategy is registered.
	ErrNilStrategy = errors.New("strategy must not be nil")

	// ErrEmptyTarget is returned when a proposal names no target capability.
	ErrEmptyTarget = errors.New("proposal target must not be empty")
)
