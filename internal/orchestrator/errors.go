package orchestrator

import "errors"

// Sentinel errors for the orchestrator package.
var (
	// ErrNilConfig is returned when an orchestrator is built without a config.
	ErrNilConfig = errors.New("monitoring config must not be nil")

	// ErrInvalidInterval is returned for a non-positive loop interval.
	ErrInvalidInterval = errors.New("interval must be positive")
)
