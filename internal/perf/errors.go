package perf

import "errors"

// Sentinel errors for the perf package.
var (
	// ErrUnknownAgent is returned when an update names an unregistered agent.
	ErrUnknownAgent = errors.New("agent not registered")

	// ErrInsufficientData is returned when trend analysis is attempted on a
	// history shorter than two records.
	ErrInsufficientData = errors.New("trend analysis requires at least two records")

	// ErrEmptyAgentName is returned when an agent is registered without a name.
	ErrEmptyAgentName = errors.New("agent name must not be empty")
)
