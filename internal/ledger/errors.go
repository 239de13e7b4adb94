package ledger

import "errors"

// Sentinel errors for the ledger package. Using sentinels instead of ad-hoc
// fmt.Errorf allows callers to match with errors.Is for reliable error handling.
var (
	// ErrInvalidEntry is returned when an activity entry has no kind.
	ErrInvalidEntry = errors.New("activity entry must have a kind")

	// ErrInvalidWindow is returned when a time window is zero or negative.
	ErrInvalidWindow = errors.New("time window must be positive")

	// ErrInvalidThreshold is returned when an idle threshold is outside [0,1].
	ErrInvalidThreshold = errors.New("idle threshold must be between 0.0 and 1.0")
)
