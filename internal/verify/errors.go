package verify

import "errors"

// Sentinel errors for the verify package.
var (
	// ErrEmptyCriterionName is returned when a criterion has no name.
	ErrEmptyCriterionName = errors.New("criterion name must not be empty")

	// ErrNilCriterion is returned when a nil criterion is registered.
	ErrNilCriterion = errors.New("criterion must not be nil")
)
