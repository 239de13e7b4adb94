package scan

import "errors"

// ErrInvalidWindow is returned when the scan window is not positive.
var ErrInvalidWindow = errors.New("scan window must be positive")
