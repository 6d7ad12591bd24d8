package storage

import "errors"

// ErrUnavailable marks failures of the underlying persistence (network, timeouts).
// Callers may retry; it is never returned for missing records.
var ErrUnavailable = errors.New("storage: unavailable")
