package persistence

import "errors"

var (
	// ErrNotFound is returned when the requested key does not exist.
	ErrNotFound = errors.New("persistence: not found")
	// ErrBackendUnavailable is returned by backends that cannot currently serve requests.
	ErrBackendUnavailable = errors.New("persistence: backend unavailable")
)
