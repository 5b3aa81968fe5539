package storage

import "errors"

// Storage errors.
var (
	// ErrNotFound indicates that the requested record does not exist.
	ErrNotFound = errors.New("storage: not found")
)
