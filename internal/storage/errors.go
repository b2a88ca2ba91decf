package storage

import "errors"

// Storage errors for write-once stores.
var (
	// ErrNotFound is returned when a requested series does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicateKey is returned when inserting a key that already
	// exists. Persisted series are write-once; re-runs must skip, not
	// rewrite.
	ErrDuplicateKey = errors.New("duplicate key: series are write-once")

	// ErrInvalidInput is returned when input validation fails.
	ErrInvalidInput = errors.New("invalid input")
)
