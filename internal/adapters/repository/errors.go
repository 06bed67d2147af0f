package repository

import "errors"

// Sentinel kinds for repository errors.
var (
	ErrNotFound = errors.New("record not found")
	// ErrConflict is returned when the (player, game) uniqueness constraint rejects an insert.
	ErrConflict = errors.New("attempt already exists")
	// ErrUnavailable wraps backend connectivity or driver failures.
	ErrUnavailable = errors.New("datastore unavailable")
)
