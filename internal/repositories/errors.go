package repositories

import "github.com/pkg/errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrVersionMismatch is returned when a conditional update finds a
	// version other than the one it expected. Callers treat it as "someone
	// else got there first", not as a hard failure.
	ErrVersionMismatch = errors.New("shipment version mismatch")
)
