package store

import "errors"

var (
	// ErrNotFound is returned when a referenced facility or record does not
	// exist, or when no open record exists for a facility on exit.
	ErrNotFound = errors.New("not found")

	// ErrConflict is returned when a facility claim loses the race: the row
	// exists but its state is already occupied.
	ErrConflict = errors.New("facility already occupied")

	// ErrOpenRecordConflict is an internal consistency fault: more than one
	// open usage record exists for a single facility. It must be reported,
	// never silently resolved.
	ErrOpenRecordConflict = errors.New("multiple open usage records for facility")
)
