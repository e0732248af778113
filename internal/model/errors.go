package model

import "errors"

var (
	// ErrInvalidConfig marks parameters rejected at construction time.
	ErrInvalidConfig = errors.New("invalid configuration")
	// ErrInvariantViolation marks a broken engine invariant. It is never
	// expected from correct code and is never corrected silently.
	ErrInvariantViolation = errors.New("invariant violation")
)
