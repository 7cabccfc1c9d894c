package truth

import "errors"

var (
	// ErrNotFound is returned when a referenced entity or question id
	// does not exist in the knowledge base.
	ErrNotFound = errors.New("not found")

	// ErrInvariantViolation is returned when a mutation would break tree
	// connectivity or create a dangling reference. The mutation is
	// rejected before any state changes.
	ErrInvariantViolation = errors.New("invariant violation")
)
