package domain

import "github.com/google/uuid"

// NewID returns a fresh random identifier suitable for any entity in this
// package. Kept as a single indirection so callers never depend directly on
// the uuid package.
func NewID() string {
	return uuid.NewString()
}
