package session

import (
	"errors"
	"fmt"
)

// Common session errors that can be checked with errors.Is().
var (
	// ErrTierMismatch is returned when merging sessions priced under
	// different tiers.
	ErrTierMismatch = errors.New("pricing tier mismatch")

	// ErrSessionEnded is returned when a message is added to an ended
	// session.
	ErrSessionEnded = errors.New("session already ended")

	// ErrSessionNotFound is returned when a session id is not in the
	// manager's table.
	ErrSessionNotFound = errors.New("session not found")
)

// TierMismatchError is returned by Merge when the two sessions were priced
// under different tiers. Neither session is mutated.
type TierMismatchError struct {
	// Model is the receiving session's tier model.
	Model string

	// OtherModel is the other session's tier model.
	OtherModel string
}

// Error implements the error interface.
func (e *TierMismatchError) Error() string {
	return fmt.Sprintf("cannot merge sessions with different pricing tiers (%q vs %q)",
		e.Model, e.OtherModel)
}

// Is implements error matching for errors.Is().
func (e *TierMismatchError) Is(target error) bool {
	return target == ErrTierMismatch
}
