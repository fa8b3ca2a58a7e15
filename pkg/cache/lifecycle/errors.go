package lifecycle

import (
	"errors"
	"fmt"
)

// Common lifecycle errors that can be checked with errors.Is().
var (
	// ErrInvalidTransition is returned when an operation is not valid in
	// the coordinator's current state (e.g., Resume while RUNNING).
	ErrInvalidTransition = errors.New("invalid lifecycle transition")

	// ErrScheduler is the sentinel for backstop scheduler failures. These
	// are logged and absorbed: the coordinator's own tick remains
	// authoritative while the process is foregrounded.
	ErrScheduler = errors.New("background scheduler failure")
)

// InvalidTransitionError reports an operation attempted in a state that
// does not permit it.
type InvalidTransitionError struct {
	// Op is the attempted operation.
	Op string

	// From is the state the coordinator was in.
	From State
}

// Error implements the error interface.
func (e *InvalidTransitionError) Error() string {
	return fmt.Sprintf("cannot %s while %s", e.Op, e.From)
}

// Is implements error matching for errors.Is().
func (e *InvalidTransitionError) Is(target error) bool {
	return target == ErrInvalidTransition
}

// SchedulerError wraps a backstop scheduler failure.
type SchedulerError struct {
	// Kind is the task kind being scheduled or cancelled.
	Kind TaskKind

	// Cause is the underlying scheduler error.
	Cause error
}

// Error implements the error interface.
func (e *SchedulerError) Error() string {
	return fmt.Sprintf("scheduler failure for %s task: %v", e.Kind, e.Cause)
}

// Is implements error matching for errors.Is().
func (e *SchedulerError) Is(target error) bool {
	return target == ErrScheduler
}

// Unwrap returns the wrapped error for error chain traversal.
func (e *SchedulerError) Unwrap() error {
	return e.Cause
}
