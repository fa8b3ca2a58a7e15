package statestore

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// Persisted keys. Values are stored as a flat key-value map so backends
// stay trivially portable (sqlite table, mobile key-value store, etc.).
const (
	KeyState           = "cache.state"
	KeyEndTimestamp    = "cache.endTimestamp"    // epoch ms
	KeyTimeoutMs       = "cache.timeoutMs"       // int64 ms
	KeyPausedElapsedMs = "cache.pausedElapsedMs" // int64 ms, optional
)

// Snapshot is the durable representation of the lifecycle coordinator's
// state: everything needed to reconstruct the TTL window after process
// death. Monotonic clock marks are deliberately absent; they are
// meaningless across restarts.
type Snapshot struct {
	// State is the persisted lifecycle state name
	// ("STOPPED", "RUNNING", "PAUSED", "EXPIRED").
	State string

	// Deadline is the absolute wall-clock instant the TTL window ends.
	// Only meaningful for RUNNING.
	Deadline time.Time

	// Timeout is the configured TTL window at the time of the snapshot.
	Timeout time.Duration

	// PausedElapsed is how much of the window had elapsed when the
	// coordinator was paused. Only meaningful for PAUSED.
	PausedElapsed time.Duration
}

// Backend persists lifecycle snapshots. Implementations must be
// thread-safe. There is exactly one snapshot per process; Save overwrites.
type Backend interface {
	// Save persists the snapshot, replacing any previous one.
	Save(ctx context.Context, snap *Snapshot) error

	// Load retrieves the persisted snapshot.
	// Returns (nil, nil) when no snapshot exists.
	Load(ctx context.Context) (*Snapshot, error)

	// Clear removes the persisted snapshot. No-op when none exists.
	Clear(ctx context.Context) error

	// Close releases any resources held by the backend.
	Close() error
}

// ErrPersistence is the sentinel for durable read/write failures. Callers
// absorb these and fall back to STOPPED rather than guessing a deadline.
var ErrPersistence = errors.New("state persistence failure")

// PersistenceError wraps a backend failure with the operation that failed.
type PersistenceError struct {
	// Op is the failing operation ("save", "load", "clear").
	Op string

	// Cause is the underlying backend error.
	Cause error
}

// Error implements the error interface.
func (e *PersistenceError) Error() string {
	return fmt.Sprintf("state %s failed: %v", e.Op, e.Cause)
}

// Is implements error matching for errors.Is().
func (e *PersistenceError) Is(target error) bool {
	return target == ErrPersistence
}

// Unwrap returns the wrapped error for error chain traversal.
func (e *PersistenceError) Unwrap() error {
	return e.Cause
}
