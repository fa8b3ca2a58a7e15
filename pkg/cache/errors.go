package cache

import (
	"errors"
	"fmt"
)

// Common cache store errors that can be checked with errors.Is().
var (
	// ErrCapacityExceeded is returned when an add cannot fit even after
	// evicting every existing entry.
	ErrCapacityExceeded = errors.New("cache capacity exceeded")

	// ErrFileNotFound is returned when an update targets a path that is
	// not in the store.
	ErrFileNotFound = errors.New("file not found in cache")
)

// CapacityError is returned when an incoming add or batch is larger than
// the store's configured maximum on its own, so no amount of eviction can
// make room.
type CapacityError struct {
	// Requested is the number of files the caller tried to add.
	Requested int

	// MaxFiles is the store's configured maximum.
	MaxFiles int
}

// Error implements the error interface.
func (e *CapacityError) Error() string {
	return fmt.Sprintf("cannot cache %d files: store maximum is %d", e.Requested, e.MaxFiles)
}

// Is implements error matching for errors.Is().
func (e *CapacityError) Is(target error) bool {
	return target == ErrCapacityExceeded
}

// NotFoundError is returned when an operation targets a path that is not
// in the store.
type NotFoundError struct {
	// Path is the missing path.
	Path string
}

// Error implements the error interface.
func (e *NotFoundError) Error() string {
	return fmt.Sprintf("file %q not found in cache", e.Path)
}

// Is implements error matching for errors.Is().
func (e *NotFoundError) Is(target error) bool {
	return target == ErrFileNotFound
}
