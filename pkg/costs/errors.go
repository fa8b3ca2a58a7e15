package costs

import (
	"errors"
	"fmt"
)

// Common cost calculation errors that can be checked with errors.Is().
var (
	// ErrInvalidUsage is returned for negative token counts or a
	// non-positive currency rate.
	ErrInvalidUsage = errors.New("invalid usage values")

	// ErrNoPricing is returned when no tier can be resolved for a model.
	ErrNoPricing = errors.New("no pricing found for model")
)

// ValidationError describes an invalid input to a cost calculation.
type ValidationError struct {
	// Field names the offending input.
	Field string

	// Value is the offending value.
	Value interface{}

	// Message describes why the value is invalid.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s (%v): %s", e.Field, e.Value, e.Message)
}

// Is implements error matching for errors.Is().
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidUsage
}

// NoPricingError is returned when a model has no tier and no default tier
// is configured.
type NoPricingError struct {
	// Model is the model identifier that could not be resolved.
	Model string
}

// Error implements the error interface.
func (e *NoPricingError) Error() string {
	return fmt.Sprintf("no pricing found for model %q", e.Model)
}

// Is implements error matching for errors.Is().
func (e *NoPricingError) Is(target error) bool {
	return target == ErrNoPricing
}
