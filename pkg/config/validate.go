package config

import (
	"errors"
	"fmt"
)

// Validation errors that can be checked with errors.Is().
var (
	// ErrInvalidConfig indicates the configuration failed validation.
	ErrInvalidConfig = errors.New("invalid configuration")
)

// ValidationError describes a single invalid configuration field.
type ValidationError struct {
	// Field is the dotted path of the invalid field.
	Field string

	// Value is the invalid value.
	Value interface{}

	// Message describes why the value is invalid.
	Message string
}

// Error implements the error interface.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid value %v for %s: %s", e.Value, e.Field, e.Message)
}

// Is implements error matching for errors.Is().
func (e *ValidationError) Is(target error) bool {
	return target == ErrInvalidConfig
}

// Validate checks the configuration for invalid values.
// It returns the first validation error encountered, or nil.
func Validate(cfg *Config) error {
	if cfg.Cache.Timeout <= 0 {
		return &ValidationError{
			Field:   "cache.timeout",
			Value:   cfg.Cache.Timeout,
			Message: "must be positive",
		}
	}
	if cfg.Cache.MaxFiles <= 0 {
		return &ValidationError{
			Field:   "cache.max_files",
			Value:   cfg.Cache.MaxFiles,
			Message: "must be positive",
		}
	}
	if cfg.Cache.WarnLead < 0 {
		return &ValidationError{
			Field:   "cache.warn_lead",
			Value:   cfg.Cache.WarnLead,
			Message: "must not be negative",
		}
	}
	if cfg.Cache.DriftThreshold <= 0 {
		return &ValidationError{
			Field:   "cache.drift_threshold",
			Value:   cfg.Cache.DriftThreshold,
			Message: "must be positive",
		}
	}
	if cfg.Cache.TickInterval <= 0 {
		return &ValidationError{
			Field:   "cache.tick_interval",
			Value:   cfg.Cache.TickInterval,
			Message: "must be positive",
		}
	}
	switch cfg.Cache.StateBackend {
	case "memory", "sqlite":
	default:
		return &ValidationError{
			Field:   "cache.state_backend",
			Value:   cfg.Cache.StateBackend,
			Message: `must be "memory" or "sqlite"`,
		}
	}
	if cfg.Cache.StateBackend == "sqlite" && cfg.Cache.SQLitePath == "" {
		return &ValidationError{
			Field:   "cache.sqlite_path",
			Value:   cfg.Cache.SQLitePath,
			Message: "required when state_backend is sqlite",
		}
	}

	if cfg.Costs.DisplayCurrencyRate <= 0 {
		return &ValidationError{
			Field:   "costs.display_currency_rate",
			Value:   cfg.Costs.DisplayCurrencyRate,
			Message: "must be positive",
		}
	}
	for model, pricing := range cfg.Costs.Pricing {
		if err := validatePricing(model, pricing); err != nil {
			return err
		}
	}

	if cfg.Sessions.IdleTimeout <= 0 {
		return &ValidationError{
			Field:   "sessions.idle_timeout",
			Value:   cfg.Sessions.IdleTimeout,
			Message: "must be positive",
		}
	}

	switch cfg.Telemetry.Logging.Level {
	case "debug", "info", "warn", "error":
	default:
		return &ValidationError{
			Field:   "telemetry.logging.level",
			Value:   cfg.Telemetry.Logging.Level,
			Message: `must be one of "debug", "info", "warn", "error"`,
		}
	}
	switch cfg.Telemetry.Logging.Format {
	case "json", "text":
	default:
		return &ValidationError{
			Field:   "telemetry.logging.format",
			Value:   cfg.Telemetry.Logging.Format,
			Message: `must be "json" or "text"`,
		}
	}

	return nil
}

// validatePricing checks a single model pricing entry.
func validatePricing(model string, p ModelPricingConfig) error {
	if p.Input < 0 || p.Output < 0 || p.CacheWrite < 0 || p.CacheRead < 0 ||
		p.LongContextInput < 0 || p.LongContextOutput < 0 {
		return &ValidationError{
			Field:   fmt.Sprintf("costs.pricing.%s", model),
			Value:   p,
			Message: "prices must not be negative",
		}
	}
	if p.LongContextThreshold < 0 {
		return &ValidationError{
			Field:   fmt.Sprintf("costs.pricing.%s.long_context_threshold", model),
			Value:   p.LongContextThreshold,
			Message: "must not be negative",
		}
	}
	return nil
}
