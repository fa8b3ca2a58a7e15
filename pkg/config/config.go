package config

import "time"

// Config is the root configuration structure for Comet.
// It contains all configuration sections for the cache lifecycle,
// cost accounting, usage sessions, and telemetry.
type Config struct {
	// Cache contains configuration for the cache store and the TTL
	// lifecycle coordinator.
	Cache CacheConfig `yaml:"cache"`

	// Costs contains pricing tables and cost calculation settings.
	Costs CostsConfig `yaml:"costs"`

	// Sessions contains configuration for usage session tracking and
	// idle-session cleanup.
	Sessions SessionsConfig `yaml:"sessions"`

	// Telemetry contains configuration for logging and metrics.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// CacheConfig contains configuration for the cache store and the
// lifecycle coordinator.
type CacheConfig struct {
	// Timeout is the TTL window during which the remote prompt cache is
	// assumed warm. Every add resets the deadline to now + Timeout.
	// Default: 5m
	Timeout time.Duration `yaml:"timeout"`

	// MaxFiles is the maximum number of files the store holds. When an
	// add would exceed it, the oldest entries are evicted first.
	// Default: 20
	MaxFiles int `yaml:"max_files"`

	// AutoClear controls whether the store is cleared when the TTL
	// window expires.
	// Default: true
	AutoClear bool `yaml:"auto_clear"`

	// WarnLead is how long before the deadline the warning notification
	// fires. Clamped to immediate when Timeout < WarnLead.
	// Default: 1m
	WarnLead time.Duration `yaml:"warn_lead"`

	// DriftThreshold is the maximum tolerated divergence between
	// wall-clock elapsed and monotonic elapsed time before the deadline
	// is recomputed from the monotonic clock.
	// Default: 5s
	DriftThreshold time.Duration `yaml:"drift_threshold"`

	// TickInterval is how often the coordinator evaluates remaining time
	// while RUNNING.
	// Default: 1s
	TickInterval time.Duration `yaml:"tick_interval"`

	// StateBackend selects the durable state backend ("memory" or
	// "sqlite"). The memory backend does not survive process death.
	// Default: "sqlite"
	StateBackend string `yaml:"state_backend"`

	// SQLitePath is the path to the lifecycle state database when the
	// sqlite backend is selected.
	// Default: "data/comet-state.db"
	SQLitePath string `yaml:"sqlite_path"`
}

// CostsConfig contains pricing tables and cost calculation settings.
type CostsConfig struct {
	// Pricing maps model identifiers to per-model pricing. Lookup tries
	// exact match, then model prefix match, then the "default" entry.
	// All prices are USD per 1M tokens.
	Pricing map[string]ModelPricingConfig `yaml:"pricing"`

	// PricingFile is an optional standalone pricing YAML file. When set,
	// it overrides Pricing and is watched for changes (hot-reload).
	PricingFile string `yaml:"pricing_file"`

	// DisplayCurrency is the currency code shown to the user.
	// Default: "USD"
	DisplayCurrency string `yaml:"display_currency"`

	// DisplayCurrencyRate converts USD totals into the display currency.
	// Must be positive.
	// Default: 1.0
	DisplayCurrencyRate float64 `yaml:"display_currency_rate"`
}

// ModelPricingConfig contains pricing for a single model.
// All prices are USD per 1M tokens.
type ModelPricingConfig struct {
	// Input is the base price for uncached input tokens.
	Input float64 `yaml:"input"`

	// Output is the base price for output tokens.
	Output float64 `yaml:"output"`

	// LongContextInput is the input price once the request exceeds
	// LongContextThreshold tokens. Zero means same as Input.
	LongContextInput float64 `yaml:"long_context_input"`

	// LongContextOutput is the output price in the long-context bracket.
	// Zero means same as Output.
	LongContextOutput float64 `yaml:"long_context_output"`

	// CacheWrite is the price for tokens written into the remote prompt
	// cache. Zero means 1.25x Input (the provider's empirical premium).
	CacheWrite float64 `yaml:"cache_write"`

	// CacheRead is the price for tokens read back from the remote prompt
	// cache. Zero means 0.10x Input (the provider's empirical discount).
	CacheRead float64 `yaml:"cache_read"`

	// LongContextThreshold is the input token count at which the
	// long-context bracket applies.
	// Default: 200000
	LongContextThreshold int `yaml:"long_context_threshold"`

	// MinCacheableTokens is the provider's minimum prompt size eligible
	// for caching.
	// Default: 1024
	MinCacheableTokens int `yaml:"min_cacheable_tokens"`
}

// SessionsConfig contains configuration for usage session tracking.
type SessionsConfig struct {
	// IdleTimeout is how long a session may go without messages before
	// the cleanup sweep reclaims it.
	// Default: 30m
	IdleTimeout time.Duration `yaml:"idle_timeout"`

	// SweepSchedule is the cron expression for the idle-session sweep.
	// Default: "@every 5m"
	SweepSchedule string `yaml:"sweep_schedule"`

	// HistoryPath is the path to the sqlite usage ledger. Empty disables
	// the ledger.
	// Default: "data/comet-usage.db"
	HistoryPath string `yaml:"history_path"`
}

// TelemetryConfig contains configuration for observability.
type TelemetryConfig struct {
	// Logging contains structured logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains Prometheus metrics configuration.
	Metrics MetricsConfig `yaml:"metrics"`
}

// LoggingConfig contains structured logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level ("debug", "info", "warn", "error").
	// Default: "info"
	Level string `yaml:"level"`

	// Format is the output format ("json" or "text").
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file:line in log output.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains Prometheus metrics configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics are collected.
	// Default: true
	Enabled bool `yaml:"enabled"`

	// Namespace is the metrics namespace prefix.
	// Default: "comet"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metrics subsystem prefix.
	Subsystem string `yaml:"subsystem"`
}
