package config

import "time"

// Default values for configuration fields.
const (
	// Cache defaults
	DefaultCacheTimeout        = 5 * time.Minute
	DefaultCacheMaxFiles       = 20
	DefaultCacheAutoClear      = true
	DefaultCacheWarnLead       = time.Minute
	DefaultCacheDriftThreshold = 5 * time.Second
	DefaultCacheTickInterval   = time.Second
	DefaultCacheStateBackend   = "sqlite"
	DefaultCacheSQLitePath     = "data/comet-state.db"

	// Costs defaults
	DefaultDisplayCurrency     = "USD"
	DefaultDisplayCurrencyRate = 1.0

	// Pricing defaults
	DefaultLongContextThreshold = 200000
	DefaultMinCacheableTokens   = 1024

	// Cache write/read multipliers applied when a model entry leaves the
	// prices unset. These match the provider's published premium/discount.
	DefaultCacheWriteMultiplier = 1.25
	DefaultCacheReadMultiplier  = 0.10

	// Sessions defaults
	DefaultSessionIdleTimeout   = 30 * time.Minute
	DefaultSessionSweepSchedule = "@every 5m"
	DefaultSessionHistoryPath   = "data/comet-usage.db"

	// Telemetry defaults
	DefaultLogLevel         = "info"
	DefaultLogFormat        = "text"
	DefaultMetricsEnabled   = true
	DefaultMetricsNamespace = "comet"
)

// ApplyDefaults fills in default values for any unset configuration fields.
// It modifies the configuration in place.
func ApplyDefaults(cfg *Config) {
	// Cache defaults
	if cfg.Cache.Timeout == 0 {
		cfg.Cache.Timeout = DefaultCacheTimeout
	}
	if cfg.Cache.MaxFiles == 0 {
		cfg.Cache.MaxFiles = DefaultCacheMaxFiles
	}
	if cfg.Cache.WarnLead == 0 {
		cfg.Cache.WarnLead = DefaultCacheWarnLead
	}
	if cfg.Cache.DriftThreshold == 0 {
		cfg.Cache.DriftThreshold = DefaultCacheDriftThreshold
	}
	if cfg.Cache.TickInterval == 0 {
		cfg.Cache.TickInterval = DefaultCacheTickInterval
	}
	if cfg.Cache.StateBackend == "" {
		cfg.Cache.StateBackend = DefaultCacheStateBackend
	}
	if cfg.Cache.SQLitePath == "" {
		cfg.Cache.SQLitePath = DefaultCacheSQLitePath
	}

	// Costs defaults
	if cfg.Costs.DisplayCurrency == "" {
		cfg.Costs.DisplayCurrency = DefaultDisplayCurrency
	}
	if cfg.Costs.DisplayCurrencyRate == 0 {
		cfg.Costs.DisplayCurrencyRate = DefaultDisplayCurrencyRate
	}
	if cfg.Costs.Pricing == nil {
		cfg.Costs.Pricing = make(map[string]ModelPricingConfig)
	}
	for model, pricing := range cfg.Costs.Pricing {
		cfg.Costs.Pricing[model] = ApplyPricingDefaults(pricing)
	}

	// Sessions defaults
	if cfg.Sessions.IdleTimeout == 0 {
		cfg.Sessions.IdleTimeout = DefaultSessionIdleTimeout
	}
	if cfg.Sessions.SweepSchedule == "" {
		cfg.Sessions.SweepSchedule = DefaultSessionSweepSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLogLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLogFormat
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
}

// ApplyPricingDefaults fills in derived prices for a single model entry.
// Long-context prices fall back to the base pair; cache write/read prices
// fall back to the standard multipliers of the base input price.
func ApplyPricingDefaults(p ModelPricingConfig) ModelPricingConfig {
	if p.LongContextInput == 0 {
		p.LongContextInput = p.Input
	}
	if p.LongContextOutput == 0 {
		p.LongContextOutput = p.Output
	}
	if p.CacheWrite == 0 {
		p.CacheWrite = p.Input * DefaultCacheWriteMultiplier
	}
	if p.CacheRead == 0 {
		p.CacheRead = p.Input * DefaultCacheReadMultiplier
	}
	if p.LongContextThreshold == 0 {
		p.LongContextThreshold = DefaultLongContextThreshold
	}
	if p.MinCacheableTokens == 0 {
		p.MinCacheableTokens = DefaultMinCacheableTokens
	}
	return p
}
