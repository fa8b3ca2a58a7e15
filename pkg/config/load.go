package config

import (
	"fmt"
	"os"
	"strconv"
	"time"

	"gopkg.in/yaml.v3"
)

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any
// errors. Environment variables are not consulted; use
// LoadConfigWithEnvOverrides for that.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration file %q: %w", path, err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention COMET_SECTION_FIELD (e.g., COMET_CACHE_TIMEOUT) and always take
// precedence over file-based configuration.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	cfg, err := LoadConfig(path)
	if err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// LoadPricing loads a standalone pricing table from a YAML file. The file
// maps model identifiers to pricing entries; derived prices (long-context,
// cache write/read) are filled in from the base pair.
func LoadPricing(path string) (map[string]ModelPricingConfig, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read pricing file %q: %w", path, err)
	}

	var pricing map[string]ModelPricingConfig
	if err := yaml.Unmarshal(data, &pricing); err != nil {
		return nil, fmt.Errorf("failed to parse pricing file %q: %w", path, err)
	}

	for model, entry := range pricing {
		if err := validatePricing(model, entry); err != nil {
			return nil, fmt.Errorf("pricing validation failed: %w", err)
		}
		pricing[model] = ApplyPricingDefaults(entry)
	}

	return pricing, nil
}

// applyEnvOverrides applies environment variable overrides to the
// configuration. Environment variables use the format COMET_SECTION_FIELD.
func applyEnvOverrides(cfg *Config) {
	// Cache overrides
	if val := os.Getenv("COMET_CACHE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cache.Timeout = d
		}
	}
	if val := os.Getenv("COMET_CACHE_MAX_FILES"); val != "" {
		if n, err := strconv.Atoi(val); err == nil {
			cfg.Cache.MaxFiles = n
		}
	}
	if val := os.Getenv("COMET_CACHE_AUTO_CLEAR"); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Cache.AutoClear = b
		}
	}
	if val := os.Getenv("COMET_CACHE_WARN_LEAD"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Cache.WarnLead = d
		}
	}
	if val := os.Getenv("COMET_CACHE_STATE_BACKEND"); val != "" {
		cfg.Cache.StateBackend = val
	}
	if val := os.Getenv("COMET_CACHE_SQLITE_PATH"); val != "" {
		cfg.Cache.SQLitePath = val
	}

	// Costs overrides
	if val := os.Getenv("COMET_COSTS_PRICING_FILE"); val != "" {
		cfg.Costs.PricingFile = val
	}
	if val := os.Getenv("COMET_COSTS_DISPLAY_CURRENCY"); val != "" {
		cfg.Costs.DisplayCurrency = val
	}
	if val := os.Getenv("COMET_COSTS_DISPLAY_CURRENCY_RATE"); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			cfg.Costs.DisplayCurrencyRate = f
		}
	}

	// Sessions overrides
	if val := os.Getenv("COMET_SESSIONS_IDLE_TIMEOUT"); val != "" {
		if d, err := time.ParseDuration(val); err == nil {
			cfg.Sessions.IdleTimeout = d
		}
	}
	if val := os.Getenv("COMET_SESSIONS_HISTORY_PATH"); val != "" {
		cfg.Sessions.HistoryPath = val
	}

	// Telemetry overrides
	if val := os.Getenv("COMET_TELEMETRY_LOG_LEVEL"); val != "" {
		cfg.Telemetry.Logging.Level = val
	}
	if val := os.Getenv("COMET_TELEMETRY_LOG_FORMAT"); val != "" {
		cfg.Telemetry.Logging.Format = val
	}
}
