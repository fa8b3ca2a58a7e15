// Package config provides configuration management for Comet.
//
// Configuration is loaded from YAML files with sensible defaults, validated
// on load, and optionally overridden by COMET_* environment variables:
//
//	cfg, err := config.LoadConfigWithEnvOverrides("config.yaml")
//	if err != nil {
//		log.Fatal(err)
//	}
//
// # Pricing Hot-Reload
//
// Model pricing can live in a standalone file referenced by
// costs.pricing_file. A PricingWatcher observes that file via fsnotify and
// pushes re-parsed tables to the cost calculator without a restart:
//
//	pw, _ := config.NewPricingWatcher(cfg.Costs.PricingFile, logger)
//	go pw.Watch(ctx, func(p map[string]config.ModelPricingConfig) {
//		calculator.UpdatePricing(p, cfg.Costs.DisplayCurrencyRate)
//	})
//
// Invalid pricing files are rejected and logged; the previous table remains
// in effect.
package config
