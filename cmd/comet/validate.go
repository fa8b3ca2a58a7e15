package main

import (
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"pocketforge/comet/pkg/config"
)

var validateFlags struct {
	pricingOnly bool
}

var validateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Validate a configuration file",
	Long: `Validate a configuration file and its pricing table.

The validate command loads the configuration, applies defaults and
environment overrides, and reports validation errors. With --pricing
it validates only the standalone pricing file referenced by the config.

Examples:
  # Validate the default config
  comet validate

  # Validate a specific config file
  comet validate --config /etc/comet/config.yaml

  # Validate only the pricing table
  comet validate --pricing`,
	RunE: validateConfig,
}

func init() {
	rootCmd.AddCommand(validateCmd)

	validateCmd.Flags().BoolVar(&validateFlags.pricingOnly, "pricing", false, "validate only the pricing file")
}

func validateConfig(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadConfigWithEnvOverrides(cfgFile)
	if err != nil {
		return err
	}

	if validateFlags.pricingOnly {
		if cfg.Costs.PricingFile == "" {
			return fmt.Errorf("no pricing file configured in %s", cfgFile)
		}
		pricing, err := config.LoadPricing(cfg.Costs.PricingFile)
		if err != nil {
			return err
		}
		fmt.Printf("pricing file OK: %s (%d models)\n", cfg.Costs.PricingFile, len(pricing))
		return nil
	}

	fmt.Printf("configuration OK: %s\n", cfgFile)
	fmt.Printf("  cache timeout:   %s\n", cfg.Cache.Timeout)
	fmt.Printf("  max files:       %d\n", cfg.Cache.MaxFiles)
	fmt.Printf("  state backend:   %s\n", cfg.Cache.StateBackend)
	fmt.Printf("  idle timeout:    %s\n", cfg.Sessions.IdleTimeout)

	if len(cfg.Costs.Pricing) > 0 {
		models := make([]string, 0, len(cfg.Costs.Pricing))
		for model := range cfg.Costs.Pricing {
			models = append(models, model)
		}
		sort.Strings(models)
		fmt.Printf("  pricing models:  %d\n", len(models))
		for _, model := range models {
			entry := cfg.Costs.Pricing[model]
			fmt.Printf("    %-28s in=$%.2f/M out=$%.2f/M\n", model, entry.Input, entry.Output)
		}
	}

	if verbose {
		fmt.Printf("  drift threshold: %s\n", cfg.Cache.DriftThreshold)
		fmt.Printf("  warn lead:       %s\n", cfg.Cache.WarnLead)
		fmt.Printf("  sweep schedule:  %s\n", cfg.Sessions.SweepSchedule)
	}
	return nil
}
