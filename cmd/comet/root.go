package main

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

var (
	// Global flags
	cfgFile string
	verbose bool
)

var rootCmd = &cobra.Command{
	Use:   "comet",
	Short: "Comet - prompt cache lifecycle and cost accounting core",
	Long: `Comet is the prompt-cache lifecycle and cost accounting core of a
mobile coding assistant.

It maintains the local model of the LLM provider's server-side prompt
cache, providing:
  - A persisted TTL state machine with pause/resume and drift correction
  - Backstop expiry scheduling for when the process is not running
  - Per-request and per-session cost accounting with cache-aware pricing
  - A durable usage ledger and Prometheus metrics`,
	Version: Version,
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "config.yaml", "config file path")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}
