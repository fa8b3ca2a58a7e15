// Comet is the prompt-cache lifecycle and cost accounting core of a mobile
// coding assistant.
//
// It mirrors the LLM provider's short-lived server-side prompt cache
// locally: a TTL state machine that knows when the remote cache is warm,
// survives process death, corrects for wall-clock drift, and prices every
// request (including cache read/write tokens) into a cost breakdown.
//
// Usage:
//
//	# Start the daemon with default configuration
//	comet run
//
//	# Start with a custom configuration file
//	comet run --config /path/to/config.yaml
//
//	# Validate a configuration file
//	comet validate --config config.yaml
//
//	# Show version information
//	comet version
package main

func main() {
	Execute()
}
