// Loom is the external-call governance daemon for the job application
// pipeline.
//
// It sits between the pipeline and its metered dependencies (LLM APIs,
// mail, crawlers), enforcing per-dependency rate limits, circuit
// breaking, and a shared spending ceiling, and exposes a monitoring
// HTTP surface for the operator.
//
// Usage:
//
//	# Start the daemon with default configuration
//	loom run
//
//	# Start with a custom configuration file
//	loom run --config /path/to/config.yaml
//
//	# Check a configuration file without starting
//	loom validate
//
//	# Inspect the latest persisted dependency snapshots
//	loom stats
//
//	# Show version information
//	loom version
package main

func main() {
	Execute()
}
