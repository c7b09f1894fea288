// Package main hosts the inpaint CLI entrypoint and command graph.
//
// Each invocation resolves the configuration, opens the configured
// repository through the process-wide registry, runs one catalog operation,
// and closes every repository it opened before exiting. Output is a table on
// a terminal or indented JSON with --json.
package main
