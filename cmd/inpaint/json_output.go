package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"
)

// writeJSON encodes v as indented JSON to the command's stdout.
func writeJSON(cmd *cobra.Command, v any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// mutationResult is the JSON shape of create, update, and delete commands.
type mutationResult struct {
	Action string `json:"action"`
	Name   string `json:"name"`
	Result string `json:"result"`
	Record any    `json:"record,omitempty"`
}

// report writes a mutation outcome as JSON or as one line of text.
func (c *commandContext) report(cmd *cobra.Command, result mutationResult) error {
	if c.jsonOutput() {
		return writeJSON(cmd, result)
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s: %s\n", result.Action, result.Name, result.Result)
	return nil
}

// record keeps a nil pointer out of mutationResult.Record so it is omitted.
func record[T any](value *T) any {
	if value == nil {
		return nil
	}
	return value
}
