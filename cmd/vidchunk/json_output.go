package main

import (
	"encoding/json"

	"github.com/spf13/cobra"
)

// jsonSchemaVersion changes whenever a field in a --json document is renamed
// or removed.
const jsonSchemaVersion = 1

// jsonDocument is the envelope every --json output is wrapped in. Kind names
// the payload so scripts can tell a run result from a run listing.
type jsonDocument struct {
	Kind   string `json:"kind"`
	Schema int    `json:"schema"`
	Data   any    `json:"data"`
}

// writeJSON encodes data inside a jsonDocument to the command's stdout.
// HTML escaping is off: paths and transcripts are printed verbatim.
func writeJSON(cmd *cobra.Command, kind string, data any) error {
	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	enc.SetEscapeHTML(false)
	return enc.Encode(jsonDocument{Kind: kind, Schema: jsonSchemaVersion, Data: data})
}
