package main

import (
	"encoding/json"
	"fmt"
	"io"
)

// printJSON writes v as indented JSON. Used by the --json flags so status
// and config output can feed scripts and dashboards.
func printJSON(w io.Writer, v any) error {
	encoded, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encode json output: %w", err)
	}
	_, err = fmt.Fprintln(w, string(encoded))
	return err
}
