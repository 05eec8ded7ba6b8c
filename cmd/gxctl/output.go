package main

import (
	"encoding/json"
	"fmt"
	"io"
)

// printResult writes v as indented JSON with --json, otherwise the plain
// text line.
func printResult(w io.Writer, v any, text string) error {
	if !jsonOutput {
		_, err := fmt.Fprintln(w, text)
		return err
	}
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(data))
	return err
}
