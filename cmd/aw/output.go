package main

import (
	"encoding/json"
	"fmt"

	"gopkg.in/yaml.v3"
)

// emit renders v according to the global --output flag. The table
// rendering is command-specific and supplied by the caller.
func emit(v any, table func()) error {
	switch output {
	case "json":
		data, err := json.MarshalIndent(v, "", "  ")
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		fmt.Println(string(data))
	case "yaml":
		data, err := yaml.Marshal(v)
		if err != nil {
			return fmt.Errorf("marshal output: %w", err)
		}
		fmt.Print(string(data))
	default:
		table()
	}
	return nil
}
