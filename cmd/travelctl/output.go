package main

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"gopkg.in/yaml.v3"
)

type outputFormat string

const (
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

func parseFormat(raw string) (outputFormat, error) {
	switch outputFormat(strings.ToLower(strings.TrimSpace(raw))) {
	case "", formatJSON:
		return formatJSON, nil
	case formatYAML, "yml":
		return formatYAML, nil
	default:
		return "", fmt.Errorf("unsupported output format %q (want json or yaml)", raw)
	}
}

func writeOutput(w io.Writer, format outputFormat, v any) error {
	switch format {
	case formatYAML:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode yaml: %w", err)
		}
		return enc.Close()
	default:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if err := enc.Encode(v); err != nil {
			return fmt.Errorf("encode json: %w", err)
		}
		return nil
	}
}
