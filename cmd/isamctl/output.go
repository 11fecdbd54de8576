package main

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/therealmichaelberna/nokia.isam/pkg/flatten"
)

type outputFormat string

const (
	formatText outputFormat = "text"
	formatJSON outputFormat = "json"
	formatYAML outputFormat = "yaml"
)

func parseFormat(s string) (outputFormat, error) {
	switch f := outputFormat(s); f {
	case formatText, formatJSON, formatYAML:
		return f, nil
	default:
		return "", fmt.Errorf("unknown output format: %q, valid formats are: text, json, yaml", s)
	}
}

type flattenOutput struct {
	Lines []string       `json:"lines" yaml:"lines"`
	Stats *flatten.Stats `json:"stats,omitempty" yaml:"stats,omitempty"`
}

// writeLines prints one line per row in text format, or the lines with
// their stats as a document.
func writeLines(w io.Writer, f outputFormat, lines []string, st *flatten.Stats) error {
	if f == formatText {
		for _, l := range lines {
			if _, err := fmt.Fprintln(w, l); err != nil {
				return err
			}
		}
		return nil
	}
	if lines == nil {
		lines = []string{}
	}
	return writeValue(w, f, flattenOutput{Lines: lines, Stats: st})
}

// writeValue serializes v. Text output uses YAML.
func writeValue(w io.Writer, f outputFormat, v any) error {
	switch f {
	case formatJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	default:
		enc := yaml.NewEncoder(w)
		enc.SetIndent(2)
		if err := enc.Encode(v); err != nil {
			return err
		}
		return enc.Close()
	}
}
