// Package output renders command results for the CLI.
package output

import (
	"encoding/json"
	"fmt"
	"io"
	"os"

	"gopkg.in/yaml.v3"
)

// Format defines the output format for CLI commands.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatJSON Format = "json"
	FormatText Format = "text"
)

// Texter is implemented by results that have a human-readable rendering.
type Texter interface {
	Text() string
}

// ParseFormat validates a --output flag value.
func ParseFormat(s string) (Format, error) {
	switch Format(s) {
	case FormatYAML, FormatJSON, FormatText:
		return Format(s), nil
	default:
		return "", fmt.Errorf("unknown output format %q (want yaml, json, or text)", s)
	}
}

// Printer writes command results in one format.
type Printer struct {
	w      io.Writer
	format Format
}

// NewPrinter creates a Printer. A nil writer means stdout.
func NewPrinter(w io.Writer, format Format) *Printer {
	if w == nil {
		w = os.Stdout
	}
	return &Printer{w: w, format: format}
}

// Format returns the printer's format.
func (p *Printer) Format() Format {
	return p.format
}

// Print writes data in the printer's format.
// Text format uses Texter when available and falls back to YAML otherwise.
func (p *Printer) Print(data any) error {
	switch p.format {
	case FormatJSON:
		enc := json.NewEncoder(p.w)
		enc.SetIndent("", "  ")
		return enc.Encode(data)
	case FormatYAML:
		enc := yaml.NewEncoder(p.w)
		enc.SetIndent(2)
		defer enc.Close()
		return enc.Encode(data)
	case FormatText:
		if t, ok := data.(Texter); ok {
			_, err := fmt.Fprintln(p.w, t.Text())
			return err
		}
		return NewPrinter(p.w, FormatYAML).Print(data)
	default:
		return fmt.Errorf("unknown output format: %s", p.format)
	}
}
