// Package output writes run reports as JSON, JSONL or YAML.
package output

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/jmylchreest/flatscraper/internal/pipeline"
)

// Format is a report encoding.
type Format string

const (
	FormatJSON  Format = "json"
	FormatJSONL Format = "jsonl"
	FormatYAML  Format = "yaml"
)

// ParseFormat accepts "json", "jsonl" and "yaml"/"yml".
func ParseFormat(s string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "json":
		return FormatJSON, nil
	case "jsonl", "ndjson":
		return FormatJSONL, nil
	case "yaml", "yml":
		return FormatYAML, nil
	default:
		return "", fmt.Errorf("unsupported report format: %s", s)
	}
}

// FormatFromPath guesses the format from a file extension, defaulting to
// JSON.
func FormatFromPath(path string) Format {
	f, err := ParseFormat(strings.TrimPrefix(filepath.Ext(path), "."))
	if err != nil {
		return FormatJSON
	}
	return f
}

// ReportWriter encodes run reports.
type ReportWriter interface {
	// WriteReport encodes one report.
	WriteReport(r *pipeline.Report) error
}

// NewReportWriter creates a writer for format.
func NewReportWriter(w io.Writer, format Format) (ReportWriter, error) {
	switch format {
	case FormatJSON:
		return &jsonWriter{w: w, indent: "  "}, nil
	case FormatJSONL:
		return &jsonlWriter{w: w}, nil
	case FormatYAML:
		return &yamlWriter{w: w}, nil
	default:
		return nil, fmt.Errorf("unsupported report format: %s", format)
	}
}

// SaveReport writes r to path. JSONL appends one line per outcome so
// scheduled cycles accumulate; JSON and YAML replace the file with the
// latest cycle.
func SaveReport(path string, format Format, r *pipeline.Report) error {
	flags := os.O_CREATE | os.O_WRONLY | os.O_TRUNC
	if format == FormatJSONL {
		flags = os.O_CREATE | os.O_WRONLY | os.O_APPEND
	}

	f, err := os.OpenFile(path, flags, 0o600)
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}

	w, err := NewReportWriter(f, format)
	if err != nil {
		_ = f.Close()
		return err
	}
	if err := w.WriteReport(r); err != nil {
		_ = f.Close()
		return fmt.Errorf("write report: %w", err)
	}
	return f.Close()
}
