// Package output writes analysis results to files and renders them for the
// terminal.
package output

import (
	"errors"
	"fmt"
	"strings"
)

// Format selects how results are rendered to the terminal.
type Format string

// Supported formats.
const (
	FormatTable    Format = "table"
	FormatMarkdown Format = "markdown"
	FormatJSON     Format = "json"
	FormatCSV      Format = "csv"
)

// ErrUnknownFormat is returned by ParseFormat for unsupported names.
var ErrUnknownFormat = errors.New("unknown output format")

// Formats lists the supported formats.
func Formats() []Format {
	return []Format{FormatTable, FormatMarkdown, FormatJSON, FormatCSV}
}

// ParseFormat parses a format name. "md" is accepted for markdown and an
// empty name means table.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "table":
		return FormatTable, nil
	case "md", "markdown":
		return FormatMarkdown, nil
	case "json":
		return FormatJSON, nil
	case "csv":
		return FormatCSV, nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnknownFormat, name)
}
