// Package importer turns raw CSV exports into normalized trade records.
package importer

import (
	"errors"
	"strings"
)

// ErrMalformedInput means the CSV had fewer than two usable lines
// (a header plus at least one data row). The import aborts and any
// previously installed dataset stays untouched.
var ErrMalformedInput = errors.New("csv appears to be empty or invalid")

// Document is a parsed CSV: a header row plus the accepted data rows.
type Document struct {
	Headers []string
	Rows    [][]string

	// SkippedShort counts data rows dropped for having more than two
	// fields fewer than the header. They still count as candidates in
	// the import accounting.
	SkippedShort int
}

// DataRowCount returns the number of data rows in the source, including
// the short rows that were skipped.
func (d *Document) DataRowCount() int {
	return len(d.Rows) + d.SkippedShort
}

// Parse splits raw CSV text into a header and data rows.
//
// Blank lines are dropped. A double quote toggles quoted mode, inside
// which commas are literal; there is no escaped-quote handling beyond
// the toggle. Every field is trimmed. Rows may run short of the header
// by up to two fields (missing trailing columns read as empty); anything
// shorter is skipped.
func Parse(raw string) (*Document, error) {
	var lines []string
	for _, line := range strings.Split(raw, "\n") {
		if strings.TrimSpace(line) != "" {
			lines = append(lines, line)
		}
	}

	if len(lines) < 2 {
		return nil, ErrMalformedInput
	}

	doc := &Document{Headers: parseLine(lines[0])}

	minFields := len(doc.Headers) - 2
	for _, line := range lines[1:] {
		values := parseLine(line)
		if len(values) < minFields {
			doc.SkippedShort++
			continue
		}
		doc.Rows = append(doc.Rows, values)
	}

	return doc, nil
}

// parseLine splits one CSV line on commas, honoring quoted fields.
func parseLine(line string) []string {
	var result []string
	var current strings.Builder
	inQuotes := false

	for _, char := range line {
		switch {
		case char == '"':
			inQuotes = !inQuotes
		case char == ',' && !inQuotes:
			result = append(result, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(char)
		}
	}
	result = append(result, strings.TrimSpace(current.String()))

	return result
}
