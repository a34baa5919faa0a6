// Package pipeline implements the alarm-record normalization and
// aggregation pipeline. Raw tabular text (CSV, TSV, or semicolon-separated
// exports with inconsistent headers) goes in; canonical rule/user
// aggregates come out. The pipeline is pure: the same input text always
// produces structurally identical output.
package pipeline

import "strings"

// DetectDelimiter picks the field delimiter by inspecting the header line.
// The priority is fixed: tab, then semicolon, then comma. This is not a
// frequency vote - the first matching character wins.
func DetectDelimiter(firstLine string) rune {
	if strings.ContainsRune(firstLine, '\t') {
		return '\t'
	}
	if strings.ContainsRune(firstLine, ';') {
		return ';'
	}
	return ','
}

// SplitLine splits a single line into trimmed fields. A double quote
// toggles the quoted state and is dropped from the output; the delimiter
// is treated literally while inside quotes.
func SplitLine(line string, delim rune) []string {
	var fields []string
	var current strings.Builder
	inQuotes := false

	for _, ch := range line {
		switch {
		case ch == '"':
			inQuotes = !inQuotes
		case ch == delim && !inQuotes:
			fields = append(fields, strings.TrimSpace(current.String()))
			current.Reset()
		default:
			current.WriteRune(ch)
		}
	}
	fields = append(fields, strings.TrimSpace(current.String()))

	return fields
}

// Decode splits raw text into rows of string fields. Blank and
// whitespace-only lines are discarded; the delimiter is detected once,
// from the first non-blank line. Empty input yields no rows.
func Decode(text string) [][]string {
	lines := splitLines(text)
	if len(lines) == 0 {
		return nil
	}

	delim := DetectDelimiter(lines[0])
	rows := make([][]string, 0, len(lines))
	for _, line := range lines {
		rows = append(rows, SplitLine(line, delim))
	}
	return rows
}

// splitLines breaks text on line breaks, handling both bare and
// carriage-return-prefixed breaks, and drops blank lines.
func splitLines(text string) []string {
	var lines []string
	for _, line := range strings.Split(strings.ReplaceAll(text, "\r\n", "\n"), "\n") {
		if strings.TrimSpace(line) == "" {
			continue
		}
		lines = append(lines, line)
	}
	return lines
}
