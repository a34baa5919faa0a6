package pipeline

import (
	"strings"
	"unicode"
)

// RawRow maps canonical header keys to raw string values for one input row.
type RawRow map[string]string

// NormalizeHeader maps an arbitrary column header onto the canonical key
// space: trimmed, lowercased, with all underscore, hyphen, and whitespace
// characters removed. "System_Date", "system date", and "SYSTEM-DATE" all
// normalize to "systemdate".
func NormalizeHeader(h string) string {
	h = strings.ToLower(strings.TrimSpace(h))
	return strings.Map(func(r rune) rune {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			return -1
		}
		return r
	}, h)
}

// NormalizeRecord canonicalizes the keys of an already-tabular record so
// API-fed data (one key/value map per alarm) can bypass the decoder and
// enter the pipeline directly. Colliding keys follow last-write map
// semantics, same as decoded rows.
func NormalizeRecord(rec map[string]string) RawRow {
	row := make(RawRow, len(rec))
	for k, v := range rec {
		row[NormalizeHeader(k)] = v
	}
	return row
}

// zipRow pairs normalized headers with a line's fields. Missing trailing
// fields become empty strings; fields beyond the header count are dropped.
func zipRow(headers []string, fields []string) RawRow {
	row := make(RawRow, len(headers))
	for i, h := range headers {
		if i < len(fields) {
			row[h] = fields[i]
		} else {
			row[h] = ""
		}
	}
	return row
}
