package pipeline

import (
	"strconv"
	"strings"
	"time"
	"unicode"
	"unicode/utf8"
)

// Severity is the normalized alarm severity. Only the three canonical
// levels exist after normalization; anything unrecognized collapses to
// SeverityLow.
type Severity string

const (
	SeverityHigh   Severity = "High"
	SeverityMedium Severity = "Medium"
	SeverityLow    Severity = "Low"
)

// DefaultRuleName is assigned when no source column yields a usable rule
// name.
const DefaultRuleName = "Unknown Rule"

// DefaultUserName is assigned when no source column yields a user.
const DefaultUserName = "unknown"

// NormalizeSeverity maps arbitrary severity text onto the canonical
// levels. Matching is case-insensitive; empty and unknown values become
// SeverityLow.
func NormalizeSeverity(raw string) Severity {
	s := strings.TrimSpace(raw)
	if s == "" {
		return SeverityLow
	}
	switch Severity(titleCase(s)) {
	case SeverityHigh:
		return SeverityHigh
	case SeverityMedium:
		return SeverityMedium
	default:
		return SeverityLow
	}
}

// titleCase uppercases the first rune and lowercases the rest.
func titleCase(s string) string {
	r, size := utf8.DecodeRuneInString(s)
	return string(unicode.ToUpper(r)) + strings.ToLower(s[size:])
}

// ResolvedRecord is one alarm row after field resolution: canonical
// fields, fallbacks applied, severity normalized, date parsed. Date is
// nil when the source value was absent or unparseable; such records
// still count toward trigger totals but are skipped by temporal
// indexing.
type ResolvedRecord struct {
	RuleName string
	User     string
	Team     string
	Date     *time.Time
	RawDate  string
	Activity string
	Severity Severity
	Count    int
}

// ResolveRow turns one canonical-keyed row into a ResolvedRecord.
func ResolveRow(row RawRow) ResolvedRecord {
	name := ExtractAlertName(row.Resolve(ruleNameKeys, ""))
	if name == "" {
		name = DefaultRuleName
	}

	rawDate := row.Resolve(dateKeys, "")

	return ResolvedRecord{
		RuleName: name,
		User:     row.Resolve(userKeys, DefaultUserName),
		Team:     row.Resolve(teamKeys, ""),
		Date:     ParseDate(rawDate),
		RawDate:  strings.TrimSpace(rawDate),
		Activity: row.Resolve(activityKeys, ""),
		Severity: NormalizeSeverity(row.Resolve(severityKeys, "")),
		Count:    parseCount(row.Resolve(countKeys, "")),
	}
}

// parseCount parses a trigger count, clamping anything unparseable or
// below one to one. A row always represents at least one firing.
func parseCount(raw string) int {
	n, err := strconv.Atoi(strings.TrimSpace(raw))
	if err != nil || n < 1 {
		return 1
	}
	return n
}
