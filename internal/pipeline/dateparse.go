package pipeline

import (
	"regexp"
	"strconv"
	"strings"
	"time"
)

// The three explicitly recognized date shapes, tried in order. Anything
// else falls through to a generic layout sweep.
var (
	isoDatePattern    = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}`)
	slashDatePattern  = regexp.MustCompile(`^\d{4}/\d{2}/\d{2}`)
	dottedDatePattern = regexp.MustCompile(`^\d{2}\.\d{2}\.\d{4}`)
)

var isoLayouts = []string{
	"2006-01-02T15:04:05.999999999",
	"2006-01-02T15:04",
	"2006-01-02",
}

var fallbackLayouts = []string{
	time.RFC3339Nano,
	time.RFC3339,
	"2006-01-02 15:04:05",
	time.RFC1123,
	time.RFC822,
	"Jan 2, 2006",
	"2 Jan 2006",
}

// ParseDate parses raw date text into a calendar timestamp. Four shapes
// are tried in fixed order: ISO-like YYYY-MM-DD, slash-separated
// YYYY/MM/DD, dotted DD.MM.YYYY, and a generic fallback. Missing time
// components default to midnight. The result is nil for empty input, for
// unrecognized text, and for constructed dates whose fields do not survive
// a round-trip (e.g. month 13). Callers must treat nil as "exclude from
// temporal indexing" while still counting the row elsewhere.
func ParseDate(raw string) *time.Time {
	s := strings.TrimSpace(raw)
	if s == "" {
		return nil
	}

	var shaped *time.Time
	switch {
	case isoDatePattern.MatchString(s):
		shaped = parseISO(s)
	case slashDatePattern.MatchString(s):
		shaped = parseSlash(s)
	case dottedDatePattern.MatchString(s):
		shaped = parseDotted(s)
	}
	if shaped != nil {
		return shaped
	}

	for _, layout := range fallbackLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t
		}
	}
	return nil
}

// parseISO handles "2026-01-15 11:46:34.073" and friends. A single
// interior space stands in for the T separator.
func parseISO(s string) *time.Time {
	s = strings.Replace(s, " ", "T", 1)
	for _, layout := range isoLayouts {
		if t, err := time.ParseInLocation(layout, s, time.Local); err == nil {
			return &t
		}
	}
	return nil
}

// parseSlash handles "2026/01/15 09:00:30" with every time component
// optional.
func parseSlash(s string) *time.Time {
	datePart, timePart, _ := strings.Cut(s, " ")
	dp := strings.Split(datePart, "/")
	if len(dp) != 3 {
		return nil
	}
	year, okY := atoi(dp[0])
	month, okM := atoi(dp[1])
	day, okD := atoi(dp[2])
	if !okY || !okM || !okD {
		return nil
	}
	hour, min, sec := splitClock(timePart, true)
	return makeDate(year, month, day, hour, min, sec)
}

// parseDotted handles "15.01.2026 09:00". Seconds are not part of this
// shape.
func parseDotted(s string) *time.Time {
	datePart, timePart, _ := strings.Cut(s, " ")
	dp := strings.Split(datePart, ".")
	if len(dp) != 3 {
		return nil
	}
	day, okD := atoi(dp[0])
	month, okM := atoi(dp[1])
	year, okY := atoi(dp[2])
	if !okD || !okM || !okY {
		return nil
	}
	hour, min, _ := splitClock(timePart, false)
	return makeDate(year, month, day, hour, min, 0)
}

// splitClock splits "HH:MM:SS" with each component defaulting to zero
// when absent. withSeconds controls whether a third component is read.
func splitClock(s string, withSeconds bool) (hour, min, sec int) {
	if s == "" {
		return 0, 0, 0
	}
	parts := strings.Split(s, ":")
	if len(parts) > 0 {
		hour, _ = atoi(parts[0])
	}
	if len(parts) > 1 {
		min, _ = atoi(parts[1])
	}
	if withSeconds && len(parts) > 2 {
		sec, _ = atoi(parts[2])
	}
	return hour, min, sec
}

// makeDate constructs a local timestamp and rejects values that
// time.Date would silently normalize, such as month 13 or day 32.
func makeDate(year, month, day, hour, min, sec int) *time.Time {
	t := time.Date(year, time.Month(month), day, hour, min, sec, 0, time.Local)
	if t.Year() != year || t.Month() != time.Month(month) || t.Day() != day {
		return nil
	}
	return &t
}

func atoi(s string) (int, bool) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, false
	}
	return n, true
}
