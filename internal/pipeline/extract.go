package pipeline

import "strings"

// alertLabels are the provenance prefixes some export tools embed in the
// alarm detail column. Checked case-insensitively, in this order.
var alertLabels = []string{
	"Splunk Alert Description:",
	"Alert Description:",
}

// ExtractAlertName cleans a raw alarm description into a human rule name.
// When a known provenance label is present, the name is the text after the
// label, truncated at the first pipe. Without a label the trimmed input is
// truncated at its first pipe. Empty input returns the empty string; the
// caller is responsible for applying the "Unknown Rule" fallback.
func ExtractAlertName(raw string) string {
	value := strings.TrimSpace(raw)
	if value == "" {
		return ""
	}

	lower := strings.ToLower(value)
	for _, label := range alertLabels {
		idx := strings.Index(lower, strings.ToLower(label))
		if idx < 0 {
			continue
		}
		after := strings.TrimSpace(value[idx+len(label):])
		return strings.TrimSpace(cutAtPipe(after))
	}

	return strings.TrimSpace(cutAtPipe(value))
}

func cutAtPipe(s string) string {
	if idx := strings.IndexByte(s, '|'); idx >= 0 {
		return s[:idx]
	}
	return s
}
