package pipeline

import "testing"

func TestExtractAlertName(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want string
	}{
		{
			name: "splunk label stripped",
			raw:  "Splunk Alert Description: Mass Data Export",
			want: "Mass Data Export",
		},
		{
			name: "generic label stripped",
			raw:  "Alert Description: Privilege Escalation",
			want: "Privilege Escalation",
		},
		{
			name: "label match is case-insensitive",
			raw:  "SPLUNK ALERT DESCRIPTION: After Hours Login",
			want: "After Hours Login",
		},
		{
			name: "splunk label preferred over generic",
			raw:  "Splunk Alert Description: Real Name | Alert Description: other",
			want: "Real Name",
		},
		{
			name: "pipe truncates after label",
			raw:  "Alert Description: Failed Login Burst | host=db01 | count=42",
			want: "Failed Login Burst",
		},
		{
			name: "no label truncates at pipe",
			raw:  "Suspicious Query | extra context",
			want: "Suspicious Query",
		},
		{
			name: "plain value passes through",
			raw:  "  Table Drop Detected  ",
			want: "Table Drop Detected",
		},
		{
			name: "empty input",
			raw:  "   ",
			want: "",
		},
		{
			name: "label with nothing after it",
			raw:  "Alert Description:",
			want: "",
		},
		{
			name: "label mid-string",
			raw:  "2026-01-15 Splunk Alert Description: Odd Hours Access",
			want: "Odd Hours Access",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ExtractAlertName(tt.raw); got != tt.want {
				t.Errorf("ExtractAlertName(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}
