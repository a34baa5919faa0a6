package pipeline

import "testing"

func TestNormalizeSeverity(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Severity
	}{
		{name: "canonical high", raw: "High", want: SeverityHigh},
		{name: "lowercase high", raw: "high", want: SeverityHigh},
		{name: "uppercase medium", raw: "MEDIUM", want: SeverityMedium},
		{name: "mixed case low", raw: "lOw", want: SeverityLow},
		{name: "padded value", raw: "  high  ", want: SeverityHigh},
		{name: "empty defaults low", raw: "", want: SeverityLow},
		{name: "unknown defaults low", raw: "Critical", want: SeverityLow},
		{name: "numeric defaults low", raw: "9", want: SeverityLow},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := NormalizeSeverity(tt.raw); got != tt.want {
				t.Errorf("NormalizeSeverity(%q) = %q, want %q", tt.raw, got, tt.want)
			}
		})
	}
}

func TestResolveRow(t *testing.T) {
	tests := []struct {
		name      string
		row       RawRow
		checkFunc func(t *testing.T, rec ResolvedRecord)
	}{
		{
			name: "full row",
			row: RawRow{
				"alarmdetail":         "Splunk Alert Description: Mass Export | host=db01",
				"username":            "alice",
				"company":             "IT",
				"systemdate":          "2026-01-15 11:46:34",
				"activitydescription": "SELECT * FROM customers",
				"severity":            "high",
				"count":               "3",
			},
			checkFunc: func(t *testing.T, rec ResolvedRecord) {
				if rec.RuleName != "Mass Export" {
					t.Errorf("RuleName = %q, want Mass Export", rec.RuleName)
				}
				if rec.User != "alice" {
					t.Errorf("User = %q, want alice", rec.User)
				}
				if rec.Team != "IT" {
					t.Errorf("Team = %q, want IT", rec.Team)
				}
				if rec.Date == nil {
					t.Fatal("Date = nil, want parsed")
				}
				if rec.Severity != SeverityHigh {
					t.Errorf("Severity = %q, want High", rec.Severity)
				}
				if rec.Count != 3 {
					t.Errorf("Count = %d, want 3", rec.Count)
				}
			},
		},
		{
			name: "alarmdetail beats activitydescription for rule name",
			row: RawRow{
				"alarmdetail":         "Primary Name",
				"activitydescription": "Secondary Name",
			},
			checkFunc: func(t *testing.T, rec ResolvedRecord) {
				if rec.RuleName != "Primary Name" {
					t.Errorf("RuleName = %q, want Primary Name", rec.RuleName)
				}
				if rec.Activity != "Secondary Name" {
					t.Errorf("Activity = %q, want Secondary Name", rec.Activity)
				}
			},
		},
		{
			name: "empty value falls through priority list",
			row: RawRow{
				"username":  "",
				"user":      "bob",
				"useremail": "bob@example.com",
			},
			checkFunc: func(t *testing.T, rec ResolvedRecord) {
				if rec.User != "bob" {
					t.Errorf("User = %q, want bob", rec.User)
				}
			},
		},
		{
			name: "empty row gets fallbacks",
			row:  RawRow{},
			checkFunc: func(t *testing.T, rec ResolvedRecord) {
				if rec.RuleName != DefaultRuleName {
					t.Errorf("RuleName = %q, want %q", rec.RuleName, DefaultRuleName)
				}
				if rec.User != "unknown" {
					t.Errorf("User = %q, want unknown", rec.User)
				}
				if rec.Team != "" {
					t.Errorf("Team = %q, want empty", rec.Team)
				}
				if rec.Date != nil {
					t.Errorf("Date = %v, want nil", rec.Date)
				}
				if rec.Severity != SeverityLow {
					t.Errorf("Severity = %q, want Low", rec.Severity)
				}
				if rec.Count != 1 {
					t.Errorf("Count = %d, want 1", rec.Count)
				}
			},
		},
		{
			name: "label collapsing to empty gets default rule name",
			row:  RawRow{"alarmdetail": "Alert Description:"},
			checkFunc: func(t *testing.T, rec ResolvedRecord) {
				if rec.RuleName != DefaultRuleName {
					t.Errorf("RuleName = %q, want %q", rec.RuleName, DefaultRuleName)
				}
			},
		},
		{
			name: "unparseable date keeps raw text",
			row:  RawRow{"systemdate": "yesterday morning"},
			checkFunc: func(t *testing.T, rec ResolvedRecord) {
				if rec.Date != nil {
					t.Errorf("Date = %v, want nil", rec.Date)
				}
				if rec.RawDate != "yesterday morning" {
					t.Errorf("RawDate = %q, want original text", rec.RawDate)
				}
			},
		},
		{
			name: "count below one clamps to one",
			row:  RawRow{"count": "0"},
			checkFunc: func(t *testing.T, rec ResolvedRecord) {
				if rec.Count != 1 {
					t.Errorf("Count = %d, want 1", rec.Count)
				}
			},
		},
		{
			name: "non-numeric count clamps to one",
			row:  RawRow{"count": "many"},
			checkFunc: func(t *testing.T, rec ResolvedRecord) {
				if rec.Count != 1 {
					t.Errorf("Count = %d, want 1", rec.Count)
				}
			},
		},
		{
			name: "triggercount honored when count absent",
			row:  RawRow{"triggercount": "7"},
			checkFunc: func(t *testing.T, rec ResolvedRecord) {
				if rec.Count != 7 {
					t.Errorf("Count = %d, want 7", rec.Count)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.checkFunc(t, ResolveRow(tt.row))
		})
	}
}
