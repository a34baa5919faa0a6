package pipeline

import (
	"testing"
	"time"
)

func TestParseDate(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		wantNil bool
		want    time.Time
	}{
		{
			name: "iso date only",
			raw:  "2026-01-15",
			want: time.Date(2026, 1, 15, 0, 0, 0, 0, time.Local),
		},
		{
			name: "iso with space separated time",
			raw:  "2026-01-15 11:46:34",
			want: time.Date(2026, 1, 15, 11, 46, 34, 0, time.Local),
		},
		{
			name: "iso with fractional seconds",
			raw:  "2026-01-15 11:46:34.073",
			want: time.Date(2026, 1, 15, 11, 46, 34, 73000000, time.Local),
		},
		{
			name: "iso with hour and minute only",
			raw:  "2026-01-15 11:46",
			want: time.Date(2026, 1, 15, 11, 46, 0, 0, time.Local),
		},
		{
			name: "slash date only",
			raw:  "2026/01/15",
			want: time.Date(2026, 1, 15, 0, 0, 0, 0, time.Local),
		},
		{
			name: "slash with full time",
			raw:  "2026/01/15 09:00:30",
			want: time.Date(2026, 1, 15, 9, 0, 30, 0, time.Local),
		},
		{
			name: "slash with partial time",
			raw:  "2026/01/15 09",
			want: time.Date(2026, 1, 15, 9, 0, 0, 0, time.Local),
		},
		{
			name: "dotted day first",
			raw:  "15.01.2026",
			want: time.Date(2026, 1, 15, 0, 0, 0, 0, time.Local),
		},
		{
			name: "dotted with time",
			raw:  "15.01.2026 09:30",
			want: time.Date(2026, 1, 15, 9, 30, 0, 0, time.Local),
		},
		{
			name: "surrounding whitespace",
			raw:  "  2026-01-15  ",
			want: time.Date(2026, 1, 15, 0, 0, 0, 0, time.Local),
		},
		{
			name:    "empty",
			raw:     "",
			wantNil: true,
		},
		{
			name:    "garbage",
			raw:     "not a date",
			wantNil: true,
		},
		{
			name:    "month thirteen rejected",
			raw:     "2026/13/01",
			wantNil: true,
		},
		{
			name:    "day thirty-two rejected",
			raw:     "32.01.2026",
			wantNil: true,
		},
		{
			name: "rfc3339 via fallback",
			raw:  "2026-01-15T11:46:34Z",
			want: time.Date(2026, 1, 15, 11, 46, 34, 0, time.UTC),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ParseDate(tt.raw)
			if tt.wantNil {
				if got != nil {
					t.Errorf("ParseDate(%q) = %v, want nil", tt.raw, got)
				}
				return
			}
			if got == nil {
				t.Fatalf("ParseDate(%q) = nil, want %v", tt.raw, tt.want)
			}
			if !got.Equal(tt.want) {
				t.Errorf("ParseDate(%q) = %v, want %v", tt.raw, got, tt.want)
			}
		})
	}
}
