package pipeline

import (
	"encoding/json"
	"fmt"
	"testing"
)

func TestAggregate(t *testing.T) {
	tests := []struct {
		name      string
		records   []ResolvedRecord
		checkFunc func(t *testing.T, rules []*RuleAggregate)
	}{
		{
			name:    "no records",
			records: nil,
			checkFunc: func(t *testing.T, rules []*RuleAggregate) {
				if len(rules) != 0 {
					t.Errorf("got %d rules, want 0", len(rules))
				}
			},
		},
		{
			name: "rules keyed by name in first-seen order",
			records: []ResolvedRecord{
				{RuleName: "B", User: "u1", Severity: SeverityLow, Count: 1},
				{RuleName: "A", User: "u1", Severity: SeverityLow, Count: 1},
				{RuleName: "B", User: "u2", Severity: SeverityLow, Count: 1},
			},
			checkFunc: func(t *testing.T, rules []*RuleAggregate) {
				if len(rules) != 2 {
					t.Fatalf("got %d rules, want 2", len(rules))
				}
				if rules[0].RuleName != "B" || rules[1].RuleName != "A" {
					t.Errorf("order = [%s, %s], want [B, A]", rules[0].RuleName, rules[1].RuleName)
				}
				if rules[0].ID != "imported-1" || rules[1].ID != "imported-2" {
					t.Errorf("ids = [%s, %s], want [imported-1, imported-2]", rules[0].ID, rules[1].ID)
				}
			},
		},
		{
			name: "trigger counts sum per rule and per user",
			records: []ResolvedRecord{
				{RuleName: "A", User: "alice", Severity: SeverityLow, Count: 2},
				{RuleName: "A", User: "alice", Severity: SeverityLow, Count: 3},
				{RuleName: "A", User: "bob", Severity: SeverityLow, Count: 1},
			},
			checkFunc: func(t *testing.T, rules []*RuleAggregate) {
				r := rules[0]
				if r.TriggerCount != 6 {
					t.Errorf("rule TriggerCount = %d, want 6", r.TriggerCount)
				}
				if r.AffectedUsersCount != 2 {
					t.Errorf("AffectedUsersCount = %d, want 2", r.AffectedUsersCount)
				}
				if r.Users[0].Name != "alice" || r.Users[0].TriggerCount != 5 {
					t.Errorf("user[0] = %s/%d, want alice/5", r.Users[0].Name, r.Users[0].TriggerCount)
				}
				if r.Users[1].Name != "bob" || r.Users[1].TriggerCount != 1 {
					t.Errorf("user[1] = %s/%d, want bob/1", r.Users[1].Name, r.Users[1].TriggerCount)
				}
			},
		},
		{
			name: "rule severity is last write",
			records: []ResolvedRecord{
				{RuleName: "A", User: "u", Severity: SeverityHigh, Count: 1},
				{RuleName: "A", User: "u", Severity: SeverityMedium, Count: 1},
			},
			checkFunc: func(t *testing.T, rules []*RuleAggregate) {
				if rules[0].Severity != SeverityMedium {
					t.Errorf("Severity = %q, want Medium", rules[0].Severity)
				}
			},
		},
		{
			name: "empty values never erase user attributes",
			records: []ResolvedRecord{
				{RuleName: "A", User: "u", Team: "IT", RawDate: "2026-01-15", Activity: "export", Severity: SeverityHigh, Count: 1},
				{RuleName: "A", User: "u", Team: "", RawDate: "", Activity: "", Severity: SeverityHigh, Count: 1},
			},
			checkFunc: func(t *testing.T, rules []*RuleAggregate) {
				u := rules[0].Users[0]
				if u.Team != "IT" {
					t.Errorf("Team = %q, want IT", u.Team)
				}
				if u.SystemDate != "2026-01-15" {
					t.Errorf("SystemDate = %q, want 2026-01-15", u.SystemDate)
				}
				if u.ActivityDescription != "export" {
					t.Errorf("ActivityDescription = %q, want export", u.ActivityDescription)
				}
			},
		},
		{
			name: "later non-empty values overwrite",
			records: []ResolvedRecord{
				{RuleName: "A", User: "u", Team: "IT", Severity: SeverityLow, Count: 1},
				{RuleName: "A", User: "u", Team: "Security", Severity: SeverityLow, Count: 1},
			},
			checkFunc: func(t *testing.T, rules []*RuleAggregate) {
				if rules[0].Users[0].Team != "Security" {
					t.Errorf("Team = %q, want Security", rules[0].Users[0].Team)
				}
			},
		},
		{
			name: "user id mirrors user name",
			records: []ResolvedRecord{
				{RuleName: "A", User: "carol", Severity: SeverityLow, Count: 1},
			},
			checkFunc: func(t *testing.T, rules []*RuleAggregate) {
				u := rules[0].Users[0]
				if u.ID != "carol" || u.Name != "carol" {
					t.Errorf("id/name = %s/%s, want carol/carol", u.ID, u.Name)
				}
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.checkFunc(t, Aggregate(tt.records))
		})
	}
}

const sampleExport = `User_Name;Alarm_Detail;System_Date;Company;Activity_Description;Severity
alice;Splunk Alert Description: Mass Export | host=db01;2026-01-15 11:46:34;IT;bulk select;High
bob;Splunk Alert Description: Mass Export;2026-01-15 12:00:00;Finance;bulk select;High
alice;After Hours Login;2026-01-16 02:10:00;IT;login;Medium
carol;;2026-01-16 03:00:00;;;weird
`

func TestBuild(t *testing.T) {
	rules := Build(sampleExport)
	if len(rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(rules))
	}

	mass := rules[0]
	if mass.RuleName != "Mass Export" {
		t.Errorf("rule[0] = %q, want Mass Export", mass.RuleName)
	}
	if mass.TriggerCount != 2 || mass.AffectedUsersCount != 2 {
		t.Errorf("Mass Export count/users = %d/%d, want 2/2", mass.TriggerCount, mass.AffectedUsersCount)
	}
	if mass.Severity != SeverityHigh {
		t.Errorf("Mass Export severity = %q, want High", mass.Severity)
	}

	if rules[1].RuleName != "After Hours Login" {
		t.Errorf("rule[1] = %q, want After Hours Login", rules[1].RuleName)
	}

	unknown := rules[2]
	if unknown.RuleName != DefaultRuleName {
		t.Errorf("rule[2] = %q, want %q", unknown.RuleName, DefaultRuleName)
	}
	if unknown.Severity != SeverityLow {
		t.Errorf("unknown severity = %q, want Low", unknown.Severity)
	}
	if unknown.Users[0].Team != "" {
		t.Errorf("carol team = %q, want empty", unknown.Users[0].Team)
	}
}

func TestBuildEmptyTeamCellKeepsEarlierTeam(t *testing.T) {
	text := "username,alarmdetail,company\n" +
		"alice,Login Failure,TeamA\n" +
		"alice,Login Failure,\n"

	rules := Build(text)
	if len(rules) != 1 {
		t.Fatalf("got %d rules, want 1", len(rules))
	}
	if got := rules[0].Users[0].Team; got != "TeamA" {
		t.Errorf("Team = %q, want TeamA", got)
	}
}

func TestBuildDeterministic(t *testing.T) {
	first, err := json.Marshal(Build(sampleExport))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	second, err := json.Marshal(Build(sampleExport))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(first) != string(second) {
		t.Error("two builds of the same input produced different output")
	}
}

func TestBuildFromRecordsMatchesText(t *testing.T) {
	recs := []map[string]string{
		{
			"UserName":            "alice",
			"AlarmDetail":         "Splunk Alert Description: Mass Export | host=db01",
			"SystemDate":          "2026-01-15 11:46:34",
			"Company":             "IT",
			"ActivityDescription": "bulk select",
			"Severity":            "High",
		},
		{
			"UserName":            "bob",
			"AlarmDetail":         "After Hours Login",
			"SystemDate":          "2026-01-16 02:10:00",
			"Company":             "Finance",
			"ActivityDescription": "login",
			"Severity":            "Medium",
		},
	}

	text := "username;alarmdetail;systemdate;company;activitydescription;severity\n"
	for _, r := range recs {
		text += fmt.Sprintf("\"%s\";\"%s\";%s;%s;%s;%s\n",
			r["UserName"], r["AlarmDetail"], r["SystemDate"], r["Company"],
			r["ActivityDescription"], r["Severity"])
	}

	fromRecords, err := json.Marshal(BuildFromRecords(recs))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	fromText, err := json.Marshal(Build(text))
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(fromRecords) != string(fromText) {
		t.Errorf("record and text paths diverge:\n%s\n%s", fromRecords, fromText)
	}
}
