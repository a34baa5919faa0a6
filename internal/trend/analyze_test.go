package trend

import (
	"testing"

	"github.com/mervekesknn/db-protection-insight/internal/pipeline"
)

func sampleRules() []*pipeline.RuleAggregate {
	return []*pipeline.RuleAggregate{
		{
			ID:                 "imported-1",
			RuleName:           "Mass Export",
			Severity:           pipeline.SeverityHigh,
			TriggerCount:       5,
			AffectedUsersCount: 2,
			Users: []*pipeline.UserAggregate{
				{ID: "alice", Name: "alice", Team: "IT", SystemDate: "2026-01-15 11:46:34", TriggerCount: 3},
				{ID: "bob", Name: "bob", Team: "Finance", SystemDate: "2026-01-16", TriggerCount: 2},
			},
		},
		{
			ID:                 "imported-2",
			RuleName:           "After Hours Login",
			Severity:           pipeline.SeverityMedium,
			TriggerCount:       8,
			AffectedUsersCount: 1,
			Users: []*pipeline.UserAggregate{
				{ID: "alice", Name: "alice", Team: "IT", SystemDate: "2026-01-16 02:10:00", TriggerCount: 8},
			},
		},
		{
			ID:                 "imported-3",
			RuleName:           "Unknown Rule",
			Severity:           pipeline.SeverityLow,
			TriggerCount:       1,
			AffectedUsersCount: 1,
			Users: []*pipeline.UserAggregate{
				{ID: "carol", Name: "carol", SystemDate: "not a date", TriggerCount: 1},
			},
		},
	}
}

func TestAnalyze(t *testing.T) {
	report := Analyze(sampleRules())

	if len(report.Rules) != 3 {
		t.Fatalf("got %d rules, want 3", len(report.Rules))
	}
	// Ranked by trigger count descending.
	if report.Rules[0].RuleName != "After Hours Login" {
		t.Errorf("top rule = %q, want After Hours Login", report.Rules[0].RuleName)
	}
	if report.Rules[1].RuleName != "Mass Export" {
		t.Errorf("second rule = %q, want Mass Export", report.Rules[1].RuleName)
	}

	mass := report.Rules[1]
	if mass.Index.Daily["2026-01-15"] != 3 {
		t.Errorf("Mass Export Daily[2026-01-15] = %d, want 3", mass.Index.Daily["2026-01-15"])
	}
	if mass.Index.Daily["2026-01-16"] != 2 {
		t.Errorf("Mass Export Daily[2026-01-16] = %d, want 2", mass.Index.Daily["2026-01-16"])
	}

	if len(report.Users) != 3 {
		t.Fatalf("got %d users, want 3", len(report.Users))
	}
	alice := report.Users[0]
	if alice.Name != "alice" || alice.TriggerCount != 11 || alice.RuleCount != 2 {
		t.Errorf("top user = %s/%d/%d, want alice/11/2", alice.Name, alice.TriggerCount, alice.RuleCount)
	}
	if alice.Index.Daily["2026-01-16"] != 8 {
		t.Errorf("alice Daily[2026-01-16] = %d, want 8", alice.Index.Daily["2026-01-16"])
	}

	// carol's date never parsed: counted in totals, absent from buckets.
	if report.Unindexed != 1 {
		t.Errorf("Unindexed = %d, want 1", report.Unindexed)
	}
	carol := report.Users[2]
	if carol.TriggerCount != 1 || carol.Index.Total() != 0 {
		t.Errorf("carol totals = %d/%d, want 1/0", carol.TriggerCount, carol.Index.Total())
	}
}

func TestTopRules(t *testing.T) {
	report := Analyze(sampleRules())

	top := report.TopRules(2, "")
	if len(top) != 2 || top[0].RuleName != "After Hours Login" {
		t.Errorf("TopRules(2) = %v, want After Hours Login first", top)
	}

	filtered := report.TopRules(0, "mass")
	if len(filtered) != 1 || filtered[0].RuleName != "Mass Export" {
		t.Errorf("TopRules(0, mass) matched %d, want Mass Export only", len(filtered))
	}

	none := report.TopRules(0, "no such rule")
	if len(none) != 0 {
		t.Errorf("got %d matches, want 0", len(none))
	}
}

func TestTopUsers(t *testing.T) {
	report := Analyze(sampleRules())

	top := report.TopUsers(1, "")
	if len(top) != 1 || top[0].Name != "alice" {
		t.Errorf("TopUsers(1) = %v, want alice", top)
	}

	filtered := report.TopUsers(0, "CAROL")
	if len(filtered) != 1 || filtered[0].Name != "carol" {
		t.Errorf("case-insensitive filter matched %d, want carol", len(filtered))
	}
}
