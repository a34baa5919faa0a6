package trend

import (
	"sort"
	"strings"

	"github.com/mervekesknn/db-protection-insight/internal/pipeline"
)

// RuleStats is one rule's ranked view: the aggregate totals plus its
// temporal index.
type RuleStats struct {
	ID                 string            `json:"id"`
	RuleName           string            `json:"ruleName"`
	Severity           pipeline.Severity `json:"severity"`
	TriggerCount       int               `json:"triggerCount"`
	AffectedUsersCount int               `json:"affectedUsersCount"`
	Index              *Index            `json:"index"`
}

// UserStats is one user's ranked view across all rules.
type UserStats struct {
	Name         string `json:"name"`
	Team         string `json:"team"`
	TriggerCount int    `json:"triggerCount"`
	RuleCount    int    `json:"ruleCount"`
	Index        *Index `json:"index"`
}

// Report is the analyzed snapshot: every rule and user with totals and
// indexes, ranked by trigger count descending. Unindexed counts firings
// whose date never parsed; they are present in trigger counts but absent
// from every bucket.
type Report struct {
	Rules     []*RuleStats `json:"rules"`
	Users     []*UserStats `json:"users"`
	Unindexed int          `json:"unindexed"`
}

// Analyze builds a Report from rule aggregates. User dates come from the
// per-user systemDate text and are re-parsed here; a user row without a
// parseable date contributes to totals but not to any bucket. Ties keep
// first-seen order.
func Analyze(rules []*pipeline.RuleAggregate) *Report {
	report := &Report{}

	users := make(map[string]*UserStats)
	var userOrder []string

	for _, rule := range rules {
		rs := &RuleStats{
			ID:                 rule.ID,
			RuleName:           rule.RuleName,
			Severity:           rule.Severity,
			TriggerCount:       rule.TriggerCount,
			AffectedUsersCount: rule.AffectedUsersCount,
			Index:              NewIndex(),
		}

		for _, u := range rule.Users {
			us, ok := users[u.Name]
			if !ok {
				us = &UserStats{Name: u.Name, Index: NewIndex()}
				users[u.Name] = us
				userOrder = append(userOrder, u.Name)
			}
			us.TriggerCount += u.TriggerCount
			us.RuleCount++
			if u.Team != "" {
				us.Team = u.Team
			}

			t := pipeline.ParseDate(u.SystemDate)
			if t == nil {
				report.Unindexed += u.TriggerCount
				continue
			}
			rs.Index.Add(*t, u.TriggerCount)
			us.Index.Add(*t, u.TriggerCount)
		}

		report.Rules = append(report.Rules, rs)
	}

	for _, name := range userOrder {
		report.Users = append(report.Users, users[name])
	}

	sort.SliceStable(report.Rules, func(i, j int) bool {
		return report.Rules[i].TriggerCount > report.Rules[j].TriggerCount
	})
	sort.SliceStable(report.Users, func(i, j int) bool {
		return report.Users[i].TriggerCount > report.Users[j].TriggerCount
	})

	return report
}

// TopRules returns up to n rules, optionally filtered by a
// case-insensitive substring match on the rule name.
func (r *Report) TopRules(n int, query string) []*RuleStats {
	out := make([]*RuleStats, 0, n)
	q := strings.ToLower(query)
	for _, rs := range r.Rules {
		if q != "" && !strings.Contains(strings.ToLower(rs.RuleName), q) {
			continue
		}
		out = append(out, rs)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}

// TopUsers returns up to n users, optionally filtered by a
// case-insensitive substring match on the user name.
func (r *Report) TopUsers(n int, query string) []*UserStats {
	out := make([]*UserStats, 0, n)
	q := strings.ToLower(query)
	for _, us := range r.Users {
		if q != "" && !strings.Contains(strings.ToLower(us.Name), q) {
			continue
		}
		out = append(out, us)
		if n > 0 && len(out) == n {
			break
		}
	}
	return out
}
