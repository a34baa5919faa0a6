package pipeline

import "fmt"

// UserAggregate is the per-user rollup inside one rule. SystemDate keeps
// the raw source text so downstream consumers see exactly what the
// export contained.
type UserAggregate struct {
	ID                  string   `json:"id"`
	Name                string   `json:"name"`
	Team                string   `json:"team"`
	SystemDate          string   `json:"systemDate"`
	ActivityDescription string   `json:"activityDescription"`
	Severity            Severity `json:"severity"`
	TriggerCount        int      `json:"triggerCount"`
}

// RuleAggregate is the per-rule rollup. IDs are assigned in first-seen
// order, starting at 1.
type RuleAggregate struct {
	ID                 string           `json:"id"`
	RuleName           string           `json:"ruleName"`
	Severity           Severity         `json:"severity"`
	TriggerCount       int              `json:"triggerCount"`
	AffectedUsersCount int              `json:"affectedUsersCount"`
	Users              []*UserAggregate `json:"users"`
}

type ruleEntry struct {
	rule      *RuleAggregate
	users     map[string]*UserAggregate
	userOrder []string
}

// Aggregate folds resolved records into rule aggregates keyed by rule
// name. Rule and user ordering follow first appearance in the input.
// Rule severity is last-write-wins: each record overwrites its rule's
// severity, so the final value comes from the rule's last record. User
// attributes only update from non-empty values, letting sparse rows fill
// gaps without erasing earlier data. AffectedUsersCount is derived from
// the distinct user set after the fold.
func Aggregate(records []ResolvedRecord) []*RuleAggregate {
	entries := make(map[string]*ruleEntry)
	var order []string

	for _, rec := range records {
		entry, ok := entries[rec.RuleName]
		if !ok {
			entry = &ruleEntry{
				rule: &RuleAggregate{
					ID:       fmt.Sprintf("imported-%d", len(order)+1),
					RuleName: rec.RuleName,
				},
				users: make(map[string]*UserAggregate),
			}
			entries[rec.RuleName] = entry
			order = append(order, rec.RuleName)
		}

		entry.rule.Severity = rec.Severity
		entry.rule.TriggerCount += rec.Count

		u, ok := entry.users[rec.User]
		if !ok {
			u = &UserAggregate{ID: rec.User, Name: rec.User}
			entry.users[rec.User] = u
			entry.userOrder = append(entry.userOrder, rec.User)
		}
		u.TriggerCount += rec.Count
		u.Severity = rec.Severity
		if rec.Team != "" {
			u.Team = rec.Team
		}
		if rec.RawDate != "" {
			u.SystemDate = rec.RawDate
		}
		if rec.Activity != "" {
			u.ActivityDescription = rec.Activity
		}
	}

	rules := make([]*RuleAggregate, 0, len(order))
	for _, name := range order {
		entry := entries[name]
		entry.rule.Users = make([]*UserAggregate, 0, len(entry.userOrder))
		for _, user := range entry.userOrder {
			entry.rule.Users = append(entry.rule.Users, entry.users[user])
		}
		entry.rule.AffectedUsersCount = len(entry.rule.Users)
		rules = append(rules, entry.rule)
	}
	return rules
}
