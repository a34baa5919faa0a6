package pipeline

// Source-key priority tables. For each canonical output field the first
// key with a present, non-empty value wins; otherwise the caller-supplied
// fallback applies. The order is fixed and load-bearing: "alarmdetail"
// beats "activitydescription" even when both are populated.
var (
	ruleNameKeys = []string{"alarmdetail", "alarm", "alarmdescription", "activitydescription"}
	userKeys     = []string{"username", "user", "useremail"}
	teamKeys     = []string{"company", "team"}
	dateKeys     = []string{"systemdate", "date"}
	activityKeys = []string{"activitydescription", "activity", "description"}
	severityKeys = []string{"severity"}
	countKeys    = []string{"count", "triggercount", "occurrences"}
)

// Resolve returns the value of the first key in keys that is present and
// non-empty, or fallback when none qualifies.
func (r RawRow) Resolve(keys []string, fallback string) string {
	for _, k := range keys {
		if v, ok := r[k]; ok && v != "" {
			return v
		}
	}
	return fallback
}
