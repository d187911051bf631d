package anomaly

import "fmt"

// evalNewTradeline flags accounts in the latest snapshot with no matching
// account identity in any prior snapshot. A subject's first snapshot is
// baseline, not news: with no prior import to diff against, nothing fires.
func evalNewTradeline(actx *Context) []Insight {
	cur := actx.Current()
	if cur == nil || actx.Prior() == nil {
		return nil
	}

	known := knownAccounts(actx.Snapshots[:len(actx.Snapshots)-1])

	var insights []Insight
	seen := make(map[string]bool)
	for _, t := range cur.Tradelines {
		key := t.AccountKey()
		if known[key] || seen[key] {
			continue
		}
		seen[key] = true
		insights = append(insights, Insight{
			Rule:     RuleNewTradeline,
			Severity: SeverityMedium,
			Message:  fmt.Sprintf("new %s account with %s", t.AccountType, t.Lender),
			Evidence: map[string]any{
				"lender":         t.Lender,
				"account_number": t.AccountNumber,
				"account_type":   t.AccountType,
				"balance":        t.Balance,
				"source_system":  t.SourceSystem,
			},
			ObservedAt: cur.ReportedAt,
			ImportID:   t.ImportID,
		})
	}
	return insights
}
