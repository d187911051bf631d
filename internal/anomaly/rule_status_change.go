package anomaly

import (
	"fmt"

	"creditwatch/internal/report/models"
)

// evalStatusChange flags account-status transitions between consecutive
// snapshots, independent of payment status. Reopened accounts rank higher
// than closures since they more often indicate bureau error or fraud.
func evalStatusChange(actx *Context) []Insight {
	cur, prior := actx.Current(), actx.Prior()
	if cur == nil || prior == nil {
		return nil
	}

	prev := indexTradelines(prior.Tradelines)

	var insights []Insight
	for _, t := range cur.Tradelines {
		before, ok := prev[tradelineKey{source: t.SourceSystem, account: t.AccountKey()}]
		if !ok || before.AccountStatus == t.AccountStatus {
			continue
		}

		severity := SeverityLow
		switch {
		case t.AccountStatus == models.AccountDefaulted:
			severity = SeverityHigh
		case before.AccountStatus == models.AccountClosed && t.AccountStatus == models.AccountOpen:
			severity = SeverityMedium
		}
		insights = append(insights, Insight{
			Rule:     RuleStatusChange,
			Severity: severity,
			Message: fmt.Sprintf("%s account %s changed status from %s to %s",
				t.Lender, t.AccountNumber, before.AccountStatus, t.AccountStatus),
			Evidence: map[string]any{
				"lender":          t.Lender,
				"account_number":  t.AccountNumber,
				"source_system":   t.SourceSystem,
				"previous_status": string(before.AccountStatus),
				"current_status":  string(t.AccountStatus),
			},
			ObservedAt: cur.ReportedAt,
			ImportID:   t.ImportID,
		})
	}
	return insights
}
