package anomaly

import (
	"fmt"

	"creditwatch/internal/report/models"
)

// evalPaymentDegradation flags accounts whose payment status moved to a
// strictly worse position on the delinquency scale between consecutive
// snapshots. Improvements are never flagged.
func evalPaymentDegradation(actx *Context) []Insight {
	cur, prior := actx.Current(), actx.Prior()
	if cur == nil || prior == nil {
		return nil
	}

	prev := indexTradelines(prior.Tradelines)

	var insights []Insight
	for _, t := range cur.Tradelines {
		before, ok := prev[tradelineKey{source: t.SourceSystem, account: t.AccountKey()}]
		if !ok {
			continue
		}
		curRank, prevRank := t.PaymentStatus.Rank(), before.PaymentStatus.Rank()
		if curRank < 0 || prevRank < 0 || curRank <= prevRank {
			continue
		}

		severity := SeverityMedium
		if curRank-prevRank >= 2 || t.PaymentStatus.Rank() >= models.PaymentDefault.Rank() {
			severity = SeverityHigh
		}
		insights = append(insights, Insight{
			Rule:     RulePaymentDegradation,
			Severity: severity,
			Message: fmt.Sprintf("payment status on %s account %s worsened from %s to %s",
				t.Lender, t.AccountNumber, before.PaymentStatus, t.PaymentStatus),
			Evidence: map[string]any{
				"lender":          t.Lender,
				"account_number":  t.AccountNumber,
				"source_system":   t.SourceSystem,
				"previous_status": string(before.PaymentStatus),
				"current_status":  string(t.PaymentStatus),
				"steps":           curRank - prevRank,
			},
			ObservedAt: cur.ReportedAt,
			ImportID:   t.ImportID,
		})
	}
	return insights
}
