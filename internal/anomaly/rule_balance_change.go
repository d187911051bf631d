package anomaly

import (
	"fmt"
	"math"
)

// evalBalanceChange flags accounts whose balance moved between consecutive
// snapshots by more than the configured absolute or percentage threshold,
// combined per the trigger mode. Accounts are diffed per source system so a
// genuine cross-source difference does not masquerade as movement.
func evalBalanceChange(actx *Context, cfg BalanceChangeConfig) []Insight {
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
		delta := t.Balance - before.Balance
		if delta == 0 {
			continue
		}
		absDelta := delta
		if absDelta < 0 {
			absDelta = -absDelta
		}
		base := math.Abs(float64(before.Balance))
		if base == 0 {
			base = 1
		}
		pct := float64(absDelta) / base

		absHit := absDelta >= cfg.MinDelta
		pctHit := pct >= cfg.MinDeltaPct
		fired := absHit || pctHit
		if cfg.TriggerMode == TriggerBoth {
			fired = absHit && pctHit
		}
		if !fired {
			continue
		}

		severity := SeverityMedium
		if absDelta >= 2*cfg.MinDelta || pct >= 2*cfg.MinDeltaPct {
			severity = SeverityHigh
		}
		direction := "increased"
		if delta < 0 {
			direction = "decreased"
		}
		insights = append(insights, Insight{
			Rule:     RuleBalanceChange,
			Severity: severity,
			Message: fmt.Sprintf("balance on %s account %s %s from %d to %d",
				t.Lender, t.AccountNumber, direction, before.Balance, t.Balance),
			Evidence: map[string]any{
				"lender":           t.Lender,
				"account_number":   t.AccountNumber,
				"source_system":    t.SourceSystem,
				"previous_balance": before.Balance,
				"current_balance":  t.Balance,
				"delta":            delta,
				"delta_pct":        pct,
			},
			ObservedAt: cur.ReportedAt,
			ImportID:   t.ImportID,
		})
	}
	return insights
}
