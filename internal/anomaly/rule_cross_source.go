package anomaly

import (
	"fmt"
	"math"
	"sort"
	"time"

	"creditwatch/internal/report/models"
)

// evalCrossSource flags the same account reporting materially different
// balance or status across two source systems within one reporting period.
// A balance discrepancy is material when it exceeds both the absolute and
// relative tolerance; status mismatches are always material.
func evalCrossSource(actx *Context, cfg CrossSourceConfig) []Insight {
	if actx.AsOf.IsZero() {
		return nil
	}
	periodStart := actx.AsOf.Add(-time.Duration(cfg.PeriodDays) * 24 * time.Hour)

	// Latest view of each account per source within the period.
	latest := make(map[tradelineKey]models.Tradeline)
	for _, snap := range actx.Snapshots {
		if snap.ReportedAt.Before(periodStart) {
			continue
		}
		for _, t := range snap.Tradelines {
			latest[tradelineKey{source: t.SourceSystem, account: t.AccountKey()}] = t
		}
	}

	bySources := make(map[string][]models.Tradeline)
	for key, t := range latest {
		bySources[key.account] = append(bySources[key.account], t)
	}

	accounts := make([]string, 0, len(bySources))
	for account := range bySources {
		accounts = append(accounts, account)
	}
	sort.Strings(accounts)

	var insights []Insight
	for _, account := range accounts {
		lines := bySources[account]
		if len(lines) < 2 {
			continue
		}
		sort.Slice(lines, func(i, j int) bool { return lines[i].SourceSystem < lines[j].SourceSystem })

		for i := 0; i < len(lines); i++ {
			for j := i + 1; j < len(lines); j++ {
				a, b := lines[i], lines[j]
				if a.SourceSystem == b.SourceSystem {
					continue
				}
				if insight, ok := compareSources(a, b, cfg, actx.AsOf); ok {
					insights = append(insights, insight)
				}
			}
		}
	}
	return insights
}

func compareSources(a, b models.Tradeline, cfg CrossSourceConfig, asOf time.Time) (Insight, bool) {
	var discrepancies []string
	evidence := map[string]any{
		"lender":         a.Lender,
		"account_number": a.AccountNumber,
		"sources":        []string{a.SourceSystem, b.SourceSystem},
	}
	severity := SeverityMedium

	diff := a.Balance - b.Balance
	absDiff := diff
	if absDiff < 0 {
		absDiff = -absDiff
	}
	base := math.Max(math.Abs(float64(a.Balance)), math.Abs(float64(b.Balance)))
	if base == 0 {
		base = 1
	}
	if absDiff > cfg.ToleranceAbs && float64(absDiff)/base > cfg.TolerancePct {
		discrepancies = append(discrepancies, "balance")
		evidence["balances"] = map[string]int64{a.SourceSystem: a.Balance, b.SourceSystem: b.Balance}
	}
	if a.AccountStatus != b.AccountStatus {
		discrepancies = append(discrepancies, "account_status")
		evidence["account_statuses"] = map[string]string{
			a.SourceSystem: string(a.AccountStatus),
			b.SourceSystem: string(b.AccountStatus),
		}
		severity = SeverityHigh
	}
	if a.PaymentStatus != b.PaymentStatus {
		discrepancies = append(discrepancies, "payment_status")
		evidence["payment_statuses"] = map[string]string{
			a.SourceSystem: string(a.PaymentStatus),
			b.SourceSystem: string(b.PaymentStatus),
		}
		severity = SeverityHigh
	}
	if len(discrepancies) == 0 {
		return Insight{}, false
	}

	evidence["discrepancies"] = discrepancies
	return Insight{
		Rule:     RuleCrossSource,
		Severity: severity,
		Message: fmt.Sprintf("%s account %s reported differently by %s and %s",
			a.Lender, a.AccountNumber, a.SourceSystem, b.SourceSystem),
		Evidence:   evidence,
		ObservedAt: asOf,
		ImportID:   a.ImportID,
	}, true
}
