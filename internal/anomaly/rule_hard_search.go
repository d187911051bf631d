package anomaly

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"creditwatch/internal/report/models"
)

// evalHardSearch flags a burst of hard inquiries: more than the configured
// threshold inside the rolling lookback window ending at the evaluation
// reference time. Emits at most one insight citing the window and count.
func evalHardSearch(actx *Context, cfg HardSearchConfig) []Insight {
	if actx.AsOf.IsZero() {
		return nil
	}
	windowStart := actx.AsOf.Add(-time.Duration(cfg.WindowDays) * 24 * time.Hour)

	var (
		count    int
		latest   time.Time
		orgs     []string
		importID uuid.UUID
	)
	for _, sr := range actx.Searches {
		if sr.Type != models.SearchHard {
			continue
		}
		if sr.SearchedAt.Before(windowStart) || sr.SearchedAt.After(actx.AsOf) {
			continue
		}
		count++
		orgs = append(orgs, sr.Organisation)
		if sr.SearchedAt.After(latest) {
			latest = sr.SearchedAt
			importID = sr.ImportID
		}
	}
	if count <= cfg.Threshold {
		return nil
	}

	severity := SeverityMedium
	if cfg.Threshold > 0 && count >= 2*cfg.Threshold {
		severity = SeverityHigh
	}
	return []Insight{{
		Rule:     RuleHardSearch,
		Severity: severity,
		Message: fmt.Sprintf("%d hard searches in the last %d days (threshold %d)",
			count, cfg.WindowDays, cfg.Threshold),
		Evidence: map[string]any{
			"count":         count,
			"threshold":     cfg.Threshold,
			"window_days":   cfg.WindowDays,
			"window_start":  windowStart,
			"window_end":    actx.AsOf,
			"organisations": orgs,
		},
		ObservedAt: latest,
		ImportID:   importID,
	}}
}
