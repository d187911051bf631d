package anomaly

import (
	"fmt"
	"strings"

	dErrors "creditwatch/pkg/domain-errors"
)

// Trigger modes for the balance-change rule: fire when either threshold is
// crossed, or only when both are.
const (
	TriggerAny  = "any"
	TriggerBoth = "both"
)

// BalanceChangeConfig tunes the balance-change rule. The default thresholds
// and the any/both precedence are provisional pending product confirmation.
type BalanceChangeConfig struct {
	// MinDelta is the absolute balance change (currency units) considered
	// significant.
	MinDelta int64 `json:"min_delta"`
	// MinDeltaPct is the relative change considered significant, as a
	// fraction of the prior balance (0.10 = 10%).
	MinDeltaPct float64 `json:"min_delta_pct"`
	// TriggerMode selects how the two thresholds combine.
	TriggerMode string `json:"trigger_mode"`
}

// HardSearchConfig tunes the hard-search burst rule.
type HardSearchConfig struct {
	// WindowDays is the rolling lookback window.
	WindowDays int `json:"window_days"`
	// Threshold is the hard-search count above which the rule fires.
	Threshold int `json:"threshold"`
}

// CrossSourceConfig tunes cross-source discrepancy detection. A balance
// discrepancy is material when it exceeds BOTH tolerances; status mismatches
// are always material. Tolerances are provisional pending product
// confirmation.
type CrossSourceConfig struct {
	ToleranceAbs int64   `json:"tolerance_abs"`
	TolerancePct float64 `json:"tolerance_pct"`
	// PeriodDays bounds which imports count as the same reporting period.
	PeriodDays int `json:"period_days"`
}

// Config carries every rule's resolved parameters for one analysis run.
type Config struct {
	BalanceChange BalanceChangeConfig `json:"balance_change"`
	HardSearch    HardSearchConfig    `json:"hard_search"`
	CrossSource   CrossSourceConfig   `json:"cross_source"`
}

// DefaultConfig returns the documented defaults used when no override is
// supplied.
func DefaultConfig() Config {
	return Config{
		BalanceChange: BalanceChangeConfig{
			MinDelta:    500,
			MinDeltaPct: 0.10,
			TriggerMode: TriggerAny,
		},
		HardSearch: HardSearchConfig{
			WindowDays: 30,
			Threshold:  3,
		},
		CrossSource: CrossSourceConfig{
			ToleranceAbs: 100,
			TolerancePct: 0.05,
			PeriodDays:   31,
		},
	}
}

// Overrides is the caller-supplied partial configuration. Pointer fields
// distinguish "leave default" from explicit zero.
type Overrides struct {
	BalanceChange *BalanceChangeOverrides `json:"balance_change,omitempty"`
	HardSearch    *HardSearchOverrides    `json:"hard_search,omitempty"`
	CrossSource   *CrossSourceOverrides   `json:"cross_source,omitempty"`
}

type BalanceChangeOverrides struct {
	MinDelta    *int64   `json:"min_delta,omitempty"`
	MinDeltaPct *float64 `json:"min_delta_pct,omitempty"`
	TriggerMode *string  `json:"trigger_mode,omitempty"`
}

type HardSearchOverrides struct {
	WindowDays *int `json:"window_days,omitempty"`
	Threshold  *int `json:"threshold,omitempty"`
}

type CrossSourceOverrides struct {
	ToleranceAbs *int64   `json:"tolerance_abs,omitempty"`
	TolerancePct *float64 `json:"tolerance_pct,omitempty"`
	PeriodDays   *int     `json:"period_days,omitempty"`
}

// LoadConfig merges overrides onto the defaults, validating every supplied
// value. Invalid overrides fail fast with all violations listed rather than
// silently falling back, so misconfiguration is visible immediately.
func LoadConfig(o *Overrides) (Config, error) {
	cfg := DefaultConfig()
	if o == nil {
		return cfg, nil
	}

	var errs []string

	if bc := o.BalanceChange; bc != nil {
		if bc.MinDelta != nil {
			if *bc.MinDelta < 0 {
				errs = append(errs, "balance_change.min_delta must not be negative")
			} else {
				cfg.BalanceChange.MinDelta = *bc.MinDelta
			}
		}
		if bc.MinDeltaPct != nil {
			if *bc.MinDeltaPct < 0 {
				errs = append(errs, "balance_change.min_delta_pct must not be negative")
			} else {
				cfg.BalanceChange.MinDeltaPct = *bc.MinDeltaPct
			}
		}
		if bc.TriggerMode != nil {
			switch *bc.TriggerMode {
			case TriggerAny, TriggerBoth:
				cfg.BalanceChange.TriggerMode = *bc.TriggerMode
			default:
				errs = append(errs, fmt.Sprintf("balance_change.trigger_mode must be %q or %q", TriggerAny, TriggerBoth))
			}
		}
	}

	if hs := o.HardSearch; hs != nil {
		if hs.WindowDays != nil {
			if *hs.WindowDays <= 0 {
				errs = append(errs, "hard_search.window_days must be positive")
			} else {
				cfg.HardSearch.WindowDays = *hs.WindowDays
			}
		}
		if hs.Threshold != nil {
			if *hs.Threshold < 0 {
				errs = append(errs, "hard_search.threshold must not be negative")
			} else {
				cfg.HardSearch.Threshold = *hs.Threshold
			}
		}
	}

	if cs := o.CrossSource; cs != nil {
		if cs.ToleranceAbs != nil {
			if *cs.ToleranceAbs < 0 {
				errs = append(errs, "cross_source.tolerance_abs must not be negative")
			} else {
				cfg.CrossSource.ToleranceAbs = *cs.ToleranceAbs
			}
		}
		if cs.TolerancePct != nil {
			if *cs.TolerancePct < 0 {
				errs = append(errs, "cross_source.tolerance_pct must not be negative")
			} else {
				cfg.CrossSource.TolerancePct = *cs.TolerancePct
			}
		}
		if cs.PeriodDays != nil {
			if *cs.PeriodDays <= 0 {
				errs = append(errs, "cross_source.period_days must be positive")
			} else {
				cfg.CrossSource.PeriodDays = *cs.PeriodDays
			}
		}
	}

	if len(errs) > 0 {
		return Config{}, dErrors.New(dErrors.CodeBadRequest, "invalid anomaly config: "+strings.Join(errs, "; "))
	}
	return cfg, nil
}
