package anomaly

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	dErrors "creditwatch/pkg/domain-errors"
)

func ptr[T any](v T) *T { return &v }

func TestLoadConfigDefaults(t *testing.T) {
	cfg, err := LoadConfig(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultConfig(), cfg)
}

func TestLoadConfigMergesOverrides(t *testing.T) {
	cfg, err := LoadConfig(&Overrides{
		BalanceChange: &BalanceChangeOverrides{MinDelta: ptr(int64(1000)), TriggerMode: ptr(TriggerBoth)},
		HardSearch:    &HardSearchOverrides{Threshold: ptr(5)},
	})
	require.NoError(t, err)

	assert.Equal(t, int64(1000), cfg.BalanceChange.MinDelta)
	assert.Equal(t, TriggerBoth, cfg.BalanceChange.TriggerMode)
	assert.Equal(t, 5, cfg.HardSearch.Threshold)
	// Untouched fields keep defaults.
	assert.Equal(t, 0.10, cfg.BalanceChange.MinDeltaPct)
	assert.Equal(t, 30, cfg.HardSearch.WindowDays)
	assert.Equal(t, DefaultConfig().CrossSource, cfg.CrossSource)
}

// Invalid overrides fail fast rather than silently falling back, and every
// violation is reported at once.
func TestLoadConfigRejectsInvalidOverrides(t *testing.T) {
	_, err := LoadConfig(&Overrides{
		BalanceChange: &BalanceChangeOverrides{MinDelta: ptr(int64(-1)), TriggerMode: ptr("either")},
		HardSearch:    &HardSearchOverrides{WindowDays: ptr(0)},
	})
	require.Error(t, err)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeBadRequest))
	assert.Contains(t, err.Error(), "balance_change.min_delta")
	assert.Contains(t, err.Error(), "balance_change.trigger_mode")
	assert.Contains(t, err.Error(), "hard_search.window_days")
}

func TestLoadConfigAllowsZeroThreshold(t *testing.T) {
	cfg, err := LoadConfig(&Overrides{HardSearch: &HardSearchOverrides{Threshold: ptr(0)}})
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.HardSearch.Threshold)
}
