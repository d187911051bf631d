package anomaly

// RuleKind names one anomaly rule. The set is closed; Rules enumerates it
// in registration order.
type RuleKind string

const (
	RuleNewTradeline       RuleKind = "new_tradeline"
	RuleBalanceChange      RuleKind = "balance_change"
	RulePaymentDegradation RuleKind = "payment_status_degradation"
	RuleStatusChange       RuleKind = "status_change"
	RuleHardSearch         RuleKind = "hard_search"
	RuleCrossSource        RuleKind = "cross_source_discrepancy"
)

// Rule pairs a kind with its evaluator. Evaluators are pure: the same
// context and config always yield the same insights, enabling re-analysis
// without re-ingestion.
type Rule struct {
	Kind     RuleKind
	Evaluate func(actx *Context, cfg Config) []Insight
}

// Rules returns the full registry in fixed registration order. Callers must
// not rely on this order for output order; the engine sorts its result.
func Rules() []Rule {
	return []Rule{
		{Kind: RuleNewTradeline, Evaluate: func(a *Context, _ Config) []Insight {
			return evalNewTradeline(a)
		}},
		{Kind: RuleBalanceChange, Evaluate: func(a *Context, c Config) []Insight {
			return evalBalanceChange(a, c.BalanceChange)
		}},
		{Kind: RulePaymentDegradation, Evaluate: func(a *Context, _ Config) []Insight {
			return evalPaymentDegradation(a)
		}},
		{Kind: RuleStatusChange, Evaluate: func(a *Context, _ Config) []Insight {
			return evalStatusChange(a)
		}},
		{Kind: RuleHardSearch, Evaluate: func(a *Context, c Config) []Insight {
			return evalHardSearch(a, c.HardSearch)
		}},
		{Kind: RuleCrossSource, Evaluate: func(a *Context, c Config) []Insight {
			return evalCrossSource(a, c.CrossSource)
		}},
	}
}
