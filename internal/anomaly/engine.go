package anomaly

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"creditwatch/internal/platform/logger"
	"creditwatch/internal/platform/metrics"
)

// Engine runs the rule registry against one analysis context. Evaluation is
// fail-soft: a rule that panics or reports an error is recorded against its
// rule id and the remaining rules still run, so one buggy rule cannot blind
// the system to the others.
type Engine struct {
	log     *slog.Logger
	metrics *metrics.Metrics
	tracer  trace.Tracer
}

type EngineOption func(e *Engine)

func WithEngineLogger(log *slog.Logger) EngineOption {
	return func(e *Engine) { e.log = log }
}

func WithEngineMetrics(m *metrics.Metrics) EngineOption {
	return func(e *Engine) { e.metrics = m }
}

func NewEngine(opts ...EngineOption) *Engine {
	e := &Engine{
		log:    logger.NewNop(),
		tracer: otel.Tracer("creditwatch/anomaly"),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Run evaluates the given rules (the full registry when nil) against the
// context. The result is sorted severity descending, then observed-at
// descending, then rule id, so output order never depends on registration
// order. Deterministic: the same context and config produce the same set.
func (e *Engine) Run(ctx context.Context, actx *Context, cfg Config, rules []Rule) *Result {
	ctx, span := e.tracer.Start(ctx, "anomaly.Run")
	defer span.End()

	if rules == nil {
		rules = Rules()
	}

	res := &Result{SeverityCounts: make(map[Severity]int)}
	for _, rule := range rules {
		insights, err := e.runRule(ctx, rule, actx, cfg)
		if err != nil {
			res.RuleErrors = append(res.RuleErrors, RuleError{Rule: rule.Kind, Error: err.Error()})
			e.log.ErrorContext(ctx, "rule evaluation failed",
				"rule", string(rule.Kind),
				"subject_id", actx.SubjectID,
				"error", err.Error(),
			)
			if e.metrics != nil {
				e.metrics.RuleFailures.WithLabelValues(string(rule.Kind)).Inc()
			}
			continue
		}
		res.Insights = append(res.Insights, insights...)
	}

	sort.SliceStable(res.Insights, func(i, j int) bool {
		a, b := res.Insights[i], res.Insights[j]
		if a.Severity.Rank() != b.Severity.Rank() {
			return a.Severity.Rank() > b.Severity.Rank()
		}
		if !a.ObservedAt.Equal(b.ObservedAt) {
			return a.ObservedAt.After(b.ObservedAt)
		}
		return a.Rule < b.Rule
	})

	for _, in := range res.Insights {
		res.SeverityCounts[in.Severity]++
		if e.metrics != nil {
			e.metrics.InsightsDetected.WithLabelValues(string(in.Rule), string(in.Severity)).Inc()
		}
	}
	return res
}

// runRule isolates one rule evaluation, converting panics into errors.
func (e *Engine) runRule(_ context.Context, rule Rule, actx *Context, cfg Config) (insights []Insight, err error) {
	defer func() {
		if rec := recover(); rec != nil {
			insights = nil
			err = fmt.Errorf("rule panicked: %v", rec)
		}
	}()
	return rule.Evaluate(actx, cfg), nil
}
