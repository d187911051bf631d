package anomaly

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"

	"golang.org/x/sync/singleflight"

	"creditwatch/internal/audit"
	"creditwatch/internal/platform/logger"
	"creditwatch/internal/platform/metrics"
	"creditwatch/internal/report/models"
	"creditwatch/internal/report/store"
	dErrors "creditwatch/pkg/domain-errors"
)

// Service loads a subject's timeline, builds the analysis context, and runs
// the engine. Analysis is read-only; results belong to the caller and are
// never persisted here.
type Service struct {
	store   store.Store
	engine  *Engine
	group   singleflight.Group
	auditor *audit.Publisher
	metrics *metrics.Metrics
	log     *slog.Logger
	now     func() time.Time
}

type ServiceOption func(s *Service)

func WithLogger(log *slog.Logger) ServiceOption {
	return func(s *Service) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) ServiceOption {
	return func(s *Service) { s.metrics = m }
}

func WithAudit(p *audit.Publisher) ServiceOption {
	return func(s *Service) { s.auditor = p }
}

func WithClock(now func() time.Time) ServiceOption {
	return func(s *Service) { s.now = now }
}

func NewService(st store.Store, engine *Engine, opts ...ServiceOption) *Service {
	s := &Service{
		store:  st,
		engine: engine,
		log:    logger.NewNop(),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Analyze runs the full rule registry for one subject. Identical concurrent
// requests (same subject and overrides) are collapsed into one evaluation.
func (s *Service) Analyze(ctx context.Context, subjectID string, overrides *Overrides) (*Result, error) {
	if subjectID == "" {
		return nil, dErrors.New(dErrors.CodeBadRequest, "subject id is required")
	}
	cfg, err := LoadConfig(overrides)
	if err != nil {
		return nil, err
	}

	key := flightKey(subjectID, overrides)
	v, err, _ := s.group.Do(key, func() (any, error) {
		return s.analyze(ctx, subjectID, cfg)
	})
	if err != nil {
		return nil, err
	}
	return v.(*Result), nil
}

func (s *Service) analyze(ctx context.Context, subjectID string, cfg Config) (*Result, error) {
	start := s.now()

	actx, err := s.buildContext(ctx, subjectID)
	if err != nil {
		return nil, err
	}

	res := s.engine.Run(ctx, actx, cfg, nil)

	if s.metrics != nil {
		s.metrics.AnalysisRuns.Inc()
		s.metrics.AnalysisDuration.Observe(s.now().Sub(start).Seconds())
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionAnalysisCompleted,
		SubjectID: subjectID,
		Detail: map[string]any{
			"insights":    len(res.Insights),
			"rule_errors": len(res.RuleErrors),
		},
	})
	s.log.InfoContext(ctx, "analysis completed",
		"subject_id", subjectID,
		"insights", len(res.Insights),
		"rule_errors", len(res.RuleErrors),
	)
	return res, nil
}

func (s *Service) buildContext(ctx context.Context, subjectID string) (*Context, error) {
	imports, err := s.store.ListImports(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load imports")
	}
	if len(imports) == 0 {
		return nil, dErrors.New(dErrors.CodeNotFound, "no imports recorded for subject")
	}

	tradelines := make(map[string][]models.Tradeline, len(imports))
	for _, imp := range imports {
		lines, err := s.store.ListTradelinesByImport(ctx, imp.ID)
		if err != nil {
			return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load tradelines")
		}
		tradelines[imp.ID.String()] = lines
	}

	searches, err := s.store.ListSearches(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load searches")
	}
	scores, err := s.store.ListScores(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load scores")
	}
	records, err := s.store.ListPublicRecords(ctx, subjectID)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "load public records")
	}

	return BuildContext(subjectID, imports, tradelines, searches, scores, records), nil
}

// flightKey folds the override set into the singleflight key so different
// configurations never share a result.
func flightKey(subjectID string, overrides *Overrides) string {
	if overrides == nil {
		return subjectID
	}
	raw, err := json.Marshal(overrides)
	if err != nil {
		return subjectID
	}
	return subjectID + ":" + string(raw)
}
