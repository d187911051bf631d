// Package ingest implements the ingestion transaction pipeline: schema
// validation, content-hash deduplication, and all-or-nothing insertion of a
// payload's entities with provenance derived from their import blocks.
package ingest

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/trace"

	"creditwatch/internal/audit"
	"creditwatch/internal/platform/logger"
	"creditwatch/internal/platform/metrics"
	"creditwatch/internal/report/models"
	"creditwatch/internal/report/payload"
	"creditwatch/internal/report/store"
	dErrors "creditwatch/pkg/domain-errors"
)

// Service orchestrates one ingestion call end to end.
type Service struct {
	store store.Store
	tx    store.Tx
	locks *subjectLocks

	cache   DedupCache
	auditor *audit.Publisher
	metrics *metrics.Metrics
	log     *slog.Logger
	tracer  trace.Tracer
	now     func() time.Time
}

type Option func(s *Service)

func WithLogger(log *slog.Logger) Option {
	return func(s *Service) { s.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) { s.metrics = m }
}

func WithAudit(p *audit.Publisher) Option {
	return func(s *Service) { s.auditor = p }
}

func WithDedupCache(c DedupCache) Option {
	return func(s *Service) { s.cache = c }
}

// WithClock overrides time.Now for tests.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

func NewService(st store.Store, tx store.Tx, opts ...Option) *Service {
	s := &Service{
		store:  st,
		tx:     tx,
		locks:  newSubjectLocks(),
		log:    logger.NewNop(),
		tracer: otel.Tracer("creditwatch/ingest"),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Ingest validates and persists one raw credit-report document.
//
// Validation failures come back as a non-success Result with one error per
// violation and no transaction opened. A payload whose content hash was
// already ingested for the subject resolves as an idempotent success with
// the prior entity counts. Storage failures roll the transaction back and
// propagate as an error; partial writes are never observable.
func (s *Service) Ingest(ctx context.Context, raw []byte) (*Result, error) {
	ctx, span := s.tracer.Start(ctx, "ingest.Ingest")
	defer span.End()
	start := s.now()

	p, fieldErrs := payload.Validate(raw)
	if len(fieldErrs) > 0 {
		s.countRejected()
		s.log.InfoContext(ctx, "payload rejected",
			"violations", len(fieldErrs),
		)
		return &Result{Success: false, Errors: fieldErrs}, nil
	}

	hash, err := payload.ContentHash(raw)
	if err != nil {
		// Unreachable for a payload that passed validation.
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "content hash failed")
	}

	// Hold the subject lock across dedup check and transaction so two
	// concurrent identical ingests cannot both pass the check.
	unlock := s.locks.lock(p.SubjectID)
	defer unlock()

	if res, err := s.resolveDuplicate(ctx, p.SubjectID, hash); err != nil {
		return nil, err
	} else if res != nil {
		return res, nil
	}

	ic := newIngestContext(p, hash, s.now())
	if err := s.tx.RunInTx(ctx, func(st store.Store) error {
		return ic.run(ctx, st)
	}); err != nil {
		s.countFailure()
		s.log.ErrorContext(ctx, "ingestion rolled back",
			"subject_id", p.SubjectID,
			"error", err.Error(),
		)
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "ingestion failed")
	}

	res := &Result{
		Success:      true,
		EntityCounts: ic.counts,
		ImportIDs:    ic.importIDs,
	}
	s.recordSuccess(ctx, p.SubjectID, hash, res, s.now().Sub(start))
	return res, nil
}

// resolveDuplicate returns the idempotent result when the payload hash is
// already recorded for the subject, nil when the payload is new.
func (s *Service) resolveDuplicate(ctx context.Context, subjectID, hash string) (*Result, error) {
	if s.cache != nil {
		if res, ok := s.cache.Get(ctx, subjectID, hash); ok {
			s.markDuplicate(ctx, subjectID, res)
			return res, nil
		}
	}

	existing, err := s.store.FindImportsByPayloadHash(ctx, subjectID, hash)
	if errors.Is(err, store.ErrNotFound) || dErrors.HasCode(err, dErrors.CodeNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "dedup lookup failed")
	}

	counts := models.EntityCounts{}
	res := &Result{Success: true, Duplicate: true, EntityCounts: counts}
	for _, imp := range existing {
		counts.Merge(imp.EntityCounts)
		res.ImportIDs = append(res.ImportIDs, imp.ID)
	}
	s.markDuplicate(ctx, subjectID, res)
	return res, nil
}

func (s *Service) markDuplicate(ctx context.Context, subjectID string, res *Result) {
	res.Duplicate = true
	if s.metrics != nil {
		s.metrics.ReportsDuplicate.Inc()
	}
	s.log.InfoContext(ctx, "duplicate payload resolved as success",
		"subject_id", subjectID,
	)
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionReportDuplicate,
		SubjectID: subjectID,
		ImportIDs: res.ImportIDs,
	})
}

func (s *Service) recordSuccess(ctx context.Context, subjectID, hash string, res *Result, elapsed time.Duration) {
	if s.metrics != nil {
		s.metrics.ReportsIngested.Inc()
		s.metrics.IngestDuration.Observe(elapsed.Seconds())
		for entity, n := range res.EntityCounts {
			s.metrics.EntitiesInserted.WithLabelValues(entity).Add(float64(n))
		}
	}
	if s.cache != nil {
		s.cache.Put(ctx, subjectID, hash, res)
	}
	s.auditor.Emit(ctx, audit.Event{
		Action:    audit.ActionReportIngested,
		SubjectID: subjectID,
		ImportIDs: res.ImportIDs,
		Detail: map[string]any{
			"entity_counts": res.EntityCounts,
		},
	})
	s.log.InfoContext(ctx, "payload ingested",
		"subject_id", subjectID,
		"imports", len(res.ImportIDs),
		"entities", res.EntityCounts.Total(),
	)
}

func (s *Service) countRejected() {
	if s.metrics != nil {
		s.metrics.ReportsRejected.Inc()
	}
}

func (s *Service) countFailure() {
	if s.metrics != nil {
		s.metrics.IngestFailures.Inc()
	}
}
