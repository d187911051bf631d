package audit

import (
	"context"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"creditwatch/internal/platform/logger"
	"creditwatch/internal/platform/metrics"
)

// Sink receives audit events. Implementations: in-memory store, Kafka.
type Sink interface {
	Append(ctx context.Context, event Event) error
}

// Publisher captures structured audit events. Sink failures are logged and
// counted, never surfaced: an audit outage must not fail business calls.
type Publisher struct {
	sink    Sink
	log     *slog.Logger
	metrics *metrics.Metrics
}

type Option func(p *Publisher)

func WithLogger(log *slog.Logger) Option {
	return func(p *Publisher) { p.log = log }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(p *Publisher) { p.metrics = m }
}

func NewPublisher(sink Sink, opts ...Option) *Publisher {
	p := &Publisher{sink: sink, log: logger.NewNop()}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

func (p *Publisher) Emit(ctx context.Context, event Event) {
	if p == nil || p.sink == nil {
		return
	}
	if event.ID == uuid.Nil {
		event.ID = uuid.New()
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = time.Now()
	}
	if err := p.sink.Append(ctx, event); err != nil {
		p.log.WarnContext(ctx, "audit event dropped",
			"action", string(event.Action),
			"subject_id", event.SubjectID,
			"error", err.Error(),
		)
		if p.metrics != nil {
			p.metrics.AuditEventsDropped.Inc()
		}
	}
}
