// Package httptransport is the thin HTTP layer. It delegates to the ingest
// and anomaly services without embedding business logic so transport
// concerns stay isolated.
package httptransport

import (
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"

	"creditwatch/internal/anomaly"
	"creditwatch/internal/ingest"
	"creditwatch/internal/platform/logger"
	"creditwatch/internal/platform/middleware"
	"creditwatch/internal/report/models"
	"creditwatch/internal/report/store"
	dErrors "creditwatch/pkg/domain-errors"
)

// maxPayloadBytes bounds report uploads; bureau files are small.
const maxPayloadBytes = 4 << 20

// Ingestor is the ingestion entrypoint consumed by the transport.
type Ingestor interface {
	Ingest(ctx context.Context, raw []byte) (*ingest.Result, error)
}

// Analyzer is the analysis entrypoint consumed by the transport.
type Analyzer interface {
	Analyze(ctx context.Context, subjectID string, overrides *anomaly.Overrides) (*anomaly.Result, error)
}

type Handler struct {
	ingestor Ingestor
	analyzer Analyzer
	reports  store.Store
	log      *slog.Logger
}

func NewHandler(ingestor Ingestor, analyzer Analyzer, reports store.Store, log *slog.Logger) *Handler {
	if log == nil {
		log = logger.NewNop()
	}
	return &Handler{ingestor: ingestor, analyzer: analyzer, reports: reports, log: log}
}

// NewRouter wires the public endpoints with the standard middleware chain.
func NewRouter(h *Handler) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.Recovery(h.log))
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(h.log))
	r.Use(middleware.ContentTypeJSON)

	r.Get("/healthz", h.handleHealth)
	r.Post("/reports", h.handleIngest)
	r.Post("/subjects/{subjectID}/analysis", h.handleAnalyze)
	r.Get("/subjects/{subjectID}/imports", h.handleListImports)
	return r
}

func (h *Handler) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// handleIngest accepts one canonical payload document. Validation failures
// are a 422 carrying the field errors; a duplicate payload returns the same
// 200 shape as a fresh ingest.
func (h *Handler) handleIngest(w http.ResponseWriter, r *http.Request) {
	raw, err := io.ReadAll(io.LimitReader(r.Body, maxPayloadBytes+1))
	if err != nil {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "failed to read request body"))
		return
	}
	if len(raw) == 0 {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "request body is required"))
		return
	}
	if len(raw) > maxPayloadBytes {
		writeError(w, dErrors.New(dErrors.CodeBadRequest, "payload exceeds size limit"))
		return
	}

	res, err := h.ingestor.Ingest(r.Context(), raw)
	if err != nil {
		h.log.ErrorContext(r.Context(), "ingestion failed",
			"request_id", middleware.GetRequestID(r.Context()),
			"error", err.Error(),
		)
		writeError(w, err)
		return
	}
	if !res.Success {
		writeJSON(w, http.StatusUnprocessableEntity, res)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type analyzeRequest struct {
	Config *anomaly.Overrides `json:"config,omitempty"`
}

func (h *Handler) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	var req analyzeRequest
	if r.Body != nil {
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil && err != io.EOF {
			writeError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
			return
		}
	}

	res, err := h.analyzer.Analyze(r.Context(), subjectID, req.Config)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

type importView struct {
	ID           uuid.UUID           `json:"id"`
	SourceSystem string              `json:"source_system"`
	ReportedAt   time.Time           `json:"reported_at"`
	EntityCounts models.EntityCounts `json:"entity_counts"`
}

func (h *Handler) handleListImports(w http.ResponseWriter, r *http.Request) {
	subjectID := chi.URLParam(r, "subjectID")

	imports, err := h.reports.ListImports(r.Context(), subjectID)
	if err != nil {
		writeError(w, dErrors.Wrap(err, dErrors.CodeInternal, "list imports"))
		return
	}
	views := make([]importView, 0, len(imports))
	for _, imp := range imports {
		views = append(views, importView{
			ID:           imp.ID,
			SourceSystem: imp.SourceSystem,
			ReportedAt:   imp.ReportedAt,
			EntityCounts: imp.EntityCounts,
		})
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"subject_id": subjectID,
		"imports":    views,
	})
}
