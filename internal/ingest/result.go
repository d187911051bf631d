package ingest

import (
	"github.com/google/uuid"

	"creditwatch/internal/report/models"
	"creditwatch/internal/report/payload"
)

// Result reports the outcome of one ingestion call. Validation failures are
// part of the normal result shape, not errors; storage failures are returned
// as errors alongside a nil result.
type Result struct {
	Success bool `json:"success"`
	// Duplicate marks an idempotent success: the payload was already
	// ingested and no new rows were written.
	Duplicate    bool                 `json:"duplicate,omitempty"`
	Errors       []payload.FieldError `json:"errors,omitempty"`
	EntityCounts models.EntityCounts  `json:"entity_counts,omitempty"`
	ImportIDs    []uuid.UUID          `json:"import_ids,omitempty"`
}
