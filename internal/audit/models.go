// Package audit records an append-only operational trail of ingestions and
// analysis runs.
package audit

import (
	"time"

	"github.com/google/uuid"
)

// Action identifies what happened.
type Action string

const (
	ActionReportIngested    Action = "report.ingested"
	ActionReportDuplicate   Action = "report.duplicate"
	ActionAnalysisCompleted Action = "analysis.completed"
)

// Event is one audit record. Detail carries action-specific fields
// (entity counts, insight totals) without widening the event shape.
type Event struct {
	ID        uuid.UUID      `json:"id"`
	Action    Action         `json:"action"`
	SubjectID string         `json:"subject_id"`
	ImportIDs []uuid.UUID    `json:"import_ids,omitempty"`
	Detail    map[string]any `json:"detail,omitempty"`
	Timestamp time.Time      `json:"timestamp"`
}
