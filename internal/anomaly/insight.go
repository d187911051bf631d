// Package anomaly evaluates a registry of detection rules against a
// subject's credit-file timeline and aggregates the resulting insights.
package anomaly

import (
	"time"

	"github.com/google/uuid"
)

// Severity orders insights by urgency: info < low < medium < high.
type Severity string

const (
	SeverityInfo   Severity = "info"
	SeverityLow    Severity = "low"
	SeverityMedium Severity = "medium"
	SeverityHigh   Severity = "high"
)

var severityRanks = map[Severity]int{
	SeverityInfo:   0,
	SeverityLow:    1,
	SeverityMedium: 2,
	SeverityHigh:   3,
}

// Rank returns the ordinal position, -1 for unknown values.
func (s Severity) Rank() int {
	if r, ok := severityRanks[s]; ok {
		return r
	}
	return -1
}

// Insight is one detected anomaly. Insights are derived, never canonical:
// re-running analysis over the same timeline state regenerates the same set,
// so nothing here carries state that cannot be reconstructed.
type Insight struct {
	Rule     RuleKind `json:"rule"`
	Severity Severity `json:"severity"`
	Message  string   `json:"message"`
	// Evidence holds the specific fields that triggered the rule.
	Evidence map[string]any `json:"evidence,omitempty"`
	// ObservedAt anchors the insight to when the anomaly was observed on
	// the timeline; ImportID references the import that surfaced it.
	ObservedAt time.Time `json:"observed_at"`
	ImportID   uuid.UUID `json:"import_id,omitempty"`
}

// RuleError records a rule evaluation that failed. The engine isolates the
// failure so the remaining rules still contribute insights.
type RuleError struct {
	Rule  RuleKind `json:"rule"`
	Error string   `json:"error"`
}

// Result is the aggregate of one engine run. Owned by the caller; the
// engine never persists it.
type Result struct {
	Insights       []Insight        `json:"insights"`
	SeverityCounts map[Severity]int `json:"severity_counts"`
	RuleErrors     []RuleError      `json:"rule_errors,omitempty"`
}
