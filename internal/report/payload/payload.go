// Package payload validates raw credit-report documents against the
// canonical schema and computes the content hash used for deduplication.
package payload

import (
	"time"

	"creditwatch/internal/report/models"
)

// FieldError is one schema violation, addressed by a JSON-path-like string.
type FieldError struct {
	Path    string `json:"path"`
	Message string `json:"message"`
}

// Payload is one validated credit-report file for a subject. Child entities
// reference their owning import block by ref; the ingest pipeline resolves
// refs to persisted import ids and source systems.
type Payload struct {
	SubjectID     string
	Imports       []Import
	Tradelines    []Tradeline
	Searches      []Search
	Scores        []Score
	PublicRecords []PublicRecord
	Addresses     []Address
}

// Import is one per-source block of a payload.
type Import struct {
	Ref          string
	SourceSystem string
	ReportedAt   time.Time
}

type Tradeline struct {
	ImportRef     string
	Lender        string
	AccountNumber string
	AccountType   string
	AccountStatus models.AccountStatus
	PaymentStatus models.PaymentStatus
	Balance       int64
	CreditLimit   int64
	OpenedAt      *time.Time
}

type Search struct {
	ImportRef    string
	Type         models.SearchType
	Organisation string
	SearchedAt   time.Time
}

type Score struct {
	ImportRef string
	Provider  string
	Value     int
	ScoredAt  time.Time
}

type PublicRecord struct {
	ImportRef string
	Kind      string
	Amount    int64
	Status    string
	FiledAt   time.Time
}

type Address struct {
	ImportRef string
	Line1     string
	Line2     string
	City      string
	Postcode  string
	MovedIn   *time.Time
}
