// Package models defines the canonical credit-file entities tracked on a
// subject's timeline. Every child entity belongs to exactly one import and
// inherits that import's source system.
package models

import (
	"time"

	"github.com/google/uuid"
)

// AccountStatus is the lifecycle state of a tradeline account.
type AccountStatus string

const (
	AccountOpen      AccountStatus = "open"
	AccountClosed    AccountStatus = "closed"
	AccountDefaulted AccountStatus = "defaulted"
	AccountSettled   AccountStatus = "settled"
)

// Known reports whether the status is a recognized value.
func (s AccountStatus) Known() bool {
	switch s {
	case AccountOpen, AccountClosed, AccountDefaulted, AccountSettled:
		return true
	}
	return false
}

// PaymentStatus is the delinquency state of a tradeline, ordered from best
// to worst. Rank gives the ordinal position used to detect degradation.
type PaymentStatus string

const (
	PaymentCurrent     PaymentStatus = "current"
	PaymentLate30      PaymentStatus = "late_30"
	PaymentLate60      PaymentStatus = "late_60"
	PaymentLate90      PaymentStatus = "late_90"
	PaymentDefault     PaymentStatus = "default"
	PaymentCollections PaymentStatus = "collections"
	PaymentChargedOff  PaymentStatus = "charged_off"
)

var paymentRanks = map[PaymentStatus]int{
	PaymentCurrent:     0,
	PaymentLate30:      1,
	PaymentLate60:      2,
	PaymentLate90:      3,
	PaymentDefault:     4,
	PaymentCollections: 5,
	PaymentChargedOff:  6,
}

// Rank returns the ordinal position on the delinquency scale, or -1 for an
// unknown status so callers can skip rather than misorder it.
func (s PaymentStatus) Rank() int {
	if r, ok := paymentRanks[s]; ok {
		return r
	}
	return -1
}

func (s PaymentStatus) Known() bool { return s.Rank() >= 0 }

// SearchType distinguishes lender-initiated hard inquiries from soft checks.
type SearchType string

const (
	SearchHard SearchType = "hard"
	SearchSoft SearchType = "soft"
)

func (s SearchType) Known() bool { return s == SearchHard || s == SearchSoft }

// EntityCounts tallies inserted timeline entities per type. Reporting only;
// never consulted for control flow.
type EntityCounts map[string]int

// Entity count keys.
const (
	EntityTradelines    = "tradelines"
	EntitySearches      = "searches"
	EntityScores        = "scores"
	EntityPublicRecords = "public_records"
	EntityAddresses     = "addresses"
)

func (c EntityCounts) Add(entity string, n int) {
	if n != 0 {
		c[entity] += n
	}
}

// Merge adds every count from other into c.
func (c EntityCounts) Merge(other EntityCounts) {
	for k, v := range other {
		c[k] += v
	}
}

// Clone returns an independent copy.
func (c EntityCounts) Clone() EntityCounts {
	out := make(EntityCounts, len(c))
	for k, v := range c {
		out[k] = v
	}
	return out
}

// Total sums all entity counts.
func (c EntityCounts) Total() int {
	total := 0
	for _, v := range c {
		total += v
	}
	return total
}

// Subject is the person whose credit file is tracked. The ID is the external
// subject identifier carried by every payload.
type Subject struct {
	ID        string
	CreatedAt time.Time
}

// Import is one ingested per-source block of a payload. PayloadHash is the
// content hash of the whole payload the import arrived in; all imports from
// one payload share it, which is what makes dedup lookups reconstruct the
// original result.
type Import struct {
	ID           uuid.UUID
	SubjectID    string
	SourceSystem string
	ReportedAt   time.Time
	PayloadHash  string
	EntityCounts EntityCounts
	CreatedAt    time.Time
}

// Tradeline is one credit account as reported by one import.
type Tradeline struct {
	ID            uuid.UUID
	ImportID      uuid.UUID
	SubjectID     string
	SourceSystem  string
	Lender        string
	AccountNumber string
	AccountType   string
	AccountStatus AccountStatus
	PaymentStatus PaymentStatus
	Balance       int64
	CreditLimit   int64
	OpenedAt      *time.Time
}

// AccountKey is the stable account identity used to match the same
// real-world account across imports and source systems.
func (t Tradeline) AccountKey() string {
	return t.Lender + "|" + t.AccountNumber
}

// Search is one credit-check event.
type Search struct {
	ID           uuid.UUID
	ImportID     uuid.UUID
	SubjectID    string
	SourceSystem string
	Type         SearchType
	Organisation string
	SearchedAt   time.Time
}

// Score is one bureau score observation.
type Score struct {
	ID           uuid.UUID
	ImportID     uuid.UUID
	SubjectID    string
	SourceSystem string
	Provider     string
	Value        int
	ScoredAt     time.Time
}

// PublicRecord is one court or insolvency record (CCJ, bankruptcy, etc.).
type PublicRecord struct {
	ID           uuid.UUID
	ImportID     uuid.UUID
	SubjectID    string
	SourceSystem string
	Kind         string
	Amount       int64
	Status       string
	FiledAt      time.Time
}

// Address is one reported address for the subject.
type Address struct {
	ID           uuid.UUID
	ImportID     uuid.UUID
	SubjectID    string
	SourceSystem string
	Line1        string
	Line2        string
	City         string
	Postcode     string
	MovedIn      *time.Time
}
