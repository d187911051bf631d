// Package store defines the transactional persistence contract for the
// credit-file timeline. Stores are interface-driven so the ingestion
// pipeline and analysis queries stay testable against the in-memory
// implementation and swap to PostgreSQL without rewiring business code.
package store

import (
	"context"
	"time"

	"github.com/google/uuid"

	"creditwatch/internal/report/models"
	dErrors "creditwatch/pkg/domain-errors"
)

// ErrNotFound keeps storage-specific lookups consistent across
// implementations.
var ErrNotFound = dErrors.New(dErrors.CodeNotFound, "record not found")

// Store is the typed insert/read surface for one subject's timeline.
// Implementations must make every method honor an enclosing RunInTx.
type Store interface {
	// EnsureSubject creates the subject row if it does not exist.
	EnsureSubject(ctx context.Context, subjectID string, now time.Time) error

	// FindImportsByPayloadHash returns every import recorded for the
	// subject from a payload with the given content hash, or ErrNotFound.
	FindImportsByPayloadHash(ctx context.Context, subjectID, hash string) ([]models.Import, error)

	InsertImport(ctx context.Context, imp *models.Import) error
	// UpdateImportCounts persists the final per-import entity tallies once
	// all child inserts for the import have completed.
	UpdateImportCounts(ctx context.Context, importID uuid.UUID, counts models.EntityCounts) error

	InsertTradeline(ctx context.Context, t *models.Tradeline) error
	InsertSearch(ctx context.Context, s *models.Search) error
	InsertScore(ctx context.Context, s *models.Score) error
	InsertPublicRecord(ctx context.Context, r *models.PublicRecord) error
	InsertAddress(ctx context.Context, a *models.Address) error

	// ListImports returns the subject's imports ordered by reported-at
	// ascending, created-at ascending as tie-break.
	ListImports(ctx context.Context, subjectID string) ([]models.Import, error)
	ListTradelinesByImport(ctx context.Context, importID uuid.UUID) ([]models.Tradeline, error)
	// ListSearches returns the subject's searches ordered by searched-at
	// ascending.
	ListSearches(ctx context.Context, subjectID string) ([]models.Search, error)
	ListScores(ctx context.Context, subjectID string) ([]models.Score, error)
	ListPublicRecords(ctx context.Context, subjectID string) ([]models.PublicRecord, error)
}

// Tx provides an all-or-nothing boundary around a batch of store mutations.
// Implementations wrap a database transaction or, in-memory, a snapshot
// that is restored when fn fails. Nothing written inside a failed fn may be
// observable afterwards.
type Tx interface {
	RunInTx(ctx context.Context, fn func(s Store) error) error
}
