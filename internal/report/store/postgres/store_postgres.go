// Package postgres implements the report store over database/sql.
package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"creditwatch/internal/report/models"
	"creditwatch/internal/report/store"
	dErrors "creditwatch/pkg/domain-errors"
)

// querier is satisfied by both *sql.DB and *sql.Tx so one Store
// implementation serves plain calls and transaction-bound calls.
type querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

type Store struct {
	q querier
}

// New creates a store executing against the pool directly.
func New(db *sql.DB) *Store {
	return &Store{q: db}
}

// NewWithTx creates a store bound to an open transaction. Used by Tx so
// every insert in one ingestion shares the same transaction.
func NewWithTx(tx *sql.Tx) *Store {
	return &Store{q: tx}
}

func (s *Store) EnsureSubject(ctx context.Context, subjectID string, now time.Time) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO subjects (id, created_at)
		VALUES ($1, $2)
		ON CONFLICT (id) DO NOTHING
	`, subjectID, now)
	if err != nil {
		return mapError(err, "ensure subject")
	}
	return nil
}

func (s *Store) FindImportsByPayloadHash(ctx context.Context, subjectID, hash string) ([]models.Import, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, subject_id, source_system, reported_at, payload_hash, entity_counts, created_at
		FROM imports
		WHERE subject_id = $1 AND payload_hash = $2
		ORDER BY reported_at, created_at
	`, subjectID, hash)
	if err != nil {
		return nil, mapError(err, "find imports by hash")
	}
	defer rows.Close()

	imports, err := scanImports(rows)
	if err != nil {
		return nil, err
	}
	if len(imports) == 0 {
		return nil, store.ErrNotFound
	}
	return imports, nil
}

func (s *Store) InsertImport(ctx context.Context, imp *models.Import) error {
	counts, err := json.Marshal(imp.EntityCounts)
	if err != nil {
		return fmt.Errorf("marshal entity counts: %w", err)
	}
	_, err = s.q.ExecContext(ctx, `
		INSERT INTO imports (id, subject_id, source_system, reported_at, payload_hash, entity_counts, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, imp.ID, imp.SubjectID, imp.SourceSystem, imp.ReportedAt, imp.PayloadHash, counts, imp.CreatedAt)
	if err != nil {
		return mapError(err, "insert import")
	}
	return nil
}

func (s *Store) UpdateImportCounts(ctx context.Context, importID uuid.UUID, counts models.EntityCounts) error {
	encoded, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("marshal entity counts: %w", err)
	}
	res, err := s.q.ExecContext(ctx, `
		UPDATE imports SET entity_counts = $2 WHERE id = $1
	`, importID, encoded)
	if err != nil {
		return mapError(err, "update import counts")
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return mapError(err, "update import counts")
	}
	if affected == 0 {
		return store.ErrNotFound
	}
	return nil
}

func (s *Store) InsertTradeline(ctx context.Context, t *models.Tradeline) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO tradelines (id, import_id, subject_id, source_system, lender, account_number,
			account_type, account_status, payment_status, balance, credit_limit, opened_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
	`, t.ID, t.ImportID, t.SubjectID, t.SourceSystem, t.Lender, t.AccountNumber,
		t.AccountType, string(t.AccountStatus), string(t.PaymentStatus), t.Balance, t.CreditLimit, t.OpenedAt)
	if err != nil {
		return mapError(err, "insert tradeline")
	}
	return nil
}

func (s *Store) InsertSearch(ctx context.Context, sr *models.Search) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO searches (id, import_id, subject_id, source_system, search_type, organisation, searched_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sr.ID, sr.ImportID, sr.SubjectID, sr.SourceSystem, string(sr.Type), sr.Organisation, sr.SearchedAt)
	if err != nil {
		return mapError(err, "insert search")
	}
	return nil
}

func (s *Store) InsertScore(ctx context.Context, sc *models.Score) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO scores (id, import_id, subject_id, source_system, provider, value, scored_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, sc.ID, sc.ImportID, sc.SubjectID, sc.SourceSystem, sc.Provider, sc.Value, sc.ScoredAt)
	if err != nil {
		return mapError(err, "insert score")
	}
	return nil
}

func (s *Store) InsertPublicRecord(ctx context.Context, r *models.PublicRecord) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO public_records (id, import_id, subject_id, source_system, kind, amount, status, filed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`, r.ID, r.ImportID, r.SubjectID, r.SourceSystem, r.Kind, r.Amount, r.Status, r.FiledAt)
	if err != nil {
		return mapError(err, "insert public record")
	}
	return nil
}

func (s *Store) InsertAddress(ctx context.Context, a *models.Address) error {
	_, err := s.q.ExecContext(ctx, `
		INSERT INTO addresses (id, import_id, subject_id, source_system, line1, line2, city, postcode, moved_in)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`, a.ID, a.ImportID, a.SubjectID, a.SourceSystem, a.Line1, a.Line2, a.City, a.Postcode, a.MovedIn)
	if err != nil {
		return mapError(err, "insert address")
	}
	return nil
}

func (s *Store) ListImports(ctx context.Context, subjectID string) ([]models.Import, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, subject_id, source_system, reported_at, payload_hash, entity_counts, created_at
		FROM imports
		WHERE subject_id = $1
		ORDER BY reported_at, created_at
	`, subjectID)
	if err != nil {
		return nil, mapError(err, "list imports")
	}
	defer rows.Close()
	return scanImports(rows)
}

func (s *Store) ListTradelinesByImport(ctx context.Context, importID uuid.UUID) ([]models.Tradeline, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, import_id, subject_id, source_system, lender, account_number,
			account_type, account_status, payment_status, balance, credit_limit, opened_at
		FROM tradelines
		WHERE import_id = $1
		ORDER BY lender, account_number
	`, importID)
	if err != nil {
		return nil, mapError(err, "list tradelines")
	}
	defer rows.Close()

	var out []models.Tradeline
	for rows.Next() {
		var t models.Tradeline
		var accountStatus, paymentStatus string
		var openedAt sql.NullTime
		if err := rows.Scan(&t.ID, &t.ImportID, &t.SubjectID, &t.SourceSystem, &t.Lender, &t.AccountNumber,
			&t.AccountType, &accountStatus, &paymentStatus, &t.Balance, &t.CreditLimit, &openedAt); err != nil {
			return nil, mapError(err, "scan tradeline")
		}
		t.AccountStatus = models.AccountStatus(accountStatus)
		t.PaymentStatus = models.PaymentStatus(paymentStatus)
		if openedAt.Valid {
			at := openedAt.Time
			t.OpenedAt = &at
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) ListSearches(ctx context.Context, subjectID string) ([]models.Search, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, import_id, subject_id, source_system, search_type, organisation, searched_at
		FROM searches
		WHERE subject_id = $1
		ORDER BY searched_at
	`, subjectID)
	if err != nil {
		return nil, mapError(err, "list searches")
	}
	defer rows.Close()

	var out []models.Search
	for rows.Next() {
		var sr models.Search
		var searchType string
		if err := rows.Scan(&sr.ID, &sr.ImportID, &sr.SubjectID, &sr.SourceSystem, &searchType, &sr.Organisation, &sr.SearchedAt); err != nil {
			return nil, mapError(err, "scan search")
		}
		sr.Type = models.SearchType(searchType)
		out = append(out, sr)
	}
	return out, rows.Err()
}

func (s *Store) ListScores(ctx context.Context, subjectID string) ([]models.Score, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, import_id, subject_id, source_system, provider, value, scored_at
		FROM scores
		WHERE subject_id = $1
		ORDER BY scored_at
	`, subjectID)
	if err != nil {
		return nil, mapError(err, "list scores")
	}
	defer rows.Close()

	var out []models.Score
	for rows.Next() {
		var sc models.Score
		if err := rows.Scan(&sc.ID, &sc.ImportID, &sc.SubjectID, &sc.SourceSystem, &sc.Provider, &sc.Value, &sc.ScoredAt); err != nil {
			return nil, mapError(err, "scan score")
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

func (s *Store) ListPublicRecords(ctx context.Context, subjectID string) ([]models.PublicRecord, error) {
	rows, err := s.q.QueryContext(ctx, `
		SELECT id, import_id, subject_id, source_system, kind, amount, status, filed_at
		FROM public_records
		WHERE subject_id = $1
		ORDER BY filed_at
	`, subjectID)
	if err != nil {
		return nil, mapError(err, "list public records")
	}
	defer rows.Close()

	var out []models.PublicRecord
	for rows.Next() {
		var r models.PublicRecord
		if err := rows.Scan(&r.ID, &r.ImportID, &r.SubjectID, &r.SourceSystem, &r.Kind, &r.Amount, &r.Status, &r.FiledAt); err != nil {
			return nil, mapError(err, "scan public record")
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

func scanImports(rows *sql.Rows) ([]models.Import, error) {
	var out []models.Import
	for rows.Next() {
		var imp models.Import
		var counts []byte
		if err := rows.Scan(&imp.ID, &imp.SubjectID, &imp.SourceSystem, &imp.ReportedAt, &imp.PayloadHash, &counts, &imp.CreatedAt); err != nil {
			return nil, mapError(err, "scan import")
		}
		imp.EntityCounts = models.EntityCounts{}
		if len(counts) > 0 {
			if err := json.Unmarshal(counts, &imp.EntityCounts); err != nil {
				return nil, fmt.Errorf("unmarshal entity counts: %w", err)
			}
		}
		out = append(out, imp)
	}
	return out, rows.Err()
}

// mapError classifies driver errors so services branch on codes, not SQLSTATE.
func mapError(err error, op string) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == "23505" {
		return dErrors.Wrap(err, dErrors.CodeConflict, op+": unique constraint violated")
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, op)
}
