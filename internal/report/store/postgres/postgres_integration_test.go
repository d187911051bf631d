//go:build integration

package postgres_test

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"creditwatch/internal/ingest"
	"creditwatch/internal/report/models"
	"creditwatch/internal/report/store"
	pgstore "creditwatch/internal/report/store/postgres"
	"creditwatch/pkg/testutil/containers"
)

type PostgresStoreSuite struct {
	suite.Suite
	postgres *containers.PostgresContainer
	store    *pgstore.Store
	tx       *pgstore.Tx
}

func TestPostgresStoreSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}
	suite.Run(t, new(PostgresStoreSuite))
}

func (s *PostgresStoreSuite) SetupSuite() {
	s.postgres = containers.NewPostgresContainer(s.T())
	s.Require().NoError(pgstore.EnsureSchema(context.Background(), s.postgres.DB))
	s.store = pgstore.New(s.postgres.DB)
	s.tx = pgstore.NewTx(s.postgres.DB)
}

func (s *PostgresStoreSuite) TearDownSuite() {
	if s.postgres != nil {
		_ = s.postgres.DB.Close()
		_ = s.postgres.Container.Terminate(context.Background())
	}
}

func (s *PostgresStoreSuite) SetupTest() {
	err := s.postgres.TruncateTables(context.Background(),
		"addresses", "public_records", "scores", "searches", "tradelines", "imports", "subjects")
	s.Require().NoError(err)
}

func (s *PostgresStoreSuite) seedImport(subjectID, hash string, at time.Time) models.Import {
	ctx := context.Background()
	s.Require().NoError(s.store.EnsureSubject(ctx, subjectID, at))
	imp := models.Import{
		ID:           uuid.New(),
		SubjectID:    subjectID,
		SourceSystem: "equifax",
		ReportedAt:   at,
		PayloadHash:  hash,
		EntityCounts: models.EntityCounts{},
		CreatedAt:    at,
	}
	s.Require().NoError(s.store.InsertImport(ctx, &imp))
	return imp
}

func (s *PostgresStoreSuite) TestImportRoundTrip() {
	ctx := context.Background()
	at := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	imp := s.seedImport("subj-1", "hash-a", at)

	counts := models.EntityCounts{models.EntityTradelines: 2}
	s.Require().NoError(s.store.UpdateImportCounts(ctx, imp.ID, counts))

	found, err := s.store.FindImportsByPayloadHash(ctx, "subj-1", "hash-a")
	s.Require().NoError(err)
	s.Require().Len(found, 1)
	s.Equal(imp.ID, found[0].ID)
	s.Equal(2, found[0].EntityCounts[models.EntityTradelines])

	_, err = s.store.FindImportsByPayloadHash(ctx, "subj-1", "hash-b")
	s.Require().ErrorIs(err, store.ErrNotFound)
}

func (s *PostgresStoreSuite) TestChildEntitiesRoundTrip() {
	ctx := context.Background()
	at := time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
	imp := s.seedImport("subj-1", "hash-a", at)

	tl := models.Tradeline{
		ID:            uuid.New(),
		ImportID:      imp.ID,
		SubjectID:     "subj-1",
		SourceSystem:  "equifax",
		Lender:        "HSBC",
		AccountNumber: "1234",
		AccountType:   "credit_card",
		AccountStatus: models.AccountOpen,
		PaymentStatus: models.PaymentCurrent,
		Balance:       1500,
		CreditLimit:   5000,
	}
	s.Require().NoError(s.store.InsertTradeline(ctx, &tl))

	sr := models.Search{
		ID:           uuid.New(),
		ImportID:     imp.ID,
		SubjectID:    "subj-1",
		SourceSystem: "equifax",
		Type:         models.SearchHard,
		Organisation: "CarLoans Ltd",
		SearchedAt:   at.AddDate(0, 0, -3),
	}
	s.Require().NoError(s.store.InsertSearch(ctx, &sr))

	lines, err := s.store.ListTradelinesByImport(ctx, imp.ID)
	s.Require().NoError(err)
	s.Require().Len(lines, 1)
	s.Equal("HSBC", lines[0].Lender)
	s.Equal(int64(1500), lines[0].Balance)
	s.Equal(models.PaymentCurrent, lines[0].PaymentStatus)

	searches, err := s.store.ListSearches(ctx, "subj-1")
	s.Require().NoError(err)
	s.Require().Len(searches, 1)
	s.Equal(models.SearchHard, searches[0].Type)
}

func (s *PostgresStoreSuite) TestDuplicateImportConflicts() {
	ctx := context.Background()
	at := time.Now().UTC()
	imp := s.seedImport("subj-1", "hash-a", at)

	err := s.store.InsertImport(ctx, &imp)
	s.Require().Error(err)
}

func (s *PostgresStoreSuite) TestTxRollsBack() {
	ctx := context.Background()
	at := time.Now().UTC()

	boom := s.tx.RunInTx(ctx, func(st store.Store) error {
		if err := st.EnsureSubject(ctx, "subj-1", at); err != nil {
			return err
		}
		imp := models.Import{
			ID:           uuid.New(),
			SubjectID:    "subj-1",
			SourceSystem: "equifax",
			ReportedAt:   at,
			PayloadHash:  "hash-a",
			EntityCounts: models.EntityCounts{},
			CreatedAt:    at,
		}
		if err := st.InsertImport(ctx, &imp); err != nil {
			return err
		}
		// Duplicate primary key forces a storage error mid-transaction.
		return st.InsertImport(ctx, &imp)
	})
	s.Require().Error(boom)

	imports, err := s.store.ListImports(ctx, "subj-1")
	s.Require().NoError(err)
	s.Empty(imports)
}

// Full pipeline against real postgres: ingest, dedup, and the ordered reads
// the analysis service depends on.
func (s *PostgresStoreSuite) TestIngestPipeline() {
	ctx := context.Background()
	svc := ingest.NewService(s.store, s.tx)

	payload := []byte(`{
		"subject_id": "subj-1",
		"imports": [{"ref": "eq-1", "source_system": "equifax", "reported_at": "2026-01-15T00:00:00Z"}],
		"tradelines": [{"import_ref": "eq-1", "lender": "HSBC", "account_number": "1234", "account_status": "open", "payment_status": "current", "balance": 1500}],
		"searches": [{"import_ref": "eq-1", "type": "hard", "organisation": "CarLoans Ltd", "searched_at": "2026-01-10T09:30:00Z"}]
	}`)

	res, err := svc.Ingest(ctx, payload)
	s.Require().NoError(err)
	s.Require().True(res.Success)
	s.False(res.Duplicate)
	s.Equal(1, res.EntityCounts[models.EntityTradelines])
	s.Equal(1, res.EntityCounts[models.EntitySearches])

	dup, err := svc.Ingest(ctx, payload)
	s.Require().NoError(err)
	s.Require().True(dup.Success)
	s.True(dup.Duplicate)
	s.Equal(res.EntityCounts, dup.EntityCounts)

	imports, err := s.store.ListImports(ctx, "subj-1")
	s.Require().NoError(err)
	s.Require().Len(imports, 1)
	s.Equal(1, imports[0].EntityCounts[models.EntityTradelines])
}
