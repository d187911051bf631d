package memory

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/suite"

	"creditwatch/internal/report/models"
	"creditwatch/internal/report/store"
	dErrors "creditwatch/pkg/domain-errors"
)

type StoreSuite struct {
	suite.Suite
	store *Store
	ctx   context.Context
	now   time.Time
}

func TestStoreSuite(t *testing.T) {
	suite.Run(t, new(StoreSuite))
}

func (s *StoreSuite) SetupTest() {
	s.store = New()
	s.ctx = context.Background()
	s.now = time.Date(2026, 1, 15, 12, 0, 0, 0, time.UTC)
}

func (s *StoreSuite) newImport(subjectID, hash string, reportedAt time.Time) models.Import {
	return models.Import{
		ID:           uuid.New(),
		SubjectID:    subjectID,
		SourceSystem: "equifax",
		ReportedAt:   reportedAt,
		PayloadHash:  hash,
		EntityCounts: models.EntityCounts{},
		CreatedAt:    s.now,
	}
}

func (s *StoreSuite) TestEnsureSubjectIdempotent() {
	s.Require().NoError(s.store.EnsureSubject(s.ctx, "subj-1", s.now))
	s.Require().NoError(s.store.EnsureSubject(s.ctx, "subj-1", s.now.Add(time.Hour)))

	s.store.mu.RLock()
	defer s.store.mu.RUnlock()
	s.Equal(s.now, s.store.subjects["subj-1"].CreatedAt)
}

func (s *StoreSuite) TestFindImportsByPayloadHash() {
	imp := s.newImport("subj-1", "hash-a", s.now)
	s.Require().NoError(s.store.InsertImport(s.ctx, &imp))

	s.Run("hit", func() {
		found, err := s.store.FindImportsByPayloadHash(s.ctx, "subj-1", "hash-a")
		s.Require().NoError(err)
		s.Require().Len(found, 1)
		s.Equal(imp.ID, found[0].ID)
	})

	s.Run("miss returns not found", func() {
		_, err := s.store.FindImportsByPayloadHash(s.ctx, "subj-1", "hash-b")
		s.Require().ErrorIs(err, store.ErrNotFound)
	})

	s.Run("scoped to subject", func() {
		_, err := s.store.FindImportsByPayloadHash(s.ctx, "subj-2", "hash-a")
		s.Require().ErrorIs(err, store.ErrNotFound)
	})
}

func (s *StoreSuite) TestInsertImportConflict() {
	imp := s.newImport("subj-1", "hash-a", s.now)
	s.Require().NoError(s.store.InsertImport(s.ctx, &imp))

	err := s.store.InsertImport(s.ctx, &imp)
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeConflict))
}

func (s *StoreSuite) TestChildInsertRequiresImport() {
	err := s.store.InsertTradeline(s.ctx, &models.Tradeline{ID: uuid.New(), ImportID: uuid.New()})
	s.Require().Error(err)
	s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
}

func (s *StoreSuite) TestListImportsOrdering() {
	later := s.newImport("subj-1", "hash-b", s.now.Add(24*time.Hour))
	earlier := s.newImport("subj-1", "hash-a", s.now)
	s.Require().NoError(s.store.InsertImport(s.ctx, &later))
	s.Require().NoError(s.store.InsertImport(s.ctx, &earlier))

	imports, err := s.store.ListImports(s.ctx, "subj-1")
	s.Require().NoError(err)
	s.Require().Len(imports, 2)
	s.Equal(earlier.ID, imports[0].ID)
	s.Equal(later.ID, imports[1].ID)
}

func (s *StoreSuite) TestUpdateImportCounts() {
	imp := s.newImport("subj-1", "hash-a", s.now)
	s.Require().NoError(s.store.InsertImport(s.ctx, &imp))

	counts := models.EntityCounts{models.EntityTradelines: 3}
	s.Require().NoError(s.store.UpdateImportCounts(s.ctx, imp.ID, counts))

	found, err := s.store.FindImportsByPayloadHash(s.ctx, "subj-1", "hash-a")
	s.Require().NoError(err)
	s.Equal(3, found[0].EntityCounts[models.EntityTradelines])

	// Stored counts are a copy, not an alias.
	counts[models.EntityTradelines] = 99
	found, err = s.store.FindImportsByPayloadHash(s.ctx, "subj-1", "hash-a")
	s.Require().NoError(err)
	s.Equal(3, found[0].EntityCounts[models.EntityTradelines])
}

func (s *StoreSuite) TestListTradelinesByImport() {
	imp := s.newImport("subj-1", "hash-a", s.now)
	s.Require().NoError(s.store.InsertImport(s.ctx, &imp))

	for _, lender := range []string{"Zopa", "HSBC"} {
		tl := models.Tradeline{
			ID:            uuid.New(),
			ImportID:      imp.ID,
			SubjectID:     "subj-1",
			SourceSystem:  "equifax",
			Lender:        lender,
			AccountNumber: "1",
			AccountStatus: models.AccountOpen,
			PaymentStatus: models.PaymentCurrent,
		}
		s.Require().NoError(s.store.InsertTradeline(s.ctx, &tl))
	}

	lines, err := s.store.ListTradelinesByImport(s.ctx, imp.ID)
	s.Require().NoError(err)
	s.Require().Len(lines, 2)
	s.Equal("HSBC", lines[0].Lender)
	s.Equal("Zopa", lines[1].Lender)
}

func (s *StoreSuite) TestListSearchesOrderedByTime() {
	imp := s.newImport("subj-1", "hash-a", s.now)
	s.Require().NoError(s.store.InsertImport(s.ctx, &imp))

	for _, offset := range []time.Duration{48 * time.Hour, 0, 24 * time.Hour} {
		sr := models.Search{
			ID:           uuid.New(),
			ImportID:     imp.ID,
			SubjectID:    "subj-1",
			SourceSystem: "equifax",
			Type:         models.SearchHard,
			Organisation: "org",
			SearchedAt:   s.now.Add(offset),
		}
		s.Require().NoError(s.store.InsertSearch(s.ctx, &sr))
	}

	searches, err := s.store.ListSearches(s.ctx, "subj-1")
	s.Require().NoError(err)
	s.Require().Len(searches, 3)
	s.True(searches[0].SearchedAt.Before(searches[1].SearchedAt))
	s.True(searches[1].SearchedAt.Before(searches[2].SearchedAt))
}
