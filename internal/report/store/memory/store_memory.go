// Package memory provides the in-memory report store. It favors clarity
// over performance and backs unit tests and local development.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"

	"creditwatch/internal/report/models"
	"creditwatch/internal/report/store"
	dErrors "creditwatch/pkg/domain-errors"
)

type Store struct {
	mu            sync.RWMutex
	subjects      map[string]models.Subject
	imports       map[uuid.UUID]models.Import
	tradelines    map[uuid.UUID]models.Tradeline
	searches      map[uuid.UUID]models.Search
	scores        map[uuid.UUID]models.Score
	publicRecords map[uuid.UUID]models.PublicRecord
	addresses     map[uuid.UUID]models.Address
}

func New() *Store {
	return &Store{
		subjects:      make(map[string]models.Subject),
		imports:       make(map[uuid.UUID]models.Import),
		tradelines:    make(map[uuid.UUID]models.Tradeline),
		searches:      make(map[uuid.UUID]models.Search),
		scores:        make(map[uuid.UUID]models.Score),
		publicRecords: make(map[uuid.UUID]models.PublicRecord),
		addresses:     make(map[uuid.UUID]models.Address),
	}
}

func (s *Store) EnsureSubject(_ context.Context, subjectID string, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.subjects[subjectID]; !ok {
		s.subjects[subjectID] = models.Subject{ID: subjectID, CreatedAt: now}
	}
	return nil
}

func (s *Store) FindImportsByPayloadHash(_ context.Context, subjectID, hash string) ([]models.Import, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Import
	for _, imp := range s.imports {
		if imp.SubjectID == subjectID && imp.PayloadHash == hash {
			imp.EntityCounts = imp.EntityCounts.Clone()
			out = append(out, imp)
		}
	}
	if len(out) == 0 {
		return nil, store.ErrNotFound
	}
	sortImports(out)
	return out, nil
}

func (s *Store) InsertImport(_ context.Context, imp *models.Import) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.imports[imp.ID]; ok {
		return dErrors.New(dErrors.CodeConflict, "import already exists")
	}
	stored := *imp
	stored.EntityCounts = imp.EntityCounts.Clone()
	s.imports[imp.ID] = stored
	return nil
}

func (s *Store) UpdateImportCounts(_ context.Context, importID uuid.UUID, counts models.EntityCounts) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	imp, ok := s.imports[importID]
	if !ok {
		return store.ErrNotFound
	}
	imp.EntityCounts = counts.Clone()
	s.imports[importID] = imp
	return nil
}

func (s *Store) InsertTradeline(_ context.Context, t *models.Tradeline) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.imports[t.ImportID]; !ok {
		return dErrors.New(dErrors.CodeInvariantViolation, "tradeline references unknown import")
	}
	s.tradelines[t.ID] = *t
	return nil
}

func (s *Store) InsertSearch(_ context.Context, sr *models.Search) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.imports[sr.ImportID]; !ok {
		return dErrors.New(dErrors.CodeInvariantViolation, "search references unknown import")
	}
	s.searches[sr.ID] = *sr
	return nil
}

func (s *Store) InsertScore(_ context.Context, sc *models.Score) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.imports[sc.ImportID]; !ok {
		return dErrors.New(dErrors.CodeInvariantViolation, "score references unknown import")
	}
	s.scores[sc.ID] = *sc
	return nil
}

func (s *Store) InsertPublicRecord(_ context.Context, r *models.PublicRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.imports[r.ImportID]; !ok {
		return dErrors.New(dErrors.CodeInvariantViolation, "public record references unknown import")
	}
	s.publicRecords[r.ID] = *r
	return nil
}

func (s *Store) InsertAddress(_ context.Context, a *models.Address) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.imports[a.ImportID]; !ok {
		return dErrors.New(dErrors.CodeInvariantViolation, "address references unknown import")
	}
	s.addresses[a.ID] = *a
	return nil
}

func (s *Store) ListImports(_ context.Context, subjectID string) ([]models.Import, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Import
	for _, imp := range s.imports {
		if imp.SubjectID == subjectID {
			imp.EntityCounts = imp.EntityCounts.Clone()
			out = append(out, imp)
		}
	}
	sortImports(out)
	return out, nil
}

func (s *Store) ListTradelinesByImport(_ context.Context, importID uuid.UUID) ([]models.Tradeline, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Tradeline
	for _, t := range s.tradelines {
		if t.ImportID == importID {
			out = append(out, t)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].AccountKey() < out[j].AccountKey() })
	return out, nil
}

func (s *Store) ListSearches(_ context.Context, subjectID string) ([]models.Search, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Search
	for _, sr := range s.searches {
		if sr.SubjectID == subjectID {
			out = append(out, sr)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].SearchedAt.Before(out[j].SearchedAt) })
	return out, nil
}

func (s *Store) ListScores(_ context.Context, subjectID string) ([]models.Score, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.Score
	for _, sc := range s.scores {
		if sc.SubjectID == subjectID {
			out = append(out, sc)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ScoredAt.Before(out[j].ScoredAt) })
	return out, nil
}

func (s *Store) ListPublicRecords(_ context.Context, subjectID string) ([]models.PublicRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []models.PublicRecord
	for _, r := range s.publicRecords {
		if r.SubjectID == subjectID {
			out = append(out, r)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].FiledAt.Before(out[j].FiledAt) })
	return out, nil
}

func sortImports(imports []models.Import) {
	sort.Slice(imports, func(i, j int) bool {
		if !imports[i].ReportedAt.Equal(imports[j].ReportedAt) {
			return imports[i].ReportedAt.Before(imports[j].ReportedAt)
		}
		return imports[i].CreatedAt.Before(imports[j].CreatedAt)
	})
}
