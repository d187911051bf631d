package ingest

import (
	"context"
	"time"

	"github.com/google/uuid"

	"creditwatch/internal/report/models"
	"creditwatch/internal/report/payload"
	"creditwatch/internal/report/store"
	dErrors "creditwatch/pkg/domain-errors"
)

// provenance is what child entities inherit from their owning import.
type provenance struct {
	importID     uuid.UUID
	sourceSystem string
}

// ingestContext is the transaction-scoped state threaded through the
// per-entity inserters: the validated payload, the import-ref to provenance
// mapping built while imports are inserted, and the entity counters.
// Created per ingestion call and discarded with it.
type ingestContext struct {
	payload *payload.Payload
	hash    string
	now     time.Time

	byRef     map[string]provenance
	importIDs []uuid.UUID
	counts    models.EntityCounts
	perImport map[uuid.UUID]models.EntityCounts
}

func newIngestContext(p *payload.Payload, hash string, now time.Time) *ingestContext {
	return &ingestContext{
		payload:   p,
		hash:      hash,
		now:       now,
		byRef:     make(map[string]provenance, len(p.Imports)),
		counts:    models.EntityCounts{},
		perImport: make(map[uuid.UUID]models.EntityCounts, len(p.Imports)),
	}
}

// run performs the top-down insertion: subject, imports, then child entity
// groups. Must execute inside one store transaction; any returned error
// leaves nothing behind.
func (ic *ingestContext) run(ctx context.Context, st store.Store) error {
	if err := st.EnsureSubject(ctx, ic.payload.SubjectID, ic.now); err != nil {
		return err
	}
	if err := ic.insertImports(ctx, st); err != nil {
		return err
	}
	if err := ic.insertTradelines(ctx, st); err != nil {
		return err
	}
	if err := ic.insertSearches(ctx, st); err != nil {
		return err
	}
	if err := ic.insertScores(ctx, st); err != nil {
		return err
	}
	if err := ic.insertPublicRecords(ctx, st); err != nil {
		return err
	}
	if err := ic.insertAddresses(ctx, st); err != nil {
		return err
	}
	for _, id := range ic.importIDs {
		if err := st.UpdateImportCounts(ctx, id, ic.perImport[id]); err != nil {
			return err
		}
	}
	return nil
}

func (ic *ingestContext) insertImports(ctx context.Context, st store.Store) error {
	for _, imp := range ic.payload.Imports {
		record := &models.Import{
			ID:           uuid.New(),
			SubjectID:    ic.payload.SubjectID,
			SourceSystem: imp.SourceSystem,
			ReportedAt:   imp.ReportedAt,
			PayloadHash:  ic.hash,
			EntityCounts: models.EntityCounts{},
			CreatedAt:    ic.now,
		}
		if err := st.InsertImport(ctx, record); err != nil {
			return err
		}
		ic.byRef[imp.Ref] = provenance{importID: record.ID, sourceSystem: imp.SourceSystem}
		ic.importIDs = append(ic.importIDs, record.ID)
		ic.perImport[record.ID] = models.EntityCounts{}
	}
	return nil
}

// resolve maps an import ref to its provenance. Validation guarantees the
// ref exists; a miss here is an invariant violation, not user error.
func (ic *ingestContext) resolve(ref string) (provenance, error) {
	prov, ok := ic.byRef[ref]
	if !ok {
		return provenance{}, dErrors.New(dErrors.CodeInvariantViolation, "entity references unknown import ref "+ref)
	}
	return prov, nil
}

func (ic *ingestContext) counted(prov provenance, entity string) {
	ic.counts.Add(entity, 1)
	ic.perImport[prov.importID].Add(entity, 1)
}

func (ic *ingestContext) insertTradelines(ctx context.Context, st store.Store) error {
	for _, t := range ic.payload.Tradelines {
		prov, err := ic.resolve(t.ImportRef)
		if err != nil {
			return err
		}
		record := &models.Tradeline{
			ID:            uuid.New(),
			ImportID:      prov.importID,
			SubjectID:     ic.payload.SubjectID,
			SourceSystem:  prov.sourceSystem,
			Lender:        t.Lender,
			AccountNumber: t.AccountNumber,
			AccountType:   t.AccountType,
			AccountStatus: t.AccountStatus,
			PaymentStatus: t.PaymentStatus,
			Balance:       t.Balance,
			CreditLimit:   t.CreditLimit,
			OpenedAt:      t.OpenedAt,
		}
		if err := st.InsertTradeline(ctx, record); err != nil {
			return err
		}
		ic.counted(prov, models.EntityTradelines)
	}
	return nil
}

func (ic *ingestContext) insertSearches(ctx context.Context, st store.Store) error {
	for _, sr := range ic.payload.Searches {
		prov, err := ic.resolve(sr.ImportRef)
		if err != nil {
			return err
		}
		record := &models.Search{
			ID:           uuid.New(),
			ImportID:     prov.importID,
			SubjectID:    ic.payload.SubjectID,
			SourceSystem: prov.sourceSystem,
			Type:         sr.Type,
			Organisation: sr.Organisation,
			SearchedAt:   sr.SearchedAt,
		}
		if err := st.InsertSearch(ctx, record); err != nil {
			return err
		}
		ic.counted(prov, models.EntitySearches)
	}
	return nil
}

func (ic *ingestContext) insertScores(ctx context.Context, st store.Store) error {
	for _, sc := range ic.payload.Scores {
		prov, err := ic.resolve(sc.ImportRef)
		if err != nil {
			return err
		}
		record := &models.Score{
			ID:           uuid.New(),
			ImportID:     prov.importID,
			SubjectID:    ic.payload.SubjectID,
			SourceSystem: prov.sourceSystem,
			Provider:     sc.Provider,
			Value:        sc.Value,
			ScoredAt:     sc.ScoredAt,
		}
		if err := st.InsertScore(ctx, record); err != nil {
			return err
		}
		ic.counted(prov, models.EntityScores)
	}
	return nil
}

func (ic *ingestContext) insertPublicRecords(ctx context.Context, st store.Store) error {
	for _, r := range ic.payload.PublicRecords {
		prov, err := ic.resolve(r.ImportRef)
		if err != nil {
			return err
		}
		record := &models.PublicRecord{
			ID:           uuid.New(),
			ImportID:     prov.importID,
			SubjectID:    ic.payload.SubjectID,
			SourceSystem: prov.sourceSystem,
			Kind:         r.Kind,
			Amount:       r.Amount,
			Status:       r.Status,
			FiledAt:      r.FiledAt,
		}
		if err := st.InsertPublicRecord(ctx, record); err != nil {
			return err
		}
		ic.counted(prov, models.EntityPublicRecords)
	}
	return nil
}

func (ic *ingestContext) insertAddresses(ctx context.Context, st store.Store) error {
	for _, a := range ic.payload.Addresses {
		prov, err := ic.resolve(a.ImportRef)
		if err != nil {
			return err
		}
		record := &models.Address{
			ID:           uuid.New(),
			ImportID:     prov.importID,
			SubjectID:    ic.payload.SubjectID,
			SourceSystem: prov.sourceSystem,
			Line1:        a.Line1,
			Line2:        a.Line2,
			City:         a.City,
			Postcode:     a.Postcode,
			MovedIn:      a.MovedIn,
		}
		if err := st.InsertAddress(ctx, record); err != nil {
			return err
		}
		ic.counted(prov, models.EntityAddresses)
	}
	return nil
}
