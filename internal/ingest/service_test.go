package ingest

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditwatch/internal/audit"
	"creditwatch/internal/report/models"
	"creditwatch/internal/report/store"
	memstore "creditwatch/internal/report/store/memory"
	dErrors "creditwatch/pkg/domain-errors"
)

const fullPayload = `{
	"subject_id": "subj-1",
	"imports": [
		{"ref": "eq-1", "source_system": "equifax", "reported_at": "2026-01-15T00:00:00Z"},
		{"ref": "ex-1", "source_system": "experian", "reported_at": "2026-01-14T00:00:00Z"}
	],
	"tradelines": [
		{"import_ref": "eq-1", "lender": "HSBC", "account_number": "1234", "account_status": "open", "payment_status": "current", "balance": 1500},
		{"import_ref": "ex-1", "lender": "HSBC", "account_number": "1234", "account_status": "open", "payment_status": "current", "balance": 1480}
	],
	"searches": [
		{"import_ref": "eq-1", "type": "hard", "organisation": "CarLoans Ltd", "searched_at": "2026-01-10T09:30:00Z"}
	],
	"scores": [
		{"import_ref": "ex-1", "provider": "experian", "value": 720, "scored_at": "2026-01-14T00:00:00Z"}
	]
}`

// reorderedPayload is fullPayload with object keys shuffled; same content.
const reorderedPayload = `{
	"imports": [
		{"source_system": "equifax", "reported_at": "2026-01-15T00:00:00Z", "ref": "eq-1"},
		{"reported_at": "2026-01-14T00:00:00Z", "ref": "ex-1", "source_system": "experian"}
	],
	"scores": [
		{"provider": "experian", "import_ref": "ex-1", "scored_at": "2026-01-14T00:00:00Z", "value": 720}
	],
	"searches": [
		{"organisation": "CarLoans Ltd", "type": "hard", "import_ref": "eq-1", "searched_at": "2026-01-10T09:30:00Z"}
	],
	"subject_id": "subj-1",
	"tradelines": [
		{"balance": 1500, "lender": "HSBC", "account_number": "1234", "import_ref": "eq-1", "account_status": "open", "payment_status": "current"},
		{"lender": "HSBC", "account_number": "1234", "account_status": "open", "payment_status": "current", "balance": 1480, "import_ref": "ex-1"}
	]
}`

func newTestService(opts ...Option) (*Service, *memstore.Store) {
	mem := memstore.New()
	return NewService(mem, memstore.NewTx(mem), opts...), mem
}

func TestIngestFullPayload(t *testing.T) {
	events := audit.NewInMemoryStore()
	mem := memstore.New()
	svc := NewService(mem, memstore.NewTx(mem), WithAudit(audit.NewPublisher(events)))

	res, err := svc.Ingest(context.Background(), []byte(fullPayload))
	require.NoError(t, err)
	require.True(t, res.Success)
	assert.False(t, res.Duplicate)
	assert.Len(t, res.ImportIDs, 2)
	assert.Equal(t, 2, res.EntityCounts[models.EntityTradelines])
	assert.Equal(t, 1, res.EntityCounts[models.EntitySearches])
	assert.Equal(t, 1, res.EntityCounts[models.EntityScores])

	imports, err := mem.ListImports(context.Background(), "subj-1")
	require.NoError(t, err)
	require.Len(t, imports, 2)
	for _, imp := range imports {
		assert.NotEmpty(t, imp.PayloadHash)
	}

	recorded, err := events.ListBySubject(context.Background(), "subj-1")
	require.NoError(t, err)
	require.Len(t, recorded, 1)
	assert.Equal(t, audit.ActionReportIngested, recorded[0].Action)
	assert.ElementsMatch(t, res.ImportIDs, recorded[0].ImportIDs)
}

func TestIngestDuplicateResolvesIdempotently(t *testing.T) {
	svc, mem := newTestService()

	first, err := svc.Ingest(context.Background(), []byte(fullPayload))
	require.NoError(t, err)
	require.True(t, first.Success)

	second, err := svc.Ingest(context.Background(), []byte(fullPayload))
	require.NoError(t, err)
	require.True(t, second.Success)
	assert.True(t, second.Duplicate)
	assert.Equal(t, first.EntityCounts, second.EntityCounts)
	assert.ElementsMatch(t, first.ImportIDs, second.ImportIDs)

	imports, err := mem.ListImports(context.Background(), "subj-1")
	require.NoError(t, err)
	assert.Len(t, imports, 2)
}

// Key order inside JSON objects does not defeat deduplication.
func TestIngestDuplicateIgnoresKeyOrder(t *testing.T) {
	svc, mem := newTestService()

	first, err := svc.Ingest(context.Background(), []byte(fullPayload))
	require.NoError(t, err)
	require.False(t, first.Duplicate)

	second, err := svc.Ingest(context.Background(), []byte(reorderedPayload))
	require.NoError(t, err)
	assert.True(t, second.Duplicate)

	imports, err := mem.ListImports(context.Background(), "subj-1")
	require.NoError(t, err)
	assert.Len(t, imports, 2)
}

// spyTx records whether a transaction was ever opened.
type spyTx struct {
	inner store.Tx
	calls atomic.Int64
}

func (s *spyTx) RunInTx(ctx context.Context, fn func(st store.Store) error) error {
	s.calls.Add(1)
	return s.inner.RunInTx(ctx, fn)
}

func TestIngestValidationFailureOpensNoTransaction(t *testing.T) {
	mem := memstore.New()
	tx := &spyTx{inner: memstore.NewTx(mem)}
	svc := NewService(mem, tx)

	res, err := svc.Ingest(context.Background(), []byte(`{"subject_id": "subj-1"}`))
	require.NoError(t, err)
	require.False(t, res.Success)
	require.NotEmpty(t, res.Errors)
	assert.Equal(t, "imports", res.Errors[0].Path)
	assert.Zero(t, tx.calls.Load())

	imports, err := mem.ListImports(context.Background(), "subj-1")
	require.NoError(t, err)
	assert.Empty(t, imports)
}

// failingStore wraps the memory store and fails the first search insert,
// simulating a mid-transaction storage fault.
type failingStore struct {
	store.Store
}

func (f *failingStore) InsertSearch(context.Context, *models.Search) error {
	return dErrors.New(dErrors.CodeInternal, "disk full")
}

// failingTx hands the pipeline a store that faults partway through, then
// relies on the real transaction boundary to roll back.
type failingTx struct {
	inner store.Tx
}

func (f *failingTx) RunInTx(ctx context.Context, fn func(st store.Store) error) error {
	return f.inner.RunInTx(ctx, func(st store.Store) error {
		return fn(&failingStore{Store: st})
	})
}

func TestIngestRollsBackOnStorageFailure(t *testing.T) {
	mem := memstore.New()
	svc := NewService(mem, &failingTx{inner: memstore.NewTx(mem)})

	res, err := svc.Ingest(context.Background(), []byte(fullPayload))
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, dErrors.HasCode(err, dErrors.CodeInternal))

	// Imports and tradelines were inserted before the failing search;
	// none of them may remain visible.
	imports, listErr := mem.ListImports(context.Background(), "subj-1")
	require.NoError(t, listErr)
	assert.Empty(t, imports)
}

// Concurrent identical ingests collapse to one stored import set: the
// subject lock spans the dedup check and the transaction.
func TestIngestConcurrentIdenticalPayloads(t *testing.T) {
	svc, mem := newTestService()

	const workers = 8
	var wg sync.WaitGroup
	var duplicates atomic.Int64
	for range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := svc.Ingest(context.Background(), []byte(fullPayload))
			if !assert.NoError(t, err) || !assert.True(t, res.Success) {
				return
			}
			if res.Duplicate {
				duplicates.Add(1)
			}
		}()
	}
	wg.Wait()

	assert.Equal(t, int64(workers-1), duplicates.Load())

	imports, err := mem.ListImports(context.Background(), "subj-1")
	require.NoError(t, err)
	assert.Len(t, imports, 2)
}

func TestIngestSamePayloadDifferentSubjectsIsNotDuplicate(t *testing.T) {
	svc, _ := newTestService()

	doc := func(subject string) []byte {
		return []byte(`{"subject_id": "` + subject + `", "imports": [{"ref": "a", "source_system": "equifax", "reported_at": "2026-01-15"}]}`)
	}

	first, err := svc.Ingest(context.Background(), doc("subj-1"))
	require.NoError(t, err)
	assert.False(t, first.Duplicate)

	second, err := svc.Ingest(context.Background(), doc("subj-2"))
	require.NoError(t, err)
	assert.False(t, second.Duplicate)
}
