package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"creditwatch/internal/report/models"
	"creditwatch/internal/report/store"
	dErrors "creditwatch/pkg/domain-errors"
)

// defaultTxTimeout bounds an in-memory transaction the same way the
// postgres boundary does, so callers see uniform timeout behavior.
const defaultTxTimeout = 5 * time.Second

// Tx gives the in-memory store the same all-or-nothing contract as a
// database transaction: it serializes writers, snapshots the maps before
// running fn, and restores the snapshot when fn fails.
type Tx struct {
	mu      sync.Mutex
	store   *Store
	timeout time.Duration
}

func NewTx(s *Store) *Tx {
	return &Tx{store: s, timeout: defaultTxTimeout}
}

func (t *Tx) RunInTx(ctx context.Context, fn func(s store.Store) error) error {
	if err := ctx.Err(); err != nil {
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	snap := t.snapshot()
	if err := fn(t.store); err != nil {
		t.restore(snap)
		return err
	}
	if err := ctx.Err(); err != nil {
		t.restore(snap)
		return dErrors.Wrap(err, dErrors.CodeTimeout, "transaction aborted: context cancelled")
	}
	return nil
}

type snapshot struct {
	subjects      map[string]models.Subject
	imports       map[uuid.UUID]models.Import
	tradelines    map[uuid.UUID]models.Tradeline
	searches      map[uuid.UUID]models.Search
	scores        map[uuid.UUID]models.Score
	publicRecords map[uuid.UUID]models.PublicRecord
	addresses     map[uuid.UUID]models.Address
}

func (t *Tx) snapshot() snapshot {
	s := t.store
	s.mu.RLock()
	defer s.mu.RUnlock()

	snap := snapshot{
		subjects:      make(map[string]models.Subject, len(s.subjects)),
		imports:       make(map[uuid.UUID]models.Import, len(s.imports)),
		tradelines:    make(map[uuid.UUID]models.Tradeline, len(s.tradelines)),
		searches:      make(map[uuid.UUID]models.Search, len(s.searches)),
		scores:        make(map[uuid.UUID]models.Score, len(s.scores)),
		publicRecords: make(map[uuid.UUID]models.PublicRecord, len(s.publicRecords)),
		addresses:     make(map[uuid.UUID]models.Address, len(s.addresses)),
	}
	for k, v := range s.subjects {
		snap.subjects[k] = v
	}
	for k, v := range s.imports {
		v.EntityCounts = v.EntityCounts.Clone()
		snap.imports[k] = v
	}
	for k, v := range s.tradelines {
		snap.tradelines[k] = v
	}
	for k, v := range s.searches {
		snap.searches[k] = v
	}
	for k, v := range s.scores {
		snap.scores[k] = v
	}
	for k, v := range s.publicRecords {
		snap.publicRecords[k] = v
	}
	for k, v := range s.addresses {
		snap.addresses[k] = v
	}
	return snap
}

func (t *Tx) restore(snap snapshot) {
	s := t.store
	s.mu.Lock()
	defer s.mu.Unlock()
	s.subjects = snap.subjects
	s.imports = snap.imports
	s.tradelines = snap.tradelines
	s.searches = snap.searches
	s.scores = snap.scores
	s.publicRecords = snap.publicRecords
	s.addresses = snap.addresses
}
