package anomaly

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"creditwatch/internal/report/models"
)

func TestBuildContextGroupsImportsByPayload(t *testing.T) {
	base := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

	eq1 := models.Import{ID: uuid.New(), SubjectID: "subj-1", SourceSystem: "equifax", ReportedAt: base, PayloadHash: "hash-1", CreatedAt: base}
	ex1 := models.Import{ID: uuid.New(), SubjectID: "subj-1", SourceSystem: "experian", ReportedAt: base.Add(time.Hour), PayloadHash: "hash-1", CreatedAt: base}
	eq2 := models.Import{ID: uuid.New(), SubjectID: "subj-1", SourceSystem: "equifax", ReportedAt: base.AddDate(0, 1, 0), PayloadHash: "hash-2", CreatedAt: base.AddDate(0, 1, 0)}

	lines := map[string][]models.Tradeline{
		eq1.ID.String(): {{ID: uuid.New(), ImportID: eq1.ID, SourceSystem: "equifax", Lender: "HSBC", AccountNumber: "1"}},
		ex1.ID.String(): {{ID: uuid.New(), ImportID: ex1.ID, SourceSystem: "experian", Lender: "HSBC", AccountNumber: "1"}},
		eq2.ID.String(): {{ID: uuid.New(), ImportID: eq2.ID, SourceSystem: "equifax", Lender: "HSBC", AccountNumber: "1"}},
	}

	actx := BuildContext("subj-1", []models.Import{eq1, ex1, eq2}, lines, nil, nil, nil)

	require.Len(t, actx.Snapshots, 2)
	assert.Len(t, actx.Snapshots[0].Imports, 2)
	assert.Len(t, actx.Snapshots[0].Tradelines, 2)
	assert.Len(t, actx.Snapshots[1].Imports, 1)

	// Snapshot reported-at is the latest import in the batch.
	assert.Equal(t, base.Add(time.Hour), actx.Snapshots[0].ReportedAt)

	require.NotNil(t, actx.Current())
	require.NotNil(t, actx.Prior())
	assert.Equal(t, "hash-2", actx.Current().PayloadHash)
	assert.Equal(t, "hash-1", actx.Prior().PayloadHash)
	assert.Equal(t, actx.Current().ReportedAt, actx.AsOf)
}

func TestContextSingleSnapshotHasNoPrior(t *testing.T) {
	imp := models.Import{ID: uuid.New(), SubjectID: "subj-1", PayloadHash: "hash-1", ReportedAt: time.Now()}
	actx := BuildContext("subj-1", []models.Import{imp}, nil, nil, nil, nil)

	require.NotNil(t, actx.Current())
	assert.Nil(t, actx.Prior())
}

func TestContextEmptyTimeline(t *testing.T) {
	actx := BuildContext("subj-1", nil, nil, nil, nil, nil)
	assert.Nil(t, actx.Current())
	assert.Nil(t, actx.Prior())
	assert.True(t, actx.AsOf.IsZero())
}
