package anomaly

import (
	"time"

	"creditwatch/internal/report/models"
)

// Snapshot is the state of the subject's file as reported by one ingested
// payload: the imports that arrived together plus their tradelines. Imports
// from one payload share a content hash, which is what groups them.
type Snapshot struct {
	PayloadHash string
	ReportedAt  time.Time
	CreatedAt   time.Time
	Imports     []models.Import
	Tradelines  []models.Tradeline
}

// Context is the read-only slice of a subject's timeline that rules
// evaluate against. Snapshots are chronological; Current and Prior expose
// the consecutive pair most rules diff.
type Context struct {
	SubjectID     string
	Snapshots     []Snapshot
	Searches      []models.Search
	Scores        []models.Score
	PublicRecords []models.PublicRecord
	// AsOf is the evaluation reference time, normally the latest
	// snapshot's reported-at.
	AsOf time.Time
}

// Current returns the latest snapshot, or nil when the timeline is empty.
func (c *Context) Current() *Snapshot {
	if len(c.Snapshots) == 0 {
		return nil
	}
	return &c.Snapshots[len(c.Snapshots)-1]
}

// Prior returns the snapshot preceding Current, or nil.
func (c *Context) Prior() *Snapshot {
	if len(c.Snapshots) < 2 {
		return nil
	}
	return &c.Snapshots[len(c.Snapshots)-2]
}

// BuildContext groups a subject's imports into payload snapshots ordered by
// reported-at (created-at as tie-break) and attaches the chronological
// search, score, and public-record sequences.
func BuildContext(subjectID string, imports []models.Import, tradelinesByImport map[string][]models.Tradeline,
	searches []models.Search, scores []models.Score, records []models.PublicRecord) *Context {

	byHash := make(map[string]*Snapshot)
	var order []string
	for _, imp := range imports {
		snap, ok := byHash[imp.PayloadHash]
		if !ok {
			snap = &Snapshot{PayloadHash: imp.PayloadHash, ReportedAt: imp.ReportedAt, CreatedAt: imp.CreatedAt}
			byHash[imp.PayloadHash] = snap
			order = append(order, imp.PayloadHash)
		}
		if imp.ReportedAt.After(snap.ReportedAt) {
			snap.ReportedAt = imp.ReportedAt
		}
		snap.Imports = append(snap.Imports, imp)
		snap.Tradelines = append(snap.Tradelines, tradelinesByImport[imp.ID.String()]...)
	}

	ctx := &Context{
		SubjectID:     subjectID,
		Searches:      searches,
		Scores:        scores,
		PublicRecords: records,
	}
	// Imports arrive ordered; payload grouping preserves that order.
	for _, hash := range order {
		ctx.Snapshots = append(ctx.Snapshots, *byHash[hash])
	}
	if cur := ctx.Current(); cur != nil {
		ctx.AsOf = cur.ReportedAt
	}
	return ctx
}

// tradelineKey identifies one account as reported by one source system, so
// consecutive-import diffs compare like with like.
type tradelineKey struct {
	source  string
	account string
}

func indexTradelines(lines []models.Tradeline) map[tradelineKey]models.Tradeline {
	out := make(map[tradelineKey]models.Tradeline, len(lines))
	for _, t := range lines {
		out[tradelineKey{source: t.SourceSystem, account: t.AccountKey()}] = t
	}
	return out
}

// knownAccounts collects every account key reported by any snapshot.
func knownAccounts(snapshots []Snapshot) map[string]bool {
	out := make(map[string]bool)
	for _, snap := range snapshots {
		for _, t := range snap.Tradelines {
			out[t.AccountKey()] = true
		}
	}
	return out
}
