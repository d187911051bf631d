package ingest

import (
	"hash/fnv"
	"sync"
)

// numShards spreads subject locks across shards so unrelated subjects never
// contend while two ingestions of the same subject always serialize.
const numShards = 128

// subjectLocks serializes ingestion per subject. The dedup check and the
// insert transaction must be atomic with respect to a concurrent identical
// ingest, otherwise both pass the check and both write.
type subjectLocks struct {
	shards [numShards]sync.Mutex
}

func newSubjectLocks() *subjectLocks {
	return &subjectLocks{}
}

// lock acquires the shard for subjectID and returns the unlock func.
func (l *subjectLocks) lock(subjectID string) func() {
	h := fnv.New32a()
	_, _ = h.Write([]byte(subjectID))
	shard := &l.shards[h.Sum32()%numShards]
	shard.Lock()
	return shard.Unlock
}
