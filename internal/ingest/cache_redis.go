package ingest

import (
	"context"
	"encoding/json"
	"time"

	platformredis "creditwatch/internal/platform/redis"
)

// DedupCache is an optional fast path in front of the store's dedup lookup.
// Purely an optimization: misses and errors fall through to the store, so
// correctness never depends on it.
type DedupCache interface {
	Get(ctx context.Context, subjectID, hash string) (*Result, bool)
	Put(ctx context.Context, subjectID, hash string, res *Result)
}

const redisDedupTTL = 24 * time.Hour

// RedisDedupCache keeps recent ingest results keyed by subject and content
// hash.
type RedisDedupCache struct {
	client *platformredis.Client
}

func NewRedisDedupCache(client *platformredis.Client) *RedisDedupCache {
	return &RedisDedupCache{client: client}
}

func dedupKey(subjectID, hash string) string {
	return "creditwatch:dedup:" + subjectID + ":" + hash
}

func (c *RedisDedupCache) Get(ctx context.Context, subjectID, hash string) (*Result, bool) {
	raw, err := c.client.Get(ctx, dedupKey(subjectID, hash)).Bytes()
	if err != nil {
		return nil, false
	}
	var res Result
	if err := json.Unmarshal(raw, &res); err != nil {
		return nil, false
	}
	return &res, true
}

func (c *RedisDedupCache) Put(ctx context.Context, subjectID, hash string, res *Result) {
	raw, err := json.Marshal(res)
	if err != nil {
		return
	}
	_ = c.client.Set(ctx, dedupKey(subjectID, hash), raw, redisDedupTTL).Err()
}
