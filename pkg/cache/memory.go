package cache

import (
	"context"
	"time"

	gocache "github.com/patrickmn/go-cache"
)

// MemoryClaimStore is the single-process fallback for the Redis claim store
type MemoryClaimStore struct {
	store *gocache.Cache
}

// NewMemoryClaimStore creates an in-memory claim store.
// defaultExpiration: TTL used when Claim is given a non-positive ttl
// cleanupInterval: how often expired keys are purged
func NewMemoryClaimStore(defaultExpiration, cleanupInterval time.Duration) *MemoryClaimStore {
	return &MemoryClaimStore{
		store: gocache.New(defaultExpiration, cleanupInterval),
	}
}

func (c *MemoryClaimStore) Claim(_ context.Context, key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = gocache.DefaultExpiration
	}
	// Add fails when the key is present and unexpired
	return c.store.Add(key, struct{}{}, ttl) == nil, nil
}

func (c *MemoryClaimStore) Release(_ context.Context, key string) error {
	c.store.Delete(key)
	return nil
}

func (c *MemoryClaimStore) Flush() {
	c.store.Flush()
}
