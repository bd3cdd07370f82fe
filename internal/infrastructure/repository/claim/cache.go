package claim

import (
	"strings"

	lru "github.com/hashicorp/golang-lru"

	domain "jan-server/services/claims-api/internal/domain/claim"
)

// claimCache is a read-through LRU of claims keyed by normalized claim id.
// Entries are copies so callers may mutate what they get back.
type claimCache struct {
	cache *lru.Cache
}

func newClaimCache(size int) (*claimCache, error) {
	if size <= 0 {
		return &claimCache{}, nil
	}
	cache, err := lru.New(size)
	if err != nil {
		return nil, err
	}
	return &claimCache{cache: cache}, nil
}

func cacheKey(claimID string) string {
	return strings.ToLower(strings.TrimSpace(claimID))
}

func (c *claimCache) get(claimID string) (*domain.Claim, bool) {
	if c.cache == nil {
		return nil, false
	}
	value, ok := c.cache.Get(cacheKey(claimID))
	if !ok {
		return nil, false
	}
	cached, ok := value.(domain.Claim)
	if !ok {
		return nil, false
	}
	return &cached, true
}

func (c *claimCache) put(found *domain.Claim) {
	if c.cache == nil || found == nil {
		return
	}
	c.cache.Add(cacheKey(found.ClaimID), *found)
}

func (c *claimCache) invalidate(claimID string) {
	if c.cache == nil {
		return
	}
	c.cache.Remove(cacheKey(claimID))
}
