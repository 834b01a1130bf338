package metadata

import (
	"sync"

	lru "github.com/hashicorp/golang-lru/v2"

	"rent-reclaim-go/internal/reclaim"
)

// Cache is the process-wide metadata cache: the downloaded token list is
// kept for the process lifetime so multi-megabyte lists are fetched at most
// once, and individually resolved mints are kept in a bounded LRU. It is
// constructed once and injected, so tests can substitute an isolated
// instance.
type Cache struct {
	mu        sync.RWMutex
	tokenList map[string]reclaim.TokenMeta
	listReady bool

	mints *lru.Cache[string, reclaim.TokenMeta]
}

// NewCache creates a cache with the given per-mint capacity
func NewCache(mintCapacity int) (*Cache, error) {
	mints, err := lru.New[string, reclaim.TokenMeta](mintCapacity)
	if err != nil {
		return nil, err
	}
	return &Cache{mints: mints}, nil
}

// TokenList returns the cached token list, or nil if none was stored yet
func (c *Cache) TokenList() map[string]reclaim.TokenMeta {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if !c.listReady {
		return nil
	}
	return c.tokenList
}

// SetTokenList stores a downloaded token list for the process lifetime.
// Concurrent enrichment calls may race to populate; last writer wins, which
// is fine for read-only reference data.
func (c *Cache) SetTokenList(list map[string]reclaim.TokenMeta) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.tokenList = list
	c.listReady = true
}

// Mint returns cached metadata for one mint
func (c *Cache) Mint(mint string) (reclaim.TokenMeta, bool) {
	return c.mints.Get(mint)
}

// PutMint caches resolved metadata for one mint
func (c *Cache) PutMint(mint string, meta reclaim.TokenMeta) {
	c.mints.Add(mint, meta)
}
