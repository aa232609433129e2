package routing

import (
	"sync"
	"time"

	lru "github.com/hashicorp/golang-lru/v2/expirable"

	"github.com/maestro-ai/maestro/pkg/models"
)

// Defaults applied when the config leaves cache sizing unset.
const (
	DefaultCacheSize = 1024
	DefaultCacheTTL  = 10 * time.Minute
)

// Stats is a snapshot of cache effectiveness counters.
type Stats struct {
	Hits    uint64 `json:"hits"`
	Misses  uint64 `json:"misses"`
	Entries int    `json:"entries"`
	Flushes uint64 `json:"flushes"`
}

// Cache is a bounded LRU of routing decisions with a uniform TTL. Process-wide
// and read-mostly; all mutation goes through its own API.
type Cache struct {
	mu      sync.Mutex
	lru     *lru.LRU[string, models.RoutingDecision]
	size    int
	ttl     time.Duration
	hits    uint64
	misses  uint64
	flushes uint64
}

// NewCache builds a cache with the given bounds. Non-positive arguments fall
// back to the defaults.
func NewCache(size int, ttl time.Duration) *Cache {
	if size <= 0 {
		size = DefaultCacheSize
	}
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		lru:  lru.NewLRU[string, models.RoutingDecision](size, nil, ttl),
		size: size,
		ttl:  ttl,
	}
}

// Get returns the cached decision for fingerprint, if present and unexpired.
// Served decisions are marked Cached.
func (c *Cache) Get(fingerprint string) (models.RoutingDecision, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	decision, ok := c.lru.Get(fingerprint)
	if !ok {
		c.misses++
		return models.RoutingDecision{}, false
	}
	c.hits++
	decision.Cached = true
	return decision, true
}

// Put stores a decision under fingerprint, evicting the LRU entry when full.
func (c *Cache) Put(fingerprint string, decision models.RoutingDecision) {
	// Never persist the served-from-cache marker.
	decision.Cached = false
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Add(fingerprint, decision)
}

// Invalidate clears every entry. Called on reasoner or routing-config
// version changes.
func (c *Cache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.lru.Purge()
	c.flushes++
}

// Stats returns a counter snapshot.
func (c *Cache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	return Stats{
		Hits:    c.hits,
		Misses:  c.misses,
		Entries: c.lru.Len(),
		Flushes: c.flushes,
	}
}

// TTL returns the configured entry lifetime.
func (c *Cache) TTL() time.Duration { return c.ttl }
