package matcher

import (
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"
)

// DefaultCacheTTL is how long a computed answer is served from the cache.
const DefaultCacheTTL = 10 * time.Minute

// cacheEntry is a cached payload and the time it was stored.
type cacheEntry struct {
	payload    any
	insertedAt time.Time
}

// Cache memoizes query results for a fixed time window. Expired entries are
// evicted lazily on read; there is no size bound and no background sweep.
// A Cache is safe for concurrent use.
type Cache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewCache creates an empty cache. A non-positive ttl selects DefaultCacheTTL.
func NewCache(ttl time.Duration) *Cache {
	if ttl <= 0 {
		ttl = DefaultCacheTTL
	}
	return &Cache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns the payload stored under key if it is younger than the TTL.
// An expired entry is removed and reported as a miss.
func (c *Cache) Get(key string) (any, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(entry.insertedAt) < c.ttl {
		return entry.payload, true
	}
	delete(c.entries, key)
	return nil, false
}

// Set stores payload under key, replacing any previous entry.
func (c *Cache) Set(key string, payload any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{payload: payload, insertedAt: c.now()}
}

// Clear removes every entry.
func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

// Len returns the number of stored entries, expired or not.
func (c *Cache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

// TTL returns the configured time window.
func (c *Cache) TTL() time.Duration {
	return c.ttl
}

// ticketCacheKey encodes every parameter that affects a ticket lookup.
func ticketCacheKey(ticketKey, repo string, states []string) string {
	if repo == "" {
		repo = "all-repos"
	}
	return "pr-ticket:" + ticketKey + ":" + repo + ":" + strings.Join(sortedCopy(states), ",")
}

// prCacheKey encodes every parameter that affects a reverse lookup.
func prCacheKey(prID int, repo string) string {
	return "ticket-pr:" + strconv.Itoa(prID) + ":" + repo
}

// batchCacheKey encodes every parameter that affects a batch lookup.
func batchCacheKey(ticketKeys []string, repo string, states []string, maxResults int) string {
	return "pr-batch:" + strings.Join(sortedCopy(ticketKeys), ",") + ":" + repo + ":" +
		strings.Join(sortedCopy(states), ",") + ":" + strconv.Itoa(maxResults)
}

func sortedCopy(values []string) []string {
	out := append([]string(nil), values...)
	sort.Strings(out)
	return out
}
