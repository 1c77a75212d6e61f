package oasis

import (
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"
)

type cacheEntry struct {
	table     *Table
	expiresAt time.Time
}

// ResponseCache keeps decoded tables of successful requests for a while, so a
// long-running process (the API server) does not hit OASIS twice for the same
// window. Only CSV results are cached; failures are always retried upstream.
type ResponseCache struct {
	mu    sync.RWMutex
	store map[string]cacheEntry
	ttl   time.Duration
	now   func() time.Time
}

// NewResponseCache returns a cache with the given TTL (1h if ttl <= 0).
func NewResponseCache(ttl time.Duration) *ResponseCache {
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &ResponseCache{
		store: make(map[string]cacheEntry),
		ttl:   ttl,
		now:   time.Now,
	}
}

// Get retrieves a cached table if present and not expired.
func (c *ResponseCache) Get(key string) (*Table, bool) {
	if c == nil {
		return nil, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, ok := c.store[key]
	if !ok || c.now().After(entry.expiresAt) {
		return nil, false
	}
	return entry.table, true
}

// Set stores a table and drops expired entries.
func (c *ResponseCache) Set(key string, table *Table) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, e := range c.store {
		if now.After(e.expiresAt) {
			delete(c.store, k)
		}
	}
	c.store[key] = cacheEntry{table: table, expiresAt: now.Add(c.ttl)}
}

func (c *ResponseCache) Len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.store)
}

func (c *ResponseCache) Clear() {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.store = make(map[string]cacheEntry)
}

// GenerateCacheKey hashes the encoded query parameters. Values.Encode sorts by
// key, so the key is deterministic.
func GenerateCacheKey(req *Request) string {
	hash := sha256.Sum256([]byte(req.Values.Encode()))
	return hex.EncodeToString(hash[:])
}
