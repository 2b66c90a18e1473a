package search

import (
	"sort"
	"strings"
	"sync"
	"time"

	"torrentsearch/searchd/internal/domain"
	"torrentsearch/searchd/internal/metrics"
)

const (
	defaultCacheTTL = 5 * time.Minute
	maxCacheEntries = 256
)

type cacheEntry struct {
	results   domain.SearchResults
	expiresAt time.Time
}

// roundCache remembers completed final rounds keyed by the query, category
// and the exact provider set that produced them. Partial emissions are never
// cached. An optional Redis backend shares entries across instances; the
// in-memory map always works as the first tier.
type roundCache struct {
	ttl      time.Duration
	disabled bool
	redis    *RedisCacheBackend

	mu      sync.Mutex
	entries map[string]cacheEntry
}

func newRoundCache() *roundCache {
	return &roundCache{
		ttl:     defaultCacheTTL,
		entries: make(map[string]cacheEntry),
	}
}

func buildRoundCacheKey(query string, category domain.Category, providers []Provider) string {
	ids := make([]string, 0, len(providers))
	for _, provider := range providers {
		ids = append(ids, provider.Info().ID)
	}
	sort.Strings(ids)

	var b strings.Builder
	b.WriteString(strings.ToLower(strings.TrimSpace(query)))
	b.WriteByte('|')
	b.WriteString(string(category))
	b.WriteByte('|')
	b.WriteString(strings.Join(ids, ","))
	return b.String()
}

func (c *roundCache) lookup(query string, category domain.Category, providers []Provider) (domain.SearchResults, bool) {
	if c.disabled {
		return domain.SearchResults{}, false
	}
	key := buildRoundCacheKey(query, category, providers)
	now := time.Now()

	c.mu.Lock()
	entry, ok := c.entries[key]
	if ok && now.Before(entry.expiresAt) {
		c.mu.Unlock()
		metrics.CacheHitsTotal.Inc()
		return entry.results, true
	}
	if ok {
		delete(c.entries, key)
	}
	c.mu.Unlock()

	if c.redis != nil {
		if results, ok := c.redis.Get(key); ok {
			c.mu.Lock()
			c.entries[key] = cacheEntry{results: results, expiresAt: now.Add(c.ttl)}
			c.trimLocked()
			c.mu.Unlock()
			metrics.CacheHitsTotal.Inc()
			return results, true
		}
	}

	metrics.CacheMissesTotal.Inc()
	return domain.SearchResults{}, false
}

func (c *roundCache) store(query string, category domain.Category, providers []Provider, results domain.SearchResults) {
	if c.disabled || !results.Final {
		return
	}
	key := buildRoundCacheKey(query, category, providers)

	c.mu.Lock()
	c.entries[key] = cacheEntry{results: results, expiresAt: time.Now().Add(c.ttl)}
	c.trimLocked()
	c.mu.Unlock()

	if c.redis != nil {
		c.redis.Set(key, results, c.ttl)
	}
}

// trimLocked evicts the entries closest to expiry once the map outgrows
// maxCacheEntries. Callers hold c.mu.
func (c *roundCache) trimLocked() {
	if len(c.entries) <= maxCacheEntries {
		return
	}
	type keyed struct {
		key       string
		expiresAt time.Time
	}
	all := make([]keyed, 0, len(c.entries))
	for key, entry := range c.entries {
		all = append(all, keyed{key: key, expiresAt: entry.expiresAt})
	}
	sort.Slice(all, func(i, j int) bool {
		return all[i].expiresAt.Before(all[j].expiresAt)
	})
	for _, victim := range all[:len(all)-maxCacheEntries] {
		delete(c.entries, victim.key)
	}
}
