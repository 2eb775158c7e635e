package tenancy

import (
	"sync"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/gurukulhq/gurukul/internal/domain"
)

type cacheEntry struct {
	tenant    *domain.Tenant
	expiresAt time.Time
}

// hostCache is a bounded, time-expiring host -> tenant cache. Reads are
// served without a store lookup until the entry expires or a binding
// mutation invalidates it. The size bound keeps a hostile client from
// growing the map without limit.
type hostCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	maxSize int
	clock   clock.Clock
}

func newHostCache(ttl time.Duration, maxSize int, clk clock.Clock) *hostCache {
	return &hostCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		maxSize: maxSize,
		clock:   clk,
	}
}

func (c *hostCache) get(host string) (*domain.Tenant, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[host]
	if !ok {
		return nil, false
	}
	if c.clock.Now().After(e.expiresAt) {
		delete(c.entries, host)
		return nil, false
	}
	return e.tenant, true
}

func (c *hostCache) put(host string, t *domain.Tenant) {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.clock.Now()
	if len(c.entries) >= c.maxSize {
		c.evictLocked(now)
	}

	c.entries[host] = cacheEntry{tenant: t, expiresAt: now.Add(c.ttl)}
}

// evictLocked drops expired entries; when nothing has expired it drops
// the entry closest to expiry so an insert always finds room.
func (c *hostCache) evictLocked(now time.Time) {
	var (
		oldestKey string
		oldestAt  time.Time
		found     bool
	)
	for host, e := range c.entries {
		if now.After(e.expiresAt) {
			delete(c.entries, host)
			continue
		}
		if !found || e.expiresAt.Before(oldestAt) {
			oldestKey, oldestAt, found = host, e.expiresAt, true
		}
	}
	if len(c.entries) >= c.maxSize && found {
		delete(c.entries, oldestKey)
	}
}

func (c *hostCache) invalidate(host string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, host)
}

func (c *hostCache) invalidateAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}

func (c *hostCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
