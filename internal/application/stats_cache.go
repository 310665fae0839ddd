package application

import (
	"sync"
	"time"
)

// statsCache stores recently computed dashboard statistics so repeated
// dashboard loads skip recomputation while members and plans are unchanged.
type statsCache struct {
	mu      sync.RWMutex
	now     func() time.Time
	ttl     time.Duration
	entries map[string]statsCacheEntry

	// generation advances on every Invalidate.
	generation uint64
}

type statsCacheEntry struct {
	stats     DashboardStats
	expiresAt time.Time
}

func newStatsCache(ttl time.Duration, now func() time.Time) *statsCache {
	if ttl <= 0 {
		ttl = 30 * time.Second
	}
	if now == nil {
		now = time.Now
	}
	return &statsCache{now: now, ttl: ttl, entries: make(map[string]statsCacheEntry)}
}

func (c *statsCache) Get(key string) (DashboardStats, bool) {
	if c == nil {
		return DashboardStats{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return DashboardStats{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return DashboardStats{}, false
	}
	return cloneStats(entry.stats), true
}

// Generation reports the invalidation count. Read it before taking the
// snapshot the stored stats are computed from.
func (c *statsCache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

// Store caches stats computed at generation gen. It reports false and stores
// nothing when an invalidation happened since gen was read.
func (c *statsCache) Store(key string, stats DashboardStats, gen uint64) bool {
	if c == nil {
		return false
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	if gen != c.generation {
		return false
	}
	c.entries[key] = statsCacheEntry{stats: cloneStats(stats), expiresAt: c.now().Add(c.ttl)}
	return true
}

func (c *statsCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.entries = make(map[string]statsCacheEntry)
	c.generation++
	c.mu.Unlock()
}

func cloneStats(stats DashboardStats) DashboardStats {
	out := stats
	if stats.MembersByPlan != nil {
		out.MembersByPlan = make(map[string]int, len(stats.MembersByPlan))
		for plan, count := range stats.MembersByPlan {
			out.MembersByPlan[plan] = count
		}
	}
	return out
}
