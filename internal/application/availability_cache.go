package application

import (
	"sort"
	"strings"
	"sync"
	"time"
)

// availabilityCache stores recently computed availability verdicts so that UI
// polling ("grey out unavailable resources") does not re-run the detector for
// identical queries while the booking store is unchanged. Every committed
// booking mutation invalidates the whole cache.
type availabilityCache struct {
	mu         sync.RWMutex
	now        func() time.Time
	ttl        time.Duration
	maxEntries int
	generation uint64
	entries    map[string]availabilityCacheEntry
}

type availabilityCacheEntry struct {
	result    AvailabilityResult
	expiresAt time.Time
}

func newAvailabilityCache(ttl time.Duration, maxEntries int, now func() time.Time) *availabilityCache {
	if ttl <= 0 {
		ttl = 15 * time.Second
	}
	if maxEntries <= 0 {
		maxEntries = 256
	}
	if now == nil {
		now = time.Now
	}
	return &availabilityCache{
		now:        now,
		ttl:        ttl,
		maxEntries: maxEntries,
		entries:    make(map[string]availabilityCacheEntry),
	}
}

func (c *availabilityCache) Get(key string) (AvailabilityResult, bool) {
	if c == nil {
		return AvailabilityResult{}, false
	}
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return AvailabilityResult{}, false
	}
	if c.now().After(entry.expiresAt) {
		c.mu.Lock()
		delete(c.entries, key)
		c.mu.Unlock()
		return AvailabilityResult{}, false
	}
	return cloneAvailabilityResult(entry.result), true
}

// Generation returns the current invalidation generation. Callers read it
// before computing a verdict and hand it back to Store, which rejects results
// computed against a snapshot that a commit has since invalidated.
func (c *availabilityCache) Generation() uint64 {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.generation
}

func (c *availabilityCache) Store(key string, result AvailabilityResult, generation uint64) {
	if c == nil {
		return
	}
	cloned := cloneAvailabilityResult(result)
	expiry := c.now().Add(c.ttl)

	c.mu.Lock()
	defer c.mu.Unlock()

	// A commit invalidated the cache after this verdict was computed; the
	// verdict may no longer hold.
	if generation != c.generation {
		return
	}

	c.cleanupLocked()
	if len(c.entries) >= c.maxEntries {
		c.evictOneLocked()
	}
	c.entries[key] = availabilityCacheEntry{result: cloned, expiresAt: expiry}
}

func (c *availabilityCache) Invalidate() {
	if c == nil {
		return
	}
	c.mu.Lock()
	c.generation++
	c.entries = make(map[string]availabilityCacheEntry)
	c.mu.Unlock()
}

func (c *availabilityCache) cleanupLocked() {
	now := c.now()
	for key, entry := range c.entries {
		if now.After(entry.expiresAt) {
			delete(c.entries, key)
		}
	}
}

func (c *availabilityCache) evictOneLocked() {
	for key := range c.entries {
		delete(c.entries, key)
		return
	}
}

func cloneAvailabilityResult(result AvailabilityResult) AvailabilityResult {
	out := AvailabilityResult{Available: result.Available}
	if len(result.Conflicts) > 0 {
		out.Conflicts = make([]ResourceConflict, len(result.Conflicts))
		copy(out.Conflicts, result.Conflicts)
	}
	return out
}

func buildAvailabilityCacheKey(query AvailabilityQuery) string {
	ids := make([]string, len(query.ResourceIDs))
	copy(ids, query.ResourceIDs)
	sort.Strings(ids)

	builder := strings.Builder{}
	builder.WriteString(strings.Join(ids, ","))
	builder.WriteString("|")
	builder.WriteString(query.Start.UTC().Format(time.RFC3339))
	builder.WriteString("|")
	builder.WriteString(query.End.UTC().Format(time.RFC3339))
	builder.WriteString("|")
	builder.WriteString(query.ExcludeBookingID)
	return builder.String()
}
