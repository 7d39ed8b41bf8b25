package application

import (
	"testing"
	"time"
)

func TestAvailabilityCache_StoreAndGet(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)
	cache := newAvailabilityCache(30*time.Second, 8, func() time.Time { return current })

	result := AvailabilityResult{
		Conflicts: []ResourceConflict{{ResourceID: "castle", BookingID: "booking-1"}},
	}
	cache.Store("key", result, cache.Generation())

	got, ok := cache.Get("key")
	if !ok {
		t.Fatalf("expected cache hit")
	}
	if len(got.Conflicts) != 1 || got.Conflicts[0].BookingID != "booking-1" {
		t.Fatalf("unexpected cached result: %+v", got)
	}

	// Cached results are copies; mutating one must not poison the cache.
	got.Conflicts[0].BookingID = "mutated"
	again, _ := cache.Get("key")
	if again.Conflicts[0].BookingID != "booking-1" {
		t.Fatalf("cache entry was aliased by a returned result")
	}
}

func TestAvailabilityCache_ExpiresEntries(t *testing.T) {
	t.Parallel()

	current := time.Date(2025, time.July, 1, 9, 0, 0, 0, time.UTC)
	cache := newAvailabilityCache(10*time.Second, 8, func() time.Time { return current })

	cache.Store("key", AvailabilityResult{Available: true}, cache.Generation())

	current = current.Add(11 * time.Second)
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("expected expired entry to miss")
	}
}

func TestAvailabilityCache_InvalidateDropsEverything(t *testing.T) {
	t.Parallel()

	cache := newAvailabilityCache(time.Minute, 8, nil)
	cache.Store("a", AvailabilityResult{Available: true}, cache.Generation())
	cache.Store("b", AvailabilityResult{Available: true}, cache.Generation())

	cache.Invalidate()

	if _, ok := cache.Get("a"); ok {
		t.Fatalf("expected miss after invalidate")
	}
	if _, ok := cache.Get("b"); ok {
		t.Fatalf("expected miss after invalidate")
	}
}

func TestAvailabilityCache_BoundsEntryCount(t *testing.T) {
	t.Parallel()

	cache := newAvailabilityCache(time.Minute, 2, nil)
	cache.Store("a", AvailabilityResult{Available: true}, cache.Generation())
	cache.Store("b", AvailabilityResult{Available: true}, cache.Generation())
	cache.Store("c", AvailabilityResult{Available: true}, cache.Generation())

	if len(cache.entries) > 2 {
		t.Fatalf("expected at most 2 entries, got %d", len(cache.entries))
	}
}

func TestAvailabilityCache_DropsResultsComputedBeforeInvalidation(t *testing.T) {
	t.Parallel()

	cache := newAvailabilityCache(time.Minute, 8, nil)

	// A verdict computed against a snapshot that a commit invalidated in the
	// meantime must never land in the cache.
	stale := cache.Generation()
	cache.Invalidate()
	cache.Store("key", AvailabilityResult{Available: true}, stale)

	if _, ok := cache.Get("key"); ok {
		t.Fatalf("stale generation result must not be cached")
	}

	cache.Store("key", AvailabilityResult{Available: true}, cache.Generation())
	if _, ok := cache.Get("key"); !ok {
		t.Fatalf("current generation result should be cached")
	}
}

func TestAvailabilityCache_NilReceiverIsSafe(t *testing.T) {
	t.Parallel()

	var cache *availabilityCache
	cache.Store("key", AvailabilityResult{Available: true}, cache.Generation())
	cache.Invalidate()
	if _, ok := cache.Get("key"); ok {
		t.Fatalf("nil cache must always miss")
	}
}

func TestBuildAvailabilityCacheKey_OrderIndependentResources(t *testing.T) {
	t.Parallel()

	start := time.Date(2025, time.July, 1, 0, 0, 0, 0, time.UTC)
	end := start.AddDate(0, 0, 1)

	a := buildAvailabilityCacheKey(AvailabilityQuery{ResourceIDs: []string{"castle", "slide"}, Start: start, End: end})
	b := buildAvailabilityCacheKey(AvailabilityQuery{ResourceIDs: []string{"slide", "castle"}, Start: start, End: end})
	if a != b {
		t.Fatalf("resource order must not change the key: %q vs %q", a, b)
	}

	excluded := buildAvailabilityCacheKey(AvailabilityQuery{ResourceIDs: []string{"castle", "slide"}, Start: start, End: end, ExcludeBookingID: "booking-1"})
	if a == excluded {
		t.Fatalf("exclusion must change the key")
	}
}
