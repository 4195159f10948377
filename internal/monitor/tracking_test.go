package monitor

import (
	"testing"
	"time"

	"github.com/mselser95/predict-agent/pkg/types"
)

func TestKeyLRUDedup(t *testing.T) {
	lru := newKeyLRU(2)

	if !lru.add("a") {
		t.Error("first sighting of a should be fresh")
	}
	if lru.add("a") {
		t.Error("repeat sighting of a should not be fresh")
	}
	if !lru.add("b") {
		t.Error("first sighting of b should be fresh")
	}

	// Capacity 2: adding c evicts a, which then counts as fresh again.
	if !lru.add("c") {
		t.Error("first sighting of c should be fresh")
	}
	if !lru.add("a") {
		t.Error("evicted key should be fresh again")
	}
}

func TestKeyLRUTouchRefreshesRecency(t *testing.T) {
	lru := newKeyLRU(2)

	lru.add("a")
	lru.add("b")
	lru.add("a") // touch: b is now oldest
	lru.add("c") // evicts b

	if !lru.add("b") {
		t.Error("b should have been evicted")
	}
	if lru.add("a") {
		t.Error("a should have survived the eviction")
	}
}

func TestStabilityTrackerWindow(t *testing.T) {
	tracker := newStabilityTracker(time.Minute)
	base := time.Now()

	tracker.observe("k", base)
	if tracker.stable("k", base, 2) {
		t.Error("one sighting should not be stable at minCount 2")
	}

	tracker.observe("k", base.Add(10*time.Second))
	if !tracker.stable("k", base.Add(10*time.Second), 2) {
		t.Error("two sightings inside the window should be stable")
	}

	// The first sighting ages out of the window.
	if tracker.stable("k", base.Add(90*time.Second), 2) {
		t.Error("sightings outside the window should not count")
	}
}

func TestStabilityTrackerMinCountOneAlwaysPasses(t *testing.T) {
	tracker := newStabilityTracker(time.Minute)
	if !tracker.stable("never-seen", time.Now(), 1) {
		t.Error("minCount 1 should always pass")
	}
	if !tracker.stable("never-seen", time.Now(), 0) {
		t.Error("minCount 0 should always pass")
	}
}

func TestTakeBatchBounds(t *testing.T) {
	set := map[types.BookKey]struct{}{
		{Venue: types.VenuePredict, TokenID: "a"}: {},
		{Venue: types.VenuePredict, TokenID: "b"}: {},
		{Venue: types.VenuePredict, TokenID: "c"}: {},
	}

	batch := takeBatch(set, 2)
	if len(batch) != 2 {
		t.Errorf("batch = %d keys, want 2", len(batch))
	}
	if len(set) != 1 {
		t.Errorf("set = %d keys after take, want 1", len(set))
	}

	rest := takeBatch(set, 2)
	if len(rest) != 1 || len(set) != 0 {
		t.Errorf("second take = %d keys, set = %d", len(rest), len(set))
	}
	if takeBatch(set, 2) != nil {
		t.Error("empty set should yield nil")
	}
}
