package monitor

import (
	"container/list"
	"sync"
	"time"
)

// keyLRU remembers the most recently seen opportunity keys so repeat
// sightings are not re-reported while the opportunity persists. Once a key
// ages out of the LRU it counts as fresh again.
type keyLRU struct {
	mu       sync.Mutex
	capacity int
	order    *list.List
	index    map[string]*list.Element
}

func newKeyLRU(capacity int) *keyLRU {
	return &keyLRU{
		capacity: capacity,
		order:    list.New(),
		index:    make(map[string]*list.Element, capacity),
	}
}

// add records key and reports whether it was not already present.
func (l *keyLRU) add(key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()

	if el, ok := l.index[key]; ok {
		l.order.MoveToFront(el)
		return false
	}

	l.index[key] = l.order.PushFront(key)
	if l.order.Len() > l.capacity {
		oldest := l.order.Back()
		l.order.Remove(oldest)
		delete(l.index, oldest.Value.(string))
	}
	return true
}

// stabilityTracker counts recent sightings per key inside a sliding window.
// A key is stable once it has been seen often enough within the window,
// which filters out one-tick phantoms from a stale side of the book.
type stabilityTracker struct {
	mu        sync.Mutex
	window    time.Duration
	sightings map[string][]time.Time
}

func newStabilityTracker(window time.Duration) *stabilityTracker {
	return &stabilityTracker{
		window:    window,
		sightings: make(map[string][]time.Time),
	}
}

func (t *stabilityTracker) observe(key string, now time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.sightings[key] = append(t.prune(key, now), now)
}

// stable reports whether key has at least minCount sightings inside the
// window. minCount <= 1 always passes.
func (t *stabilityTracker) stable(key string, now time.Time, minCount int) bool {
	if minCount <= 1 {
		return true
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	kept := t.prune(key, now)
	if len(kept) == 0 {
		delete(t.sightings, key)
	} else {
		t.sightings[key] = kept
	}
	return len(kept) >= minCount
}

// prune drops sightings older than the window. Caller holds the lock.
func (t *stabilityTracker) prune(key string, now time.Time) []time.Time {
	seen := t.sightings[key]
	cutoff := now.Add(-t.window)
	i := 0
	for i < len(seen) && seen[i].Before(cutoff) {
		i++
	}
	return seen[i:]
}
