// Package cache provides the TTL caches the agent keeps in front of venue
// REST APIs: discovery market lists, mapping lookups, and book snapshots
// fetched outside the WebSocket path.
package cache

import "time"

// Cache is a TTL key-value cache.
type Cache interface {
	// Get retrieves a value. Returns (nil, false) when absent or expired.
	Get(key string) (interface{}, bool)

	// Set stores a value with a TTL. Admission is best-effort; a false
	// return means the value was not cached.
	Set(key string, value interface{}, ttl time.Duration) bool

	// Delete removes a value.
	Delete(key string)

	// Clear removes all values.
	Clear()

	// Close releases cache resources.
	Close()
}
