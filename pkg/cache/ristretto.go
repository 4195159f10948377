package cache

import (
	"time"

	"github.com/dgraph-io/ristretto"
	"go.uber.org/zap"
)

// RistrettoCache is a Cache backed by Ristretto. Each instance carries a name
// so its metrics stay separable (discovery vs mapping vs books).
type RistrettoCache struct {
	name   string
	cache  *ristretto.Cache
	logger *zap.Logger
}

// RistrettoConfig holds configuration for a Ristretto cache.
type RistrettoConfig struct {
	Name        string // metric label, e.g. "discovery"
	NumCounters int64  // keys to track frequency for (10x max items)
	MaxCost     int64  // maximum cost (we cost every item at 1)
	BufferItems int64  // keys per Get buffer
	Logger      *zap.Logger
}

// NewRistrettoCache creates a named Ristretto-backed cache.
func NewRistrettoCache(cfg *RistrettoConfig) (*RistrettoCache, error) {
	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: cfg.NumCounters,
		MaxCost:     cfg.MaxCost,
		BufferItems: cfg.BufferItems,
		Metrics:     true,
	})
	if err != nil {
		return nil, err
	}

	return &RistrettoCache{
		name:   cfg.Name,
		cache:  cache,
		logger: cfg.Logger,
	}, nil
}

// Get retrieves a value from the cache.
func (r *RistrettoCache) Get(key string) (interface{}, bool) {
	value, found := r.cache.Get(key)
	if found {
		HitsTotal.WithLabelValues(r.name).Inc()
	} else {
		MissesTotal.WithLabelValues(r.name).Inc()
	}
	return value, found
}

// Set stores a value with a TTL. Every item costs 1: capacity is an item
// count, not bytes.
func (r *RistrettoCache) Set(key string, value interface{}, ttl time.Duration) bool {
	success := r.cache.SetWithTTL(key, value, 1, ttl)
	if success {
		SetsTotal.WithLabelValues(r.name).Inc()
		r.logger.Debug("cache-set",
			zap.String("cache", r.name),
			zap.String("key", key),
			zap.Duration("ttl", ttl))
	}
	return success
}

// Delete removes a value from the cache.
func (r *RistrettoCache) Delete(key string) {
	r.cache.Del(key)
	DeletesTotal.WithLabelValues(r.name).Inc()
}

// Clear removes all values from the cache.
func (r *RistrettoCache) Clear() {
	r.cache.Clear()
	r.logger.Info("cache-cleared", zap.String("cache", r.name))
}

// Close closes the cache and releases resources.
func (r *RistrettoCache) Close() {
	r.cache.Close()
}

// Metrics returns Ristretto's internal metrics.
func (r *RistrettoCache) Metrics() *ristretto.Metrics {
	return r.cache.Metrics
}

// Wait blocks until pending writes have been applied. Ristretto admits
// asynchronously; callers that need read-after-write use this.
func (r *RistrettoCache) Wait() {
	r.cache.Wait()
}
