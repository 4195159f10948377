package cache

import (
	"testing"
	"time"

	"go.uber.org/zap"
)

func newTestCache(t *testing.T) *RistrettoCache {
	t.Helper()

	c, err := NewRistrettoCache(&RistrettoConfig{
		Name:        "test",
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
		Logger:      zap.NewNop(),
	})
	if err != nil {
		t.Fatalf("failed to create cache: %v", err)
	}
	t.Cleanup(c.Close)

	return c
}

func TestRistrettoCache(t *testing.T) {
	cache := newTestCache(t)

	t.Run("set-and-get", func(t *testing.T) {
		if !cache.Set("test-key", "test-value", time.Hour) {
			t.Error("expected Set to succeed")
		}
		cache.Wait()

		retrieved, found := cache.Get("test-key")
		if !found {
			t.Error("expected key to be found")
		}
		if retrieved != "test-value" {
			t.Errorf("expected %q, got %q", "test-value", retrieved)
		}
	})

	t.Run("get-missing-key", func(t *testing.T) {
		if _, found := cache.Get("nonexistent"); found {
			t.Error("expected key to not be found")
		}
	})

	t.Run("delete", func(t *testing.T) {
		cache.Set("delete-test", "value", time.Hour)
		cache.Wait()

		if _, found := cache.Get("delete-test"); !found {
			t.Error("expected key to exist before delete")
		}

		cache.Delete("delete-test")

		if _, found := cache.Get("delete-test"); found {
			t.Error("expected key to be deleted")
		}
	})

	t.Run("ttl-expiration", func(t *testing.T) {
		cache.Set("ttl-test", "value", 200*time.Millisecond)
		cache.Wait()

		if _, found := cache.Get("ttl-test"); !found {
			t.Error("expected key to exist before TTL expires")
		}

		time.Sleep(300 * time.Millisecond)

		if _, found := cache.Get("ttl-test"); found {
			t.Error("expected key to be expired after TTL")
		}
	})

	t.Run("clear", func(t *testing.T) {
		cache.Set("clear-key1", "value1", time.Hour)
		cache.Set("clear-key2", "value2", time.Hour)
		cache.Wait()

		_, found1 := cache.Get("clear-key1")
		_, found2 := cache.Get("clear-key2")
		if !found1 || !found2 {
			t.Skip("probabilistic admission declined a key")
		}

		cache.Clear()

		_, found1 = cache.Get("clear-key1")
		_, found2 = cache.Get("clear-key2")
		if found1 || found2 {
			t.Error("expected all keys to be cleared")
		}
	})

	t.Run("stores-structured-values", func(t *testing.T) {
		type entry struct{ Question string }

		cache.Set("struct-key", []entry{{Question: "q"}}, time.Hour)
		cache.Wait()

		v, found := cache.Get("struct-key")
		if !found {
			t.Skip("probabilistic admission declined the key")
		}
		list, ok := v.([]entry)
		if !ok || len(list) != 1 || list[0].Question != "q" {
			t.Errorf("value = %#v", v)
		}
	})
}
