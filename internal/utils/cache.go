package utils

import (
	"time"

	lru "github.com/hashicorp/golang-lru/v2"
)

// CacheItem wraps a value with its expiry time.
type CacheItem[T any] struct {
	Value     T
	ExpiredAt time.Time
}

// TTLCache is a size-bounded LRU cache whose entries also expire after a
// fixed duration. Used for recommendation answers so repeated queries skip
// the embedding, retrieval and LLM round trips.
type TTLCache[T any] struct {
	storage *lru.Cache[string, CacheItem[T]]
	ttl     time.Duration
}

// NewTTLCache creates a cache holding at most size entries, each valid for
// ttl. lru.Cache is safe for concurrent use.
func NewTTLCache[T any](size int, ttl time.Duration) *TTLCache[T] {
	c, _ := lru.New[string, CacheItem[T]](size)
	return &TTLCache[T]{
		storage: c,
		ttl:     ttl,
	}
}

// Set stores or refreshes a value.
func (c *TTLCache[T]) Set(key string, value T) {
	c.storage.Add(key, CacheItem[T]{
		Value:     value,
		ExpiredAt: time.Now().Add(c.ttl),
	})
}

// Get returns the value when present and not yet expired.
func (c *TTLCache[T]) Get(key string) (T, bool) {
	var zero T
	item, ok := c.storage.Get(key)
	if !ok {
		return zero, false
	}

	if time.Now().After(item.ExpiredAt) {
		c.storage.Remove(key)
		return zero, false
	}

	return item.Value, true
}

// Delete removes one entry.
func (c *TTLCache[T]) Delete(key string) {
	c.storage.Remove(key)
}

// Clear drops every entry.
func (c *TTLCache[T]) Clear() {
	c.storage.Purge()
}

// Len reports the current number of entries.
func (c *TTLCache[T]) Len() int {
	return c.storage.Len()
}
