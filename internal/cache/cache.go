package cache

import (
	"context"
	"sync"
	"time"

	"github.com/kjstillabower/solar-dashboard-service/internal/models"
)

// Cache defines the interface for dataset memoization backends.
// Get returns cached data if present and not expired, Set stores data with TTL,
// Delete drops a key and is a no-op when the key is absent.
type Cache interface {
	Get(ctx context.Context, key string) (models.Dataset, bool, error)
	Set(ctx context.Context, key string, value models.Dataset, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
}

// InMemoryCache implements Cache using a mutex-guarded map with TTL-based expiration.
// Expired entries are removed on access.
type InMemoryCache struct {
	mu   sync.Mutex
	data map[string]cacheEntry
}

// cacheEntry stores a cached dataset with its expiration timestamp.
type cacheEntry struct {
	value     models.Dataset
	expiresAt time.Time
}

// NewInMemoryCache creates a new in-memory cache instance.
func NewInMemoryCache() *InMemoryCache {
	return &InMemoryCache{
		data: make(map[string]cacheEntry),
	}
}

// Get retrieves the cached dataset for key if present and not expired.
// Returns (data, true, nil) on cache hit, (zero, false, nil) on miss or expiration.
func (c *InMemoryCache) Get(ctx context.Context, key string) (models.Dataset, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	entry, ok := c.data[key]
	if !ok {
		return models.Dataset{}, false, nil
	}

	if time.Now().After(entry.expiresAt) {
		delete(c.data, key)
		return models.Dataset{}, false, nil
	}

	return entry.value, true, nil
}

// Set stores the dataset with the specified TTL duration.
func (c *InMemoryCache) Set(ctx context.Context, key string, value models.Dataset, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cacheEntry{
		value:     value,
		expiresAt: time.Now().Add(ttl),
	}
	return nil
}

// Delete removes key from the cache.
func (c *InMemoryCache) Delete(ctx context.Context, key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.data, key)
	return nil
}

// Len returns the number of stored entries, expired ones included.
func (c *InMemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.data)
}
