package cache

import (
	"sync"
	"time"

	"github.com/amirasaad/payproc/pkg/dto"
)

// MemoryCache implements TransactionCache using in-memory storage
type MemoryCache struct {
	cache map[string]*cacheEntry
	mu    sync.RWMutex
}

// NewMemoryCache creates a new in-memory cache
func NewMemoryCache() *MemoryCache {
	cache := &MemoryCache{
		cache: make(map[string]*cacheEntry),
	}

	// Start cleanup goroutine
	go cache.cleanup()

	return cache
}

// Get retrieves a transaction from cache
func (c *MemoryCache) Get(key string) (*dto.TransactionRead, error) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	entry, exists := c.cache[key]
	if !exists {
		return nil, nil
	}

	if time.Now().After(entry.expiresAt) {
		return nil, nil
	}

	return entry.txn, nil
}

// Set stores a transaction in cache with TTL
func (c *MemoryCache) Set(key string, txn *dto.TransactionRead, ttl time.Duration) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.cache[key] = &cacheEntry{
		txn:       txn,
		expiresAt: time.Now().Add(ttl),
	}

	return nil
}

// Delete removes a transaction from cache
func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.cache, key)
	return nil
}

// cleanup removes expired entries from cache
func (c *MemoryCache) cleanup() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		c.mu.Lock()
		now := time.Now()
		for key, entry := range c.cache {
			if now.After(entry.expiresAt) {
				delete(c.cache, key)
			}
		}
		c.mu.Unlock()
	}
}

type cacheEntry struct {
	txn       *dto.TransactionRead
	expiresAt time.Time
}
