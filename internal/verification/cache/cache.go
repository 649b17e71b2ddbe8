// Package cache stores successful provider payloads so repeated checks of the
// same entity within the TTL skip the provider call.
package cache

import (
	"context"
	"sync"
	"time"

	"kycengine/internal/verification/models"
)

// Cache is a provider payload cache keyed by provider and subject key.
type Cache interface {
	Get(ctx context.Context, provider models.Provider, key string) (map[string]any, bool, error)
	Set(ctx context.Context, provider models.Provider, key string, payload map[string]any, ttl time.Duration) error
}

type entry struct {
	payload   map[string]any
	expiresAt time.Time
}

// MemoryCache is an in-process Cache for single-instance deployments and tests.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]entry
	now     func() time.Time
}

func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]entry), now: time.Now}
}

// WithClock replaces the time source; for tests.
func (c *MemoryCache) WithClock(now func() time.Time) *MemoryCache {
	c.now = now
	return c
}

func (c *MemoryCache) Get(_ context.Context, provider models.Provider, key string) (map[string]any, bool, error) {
	k := cacheKey(provider, key)
	c.mu.RLock()
	e, ok := c.entries[k]
	c.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if !c.now().Before(e.expiresAt) {
		c.mu.Lock()
		delete(c.entries, k)
		c.mu.Unlock()
		return nil, false, nil
	}
	return clonePayload(e.payload), true, nil
}

func (c *MemoryCache) Set(_ context.Context, provider models.Provider, key string, payload map[string]any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	c.mu.Lock()
	c.entries[cacheKey(provider, key)] = entry{payload: clonePayload(payload), expiresAt: c.now().Add(ttl)}
	c.mu.Unlock()
	return nil
}

func cacheKey(provider models.Provider, key string) string {
	return "kyc:provider:" + string(provider) + ":" + key
}

func clonePayload(p map[string]any) map[string]any {
	out := make(map[string]any, len(p))
	for k, v := range p {
		out[k] = v
	}
	return out
}
