package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"kycengine/internal/verification/models"
)

// RedisCache shares provider payloads across engine instances. Payloads are
// stored as JSON, so numbers come back as float64.
type RedisCache struct {
	client *redis.Client
}

func NewRedisCache(client *redis.Client) *RedisCache {
	return &RedisCache{client: client}
}

func (c *RedisCache) Get(ctx context.Context, provider models.Provider, key string) (map[string]any, bool, error) {
	raw, err := c.client.Get(ctx, cacheKey(provider, key)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("redis get: %w", err)
	}
	var payload map[string]any
	if err := json.Unmarshal(raw, &payload); err != nil {
		return nil, false, fmt.Errorf("decode cached payload: %w", err)
	}
	return payload, true, nil
}

func (c *RedisCache) Set(ctx context.Context, provider models.Provider, key string, payload map[string]any, ttl time.Duration) error {
	if ttl <= 0 {
		return nil
	}
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode payload: %w", err)
	}
	if err := c.client.Set(ctx, cacheKey(provider, key), raw, ttl).Err(); err != nil {
		return fmt.Errorf("redis set: %w", err)
	}
	return nil
}
