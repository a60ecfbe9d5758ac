package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

// TTL constants
const (
	TTLArticle   = 1 * time.Minute // article aggregates (edited often)
	TTLAutosaves = 5 * time.Minute // autosave id index per parent post
	TTLDefault   = 5 * time.Minute
)

// Cache key prefixes
const (
	PrefixArticle   = "article:"
	PrefixAutosaves = "autosaves:"
)

// Service is the Redis cache service interface
type Service interface {
	// Generic operations
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error

	// Autosave id index per parent post
	GetAutosaveIDs(ctx context.Context, postID uint64) ([]uint64, error)
	SetAutosaveIDs(ctx context.Context, postID uint64, ids []uint64) error

	// Article aggregate cache
	InvalidateArticle(ctx context.Context, postID uint64) error

	// Utilities
	IsAvailable() bool
	Ping(ctx context.Context) error
}

// redisCache is the Redis-backed implementation
type redisCache struct {
	client *redis.Client
}

// NewService creates a new cache service
func NewService(client *redis.Client) Service {
	return &redisCache{client: client}
}

// IsAvailable reports whether a Redis connection exists
func (c *redisCache) IsAvailable() bool {
	return c.client != nil
}

// Ping tests the Redis connection
func (c *redisCache) Ping(ctx context.Context) error {
	if c.client == nil {
		return fmt.Errorf("redis client is nil")
	}
	return c.client.Ping(ctx).Err()
}

// Get reads a value from the cache
func (c *redisCache) Get(ctx context.Context, key string, dest interface{}) error {
	if c.client == nil {
		return fmt.Errorf("redis not available")
	}

	data, err := c.client.Get(ctx, key).Bytes()
	if err != nil {
		return err
	}

	return json.Unmarshal(data, dest)
}

// Set stores a value in the cache
func (c *redisCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	if c.client == nil {
		return nil // no Redis, silently skip
	}

	data, err := json.Marshal(value)
	if err != nil {
		return err
	}

	return c.client.Set(ctx, key, data, ttl).Err()
}

// Delete removes keys from the cache
func (c *redisCache) Delete(ctx context.Context, keys ...string) error {
	if c.client == nil || len(keys) == 0 {
		return nil
	}
	return c.client.Del(ctx, keys...).Err()
}

// GetAutosaveIDs returns the cached autosave id index for a parent post
func (c *redisCache) GetAutosaveIDs(ctx context.Context, postID uint64) ([]uint64, error) {
	var ids []uint64
	if err := c.Get(ctx, autosavesKey(postID), &ids); err != nil {
		return nil, err
	}
	return ids, nil
}

// SetAutosaveIDs caches the autosave id index for a parent post
func (c *redisCache) SetAutosaveIDs(ctx context.Context, postID uint64, ids []uint64) error {
	return c.Set(ctx, autosavesKey(postID), ids, TTLAutosaves)
}

// InvalidateArticle drops the cached article aggregate
func (c *redisCache) InvalidateArticle(ctx context.Context, postID uint64) error {
	return c.Delete(ctx, ArticleKey(postID))
}

// ArticleKey returns the cache key of a post's article aggregate.
func ArticleKey(postID uint64) string {
	return fmt.Sprintf("%s%d", PrefixArticle, postID)
}

func autosavesKey(postID uint64) string {
	return fmt.Sprintf("%s%d", PrefixAutosaves, postID)
}
