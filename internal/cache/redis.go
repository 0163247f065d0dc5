// Package cache provides a Redis-backed cache for the grouped tagged-content
// view, which is the most expensive read in the system (it walks every owner
// chain a user has annotated).
package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log"
	"time"

	"github.com/redis/go-redis/v9"

	"chronomind/api/internal/store"
)

// TagViewCache caches each user's grouped tagged-content view. Entries are
// invalidated on any highlight or tag write and expire on a short TTL as a
// backstop.
type TagViewCache struct {
	client *redis.Client
	prefix string
	ttl    time.Duration
}

// NewTagViewCache connects to Redis. An unreachable instance is an error:
// the caller decides whether to run without caching.
func NewTagViewCache(redisURL string, ttl time.Duration) (*TagViewCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}

	client := redis.NewClient(opts)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("connect to redis: %w", err)
	}

	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TagViewCache{client: client, prefix: "tagview:", ttl: ttl}, nil
}

// NewTagViewCacheWithClient wraps an existing Redis client.
func NewTagViewCacheWithClient(client *redis.Client, ttl time.Duration) *TagViewCache {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &TagViewCache{client: client, prefix: "tagview:", ttl: ttl}
}

func (c *TagViewCache) key(userID string) string {
	return c.prefix + userID
}

// GetGrouped returns the cached grouped view for a user, if present.
func (c *TagViewCache) GetGrouped(ctx context.Context, userID string) ([]store.TagGroup, bool) {
	data, err := c.client.Get(ctx, c.key(userID)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false
	}
	if err != nil {
		log.Printf("cache: get tag view for %s: %v", userID, err)
		return nil, false
	}

	var groups []store.TagGroup
	if err := json.Unmarshal(data, &groups); err != nil {
		log.Printf("cache: decode tag view for %s: %v", userID, err)
		return nil, false
	}
	return groups, true
}

// SetGrouped stores a user's grouped view. Failures are logged, never fatal.
func (c *TagViewCache) SetGrouped(ctx context.Context, userID string, groups []store.TagGroup) {
	data, err := json.Marshal(groups)
	if err != nil {
		log.Printf("cache: encode tag view for %s: %v", userID, err)
		return
	}
	if err := c.client.Set(ctx, c.key(userID), data, c.ttl).Err(); err != nil {
		log.Printf("cache: set tag view for %s: %v", userID, err)
	}
}

// Invalidate drops a user's cached view.
func (c *TagViewCache) Invalidate(ctx context.Context, userID string) {
	if err := c.client.Del(ctx, c.key(userID)).Err(); err != nil {
		log.Printf("cache: invalidate tag view for %s: %v", userID, err)
	}
}

// Ping checks if Redis is reachable.
func (c *TagViewCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// Close closes the Redis connection.
func (c *TagViewCache) Close() error {
	return c.client.Close()
}
