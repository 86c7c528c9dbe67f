// Package cache provides a Redis-backed counter cache for per-user unread
// message totals. The database stays the source of truth: reads are
// cache-first with a DB fallback, and writes to the message store invalidate
// the affected key rather than trying to keep it consistent in place.
package cache

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

// unreadTTL bounds staleness if an invalidation is ever lost.
const unreadTTL = 10 * time.Minute

// RedisCache wraps a go-redis client with the key conventions used by the
// chat service.
type RedisCache struct {
	Client *redis.Client
}

// New builds a cache from connection parameters. Only addr is mandatory.
func New(addr, password string, db int) *RedisCache {
	opts := &redis.Options{Addr: addr}
	if password != "" {
		opts.Password = password
	}
	if db != 0 {
		opts.DB = db
	}
	return &RedisCache{Client: redis.NewClient(opts)}
}

// Ping verifies connectivity.
func (c *RedisCache) Ping(ctx context.Context) error {
	return c.Client.Ping(ctx).Err()
}

// Close releases the underlying client.
func (c *RedisCache) Close() error {
	return c.Client.Close()
}

func unreadKey(userID string) string {
	return fmt.Sprintf("unread:messages:%s", userID)
}

// GetUnreadCount returns the cached unread total for userID. The second
// return value is false on a cache miss.
func (c *RedisCache) GetUnreadCount(ctx context.Context, userID string) (int64, bool, error) {
	val, err := c.Client.Get(ctx, unreadKey(userID)).Result()
	if errors.Is(err, redis.Nil) {
		return 0, false, nil
	}
	if err != nil {
		return 0, false, err
	}
	n, err := strconv.ParseInt(val, 10, 64)
	if err != nil {
		// Poisoned value: drop it and report a miss.
		_ = c.Client.Del(ctx, unreadKey(userID)).Err()
		return 0, false, nil
	}
	return n, true, nil
}

// SetUnreadCount stores the recomputed unread total with a fresh TTL.
func (c *RedisCache) SetUnreadCount(ctx context.Context, userID string, count int64) error {
	return c.Client.Set(ctx, unreadKey(userID), count, unreadTTL).Err()
}

// InvalidateUnread drops the cached total after a send or mark-read touches
// the user's inbox.
func (c *RedisCache) InvalidateUnread(ctx context.Context, userID string) error {
	return c.Client.Del(ctx, unreadKey(userID)).Err()
}
