// Package cache provides the optional Redis-backed member cache.
package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"tallybot/internal/domain"
)

// Compile-time check.
var _ domain.MemberCache = (*RedisMemberCache)(nil)

// RedisMemberCache keeps one Redis set of counted user IDs per chat group.
// It is purely a read-through shortcut in front of the ledger; entries may
// expire or be evicted at any time without affecting counting correctness.
type RedisMemberCache struct {
	client *redis.Client
	ttl    time.Duration
}

// New connects to Redis and returns the cache. ttl bounds how long a group's
// set lives without being touched; 0 means no expiry.
func New(ctx context.Context, addr, password string, db int, ttl time.Duration) (*RedisMemberCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("ping redis: %w", err)
	}
	return &RedisMemberCache{client: client, ttl: ttl}, nil
}

// Close releases the Redis connection pool.
func (c *RedisMemberCache) Close() error {
	return c.client.Close()
}

// Contains reports whether the user is known to be counted for the chat.
func (c *RedisMemberCache) Contains(ctx context.Context, chatID, userID int64) (bool, error) {
	return c.client.SIsMember(ctx, memberSetKey(chatID), userID).Result()
}

// Add marks the user as counted for the chat and refreshes the set's TTL.
func (c *RedisMemberCache) Add(ctx context.Context, chatID, userID int64) error {
	key := memberSetKey(chatID)
	if err := c.client.SAdd(ctx, key, userID).Err(); err != nil {
		return err
	}
	if c.ttl > 0 {
		return c.client.Expire(ctx, key, c.ttl).Err()
	}
	return nil
}

// InvalidateGroup drops the whole set for a chat.
func (c *RedisMemberCache) InvalidateGroup(ctx context.Context, chatID int64) error {
	return c.client.Del(ctx, memberSetKey(chatID)).Err()
}

func memberSetKey(chatID int64) string {
	return fmt.Sprintf("group:%d:members", chatID)
}
