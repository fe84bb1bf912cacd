// Copyright (c) 2026 Registra. All rights reserved.

package auth

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/solvik/registra/internal/platform/constants"
)

// # Session Version Cache

// RedisVersionCache implements VersionCache using Redis.
//
// Keys live under constants.RedisPrefixSessionVersion. Values are the plain
// decimal version so they stay inspectable from redis-cli during incidents.
type RedisVersionCache struct {
	client *redis.Client
}

// NewRedisVersionCache creates a new Redis-backed VersionCache.
func NewRedisVersionCache(client *redis.Client) *RedisVersionCache {
	return &RedisVersionCache{client: client}
}

func versionCacheKey(userID string) string {
	return constants.RedisPrefixSessionVersion + userID
}

/*
Get retrieves the cached session version for a user.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - int64: Cached version, zero on miss
  - bool: Whether the key was present
  - error: Execution errors (a miss is not an error)
*/
func (cache *RedisVersionCache) Get(context context.Context, userID string) (int64, bool, error) {
	raw, err := cache.client.Get(context, versionCacheKey(userID)).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return 0, false, nil
		}
		return 0, false, fmt.Errorf("redis_session_version_get_failed: %w", err)
	}

	version, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		// A corrupt value is treated as a miss so the caller falls back to
		// the persistent store.
		return 0, false, nil
	}

	return version, true, nil
}

/*
Set stores the session version for a user with the given TTL.

Parameters:
  - context: context.Context
  - userID: string
  - version: int64
  - ttl: time.Duration

Returns:
  - error: Execution errors
*/
func (cache *RedisVersionCache) Set(context context.Context, userID string, version int64, ttl time.Duration) error {
	value := strconv.FormatInt(version, 10)
	if err := cache.client.Set(context, versionCacheKey(userID), value, ttl).Err(); err != nil {
		return fmt.Errorf("redis_session_version_set_failed: %w", err)
	}
	return nil
}

/*
Delete drops one user's cached session version.

Parameters:
  - context: context.Context
  - userID: string

Returns:
  - error: Execution errors
*/
func (cache *RedisVersionCache) Delete(context context.Context, userID string) error {
	if err := cache.client.Del(context, versionCacheKey(userID)).Err(); err != nil {
		return fmt.Errorf("redis_session_version_delete_failed: %w", err)
	}
	return nil
}

/*
DeleteAll drops every cached session version.

Description: Scans the version-cache prefix and deletes in batches. Runs only
on the platform-wide invalidation path, so the SCAN cost is acceptable.

Parameters:
  - context: context.Context

Returns:
  - error: Execution errors
*/
func (cache *RedisVersionCache) DeleteAll(context context.Context) error {
	iterator := cache.client.Scan(context, 0, constants.RedisPrefixSessionVersion+"*", 100).Iterator()

	batch := make([]string, 0, 100)
	flush := func() error {
		if len(batch) == 0 {
			return nil
		}
		if err := cache.client.Del(context, batch...).Err(); err != nil {
			return fmt.Errorf("redis_session_version_delete_all_failed: %w", err)
		}
		batch = batch[:0]
		return nil
	}

	for iterator.Next(context) {
		batch = append(batch, iterator.Val())
		if len(batch) == 100 {
			if err := flush(); err != nil {
				return err
			}
		}
	}
	if err := iterator.Err(); err != nil {
		return fmt.Errorf("redis_session_version_scan_failed: %w", err)
	}

	return flush()
}
