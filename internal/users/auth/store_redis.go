// Copyright (c) 2026 Trackly. All rights reserved.

package auth

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"

	"github.com/trackly/trackly/internal/platform/constants"
)

// RedisLoginThrottle implements LoginThrottle using a fixed expiry window in Redis.
//
// One INCR per attempt; the key's TTL is set when the window opens so the
// counter resets on its own. Redis keeps the hot auth path off the primary
// database.
type RedisLoginThrottle struct {
	client *redis.Client
}

// NewLoginThrottle creates a new Redis-backed LoginThrottle.
func NewLoginThrottle(client *redis.Client) *RedisLoginThrottle {
	return &RedisLoginThrottle{client: client}
}

/*
Hit records one attempt for the subject and returns the count in the window.

Parameters:
  - context: context.Context
  - subject: string (normalized email)

Returns:
  - int64: Attempts observed in the current window, including this one
  - error: Counter storage failures
*/
func (throttle *RedisLoginThrottle) Hit(context context.Context, subject string) (int64, error) {

	// Use constants for key prefix
	key := constants.RedisPrefixLoginAttempt + subject

	count, err := throttle.client.Incr(context, key).Result()
	if err != nil {
		return 0, fmt.Errorf("redis_login_throttle_incr_failed: %w", err)
	}

	// First attempt in a fresh window: arm the expiry.
	if count == 1 {
		if err := throttle.client.Expire(context, key, LoginAttemptWindow).Err(); err != nil {
			return count, fmt.Errorf("redis_login_throttle_expire_failed: %w", err)
		}
	}

	return count, nil
}
