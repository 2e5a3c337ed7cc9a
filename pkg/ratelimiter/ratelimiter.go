package ratelimiter

import (
	"context"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
)

const ScopeBlogPost = "blog_post"

// RateLimitError reports a cooldown that is still running.
type RateLimitError struct {
	Message    string
	RetryAfter time.Duration
}

func (e *RateLimitError) Error() string {
	return e.Message
}

func key(userID uint, scope string) string {
	return fmt.Sprintf("rate_limit:user:%d:%s", userID, scope)
}

// CheckAndSetRateLimit claims the cooldown slot for (userID, scope). It reports false
// when the slot is already taken. A nil client disables limiting.
func CheckAndSetRateLimit(ctx context.Context, rdb *redis.Client, userID uint, scope string, limit time.Duration) (bool, error) {
	if rdb == nil || limit <= 0 {
		return true, nil
	}

	wasSet, err := rdb.SetNX(ctx, key(userID, scope), "locked", limit).Result()
	if err != nil {
		return false, fmt.Errorf("failed to check rate limit in redis: %w", err)
	}

	return wasSet, nil
}

func GetRateLimitTTL(ctx context.Context, rdb *redis.Client, userID uint, scope string) (time.Duration, error) {
	if rdb == nil {
		return 0, nil
	}
	return rdb.TTL(ctx, key(userID, scope)).Result()
}

// ClearRateLimit releases a slot, used to roll back when the guarded action fails.
func ClearRateLimit(ctx context.Context, rdb *redis.Client, userID uint, scope string) error {
	if rdb == nil {
		return nil
	}
	return rdb.Del(ctx, key(userID, scope)).Err()
}
