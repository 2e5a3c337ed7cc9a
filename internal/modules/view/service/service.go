package view

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const pendingKey = "pending:blog_views"

// Store persists view counts.
type Store interface {
	AddViews(ctx context.Context, postID uint, n int64) error
}

// ViewCounter records post views. With Redis the counts are buffered and
// flushed to the store periodically; without it every view goes straight to
// the store.
type ViewCounter interface {
	Record(ctx context.Context, postID uint) error
	Flush(ctx context.Context) (int, error)
}

type viewCounter struct {
	redisClient *redis.Client
	store       Store
}

func NewViewCounter(redisClient *redis.Client, store Store) ViewCounter {
	return &viewCounter{redisClient: redisClient, store: store}
}

func viewKey(postID uint) string {
	return fmt.Sprintf("blog:views:%d", postID)
}

func (s *viewCounter) Record(ctx context.Context, postID uint) error {
	if s.redisClient == nil {
		return s.store.AddViews(ctx, postID, 1)
	}

	pipe := s.redisClient.TxPipeline()
	pipe.Incr(ctx, viewKey(postID))
	pipe.SAdd(ctx, pendingKey, postID)
	if _, err := pipe.Exec(ctx); err != nil {
		log.Warn().Err(err).Uint("post_id", postID).Msg("view buffer unavailable, writing through")
		return s.store.AddViews(ctx, postID, 1)
	}
	return nil
}

// Flush moves buffered counts into the store and reports how many posts were
// updated.
func (s *viewCounter) Flush(ctx context.Context) (int, error) {
	if s.redisClient == nil {
		return 0, nil
	}

	ids, err := s.redisClient.SMembers(ctx, pendingKey).Result()
	if err != nil {
		return 0, fmt.Errorf("failed to read pending views: %w", err)
	}

	flushed := 0
	for _, raw := range ids {
		id, err := strconv.ParseUint(raw, 10, 64)
		if err != nil {
			s.redisClient.SRem(ctx, pendingKey, raw)
			continue
		}
		postID := uint(id)

		// SREM before GETDEL: an Incr landing in between re-adds the id.
		if err := s.redisClient.SRem(ctx, pendingKey, raw).Err(); err != nil {
			return flushed, err
		}
		n, err := s.redisClient.GetDel(ctx, viewKey(postID)).Int64()
		if errors.Is(err, redis.Nil) {
			continue
		}
		if err != nil {
			return flushed, err
		}
		if n == 0 {
			continue
		}

		if err := s.store.AddViews(ctx, postID, n); err != nil {
			// Put the count back so the next run retries it.
			s.redisClient.IncrBy(ctx, viewKey(postID), n)
			s.redisClient.SAdd(ctx, pendingKey, raw)
			return flushed, err
		}
		flushed++
	}
	return flushed, nil
}
