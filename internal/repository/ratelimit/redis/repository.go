package redis

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
)

type repo struct {
	rc     *redis.Client
	limit  int
	window time.Duration
	now    func() time.Time
}

// NewRepo returns a fixed-window limiter allowing limit calls per key in
// every window.
func NewRepo(rc *redis.Client, limit int, window time.Duration) *repo {
	return &repo{
		rc:     rc,
		limit:  limit,
		window: window,
		now:    time.Now,
	}
}

func (r repo) getCounterKey(key string, windowStart int64) string {
	return "ratelimit:" + key + ":" + strconv.FormatInt(windowStart, 10)
}

func (r repo) Allow(ctx context.Context, key string) (bool, error) {
	windowStart := r.now().Truncate(r.window).Unix()
	counterKey := r.getCounterKey(key, windowStart)

	pipe := r.rc.TxPipeline()
	incr := pipe.Incr(ctx, counterKey)
	pipe.Expire(ctx, counterKey, r.window)
	if _, err := pipe.Exec(ctx); err != nil {
		return false, fmt.Errorf("failed to increment counter: %w", err)
	}

	return incr.Val() <= int64(r.limit), nil
}
