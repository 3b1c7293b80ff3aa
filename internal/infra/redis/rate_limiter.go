package redis

import (
	"context"
	"fmt"
	"time"
)

// RateLimiter counts requests per key in fixed windows. Each window gets its
// own counter key, so a lost EXPIRE never blocks a client past its window.
type RateLimiter struct {
	client RedisClient
	now    func() time.Time
}

func NewRateLimiter(client RedisClient) *RateLimiter {
	return &RateLimiter{client: client, now: time.Now}
}

// Allow counts one request for key and reports whether it fits in limit.
func (r *RateLimiter) Allow(ctx context.Context, key string, limit int, window time.Duration) (bool, error) {
	if window <= 0 {
		window = time.Minute
	}
	bucket := r.now().UnixNano() / int64(window)
	k := fmt.Sprintf("%s:%d", key, bucket)

	count, err := r.client.Incr(ctx, k)
	if err != nil {
		return false, fmt.Errorf("rate limit incr: %w", err)
	}
	if count == 1 {
		// two windows so the key outlives clock skew between instances
		if err := r.client.Expire(ctx, k, 2*window); err != nil {
			return false, fmt.Errorf("rate limit expire: %w", err)
		}
	}
	return count <= int64(limit), nil
}

// RouteClientKey scopes a limiter key to one route and client address.
func RouteClientKey(route, clientIP string) string {
	return fmt.Sprintf("ratelimit:%s:%s", route, clientIP)
}
