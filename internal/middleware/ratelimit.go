package middleware

import (
	"context"
	"errors"
	"fmt"
	"time"

	"inkwell/internal/observability"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

var errNilRedis = errors.New("redis client is nil")

// RateLimiter counts requests per client in fixed Redis windows. A disabled
// limiter allows everything; callers decide from configuration.
type RateLimiter struct {
	rdb     *redis.Client
	enabled bool
}

// NewRateLimiter returns a limiter backed by rdb. rdb may be nil, in which
// case an enabled limiter fails open.
func NewRateLimiter(rdb *redis.Client, enabled bool) *RateLimiter {
	return &RateLimiter{rdb: rdb, enabled: enabled}
}

// Allow checks if a resource has exceeded its rate limit.
// Returns true if allowed, false if limit exceeded.
func (l *RateLimiter) Allow(ctx context.Context, resource, id string, limit int, window time.Duration) (bool, error) {
	if !l.enabled {
		return true, nil
	}
	if l.rdb == nil {
		return false, errNilRedis
	}

	key := fmt.Sprintf("rl:%s:%s", resource, id)

	cnt, err := l.rdb.Incr(ctx, key).Result()
	if err != nil {
		return false, err
	}
	if cnt == 1 {
		if err := l.rdb.Expire(ctx, key, window).Err(); err != nil {
			return false, err
		}
	}
	return cnt <= int64(limit), nil
}

// Limit returns a Fiber middleware enforcing limit requests per window, keyed by client IP.
// Requests are let through when Redis is unavailable.
func (l *RateLimiter) Limit(limit int, window time.Duration, name string) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx := c.UserContext()

		resource := name
		if resource == "" {
			resource = c.Path()
		}

		allowed, err := l.Allow(ctx, resource, "ip:"+c.IP(), limit, window)
		if err != nil {
			observability.RedisErrorRate.WithLabelValues("ratelimit").Inc()
			Logger.WarnContext(ctx, "rate limit unavailable, allowing request",
				"resource", resource, "error", err)
			return c.Next()
		}

		if !allowed {
			c.Set(fiber.HeaderRetryAfter, fmt.Sprintf("%d", int(window.Seconds())))
			return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{
				"error": "Too many requests, please try again later",
				"code":  "RATE_LIMITED",
			})
		}
		return c.Next()
	}
}
