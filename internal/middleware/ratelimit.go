package middleware

import (
	"context"
	"log/slog"
	"math"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	apierrors "github.com/yukikurage/periodical/internal/errors"
	"github.com/yukikurage/periodical/internal/telemetry"
)

// Limiter decides whether a request identified by key may proceed. When it
// may not, retryAfter says how long the client should wait.
type Limiter interface {
	Allow(ctx context.Context, key string) (allowed bool, retryAfter time.Duration, err error)
}

// RateLimitConfig holds configuration for rate limiting
type RateLimitConfig struct {
	// RequestsPerMinute is the sustained rate
	RequestsPerMinute int
	// Burst is the number of requests allowed at once (memory backend)
	Burst int
	// IdleTTL is how long an untouched bucket is kept
	IdleTTL time.Duration
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// MemoryLimiter is a per-process token bucket limiter.
type MemoryLimiter struct {
	config  RateLimitConfig
	now     func() time.Time
	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewMemoryLimiter creates a new token bucket limiter.
func NewMemoryLimiter(config RateLimitConfig) *MemoryLimiter {
	if config.Burst < 1 {
		config.Burst = 1
	}
	if config.IdleTTL == 0 {
		config.IdleTTL = 10 * time.Minute
	}
	return &MemoryLimiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

// Allow implements Limiter.
func (l *MemoryLimiter) Allow(_ context.Context, key string) (bool, time.Duration, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	l.evictIdle(now)

	b, exists := l.buckets[key]
	if !exists {
		l.buckets[key] = &bucket{tokens: float64(l.config.Burst) - 1, lastUpdate: now}
		return true, 0, nil
	}

	perSecond := float64(l.config.RequestsPerMinute) / 60.0
	b.tokens = math.Min(float64(l.config.Burst), b.tokens+now.Sub(b.lastUpdate).Seconds()*perSecond)
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0, nil
	}

	if perSecond <= 0 {
		return false, time.Minute, nil
	}
	wait := time.Duration((1 - b.tokens) / perSecond * float64(time.Second))
	return false, wait, nil
}

func (l *MemoryLimiter) evictIdle(now time.Time) {
	for key, b := range l.buckets {
		if now.Sub(b.lastUpdate) > l.config.IdleTTL {
			delete(l.buckets, key)
		}
	}
}

// RedisLimiter is a fixed-window counter shared by every instance. It uses
// INCR with a TTL that starts on the first hit of each window.
type RedisLimiter struct {
	client redis.Cmdable
	limit  int64
	window time.Duration
	prefix string
}

// NewRedisLimiter creates a limiter allowing RequestsPerMinute per key.
func NewRedisLimiter(client redis.Cmdable, config RateLimitConfig) *RedisLimiter {
	return &RedisLimiter{
		client: client,
		limit:  int64(config.RequestsPerMinute),
		window: time.Minute,
		prefix: "periodical:rl:",
	}
}

// Allow implements Limiter. A key found without a TTL gets one, so a failed
// EXPIRE after the first hit cannot leave the counter blocking forever.
func (l *RedisLimiter) Allow(ctx context.Context, key string) (bool, time.Duration, error) {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()

	redisKey := l.prefix + key
	count, err := l.client.Incr(ctx, redisKey).Result()
	if err != nil {
		return false, 0, err
	}

	ttl, err := l.client.TTL(ctx, redisKey).Result()
	if err != nil {
		return false, 0, err
	}
	if ttl < 0 {
		if err := l.client.Expire(ctx, redisKey, l.window).Err(); err != nil {
			return false, 0, err
		}
		ttl = l.window
	}

	if count <= l.limit {
		return true, 0, nil
	}
	return false, ttl, nil
}

// RateLimit rejects requests over the limiter's budget with 429. Keys are
// the route template plus the client IP. Limiter failures let the request
// through.
func RateLimit(limiter Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		path := routeLabel(c)
		key := path + ":" + c.ClientIP()

		allowed, retryAfter, err := limiter.Allow(c.Request.Context(), key)
		if err != nil {
			slog.WarnContext(c.Request.Context(), "rate limiter unavailable", "path", path, "error", err)
			c.Next()
			return
		}
		if !allowed {
			seconds := int(math.Ceil(retryAfter.Seconds()))
			if seconds < 1 {
				seconds = 1
			}
			telemetry.RateLimitedRequestsTotal.WithLabelValues(path).Inc()
			c.Header("Retry-After", strconv.Itoa(seconds))
			apierrors.TooManyRequests(c, "Too many requests, please try again later")
			return
		}

		c.Next()
	}
}
