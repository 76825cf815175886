package middleware

import (
	"context"
	"fmt"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/smartgenesis/api/internal/metrics"
)

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed    bool
	Limit      int
	Remaining  int
	ResetAfter time.Duration
}

// Limiter decides whether a client may make another request
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
	Store() string
}

// RateLimiter implements a token bucket per client key
type RateLimiter struct {
	mu           sync.Mutex
	tokens       map[string]int
	lastRefill   map[string]time.Time
	maxTokens    int
	refillRate   int           // tokens per refill
	refillPeriod time.Duration // how often to refill
	idleAfter    time.Duration // a key untouched this long is back at maxTokens
	lastSweep    time.Time
	now          func() time.Time
}

// NewRateLimiter creates a new rate limiter
// maxTokens: maximum tokens per client
// refillRate: how many tokens to add per refill period
// refillPeriod: how often to refill tokens
func NewRateLimiter(maxTokens, refillRate int, refillPeriod time.Duration) *RateLimiter {
	refillsToFull := 1
	if refillRate > 0 {
		refillsToFull = (maxTokens + refillRate - 1) / refillRate
	}
	if refillsToFull < 1 {
		refillsToFull = 1
	}
	return &RateLimiter{
		tokens:       make(map[string]int),
		lastRefill:   make(map[string]time.Time),
		maxTokens:    maxTokens,
		refillRate:   refillRate,
		refillPeriod: refillPeriod,
		idleAfter:    time.Duration(refillsToFull) * refillPeriod,
		now:          time.Now,
	}
}

// NewWindowLimiter allows requests per window, refilling the whole budget
// once per window.
func NewWindowLimiter(requests int, window time.Duration) *RateLimiter {
	return NewRateLimiter(requests, requests, window)
}

func (rl *RateLimiter) Store() string {
	return "memory"
}

// Allow takes a token for key if one is available
func (rl *RateLimiter) Allow(_ context.Context, key string) (Decision, error) {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	now := rl.now()
	rl.sweep(now)

	if _, exists := rl.tokens[key]; !exists {
		rl.tokens[key] = rl.maxTokens
		rl.lastRefill[key] = now
	}

	elapsed := now.Sub(rl.lastRefill[key])
	refills := int(elapsed / rl.refillPeriod)
	if refills > 0 {
		rl.tokens[key] += refills * rl.refillRate
		if rl.tokens[key] > rl.maxTokens {
			rl.tokens[key] = rl.maxTokens
		}
		rl.lastRefill[key] = rl.lastRefill[key].Add(time.Duration(refills) * rl.refillPeriod)
	}

	d := Decision{
		Limit:      rl.maxTokens,
		ResetAfter: rl.refillPeriod - now.Sub(rl.lastRefill[key]),
	}
	if rl.tokens[key] > 0 {
		rl.tokens[key]--
		d.Allowed = true
	}
	d.Remaining = rl.tokens[key]
	return d, nil
}

// sweep drops keys idle long enough to have refilled completely. Dropping them
// is indistinguishable from keeping them, since a new key starts full.
func (rl *RateLimiter) sweep(now time.Time) {
	if now.Sub(rl.lastSweep) < rl.idleAfter {
		return
	}
	rl.lastSweep = now
	for key, last := range rl.lastRefill {
		if now.Sub(last) >= rl.idleAfter {
			delete(rl.tokens, key)
			delete(rl.lastRefill, key)
		}
	}
}

// Len is the number of client keys currently tracked
func (rl *RateLimiter) Len() int {
	rl.mu.Lock()
	defer rl.mu.Unlock()
	return len(rl.tokens)
}

// RedisLimiter is a fixed-window limiter shared by every replica through Redis
type RedisLimiter struct {
	client   redis.UniversalClient
	requests int
	window   time.Duration
	prefix   string
	now      func() time.Time
}

func NewRedisLimiter(client redis.UniversalClient, requests int, window time.Duration) *RedisLimiter {
	return &RedisLimiter{
		client:   client,
		requests: requests,
		window:   window,
		prefix:   "smartgenesis:ratelimit",
		now:      time.Now,
	}
}

func (rl *RedisLimiter) Store() string {
	return "redis"
}

func (rl *RedisLimiter) windowKey(key string, now time.Time) (string, time.Duration) {
	windowStart := now.Truncate(rl.window)
	return fmt.Sprintf("%s:%s:%d", rl.prefix, key, windowStart.Unix()), windowStart.Add(rl.window).Sub(now)
}

// Allow counts the request against key's current window
func (rl *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	redisKey, resetAfter := rl.windowKey(key, rl.now())

	var incr *redis.IntCmd
	_, err := rl.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		incr = pipe.Incr(ctx, redisKey)
		pipe.Expire(ctx, redisKey, rl.window)
		return nil
	})
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit %s: %w", key, err)
	}

	count := int(incr.Val())
	remaining := rl.requests - count
	if remaining < 0 {
		remaining = 0
	}
	return Decision{
		Allowed:    count <= rl.requests,
		Limit:      rl.requests,
		Remaining:  remaining,
		ResetAfter: resetAfter,
	}, nil
}

// RateLimitMiddleware limits requests per client IP. When the limiter itself
// fails the request is let through.
func RateLimitMiddleware(l Limiter, logger *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		key := c.ClientIP()

		d, err := l.Allow(c.Request.Context(), key)
		if err != nil {
			metrics.IncError("rate_limiter", l.Store())
			logger.Warn("rate limiter unavailable, allowing request",
				zap.String("store", l.Store()),
				zap.Error(err),
			)
			c.Next()
			return
		}

		resetSeconds := int(d.ResetAfter.Round(time.Second).Seconds())
		c.Header("RateLimit-Limit", strconv.Itoa(d.Limit))
		c.Header("RateLimit-Remaining", strconv.Itoa(d.Remaining))
		c.Header("RateLimit-Reset", strconv.Itoa(resetSeconds))

		if !d.Allowed {
			metrics.IncRateLimited(l.Store())
			c.Header("Retry-After", strconv.Itoa(resetSeconds))
			RespondErrorWithRetry(c, http.StatusTooManyRequests, ErrCodeRateLimited,
				"Too many requests, please try again later", resetSeconds*1000)
			return
		}

		c.Next()
	}
}
