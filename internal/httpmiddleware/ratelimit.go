package httpmiddleware

import (
	"context"
	"net/http"
	"sync"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"attendvault/internal/logger"
)

// Limiter decides whether one more request for key is allowed.
type Limiter interface {
	Allow(ctx context.Context, key string) bool
}

// TokenBucket is an in-memory per-key rate limiter.
type TokenBucket struct {
	capacity int
	rate     int
	mu       sync.Mutex
	state    map[string]*bucket
	now      func() time.Time

	// window is how long an idle bucket takes to refill completely.
	window    time.Duration
	lastSweep time.Time
}

type bucket struct {
	tokens int
	last   time.Time
}

// NewTokenBucket creates limiter with capacity tokens and rate per minute.
func NewTokenBucket(capacity, perMinute int) *TokenBucket {
	if capacity <= 0 {
		capacity = perMinute
	}
	l := &TokenBucket{
		capacity: capacity,
		rate:     perMinute,
		state:    make(map[string]*bucket),
		now:      time.Now,
	}
	if perMinute > 0 {
		l.window = time.Duration(float64(time.Minute) * float64(capacity) / float64(perMinute))
		if l.window < time.Second {
			l.window = time.Second
		}
	}
	return l
}

// sweep drops buckets idle for a full refill window. Such a bucket would be
// back at capacity, the same as a fresh one.
func (l *TokenBucket) sweep(now time.Time) {
	if l.window <= 0 || now.Sub(l.lastSweep) < l.window {
		return
	}
	for key, b := range l.state {
		if now.Sub(b.last) >= l.window {
			delete(l.state, key)
		}
	}
	l.lastSweep = now
}

// Allow takes one token from key's bucket.
func (l *TokenBucket) Allow(_ context.Context, key string) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	now := l.now()
	l.sweep(now)
	b, ok := l.state[key]
	if !ok {
		b = &bucket{tokens: l.capacity - 1, last: now}
		l.state[key] = b
		return true
	}
	elapsed := now.Sub(b.last).Minutes()
	refill := int(elapsed * float64(l.rate))
	if refill > 0 {
		b.tokens += refill
		if b.tokens > l.capacity {
			b.tokens = l.capacity
		}
		b.last = now
	}
	if b.tokens <= 0 {
		return false
	}
	b.tokens--
	return true
}

// RedisWindow is a fixed one-minute window limiter shared between
// processes. Requests are allowed when Redis is unreachable.
type RedisWindow struct {
	client    *redis.Client
	prefix    string
	perMinute int
}

// NewRedisWindow creates a limiter allowing perMinute requests per key.
func NewRedisWindow(client *redis.Client, prefix string, perMinute int) *RedisWindow {
	if prefix == "" {
		prefix = "ratelimit"
	}
	return &RedisWindow{client: client, prefix: prefix, perMinute: perMinute}
}

// Allow counts the request in the current minute's window.
func (l *RedisWindow) Allow(ctx context.Context, key string) bool {
	k := l.prefix + ":" + key + ":" + time.Now().UTC().Format("200601021504")
	pipe := l.client.TxPipeline()
	incr := pipe.Incr(ctx, k)
	pipe.Expire(ctx, k, time.Minute)
	if _, err := pipe.Exec(ctx); err != nil {
		logger.FromContext(ctx).Warn("rate limiter unavailable, allowing request", zap.Error(err))
		return true
	}
	return incr.Val() <= int64(l.perMinute)
}

// RateLimit rejects requests over the per-IP limit with 429.
func RateLimit(l Limiter) gin.HandlerFunc {
	return func(c *gin.Context) {
		ip := c.ClientIP()
		if ip == "" {
			ip = "unknown"
		}
		if !l.Allow(c.Request.Context(), ip) {
			c.AbortWithStatusJSON(http.StatusTooManyRequests, gin.H{"error": "rate limit"})
			return
		}
		c.Next()
	}
}
