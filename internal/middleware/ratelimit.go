package middleware

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Decision is the outcome of a rate limit check
type Decision struct {
	Allowed    bool
	Remaining  int
	RetryAfter time.Duration
}

// Limiter decides whether the caller identified by key may proceed
type Limiter interface {
	Allow(ctx context.Context, key string) (Decision, error)
}

// RateLimitConfig holds token bucket parameters
type RateLimitConfig struct {
	// RequestsPerSecond is the refill rate (0 = unlimited)
	RequestsPerSecond float64
	// BurstSize is the bucket capacity
	BurstSize int
	// KeyPrefix namespaces Redis keys
	KeyPrefix string
	// EntryTTL drops idle buckets
	EntryTTL time.Duration
}

// DefaultRateLimitConfig returns sensible defaults
func DefaultRateLimitConfig() RateLimitConfig {
	return RateLimitConfig{
		RequestsPerSecond: 10,
		BurstSize:         20,
		KeyPrefix:         "ratelimit:",
		EntryTTL:          time.Minute,
	}
}

func (c RateLimitConfig) retryAfter(tokens float64) time.Duration {
	if c.RequestsPerSecond <= 0 {
		return time.Second
	}
	wait := time.Duration((1 - tokens) / c.RequestsPerSecond * float64(time.Second))
	if wait < time.Second {
		wait = time.Second
	}
	return wait
}

type bucket struct {
	tokens     float64
	lastUpdate time.Time
}

// LocalLimiter is an in-memory token bucket per key. It serves single
// instance deployments that run without Redis.
type LocalLimiter struct {
	config RateLimitConfig
	now    func() time.Time

	mu      sync.Mutex
	buckets map[string]*bucket
}

// NewLocalLimiter creates a local limiter
func NewLocalLimiter(config RateLimitConfig) *LocalLimiter {
	if config.EntryTTL <= 0 {
		config.EntryTTL = time.Minute
	}
	return &LocalLimiter{
		config:  config,
		now:     time.Now,
		buckets: make(map[string]*bucket),
	}
}

func (l *LocalLimiter) Allow(_ context.Context, key string) (Decision, error) {
	if l.config.RequestsPerSecond <= 0 {
		return Decision{Allowed: true, Remaining: l.config.BurstSize}, nil
	}

	now := l.now()
	burst := float64(l.config.BurstSize)

	l.mu.Lock()
	defer l.mu.Unlock()

	b, ok := l.buckets[key]
	if !ok {
		b = &bucket{tokens: burst, lastUpdate: now}
		l.buckets[key] = b
	}
	elapsed := now.Sub(b.lastUpdate).Seconds()
	b.tokens = math.Min(burst, b.tokens+elapsed*l.config.RequestsPerSecond)
	b.lastUpdate = now

	if b.tokens >= 1 {
		b.tokens--
		return Decision{Allowed: true, Remaining: int(b.tokens)}, nil
	}
	return Decision{RetryAfter: l.config.retryAfter(b.tokens)}, nil
}

// Cleanup drops buckets idle for longer than the entry TTL
func (l *LocalLimiter) Cleanup() int {
	cutoff := l.now().Add(-l.config.EntryTTL)

	l.mu.Lock()
	defer l.mu.Unlock()

	removed := 0
	for key, b := range l.buckets {
		if b.lastUpdate.Before(cutoff) {
			delete(l.buckets, key)
			removed++
		}
	}
	return removed
}

// Run cleans up idle buckets until ctx is done
func (l *LocalLimiter) Run(ctx context.Context) {
	ticker := time.NewTicker(l.config.EntryTTL)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			l.Cleanup()
		}
	}
}

// tokenBucketScript refills and takes one token atomically. It returns
// {allowed, remaining tokens as string}.
var tokenBucketScript = redis.NewScript(`
local key = KEYS[1]
local rate = tonumber(ARGV[1])
local burst = tonumber(ARGV[2])
local now = tonumber(ARGV[3])
local ttl = tonumber(ARGV[4])

local data = redis.call("HMGET", key, "tokens", "last_update")
local tokens = tonumber(data[1]) or burst
local last_update = tonumber(data[2]) or now

local elapsed = math.max(0, now - last_update)
tokens = math.min(burst, tokens + elapsed * rate)

local allowed = 0
if tokens >= 1 then
    tokens = tokens - 1
    allowed = 1
end

redis.call("HSET", key, "tokens", tokens, "last_update", now)
redis.call("EXPIRE", key, ttl)
return {allowed, tostring(tokens)}
`)

// RedisLimiter is a token bucket shared by every API instance
type RedisLimiter struct {
	client redis.Scripter
	config RateLimitConfig
	now    func() time.Time
}

// NewRedisLimiter creates a distributed limiter
func NewRedisLimiter(client redis.Scripter, config RateLimitConfig) *RedisLimiter {
	if config.EntryTTL <= 0 {
		config.EntryTTL = time.Minute
	}
	return &RedisLimiter{client: client, config: config, now: time.Now}
}

func (l *RedisLimiter) Allow(ctx context.Context, key string) (Decision, error) {
	if l.config.RequestsPerSecond <= 0 {
		return Decision{Allowed: true, Remaining: l.config.BurstSize}, nil
	}

	now := float64(l.now().UnixNano()) / 1e9
	ttl := int(math.Ceil(l.config.EntryTTL.Seconds()))

	values, err := tokenBucketScript.Run(ctx, l.client,
		[]string{l.config.KeyPrefix + key},
		l.config.RequestsPerSecond,
		l.config.BurstSize,
		now,
		ttl,
	).Slice()
	if err != nil {
		return Decision{}, fmt.Errorf("rate limit script: %w", err)
	}
	if len(values) < 2 {
		return Decision{}, fmt.Errorf("unexpected result length: %d", len(values))
	}

	allowed, _ := values[0].(int64)
	var tokens float64
	if s, ok := values[1].(string); ok {
		tokens, _ = strconv.ParseFloat(s, 64)
	}

	if allowed == 1 {
		return Decision{Allowed: true, Remaining: int(tokens)}, nil
	}
	return Decision{RetryAfter: l.config.retryAfter(tokens)}, nil
}

// RateLimit rejects callers over their budget with 429. Limiter errors let
// the request through.
func RateLimit(limiter Limiter, log *zap.Logger) func(http.Handler) http.Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.Method == http.MethodOptions {
				next.ServeHTTP(w, r)
				return
			}

			ip := ClientIP(r)
			d, err := limiter.Allow(r.Context(), ip)
			if err != nil {
				log.Warn("Rate limiter unavailable", zap.String("ip", ip), zap.Error(err))
				next.ServeHTTP(w, r)
				return
			}

			w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(d.Remaining))
			if !d.Allowed {
				retry := int(math.Ceil(d.RetryAfter.Seconds()))
				if retry < 1 {
					retry = 1
				}
				w.Header().Set("Retry-After", strconv.Itoa(retry))
				w.Header().Set("Content-Type", "application/json")
				w.WriteHeader(http.StatusTooManyRequests)
				json.NewEncoder(w).Encode(map[string]string{
					"error": "Rate limit exceeded. Please retry after " + strconv.Itoa(retry) + " second(s).",
				})
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
