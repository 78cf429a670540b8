package middleware

import (
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/labstack/echo/v4"
)

// RateLimitConfig configures RateLimit. KeyFunc picks the bucket for a
// request and defaults to the client IP.
type RateLimitConfig struct {
	// Non-positive values fall back to 50 requests per second with a burst
	// of 100.
	RequestsPerSecond float64
	BurstSize         int
	KeyFunc           func(c echo.Context) string

	// MaxKeys bounds the number of tracked clients. Idle buckets are swept
	// once it is reached. Zero means 10000.
	MaxKeys int
}

const (
	defaultRequestsPerSecond = 50
	defaultBurstSize         = 100
)

type tokenBucket struct {
	mu         sync.Mutex
	tokens     float64
	maxTokens  float64
	refillRate float64 // per second
	lastSeen   time.Time
}

func newTokenBucket(rate float64, burst int) *tokenBucket {
	return &tokenBucket{
		tokens:     float64(burst),
		maxTokens:  float64(burst),
		refillRate: rate,
		lastSeen:   time.Now(),
	}
}

// take refills the bucket for the elapsed time and consumes one token. It
// returns whether the request may proceed and, if not, how many whole
// seconds until a token is available.
func (b *tokenBucket) take(now time.Time) (bool, int) {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.tokens += now.Sub(b.lastSeen).Seconds() * b.refillRate
	if b.tokens > b.maxTokens {
		b.tokens = b.maxTokens
	}
	b.lastSeen = now

	if b.tokens >= 1 {
		b.tokens--
		return true, 0
	}
	if b.refillRate <= 0 {
		return false, 1
	}
	return false, int((1-b.tokens)/b.refillRate) + 1
}

func (b *tokenBucket) idleSince(now time.Time) time.Duration {
	b.mu.Lock()
	defer b.mu.Unlock()
	return now.Sub(b.lastSeen)
}

type bucketStore struct {
	mu      sync.Mutex
	buckets map[string]*tokenBucket
	cfg     RateLimitConfig
}

func newBucketStore(cfg RateLimitConfig) *bucketStore {
	if cfg.MaxKeys <= 0 {
		cfg.MaxKeys = 10000
	}
	return &bucketStore{buckets: make(map[string]*tokenBucket), cfg: cfg}
}

func (s *bucketStore) get(key string, now time.Time) *tokenBucket {
	s.mu.Lock()
	defer s.mu.Unlock()

	if b, ok := s.buckets[key]; ok {
		return b
	}
	if len(s.buckets) >= s.cfg.MaxKeys {
		s.sweep(now)
	}
	b := newTokenBucket(s.cfg.RequestsPerSecond, s.cfg.BurstSize)
	b.lastSeen = now
	s.buckets[key] = b
	return b
}

// sweep drops buckets that have been idle long enough to be full again.
// Callers hold s.mu.
func (s *bucketStore) sweep(now time.Time) {
	refill := time.Minute
	if s.cfg.RequestsPerSecond > 0 {
		refill = time.Duration(float64(s.cfg.BurstSize)/s.cfg.RequestsPerSecond*float64(time.Second)) + time.Second
	}
	for key, b := range s.buckets {
		if b.idleSince(now) >= refill {
			delete(s.buckets, key)
		}
	}
}

func (s *bucketStore) len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.buckets)
}

// RateLimit applies a per-client token bucket and answers 429 with a
// Retry-After header once the bucket is empty.
func RateLimit(cfg RateLimitConfig) echo.MiddlewareFunc {
	if cfg.RequestsPerSecond <= 0 {
		cfg.RequestsPerSecond = defaultRequestsPerSecond
	}
	if cfg.BurstSize <= 0 {
		cfg.BurstSize = defaultBurstSize
	}
	if cfg.KeyFunc == nil {
		cfg.KeyFunc = func(c echo.Context) string { return c.RealIP() }
	}
	store := newBucketStore(cfg)
	limit := strconv.FormatFloat(cfg.RequestsPerSecond, 'f', -1, 64)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-RateLimit-Limit", limit)

			now := time.Now()
			ok, retryAfter := store.get(cfg.KeyFunc(c), now).take(now)
			if !ok {
				h.Set("Retry-After", strconv.Itoa(retryAfter))
				h.Set("X-RateLimit-Remaining", "0")
				return echo.NewHTTPError(http.StatusTooManyRequests, "rate limit exceeded")
			}
			return next(c)
		}
	}
}
