package middleware

import (
	"math"
	"net/http"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/pulsemsp/pulse/internal/config"
)

// bucketStaleAfter is how long an idle tenant+IP bucket survives before the
// sweep removes it.
const bucketStaleAfter = 10 * time.Minute

// bucket is one tenant+IP token bucket with continuous refill.
type bucket struct {
	mu         sync.Mutex
	tokens     float64
	lastRefill time.Time
}

// RateLimiter keeps one bucket per tenant+IP pair. Limits come from config;
// a background sweep drops buckets idle past bucketStaleAfter.
type RateLimiter struct {
	mu      sync.Mutex
	buckets map[string]*bucket
	burst   float64
	perSec  float64
}

func NewRateLimiter(limits config.RateLimit) *RateLimiter {
	rl := &RateLimiter{
		buckets: make(map[string]*bucket),
		burst:   float64(limits.Burst),
		perSec:  float64(limits.PerSecond),
	}
	go rl.sweep()
	return rl
}

// Allow consumes one token for key, refilling for the time elapsed since
// the last call first.
func (rl *RateLimiter) Allow(key string) bool {
	b := rl.bucket(key)

	b.mu.Lock()
	defer b.mu.Unlock()

	now := time.Now()
	b.tokens = math.Min(rl.burst, b.tokens+now.Sub(b.lastRefill).Seconds()*rl.perSec)
	b.lastRefill = now

	if b.tokens < 1 {
		return false
	}
	b.tokens--
	return true
}

func (rl *RateLimiter) bucket(key string) *bucket {
	rl.mu.Lock()
	defer rl.mu.Unlock()

	if b, ok := rl.buckets[key]; ok {
		return b
	}
	b := &bucket{tokens: rl.burst, lastRefill: time.Now()}
	rl.buckets[key] = b
	return b
}

func (rl *RateLimiter) sweep() {
	ticker := time.NewTicker(5 * time.Minute)
	defer ticker.Stop()

	for range ticker.C {
		now := time.Now()
		rl.mu.Lock()
		for key, b := range rl.buckets {
			b.mu.Lock()
			stale := now.Sub(b.lastRefill) > bucketStaleAfter
			b.mu.Unlock()
			if stale {
				delete(rl.buckets, key)
			}
		}
		rl.mu.Unlock()
	}
}

// RateLimitMiddleware rejects requests once a tenant+IP pair spends its
// bucket. Rejections are logged with the tenant so a noisy integration is
// visible in the request log.
func RateLimitMiddleware(limits config.RateLimit, log *logrus.Logger) func(http.Handler) http.Handler {
	limiter := NewRateLimiter(limits)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			tenant := GetTenantFromContext(r.Context())
			key := tenant + ":" + r.RemoteAddr

			if !limiter.Allow(key) {
				log.WithFields(logrus.Fields{
					"tenant": tenant,
					"ip":     r.RemoteAddr,
					"path":   r.URL.Path,
				}).Warn("rate limit exceeded")
				w.Header().Set("Retry-After", "60")
				http.Error(w, "rate limit exceeded, please try again later", http.StatusTooManyRequests)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
