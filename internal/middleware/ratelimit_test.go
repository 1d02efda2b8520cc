package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/require"

	"github.com/pulsemsp/pulse/internal/config"
)

func discardLogger() *logrus.Logger {
	log := logrus.New()
	log.SetOutput(discardWriter{})
	return log
}

type discardWriter struct{}

func (discardWriter) Write(p []byte) (int, error) { return len(p), nil }

func TestRateLimiterBurstThenDeny(t *testing.T) {
	rl := NewRateLimiter(config.RateLimit{Burst: 3, PerSecond: 1})

	for i := 0; i < 3; i++ {
		require.True(t, rl.Allow("t1:1.2.3.4"), "burst request %d", i)
	}
	require.False(t, rl.Allow("t1:1.2.3.4"))

	// other tenant+IP pairs keep their own bucket
	require.True(t, rl.Allow("t2:1.2.3.4"))
}

func TestRateLimiterRefillsOverTime(t *testing.T) {
	rl := NewRateLimiter(config.RateLimit{Burst: 1, PerSecond: 50})

	require.True(t, rl.Allow("k"))
	require.False(t, rl.Allow("k"))

	time.Sleep(50 * time.Millisecond)
	require.True(t, rl.Allow("k"))
}

func TestRateLimiterCapsAtBurst(t *testing.T) {
	rl := NewRateLimiter(config.RateLimit{Burst: 2, PerSecond: 1000})

	require.True(t, rl.Allow("k"))
	time.Sleep(20 * time.Millisecond)

	// long idle must not bank more than Burst tokens
	allowed := 0
	for i := 0; i < 5; i++ {
		if rl.Allow("k") {
			allowed++
		}
	}
	require.Equal(t, 2, allowed)
}

func TestRateLimitMiddlewareRejectsWith429(t *testing.T) {
	handler := RateLimitMiddleware(config.RateLimit{Burst: 1, PerSecond: 1}, discardLogger())(
		http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusOK)
		}))

	req := httptest.NewRequest(http.MethodGet, "/v1/t1/sync", nil)
	req.RemoteAddr = "10.0.0.1:5000"

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = httptest.NewRecorder()
	handler.ServeHTTP(rec, req)
	require.Equal(t, http.StatusTooManyRequests, rec.Code)
	require.Equal(t, "60", rec.Header().Get("Retry-After"))
}
