package httpx

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/pulsemsp/pulse/internal/domain/adapters"
	"github.com/pulsemsp/pulse/internal/domain/entities"
)

type payload struct {
	Name string `json:"name"`
}

func TestGetJSONDecodesBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, "application/json", r.Header.Get("Accept"))
		require.Equal(t, "Bearer tok", r.Header.Get("Authorization"))
		w.Write([]byte(`{"name":"acme"}`))
	}))
	defer srv.Close()

	var out payload
	err := GetJSON(context.Background(), srv.Client(), entities.SourceImmy, srv.URL,
		map[string]string{"Authorization": "Bearer tok"}, &out)

	require.NoError(t, err)
	require.Equal(t, "acme", out.Name)
}

func TestGetJSONMapsUnauthorized(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
	}))
	defer srv.Close()

	var out payload
	err := GetJSON(context.Background(), srv.Client(), entities.SourceM365, srv.URL, nil, &out)

	ae, ok := adapters.AsError(err)
	require.True(t, ok)
	require.Equal(t, adapters.KindAuthenticationFailed, ae.Kind)
	require.Equal(t, entities.SourceM365, ae.Vendor)
	require.Equal(t, http.StatusUnauthorized, ae.StatusCode)
}

func TestGetJSONRetriesThrottlingThenSucceeds(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if atomic.AddInt32(&hits, 1) == 1 {
			w.Header().Set("Retry-After", "1")
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"name":"second-try"}`))
	}))
	defer srv.Close()

	var out payload
	err := GetJSON(context.Background(), srv.Client(), entities.SourceCWPSA, srv.URL, nil, &out)

	require.NoError(t, err)
	require.Equal(t, "second-try", out.Name)
	require.EqualValues(t, 2, atomic.LoadInt32(&hits))
}

func TestGetJSONSurfacesPersistentThrottling(t *testing.T) {
	var hits int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&hits, 1)
		w.Header().Set("Retry-After", "1")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	var out payload
	err := GetJSON(context.Background(), srv.Client(), entities.SourceCWPSA, srv.URL, nil, &out)

	ae, ok := adapters.AsError(err)
	require.True(t, ok)
	require.Equal(t, adapters.KindRateLimited, ae.Kind)
	require.Equal(t, time.Second, ae.RetryAfter)
	require.True(t, ae.Retryable())
	require.EqualValues(t, MaxAttempts, atomic.LoadInt32(&hits))
}

func TestGetJSONMapsServerError(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "boom", http.StatusBadGateway)
	}))
	defer srv.Close()

	var out payload
	err := GetJSON(context.Background(), srv.Client(), entities.SourceImmy, srv.URL, nil, &out)

	ae, ok := adapters.AsError(err)
	require.True(t, ok)
	require.Equal(t, adapters.KindVendorError, ae.Kind)
	require.Equal(t, http.StatusBadGateway, ae.StatusCode)
	require.Contains(t, ae.Message, "boom")
	require.False(t, ae.Retryable())
}

func TestGetJSONCancelledDuringBackoff(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Retry-After", "5")
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer srv.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 100*time.Millisecond)
	defer cancel()

	var out payload
	err := GetJSON(ctx, srv.Client(), entities.SourceCWPSA, srv.URL, nil, &out)

	ae, ok := adapters.AsError(err)
	require.True(t, ok)
	require.Equal(t, adapters.KindVendorError, ae.Kind)
	require.ErrorIs(t, err, context.DeadlineExceeded)
}
