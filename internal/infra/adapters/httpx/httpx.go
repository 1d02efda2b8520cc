// Package httpx carries the stateless HTTP plumbing shared by the vendor
// adapters: JSON GETs with typed error mapping and bounded retry on
// throttling. Adapters hold no shared state through it.
package httpx

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/pulsemsp/pulse/internal/domain/adapters"
	"github.com/pulsemsp/pulse/internal/domain/entities"
)

const (
	// MaxAttempts bounds internal retries on vendor throttling before the
	// rate-limit error is surfaced to the caller.
	MaxAttempts = 4

	baseBackoff = 500 * time.Millisecond
	maxBodyRead = 64 << 10
)

// GetJSON fetches url and decodes the JSON body into out. Vendor failures
// come back as *adapters.Error: 401/403 as authentication failures, 429 as
// rate-limited (after MaxAttempts internal retries honoring Retry-After),
// anything else non-2xx as a vendor error with status and message preserved.
func GetJSON(ctx context.Context, client *http.Client, vendor entities.Source, url string, headers map[string]string, out any) error {
	if client == nil {
		client = http.DefaultClient
	}

	var lastRetryAfter time.Duration
	for attempt := 1; attempt <= MaxAttempts; attempt++ {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return adapters.VendorFailure(vendor, 0, "building request: "+err.Error(), err)
		}
		req.Header.Set("Accept", "application/json")
		for k, v := range headers {
			req.Header.Set(k, v)
		}

		resp, err := client.Do(req)
		if err != nil {
			return adapters.VendorFailure(vendor, 0, "request failed: "+err.Error(), err)
		}

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			resp.Body.Close()
			return adapters.AuthFailed(vendor, resp.StatusCode)

		case resp.StatusCode == http.StatusTooManyRequests:
			lastRetryAfter = retryAfter(resp, attempt)
			resp.Body.Close()
			if attempt == MaxAttempts {
				return adapters.RateLimited(vendor, lastRetryAfter)
			}
			select {
			case <-time.After(lastRetryAfter):
			case <-ctx.Done():
				return adapters.VendorFailure(vendor, 0, "context cancelled during backoff", ctx.Err())
			}
			continue

		case resp.StatusCode < 200 || resp.StatusCode > 299:
			body, _ := io.ReadAll(io.LimitReader(resp.Body, maxBodyRead))
			resp.Body.Close()
			return adapters.VendorFailure(vendor, resp.StatusCode,
				fmt.Sprintf("unexpected status %d: %s", resp.StatusCode, truncate(string(body), 200)), nil)
		}

		err = json.NewDecoder(resp.Body).Decode(out)
		resp.Body.Close()
		if err != nil {
			return adapters.VendorFailure(vendor, resp.StatusCode, "decoding response: "+err.Error(), err)
		}
		return nil
	}
	return adapters.RateLimited(vendor, lastRetryAfter)
}

// retryAfter honors the vendor's Retry-After hint, falling back to
// exponential backoff on the attempt number.
func retryAfter(resp *http.Response, attempt int) time.Duration {
	if v := resp.Header.Get("Retry-After"); v != "" {
		if secs, err := strconv.Atoi(v); err == nil && secs > 0 {
			return time.Duration(secs) * time.Second
		}
	}
	return baseBackoff * time.Duration(1<<(attempt-1))
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
