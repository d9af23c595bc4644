package api

import (
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"
)

type staticLimiter struct {
	allow      bool
	retryAfter time.Duration
}

func (s *staticLimiter) Reserve() (bool, time.Duration) {
	return s.allow, s.retryAfter
}

func TestRateLimitMiddlewareBlocksWhenLimiterDenies(t *testing.T) {
	middleware := rateLimitMiddleware(&staticLimiter{allow: false, retryAfter: 2500 * time.Millisecond}, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		t.Fatalf("handler should not execute when rate limited")
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	middleware.ServeHTTP(rec, req)

	if rec.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %d", rec.Code)
	}
	if got := rec.Header().Get("Retry-After"); got != "3" {
		t.Fatalf("expected Retry-After 3, got %q", got)
	}
}

func TestRateLimitMiddlewarePassesWhenLimiterAllows(t *testing.T) {
	var called bool
	middleware := rateLimitMiddleware(&staticLimiter{allow: true}, http.HandlerFunc(func(_ http.ResponseWriter, _ *http.Request) {
		called = true
	}))

	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	middleware.ServeHTTP(rec, req)

	if !called {
		t.Fatalf("expected handler to execute when limiter allows")
	}
}

func TestNewTokenBucketLimiterUsesDefaults(t *testing.T) {
	limiter := newTokenBucketLimiter(0, 0)
	if limiter == nil {
		t.Fatalf("expected limiter instance")
	}
	if ok, _ := limiter.Reserve(); !ok {
		t.Fatalf("expected first request to be allowed")
	}
}

func TestTokenBucketReportsDelayWhenExhausted(t *testing.T) {
	limiter := newTokenBucketLimiter(0.5, 1)

	if ok, _ := limiter.Reserve(); !ok {
		t.Fatalf("expected first request to be allowed")
	}
	ok, retryAfter := limiter.Reserve()
	if ok {
		t.Fatalf("expected second request to be denied")
	}
	if retryAfter <= time.Second || retryAfter > 2*time.Second {
		t.Fatalf("expected a delay of about two seconds, got %s", retryAfter)
	}

	// The cancelled reservation must not push the next slot further out.
	_, again := limiter.Reserve()
	if again > retryAfter {
		t.Fatalf("expected delay not to grow after cancellation, got %s then %s", retryAfter, again)
	}
}

func TestRetryAfterSeconds(t *testing.T) {
	testCases := map[time.Duration]int{
		0:                      1,
		100 * time.Millisecond: 1,
		time.Second:            1,
		1500 * time.Millisecond: 2,
	}
	for d, want := range testCases {
		if got := retryAfterSeconds(d); got != strconv.Itoa(want) {
			t.Fatalf("retryAfterSeconds(%s) = %s, want %d", d, got, want)
		}
	}
}
