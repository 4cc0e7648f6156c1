package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"
)

func TestRateLimiterBlocksAfterBurst(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"mutate": {RequestsPerMinute: 1, Burst: 1},
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.Header.Set("X-Real-IP", "198.51.100.7")

	if !limiter.Allow("mutate", req) {
		t.Fatal("expected first request to pass")
	}
	if limiter.Allow("mutate", req) {
		t.Fatal("expected second request to be limited")
	}
}

func TestRateLimiterUnknownBucketUnrestricted(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"mutate": {RequestsPerMinute: 1, Burst: 1},
	})

	req := httptest.NewRequest(http.MethodPost, "/", nil)
	for i := 0; i < 10; i++ {
		if !limiter.Allow("query", req) {
			t.Fatal("unknown bucket must not limit")
		}
	}
}

func TestRateLimiterSeparatesClients(t *testing.T) {
	limiter := NewRateLimiter(map[string]RateLimit{
		"mutate": {RequestsPerMinute: 1, Burst: 1},
	})

	first := httptest.NewRequest(http.MethodPost, "/", nil)
	first.Header.Set("X-Real-IP", "198.51.100.7")
	second := httptest.NewRequest(http.MethodPost, "/", nil)
	second.Header.Set("X-Real-IP", "198.51.100.8")

	if !limiter.Allow("mutate", first) {
		t.Fatal("expected first client to pass")
	}
	if !limiter.Allow("mutate", second) {
		t.Fatal("expected second client to pass independently")
	}
	if limiter.Allow("mutate", first) {
		t.Fatal("expected first client to be limited on repeat")
	}
}

func TestClientIDFallsBackToRemoteAddr(t *testing.T) {
	req := httptest.NewRequest(http.MethodPost, "/", nil)
	req.RemoteAddr = "203.0.113.9:4411"
	if got := clientID(req); got != "203.0.113.9" {
		t.Fatalf("client id = %q, want 203.0.113.9", got)
	}

	req.Header.Set("X-Forwarded-For", "198.51.100.1, 10.0.0.1")
	if got := clientID(req); got != "198.51.100.1" {
		t.Fatalf("forwarded client id = %q, want 198.51.100.1", got)
	}
}
