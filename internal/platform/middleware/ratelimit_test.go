package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func rateLimitedHandler(cfg RateLimitConfig) echo.HandlerFunc {
	return RateLimit(cfg)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
}

func callFrom(t *testing.T, h echo.HandlerFunc, ip string) (*httptest.ResponseRecorder, error) {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.RemoteAddr = ip + ":1234"
	rec := httptest.NewRecorder()
	return rec, h(e.NewContext(req, rec))
}

func TestRateLimit_RequestsWithinLimit(t *testing.T) {
	h := rateLimitedHandler(RateLimitConfig{RequestsPerSecond: 10, BurstSize: 5})

	for i := 0; i < 5; i++ {
		rec, err := callFrom(t, h, "10.0.0.1")
		if err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
		if got := rec.Header().Get("X-RateLimit-Limit"); got != "10" {
			t.Errorf("request %d: expected X-RateLimit-Limit '10', got %q", i+1, got)
		}
	}
}

func TestRateLimit_ExceedsLimit(t *testing.T) {
	h := rateLimitedHandler(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 2})

	for i := 0; i < 2; i++ {
		if _, err := callFrom(t, h, "10.0.0.1"); err != nil {
			t.Fatalf("request %d: expected no error, got %v", i+1, err)
		}
	}

	rec, err := callFrom(t, h, "10.0.0.1")
	he, ok := err.(*echo.HTTPError)
	if !ok || he.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429, got %v", err)
	}
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
	if rec.Header().Get("X-RateLimit-Remaining") != "0" {
		t.Error("expected X-RateLimit-Remaining 0")
	}
}

func TestRateLimit_PerClient(t *testing.T) {
	h := rateLimitedHandler(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1})

	if _, err := callFrom(t, h, "10.0.0.1"); err != nil {
		t.Fatal(err)
	}
	if _, err := callFrom(t, h, "10.0.0.2"); err != nil {
		t.Errorf("second client should have its own bucket: %v", err)
	}
	if _, err := callFrom(t, h, "10.0.0.1"); err == nil {
		t.Error("first client should be limited")
	}
}

func TestRateLimit_EvictedClientStartsFresh(t *testing.T) {
	h := rateLimitedHandler(RateLimitConfig{RequestsPerSecond: 1, BurstSize: 1, MaxClients: 1})

	if _, err := callFrom(t, h, "10.0.0.1"); err != nil {
		t.Fatal(err)
	}
	if _, err := callFrom(t, h, "10.0.0.2"); err != nil {
		t.Fatal(err)
	}
	if _, err := callFrom(t, h, "10.0.0.1"); err != nil {
		t.Errorf("evicted client should get a new bucket: %v", err)
	}
}

func TestRateLimit_Disabled(t *testing.T) {
	h := rateLimitedHandler(RateLimitConfig{})
	for i := 0; i < 50; i++ {
		rec, err := callFrom(t, h, "10.0.0.1")
		if err != nil {
			t.Fatalf("request %d: %v", i+1, err)
		}
		if rec.Header().Get("X-RateLimit-Limit") != "" {
			t.Fatal("disabled limiter should not set headers")
		}
	}
}
