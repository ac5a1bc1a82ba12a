package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
)

func serveWithHeaders(t *testing.T, cfg SecurityHeadersConfig, req *http.Request) *httptest.ResponseRecorder {
	t.Helper()
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	h := SecurityHeaders(cfg)(func(c echo.Context) error {
		return c.String(http.StatusOK, "ok")
	})
	if err := h(c); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	return rec
}

func TestSecurityHeaders(t *testing.T) {
	rec := serveWithHeaders(t, DefaultSecurityHeadersConfig(), httptest.NewRequest(http.MethodGet, "/api/v1/models", nil))

	want := map[string]string{
		"X-Content-Type-Options":  "nosniff",
		"X-Frame-Options":         "DENY",
		"Content-Security-Policy": "default-src 'none'; frame-ancestors 'none'",
		"Referrer-Policy":         "no-referrer",
		"Cache-Control":           "no-store",
	}
	for header, value := range want {
		if got := rec.Header().Get(header); got != value {
			t.Errorf("%s = %q, want %q", header, got, value)
		}
	}
	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("HSTS must not be sent over plain HTTP, got %q", got)
	}
}

func TestSecurityHeaders_HSTSOverTLS(t *testing.T) {
	req := httptest.NewRequest(http.MethodGet, "/api/v1/models", nil)
	req.Header.Set(echo.HeaderXForwardedProto, "https")

	rec := serveWithHeaders(t, DefaultSecurityHeadersConfig(), req)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "max-age=31536000; includeSubDomains" {
		t.Errorf("unexpected HSTS header %q", got)
	}

	rec = serveWithHeaders(t, SecurityHeadersConfig{}, req)
	if got := rec.Header().Get("Strict-Transport-Security"); got != "" {
		t.Errorf("zero max age should disable HSTS, got %q", got)
	}
}

func TestSecurityHeaders_RevalidatePrefixes(t *testing.T) {
	rec := serveWithHeaders(t, DefaultSecurityHeadersConfig(), httptest.NewRequest(http.MethodGet, "/api/openapi.json", nil))
	if got := rec.Header().Get("Cache-Control"); got != "no-cache" {
		t.Errorf("Cache-Control = %q, want no-cache", got)
	}
}

func TestSecurityHeaders_SetOnErrors(t *testing.T) {
	e := echo.New()
	rec := httptest.NewRecorder()
	c := e.NewContext(httptest.NewRequest(http.MethodGet, "/", nil), rec)

	_ = SecurityHeaders(DefaultSecurityHeadersConfig())(func(c echo.Context) error {
		return echo.NewHTTPError(http.StatusNotFound)
	})(c)
	if rec.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Error("headers should be set before the handler runs")
	}
}
