package middleware

import (
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityHeadersConfig controls the headers set by SecurityHeaders.
type SecurityHeadersConfig struct {
	// HSTSMaxAge in seconds; sent only on TLS requests. Zero disables it.
	HSTSMaxAge int
	// RevalidatePrefixes get "no-cache" instead of "no-store". These are
	// documents such as the OpenAPI spec that change only when models do.
	RevalidatePrefixes []string
}

// DefaultSecurityHeadersConfig returns a one-year HSTS policy and lets
// clients revalidate the OpenAPI document.
func DefaultSecurityHeadersConfig() SecurityHeadersConfig {
	return SecurityHeadersConfig{
		HSTSMaxAge:         31536000,
		RevalidatePrefixes: []string{"/api/openapi.json"},
	}
}

// SecurityHeaders sets response headers for a JSON-only API.
func SecurityHeaders(cfg SecurityHeadersConfig) echo.MiddlewareFunc {
	hsts := ""
	if cfg.HSTSMaxAge > 0 {
		hsts = "max-age=" + strconv.Itoa(cfg.HSTSMaxAge) + "; includeSubDomains"
	}
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("Referrer-Policy", "no-referrer")
			if hsts != "" && c.Scheme() == "https" {
				h.Set("Strict-Transport-Security", hsts)
			}

			cache := "no-store"
			path := c.Request().URL.Path
			for _, p := range cfg.RevalidatePrefixes {
				if strings.HasPrefix(path, p) {
					cache = "no-cache"
					break
				}
			}
			h.Set("Cache-Control", cache)
			return next(c)
		}
	}
}
