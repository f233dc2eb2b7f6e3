package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityConfig lists the external origins the page may load from.
type SecurityConfig struct {
	// ImageOrigins serve vehicle and product photos, e.g. the rental CDN.
	ImageOrigins []string
}

// SecurityHeaders returns middleware that sets security-related HTTP headers
// on every response. TLS is terminated by the reverse proxy; these headers
// harden the browser side of the dashboard.
func SecurityHeaders(cfg SecurityConfig) echo.MiddlewareFunc {
	imgSrc := strings.TrimSpace("'self' data: " + strings.Join(cfg.ImageOrigins, " "))

	// 'unsafe-inline' covers the positioned bar styles and the small teardown
	// script of each timeline view. No eval is needed: htmx runs without it.
	csp := strings.Join([]string{
		"default-src 'self'",
		"script-src 'self' 'unsafe-inline'",
		"style-src 'self' 'unsafe-inline'",
		"img-src " + imgSrc,
		"connect-src 'self'",
		"frame-ancestors 'none'",
		"base-uri 'self'",
		"form-action 'self'",
	}, "; ")

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()
			h.Set("Content-Security-Policy", csp)
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			h.Set("X-Content-Type-Options", "nosniff")
			// Redundant with frame-ancestors for older browsers.
			h.Set("X-Frame-Options", "DENY")
			// Bars open order pages in a new tab; keep query strings private.
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=(), payment=()")
			return next(c)
		}
	}
}
