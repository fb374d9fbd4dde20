package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

const (
	apiCSP = "default-src 'none'; frame-ancestors 'none'"
	// Rendered documents carry their own stylesheet, the print button script
	// and an optional remote logo.
	documentCSP = "default-src 'none'; style-src 'unsafe-inline'; script-src 'unsafe-inline'; img-src https: data:; frame-ancestors 'none'"
)

// IsDocumentPath reports whether the path serves printable HTML.
func IsDocumentPath(path string) bool {
	return strings.HasSuffix(path, "/document") || strings.Contains(path, "/documents/")
}

// SecurityHeaders sets the response hardening headers. Document routes get a
// policy that lets the printable page style itself and run its print button.
func SecurityHeaders() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("X-XSS-Protection", "0")
			if IsDocumentPath(c.Request().URL.Path) {
				h.Set("Content-Security-Policy", documentCSP)
			} else {
				h.Set("Content-Security-Policy", apiCSP)
			}
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")

			// Orders carry patient names and affiliation numbers.
			h.Set("Cache-Control", "no-store")

			return next(c)
		}
	}
}
