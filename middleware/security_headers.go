// middleware/security_headers.go
package middleware

import (
	"strings"

	"github.com/labstack/echo/v4"
)

// SecurityConfig tunes the response headers. The commission API serves
// JSON only, so the default policy locks everything down; deployments
// that host a dashboard on the same origin open it up per field.
type SecurityConfig struct {
	AllowedDomains []string
	AllowInlineJS  bool
	AllowEval      bool
}

// SecurityHeaders applies the locked-down API defaults.
func SecurityHeaders() echo.MiddlewareFunc {
	return SecurityHeadersWithConfig(SecurityConfig{})
}

func SecurityHeadersWithConfig(config SecurityConfig) echo.MiddlewareFunc {
	// the policy is fixed per process, build it once
	csp := buildCSP(config)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			h := c.Response().Header()

			h.Set("X-Frame-Options", "DENY")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-XSS-Protection", "1; mode=block")
			h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains; preload")
			h.Set("Content-Security-Policy", csp)
			h.Set("Referrer-Policy", "no-referrer")
			// commission rates must never land in shared caches
			h.Set("Cache-Control", "no-store")

			h.Del("Server")
			h.Del("X-Powered-By")

			return next(c)
		}
	}
}

// buildCSP assembles the policy. A JSON API needs no script, style or
// image sources; those directives appear only when the config opens
// them for an embedded dashboard.
func buildCSP(config SecurityConfig) string {
	csp := []string{
		"default-src 'none'",
		"frame-ancestors 'none'",
	}

	if config.AllowInlineJS || config.AllowEval {
		script := "script-src 'self'"
		if config.AllowInlineJS {
			script += " 'unsafe-inline'"
		}
		if config.AllowEval {
			script += " 'unsafe-eval'"
		}
		csp = append(csp,
			script,
			"style-src 'self' 'unsafe-inline'",
			"img-src 'self' data:",
		)
	}

	if len(config.AllowedDomains) > 0 {
		csp = append(csp, "connect-src 'self' "+strings.Join(config.AllowedDomains, " "))
	}

	return strings.Join(csp, "; ")
}
