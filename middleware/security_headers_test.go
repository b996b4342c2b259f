package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/labstack/echo/v4"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func runWithHeaders(t *testing.T, config SecurityConfig) http.Header {
	t.Helper()
	e := echo.New()
	req := httptest.NewRequest(http.MethodGet, "/", nil)
	rec := httptest.NewRecorder()
	c := e.NewContext(req, rec)

	handler := SecurityHeadersWithConfig(config)(func(c echo.Context) error {
		return c.NoContent(http.StatusOK)
	})
	require.NoError(t, handler(c))
	return rec.Header()
}

func TestSecurityHeadersDefaults(t *testing.T) {
	h := runWithHeaders(t, SecurityConfig{})

	assert.Equal(t, "DENY", h.Get("X-Frame-Options"))
	assert.Equal(t, "nosniff", h.Get("X-Content-Type-Options"))
	assert.Equal(t, "no-store", h.Get("Cache-Control"))
	assert.Equal(t, "no-referrer", h.Get("Referrer-Policy"))

	// a JSON API allows no sources at all by default
	csp := h.Get("Content-Security-Policy")
	assert.Equal(t, "default-src 'none'; frame-ancestors 'none'", csp)
}

func TestSecurityHeadersDashboardConfig(t *testing.T) {
	h := runWithHeaders(t, SecurityConfig{
		AllowedDomains: []string{"https://admin.furnimall.com"},
		AllowInlineJS:  true,
	})

	csp := h.Get("Content-Security-Policy")
	assert.Contains(t, csp, "script-src 'self' 'unsafe-inline'")
	assert.Contains(t, csp, "connect-src 'self' https://admin.furnimall.com")
	assert.NotContains(t, csp, "unsafe-eval")
}
