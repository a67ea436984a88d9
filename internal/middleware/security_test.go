package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func serveWithHeaders(cfg SecurityHeadersConfig, status int) http.Header {
	r := gin.New()
	r.Use(SecurityHeadersMiddleware(cfg))
	r.GET("/", func(c *gin.Context) { c.AbortWithStatus(status) })
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/", nil))
	return w.Header()
}

func TestSecurityHeadersMiddleware_APIDefaults(t *testing.T) {
	h := serveWithHeaders(APISecurityHeadersConfig(), http.StatusOK)

	want := map[string]string{
		"Strict-Transport-Security": "max-age=31536000; includeSubDomains",
		"X-Frame-Options":           "DENY",
		"Content-Security-Policy":   "default-src 'none'; frame-ancestors 'none'",
		"Referrer-Policy":           "no-referrer",
		"X-Content-Type-Options":    "nosniff",
		"Cache-Control":             "no-store",
	}
	for k, v := range want {
		if got := h.Get(k); got != v {
			t.Errorf("%s = %q, want %q", k, got, v)
		}
	}
}

func TestSecurityHeadersMiddleware_OptionalHeadersOmitted(t *testing.T) {
	h := serveWithHeaders(SecurityHeadersConfig{}, http.StatusOK)

	for _, k := range []string{"Strict-Transport-Security", "X-Frame-Options", "Content-Security-Policy", "Referrer-Policy"} {
		if got := h.Get(k); got != "" {
			t.Errorf("%s = %q, want empty", k, got)
		}
	}
	if h.Get("X-Content-Type-Options") != "nosniff" {
		t.Error("nosniff must always be sent")
	}
}

func TestSecurityHeadersMiddleware_HSTSWithoutSubdomains(t *testing.T) {
	h := serveWithHeaders(SecurityHeadersConfig{EnableHSTS: true, HSTSMaxAge: 60}, http.StatusOK)
	if got := h.Get("Strict-Transport-Security"); got != "max-age=60" {
		t.Errorf("HSTS = %q, want max-age=60", got)
	}
}

func TestSecurityHeadersMiddleware_PresentOnErrors(t *testing.T) {
	h := serveWithHeaders(APISecurityHeadersConfig(), http.StatusUnauthorized)
	if h.Get("X-Frame-Options") != "DENY" {
		t.Error("security headers missing on error response")
	}
}
