// Package middleware provides the Gin middleware of the bug tracker API:
// request identification, metrics, security headers, credential endpoint
// rate limiting, authentication and the access guards.
//
// Authentication and authorization are separate phases. AuthContextMiddleware
// runs on every route and only identifies the caller; it never rejects a
// request. The guards in guards.go run per route and decide whether the
// identity, or its absence, is acceptable:
//
//	RequestID → Metrics → AccessLog → SecurityHeaders → AuthContext → per-route RateLimit or Guards → Handler
package middleware

import (
	"errors"
	"log/slog"

	"github.com/gin-gonic/gin"

	"github.com/bugtracker/bugtracker/internal/auth"
	"github.com/bugtracker/bugtracker/internal/telemetry"
)

// AuthContextKey is the gin.Context key under which the verified
// *auth.AuthContext is stored in addition to the request context.
const AuthContextKey = "auth_context"

// TokenVerifier verifies session tokens.
type TokenVerifier interface {
	Verify(token string) (*auth.Claims, error)
}

// Token states recorded by AuthContextMiddleware.
const (
	tokenNone             = "none"
	tokenValid            = "valid"
	tokenInvalidSignature = "invalid_signature"
	tokenExpired          = "expired"
	tokenMalformed        = "malformed"
)

// AuthContextMiddleware reads the session token from the cookieName cookie,
// falling back to an "Authorization: Bearer" header, and verifies it. Only a
// token that verifies attaches an AuthContext; a missing or invalid token
// leaves the request anonymous for the guards to judge.
func AuthContextMiddleware(verifier TokenVerifier, cookieName string) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := extractToken(c, cookieName)
		if token == "" {
			telemetry.AuthTokenVerificationsTotal.WithLabelValues(tokenNone).Inc()
			c.Next()
			return
		}

		claims, err := verifier.Verify(token)
		if err != nil {
			state := tokenState(err)
			telemetry.AuthTokenVerificationsTotal.WithLabelValues(state).Inc()
			slog.DebugContext(c.Request.Context(), "session token rejected",
				"state", state,
				"request_id", c.GetString(RequestIDKey),
				"error", err)
			c.Next()
			return
		}

		telemetry.AuthTokenVerificationsTotal.WithLabelValues(tokenValid).Inc()
		ac := auth.NewAuthContext(claims)
		c.Request = c.Request.WithContext(auth.WithContext(c.Request.Context(), ac))
		c.Set(AuthContextKey, ac)
		c.Next()
	}
}

func extractToken(c *gin.Context, cookieName string) string {
	if cookieName != "" {
		if v, err := c.Cookie(cookieName); err == nil && v != "" {
			return v
		}
	}
	token, err := auth.ExtractBearerToken(c.GetHeader("Authorization"))
	if err != nil {
		return ""
	}
	return token
}

func tokenState(err error) string {
	switch {
	case errors.Is(err, auth.ErrInvalidSignature):
		return tokenInvalidSignature
	case errors.Is(err, auth.ErrExpired):
		return tokenExpired
	default:
		return tokenMalformed
	}
}

// GetAuthContext returns the AuthContext attached by AuthContextMiddleware.
func GetAuthContext(c *gin.Context) (*auth.AuthContext, bool) {
	if v, ok := c.Get(AuthContextKey); ok {
		if ac, ok := v.(*auth.AuthContext); ok && ac != nil {
			return ac, true
		}
	}
	return auth.FromContext(c.Request.Context())
}
