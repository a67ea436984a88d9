package middleware

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bugtracker/bugtracker/internal/auth"
	"github.com/bugtracker/bugtracker/internal/telemetry"
)

// Machine-readable reasons carried in guard failure bodies.
const (
	ReasonUnauthenticated   = "unauthenticated"
	ReasonForbidden         = "forbidden"
	ReasonMissingPermission = "missing_permission"
)

// RequireAuthenticated rejects anonymous requests with 401.
func RequireAuthenticated() gin.HandlerFunc {
	return guard("authenticated", func(ac *auth.AuthContext) error {
		return auth.RequireAuthenticated(ac)
	})
}

// RequireRole rejects anonymous requests with 401 and requests whose roles do
// not include name with 403.
func RequireRole(name string) gin.HandlerFunc {
	return guard("role", func(ac *auth.AuthContext) error {
		return auth.RequireRole(ac, name)
	})
}

// RequirePermission rejects anonymous requests with 401 and otherwise with 403
// citing the first of names, in order, the caller does not hold.
func RequirePermission(names ...string) gin.HandlerFunc {
	return guard("permission", func(ac *auth.AuthContext) error {
		return auth.RequirePermission(ac, names...)
	})
}

func guard(kind string, check func(*auth.AuthContext) error) gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, _ := GetAuthContext(c)
		if err := check(ac); err != nil {
			abortWithGuardError(c, kind, err)
			return
		}
		c.Next()
	}
}

func abortWithGuardError(c *gin.Context, kind string, err error) {
	var missingPerm *auth.MissingPermissionError
	var missingRole *auth.MissingRoleError

	switch {
	case errors.As(err, &missingPerm):
		telemetry.AccessDenialsTotal.WithLabelValues(kind, ReasonMissingPermission).Inc()
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":      "Missing required permission",
			"reason":     ReasonMissingPermission,
			"permission": missingPerm.Permission,
		})
	case errors.As(err, &missingRole):
		telemetry.AccessDenialsTotal.WithLabelValues(kind, ReasonForbidden).Inc()
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":  "Forbidden",
			"reason": ReasonForbidden,
			"role":   missingRole.Role,
		})
	default:
		telemetry.AccessDenialsTotal.WithLabelValues(kind, ReasonUnauthenticated).Inc()
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":  "Authentication required",
			"reason": ReasonUnauthenticated,
		})
	}
}
