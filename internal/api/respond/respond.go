// Package respond maps handler errors onto HTTP responses. Client-caused
// failures carry a short message; anything else is logged with the request
// ID and returned as an opaque 500.
package respond

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bugtracker/bugtracker/internal/auth"
	"github.com/bugtracker/bugtracker/internal/db/repositories"
)

// requestIDKey mirrors middleware.RequestIDKey without importing it.
const requestIDKey = "request_id"

// Error writes the response for err and aborts the chain.
func Error(c *gin.Context, err error) {
	var missingPerm *auth.MissingPermissionError
	var missingRole *auth.MissingRoleError

	switch {
	case errors.As(err, &missingPerm):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":      "Missing required permission",
			"reason":     "missing_permission",
			"permission": missingPerm.Permission,
		})
	case errors.As(err, &missingRole):
		c.AbortWithStatusJSON(http.StatusForbidden, gin.H{
			"error":  "Forbidden",
			"reason": "forbidden",
			"role":   missingRole.Role,
		})
	case errors.Is(err, auth.ErrUnauthenticated):
		c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{
			"error":  "Authentication required",
			"reason": "unauthenticated",
		})
	case errors.Is(err, repositories.ErrDuplicate):
		c.AbortWithStatusJSON(http.StatusConflict, gin.H{"error": "Record already exists"})
	default:
		slog.ErrorContext(c.Request.Context(), "request failed",
			"request_id", c.GetString(requestIDKey),
			"method", c.Request.Method,
			"path", c.FullPath(),
			"error", err)
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

// BadRequest writes a 400 with message.
func BadRequest(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": message})
}

// NotFound writes a 404 with message.
func NotFound(c *gin.Context, message string) {
	c.AbortWithStatusJSON(http.StatusNotFound, gin.H{"error": message})
}
