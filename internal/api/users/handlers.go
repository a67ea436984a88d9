// Package users implements the account routes under /api/user: registration,
// login and logout, self-service profile edits, and the user administration
// routes guarded by viewUser and updateAnyUser.
package users

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bugtracker/bugtracker/internal/audit"
	"github.com/bugtracker/bugtracker/internal/auth"
	"github.com/bugtracker/bugtracker/internal/config"
	"github.com/bugtracker/bugtracker/internal/db/models"
	"github.com/bugtracker/bugtracker/internal/db/repositories"
)

// maxPasswordBytes is the longest password bcrypt can hash.
const maxPasswordBytes = 72

// Handlers serves the user routes.
type Handlers struct {
	cfg      config.AuthConfig
	store    *repositories.CredentialStore
	tokens   *auth.TokenCodec
	hasher   *auth.PasswordHasher
	resolver *auth.RoleResolver
	audit    *audit.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(
	cfg config.AuthConfig,
	store *repositories.CredentialStore,
	tokens *auth.TokenCodec,
	hasher *auth.PasswordHasher,
	resolver *auth.RoleResolver,
	auditLogger *audit.Logger,
) *Handlers {
	return &Handlers{
		cfg:      cfg,
		store:    store,
		tokens:   tokens,
		hasher:   hasher,
		resolver: resolver,
		audit:    auditLogger,
	}
}

// issueSession resolves the user's permissions, signs a token for them and
// sets it as the session cookie.
func (h *Handlers) issueSession(c *gin.Context, user *models.User) (string, error) {
	token, err := h.sessionToken(c.Request.Context(), user)
	if err != nil {
		return "", err
	}
	h.setSessionCookie(c, token, int(h.cfg.CookieMaxAge.Seconds()))
	return token, nil
}

func (h *Handlers) sessionToken(ctx context.Context, user *models.User) (string, error) {
	perms, err := h.resolver.Resolve(ctx, user.Roles)
	if err != nil {
		return "", fmt.Errorf("failed to resolve permissions: %w", err)
	}
	roles := []string(user.Roles)
	if roles == nil {
		roles = []string{}
	}
	return h.tokens.Issue(auth.Claims{
		UserID:      user.ID,
		Email:       user.Email,
		Username:    user.Username,
		Roles:       roles,
		Permissions: perms,
	})
}

func (h *Handlers) setSessionCookie(c *gin.Context, value string, maxAge int) {
	c.SetSameSite(http.SameSiteLaxMode)
	c.SetCookie(h.cfg.CookieName, value, maxAge, "/", "", h.cfg.CookieSecure, true)
}

// trimmed trims *s in place and reports whether a provided value is blank.
func trimmed(s *string) (blank bool) {
	if s == nil {
		return false
	}
	*s = strings.TrimSpace(*s)
	return *s == ""
}

// hashPassword validates and hashes a new password.
func (h *Handlers) hashPassword(plaintext string) (string, error) {
	if len(plaintext) > maxPasswordBytes {
		return "", errPasswordTooLong
	}
	return h.hasher.Hash(plaintext)
}

type requestError string

func (e requestError) Error() string { return string(e) }

const errPasswordTooLong = requestError("password must be at most 72 bytes")

func emailInUse(email string) string {
	return fmt.Sprintf("Email %q is already in use", email)
}
