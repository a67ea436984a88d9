package auth

import (
	"context"
	"slices"
	"time"

	"github.com/bugtracker/bugtracker/internal/db/models"
)

// AuthContext is the verified identity attached to a request. A request
// without one is anonymous.
type AuthContext struct {
	UserID      string
	Username    string
	Email       string
	Roles       []string
	Permissions PermissionMap
	IssuedAt    time.Time
	ExpiresAt   time.Time
}

// NewAuthContext builds an AuthContext from verified claims.
func NewAuthContext(claims *Claims) *AuthContext {
	ac := &AuthContext{
		UserID:      claims.UserID,
		Username:    claims.Username,
		Email:       claims.Email,
		Roles:       claims.Roles,
		Permissions: claims.Permissions,
	}
	if ac.Permissions == nil {
		ac.Permissions = PermissionMap{}
	}
	if claims.IssuedAt != nil {
		ac.IssuedAt = claims.IssuedAt.Time
	}
	if claims.ExpiresAt != nil {
		ac.ExpiresAt = claims.ExpiresAt.Time
	}
	return ac
}

// HasRole reports whether name is among the context's roles.
func (a *AuthContext) HasRole(name string) bool {
	if a == nil {
		return false
	}
	return slices.Contains(a.Roles, name)
}

// HasPermission reports whether the context's resolved permissions grant name.
func (a *AuthContext) HasPermission(name string) bool {
	if a == nil {
		return false
	}
	return a.Permissions.Has(name)
}

type authContextKey struct{}

// WithContext attaches ac to ctx.
func WithContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// FromContext returns the AuthContext attached to ctx, if any.
func FromContext(ctx context.Context) (*AuthContext, bool) {
	if ctx == nil {
		return nil, false
	}
	ac, ok := ctx.Value(authContextKey{}).(*AuthContext)
	if !ok || ac == nil {
		return nil, false
	}
	return ac, true
}

// Snapshot freezes the context into the actor snapshot stored with records
// and edit log entries. A nil context yields nil.
func (a *AuthContext) Snapshot() *models.ActorSnapshot {
	if a == nil {
		return nil
	}
	snap := &models.ActorSnapshot{
		UserID:   a.UserID,
		Email:    a.Email,
		Username: a.Username,
		Roles:    slices.Clone(a.Roles),
	}
	if len(a.Permissions) > 0 {
		snap.Permissions = make(map[string]bool, len(a.Permissions))
		for name, granted := range a.Permissions {
			snap.Permissions[name] = granted
		}
	}
	return snap
}
