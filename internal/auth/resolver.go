package auth

import (
	"context"
	"fmt"

	"golang.org/x/sync/errgroup"

	"github.com/bugtracker/bugtracker/internal/db/models"
)

// RoleFinder looks up a role by name, returning (nil, nil) when it does not exist.
type RoleFinder interface {
	FindRoleByName(ctx context.Context, name string) (*models.Role, error)
}

// RoleResolver merges the permission sets of a user's roles into one map.
type RoleResolver struct {
	roles RoleFinder
}

// NewRoleResolver creates a resolver reading roles from finder.
func NewRoleResolver(finder RoleFinder) *RoleResolver {
	return &RoleResolver{roles: finder}
}

// Resolve returns the union of the permissions granted by roleNames. Roles
// that do not exist contribute nothing. An empty role set yields an empty map.
func (r *RoleResolver) Resolve(ctx context.Context, roleNames []string) (PermissionMap, error) {
	names := models.NewRoleSet(roleNames...)
	perms := PermissionMap{}
	if len(names) == 0 {
		return perms, nil
	}

	found := make([]*models.Role, len(names))
	g, gctx := errgroup.WithContext(ctx)
	for i, name := range names {
		i, name := i, name
		g.Go(func() error {
			role, err := r.roles.FindRoleByName(gctx, name)
			if err != nil {
				return fmt.Errorf("failed to load role %q: %w", name, err)
			}
			found[i] = role
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	for _, role := range found {
		if role == nil {
			continue
		}
		perms.Grant(role.Permissions)
	}
	return perms, nil
}
