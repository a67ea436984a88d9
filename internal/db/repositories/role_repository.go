package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/bugtracker/bugtracker/internal/db/models"
)

// RoleRepository handles role database operations
type RoleRepository struct {
	db *sqlx.DB
}

// NewRoleRepository creates a new RoleRepository
func NewRoleRepository(db *sqlx.DB) *RoleRepository {
	return &RoleRepository{db: db}
}

// FindRoleByName retrieves a role by name
func (r *RoleRepository) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	query := `SELECT name, permissions, created_at, updated_at FROM roles WHERE name = $1`

	var role models.Role
	err := r.db.GetContext(ctx, &role, query, name)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("find role", err)
	}
	return &role, nil
}

// List returns all roles ordered by name
func (r *RoleRepository) List(ctx context.Context) ([]*models.Role, error) {
	roles := make([]*models.Role, 0)
	err := r.db.SelectContext(ctx, &roles, `SELECT name, permissions, created_at, updated_at FROM roles ORDER BY name`)
	if err != nil {
		return nil, storeError("list roles", err)
	}
	return roles, nil
}

// Upsert creates the role or replaces its permission set, returning the stored row.
func (r *RoleRepository) Upsert(ctx context.Context, role *models.Role) (*models.Role, error) {
	if role.Permissions == nil {
		role.Permissions = models.PermissionSet{}
	}
	now := time.Now().UTC()

	query := `
		INSERT INTO roles (name, permissions, created_at, updated_at)
		VALUES ($1, $2, $3, $3)
		ON CONFLICT (name) DO UPDATE SET permissions = EXCLUDED.permissions, updated_at = EXCLUDED.updated_at
		RETURNING name, permissions, created_at, updated_at
	`
	var stored models.Role
	if err := r.db.GetContext(ctx, &stored, query, role.Name, role.Permissions, now); err != nil {
		return nil, storeError("upsert role", err)
	}
	return &stored, nil
}
