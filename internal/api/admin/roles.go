// Package admin implements the administration routes: role maintenance and
// the read side of the edit log.
package admin

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bugtracker/bugtracker/internal/api/respond"
	"github.com/bugtracker/bugtracker/internal/audit"
	"github.com/bugtracker/bugtracker/internal/db/models"
	"github.com/bugtracker/bugtracker/internal/db/repositories"
	"github.com/bugtracker/bugtracker/internal/middleware"
)

// RoleInvalidator drops a cached copy of a role.
type RoleInvalidator interface {
	Invalidate(ctx context.Context, name string) error
}

// RoleHandlers serves the role routes.
type RoleHandlers struct {
	roles *repositories.RoleRepository
	cache RoleInvalidator
	audit *audit.Logger
}

// NewRoleHandlers creates a new RoleHandlers instance. cache may be nil when
// roles are not cached.
func NewRoleHandlers(roles *repositories.RoleRepository, cache RoleInvalidator, auditLogger *audit.Logger) *RoleHandlers {
	return &RoleHandlers{roles: roles, cache: cache, audit: auditLogger}
}

type upsertRoleRequest struct {
	Permissions models.PermissionSet `json:"permissions" binding:"required"`
}

// ListRolesHandler lists every role and its permission set.
// GET /api/role/list
func (h *RoleHandlers) ListRolesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		roles, err := h.roles.List(c.Request.Context())
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"roles": roles})
	}
}

// UpsertRoleHandler creates a role or replaces its permission set. Users
// holding the role see the change the next time they sign in.
// PUT /api/role/:roleName
func (h *RoleHandlers) UpsertRoleHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		name := strings.TrimSpace(c.Param("roleName"))
		if name == "" {
			respond.BadRequest(c, "role name must not be blank")
			return
		}
		var req upsertRoleRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
		ctx := c.Request.Context()

		role, err := h.roles.Upsert(ctx, &models.Role{Name: name, Permissions: req.Permissions})
		if err != nil {
			respond.Error(c, err)
			return
		}

		if h.cache != nil {
			if err := h.cache.Invalidate(ctx, name); err != nil {
				slog.WarnContext(ctx, "failed to invalidate cached role",
					"role", name,
					"request_id", c.GetString(middleware.RequestIDKey),
					"error", err)
			}
		}

		ac, _ := middleware.GetAuthContext(c)
		h.audit.Record(ctx, models.EditOpUpdate, models.CollectionRole,
			map[string]string{"roleName": name}, req, ac.Snapshot())

		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Role %s saved", name), "role": role})
	}
}
