// Package api wires together all HTTP routes for the bug tracker backend.
//
// Route grouping:
//   - /api/user/register, /api/user/login and /api/user/logout are public.
//     Register and login are rate limited per client address.
//   - Every other /api route requires an authenticated caller, and most also
//     require the permission named where the route is registered.
//
// AuthContextMiddleware runs on every route and never rejects; the guards
// attached per route decide between 401 and 403.
package api

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/bugtracker/bugtracker/internal/api/admin"
	"github.com/bugtracker/bugtracker/internal/api/bugs"
	"github.com/bugtracker/bugtracker/internal/api/users"
	"github.com/bugtracker/bugtracker/internal/audit"
	"github.com/bugtracker/bugtracker/internal/auth"
	"github.com/bugtracker/bugtracker/internal/config"
	"github.com/bugtracker/bugtracker/internal/db/repositories"
	"github.com/bugtracker/bugtracker/internal/middleware"
)

// Version is reported by /version and `server version`.
const Version = "0.1.0"

// Dependencies are the long-lived collaborators built once by cmd/server.
type Dependencies struct {
	DB     *sqlx.DB
	Tokens *auth.TokenCodec
	Hasher *auth.PasswordHasher
	Audit  *audit.Logger
	// Roles serves permission resolution: the Redis role cache when one is
	// configured, otherwise the role repository. Nil means the repository.
	Roles auth.RoleFinder
	// RoleCache is invalidated when a role changes. Nil without Redis.
	RoleCache admin.RoleInvalidator
	// Limiter throttles register and login. Nil disables throttling.
	Limiter middleware.Limiter
}

// NewRouter creates and configures the Gin router
func NewRouter(cfg *config.Config, deps Dependencies) *gin.Engine {
	router := gin.New()

	store := repositories.NewCredentialStore(deps.DB)
	roles := deps.Roles
	if roles == nil {
		roles = store.Roles
	}
	resolver := auth.NewRoleResolver(roles)

	userHandlers := users.NewHandlers(cfg.Auth, store, deps.Tokens, deps.Hasher, resolver, deps.Audit)
	bugHandlers := bugs.NewHandlers(deps.DB, deps.Audit)
	roleHandlers := admin.NewRoleHandlers(store.Roles, deps.RoleCache, deps.Audit)
	editHandlers := admin.NewEditHandlers(store.Edits)

	// Add middleware
	router.Use(gin.Recovery())
	router.Use(middleware.RequestIDMiddleware())
	router.Use(middleware.MetricsMiddleware())
	router.Use(middleware.AccessLogMiddleware())
	router.Use(middleware.SecurityHeadersMiddleware(middleware.APISecurityHeadersConfig()))
	router.Use(middleware.AuthContextMiddleware(deps.Tokens, cfg.Auth.CookieName))

	router.GET("/health", healthCheckHandler(deps.DB))
	router.GET("/version", versionHandler())

	throttle := func(c *gin.Context) { c.Next() }
	if deps.Limiter != nil {
		throttle = middleware.RateLimitMiddleware(deps.Limiter)
	}
	authenticated := middleware.RequireAuthenticated()
	perm := middleware.RequirePermission

	apiGroup := router.Group("/api")

	userGroup := apiGroup.Group("/user")
	{
		userGroup.POST("/register", throttle, userHandlers.RegisterHandler())
		userGroup.POST("/login", throttle, userHandlers.LoginHandler())
		userGroup.POST("/logout", userHandlers.LogoutHandler())

		userGroup.GET("/me", authenticated, userHandlers.MeHandler())
		userGroup.PUT("/me", authenticated, userHandlers.UpdateMeHandler())
		userGroup.GET("/list", authenticated, perm(auth.PermViewUser), userHandlers.ListHandler())
		userGroup.GET("/:userId", authenticated, perm(auth.PermViewUser), userHandlers.GetHandler())
		userGroup.PUT("/:userId", authenticated, perm(auth.PermUpdateAnyUser), userHandlers.UpdateHandler())
		userGroup.DELETE("/:userId", authenticated, perm(auth.PermUpdateAnyUser), userHandlers.DeleteHandler())
	}

	bugGroup := apiGroup.Group("/bug", authenticated)
	{
		bugGroup.GET("/list", perm(auth.PermViewBug), bugHandlers.ListBugsHandler())
		bugGroup.POST("/new", perm(auth.PermInsertBug), bugHandlers.CreateBugHandler())
		bugGroup.GET("/:bugId", perm(auth.PermViewBug), bugHandlers.GetBugHandler())
		bugGroup.PUT("/:bugId", perm(auth.PermUpdateBug), bugHandlers.UpdateBugHandler())
		bugGroup.PUT("/:bugId/classify", perm(auth.PermClassifyBug), bugHandlers.ClassifyBugHandler())
		bugGroup.PUT("/:bugId/assign", perm(auth.PermAssignBug), bugHandlers.AssignBugHandler())
		bugGroup.PUT("/:bugId/close", perm(auth.PermCloseBug), bugHandlers.CloseBugHandler())

		bugGroup.GET("/:bugId/comment/list", perm(auth.PermViewComment), bugHandlers.ListCommentsHandler())
		bugGroup.PUT("/:bugId/comment/new", perm(auth.PermInsertComment), bugHandlers.CreateCommentHandler())
		bugGroup.GET("/:bugId/comment/:commentId", perm(auth.PermViewComment), bugHandlers.GetCommentHandler())

		bugGroup.GET("/:bugId/test/list", perm(auth.PermViewTestCase), bugHandlers.ListTestCasesHandler())
		bugGroup.PUT("/:bugId/test/new", perm(auth.PermInsertTestCase), bugHandlers.CreateTestCaseHandler())
		bugGroup.GET("/:bugId/test/:testId", perm(auth.PermViewTestCase), bugHandlers.GetTestCaseHandler())
		bugGroup.PUT("/:bugId/test/:testId", perm(auth.PermUpdateTestCase), bugHandlers.UpdateTestCaseHandler())
		bugGroup.PUT("/:bugId/test/:testId/execute", perm(auth.PermExecuteTestCase), bugHandlers.ExecuteTestCaseHandler())
		bugGroup.DELETE("/:bugId/test/:testId", perm(auth.PermDeleteTestCase), bugHandlers.DeleteTestCaseHandler())
	}

	roleGroup := apiGroup.Group("/role", authenticated)
	{
		roleGroup.GET("/list", perm(auth.PermViewRole), roleHandlers.ListRolesHandler())
		roleGroup.PUT("/:roleName", perm(auth.PermUpdateRole), roleHandlers.UpsertRoleHandler())
	}

	apiGroup.GET("/edit/list", authenticated, perm(auth.PermViewEdit), editHandlers.ListEditsHandler())

	return router
}

// healthCheckHandler returns the health status of the service
func healthCheckHandler(db *sqlx.DB) gin.HandlerFunc {
	return func(c *gin.Context) {
		if err := db.PingContext(c.Request.Context()); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{
				"status": "unhealthy",
				"error":  "database connection failed",
			})
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"status": "healthy",
			"time":   time.Now().UTC().Format(time.RFC3339),
		})
	}
}

// versionHandler returns the API version
func versionHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"version": Version})
	}
}
