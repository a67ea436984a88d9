package users

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bugtracker/bugtracker/internal/api/params"
	"github.com/bugtracker/bugtracker/internal/api/respond"
	"github.com/bugtracker/bugtracker/internal/auth"
	"github.com/bugtracker/bugtracker/internal/db/models"
	"github.com/bugtracker/bugtracker/internal/db/repositories"
	"github.com/bugtracker/bugtracker/internal/middleware"
)

type updateSelfRequest struct {
	Email      *string `json:"email" binding:"omitempty,email"`
	Password   *string `json:"password"`
	Username   *string `json:"username"`
	GivenName  *string `json:"givenName"`
	FamilyName *string `json:"familyName"`
}

type updateUserRequest struct {
	updateSelfRequest
	Roles *models.RoleSet `json:"roles"`
	// Role is accepted as an alias of Roles.
	Role *models.RoleSet `json:"role"`
}

// MeHandler returns the caller's own profile.
// GET /api/user/me
func (h *Handlers) MeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, _ := middleware.GetAuthContext(c)
		user, err := h.store.FindUserByID(c.Request.Context(), ac.UserID)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if user == nil {
			respond.NotFound(c, fmt.Sprintf("user %s not found", ac.UserID))
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// ListHandler lists users with keyword, role and age filters.
// GET /api/user/list?keywords=&role=&minAge=&maxAge=&sortBy=&pageSize=&pageNumber=
func (h *Handlers) ListHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		minAge, err := params.Int(c, "minAge")
		if err != nil {
			respond.BadRequest(c, err.Error())
			return
		}
		maxAge, err := params.Int(c, "maxAge")
		if err != nil {
			respond.BadRequest(c, err.Error())
			return
		}

		filter := models.UserFilter{
			Keywords:   c.Query("keywords"),
			Role:       c.Query("role"),
			MinAgeDays: minAge,
			MaxAgeDays: maxAge,
			SortBy:     c.Query("sortBy"),
			Page:       params.Page(c, models.DefaultUserPageSize),
		}

		users, total, err := h.store.Users.List(c.Request.Context(), filter)
		if err != nil {
			respond.Error(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"users":      users,
			"pagination": params.Pagination(filter.Page, total),
		})
	}
}

// GetHandler returns one user.
// GET /api/user/:userId
func (h *Handlers) GetHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := params.ID(c, "userId", "user")
		if !ok {
			return
		}
		user, err := h.store.FindUserByID(c.Request.Context(), userID)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if user == nil {
			respond.NotFound(c, fmt.Sprintf("user %s not found", userID))
			return
		}
		c.JSON(http.StatusOK, user)
	}
}

// UpdateMeHandler applies a self-service profile edit. A change to the
// password, email or username re-issues the session token so later actor
// snapshots carry the new identity.
// PUT /api/user/me
func (h *Handlers) UpdateMeHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		ac, _ := middleware.GetAuthContext(c)

		var req updateSelfRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
		upd, ok := h.buildUpdate(c, &req)
		if !ok {
			return
		}

		updated, ok := h.applyUpdate(c, ac, ac.UserID, upd)
		if !ok {
			return
		}

		resp := gin.H{"message": "User updated", "user": updated}
		if upd.PasswordChanged || upd.Email != nil || upd.Username != nil {
			token, err := h.issueSession(c, updated)
			if err != nil {
				respond.Error(c, err)
				return
			}
			resp["token"] = token
		}
		c.JSON(http.StatusOK, resp)
	}
}

// UpdateHandler applies an administrative edit to any user, including role
// assignment.
// PUT /api/user/:userId
func (h *Handlers) UpdateHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := params.ID(c, "userId", "user")
		if !ok {
			return
		}
		ac, _ := middleware.GetAuthContext(c)

		var req updateUserRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}

		existing, err := h.store.FindUserByID(c.Request.Context(), userID)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if existing == nil {
			respond.NotFound(c, fmt.Sprintf("user %s not found", userID))
			return
		}

		upd, ok := h.buildUpdate(c, &req.updateSelfRequest)
		if !ok {
			return
		}
		switch {
		case req.Roles != nil:
			upd.Roles = req.Roles
		case req.Role != nil:
			upd.Roles = req.Role
		}

		updated, ok := h.applyUpdate(c, ac, userID, upd)
		if !ok {
			return
		}
		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("User %s updated", userID), "user": updated})
	}
}

// DeleteHandler removes a user. The edit record is written before the
// response.
// DELETE /api/user/:userId
func (h *Handlers) DeleteHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, ok := params.ID(c, "userId", "user")
		if !ok {
			return
		}
		ac, _ := middleware.GetAuthContext(c)
		ctx := c.Request.Context()

		deleted, err := h.store.DeleteUser(ctx, userID)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if !deleted {
			respond.NotFound(c, fmt.Sprintf("user %s not found", userID))
			return
		}

		h.audit.Record(ctx, models.EditOpDelete, models.CollectionUser,
			map[string]string{"userId": userID}, nil, ac.Snapshot())

		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("User %s deleted", userID), "userId": userID})
	}
}

// buildUpdate validates req and converts it into a UserUpdate, hashing any
// new password. It writes a 400 and returns false on invalid input.
func (h *Handlers) buildUpdate(c *gin.Context, req *updateSelfRequest) (*models.UserUpdate, bool) {
	if req.Password != nil && *req.Password == "" {
		respond.BadRequest(c, "password must not be blank")
		return nil, false
	}
	for _, f := range []struct {
		name  string
		value *string
	}{
		{"email", req.Email},
		{"username", req.Username},
		{"givenName", req.GivenName},
		{"familyName", req.FamilyName},
	} {
		if trimmed(f.value) {
			respond.BadRequest(c, f.name+" must not be blank")
			return nil, false
		}
	}

	upd := &models.UserUpdate{
		Email:      req.Email,
		Username:   req.Username,
		GivenName:  req.GivenName,
		FamilyName: req.FamilyName,
	}
	if req.Password != nil {
		hash, err := h.hashPassword(*req.Password)
		if errors.Is(err, errPasswordTooLong) {
			respond.BadRequest(c, err.Error())
			return nil, false
		}
		if err != nil {
			respond.Error(c, err)
			return nil, false
		}
		upd.PasswordHash = &hash
		upd.PasswordChanged = true
	}
	return upd, true
}

// applyUpdate re-checks email uniqueness, stores upd stamped with the actor
// and records the edit. It writes the error response and returns false on
// failure.
func (h *Handlers) applyUpdate(c *gin.Context, ac *auth.AuthContext, userID string, upd *models.UserUpdate) (*models.User, bool) {
	if upd.IsEmpty() {
		respond.BadRequest(c, "No fields to update")
		return nil, false
	}
	ctx := c.Request.Context()

	if upd.Email != nil {
		other, err := h.store.FindUserByEmail(ctx, *upd.Email)
		if err != nil {
			respond.Error(c, err)
			return nil, false
		}
		if other != nil && other.ID != userID {
			respond.BadRequest(c, emailInUse(*upd.Email))
			return nil, false
		}
	}

	updated, err := h.store.UpdateUser(ctx, userID, upd, ac.Snapshot())
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) && upd.Email != nil {
			respond.BadRequest(c, emailInUse(*upd.Email))
			return nil, false
		}
		respond.Error(c, err)
		return nil, false
	}
	if updated == nil {
		respond.NotFound(c, fmt.Sprintf("user %s not found", userID))
		return nil, false
	}

	h.audit.Record(ctx, models.EditOpUpdate, models.CollectionUser,
		map[string]string{"userId": userID}, upd, ac.Snapshot())
	return updated, true
}
