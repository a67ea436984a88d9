package users

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bugtracker/bugtracker/internal/api/respond"
	"github.com/bugtracker/bugtracker/internal/db/models"
	"github.com/bugtracker/bugtracker/internal/db/repositories"
)

type registerRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
	Username string `json:"username" binding:"required"`
}

type loginRequest struct {
	Email    string `json:"email" binding:"required,email"`
	Password string `json:"password" binding:"required"`
}

// RegisterHandler creates an account with the configured default roles and
// starts a session for it.
// POST /api/user/register
func (h *Handlers) RegisterHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req registerRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
		req.Email = strings.TrimSpace(req.Email)
		if trimmed(&req.Username) {
			respond.BadRequest(c, "username must not be blank")
			return
		}

		ctx := c.Request.Context()

		existing, err := h.store.FindUserByEmail(ctx, req.Email)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if existing != nil {
			respond.BadRequest(c, emailInUse(req.Email))
			return
		}

		hash, err := h.hashPassword(req.Password)
		if errors.Is(err, errPasswordTooLong) {
			respond.BadRequest(c, err.Error())
			return
		}
		if err != nil {
			respond.Error(c, err)
			return
		}

		user := &models.User{
			Email:        req.Email,
			Username:     req.Username,
			PasswordHash: hash,
			Roles:        models.NewRoleSet(h.cfg.DefaultRoles...),
		}
		if err := h.store.InsertUser(ctx, user); err != nil {
			if errors.Is(err, repositories.ErrDuplicate) {
				respond.BadRequest(c, emailInUse(req.Email))
				return
			}
			respond.Error(c, err)
			return
		}

		h.audit.Record(ctx, models.EditOpInsert, models.CollectionUser,
			map[string]string{"userId": user.ID},
			&models.UserUpdate{Email: &user.Email, Username: &user.Username, Roles: &user.Roles, PasswordChanged: true},
			nil)

		token, err := h.issueSession(c, user)
		if err != nil {
			respond.Error(c, err)
			return
		}

		c.JSON(http.StatusCreated, gin.H{
			"message": "User registered",
			"userId":  user.ID,
			"token":   token,
		})
	}
}

// LoginHandler verifies credentials and starts a session. Unknown emails and
// wrong passwords are indistinguishable to the caller.
// POST /api/user/login
func (h *Handlers) LoginHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req loginRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}

		user, err := h.store.FindUserByEmail(c.Request.Context(), strings.TrimSpace(req.Email))
		if err != nil {
			respond.Error(c, err)
			return
		}
		if user == nil {
			h.hasher.DummyVerify(req.Password)
			respond.BadRequest(c, "Invalid credentials")
			return
		}
		if !h.hasher.Verify(req.Password, user.PasswordHash) {
			respond.BadRequest(c, "Invalid credentials")
			return
		}

		token, err := h.issueSession(c, user)
		if err != nil {
			respond.Error(c, err)
			return
		}

		c.JSON(http.StatusOK, gin.H{
			"message": "Welcome back!",
			"userId":  user.ID,
			"token":   token,
		})
	}
}

// LogoutHandler expires the session cookie. The token itself stays valid
// until its expiry for any client that kept a copy.
// POST /api/user/logout
func (h *Handlers) LogoutHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		h.setSessionCookie(c, "", -1)
		c.JSON(http.StatusOK, gin.H{"message": "Logged out"})
	}
}
