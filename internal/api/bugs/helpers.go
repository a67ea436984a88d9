package bugs

import (
	"strings"

	"github.com/gin-gonic/gin"

	"github.com/bugtracker/bugtracker/internal/api/respond"
	"github.com/bugtracker/bugtracker/internal/auth"
	"github.com/bugtracker/bugtracker/internal/db/models"
	"github.com/bugtracker/bugtracker/internal/middleware"
)

// blank trims *s in place and reports whether nothing is left.
func blank(s *string) bool {
	*s = strings.TrimSpace(*s)
	return *s == ""
}

// optionalBlank is blank for an optional field; nil is not blank.
func optionalBlank(s *string) bool {
	return s != nil && blank(s)
}

// requireActor returns the caller's snapshot. Routes are mounted behind an
// authentication guard, so a missing context only happens when one was
// left off; it is answered with 401 rather than a nil author.
func requireActor(c *gin.Context) (*models.ActorSnapshot, bool) {
	ac, ok := middleware.GetAuthContext(c)
	if !ok {
		respond.Error(c, auth.ErrUnauthenticated)
		return nil, false
	}
	return ac.Snapshot(), true
}
