package admin

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/bugtracker/bugtracker/internal/api/params"
	"github.com/bugtracker/bugtracker/internal/api/respond"
	"github.com/bugtracker/bugtracker/internal/db/models"
	"github.com/bugtracker/bugtracker/internal/db/repositories"
)

// EditHandlers serves the edit log. The log is append-only, so only a
// listing route exists.
type EditHandlers struct {
	edits *repositories.EditRepository
}

// NewEditHandlers creates a new EditHandlers instance
func NewEditHandlers(edits *repositories.EditRepository) *EditHandlers {
	return &EditHandlers{edits: edits}
}

// ListEditsHandler lists edit records, newest first.
// GET /api/edit/list?collection=&op=&actorId=&targetKey=&targetId=&startDate=&endDate=&pageSize=&pageNumber=
func (h *EditHandlers) ListEditsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		op := models.EditOp(c.Query("op"))
		if op != "" && !op.Valid() {
			respond.BadRequest(c, "op must be one of insert, update, delete")
			return
		}
		since, err := params.Time(c, "startDate")
		if err != nil {
			respond.BadRequest(c, err.Error())
			return
		}
		until, err := params.Time(c, "endDate")
		if err != nil {
			respond.BadRequest(c, err.Error())
			return
		}
		// A bare endDate covers the whole day.
		if until != nil && len(c.Query("endDate")) == len(time.DateOnly) {
			end := until.Add(24*time.Hour - time.Nanosecond)
			until = &end
		}

		filter := models.EditFilter{
			Collection: c.Query("collection"),
			Op:         op,
			ActorID:    c.Query("actorId"),
			TargetKey:  c.Query("targetKey"),
			TargetID:   c.Query("targetId"),
			Since:      since,
			Until:      until,
			Page:       params.Page(c, models.DefaultEditPageSize),
		}

		records, total, err := h.edits.List(c.Request.Context(), filter)
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"edits":      records,
			"pagination": params.Pagination(filter.Page, total),
		})
	}
}
