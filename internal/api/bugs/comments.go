package bugs

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bugtracker/bugtracker/internal/api/params"
	"github.com/bugtracker/bugtracker/internal/api/respond"
	"github.com/bugtracker/bugtracker/internal/db/models"
)

type newCommentRequest struct {
	CommentText string `json:"commentText" binding:"required"`
}

// ListCommentsHandler lists a bug's comments, oldest first unless sortBy=newest.
// GET /api/bug/:bugId/comment/list?sortBy=&pageSize=&pageNumber=
func (h *Handlers) ListCommentsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bugID, ok := params.ID(c, "bugId", "bug")
		if !ok {
			return
		}
		filter := models.CommentFilter{
			SortBy: c.Query("sortBy"),
			Page:   params.Page(c, models.DefaultCommentPageSize),
		}

		comments, err := h.comments.ListByBug(c.Request.Context(), bugID, filter)
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"comments": comments})
	}
}

// GetCommentHandler returns one comment of a bug.
// GET /api/bug/:bugId/comment/:commentId
func (h *Handlers) GetCommentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bugID, ok := params.ID(c, "bugId", "bug")
		if !ok {
			return
		}
		commentID, ok := params.ID(c, "commentId", "comment")
		if !ok {
			return
		}

		comment, err := h.comments.FindByID(c.Request.Context(), bugID, commentID)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if comment == nil {
			respond.NotFound(c, fmt.Sprintf("comment %s not found", commentID))
			return
		}
		c.JSON(http.StatusOK, comment)
	}
}

// CreateCommentHandler adds a comment by the caller to an existing bug.
// PUT /api/bug/:bugId/comment/new
func (h *Handlers) CreateCommentHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bugID, ok := params.ID(c, "bugId", "bug")
		if !ok {
			return
		}
		var req newCommentRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
		if blank(&req.CommentText) {
			respond.BadRequest(c, "commentText must not be blank")
			return
		}
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		bug, err := h.bugs.FindByID(ctx, bugID)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if bug == nil {
			bugNotFound(c, bugID)
			return
		}

		comment := &models.Comment{BugID: bugID, Text: req.CommentText, Commenter: *actor}
		if err := h.comments.Insert(ctx, comment); err != nil {
			respond.Error(c, err)
			return
		}

		h.audit.Record(ctx, models.EditOpInsert, models.CollectionComment,
			map[string]string{"bugId": bugID, "commentId": comment.ID}, req, actor)

		c.JSON(http.StatusCreated, gin.H{"message": "Comment inserted", "commentId": comment.ID, "comment": comment})
	}
}
