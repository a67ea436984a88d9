// Package bugs implements the bug routes under /api/bug together with the
// comments and test cases nested beneath a bug. Every mutation appends one
// edit record before responding.
package bugs

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/bugtracker/bugtracker/internal/api/params"
	"github.com/bugtracker/bugtracker/internal/api/respond"
	"github.com/bugtracker/bugtracker/internal/audit"
	"github.com/bugtracker/bugtracker/internal/db/models"
	"github.com/bugtracker/bugtracker/internal/db/repositories"
)

// Handlers serves the bug, comment and test case routes.
type Handlers struct {
	bugs      *repositories.BugRepository
	comments  *repositories.CommentRepository
	testCases *repositories.TestCaseRepository
	users     *repositories.UserRepository
	audit     *audit.Logger
}

// NewHandlers creates a new Handlers instance
func NewHandlers(db *sqlx.DB, auditLogger *audit.Logger) *Handlers {
	return &Handlers{
		bugs:      repositories.NewBugRepository(db),
		comments:  repositories.NewCommentRepository(db),
		testCases: repositories.NewTestCaseRepository(db),
		users:     repositories.NewUserRepository(db),
		audit:     auditLogger,
	}
}

type newBugRequest struct {
	Title            string `json:"title" binding:"required"`
	Description      string `json:"description" binding:"required"`
	StepsToReproduce string `json:"stepsToReproduce"`
}

type classifyRequest struct {
	Classification string `json:"classification" binding:"required,oneof=unclassified approved unapproved duplicate"`
}

type assignRequest struct {
	AssignedToUserID string `json:"assignedToUserId" binding:"required,uuid"`
}

type closeRequest struct {
	Closed *bool `json:"closed" binding:"required"`
}

func bugTarget(bugID string) map[string]string {
	return map[string]string{"bugId": bugID}
}

func bugNotFound(c *gin.Context, bugID string) {
	respond.NotFound(c, fmt.Sprintf("bug %s not found", bugID))
}

// ListBugsHandler lists bugs.
// GET /api/bug/list?keywords=&classification=&closed=&sortBy=&pageSize=&pageNumber=
func (h *Handlers) ListBugsHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		closed, err := params.Bool(c, "closed")
		if err != nil {
			respond.BadRequest(c, err.Error())
			return
		}
		filter := models.BugFilter{
			Keywords:       c.Query("keywords"),
			Classification: c.Query("classification"),
			Closed:         closed,
			SortBy:         c.Query("sortBy"),
			Page:           params.Page(c, models.DefaultBugPageSize),
		}

		bugs, total, err := h.bugs.List(c.Request.Context(), filter)
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{
			"bugs":       bugs,
			"pagination": params.Pagination(filter.Page, total),
		})
	}
}

// GetBugHandler returns one bug.
// GET /api/bug/:bugId
func (h *Handlers) GetBugHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bugID, ok := params.ID(c, "bugId", "bug")
		if !ok {
			return
		}
		bug, err := h.bugs.FindByID(c.Request.Context(), bugID)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if bug == nil {
			bugNotFound(c, bugID)
			return
		}
		c.JSON(http.StatusOK, bug)
	}
}

// CreateBugHandler reports a new bug authored by the caller.
// POST /api/bug/new
func (h *Handlers) CreateBugHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		var req newBugRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
		if blank(&req.Title) || blank(&req.Description) {
			respond.BadRequest(c, "title and description must not be blank")
			return
		}
		blank(&req.StepsToReproduce)

		actor, ok := requireActor(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		bug := &models.Bug{
			Title:            req.Title,
			Description:      req.Description,
			StepsToReproduce: req.StepsToReproduce,
			Author:           *actor,
		}
		if err := h.bugs.Insert(ctx, bug); err != nil {
			respond.Error(c, err)
			return
		}

		h.audit.Record(ctx, models.EditOpInsert, models.CollectionBug, bugTarget(bug.ID), req, actor)

		c.JSON(http.StatusCreated, gin.H{"message": "Bug reported", "bugId": bug.ID, "bug": bug})
	}
}

// UpdateBugHandler edits a bug's text fields.
// PUT /api/bug/:bugId
func (h *Handlers) UpdateBugHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bugID, ok := params.ID(c, "bugId", "bug")
		if !ok {
			return
		}
		var upd models.BugUpdate
		if err := c.ShouldBindJSON(&upd); err != nil {
			respond.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
		if optionalBlank(upd.Title) || optionalBlank(upd.Description) {
			respond.BadRequest(c, "title and description must not be blank")
			return
		}
		if upd.StepsToReproduce != nil {
			blank(upd.StepsToReproduce)
		}
		if upd.IsEmpty() {
			respond.BadRequest(c, "No fields to update")
			return
		}

		h.mutateBug(c, bugID, models.EditOpUpdate, &upd, func(actor *models.ActorSnapshot) (*models.Bug, error) {
			return h.bugs.Update(c.Request.Context(), bugID, &upd, actor)
		})
	}
}

// ClassifyBugHandler sets a bug's classification.
// PUT /api/bug/:bugId/classify
func (h *Handlers) ClassifyBugHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bugID, ok := params.ID(c, "bugId", "bug")
		if !ok {
			return
		}
		var req classifyRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}

		h.mutateBug(c, bugID, models.EditOpUpdate, req, func(actor *models.ActorSnapshot) (*models.Bug, error) {
			return h.bugs.Classify(c.Request.Context(), bugID, req.Classification, actor)
		})
	}
}

// AssignBugHandler assigns a bug to an existing user.
// PUT /api/bug/:bugId/assign
func (h *Handlers) AssignBugHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bugID, ok := params.ID(c, "bugId", "bug")
		if !ok {
			return
		}
		var req assignRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}

		assignee, err := h.users.FindByID(c.Request.Context(), req.AssignedToUserID)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if assignee == nil {
			respond.NotFound(c, fmt.Sprintf("user %s not found", req.AssignedToUserID))
			return
		}

		payload := gin.H{"assignedToUserId": assignee.ID, "assignedToUserName": assignee.FullName()}
		h.mutateBug(c, bugID, models.EditOpUpdate, payload, func(actor *models.ActorSnapshot) (*models.Bug, error) {
			return h.bugs.Assign(c.Request.Context(), bugID, assignee, actor)
		})
	}
}

// CloseBugHandler closes or reopens a bug.
// PUT /api/bug/:bugId/close
func (h *Handlers) CloseBugHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bugID, ok := params.ID(c, "bugId", "bug")
		if !ok {
			return
		}
		var req closeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}

		h.mutateBug(c, bugID, models.EditOpUpdate, gin.H{"closed": *req.Closed}, func(actor *models.ActorSnapshot) (*models.Bug, error) {
			return h.bugs.SetClosed(c.Request.Context(), bugID, *req.Closed, actor)
		})
	}
}

// mutateBug runs apply as the caller, records the edit and writes the
// response. A nil bug from apply means no such bug.
func (h *Handlers) mutateBug(c *gin.Context, bugID string, op models.EditOp, payload interface{}, apply func(*models.ActorSnapshot) (*models.Bug, error)) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	bug, err := apply(actor)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if bug == nil {
		bugNotFound(c, bugID)
		return
	}

	h.audit.Record(c.Request.Context(), op, models.CollectionBug, bugTarget(bugID), payload, actor)

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Bug %s updated", bugID), "bug": bug})
}
