package bugs

import (
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/bugtracker/bugtracker/internal/api/params"
	"github.com/bugtracker/bugtracker/internal/api/respond"
	"github.com/bugtracker/bugtracker/internal/db/models"
)

// defaultTestCasePageSize matches the comment listing.
const defaultTestCasePageSize = models.DefaultCommentPageSize

type newTestCaseRequest struct {
	Title string `json:"title" binding:"required"`
	Body  string `json:"body" binding:"required"`
}

type executeRequest struct {
	Passed *bool `json:"passed" binding:"required"`
}

func testCaseTarget(bugID, testID string) map[string]string {
	return map[string]string{"bugId": bugID, "testId": testID}
}

func testCaseNotFound(c *gin.Context, testID string) {
	respond.NotFound(c, fmt.Sprintf("test case %s not found", testID))
}

// testCaseIDs reads both path IDs, writing a 404 when either is malformed.
func testCaseIDs(c *gin.Context) (bugID, testID string, ok bool) {
	if bugID, ok = params.ID(c, "bugId", "bug"); !ok {
		return "", "", false
	}
	if testID, ok = params.ID(c, "testId", "test case"); !ok {
		return "", "", false
	}
	return bugID, testID, true
}

// ListTestCasesHandler lists a bug's test cases.
// GET /api/bug/:bugId/test/list?pageSize=&pageNumber=
func (h *Handlers) ListTestCasesHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bugID, ok := params.ID(c, "bugId", "bug")
		if !ok {
			return
		}
		tests, err := h.testCases.ListByBug(c.Request.Context(), bugID, params.Page(c, defaultTestCasePageSize))
		if err != nil {
			respond.Error(c, err)
			return
		}
		c.JSON(http.StatusOK, gin.H{"testCases": tests})
	}
}

// GetTestCaseHandler returns one test case of a bug.
// GET /api/bug/:bugId/test/:testId
func (h *Handlers) GetTestCaseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bugID, testID, ok := testCaseIDs(c)
		if !ok {
			return
		}
		tc, err := h.testCases.FindByID(c.Request.Context(), bugID, testID)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if tc == nil {
			testCaseNotFound(c, testID)
			return
		}
		c.JSON(http.StatusOK, tc)
	}
}

// CreateTestCaseHandler records a new test case against an existing bug.
// PUT /api/bug/:bugId/test/new
func (h *Handlers) CreateTestCaseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bugID, ok := params.ID(c, "bugId", "bug")
		if !ok {
			return
		}
		var req newTestCaseRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
		if blank(&req.Title) || blank(&req.Body) {
			respond.BadRequest(c, "title and body must not be blank")
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

		tc := &models.TestCase{BugID: bugID, Title: req.Title, Body: req.Body, Tester: *actor}
		if err := h.testCases.Insert(ctx, tc); err != nil {
			respond.Error(c, err)
			return
		}

		h.audit.Record(ctx, models.EditOpInsert, models.CollectionTestCase, testCaseTarget(bugID, tc.ID), req, actor)

		c.JSON(http.StatusCreated, gin.H{"message": "Test case created", "testId": tc.ID, "testCase": tc})
	}
}

// UpdateTestCaseHandler edits a test case's title or body.
// PUT /api/bug/:bugId/test/:testId
func (h *Handlers) UpdateTestCaseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bugID, testID, ok := testCaseIDs(c)
		if !ok {
			return
		}
		var upd models.TestCaseUpdate
		if err := c.ShouldBindJSON(&upd); err != nil {
			respond.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}
		if optionalBlank(upd.Title) || optionalBlank(upd.Body) {
			respond.BadRequest(c, "title and body must not be blank")
			return
		}
		if upd.IsEmpty() {
			respond.BadRequest(c, "No fields to update")
			return
		}

		h.mutateTestCase(c, bugID, testID, &upd, func(actor *models.ActorSnapshot) (*models.TestCase, error) {
			return h.testCases.Update(c.Request.Context(), bugID, testID, &upd, actor)
		})
	}
}

// ExecuteTestCaseHandler records a pass or fail outcome.
// PUT /api/bug/:bugId/test/:testId/execute
func (h *Handlers) ExecuteTestCaseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bugID, testID, ok := testCaseIDs(c)
		if !ok {
			return
		}
		var req executeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			respond.BadRequest(c, "Invalid request body: "+err.Error())
			return
		}

		h.mutateTestCase(c, bugID, testID, gin.H{"passed": *req.Passed}, func(actor *models.ActorSnapshot) (*models.TestCase, error) {
			return h.testCases.Execute(c.Request.Context(), bugID, testID, *req.Passed, actor)
		})
	}
}

// DeleteTestCaseHandler removes a test case.
// DELETE /api/bug/:bugId/test/:testId
func (h *Handlers) DeleteTestCaseHandler() gin.HandlerFunc {
	return func(c *gin.Context) {
		bugID, testID, ok := testCaseIDs(c)
		if !ok {
			return
		}
		actor, ok := requireActor(c)
		if !ok {
			return
		}
		ctx := c.Request.Context()

		deleted, err := h.testCases.Delete(ctx, bugID, testID)
		if err != nil {
			respond.Error(c, err)
			return
		}
		if !deleted {
			testCaseNotFound(c, testID)
			return
		}

		h.audit.Record(ctx, models.EditOpDelete, models.CollectionTestCase, testCaseTarget(bugID, testID), nil, actor)

		c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Test case %s deleted", testID), "testId": testID})
	}
}

func (h *Handlers) mutateTestCase(c *gin.Context, bugID, testID string, payload interface{}, apply func(*models.ActorSnapshot) (*models.TestCase, error)) {
	actor, ok := requireActor(c)
	if !ok {
		return
	}

	tc, err := apply(actor)
	if err != nil {
		respond.Error(c, err)
		return
	}
	if tc == nil {
		testCaseNotFound(c, testID)
		return
	}

	h.audit.Record(c.Request.Context(), models.EditOpUpdate, models.CollectionTestCase, testCaseTarget(bugID, testID), payload, actor)

	c.JSON(http.StatusOK, gin.H{"message": fmt.Sprintf("Test case %s updated", testID), "testCase": tc})
}
