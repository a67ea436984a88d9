package bugs

import (
	"bytes"
	"database/sql/driver"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/bugtracker/bugtracker/internal/audit"
	"github.com/bugtracker/bugtracker/internal/auth"
	"github.com/bugtracker/bugtracker/internal/db/models"
	"github.com/bugtracker/bugtracker/internal/db/repositories"
	"github.com/bugtracker/bugtracker/internal/middleware"
)

func init() {
	gin.SetMode(gin.TestMode)
}

const (
	bugID    = "6f1c3a8e-0b7e-4f0a-9a55-3f9d2a1c7b10"
	testID   = "7a2d4b9f-1c8e-4a0b-9b66-4fae3b2d8c21"
	actorID  = "a1b2c3d4-e5f6-4789-8abc-def012345678"
	assignee = "b2c3d4e5-f6a7-4890-9bcd-ef0123456789"
)

var (
	bugCols = []string{"id", "title", "description", "steps_to_reproduce", "classification", "classified_at",
		"assigned_to_id", "assigned_to_name", "assigned_at", "closed", "closed_at", "author",
		"created_at", "updated_at", "last_updated_by"}
	userCols = []string{"id", "email", "username", "given_name", "family_name", "password_hash", "roles",
		"created_at", "updated_at", "last_updated_by"}
)

func bugRow() *sqlmock.Rows {
	return sqlmock.NewRows(bugCols).AddRow(bugID, "Crash", "It crashes", "Open it", "unclassified", nil,
		nil, nil, nil, false, nil, `{"userId":"someone"}`, time.Now(), time.Now(), nil)
}

func newTestHandlers(t *testing.T) (*Handlers, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	sqlxDB := sqlx.NewDb(db, "sqlmock")
	logger := audit.NewLogger(repositories.NewCredentialStore(sqlxDB), nil, time.Second)
	return NewHandlers(sqlxDB, logger), mock
}

func actor() *auth.AuthContext {
	return &auth.AuthContext{UserID: actorID, Email: "dev@example.com", Username: "dev",
		Roles: []string{"Developer"}, Permissions: auth.PermissionMap{auth.PermViewBug: true}}
}

func serve(ac *auth.AuthContext, method, route, path string, handler gin.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, route, func(c *gin.Context) {
		if ac != nil {
			c.Set(middleware.AuthContextKey, ac)
		}
		c.Next()
	}, handler)

	var buf bytes.Buffer
	if body != nil {
		_ = json.NewEncoder(&buf).Encode(body)
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

// jsonArg matches a JSONB parameter against the JSON encoding of want.
type jsonArg struct{ want interface{} }

func (a jsonArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	var got interface{}
	if err := json.Unmarshal([]byte(s), &got); err != nil {
		return false
	}
	b, _ := json.Marshal(a.want)
	var want interface{}
	_ = json.Unmarshal(b, &want)
	return reflect.DeepEqual(got, want)
}

// actorArg matches an actor snapshot by user ID.
type actorArg struct{ userID string }

func (a actorArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	var snap models.ActorSnapshot
	return json.Unmarshal([]byte(s), &snap) == nil && snap.UserID == a.userID
}

// keysArg matches a JSON object carrying exactly the given keys.
type keysArg []string

func (k keysArg) Match(v driver.Value) bool {
	s, ok := v.(string)
	if !ok {
		return false
	}
	var m map[string]string
	if json.Unmarshal([]byte(s), &m) != nil || len(m) != len(k) {
		return false
	}
	for _, key := range k {
		if m[key] == "" {
			return false
		}
	}
	return true
}

// ---------------------------------------------------------------------------
// bugs
// ---------------------------------------------------------------------------

func TestCreateBugHandler(t *testing.T) {
	h, mock := newTestHandlers(t)
	mock.ExpectExec(`INSERT INTO bugs`).
		WithArgs(sqlmock.AnyArg(), "Crash", "It crashes", "Open it", models.ClassificationUnclassified, false,
			actorArg{actorID}, sqlmock.AnyArg(), sqlmock.AnyArg()).
		WillReturnResult(sqlmock.NewResult(0, 1))
	mock.ExpectExec(`INSERT INTO edits`).
		WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "insert", "bug", keysArg{"bugId"},
			jsonArg{map[string]string{"title": "Crash", "description": "It crashes", "stepsToReproduce": "Open it"}},
			actorArg{actorID}).
		WillReturnResult(sqlmock.NewResult(0, 1))

	w := serve(actor(), http.MethodPost, "/new", "/new", h.CreateBugHandler(), map[string]string{
		"title": "  Crash ", "description": "It crashes", "stepsToReproduce": "Open it",
	})
	if w.Code != http.StatusCreated {
		t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
	}
	var body struct {
		BugID string     `json:"bugId"`
		Bug   models.Bug `json:"bug"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
		t.Fatal(err)
	}
	if body.BugID == "" || body.Bug.Author.UserID != actorID {
		t.Errorf("bugId = %q, author = %q; want an ID authored by %s", body.BugID, body.Bug.Author.UserID, actorID)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Error(err)
	}
}

func TestCreateBugHandler_Validation(t *testing.T) {
	tests := []struct {
		name string
		body map[string]string
	}{
		{"missing title", map[string]string{"description": "d"}},
		{"blank title", map[string]string{"title": "  ", "description": "d"}},
		{"blank description", map[string]string{"title": "t", "description": "\t"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			h, mock := newTestHandlers(t)
			w := serve(actor(), http.MethodPost, "/new", "/new", h.CreateBugHandler(), tt.body)
			if w.Code != http.StatusBadRequest {
				t.Errorf("status = %d, want 400", w.Code)
			}
			if err := mock.ExpectationsWereMet(); err != nil {
				t.Error(err)
			}
		})
	}
}

func TestCreateBugHandler_NoAuthContext(t *testing.T) {
	h, _ := newTestHandlers(t)
	w := serve(nil, http.MethodPost, "/new", "/new", h.CreateBugHandler(), map[string]string{
		"title": "t", "description": "d",
	})
	if w.Code != http.StatusUnauthorized {
		t.Errorf("status = %d, want 401", w.Code)
	}
}

func TestUpdateBugHandler_Missing(t *testing.T) {
	h, mock := newTestHandlers(t)
	mock.ExpectQuery(`UPDATE bugs SET title = \$1`).WillReturnRows(sqlmock.NewRows(bugCols))

	w := serve(actor(), http.MethodPut, "/:bugId", "/"+bugID, h.UpdateBugHandler(), map[string]string{"title": "New"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
	if err := mock.ExpectationsWereMet(); err != nil {
		t.Errorf("edit recorded for a missing bug: %v", err)
	}
}

func TestUpdateBugHandler_EmptyUpdate(t *testing.T) {
	h, _ := newTestHandlers(t)
	w := serve(actor(), http.MethodPut, "/:bugId", "/"+bugID, h.UpdateBugHandler(), map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestClassifyBugHandler(t *testing.T) {
	t.Run("unknown classification", func(t *testing.T) {
		h, _ := newTestHandlers(t)
		w := serve(actor(), http.MethodPut, "/:bugId/classify", "/"+bugID+"/classify", h.ClassifyBugHandler(),
			map[string]string{"classification": "urgent"})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("approved", func(t *testing.T) {
		h, mock := newTestHandlers(t)
		mock.ExpectQuery(`UPDATE bugs SET classification = \$1, classified_at = \$2`).
			WithArgs("approved", sqlmock.AnyArg(), sqlmock.AnyArg(), actorArg{actorID}, bugID).
			WillReturnRows(bugRow())
		mock.ExpectExec(`INSERT INTO edits`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "update", "bug",
				jsonArg{map[string]string{"bugId": bugID}},
				jsonArg{map[string]string{"classification": "approved"}},
				actorArg{actorID}).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := serve(actor(), http.MethodPut, "/:bugId/classify", "/"+bugID+"/classify", h.ClassifyBugHandler(),
			map[string]string{"classification": "approved"})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestAssignBugHandler(t *testing.T) {
	t.Run("unknown assignee", func(t *testing.T) {
		h, mock := newTestHandlers(t)
		mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs(assignee).WillReturnRows(sqlmock.NewRows(userCols))

		w := serve(actor(), http.MethodPut, "/:bugId/assign", "/"+bugID+"/assign", h.AssignBugHandler(),
			map[string]string{"assignedToUserId": assignee})
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("malformed assignee", func(t *testing.T) {
		h, _ := newTestHandlers(t)
		w := serve(actor(), http.MethodPut, "/:bugId/assign", "/"+bugID+"/assign", h.AssignBugHandler(),
			map[string]string{"assignedToUserId": "bob"})
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("assigned by full name", func(t *testing.T) {
		h, mock := newTestHandlers(t)
		mock.ExpectQuery(`FROM users WHERE id = \$1`).WithArgs(assignee).
			WillReturnRows(sqlmock.NewRows(userCols).AddRow(assignee, "ann@example.com", "ann", "Ann", "Lee",
				"hash", `["Developer"]`, time.Now(), time.Now(), nil))
		mock.ExpectQuery(`UPDATE bugs SET assigned_to_id = \$1, assigned_to_name = \$2`).
			WithArgs(assignee, "Ann Lee", sqlmock.AnyArg(), sqlmock.AnyArg(), actorArg{actorID}, bugID).
			WillReturnRows(bugRow())
		mock.ExpectExec(`INSERT INTO edits`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "update", "bug",
				jsonArg{map[string]string{"bugId": bugID}},
				jsonArg{map[string]string{"assignedToUserId": assignee, "assignedToUserName": "Ann Lee"}},
				actorArg{actorID}).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := serve(actor(), http.MethodPut, "/:bugId/assign", "/"+bugID+"/assign", h.AssignBugHandler(),
			map[string]string{"assignedToUserId": assignee})
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestCloseBugHandler_RequiresFlag(t *testing.T) {
	h, _ := newTestHandlers(t)
	w := serve(actor(), http.MethodPut, "/:bugId/close", "/"+bugID+"/close", h.CloseBugHandler(), map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}

func TestListBugsHandler(t *testing.T) {
	t.Run("bad closed flag", func(t *testing.T) {
		h, _ := newTestHandlers(t)
		w := serve(actor(), http.MethodGet, "/list", "/list?closed=maybe", h.ListBugsHandler(), nil)
		if w.Code != http.StatusBadRequest {
			t.Fatalf("status = %d, want 400", w.Code)
		}
	})

	t.Run("pagination", func(t *testing.T) {
		h, mock := newTestHandlers(t)
		mock.ExpectQuery(`SELECT COUNT\(\*\) FROM bugs WHERE closed = \$1`).
			WithArgs(false).
			WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
		mock.ExpectQuery(`FROM bugs WHERE closed = \$1 ORDER BY created_at DESC LIMIT \$2 OFFSET \$3`).
			WithArgs(false, 5, 5).
			WillReturnRows(bugRow())

		w := serve(actor(), http.MethodGet, "/list", "/list?closed=false&pageSize=5&pageNumber=2", h.ListBugsHandler(), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
		}
		var body struct {
			Bugs       []models.Bug   `json:"bugs"`
			Pagination map[string]int `json:"pagination"`
		}
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatal(err)
		}
		if len(body.Bugs) != 1 || body.Pagination["total"] != 1 || body.Pagination["pageNumber"] != 2 {
			t.Errorf("body = %+v", body)
		}
	})
}

// ---------------------------------------------------------------------------
// comments
// ---------------------------------------------------------------------------

func TestCreateCommentHandler(t *testing.T) {
	t.Run("missing bug", func(t *testing.T) {
		h, mock := newTestHandlers(t)
		mock.ExpectQuery(`FROM bugs WHERE id = \$1`).WithArgs(bugID).WillReturnRows(sqlmock.NewRows(bugCols))

		w := serve(actor(), http.MethodPut, "/:bugId/comment/new", "/"+bugID+"/comment/new", h.CreateCommentHandler(),
			map[string]string{"commentText": "me too"})
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("recorded against bug and comment", func(t *testing.T) {
		h, mock := newTestHandlers(t)
		mock.ExpectQuery(`FROM bugs WHERE id = \$1`).WithArgs(bugID).WillReturnRows(bugRow())
		mock.ExpectExec(`INSERT INTO comments`).
			WithArgs(sqlmock.AnyArg(), bugID, "me too", actorArg{actorID}, sqlmock.AnyArg()).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO edits`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "insert", "comment", keysArg{"bugId", "commentId"},
				jsonArg{map[string]string{"commentText": "me too"}}, actorArg{actorID}).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := serve(actor(), http.MethodPut, "/:bugId/comment/new", "/"+bugID+"/comment/new", h.CreateCommentHandler(),
			map[string]string{"commentText": " me too "})
		if w.Code != http.StatusCreated {
			t.Fatalf("status = %d, want 201 (body %s)", w.Code, w.Body.String())
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})
}

func TestGetCommentHandler_Missing(t *testing.T) {
	h, mock := newTestHandlers(t)
	mock.ExpectQuery(`FROM comments WHERE bug_id = \$1 AND id = \$2`).
		WithArgs(bugID, testID).
		WillReturnRows(sqlmock.NewRows([]string{"id", "bug_id", "comment_text", "commenter", "created_at"}))

	w := serve(actor(), http.MethodGet, "/:bugId/comment/:commentId", "/"+bugID+"/comment/"+testID, h.GetCommentHandler(), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("status = %d, want 404", w.Code)
	}
}

// ---------------------------------------------------------------------------
// test cases
// ---------------------------------------------------------------------------

func TestDeleteTestCaseHandler(t *testing.T) {
	t.Run("records delete without payload", func(t *testing.T) {
		h, mock := newTestHandlers(t)
		mock.ExpectExec(`DELETE FROM test_cases WHERE bug_id = \$1 AND id = \$2`).
			WithArgs(bugID, testID).
			WillReturnResult(sqlmock.NewResult(0, 1))
		mock.ExpectExec(`INSERT INTO edits`).
			WithArgs(sqlmock.AnyArg(), sqlmock.AnyArg(), "delete", "testCase",
				jsonArg{map[string]string{"bugId": bugID, "testId": testID}}, nil, actorArg{actorID}).
			WillReturnResult(sqlmock.NewResult(0, 1))

		w := serve(actor(), http.MethodDelete, "/:bugId/test/:testId", "/"+bugID+"/test/"+testID, h.DeleteTestCaseHandler(), nil)
		if w.Code != http.StatusOK {
			t.Fatalf("status = %d, want 200 (body %s)", w.Code, w.Body.String())
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("missing", func(t *testing.T) {
		h, mock := newTestHandlers(t)
		mock.ExpectExec(`DELETE FROM test_cases`).WillReturnResult(sqlmock.NewResult(0, 0))

		w := serve(actor(), http.MethodDelete, "/:bugId/test/:testId", "/"+bugID+"/test/"+testID, h.DeleteTestCaseHandler(), nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
		if err := mock.ExpectationsWereMet(); err != nil {
			t.Error(err)
		}
	})

	t.Run("malformed test id", func(t *testing.T) {
		h, _ := newTestHandlers(t)
		w := serve(actor(), http.MethodDelete, "/:bugId/test/:testId", "/"+bugID+"/test/nope", h.DeleteTestCaseHandler(), nil)
		if w.Code != http.StatusNotFound {
			t.Fatalf("status = %d, want 404", w.Code)
		}
	})
}

func TestExecuteTestCaseHandler_RequiresOutcome(t *testing.T) {
	h, _ := newTestHandlers(t)
	w := serve(actor(), http.MethodPut, "/:bugId/test/:testId/execute", "/"+bugID+"/test/"+testID+"/execute",
		h.ExecuteTestCaseHandler(), map[string]string{})
	if w.Code != http.StatusBadRequest {
		t.Fatalf("status = %d, want 400", w.Code)
	}
}
