package admin

import (
	"bytes"
	"encoding/json"
	"net/http/httptest"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"

	"github.com/bugtracker/bugtracker/internal/audit"
	"github.com/bugtracker/bugtracker/internal/auth"
	"github.com/bugtracker/bugtracker/internal/db/repositories"
	"github.com/bugtracker/bugtracker/internal/middleware"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	m.Run()
}

const adminID = "9e8d7c6b-5a4f-4e3d-8c2b-1a0f9e8d7c6b"

func newStore(t *testing.T) (*repositories.CredentialStore, *audit.Logger, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New()
	if err != nil {
		t.Fatalf("sqlmock.New: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	store := repositories.NewCredentialStore(sqlx.NewDb(db, "sqlmock"))
	return store, audit.NewLogger(store, nil, time.Second), mock
}

func adminContext() *auth.AuthContext {
	return &auth.AuthContext{UserID: adminID, Roles: []string{"Admin"},
		Permissions: auth.PermissionMap{auth.PermUpdateRole: true, auth.PermViewEdit: true}}
}

func serve(method, route, path string, handler gin.HandlerFunc, body interface{}) *httptest.ResponseRecorder {
	r := gin.New()
	r.Handle(method, route, func(c *gin.Context) {
		c.Set(middleware.AuthContextKey, adminContext())
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
