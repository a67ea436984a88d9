package repositories

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/bugtracker/bugtracker/internal/db/models"
)

const testCaseColumns = `id, bug_id, title, body, passed, executed_at, executed_by, tester,
		created_at, updated_at, last_updated_by`

// TestCaseRepository handles test case database operations
type TestCaseRepository struct {
	db *sqlx.DB
}

// NewTestCaseRepository creates a new TestCaseRepository
func NewTestCaseRepository(db *sqlx.DB) *TestCaseRepository {
	return &TestCaseRepository{db: db}
}

// FindByID retrieves a test case of bugID by its ID
func (r *TestCaseRepository) FindByID(ctx context.Context, bugID, testID string) (*models.TestCase, error) {
	query := `SELECT ` + testCaseColumns + ` FROM test_cases WHERE bug_id = $1 AND id = $2`

	var tc models.TestCase
	err := r.db.GetContext(ctx, &tc, query, bugID, testID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("find test case", err)
	}
	return &tc, nil
}

// ListByBug returns one page of a bug's test cases, oldest first.
func (r *TestCaseRepository) ListByBug(ctx context.Context, bugID string, page models.Page) ([]*models.TestCase, error) {
	query := `SELECT ` + testCaseColumns + ` FROM test_cases WHERE bug_id = $1 ORDER BY created_at ASC LIMIT $2 OFFSET $3`

	cases := make([]*models.TestCase, 0)
	if err := r.db.SelectContext(ctx, &cases, query, bugID, page.Limit(), page.Offset()); err != nil {
		return nil, storeError("list test cases", err)
	}
	return cases, nil
}

// Insert creates a new, unexecuted test case, assigning its ID and timestamps.
func (r *TestCaseRepository) Insert(ctx context.Context, tc *models.TestCase) error {
	now := time.Now().UTC()
	tc.ID = uuid.New().String()
	tc.Passed = nil
	tc.CreatedAt = now
	tc.UpdatedAt = now

	query := `
		INSERT INTO test_cases (id, bug_id, title, body, tester, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	if _, err := r.db.ExecContext(ctx, query, tc.ID, tc.BugID, tc.Title, tc.Body, tc.Tester, tc.CreatedAt, tc.UpdatedAt); err != nil {
		return storeError("insert test case", err)
	}
	return nil
}

// Update applies a partial text edit. It returns (nil, nil) when the test case does not exist.
func (r *TestCaseRepository) Update(ctx context.Context, bugID, testID string, upd *models.TestCaseUpdate, actor *models.ActorSnapshot) (*models.TestCase, error) {
	var s setBuilder
	if upd.Title != nil {
		s.set("title", *upd.Title)
	}
	if upd.Body != nil {
		s.set("body", *upd.Body)
	}
	return r.apply(ctx, "update test case", bugID, testID, &s, actor)
}

// Execute records a pass/fail outcome, the executing actor and the time.
func (r *TestCaseRepository) Execute(ctx context.Context, bugID, testID string, passed bool, actor *models.ActorSnapshot) (*models.TestCase, error) {
	var s setBuilder
	s.set("passed", passed)
	s.set("executed_at", time.Now().UTC())
	s.set("executed_by", actor)
	return r.apply(ctx, "execute test case", bugID, testID, &s, actor)
}

func (r *TestCaseRepository) apply(ctx context.Context, op, bugID, testID string, s *setBuilder, actor *models.ActorSnapshot) (*models.TestCase, error) {
	s.set("updated_at", time.Now().UTC())
	s.set("last_updated_by", actor)
	query := `UPDATE test_cases SET ` + s.clause() +
		` WHERE bug_id = ` + s.param(bugID) + ` AND id = ` + s.param(testID) +
		` RETURNING ` + testCaseColumns

	var tc models.TestCase
	err := r.db.GetContext(ctx, &tc, query, s.args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(op, err)
	}
	return &tc, nil
}

// Delete removes a test case, reporting whether one existed.
func (r *TestCaseRepository) Delete(ctx context.Context, bugID, testID string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM test_cases WHERE bug_id = $1 AND id = $2`, bugID, testID)
	if err != nil {
		return false, storeError("delete test case", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeError("delete test case", err)
	}
	return n > 0, nil
}
