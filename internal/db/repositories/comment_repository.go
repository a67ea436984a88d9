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

const commentColumns = `id, bug_id, comment_text, commenter, created_at`

// CommentRepository handles comment database operations
type CommentRepository struct {
	db *sqlx.DB
}

// NewCommentRepository creates a new CommentRepository
func NewCommentRepository(db *sqlx.DB) *CommentRepository {
	return &CommentRepository{db: db}
}

// FindByID retrieves a comment on bugID by its ID
func (r *CommentRepository) FindByID(ctx context.Context, bugID, commentID string) (*models.Comment, error) {
	query := `SELECT ` + commentColumns + ` FROM comments WHERE bug_id = $1 AND id = $2`

	var c models.Comment
	err := r.db.GetContext(ctx, &c, query, bugID, commentID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("find comment", err)
	}
	return &c, nil
}

// ListByBug returns one page of a bug's comments, oldest first unless
// filter.SortBy is "newest".
func (r *CommentRepository) ListByBug(ctx context.Context, bugID string, filter models.CommentFilter) ([]*models.Comment, error) {
	order := "created_at ASC"
	if filter.SortBy == "newest" {
		order = "created_at DESC"
	}
	query := `SELECT ` + commentColumns + ` FROM comments WHERE bug_id = $1 ORDER BY ` + order + ` LIMIT $2 OFFSET $3`

	comments := make([]*models.Comment, 0)
	if err := r.db.SelectContext(ctx, &comments, query, bugID, filter.Limit(), filter.Offset()); err != nil {
		return nil, storeError("list comments", err)
	}
	return comments, nil
}

// Insert creates a new comment, assigning its ID and timestamp.
func (r *CommentRepository) Insert(ctx context.Context, c *models.Comment) error {
	c.ID = uuid.New().String()
	c.CreatedAt = time.Now().UTC()

	query := `INSERT INTO comments (id, bug_id, comment_text, commenter, created_at) VALUES ($1, $2, $3, $4, $5)`
	if _, err := r.db.ExecContext(ctx, query, c.ID, c.BugID, c.Text, c.Commenter, c.CreatedAt); err != nil {
		return storeError("insert comment", err)
	}
	return nil
}
