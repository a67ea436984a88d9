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

const bugColumns = `id, title, description, steps_to_reproduce, classification, classified_at,
		assigned_to_id, assigned_to_name, assigned_at, closed, closed_at, author,
		created_at, updated_at, last_updated_by`

// bugSearchVector must match the expression of bugs_search_idx.
const bugSearchVector = `to_tsvector('simple', title || ' ' || description || ' ' || steps_to_reproduce)`

var bugSortOrders = map[string]string{
	models.BugSortNewest:         "created_at DESC",
	models.BugSortOldest:         "created_at ASC",
	models.BugSortTitle:          "title ASC, created_at DESC",
	models.BugSortClassification: "classification ASC, classified_at DESC NULLS LAST, created_at DESC",
	models.BugSortAssignedTo:     "assigned_to_name ASC NULLS LAST, created_at DESC",
}

// BugRepository handles bug database operations
type BugRepository struct {
	db *sqlx.DB
}

// NewBugRepository creates a new BugRepository
func NewBugRepository(db *sqlx.DB) *BugRepository {
	return &BugRepository{db: db}
}

// FindByID retrieves a bug by ID
func (r *BugRepository) FindByID(ctx context.Context, id string) (*models.Bug, error) {
	var bug models.Bug
	err := r.db.GetContext(ctx, &bug, `SELECT `+bugColumns+` FROM bugs WHERE id = $1`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("find bug", err)
	}
	return &bug, nil
}

// Insert creates a new unclassified, open bug, assigning its ID and timestamps.
func (r *BugRepository) Insert(ctx context.Context, bug *models.Bug) error {
	now := time.Now().UTC()
	bug.ID = uuid.New().String()
	bug.Classification = models.ClassificationUnclassified
	bug.Closed = false
	bug.CreatedAt = now
	bug.UpdatedAt = now

	query := `
		INSERT INTO bugs (id, title, description, steps_to_reproduce, classification, closed, author,
			created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.db.ExecContext(ctx, query,
		bug.ID,
		bug.Title,
		bug.Description,
		bug.StepsToReproduce,
		bug.Classification,
		bug.Closed,
		bug.Author,
		bug.CreatedAt,
		bug.UpdatedAt,
	)
	if err != nil {
		return storeError("insert bug", err)
	}
	return nil
}

// Update applies a partial text edit. It returns (nil, nil) when no bug has id.
func (r *BugRepository) Update(ctx context.Context, id string, upd *models.BugUpdate, actor *models.ActorSnapshot) (*models.Bug, error) {
	var s setBuilder
	if upd.Title != nil {
		s.set("title", *upd.Title)
	}
	if upd.Description != nil {
		s.set("description", *upd.Description)
	}
	if upd.StepsToReproduce != nil {
		s.set("steps_to_reproduce", *upd.StepsToReproduce)
	}
	return r.apply(ctx, "update bug", id, &s, actor)
}

// Classify sets the bug's classification and stamps classified_at.
func (r *BugRepository) Classify(ctx context.Context, id, classification string, actor *models.ActorSnapshot) (*models.Bug, error) {
	var s setBuilder
	s.set("classification", classification)
	s.set("classified_at", time.Now().UTC())
	return r.apply(ctx, "classify bug", id, &s, actor)
}

// Assign records the assignee and stamps assigned_at.
func (r *BugRepository) Assign(ctx context.Context, id string, assignee *models.User, actor *models.ActorSnapshot) (*models.Bug, error) {
	var s setBuilder
	s.set("assigned_to_id", assignee.ID)
	s.set("assigned_to_name", assignee.FullName())
	s.set("assigned_at", time.Now().UTC())
	return r.apply(ctx, "assign bug", id, &s, actor)
}

// SetClosed opens or closes the bug. closed_at is stamped on close and cleared on reopen.
func (r *BugRepository) SetClosed(ctx context.Context, id string, closed bool, actor *models.ActorSnapshot) (*models.Bug, error) {
	var s setBuilder
	s.set("closed", closed)
	if closed {
		s.set("closed_at", time.Now().UTC())
	} else {
		s.set("closed_at", nil)
	}
	return r.apply(ctx, "close bug", id, &s, actor)
}

// apply runs an UPDATE with the given SET clause plus the audit stamps.
func (r *BugRepository) apply(ctx context.Context, op, id string, s *setBuilder, actor *models.ActorSnapshot) (*models.Bug, error) {
	s.set("updated_at", time.Now().UTC())
	s.set("last_updated_by", actor)
	query := `UPDATE bugs SET ` + s.clause() + ` WHERE id = ` + s.param(id) + ` RETURNING ` + bugColumns

	var bug models.Bug
	err := r.db.GetContext(ctx, &bug, query, s.args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError(op, err)
	}
	return &bug, nil
}

// List returns one page of bugs matching filter plus the total match count.
func (r *BugRepository) List(ctx context.Context, filter models.BugFilter) ([]*models.Bug, int, error) {
	var f filterBuilder
	if filter.Keywords != "" {
		f.add(bugSearchVector+` @@ plainto_tsquery('simple', $%d)`, filter.Keywords)
	}
	if filter.Classification != "" {
		f.add(`classification = $%d`, filter.Classification)
	}
	if filter.Closed != nil {
		f.add(`closed = $%d`, *filter.Closed)
	}

	where := f.where()
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM bugs`+where, f.args...); err != nil {
		return nil, 0, storeError("count bugs", err)
	}

	order, ok := bugSortOrders[filter.SortBy]
	if !ok {
		order = bugSortOrders[models.BugSortNewest]
	}
	query := `SELECT ` + bugColumns + ` FROM bugs` + where +
		` ORDER BY ` + order + ` LIMIT ` + f.param(filter.Limit()) + ` OFFSET ` + f.param(filter.Offset())

	bugs := make([]*models.Bug, 0)
	if err := r.db.SelectContext(ctx, &bugs, query, f.args...); err != nil {
		return nil, 0, storeError("list bugs", err)
	}
	return bugs, total, nil
}
