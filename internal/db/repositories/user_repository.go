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

const userColumns = `id, email, username, given_name, family_name, password_hash, roles,
		created_at, updated_at, last_updated_by`

// userSearchVector must match the expression of users_search_idx.
const userSearchVector = `to_tsvector('simple', coalesce(username, '') || ' ' || coalesce(email, '') || ' ' ||
		coalesce(given_name, '') || ' ' || coalesce(family_name, ''))`

var userSortOrders = map[string]string{
	models.UserSortGivenName:  "given_name ASC NULLS LAST, family_name ASC NULLS LAST, created_at ASC",
	models.UserSortFamilyName: "family_name ASC NULLS LAST, given_name ASC NULLS LAST, created_at ASC",
	models.UserSortRole:       "roles ASC, given_name ASC NULLS LAST, family_name ASC NULLS LAST, created_at ASC",
	models.UserSortNewest:     "created_at DESC",
	models.UserSortOldest:     "created_at ASC",
}

// UserRepository handles user database operations
type UserRepository struct {
	db *sqlx.DB
}

// NewUserRepository creates a new UserRepository
func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// FindByEmail retrieves a user by email, compared case-insensitively
func (r *UserRepository) FindByEmail(ctx context.Context, email string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE lower(email) = lower($1)`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, email)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("find user by email", err)
	}
	return &user, nil
}

// FindByID retrieves a user by ID
func (r *UserRepository) FindByID(ctx context.Context, id string) (*models.User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var user models.User
	err := r.db.GetContext(ctx, &user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("find user by id", err)
	}
	return &user, nil
}

// Insert creates a new user, assigning its ID and timestamps. A clash on
// email yields ErrDuplicate.
func (r *UserRepository) Insert(ctx context.Context, user *models.User) error {
	now := time.Now().UTC()
	user.ID = uuid.New().String()
	user.CreatedAt = now
	user.UpdatedAt = now
	if user.Roles == nil {
		user.Roles = models.RoleSet{}
	}

	query := `
		INSERT INTO users (id, email, username, given_name, family_name, password_hash, roles,
			created_at, updated_at, last_updated_by)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`
	_, err := r.db.ExecContext(ctx, query,
		user.ID,
		user.Email,
		user.Username,
		user.GivenName,
		user.FamilyName,
		user.PasswordHash,
		user.Roles,
		user.CreatedAt,
		user.UpdatedAt,
		user.LastUpdatedBy,
	)
	if err != nil {
		return storeError("insert user", err)
	}
	return nil
}

// Update applies a partial update, stamping updated_at and last_updated_by,
// and returns the updated user. It returns (nil, nil) when no user has id.
func (r *UserRepository) Update(ctx context.Context, id string, upd *models.UserUpdate, actor *models.ActorSnapshot) (*models.User, error) {
	var s setBuilder
	if upd.Email != nil {
		s.set("email", *upd.Email)
	}
	if upd.Username != nil {
		s.set("username", *upd.Username)
	}
	if upd.GivenName != nil {
		s.set("given_name", *upd.GivenName)
	}
	if upd.FamilyName != nil {
		s.set("family_name", *upd.FamilyName)
	}
	if upd.Roles != nil {
		s.set("roles", *upd.Roles)
	}
	if upd.PasswordHash != nil {
		s.set("password_hash", *upd.PasswordHash)
	}
	s.set("updated_at", time.Now().UTC())
	s.set("last_updated_by", actor)

	query := `UPDATE users SET ` + s.clause() + ` WHERE id = ` + s.param(id) + ` RETURNING ` + userColumns

	var user models.User
	err := r.db.GetContext(ctx, &user, query, s.args...)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, storeError("update user", err)
	}
	return &user, nil
}

// Delete removes a user, reporting whether one existed.
func (r *UserRepository) Delete(ctx context.Context, id string) (bool, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM users WHERE id = $1`, id)
	if err != nil {
		return false, storeError("delete user", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, storeError("delete user", err)
	}
	return n > 0, nil
}

// List returns one page of users matching filter plus the total match count.
func (r *UserRepository) List(ctx context.Context, filter models.UserFilter) ([]*models.User, int, error) {
	var f filterBuilder
	if filter.Keywords != "" {
		f.add(userSearchVector+` @@ plainto_tsquery('simple', $%d)`, filter.Keywords)
	}
	if filter.Role != "" {
		f.add(`roles @> jsonb_build_array($%d::text)`, filter.Role)
	}
	today := filter.Today
	if today.IsZero() {
		today = models.StartOfDay(time.Now())
	}
	since, before := models.AgeWindow(today, filter.MinAgeDays, filter.MaxAgeDays)
	if since != nil {
		f.add(`created_at >= $%d`, *since)
	}
	if before != nil {
		f.add(`created_at < $%d`, *before)
	}

	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM users`+f.where(), f.args...); err != nil {
		return nil, 0, storeError("count users", err)
	}

	order, ok := userSortOrders[filter.SortBy]
	if !ok {
		order = userSortOrders[models.UserSortGivenName]
	}
	where := f.where()
	query := `SELECT ` + userColumns + ` FROM users` + where +
		` ORDER BY ` + order + ` LIMIT ` + f.param(filter.Limit()) + ` OFFSET ` + f.param(filter.Offset())

	users := make([]*models.User, 0)
	if err := r.db.SelectContext(ctx, &users, query, f.args...); err != nil {
		return nil, 0, storeError("list users", err)
	}
	return users, total, nil
}
