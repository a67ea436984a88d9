package repositories

import (
	"context"

	"github.com/jmoiron/sqlx"

	"github.com/bugtracker/bugtracker/internal/db/models"
)

// CredentialStore is the persistence surface of authentication and auditing:
// users, roles and the edit log, all over one shared pool.
type CredentialStore struct {
	Users *UserRepository
	Roles *RoleRepository
	Edits *EditRepository
}

// NewCredentialStore creates a CredentialStore over db
func NewCredentialStore(db *sqlx.DB) *CredentialStore {
	return &CredentialStore{
		Users: NewUserRepository(db),
		Roles: NewRoleRepository(db),
		Edits: NewEditRepository(db),
	}
}

// FindUserByEmail returns the user with email, or nil.
func (s *CredentialStore) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.Users.FindByEmail(ctx, email)
}

// FindUserByID returns the user with id, or nil.
func (s *CredentialStore) FindUserByID(ctx context.Context, id string) (*models.User, error) {
	return s.Users.FindByID(ctx, id)
}

// InsertUser stores a new user.
func (s *CredentialStore) InsertUser(ctx context.Context, user *models.User) error {
	return s.Users.Insert(ctx, user)
}

// UpdateUser applies a partial update, returning nil when the user does not exist.
func (s *CredentialStore) UpdateUser(ctx context.Context, id string, upd *models.UserUpdate, actor *models.ActorSnapshot) (*models.User, error) {
	return s.Users.Update(ctx, id, upd, actor)
}

// DeleteUser removes a user, reporting whether one existed.
func (s *CredentialStore) DeleteUser(ctx context.Context, id string) (bool, error) {
	return s.Users.Delete(ctx, id)
}

// FindRoleByName returns the role called name, or nil.
func (s *CredentialStore) FindRoleByName(ctx context.Context, name string) (*models.Role, error) {
	return s.Roles.FindRoleByName(ctx, name)
}

// AppendEditRecord appends rec to the edit log.
func (s *CredentialStore) AppendEditRecord(ctx context.Context, rec *models.EditRecord) error {
	return s.Edits.Append(ctx, rec)
}
