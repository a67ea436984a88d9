// Package models - user.go defines the User model for bug tracker accounts,
// the partial update applied to one, and the list filter.
package models

import "time"

// User represents a user in the system
type User struct {
	ID            string         `db:"id" json:"id"`
	Email         string         `db:"email" json:"email"`
	Username      string         `db:"username" json:"username"`
	GivenName     *string        `db:"given_name" json:"givenName,omitempty"`
	FamilyName    *string        `db:"family_name" json:"familyName,omitempty"`
	PasswordHash  string         `db:"password_hash" json:"-"`
	Roles         RoleSet        `db:"roles" json:"roles"`
	CreatedAt     time.Time      `db:"created_at" json:"createdAt"`
	UpdatedAt     time.Time      `db:"updated_at" json:"updatedAt"`
	LastUpdatedBy *ActorSnapshot `db:"last_updated_by" json:"lastUpdatedBy,omitempty"`
}

// FullName joins the given and family names, falling back to the username.
func (u *User) FullName() string {
	switch {
	case u.GivenName != nil && u.FamilyName != nil:
		return *u.GivenName + " " + *u.FamilyName
	case u.GivenName != nil:
		return *u.GivenName
	case u.FamilyName != nil:
		return *u.FamilyName
	default:
		return u.Username
	}
}

// UserUpdate is a partial update to a user. Nil fields are left unchanged.
// It doubles as the payload of the user's edit record, so it never carries
// a password: PasswordHash is excluded from JSON and PasswordChanged records
// only that one was set.
type UserUpdate struct {
	Email           *string  `json:"email,omitempty"`
	Username        *string  `json:"username,omitempty"`
	GivenName       *string  `json:"givenName,omitempty"`
	FamilyName      *string  `json:"familyName,omitempty"`
	Roles           *RoleSet `json:"roles,omitempty"`
	PasswordHash    *string  `json:"-"`
	PasswordChanged bool     `json:"passwordChanged,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u *UserUpdate) IsEmpty() bool {
	return u.Email == nil && u.Username == nil && u.GivenName == nil &&
		u.FamilyName == nil && u.Roles == nil && u.PasswordHash == nil
}

// Apply copies the set fields of the update onto user.
func (u *UserUpdate) Apply(user *User) {
	if u.Email != nil {
		user.Email = *u.Email
	}
	if u.Username != nil {
		user.Username = *u.Username
	}
	if u.GivenName != nil {
		user.GivenName = u.GivenName
	}
	if u.FamilyName != nil {
		user.FamilyName = u.FamilyName
	}
	if u.Roles != nil {
		user.Roles = *u.Roles
	}
	if u.PasswordHash != nil {
		user.PasswordHash = *u.PasswordHash
	}
}

// User list sort orders.
const (
	UserSortGivenName  = "givenName"
	UserSortFamilyName = "familyName"
	UserSortRole       = "role"
	UserSortNewest     = "newest"
	UserSortOldest     = "oldest"
)

// UserFilter narrows and orders a user listing. Ages are in whole days
// relative to the start of Today.
type UserFilter struct {
	Keywords   string
	Role       string
	MinAgeDays *int
	MaxAgeDays *int
	SortBy     string
	Today      time.Time
	Page
}
