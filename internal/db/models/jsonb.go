// Package models - jsonb.go defines the document-shaped column types stored as
// PostgreSQL JSONB: role sets, permission sets, actor snapshots and free-form
// payloads. Each implements driver.Valuer and sql.Scanner.
package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"slices"
	"strings"
)

// scanJSON decodes a JSONB column value into dst. NULL leaves dst untouched.
func scanJSON(src interface{}, dst interface{}) error {
	var data []byte
	switch v := src.(type) {
	case nil:
		return nil
	case []byte:
		data = v
	case string:
		data = []byte(v)
	default:
		return fmt.Errorf("cannot scan %T into %T", src, dst)
	}
	return json.Unmarshal(data, dst)
}

// valueJSON encodes v for a JSONB parameter.
func valueJSON(v interface{}) (driver.Value, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	return string(b), nil
}

// RoleSet is a sorted, duplicate-free set of role names. JSON input may be a
// single string or an array of strings; output is always an array.
type RoleSet []string

// NewRoleSet normalises names into a RoleSet, dropping blanks and duplicates.
func NewRoleSet(names ...string) RoleSet {
	set := make(RoleSet, 0, len(names))
	for _, name := range names {
		name = strings.TrimSpace(name)
		if name != "" {
			set = append(set, name)
		}
	}
	slices.Sort(set)
	return slices.Compact(set)
}

// Contains reports whether name is in the set.
func (r RoleSet) Contains(name string) bool {
	_, found := slices.BinarySearch(r, name)
	return found
}

// UnmarshalJSON accepts "Developer" as well as ["Developer", "Tester"].
func (r *RoleSet) UnmarshalJSON(data []byte) error {
	var single string
	if err := json.Unmarshal(data, &single); err == nil {
		*r = NewRoleSet(single)
		return nil
	}
	var many []string
	if err := json.Unmarshal(data, &many); err != nil {
		return fmt.Errorf("roles must be a string or an array of strings")
	}
	*r = NewRoleSet(many...)
	return nil
}

// MarshalJSON always encodes an array, never null.
func (r RoleSet) MarshalJSON() ([]byte, error) {
	if r == nil {
		return []byte("[]"), nil
	}
	return json.Marshal([]string(r))
}

// Value implements driver.Valuer
func (r RoleSet) Value() (driver.Value, error) {
	if r == nil {
		return "[]", nil
	}
	return valueJSON([]string(r))
}

// Scan implements sql.Scanner
func (r *RoleSet) Scan(src interface{}) error {
	var names []string
	if err := scanJSON(src, &names); err != nil {
		return err
	}
	*r = NewRoleSet(names...)
	return nil
}

// PermissionSet maps permission names to whether the role grants them.
type PermissionSet map[string]bool

// Value implements driver.Valuer
func (p PermissionSet) Value() (driver.Value, error) {
	if p == nil {
		return "{}", nil
	}
	return valueJSON(map[string]bool(p))
}

// Scan implements sql.Scanner
func (p *PermissionSet) Scan(src interface{}) error {
	m := map[string]bool{}
	if err := scanJSON(src, &m); err != nil {
		return err
	}
	*p = m
	return nil
}

// ActorSnapshot freezes who performed a mutation, as they were authenticated
// at the time. It is copied into records rather than referenced so it
// survives later changes to, or deletion of, the user.
type ActorSnapshot struct {
	UserID      string          `json:"userId"`
	Email       string          `json:"email,omitempty"`
	Username    string          `json:"username,omitempty"`
	Roles       []string        `json:"roles,omitempty"`
	Permissions map[string]bool `json:"permissions,omitempty"`
}

// Value implements driver.Valuer
func (a ActorSnapshot) Value() (driver.Value, error) {
	return valueJSON(a)
}

// Scan implements sql.Scanner
func (a *ActorSnapshot) Scan(src interface{}) error {
	return scanJSON(src, a)
}

// Document is a free-form JSON payload, such as the update applied by a mutation.
type Document json.RawMessage

// NewDocument marshals v into a Document. A nil v yields a nil Document.
func NewDocument(v interface{}) (Document, error) {
	if v == nil {
		return nil, nil
	}
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	if string(b) == "null" {
		return nil, nil
	}
	return Document(b), nil
}

// MarshalJSON emits the raw document, or null when empty.
func (d Document) MarshalJSON() ([]byte, error) {
	if len(d) == 0 {
		return []byte("null"), nil
	}
	return d, nil
}

// UnmarshalJSON stores a copy of data.
func (d *Document) UnmarshalJSON(data []byte) error {
	if string(data) == "null" {
		*d = nil
		return nil
	}
	*d = append((*d)[:0], data...)
	return nil
}

// Value implements driver.Valuer; an empty document is stored as NULL.
func (d Document) Value() (driver.Value, error) {
	if len(d) == 0 {
		return nil, nil
	}
	return string(d), nil
}

// Scan implements sql.Scanner
func (d *Document) Scan(src interface{}) error {
	switch v := src.(type) {
	case nil:
		*d = nil
	case []byte:
		*d = append(Document(nil), v...)
	case string:
		*d = Document(v)
	default:
		return fmt.Errorf("cannot scan %T into Document", src)
	}
	return nil
}

// StringMap is a flat string-to-string JSON object, used for edit targets.
type StringMap map[string]string

// Value implements driver.Valuer
func (m StringMap) Value() (driver.Value, error) {
	if m == nil {
		return "{}", nil
	}
	return valueJSON(map[string]string(m))
}

// Scan implements sql.Scanner
func (m *StringMap) Scan(src interface{}) error {
	out := map[string]string{}
	if err := scanJSON(src, &out); err != nil {
		return err
	}
	*m = out
	return nil
}
