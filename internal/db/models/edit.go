// Package models - edit.go defines the EditRecord model, the immutable entry
// appended to the edit log for every insert, update and delete.
package models

import "time"

// EditOp is the kind of mutation an edit record describes.
type EditOp string

const (
	EditOpInsert EditOp = "insert"
	EditOpUpdate EditOp = "update"
	EditOpDelete EditOp = "delete"
)

// Valid reports whether op is one of the known operations.
func (op EditOp) Valid() bool {
	switch op {
	case EditOpInsert, EditOpUpdate, EditOpDelete:
		return true
	}
	return false
}

// Collections named in edit records.
const (
	CollectionUser     = "user"
	CollectionBug      = "bug"
	CollectionComment  = "comment"
	CollectionTestCase = "testCase"
	CollectionRole     = "role"
)

// EditRecord is one entry of the append-only edit log. Target identifies the
// mutated record by key (e.g. {"bugId": "..."}); Update is omitted for
// deletes; Actor is nil when the mutation had no authenticated actor, such as
// a self-registration.
type EditRecord struct {
	ID         string         `db:"id" json:"id"`
	Timestamp  time.Time      `db:"timestamp" json:"timestamp"`
	Op         EditOp         `db:"op" json:"op"`
	Collection string         `db:"collection" json:"col"`
	Target     StringMap      `db:"target" json:"target"`
	Update     Document       `db:"update_payload" json:"update,omitempty"`
	Actor      *ActorSnapshot `db:"actor" json:"auth,omitempty"`
}

// EditFilter narrows an edit log listing.
type EditFilter struct {
	Collection string
	Op         EditOp
	ActorID    string
	TargetKey  string
	TargetID   string
	Since      *time.Time
	Until      *time.Time
	Page
}
