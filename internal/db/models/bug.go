// Package models - bug.go defines the Bug model and its partial updates.
package models

import "time"

// Bug classifications.
const (
	ClassificationUnclassified = "unclassified"
	ClassificationApproved     = "approved"
	ClassificationUnapproved   = "unapproved"
	ClassificationDuplicate    = "duplicate"
)

// Bug represents a reported defect
type Bug struct {
	ID               string         `db:"id" json:"id"`
	Title            string         `db:"title" json:"title"`
	Description      string         `db:"description" json:"description"`
	StepsToReproduce string         `db:"steps_to_reproduce" json:"stepsToReproduce"`
	Classification   string         `db:"classification" json:"classification"`
	ClassifiedAt     *time.Time     `db:"classified_at" json:"classifiedOn,omitempty"`
	AssignedToID     *string        `db:"assigned_to_id" json:"assignedToUserId,omitempty"`
	AssignedToName   *string        `db:"assigned_to_name" json:"assignedToUserName,omitempty"`
	AssignedAt       *time.Time     `db:"assigned_at" json:"assignedOn,omitempty"`
	Closed           bool           `db:"closed" json:"closed"`
	ClosedAt         *time.Time     `db:"closed_at" json:"closedOn,omitempty"`
	Author           ActorSnapshot  `db:"author" json:"author"`
	CreatedAt        time.Time      `db:"created_at" json:"createdOn"`
	UpdatedAt        time.Time      `db:"updated_at" json:"lastUpdated"`
	LastUpdatedBy    *ActorSnapshot `db:"last_updated_by" json:"lastUpdatedBy,omitempty"`
}

// BugUpdate is a partial edit of a bug's text fields.
type BugUpdate struct {
	Title            *string `json:"title,omitempty"`
	Description      *string `json:"description,omitempty"`
	StepsToReproduce *string `json:"stepsToReproduce,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u *BugUpdate) IsEmpty() bool {
	return u.Title == nil && u.Description == nil && u.StepsToReproduce == nil
}

// Bug list sort orders.
const (
	BugSortNewest         = "newest"
	BugSortOldest         = "oldest"
	BugSortTitle          = "title"
	BugSortClassification = "classification"
	BugSortAssignedTo     = "assignedTo"
)

// BugFilter narrows and orders a bug listing.
type BugFilter struct {
	Keywords       string
	Classification string
	Closed         *bool
	SortBy         string
	Page
}
