// Package models - testcase.go defines the TestCase model recorded against a bug.
package models

import "time"

// TestCase is a verification step for a bug, optionally executed with a
// pass/fail outcome.
type TestCase struct {
	ID            string         `db:"id" json:"id"`
	BugID         string         `db:"bug_id" json:"bugId"`
	Title         string         `db:"title" json:"title"`
	Body          string         `db:"body" json:"body"`
	Passed        *bool          `db:"passed" json:"passed,omitempty"`
	ExecutedAt    *time.Time     `db:"executed_at" json:"executedOn,omitempty"`
	ExecutedBy    *ActorSnapshot `db:"executed_by" json:"executedBy,omitempty"`
	Tester        ActorSnapshot  `db:"tester" json:"tester"`
	CreatedAt     time.Time      `db:"created_at" json:"createdOn"`
	UpdatedAt     time.Time      `db:"updated_at" json:"lastUpdated"`
	LastUpdatedBy *ActorSnapshot `db:"last_updated_by" json:"lastUpdatedBy,omitempty"`
}

// TestCaseUpdate is a partial edit of a test case's text fields.
type TestCaseUpdate struct {
	Title *string `json:"title,omitempty"`
	Body  *string `json:"body,omitempty"`
}

// IsEmpty reports whether the update changes nothing.
func (u *TestCaseUpdate) IsEmpty() bool {
	return u.Title == nil && u.Body == nil
}
