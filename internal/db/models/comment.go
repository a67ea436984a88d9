// Package models - comment.go defines the Comment model attached to a bug.
package models

import "time"

// Comment is a remark left on a bug.
type Comment struct {
	ID        string        `db:"id" json:"id"`
	BugID     string        `db:"bug_id" json:"bugId"`
	Text      string        `db:"comment_text" json:"commentText"`
	Commenter ActorSnapshot `db:"commenter" json:"commenter"`
	CreatedAt time.Time     `db:"created_at" json:"createdOn"`
}

// CommentFilter orders a comment listing. SortBy is newest or oldest.
type CommentFilter struct {
	SortBy string
	Page
}
