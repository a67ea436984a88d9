package models

import "time"

// DefaultUserPageSize and friends are the page sizes used when a list request
// names none.
const (
	DefaultUserPageSize    = 5
	DefaultBugPageSize     = 20
	DefaultCommentPageSize = 100
	DefaultEditPageSize    = 50
	MaxPageSize            = 500
)

// Page selects one page of a listing. Number is 1-based.
type Page struct {
	Size   int
	Number int
}

// NewPage builds a page, substituting defaultSize for a missing or invalid size
// and 1 for a missing or invalid number.
func NewPage(size, number, defaultSize int) Page {
	if size < 1 {
		size = defaultSize
	}
	if size > MaxPageSize {
		size = MaxPageSize
	}
	if number < 1 {
		number = 1
	}
	return Page{Size: size, Number: number}
}

// Limit returns the SQL LIMIT for the page.
func (p Page) Limit() int {
	return p.Size
}

// Offset returns the SQL OFFSET for the page.
func (p Page) Offset() int {
	return (p.Number - 1) * p.Size
}

// AgeWindow converts minimum and maximum ages in days into created-at bounds
// relative to today, which should be a midnight. Records at most maxAge days
// old were created at or after since; records at least minAge days old were
// created before before. A nil age yields a nil bound.
func AgeWindow(today time.Time, minAge, maxAge *int) (since, before *time.Time) {
	if maxAge != nil {
		t := today.AddDate(0, 0, -*maxAge)
		since = &t
	}
	if minAge != nil {
		t := today.AddDate(0, 0, -*minAge+1)
		before = &t
	}
	return since, before
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, t.Location())
}
