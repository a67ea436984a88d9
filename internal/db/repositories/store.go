// Package repositories implements the data access layer for the bug tracker.
// Each repository encapsulates the queries for one table; handlers never
// issue SQL directly.
//
// Every repository shares the single *sqlx.DB pool opened at startup. Lookups
// that find nothing return (nil, nil). Infrastructure failures are wrapped
// with ErrStoreUnavailable so callers can map them to an opaque 500 without
// interpreting driver errors.
package repositories

import (
	"errors"
	"fmt"
	"strings"

	"github.com/lib/pq"
)

var (
	// ErrStoreUnavailable wraps every infrastructure failure.
	ErrStoreUnavailable = errors.New("store unavailable")
	// ErrDuplicate is returned when an insert or update violates a unique constraint.
	ErrDuplicate = errors.New("record already exists")
)

// uniqueViolation is the PostgreSQL SQLSTATE for unique_violation.
const uniqueViolation = "23505"

// storeError classifies a driver error. Unique violations become ErrDuplicate;
// everything else wraps ErrStoreUnavailable alongside the cause.
func storeError(op string, err error) error {
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return fmt.Errorf("%s: %w", op, ErrDuplicate)
	}
	return fmt.Errorf("%s: %w: %w", op, ErrStoreUnavailable, err)
}

// filterBuilder accumulates positional WHERE conditions. Each condition is a
// format string whose %d verbs all refer to the argument being added.
type filterBuilder struct {
	conds []string
	args  []interface{}
}

// add appends a condition such as "email = $%d" bound to arg.
func (f *filterBuilder) add(cond string, arg interface{}) {
	f.args = append(f.args, arg)
	n := len(f.args)
	verbs := strings.Count(cond, "%d")
	idx := make([]interface{}, verbs)
	for i := range idx {
		idx[i] = n
	}
	f.conds = append(f.conds, fmt.Sprintf(cond, idx...))
}

// param appends arg and returns its placeholder.
func (f *filterBuilder) param(arg interface{}) string {
	f.args = append(f.args, arg)
	return fmt.Sprintf("$%d", len(f.args))
}

// where renders the accumulated conditions, or "" when there are none.
func (f *filterBuilder) where() string {
	if len(f.conds) == 0 {
		return ""
	}
	return " WHERE " + strings.Join(f.conds, " AND ")
}

// setBuilder accumulates the SET clause of a partial UPDATE.
type setBuilder struct {
	sets []string
	args []interface{}
}

func (s *setBuilder) set(column string, arg interface{}) {
	s.args = append(s.args, arg)
	s.sets = append(s.sets, fmt.Sprintf("%s = $%d", column, len(s.args)))
}

func (s *setBuilder) param(arg interface{}) string {
	s.args = append(s.args, arg)
	return fmt.Sprintf("$%d", len(s.args))
}

func (s *setBuilder) clause() string {
	return strings.Join(s.sets, ", ")
}
