package repository

import (
	"database/sql"
	"errors"
	"fmt"

	"github.com/lib/pq"
)

var (
	// ErrNotFound no row matched.
	ErrNotFound = errors.New("not found")
	// ErrUniqueViolation a unique index rejected the write. Use errors.As with
	// *UniqueViolationError to learn which constraint.
	ErrUniqueViolation = errors.New("unique violation")
	// ErrSubtreeHasPersonnel a subtree delete found personnel attached to one of its units.
	ErrSubtreeHasPersonnel = errors.New("personnel attached to subtree")
	// ErrNotHolder the job is no longer assigned to the user the write expected.
	ErrNotHolder = errors.New("job not held by expected assignee")
)

// Unique constraint names, shared by the schema and the memory repositories.
const (
	ConstraintUnitName       = "units_name_lower_key"
	ConstraintUsername       = "personnel_username_lower_key"
	ConstraintPersonInUnit   = "personnel_unit_person_lower_key"
	pqUniqueViolationErrCode = "23505"
	pqInvalidTextErrCode     = "22P02"
)

// UniqueViolationError carries the violated constraint name.
type UniqueViolationError struct {
	Constraint string
}

func (e *UniqueViolationError) Error() string {
	return fmt.Sprintf("unique violation: %s", e.Constraint)
}

func (e *UniqueViolationError) Is(target error) bool {
	return target == ErrUniqueViolation
}

// mapPQError translates driver errors into repository errors.
func mapPQError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	var pqErr *pq.Error
	if !errors.As(err, &pqErr) {
		return err
	}
	switch string(pqErr.Code) {
	case pqUniqueViolationErrCode:
		return &UniqueViolationError{Constraint: pqErr.Constraint}
	case pqInvalidTextErrCode:
		// a malformed uuid can never match a row
		return ErrNotFound
	}
	return err
}

// isMalformedID reports a uuid filter value Postgres could not parse. Such a
// filter matches no rows.
func isMalformedID(err error) bool {
	var pqErr *pq.Error
	return errors.As(err, &pqErr) && string(pqErr.Code) == pqInvalidTextErrCode
}

// nullableString maps an optional id to a driver value.
func nullableString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}
