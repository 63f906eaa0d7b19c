package service

import "errors"

// Errors returned by services. Handlers map them to HTTP status codes with errors.Is.
var (
	ErrValidation          = errors.New("validation failed")
	ErrNotFound            = errors.New("not found")
	ErrDuplicateName       = errors.New("unit name already exists")
	ErrDuplicateUsername   = errors.New("username already exists")
	ErrDuplicateNameInUnit = errors.New("a person with this name already exists in the unit")
	ErrInvalidParent       = errors.New("parent unit does not exist")
	ErrUnitCycle           = errors.New("unit cannot be moved under itself or its descendants")
	ErrInvalidUnit         = errors.New("unit does not exist")
	ErrHasPersonnel        = errors.New("unit or one of its sub-units has personnel attached")
	ErrProtectedRole       = errors.New("superadmin accounts cannot be deleted")
	ErrAuth                = errors.New("invalid credentials")
	ErrForbidden           = errors.New("forbidden")
)

// ValidationError carries field-level details while still matching ErrValidation.
type ValidationError struct {
	Details string
}

func (e *ValidationError) Error() string {
	if e.Details == "" {
		return ErrValidation.Error()
	}
	return ErrValidation.Error() + ": " + e.Details
}

func (e *ValidationError) Is(target error) bool { return target == ErrValidation }

func validationf(details string) error {
	return &ValidationError{Details: details}
}
