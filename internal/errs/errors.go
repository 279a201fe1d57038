package errs

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Common sentinel errors for cross-layer signaling.
var (
	ErrNotFound  = errors.New("not_found")
	ErrForbidden = errors.New("forbidden")
	// ErrConflict signals a concurrent write lost a race (serialization failure or deadlock).
	ErrConflict = errors.New("conflict")
	// ErrInvalid is matched by every validation failure.
	ErrInvalid = errors.New("invalid")

	ErrAccountNotFound  = errors.New("account_not_found")
	ErrCategoryNotFound = errors.New("category_not_found")
	ErrInvalidRange     = errors.New("invalid_range")
	ErrInvalidAmount    = errors.New("invalid_amount")
	// ErrUnsupportedKind is returned for transaction kinds without a defined balance effect (transfer).
	ErrUnsupportedKind = errors.New("unsupported_kind")
	ErrOverlap         = errors.New("budget_overlap")
)

// ValidationError is a structured domain validation failure.
// It matches both its sentinel (Err) and ErrInvalid under errors.Is.
type ValidationError struct {
	Field  string
	Reason string
	Err    error
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Reason
	}
	return e.Field + ": " + e.Reason
}

func (e *ValidationError) Unwrap() []error {
	if e.Err == nil {
		return []error{ErrInvalid}
	}
	return []error{e.Err, ErrInvalid}
}

// Code returns the machine-readable code for the error.
func (e *ValidationError) Code() string {
	if e.Err == nil {
		return "validation_error"
	}
	return e.Err.Error()
}

// Invalid builds a ValidationError for field with the given sentinel.
func Invalid(field, reason string, sentinel error) error {
	return &ValidationError{Field: field, Reason: reason, Err: sentinel}
}

// OverlapError reports that a budget period collides with an existing budget
// of the same owner and category.
type OverlapError struct {
	BudgetID uuid.UUID
}

func (e *OverlapError) Error() string {
	return fmt.Sprintf("budget period overlaps budget %s", e.BudgetID)
}

func (e *OverlapError) Unwrap() []error { return []error{ErrOverlap, ErrInvalid} }

// Code returns the machine-readable code for the error.
func (e *OverlapError) Code() string { return ErrOverlap.Error() }
