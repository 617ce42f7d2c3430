package valuenumber

import (
	"errors"
	"fmt"
)

// ErrOptUnsafe signals that the IC being optimized violates
// single-assignment or aliasing invariants. Callers roll back the current
// attempt.
var ErrOptUnsafe = errors.New("unsafe optimization")

// UnsafeCode categorizes unsafe-optimization conditions.
type UnsafeCode string

const (
	// UnsafeConflictingValues indicates two different constants for one value.
	UnsafeConflictingValues UnsafeCode = "CONFLICTING_VALUES"

	// UnsafeConflictingAliases indicates two distinct handles forced to
	// name the same storage.
	UnsafeConflictingAliases UnsafeCode = "CONFLICTING_ALIASES"

	// UnsafeDoubleAssignment indicates a second single-assignment write.
	UnsafeDoubleAssignment UnsafeCode = "DOUBLE_ASSIGNMENT"
)

// UnsafeError describes a detected contradiction. It matches
// ErrOptUnsafe under errors.Is.
type UnsafeError struct {
	Code UnsafeCode

	// Subject is the value or location the contradiction is about.
	Subject string

	// Context names the function being optimized.
	Context string

	Details string
}

func (e *UnsafeError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Subject)
	if e.Details != "" {
		msg += ": " + e.Details
	}
	if e.Context != "" {
		msg += " (in " + e.Context + ")"
	}
	return msg
}

// Is makes UnsafeError match ErrOptUnsafe.
func (e *UnsafeError) Is(target error) bool {
	return target == ErrOptUnsafe
}

// IsUnsafe reports whether err is or wraps an unsafe-optimization signal.
func IsUnsafe(err error) bool {
	return errors.Is(err, ErrOptUnsafe)
}

func newUnsafe(code UnsafeCode, context, subject, format string, args ...any) *UnsafeError {
	return &UnsafeError{
		Code:    code,
		Subject: subject,
		Context: context,
		Details: fmt.Sprintf(format, args...),
	}
}
