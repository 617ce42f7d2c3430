package fixture

import (
	"errors"
	"fmt"
)

// ErrorCode categorizes fixture errors.
type ErrorCode string

const (
	// ErrCodeRead indicates the fixture file could not be read.
	ErrCodeRead ErrorCode = "FIXTURE_READ"

	// ErrCodeParse indicates malformed YAML or an unknown key.
	ErrCodeParse ErrorCode = "FIXTURE_PARSE"

	// ErrCodeVersion indicates a missing, malformed or unsupported
	// ir_version.
	ErrCodeVersion ErrorCode = "FIXTURE_VERSION"

	// ErrCodeInvalid indicates a document that does not describe a valid
	// program.
	ErrCodeInvalid ErrorCode = "FIXTURE_INVALID"
)

// Error reports a problem with a fixture. At locates the offending node,
// e.g. "functions[0].block.statements[2]".
type Error struct {
	Code    ErrorCode
	File    string
	At      string
	Message string
}

func (e *Error) Error() string {
	loc := e.File
	if e.At != "" {
		if loc != "" {
			loc += ": "
		}
		loc += e.At
	}
	if loc == "" {
		return fmt.Sprintf("%s: %s", e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s: %s", loc, e.Code, e.Message)
}

// IsFixtureError reports whether err is or wraps a *Error.
func IsFixtureError(err error) bool {
	var fe *Error
	return errors.As(err, &fe)
}

func invalid(at, format string, args ...any) *Error {
	return &Error{Code: ErrCodeInvalid, At: at, Message: fmt.Sprintf(format, args...)}
}
