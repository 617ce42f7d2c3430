package config

import (
	"errors"
	"fmt"

	cueerrors "cuelang.org/go/cue/errors"
	"cuelang.org/go/cue/token"
)

// ErrorCode categorizes configuration errors.
type ErrorCode string

const (
	// ErrCodeRead indicates the settings file could not be read.
	ErrCodeRead ErrorCode = "CONFIG_READ"

	// ErrCodeFormat indicates an unsupported settings file extension.
	ErrCodeFormat ErrorCode = "CONFIG_FORMAT"

	// ErrCodeParse indicates the file is not valid YAML, TOML or CUE.
	ErrCodeParse ErrorCode = "CONFIG_PARSE"

	// ErrCodeUnknownField indicates a key the settings do not define.
	ErrCodeUnknownField ErrorCode = "CONFIG_UNKNOWN_FIELD"

	// ErrCodeInvalid indicates a value rejected by the schema.
	ErrCodeInvalid ErrorCode = "CONFIG_INVALID"
)

// ConfigError reports a problem with a settings file.
type ConfigError struct {
	Code    ErrorCode
	Path    string
	Message string
	Pos     token.Pos
}

func (e *ConfigError) Error() string {
	if e.Pos.IsValid() {
		return fmt.Sprintf("%s:%d:%d: %s: %s",
			e.Pos.Filename(), e.Pos.Line(), e.Pos.Column(), e.Code, e.Message)
	}
	if e.Path != "" {
		return fmt.Sprintf("%s: %s: %s", e.Path, e.Code, e.Message)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// IsConfigError reports whether err is or wraps a *ConfigError.
func IsConfigError(err error) bool {
	var ce *ConfigError
	return errors.As(err, &ce)
}

// fromCUE converts the first CUE error to a ConfigError, keeping its
// position.
func fromCUE(code ErrorCode, path string, err error) *ConfigError {
	ce := &ConfigError{Code: code, Path: path, Message: err.Error()}
	errs := cueerrors.Errors(err)
	if len(errs) == 0 {
		return ce
	}
	first := errs[0]
	ce.Message = first.Error()
	if positions := cueerrors.Positions(first); len(positions) > 0 {
		ce.Pos = positions[0]
	}
	return ce
}
