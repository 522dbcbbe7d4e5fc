package errors

import (
	stderrors "errors"
	"fmt"
	"strings"
)

// AppError represents a structured pipeline error
type AppError struct {
	Code    string
	Message string
	Cause   error

	// Columns lists the offending columns for schema errors
	Columns []string
}

func (e *AppError) Error() string {
	if e.Cause == nil {
		return e.Message
	}
	if e.Message == "" {
		return e.Cause.Error()
	}
	return fmt.Sprintf("%s: %v", e.Message, e.Cause)
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates a new AppError
func New(code, message string) *AppError {
	return &AppError{
		Code:    code,
		Message: message,
	}
}

// Wrap wraps an error with additional context, keeping its code
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return &AppError{
			Code:    appErr.Code,
			Message: message,
			Cause:   err,
			Columns: appErr.Columns,
		}
	}
	return &AppError{
		Code:    CodeInternalError,
		Message: message,
		Cause:   err,
	}
}

// Wrapf wraps an error with formatted additional context
func Wrapf(err error, format string, args ...interface{}) error {
	if err == nil {
		return nil
	}
	return Wrap(err, fmt.Sprintf(format, args...))
}

// WithCode adds an error code to an existing error. A foreign error becomes
// the cause, so its text is not repeated and errors.Is still reaches it.
func WithCode(code string, err error) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{
			Code:    code,
			Message: appErr.Message,
			Cause:   appErr.Cause,
			Columns: appErr.Columns,
		}
	}
	return &AppError{
		Code:  code,
		Cause: err,
	}
}

// GetCode returns the error code if it's an AppError, otherwise returns "UNKNOWN"
func GetCode(err error) string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code
	}
	return "UNKNOWN"
}

// MissingColumns returns the columns carried by a schema error
func MissingColumns(err error) []string {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Columns
	}
	return nil
}

// IsFatal reports whether err must abort the run.
// Sink failures are the only non-fatal class.
func IsFatal(err error) bool {
	if err == nil {
		return false
	}
	return GetCode(err) != CodeSinkError
}

// Predefined error codes
const (
	CodeConfigInvalid = "CONFIG_INVALID"
	CodeLoadError     = "LOAD_ERROR"
	CodeSchemaError   = "SCHEMA_ERROR"
	CodeParseError    = "PARSE_ERROR"
	CodeSinkError     = "SINK_ERROR"
	CodeInternalError = "INTERNAL_ERROR"
)

// Common error constructors
func ConfigInvalid(message string) *AppError {
	return New(CodeConfigInvalid, message)
}

// LoadError reports an input file that is missing, unreadable or unparseable
func LoadError(path string, cause error) *AppError {
	return &AppError{
		Code:    CodeLoadError,
		Message: fmt.Sprintf("failed to load %s", path),
		Cause:   cause,
	}
}

// SchemaError reports required columns absent from an input
func SchemaError(source string, missing []string) *AppError {
	quoted := make([]string, len(missing))
	for i, col := range missing {
		quoted[i] = fmt.Sprintf("%q", col)
	}
	return &AppError{
		Code:    CodeSchemaError,
		Message: fmt.Sprintf("%s is missing required columns: %s", source, strings.Join(quoted, ", ")),
		Columns: missing,
	}
}

// ParseError reports a value that fails strict parsing. row is 1-based, header excluded.
func ParseError(column string, row int, value string, cause error) *AppError {
	return &AppError{
		Code:    CodeParseError,
		Message: fmt.Sprintf("row %d: cannot parse %q value %q", row, column, value),
		Cause:   cause,
		Columns: []string{column},
	}
}

// SinkError reports a failed output write
func SinkError(sink string, cause error) *AppError {
	return &AppError{
		Code:    CodeSinkError,
		Message: fmt.Sprintf("%s sink failed", sink),
		Cause:   cause,
	}
}

func InternalError(message string) *AppError {
	return New(CodeInternalError, message)
}
