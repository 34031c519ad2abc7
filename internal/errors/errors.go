// Package errors holds the structured error taxonomy described in
// spec §7: fatal errors (IngestError, ConfigError) and non-fatal
// warnings that are logged and counted rather than propagated.
package errors

import "fmt"

// AppError is a structured application error with a stable code and an
// optional wrapped cause.
type AppError struct {
	Code    string
	Message string
	Cause   error
}

func (e *AppError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *AppError) Unwrap() error {
	return e.Cause
}

// New creates an AppError with no cause.
func New(code, message string) *AppError {
	return &AppError{Code: code, Message: message}
}

// Wrap attaches context to err, preserving its code if it is already an
// AppError.
func Wrap(err error, message string) error {
	if err == nil {
		return nil
	}
	if appErr, ok := err.(*AppError); ok {
		return &AppError{Code: appErr.Code, Message: message, Cause: appErr}
	}
	return &AppError{Code: CodeInternal, Message: message, Cause: err}
}

// Wrapf is Wrap with a formatted message.
func Wrapf(err error, format string, args ...interface{}) error {
	return Wrap(err, fmt.Sprintf(format, args...))
}

// IsAppError reports whether err is an *AppError.
func IsAppError(err error) bool {
	_, ok := err.(*AppError)
	return ok
}

// GetCode returns err's code, or "UNKNOWN" if err isn't an AppError.
func GetCode(err error) string {
	if appErr, ok := err.(*AppError); ok {
		return appErr.Code
	}
	return "UNKNOWN"
}

// Fatal error codes (§7): these terminate the run before (ConfigError)
// or during (IngestError) processing.
const (
	CodeIngest   = "INGEST_ERROR"
	CodeConfig   = "CONFIG_ERROR"
	CodeInternal = "INTERNAL_ERROR"
)

// Ingest constructs a fatal IngestError: missing file, empty file,
// malformed CSV, or a missing required column.
func Ingest(message string) *AppError {
	return New(CodeIngest, message)
}

// Config constructs a fatal ConfigError: out-of-range or contradictory
// configuration.
func Config(message string) *AppError {
	return New(CodeConfig, message)
}

// WarningCode identifies a non-fatal condition that is logged and
// counted but never aborts the run.
type WarningCode string

const (
	// EmptyTrainingWarning: an application had no training rows after
	// filtering; it is simply absent from the PatternStore.
	EmptyTrainingWarning WarningCode = "EMPTY_TRAINING"
	// EmptyPatternWarning: mining produced zero itemsets for an
	// application at the configured min_support; an empty table is
	// stored.
	EmptyPatternWarning WarningCode = "EMPTY_PATTERN"
	// NoCandidatesWarning: identification produced an empty top-list
	// after exhausting the fallback ladder.
	NoCandidatesWarning WarningCode = "NO_CANDIDATES"
)
