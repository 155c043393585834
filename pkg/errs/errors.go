// Package errs provides structured, user-friendly errors with machine-parseable codes.
package errs

import (
	"errors"
	"fmt"
)

// ErrorCode is a machine-parseable error identifier.
type ErrorCode string

const (
	// General
	ErrUnknown    ErrorCode = "ERR-000"
	ErrInternal   ErrorCode = "ERR-001"
	ErrConfig     ErrorCode = "ERR-002"
	ErrValidation ErrorCode = "ERR-003"

	// Run errors
	ErrRunNotFound ErrorCode = "ERR-RUN-001"
	ErrRunAborted  ErrorCode = "ERR-RUN-002"

	// Rendering errors
	ErrRenderSurface ErrorCode = "ERR-RENDER-001"

	// Sink errors
	ErrSinkRedis  ErrorCode = "ERR-SINK-001"
	ErrSinkExport ErrorCode = "ERR-SINK-002"

	// Metrics errors
	ErrMetricsServe ErrorCode = "ERR-METRICS-001"

	// State errors
	ErrStateRead  ErrorCode = "ERR-STATE-001"
	ErrStateWrite ErrorCode = "ERR-STATE-002"
)

// InspiralError is the standard structured error type used across all inspiral packages.
type InspiralError struct {
	Code     ErrorCode // Machine-parseable error code
	Op       string    // Operation chain, e.g., "run.step.surface"
	Resource string    // Resource identifier (run ID, file path, address)
	Cause    error     // Wrapped upstream error
	Advice   string    // Human-readable remediation hint
}

func (e *InspiralError) Error() string {
	if e.Resource != "" {
		return fmt.Sprintf("[%s] %s (%s): %v", e.Code, e.Op, e.Resource, e.Cause)
	}
	return fmt.Sprintf("[%s] %s: %v", e.Code, e.Op, e.Cause)
}

func (e *InspiralError) Unwrap() error {
	return e.Cause
}

// UserMessage returns the formatted user-facing error message with remediation advice.
func (e *InspiralError) UserMessage() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Op)
	if e.Resource != "" {
		msg += fmt.Sprintf(" (resource: %s)", e.Resource)
	}
	if e.Cause != nil {
		msg += fmt.Sprintf(": %v", e.Cause)
	}
	if e.Advice != "" {
		msg += fmt.Sprintf("\n  → %s", e.Advice)
	}
	return msg
}

// New creates a new InspiralError.
func New(code ErrorCode, op string, cause error) *InspiralError {
	return &InspiralError{Code: code, Op: op, Cause: cause}
}

// Newf creates a new InspiralError with a formatted message as the cause.
func Newf(code ErrorCode, op, format string, args ...any) *InspiralError {
	return &InspiralError{Code: code, Op: op, Cause: fmt.Errorf(format, args...)}
}

// WithResource sets the resource identifier on an InspiralError.
func (e *InspiralError) WithResource(resource string) *InspiralError {
	e.Resource = resource
	return e
}

// WithAdvice sets the human-readable remediation hint on an InspiralError.
func (e *InspiralError) WithAdvice(advice string) *InspiralError {
	e.Advice = advice
	return e
}

// Wrap wraps an existing error as an InspiralError at a new operation boundary.
func Wrap(err error, code ErrorCode, op string) *InspiralError {
	if err == nil {
		return nil
	}
	return &InspiralError{Code: code, Op: op, Cause: err}
}

// IsCode reports whether err is an InspiralError with the given code.
func IsCode(err error, code ErrorCode) bool {
	var oe *InspiralError
	if errors.As(err, &oe) {
		return oe.Code == code
	}
	return false
}

// AsInspiral extracts the *InspiralError from err, or returns nil.
func AsInspiral(err error) *InspiralError {
	var oe *InspiralError
	if errors.As(err, &oe) {
		return oe
	}
	return nil
}
