// Package errors provides structured error types for chartforge.
//
// Errors carry a machine-readable [Code] so that callers can decide how to
// recover without parsing messages. The generation pipeline relies on this
// taxonomy:
//
//   - UNSUPPORTED_SCHEMA: a chart family or data shape is not in the catalog
//   - GENERATIVE_UNAVAILABLE: the generative service failed or timed out
//     (transient, retried, then replaced by the template fallback)
//   - MALFORMED_INSTRUCTIONS: AI output failed validation (triggers fallback)
//   - RENDER_ERROR: instructions could not be turned into a document
//   - CONVERSION_TIMEOUT / CONVERSION_CRASH: a raster conversion failed
//
// # Usage
//
//	err := errors.New(errors.ErrCodeUnsupportedSchema, "unknown shape %q", shape)
//	if errors.Is(err, errors.ErrCodeUnsupportedSchema) {
//	    // Handle unsupported family
//	}
//
//	// Wrap existing errors
//	err := errors.Wrap(errors.ErrCodeRenderError, origErr, "write %s", path)
package errors

import (
	"errors"
	"fmt"
)

// Code represents a machine-readable error code.
type Code string

// Error codes for different error categories.
const (
	// Input validation errors
	ErrCodeInvalidInput Code = "INVALID_INPUT"
	ErrCodeInvalidPath  Code = "INVALID_PATH"

	// Resource not found errors
	ErrCodeNotFound     Code = "NOT_FOUND"
	ErrCodeFileNotFound Code = "FILE_NOT_FOUND"

	// Pipeline errors
	ErrCodeUnsupportedSchema     Code = "UNSUPPORTED_SCHEMA"
	ErrCodeGenerativeUnavailable Code = "GENERATIVE_UNAVAILABLE"
	ErrCodeMalformedInstructions Code = "MALFORMED_INSTRUCTIONS"
	ErrCodeRenderError           Code = "RENDER_ERROR"

	// Conversion errors
	ErrCodeConversionTimeout Code = "CONVERSION_TIMEOUT"
	ErrCodeConversionCrash   Code = "CONVERSION_CRASH"

	// Network errors
	ErrCodeTimeout Code = "TIMEOUT"

	// Internal errors
	ErrCodeInternal    Code = "INTERNAL_ERROR"
	ErrCodeUnsupported Code = "UNSUPPORTED"
)

// Error is a structured error with a code and optional cause.
type Error struct {
	Code    Code   // Machine-readable error code
	Message string // Human-readable message
	Cause   error  // Underlying error (optional)
}

// Error implements the error interface.
func (e *Error) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %s: %v", e.Code, e.Message, e.Cause)
	}
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause for errors.Is/As compatibility.
func (e *Error) Unwrap() error {
	return e.Cause
}

// New creates a new Error with the given code and formatted message.
func New(code Code, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
	}
}

// Wrap creates a new Error wrapping an existing error.
func Wrap(code Code, cause error, format string, args ...any) *Error {
	return &Error{
		Code:    code,
		Message: fmt.Sprintf(format, args...),
		Cause:   cause,
	}
}

// Is reports whether err has the given error code.
// It checks the outermost *Error in the chain.
func Is(err error, code Code) bool {
	var e *Error
	if errors.As(err, &e) {
		return e.Code == code
	}
	return false
}

// Has reports whether any *Error in err's chain carries code.
// Unlike [Is], it keeps unwrapping past the first match.
func Has(err error, code Code) bool {
	for err != nil {
		var e *Error
		if !errors.As(err, &e) {
			return false
		}
		if e.Code == code {
			return true
		}
		err = e.Cause
	}
	return false
}

// GetCode extracts the error code from an error, if available.
// Returns empty string if the error is not an *Error.
func GetCode(err error) Code {
	var e *Error
	if errors.As(err, &e) {
		return e.Code
	}
	return ""
}

// UserMessage returns a user-friendly message for the error.
// For *Error types, returns the message without the code prefix.
// For other errors, returns the error string as-is.
func UserMessage(err error) string {
	var e *Error
	if errors.As(err, &e) {
		return e.Message
	}
	return err.Error()
}
