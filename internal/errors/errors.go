package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode classifies a snapocr error.
type ErrorCode string

const (
	ErrInvalidRequest ErrorCode = "INVALID_REQUEST"
	ErrNotFound       ErrorCode = "NOT_FOUND"
	ErrBuiltIn        ErrorCode = "BUILTIN_TEMPLATE" // built-ins are immutable
	ErrCaptureFailed  ErrorCode = "CAPTURE_FAILED"
	ErrOCRFailed      ErrorCode = "OCR_FAILED"
	ErrExportFailed   ErrorCode = "EXPORT_FAILED"
	ErrInternal       ErrorCode = "INTERNAL"
)

// SnapError is a structured error with a code and optional details.
type SnapError struct {
	Code    ErrorCode
	Message string
	Details map[string]any
	Cause   error
}

// Error implements the error interface.
func (e *SnapError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap exposes the underlying cause, if any.
func (e *SnapError) Unwrap() error {
	return e.Cause
}

// NewInvalidRequest creates an error for invalid parameters.
func NewInvalidRequest(msg string) *SnapError {
	return &SnapError{Code: ErrInvalidRequest, Message: msg}
}

// NewNotFound creates an error for a missing project, session, capture, or
// template. Unreadable on-disk state is reported the same way as absent
// state.
func NewNotFound(kind, identifier string) *SnapError {
	return &SnapError{
		Code:    ErrNotFound,
		Message: fmt.Sprintf("%s not found: %s", kind, identifier),
		Details: map[string]any{"kind": kind, "identifier": identifier},
	}
}

// NewBuiltIn creates an error for attempts to modify a built-in template.
func NewBuiltIn(name string) *SnapError {
	return &SnapError{
		Code:    ErrBuiltIn,
		Message: fmt.Sprintf("built-in template %q cannot be modified; duplicate it instead", name),
	}
}

// NewCaptureFailed wraps a screen acquisition failure.
func NewCaptureFailed(err error) *SnapError {
	return &SnapError{Code: ErrCaptureFailed, Message: fmt.Sprintf("capture failed: %v", err), Cause: err}
}

// NewOCRFailed wraps a recognition failure.
func NewOCRFailed(err error) *SnapError {
	return &SnapError{Code: ErrOCRFailed, Message: fmt.Sprintf("ocr failed: %v", err), Cause: err}
}

// NewExportFailed wraps an export failure.
func NewExportFailed(err error) *SnapError {
	return &SnapError{Code: ErrExportFailed, Message: fmt.Sprintf("export failed: %v", err), Cause: err}
}

// NewInternal creates an error for unexpected failures.
func NewInternal(err error) *SnapError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &SnapError{Code: ErrInternal, Message: msg, Cause: err}
}

// Is checks whether err is (or wraps) a SnapError with the given code.
func Is(err error, code ErrorCode) bool {
	var se *SnapError
	if stderrors.As(err, &se) {
		return se.Code == code
	}
	return false
}
