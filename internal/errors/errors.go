package errors

import (
	stderrors "errors"
	"fmt"
)

// ErrorCode represents a Mahader error code.
type ErrorCode string

const (
	ErrInvalidRequest    ErrorCode = "INVALID_REQUEST"    // 400
	ErrNotFound          ErrorCode = "NOT_FOUND"          // 404
	ErrPersonaLocked     ErrorCode = "PERSONA_LOCKED"     // 409
	ErrMissingCredential ErrorCode = "MISSING_CREDENTIAL" // 412
	ErrGenerationFailed  ErrorCode = "GENERATION_FAILED"  // 502
	ErrMirrorFailed      ErrorCode = "MIRROR_FAILED"      // 500, report saved but conversation not updated
	ErrInternal          ErrorCode = "INTERNAL"           // 500
)

// AppError represents a structured error with code, status, and details.
type AppError struct {
	Code    ErrorCode
	Status  int
	Message string
	Details map[string]any

	cause error
}

// Error implements the error interface.
func (e *AppError) Error() string {
	return fmt.Sprintf("%s: %s", e.Code, e.Message)
}

// Unwrap returns the underlying cause, if any.
func (e *AppError) Unwrap() error {
	return e.cause
}

// NewInvalidRequest creates a 400 error for invalid request parameters.
func NewInvalidRequest(msg string) *AppError {
	return &AppError{
		Code:    ErrInvalidRequest,
		Status:  400,
		Message: msg,
	}
}

// NewNotFound creates a 404 error for a missing conversation, message set or report.
func NewNotFound(kind, id string) *AppError {
	return &AppError{
		Code:    ErrNotFound,
		Status:  404,
		Message: fmt.Sprintf("%s not found: %s", kind, id),
		Details: map[string]any{"kind": kind, "id": id},
	}
}

// NewPersonaLocked creates a 409 error when changing the persona of a locked conversation.
func NewPersonaLocked(conversationID string) *AppError {
	return &AppError{
		Code:    ErrPersonaLocked,
		Status:  409,
		Message: "persona cannot change after the first user message",
		Details: map[string]any{"conversation_id": conversationID},
	}
}

// NewMissingCredential creates a 412 error when no text-generation credential is configured.
func NewMissingCredential() *AppError {
	return &AppError{
		Code:    ErrMissingCredential,
		Status:  412,
		Message: "text generation credential is not configured",
	}
}

// NewGenerationFailed creates a 502 error for a failed text-generation call.
func NewGenerationFailed(err error) *AppError {
	msg := "text generation failed"
	if err != nil {
		msg = fmt.Sprintf("text generation failed: %v", err)
	}
	return &AppError{
		Code:    ErrGenerationFailed,
		Status:  502,
		Message: msg,
		cause:   err,
	}
}

// NewMirrorFailed creates a 500 error for a report that was saved while the
// conversation mirror update failed. The two stores are left inconsistent.
func NewMirrorFailed(reportID string, err error) *AppError {
	msg := "report saved but conversation update failed"
	if err != nil {
		msg = fmt.Sprintf("%s: %v", msg, err)
	}
	return &AppError{
		Code:    ErrMirrorFailed,
		Status:  500,
		Message: msg,
		Details: map[string]any{"report_id": reportID},
		cause:   err,
	}
}

// NewInternal creates a 500 error for unexpected internal errors.
func NewInternal(err error) *AppError {
	msg := "internal error"
	if err != nil {
		msg = err.Error()
	}
	return &AppError{
		Code:    ErrInternal,
		Status:  500,
		Message: msg,
		cause:   err,
	}
}

// Is checks if an error is (or wraps) an AppError with the given code.
func Is(err error, code ErrorCode) bool {
	var appErr *AppError
	if stderrors.As(err, &appErr) {
		return appErr.Code == code
	}
	return false
}
