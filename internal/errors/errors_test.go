package errors

import (
	stderrors "errors"
	"fmt"
	"testing"
)

func TestAppError_Error(t *testing.T) {
	err := &AppError{
		Code:    ErrNotFound,
		Status:  404,
		Message: "conversation not found",
	}

	expected := "NOT_FOUND: conversation not found"
	if err.Error() != expected {
		t.Errorf("Error() = %q, want %q", err.Error(), expected)
	}
}

func TestNewInvalidRequest(t *testing.T) {
	err := NewInvalidRequest("conversation id is required")

	if err.Code != ErrInvalidRequest {
		t.Errorf("Code = %q, want %q", err.Code, ErrInvalidRequest)
	}
	if err.Status != 400 {
		t.Errorf("Status = %d, want 400", err.Status)
	}
	if err.Message != "conversation id is required" {
		t.Errorf("Message = %q", err.Message)
	}
}

func TestNewNotFound(t *testing.T) {
	err := NewNotFound("report", "01ABC")

	if err.Code != ErrNotFound {
		t.Errorf("Code = %q, want %q", err.Code, ErrNotFound)
	}
	if err.Status != 404 {
		t.Errorf("Status = %d, want 404", err.Status)
	}
	if err.Details["id"] != "01ABC" {
		t.Errorf("Details[id] = %v, want %q", err.Details["id"], "01ABC")
	}
	if err.Details["kind"] != "report" {
		t.Errorf("Details[kind] = %v, want %q", err.Details["kind"], "report")
	}
}

func TestNewPersonaLocked(t *testing.T) {
	err := NewPersonaLocked("c1")

	if err.Code != ErrPersonaLocked {
		t.Errorf("Code = %q, want %q", err.Code, ErrPersonaLocked)
	}
	if err.Status != 409 {
		t.Errorf("Status = %d, want 409", err.Status)
	}
}

func TestNewMissingCredential(t *testing.T) {
	err := NewMissingCredential()
	if err.Code != ErrMissingCredential || err.Status != 412 {
		t.Errorf("got %q/%d", err.Code, err.Status)
	}
}

func TestNewGenerationFailed_Unwrap(t *testing.T) {
	cause := stderrors.New("HTTP 500")
	err := NewGenerationFailed(cause)

	if err.Code != ErrGenerationFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrGenerationFailed)
	}
	if !stderrors.Is(err, cause) {
		t.Error("expected GenerationFailed to unwrap to its cause")
	}
}

func TestNewMirrorFailed(t *testing.T) {
	err := NewMirrorFailed("c1", stderrors.New("disk full"))

	if err.Code != ErrMirrorFailed {
		t.Errorf("Code = %q, want %q", err.Code, ErrMirrorFailed)
	}
	if err.Details["report_id"] != "c1" {
		t.Errorf("Details[report_id] = %v", err.Details["report_id"])
	}
}

func TestNewInternal(t *testing.T) {
	err := NewInternal(stderrors.New("boom"))
	if err.Message != "boom" {
		t.Errorf("Message = %q, want %q", err.Message, "boom")
	}

	err = NewInternal(nil)
	if err.Message != "internal error" {
		t.Errorf("Message = %q, want %q", err.Message, "internal error")
	}
}

func TestIs(t *testing.T) {
	tests := []struct {
		name string
		err  error
		code ErrorCode
		want bool
	}{
		{"matching code", NewNotFound("conversation", "x"), ErrNotFound, true},
		{"different code", NewNotFound("conversation", "x"), ErrInternal, false},
		{"wrapped", fmt.Errorf("save: %w", NewPersonaLocked("x")), ErrPersonaLocked, true},
		{"plain error", stderrors.New("plain"), ErrInternal, false},
		{"nil", nil, ErrInternal, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := Is(tt.err, tt.code); got != tt.want {
				t.Errorf("Is() = %v, want %v", got, tt.want)
			}
		})
	}
}
