package domain

import (
	"errors"
	"fmt"
	"testing"
)

func TestErrors(t *testing.T) {
	tests := []struct {
		name string
		err  error
		msg  string
	}{
		{"ErrNotFound", ErrNotFound, "not found"},
		{"ErrInvalidInput", ErrInvalidInput, "invalid input"},
		{"ErrUnauthorized", ErrUnauthorized, "unauthorized"},
		{"ErrForbidden", ErrForbidden, "forbidden"},
		{"ErrTokenExpired", ErrTokenExpired, "token expired"},
		{"ErrTokenInvalid", ErrTokenInvalid, "token invalid"},
		{"ErrUnknownField", ErrUnknownField, "unknown field"},
		{"ErrCommandNotExecuted", ErrCommandNotExecuted, "command not executed"},
		{"ErrNothingToUndo", ErrNothingToUndo, "nothing to undo"},
		{"ErrNothingToRedo", ErrNothingToRedo, "nothing to redo"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.err.Error() != tt.msg {
				t.Errorf("expected %q, got %q", tt.msg, tt.err.Error())
			}
		})
	}
}

func TestErrorsAreDistinct(t *testing.T) {
	allErrors := []error{
		ErrNotFound,
		ErrInvalidInput,
		ErrUnauthorized,
		ErrForbidden,
		ErrTokenExpired,
		ErrTokenInvalid,
		ErrInvalidProvider,
		ErrServiceUnavailable,
		ErrActionNotFound,
		ErrProviderUnavailable,
		ErrNoProviderMatched,
		ErrSectionNotFound,
		ErrUnknownField,
		ErrCommandNotExecuted,
		ErrNothingToUndo,
		ErrNothingToRedo,
		ErrGroupNotFound,
		ErrGroupMismatch,
		ErrDocumentLocked,
	}

	for i, err1 := range allErrors {
		for j, err2 := range allErrors {
			if i != j && errors.Is(err1, err2) {
				t.Errorf("errors should be distinct: %v and %v", err1, err2)
			}
		}
	}
}

func TestProviderError(t *testing.T) {
	cause := fmt.Errorf("dial tcp: %w", ErrServiceUnavailable)
	err := NewProviderError(ProviderOpenAI, cause)

	if err.Error() != "provider openai: dial tcp: service unavailable" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if !errors.Is(err, ErrServiceUnavailable) {
		t.Error("ProviderError should unwrap to its cause")
	}

	var pe *ProviderError
	wrapped := fmt.Errorf("execute rewrite: %w", err)
	if !errors.As(wrapped, &pe) {
		t.Fatal("errors.As should find the ProviderError")
	}
	if pe.ProviderID != ProviderOpenAI {
		t.Errorf("expected provider openai, got %s", pe.ProviderID)
	}
}

func TestProviderErrorWithoutCause(t *testing.T) {
	err := &ProviderError{ProviderID: ProviderMock, Message: "empty response"}
	if err.Error() != "provider mock: empty response" {
		t.Errorf("unexpected message %q", err.Error())
	}
	if err.Unwrap() != nil {
		t.Error("expected nil cause")
	}
}

func TestFailureString(t *testing.T) {
	f := NewFailure(CodeRateLimited, "slow down")
	if f.String() != "ai.rate_limited: slow down" {
		t.Errorf("unexpected %q", f.String())
	}
}

func TestIsEditConflict(t *testing.T) {
	tests := []struct {
		err  error
		want bool
	}{
		{ErrNothingToUndo, true},
		{ErrNothingToRedo, true},
		{fmt.Errorf("rollback: %w", ErrGroupNotFound), true},
		{ErrDocumentLocked, true},
		{ErrNotFound, false},
		{ErrInvalidInput, false},
		{nil, false},
	}
	for _, tt := range tests {
		if got := IsEditConflict(tt.err); got != tt.want {
			t.Errorf("IsEditConflict(%v) = %v, want %v", tt.err, got, tt.want)
		}
	}
}
