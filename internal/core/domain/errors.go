package domain

import (
	"errors"
	"fmt"
)

// Domain errors - used across all layers
var (
	// ErrNotFound indicates the requested resource was not found
	ErrNotFound = errors.New("not found")

	// ErrInvalidInput indicates the input is invalid
	ErrInvalidInput = errors.New("invalid input")

	// ErrUnauthorized indicates authentication failed or missing
	ErrUnauthorized = errors.New("unauthorized")

	// ErrForbidden indicates the user lacks permission for this action
	ErrForbidden = errors.New("forbidden")

	// ErrTokenExpired indicates the auth token has expired
	ErrTokenExpired = errors.New("token expired")

	// ErrTokenInvalid indicates the auth token is malformed or invalid
	ErrTokenInvalid = errors.New("token invalid")

	// ErrInvalidProvider indicates an unknown AI provider was specified
	ErrInvalidProvider = errors.New("invalid provider")

	// ErrServiceUnavailable indicates the AI service could not be reached
	ErrServiceUnavailable = errors.New("service unavailable")

	// ErrActionNotFound indicates the action id is not in the catalog
	ErrActionNotFound = errors.New("action not found")

	// ErrProviderUnavailable indicates the preferred provider cannot serve the request and fallback is off
	ErrProviderUnavailable = errors.New("provider unavailable")

	// ErrNoProviderMatched indicates no registered provider supports the required modality
	ErrNoProviderMatched = errors.New("no provider matched")

	// ErrSectionNotFound indicates the document has no section with the given id
	ErrSectionNotFound = errors.New("section not found")

	// ErrUnknownField indicates a structured field key outside the field catalog
	ErrUnknownField = errors.New("unknown field")

	// ErrCommandNotExecuted indicates Undo was called on a command that never ran
	ErrCommandNotExecuted = errors.New("command not executed")

	// ErrNothingToUndo indicates the undo stack is empty
	ErrNothingToUndo = errors.New("nothing to undo")

	// ErrNothingToRedo indicates the redo stack is empty
	ErrNothingToRedo = errors.New("nothing to redo")

	// ErrGroupNotFound indicates no command matches the edit group
	ErrGroupNotFound = errors.New("edit group not found")

	// ErrGroupMismatch indicates a command's section differs from its edit group's section
	ErrGroupMismatch = errors.New("edit group section mismatch")

	// ErrDocumentLocked indicates another edit session holds the document
	ErrDocumentLocked = errors.New("document locked by another session")
)

// ProviderError reports a provider failure caught at the executor boundary.
type ProviderError struct {
	ProviderID ProviderID
	Message    string
	Err        error
}

func (e *ProviderError) Error() string {
	if e.Message == "" && e.Err != nil {
		return fmt.Sprintf("provider %s: %v", e.ProviderID, e.Err)
	}
	return fmt.Sprintf("provider %s: %s", e.ProviderID, e.Message)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError wraps err as a ProviderError for the given provider
func NewProviderError(id ProviderID, err error) *ProviderError {
	msg := ""
	if err != nil {
		msg = err.Error()
	}
	return &ProviderError{ProviderID: id, Message: msg, Err: err}
}

// IsEditConflict reports whether err means the edit could not run in the
// document's current state
func IsEditConflict(err error) bool {
	return errors.Is(err, ErrNothingToUndo) ||
		errors.Is(err, ErrNothingToRedo) ||
		errors.Is(err, ErrGroupNotFound) ||
		errors.Is(err, ErrDocumentLocked)
}
