package engine

import (
	"errors"
	"fmt"
)

// EngineError reports a session-level failure: an empty undo stack, a
// persistence problem, a sync conflict or a missing document.
//
// Structural validation failures are *ops.ValidationError and pass through
// the session unchanged.
type EngineError struct {
	// Code identifies the error category.
	Code EngineErrorCode

	// Message is a human-readable description.
	Message string

	// DocumentID identifies the affected document.
	DocumentID string

	// Err is the underlying cause, if any.
	Err error
}

// EngineErrorCode categorizes engine errors.
type EngineErrorCode string

const (
	// ErrCodeNothingToUndo indicates Undo was called with an empty undo stack.
	ErrCodeNothingToUndo EngineErrorCode = "NOTHING_TO_UNDO"

	// ErrCodeNothingToRedo indicates Redo was called with an empty redo stack.
	ErrCodeNothingToRedo EngineErrorCode = "NOTHING_TO_REDO"

	// ErrCodePersistenceFailed indicates a write to the backing store failed
	// after retries. Local state was kept.
	ErrCodePersistenceFailed EngineErrorCode = "PERSISTENCE_FAILED"

	// ErrCodeSyncConflict indicates the stored copy changed underneath the
	// session and needs an explicit keep-local or take-remote choice.
	ErrCodeSyncConflict EngineErrorCode = "SYNC_CONFLICT"

	// ErrCodeDocumentNotFound indicates the document does not exist.
	ErrCodeDocumentNotFound EngineErrorCode = "DOCUMENT_NOT_FOUND"

	// ErrCodeSessionClosed indicates the session was closed.
	ErrCodeSessionClosed EngineErrorCode = "SESSION_CLOSED"

	// ErrCodeClipboardEmpty indicates Paste was called with nothing copied.
	ErrCodeClipboardEmpty EngineErrorCode = "CLIPBOARD_EMPTY"
)

// Error implements the error interface.
func (e *EngineError) Error() string {
	msg := fmt.Sprintf("%s: %s", e.Code, e.Message)
	if e.DocumentID != "" {
		msg += fmt.Sprintf(" (document=%s)", e.DocumentID)
	}
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *EngineError) Unwrap() error {
	return e.Err
}

// HasCode reports whether err is an EngineError with the given code.
// Uses errors.As to handle wrapped errors.
func HasCode(err error, code EngineErrorCode) bool {
	var ee *EngineError
	if errors.As(err, &ee) {
		return ee.Code == code
	}
	return false
}

// IsNothingToUndo returns true if the undo stack was empty.
func IsNothingToUndo(err error) bool {
	return HasCode(err, ErrCodeNothingToUndo)
}

// IsNothingToRedo returns true if the redo stack was empty.
func IsNothingToRedo(err error) bool {
	return HasCode(err, ErrCodeNothingToRedo)
}

// IsPersistenceError returns true for persistence failures.
func IsPersistenceError(err error) bool {
	return HasCode(err, ErrCodePersistenceFailed)
}

// IsSyncConflict returns true for unresolved sync conflicts.
func IsSyncConflict(err error) bool {
	return HasCode(err, ErrCodeSyncConflict)
}

// IsDocumentNotFound returns true if the document does not exist.
func IsDocumentNotFound(err error) bool {
	return HasCode(err, ErrCodeDocumentNotFound)
}

func errNothingToUndo(docID string) *EngineError {
	return &EngineError{Code: ErrCodeNothingToUndo, Message: "nothing to undo", DocumentID: docID}
}

func errNothingToRedo(docID string) *EngineError {
	return &EngineError{Code: ErrCodeNothingToRedo, Message: "nothing to redo", DocumentID: docID}
}

func errSessionClosed(docID string) *EngineError {
	return &EngineError{Code: ErrCodeSessionClosed, Message: "session is closed", DocumentID: docID}
}

func errClipboardEmpty(docID string) *EngineError {
	return &EngineError{Code: ErrCodeClipboardEmpty, Message: "clipboard is empty", DocumentID: docID}
}

// NewDocumentNotFound wraps a storage not-found error.
func NewDocumentNotFound(docID string, cause error) *EngineError {
	return &EngineError{Code: ErrCodeDocumentNotFound, Message: "document not found", DocumentID: docID, Err: cause}
}

// NewPersistenceError wraps a failed storage call.
func NewPersistenceError(docID string, cause error) *EngineError {
	return &EngineError{Code: ErrCodePersistenceFailed, Message: "persisting changes failed", DocumentID: docID, Err: cause}
}

// NewSyncConflict reports a stored copy newer than the session's.
func NewSyncConflict(docID, message string) *EngineError {
	return &EngineError{Code: ErrCodeSyncConflict, Message: message, DocumentID: docID}
}
