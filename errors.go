package ochat

import (
	"errors"
	"fmt"
)

// Sentinel errors for common failure modes.
var (
	// ErrValidation indicates a request or turn failed validation.
	ErrValidation = errors.New("validation error")

	// ErrNoConversation indicates an operation that needs an active
	// conversation was called while the session is idle.
	ErrNoConversation = errors.New("no active conversation")

	// ErrConversationNotFound indicates the conversation does not exist.
	ErrConversationNotFound = errors.New("conversation not found")

	// ErrInvalidConversationID indicates a malformed conversation id.
	ErrInvalidConversationID = errors.New("invalid conversation id")

	// ErrStreamClosed indicates an operation on a closed stream.
	ErrStreamClosed = errors.New("stream closed")
)

// StorageError reports a failed Store operation. Storage failures are fatal
// to the operation that hit them; nothing is retried.
type StorageError struct {
	Op  string
	Err error
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error { return e.Err }

// BackendError reports an inference backend failure: the backend is
// unreachable, the model is unknown, or the stream ended abnormally.
type BackendError struct {
	Provider string
	Err      error
}

func (e *BackendError) Error() string {
	return fmt.Sprintf("%s: %v", e.Provider, e.Err)
}

func (e *BackendError) Unwrap() error { return e.Err }
