package pipeline

import (
	"errors"
	"fmt"
)

var (
	// ErrNoDocument is returned when an operation names no session.
	ErrNoDocument = errors.New("no document uploaded")
	// ErrSessionNotFound is returned for unknown or expired sessions.
	ErrSessionNotFound = errors.New("session not found")
	// ErrUnsupportedFile is returned for uploads that are not .docx.
	ErrUnsupportedFile = errors.New("only .docx files are supported")
)

// PreconditionError reports an operation that needs an uploaded document
// but has none.
type PreconditionError struct {
	SessionID string
	Err       error
}

func (e *PreconditionError) Error() string {
	if e.SessionID == "" {
		return e.Err.Error()
	}
	return fmt.Sprintf("%v: %s", e.Err, e.SessionID)
}

func (e *PreconditionError) Unwrap() error { return e.Err }

// FileTooLargeError reports an upload over the configured limit.
type FileTooLargeError struct {
	Size  int64
	Limit int64
}

func (e *FileTooLargeError) Error() string {
	return fmt.Sprintf("file too large: %d bytes (limit %d)", e.Size, e.Limit)
}
