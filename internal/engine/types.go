package engine

import (
	"context"
	"time"

	"matching-core/internal/book"
	"matching-core/internal/client"
)

// CommandEnvelope wraps a command with metadata
type CommandEnvelope struct {
	CommandID      string        // Unique command ID
	IdempotencyKey string        // Idempotency key for deduplication, empty to disable
	WhoRequested   client.Client // Requester the idempotency key is scoped to
	PayloadHash    string        // Hash of payload for conflict detection
	Command        book.Command  // Command to execute
	CreatedAt      time.Time     // Command creation time
}

// BookID returns the book the wrapped command targets
func (e *CommandEnvelope) BookID() book.BookID {
	if e.Command == nil {
		return ""
	}
	return e.Command.TargetBookID()
}

// ErrorCode represents command execution error codes
type ErrorCode string

const (
	ErrorCodeNone             ErrorCode = ""
	ErrorCodeDuplicateRequest ErrorCode = "DUPLICATE_REQUEST"
	ErrorCodeInvalidArgument  ErrorCode = "INVALID_ARGUMENT"
	ErrorCodeInternalError    ErrorCode = "INTERNAL_ERROR"
	ErrorCodeBookNotFound     ErrorCode = "BOOK_NOT_FOUND"
	ErrorCodeConflict         ErrorCode = "CONFLICT"
	ErrorCodeUnavailable      ErrorCode = "UNAVAILABLE"
)

// CommandExecResult represents the result of command execution
type CommandExecResult struct {
	Events      []book.Event // Events of the committed transaction, rejections included
	LastEventID int64        // Last event ID of the book after the command
	ErrorCode   ErrorCode    // Error code if execution failed
	Err         error        // Detailed error
}

// Publisher fans committed events out to downstream consumers
type Publisher interface {
	Publish(ctx context.Context, bookID book.BookID, events []book.Event) error
}

// Projector feeds committed events into read models
type Projector interface {
	Project(ctx context.Context, event book.Event) error
}
