package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"matching-core/internal/book"
)

// ErrSequenceGap is returned when a stored event log is not gapless
var ErrSequenceGap = errors.New("sequence gap detected")

// EventRecord represents a persisted event record
type EventRecord struct {
	Version    int             `json:"version"`
	BookID     string          `json:"book_id"`
	Sequence   int64           `json:"sequence"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// EventStore defines the interface for event log persistence
type EventStore interface {
	// Append appends the events of one transaction to the log of a book
	Append(ctx context.Context, bookID book.BookID, events ...book.Event) error

	// ReadFrom reads events from a specific sequence number (inclusive)
	ReadFrom(ctx context.Context, bookID book.BookID, fromSeq int64) ([]book.Event, error)

	// GetLastSequence returns the last sequence number for a book
	GetLastSequence(ctx context.Context, bookID book.BookID) (int64, error)

	// ListSymbols lists all books that have event logs
	ListSymbols(ctx context.Context) ([]book.BookID, error)

	// Close closes the event store
	Close() error
}

// SnapshotStore defines the interface for snapshot persistence
type SnapshotStore interface {
	// Save saves a snapshot of a book
	Save(ctx context.Context, snapshot *book.Snapshot) error

	// Load loads the latest snapshot of a book, nil if there is none
	Load(ctx context.Context, bookID book.BookID) (*book.Snapshot, error)

	// ListSnapshots lists all available snapshots for a book (sorted by sequence desc)
	ListSnapshots(ctx context.Context, bookID book.BookID) ([]SnapshotMetadata, error)

	// Close closes the snapshot store
	Close() error
}

// SnapshotMetadata represents snapshot metadata
type SnapshotMetadata struct {
	Symbol       string    `json:"symbol"`
	LastSequence int64     `json:"last_sequence"`
	CapturedAt   time.Time `json:"captured_at"`
	FilePath     string    `json:"file_path"`
}

// RecoveryService defines the interface for recovery operations
type RecoveryService interface {
	// Recover rebuilds a book from its latest snapshot and the events
	// after it. found is false when neither exists.
	Recover(ctx context.Context, bookID book.BookID) (books book.Books, found bool, err error)

	// ValidateSequence validates that events continue gaplessly after lastSeq
	ValidateSequence(lastSeq int64, events []book.Event) error
}
