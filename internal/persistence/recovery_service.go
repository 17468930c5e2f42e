package persistence

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"matching-core/internal/book"
	"matching-core/internal/cqrs"
)

// FileRecoveryService implements RecoveryService
type FileRecoveryService struct {
	eventStore    EventStore
	snapshotStore SnapshotStore
	logger        *zap.Logger
}

// NewFileRecoveryService creates a new recovery service
func NewFileRecoveryService(eventStore EventStore, snapshotStore SnapshotStore, logger *zap.Logger) *FileRecoveryService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FileRecoveryService{
		eventStore:    eventStore,
		snapshotStore: snapshotStore,
		logger:        logger,
	}
}

// Recover loads the latest snapshot, reads the events after it, checks
// they continue gaplessly and replays them
func (s *FileRecoveryService) Recover(ctx context.Context, bookID book.BookID) (book.Books, bool, error) {
	snapshot, err := s.snapshotStore.Load(ctx, bookID)
	if err != nil {
		return book.Books{}, false, fmt.Errorf("failed to load snapshot: %w", err)
	}

	books := book.NewBooks(bookID)
	if snapshot != nil {
		if books, err = book.FromSnapshot(snapshot); err != nil {
			return book.Books{}, false, fmt.Errorf("failed to restore snapshot: %w", err)
		}
	}

	events, err := s.eventStore.ReadFrom(ctx, bookID, int64(books.LastEventID)+1)
	if err != nil {
		return book.Books{}, false, fmt.Errorf("failed to read events: %w", err)
	}
	if snapshot == nil && len(events) == 0 {
		return book.Books{}, false, nil
	}

	if err := s.ValidateSequence(int64(books.LastEventID), events); err != nil {
		return book.Books{}, false, fmt.Errorf("sequence validation failed: %w", err)
	}

	books, err = cqrs.Replay(books, events)
	if err != nil {
		return book.Books{}, false, err
	}

	s.logger.Info("book recovered",
		zap.String("book_id", string(bookID)),
		zap.Bool("from_snapshot", snapshot != nil),
		zap.Int("replayed", len(events)),
		zap.Int64("last_event_id", int64(books.LastEventID)))
	return books, true, nil
}

// ValidateSequence validates that event sequences continue from lastSeq
// without gaps
func (s *FileRecoveryService) ValidateSequence(lastSeq int64, events []book.Event) error {
	expected := lastSeq + 1
	for _, event := range events {
		if seq := int64(event.EventID()); seq != expected {
			return fmt.Errorf("%w: expected %d, got %d", ErrSequenceGap, expected, seq)
		}
		expected++
	}
	return nil
}
