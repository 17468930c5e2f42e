package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/cockroachdb/pebble"
	"go.uber.org/zap"

	"matching-core/internal/book"
)

const (
	eventKeyPrefix = "event/"
	bookKeyPrefix  = "book/"
)

// PebbleEventStore implements EventStore on a pebble key-value store. Events
// are keyed "event/<book>/<sequence>" with zero-padded sequences so that key
// order is sequence order.
type PebbleEventStore struct {
	db     *pebble.DB
	logger *zap.Logger
}

// OpenPebbleEventStore opens (or creates) a pebble event store in dir
func OpenPebbleEventStore(dir string, logger *zap.Logger) (*PebbleEventStore, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, fmt.Errorf("failed to open pebble store: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PebbleEventStore{db: db, logger: logger}, nil
}

func eventKey(bookID book.BookID, seq int64) []byte {
	return []byte(fmt.Sprintf("%s%s/%020d", eventKeyPrefix, bookID, seq))
}

// eventBounds returns the key range holding every event of a book
func eventBounds(bookID book.BookID) (lower, upper []byte) {
	prefix := eventKeyPrefix + string(bookID) + "/"
	return []byte(prefix), []byte(prefix + "~")
}

// Append writes all events of a transaction in one synced batch
func (s *PebbleEventStore) Append(ctx context.Context, bookID book.BookID, events ...book.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	batch := s.db.NewBatch()
	defer batch.Close()

	now := time.Now().UTC()
	for _, event := range events {
		data, err := MarshalEvent(event, now)
		if err != nil {
			return err
		}
		if err := batch.Set(eventKey(bookID, int64(event.EventID())), data, nil); err != nil {
			return fmt.Errorf("failed to stage event: %w", err)
		}
	}
	if err := batch.Set([]byte(bookKeyPrefix+string(bookID)), nil, nil); err != nil {
		return fmt.Errorf("failed to stage book key: %w", err)
	}
	if err := batch.Commit(pebble.Sync); err != nil {
		return fmt.Errorf("failed to commit events: %w", err)
	}

	s.logger.Debug("events appended",
		zap.String("book_id", string(bookID)),
		zap.Int64("first_sequence", int64(events[0].EventID())),
		zap.Int("count", len(events)))
	return nil
}

// ReadFrom reads events from a specific sequence number (inclusive)
func (s *PebbleEventStore) ReadFrom(ctx context.Context, bookID book.BookID, fromSeq int64) ([]book.Event, error) {
	_, upper := eventBounds(bookID)
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: eventKey(bookID, max(fromSeq, 0)),
		UpperBound: upper,
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	events := []book.Event{}
	for iter.First(); iter.Valid(); iter.Next() {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		var record EventRecord
		if err := json.Unmarshal(iter.Value(), &record); err != nil {
			return nil, fmt.Errorf("failed to unmarshal event record %s: %w", iter.Key(), err)
		}
		event, err := DecodeEvent(record)
		if err != nil {
			return nil, fmt.Errorf("failed to deserialize event %d: %w", record.Sequence, err)
		}
		events = append(events, event)
	}
	if err := iter.Error(); err != nil {
		return nil, err
	}
	return events, nil
}

// GetLastSequence returns the last sequence number for a book, 0 when empty
func (s *PebbleEventStore) GetLastSequence(ctx context.Context, bookID book.BookID) (int64, error) {
	lower, upper := eventBounds(bookID)
	iter, err := s.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: upper})
	if err != nil {
		return 0, err
	}
	defer iter.Close()

	if !iter.Last() {
		return 0, iter.Error()
	}
	var seq int64
	if _, err := fmt.Sscanf(strings.TrimPrefix(string(iter.Key()), string(lower)), "%d", &seq); err != nil {
		return 0, fmt.Errorf("failed to parse event key %s: %w", iter.Key(), err)
	}
	return seq, nil
}

// ListSymbols lists all books that have event logs
func (s *PebbleEventStore) ListSymbols(ctx context.Context) ([]book.BookID, error) {
	iter, err := s.db.NewIter(&pebble.IterOptions{
		LowerBound: []byte(bookKeyPrefix),
		UpperBound: []byte(bookKeyPrefix + "~"),
	})
	if err != nil {
		return nil, err
	}
	defer iter.Close()

	bookIDs := []book.BookID{}
	for iter.First(); iter.Valid(); iter.Next() {
		bookIDs = append(bookIDs, book.BookID(strings.TrimPrefix(string(iter.Key()), bookKeyPrefix)))
	}
	return bookIDs, iter.Error()
}

func (s *PebbleEventStore) Close() error {
	return s.db.Close()
}
