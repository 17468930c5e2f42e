package persistence

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"

	"matching-core/internal/book"
)

const eventsFileName = "events.log"

// logFile is the append handle of one book's log
type logFile interface {
	Write(p []byte) (int, error)
	Sync() error
	Stat() (os.FileInfo, error)
	Truncate(size int64) error
	Close() error
}

func openLogFile(path string) (logFile, error) {
	file, err := os.OpenFile(path, os.O_CREATE|os.O_APPEND|os.O_WRONLY, 0644)
	if err != nil {
		return nil, err
	}
	return file, nil
}

// FileEventStore implements EventStore using one JSONL file per book
type FileEventStore struct {
	baseDir string
	logger  *zap.Logger
	mu      sync.RWMutex
	files   map[book.BookID]logFile
	open    func(path string) (logFile, error)
}

// NewFileEventStore creates a new file-based event store
func NewFileEventStore(baseDir string, logger *zap.Logger) (*FileEventStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &FileEventStore{
		baseDir: baseDir,
		logger:  logger,
		files:   make(map[book.BookID]logFile),
		open:    openLogFile,
	}, nil
}

// Append writes all events with a single write and fsync
func (s *FileEventStore) Append(ctx context.Context, bookID book.BookID, events ...book.Event) error {
	if len(events) == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	now := time.Now().UTC()
	for _, event := range events {
		data, err := MarshalEvent(event, now)
		if err != nil {
			return err
		}
		buf.Write(data)
		buf.WriteByte('\n')
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	file, err := s.getOrCreateFile(bookID)
	if err != nil {
		return fmt.Errorf("failed to get file for book %s: %w", bookID, err)
	}
	info, err := file.Stat()
	if err != nil {
		return fmt.Errorf("failed to stat events file: %w", err)
	}
	if _, err := file.Write(buf.Bytes()); err != nil {
		return s.rollback(bookID, file, info.Size(), fmt.Errorf("failed to write events: %w", err))
	}
	if err := file.Sync(); err != nil {
		return s.rollback(bookID, file, info.Size(), fmt.Errorf("failed to sync file: %w", err))
	}

	s.logger.Debug("events appended",
		zap.String("book_id", string(bookID)),
		zap.Int64("first_sequence", int64(events[0].EventID())),
		zap.Int("count", len(events)))
	return nil
}

// rollback cuts the log back to size so that a failed append leaves no
// events behind. A log that cannot be cut is closed; the next append
// reopens it.
func (s *FileEventStore) rollback(bookID book.BookID, file logFile, size int64, cause error) error {
	err := file.Truncate(size)
	if err == nil {
		err = file.Sync()
	}
	if err == nil {
		return cause
	}

	s.logger.Error("failed to roll back events file",
		zap.String("book_id", string(bookID)),
		zap.Int64("size", size),
		zap.Error(err))
	delete(s.files, bookID)
	file.Close()
	return errors.Join(cause, fmt.Errorf("failed to roll back events file: %w", err))
}

// getOrCreateFile gets or creates a file handle for a book
func (s *FileEventStore) getOrCreateFile(bookID book.BookID) (logFile, error) {
	if file, ok := s.files[bookID]; ok {
		return file, nil
	}

	bookDir := filepath.Join(s.baseDir, string(bookID))
	if err := os.MkdirAll(bookDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create book directory: %w", err)
	}

	file, err := s.open(filepath.Join(bookDir, eventsFileName))
	if err != nil {
		return nil, fmt.Errorf("failed to open events file: %w", err)
	}

	s.files[bookID] = file
	return file, nil
}

// scan calls fn with every record of a book's log, in file order
func (s *FileEventStore) scan(bookID book.BookID, fn func(EventRecord) error) error {
	file, err := os.Open(filepath.Join(s.baseDir, string(bookID), eventsFileName))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to open events file: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	scanner.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	for scanner.Scan() {
		line := scanner.Bytes()
		if len(line) == 0 {
			continue
		}
		var record EventRecord
		if err := json.Unmarshal(line, &record); err != nil {
			return fmt.Errorf("failed to unmarshal event record: %w", err)
		}
		if err := fn(record); err != nil {
			return err
		}
	}
	if err := scanner.Err(); err != nil {
		return fmt.Errorf("failed to scan events file: %w", err)
	}
	return nil
}

// ReadFrom reads events from a specific sequence number (inclusive)
func (s *FileEventStore) ReadFrom(ctx context.Context, bookID book.BookID, fromSeq int64) ([]book.Event, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	events := []book.Event{}
	err := s.scan(bookID, func(record EventRecord) error {
		if record.Sequence < fromSeq {
			return nil
		}
		if err := ctx.Err(); err != nil {
			return err
		}
		event, err := DecodeEvent(record)
		if err != nil {
			return fmt.Errorf("failed to deserialize event %d: %w", record.Sequence, err)
		}
		events = append(events, event)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// GetLastSequence returns the last sequence number for a book, 0 when empty
func (s *FileEventStore) GetLastSequence(ctx context.Context, bookID book.BookID) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	var lastSeq int64
	err := s.scan(bookID, func(record EventRecord) error {
		lastSeq = max(lastSeq, record.Sequence)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return lastSeq, nil
}

// ListSymbols lists all books that have event logs
func (s *FileEventStore) ListSymbols(ctx context.Context) ([]book.BookID, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	entries, err := os.ReadDir(s.baseDir)
	if os.IsNotExist(err) {
		return []book.BookID{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read base directory: %w", err)
	}

	var bookIDs []book.BookID
	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		if _, err := os.Stat(filepath.Join(s.baseDir, entry.Name(), eventsFileName)); err == nil {
			bookIDs = append(bookIDs, book.BookID(entry.Name()))
		}
	}
	return bookIDs, nil
}

// Close closes all open file handles
func (s *FileEventStore) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()

	var errs []error
	for bookID, file := range s.files {
		if err := file.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close file for book %s: %w", bookID, err))
		}
	}
	s.files = make(map[book.BookID]logFile)

	if len(errs) > 0 {
		return fmt.Errorf("errors closing files: %v", errs)
	}
	return nil
}
