package engine

import (
	"errors"
	"fmt"
	"sync"
	"time"

	"matching-core/internal/book"
	"matching-core/internal/client"
)

// ErrIdempotencyConflict is returned when an idempotency key is reused
// with a different payload
var ErrIdempotencyConflict = errors.New("idempotency key conflict: same key with different payload")

// IdempotencyKey represents the composite key for idempotency checking
type IdempotencyKey struct {
	WhoRequested   client.Client
	BookID         book.BookID
	Kind           book.CommandKind
	IdempotencyKey string
}

// String returns a string representation of the idempotency key
func (k IdempotencyKey) String() string {
	return fmt.Sprintf("%s/%s:%s:%s:%s",
		k.WhoRequested.FirmID, k.WhoRequested.FirmClientID, k.BookID, k.Kind, k.IdempotencyKey)
}

// IdempotencyRecord stores the cached result of a command execution
type IdempotencyRecord struct {
	PayloadHash string       // Hash of the original payload
	Events      []book.Event // Cached events
	LastEventID int64        // Cached last event ID
	ErrorCode   ErrorCode    // Cached error code
	Err         error        // Cached error
	ExpiresAt   time.Time    // Expiration time
}

// IdempotencyStore manages idempotency records
type IdempotencyStore struct {
	mu      sync.RWMutex
	records map[string]*IdempotencyRecord
	ttl     time.Duration
	now     func() time.Time
}

// NewIdempotencyStore creates a new idempotency store
func NewIdempotencyStore(ttl time.Duration) *IdempotencyStore {
	return &IdempotencyStore{
		records: make(map[string]*IdempotencyRecord),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Check checks if a command is duplicate or conflict
// Returns:
// - (nil, nil) if not seen before (should execute)
// - (result, nil) if duplicate with same payload (return cached result)
// - (nil, error) if conflict with different payload
func (s *IdempotencyStore) Check(key IdempotencyKey, payloadHash string) (*CommandExecResult, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	record, exists := s.records[key.String()]
	if !exists {
		return nil, nil
	}

	if s.now().After(record.ExpiresAt) {
		return nil, nil
	}

	if record.PayloadHash != payloadHash {
		return nil, fmt.Errorf("%w: %s", ErrIdempotencyConflict, key)
	}

	return cloneCommandExecResult(&CommandExecResult{
		Events:      record.Events,
		LastEventID: record.LastEventID,
		ErrorCode:   record.ErrorCode,
		Err:         record.Err,
	}), nil
}

// Store stores the execution result for future idempotency checks
func (s *IdempotencyStore) Store(key IdempotencyKey, payloadHash string, result *CommandExecResult) {
	s.mu.Lock()
	defer s.mu.Unlock()

	cp := cloneCommandExecResult(result)
	s.records[key.String()] = &IdempotencyRecord{
		PayloadHash: payloadHash,
		Events:      cp.Events,
		LastEventID: cp.LastEventID,
		ErrorCode:   cp.ErrorCode,
		Err:         cp.Err,
		ExpiresAt:   s.now().Add(s.ttl),
	}
}

// Cleanup removes expired records
func (s *IdempotencyStore) Cleanup() {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	for key, record := range s.records {
		if now.After(record.ExpiresAt) {
			delete(s.records, key)
		}
	}
}

// Size returns the number of records in the store (for testing)
func (s *IdempotencyStore) Size() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.records)
}
