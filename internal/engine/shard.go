package engine

import (
	"context"
	"crypto/sha256"
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"matching-core/internal/book"
	"matching-core/internal/cqrs"
)

const defaultIdempotencyCleanupInterval = time.Minute

// ErrShardStopped is returned for commands submitted after Stop
var ErrShardStopped = errors.New("shard is stopped")

// Shard executes the commands of the books routed to it, one at a time
type Shard struct {
	id         int
	cmdQueue   chan *commandRequest
	repo       *Repository
	idemStore  *IdempotencyStore
	deps       Dependencies
	maxRetries int
	snapEvery  int64
	logger     *zap.Logger

	submitMu sync.RWMutex
	stopped  bool
	wg       sync.WaitGroup
}

// commandRequest wraps a command with a response channel
type commandRequest struct {
	ctx      context.Context
	envelope *CommandEnvelope
	respChan chan *CommandExecResult
}

// NewShard creates a new shard
func NewShard(id int, config *EngineConfig, repo *Repository, deps Dependencies, logger *zap.Logger) *Shard {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Shard{
		id:         id,
		cmdQueue:   make(chan *commandRequest, config.QueueSize),
		repo:       repo,
		idemStore:  NewIdempotencyStore(config.IdempotencyTTL),
		deps:       deps,
		maxRetries: config.MaxRetries,
		snapEvery:  config.SnapshotEvery,
		logger:     logger.With(zap.Int("shard", id)),
	}
}

// Start starts the shard's event loop in a goroutine
func (s *Shard) Start() {
	s.wg.Add(1)
	go s.eventLoop()
}

// Stop gracefully stops the shard event loop, draining queued commands
func (s *Shard) Stop() {
	s.submitMu.Lock()
	if s.stopped {
		s.submitMu.Unlock()
		return
	}
	s.stopped = true
	close(s.cmdQueue)
	s.submitMu.Unlock()

	s.wg.Wait()
}

// Submit submits a command to the shard and waits for the result
func (s *Shard) Submit(ctx context.Context, envelope *CommandEnvelope) *CommandExecResult {
	if envelope == nil || envelope.Command == nil {
		return errorResult(ErrorCodeInvalidArgument, fmt.Errorf("command envelope is nil"))
	}

	req := &commandRequest{
		ctx:      ctx,
		envelope: envelope,
		respChan: make(chan *CommandExecResult, 1),
	}

	s.submitMu.RLock()
	if s.stopped {
		s.submitMu.RUnlock()
		return errorResult(ErrorCodeUnavailable, ErrShardStopped)
	}
	select {
	case s.cmdQueue <- req:
	case <-ctx.Done():
		s.submitMu.RUnlock()
		return errorResult(ErrorCodeUnavailable, ctx.Err())
	}
	s.submitMu.RUnlock()

	// A queued command runs even if the caller stops waiting
	select {
	case result := <-req.respChan:
		return result
	case <-ctx.Done():
		return errorResult(ErrorCodeUnavailable, ctx.Err())
	}
}

// eventLoop is the main event loop that processes commands serially
func (s *Shard) eventLoop() {
	defer s.wg.Done()

	ticker := time.NewTicker(defaultIdempotencyCleanupInterval)
	defer ticker.Stop()

	for {
		select {
		case req, ok := <-s.cmdQueue:
			if !ok {
				return
			}
			if req == nil {
				continue
			}
			req.respChan <- s.processCommand(context.WithoutCancel(req.ctx), req.envelope)
		case <-ticker.C:
			s.idemStore.Cleanup()
		}
	}
}

// processCommand processes a single command
func (s *Shard) processCommand(ctx context.Context, envelope *CommandEnvelope) *CommandExecResult {
	if envelope.IdempotencyKey == "" {
		return s.execute(ctx, envelope.Command)
	}

	idemKey := IdempotencyKey{
		WhoRequested:   envelope.WhoRequested,
		BookID:         envelope.BookID(),
		Kind:           envelope.Command.Kind(),
		IdempotencyKey: envelope.IdempotencyKey,
	}

	cachedResult, err := s.idemStore.Check(idemKey, envelope.PayloadHash)
	if err != nil {
		return errorResult(ErrorCodeDuplicateRequest, err)
	}
	if cachedResult != nil {
		s.logger.Debug("duplicate command served from cache",
			zap.String("command_id", envelope.CommandID),
			zap.String("idempotency_key", idemKey.String()))
		return cachedResult
	}

	result := s.execute(ctx, envelope.Command)

	// Only outcomes of the command itself are cached, never transient failures
	if result.ErrorCode == ErrorCodeNone || result.ErrorCode == ErrorCodeBookNotFound {
		s.idemStore.Store(idemKey, envelope.PayloadHash, result)
	}

	return result
}

// execute runs cmd against the current books and commits the transaction,
// recomputing it when the books changed in between
func (s *Shard) execute(ctx context.Context, cmd book.Command) *CommandExecResult {
	bookID := cmd.TargetBookID()

	for attempt := 0; ; attempt++ {
		current, version, exists := s.repo.Load(bookID)
		var target *book.Books
		if exists {
			target = &current
		}

		txn, err := cmd.Execute(target)
		if err != nil {
			return errorResult(mapErrorCode(err), err)
		}

		err = s.repo.Commit(version, txn, func(events []book.Event) error {
			return s.appendEvents(ctx, bookID, events)
		})
		if errors.Is(err, ErrStaleAggregate) && attempt < s.maxRetries {
			s.logger.Warn("retrying command on stale books",
				zap.String("book_id", string(bookID)),
				zap.String("kind", string(cmd.Kind())),
				zap.Int("attempt", attempt+1))
			continue
		}
		if err != nil {
			s.logger.Error("command commit failed",
				zap.String("book_id", string(bookID)),
				zap.String("kind", string(cmd.Kind())),
				zap.Error(err))
			return errorResult(mapErrorCode(err), err)
		}

		s.afterCommit(ctx, current.LastEventID, txn)
		return &CommandExecResult{
			Events:      txn.Events,
			LastEventID: int64(txn.Aggregate.LastEventID),
		}
	}
}

func (s *Shard) appendEvents(ctx context.Context, bookID book.BookID, events []book.Event) error {
	if s.deps.EventStore == nil || len(events) == 0 {
		return nil
	}
	if err := s.deps.EventStore.Append(ctx, bookID, events...); err != nil {
		return fmt.Errorf("failed to append events: %w", err)
	}
	return nil
}

// afterCommit hands committed events to the outer layers. Their failures
// are logged: the events are already durable and recovery rebuilds both.
func (s *Shard) afterCommit(ctx context.Context, previous cqrs.EventID, txn book.Transaction) {
	bookID := txn.Aggregate.BookID
	last := txn.Aggregate.LastEventID

	s.logger.Debug("transaction committed",
		zap.String("book_id", string(bookID)),
		zap.Int("events", len(txn.Events)),
		zap.Int64("last_event_id", int64(last)))

	if s.deps.Publisher != nil && len(txn.Events) > 0 {
		if err := s.deps.Publisher.Publish(ctx, bookID, txn.Events); err != nil {
			s.logger.Warn("failed to publish events",
				zap.String("book_id", string(bookID)),
				zap.Error(err))
		}
	}

	if s.deps.Projector != nil {
		for _, event := range txn.Events {
			if err := s.deps.Projector.Project(ctx, event); err != nil {
				s.logger.Error("failed to project event",
					zap.String("book_id", string(bookID)),
					zap.Int64("event_id", int64(event.EventID())),
					zap.Error(err))
				break
			}
		}
	}

	if s.deps.SnapshotStore != nil && s.snapEvery > 0 && int64(last)/s.snapEvery > int64(previous)/s.snapEvery {
		if err := saveSnapshot(ctx, s.repo, s.deps.SnapshotStore, bookID); err != nil {
			s.logger.Warn("failed to save snapshot",
				zap.String("book_id", string(bookID)),
				zap.Error(err))
		}
	}
}

// mapErrorCode maps execution errors to error codes
func mapErrorCode(err error) ErrorCode {
	switch {
	case errors.Is(err, book.ErrBooksNotFound):
		return ErrorCodeBookNotFound
	case errors.Is(err, ErrStaleAggregate), errors.Is(err, ErrBookExists):
		return ErrorCodeConflict
	case errors.Is(err, ErrIdempotencyConflict):
		return ErrorCodeDuplicateRequest
	case errors.Is(err, ErrShardStopped), errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return ErrorCodeUnavailable
	}
	return ErrorCodeInternalError
}

func errorResult(code ErrorCode, err error) *CommandExecResult {
	return &CommandExecResult{ErrorCode: code, Err: err}
}

// ComputePayloadHash computes SHA256 hash of the payload
func ComputePayloadHash(payload any) (string, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return "", err
	}
	hash := sha256.Sum256(data)
	return fmt.Sprintf("%x", hash), nil
}
