package engine

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"matching-core/internal/book"
	"matching-core/internal/persistence"
)

// Dependencies are the outer layers a committed transaction flows into.
// Any of them may be nil.
type Dependencies struct {
	EventStore    persistence.EventStore
	SnapshotStore persistence.SnapshotStore
	Recovery      persistence.RecoveryService
	Publisher     Publisher
	Projector     Projector
}

// Engine manages multiple shards and routes commands to them
type Engine struct {
	router *Router
	shards []*Shard
	repo   *Repository
	deps   Dependencies
	logger *zap.Logger
}

// EngineConfig holds configuration for the engine
type EngineConfig struct {
	ShardCount     int           // Number of shards (default: 8)
	QueueSize      int           // Command queue size per shard (default: 1000)
	IdempotencyTTL time.Duration // Idempotency record TTL (default: 24h)
	MaxRetries     int           // Recomputations of a command on stale books (default: 3)
	SnapshotEvery  int64         // Snapshot a book every N events, 0 disables (default: 1000)
}

// DefaultEngineConfig returns default engine configuration
func DefaultEngineConfig() *EngineConfig {
	return &EngineConfig{
		ShardCount:     8,
		QueueSize:      1000,
		IdempotencyTTL: 24 * time.Hour,
		MaxRetries:     3,
		SnapshotEvery:  1000,
	}
}

// NewEngine creates a new engine with the given configuration
func NewEngine(config *EngineConfig, deps Dependencies, logger *zap.Logger) *Engine {
	if config == nil {
		config = DefaultEngineConfig()
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	repo := NewRepository()
	router := NewRouter(config.ShardCount)

	shards := make([]*Shard, config.ShardCount)
	for i := 0; i < config.ShardCount; i++ {
		shards[i] = NewShard(i, config, repo, deps, logger)
		shards[i].Start()
	}

	return &Engine{
		router: router,
		shards: shards,
		repo:   repo,
		deps:   deps,
		logger: logger,
	}
}

// Submit submits a command to the appropriate shard and returns the result
func (e *Engine) Submit(ctx context.Context, envelope *CommandEnvelope) *CommandExecResult {
	if envelope == nil || envelope.Command == nil {
		return errorResult(ErrorCodeInvalidArgument, fmt.Errorf("command envelope is nil"))
	}
	shard := e.shards[e.router.Route(envelope.BookID())]
	return shard.Submit(ctx, envelope)
}

// GetShardID returns the shard ID for a given book (for testing)
func (e *Engine) GetShardID(bookID book.BookID) int {
	return e.router.Route(bookID)
}

// OpenBook creates an empty book under the given trading statuses and
// snapshots it so that it survives a restart before its first event
func (e *Engine) OpenBook(ctx context.Context, bookID book.BookID, statuses book.TradingStatuses) (book.Books, error) {
	if bookID == "" {
		return book.Books{}, fmt.Errorf("book id is required")
	}
	books := book.NewBooks(bookID).WithTradingStatuses(statuses)
	if err := e.repo.Create(books); err != nil {
		return book.Books{}, err
	}
	if err := e.saveSnapshot(ctx, bookID); err != nil {
		return book.Books{}, err
	}

	e.logger.Info("book opened",
		zap.String("book_id", string(bookID)),
		zap.String("status", string(statuses.EffectiveStatus())))
	return books, nil
}

// SetTradingStatuses changes the trading statuses of a book. Commands
// computed against the previous statuses are recomputed.
func (e *Engine) SetTradingStatuses(ctx context.Context, bookID book.BookID, statuses book.TradingStatuses) (book.Books, error) {
	books, err := e.repo.Update(bookID, func(b book.Books) book.Books {
		return b.WithTradingStatuses(statuses)
	})
	if err != nil {
		return book.Books{}, err
	}
	if err := e.saveSnapshot(ctx, bookID); err != nil {
		return book.Books{}, err
	}

	e.logger.Info("trading status changed",
		zap.String("book_id", string(bookID)),
		zap.String("status", string(statuses.EffectiveStatus())))
	return books, nil
}

// Books returns the current aggregate of a book
func (e *Engine) Books(bookID book.BookID) (book.Books, error) {
	books, _, ok := e.repo.Load(bookID)
	if !ok {
		return book.Books{}, book.NotFoundError(bookID)
	}
	return books, nil
}

// BookIDs lists the books the engine serves
func (e *Engine) BookIDs() []book.BookID {
	return e.repo.BookIDs()
}

// Recover rebuilds every book found in the event store, plus the given
// ones, before any command is served. Given books without history are
// opened empty under their initial statuses. Read models are rebuilt from
// the full event log.
func (e *Engine) Recover(ctx context.Context, initial map[book.BookID]book.TradingStatuses) error {
	ids := map[book.BookID]bool{}
	for id := range initial {
		ids[id] = true
	}
	if e.deps.EventStore != nil {
		stored, err := e.deps.EventStore.ListSymbols(ctx)
		if err != nil {
			return fmt.Errorf("failed to list books: %w", err)
		}
		for _, id := range stored {
			ids[id] = true
		}
	}

	sorted := make([]book.BookID, 0, len(ids))
	for id := range ids {
		sorted = append(sorted, id)
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

	for _, id := range sorted {
		found := false
		if e.deps.Recovery != nil {
			books, ok, err := e.deps.Recovery.Recover(ctx, id)
			if err != nil {
				return fmt.Errorf("failed to recover book %s: %w", id, err)
			}
			if ok {
				e.repo.Put(books)
				found = true
			}
		}
		if !found {
			statuses, ok := initial[id]
			if !ok {
				statuses = book.NewTradingStatuses(book.TradingStatusOpenForTrading)
			}
			if _, err := e.OpenBook(ctx, id, statuses); err != nil && !errors.Is(err, ErrBookExists) {
				return err
			}
			continue
		}
		if err := e.rebuildProjection(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

func (e *Engine) rebuildProjection(ctx context.Context, bookID book.BookID) error {
	if e.deps.Projector == nil || e.deps.EventStore == nil {
		return nil
	}
	events, err := e.deps.EventStore.ReadFrom(ctx, bookID, 1)
	if err != nil {
		return fmt.Errorf("failed to read events of %s: %w", bookID, err)
	}
	for _, event := range events {
		if err := e.deps.Projector.Project(ctx, event); err != nil {
			return fmt.Errorf("failed to rebuild projection of %s: %w", bookID, err)
		}
	}
	return nil
}

func (e *Engine) saveSnapshot(ctx context.Context, bookID book.BookID) error {
	return saveSnapshot(ctx, e.repo, e.deps.SnapshotStore, bookID)
}

// saveSnapshot persists the books as they are when the save runs, not as
// the caller last saw them
func saveSnapshot(ctx context.Context, repo *Repository, store persistence.SnapshotStore, bookID book.BookID) error {
	if store == nil {
		return nil
	}
	err := repo.SaveLatest(bookID, func(books book.Books) error {
		return store.Save(ctx, books.Snapshot(time.Now().UTC()))
	})
	if err != nil {
		return fmt.Errorf("failed to save snapshot: %w", err)
	}
	return nil
}

// Stop stops every shard after draining its queue
func (e *Engine) Stop() {
	for _, shard := range e.shards {
		shard.Stop()
	}
}
