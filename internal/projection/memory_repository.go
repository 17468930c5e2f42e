package projection

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"matching-core/internal/book"
	"matching-core/internal/client"
)

// MemoryEntryRepository is an in-memory implementation of EntryRepository
type MemoryEntryRepository struct {
	mu sync.RWMutex

	// Primary storage: key -> EntryView
	entries map[EntryViewKey]*EntryView

	// Indexes for efficient queries
	byBook map[book.BookID][]*EntryView // book_id -> []*EntryView

	// Last applied sequence per book
	lastSequence map[book.BookID]int64
}

// NewMemoryEntryRepository creates a new in-memory entry repository
func NewMemoryEntryRepository() *MemoryEntryRepository {
	return &MemoryEntryRepository{
		entries:      make(map[EntryViewKey]*EntryView),
		byBook:       make(map[book.BookID][]*EntryView),
		lastSequence: make(map[book.BookID]int64),
	}
}

// Save creates or updates an entry view
func (r *MemoryEntryRepository) Save(ctx context.Context, entry *EntryView) error {
	if entry == nil {
		return ErrInvalidArgument
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	entryCopy := cloneEntryView(entry)
	key := entryCopy.Key()

	if existing, exists := r.entries[key]; exists {
		r.removeFromIndexes(existing)
	}

	r.entries[key] = entryCopy
	r.byBook[entryCopy.BookID] = append(r.byBook[entryCopy.BookID], entryCopy)

	return nil
}

// Get retrieves an entry view by key
func (r *MemoryEntryRepository) Get(ctx context.Context, key EntryViewKey) (*EntryView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entry, exists := r.entries[key]
	if !exists {
		return nil, fmt.Errorf("%w: %s", ErrEntryNotFound, key)
	}

	return cloneEntryView(entry), nil
}

// ListByRequest retrieves the views of a request, buy side first
func (r *MemoryEntryRepository) ListByRequest(ctx context.Context, bookID book.BookID, who client.Client, requestID string) ([]*EntryView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var out []*EntryView
	for _, side := range []book.Side{book.SideBuy, book.SideSell} {
		key := EntryViewKey{BookID: bookID, WhoRequested: who, RequestID: requestID, Side: side}
		if entry, exists := r.entries[key]; exists {
			out = append(out, cloneEntryView(entry))
		}
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("%w: book=%s request=%s", ErrEntryNotFound, bookID, requestID)
	}

	return out, nil
}

// ListByBook retrieves the views of a book in the order they were last updated
func (r *MemoryEntryRepository) ListByBook(ctx context.Context, bookID book.BookID, limit int) ([]*EntryView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, exists := r.byBook[bookID]
	if !exists {
		return []*EntryView{}, nil
	}

	if limit > 0 && len(entries) > limit {
		return cloneEntryViews(entries[:limit]), nil
	}

	return cloneEntryViews(entries), nil
}

// GetLastSequence returns the last applied sequence number for a book
func (r *MemoryEntryRepository) GetLastSequence(ctx context.Context, bookID book.BookID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lastSequence[bookID], nil
}

// SetLastSequence updates the last applied sequence number for a book
func (r *MemoryEntryRepository) SetLastSequence(ctx context.Context, bookID book.BookID, sequence int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.lastSequence[bookID]
	if sequence < current {
		return fmt.Errorf("%w: book=%s current=%d new=%d", ErrSequenceRegression, bookID, current, sequence)
	}

	r.lastSequence[bookID] = sequence
	return nil
}

func (r *MemoryEntryRepository) removeFromIndexes(entry *EntryView) {
	entries := r.byBook[entry.BookID]
	for i, e := range entries {
		if e == entry {
			r.byBook[entry.BookID] = append(entries[:i], entries[i+1:]...)
			break
		}
	}
	if len(r.byBook[entry.BookID]) == 0 {
		delete(r.byBook, entry.BookID)
	}
}

// MemoryTradeRepository is an in-memory implementation of TradeRepository
type MemoryTradeRepository struct {
	mu sync.RWMutex

	// Primary storage: trade_id -> TradeView
	trades map[string]*TradeView

	// book_id -> []*TradeView (sorted by sequence)
	byBook map[book.BookID][]*TradeView

	// Last applied sequence per book
	lastSequence map[book.BookID]int64
}

// NewMemoryTradeRepository creates a new in-memory trade repository
func NewMemoryTradeRepository() *MemoryTradeRepository {
	return &MemoryTradeRepository{
		trades:       make(map[string]*TradeView),
		byBook:       make(map[book.BookID][]*TradeView),
		lastSequence: make(map[book.BookID]int64),
	}
}

// Save creates a trade view
func (r *MemoryTradeRepository) Save(ctx context.Context, trade *TradeView) error {
	if trade == nil {
		return ErrInvalidArgument
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	tradeCopy := cloneTradeView(trade)

	// Same trade ID must not create duplicate index entries
	if existing, exists := r.trades[tradeCopy.TradeID]; exists {
		if sameTrade(existing, tradeCopy) {
			return nil
		}
		return fmt.Errorf("%w: trade_id=%s", ErrTradeConflict, tradeCopy.TradeID)
	}

	r.trades[tradeCopy.TradeID] = tradeCopy

	trades := append(r.byBook[tradeCopy.BookID], tradeCopy)
	sort.Slice(trades, func(i, j int) bool {
		return trades[i].Sequence < trades[j].Sequence
	})
	r.byBook[tradeCopy.BookID] = trades

	return nil
}

// GetByID retrieves a trade by trade_id
func (r *MemoryTradeRepository) GetByID(ctx context.Context, tradeID string) (*TradeView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trade, exists := r.trades[tradeID]
	if !exists {
		return nil, ErrTradeNotFound
	}

	return cloneTradeView(trade), nil
}

// ListByBook retrieves trades for a book
func (r *MemoryTradeRepository) ListByBook(ctx context.Context, bookID book.BookID, fromSequence int64, limit int) ([]*TradeView, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	trades, exists := r.byBook[bookID]
	if !exists {
		return []*TradeView{}, nil
	}

	var filtered []*TradeView
	if fromSequence > 0 {
		for _, trade := range trades {
			if trade.Sequence >= fromSequence {
				filtered = append(filtered, trade)
			}
		}
	} else {
		filtered = trades
	}

	if limit > 0 && len(filtered) > limit {
		return cloneTradeViews(filtered[:limit]), nil
	}

	return cloneTradeViews(filtered), nil
}

// GetLastSequence returns the last applied sequence number for a book
func (r *MemoryTradeRepository) GetLastSequence(ctx context.Context, bookID book.BookID) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.lastSequence[bookID], nil
}

// SetLastSequence updates the last applied sequence number for a book
func (r *MemoryTradeRepository) SetLastSequence(ctx context.Context, bookID book.BookID, sequence int64) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current := r.lastSequence[bookID]
	if sequence < current {
		return fmt.Errorf("%w: book=%s current=%d new=%d", ErrSequenceRegression, bookID, current, sequence)
	}

	r.lastSequence[bookID] = sequence
	return nil
}

func cloneEntryView(in *EntryView) *EntryView {
	if in == nil {
		return nil
	}
	cp := *in
	if in.Price != nil {
		price := *in.Price
		cp.Price = &price
	}
	return &cp
}

func cloneEntryViews(in []*EntryView) []*EntryView {
	out := make([]*EntryView, 0, len(in))
	for _, v := range in {
		out = append(out, cloneEntryView(v))
	}
	return out
}

func cloneTradeView(in *TradeView) *TradeView {
	if in == nil {
		return nil
	}
	cp := *in
	return &cp
}

func cloneTradeViews(in []*TradeView) []*TradeView {
	out := make([]*TradeView, 0, len(in))
	for _, v := range in {
		out = append(out, cloneTradeView(v))
	}
	return out
}

func sameTrade(a, b *TradeView) bool {
	if a == nil || b == nil {
		return a == b
	}

	return a.TradeID == b.TradeID &&
		a.BookID == b.BookID &&
		a.AggressorRequester == b.AggressorRequester &&
		a.AggressorRequestID == b.AggressorRequestID &&
		a.AggressorSide == b.AggressorSide &&
		a.PassiveRequester == b.PassiveRequester &&
		a.PassiveRequestID == b.PassiveRequestID &&
		a.Price == b.Price &&
		a.Size == b.Size &&
		a.Sequence == b.Sequence &&
		a.OccurredAt.Equal(b.OccurredAt)
}
