package projection

import (
	"context"
	"errors"

	"matching-core/internal/book"
	"matching-core/internal/client"
)

var (
	ErrEntryNotFound      = errors.New("entry not found")
	ErrTradeNotFound      = errors.New("trade not found")
	ErrInvalidArgument    = errors.New("invalid argument")
	ErrSequenceRegression = errors.New("sequence regression")
	ErrSequenceGap        = errors.New("sequence gap")
	ErrTradeConflict      = errors.New("trade conflict")
)

// EntryRepository defines the interface for entry read model storage
type EntryRepository interface {
	// Save creates or updates an entry view
	Save(ctx context.Context, entry *EntryView) error

	// Get retrieves an entry view by key
	Get(ctx context.Context, key EntryViewKey) (*EntryView, error)

	// ListByRequest retrieves the views of a request on both sides
	ListByRequest(ctx context.Context, bookID book.BookID, who client.Client, requestID string) ([]*EntryView, error)

	// ListByBook retrieves the views of a book
	ListByBook(ctx context.Context, bookID book.BookID, limit int) ([]*EntryView, error)

	// GetLastSequence returns the last applied sequence number for a book
	GetLastSequence(ctx context.Context, bookID book.BookID) (int64, error)

	// SetLastSequence updates the last applied sequence number for a book
	SetLastSequence(ctx context.Context, bookID book.BookID, sequence int64) error
}

// TradeRepository defines the interface for trade read model storage
type TradeRepository interface {
	// Save creates a trade view
	Save(ctx context.Context, trade *TradeView) error

	// GetByID retrieves a trade by trade_id
	GetByID(ctx context.Context, tradeID string) (*TradeView, error)

	// ListByBook retrieves trades for a book
	// fromSequence: if > 0, only return trades with sequence >= fromSequence
	ListByBook(ctx context.Context, bookID book.BookID, fromSequence int64, limit int) ([]*TradeView, error)

	// GetLastSequence returns the last applied sequence number for a book
	GetLastSequence(ctx context.Context, bookID book.BookID) (int64, error)

	// SetLastSequence updates the last applied sequence number for a book
	SetLastSequence(ctx context.Context, bookID book.BookID, sequence int64) error
}
