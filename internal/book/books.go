package book

import (
	"errors"
	"fmt"

	"matching-core/internal/cqrs"
)

// ErrBooksNotFound is returned when a command targets a book that does not exist
var ErrBooksNotFound = errors.New("books not found")

// Event is an event of the Books aggregate
type Event = cqrs.Event[BookID, Books]

// Transaction is the output of a command against the Books aggregate
type Transaction = cqrs.Transaction[BookID, Books]

// Command is a trading intent against one book. Execute receives the
// current aggregate, nil when the book does not exist, and returns either
// a fatal error or a transaction; business rejections are transactions.
type Command interface {
	Kind() CommandKind
	TargetBookID() BookID
	Execute(books *Books) (Transaction, error)
}

// NotFoundError reports a command against a missing book
func NotFoundError(bookID BookID) error {
	return fmt.Errorf("%w: %s", ErrBooksNotFound, bookID)
}

// Books is the aggregate owning every entry of one symbol. It is a value:
// every operation returns a new Books and leaves the receiver untouched.
type Books struct {
	BookID          BookID
	LastEventID     cqrs.EventID
	TradingStatuses TradingStatuses
	BuyLimitBook    LimitBook
	SellLimitBook   LimitBook
}

// NewBooks creates an empty book open for trading
func NewBooks(bookID BookID) Books {
	return Books{
		BookID:          bookID,
		LastEventID:     0,
		TradingStatuses: NewTradingStatuses(TradingStatusOpenForTrading),
		BuyLimitBook:    NewLimitBook(SideBuy),
		SellLimitBook:   NewLimitBook(SideSell),
	}
}

// WithTradingStatuses returns the books under other trading statuses
func (b Books) WithTradingStatuses(statuses TradingStatuses) Books {
	b.TradingStatuses = statuses
	return b
}

// VerifyEventID returns eventID if it is the successor of the last event
func (b Books) VerifyEventID(eventID cqrs.EventID) (cqrs.EventID, error) {
	id, err := cqrs.VerifySuccessor(b.LastEventID, eventID)
	if err != nil {
		return 0, fmt.Errorf("books %s: %w", b.BookID, err)
	}
	return id, nil
}

// OfEventID returns the books with the last event ID set
func (b Books) OfEventID(eventID cqrs.EventID) Books {
	b.LastEventID = eventID
	return b
}

// LimitBookOf returns the limit book of a side
func (b Books) LimitBookOf(side Side) LimitBook {
	limitBook := b.SellLimitBook
	if side == SideBuy {
		limitBook = b.BuyLimitBook
	}
	if limitBook.tree == nil {
		return NewLimitBook(side)
	}
	return limitBook
}

func (b Books) withLimitBook(side Side, limitBook LimitBook) Books {
	if side == SideBuy {
		b.BuyLimitBook = limitBook
	} else {
		b.SellLimitBook = limitBook
	}
	return b
}

// AddBookEntry returns the books with entry added to the side it belongs to
func (b Books) AddBookEntry(entry BookEntry) Books {
	return b.withLimitBook(entry.Side, b.LimitBookOf(entry.Side).Add(entry))
}

// UpdateBookEntry replaces the entry at the same position, removing it
// when nothing is left available
func (b Books) UpdateBookEntry(entry BookEntry) Books {
	limitBook := b.LimitBookOf(entry.Side)
	if entry.Sizes.Available == 0 {
		return b.withLimitBook(entry.Side, limitBook.Remove(entry.SameKey))
	}
	return b.withLimitBook(entry.Side, limitBook.Add(entry))
}

// RemoveBookEntries removes the entries of side matching predicate and
// records eventID as the last event
func (b Books) RemoveBookEntries(eventID cqrs.EventID, side Side, predicate func(BookEntry) bool) Books {
	return b.withLimitBook(side, b.LimitBookOf(side).Remove(predicate)).OfEventID(eventID)
}

// FindBookEntries returns the entries of side matching predicate, in priority order
func (b Books) FindBookEntries(side Side, predicate func(BookEntry) bool) []BookEntry {
	return b.LimitBookOf(side).Find(predicate)
}
