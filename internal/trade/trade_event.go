package trade

import (
	"time"

	"matching-core/internal/book"
	"matching-core/internal/cqrs"
)

// TradeEvent records a fill between an incoming aggressor and a resting
// passive entry. Both entries carry their sizes after the fill.
type TradeEvent struct {
	EventIDValue cqrs.EventID   `json:"event_id"`
	BookID       book.BookID    `json:"book_id"`
	Size         int64          `json:"size"`
	Price        book.Price     `json:"price"`
	WhenHappened time.Time      `json:"when_happened"`
	Aggressor    book.BookEntry `json:"aggressor"`
	Passive      book.BookEntry `json:"passive"`
}

func (e TradeEvent) AggregateID() book.BookID { return e.BookID }
func (e TradeEvent) EventID() cqrs.EventID    { return e.EventIDValue }
func (e TradeEvent) EventType() string        { return "Trade" }

// Play reduces the passive entry, removing it once fully filled. The
// aggressor is not on the book while it matches.
func (e TradeEvent) Play(books book.Books) (book.Books, error) {
	eventID, err := books.VerifyEventID(e.EventIDValue)
	if err != nil {
		return books, err
	}
	return books.UpdateBookEntry(e.Passive).OfEventID(eventID), nil
}
