package quote

import (
	"time"

	"matching-core/internal/book"
	"matching-core/internal/client"
	"matching-core/internal/cqrs"
)

// MassQuotePlacedEvent records a mass quote accepted for matching. Its legs
// rest on the book through the EntryAddedToBookEvents that follow.
type MassQuotePlacedEvent struct {
	EventIDValue cqrs.EventID     `json:"event_id"`
	QuoteID      string           `json:"quote_id"`
	WhoRequested client.Client    `json:"who_requested"`
	BookID       book.BookID      `json:"book_id"`
	TimeInForce  book.TimeInForce `json:"time_in_force"`
	Entries      []Entry          `json:"entries"`
	WhenHappened time.Time        `json:"when_happened"`
}

func (e MassQuotePlacedEvent) AggregateID() book.BookID { return e.BookID }
func (e MassQuotePlacedEvent) EventID() cqrs.EventID    { return e.EventIDValue }
func (e MassQuotePlacedEvent) EventType() string        { return "MassQuotePlaced" }

func (e MassQuotePlacedEvent) Play(books book.Books) (book.Books, error) {
	eventID, err := books.VerifyEventID(e.EventIDValue)
	if err != nil {
		return books, err
	}
	return books.OfEventID(eventID), nil
}

// BookEntries returns one book entry per quoted leg, bid before offer,
// keyed by the event ID and the leg's position in the quote
func (e MassQuotePlacedEvent) BookEntries() []book.BookEntry {
	var entries []book.BookEntry
	for _, quoteEntry := range e.Entries {
		for _, l := range quoteEntry.legs() {
			entries = append(entries, book.BookEntry{
				Key: book.EntryKey{
					Price:         book.NewPrice(int64(l.Price)),
					WhenSubmitted: e.WhenHappened,
					EventID:       e.EventIDValue,
					Sequence:      len(entries),
				},
				RequestID: client.RequestID{
					Current:      quoteEntry.QuoteEntryID,
					CollectionID: quoteEntry.QuoteSetID,
					ParentID:     e.QuoteID,
				},
				WhoRequested: e.WhoRequested,
				IsQuote:      true,
				EntryType:    book.EntryTypeLimit,
				Side:         l.side,
				TimeInForce:  e.TimeInForce,
				Sizes:        book.EntrySizes{Available: l.Size},
				Status:       book.EntryStatusNew,
			})
		}
	}
	return entries
}

// MassQuoteRejectedEvent records a mass quote that failed validation
type MassQuoteRejectedEvent struct {
	EventIDValue cqrs.EventID  `json:"event_id"`
	QuoteID      string        `json:"quote_id"`
	WhoRequested client.Client `json:"who_requested"`
	BookID       book.BookID   `json:"book_id"`
	Entries      []Entry       `json:"entries"`
	WhenHappened time.Time     `json:"when_happened"`
	RejectReason RejectReason  `json:"reject_reason"`
	RejectText   string        `json:"reject_text,omitempty"`
}

func (e MassQuoteRejectedEvent) AggregateID() book.BookID { return e.BookID }
func (e MassQuoteRejectedEvent) EventID() cqrs.EventID    { return e.EventIDValue }
func (e MassQuoteRejectedEvent) EventType() string        { return "MassQuoteRejected" }

func (e MassQuoteRejectedEvent) Play(books book.Books) (book.Books, error) {
	eventID, err := books.VerifyEventID(e.EventIDValue)
	if err != nil {
		return books, err
	}
	return books.OfEventID(eventID), nil
}

// MassQuoteCancelledEvent records the removal of quote legs. Entries hold
// every cancelled leg with its sizes after cancellation.
type MassQuoteCancelledEvent struct {
	EventIDValue cqrs.EventID     `json:"event_id"`
	WhoRequested client.Client    `json:"who_requested"`
	BookID       book.BookID      `json:"book_id"`
	Entries      []book.BookEntry `json:"entries"`
	WhenHappened time.Time        `json:"when_happened"`
}

func (e MassQuoteCancelledEvent) AggregateID() book.BookID { return e.BookID }
func (e MassQuoteCancelledEvent) EventID() cqrs.EventID    { return e.EventIDValue }
func (e MassQuoteCancelledEvent) EventType() string        { return "MassQuoteCancelled" }

// Play removes every listed leg from its side
func (e MassQuoteCancelledEvent) Play(books book.Books) (book.Books, error) {
	eventID, err := books.VerifyEventID(e.EventIDValue)
	if err != nil {
		return books, err
	}
	listed := func(entry book.BookEntry) bool {
		for _, cancelled := range e.Entries {
			if entry.SameKey(cancelled) {
				return true
			}
		}
		return false
	}
	return books.
		RemoveBookEntries(eventID, book.SideBuy, listed).
		RemoveBookEntries(eventID, book.SideSell, listed), nil
}

// MassQuoteCancelRejectedEvent records a mass quote cancellation that could
// not be honoured
type MassQuoteCancelRejectedEvent struct {
	EventIDValue cqrs.EventID  `json:"event_id"`
	WhoRequested client.Client `json:"who_requested"`
	BookID       book.BookID   `json:"book_id"`
	WhenHappened time.Time     `json:"when_happened"`
	RejectReason RejectReason  `json:"reject_reason"`
	RejectText   string        `json:"reject_text,omitempty"`
}

func (e MassQuoteCancelRejectedEvent) AggregateID() book.BookID { return e.BookID }
func (e MassQuoteCancelRejectedEvent) EventID() cqrs.EventID    { return e.EventIDValue }
func (e MassQuoteCancelRejectedEvent) EventType() string        { return "MassQuoteCancelRejected" }

// Play only advances the last event ID
func (e MassQuoteCancelRejectedEvent) Play(books book.Books) (book.Books, error) {
	eventID, err := books.VerifyEventID(e.EventIDValue)
	if err != nil {
		return books, err
	}
	return books.OfEventID(eventID), nil
}
