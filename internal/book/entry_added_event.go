package book

import (
	"time"

	"matching-core/internal/cqrs"
)

// EntryAddedToBookEvent records an entry coming to rest on the book
type EntryAddedToBookEvent struct {
	EventIDValue cqrs.EventID `json:"event_id"`
	BookID       BookID       `json:"book_id"`
	Entry        BookEntry    `json:"entry"`
	WhenHappened time.Time    `json:"when_happened"`
}

func (e EntryAddedToBookEvent) AggregateID() BookID   { return e.BookID }
func (e EntryAddedToBookEvent) EventID() cqrs.EventID { return e.EventIDValue }
func (e EntryAddedToBookEvent) EventType() string     { return "EntryAddedToBook" }

// Play adds the entry to its side of the book
func (e EntryAddedToBookEvent) Play(books Books) (Books, error) {
	eventID, err := books.VerifyEventID(e.EventIDValue)
	if err != nil {
		return books, err
	}
	return books.AddBookEntry(e.Entry).OfEventID(eventID), nil
}
