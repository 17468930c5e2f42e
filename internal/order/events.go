package order

import (
	"time"

	"matching-core/internal/book"
	"matching-core/internal/client"
	"matching-core/internal/cqrs"
)

// OrderPlacedEvent records an order accepted for matching. The entry only
// rests on the book once an EntryAddedToBookEvent follows.
type OrderPlacedEvent struct {
	EventIDValue cqrs.EventID     `json:"event_id"`
	RequestID    client.RequestID `json:"request_id"`
	WhoRequested client.Client    `json:"who_requested"`
	BookID       book.BookID      `json:"book_id"`
	EntryType    book.EntryType   `json:"entry_type"`
	Side         book.Side        `json:"side"`
	Price        *book.Price      `json:"price,omitempty"`
	TimeInForce  book.TimeInForce `json:"time_in_force"`
	Sizes        book.EntrySizes  `json:"sizes"`
	Status       book.EntryStatus `json:"status"`
	WhenHappened time.Time        `json:"when_happened"`
}

func (e OrderPlacedEvent) AggregateID() book.BookID { return e.BookID }
func (e OrderPlacedEvent) EventID() cqrs.EventID    { return e.EventIDValue }
func (e OrderPlacedEvent) EventType() string        { return "OrderPlaced" }

func (e OrderPlacedEvent) Play(books book.Books) (book.Books, error) {
	eventID, err := books.VerifyEventID(e.EventIDValue)
	if err != nil {
		return books, err
	}
	return books.OfEventID(eventID), nil
}

// Entry returns the book entry the placed order becomes
func (e OrderPlacedEvent) Entry() book.BookEntry {
	return book.BookEntry{
		Key: book.EntryKey{
			Price:         e.Price,
			WhenSubmitted: e.WhenHappened,
			EventID:       e.EventIDValue,
		},
		RequestID:    e.RequestID,
		WhoRequested: e.WhoRequested,
		EntryType:    e.EntryType,
		Side:         e.Side,
		TimeInForce:  e.TimeInForce,
		Sizes:        e.Sizes,
		Status:       e.Status,
	}
}

// OrderRejectedEvent records an order that failed validation
type OrderRejectedEvent struct {
	EventIDValue cqrs.EventID     `json:"event_id"`
	RequestID    client.RequestID `json:"request_id"`
	WhoRequested client.Client    `json:"who_requested"`
	BookID       book.BookID      `json:"book_id"`
	EntryType    book.EntryType   `json:"entry_type"`
	Side         book.Side        `json:"side"`
	Size         int64            `json:"size"`
	Price        *book.Price      `json:"price,omitempty"`
	TimeInForce  book.TimeInForce `json:"time_in_force"`
	Status       book.EntryStatus `json:"status"`
	WhenHappened time.Time        `json:"when_happened"`
	RejectReason RejectReason     `json:"reject_reason"`
	RejectText   string           `json:"reject_text,omitempty"`
}

func (e OrderRejectedEvent) AggregateID() book.BookID { return e.BookID }
func (e OrderRejectedEvent) EventID() cqrs.EventID    { return e.EventIDValue }
func (e OrderRejectedEvent) EventType() string        { return "OrderRejected" }

func (e OrderRejectedEvent) Play(books book.Books) (book.Books, error) {
	eventID, err := books.VerifyEventID(e.EventIDValue)
	if err != nil {
		return books, err
	}
	return books.OfEventID(eventID), nil
}

// OrderCancelledEvent records resting entries leaving the book. Sizes and
// Status describe the entry after cancellation.
type OrderCancelledEvent struct {
	EventIDValue cqrs.EventID     `json:"event_id"`
	RequestID    client.RequestID `json:"request_id"`
	WhoRequested client.Client    `json:"who_requested"`
	BookID       book.BookID      `json:"book_id"`
	EntryType    book.EntryType   `json:"entry_type"`
	Side         book.Side        `json:"side"`
	Sizes        book.EntrySizes  `json:"sizes"`
	Price        *book.Price      `json:"price,omitempty"`
	TimeInForce  book.TimeInForce `json:"time_in_force"`
	Status       book.EntryStatus `json:"status"`
	WhenHappened time.Time        `json:"when_happened"`
	Reason       CancelReason     `json:"reason"`
}

// NewOrderCancelledEvent describes the cancellation of entry
func NewOrderCancelledEvent(eventID cqrs.EventID, bookID book.BookID, entry book.BookEntry, when time.Time, reason CancelReason) OrderCancelledEvent {
	cancelled := entry.Cancelled()
	return OrderCancelledEvent{
		EventIDValue: eventID,
		RequestID:    cancelled.RequestID,
		WhoRequested: cancelled.WhoRequested,
		BookID:       bookID,
		EntryType:    cancelled.EntryType,
		Side:         cancelled.Side,
		Sizes:        cancelled.Sizes,
		Price:        cancelled.Price(),
		TimeInForce:  cancelled.TimeInForce,
		Status:       cancelled.Status,
		WhenHappened: when,
		Reason:       reason,
	}
}

func (e OrderCancelledEvent) AggregateID() book.BookID { return e.BookID }
func (e OrderCancelledEvent) EventID() cqrs.EventID    { return e.EventIDValue }
func (e OrderCancelledEvent) EventType() string        { return "OrderCancelled" }

// Play removes the entries of the requester on the event's side whose
// request ID the event's request ID links to
func (e OrderCancelledEvent) Play(books book.Books) (book.Books, error) {
	eventID, err := books.VerifyEventID(e.EventIDValue)
	if err != nil {
		return books, err
	}
	return books.RemoveBookEntries(eventID, e.Side, func(entry book.BookEntry) bool {
		return entry.WhoRequested == e.WhoRequested &&
			client.RequestLinksToOriginal(entry.RequestID, e.RequestID)
	}), nil
}

// OrderCancelRejectedEvent records a cancel request that could not be honoured
type OrderCancelRejectedEvent struct {
	EventIDValue cqrs.EventID       `json:"event_id"`
	RequestID    client.RequestID   `json:"request_id"`
	WhoRequested client.Client      `json:"who_requested"`
	BookID       book.BookID        `json:"book_id"`
	Status       book.EntryStatus   `json:"status"`
	WhenHappened time.Time          `json:"when_happened"`
	RejectReason CancelRejectReason `json:"reject_reason"`
	RejectText   string             `json:"reject_text,omitempty"`
}

func (e OrderCancelRejectedEvent) AggregateID() book.BookID { return e.BookID }
func (e OrderCancelRejectedEvent) EventID() cqrs.EventID    { return e.EventIDValue }
func (e OrderCancelRejectedEvent) EventType() string        { return "OrderCancelRejected" }

// Play only advances the last event ID
func (e OrderCancelRejectedEvent) Play(books book.Books) (book.Books, error) {
	eventID, err := books.VerifyEventID(e.EventIDValue)
	if err != nil {
		return books, err
	}
	return books.OfEventID(eventID), nil
}
