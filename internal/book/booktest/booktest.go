// Package booktest provides fixtures for tests against the Books aggregate.
package booktest

import (
	"time"

	"matching-core/internal/book"
	"matching-core/internal/client"
	"matching-core/internal/cqrs"
)

// BookID is the book used by fixtures
const BookID book.BookID = "BTC-USDT"

// Now is a fixed timestamp so that expected events compare equal
var Now = time.Date(2025, 1, 1, 9, 30, 0, 0, time.UTC)

// FirmWithClient returns a requester with a firm client
func FirmWithClient() client.Client {
	return client.Client{FirmID: "firm1", FirmClientID: "client1"}
}

// FirmWithoutClient returns a requester acting for the firm itself
func FirmWithoutClient() client.Client {
	return client.Client{FirmID: "firm2"}
}

// Entry returns a GTC limit entry resting at price with size available
func Entry(eventID cqrs.EventID, side book.Side, price int64, size int64, who client.Client, requestID string) book.BookEntry {
	return book.BookEntry{
		Key: book.EntryKey{
			Price:         book.NewPrice(price),
			WhenSubmitted: Now,
			EventID:       eventID,
		},
		RequestID:    client.RequestID{Current: requestID},
		WhoRequested: who,
		EntryType:    book.EntryTypeLimit,
		Side:         side,
		TimeInForce:  book.TimeInForceGoodTillCancel,
		Sizes:        book.EntrySizes{Available: size},
		Status:       book.EntryStatusNew,
	}
}

// QuoteEntry returns a quote leg
func QuoteEntry(eventID cqrs.EventID, sequence int, side book.Side, price int64, size int64, who client.Client, quoteID string) book.BookEntry {
	e := Entry(eventID, side, price, size, who, quoteID)
	e.Key.Sequence = sequence
	e.IsQuote = true
	return e
}

// Books returns books holding entries, with the last event ID set to the
// highest entry event ID
func Books(entries ...book.BookEntry) book.Books {
	books := book.NewBooks(BookID)
	for _, e := range entries {
		books = books.AddBookEntry(e)
		if e.Key.EventID > books.LastEventID {
			books = books.OfEventID(e.Key.EventID)
		}
	}
	return books
}
