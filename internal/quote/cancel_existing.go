package quote

import (
	"time"

	"matching-core/internal/book"
	"matching-core/internal/client"
	"matching-core/internal/cqrs"
)

// CancelExistingQuotes cancels every live quote leg of whoRequested on both
// sides with one MassQuoteCancelledEvent carrying eventID. It returns false
// when the requester has no live quote legs.
func CancelExistingQuotes(books book.Books, eventID cqrs.EventID, whoRequested client.Client, when time.Time) (book.Transaction, bool, error) {
	owned := func(e book.BookEntry) bool {
		return e.IsQuote && e.WhoRequested == whoRequested
	}

	var cancelled []book.BookEntry
	for _, side := range []book.Side{book.SideBuy, book.SideSell} {
		for _, e := range books.FindBookEntries(side, owned) {
			cancelled = append(cancelled, e.Cancelled())
		}
	}
	if len(cancelled) == 0 {
		return book.Transaction{}, false, nil
	}

	txn, err := cqrs.PlayAsTransaction[book.BookID, book.Books](MassQuoteCancelledEvent{
		EventIDValue: eventID,
		WhoRequested: whoRequested,
		BookID:       books.BookID,
		Entries:      cancelled,
		WhenHappened: when,
	}, books)
	if err != nil {
		return book.Transaction{}, false, err
	}
	return txn, true, nil
}
