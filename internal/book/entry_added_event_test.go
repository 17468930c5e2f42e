package book_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"matching-core/internal/book"
	"matching-core/internal/book/booktest"
	"matching-core/internal/cqrs"
)

func TestEntryAddedToBookEvent_Play(t *testing.T) {
	books := book.NewBooks(booktest.BookID).OfEventID(2)
	entry := booktest.Entry(3, book.SideBuy, 100, 5, booktest.FirmWithClient(), "r1")

	event := book.EntryAddedToBookEvent{EventIDValue: 3, BookID: booktest.BookID, Entry: entry, WhenHappened: booktest.Now}
	next, err := event.Play(books)
	require.NoError(t, err)

	assert.Equal(t, cqrs.EventID(3), next.LastEventID)
	assert.Equal(t, []book.BookEntry{entry}, next.BuyLimitBook.Entries())
	assert.Equal(t, 0, books.BuyLimitBook.Len())
}

func TestEntryAddedToBookEvent_PlayOutOfOrder(t *testing.T) {
	books := book.NewBooks(booktest.BookID).OfEventID(2)
	entry := booktest.Entry(5, book.SideBuy, 100, 5, booktest.FirmWithClient(), "r1")

	event := book.EntryAddedToBookEvent{EventIDValue: 5, BookID: booktest.BookID, Entry: entry}
	_, err := event.Play(books)

	assert.ErrorIs(t, err, cqrs.ErrEventOutOfOrder)
}
