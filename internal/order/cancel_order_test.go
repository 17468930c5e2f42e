package order_test

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"pgregory.net/rapid"

	"matching-core/internal/book"
	"matching-core/internal/book/booktest"
	"matching-core/internal/client"
	"matching-core/internal/cqrs"
	"matching-core/internal/order"
)

func cancelCommand(who client.Client, side book.Side, original string) order.CancelOrderCommand {
	return order.CancelOrderCommand{
		RequestID:     client.RequestID{Current: "cancel-" + original, Original: original},
		WhoRequested:  who,
		BookID:        booktest.BookID,
		Side:          side,
		WhenRequested: booktest.Now,
	}
}

func TestCancelOrderCommand_BooksNotFound(t *testing.T) {
	_, err := cancelCommand(booktest.FirmWithClient(), book.SideBuy, "r1").Execute(nil)

	assert.ErrorIs(t, err, book.ErrBooksNotFound)
}

func TestCancelOrderCommand_UnknownOrderOnEmptyBook(t *testing.T) {
	books := book.NewBooks(booktest.BookID).OfEventID(3)
	cmd := cancelCommand(booktest.FirmWithClient(), book.SideBuy, "never-placed")

	txn, err := cmd.Execute(&books)
	require.NoError(t, err)

	require.Len(t, txn.Events, 1)
	assert.Equal(t, order.OrderCancelRejectedEvent{
		EventIDValue: 4,
		RequestID:    cmd.RequestID,
		WhoRequested: cmd.WhoRequested,
		BookID:       booktest.BookID,
		Status:       book.EntryStatusRejected,
		WhenHappened: booktest.Now,
		RejectReason: order.CancelRejectReasonUnknownOrder,
		RejectText:   "Order not found (reference never-placed)",
	}, txn.Events[0])
	assert.Equal(t, cqrs.EventID(4), txn.Aggregate.LastEventID)
	assert.Equal(t, 0, txn.Aggregate.BuyLimitBook.Len())
	assert.Equal(t, 0, txn.Aggregate.SellLimitBook.Len())
}

func TestCancelOrderCommand_WrongSymbolUnderMaintenance(t *testing.T) {
	books := book.NewBooks("Y").WithTradingStatuses(book.NewTradingStatuses(book.TradingStatusSystemMaintenance))
	cmd := cancelCommand(booktest.FirmWithClient(), book.SideBuy, "r1")
	cmd.BookID = "X"

	txn, err := cmd.Execute(&books)
	require.NoError(t, err)

	require.Len(t, txn.Events, 1)
	rejected := txn.Events[0].(order.OrderCancelRejectedEvent)
	assert.Equal(t, order.CancelRejectReasonOther, rejected.RejectReason)
	assert.Equal(t, "Unknown book ID : X; Cancelling orders is currently not allowed : SYSTEM_MAINTENANCE", rejected.RejectText)
	assert.Equal(t, cqrs.EventID(1), txn.Aggregate.LastEventID)
}

func TestCancelOrderCommand_SingleValidationFailureKeepsReason(t *testing.T) {
	books := booktest.Books(booktest.Entry(1, book.SideBuy, 100, 5, booktest.FirmWithClient(), "r1")).
		WithTradingStatuses(book.NewTradingStatuses(book.TradingStatusSystemMaintenance))

	txn, err := cancelCommand(booktest.FirmWithClient(), book.SideBuy, "r1").Execute(&books)
	require.NoError(t, err)

	rejected := txn.Events[0].(order.OrderCancelRejectedEvent)
	assert.Equal(t, order.CancelRejectReasonExchangeClosed, rejected.RejectReason)
	assert.Equal(t, "Cancelling orders is currently not allowed : SYSTEM_MAINTENANCE", rejected.RejectText)
	assert.Equal(t, 1, txn.Aggregate.BuyLimitBook.Len())
}

func TestCancelOrderCommand_CancelsOnlyMatchingEntries(t *testing.T) {
	who := booktest.FirmWithClient()
	other := booktest.FirmWithoutClient()
	target := booktest.Entry(1, book.SideBuy, 100, 7, who, "r1")
	books := booktest.Books(
		target,
		booktest.Entry(2, book.SideBuy, 100, 5, other, "r1"),
		booktest.Entry(3, book.SideBuy, 101, 5, who, "r2"),
		booktest.Entry(4, book.SideSell, 105, 5, who, "r1"),
	)
	cmd := cancelCommand(who, book.SideBuy, "r1")

	txn, err := cmd.Execute(&books)
	require.NoError(t, err)

	require.Len(t, txn.Events, 1)
	assert.Equal(t, order.OrderCancelledEvent{
		EventIDValue: 5,
		RequestID:    cmd.RequestID,
		WhoRequested: who,
		BookID:       booktest.BookID,
		EntryType:    book.EntryTypeLimit,
		Side:         book.SideBuy,
		Sizes:        book.EntrySizes{Available: 0, Cancelled: 7},
		Price:        book.NewPrice(100),
		TimeInForce:  book.TimeInForceGoodTillCancel,
		Status:       book.EntryStatusCancelled,
		WhenHappened: booktest.Now,
		Reason:       order.CancelReasonUponRequest,
	}, txn.Events[0])

	assert.Equal(t, cqrs.EventID(5), txn.Aggregate.LastEventID)
	assert.Equal(t, 2, txn.Aggregate.BuyLimitBook.Len())
	assert.Equal(t, 1, txn.Aggregate.SellLimitBook.Len())
	assert.Empty(t, txn.Aggregate.FindBookEntries(book.SideBuy, target.SameKey))
	// The input aggregate still holds every entry.
	assert.Equal(t, 3, books.BuyLimitBook.Len())
}

func TestCancelOrderCommand_OneEventPerMatchingEntry(t *testing.T) {
	who := booktest.FirmWithClient()
	tests := []struct {
		name       string
		entries    []book.BookEntry
		wantIDs    []cqrs.EventID
		wantSizes  []int64
		wantBuyLen int
	}{
		{
			name: "single match",
			entries: []book.BookEntry{
				booktest.Entry(1, book.SideBuy, 100, 7, who, "r1"),
				booktest.Entry(2, book.SideSell, 105, 5, who, "r1"),
			},
			wantIDs:   []cqrs.EventID{3},
			wantSizes: []int64{7},
		},
		{
			name: "two matches",
			entries: []book.BookEntry{
				booktest.Entry(1, book.SideBuy, 100, 7, who, "r1"),
				booktest.Entry(2, book.SideBuy, 101, 3, who, "r1"),
				booktest.Entry(3, book.SideSell, 105, 5, who, "r1"),
			},
			wantIDs:   []cqrs.EventID{4, 5},
			wantSizes: []int64{3, 7},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			books := booktest.Books(tt.entries...)

			txn, err := cancelCommand(who, book.SideBuy, "r1").Execute(&books)
			require.NoError(t, err)

			require.Len(t, txn.Events, len(tt.wantIDs))
			var cancelledSizes []int64
			for i, event := range txn.Events {
				cancelled, ok := event.(order.OrderCancelledEvent)
				require.True(t, ok, "event %d is %T", i, event)
				assert.Equal(t, tt.wantIDs[i], cancelled.EventIDValue)
				assert.Equal(t, book.EntryStatusCancelled, cancelled.Status)
				cancelledSizes = append(cancelledSizes, cancelled.Sizes.Cancelled)
			}
			assert.ElementsMatch(t, tt.wantSizes, cancelledSizes)

			assert.Equal(t, tt.wantIDs[len(tt.wantIDs)-1], txn.Aggregate.LastEventID)
			assert.Equal(t, tt.wantBuyLen, txn.Aggregate.BuyLimitBook.Len())
			assert.Equal(t, 1, txn.Aggregate.SellLimitBook.Len())
		})
	}
}

// The first cancellation already removes every entry linked to the
// original request; later ones only advance the event ID.
func TestOrderCancelledEvent_LaterCancellationsOnlyAdvanceEventID(t *testing.T) {
	who := booktest.FirmWithClient()
	books := booktest.Books(
		booktest.Entry(1, book.SideBuy, 100, 7, who, "r1"),
		booktest.Entry(2, book.SideBuy, 101, 3, who, "r1"),
	)
	txn, err := cancelCommand(who, book.SideBuy, "r1").Execute(&books)
	require.NoError(t, err)
	require.Len(t, txn.Events, 2)

	afterFirst, err := txn.Events[0].Play(books)
	require.NoError(t, err)
	assert.Equal(t, 0, afterFirst.BuyLimitBook.Len())

	afterSecond, err := txn.Events[1].Play(afterFirst)
	require.NoError(t, err)
	assert.Equal(t, cqrs.EventID(4), afterSecond.LastEventID)
	assert.Equal(t, afterFirst.BuyLimitBook.Entries(), afterSecond.BuyLimitBook.Entries())
}

func TestCancelOrderCommand_PreservesNonMatchingEntries(t *testing.T) {
	requesters := []client.Client{booktest.FirmWithClient(), booktest.FirmWithoutClient()}
	requestIDs := []string{"r1", "r2", "r3"}

	rapid.Check(t, func(t *rapid.T) {
		n := rapid.IntRange(0, 20).Draw(t, "n")
		entries := make([]book.BookEntry, 0, n)
		for i := 0; i < n; i++ {
			entries = append(entries, booktest.Entry(cqrs.EventID(i+1),
				rapid.SampledFrom([]book.Side{book.SideBuy, book.SideSell}).Draw(t, "side"),
				rapid.Int64Range(98, 102).Draw(t, "price"),
				rapid.Int64Range(1, 10).Draw(t, "size"),
				rapid.SampledFrom(requesters).Draw(t, "who"),
				rapid.SampledFrom(requestIDs).Draw(t, "request")))
		}
		books := booktest.Books(entries...)

		who := rapid.SampledFrom(requesters).Draw(t, "cancel who")
		side := rapid.SampledFrom([]book.Side{book.SideBuy, book.SideSell}).Draw(t, "cancel side")
		target := rapid.SampledFrom(requestIDs).Draw(t, "cancel request")
		cmd := cancelCommand(who, side, target)

		txn, err := cmd.Execute(&books)
		if err != nil {
			t.Fatalf("execute: %v", err)
		}

		matches := func(e book.BookEntry) bool {
			return e.Side == side && e.WhoRequested == who && e.RequestID.Current == target
		}
		var wantRemaining int
		for _, e := range entries {
			if !matches(e) {
				wantRemaining++
			}
		}
		got := txn.Aggregate.BuyLimitBook.Len() + txn.Aggregate.SellLimitBook.Len()
		if got != wantRemaining {
			t.Fatalf("remaining entries = %d, want %d", got, wantRemaining)
		}
		if got := txn.Aggregate.LastEventID; got != books.LastEventID+cqrs.EventID(len(txn.Events)) {
			t.Fatalf("last event ID = %d after %d events from %d", got, len(txn.Events), books.LastEventID)
		}
		if wantRemaining == len(entries) {
			if _, ok := txn.Events[0].(order.OrderCancelRejectedEvent); !ok || len(txn.Events) != 1 {
				t.Fatalf("want a single rejection, got %v", txn.Events)
			}
		}
	})
}

func TestOrderCancelledEvent_PlayLinksByOriginal(t *testing.T) {
	who := booktest.FirmWithClient()
	books := booktest.Books(
		booktest.Entry(1, book.SideSell, 100, 5, who, "r1"),
		booktest.Entry(2, book.SideSell, 100, 5, who, "r2"),
	)

	event := order.OrderCancelledEvent{
		EventIDValue: 3,
		RequestID:    client.RequestID{Current: "c1", Original: "r2"},
		WhoRequested: who,
		BookID:       booktest.BookID,
		Side:         book.SideSell,
	}
	next, err := event.Play(books)
	require.NoError(t, err)

	remaining := next.SellLimitBook.Entries()
	require.Len(t, remaining, 1)
	assert.Equal(t, "r1", remaining[0].RequestID.Current)

	_, err = event.Play(next)
	assert.ErrorIs(t, err, cqrs.ErrEventOutOfOrder)
}

func TestOrderCancelRejectedEvent_PlayOnlyAdvancesEventID(t *testing.T) {
	books := booktest.Books(booktest.Entry(1, book.SideBuy, 100, 5, booktest.FirmWithClient(), "r1"))

	next, err := order.OrderCancelRejectedEvent{EventIDValue: 2, BookID: booktest.BookID}.Play(books)
	require.NoError(t, err)
	assert.Equal(t, cqrs.EventID(2), next.LastEventID)
	assert.Equal(t, books.BuyLimitBook.Entries(), next.BuyLimitBook.Entries())

	_, err = order.OrderCancelRejectedEvent{EventIDValue: 4, BookID: booktest.BookID}.Play(books)
	assert.ErrorIs(t, err, cqrs.ErrEventOutOfOrder)
}
