package order

import (
	"fmt"
	"time"

	"matching-core/internal/book"
	"matching-core/internal/client"
	"matching-core/internal/cqrs"
)

// CancelOrderCommand cancels the requester's entries on one side whose
// current request ID equals RequestID.Original
type CancelOrderCommand struct {
	RequestID     client.RequestID `json:"request_id"`
	WhoRequested  client.Client    `json:"who_requested"`
	BookID        book.BookID      `json:"book_id"`
	Side          book.Side        `json:"side"`
	WhenRequested time.Time        `json:"when_requested"`
}

type cancelValidation = cqrs.Validation[CancelOrderCommand, book.Books, OrderCancelRejectedEvent]

var cancelOrderValidation = cqrs.NewCompleteValidation(
	func(left, right OrderCancelRejectedEvent) OrderCancelRejectedEvent {
		right.RejectReason = cqrs.IfNotEqualsThenUse(left.RejectReason, right.RejectReason, CancelRejectReasonOther)
		right.RejectText = cqrs.AppendIfNotBlank(left.RejectText, right.RejectText, "; ")
		return right
	},
	cancelSymbolMustMatch,
	cancelTradingStatusAllows,
)

var cancelSymbolMustMatch cancelValidation = func(c CancelOrderCommand, books book.Books) (OrderCancelRejectedEvent, bool) {
	if c.BookID == books.BookID {
		return OrderCancelRejectedEvent{}, false
	}
	return c.rejectedEvent(books, CancelRejectReasonUnknownSymbol,
		fmt.Sprintf("Unknown book ID : %s", c.BookID)), true
}

var cancelTradingStatusAllows cancelValidation = func(c CancelOrderCommand, books book.Books) (OrderCancelRejectedEvent, bool) {
	status := books.TradingStatuses.EffectiveStatus()
	if status.Allows(c.Kind()) {
		return OrderCancelRejectedEvent{}, false
	}
	return c.rejectedEvent(books, CancelRejectReasonExchangeClosed,
		fmt.Sprintf("Cancelling orders is currently not allowed : %s", status)), true
}

func (c CancelOrderCommand) Kind() book.CommandKind    { return book.CommandKindCancelOrder }
func (c CancelOrderCommand) TargetBookID() book.BookID { return c.BookID }

// Execute cancels every matching entry, one OrderCancelledEvent each, or
// rejects the request
func (c CancelOrderCommand) Execute(books *book.Books) (book.Transaction, error) {
	if books == nil {
		return book.Transaction{}, book.NotFoundError(c.BookID)
	}

	if rejected, ok := cancelOrderValidation.Validate(c, *books); ok {
		return cqrs.PlayAsTransaction[book.BookID, book.Books](rejected, *books)
	}

	existing := books.FindBookEntries(c.Side, func(e book.BookEntry) bool {
		return e.WhoRequested == c.WhoRequested && e.RequestID.Current == c.RequestID.Original
	})
	if len(existing) == 0 {
		rejected := c.rejectedEvent(*books, CancelRejectReasonUnknownOrder,
			fmt.Sprintf("Order not found (reference %s)", c.RequestID.Original))
		return cqrs.PlayAsTransaction[book.BookID, book.Books](rejected, *books)
	}

	txn := cqrs.NewTransaction[book.BookID, book.Books](*books)
	for _, entry := range existing {
		cancelled := NewOrderCancelledEvent(txn.Aggregate.LastEventID.Next(), books.BookID, entry, c.WhenRequested, CancelReasonUponRequest)
		cancelled.RequestID = c.RequestID

		var err error
		if txn, err = txn.Play(cancelled); err != nil {
			return book.Transaction{}, err
		}
	}
	return txn, nil
}

func (c CancelOrderCommand) rejectedEvent(books book.Books, reason CancelRejectReason, text string) OrderCancelRejectedEvent {
	return OrderCancelRejectedEvent{
		EventIDValue: books.LastEventID.Next(),
		RequestID:    c.RequestID,
		WhoRequested: c.WhoRequested,
		BookID:       c.BookID,
		Status:       book.EntryStatusRejected,
		WhenHappened: c.WhenRequested,
		RejectReason: reason,
		RejectText:   text,
	}
}
