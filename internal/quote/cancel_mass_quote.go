package quote

import (
	"fmt"
	"time"

	"matching-core/internal/book"
	"matching-core/internal/client"
	"matching-core/internal/cqrs"
)

// CancelMassQuoteCommand cancels every live quote of the requester on a book
type CancelMassQuoteCommand struct {
	WhoRequested  client.Client `json:"who_requested"`
	BookID        book.BookID   `json:"book_id"`
	WhenRequested time.Time     `json:"when_requested"`
}

type cancelValidation = cqrs.Validation[CancelMassQuoteCommand, book.Books, MassQuoteCancelRejectedEvent]

var cancelMassQuoteValidation = cqrs.NewCompleteValidation(
	func(left, right MassQuoteCancelRejectedEvent) MassQuoteCancelRejectedEvent {
		right.RejectReason = cqrs.IfNotEqualsThenUse(left.RejectReason, right.RejectReason, RejectReasonOther)
		right.RejectText = cqrs.AppendIfNotBlank(left.RejectText, right.RejectText, "; ")
		return right
	},
	cancelSymbolMustMatch,
	cancelTradingStatusAllows,
)

var cancelSymbolMustMatch cancelValidation = func(c CancelMassQuoteCommand, books book.Books) (MassQuoteCancelRejectedEvent, bool) {
	if c.BookID == books.BookID {
		return MassQuoteCancelRejectedEvent{}, false
	}
	return c.rejectedEvent(books, RejectReasonUnknownSymbol,
		fmt.Sprintf("Unknown book ID : %s", c.BookID)), true
}

var cancelTradingStatusAllows cancelValidation = func(c CancelMassQuoteCommand, books book.Books) (MassQuoteCancelRejectedEvent, bool) {
	status := books.TradingStatuses.EffectiveStatus()
	if status.Allows(c.Kind()) {
		return MassQuoteCancelRejectedEvent{}, false
	}
	return c.rejectedEvent(books, RejectReasonExchangeClosed,
		fmt.Sprintf("Cancelling mass quote is currently not allowed : %s", status)), true
}

func (c CancelMassQuoteCommand) Kind() book.CommandKind    { return book.CommandKindCancelMassQuote }
func (c CancelMassQuoteCommand) TargetBookID() book.BookID { return c.BookID }

func (c CancelMassQuoteCommand) Execute(books *book.Books) (book.Transaction, error) {
	if books == nil {
		return book.Transaction{}, book.NotFoundError(c.BookID)
	}

	if rejected, ok := cancelMassQuoteValidation.Validate(c, *books); ok {
		return cqrs.PlayAsTransaction[book.BookID, book.Books](rejected, *books)
	}

	txn, found, err := CancelExistingQuotes(*books, books.LastEventID.Next(), c.WhoRequested, c.WhenRequested)
	if err != nil {
		return book.Transaction{}, err
	}
	if found {
		return txn, nil
	}

	rejected := c.rejectedEvent(*books, RejectReasonNoQuoteFound, "No quote was found")
	return cqrs.PlayAsTransaction[book.BookID, book.Books](rejected, *books)
}

func (c CancelMassQuoteCommand) rejectedEvent(books book.Books, reason RejectReason, text string) MassQuoteCancelRejectedEvent {
	return MassQuoteCancelRejectedEvent{
		EventIDValue: books.LastEventID.Next(),
		WhoRequested: c.WhoRequested,
		BookID:       books.BookID,
		WhenHappened: c.WhenRequested,
		RejectReason: reason,
		RejectText:   text,
	}
}
