package quote

import (
	"fmt"
	"strings"
	"time"

	"matching-core/internal/book"
	"matching-core/internal/client"
	"matching-core/internal/cqrs"
	"matching-core/internal/trade"
)

// PlaceMassQuoteCommand replaces the requester's quotes on a book
type PlaceMassQuoteCommand struct {
	QuoteID       string           `json:"quote_id"`
	WhoRequested  client.Client    `json:"who_requested"`
	BookID        book.BookID      `json:"book_id"`
	TimeInForce   book.TimeInForce `json:"time_in_force"`
	Entries       []Entry          `json:"entries"`
	WhenRequested time.Time        `json:"when_requested"`
}

type placeValidation = cqrs.Validation[PlaceMassQuoteCommand, book.Books, MassQuoteRejectedEvent]

var placeMassQuoteValidation = cqrs.NewCompleteValidation(
	func(left, right MassQuoteRejectedEvent) MassQuoteRejectedEvent {
		right.RejectReason = cqrs.IfNotEqualsThenUse(left.RejectReason, right.RejectReason, RejectReasonOther)
		right.RejectText = cqrs.AppendIfNotBlank(left.RejectText, right.RejectText, "; ")
		return right
	},
	placeSymbolMustMatch,
	placeTradingStatusAllows,
	bidMustBeBelowOffer,
	sizesMustBePositive,
	timeInForceMustBeGoodTillCancel,
)

var placeSymbolMustMatch placeValidation = func(c PlaceMassQuoteCommand, books book.Books) (MassQuoteRejectedEvent, bool) {
	if c.BookID == books.BookID {
		return MassQuoteRejectedEvent{}, false
	}
	return c.rejectedEvent(books, RejectReasonUnknownSymbol,
		fmt.Sprintf("Unknown book ID : %s", c.BookID)), true
}

var placeTradingStatusAllows placeValidation = func(c PlaceMassQuoteCommand, books book.Books) (MassQuoteRejectedEvent, bool) {
	status := books.TradingStatuses.EffectiveStatus()
	if status.Allows(c.Kind()) {
		return MassQuoteRejectedEvent{}, false
	}
	return c.rejectedEvent(books, RejectReasonExchangeClosed,
		fmt.Sprintf("Placing mass quote is currently not allowed : %s", status)), true
}

var bidMustBeBelowOffer placeValidation = func(c PlaceMassQuoteCommand, books book.Books) (MassQuoteRejectedEvent, bool) {
	var crossed []string
	for _, e := range c.Entries {
		if e.Bid != nil && e.Offer != nil && e.Bid.Price >= e.Offer.Price {
			crossed = append(crossed, fmt.Sprintf("%s (bid %d, offer %d)", e.QuoteEntryID, e.Bid.Price, e.Offer.Price))
		}
	}
	if len(crossed) == 0 {
		return MassQuoteRejectedEvent{}, false
	}
	return c.rejectedEvent(books, RejectReasonInvalidBidAskSpread,
		fmt.Sprintf("Bid must be below offer : %s", strings.Join(crossed, ", "))), true
}

var sizesMustBePositive placeValidation = func(c PlaceMassQuoteCommand, books book.Books) (MassQuoteRejectedEvent, bool) {
	var invalid []string
	for _, e := range c.Entries {
		for _, l := range e.legs() {
			if l.Size <= 0 {
				invalid = append(invalid, fmt.Sprintf("%s %s size %d", e.QuoteEntryID, l.side, l.Size))
			}
		}
	}
	if len(invalid) == 0 {
		return MassQuoteRejectedEvent{}, false
	}
	return c.rejectedEvent(books, RejectReasonOther,
		fmt.Sprintf("Quote sizes must be positive : %s", strings.Join(invalid, ", "))), true
}

var timeInForceMustBeGoodTillCancel placeValidation = func(c PlaceMassQuoteCommand, books book.Books) (MassQuoteRejectedEvent, bool) {
	if c.TimeInForce == book.TimeInForceGoodTillCancel {
		return MassQuoteRejectedEvent{}, false
	}
	return c.rejectedEvent(books, RejectReasonOther,
		fmt.Sprintf("Unsupported time in force : %s", c.TimeInForce)), true
}

func (c PlaceMassQuoteCommand) Kind() book.CommandKind    { return book.CommandKindPlaceMassQuote }
func (c PlaceMassQuoteCommand) TargetBookID() book.BookID { return c.BookID }

// Execute cancels the requester's existing quotes, places the new quote and
// matches each leg in turn, resting whatever is left
func (c PlaceMassQuoteCommand) Execute(books *book.Books) (book.Transaction, error) {
	if books == nil {
		return book.Transaction{}, book.NotFoundError(c.BookID)
	}

	if rejected, ok := placeMassQuoteValidation.Validate(c, *books); ok {
		return cqrs.PlayAsTransaction[book.BookID, book.Books](rejected, *books)
	}

	txn := cqrs.NewTransaction[book.BookID, book.Books](*books)
	cancelled, found, err := CancelExistingQuotes(*books, books.LastEventID.Next(), c.WhoRequested, c.WhenRequested)
	if err != nil {
		return book.Transaction{}, err
	}
	if found {
		txn = cancelled
	}

	placed := MassQuotePlacedEvent{
		EventIDValue: txn.Aggregate.LastEventID.Next(),
		QuoteID:      c.QuoteID,
		WhoRequested: c.WhoRequested,
		BookID:       books.BookID,
		TimeInForce:  c.TimeInForce,
		Entries:      append([]Entry(nil), c.Entries...),
		WhenHappened: c.WhenRequested,
	}
	if txn, err = txn.Play(placed); err != nil {
		return book.Transaction{}, err
	}

	for _, entry := range placed.BookEntries() {
		matched, remaining, err := trade.Match(txn.Aggregate, entry, c.WhenRequested)
		if err != nil {
			return book.Transaction{}, err
		}
		txn = txn.Append(matched)
		if remaining.Sizes.Available == 0 {
			continue
		}
		txn, err = txn.Play(book.EntryAddedToBookEvent{
			EventIDValue: txn.Aggregate.LastEventID.Next(),
			BookID:       books.BookID,
			Entry:        remaining,
			WhenHappened: c.WhenRequested,
		})
		if err != nil {
			return book.Transaction{}, err
		}
	}
	return txn, nil
}

func (c PlaceMassQuoteCommand) rejectedEvent(books book.Books, reason RejectReason, text string) MassQuoteRejectedEvent {
	return MassQuoteRejectedEvent{
		EventIDValue: books.LastEventID.Next(),
		QuoteID:      c.QuoteID,
		WhoRequested: c.WhoRequested,
		BookID:       c.BookID,
		Entries:      c.Entries,
		WhenHappened: c.WhenRequested,
		RejectReason: reason,
		RejectText:   text,
	}
}
