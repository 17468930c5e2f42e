package order

import (
	"fmt"
	"time"

	"matching-core/internal/book"
	"matching-core/internal/client"
	"matching-core/internal/cqrs"
	"matching-core/internal/trade"
)

// PlaceOrderCommand submits a single order for matching
type PlaceOrderCommand struct {
	RequestID     client.RequestID `json:"request_id"`
	WhoRequested  client.Client    `json:"who_requested"`
	BookID        book.BookID      `json:"book_id"`
	EntryType     book.EntryType   `json:"entry_type"`
	Side          book.Side        `json:"side"`
	Price         *book.Price      `json:"price,omitempty"`
	Size          int64            `json:"size"`
	TimeInForce   book.TimeInForce `json:"time_in_force"`
	WhenRequested time.Time        `json:"when_requested"`
}

type placeValidation = cqrs.Validation[PlaceOrderCommand, book.Books, OrderRejectedEvent]

var placeOrderValidation = cqrs.NewCompleteValidation(
	func(left, right OrderRejectedEvent) OrderRejectedEvent {
		right.RejectReason = cqrs.IfNotEqualsThenUse(left.RejectReason, right.RejectReason, RejectReasonOther)
		right.RejectText = cqrs.AppendIfNotBlank(left.RejectText, right.RejectText, "; ")
		return right
	},
	placeSymbolMustMatch,
	placeTradingStatusAllows,
	sizeMustBePositive,
	characteristicsMustBeSupported,
)

var placeSymbolMustMatch placeValidation = func(c PlaceOrderCommand, books book.Books) (OrderRejectedEvent, bool) {
	if c.BookID == books.BookID {
		return OrderRejectedEvent{}, false
	}
	return c.rejectedEvent(books, RejectReasonUnknownSymbol,
		fmt.Sprintf("Unknown book ID : %s", c.BookID)), true
}

var placeTradingStatusAllows placeValidation = func(c PlaceOrderCommand, books book.Books) (OrderRejectedEvent, bool) {
	status := books.TradingStatuses.EffectiveStatus()
	if status.Allows(c.Kind()) {
		return OrderRejectedEvent{}, false
	}
	return c.rejectedEvent(books, RejectReasonExchangeClosed,
		fmt.Sprintf("Placing orders is currently not allowed : %s", status)), true
}

var sizeMustBePositive placeValidation = func(c PlaceOrderCommand, books book.Books) (OrderRejectedEvent, bool) {
	if c.Size > 0 {
		return OrderRejectedEvent{}, false
	}
	return c.rejectedEvent(books, RejectReasonIncorrectQuantity,
		fmt.Sprintf("Order size must be positive : %d", c.Size)), true
}

var characteristicsMustBeSupported placeValidation = func(c PlaceOrderCommand, books book.Books) (OrderRejectedEvent, bool) {
	var text string
	switch {
	case !c.Side.IsValid():
		text = fmt.Sprintf("Unsupported side : %s", c.Side)
	case !c.TimeInForce.IsValid():
		text = fmt.Sprintf("Unsupported time in force : %s", c.TimeInForce)
	case c.EntryType == book.EntryTypeLimit && c.Price == nil:
		text = "Limit orders must have a price"
	case c.EntryType == book.EntryTypeMarket && c.Price != nil:
		text = "Market orders must not have a price"
	case c.EntryType != book.EntryTypeLimit && c.EntryType != book.EntryTypeMarket:
		text = fmt.Sprintf("Unsupported entry type : %s", c.EntryType)
	default:
		return OrderRejectedEvent{}, false
	}
	return c.rejectedEvent(books, RejectReasonUnsupportedOrderCharacteristic, text), true
}

func (c PlaceOrderCommand) Kind() book.CommandKind    { return book.CommandKindPlaceOrder }
func (c PlaceOrderCommand) TargetBookID() book.BookID { return c.BookID }

// Execute places the order, matches it, and then either rests the remainder
// (good-till-cancel limit orders) or cancels it
func (c PlaceOrderCommand) Execute(books *book.Books) (book.Transaction, error) {
	if books == nil {
		return book.Transaction{}, book.NotFoundError(c.BookID)
	}

	if rejected, ok := placeOrderValidation.Validate(c, *books); ok {
		return cqrs.PlayAsTransaction[book.BookID, book.Books](rejected, *books)
	}

	placed := OrderPlacedEvent{
		EventIDValue: books.LastEventID.Next(),
		RequestID:    c.RequestID,
		WhoRequested: c.WhoRequested,
		BookID:       books.BookID,
		EntryType:    c.EntryType,
		Side:         c.Side,
		Price:        c.Price,
		TimeInForce:  c.TimeInForce,
		Sizes:        book.EntrySizes{Available: c.Size},
		Status:       book.EntryStatusNew,
		WhenHappened: c.WhenRequested,
	}
	txn, err := cqrs.PlayAsTransaction[book.BookID, book.Books](placed, *books)
	if err != nil {
		return book.Transaction{}, err
	}

	matched, remaining, err := trade.Match(txn.Aggregate, placed.Entry(), c.WhenRequested)
	if err != nil {
		return book.Transaction{}, err
	}
	txn = txn.Append(matched)

	if remaining.Sizes.Available == 0 {
		return txn, nil
	}

	nextID := txn.Aggregate.LastEventID.Next()
	if remaining.EntryType == book.EntryTypeLimit && remaining.TimeInForce == book.TimeInForceGoodTillCancel {
		return txn.Play(book.EntryAddedToBookEvent{
			EventIDValue: nextID,
			BookID:       books.BookID,
			Entry:        remaining,
			WhenHappened: c.WhenRequested,
		})
	}
	return txn.Play(NewOrderCancelledEvent(nextID, books.BookID, remaining, c.WhenRequested, CancelReasonByExchange))
}

func (c PlaceOrderCommand) rejectedEvent(books book.Books, reason RejectReason, text string) OrderRejectedEvent {
	return OrderRejectedEvent{
		EventIDValue: books.LastEventID.Next(),
		RequestID:    c.RequestID,
		WhoRequested: c.WhoRequested,
		BookID:       c.BookID,
		EntryType:    c.EntryType,
		Side:         c.Side,
		Size:         c.Size,
		Price:        c.Price,
		TimeInForce:  c.TimeInForce,
		Status:       book.EntryStatusRejected,
		WhenHappened: c.WhenRequested,
		RejectReason: reason,
		RejectText:   text,
	}
}
