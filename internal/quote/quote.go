// Package quote holds the mass quote commands and events of a book.
package quote

import "matching-core/internal/book"

// RejectReason explains why a mass quote or its cancellation was refused
type RejectReason string

const (
	RejectReasonUnknownSymbol       RejectReason = "UNKNOWN_SYMBOL"
	RejectReasonExchangeClosed      RejectReason = "EXCHANGE_CLOSED"
	RejectReasonNoQuoteFound        RejectReason = "NO_QUOTE_FOUND"
	RejectReasonNotAuthorised       RejectReason = "NOT_AUTHORISED"
	RejectReasonInvalidBidAskSpread RejectReason = "INVALID_BID_ASK_SPREAD"
	RejectReasonOther               RejectReason = "OTHER"
)

// Entry is one two-sided line of a mass quote. Either leg may be absent.
type Entry struct {
	QuoteEntryID string            `json:"quote_entry_id"`
	QuoteSetID   string            `json:"quote_set_id,omitempty"`
	Bid          *book.SizeAtPrice `json:"bid,omitempty"`
	Offer        *book.SizeAtPrice `json:"offer,omitempty"`
}

// legs returns the present legs of the entry, bid first
func (e Entry) legs() []leg {
	var legs []leg
	if e.Bid != nil {
		legs = append(legs, leg{side: book.SideBuy, SizeAtPrice: *e.Bid})
	}
	if e.Offer != nil {
		legs = append(legs, leg{side: book.SideSell, SizeAtPrice: *e.Offer})
	}
	return legs
}

type leg struct {
	book.SizeAtPrice
	side book.Side
}
