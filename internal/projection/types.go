package projection

import (
	"fmt"
	"time"

	"matching-core/internal/book"
	"matching-core/internal/client"
)

// EntryView represents the read model of one order or quote leg
type EntryView struct {
	BookID       book.BookID      `json:"book_id"`
	WhoRequested client.Client    `json:"who_requested"`
	RequestID    client.RequestID `json:"request_id"`
	IsQuote      bool             `json:"is_quote"`
	Side         book.Side        `json:"side"`
	EntryType    book.EntryType   `json:"entry_type"`
	Price        *book.Price      `json:"price,omitempty"`
	TimeInForce  book.TimeInForce `json:"time_in_force"`
	Sizes        book.EntrySizes  `json:"sizes"`
	Status       book.EntryStatus `json:"status"`
	RejectReason string           `json:"reject_reason,omitempty"`
	RejectText   string           `json:"reject_text,omitempty"`
	CreatedAt    time.Time        `json:"created_at"`
	UpdatedAt    time.Time        `json:"updated_at"`
	LastSequence int64            `json:"last_sequence"` // Last event sequence that updated this entry
}

// EntryViewKey identifies an entry view: one per requester, request and side
type EntryViewKey struct {
	BookID       book.BookID
	WhoRequested client.Client
	RequestID    string
	Side         book.Side
}

func (k EntryViewKey) String() string {
	return fmt.Sprintf("%s:%s:%s:%s:%s", k.BookID, k.WhoRequested.FirmID, k.WhoRequested.FirmClientID, k.RequestID, k.Side)
}

// Key returns the key of the view
func (v *EntryView) Key() EntryViewKey {
	return EntryViewKey{BookID: v.BookID, WhoRequested: v.WhoRequested, RequestID: v.RequestID.Current, Side: v.Side}
}

// TradeView represents the read model for a trade
type TradeView struct {
	TradeID            string        `json:"trade_id"`
	BookID             book.BookID   `json:"book_id"`
	AggressorRequester client.Client `json:"aggressor_requester"`
	AggressorRequestID string        `json:"aggressor_request_id"`
	AggressorSide      book.Side     `json:"aggressor_side"`
	PassiveRequester   client.Client `json:"passive_requester"`
	PassiveRequestID   string        `json:"passive_request_id"`
	Price              book.Price    `json:"price"`
	Size               int64         `json:"size"`
	OccurredAt         time.Time     `json:"occurred_at"`
	Sequence           int64         `json:"sequence"` // Event sequence number
}

// TradeID derives the trade identifier from the book and event sequence
func TradeID(bookID book.BookID, sequence int64) string {
	return fmt.Sprintf("%s-%d", bookID, sequence)
}
