package api

import (
	"encoding/json"
	"time"
)

// PartyDTO identifies the requester of a command
type PartyDTO struct {
	FirmID       string `json:"firm_id" binding:"required"` // Member firm
	FirmClientID string `json:"firm_client_id,omitempty"`   // Client of the firm, optional
}

// PlaceOrderRequest represents the request body for placing an order
type PlaceOrderRequest struct {
	PartyDTO
	ClientOrderID string `json:"client_order_id" binding:"required"` // Client-provided request ID
	EntryType     string `json:"entry_type"`                         // LIMIT (default) or MARKET
	Side          string `json:"side" binding:"required"`            // BUY or SELL
	Price         string `json:"price,omitempty"`                    // Price as decimal string, limit orders only
	Size          string `json:"size" binding:"required"`            // Size as decimal string
	TimeInForce   string `json:"time_in_force"`                      // GOOD_TILL_CANCEL (default) or IMMEDIATE_OR_CANCEL
}

// CancelOrderRequest represents the request body for cancelling an order.
// The order is named by the path; ClientOrderID identifies the cancel request.
type CancelOrderRequest struct {
	PartyDTO
	ClientOrderID string `json:"client_order_id" binding:"required"` // Request ID of the cancel
	Side          string `json:"side" binding:"required"`            // Side of the order
}

// SizeAtPriceDTO is one side of a quote entry
type SizeAtPriceDTO struct {
	Price string `json:"price" binding:"required"`
	Size  string `json:"size" binding:"required"`
}

// QuoteEntryDTO is one two-sided quote
type QuoteEntryDTO struct {
	QuoteEntryID string          `json:"quote_entry_id" binding:"required"`
	QuoteSetID   string          `json:"quote_set_id,omitempty"`
	Bid          *SizeAtPriceDTO `json:"bid,omitempty"`
	Offer        *SizeAtPriceDTO `json:"offer,omitempty"`
}

// PlaceMassQuoteRequest represents the request body for placing a mass quote
type PlaceMassQuoteRequest struct {
	PartyDTO
	QuoteID     string          `json:"quote_id" binding:"required"`
	TimeInForce string          `json:"time_in_force"`
	Entries     []QuoteEntryDTO `json:"entries" binding:"required,min=1,dive"`
}

// CancelMassQuoteRequest represents the request body for cancelling the
// requester's quotes
type CancelMassQuoteRequest struct {
	PartyDTO
}

// TradingStatusRequest sets the status layers of a book
type TradingStatusRequest struct {
	Default    string `json:"default" binding:"required"`
	Scheduled  string `json:"scheduled,omitempty"`
	FastMarket string `json:"fast_market,omitempty"`
	Manual     string `json:"manual,omitempty"`
}

// EventDTO is a committed event as it is persisted
type EventDTO struct {
	EventID    int64           `json:"event_id"`
	Type       string          `json:"type"`
	OccurredAt time.Time       `json:"occurred_at"`
	Payload    json.RawMessage `json:"payload"`
}

// CommandResponse carries the events of a command's transaction.
// Business rejections are events too.
type CommandResponse struct {
	CommandID   string     `json:"command_id"`
	BookID      string     `json:"book_id"`
	LastEventID int64      `json:"last_event_id"`
	Events      []EventDTO `json:"events"`
}

// EntryDTO is a resting entry of a book
type EntryDTO struct {
	RequestID    string `json:"request_id"`
	FirmID       string `json:"firm_id"`
	FirmClientID string `json:"firm_client_id,omitempty"`
	IsQuote      bool   `json:"is_quote"`
	Side         string `json:"side"`
	Price        string `json:"price,omitempty"`
	Available    string `json:"available"`
	Traded       string `json:"traded"`
	Status       string `json:"status"`
	EventID      int64  `json:"event_id"`
}

// BookResponse is the current state of a book
type BookResponse struct {
	BookID        string     `json:"book_id"`
	LastEventID   int64      `json:"last_event_id"`
	TradingStatus string     `json:"trading_status"`
	Bids          []EntryDTO `json:"bids"`
	Offers        []EntryDTO `json:"offers"`
}

// EntryViewResponse is the projected state of a request's entries
type EntryViewResponse struct {
	RequestID    string    `json:"request_id"`
	Side         string    `json:"side"`
	IsQuote      bool      `json:"is_quote"`
	EntryType    string    `json:"entry_type"`
	Price        string    `json:"price,omitempty"`
	TimeInForce  string    `json:"time_in_force"`
	Available    string    `json:"available"`
	Traded       string    `json:"traded"`
	Cancelled    string    `json:"cancelled"`
	Status       string    `json:"status"`
	RejectReason string    `json:"reject_reason,omitempty"`
	RejectText   string    `json:"reject_text,omitempty"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
	LastEventID  int64     `json:"last_event_id"`
}

// ErrorResponse represents an error response
type ErrorResponse struct {
	Code    string `json:"code"`    // Error code
	Message string `json:"message"` // Error message
}
