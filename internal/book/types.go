package book

import "fmt"

// BookID identifies the book of one tradable symbol
type BookID string

// Side represents entry side (buy/sell)
type Side string

const (
	SideBuy  Side = "BUY"
	SideSell Side = "SELL"
)

func (s Side) IsValid() bool {
	return s == SideBuy || s == SideSell
}

// Opposite returns the contra side
func (s Side) Opposite() Side {
	if s == SideBuy {
		return SideSell
	}
	return SideBuy
}

// EntryType represents how an entry is priced
type EntryType string

const (
	EntryTypeLimit  EntryType = "LIMIT"
	EntryTypeMarket EntryType = "MARKET"
)

// TimeInForce represents how long an entry may rest on the book
type TimeInForce string

const (
	TimeInForceGoodTillCancel    TimeInForce = "GOOD_TILL_CANCEL"
	TimeInForceImmediateOrCancel TimeInForce = "IMMEDIATE_OR_CANCEL"
)

func (t TimeInForce) IsValid() bool {
	return t == TimeInForceGoodTillCancel || t == TimeInForceImmediateOrCancel
}

// EntryStatus represents the lifecycle status of an entry
type EntryStatus string

const (
	EntryStatusNew         EntryStatus = "NEW"
	EntryStatusPartialFill EntryStatus = "PARTIAL_FILL"
	EntryStatusFilled      EntryStatus = "FILLED"
	EntryStatusCancelled   EntryStatus = "CANCELLED"
	EntryStatusRejected    EntryStatus = "REJECTED"
)

// Price is a price in minimum units (ticks)
type Price int64

// NewPrice returns a pointer to a price, for optional price fields
func NewPrice(v int64) *Price {
	p := Price(v)
	return &p
}

func (p *Price) String() string {
	if p == nil {
		return "MKT"
	}
	return fmt.Sprintf("%d", int64(*p))
}

// SizeAtPrice is one quoted leg: a size offered at a price
type SizeAtPrice struct {
	Size  int64 `json:"size"`
	Price Price `json:"price"`
}
