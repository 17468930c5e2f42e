package book

import (
	"errors"
	"fmt"
	"time"

	"matching-core/internal/client"
	"matching-core/internal/cqrs"
)

// ErrNegativeSize is returned when entry sizes would become negative
var ErrNegativeSize = errors.New("entry sizes cannot be negative")

// EntrySizes holds the live and terminal quantities of an entry.
// Available is the resting quantity; Traded and Cancelled only accumulate.
type EntrySizes struct {
	Available int64 `json:"available"`
	Traded    int64 `json:"traded"`
	Cancelled int64 `json:"cancelled"`
}

// NewEntrySizes creates sizes, failing on any negative quantity
func NewEntrySizes(available, traded, cancelled int64) (EntrySizes, error) {
	if available < 0 || traded < 0 || cancelled < 0 {
		return EntrySizes{}, fmt.Errorf("%w: available=%d, traded=%d, cancelled=%d",
			ErrNegativeSize, available, traded, cancelled)
	}
	return EntrySizes{Available: available, Traded: traded, Cancelled: cancelled}, nil
}

// Cancel moves all available quantity to cancelled
func (s EntrySizes) Cancel() EntrySizes {
	return EntrySizes{
		Available: 0,
		Traded:    s.Traded,
		Cancelled: s.Cancelled + s.Available,
	}
}

// Trade moves size from available to traded
func (s EntrySizes) Trade(size int64) (EntrySizes, error) {
	if size < 0 {
		return EntrySizes{}, fmt.Errorf("%w: trade size=%d", ErrNegativeSize, size)
	}
	return NewEntrySizes(s.Available-size, s.Traded+size, s.Cancelled)
}

// EntryKey orders entries within one side: better price first, then
// earlier event, then lower leg sequence within the event.
type EntryKey struct {
	Price         *Price       `json:"price,omitempty"`
	WhenSubmitted time.Time    `json:"when_submitted"`
	EventID       cqrs.EventID `json:"event_id"`
	Sequence      int          `json:"sequence"`
}

// BookEntry is one resting order or quote leg
type BookEntry struct {
	Key          EntryKey         `json:"key"`
	RequestID    client.RequestID `json:"request_id"`
	WhoRequested client.Client    `json:"who_requested"`
	IsQuote      bool             `json:"is_quote"`
	EntryType    EntryType        `json:"entry_type"`
	Side         Side             `json:"side"`
	TimeInForce  TimeInForce      `json:"time_in_force"`
	Sizes        EntrySizes       `json:"sizes"`
	Status       EntryStatus      `json:"status"`
}

// Price returns the entry price, nil for market entries
func (e BookEntry) Price() *Price {
	return e.Key.Price
}

// WithKey returns a copy keyed by another event ID and sequence
func (e BookEntry) WithKey(eventID cqrs.EventID, sequence int) BookEntry {
	e.Key.EventID = eventID
	e.Key.Sequence = sequence
	return e
}

// Cancelled returns the entry with all available quantity cancelled
func (e BookEntry) Cancelled() BookEntry {
	e.Sizes = e.Sizes.Cancel()
	e.Status = EntryStatusCancelled
	return e
}

// Traded returns the entry after size has been filled
func (e BookEntry) Traded(size int64) (BookEntry, error) {
	sizes, err := e.Sizes.Trade(size)
	if err != nil {
		return e, err
	}
	e.Sizes = sizes
	if sizes.Available == 0 {
		e.Status = EntryStatusFilled
	} else {
		e.Status = EntryStatusPartialFill
	}
	return e, nil
}

// SameKey reports whether both entries occupy the same book position
func (e BookEntry) SameKey(other BookEntry) bool {
	return compareKeys(e.Key, other.Key) == 0 && e.Side == other.Side
}

func compareKeys(a, b EntryKey) int {
	switch {
	case a.EventID != b.EventID:
		if a.EventID < b.EventID {
			return -1
		}
		return 1
	case a.Sequence != b.Sequence:
		if a.Sequence < b.Sequence {
			return -1
		}
		return 1
	}
	return 0
}
