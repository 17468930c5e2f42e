package book

import (
	"fmt"
	"time"

	"matching-core/internal/cqrs"
)

// Snapshot is a serialisable, point-in-time copy of a Books aggregate
type Snapshot struct {
	Version         int             `json:"version"`
	Symbol          string          `json:"symbol"`
	LastSequence    int64           `json:"last_sequence"`
	CapturedAt      time.Time       `json:"captured_at"`
	TradingStatuses TradingStatuses `json:"trading_statuses"`
	BuyEntries      []BookEntry     `json:"buy_entries"`
	SellEntries     []BookEntry     `json:"sell_entries"`
}

func (s *Snapshot) GetSymbol() string      { return s.Symbol }
func (s *Snapshot) GetLastSequence() int64 { return s.LastSequence }

// Snapshot captures the books
func (b Books) Snapshot(capturedAt time.Time) *Snapshot {
	return &Snapshot{
		Version:         1,
		Symbol:          string(b.BookID),
		LastSequence:    int64(b.LastEventID),
		CapturedAt:      capturedAt,
		TradingStatuses: b.TradingStatuses,
		BuyEntries:      b.BuyLimitBook.Entries(),
		SellEntries:     b.SellLimitBook.Entries(),
	}
}

// FromSnapshot rebuilds books from a snapshot, checking that every entry
// sits on the side it was captured from
func FromSnapshot(s *Snapshot) (Books, error) {
	if s == nil {
		return Books{}, fmt.Errorf("snapshot is nil")
	}
	books := NewBooks(BookID(s.Symbol)).
		WithTradingStatuses(s.TradingStatuses).
		OfEventID(cqrs.EventID(s.LastSequence))
	for side, entries := range map[Side][]BookEntry{SideBuy: s.BuyEntries, SideSell: s.SellEntries} {
		for _, e := range entries {
			if e.Side != side {
				return Books{}, fmt.Errorf("snapshot %s: entry %d/%d on %s book has side %s",
					s.Symbol, e.Key.EventID, e.Key.Sequence, side, e.Side)
			}
			books = books.AddBookEntry(e)
		}
	}
	return books, nil
}
