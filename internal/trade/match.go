// Package trade matches an incoming entry against the contra side of a book.
package trade

import (
	"fmt"
	"time"

	"matching-core/internal/book"
	"matching-core/internal/cqrs"
)

// Match fills aggressor against the resting entries of the opposite side in
// price-time priority while prices cross. Entries of the same requester are
// skipped. It returns the trades as a transaction and the aggressor with
// its remaining sizes.
func Match(books book.Books, aggressor book.BookEntry, when time.Time) (book.Transaction, book.BookEntry, error) {
	txn := cqrs.NewTransaction[book.BookID, book.Books](books)

	for _, passive := range books.LimitBookOf(aggressor.Side.Opposite()).Entries() {
		if aggressor.Sizes.Available == 0 {
			break
		}
		price, ok := tradePrice(aggressor, passive)
		if !ok {
			break
		}
		if passive.WhoRequested == aggressor.WhoRequested {
			continue
		}

		size := min(aggressor.Sizes.Available, passive.Sizes.Available)
		nextAggressor, err := aggressor.Traded(size)
		if err != nil {
			return txn, aggressor, fmt.Errorf("trade aggressor %s: %w", aggressor.RequestID.Current, err)
		}
		nextPassive, err := passive.Traded(size)
		if err != nil {
			return txn, aggressor, fmt.Errorf("trade passive %s: %w", passive.RequestID.Current, err)
		}

		txn, err = txn.Play(TradeEvent{
			EventIDValue: txn.Aggregate.LastEventID.Next(),
			BookID:       books.BookID,
			Size:         size,
			Price:        price,
			WhenHappened: when,
			Aggressor:    nextAggressor,
			Passive:      nextPassive,
		})
		if err != nil {
			return txn, aggressor, err
		}
		aggressor = nextAggressor
	}

	return txn, aggressor, nil
}

// tradePrice returns the price a fill happens at, the passive entry's
// price, and false when the prices do not cross.
func tradePrice(aggressor, passive book.BookEntry) (book.Price, bool) {
	switch {
	case passive.Price() == nil && aggressor.Price() == nil:
		return 0, false
	case passive.Price() == nil:
		return *aggressor.Price(), true
	case aggressor.Price() == nil:
		return *passive.Price(), true
	}
	p, a := *passive.Price(), *aggressor.Price()
	if aggressor.Side == book.SideBuy {
		return p, a >= p
	}
	return p, a <= p
}
