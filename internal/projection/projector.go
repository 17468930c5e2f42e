package projection

import (
	"context"
	"errors"
	"fmt"
	"time"

	"matching-core/internal/book"
	"matching-core/internal/order"
	"matching-core/internal/quote"
	"matching-core/internal/trade"
)

// Projector consumes book events and updates read models
type Projector struct {
	entryRepo EntryRepository
	tradeRepo TradeRepository
}

// NewProjector creates a new projector
func NewProjector(entryRepo EntryRepository, tradeRepo TradeRepository) *Projector {
	return &Projector{
		entryRepo: entryRepo,
		tradeRepo: tradeRepo,
	}
}

// Project applies a single event to the read models
// Returns error if sequence validation fails or projection fails
func (p *Projector) Project(ctx context.Context, event book.Event) error {
	if event == nil {
		return fmt.Errorf("event is nil")
	}

	bookID := event.AggregateID()
	sequence := int64(event.EventID())

	if err := p.validateSequence(ctx, bookID, sequence); err != nil {
		return err
	}

	var err error
	switch e := event.(type) {
	case order.OrderPlacedEvent:
		err = p.projectOrderPlaced(ctx, e)
	case order.OrderRejectedEvent:
		err = p.projectOrderRejected(ctx, e)
	case order.OrderCancelledEvent:
		err = p.projectOrderCancelled(ctx, e)
	case quote.MassQuotePlacedEvent:
		err = p.projectMassQuotePlaced(ctx, e)
	case quote.MassQuoteCancelledEvent:
		err = p.projectMassQuoteCancelled(ctx, e)
	case book.EntryAddedToBookEvent:
		err = p.upsertEntry(ctx, bookID, e.Entry, e.WhenHappened, sequence)
	case trade.TradeEvent:
		err = p.projectTrade(ctx, e)
	case order.OrderCancelRejectedEvent, quote.MassQuoteRejectedEvent, quote.MassQuoteCancelRejectedEvent:
		// nothing to project, the cursor still advances
	default:
		return fmt.Errorf("unknown event type: %T", event)
	}
	if err != nil {
		return fmt.Errorf("failed to project %s: %w", event.EventType(), err)
	}

	// Advance trade first, then entry: validation reads both cursors and a
	// failure in between must leave a replayable state.
	if err := p.tradeRepo.SetLastSequence(ctx, bookID, sequence); err != nil {
		return fmt.Errorf("failed to advance trade sequence: %w", err)
	}
	if err := p.entryRepo.SetLastSequence(ctx, bookID, sequence); err != nil {
		return fmt.Errorf("failed to advance entry sequence: %w", err)
	}

	return nil
}

// validateSequence checks if the event sequence is valid (must be last + 1)
func (p *Projector) validateSequence(ctx context.Context, bookID book.BookID, sequence int64) error {
	entryLastSeq, err := p.entryRepo.GetLastSequence(ctx, bookID)
	if err != nil {
		return fmt.Errorf("failed to get entry last sequence: %w", err)
	}
	tradeLastSeq, err := p.tradeRepo.GetLastSequence(ctx, bookID)
	if err != nil {
		return fmt.Errorf("failed to get trade last sequence: %w", err)
	}
	if entryLastSeq != tradeLastSeq {
		return fmt.Errorf("projection sequence mismatch: book=%s entry_last=%d trade_last=%d",
			bookID, entryLastSeq, tradeLastSeq)
	}
	lastSeq := entryLastSeq

	if sequence == lastSeq+1 {
		return nil
	}
	if sequence <= lastSeq {
		return fmt.Errorf("%w: book=%s last=%d event=%d", ErrSequenceRegression, bookID, lastSeq, sequence)
	}
	return fmt.Errorf("%w: book=%s last=%d event=%d", ErrSequenceGap, bookID, lastSeq, sequence)
}

func (p *Projector) projectOrderPlaced(ctx context.Context, event order.OrderPlacedEvent) error {
	return p.upsertEntry(ctx, event.BookID, event.Entry(), event.WhenHappened, int64(event.EventIDValue))
}

func (p *Projector) projectOrderRejected(ctx context.Context, event order.OrderRejectedEvent) error {
	seq := int64(event.EventIDValue)
	view := &EntryView{
		BookID:       event.BookID,
		WhoRequested: event.WhoRequested,
		RequestID:    event.RequestID,
		Side:         event.Side,
		EntryType:    event.EntryType,
		Price:        event.Price,
		TimeInForce:  event.TimeInForce,
		Sizes:        book.EntrySizes{Cancelled: max(event.Size, 0)},
		Status:       event.Status,
		RejectReason: string(event.RejectReason),
		RejectText:   event.RejectText,
		CreatedAt:    event.WhenHappened,
		UpdatedAt:    event.WhenHappened,
		LastSequence: seq,
	}

	existing, err := p.entryRepo.Get(ctx, view.Key())
	if err == nil && existing.LastSequence >= seq {
		return nil
	} else if err != nil && !errors.Is(err, ErrEntryNotFound) {
		return fmt.Errorf("failed to get entry: %w", err)
	}

	return p.entryRepo.Save(ctx, view)
}

// projectOrderCancelled marks the cancelled entry. Cancels by the exchange
// carry the entry's request ID; cancel requests carry their own and name
// the cancelled request as original.
func (p *Projector) projectOrderCancelled(ctx context.Context, event order.OrderCancelledEvent) error {
	key := EntryViewKey{BookID: event.BookID, WhoRequested: event.WhoRequested, RequestID: event.RequestID.Current, Side: event.Side}

	entry, err := p.entryRepo.Get(ctx, key)
	if errors.Is(err, ErrEntryNotFound) && event.RequestID.Original != "" {
		key.RequestID = event.RequestID.Original
		entry, err = p.entryRepo.Get(ctx, key)
	}
	if err != nil {
		return fmt.Errorf("failed to get entry: %w", err)
	}
	if entry.LastSequence >= int64(event.EventIDValue) {
		return nil
	}

	entry.Sizes = event.Sizes
	entry.Status = event.Status
	entry.UpdatedAt = event.WhenHappened
	entry.LastSequence = int64(event.EventIDValue)

	return p.entryRepo.Save(ctx, entry)
}

func (p *Projector) projectMassQuotePlaced(ctx context.Context, event quote.MassQuotePlacedEvent) error {
	for _, entry := range event.BookEntries() {
		if err := p.upsertEntry(ctx, event.BookID, entry, event.WhenHappened, int64(event.EventIDValue)); err != nil {
			return err
		}
	}
	return nil
}

func (p *Projector) projectMassQuoteCancelled(ctx context.Context, event quote.MassQuoteCancelledEvent) error {
	for _, entry := range event.Entries {
		if err := p.upsertEntry(ctx, event.BookID, entry, event.WhenHappened, int64(event.EventIDValue)); err != nil {
			return err
		}
	}
	return nil
}

// projectTrade updates both sides of the fill and records the trade
func (p *Projector) projectTrade(ctx context.Context, event trade.TradeEvent) error {
	seq := int64(event.EventIDValue)

	if event.Size <= 0 {
		return fmt.Errorf("invalid trade size: %d", event.Size)
	}
	if err := p.upsertEntry(ctx, event.BookID, event.Passive, event.WhenHappened, seq); err != nil {
		return fmt.Errorf("failed to update passive entry: %w", err)
	}
	if err := p.upsertEntry(ctx, event.BookID, event.Aggressor, event.WhenHappened, seq); err != nil {
		return fmt.Errorf("failed to update aggressor entry: %w", err)
	}

	return p.tradeRepo.Save(ctx, &TradeView{
		TradeID:            TradeID(event.BookID, seq),
		BookID:             event.BookID,
		AggressorRequester: event.Aggressor.WhoRequested,
		AggressorRequestID: event.Aggressor.RequestID.Current,
		AggressorSide:      event.Aggressor.Side,
		PassiveRequester:   event.Passive.WhoRequested,
		PassiveRequestID:   event.Passive.RequestID.Current,
		Price:              event.Price,
		Size:               event.Size,
		OccurredAt:         event.WhenHappened,
		Sequence:           seq,
	})
}

// upsertEntry writes the state an event reports for entry, keeping the
// creation time of an existing view. Replays of applied events are no-ops.
func (p *Projector) upsertEntry(ctx context.Context, bookID book.BookID, entry book.BookEntry, at time.Time, seq int64) error {
	view := entryView(bookID, entry, at, seq)

	existing, err := p.entryRepo.Get(ctx, view.Key())
	switch {
	case err == nil:
		if existing.LastSequence >= seq {
			return nil
		}
		view.CreatedAt = existing.CreatedAt
	case !errors.Is(err, ErrEntryNotFound):
		return fmt.Errorf("failed to get entry: %w", err)
	}

	return p.entryRepo.Save(ctx, view)
}

func entryView(bookID book.BookID, entry book.BookEntry, at time.Time, seq int64) *EntryView {
	return &EntryView{
		BookID:       bookID,
		WhoRequested: entry.WhoRequested,
		RequestID:    entry.RequestID,
		IsQuote:      entry.IsQuote,
		Side:         entry.Side,
		EntryType:    entry.EntryType,
		Price:        entry.Price(),
		TimeInForce:  entry.TimeInForce,
		Sizes:        entry.Sizes,
		Status:       entry.Status,
		CreatedAt:    at,
		UpdatedAt:    at,
		LastSequence: seq,
	}
}
