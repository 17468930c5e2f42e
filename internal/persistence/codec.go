package persistence

import (
	"encoding/json"
	"fmt"
	"time"

	"matching-core/internal/book"
	"matching-core/internal/order"
	"matching-core/internal/quote"
	"matching-core/internal/trade"
)

const recordVersion = 1

type decoder func(payload json.RawMessage) (book.Event, error)

// decodeAs unmarshals a payload into the concrete event type T
func decodeAs[T book.Event](payload json.RawMessage) (book.Event, error) {
	var event T
	if err := json.Unmarshal(payload, &event); err != nil {
		return nil, fmt.Errorf("failed to unmarshal %T: %w", event, err)
	}
	return event, nil
}

// registry maps the persisted type name of every book event to its decoder
var registry = map[string]decoder{
	book.EntryAddedToBookEvent{}.EventType():         decodeAs[book.EntryAddedToBookEvent],
	order.OrderPlacedEvent{}.EventType():             decodeAs[order.OrderPlacedEvent],
	order.OrderRejectedEvent{}.EventType():           decodeAs[order.OrderRejectedEvent],
	order.OrderCancelledEvent{}.EventType():          decodeAs[order.OrderCancelledEvent],
	order.OrderCancelRejectedEvent{}.EventType():     decodeAs[order.OrderCancelRejectedEvent],
	quote.MassQuotePlacedEvent{}.EventType():         decodeAs[quote.MassQuotePlacedEvent],
	quote.MassQuoteRejectedEvent{}.EventType():       decodeAs[quote.MassQuoteRejectedEvent],
	quote.MassQuoteCancelledEvent{}.EventType():      decodeAs[quote.MassQuoteCancelledEvent],
	quote.MassQuoteCancelRejectedEvent{}.EventType(): decodeAs[quote.MassQuoteCancelRejectedEvent],
	trade.TradeEvent{}.EventType():                   decodeAs[trade.TradeEvent],
}

// EncodeEvent wraps an event in its persisted envelope
func EncodeEvent(event book.Event, occurredAt time.Time) (EventRecord, error) {
	if _, ok := registry[event.EventType()]; !ok {
		return EventRecord{}, fmt.Errorf("unknown event type: %s", event.EventType())
	}
	payload, err := json.Marshal(event)
	if err != nil {
		return EventRecord{}, fmt.Errorf("failed to marshal event: %w", err)
	}
	return EventRecord{
		Version:    recordVersion,
		BookID:     string(event.AggregateID()),
		Sequence:   int64(event.EventID()),
		Type:       event.EventType(),
		OccurredAt: occurredAt,
		Payload:    payload,
	}, nil
}

// DecodeEvent restores the concrete event held by a record
func DecodeEvent(record EventRecord) (book.Event, error) {
	decode, ok := registry[record.Type]
	if !ok {
		return nil, fmt.Errorf("unknown event type: %s", record.Type)
	}
	return decode(record.Payload)
}

// MarshalEvent encodes an event as one JSON record line
func MarshalEvent(event book.Event, occurredAt time.Time) ([]byte, error) {
	record, err := EncodeEvent(event, occurredAt)
	if err != nil {
		return nil, err
	}
	return json.Marshal(record)
}
