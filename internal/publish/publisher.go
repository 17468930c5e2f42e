// Package publish fans committed book events out to message brokers. Every
// driver sends the same persisted event envelope, keyed by book ID so that
// a book's events stay ordered within one partition.
package publish

import (
	"context"
	"fmt"
	"time"

	"matching-core/internal/book"
	"matching-core/internal/persistence"
)

// Publisher publishes the events of one committed transaction
type Publisher interface {
	Publish(ctx context.Context, bookID book.BookID, events []book.Event) error
	Close() error
}

// Message is one encoded event ready for a broker
type Message struct {
	Key       []byte
	Value     []byte
	EventType string
}

// Encode wraps every event in its envelope, stamped with now
func Encode(bookID book.BookID, events []book.Event, now time.Time) ([]Message, error) {
	messages := make([]Message, 0, len(events))
	for _, event := range events {
		value, err := persistence.MarshalEvent(event, now)
		if err != nil {
			return nil, fmt.Errorf("failed to encode event %d: %w", event.EventID(), err)
		}
		messages = append(messages, Message{
			Key:       []byte(bookID),
			Value:     value,
			EventType: event.EventType(),
		})
	}
	return messages, nil
}

// NopPublisher discards events
type NopPublisher struct{}

func (NopPublisher) Publish(ctx context.Context, bookID book.BookID, events []book.Event) error {
	return nil
}

func (NopPublisher) Close() error { return nil }
