package cqrs

import (
	"errors"
	"fmt"
)

// ErrEventOutOfOrder is returned when an event is played against an aggregate
// whose last event ID is not the direct predecessor of the event's ID.
var ErrEventOutOfOrder = errors.New("event out of order")

// EventID is the sequence number stamped on every event of an aggregate
type EventID int64

// Next returns the successor ID
func (id EventID) Next() EventID {
	return id + 1
}

// IsNextOf reports whether id directly follows previous
func (id EventID) IsNextOf(previous EventID) bool {
	return id == previous+1
}

// VerifySuccessor returns next if it directly follows last, otherwise an
// ErrEventOutOfOrder error describing both IDs.
func VerifySuccessor(last, next EventID) (EventID, error) {
	if !next.IsNextOf(last) {
		return 0, fmt.Errorf("%w: expected %d, got %d", ErrEventOutOfOrder, last.Next(), next)
	}
	return next, nil
}

// Event is an immutable, sequentially numbered fact about one aggregate.
// Play recomputes the aggregate state the event describes; it never mutates
// its argument.
type Event[K comparable, A any] interface {
	AggregateID() K
	EventID() EventID
	EventType() string
	Play(aggregate A) (A, error)
}

// Replay plays events in order on top of aggregate
func Replay[K comparable, A any](aggregate A, events []Event[K, A]) (A, error) {
	current := aggregate
	for _, event := range events {
		next, err := event.Play(current)
		if err != nil {
			return aggregate, fmt.Errorf("replay event %d (%s): %w", event.EventID(), event.EventType(), err)
		}
		current = next
	}
	return current, nil
}
