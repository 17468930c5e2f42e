package cqrs

// Transaction is the atomic output of one command execution: the resulting
// aggregate and the ordered events that produced it.
type Transaction[K comparable, A any] struct {
	Aggregate A
	Events    []Event[K, A]
}

// NewTransaction creates a transaction
func NewTransaction[K comparable, A any](aggregate A, events ...Event[K, A]) Transaction[K, A] {
	return Transaction[K, A]{
		Aggregate: aggregate,
		Events:    append([]Event[K, A](nil), events...),
	}
}

// PlayAsTransaction plays a single event and wraps the result
func PlayAsTransaction[K comparable, A any](event Event[K, A], aggregate A) (Transaction[K, A], error) {
	next, err := event.Play(aggregate)
	if err != nil {
		return Transaction[K, A]{}, err
	}
	return NewTransaction(next, event), nil
}

// Play plays event on top of the transaction's aggregate and appends it
func (t Transaction[K, A]) Play(event Event[K, A]) (Transaction[K, A], error) {
	next, err := event.Play(t.Aggregate)
	if err != nil {
		return t, err
	}
	return t.Append(NewTransaction(next, event)), nil
}

// Append returns a transaction holding other's aggregate and the events of
// both, t's first. Neither input is modified.
func (t Transaction[K, A]) Append(other Transaction[K, A]) Transaction[K, A] {
	events := make([]Event[K, A], 0, len(t.Events)+len(other.Events))
	events = append(events, t.Events...)
	events = append(events, other.Events...)
	return Transaction[K, A]{
		Aggregate: other.Aggregate,
		Events:    events,
	}
}

// LastEventID returns the ID of the last event, or fallback when empty
func (t Transaction[K, A]) LastEventID(fallback EventID) EventID {
	if len(t.Events) == 0 {
		return fallback
	}
	return t.Events[len(t.Events)-1].EventID()
}
