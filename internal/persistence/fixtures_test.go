package persistence

import (
	"fmt"
	"path/filepath"
	"testing"

	"matching-core/internal/book"
	"matching-core/internal/book/booktest"
	"matching-core/internal/client"
	"matching-core/internal/cqrs"
)

// restingEvents returns n events that each rest one buy entry, numbered
// from first
func restingEvents(bookID book.BookID, first, n int64) []book.Event {
	events := make([]book.Event, 0, n)
	for seq := first; seq < first+n; seq++ {
		entry := booktest.Entry(cqrs.EventID(seq), book.SideBuy, 100+seq, 10, booktest.FirmWithClient(), "r")
		entry.RequestID = client.RequestID{Current: fmt.Sprintf("r-%d", seq)}
		events = append(events, book.EntryAddedToBookEvent{
			EventIDValue: cqrs.EventID(seq),
			BookID:       bookID,
			Entry:        entry,
			WhenHappened: booktest.Now,
		})
	}
	return events
}

// eventStores returns one store per driver, closed when the test ends
func eventStores(t *testing.T) map[string]EventStore {
	t.Helper()
	dir := t.TempDir()

	fileStore, err := NewFileEventStore(filepath.Join(dir, "events"), nil)
	if err != nil {
		t.Fatalf("failed to create file event store: %v", err)
	}
	pebbleStore, err := OpenPebbleEventStore(filepath.Join(dir, "pebble"), nil)
	if err != nil {
		t.Fatalf("failed to open pebble event store: %v", err)
	}
	t.Cleanup(func() {
		fileStore.Close()
		pebbleStore.Close()
	})

	return map[string]EventStore{"file": fileStore, "pebble": pebbleStore}
}
