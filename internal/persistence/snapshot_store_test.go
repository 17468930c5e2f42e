package persistence

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"matching-core/internal/book"
	"matching-core/internal/book/booktest"
	"matching-core/internal/cqrs"
)

func TestFileSnapshotStore_SaveAndLoad(t *testing.T) {
	store, err := NewFileSnapshotStore(filepath.Join(t.TempDir(), "snapshots"))
	if err != nil {
		t.Fatalf("failed to create snapshot store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	books := booktest.Books(
		booktest.Entry(1, book.SideBuy, 99, 5, booktest.FirmWithClient(), "b1"),
		booktest.Entry(2, book.SideSell, 101, 5, booktest.FirmWithoutClient(), "s1"),
	)

	if err := store.Save(ctx, books.Snapshot(time.Now())); err != nil {
		t.Fatalf("failed to save snapshot: %v", err)
	}

	loaded, err := store.Load(ctx, booktest.BookID)
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if loaded == nil {
		t.Fatal("expected snapshot, got nil")
	}
	if loaded.LastSequence != 2 {
		t.Errorf("expected last sequence 2, got %d", loaded.LastSequence)
	}

	restored, err := book.FromSnapshot(loaded)
	if err != nil {
		t.Fatalf("failed to restore books: %v", err)
	}
	if restored.BuyLimitBook.Len() != 1 || restored.SellLimitBook.Len() != 1 {
		t.Errorf("expected one entry per side, got %d buy and %d sell",
			restored.BuyLimitBook.Len(), restored.SellLimitBook.Len())
	}
}

func TestFileSnapshotStore_LoadLatest(t *testing.T) {
	store, err := NewFileSnapshotStore(filepath.Join(t.TempDir(), "snapshots"))
	if err != nil {
		t.Fatalf("failed to create snapshot store: %v", err)
	}
	defer store.Close()

	ctx := context.Background()
	for _, seq := range []int64{50, 100, 75, 120} {
		snapshot := book.NewBooks(booktest.BookID).OfEventID(cqrs.EventID(seq)).Snapshot(time.Now())
		if err := store.Save(ctx, snapshot); err != nil {
			t.Fatalf("failed to save snapshot seq=%d: %v", seq, err)
		}
	}

	loaded, err := store.Load(ctx, booktest.BookID)
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if loaded == nil || loaded.LastSequence != 120 {
		t.Fatalf("expected latest sequence 120, got %+v", loaded)
	}

	snapshots, err := store.ListSnapshots(ctx, booktest.BookID)
	if err != nil {
		t.Fatalf("failed to list snapshots: %v", err)
	}
	want := []int64{120, 100, 75, 50}
	if len(snapshots) != len(want) {
		t.Fatalf("expected %d snapshots, got %d", len(want), len(snapshots))
	}
	for i, seq := range want {
		if snapshots[i].LastSequence != seq {
			t.Errorf("snapshot %d: expected seq=%d, got %d", i, seq, snapshots[i].LastSequence)
		}
	}
}

func TestFileSnapshotStore_NoSnapshot(t *testing.T) {
	store, err := NewFileSnapshotStore(filepath.Join(t.TempDir(), "snapshots"))
	if err != nil {
		t.Fatalf("failed to create snapshot store: %v", err)
	}
	defer store.Close()

	loaded, err := store.Load(context.Background(), "NON-EXISTENT")
	if err != nil {
		t.Fatalf("failed to load snapshot: %v", err)
	}
	if loaded != nil {
		t.Errorf("expected nil snapshot, got %v", loaded)
	}
}
