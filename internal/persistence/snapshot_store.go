package persistence

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"

	"matching-core/internal/book"
)

// FileSnapshotStore implements SnapshotStore using JSON files
type FileSnapshotStore struct {
	baseDir string
	mu      sync.RWMutex
}

// NewFileSnapshotStore creates a new file-based snapshot store
func NewFileSnapshotStore(baseDir string) (*FileSnapshotStore, error) {
	if err := os.MkdirAll(baseDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create base directory: %w", err)
	}

	return &FileSnapshotStore{
		baseDir: baseDir,
	}, nil
}

// Save writes snapshot-<last_seq>.json atomically through a temporary file
func (s *FileSnapshotStore) Save(ctx context.Context, snapshot *book.Snapshot) error {
	if snapshot == nil {
		return fmt.Errorf("snapshot is nil")
	}
	if snapshot.GetSymbol() == "" {
		return fmt.Errorf("snapshot has no symbol")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	bookDir := filepath.Join(s.baseDir, snapshot.GetSymbol())
	if err := os.MkdirAll(bookDir, 0755); err != nil {
		return fmt.Errorf("failed to create book directory: %w", err)
	}

	filePath := filepath.Join(bookDir, fmt.Sprintf("snapshot-%d.json", snapshot.GetLastSequence()))

	data, err := json.MarshalIndent(snapshot, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal snapshot: %w", err)
	}

	tempPath := filePath + ".tmp"
	if err := os.WriteFile(tempPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write snapshot file: %w", err)
	}
	if err := os.Rename(tempPath, filePath); err != nil {
		os.Remove(tempPath)
		return fmt.Errorf("failed to rename snapshot file: %w", err)
	}

	return nil
}

// Load loads the latest snapshot for a book
func (s *FileSnapshotStore) Load(ctx context.Context, bookID book.BookID) (*book.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	snapshots, err := s.listSnapshotsInternal(bookID)
	if err != nil {
		return nil, err
	}
	if len(snapshots) == 0 {
		return nil, nil
	}

	data, err := os.ReadFile(snapshots[0].FilePath)
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot file: %w", err)
	}

	var snapshot book.Snapshot
	if err := json.Unmarshal(data, &snapshot); err != nil {
		return nil, fmt.Errorf("failed to unmarshal snapshot: %w", err)
	}
	return &snapshot, nil
}

// ListSnapshots lists all available snapshots for a book (sorted by sequence desc)
func (s *FileSnapshotStore) ListSnapshots(ctx context.Context, bookID book.BookID) ([]SnapshotMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.listSnapshotsInternal(bookID)
}

func (s *FileSnapshotStore) listSnapshotsInternal(bookID book.BookID) ([]SnapshotMetadata, error) {
	bookDir := filepath.Join(s.baseDir, string(bookID))

	entries, err := os.ReadDir(bookDir)
	if os.IsNotExist(err) {
		return []SnapshotMetadata{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read snapshot directory: %w", err)
	}

	var snapshots []SnapshotMetadata
	for _, entry := range entries {
		name := entry.Name()
		if entry.IsDir() || !strings.HasPrefix(name, "snapshot-") || !strings.HasSuffix(name, ".json") {
			continue
		}

		var seq int64
		if _, err := fmt.Sscanf(name, "snapshot-%d.json", &seq); err != nil {
			continue
		}

		info, err := entry.Info()
		if err != nil {
			continue
		}

		snapshots = append(snapshots, SnapshotMetadata{
			Symbol:       string(bookID),
			LastSequence: seq,
			CapturedAt:   info.ModTime(),
			FilePath:     filepath.Join(bookDir, name),
		})
	}

	// Latest first
	sort.Slice(snapshots, func(i, j int) bool {
		return snapshots[i].LastSequence > snapshots[j].LastSequence
	})

	return snapshots, nil
}

func (s *FileSnapshotStore) Close() error {
	return nil
}
