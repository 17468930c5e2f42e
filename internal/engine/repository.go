package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"matching-core/internal/book"
	"matching-core/internal/cqrs"
)

var (
	// ErrStaleAggregate is returned when a transaction was computed from a
	// version of the books that is no longer current
	ErrStaleAggregate = errors.New("stale aggregate")

	// ErrBookExists is returned when opening a book that already exists
	ErrBookExists = errors.New("book already exists")
)

// Version counts the commits of one book. It changes on every write,
// including trading status changes that emit no event.
type Version uint64

type bookRecord struct {
	books   book.Books
	version Version
	saving  *sync.Mutex
}

// Repository holds the current Books aggregate of every book. Commits are
// optimistic: a writer passes the version it read and loses if another
// write landed in between.
type Repository struct {
	mu      sync.RWMutex
	records map[book.BookID]bookRecord
}

// NewRepository creates an empty repository
func NewRepository() *Repository {
	return &Repository{
		records: make(map[book.BookID]bookRecord),
	}
}

// Load returns the current books and their version
func (r *Repository) Load(bookID book.BookID) (book.Books, Version, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.records[bookID]
	return rec.books, rec.version, ok
}

// Create adds a book that does not exist yet
func (r *Repository) Create(books book.Books) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.records[books.BookID]; ok {
		return fmt.Errorf("%w: %s", ErrBookExists, books.BookID)
	}
	r.records[books.BookID] = bookRecord{books: books, version: 1, saving: &sync.Mutex{}}
	return nil
}

// Put replaces a book unconditionally, used when recovering
func (r *Repository) Put(books book.Books) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[books.BookID]
	if !ok {
		rec.saving = &sync.Mutex{}
	}
	r.records[books.BookID] = bookRecord{books: books, version: rec.version + 1, saving: rec.saving}
}

// Commit installs the aggregate of txn if the book is still at expected.
// persist runs under the commit lock before the swap; if it fails nothing
// is installed.
func (r *Repository) Commit(expected Version, txn book.Transaction, persist func([]book.Event) error) error {
	bookID := txn.Aggregate.BookID

	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[bookID]
	if !ok {
		return book.NotFoundError(bookID)
	}
	if rec.version != expected {
		return fmt.Errorf("%w: book=%s expected=%d current=%d", ErrStaleAggregate, bookID, expected, rec.version)
	}
	if len(txn.Events) > 0 {
		if _, err := cqrs.VerifySuccessor(rec.books.LastEventID, txn.Events[0].EventID()); err != nil {
			return fmt.Errorf("book %s: %w", bookID, err)
		}
	}
	if persist != nil {
		if err := persist(txn.Events); err != nil {
			return err
		}
	}

	r.records[bookID] = bookRecord{books: txn.Aggregate, version: rec.version + 1, saving: rec.saving}
	return nil
}

// Update applies fn to the current books under the write lock. Commits
// prepared against the previous version become stale.
func (r *Repository) Update(bookID book.BookID, fn func(book.Books) book.Books) (book.Books, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[bookID]
	if !ok {
		return book.Books{}, book.NotFoundError(bookID)
	}
	updated := fn(rec.books)
	r.records[bookID] = bookRecord{books: updated, version: rec.version + 1, saving: rec.saving}
	return updated, nil
}

// SaveLatest hands the current books to save. Saves of one book run one at
// a time and each reads the books only once it holds its turn, so the last
// save always carries the latest books.
func (r *Repository) SaveLatest(bookID book.BookID, save func(book.Books) error) error {
	r.mu.RLock()
	rec, ok := r.records[bookID]
	r.mu.RUnlock()
	if !ok {
		return book.NotFoundError(bookID)
	}

	rec.saving.Lock()
	defer rec.saving.Unlock()

	current, _, _ := r.Load(bookID)
	return save(current)
}

// BookIDs lists every book, sorted
func (r *Repository) BookIDs() []book.BookID {
	r.mu.RLock()
	defer r.mu.RUnlock()

	ids := make([]book.BookID, 0, len(r.records))
	for id := range r.records {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}
