package book

import (
	"github.com/google/btree"
)

const limitBookDegree = 32

// LimitBook holds the entries of one side in price-time priority. It is a
// persistent value: every mutation clones the underlying B-tree (a lazy
// copy-on-write clone) and returns a new LimitBook, leaving the receiver and
// every earlier snapshot unchanged.
type LimitBook struct {
	side Side
	tree *btree.BTreeG[BookEntry]
}

// NewLimitBook creates an empty book for one side
func NewLimitBook(side Side) LimitBook {
	return LimitBook{
		side: side,
		tree: btree.NewG[BookEntry](limitBookDegree, lessFor(side)),
	}
}

// lessFor returns the priority ordering of a side. Market entries (no
// price) rank ahead of every priced entry.
func lessFor(side Side) btree.LessFunc[BookEntry] {
	return func(a, b BookEntry) bool {
		if c := comparePrices(side, a.Key.Price, b.Key.Price); c != 0 {
			return c < 0
		}
		return compareKeys(a.Key, b.Key) < 0
	}
}

// comparePrices returns -1 when a has priority over b on side
func comparePrices(side Side, a, b *Price) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return -1
	case b == nil:
		return 1
	case *a == *b:
		return 0
	}
	better := *a < *b
	if side == SideBuy {
		better = *a > *b
	}
	if better {
		return -1
	}
	return 1
}

// Side returns the side of the book
func (b LimitBook) Side() Side {
	return b.side
}

// Len returns the number of entries
func (b LimitBook) Len() int {
	if b.tree == nil {
		return 0
	}
	return b.tree.Len()
}

// Walk iterates entries in priority order until fn returns false
func (b LimitBook) Walk(fn func(BookEntry) bool) {
	if b.tree == nil {
		return
	}
	b.tree.Ascend(btree.ItemIteratorG[BookEntry](fn))
}

// Entries returns all entries in priority order
func (b LimitBook) Entries() []BookEntry {
	entries := make([]BookEntry, 0, b.Len())
	b.Walk(func(e BookEntry) bool {
		entries = append(entries, e)
		return true
	})
	return entries
}

// Find returns the entries matching predicate, in priority order
func (b LimitBook) Find(predicate func(BookEntry) bool) []BookEntry {
	var found []BookEntry
	b.Walk(func(e BookEntry) bool {
		if predicate(e) {
			found = append(found, e)
		}
		return true
	})
	return found
}

// Best returns the highest priority entry
func (b LimitBook) Best() (BookEntry, bool) {
	if b.tree == nil {
		return BookEntry{}, false
	}
	return b.tree.Min()
}

// Get returns the entry occupying the same position as probe
func (b LimitBook) Get(probe BookEntry) (BookEntry, bool) {
	if b.tree == nil {
		return BookEntry{}, false
	}
	return b.tree.Get(probe)
}

// Add returns a book with entry inserted (or replaced at the same key)
func (b LimitBook) Add(entry BookEntry) LimitBook {
	next := b.clone()
	next.tree.ReplaceOrInsert(entry)
	return next
}

// Remove returns a book without the entries matching predicate
func (b LimitBook) Remove(predicate func(BookEntry) bool) LimitBook {
	matched := b.Find(predicate)
	if len(matched) == 0 {
		return b
	}
	next := b.clone()
	for _, e := range matched {
		next.tree.Delete(e)
	}
	return next
}

func (b LimitBook) clone() LimitBook {
	if b.tree == nil {
		return NewLimitBook(b.side)
	}
	return LimitBook{side: b.side, tree: b.tree.Clone()}
}
