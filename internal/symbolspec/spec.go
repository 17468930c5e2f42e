package symbolspec

import (
	"fmt"
	"sort"
	"strings"

	"matching-core/internal/book"
)

// Spec defines precision and step constraints for a book's symbol.
// Prices and sizes travel as decimal strings at the edge and as integer
// ticks inside the book.
type Spec struct {
	BookID       book.BookID `yaml:"id"`
	PriceScale   int32       `yaml:"price_scale"`
	SizeScale    int32       `yaml:"size_scale"`
	PriceTickInt int64       `yaml:"price_tick"`
	SizeStepInt  int64       `yaml:"size_step"`
}

// Validate checks the spec is usable
func (s Spec) Validate() error {
	if s.BookID == "" {
		return fmt.Errorf("book id is required")
	}
	if s.PriceScale < 0 || s.PriceScale > 18 || s.SizeScale < 0 || s.SizeScale > 18 {
		return fmt.Errorf("book %s: scales must be within [0, 18]", s.BookID)
	}
	if s.PriceTickInt <= 0 || s.SizeStepInt <= 0 {
		return fmt.Errorf("book %s: price tick and size step must be positive", s.BookID)
	}
	return nil
}

// Registry holds the specs of the served books
type Registry struct {
	specs map[book.BookID]Spec
}

// NewRegistry creates a registry, rejecting invalid or duplicate specs
func NewRegistry(specs ...Spec) (*Registry, error) {
	r := &Registry{specs: make(map[book.BookID]Spec, len(specs))}
	for _, s := range specs {
		s.BookID = normalize(s.BookID)
		if err := s.Validate(); err != nil {
			return nil, err
		}
		if _, dup := r.specs[s.BookID]; dup {
			return nil, fmt.Errorf("duplicate spec for book %s", s.BookID)
		}
		r.specs[s.BookID] = s
	}
	return r, nil
}

// Default returns the registry of the built-in books
func Default() *Registry {
	r, _ := NewRegistry(
		Spec{BookID: "BTC-USDT", PriceScale: 6, SizeScale: 6, PriceTickInt: 1, SizeStepInt: 1},
		Spec{BookID: "ETH-USDT", PriceScale: 6, SizeScale: 6, PriceTickInt: 1, SizeStepInt: 1},
		Spec{BookID: "SOL-USDT", PriceScale: 6, SizeScale: 6, PriceTickInt: 1, SizeStepInt: 1},
	)
	return r
}

// Get returns the spec of a book
func (r *Registry) Get(bookID book.BookID) (Spec, error) {
	spec, ok := r.specs[normalize(bookID)]
	if !ok {
		return Spec{}, fmt.Errorf("unsupported symbol: %s", bookID)
	}
	return spec, nil
}

// BookIDs lists the registered books, sorted
func (r *Registry) BookIDs() []book.BookID {
	ids := make([]book.BookID, 0, len(r.specs))
	for id := range r.specs {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

func normalize(bookID book.BookID) book.BookID {
	return book.BookID(strings.ToUpper(strings.TrimSpace(string(bookID))))
}
