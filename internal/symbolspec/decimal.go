package symbolspec

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"matching-core/internal/book"
)

// ParseScaledInt parses a positive decimal string into a fixed-scale int64.
// Example: value=12.34, scale=4 => 123400.
func ParseScaledInt(value string, scale int32) (int64, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, fmt.Errorf("empty value")
	}
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid decimal format: %q", value)
	}
	if !d.IsPositive() {
		return 0, fmt.Errorf("value must be positive")
	}

	scaled := d.Shift(scale)
	if !scaled.IsInteger() {
		return 0, fmt.Errorf("too many decimal places: max %d", scale)
	}
	if scaled.GreaterThan(decimal.NewFromInt(1<<63 - 1)) {
		return 0, fmt.Errorf("value overflow")
	}
	return scaled.IntPart(), nil
}

// FormatScaledInt formats a scaled int64 to decimal and trims trailing zeros.
func FormatScaledInt(v int64, scale int32) string {
	return decimal.New(v, -scale).String()
}

// ParsePrice parses a price into ticks, which must be a multiple of the tick
func (s Spec) ParsePrice(value string) (book.Price, error) {
	v, err := ParseScaledInt(value, s.PriceScale)
	if err != nil {
		return 0, fmt.Errorf("invalid price %q: %w", value, err)
	}
	if v%s.PriceTickInt != 0 {
		return 0, fmt.Errorf("invalid price %q: not a multiple of tick %s", value, s.FormatPrice(book.Price(s.PriceTickInt)))
	}
	return book.Price(v), nil
}

// ParseSize parses a size into units, which must be a multiple of the step
func (s Spec) ParseSize(value string) (int64, error) {
	v, err := ParseScaledInt(value, s.SizeScale)
	if err != nil {
		return 0, fmt.Errorf("invalid size %q: %w", value, err)
	}
	if v%s.SizeStepInt != 0 {
		return 0, fmt.Errorf("invalid size %q: not a multiple of step %s", value, s.FormatSize(s.SizeStepInt))
	}
	return v, nil
}

func (s Spec) FormatPrice(p book.Price) string {
	return FormatScaledInt(int64(p), s.PriceScale)
}

func (s Spec) FormatSize(v int64) string {
	return FormatScaledInt(v, s.SizeScale)
}
