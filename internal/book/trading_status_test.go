package book_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"matching-core/internal/book"
)

func TestTradingStatus_Allows(t *testing.T) {
	tests := []struct {
		status          book.TradingStatus
		placeOrder      bool
		cancelOrder     bool
		placeMassQuote  bool
		cancelMassQuote bool
	}{
		{book.TradingStatusOpenForTrading, true, true, true, true},
		{book.TradingStatusHalted, false, true, false, true},
		{book.TradingStatusNotAvailableForTrading, false, true, false, true},
		{book.TradingStatusPreOpen, false, true, true, true},
		{book.TradingStatusSystemMaintenance, false, false, false, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.status), func(t *testing.T) {
			assert.Equal(t, tt.placeOrder, tt.status.Allows(book.CommandKindPlaceOrder))
			assert.Equal(t, tt.cancelOrder, tt.status.Allows(book.CommandKindCancelOrder))
			assert.Equal(t, tt.placeMassQuote, tt.status.Allows(book.CommandKindPlaceMassQuote))
			assert.Equal(t, tt.cancelMassQuote, tt.status.Allows(book.CommandKindCancelMassQuote))
		})
	}
}

func TestTradingStatus_EveryStatusIsValid(t *testing.T) {
	for _, status := range book.TradingStatusValues {
		assert.True(t, status.IsValid(), "status %s", status)
	}
	assert.False(t, book.TradingStatus("CLOSED").IsValid())
	assert.False(t, book.TradingStatus("CLOSED").Allows(book.CommandKindCancelOrder))
}

func TestTradingStatuses_EffectiveStatus(t *testing.T) {
	tests := []struct {
		name     string
		statuses book.TradingStatuses
		want     book.TradingStatus
	}{
		{
			name:     "default only",
			statuses: book.NewTradingStatuses(book.TradingStatusPreOpen),
			want:     book.TradingStatusPreOpen,
		},
		{
			name: "scheduled over default",
			statuses: book.TradingStatuses{
				Default:   book.TradingStatusOpenForTrading,
				Scheduled: book.TradingStatusHalted,
			},
			want: book.TradingStatusHalted,
		},
		{
			name: "fast market over scheduled",
			statuses: book.TradingStatuses{
				Default:    book.TradingStatusOpenForTrading,
				Scheduled:  book.TradingStatusHalted,
				FastMarket: book.TradingStatusPreOpen,
			},
			want: book.TradingStatusPreOpen,
		},
		{
			name: "manual over everything",
			statuses: book.TradingStatuses{
				Default:    book.TradingStatusOpenForTrading,
				Scheduled:  book.TradingStatusHalted,
				FastMarket: book.TradingStatusPreOpen,
				Manual:     book.TradingStatusSystemMaintenance,
			},
			want: book.TradingStatusSystemMaintenance,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.statuses.EffectiveStatus())
		})
	}
}
