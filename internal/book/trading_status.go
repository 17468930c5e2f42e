package book

// CommandKind identifies the kind of a command for trading status gating
type CommandKind string

const (
	CommandKindPlaceOrder      CommandKind = "PLACE_ORDER"
	CommandKindCancelOrder     CommandKind = "CANCEL_ORDER"
	CommandKindPlaceMassQuote  CommandKind = "PLACE_MASS_QUOTE"
	CommandKindCancelMassQuote CommandKind = "CANCEL_MASS_QUOTE"
)

// CommandKinds lists every command kind gated by trading status
var CommandKinds = []CommandKind{
	CommandKindPlaceOrder,
	CommandKindCancelOrder,
	CommandKindPlaceMassQuote,
	CommandKindCancelMassQuote,
}

// TradingStatus represents whether and how a book accepts commands
type TradingStatus string

const (
	TradingStatusOpenForTrading         TradingStatus = "OPEN_FOR_TRADING"
	TradingStatusHalted                 TradingStatus = "HALTED"
	TradingStatusNotAvailableForTrading TradingStatus = "NOT_AVAILABLE_FOR_TRADING"
	TradingStatusPreOpen                TradingStatus = "PRE_OPEN"
	TradingStatusSystemMaintenance      TradingStatus = "SYSTEM_MAINTENANCE"
)

// TradingStatusValues lists every trading status
var TradingStatusValues = []TradingStatus{
	TradingStatusOpenForTrading,
	TradingStatusHalted,
	TradingStatusNotAvailableForTrading,
	TradingStatusPreOpen,
	TradingStatusSystemMaintenance,
}

// allowTable holds an explicit decision for every (status, command kind)
// pair. A missing pair is a defect caught by tests, not a runtime default.
var allowTable = map[TradingStatus]map[CommandKind]bool{
	TradingStatusOpenForTrading: {
		CommandKindPlaceOrder:      true,
		CommandKindCancelOrder:     true,
		CommandKindPlaceMassQuote:  true,
		CommandKindCancelMassQuote: true,
	},
	TradingStatusHalted: {
		CommandKindPlaceOrder:      false,
		CommandKindCancelOrder:     true,
		CommandKindPlaceMassQuote:  false,
		CommandKindCancelMassQuote: true,
	},
	TradingStatusNotAvailableForTrading: {
		CommandKindPlaceOrder:      false,
		CommandKindCancelOrder:     true,
		CommandKindPlaceMassQuote:  false,
		CommandKindCancelMassQuote: true,
	},
	TradingStatusPreOpen: {
		CommandKindPlaceOrder:      false,
		CommandKindCancelOrder:     true,
		CommandKindPlaceMassQuote:  true,
		CommandKindCancelMassQuote: true,
	},
	TradingStatusSystemMaintenance: {
		CommandKindPlaceOrder:      false,
		CommandKindCancelOrder:     false,
		CommandKindPlaceMassQuote:  false,
		CommandKindCancelMassQuote: false,
	},
}

func (s TradingStatus) IsValid() bool {
	_, ok := allowTable[s]
	return ok
}

// Allows reports whether a command of the given kind is permitted
func (s TradingStatus) Allows(kind CommandKind) bool {
	return allowTable[s][kind]
}

// TradingStatuses layers the status sources of a book. Empty values are
// absent; the effective status is the first present of manual, fast
// market, scheduled and default.
type TradingStatuses struct {
	Default    TradingStatus `json:"default"`
	Scheduled  TradingStatus `json:"scheduled,omitempty"`
	FastMarket TradingStatus `json:"fast_market,omitempty"`
	Manual     TradingStatus `json:"manual,omitempty"`
}

// NewTradingStatuses creates statuses with only the default set
func NewTradingStatuses(defaultStatus TradingStatus) TradingStatuses {
	return TradingStatuses{Default: defaultStatus}
}

// EffectiveStatus resolves the status governing the book
func (t TradingStatuses) EffectiveStatus() TradingStatus {
	for _, s := range []TradingStatus{t.Manual, t.FastMarket, t.Scheduled} {
		if s != "" {
			return s
		}
	}
	return t.Default
}
