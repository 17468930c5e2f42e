// Package order holds the single-order commands and events of a book.
package order

// RejectReason explains why an order was not accepted
type RejectReason string

const (
	RejectReasonUnknownSymbol                  RejectReason = "UNKNOWN_SYMBOL"
	RejectReasonExchangeClosed                 RejectReason = "EXCHANGE_CLOSED"
	RejectReasonIncorrectQuantity              RejectReason = "INCORRECT_QUANTITY"
	RejectReasonUnsupportedOrderCharacteristic RejectReason = "UNSUPPORTED_ORDER_CHARACTERISTIC"
	RejectReasonBrokerExchangeOption           RejectReason = "BROKER_EXCHANGE_OPTION"
	RejectReasonOther                          RejectReason = "OTHER"
)

// CancelRejectReason explains why a cancel request was not accepted
type CancelRejectReason string

const (
	CancelRejectReasonUnknownOrder         CancelRejectReason = "UNKNOWN_ORDER"
	CancelRejectReasonUnknownSymbol        CancelRejectReason = "UNKNOWN_SYMBOL"
	CancelRejectReasonExchangeClosed       CancelRejectReason = "EXCHANGE_CLOSED"
	CancelRejectReasonBrokerExchangeOption CancelRejectReason = "BROKER_EXCHANGE_OPTION"
	CancelRejectReasonOther                CancelRejectReason = "OTHER"
)

// CancelReason explains why an order left the book
type CancelReason string

const (
	CancelReasonUponRequest CancelReason = "CANCELLED_UPON_REQUEST"
	CancelReasonByExchange  CancelReason = "CANCELLED_BY_EXCHANGE"
)
