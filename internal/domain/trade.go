package domain

// TradeState is the lifecycle state of a placed order.
//
// The simulation broker only moves trades through
// SUBMITTED -> {FILLED, CANCELLED}; PENDING and INACTIVE are abnormal states
// reported by live brokers.
type TradeState string

const (
	TradeStateSubmitted TradeState = "SUBMITTED"
	TradeStateFilled    TradeState = "FILLED"
	TradeStateCancelled TradeState = "CANCELLED"
	TradeStatePending   TradeState = "PENDING"
	TradeStateInactive  TradeState = "INACTIVE"
)

// TradeStatus is the mutable execution state of a trade.
// Invariant: Filled + Remaining == the order's quantity.
type TradeStatus struct {
	State        TradeState
	Filled       float64
	Remaining    float64
	AveFillPrice float64 // volume-weighted average fill price
	OrderID      int64
}

// Trade pairs a contract with an order and tracks the order's status.
// Identity is defined by (contract, order), not status: a trade keeps
// referring to the same logical order as its status mutates.
type Trade struct {
	Contract Contract
	Order    *Order
	Status   TradeStatus
}

// NewTrade builds an unplaced trade for the given contract and order.
func NewTrade(contract Contract, order *Order) *Trade {
	return &Trade{Contract: contract, Order: order}
}

// Equal reports whether two trades refer to the same logical order.
func (t *Trade) Equal(other *Trade) bool {
	if other == nil {
		return false
	}
	return t.Contract == other.Contract && t.Order == other.Order
}

// Done reports whether the trade has reached a terminal state.
func (t *Trade) Done() bool {
	return t.Status.State == TradeStateFilled || t.Status.State == TradeStateCancelled
}
