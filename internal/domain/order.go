package domain

import "fmt"

// OrderAction represents the side of an order.
type OrderAction string

const (
	Buy  OrderAction = "BUY"
	Sell OrderAction = "SELL"
)

// OrderType discriminates the order variants.
type OrderType string

const (
	OrderTypeMarket       OrderType = "MARKET"
	OrderTypeLimit        OrderType = "LIMIT"
	OrderTypeTrailingStop OrderType = "TRAILING_STOP"
)

// TimeInForce controls how long an order remains active.
type TimeInForce string

const (
	TIFDay TimeInForce = "DAY"
	TIFGTC TimeInForce = "GTC" // good-till-cancelled
	TIFIOC TimeInForce = "IOC" // immediate-or-cancel
)

// Order describes an instruction to buy or sell. The Type field discriminates
// the variant; LimitPrice applies only to limit orders, and exactly one of
// TrailStopPrice/TrailPercent must be set on a trailing-stop order.
//
// ID is zero until the order is placed with a broker, which assigns it.
type Order struct {
	Type     OrderType
	Action   OrderAction
	Quantity float64
	ID       int64
	TIF      TimeInForce
	ParentID int64 // 0 when the order has no parent

	Conditions []Condition

	LimitPrice     float64  // limit orders only
	TrailStopPrice *float64 // trailing-stop orders: absolute stop price
	TrailPercent   *float64 // trailing-stop orders: trailing percentage
}

// NewMarketOrder builds a market order.
func NewMarketOrder(action OrderAction, quantity float64) *Order {
	return &Order{Type: OrderTypeMarket, Action: action, Quantity: quantity, TIF: TIFDay}
}

// NewLimitOrder builds a limit order.
func NewLimitOrder(action OrderAction, quantity, limitPrice float64) *Order {
	return &Order{
		Type:       OrderTypeLimit,
		Action:     action,
		Quantity:   quantity,
		TIF:        TIFDay,
		LimitPrice: limitPrice,
	}
}

// NewTrailingStopOrder builds a trailing-stop order. Exactly one of stopPrice
// and trailPercent must be non-nil.
func NewTrailingStopOrder(
	action OrderAction, quantity float64, stopPrice, trailPercent *float64,
) *Order {
	return &Order{
		Type:           OrderTypeTrailingStop,
		Action:         action,
		Quantity:       quantity,
		TIF:            TIFDay,
		TrailStopPrice: stopPrice,
		TrailPercent:   trailPercent,
	}
}

// Validate checks the order's structural invariants.
func (o *Order) Validate() error {
	if o.Quantity <= 0 {
		return fmt.Errorf("order quantity must be positive, got %v", o.Quantity)
	}
	switch o.Action {
	case Buy, Sell:
	default:
		return fmt.Errorf("unknown order action %q", o.Action)
	}
	if o.Type == OrderTypeTrailingStop {
		if (o.TrailStopPrice == nil) == (o.TrailPercent == nil) {
			return fmt.Errorf(
				"trailing-stop order requires exactly one of stop price and trail percent",
			)
		}
	}
	return nil
}
