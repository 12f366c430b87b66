package ports

import "autotrading/internal/domain"

// SubscriptionID identifies one registered callback on a data streamer.
type SubscriptionID int64

// BarCallback receives one completed bar.
type BarCallback func(domain.Bar)

// TickCallback receives the contract and the resolved price of one tick.
type TickCallback func(domain.Contract, float64)

// DataStreamer delivers market data to registered callbacks. Delivery is
// synchronous and deterministic: callbacks fire in subscription order, and
// tick data is interleaved in timestamp order across contracts.
type DataStreamer interface {
	// SubscribeToBars registers fn for completed bars of the given contract
	// and resolution.
	SubscribeToBars(contract domain.Contract, resolution domain.Resolution, fn BarCallback) (SubscriptionID, error)

	// CancelBars removes a bar subscription. Unknown ids fail with
	// ErrNotFound.
	CancelBars(id SubscriptionID) error

	// SubscribeToTicks registers fn for tick data of the given contract,
	// with the price resolved according to priceType.
	SubscribeToTicks(contract domain.Contract, priceType domain.PriceType, fn TickCallback) (SubscriptionID, error)

	// CancelTicks removes a tick subscription. Unknown ids fail with
	// ErrNotFound.
	CancelTicks(id SubscriptionID) error
}
