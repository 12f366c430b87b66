package ports

import (
	"time"

	"github.com/shopspring/decimal"

	"autotrading/internal/domain"
)

// TradeUpdate is delivered to trade-update subscribers whenever a trade's
// status changes.
type TradeUpdate struct {
	Trade  *domain.Trade
	Status domain.TradeStatus
}

// Broker is the surface a strategy trades through. The simulation broker and
// live-broker adapters implement the same contract, so a strategy moves
// between back-testing and production unchanged.
type Broker interface {
	// AccCash returns the account cash balances per currency.
	AccCash() map[domain.Currency]decimal.Decimal

	// Datetime returns the broker's current time (simulated or wall-clock).
	Datetime() time.Time

	// GetPosition returns the signed position for the contract in the given
	// account. An empty account sums the position across all accounts.
	// Unknown contracts and accounts yield 0.
	GetPosition(contract domain.Contract, account string) float64

	// PlaceTrade submits a trade. The broker assigns the order id and
	// returns the tracked trade, whose status mutates as fills arrive.
	PlaceTrade(trade *domain.Trade) (*domain.Trade, error)

	// CancelTrade cancels a previously placed trade.
	CancelTrade(trade *domain.Trade) error

	// GetTransactionFee returns the fee charged per execution.
	GetTransactionFee() decimal.Decimal

	// SubscribeToNewTrades registers a callback invoked when a trade is
	// placed. Callbacks run synchronously in subscription order.
	SubscribeToNewTrades(fn func(*domain.Trade)) error

	// SubscribeToTradeUpdates registers a callback invoked when a trade's
	// status changes.
	SubscribeToTradeUpdates(fn func(TradeUpdate)) error

	// SubscribeToPositionUpdates registers a callback invoked when a
	// position changes.
	SubscribeToPositionUpdates(fn func(domain.Position)) error
}
