package sim

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"autotrading/internal/clock"
	"autotrading/internal/dispatch"
	"autotrading/internal/domain"
	"autotrading/internal/ports"
)

// DefaultStartingFunds is the cash balance a broker starts with when the
// configuration does not say otherwise.
var DefaultStartingFunds = decimal.NewFromInt(10_000)

// Broker simulates order execution against the data streamer. Market orders
// fill synchronously at the open of the bar the clock is about to trade
// into; every fill updates cash, positions, and the trade's status, and is
// announced on the broker's event feeds.
type Broker struct {
	streamer *DataStreamer
	log      ports.Logger
	clk      *clock.SimulationClock

	cash      map[domain.Currency]decimal.Decimal
	positions map[string]map[domain.Contract]domain.Position
	fee       decimal.Decimal

	nextOrderID int64
	tradeLog    []*domain.Trade

	newTrades       *dispatch.Feed[*domain.Trade]
	tradeUpdates    *dispatch.Feed[ports.TradeUpdate]
	positionUpdates *dispatch.Feed[domain.Position]
}

// BrokerConfig holds the dependencies and starting state of a Broker.
type BrokerConfig struct {
	Streamer *DataStreamer
	Logger   ports.Logger
	// StartingFunds defaults to DefaultStartingFunds when zero.
	StartingFunds decimal.Decimal
	// TransactionFee is charged per execution, not per share.
	TransactionFee decimal.Decimal
}

// NewBroker validates the configuration and returns a broker funded in USD.
func NewBroker(cfg BrokerConfig) (*Broker, error) {
	if cfg.Streamer == nil {
		return nil, fmt.Errorf("%w: streamer is required", ports.ErrConfigurationError)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	if cfg.StartingFunds.IsNegative() {
		return nil, fmt.Errorf("%w: starting funds must not be negative", ports.ErrConfigurationError)
	}
	if cfg.StartingFunds.IsZero() {
		cfg.StartingFunds = DefaultStartingFunds
	}
	return &Broker{
		streamer:        cfg.Streamer,
		log:             cfg.Logger,
		cash:            map[domain.Currency]decimal.Decimal{domain.USD: cfg.StartingFunds},
		positions:       make(map[string]map[domain.Contract]domain.Position),
		fee:             cfg.TransactionFee,
		nextOrderID:     1,
		newTrades:       dispatch.NewFeed[*domain.Trade](),
		tradeUpdates:    dispatch.NewFeed[ports.TradeUpdate](),
		positionUpdates: dispatch.NewFeed[domain.Position](),
	}, nil
}

// SetClock attaches the simulation clock.
func (b *Broker) SetClock(c *clock.SimulationClock) { b.clk = c }

// Step exists so strategies can hook the broker into the runner loop; the
// simulated broker itself has no per-step work.
func (b *Broker) Step(context.Context) error { return nil }

// AccCash returns a copy of the account balances per currency.
func (b *Broker) AccCash() map[domain.Currency]decimal.Decimal {
	out := make(map[domain.Currency]decimal.Decimal, len(b.cash))
	for cur, amt := range b.cash {
		out[cur] = amt
	}
	return out
}

// Datetime returns the current simulated datetime.
func (b *Broker) Datetime() time.Time {
	if b.clk == nil {
		return time.Time{}
	}
	return b.clk.Datetime()
}

// GetTransactionFee returns the per-execution fee.
func (b *Broker) GetTransactionFee() decimal.Decimal { return b.fee }

// GetPosition returns the signed quantity held for contract. An empty
// account sums across all accounts; an unknown account holds nothing.
func (b *Broker) GetPosition(contract domain.Contract, account string) float64 {
	if account != "" {
		return b.positions[account][contract].Quantity
	}
	var total float64
	for _, byContract := range b.positions {
		total += byContract[contract].Quantity
	}
	return total
}

// Trades returns the full trade log in submission order.
func (b *Broker) Trades() []*domain.Trade {
	out := make([]*domain.Trade, len(b.tradeLog))
	copy(out, b.tradeLog)
	return out
}

// SubscribeToNewTrades registers fn for every accepted trade.
func (b *Broker) SubscribeToNewTrades(fn func(*domain.Trade)) error {
	_, err := b.newTrades.Subscribe(fn)
	return err
}

// SubscribeToTradeUpdates registers fn for every trade status change.
func (b *Broker) SubscribeToTradeUpdates(fn func(ports.TradeUpdate)) error {
	_, err := b.tradeUpdates.Subscribe(fn)
	return err
}

// SubscribeToPositionUpdates registers fn for every position change.
func (b *Broker) SubscribeToPositionUpdates(fn func(domain.Position)) error {
	_, err := b.positionUpdates.Subscribe(fn)
	return err
}

// PlaceTrade validates and accepts a trade. Market orders execute
// immediately; other order types stay SUBMITTED until driven through
// SimulateTradeExecution.
func (b *Broker) PlaceTrade(trade *domain.Trade) (*domain.Trade, error) {
	if trade == nil || trade.Order == nil {
		return nil, fmt.Errorf("%w: trade without an order", ports.ErrConfigurationError)
	}
	if err := trade.Order.Validate(); err != nil {
		return nil, err
	}

	trade.Order.ID = b.nextOrderID
	b.nextOrderID++
	trade.Status = domain.TradeStatus{
		State:     domain.TradeStateSubmitted,
		Filled:    0,
		Remaining: trade.Order.Quantity,
		OrderID:   trade.Order.ID,
	}
	b.tradeLog = append(b.tradeLog, trade)
	b.newTrades.Emit(trade)

	b.log.Debug(context.Background(), "trade placed", map[string]interface{}{
		"order_id": trade.Order.ID,
		"symbol":   trade.Contract.Symbol,
		"action":   string(trade.Order.Action),
		"type":     string(trade.Order.Type),
		"quantity": trade.Order.Quantity,
	})

	if trade.Order.Type == domain.OrderTypeMarket {
		if err := b.SimulateTradeExecution(trade, nil, nil); err != nil {
			return nil, err
		}
	}
	return trade, nil
}

// CancelTrade marks an open trade cancelled, preserving any partial fill.
func (b *Broker) CancelTrade(trade *domain.Trade) error {
	if trade == nil {
		return fmt.Errorf("%w: nil trade", ports.ErrConfigurationError)
	}
	if trade.Done() {
		return fmt.Errorf("%w: order %d is already final", ports.ErrIllegalFill, trade.Status.OrderID)
	}
	trade.Status.State = domain.TradeStateCancelled
	b.tradeUpdates.Emit(ports.TradeUpdate{Trade: trade, Status: trade.Status})
	return nil
}

// SimulateTradeExecution fills part or all of an open trade. A nil price
// means the open of the next bar at the clock-step resolution; a nil
// quantity means the full remainder. Validation happens before any state
// changes, so a rejected fill leaves the trade, cash, and positions exactly
// as they were.
func (b *Broker) SimulateTradeExecution(trade *domain.Trade, price *float64, quantity *float64) error {
	if trade == nil || trade.Order == nil {
		return fmt.Errorf("%w: trade without an order", ports.ErrConfigurationError)
	}
	if trade.Done() {
		return fmt.Errorf("%w: order %d is already final", ports.ErrIllegalFill, trade.Status.OrderID)
	}

	fillQty := trade.Status.Remaining
	if quantity != nil {
		fillQty = *quantity
	}
	if fillQty <= 0 || fillQty > trade.Status.Remaining {
		return fmt.Errorf("%w: fill quantity %v with %v remaining",
			ports.ErrIllegalFill, fillQty, trade.Status.Remaining)
	}

	var fillPrice float64
	if price != nil {
		fillPrice = *price
	} else {
		if b.clk == nil {
			return fmt.Errorf("%w: no clock attached", ports.ErrConfigurationError)
		}
		bar, err := b.streamer.GetNextBar(context.Background(), trade.Contract, domain.Resolution(b.clk.TimeStep()))
		if err != nil {
			return err
		}
		fillPrice = bar.Open
	}

	if trade.Order.Type == domain.OrderTypeLimit {
		limit := trade.Order.LimitPrice
		if trade.Order.Action == domain.Buy && fillPrice > limit {
			return fmt.Errorf("%w: buy fill %v above limit %v", ports.ErrIllegalFill, fillPrice, limit)
		}
		if trade.Order.Action == domain.Sell && fillPrice < limit {
			return fmt.Errorf("%w: sell fill %v below limit %v", ports.ErrIllegalFill, fillPrice, limit)
		}
	}

	b.applyFill(trade, fillPrice, fillQty)
	return nil
}

func (b *Broker) applyFill(trade *domain.Trade, price, qty float64) {
	cost := decimal.NewFromFloat(price).Mul(decimal.NewFromFloat(qty))
	usd := b.cash[domain.USD]
	if trade.Order.Action == domain.Buy {
		b.cash[domain.USD] = usd.Sub(cost).Sub(b.fee)
	} else {
		b.cash[domain.USD] = usd.Add(cost).Sub(b.fee)
	}

	pos := b.updatePosition(trade, price, qty)

	trade.Status.Filled += qty
	trade.Status.Remaining -= qty
	trade.Status.AveFillPrice = averageInFill(trade.Status.AveFillPrice, trade.Status.Filled-qty, price, qty)
	if trade.Status.Remaining == 0 {
		trade.Status.State = domain.TradeStateFilled
	}

	b.tradeUpdates.Emit(ports.TradeUpdate{Trade: trade, Status: trade.Status})
	b.positionUpdates.Emit(pos)
}

// updatePosition folds a fill into the DEFAULT account's position for the
// trade's contract and returns the new position.
func (b *Broker) updatePosition(trade *domain.Trade, price, qty float64) domain.Position {
	account := domain.DefaultAccount
	byContract, ok := b.positions[account]
	if !ok {
		byContract = make(map[domain.Contract]domain.Position)
		b.positions[account] = byContract
	}

	delta := qty
	if trade.Order.Action == domain.Sell {
		delta = -qty
	}

	prev := byContract[trade.Contract]
	next := domain.Position{
		Account:  account,
		Contract: trade.Contract,
		Quantity: prev.Quantity + delta,
	}
	switch {
	case next.Quantity == 0:
		next.AveFillPrice = 0
	case prev.Quantity == 0:
		next.AveFillPrice = price
	case sameSign(prev.Quantity, next.Quantity):
		// Signed recombination: additions blend the basis toward the fill
		// price, reductions blend it away from it.
		next.AveFillPrice = (prev.AveFillPrice*prev.Quantity + price*delta) /
			next.Quantity
	default:
		// Flipped through zero; the surviving side was filled at this price.
		next.AveFillPrice = price
	}

	byContract[trade.Contract] = next
	return next
}

func averageInFill(prevAvg, prevQty, price, qty float64) float64 {
	if prevQty+qty == 0 {
		return 0
	}
	return (prevAvg*prevQty + price*qty) / (prevQty + qty)
}

func sameSign(a, b float64) bool {
	return (a > 0 && b > 0) || (a < 0 && b < 0)
}
