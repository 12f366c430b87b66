package sim

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autotrading/internal/adapters/logger"
	"autotrading/internal/calendar"
	"autotrading/internal/clock"
	"autotrading/internal/domain"
	"autotrading/internal/hist"
	"autotrading/internal/ports"
)

// simEnv bundles a clock, streamer, and cache over a seeded temp directory.
// The retriever has no provider, so every series must be seeded up front.
type simEnv struct {
	clk      *clock.SimulationClock
	streamer *DataStreamer
	cache    *hist.CacheHandler
}

func newSimEnv(t *testing.T, start, end time.Time, step time.Duration) *simEnv {
	t.Helper()
	cache, err := hist.NewCacheHandler(t.TempDir(), logger.NewNop())
	require.NoError(t, err)
	retriever, err := hist.NewRetriever(hist.Config{
		Cache:  cache,
		Logger: logger.NewNop(),
		Now:    func() time.Time { return time.Date(2024, time.January, 1, 0, 0, 0, 0, time.UTC) },
	})
	require.NoError(t, err)
	clk, err := clock.New(start, end, step)
	require.NoError(t, err)
	streamer, err := NewDataStreamer(StreamerConfig{Retriever: retriever, Logger: logger.NewNop()})
	require.NoError(t, err)
	streamer.SetClock(clk)
	return &simEnv{clk: clk, streamer: streamer, cache: cache}
}

// seedRange covers every trading day the streamer will load, which extends
// one trading day past the clock's end date.
func (e *simEnv) seedRange() []calendar.TradingDay {
	return calendar.Schedule(e.clk.StartDate(), calendar.NextTradingDay(e.clk.EndDate()))
}

func (e *simEnv) seedDailyBars(t *testing.T, contract domain.Contract, openAt func(date time.Time) float64) {
	t.Helper()
	var bars []domain.Bar
	for _, day := range e.seedRange() {
		open := openAt(day.Date)
		bars = append(bars, domain.Bar{
			Timestamp: day.Date,
			Open:      open, High: open + 1, Low: open - 1, Close: open + 0.5, Volume: 1000,
		})
	}
	require.NoError(t, e.cache.StoreBars(contract, domain.ResolutionDaily, bars))
}

func (e *simEnv) seedMinuteBars(t *testing.T, contract domain.Contract, openAt func(ts time.Time) float64) {
	t.Helper()
	var bars []domain.Bar
	for _, day := range e.seedRange() {
		for ts := day.Open; ts.Before(day.Close); ts = ts.Add(time.Minute) {
			open := openAt(ts)
			bars = append(bars, domain.Bar{
				Timestamp: ts,
				Open:      open, High: open + 0.1, Low: open - 0.1, Close: open + 0.05, Volume: 100,
			})
		}
	}
	require.NoError(t, e.cache.StoreBars(contract, domain.ResolutionMin, bars))
}

func (e *simEnv) seedTickBars(t *testing.T, contract domain.Contract, timestamps []time.Time, price float64) {
	t.Helper()
	var bars []domain.Bar
	covered := make(map[string]bool)
	for _, ts := range timestamps {
		covered[domain.Date(ts).Format("2006-01-02")] = true
		bars = append(bars, domain.Bar{
			Timestamp: ts,
			Open:      price, High: price, Low: price, Close: price, Volume: 1,
			Bid: price - 0.01, Ask: price + 0.01,
		})
	}
	// Every day in the loaded range needs a partition, or the retriever
	// would treat it as a gap; stamp quiet days at the open.
	for _, day := range e.seedRange() {
		if covered[day.Date.Format("2006-01-02")] {
			continue
		}
		bars = append(bars, domain.Bar{
			Timestamp: day.Open,
			Open:      price, High: price, Low: price, Close: price, Volume: 1,
			Bid: price - 0.01, Ask: price + 0.01,
		})
	}
	require.NoError(t, e.cache.StoreBars(contract, domain.ResolutionTick, bars))
}

func newTestBroker(t *testing.T, env *simEnv, fee decimal.Decimal) *Broker {
	t.Helper()
	b, err := NewBroker(BrokerConfig{
		Streamer:       env.streamer,
		Logger:         logger.NewNop(),
		TransactionFee: fee,
	})
	require.NoError(t, err)
	b.SetClock(env.clk)
	return b
}

func floatPtr(v float64) *float64 { return &v }

var (
	june5 = time.Date(2023, time.June, 5, 0, 0, 0, 0, time.UTC)
	june6 = time.Date(2023, time.June, 6, 0, 0, 0, 0, time.UTC)
)

// --- Broker ---

func TestMarketBuyChargesCashExactly(t *testing.T) {
	env := newSimEnv(t, june5, june6, time.Minute)
	spy := domain.NewStockContract("SPY")
	env.seedMinuteBars(t, spy, func(time.Time) float64 { return 128.89 })
	broker := newTestBroker(t, env, decimal.NewFromInt(1))

	require.NoError(t, env.clk.Tick())

	trade, err := broker.PlaceTrade(domain.NewTrade(spy, domain.NewMarketOrder(domain.Buy, 2)))
	require.NoError(t, err)

	assert.Equal(t, domain.TradeStateFilled, trade.Status.State)
	assert.Equal(t, 128.89, trade.Status.AveFillPrice)
	// 10000 - 2*128.89 - 1, computed without float drift.
	assert.True(t, broker.AccCash()[domain.USD].Equal(decimal.RequireFromString("9741.22")),
		"cash = %s", broker.AccCash()[domain.USD])
	assert.Equal(t, 2.0, broker.GetPosition(spy, domain.DefaultAccount))
}

func TestPartialFillsAccumulate(t *testing.T) {
	env := newSimEnv(t, june5, june6, time.Minute)
	spy := domain.NewStockContract("SPY")
	broker := newTestBroker(t, env, decimal.Zero)

	trade, err := broker.PlaceTrade(domain.NewTrade(spy, domain.NewLimitOrder(domain.Buy, 10, 105)))
	require.NoError(t, err)
	assert.Equal(t, domain.TradeStateSubmitted, trade.Status.State)

	require.NoError(t, broker.SimulateTradeExecution(trade, floatPtr(100), floatPtr(4)))
	assert.Equal(t, 4.0, trade.Status.Filled)
	assert.Equal(t, 6.0, trade.Status.Remaining)
	assert.Equal(t, domain.TradeStateSubmitted, trade.Status.State)

	require.NoError(t, broker.SimulateTradeExecution(trade, floatPtr(102), nil))
	assert.Equal(t, 10.0, trade.Status.Filled)
	assert.Equal(t, 0.0, trade.Status.Remaining)
	assert.Equal(t, domain.TradeStateFilled, trade.Status.State)
	// (4*100 + 6*102) / 10
	assert.InDelta(t, 101.2, trade.Status.AveFillPrice, 1e-9)
}

func TestIllegalFillsLeaveStateUntouched(t *testing.T) {
	env := newSimEnv(t, june5, june6, time.Minute)
	spy := domain.NewStockContract("SPY")
	broker := newTestBroker(t, env, decimal.Zero)

	trade, err := broker.PlaceTrade(domain.NewTrade(spy, domain.NewLimitOrder(domain.Buy, 5, 100)))
	require.NoError(t, err)
	cashBefore := broker.AccCash()[domain.USD]

	// Buy above the limit.
	err = broker.SimulateTradeExecution(trade, floatPtr(101), nil)
	assert.ErrorIs(t, err, ports.ErrIllegalFill)

	// More than the remainder.
	err = broker.SimulateTradeExecution(trade, floatPtr(99), floatPtr(6))
	assert.ErrorIs(t, err, ports.ErrIllegalFill)

	assert.Equal(t, domain.TradeStateSubmitted, trade.Status.State)
	assert.Equal(t, 0.0, trade.Status.Filled)
	assert.Equal(t, 5.0, trade.Status.Remaining)
	assert.True(t, broker.AccCash()[domain.USD].Equal(cashBefore))
	assert.Equal(t, 0.0, broker.GetPosition(spy, ""))
}

func TestSellLimitRejectsFillBelowLimit(t *testing.T) {
	env := newSimEnv(t, june5, june6, time.Minute)
	spy := domain.NewStockContract("SPY")
	broker := newTestBroker(t, env, decimal.Zero)

	trade, err := broker.PlaceTrade(domain.NewTrade(spy, domain.NewLimitOrder(domain.Sell, 5, 100)))
	require.NoError(t, err)

	err = broker.SimulateTradeExecution(trade, floatPtr(99.5), nil)
	assert.ErrorIs(t, err, ports.ErrIllegalFill)

	require.NoError(t, broker.SimulateTradeExecution(trade, floatPtr(100.5), nil))
	assert.Equal(t, domain.TradeStateFilled, trade.Status.State)
}

func TestCancelPreservesPartialFill(t *testing.T) {
	env := newSimEnv(t, june5, june6, time.Minute)
	spy := domain.NewStockContract("SPY")
	broker := newTestBroker(t, env, decimal.Zero)

	trade, err := broker.PlaceTrade(domain.NewTrade(spy, domain.NewLimitOrder(domain.Buy, 10, 105)))
	require.NoError(t, err)
	require.NoError(t, broker.SimulateTradeExecution(trade, floatPtr(100), floatPtr(3)))

	require.NoError(t, broker.CancelTrade(trade))
	assert.Equal(t, domain.TradeStateCancelled, trade.Status.State)
	assert.Equal(t, 3.0, trade.Status.Filled)
	assert.Equal(t, 7.0, trade.Status.Remaining)
	assert.True(t, trade.Done())

	// A final trade accepts no further fills and no second cancel.
	assert.ErrorIs(t, broker.SimulateTradeExecution(trade, floatPtr(100), nil), ports.ErrIllegalFill)
	assert.ErrorIs(t, broker.CancelTrade(trade), ports.ErrIllegalFill)
}

func TestPositionFlipThroughZero(t *testing.T) {
	env := newSimEnv(t, june5, june6, time.Minute)
	spy := domain.NewStockContract("SPY")
	broker := newTestBroker(t, env, decimal.Zero)

	buy, err := broker.PlaceTrade(domain.NewTrade(spy, domain.NewLimitOrder(domain.Buy, 4, 200)))
	require.NoError(t, err)
	require.NoError(t, broker.SimulateTradeExecution(buy, floatPtr(100), nil))

	sell, err := broker.PlaceTrade(domain.NewTrade(spy, domain.NewLimitOrder(domain.Sell, 10, 90)))
	require.NoError(t, err)
	require.NoError(t, broker.SimulateTradeExecution(sell, floatPtr(95), nil))

	var got domain.Position
	require.NoError(t, broker.SubscribeToPositionUpdates(func(p domain.Position) { got = p }))

	cover, err := broker.PlaceTrade(domain.NewTrade(spy, domain.NewLimitOrder(domain.Buy, 6, 110)))
	require.NoError(t, err)
	require.NoError(t, broker.SimulateTradeExecution(cover, floatPtr(98), nil))

	// 4 - 10 + 6 = 0: flat positions carry no basis.
	assert.Equal(t, 0.0, broker.GetPosition(spy, domain.DefaultAccount))
	assert.Equal(t, 0.0, got.AveFillPrice)
}

func TestFlipThroughZeroUsesLatestFillPrice(t *testing.T) {
	env := newSimEnv(t, june5, june6, time.Minute)
	spy := domain.NewStockContract("SPY")
	broker := newTestBroker(t, env, decimal.Zero)

	buy, err := broker.PlaceTrade(domain.NewTrade(spy, domain.NewLimitOrder(domain.Buy, 4, 200)))
	require.NoError(t, err)
	require.NoError(t, broker.SimulateTradeExecution(buy, floatPtr(100), nil))

	var got domain.Position
	require.NoError(t, broker.SubscribeToPositionUpdates(func(p domain.Position) { got = p }))

	sell, err := broker.PlaceTrade(domain.NewTrade(spy, domain.NewLimitOrder(domain.Sell, 10, 90)))
	require.NoError(t, err)
	require.NoError(t, broker.SimulateTradeExecution(sell, floatPtr(95), nil))

	assert.Equal(t, -6.0, got.Quantity)
	assert.Equal(t, 95.0, got.AveFillPrice)
}

func TestPositionReductionRecombinesBasis(t *testing.T) {
	env := newSimEnv(t, june5, june6, time.Minute)
	spy := domain.NewStockContract("SPY")
	broker := newTestBroker(t, env, decimal.Zero)

	buy, err := broker.PlaceTrade(domain.NewTrade(spy, domain.NewLimitOrder(domain.Buy, 10, 200)))
	require.NoError(t, err)
	require.NoError(t, broker.SimulateTradeExecution(buy, floatPtr(100), nil))

	var got domain.Position
	require.NoError(t, broker.SubscribeToPositionUpdates(func(p domain.Position) { got = p }))

	sell, err := broker.PlaceTrade(domain.NewTrade(spy, domain.NewLimitOrder(domain.Sell, 4, 90)))
	require.NoError(t, err)
	require.NoError(t, broker.SimulateTradeExecution(sell, floatPtr(120), nil))

	// (10*100 - 4*120) / 6 = 86.67: the sale above basis lowers it.
	assert.Equal(t, 6.0, got.Quantity)
	assert.InDelta(t, 86.666667, got.AveFillPrice, 1e-6)

	add, err := broker.PlaceTrade(domain.NewTrade(spy, domain.NewLimitOrder(domain.Buy, 3, 200)))
	require.NoError(t, err)
	require.NoError(t, broker.SimulateTradeExecution(add, floatPtr(110), nil))

	// (6*86.67 + 3*110) / 9 blends the basis toward the new fill.
	assert.Equal(t, 9.0, got.Quantity)
	assert.InDelta(t, 94.444444, got.AveFillPrice, 1e-6)
}

func TestGetPositionAccounts(t *testing.T) {
	env := newSimEnv(t, june5, june6, time.Minute)
	spy := domain.NewStockContract("SPY")
	broker := newTestBroker(t, env, decimal.Zero)

	trade, err := broker.PlaceTrade(domain.NewTrade(spy, domain.NewLimitOrder(domain.Buy, 3, 200)))
	require.NoError(t, err)
	require.NoError(t, broker.SimulateTradeExecution(trade, floatPtr(100), nil))

	assert.Equal(t, 3.0, broker.GetPosition(spy, domain.DefaultAccount))
	assert.Equal(t, 3.0, broker.GetPosition(spy, ""), "empty account sums all accounts")
	assert.Equal(t, 0.0, broker.GetPosition(spy, "MARGIN"), "unknown account holds nothing")
	assert.Equal(t, 0.0, broker.GetPosition(domain.NewStockContract("QQQ"), ""))
}

func TestBrokerEventOrder(t *testing.T) {
	env := newSimEnv(t, june5, june6, time.Minute)
	spy := domain.NewStockContract("SPY")
	env.seedMinuteBars(t, spy, func(time.Time) float64 { return 50 })
	broker := newTestBroker(t, env, decimal.Zero)

	var events []string
	require.NoError(t, broker.SubscribeToNewTrades(func(*domain.Trade) {
		events = append(events, "new")
	}))
	require.NoError(t, broker.SubscribeToTradeUpdates(func(u ports.TradeUpdate) {
		events = append(events, "update:"+string(u.Status.State))
	}))
	require.NoError(t, broker.SubscribeToPositionUpdates(func(domain.Position) {
		events = append(events, "position")
	}))

	require.NoError(t, env.clk.Tick())
	_, err := broker.PlaceTrade(domain.NewTrade(spy, domain.NewMarketOrder(domain.Buy, 1)))
	require.NoError(t, err)

	assert.Equal(t, []string{"new", "update:FILLED", "position"}, events)
}

// --- DataStreamer ---

func TestMinuteBarsDeliverCompletedBar(t *testing.T) {
	env := newSimEnv(t, june5, june5, time.Minute)
	spy := domain.NewStockContract("SPY")
	env.seedMinuteBars(t, spy, func(ts time.Time) float64 {
		return float64(ts.Hour()*100 + ts.Minute())
	})

	var got []domain.Bar
	_, err := env.streamer.SubscribeToBars(spy, domain.ResolutionMin, func(b domain.Bar) {
		got = append(got, b)
	})
	require.NoError(t, err)

	require.NoError(t, env.clk.Tick()) // 9:31
	require.NoError(t, env.streamer.Step(context.Background()))

	require.Len(t, got, 1)
	want := time.Date(2023, time.June, 5, 9, 30, 0, 0, time.UTC)
	assert.Equal(t, want, got[0].Timestamp)
	assert.Equal(t, 930.0, got[0].Open)
}

func TestDailyBarsFireAtEndOfDayOnIntradayClock(t *testing.T) {
	env := newSimEnv(t, june5, june5, time.Hour)
	spy := domain.NewStockContract("SPY")
	env.seedDailyBars(t, spy, func(time.Time) float64 { return 400 })

	var got []domain.Bar
	_, err := env.streamer.SubscribeToBars(spy, domain.ResolutionDaily, func(b domain.Bar) {
		got = append(got, b)
	})
	require.NoError(t, err)

	// 9:30 open, 1h steps: 10:30 .. 15:30 deliver nothing; the close is
	// never reached on this step, so no daily bar fires.
	for i := 0; i < 6; i++ {
		require.NoError(t, env.clk.Tick())
		require.NoError(t, env.streamer.Step(context.Background()))
	}
	assert.Empty(t, got)
}

func TestDailyBarDeliveredAtTheClose(t *testing.T) {
	env := newSimEnv(t, june5, june5, 30*time.Minute)
	spy := domain.NewStockContract("SPY")
	env.seedDailyBars(t, spy, func(time.Time) float64 { return 400 })

	var got []domain.Bar
	_, err := env.streamer.SubscribeToBars(spy, domain.ResolutionDaily, func(b domain.Bar) {
		got = append(got, b)
	})
	require.NoError(t, err)

	// 13 half-hour steps land exactly on the 16:00 close.
	for i := 0; i < 13; i++ {
		require.NoError(t, env.clk.Tick())
		require.NoError(t, env.streamer.Step(context.Background()))
	}
	require.Len(t, got, 1)
	assert.Equal(t, june5, got[0].Timestamp)
	assert.Equal(t, 400.0, got[0].Open)
}

func TestDailyBarsFireEveryStepOnDailyClock(t *testing.T) {
	env := newSimEnv(t, june5, june6, 24*time.Hour)
	spy := domain.NewStockContract("SPY")
	env.seedDailyBars(t, spy, func(date time.Time) float64 { return float64(date.Day()) })

	var got []float64
	_, err := env.streamer.SubscribeToBars(spy, domain.ResolutionDaily, func(b domain.Bar) {
		got = append(got, b.Open)
	})
	require.NoError(t, err)

	for i := 0; i < 2; i++ {
		require.NoError(t, env.clk.Tick())
		require.NoError(t, env.streamer.Step(context.Background()))
	}
	assert.Equal(t, []float64{5, 6}, got)
}

func TestSubscriptionResolutionRules(t *testing.T) {
	env := newSimEnv(t, june5, june6, time.Hour)
	spy := domain.NewStockContract("SPY")

	// Finer than the clock step.
	_, err := env.streamer.SubscribeToBars(spy, domain.ResolutionMin, func(domain.Bar) {})
	assert.ErrorIs(t, err, ports.ErrUnsupportedResolution)

	// Tick data needs a one-second clock.
	_, err = env.streamer.SubscribeToTicks(spy, domain.PriceTypeMarket, func(domain.Contract, float64) {})
	assert.ErrorIs(t, err, ports.ErrUnsupportedResolution)

	// Equal to the clock step is fine.
	id, err := env.streamer.SubscribeToBars(spy, domain.ResolutionHour, func(domain.Bar) {})
	require.NoError(t, err)
	require.NoError(t, env.streamer.CancelBars(id))
	assert.ErrorIs(t, env.streamer.CancelBars(id), ports.ErrNotFound)
}

func TestTickDeliveryInterleavesByTimestamp(t *testing.T) {
	env := newSimEnv(t, june5, june5, time.Second)
	a := domain.NewStockContract("AAA")
	b := domain.NewStockContract("BBB")

	open := time.Date(2023, time.June, 5, 9, 30, 0, 0, time.UTC)
	env.seedTickBars(t, a, []time.Time{
		open.Add(1 * time.Second), open.Add(3 * time.Second), open.Add(5 * time.Second),
	}, 10)
	env.seedTickBars(t, b, []time.Time{
		open.Add(2 * time.Second), open.Add(4 * time.Second),
	}, 20)

	var got []string
	_, err := env.streamer.SubscribeToTicks(a, domain.PriceTypeMarket, func(domain.Contract, float64) {
		got = append(got, "A")
	})
	require.NoError(t, err)
	_, err = env.streamer.SubscribeToTicks(b, domain.PriceTypeMarket, func(domain.Contract, float64) {
		got = append(got, "B")
	})
	require.NoError(t, err)

	for i := 0; i < 5; i++ {
		require.NoError(t, env.clk.Tick())
		require.NoError(t, env.streamer.Step(context.Background()))
	}
	assert.Equal(t, []string{"A", "B", "A", "B", "A"}, got)
}

func TestTickAtTheOpenIsDelivered(t *testing.T) {
	env := newSimEnv(t, june5, june5, time.Second)
	a := domain.NewStockContract("AAA")
	b := domain.NewStockContract("BBB")

	open := time.Date(2023, time.June, 5, 9, 30, 0, 0, time.UTC)
	env.seedTickBars(t, a, []time.Time{
		open, open.Add(2 * time.Second), open.Add(4 * time.Second),
	}, 10)
	env.seedTickBars(t, b, []time.Time{
		open.Add(1 * time.Second), open.Add(3 * time.Second),
	}, 20)

	var got []string
	_, err := env.streamer.SubscribeToTicks(a, domain.PriceTypeMarket, func(domain.Contract, float64) {
		got = append(got, "A")
	})
	require.NoError(t, err)
	_, err = env.streamer.SubscribeToTicks(b, domain.PriceTypeMarket, func(domain.Contract, float64) {
		got = append(got, "B")
	})
	require.NoError(t, err)

	// The first step's window reaches back to the open instant, so the
	// 9:30:00 tick arrives alongside 9:30:01 and exactly once.
	for i := 0; i < 5; i++ {
		require.NoError(t, env.clk.Tick())
		require.NoError(t, env.streamer.Step(context.Background()))
	}
	assert.Equal(t, []string{"A", "B", "A", "B", "A"}, got)
}

func TestTickPriceTypes(t *testing.T) {
	env := newSimEnv(t, june5, june5, time.Second)
	spy := domain.NewStockContract("SPY")
	open := time.Date(2023, time.June, 5, 9, 30, 0, 0, time.UTC)
	env.seedTickBars(t, spy, []time.Time{open.Add(time.Second)}, 100)

	var ask, bid float64
	_, err := env.streamer.SubscribeToTicks(spy, domain.PriceTypeAsk, func(_ domain.Contract, p float64) { ask = p })
	require.NoError(t, err)
	_, err = env.streamer.SubscribeToTicks(spy, domain.PriceTypeBid, func(_ domain.Contract, p float64) { bid = p })
	require.NoError(t, err)

	require.NoError(t, env.clk.Tick())
	require.NoError(t, env.streamer.Step(context.Background()))

	assert.InDelta(t, 100.01, ask, 1e-9)
	assert.InDelta(t, 99.99, bid, 1e-9)
}

func TestGetNextBar(t *testing.T) {
	env := newSimEnv(t, june5, june6, time.Minute)
	spy := domain.NewStockContract("SPY")
	env.seedMinuteBars(t, spy, func(ts time.Time) float64 {
		return float64(ts.Hour()*100 + ts.Minute())
	})
	env.seedDailyBars(t, spy, func(date time.Time) float64 { return float64(date.Day()) })

	// At the open, the next minute bar is the one starting right now.
	bar, err := env.streamer.GetNextBar(context.Background(), spy, domain.ResolutionMin)
	require.NoError(t, err)
	assert.Equal(t, 930.0, bar.Open)

	// The next daily bar is strictly after the current date.
	bar, err = env.streamer.GetNextBar(context.Background(), spy, domain.ResolutionDaily)
	require.NoError(t, err)
	assert.Equal(t, 6.0, bar.Open)
}

// --- Runner ---

type countingPiece struct {
	name  string
	trace *[]string
	steps int
}

func (p *countingPiece) SetClock(*clock.SimulationClock) {}

func (p *countingPiece) Step(context.Context) error {
	p.steps++
	*p.trace = append(*p.trace, p.name)
	return nil
}

func TestRunnerStepsProducersBeforeConsumers(t *testing.T) {
	clk, err := clock.New(june5, june5, 24*time.Hour)
	require.NoError(t, err)
	runner, err := NewRunner(RunnerConfig{Clock: clk, Logger: logger.NewNop()})
	require.NoError(t, err)

	var trace []string
	producer := &countingPiece{name: "producer", trace: &trace}
	consumer := &countingPiece{name: "consumer", trace: &trace}
	runner.AddConsumer(consumer)
	runner.AddProducer(producer)

	require.NoError(t, runner.RunSim(context.Background(), 0))
	assert.Equal(t, []string{"producer", "consumer"}, trace)
}

func TestRunnerStopsAtClockExhaustion(t *testing.T) {
	// Mon through Wed: three daily ticks.
	end := time.Date(2023, time.June, 7, 0, 0, 0, 0, time.UTC)
	clk, err := clock.New(june5, end, 24*time.Hour)
	require.NoError(t, err)
	runner, err := NewRunner(RunnerConfig{Clock: clk, Logger: logger.NewNop()})
	require.NoError(t, err)

	var trace []string
	piece := &countingPiece{name: "p", trace: &trace}
	runner.AddConsumer(piece)

	require.NoError(t, runner.RunSim(context.Background(), 0))
	assert.Equal(t, 3, piece.steps)
}

func TestRunnerHonorsStepCount(t *testing.T) {
	clk, err := clock.New(june5, june6, time.Minute)
	require.NoError(t, err)
	runner, err := NewRunner(RunnerConfig{Clock: clk, Logger: logger.NewNop()})
	require.NoError(t, err)

	var trace []string
	piece := &countingPiece{name: "p", trace: &trace}
	runner.AddProducer(piece)

	require.NoError(t, runner.RunSim(context.Background(), 7))
	assert.Equal(t, 7, piece.steps)
}

func TestRunnerRespectsContextCancellation(t *testing.T) {
	clk, err := clock.New(june5, june6, time.Minute)
	require.NoError(t, err)
	runner, err := NewRunner(RunnerConfig{Clock: clk, Logger: logger.NewNop()})
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.ErrorIs(t, runner.RunSim(ctx, 0), context.Canceled)
}
