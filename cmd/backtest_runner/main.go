package main

import (
	"context"
	"log"

	"github.com/shopspring/decimal"

	"autotrading/config"
	"autotrading/internal/adapters/binanceprovider"
	"autotrading/internal/adapters/logger"
	"autotrading/internal/adapters/sqlite"
	"autotrading/internal/analytics"
	"autotrading/internal/clock"
	"autotrading/internal/domain"
	"autotrading/internal/hist"
	"autotrading/internal/sim"
)

// momentumStrategy is a deliberately simple demo consumer: it buys one share
// on an up close and flattens on a down close.
type momentumStrategy struct {
	broker    *sim.Broker
	contract  domain.Contract
	lastClose float64
	pending   *domain.Order
}

func (s *momentumStrategy) SetClock(*clock.SimulationClock) {}

func (s *momentumStrategy) Step(ctx context.Context) error {
	if s.pending == nil {
		return nil
	}
	order := s.pending
	s.pending = nil
	_, err := s.broker.PlaceTrade(domain.NewTrade(s.contract, order))
	return err
}

func (s *momentumStrategy) onBar(bar domain.Bar) {
	defer func() { s.lastClose = bar.Close }()
	if s.lastClose == 0 {
		return
	}

	held := s.broker.GetPosition(s.contract, domain.DefaultAccount)
	switch {
	case bar.Close > s.lastClose && held == 0:
		s.pending = domain.NewMarketOrder(domain.Buy, 1)
	case bar.Close < s.lastClose && held > 0:
		s.pending = domain.NewMarketOrder(domain.Sell, held)
	}
}

func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	// 2. Historical data: provider behind a local CSV cache
	provider, err := binanceprovider.New(binanceprovider.Config{
		APIKey:     cfg.APIKey,
		SecretKey:  cfg.SecretKey,
		UseTestnet: cfg.IsTestnet,
		Logger:     appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize data provider: %v", err)
	}
	cache, err := hist.NewCacheHandler(cfg.CacheDir, appLogger)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize data cache: %v", err)
	}
	retriever, err := hist.NewRetriever(hist.Config{
		Cache:    cache,
		Provider: provider,
		Logger:   appLogger,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize retriever: %v", err)
	}

	// 3. Simulation pieces
	simClock, err := clock.New(cfg.SimStart, cfg.SimEnd, cfg.TimeStep)
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize clock: %v", err)
	}
	streamer, err := sim.NewDataStreamer(sim.StreamerConfig{Retriever: retriever, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize streamer: %v", err)
	}
	fee := decimal.NewFromFloat(cfg.OrderFee)
	broker, err := sim.NewBroker(sim.BrokerConfig{
		Streamer:       streamer,
		Logger:         appLogger,
		StartingFunds:  decimal.NewFromFloat(cfg.StartingFunds),
		TransactionFee: fee,
	})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize broker: %v", err)
	}

	runner, err := sim.NewRunner(sim.RunnerConfig{Clock: simClock, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to initialize runner: %v", err)
	}
	runner.AddProducer(streamer)

	contract := domain.NewStockContract(cfg.Symbol)
	strategy := &momentumStrategy{broker: broker, contract: contract}
	if _, err := streamer.SubscribeToBars(contract, domain.ResolutionDaily, strategy.onBar); err != nil {
		log.Fatalf("FATAL: Failed to subscribe to bars: %v", err)
	}
	runner.AddConsumer(broker)
	runner.AddConsumer(strategy)

	// 4. Run
	if err := runner.RunSim(ctx, 0); err != nil {
		appLogger.Error(ctx, err, "Simulation failed")
		log.Fatalf("Simulation failed: %v", err)
	}

	// 5. Report and persist results
	trades := broker.Trades()
	summary := analytics.Summarize(trades, fee)
	appLogger.Info(ctx, "Backtest result", map[string]interface{}{
		"symbol":     cfg.Symbol,
		"trades":     summary.TotalTrades,
		"filled":     summary.FilledTrades,
		"roundTrips": len(summary.RoundTrips),
		"winRate":    summary.WinRate,
		"totalPNL":   summary.TotalPNL,
		"fees":       summary.TotalFees.String(),
		"finalCash":  broker.AccCash()[domain.USD].String(),
	})

	repo, err := sqlite.NewRepository(sqlite.Config{DBPath: cfg.DBPath, Logger: appLogger})
	if err != nil {
		log.Fatalf("FATAL: Failed to open trade log: %v", err)
	}
	defer repo.Close()
	for _, trade := range trades {
		if _, err := repo.SaveTrade(ctx, trade); err != nil {
			appLogger.Error(ctx, err, "Failed to record trade", map[string]interface{}{
				"orderID": trade.Status.OrderID,
			})
		}
	}
	appLogger.Info(ctx, "Trades recorded", map[string]interface{}{"count": len(trades), "path": cfg.DBPath})
}
