package main

import (
	"context"
	"log"

	"autotrading/config"
	"autotrading/internal/adapters/binanceprovider"
	"autotrading/internal/adapters/logger"
	"autotrading/internal/domain"
	"autotrading/internal/hist"
)

// fetch_data warms the historical cache for a symbol and range so later
// simulations run without touching the network.
func main() {
	// 1. Load Configuration
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("FATAL: Failed to load configuration: %v", err)
	}

	appLogger := logger.NewStdLogger(cfg.LogLevel)
	ctx := context.Background()

	// 2. Provider and cache
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

	// 3. Pull both the step resolution and dailies; missing days download,
	// cached days are free.
	contract := domain.NewStockContract(cfg.Symbol)
	resolutions := []domain.Resolution{domain.Resolution(cfg.TimeStep)}
	if !resolutions[0].IsDaily() {
		resolutions = append(resolutions, domain.ResolutionDaily)
	}

	for _, res := range resolutions {
		bars, err := retriever.RetrieveBars(ctx, contract, cfg.SimStart, cfg.SimEnd, res, hist.RetrieveOptions{})
		if err != nil {
			appLogger.Error(ctx, err, "Error fetching bars", map[string]interface{}{
				"resolution": res.String(),
			})
			log.Fatalf("Error fetching bars: %v", err)
		}
		appLogger.Info(ctx, "Cached bars", map[string]interface{}{
			"symbol":     cfg.Symbol,
			"resolution": res.String(),
			"count":      len(bars),
			"from":       cfg.SimStart.Format("2006-01-02"),
			"to":         cfg.SimEnd.Format("2006-01-02"),
		})
	}
}
