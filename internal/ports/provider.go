package ports

import (
	"context"
	"time"

	"autotrading/internal/domain"
)

// HistoricalProvider downloads historical market data on cache misses.
// Providers differ in capability: a method for an unsupported data kind
// returns ErrNotImplemented, which the retriever propagates unchanged.
type HistoricalProvider interface {
	// DownloadBars fetches bar data for [start, end] (inclusive dates) at
	// the given resolution. rth restricts data to regular trading hours.
	DownloadBars(
		ctx context.Context,
		contract domain.Contract,
		start, end time.Time,
		resolution domain.Resolution,
		rth bool,
	) ([]domain.Bar, error)

	// DownloadTrades fetches individual trade prints for [start, end].
	DownloadTrades(
		ctx context.Context,
		contract domain.Contract,
		start, end time.Time,
		rth bool,
	) ([]domain.TradeTick, error)
}
