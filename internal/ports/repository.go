package ports

import (
	"context"

	"autotrading/internal/domain"
)

// TradeLogRepository stores placed trades for later inspection of a
// simulation run.
type TradeLogRepository interface {
	// SaveTrade persists one trade in its current state and returns the
	// record's assigned ID.
	SaveTrade(ctx context.Context, trade *domain.Trade) (int64, error)
	// FindBySymbol retrieves the most recent trades for a symbol, up to limit.
	FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error)
	// CountByState counts stored trades in the given state.
	CountByState(ctx context.Context, state domain.TradeState) (int, error)
}
