package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"time"

	_ "github.com/mattn/go-sqlite3" // SQLite driver

	"autotrading/internal/domain"
	"autotrading/internal/ports"
)

// Repository implements ports.TradeLogRepository on SQLite, persisting the
// trades a simulation placed so runs can be inspected after the fact.
type Repository struct {
	db     *sql.DB
	logger ports.Logger
}

// Config holds configuration for the SQLite repository.
type Config struct {
	DBPath string
	Logger ports.Logger
}

// NewRepository opens (creating if needed) the database at cfg.DBPath.
func NewRepository(cfg Config) (*Repository, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for SQLite repository", ports.ErrConfigurationError)
	}
	dbPath := cfg.DBPath
	if dbPath == "" {
		dbPath = "./data/autotrading.db"
	}

	if err := os.MkdirAll(filepath.Dir(dbPath), 0755); err != nil {
		err = fmt.Errorf("failed to create data directory '%s': %w", filepath.Dir(dbPath), err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		err = fmt.Errorf("failed to open database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	if err := db.Ping(); err != nil {
		db.Close()
		err = fmt.Errorf("failed to ping database at '%s': %w", dbPath, err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}

	// SQLite handles concurrency internally; the Go driver works best with
	// a single connection.
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(time.Hour)

	repo := &Repository{db: db, logger: cfg.Logger}
	if err := repo.initializeSchema(context.Background()); err != nil {
		db.Close()
		err = fmt.Errorf("failed to initialize database schema: %w", err)
		cfg.Logger.Error(context.Background(), err, "SQLite repository initialization failed")
		return nil, err
	}
	cfg.Logger.Info(context.Background(), "SQLite trade log ready", map[string]interface{}{"path": dbPath})

	return repo, nil
}

func (r *Repository) initializeSchema(ctx context.Context) error {
	const schema = `
	CREATE TABLE IF NOT EXISTS trade_log (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		order_id INTEGER NOT NULL,
		symbol TEXT NOT NULL,
		sec_type TEXT NOT NULL,
		action TEXT NOT NULL,
		order_type TEXT NOT NULL,
		quantity REAL NOT NULL,
		limit_price REAL DEFAULT NULL,
		state TEXT NOT NULL,
		filled REAL NOT NULL,
		remaining REAL NOT NULL,
		ave_fill_price REAL NOT NULL,
		recorded_at TIMESTAMP NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_trade_log_symbol ON trade_log (symbol, recorded_at);
	CREATE INDEX IF NOT EXISTS idx_trade_log_state ON trade_log (state);
	`
	_, err := r.db.ExecContext(ctx, schema)
	if err != nil {
		return fmt.Errorf("failed to execute schema initialization: %w", err)
	}
	return nil
}

// Close closes the database connection.
func (r *Repository) Close() error {
	if r.db != nil {
		return r.db.Close()
	}
	return nil
}

// SaveTrade persists one trade in its current state and returns the record ID.
func (r *Repository) SaveTrade(ctx context.Context, trade *domain.Trade) (int64, error) {
	const query = `
	INSERT INTO trade_log (order_id, symbol, sec_type, action, order_type, quantity,
	                       limit_price, state, filled, remaining, ave_fill_price, recorded_at)
	VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`

	var limitPrice sql.NullFloat64
	if trade.Order.Type == domain.OrderTypeLimit {
		limitPrice = sql.NullFloat64{Float64: trade.Order.LimitPrice, Valid: true}
	}

	result, err := r.db.ExecContext(ctx, query,
		trade.Status.OrderID, trade.Contract.Symbol, string(trade.Contract.SecType),
		string(trade.Order.Action), string(trade.Order.Type), trade.Order.Quantity,
		limitPrice, string(trade.Status.State), trade.Status.Filled,
		trade.Status.Remaining, trade.Status.AveFillPrice, time.Now().UTC())
	if err != nil {
		return 0, fmt.Errorf("failed to insert trade for symbol %s: %w", trade.Contract.Symbol, err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("failed to get last insert ID for trade %s: %w", trade.Contract.Symbol, err)
	}
	r.logger.Debug(ctx, "Trade recorded", map[string]interface{}{
		"recordID": id, "symbol": trade.Contract.Symbol, "state": string(trade.Status.State),
	})
	return id, nil
}

// FindBySymbol retrieves the most recent trades for a symbol, up to limit.
func (r *Repository) FindBySymbol(ctx context.Context, symbol string, limit int) ([]*domain.Trade, error) {
	const query = `
	SELECT order_id, symbol, sec_type, action, order_type, quantity,
	       limit_price, state, filled, remaining, ave_fill_price
	FROM trade_log
	WHERE symbol = ? ORDER BY recorded_at DESC, id DESC LIMIT ?`

	rows, err := r.db.QueryContext(ctx, query, symbol, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query trades for symbol %s: %w", symbol, err)
	}
	defer rows.Close()

	trades := make([]*domain.Trade, 0)
	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade during FindBySymbol: %w", err)
		}
		trades = append(trades, trade)
	}
	if err = rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating trade rows: %w", err)
	}
	return trades, nil
}

// CountByState counts stored trades in the given state.
func (r *Repository) CountByState(ctx context.Context, state domain.TradeState) (int, error) {
	const query = `SELECT COUNT(*) FROM trade_log WHERE state = ?`
	var count int
	err := r.db.QueryRowContext(ctx, query, string(state)).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count trades in state %s: %w", state, err)
	}
	return count, nil
}

// scanner is compatible with both *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(s scanner) (*domain.Trade, error) {
	var (
		orderID           int64
		symbol            string
		secType           string
		action            string
		orderType         string
		quantity          float64
		limitPrice        sql.NullFloat64
		state             string
		filled, remaining float64
		aveFillPrice      float64
	)
	err := s.Scan(&orderID, &symbol, &secType, &action, &orderType, &quantity,
		&limitPrice, &state, &filled, &remaining, &aveFillPrice)
	if err != nil {
		return nil, err
	}

	order := &domain.Order{
		Type:     domain.OrderType(orderType),
		Action:   domain.OrderAction(action),
		Quantity: quantity,
		ID:       orderID,
	}
	if limitPrice.Valid {
		order.LimitPrice = limitPrice.Float64
	}

	trade := domain.NewTrade(domain.Contract{
		SecType: domain.SecType(secType),
		Symbol:  symbol,
	}, order)
	trade.Status = domain.TradeStatus{
		State:        domain.TradeState(state),
		Filled:       filled,
		Remaining:    remaining,
		AveFillPrice: aveFillPrice,
		OrderID:      orderID,
	}
	return trade, nil
}
