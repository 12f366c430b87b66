package hist

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"autotrading/internal/domain"
	"autotrading/internal/ports"
)

// On-disk schema versions. Bumping one invalidates every cache directory of
// that kind on next access.
const (
	BarsSchemaVersion   = 1
	TradesSchemaVersion = 2
)

const (
	schemaFilename = ".schema_v"
	dailyFilename  = "daily.csv"
	tradesDirname  = "trades"
)

// CacheHandler owns the on-disk layout of historical data:
//
//	<root>/<asset class>/<SYMBOL>/<resolution>/daily.csv        (daily bars)
//	<root>/<asset class>/<SYMBOL>/<resolution>/YYYY-MM-DD.csv   (intraday bars)
//	<root>/<asset class>/<SYMBOL>/trades/YYYY-MM-DD.csv         (trade ticks)
//
// Each leaf directory carries a .schema_v marker; a stale marker makes every
// read and write fail with ports.ErrSchemaMismatch rather than silently
// returning data in an old format.
type CacheHandler struct {
	root string
	log  ports.Logger
}

// NewCacheHandler creates the cache root if needed.
func NewCacheHandler(root string, log ports.Logger) (*CacheHandler, error) {
	if root == "" {
		return nil, fmt.Errorf("%w: cache root is required", ports.ErrConfigurationError)
	}
	if err := os.MkdirAll(root, 0o755); err != nil {
		return nil, fmt.Errorf("creating cache root: %w", err)
	}
	return &CacheHandler{root: root, log: log}, nil
}

func (h *CacheHandler) barsDir(contract domain.Contract, res domain.Resolution) string {
	return filepath.Join(h.root, contract.AssetClass(), strings.ToUpper(contract.Symbol), res.String())
}

func (h *CacheHandler) tradesDir(contract domain.Contract) string {
	return filepath.Join(h.root, contract.AssetClass(), strings.ToUpper(contract.Symbol), tradesDirname)
}

// CachedBarDates lists the dates for which bar data is present, ascending.
func (h *CacheHandler) CachedBarDates(contract domain.Contract, res domain.Resolution) ([]time.Time, error) {
	dir := h.barsDir(contract, res)
	if err := h.checkSchema(dir, BarsSchemaVersion); err != nil {
		return nil, err
	}
	if res.IsDaily() {
		bars, err := h.loadDaily(dir)
		if err != nil {
			return nil, err
		}
		dates := make([]time.Time, len(bars))
		for i, b := range bars {
			dates[i] = domain.Date(b.Timestamp)
		}
		return dates, nil
	}
	return listDateFiles(dir)
}

// CachedTradeDates lists the dates for which trade ticks are present, ascending.
func (h *CacheHandler) CachedTradeDates(contract domain.Contract) ([]time.Time, error) {
	dir := h.tradesDir(contract)
	if err := h.checkSchema(dir, TradesSchemaVersion); err != nil {
		return nil, err
	}
	return listDateFiles(dir)
}

// LoadBars returns the cached bars whose timestamps fall in [start, end].
func (h *CacheHandler) LoadBars(contract domain.Contract, res domain.Resolution, start, end time.Time) ([]domain.Bar, error) {
	dir := h.barsDir(contract, res)
	if err := h.checkSchema(dir, BarsSchemaVersion); err != nil {
		return nil, err
	}

	var bars []domain.Bar
	if res.IsDaily() {
		all, err := h.loadDaily(dir)
		if err != nil {
			return nil, err
		}
		for _, b := range all {
			if !b.Timestamp.Before(start) && !b.Timestamp.After(end) {
				bars = append(bars, b)
			}
		}
		return bars, nil
	}

	dates, err := listDateFiles(dir)
	if err != nil {
		return nil, err
	}
	for _, d := range dates {
		if d.Before(domain.Date(start)) || d.After(domain.Date(end)) {
			continue
		}
		dayBars, err := readBarsCSV(filepath.Join(dir, d.Format(dateLayout)+".csv"), res)
		if err != nil {
			return nil, err
		}
		for _, b := range dayBars {
			if !b.Timestamp.Before(start) && !b.Timestamp.After(end) {
				bars = append(bars, b)
			}
		}
	}
	return bars, nil
}

// LoadTrades returns the cached trade ticks whose timestamps fall in [start, end].
func (h *CacheHandler) LoadTrades(contract domain.Contract, start, end time.Time) ([]domain.TradeTick, error) {
	dir := h.tradesDir(contract)
	if err := h.checkSchema(dir, TradesSchemaVersion); err != nil {
		return nil, err
	}

	dates, err := listDateFiles(dir)
	if err != nil {
		return nil, err
	}
	var trades []domain.TradeTick
	for _, d := range dates {
		if d.Before(domain.Date(start)) || d.After(domain.Date(end)) {
			continue
		}
		dayTrades, err := readTradesCSV(filepath.Join(dir, d.Format(dateLayout)+".csv"))
		if err != nil {
			return nil, err
		}
		for _, t := range dayTrades {
			if !t.Timestamp.Before(start) && !t.Timestamp.After(end) {
				trades = append(trades, t)
			}
		}
	}
	return trades, nil
}

// StoreBars persists bars, partitioning them by date. Daily bars merge into
// the single date-indexed file; intraday partitions replace the whole day.
func (h *CacheHandler) StoreBars(contract domain.Contract, res domain.Resolution, bars []domain.Bar) error {
	if len(bars) == 0 {
		return nil
	}
	dir := h.barsDir(contract, res)
	if err := h.ensureSchema(dir, BarsSchemaVersion); err != nil {
		return err
	}

	if res.IsDaily() {
		existing, err := h.loadDaily(dir)
		if err != nil {
			return err
		}
		merged := mergeDailyBars(existing, bars)
		return writeBarsCSV(filepath.Join(dir, dailyFilename), merged, res)
	}

	for date, dayBars := range partitionBars(bars) {
		name := filepath.Join(dir, date+".csv")
		if err := writeBarsCSV(name, dayBars, res); err != nil {
			return err
		}
	}
	return nil
}

// StoreTrades persists trade ticks, replacing each affected day's partition.
func (h *CacheHandler) StoreTrades(contract domain.Contract, trades []domain.TradeTick) error {
	if len(trades) == 0 {
		return nil
	}
	dir := h.tradesDir(contract)
	if err := h.ensureSchema(dir, TradesSchemaVersion); err != nil {
		return err
	}

	byDate := make(map[string][]domain.TradeTick)
	for _, t := range trades {
		key := domain.Date(t.Timestamp).Format(dateLayout)
		byDate[key] = append(byDate[key], t)
	}
	for date, dayTrades := range byDate {
		if err := writeTradesCSV(filepath.Join(dir, date+".csv"), dayTrades); err != nil {
			return err
		}
	}
	return nil
}

func (h *CacheHandler) loadDaily(dir string) ([]domain.Bar, error) {
	name := filepath.Join(dir, dailyFilename)
	if _, err := os.Stat(name); os.IsNotExist(err) {
		return nil, nil
	}
	return readBarsCSV(name, domain.ResolutionDaily)
}

// checkSchema validates an existing directory's schema marker. A missing
// directory is simply an empty cache.
func (h *CacheHandler) checkSchema(dir string, version int) error {
	data, err := os.ReadFile(filepath.Join(dir, schemaFilename))
	if os.IsNotExist(err) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading schema marker: %w", err)
	}
	got, err := strconv.Atoi(strings.TrimSpace(string(data)))
	if err != nil {
		return fmt.Errorf("%w: unreadable schema marker in %s", ports.ErrSchemaMismatch, dir)
	}
	if got != version {
		return fmt.Errorf("%w: %s has schema v%d, want v%d", ports.ErrSchemaMismatch, dir, got, version)
	}
	return nil
}

// ensureSchema prepares a directory for writing, stamping the marker on
// first use.
func (h *CacheHandler) ensureSchema(dir string, version int) error {
	if err := h.checkSchema(dir, version); err != nil {
		return err
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("creating cache dir: %w", err)
	}
	name := filepath.Join(dir, schemaFilename)
	if _, err := os.Stat(name); os.IsNotExist(err) {
		return os.WriteFile(name, []byte(strconv.Itoa(version)), 0o644)
	}
	return nil
}

func listDateFiles(dir string) ([]time.Time, error) {
	entries, err := os.ReadDir(dir)
	if os.IsNotExist(err) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("listing cache dir: %w", err)
	}

	var dates []time.Time
	for _, e := range entries {
		name := e.Name()
		if e.IsDir() || !strings.HasSuffix(name, ".csv") || name == dailyFilename {
			continue
		}
		d, err := time.ParseInLocation(dateLayout, strings.TrimSuffix(name, ".csv"), time.UTC)
		if err != nil {
			continue
		}
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates, nil
}

func partitionBars(bars []domain.Bar) map[string][]domain.Bar {
	byDate := make(map[string][]domain.Bar)
	for _, b := range bars {
		key := domain.Date(b.Timestamp).Format(dateLayout)
		byDate[key] = append(byDate[key], b)
	}
	return byDate
}

func mergeDailyBars(existing, incoming []domain.Bar) []domain.Bar {
	byDate := make(map[string]domain.Bar, len(existing)+len(incoming))
	for _, b := range existing {
		byDate[b.Timestamp.Format(dateLayout)] = b
	}
	for _, b := range incoming {
		byDate[b.Timestamp.Format(dateLayout)] = b
	}
	merged := make([]domain.Bar, 0, len(byDate))
	for _, b := range byDate {
		merged = append(merged, b)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].Timestamp.Before(merged[j].Timestamp) })
	return merged
}
