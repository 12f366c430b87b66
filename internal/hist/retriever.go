// Package hist retrieves historical market data through a local CSV cache,
// downloading only the trading days the cache is missing.
package hist

import (
	"context"
	"fmt"
	"sort"
	"time"

	"autotrading/internal/calendar"
	"autotrading/internal/domain"
	"autotrading/internal/ports"
)

// RetrieveOptions tunes a single retrieval.
type RetrieveOptions struct {
	// CacheOnly forbids provider calls; only cached data is returned.
	CacheOnly bool
	// AllowPartial additionally returns today's incomplete data. It is
	// never written to the cache.
	AllowPartial bool
	// RTH restricts the result to regular trading hours.
	RTH bool
}

// Config holds the dependencies of a Retriever.
type Config struct {
	Cache    *CacheHandler
	Provider ports.HistoricalProvider // may be nil for cache-only use
	Logger   ports.Logger
	// Now overrides the wall clock, for tests. Defaults to time.Now.
	Now func() time.Time
}

// Retriever serves bar and trade-tick history. Completed trading days are
// cached on first download; later requests for overlapping ranges hit the
// provider only for the gaps.
type Retriever struct {
	cache    *CacheHandler
	provider ports.HistoricalProvider
	log      ports.Logger
	now      func() time.Time
}

// NewRetriever validates the configuration and returns a ready retriever.
func NewRetriever(cfg Config) (*Retriever, error) {
	if cfg.Cache == nil {
		return nil, fmt.Errorf("%w: cache handler is required", ports.ErrConfigurationError)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Retriever{
		cache:    cfg.Cache,
		provider: cfg.Provider,
		log:      cfg.Logger,
		now:      cfg.Now,
	}, nil
}

// RetrieveBars returns the bars for contract in [start, end] at the given
// resolution, sorted by timestamp.
func (r *Retriever) RetrieveBars(ctx context.Context, contract domain.Contract, start, end time.Time, res domain.Resolution, opts RetrieveOptions) ([]domain.Bar, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s before start %s",
			ports.ErrInvalidRange, end.Format(dateLayout), start.Format(dateLayout))
	}

	today := domain.Date(r.now())
	completedEnd := minDate(domain.Date(end), today.AddDate(0, 0, -1))

	if !opts.CacheOnly && !completedEnd.Before(domain.Date(start)) {
		if err := r.fillBarGaps(ctx, contract, domain.Date(start), completedEnd, res); err != nil {
			return nil, err
		}
	}

	loadEnd := end
	if domain.Date(end).After(completedEnd) {
		loadEnd = completedEnd.Add(24*time.Hour - time.Second)
	}
	var bars []domain.Bar
	if !completedEnd.Before(domain.Date(start)) {
		var err error
		bars, err = r.cache.LoadBars(contract, res, start, loadEnd)
		if err != nil {
			return nil, err
		}
	}

	// Today's session is never complete, so it bypasses the cache entirely.
	if opts.AllowPartial && !opts.CacheOnly && !domain.Date(end).Before(today) && !end.Before(today) {
		partial, err := r.download(ctx, contract, today, end, res)
		if err != nil {
			return nil, err
		}
		for _, b := range partial {
			if !b.Timestamp.Before(start) && !b.Timestamp.After(end) {
				bars = append(bars, b)
			}
		}
	}

	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
	if opts.RTH && !res.IsDaily() {
		bars = filterBarsRTH(bars, start, end)
	}
	return bars, nil
}

// RetrieveTrades returns the individual trade ticks for contract in
// [start, end], sorted by timestamp.
func (r *Retriever) RetrieveTrades(ctx context.Context, contract domain.Contract, start, end time.Time, opts RetrieveOptions) ([]domain.TradeTick, error) {
	if end.Before(start) {
		return nil, fmt.Errorf("%w: end %s before start %s",
			ports.ErrInvalidRange, end.Format(dateLayout), start.Format(dateLayout))
	}

	today := domain.Date(r.now())
	completedEnd := minDate(domain.Date(end), today.AddDate(0, 0, -1))

	if !opts.CacheOnly && !completedEnd.Before(domain.Date(start)) {
		if err := r.fillTradeGaps(ctx, contract, domain.Date(start), completedEnd); err != nil {
			return nil, err
		}
	}

	loadEnd := end
	if domain.Date(end).After(completedEnd) {
		loadEnd = completedEnd.Add(24*time.Hour - time.Second)
	}
	var trades []domain.TradeTick
	if !completedEnd.Before(domain.Date(start)) {
		var err error
		trades, err = r.cache.LoadTrades(contract, start, loadEnd)
		if err != nil {
			return nil, err
		}
	}

	if opts.AllowPartial && !opts.CacheOnly && !domain.Date(end).Before(today) && !end.Before(today) {
		if r.provider == nil {
			return nil, fmt.Errorf("%w: no historical provider configured", ports.ErrConfigurationError)
		}
		partial, err := r.provider.DownloadTrades(ctx, contract, today, end, false)
		if err != nil {
			return nil, err
		}
		for _, t := range partial {
			if !t.Timestamp.Before(start) && !t.Timestamp.After(end) {
				trades = append(trades, t)
			}
		}
	}

	sort.Slice(trades, func(i, j int) bool { return trades[i].Timestamp.Before(trades[j].Timestamp) })
	if opts.RTH {
		trades = filterTradesRTH(trades, start, end)
	}
	return trades, nil
}

// fillBarGaps downloads and caches every missing run of trading days in
// [startDate, endDate]. One provider call covers one contiguous run.
func (r *Retriever) fillBarGaps(ctx context.Context, contract domain.Contract, startDate, endDate time.Time, res domain.Resolution) error {
	want := calendar.TradingDays(startDate, endDate)
	if len(want) == 0 {
		return nil
	}
	cached, err := r.cache.CachedBarDates(contract, res)
	if err != nil {
		return err
	}

	for _, run := range missingRuns(want, cached) {
		r.log.Debug(ctx, "downloading missing bars", map[string]interface{}{
			"symbol":     contract.Symbol,
			"resolution": res.String(),
			"from":       run.first.Format(dateLayout),
			"to":         run.last.Format(dateLayout),
		})
		bars, err := r.download(ctx, contract, run.first, run.last.Add(24*time.Hour-time.Second), res)
		if err != nil {
			return err
		}
		if err := r.cache.StoreBars(contract, res, bars); err != nil {
			return err
		}
	}
	return nil
}

func (r *Retriever) fillTradeGaps(ctx context.Context, contract domain.Contract, startDate, endDate time.Time) error {
	want := calendar.TradingDays(startDate, endDate)
	if len(want) == 0 {
		return nil
	}
	cached, err := r.cache.CachedTradeDates(contract)
	if err != nil {
		return err
	}

	for _, run := range missingRuns(want, cached) {
		if r.provider == nil {
			return fmt.Errorf("%w: no historical provider configured", ports.ErrConfigurationError)
		}
		r.log.Debug(ctx, "downloading missing trades", map[string]interface{}{
			"symbol": contract.Symbol,
			"from":   run.first.Format(dateLayout),
			"to":     run.last.Format(dateLayout),
		})
		trades, err := r.provider.DownloadTrades(ctx, contract, run.first, run.last.Add(24*time.Hour-time.Second), false)
		if err != nil {
			return err
		}
		if err := r.cache.StoreTrades(contract, trades); err != nil {
			return err
		}
	}
	return nil
}

func (r *Retriever) download(ctx context.Context, contract domain.Contract, start, end time.Time, res domain.Resolution) ([]domain.Bar, error) {
	if r.provider == nil {
		return nil, fmt.Errorf("%w: no historical provider configured", ports.ErrConfigurationError)
	}
	// The cache always keeps the full session; trading-hour filtering is
	// applied on the way out.
	return r.provider.DownloadBars(ctx, contract, start, end, res, false)
}

type dateRun struct {
	first, last time.Time
}

// missingRuns walks two sorted date lists in a single pass and collects the
// contiguous runs of wanted dates absent from cached.
func missingRuns(want, cached []time.Time) []dateRun {
	var runs []dateRun
	var current *dateRun
	j := 0
	for _, d := range want {
		for j < len(cached) && cached[j].Before(d) {
			j++
		}
		if j < len(cached) && cached[j].Equal(d) {
			if current != nil {
				runs = append(runs, *current)
				current = nil
			}
			continue
		}
		if current == nil {
			current = &dateRun{first: d}
		}
		current.last = d
	}
	if current != nil {
		runs = append(runs, *current)
	}
	return runs
}

func filterBarsRTH(bars []domain.Bar, start, end time.Time) []domain.Bar {
	sessions := sessionIndex(start, end)
	out := bars[:0]
	for _, b := range bars {
		day, ok := sessions[domain.Date(b.Timestamp).Format(dateLayout)]
		if !ok {
			continue
		}
		if !b.Timestamp.Before(day.Open) && b.Timestamp.Before(day.Close) {
			out = append(out, b)
		}
	}
	return out
}

func filterTradesRTH(trades []domain.TradeTick, start, end time.Time) []domain.TradeTick {
	sessions := sessionIndex(start, end)
	out := trades[:0]
	for _, t := range trades {
		day, ok := sessions[domain.Date(t.Timestamp).Format(dateLayout)]
		if !ok {
			continue
		}
		if !t.Timestamp.Before(day.Open) && t.Timestamp.Before(day.Close) {
			out = append(out, t)
		}
	}
	return out
}

func sessionIndex(start, end time.Time) map[string]calendar.TradingDay {
	idx := make(map[string]calendar.TradingDay)
	for _, day := range calendar.Schedule(start, end) {
		idx[day.Date.Format(dateLayout)] = day
	}
	return idx
}

func minDate(a, b time.Time) time.Time {
	if a.Before(b) {
		return a
	}
	return b
}
