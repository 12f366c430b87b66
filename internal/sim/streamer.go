// Package sim implements the historical simulation: a data streamer replaying
// cached market data against the simulation clock, a broker filling orders
// from that data, and a runner stepping all of it in lockstep.
package sim

import (
	"context"
	"fmt"
	"sort"
	"time"

	"autotrading/internal/calendar"
	"autotrading/internal/clock"
	"autotrading/internal/domain"
	"autotrading/internal/hist"
	"autotrading/internal/ports"
)

type barSub struct {
	id       ports.SubscriptionID
	contract domain.Contract
	res      domain.Resolution
	fn       ports.BarCallback
}

type tickSub struct {
	id        ports.SubscriptionID
	contract  domain.Contract
	priceType domain.PriceType
	fn        ports.TickCallback
}

type seriesKey struct {
	contract domain.Contract
	res      domain.Resolution
}

type barSeries struct {
	sorted []domain.Bar
	byTime map[int64]domain.Bar
}

// DataStreamer replays historical bars to subscribers as the clock advances.
// Data is loaded lazily, one series per (contract, resolution), covering the
// whole simulation range at once.
//
// Subscriptions fire in a deterministic order on every step: all tick
// callbacks first, merged across subscriptions by timestamp, then all bar
// callbacks in subscription order.
type DataStreamer struct {
	retriever *hist.Retriever
	log       ports.Logger
	clk       *clock.SimulationClock

	nextID   ports.SubscriptionID
	barSubs  []*barSub
	tickSubs []*tickSub

	series map[seriesKey]*barSeries
}

// StreamerConfig holds the dependencies of a DataStreamer.
type StreamerConfig struct {
	Retriever *hist.Retriever
	Logger    ports.Logger
}

// NewDataStreamer validates the configuration and returns a streamer. A clock
// must be attached with SetClock before subscribing or stepping.
func NewDataStreamer(cfg StreamerConfig) (*DataStreamer, error) {
	if cfg.Retriever == nil {
		return nil, fmt.Errorf("%w: retriever is required", ports.ErrConfigurationError)
	}
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required", ports.ErrConfigurationError)
	}
	return &DataStreamer{
		retriever: cfg.Retriever,
		log:       cfg.Logger,
		nextID:    1,
		series:    make(map[seriesKey]*barSeries),
	}, nil
}

// SetClock attaches the simulation clock driving this streamer.
func (s *DataStreamer) SetClock(c *clock.SimulationClock) { s.clk = c }

// SubscribeToBars registers fn for completed bars of the given resolution.
// The resolution must be at least as coarse as the clock step.
func (s *DataStreamer) SubscribeToBars(contract domain.Contract, res domain.Resolution, fn ports.BarCallback) (ports.SubscriptionID, error) {
	if fn == nil {
		return 0, fmt.Errorf("%w: nil callback", ports.ErrConfigurationError)
	}
	if s.clk == nil {
		return 0, fmt.Errorf("%w: no clock attached", ports.ErrConfigurationError)
	}
	if res.Duration() <= 0 {
		return 0, fmt.Errorf("%w: bar subscriptions need a positive resolution",
			ports.ErrUnsupportedResolution)
	}
	if res.Duration() < s.clk.TimeStep() {
		return 0, fmt.Errorf("%w: %s bars cannot be delivered on a %v clock step",
			ports.ErrUnsupportedResolution, res.String(), s.clk.TimeStep())
	}

	id := s.nextID
	s.nextID++
	s.barSubs = append(s.barSubs, &barSub{id: id, contract: contract, res: res, fn: fn})
	return id, nil
}

// CancelBars removes a bar subscription.
func (s *DataStreamer) CancelBars(id ports.SubscriptionID) error {
	for i, sub := range s.barSubs {
		if sub.id == id {
			s.barSubs = append(s.barSubs[:i], s.barSubs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: bar subscription %d", ports.ErrNotFound, id)
}

// SubscribeToTicks registers fn for per-second price updates. Tick delivery
// needs a one-second clock step.
func (s *DataStreamer) SubscribeToTicks(contract domain.Contract, priceType domain.PriceType, fn ports.TickCallback) (ports.SubscriptionID, error) {
	if fn == nil {
		return 0, fmt.Errorf("%w: nil callback", ports.ErrConfigurationError)
	}
	if s.clk == nil {
		return 0, fmt.Errorf("%w: no clock attached", ports.ErrConfigurationError)
	}
	if s.clk.TimeStep() != time.Second {
		return 0, fmt.Errorf("%w: tick subscriptions need a 1s clock step, have %v",
			ports.ErrUnsupportedResolution, s.clk.TimeStep())
	}

	id := s.nextID
	s.nextID++
	s.tickSubs = append(s.tickSubs, &tickSub{id: id, contract: contract, priceType: priceType, fn: fn})
	return id, nil
}

// CancelTicks removes a tick subscription.
func (s *DataStreamer) CancelTicks(id ports.SubscriptionID) error {
	for i, sub := range s.tickSubs {
		if sub.id == id {
			s.tickSubs = append(s.tickSubs[:i], s.tickSubs[i+1:]...)
			return nil
		}
	}
	return fmt.Errorf("%w: tick subscription %d", ports.ErrNotFound, id)
}

// Step delivers everything due at the clock's current datetime.
func (s *DataStreamer) Step(ctx context.Context) error {
	if s.clk == nil {
		return fmt.Errorf("%w: no clock attached", ports.ErrConfigurationError)
	}
	if err := s.deliverTicks(ctx); err != nil {
		return err
	}
	return s.deliverBars(ctx)
}

// GetNextBar returns the bar the current step is about to trade into: the
// bar starting at the current datetime for intraday resolutions, or the next
// available daily bar.
func (s *DataStreamer) GetNextBar(ctx context.Context, contract domain.Contract, res domain.Resolution) (domain.Bar, error) {
	if s.clk == nil {
		return domain.Bar{}, fmt.Errorf("%w: no clock attached", ports.ErrConfigurationError)
	}
	series, err := s.getSeries(ctx, contract, res)
	if err != nil {
		return domain.Bar{}, err
	}

	if res.IsDaily() {
		date := s.clk.Date()
		i := sort.Search(len(series.sorted), func(i int) bool {
			return series.sorted[i].Timestamp.After(date)
		})
		if i == len(series.sorted) {
			return domain.Bar{}, fmt.Errorf("%w: no daily bar for %s after %s",
				ports.ErrNotFound, contract.Symbol, date.Format("2006-01-02"))
		}
		return series.sorted[i], nil
	}

	dt := s.clk.Datetime()
	bar, ok := series.byTime[dt.Unix()]
	if !ok {
		return domain.Bar{}, fmt.Errorf("%w: no %s bar for %s at %s",
			ports.ErrNotFound, res.String(), contract.Symbol, dt.Format("2006-01-02 15:04:05"))
	}
	return bar, nil
}

type tickEvent struct {
	ts    time.Time
	order int
	sub   *tickSub
	price float64
}

func (s *DataStreamer) deliverTicks(ctx context.Context) error {
	if len(s.tickSubs) == 0 {
		return nil
	}

	dt := s.clk.Datetime()
	windowStart := dt.Add(-time.Second)
	// The session's first window also covers the open instant itself; no
	// earlier window can have delivered a tick stamped exactly at the open.
	if sched := calendar.Schedule(dt, dt); len(sched) == 1 && windowStart.Equal(sched[0].Open) {
		windowStart = windowStart.Add(-time.Nanosecond)
	}

	var events []tickEvent
	for i, sub := range s.tickSubs {
		series, err := s.getSeries(ctx, sub.contract, domain.ResolutionTick)
		if err != nil {
			return err
		}
		lo := sort.Search(len(series.sorted), func(j int) bool {
			return series.sorted[j].Timestamp.After(windowStart)
		})
		for j := lo; j < len(series.sorted) && !series.sorted[j].Timestamp.After(dt); j++ {
			events = append(events, tickEvent{
				ts:    series.sorted[j].Timestamp,
				order: i,
				sub:   sub,
				price: series.sorted[j].Price(sub.priceType),
			})
		}
	}

	sort.SliceStable(events, func(i, j int) bool {
		if !events[i].ts.Equal(events[j].ts) {
			return events[i].ts.Before(events[j].ts)
		}
		return events[i].order < events[j].order
	})
	for _, ev := range events {
		ev.sub.fn(ev.sub.contract, ev.price)
	}
	return nil
}

func (s *DataStreamer) deliverBars(ctx context.Context) error {
	stepIsDaily := s.clk.TimeStep() == 24*time.Hour
	dt := s.clk.Datetime()

	for _, sub := range s.barSubs {
		switch {
		case stepIsDaily:
			// Subscribing already rejected sub-daily resolutions here.
			series, err := s.getSeries(ctx, sub.contract, sub.res)
			if err != nil {
				return err
			}
			if bar, ok := series.byTime[s.clk.Date().Unix()]; ok {
				sub.fn(bar)
			}
		case sub.res.IsDaily():
			if !s.clk.EndOfDay() {
				continue
			}
			series, err := s.getSeries(ctx, sub.contract, sub.res)
			if err != nil {
				return err
			}
			if bar, ok := series.byTime[s.clk.Date().Unix()]; ok {
				sub.fn(bar)
			}
		default:
			if dt.Unix()%sub.res.Seconds() != 0 {
				continue
			}
			series, err := s.getSeries(ctx, sub.contract, sub.res)
			if err != nil {
				return err
			}
			// The latest completed bar opened one resolution ago.
			if bar, ok := series.byTime[dt.Add(-sub.res.Duration()).Unix()]; ok {
				sub.fn(bar)
			}
		}
	}
	return nil
}

// getSeries loads and indexes the full simulation range for a series on
// first use.
func (s *DataStreamer) getSeries(ctx context.Context, contract domain.Contract, res domain.Resolution) (*barSeries, error) {
	key := seriesKey{contract: contract, res: res}
	if series, ok := s.series[key]; ok {
		return series, nil
	}

	start := s.clk.StartDate()
	end := calendar.NextTradingDay(s.clk.EndDate())
	s.log.Debug(ctx, "loading simulation series", map[string]interface{}{
		"symbol":     contract.Symbol,
		"resolution": res.String(),
		"from":       start.Format("2006-01-02"),
		"to":         end.Format("2006-01-02"),
	})
	bars, err := s.retriever.RetrieveBars(ctx, contract, start, end, res, hist.RetrieveOptions{})
	if err != nil {
		return nil, err
	}

	series := &barSeries{
		sorted: bars,
		byTime: make(map[int64]domain.Bar, len(bars)),
	}
	for _, b := range bars {
		series.byTime[b.Timestamp.Unix()] = b
	}
	s.series[key] = series
	return series, nil
}
