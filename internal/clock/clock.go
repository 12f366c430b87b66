// Package clock implements the discrete-event clock that drives a
// simulation run through the trading calendar.
package clock

import (
	"fmt"
	"time"

	"autotrading/internal/calendar"
	"autotrading/internal/domain"
	"autotrading/internal/ports"
)

// SimulationClock walks a precomputed trading schedule in fixed time steps.
// The schedule is computed once at construction and immutable afterwards, so
// the tick loop never touches calendar irregularities.
//
// A daily step jumps from close to close; an intraday step advances within
// the session and rolls to the next day's open once it crosses the close.
type SimulationClock struct {
	startDate time.Time
	endDate   time.Time
	step      time.Duration
	schedule  []calendar.TradingDay
	idx       int
	dt        time.Time
}

// New builds a clock covering the trading days in [startDate, endDate],
// positioned at the first day's open.
func New(startDate, endDate time.Time, step time.Duration) (*SimulationClock, error) {
	if step <= 0 || step > 24*time.Hour {
		return nil, fmt.Errorf("%w: time step must be in (0, 24h], got %v",
			ports.ErrConfigurationError, step)
	}
	schedule := calendar.Schedule(startDate, endDate)
	if len(schedule) == 0 {
		return nil, fmt.Errorf("%w: no trading days between %s and %s",
			ports.ErrInvalidRange,
			startDate.Format("2006-01-02"), endDate.Format("2006-01-02"))
	}
	return &SimulationClock{
		startDate: domain.Date(startDate),
		endDate:   domain.Date(endDate),
		step:      step,
		schedule:  schedule,
		dt:        schedule[0].Open,
	}, nil
}

// StartDate returns the first date of the simulation range.
func (c *SimulationClock) StartDate() time.Time { return c.startDate }

// EndDate returns the last date of the simulation range.
func (c *SimulationClock) EndDate() time.Time { return c.endDate }

// TimeStep returns the clock's step size.
func (c *SimulationClock) TimeStep() time.Duration { return c.step }

// Datetime returns the current simulated datetime.
func (c *SimulationClock) Datetime() time.Time { return c.dt }

// Date returns the current simulated date.
func (c *SimulationClock) Date() time.Time { return domain.Date(c.dt) }

// StartOfDay reports whether the cursor sits exactly on the scheduled open.
func (c *SimulationClock) StartOfDay() bool {
	return timeOfDay(c.dt) == timeOfDay(c.currentDay().Open)
}

// EndOfDay reports whether the cursor sits exactly on the scheduled close.
func (c *SimulationClock) EndOfDay() bool {
	return timeOfDay(c.dt) == timeOfDay(c.currentDay().Close)
}

// Tick advances the cursor by one step. Once the cursor would run past the
// last scheduled day, Tick fails with ports.ErrEndOfSimulation; that signal
// is terminal, not retryable.
func (c *SimulationClock) Tick() error {
	if c.step == 24*time.Hour {
		return c.tickDaily()
	}
	return c.tickIntraday()
}

// SetDatetime seeks the cursor to an absolute datetime. The target must fall
// on a scheduled trading day within the simulation range, inside the day's
// trading hours, and on an exact step multiple from the market open. The
// cursor and schedule index move together or not at all.
func (c *SimulationClock) SetDatetime(dt time.Time) error {
	d := domain.Date(dt)
	if d.Before(c.startDate) || d.After(c.endDate) {
		return fmt.Errorf("%w: date %s outside [%s, %s]",
			ports.ErrInvalidTime, d.Format("2006-01-02"),
			c.startDate.Format("2006-01-02"), c.endDate.Format("2006-01-02"))
	}

	idx := -1
	for i, day := range c.schedule {
		if day.Date.Equal(d) {
			idx = i
			break
		}
	}
	if idx == -1 {
		return fmt.Errorf("%w: %s is not a trading day",
			ports.ErrInvalidTime, d.Format("2006-01-02"))
	}

	day := c.schedule[idx]
	if dt.Before(day.Open) || !dt.Before(day.Close) {
		return fmt.Errorf("%w: time %s outside trading hours [%s, %s)",
			ports.ErrInvalidTime, dt.Format("15:04:05"),
			day.Open.Format("15:04:05"), day.Close.Format("15:04:05"))
	}
	if dt.Sub(day.Open)%c.step != 0 {
		return fmt.Errorf("%w: time %s does not align to a %v step from the open",
			ports.ErrInvalidTime, dt.Format("15:04:05"), c.step)
	}

	c.idx = idx
	c.dt = dt
	return nil
}

func (c *SimulationClock) tickDaily() error {
	if c.idx >= len(c.schedule) {
		return ports.ErrEndOfSimulation
	}
	c.dt = c.schedule[c.idx].Close
	c.idx++
	return nil
}

func (c *SimulationClock) tickIntraday() error {
	if c.idx >= len(c.schedule) {
		return ports.ErrEndOfSimulation
	}

	next := c.dt.Add(c.step)
	if !next.After(c.schedule[c.idx].Close) {
		c.dt = next
		return nil
	}

	c.idx++
	if c.idx >= len(c.schedule) {
		return ports.ErrEndOfSimulation
	}
	c.dt = c.schedule[c.idx].Open.Add(c.step)
	return nil
}

// currentDay clamps the schedule index so the derived queries stay valid
// after the schedule is exhausted.
func (c *SimulationClock) currentDay() calendar.TradingDay {
	idx := c.idx
	if idx >= len(c.schedule) {
		idx = len(c.schedule) - 1
	}
	return c.schedule[idx]
}

func timeOfDay(t time.Time) time.Duration {
	h, m, s := t.Clock()
	return time.Duration(h)*time.Hour + time.Duration(m)*time.Minute + time.Duration(s)*time.Second
}
