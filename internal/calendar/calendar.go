// Package calendar computes the NYSE trading schedule: which days the market
// trades and the open/close times for each. All datetimes are timezone-naive
// values carried in time.UTC and interpreted as exchange-local (New York)
// time; the simulation never mixes them with wall-clock instants.
package calendar

import (
	"time"

	"autotrading/internal/domain"
)

// TradingDay is one scheduled market day.
type TradingDay struct {
	Date  time.Time // midnight, see domain.Date
	Open  time.Time
	Close time.Time
}

const (
	openHour       = 9
	openMinute     = 30
	closeHour      = 16
	earlyCloseHour = 13
)

// Schedule returns the trading days in [start, end] (inclusive dates) with
// their open and close times. The result is sorted and holiday-adjusted;
// half-days carry the 13:00 early close.
func Schedule(start, end time.Time) []TradingDay {
	var days []TradingDay
	for d := domain.Date(start); !d.After(domain.Date(end)); d = d.AddDate(0, 0, 1) {
		if !IsTradingDay(d) {
			continue
		}
		days = append(days, TradingDay{
			Date:  d,
			Open:  time.Date(d.Year(), d.Month(), d.Day(), openHour, openMinute, 0, 0, time.UTC),
			Close: closeTime(d),
		})
	}
	return days
}

// TradingDays returns just the dates of Schedule(start, end).
func TradingDays(start, end time.Time) []time.Time {
	var dates []time.Time
	for d := domain.Date(start); !d.After(domain.Date(end)); d = d.AddDate(0, 0, 1) {
		if IsTradingDay(d) {
			dates = append(dates, d)
		}
	}
	return dates
}

// IsTradingDay reports whether the market is open on the given date.
func IsTradingDay(d time.Time) bool {
	d = domain.Date(d)
	if wd := d.Weekday(); wd == time.Saturday || wd == time.Sunday {
		return false
	}
	for _, h := range holidays(d.Year()) {
		if h.Equal(d) {
			return false
		}
	}
	return true
}

// NextTradingDay returns the first trading day strictly after the given date.
func NextTradingDay(d time.Time) time.Time {
	for d = domain.Date(d).AddDate(0, 0, 1); !IsTradingDay(d); d = d.AddDate(0, 0, 1) {
	}
	return d
}

func closeTime(d time.Time) time.Time {
	hour := closeHour
	if isEarlyClose(d) {
		hour = earlyCloseHour
	}
	return time.Date(d.Year(), d.Month(), d.Day(), hour, 0, 0, 0, time.UTC)
}

// isEarlyClose reports the 13:00 sessions: July 3rd, the day after
// Thanksgiving, and Christmas Eve, whenever they are trading days.
func isEarlyClose(d time.Time) bool {
	if d.Month() == time.July && d.Day() == 3 {
		return true
	}
	if d.Month() == time.December && d.Day() == 24 {
		return true
	}
	thanksgiving := nthWeekday(d.Year(), time.November, time.Thursday, 4)
	return d.Equal(thanksgiving.AddDate(0, 0, 1))
}

// holidays returns the full-day market holidays for a year, already shifted
// to their observed dates.
func holidays(year int) []time.Time {
	hs := []time.Time{
		observed(time.Date(year, time.January, 1, 0, 0, 0, 0, time.UTC)),
		nthWeekday(year, time.January, time.Monday, 3),  // Martin Luther King Jr. Day
		nthWeekday(year, time.February, time.Monday, 3), // Washington's Birthday
		goodFriday(year),
		lastWeekday(year, time.May, time.Monday), // Memorial Day
		observed(time.Date(year, time.July, 4, 0, 0, 0, 0, time.UTC)),
		nthWeekday(year, time.September, time.Monday, 1),  // Labor Day
		nthWeekday(year, time.November, time.Thursday, 4), // Thanksgiving
		observed(time.Date(year, time.December, 25, 0, 0, 0, 0, time.UTC)),
	}
	if year >= 2022 {
		hs = append(hs, observed(time.Date(year, time.June, 19, 0, 0, 0, 0, time.UTC)))
	}
	return hs
}

// observed shifts a fixed-date holiday falling on a weekend to the nearest
// weekday: Saturday observes Friday, Sunday observes Monday.
func observed(d time.Time) time.Time {
	switch d.Weekday() {
	case time.Saturday:
		return d.AddDate(0, 0, -1)
	case time.Sunday:
		return d.AddDate(0, 0, 1)
	default:
		return d
	}
}

// nthWeekday returns the n-th given weekday of a month.
func nthWeekday(year int, month time.Month, weekday time.Weekday, n int) time.Time {
	d := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	offset := (int(weekday) - int(d.Weekday()) + 7) % 7
	return d.AddDate(0, 0, offset+(n-1)*7)
}

// lastWeekday returns the last given weekday of a month.
func lastWeekday(year int, month time.Month, weekday time.Weekday) time.Time {
	d := time.Date(year, month+1, 1, 0, 0, 0, 0, time.UTC).AddDate(0, 0, -1)
	offset := (int(d.Weekday()) - int(weekday) + 7) % 7
	return d.AddDate(0, 0, -offset)
}

// goodFriday is two days before Easter Sunday (anonymous Gregorian computus).
func goodFriday(year int) time.Time {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	easter := time.Date(year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
	return easter.AddDate(0, 0, -2)
}
