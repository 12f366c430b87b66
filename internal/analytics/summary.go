// Package analytics turns a broker's trade log into performance metrics.
package analytics

import (
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"autotrading/internal/domain"
)

// RoundTrip is one closed position: an entry lot matched against an exit of
// the same size. Partial exits produce one round trip per matched lot.
type RoundTrip struct {
	Contract   domain.Contract
	Quantity   float64
	EntryPrice float64
	ExitPrice  float64
	Long       bool
	PNL        float64
}

// Summary holds the performance metrics of one simulation run.
type Summary struct {
	TotalTrades     int
	FilledTrades    int
	CancelledTrades int
	OpenTrades      int

	RoundTrips   []RoundTrip
	WinningTrips int
	LosingTrips  int
	WinRate      float64
	TotalPNL     float64
	AverageWin   float64
	AverageLoss  float64
	ProfitFactor float64
	Expectancy   float64

	MaxConsecutiveWins   int
	MaxConsecutiveLosses int

	TotalFees decimal.Decimal
}

type openLot struct {
	quantity float64
	price    float64
	long     bool
}

// Summarize computes the metrics for a trade log in submission order.
// Executed quantities are matched FIFO per contract; positions still open at
// the end of the log contribute no realized profit.
func Summarize(trades []*domain.Trade, feePerExecution decimal.Decimal) *Summary {
	s := &Summary{TotalFees: decimal.Zero}
	lots := make(map[domain.Contract][]openLot)

	for _, trade := range trades {
		s.TotalTrades++
		switch trade.Status.State {
		case domain.TradeStateFilled:
			s.FilledTrades++
		case domain.TradeStateCancelled:
			s.CancelledTrades++
		default:
			s.OpenTrades++
		}

		if trade.Status.Filled == 0 {
			continue
		}
		s.TotalFees = s.TotalFees.Add(feePerExecution)

		long := trade.Order.Action == domain.Buy
		qty := trade.Status.Filled
		price := trade.Status.AveFillPrice

		queue := lots[trade.Contract]
		for qty > 0 && len(queue) > 0 && queue[0].long != long {
			lot := &queue[0]
			matched := qty
			if lot.quantity < matched {
				matched = lot.quantity
			}

			trip := RoundTrip{
				Contract:   trade.Contract,
				Quantity:   matched,
				EntryPrice: lot.price,
				ExitPrice:  price,
				Long:       lot.long,
			}
			if lot.long {
				trip.PNL = matched * (price - lot.price)
			} else {
				trip.PNL = matched * (lot.price - price)
			}
			s.RoundTrips = append(s.RoundTrips, trip)

			lot.quantity -= matched
			qty -= matched
			if lot.quantity == 0 {
				queue = queue[1:]
			}
		}
		if qty > 0 {
			queue = append(queue, openLot{quantity: qty, price: price, long: long})
		}
		lots[trade.Contract] = queue
	}

	s.aggregate()
	return s
}

func (s *Summary) aggregate() {
	var grossWin, grossLoss float64
	var consecWins, consecLosses int

	for _, trip := range s.RoundTrips {
		s.TotalPNL += trip.PNL
		if trip.PNL > 0 {
			s.WinningTrips++
			grossWin += trip.PNL
			consecWins++
			consecLosses = 0
		} else {
			s.LosingTrips++
			grossLoss += -trip.PNL
			consecLosses++
			consecWins = 0
		}
		if consecWins > s.MaxConsecutiveWins {
			s.MaxConsecutiveWins = consecWins
		}
		if consecLosses > s.MaxConsecutiveLosses {
			s.MaxConsecutiveLosses = consecLosses
		}
	}

	trips := len(s.RoundTrips)
	if trips == 0 {
		return
	}
	s.WinRate = float64(s.WinningTrips) / float64(trips)
	if s.WinningTrips > 0 {
		s.AverageWin = grossWin / float64(s.WinningTrips)
	}
	if s.LosingTrips > 0 {
		s.AverageLoss = -grossLoss / float64(s.LosingTrips)
	}
	if grossLoss > 0 {
		s.ProfitFactor = grossWin / grossLoss
	}
	s.Expectancy = s.WinRate*s.AverageWin + (1-s.WinRate)*s.AverageLoss
}

// PNLByMonth buckets realized profit by the given exit timestamps, sorted
// ascending. Timestamps align with RoundTrips by index; extra trips without
// a timestamp are skipped.
func (s *Summary) PNLByMonth(exitTimes []time.Time) []MonthlyPNL {
	byMonth := make(map[string]float64)
	for i, trip := range s.RoundTrips {
		if i >= len(exitTimes) {
			break
		}
		byMonth[exitTimes[i].Format("2006-01")] += trip.PNL
	}

	out := make([]MonthlyPNL, 0, len(byMonth))
	for key, pnl := range byMonth {
		month, _ := time.Parse("2006-01", key)
		out = append(out, MonthlyPNL{Month: month, PNL: pnl})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Month.Before(out[j].Month) })
	return out
}

// MonthlyPNL is realized profit for one calendar month.
type MonthlyPNL struct {
	Month time.Time
	PNL   float64
}
