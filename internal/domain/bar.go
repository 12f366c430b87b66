package domain

import "time"

// Bar is one aggregated time bucket of market data. Timestamp is the start
// of the bucket for intraday resolutions and the date for daily bars.
//
// Bid and Ask are extra columns carried only by tick-resolution series; they
// are zero for all other resolutions.
type Bar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64

	Bid float64
	Ask float64
}

// Price resolves the bar's quote according to the requested price type.
// Only meaningful on tick-resolution bars, which carry bid/ask.
func (b Bar) Price(pt PriceType) float64 {
	switch pt {
	case PriceTypeAsk:
		return b.Ask
	case PriceTypeBid:
		return b.Bid
	default:
		return (b.Ask + b.Bid) / 2
	}
}

// TradeTick is a single historical trade print.
type TradeTick struct {
	Timestamp time.Time
	Exchange  Exchange
	Size      float64
	Price     float64
}
