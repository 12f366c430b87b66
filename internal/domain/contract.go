package domain

import "time"

// SecType identifies the kind of instrument a contract describes.
type SecType string

const (
	SecTypeStock  SecType = "STK"
	SecTypeOption SecType = "OPT"
	SecTypeForex  SecType = "CASH"
)

// Exchange identifies the venue on which a contract trades.
// An empty value means "not specified" and acts as a wildcard in
// loose comparisons.
type Exchange string

const (
	ExchangeSmart  Exchange = "SMART"
	ExchangeNYSE   Exchange = "NYSE"
	ExchangeNasdaq Exchange = "NASDAQ"
	ExchangeAmex   Exchange = "AMEX"
	ExchangeArca   Exchange = "ARCA"
	ExchangeForex  Exchange = "FOREX"
)

// Currency is the settlement currency of a contract.
type Currency string

const (
	USD Currency = "USD"
	CAD Currency = "CAD"
	EUR Currency = "EUR"
	GBP Currency = "GBP"
	AUD Currency = "AUD"
	JPY Currency = "JPY"
)

// Right is an option contract's right.
type Right string

const (
	RightCall Right = "CALL"
	RightPut  Right = "PUT"
)

// PriceType selects which price a tick subscription receives.
type PriceType string

const (
	PriceTypeMarket PriceType = "MARKET" // bid/ask midpoint
	PriceTypeAsk    PriceType = "ASK"
	PriceTypeBid    PriceType = "BID"
)

// Contract describes a tradable instrument. It is an immutable value type:
// all fields are comparable, so a Contract can be used directly as a map key.
// The option-specific fields are zero-valued for stock and forex contracts.
type Contract struct {
	SecType  SecType
	Symbol   string
	ConID    int64 // 0 when not assigned by a broker
	Exchange Exchange
	Currency Currency

	// Option-specific fields.
	Strike        float64
	Right         Right
	Multiplier    float64
	LastTradeDate time.Time
}

// NewStockContract builds a stock contract on the SMART exchange in USD.
func NewStockContract(symbol string) Contract {
	return Contract{
		SecType:  SecTypeStock,
		Symbol:   symbol,
		Exchange: ExchangeSmart,
		Currency: USD,
	}
}

// NewForexContract builds a forex contract in USD.
func NewForexContract(symbol string) Contract {
	return Contract{
		SecType:  SecTypeForex,
		Symbol:   symbol,
		Exchange: ExchangeForex,
		Currency: USD,
	}
}

// NewOptionContract builds an option contract. lastTradeDate must be a
// normalized date (see Date).
func NewOptionContract(
	symbol string, strike float64, right Right, multiplier float64, lastTradeDate time.Time,
) Contract {
	return Contract{
		SecType:       SecTypeOption,
		Symbol:        symbol,
		Exchange:      ExchangeSmart,
		Currency:      USD,
		Strike:        strike,
		Right:         right,
		Multiplier:    multiplier,
		LastTradeDate: lastTradeDate,
	}
}

// AssetClass returns the cache directory token for the contract's
// security type.
func (c Contract) AssetClass() string {
	switch c.SecType {
	case SecTypeOption:
		return "option"
	case SecTypeForex:
		return "forex"
	default:
		return "stock"
	}
}

// LooselyEqual reports whether a loosely-defined contract matches a
// well-defined one: every field that is set on the loose side must equal the
// corresponding field on the well-defined side, while unset (zero) fields on
// the loose side act as wildcards. It is used to match broker-returned
// positions against a caller's partial contract spec.
func LooselyEqual(loose, wellDefined Contract) bool {
	if loose == wellDefined {
		return true
	}
	if loose.SecType != wellDefined.SecType {
		return false
	}
	if loose.Symbol != wellDefined.Symbol {
		return false
	}
	if loose.ConID != 0 && loose.ConID != wellDefined.ConID {
		return false
	}
	if loose.Exchange != "" && loose.Exchange != wellDefined.Exchange {
		return false
	}
	if loose.Currency != "" && loose.Currency != wellDefined.Currency {
		return false
	}
	if loose.SecType == SecTypeOption {
		if loose.Strike != wellDefined.Strike ||
			loose.Right != wellDefined.Right ||
			loose.Multiplier != wellDefined.Multiplier ||
			!loose.LastTradeDate.Equal(wellDefined.LastTradeDate) {
			return false
		}
	}
	return true
}

// Date normalizes t to midnight UTC. All simulation datetimes in this module
// are timezone-naive values carried in UTC and interpreted as exchange-local
// time; Date is the canonical form for calendar dates used as map keys and
// cache partition names.
func Date(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
