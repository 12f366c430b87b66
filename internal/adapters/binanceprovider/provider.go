// Package binanceprovider implements the historical-data provider port on
// top of the Binance futures REST API.
package binanceprovider

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"time"

	"github.com/adshao/go-binance/v2/common"
	"github.com/adshao/go-binance/v2/futures"

	"autotrading/internal/domain"
	"autotrading/internal/ports"
)

const (
	baseURLProduction = "https://fapi.binance.com"
	baseURLTestnet    = "https://testnet.binancefuture.com"

	// Binance caps klines responses at 1500 rows.
	maxPageLimit = 1500
)

// Provider implements ports.HistoricalProvider using the go-binance library.
type Provider struct {
	futuresClient *futures.Client
	logger        ports.Logger
}

// Config holds configuration specific to the Binance provider adapter.
type Config struct {
	APIKey     string
	SecretKey  string
	UseTestnet bool
	Logger     ports.Logger
}

// New creates a new Binance provider adapter. Keys are optional: klines are
// a public endpoint.
func New(cfg Config) (*Provider, error) {
	if cfg.Logger == nil {
		return nil, fmt.Errorf("%w: logger is required for Binance provider", ports.ErrConfigurationError)
	}

	client := futures.NewClient(cfg.APIKey, cfg.SecretKey)
	if cfg.UseTestnet {
		client.BaseURL = baseURLTestnet
	} else {
		client.BaseURL = baseURLProduction
	}
	cfg.Logger.Info(context.Background(), "Binance provider configured", map[string]interface{}{
		"baseURL": client.BaseURL,
	})

	return &Provider{futuresClient: client, logger: cfg.Logger}, nil
}

// DownloadBars fetches all bars for the contract between start and end,
// paging through the API as needed. Binance markets trade around the clock,
// so the rth flag has no effect here.
func (p *Provider) DownloadBars(ctx context.Context, contract domain.Contract, start, end time.Time, res domain.Resolution, _ bool) ([]domain.Bar, error) {
	op := "DownloadBars"
	interval, err := intervalFor(res)
	if err != nil {
		return nil, err
	}

	var bars []domain.Bar
	from := start
	for {
		klines, err := p.futuresClient.NewKlinesService().
			Symbol(contract.Symbol).
			Interval(interval).
			StartTime(from.UnixMilli()).
			EndTime(end.UnixMilli()).
			Limit(maxPageLimit).
			Do(ctx)
		if err != nil {
			return nil, p.handleError(ctx, err, op)
		}
		if len(klines) == 0 {
			break
		}
		for _, k := range klines {
			bar, err := translateKline(k)
			if err != nil {
				return nil, p.handleError(ctx, fmt.Errorf("failed to translate kline: %w", err), op)
			}
			bars = append(bars, bar)
		}
		last := klines[len(klines)-1]
		from = time.UnixMilli(last.CloseTime)
		if from.After(end) || len(klines) < maxPageLimit {
			break
		}
	}

	p.logger.Debug(ctx, op+" complete", map[string]interface{}{
		"symbol": contract.Symbol, "interval": interval, "bars": len(bars),
	})
	return bars, nil
}

// DownloadTrades is not available through the klines API.
func (p *Provider) DownloadTrades(ctx context.Context, contract domain.Contract, start, end time.Time, _ bool) ([]domain.TradeTick, error) {
	return nil, fmt.Errorf("%w: Binance provider does not serve per-trade history", ports.ErrNotImplemented)
}

// intervalFor maps a resolution onto a Binance kline interval.
func intervalFor(res domain.Resolution) (string, error) {
	d := res.Duration()
	switch {
	case d >= time.Minute && d < time.Hour && d%time.Minute == 0:
		return fmt.Sprintf("%dm", int(d/time.Minute)), nil
	case d >= time.Hour && d < 24*time.Hour && d%time.Hour == 0:
		return fmt.Sprintf("%dh", int(d/time.Hour)), nil
	case res.IsDaily():
		return "1d", nil
	default:
		return "", fmt.Errorf("%w: no Binance interval for %v", ports.ErrUnsupportedResolution, d)
	}
}

// handleError translates API errors, keeping the ports sentinels usable with
// errors.Is at the call sites.
func (p *Provider) handleError(ctx context.Context, err error, operation string) error {
	if err == nil {
		return nil
	}

	fields := map[string]interface{}{"operation": operation, "originalError": err.Error()}

	var apiErr *common.APIError
	if errors.As(err, &apiErr) {
		fields["apiErrorCode"] = apiErr.Code
		fields["apiErrorMessage"] = apiErr.Message

		var mappedErr error
		switch apiErr.Code {
		case -1121: // Invalid symbol
			mappedErr = ports.ErrNotFound
		case -1120, -1127: // Invalid interval / lookup exceeds limit
			mappedErr = ports.ErrUnsupportedResolution
		default:
			p.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
			return fmt.Errorf("%s failed: %w", operation, err)
		}
		p.logger.Error(ctx, err, fmt.Sprintf("%s failed with API error", operation), fields)
		return fmt.Errorf("%s failed: %w: %v", operation, mappedErr, err)
	}

	p.logger.Error(ctx, err, fmt.Sprintf("%s failed", operation), fields)
	return fmt.Errorf("%s failed: %w", operation, err)
}

func translateKline(k *futures.Kline) (domain.Bar, error) {
	if k == nil {
		return domain.Bar{}, errors.New("received nil kline")
	}
	open, err := strconv.ParseFloat(k.Open, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing open price '%s': %w", k.Open, err)
	}
	high, err := strconv.ParseFloat(k.High, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing high price '%s': %w", k.High, err)
	}
	low, err := strconv.ParseFloat(k.Low, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing low price '%s': %w", k.Low, err)
	}
	cls, err := strconv.ParseFloat(k.Close, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing close price '%s': %w", k.Close, err)
	}
	vol, err := strconv.ParseFloat(k.Volume, 64)
	if err != nil {
		return domain.Bar{}, fmt.Errorf("parsing volume '%s': %w", k.Volume, err)
	}

	return domain.Bar{
		Timestamp: time.UnixMilli(k.OpenTime).UTC(),
		Open:      open,
		High:      high,
		Low:       low,
		Close:     cls,
		Volume:    vol,
	}, nil
}
