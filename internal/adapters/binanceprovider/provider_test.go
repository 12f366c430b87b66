package binanceprovider

import (
	"context"
	"testing"
	"time"

	"github.com/adshao/go-binance/v2/futures"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"autotrading/internal/adapters/logger"
	"autotrading/internal/domain"
	"autotrading/internal/ports"
)

func TestIntervalFor(t *testing.T) {
	tests := []struct {
		res     domain.Resolution
		want    string
		wantErr bool
	}{
		{domain.ResolutionMin, "1m", false},
		{domain.Resolution(5 * time.Minute), "5m", false},
		{domain.ResolutionHour, "1h", false},
		{domain.Resolution(4 * time.Hour), "4h", false},
		{domain.ResolutionDaily, "1d", false},
		{domain.ResolutionTick, "", true},
		{domain.ResolutionSec, "", true},
		{domain.Resolution(90 * time.Second), "", true},
	}
	for _, tt := range tests {
		t.Run(tt.res.String(), func(t *testing.T) {
			got, err := intervalFor(tt.res)
			if tt.wantErr {
				assert.ErrorIs(t, err, ports.ErrUnsupportedResolution)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestTranslateKline(t *testing.T) {
	openTime := time.Date(2023, time.June, 5, 13, 30, 0, 0, time.UTC)
	bar, err := translateKline(&futures.Kline{
		OpenTime:  openTime.UnixMilli(),
		CloseTime: openTime.Add(time.Minute).UnixMilli() - 1,
		Open:      "100.5",
		High:      "101.25",
		Low:       "99.75",
		Close:     "101",
		Volume:    "12345.6",
	})
	require.NoError(t, err)

	assert.Equal(t, openTime, bar.Timestamp)
	assert.Equal(t, 100.5, bar.Open)
	assert.Equal(t, 101.25, bar.High)
	assert.Equal(t, 99.75, bar.Low)
	assert.Equal(t, 101.0, bar.Close)
	assert.Equal(t, 12345.6, bar.Volume)
}

func TestTranslateKlineRejectsBadNumbers(t *testing.T) {
	_, err := translateKline(&futures.Kline{Open: "not-a-number"})
	assert.Error(t, err)

	_, err = translateKline(nil)
	assert.Error(t, err)
}

func TestDownloadTradesNotImplemented(t *testing.T) {
	p, err := New(Config{Logger: logger.NewNop()})
	require.NoError(t, err)

	_, err = p.DownloadTrades(context.Background(), domain.NewStockContract("BTCUSDT"),
		time.Now().Add(-time.Hour), time.Now(), false)
	assert.ErrorIs(t, err, ports.ErrNotImplemented)
}

func TestNewRequiresLogger(t *testing.T) {
	_, err := New(Config{})
	assert.ErrorIs(t, err, ports.ErrConfigurationError)
}
