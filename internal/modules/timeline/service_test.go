package timeline

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradescope/internal/clients/marketcontext"
	"tradescope/internal/domain"
)

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", value)
	require.NoError(t, err)
	return ts.UTC()
}

func TestTimelines(t *testing.T) {
	svc := NewService(nil, zerolog.Nop())

	trades := []domain.TradeRecord{
		{Symbol: "AAPL", OpenTime: at(t, "2024-01-05 10:00:00"), TotalProfit: 100, WinLoss: domain.OutcomeWin},
		{Symbol: "AAPL", OpenTime: at(t, "2024-01-20 10:00:00"), TotalProfit: -40, WinLoss: domain.OutcomeLoss},
		{Symbol: "AAPL", OpenTime: at(t, "2024-02-02 10:00:00"), TotalProfit: 30, WinLoss: domain.OutcomeWin},
		{Symbol: "MSFT", OpenTime: at(t, "2024-02-10 10:00:00"), TotalProfit: 10, WinLoss: domain.OutcomeWin},
		{Symbol: "SPY", CloseTime: at(t, "2024-02-11 10:00:00"), TotalProfit: 5}, // no open time, skipped
	}

	timelines := svc.Timelines(trades)
	require.Len(t, timelines, 3)

	// Most recent month first, symbols alphabetical within the month.
	assert.Equal(t, "AAPL-2024-02", timelines[0].Key)
	assert.Equal(t, "MSFT-2024-02", timelines[1].Key)
	assert.Equal(t, "AAPL-2024-01", timelines[2].Key)

	jan := timelines[2]
	assert.Equal(t, 60.0, jan.PnL)
	assert.Equal(t, 2, jan.TradeCount)
	assert.Equal(t, 50.0, jan.WinRatePct)
	assert.Equal(t, "2024-01-05", jan.FirstTrade)
	assert.Equal(t, "2024-01-20", jan.LastTrade)
}

type fakeFetcher struct {
	indicators []marketcontext.IndicatorPoint
	prices     []marketcontext.PricePoint
	err        error

	gotSymbol string
	gotStart  string
	gotEnd    string
}

func (f *fakeFetcher) GetIndicators(_ context.Context, symbol, start, end string) ([]marketcontext.IndicatorPoint, error) {
	f.gotSymbol, f.gotStart, f.gotEnd = symbol, start, end
	return f.indicators, f.err
}

func (f *fakeFetcher) GetDailyPrices(_ context.Context, symbol, start, end string) ([]marketcontext.PricePoint, error) {
	return f.prices, f.err
}

func TestContextJoinsByDate(t *testing.T) {
	ema := 190.0
	fetcher := &fakeFetcher{
		indicators: []marketcontext.IndicatorPoint{
			{Date: "2024-01-05", EMA10: &ema},
		},
		prices: []marketcontext.PricePoint{
			{Date: "2024-01-05", Close: 209.0},
		},
	}
	svc := NewService(fetcher, zerolog.Nop())

	trades := []domain.TradeRecord{
		{Symbol: "AAPL", OpenTime: at(t, "2024-01-05 10:00:00"), TotalProfit: 100, WinLoss: domain.OutcomeWin},
		{Symbol: "AAPL", OpenTime: at(t, "2024-01-08 10:00:00"), TotalProfit: -40, WinLoss: domain.OutcomeLoss},
		{Symbol: "MSFT", OpenTime: at(t, "2024-01-06 10:00:00"), TotalProfit: 7},
	}

	rows, err := svc.Context(context.Background(), trades, "AAPL")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	assert.Equal(t, "AAPL", fetcher.gotSymbol)
	assert.Equal(t, "2024-01-05", fetcher.gotStart)
	assert.Equal(t, "2024-01-08", fetcher.gotEnd)

	// Newest first; the day without context keeps nil fields.
	assert.Equal(t, "2024-01-08", rows[0].Date)
	assert.Nil(t, rows[0].ClosePrice)
	assert.Nil(t, rows[0].EMA10)

	day := rows[1]
	assert.Equal(t, "2024-01-05", day.Date)
	require.NotNil(t, day.ClosePrice)
	assert.Equal(t, 209.0, *day.ClosePrice)
	require.NotNil(t, day.EMA10)
	assert.Equal(t, 190.0, *day.EMA10)
	require.NotNil(t, day.ExtEMA10)
	assert.InDelta(t, 10.0, *day.ExtEMA10, 1e-9)
	assert.Nil(t, day.EMA20)
	assert.Nil(t, day.ExtSMA50)
}

func TestContextBackfillsFromPrices(t *testing.T) {
	// Twelve days of prices, no remote indicators: EMA(10) should be
	// backfilled locally from day 10 onwards.
	var prices []marketcontext.PricePoint
	for i := 1; i <= 12; i++ {
		prices = append(prices, marketcontext.PricePoint{
			Date:  fmt.Sprintf("2024-01-%02d", i),
			Close: 100 + float64(i),
		})
	}
	fetcher := &fakeFetcher{prices: prices}
	svc := NewService(fetcher, zerolog.Nop())

	trades := []domain.TradeRecord{
		{Symbol: "AAPL", OpenTime: at(t, "2024-01-01 10:00:00")},
		{Symbol: "AAPL", OpenTime: at(t, "2024-01-12 10:00:00")},
	}

	rows, err := svc.Context(context.Background(), trades, "AAPL")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	// Newest first: the last day has a full EMA window behind it.
	assert.Equal(t, "2024-01-12", rows[0].Date)
	assert.NotNil(t, rows[0].EMA10)
	assert.NotNil(t, rows[0].ExtEMA10)
	// Too early for any window.
	assert.Equal(t, "2024-01-01", rows[1].Date)
	assert.Nil(t, rows[1].EMA10)
	// Not enough closes for EMA(20) or SMA(50) anywhere.
	assert.Nil(t, rows[0].EMA20)
	assert.Nil(t, rows[0].SMA50)
}

func TestContextNoTradesForSymbol(t *testing.T) {
	svc := NewService(&fakeFetcher{}, zerolog.Nop())
	_, err := svc.Context(context.Background(), nil, "AAPL")
	assert.Error(t, err)
}

func TestContextFetcherNotConfigured(t *testing.T) {
	svc := NewService(nil, zerolog.Nop())
	trades := []domain.TradeRecord{{Symbol: "AAPL", OpenTime: at(t, "2024-01-05 10:00:00")}}
	_, err := svc.Context(context.Background(), trades, "AAPL")
	assert.Error(t, err)
}
