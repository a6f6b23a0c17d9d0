package session

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradescope/internal/domain"
)

func mustTime(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", value)
	require.NoError(t, err)
	return ts.UTC()
}

func TestBuildDailyIndex(t *testing.T) {
	trades := []domain.TradeRecord{
		{
			Symbol:      "AAPL",
			OpenTime:    mustTime(t, "2024-01-05 10:00:00"),
			CloseTime:   mustTime(t, "2024-01-05 15:30:00"),
			TotalProfit: 100,
			WinLoss:     domain.OutcomeWin,
		},
		{
			Symbol:      "AAPL",
			OpenTime:    mustTime(t, "2024-01-05 11:00:00"),
			CloseTime:   mustTime(t, "2024-01-05 14:00:00"),
			TotalProfit: -50,
			WinLoss:     domain.OutcomeLoss,
		},
		{
			Symbol:      "SPY",
			OpenTime:    mustTime(t, "2024-01-08 09:45:00"),
			TotalProfit: 75,
			WinLoss:     domain.OutcomeWin,
		},
	}

	daily := BuildDailyIndex(trades)
	require.Len(t, daily, 2)

	jan5 := daily["2024-01-05"]
	require.NotNil(t, jan5)
	assert.Equal(t, 50.0, jan5.PnL)
	assert.Equal(t, 2, jan5.TradeCount)
	assert.Equal(t, 1, jan5.Wins)
	assert.Equal(t, 1, jan5.Losses)
	assert.Equal(t, 50.0, jan5.WinRate())

	// Open time buckets the day when close time is absent.
	jan8 := daily["2024-01-08"]
	require.NotNil(t, jan8)
	assert.Equal(t, 1, jan8.TradeCount)
	assert.Equal(t, 75.0, jan8.PnL)
}

func TestBuildDailyIndexSkipsUndatedTrades(t *testing.T) {
	trades := []domain.TradeRecord{
		{Symbol: "AAPL", TotalProfit: 10},
		{Symbol: "MSFT", CloseTime: mustTime(t, "2024-02-01 10:00:00"), TotalProfit: 5},
	}

	daily := BuildDailyIndex(trades)
	require.Len(t, daily, 1)
	assert.Equal(t, 5.0, daily["2024-02-01"].PnL)
}

func TestBuildDailyIndexOrderIndependent(t *testing.T) {
	a := domain.TradeRecord{Symbol: "A", CloseTime: mustTime(t, "2024-03-01 10:00:00"), TotalProfit: 10, WinLoss: domain.OutcomeWin}
	b := domain.TradeRecord{Symbol: "B", CloseTime: mustTime(t, "2024-03-01 11:00:00"), TotalProfit: -4, WinLoss: domain.OutcomeLoss}

	forward := BuildDailyIndex([]domain.TradeRecord{a, b})["2024-03-01"]
	reverse := BuildDailyIndex([]domain.TradeRecord{b, a})["2024-03-01"]

	assert.Equal(t, forward.PnL, reverse.PnL)
	assert.Equal(t, forward.TradeCount, reverse.TradeCount)
	assert.Equal(t, forward.Wins, reverse.Wins)
	assert.Equal(t, forward.Losses, reverse.Losses)
}

func TestSortedDates(t *testing.T) {
	daily := map[string]*DailyAggregate{
		"2024-01-05": {Date: "2024-01-05"},
		"2024-03-01": {Date: "2024-03-01"},
		"2023-12-29": {Date: "2023-12-29"},
	}

	assert.Equal(t, []string{"2024-03-01", "2024-01-05", "2023-12-29"}, SortedDates(daily))
}

func TestManagerReplace(t *testing.T) {
	m := NewManager()
	assert.Nil(t, m.Current())

	first := New("first.csv", "all", nil, ImportStats{})
	m.Replace(first)
	assert.Same(t, first, m.Current())

	second := New("second.csv", "options", nil, ImportStats{})
	m.Replace(second)
	assert.Same(t, second, m.Current())
	assert.NotEqual(t, first.ID, second.ID)
}
