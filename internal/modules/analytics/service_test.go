package analytics

import (
	"fmt"
	"testing"
	"time"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tradescope/internal/config"
	"tradescope/internal/domain"
)

func testConfig() config.AnalyticsConfig {
	return config.AnalyticsConfig{
		TiltOpenHour:     15,
		TiltSizeMultiple: 2.0,
		ClusterGapMs:     3600000,
		ClusterMinTrades: 3,
		DurationBandsMax: []float64{0, 3, 10, 30},
	}
}

func newTestService(rollingWindow int) *Service {
	return NewService(testConfig(), rollingWindow, zerolog.Nop())
}

func at(t *testing.T, value string) time.Time {
	t.Helper()
	ts, err := time.Parse("2006-01-02 15:04:05", value)
	require.NoError(t, err)
	return ts.UTC()
}

func outcomes(results ...domain.Outcome) []domain.TradeRecord {
	trades := make([]domain.TradeRecord, len(results))
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	for i, r := range results {
		trades[i] = domain.TradeRecord{
			Symbol:    "AAPL",
			CloseTime: base.Add(time.Duration(i) * time.Hour),
			WinLoss:   r,
		}
	}
	return trades
}

func TestDayOfWeekAlwaysSevenBuckets(t *testing.T) {
	svc := newTestService(50)

	empty := svc.DayOfWeek(nil)
	require.Len(t, empty, 7)
	assert.Equal(t, "Sunday", empty[0].Key)
	assert.Equal(t, "Saturday", empty[6].Key)
	for _, b := range empty {
		assert.Equal(t, 0, b.TradeCount)
		assert.Equal(t, 0.0, b.WinRatePct)
	}

	// 2024-01-05 is a Friday.
	trades := []domain.TradeRecord{
		{Symbol: "AAPL", CloseTime: at(t, "2024-01-05 15:00:00"), TotalProfit: 100, WinLoss: domain.OutcomeWin},
		{Symbol: "AAPL", CloseTime: at(t, "2024-01-05 16:00:00"), TotalProfit: -50, WinLoss: domain.OutcomeLoss},
	}
	report := svc.DayOfWeek(trades)
	require.Len(t, report, 7)
	friday := report[5]
	assert.Equal(t, "Friday", friday.Key)
	assert.Equal(t, 50.0, friday.PnL)
	assert.Equal(t, 2, friday.TradeCount)
	assert.Equal(t, 50.0, friday.WinRatePct)
}

func TestTimeOfDayOmitsEmptyHours(t *testing.T) {
	svc := newTestService(50)

	trades := []domain.TradeRecord{
		{Symbol: "AAPL", OpenTime: at(t, "2024-01-05 09:30:00"), TotalProfit: 10, WinLoss: domain.OutcomeWin},
		{Symbol: "AAPL", OpenTime: at(t, "2024-01-05 09:45:00"), TotalProfit: 5, WinLoss: domain.OutcomeWin},
		{Symbol: "AAPL", OpenTime: at(t, "2024-01-05 14:00:00"), TotalProfit: -3, WinLoss: domain.OutcomeLoss},
		{Symbol: "MSFT", CloseTime: at(t, "2024-01-05 11:00:00"), TotalProfit: 99}, // no open time
	}

	report := svc.TimeOfDay(trades)
	require.Len(t, report, 2)
	assert.Equal(t, "09:00", report[0].Key)
	assert.Equal(t, 2, report[0].TradeCount)
	assert.Equal(t, 100.0, report[0].WinRatePct)
	assert.Equal(t, "14:00", report[1].Key)
}

func TestClusters(t *testing.T) {
	svc := newTestService(50)

	trades := []domain.TradeRecord{
		// A run of three within the hour gap.
		{Symbol: "A", OpenTime: at(t, "2024-01-05 09:00:00"), TotalProfit: 10, WinLoss: domain.OutcomeWin},
		{Symbol: "B", OpenTime: at(t, "2024-01-05 09:30:00"), TotalProfit: -5, WinLoss: domain.OutcomeLoss},
		{Symbol: "C", OpenTime: at(t, "2024-01-05 10:30:00"), TotalProfit: 7, WinLoss: domain.OutcomeWin},
		// Gap of 2h starts a new run, which stays below the minimum.
		{Symbol: "D", OpenTime: at(t, "2024-01-05 12:30:00"), TotalProfit: 3, WinLoss: domain.OutcomeWin},
		{Symbol: "E", OpenTime: at(t, "2024-01-05 13:00:00"), TotalProfit: 1, WinLoss: domain.OutcomeWin},
	}

	clusters := svc.Clusters(trades)
	require.Len(t, clusters, 1)
	assert.Equal(t, 3, clusters[0].TradeCount)
	assert.Equal(t, 12.0, clusters[0].PnL)
	assert.Equal(t, 2, clusters[0].Wins)
}

func TestClustersExactGapStaysTogether(t *testing.T) {
	svc := newTestService(50)

	trades := []domain.TradeRecord{
		{Symbol: "A", OpenTime: at(t, "2024-01-05 09:00:00")},
		{Symbol: "B", OpenTime: at(t, "2024-01-05 10:00:00")}, // exactly the gap
		{Symbol: "C", OpenTime: at(t, "2024-01-05 11:00:00")},
	}

	clusters := svc.Clusters(trades)
	require.Len(t, clusters, 1)
	assert.Equal(t, 3, clusters[0].TradeCount)
}

func TestAfterResult(t *testing.T) {
	svc := newTestService(50)

	trades := outcomes(
		domain.OutcomeWin,  // no predecessor
		domain.OutcomeWin,  // after win
		domain.OutcomeLoss, // after win
		domain.OutcomeWin,  // after loss
	)

	report := svc.AfterResult(trades)
	require.Len(t, report, 2)

	afterWin := report[0]
	assert.Equal(t, "After Win", afterWin.Key)
	assert.Equal(t, 2, afterWin.TradeCount)
	assert.Equal(t, 1, afterWin.Wins)
	assert.Equal(t, 50.0, afterWin.WinRatePct)

	afterLoss := report[1]
	assert.Equal(t, "After Loss", afterLoss.Key)
	assert.Equal(t, 1, afterLoss.TradeCount)
	assert.Equal(t, 100.0, afterLoss.WinRatePct)
}

func TestSizeQuartilesEvenSplit(t *testing.T) {
	svc := newTestService(50)

	var trades []domain.TradeRecord
	for i := 1; i <= 8; i++ {
		trades = append(trades, domain.TradeRecord{
			Symbol:          fmt.Sprintf("S%d", i),
			OpenTime:        at(t, "2024-01-05 10:00:00"),
			PositionSizeUSD: float64(i * 10),
			TotalProfit:     float64(i),
			WinLoss:         domain.OutcomeWin,
		})
	}

	report := svc.SizeQuartiles(trades)
	require.Len(t, report, 4)

	for _, q := range report {
		assert.Equal(t, 2, q.TradeCount)
	}
	assert.Equal(t, 10.0, report[0].MinSize)
	assert.Equal(t, 20.0, report[0].MaxSize)
	assert.Equal(t, "Q1 ($10 - $20)", report[0].Label)
	assert.Equal(t, 80.0, report[3].MaxSize)
}

func TestSizeQuartilesRemainderGoesToQ4(t *testing.T) {
	svc := newTestService(50)

	var trades []domain.TradeRecord
	for i := 1; i <= 10; i++ {
		trades = append(trades, domain.TradeRecord{
			Symbol:          "AAPL",
			OpenTime:        at(t, "2024-01-05 10:00:00"),
			PositionSizeUSD: float64(i * 10),
		})
	}

	report := svc.SizeQuartiles(trades)
	require.Len(t, report, 4)
	assert.Equal(t, 2, report[0].TradeCount)
	assert.Equal(t, 2, report[1].TradeCount)
	assert.Equal(t, 2, report[2].TradeCount)
	assert.Equal(t, 4, report[3].TradeCount)
}

func TestSizeQuartilesSmallSample(t *testing.T) {
	svc := newTestService(50)

	trades := []domain.TradeRecord{
		{Symbol: "AAPL", OpenTime: at(t, "2024-01-05 10:00:00"), PositionSizeUSD: 100, TotalProfit: 10, WinLoss: domain.OutcomeWin},
		{Symbol: "MSFT", OpenTime: at(t, "2024-01-05 11:00:00"), PositionSizeUSD: 300, TotalProfit: -5, WinLoss: domain.OutcomeLoss},
	}

	// Fewer than four sized trades still yields four buckets, with
	// Q1-Q3 empty and everything in Q4.
	report := svc.SizeQuartiles(trades)
	require.Len(t, report, 4)
	assert.Equal(t, 0, report[0].TradeCount)
	assert.Equal(t, 0, report[1].TradeCount)
	assert.Equal(t, 0, report[2].TradeCount)
	assert.Equal(t, 2, report[3].TradeCount)
	assert.Equal(t, 5.0, report[3].PnL)
	assert.Equal(t, "Q4 ($100 - $300)", report[3].Label)

	assert.Nil(t, svc.SizeQuartiles(nil))
}

func TestRMultiples(t *testing.T) {
	svc := newTestService(50)

	trades := []domain.TradeRecord{
		// risk = 10, R = 2.5 → "2 to 3"
		{Symbol: "AAPL", OpenTime: at(t, "2024-01-05 10:00:00"), PositionSizeUSD: 1000, TotalProfit: 2500, WinLoss: domain.OutcomeWin},
		// R = -2.5 → "< -2"
		{Symbol: "MSFT", OpenTime: at(t, "2024-01-05 11:00:00"), PositionSizeUSD: 1000, TotalProfit: -25, WinLoss: domain.OutcomeLoss},
		// R exactly 3.0 falls past the "2 to 3" bin
		{Symbol: "NVDA", OpenTime: at(t, "2024-01-05 14:00:00"), PositionSizeUSD: 1000, TotalProfit: 30, WinLoss: domain.OutcomeWin},
		// no size: excluded
		{Symbol: "SPY", OpenTime: at(t, "2024-01-05 12:00:00"), TotalProfit: 100},
		// no profit: excluded
		{Symbol: "QQQ", OpenTime: at(t, "2024-01-05 13:00:00"), PositionSizeUSD: 500},
	}

	report := svc.RMultiples(trades)
	require.Len(t, report, 7)

	byKey := map[string]ReportBucket{}
	total := 0
	for _, b := range report {
		byKey[b.Key] = b
		total += b.TradeCount
	}

	assert.Equal(t, 3, total)
	assert.Equal(t, 1, byKey["2 to 3"].TradeCount)
	assert.Equal(t, 2500.0, byKey["2 to 3"].PnL)
	assert.Equal(t, 1, byKey["< -2"].TradeCount) // -25 / (1000 * 0.01) = -2.5
	assert.Equal(t, 1, byKey["> 3"].TradeCount)  // 30 / (1000 * 0.01) = 3.0
}

func TestCategoricalReportsDefaultUnknown(t *testing.T) {
	svc := newTestService(50)

	trades := []domain.TradeRecord{
		{Symbol: "A", OpenTime: at(t, "2024-01-05 10:00:00"), EntryTrigger: "Breakout", TotalProfit: 10, WinLoss: domain.OutcomeWin},
		{Symbol: "B", OpenTime: at(t, "2024-01-05 11:00:00"), EntryTrigger: "Breakout", TotalProfit: -4, WinLoss: domain.OutcomeLoss},
		{Symbol: "C", OpenTime: at(t, "2024-01-05 12:00:00"), TotalProfit: 2, WinLoss: domain.OutcomeWin},
	}

	report := svc.ByEntryTrigger(trades)
	require.Len(t, report, 2)
	assert.Equal(t, "Breakout", report[0].Key)
	assert.Equal(t, 6.0, report[0].PnL)
	assert.Equal(t, "Unknown", report[1].Key)
	assert.Equal(t, 1, report[1].TradeCount)
}

func TestExitQualityRatesAreIndependent(t *testing.T) {
	svc := newTestService(50)

	trades := []domain.TradeRecord{
		{Symbol: "A", ProfitTargetHit: true},
		{Symbol: "B", StopLossHit: true},
		{Symbol: "C", ProfitTargetHit: true, StopLossHit: true},
		{Symbol: "D"}, // no flag: not considered
	}

	q := svc.ExitQuality(trades)
	assert.Equal(t, 3, q.Considered)
	assert.Equal(t, 2, q.TargetHits)
	assert.Equal(t, 2, q.StopHits)
	assert.Equal(t, 66.7, q.TargetRatePct)
	assert.Equal(t, 66.7, q.StopRatePct)
}

func TestTilt(t *testing.T) {
	svc := newTestService(50)

	trades := []domain.TradeRecord{
		// Late open and no thesis.
		{Symbol: "A", OpenTime: at(t, "2024-01-05 15:30:00"), PositionSizeUSD: 100},
		// Disciplined trade.
		{Symbol: "B", OpenTime: at(t, "2024-01-05 10:00:00"), PositionSizeUSD: 100, TradeThesis: "Earnings"},
		// Oversized: mean is 300, threshold 600.
		{Symbol: "C", OpenTime: at(t, "2024-01-05 11:00:00"), PositionSizeUSD: 700, TradeThesis: "Momentum"},
	}

	report := svc.Tilt(trades)
	assert.Equal(t, 300.0, report.MeanPositionSize)
	assert.Equal(t, 1, report.LateEntries)
	assert.Equal(t, 1, report.Oversized)
	assert.Equal(t, 1, report.NoThesis)
	assert.Equal(t, 2, report.Flagged)
	assert.Equal(t, 3, report.TotalTrades)
}

func TestRollingWinRate(t *testing.T) {
	svc := newTestService(3)

	trades := outcomes(
		domain.OutcomeWin,
		domain.OutcomeWin,
		domain.OutcomeLoss,
		domain.OutcomeWin,
	)

	points := svc.RollingWinRate(trades)
	require.Len(t, points, 2)
	assert.Equal(t, 66.7, points[0].WinRatePct) // W W L
	assert.Equal(t, 66.7, points[1].WinRatePct) // W L W
	assert.Equal(t, "2024-01-01", points[0].Date)
}

func TestRollingWinRateNeedsFullWindow(t *testing.T) {
	svc := newTestService(50)
	assert.Empty(t, svc.RollingWinRate(outcomes(domain.OutcomeWin, domain.OutcomeLoss)))
}

func TestStreaks(t *testing.T) {
	svc := newTestService(50)

	report := svc.Streaks(outcomes(
		domain.OutcomeWin,
		domain.OutcomeWin,
		domain.OutcomeLoss,
		domain.OutcomeWin,
		domain.OutcomeWin,
		domain.OutcomeWin,
	))

	assert.Equal(t, 3, report.MaxWinStreak)
	assert.Equal(t, 1, report.MaxLossStreak)
}

func TestStreaksUndecidedBreaksRun(t *testing.T) {
	svc := newTestService(50)

	report := svc.Streaks(outcomes(
		domain.OutcomeWin,
		domain.OutcomeWin,
		domain.OutcomeUnknown,
		domain.OutcomeWin,
	))

	assert.Equal(t, 2, report.MaxWinStreak)
	assert.Equal(t, 0, report.MaxLossStreak)
}

func TestRisk(t *testing.T) {
	svc := newTestService(50)

	trades := []domain.TradeRecord{
		{Symbol: "A", TotalProfit: 100},
		{Symbol: "B", TotalProfit: -50},
		{Symbol: "C", TotalProfit: 30},
		{Symbol: "D", TotalProfit: -20},
	}

	metrics := svc.Risk(trades)
	assert.Equal(t, 100.0, metrics.MaxWin)
	assert.Equal(t, -50.0, metrics.MaxLoss)
	assert.InDelta(t, 15.0, metrics.MeanPnL, 1e-9)
	// Population std-dev: sqrt(mean of squared deviations).
	assert.InDelta(t, 57.663, metrics.StdDevPnL, 0.001)
	assert.Equal(t, 4, metrics.TradeCount)
}

func TestRiskEmpty(t *testing.T) {
	svc := newTestService(50)
	metrics := svc.Risk(nil)
	assert.Equal(t, 0.0, metrics.MaxWin)
	assert.Equal(t, 0.0, metrics.MaxLoss)
	assert.Equal(t, 0.0, metrics.MeanPnL)
	assert.Equal(t, 0.0, metrics.StdDevPnL)
}

func TestDurationBuckets(t *testing.T) {
	svc := newTestService(50)

	trades := []domain.TradeRecord{
		{Symbol: "A", HoldingDays: 0, TotalProfit: 1},
		{Symbol: "B", HoldingDays: 2, TotalProfit: 2},
		{Symbol: "C", HoldingDays: 7, TotalProfit: 3},
		{Symbol: "D", HoldingDays: 25, TotalProfit: 4},
		{Symbol: "E", HoldingDays: 90, TotalProfit: 5},
		// Hours column only: 48h = 2d.
		{Symbol: "F", HoldingHours: 48, TotalProfit: 6},
	}

	report := svc.DurationBuckets(trades)
	require.Len(t, report, 5)
	assert.Equal(t, []string{"0d", "1-3d", "4-10d", "11-30d", "30d+"}, []string{
		report[0].Key, report[1].Key, report[2].Key, report[3].Key, report[4].Key,
	})
	assert.Equal(t, 1, report[0].TradeCount)
	assert.Equal(t, 2, report[1].TradeCount)
	assert.Equal(t, 1, report[2].TradeCount)
	assert.Equal(t, 1, report[3].TradeCount)
	assert.Equal(t, 1, report[4].TradeCount)
}

func TestWinRateBounds(t *testing.T) {
	svc := newTestService(50)

	trades := outcomes(
		domain.OutcomeWin, domain.OutcomeLoss, domain.OutcomeUnknown,
		domain.OutcomeWin, domain.OutcomeLoss, domain.OutcomeWin,
	)

	for _, b := range svc.DayOfWeek(trades) {
		assert.GreaterOrEqual(t, b.WinRatePct, 0.0)
		assert.LessOrEqual(t, b.WinRatePct, 100.0)
		if b.TradeCount == 0 {
			assert.Equal(t, 0.0, b.WinRatePct)
		}
	}
}
