// Package analytics computes the grouped trade reports. Every reducer is
// a pure function of the current trade set: it recomputes from scratch on
// each call and returns fresh structures, so callers may mutate results
// freely. Reducers never fail; missing fields exclude a trade from the
// specific calculation and empty buckets report a zero win rate.
package analytics

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"
	"gonum.org/v1/gonum/stat"

	"tradescope/internal/config"
	"tradescope/internal/domain"
)

// Service computes aggregation reports over a trade set.
type Service struct {
	cfg           config.AnalyticsConfig
	rollingWindow int
	log           zerolog.Logger
}

// NewService creates an analytics service.
func NewService(cfg config.AnalyticsConfig, rollingWindow int, log zerolog.Logger) *Service {
	return &Service{
		cfg:           cfg,
		rollingWindow: rollingWindow,
		log:           log.With().Str("service", "analytics").Logger(),
	}
}

// round1 rounds a percentage to one decimal for display.
func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// winRate returns wins/total as a display percentage, 0 for empty buckets.
func winRate(wins, total int) float64 {
	if total == 0 {
		return 0
	}
	return round1(float64(wins) / float64(total) * 100)
}

var weekdayNames = []string{"Sunday", "Monday", "Tuesday", "Wednesday", "Thursday", "Friday", "Saturday"}

// DayOfWeek groups trades by the weekday of their close-or-open time.
// All seven buckets are always present, Sunday first, even when empty.
func (s *Service) DayOfWeek(trades []domain.TradeRecord) []ReportBucket {
	buckets := make([]ReportBucket, 7)
	for i := range buckets {
		buckets[i].Key = weekdayNames[i]
	}

	for _, trade := range trades {
		ts := trade.BucketTime()
		if ts.IsZero() {
			continue
		}
		b := &buckets[int(ts.UTC().Weekday())]
		b.PnL += trade.TotalProfit
		b.TradeCount++
		if trade.WinLoss == domain.OutcomeWin {
			b.Wins++
		}
	}

	for i := range buckets {
		buckets[i].WinRatePct = winRate(buckets[i].Wins, buckets[i].TradeCount)
	}
	return buckets
}

// TimeOfDay groups trades by the UTC hour of their open time. Hours with
// no trades are omitted; the result is ordered by hour.
func (s *Service) TimeOfDay(trades []domain.TradeRecord) []ReportBucket {
	byHour := make(map[int]*ReportBucket)
	for _, trade := range trades {
		if !trade.HasOpenTime() {
			continue
		}
		hour := trade.OpenTime.UTC().Hour()
		b, ok := byHour[hour]
		if !ok {
			b = &ReportBucket{Key: fmt.Sprintf("%02d:00", hour)}
			byHour[hour] = b
		}
		b.PnL += trade.TotalProfit
		b.TradeCount++
		if trade.WinLoss == domain.OutcomeWin {
			b.Wins++
		}
	}

	var result []ReportBucket
	for hour := 0; hour < 24; hour++ {
		if b, ok := byHour[hour]; ok {
			b.WinRatePct = winRate(b.Wins, b.TradeCount)
			result = append(result, *b)
		}
	}
	return result
}

// Clusters finds runs of trades opened in quick succession. Trades are
// ordered by open time; a gap strictly greater than the configured
// threshold starts a new run, and only runs with enough trades are
// reported.
func (s *Service) Clusters(trades []domain.TradeRecord) []Cluster {
	var opened []domain.TradeRecord
	for _, trade := range trades {
		if trade.HasOpenTime() {
			opened = append(opened, trade)
		}
	}
	opened = domain.SortByOpenTime(opened)

	gap := time.Duration(s.cfg.ClusterGapMs) * time.Millisecond

	var result []Cluster
	var run []domain.TradeRecord
	flush := func() {
		if len(run) >= s.cfg.ClusterMinTrades {
			result = append(result, buildCluster(run))
		}
		run = nil
	}

	for _, trade := range opened {
		if len(run) > 0 && trade.OpenTime.Sub(run[len(run)-1].OpenTime) > gap {
			flush()
		}
		run = append(run, trade)
	}
	flush()

	return result
}

func buildCluster(run []domain.TradeRecord) Cluster {
	c := Cluster{
		Start:      run[0].OpenTime.UTC().Format(time.RFC3339),
		End:        run[len(run)-1].OpenTime.UTC().Format(time.RFC3339),
		TradeCount: len(run),
	}
	for _, trade := range run {
		c.PnL += trade.TotalProfit
		if trade.WinLoss == domain.OutcomeWin {
			c.Wins++
		}
	}
	c.WinRatePct = winRate(c.Wins, c.TradeCount)
	return c
}

// AfterResult groups each trade by the outcome of the trade immediately
// before it in close-or-open time order. The first trade has no
// predecessor and never counts as a current trade; trades following an
// undecided one are skipped.
func (s *Service) AfterResult(trades []domain.TradeRecord) []ReportBucket {
	sorted := domain.SortByBucketTime(trades)

	buckets := map[domain.Outcome]*ReportBucket{
		domain.OutcomeWin:  {Key: "After Win"},
		domain.OutcomeLoss: {Key: "After Loss"},
	}

	for i := 1; i < len(sorted); i++ {
		b, ok := buckets[sorted[i-1].WinLoss]
		if !ok {
			continue
		}
		b.PnL += sorted[i].TotalProfit
		b.TradeCount++
		if sorted[i].WinLoss == domain.OutcomeWin {
			b.Wins++
		}
	}

	result := []ReportBucket{*buckets[domain.OutcomeWin], *buckets[domain.OutcomeLoss]}
	for i := range result {
		result[i].WinRatePct = winRate(result[i].Wins, result[i].TradeCount)
	}
	return result
}

// SizeQuartiles splits the trades that have a position size into four
// equal-count buckets by size. The bucket size is floor(n/4); the
// remainder lands in Q4, so with fewer than four sized trades Q1-Q3
// are empty and Q4 holds everything.
func (s *Service) SizeQuartiles(trades []domain.TradeRecord) []QuartileBucket {
	var sized []domain.TradeRecord
	for _, trade := range trades {
		if trade.PositionSizeUSD > 0 {
			sized = append(sized, trade)
		}
	}
	if len(sized) == 0 {
		return nil
	}

	sorted := make([]domain.TradeRecord, len(sized))
	copy(sorted, sized)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].PositionSizeUSD < sorted[j].PositionSizeUSD
	})

	per := len(sorted) / 4
	result := make([]QuartileBucket, 0, 4)
	for q := 0; q < 4; q++ {
		start := q * per
		end := start + per
		if q == 3 {
			end = len(sorted)
		}
		chunk := sorted[start:end]

		var b QuartileBucket
		if len(chunk) > 0 {
			b.MinSize = chunk[0].PositionSizeUSD
			b.MaxSize = chunk[len(chunk)-1].PositionSizeUSD
		}
		b.Label = fmt.Sprintf("Q%d ($%.0f - $%.0f)", q+1, b.MinSize, b.MaxSize)
		for _, trade := range chunk {
			b.PnL += trade.TotalProfit
			b.TradeCount++
			if trade.WinLoss == domain.OutcomeWin {
				b.Wins++
			}
		}
		b.WinRatePct = winRate(b.Wins, b.TradeCount)
		result = append(result, b)
	}
	return result
}

// rMultipleBins are the fixed distribution ranges, ordered.
var rMultipleBins = []string{"< -2", "-2 to -1", "-1 to 0", "0 to 1", "1 to 2", "2 to 3", "> 3"}

// RMultiples bins each trade's profit as a multiple of 1% of its
// position size. Trades without a size or without a profit figure are
// excluded. All seven bins are always present, in order.
func (s *Service) RMultiples(trades []domain.TradeRecord) []ReportBucket {
	buckets := make([]ReportBucket, len(rMultipleBins))
	for i, label := range rMultipleBins {
		buckets[i].Key = label
	}

	for _, trade := range trades {
		if trade.PositionSizeUSD == 0 || trade.TotalProfit == 0 {
			continue
		}
		r := trade.TotalProfit / (trade.PositionSizeUSD * 0.01)

		var idx int
		switch {
		case r < -2:
			idx = 0
		case r < -1:
			idx = 1
		case r < 0:
			idx = 2
		case r < 1:
			idx = 3
		case r < 2:
			idx = 4
		case r < 3:
			idx = 5
		default:
			idx = 6
		}

		b := &buckets[idx]
		b.PnL += trade.TotalProfit
		b.TradeCount++
		if trade.WinLoss == domain.OutcomeWin {
			b.Wins++
		}
	}

	for i := range buckets {
		buckets[i].WinRatePct = winRate(buckets[i].Wins, buckets[i].TradeCount)
	}
	return buckets
}

// ByEntryTrigger groups by the recorded entry trigger.
func (s *Service) ByEntryTrigger(trades []domain.TradeRecord) []ReportBucket {
	return s.byCategory(trades, func(t *domain.TradeRecord) string { return t.EntryTrigger })
}

// ByMarketRegime groups by the recorded market regime.
func (s *Service) ByMarketRegime(trades []domain.TradeRecord) []ReportBucket {
	return s.byCategory(trades, func(t *domain.TradeRecord) string { return t.MarketRegime })
}

// ByInstrumentType groups by instrument type.
func (s *Service) ByInstrumentType(trades []domain.TradeRecord) []ReportBucket {
	return s.byCategory(trades, func(t *domain.TradeRecord) string { return t.InstrumentType })
}

// byCategory is the shared categorical reducer. Absent values group
// under "Unknown"; buckets come out ordered by descending pnl.
func (s *Service) byCategory(trades []domain.TradeRecord, key func(*domain.TradeRecord) string) []ReportBucket {
	byKey := make(map[string]*ReportBucket)
	var order []string

	for i := range trades {
		k := key(&trades[i])
		if k == "" {
			k = "Unknown"
		}
		b, ok := byKey[k]
		if !ok {
			b = &ReportBucket{Key: k}
			byKey[k] = b
			order = append(order, k)
		}
		b.PnL += trades[i].TotalProfit
		b.TradeCount++
		if trades[i].WinLoss == domain.OutcomeWin {
			b.Wins++
		}
	}

	result := make([]ReportBucket, 0, len(order))
	for _, k := range order {
		b := byKey[k]
		b.WinRatePct = winRate(b.Wins, b.TradeCount)
		result = append(result, *b)
	}
	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PnL > result[j].PnL
	})
	return result
}

// ExitQuality reports target-hit and stop-hit rates over the trades
// where at least one exit flag was recorded.
func (s *Service) ExitQuality(trades []domain.TradeRecord) ExitQuality {
	var q ExitQuality
	for _, trade := range trades {
		if !trade.ProfitTargetHit && !trade.StopLossHit {
			continue
		}
		q.Considered++
		if trade.ProfitTargetHit {
			q.TargetHits++
		}
		if trade.StopLossHit {
			q.StopHits++
		}
	}
	q.TargetRatePct = winRate(q.TargetHits, q.Considered)
	q.StopRatePct = winRate(q.StopHits, q.Considered)
	return q
}

// Tilt flags trades showing discipline warning signs: opened at or past
// the late-hour threshold, sized past the configured multiple of the
// mean position size, or entered without a recorded thesis. The mean is
// computed once over all trades.
func (s *Service) Tilt(trades []domain.TradeRecord) TiltReport {
	report := TiltReport{TotalTrades: len(trades)}
	if len(trades) == 0 {
		return report
	}

	var totalSize float64
	for _, trade := range trades {
		totalSize += trade.PositionSizeUSD
	}
	report.MeanPositionSize = totalSize / float64(len(trades))

	for _, trade := range trades {
		late := trade.HasOpenTime() && trade.OpenTime.UTC().Hour() >= s.cfg.TiltOpenHour
		oversized := report.MeanPositionSize > 0 &&
			trade.PositionSizeUSD > s.cfg.TiltSizeMultiple*report.MeanPositionSize
		noThesis := trade.TradeThesis == ""

		if late {
			report.LateEntries++
		}
		if oversized {
			report.Oversized++
		}
		if noThesis {
			report.NoThesis++
		}
		if late || oversized || noThesis {
			report.Flagged++
		}
	}

	report.FlaggedPct = winRate(report.Flagged, report.TotalTrades)
	return report
}

// RollingWinRate emits the win rate of a sliding window over the trades
// in close-or-open time order. One point per window end, dated at the
// window's last trade; empty until a full window exists.
func (s *Service) RollingWinRate(trades []domain.TradeRecord) []RollingPoint {
	sorted := domain.SortByBucketTime(trades)
	window := s.rollingWindow
	if len(sorted) < window {
		return nil
	}

	points := make([]RollingPoint, 0, len(sorted)-window+1)
	for end := window; end <= len(sorted); end++ {
		wins := 0
		for _, trade := range sorted[end-window : end] {
			if trade.WinLoss == domain.OutcomeWin {
				wins++
			}
		}
		points = append(points, RollingPoint{
			Date:       sorted[end-1].DateKey(),
			WinRatePct: winRate(wins, window),
		})
	}
	return points
}

// Streaks finds the longest runs of consecutive wins and losses in
// close-or-open time order. An undecided trade breaks a run.
func (s *Service) Streaks(trades []domain.TradeRecord) StreakReport {
	sorted := domain.SortByBucketTime(trades)

	var report StreakReport
	var current domain.Outcome
	run := 0

	commit := func() {
		switch current {
		case domain.OutcomeWin:
			if run > report.MaxWinStreak {
				report.MaxWinStreak = run
			}
		case domain.OutcomeLoss:
			if run > report.MaxLossStreak {
				report.MaxLossStreak = run
			}
		}
	}

	for _, trade := range sorted {
		if trade.WinLoss == current {
			run++
			continue
		}
		commit()
		current = trade.WinLoss
		run = 1
	}
	commit()

	return report
}

// Risk computes the global P&L distribution: largest win, largest loss,
// mean and population standard deviation.
func (s *Service) Risk(trades []domain.TradeRecord) RiskMetrics {
	metrics := RiskMetrics{TradeCount: len(trades)}
	if len(trades) == 0 {
		return metrics
	}

	profits := make([]float64, len(trades))
	for i, trade := range trades {
		profits[i] = trade.TotalProfit
		if trade.TotalProfit > metrics.MaxWin {
			metrics.MaxWin = trade.TotalProfit
		}
		if trade.TotalProfit < metrics.MaxLoss {
			metrics.MaxLoss = trade.TotalProfit
		}
	}

	metrics.MeanPnL = stat.Mean(profits, nil)
	metrics.StdDevPnL = stat.PopStdDev(profits, nil)
	return metrics
}

// DurationBuckets groups trades into fixed holding-period bands. The
// band edges come from configuration; the defaults give 0d, 1-3d,
// 4-10d, 11-30d and 30d+.
func (s *Service) DurationBuckets(trades []domain.TradeRecord) []ReportBucket {
	labels := durationLabels(s.cfg.DurationBandsMax)
	buckets := make([]ReportBucket, len(labels))
	for i, label := range labels {
		buckets[i].Key = label
	}

	for _, trade := range trades {
		days := trade.Days()
		idx := len(s.cfg.DurationBandsMax)
		for i, max := range s.cfg.DurationBandsMax {
			if days <= max {
				idx = i
				break
			}
		}

		b := &buckets[idx]
		b.PnL += trade.TotalProfit
		b.TradeCount++
		if trade.WinLoss == domain.OutcomeWin {
			b.Wins++
		}
	}

	for i := range buckets {
		buckets[i].WinRatePct = winRate(buckets[i].Wins, buckets[i].TradeCount)
	}
	return buckets
}

// durationLabels renders band edges as display labels, e.g. [0 3 10 30]
// becomes 0d, 1-3d, 4-10d, 11-30d, 30d+.
func durationLabels(bandsMax []float64) []string {
	labels := make([]string, 0, len(bandsMax)+1)
	prev := 0.0
	for i, max := range bandsMax {
		if i == 0 {
			labels = append(labels, fmt.Sprintf("%.0fd", max))
		} else {
			labels = append(labels, fmt.Sprintf("%.0f-%.0fd", prev+1, max))
		}
		prev = max
	}
	if len(bandsMax) > 0 {
		labels = append(labels, fmt.Sprintf("%.0fd+", bandsMax[len(bandsMax)-1]))
	}
	return labels
}
