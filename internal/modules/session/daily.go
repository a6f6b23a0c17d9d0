package session

import (
	"sort"

	"tradescope/internal/domain"
)

// DailyAggregate is one calendar day of trading activity.
// Trades keep their CSV insertion order, not time order.
type DailyAggregate struct {
	Date       string               `json:"date"`
	PnL        float64              `json:"pnl"`
	TradeCount int                  `json:"trade_count"`
	Wins       int                  `json:"wins"`
	Losses     int                  `json:"losses"`
	Trades     []domain.TradeRecord `json:"-"`
}

// WinRate returns the percentage of wins over all trades of the day,
// 0 when the day is empty.
func (d *DailyAggregate) WinRate() float64 {
	if d.TradeCount == 0 {
		return 0
	}
	return float64(d.Wins) / float64(d.TradeCount) * 100
}

// BuildDailyIndex groups trades by the UTC calendar day of their
// close-or-open time. Records without a usable date are skipped.
// Aggregation is a single associative pass: order of input does not
// change any aggregate, only the order of the per-day trade lists.
func BuildDailyIndex(trades []domain.TradeRecord) map[string]*DailyAggregate {
	daily := make(map[string]*DailyAggregate)

	for _, trade := range trades {
		if trade.BucketTime().IsZero() {
			continue
		}
		key := trade.DateKey()

		day, ok := daily[key]
		if !ok {
			day = &DailyAggregate{Date: key}
			daily[key] = day
		}

		day.PnL += trade.TotalProfit
		day.TradeCount++
		day.Trades = append(day.Trades, trade)

		switch trade.WinLoss {
		case domain.OutcomeWin:
			day.Wins++
		case domain.OutcomeLoss:
			day.Losses++
		}
	}

	return daily
}

// SortedDates returns the index's date keys, most recent first.
func SortedDates(daily map[string]*DailyAggregate) []string {
	dates := make([]string, 0, len(daily))
	for date := range daily {
		dates = append(dates, date)
	}
	sort.Sort(sort.Reverse(sort.StringSlice(dates)))
	return dates
}
