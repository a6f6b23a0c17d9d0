// Package summary computes the dashboard headline figures: the overview
// metrics card, calendar-period aggregates and the monthly breakdown.
package summary

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"tradescope/internal/domain"
)

// Overview is the headline metrics card. WinRatePct counts only decided
// trades; undecided ones contribute to the totals but not to the rate.
type Overview struct {
	TotalPnL        float64 `json:"total_pnl"`
	TotalTrades     int     `json:"total_trades"`
	Winners         int     `json:"winners"`
	Losers          int     `json:"losers"`
	WinRatePct      float64 `json:"win_rate_pct"`
	AvgWin          float64 `json:"avg_win"`
	AvgLoss         float64 `json:"avg_loss"` // absolute value
	ProfitFactor    float64 `json:"profit_factor"`
	FirstTradeDate  string  `json:"first_trade_date,omitempty"`
	LatestTradeDate string  `json:"latest_trade_date,omitempty"`
}

// PeriodBucket is one calendar period of a period report.
type PeriodBucket struct {
	Period     string  `json:"period"`
	PnL        float64 `json:"pnl"`
	TradeCount int     `json:"trade_count"`
	Wins       int     `json:"wins"`
	Losses     int     `json:"losses"`
	Gains      float64 `json:"gains"`     // sum of positive P&L
	GiveBacks  float64 `json:"givebacks"` // sum of negative P&L, absolute
	WinRatePct float64 `json:"win_rate_pct"`
	AvgWin     float64 `json:"avg_win"`
	AvgLoss    float64 `json:"avg_loss"`
}

// Period selects the calendar granularity of the period report.
type Period string

const (
	PeriodDay   Period = "day"
	PeriodWeek  Period = "week"
	PeriodMonth Period = "month"
	PeriodYear  Period = "year"
)

// ParsePeriod validates a period string from a request.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case PeriodDay, PeriodWeek, PeriodMonth, PeriodYear:
		return Period(s), nil
	case "":
		return PeriodDay, nil
	default:
		return "", fmt.Errorf("invalid period %q (must be day, week, month or year)", s)
	}
}

// Service computes summary reports.
type Service struct {
	log zerolog.Logger
}

// NewService creates a summary service.
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("service", "summary").Logger()}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Overview computes the headline metrics over the whole trade set.
func (s *Service) Overview(trades []domain.TradeRecord) Overview {
	var o Overview
	o.TotalTrades = len(trades)

	var gains, losses float64
	var first, latest time.Time
	for _, trade := range trades {
		o.TotalPnL += trade.TotalProfit
		switch trade.WinLoss {
		case domain.OutcomeWin:
			o.Winners++
		case domain.OutcomeLoss:
			o.Losers++
		}
		if trade.TotalProfit > 0 {
			gains += trade.TotalProfit
		} else if trade.TotalProfit < 0 {
			losses += -trade.TotalProfit
		}

		ts := trade.BucketTime()
		if ts.IsZero() {
			continue
		}
		if first.IsZero() || ts.Before(first) {
			first = ts
		}
		if ts.After(latest) {
			latest = ts
		}
	}

	if decided := o.Winners + o.Losers; decided > 0 {
		o.WinRatePct = round1(float64(o.Winners) / float64(decided) * 100)
	}
	if o.Winners > 0 {
		o.AvgWin = gains / float64(o.Winners)
	}
	if o.Losers > 0 {
		o.AvgLoss = losses / float64(o.Losers)
	}
	if o.AvgLoss > 0 {
		o.ProfitFactor = o.AvgWin / o.AvgLoss
	}
	if !first.IsZero() {
		o.FirstTradeDate = first.UTC().Format("2006-01-02")
		o.LatestTradeDate = latest.UTC().Format("2006-01-02")
	}

	return o
}

// Periods aggregates trades by calendar period in the fixed UTC frame.
// Periods come out in descending key order (most recent first). Trades
// without a usable date are skipped.
func (s *Service) Periods(trades []domain.TradeRecord, period Period) []PeriodBucket {
	byKey := make(map[string]*PeriodBucket)

	for _, trade := range trades {
		ts := trade.BucketTime()
		if ts.IsZero() {
			continue
		}
		key := periodKey(ts, period)

		b, ok := byKey[key]
		if !ok {
			b = &PeriodBucket{Period: key}
			byKey[key] = b
		}

		b.PnL += trade.TotalProfit
		b.TradeCount++
		switch trade.WinLoss {
		case domain.OutcomeWin:
			b.Wins++
		case domain.OutcomeLoss:
			b.Losses++
		}
		if trade.TotalProfit > 0 {
			b.Gains += trade.TotalProfit
		} else if trade.TotalProfit < 0 {
			b.GiveBacks += -trade.TotalProfit
		}
	}

	result := make([]PeriodBucket, 0, len(byKey))
	for _, b := range byKey {
		if b.TradeCount > 0 {
			b.WinRatePct = round1(float64(b.Wins) / float64(b.TradeCount) * 100)
		}
		if b.Wins > 0 {
			b.AvgWin = b.Gains / float64(b.Wins)
		}
		if b.Losses > 0 {
			b.AvgLoss = b.GiveBacks / float64(b.Losses)
		}
		result = append(result, *b)
	}

	sort.Slice(result, func(i, j int) bool {
		return result[i].Period > result[j].Period
	})
	return result
}

// periodKey buckets a timestamp into its period label. Weeks start on
// Sunday and are keyed by the week's first day.
func periodKey(ts time.Time, period Period) string {
	ts = ts.UTC()
	switch period {
	case PeriodWeek:
		return ts.AddDate(0, 0, -int(ts.Weekday())).Format("2006-01-02")
	case PeriodMonth:
		return ts.Format("2006-01")
	case PeriodYear:
		return ts.Format("2006")
	default:
		return ts.Format("2006-01-02")
	}
}

// Monthly is the monthly breakdown: keys descending, truncated to the
// most recent limit months (0 means no truncation).
func (s *Service) Monthly(trades []domain.TradeRecord, limit int) []PeriodBucket {
	months := s.Periods(trades, PeriodMonth)
	if limit > 0 && len(months) > limit {
		months = months[:limit]
	}
	return months
}
