// Package timeline groups trades into per-symbol monthly timelines and
// enriches a symbol's trades with market context fetched from the
// external indicator API.
package timeline

import (
	"context"
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/markcheno/go-talib"
	"github.com/rs/zerolog"

	"tradescope/internal/clients/marketcontext"
	"tradescope/internal/domain"
)

// Timeline is one symbol-month of trading activity, keyed SYMBOL-YYYY-MM
// by the month of each trade's open time.
type Timeline struct {
	Key        string  `json:"key"`
	Symbol     string  `json:"symbol"`
	Month      string  `json:"month"`
	PnL        float64 `json:"pnl"`
	TradeCount int     `json:"trade_count"`
	Wins       int     `json:"wins"`
	WinRatePct float64 `json:"win_rate_pct"`
	FirstTrade string  `json:"first_trade"`
	LastTrade  string  `json:"last_trade"`
}

// ContextRow is one trade joined against the market context series by
// the calendar date of its open time. Indicator fields are nil for days
// the remote series does not cover and local backfill cannot reach.
type ContextRow struct {
	Date       string   `json:"date"`
	Symbol     string   `json:"symbol"`
	PnL        float64  `json:"pnl"`
	WinLoss    string   `json:"win_loss"`
	ClosePrice *float64 `json:"close_price"`
	EMA10      *float64 `json:"ema_10"`
	EMA20      *float64 `json:"ema_20"`
	SMA50      *float64 `json:"sma_50"`
	ExtEMA10   *float64 `json:"ext_ema_10_pct"`
	ExtEMA20   *float64 `json:"ext_ema_20_pct"`
	ExtSMA50   *float64 `json:"ext_sma_50_pct"`
}

// ContextFetcher is the slice of the market-context client the timeline
// service needs.
type ContextFetcher interface {
	GetIndicators(ctx context.Context, symbol, start, end string) ([]marketcontext.IndicatorPoint, error)
	GetDailyPrices(ctx context.Context, symbol, start, end string) ([]marketcontext.PricePoint, error)
}

// Service computes timeline reports.
type Service struct {
	fetcher ContextFetcher
	log     zerolog.Logger
}

// NewService creates a timeline service. fetcher may be nil when no
// context API is configured; Context then returns an error.
func NewService(fetcher ContextFetcher, log zerolog.Logger) *Service {
	return &Service{
		fetcher: fetcher,
		log:     log.With().Str("service", "timeline").Logger(),
	}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// Timelines groups trades into symbol-months, most recent month first.
// Trades without an open time are skipped.
func (s *Service) Timelines(trades []domain.TradeRecord) []Timeline {
	type acc struct {
		timeline Timeline
		first    time.Time
		last     time.Time
	}

	byKey := make(map[string]*acc)
	for _, trade := range trades {
		if !trade.HasOpenTime() {
			continue
		}
		month := trade.OpenTime.UTC().Format("2006-01")
		key := trade.Symbol + "-" + month

		a, ok := byKey[key]
		if !ok {
			a = &acc{timeline: Timeline{Key: key, Symbol: trade.Symbol, Month: month}}
			byKey[key] = a
		}

		a.timeline.PnL += trade.TotalProfit
		a.timeline.TradeCount++
		if trade.WinLoss == domain.OutcomeWin {
			a.timeline.Wins++
		}
		if a.first.IsZero() || trade.OpenTime.Before(a.first) {
			a.first = trade.OpenTime
		}
		if trade.OpenTime.After(a.last) {
			a.last = trade.OpenTime
		}
	}

	result := make([]Timeline, 0, len(byKey))
	for _, a := range byKey {
		a.timeline.WinRatePct = round1(float64(a.timeline.Wins) / float64(a.timeline.TradeCount) * 100)
		a.timeline.FirstTrade = a.first.UTC().Format("2006-01-02")
		a.timeline.LastTrade = a.last.UTC().Format("2006-01-02")
		result = append(result, a.timeline)
	}

	sort.Slice(result, func(i, j int) bool {
		if result[i].Month != result[j].Month {
			return result[i].Month > result[j].Month
		}
		return result[i].Symbol < result[j].Symbol
	})
	return result
}

// Context joins a symbol's trades against the remote indicator and
// price series by calendar date of open time, newest trade first.
// Indicator gaps are backfilled locally from the fetched closes; days
// without any data keep nil indicator fields.
func (s *Service) Context(ctx context.Context, trades []domain.TradeRecord, symbol string) ([]ContextRow, error) {
	if s.fetcher == nil {
		return nil, fmt.Errorf("market context API not configured")
	}

	var own []domain.TradeRecord
	for _, trade := range trades {
		if trade.Symbol == symbol && trade.HasOpenTime() {
			own = append(own, trade)
		}
	}
	if len(own) == 0 {
		return nil, fmt.Errorf("no trades with open times for symbol %s", symbol)
	}

	own = domain.SortByOpenTime(own)
	start := own[0].OpenTime.UTC().Format("2006-01-02")
	end := own[len(own)-1].OpenTime.UTC().Format("2006-01-02")

	indicators, err := s.fetcher.GetIndicators(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch indicators: %w", err)
	}
	prices, err := s.fetcher.GetDailyPrices(ctx, symbol, start, end)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch daily prices: %w", err)
	}

	series := buildSeries(indicators, prices)

	rows := make([]ContextRow, 0, len(own))
	for i := len(own) - 1; i >= 0; i-- {
		trade := own[i]
		date := trade.OpenTime.UTC().Format("2006-01-02")

		row := ContextRow{
			Date:    date,
			Symbol:  symbol,
			PnL:     trade.TotalProfit,
			WinLoss: string(trade.WinLoss),
		}
		if day, ok := series[date]; ok {
			row.ClosePrice = day.close
			row.EMA10 = day.ema10
			row.EMA20 = day.ema20
			row.SMA50 = day.sma50
			row.ExtEMA10 = extension(day.close, day.ema10)
			row.ExtEMA20 = extension(day.close, day.ema20)
			row.ExtSMA50 = extension(day.close, day.sma50)
		}
		rows = append(rows, row)
	}

	return rows, nil
}

// extension is the percentage distance of the close above its indicator.
func extension(close, indicator *float64) *float64 {
	if close == nil || indicator == nil || *indicator == 0 {
		return nil
	}
	ext := (*close - *indicator) / *indicator * 100
	return &ext
}

type contextDay struct {
	close *float64
	ema10 *float64
	ema20 *float64
	sma50 *float64
}

// buildSeries merges the remote indicator series with the price series,
// computing EMA(10), EMA(20) and SMA(50) locally from the closes for
// any day the remote series left blank.
func buildSeries(indicators []marketcontext.IndicatorPoint, prices []marketcontext.PricePoint) map[string]*contextDay {
	series := make(map[string]*contextDay)

	sort.Slice(prices, func(i, j int) bool { return prices[i].Date < prices[j].Date })

	closes := make([]float64, len(prices))
	for i, p := range prices {
		closes[i] = p.Close
		c := p.Close
		series[p.Date] = &contextDay{close: &c}
	}

	var ema10, ema20, sma50 []float64
	if len(closes) >= 10 {
		ema10 = talib.Ema(closes, 10)
	}
	if len(closes) >= 20 {
		ema20 = talib.Ema(closes, 20)
	}
	if len(closes) >= 50 {
		sma50 = talib.Sma(closes, 50)
	}

	for i, p := range prices {
		day := series[p.Date]
		day.ema10 = backfillAt(ema10, i, 10)
		day.ema20 = backfillAt(ema20, i, 20)
		day.sma50 = backfillAt(sma50, i, 50)
	}

	// Remote values win over the local backfill.
	for _, point := range indicators {
		day, ok := series[point.Date]
		if !ok {
			day = &contextDay{}
			series[point.Date] = day
		}
		if point.EMA10 != nil {
			day.ema10 = point.EMA10
		}
		if point.EMA20 != nil {
			day.ema20 = point.EMA20
		}
		if point.SMA50 != nil {
			day.sma50 = point.SMA50
		}
	}

	return series
}

// backfillAt reads a talib output slice, which pads the warm-up period
// with zeros before index period-1.
func backfillAt(values []float64, i, period int) *float64 {
	if values == nil || i < period-1 || i >= len(values) {
		return nil
	}
	v := values[i]
	return &v
}
