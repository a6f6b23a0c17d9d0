// Package symbols computes per-symbol performance aggregates and the
// sortable per-symbol trade detail.
package symbols

import (
	"fmt"
	"math"
	"sort"
	"time"

	"github.com/rs/zerolog"

	"tradescope/internal/domain"
)

// SymbolStats is one symbol's aggregate row.
type SymbolStats struct {
	Symbol          string   `json:"symbol"`
	PnL             float64  `json:"pnl"`
	TradeCount      int      `json:"trade_count"`
	Wins            int      `json:"wins"`
	Losses          int      `json:"losses"`
	WinRatePct      float64  `json:"win_rate_pct"`
	AvgWin          float64  `json:"avg_win"`
	AvgLoss         float64  `json:"avg_loss"` // absolute value
	ProfitFactor    float64  `json:"profit_factor"`
	TotalVolume     float64  `json:"total_volume"`
	InstrumentTypes []string `json:"instrument_types"`
	FirstOpen       string   `json:"first_open,omitempty"`
	LastOpen        string   `json:"last_open,omitempty"`
}

// SortKey selects the ordering of a symbol's trade detail.
type SortKey string

const (
	SortCloseDate SortKey = "closeDate"
	SortOpenDate  SortKey = "openDate"
	SortPnL       SortKey = "pnl"
	SortReturnPct SortKey = "returnPct"
	SortHoldDays  SortKey = "holdDays"
	SortSize      SortKey = "size"
)

// ParseSortKey validates a sort key from a request.
func ParseSortKey(s string) (SortKey, error) {
	switch SortKey(s) {
	case SortCloseDate, SortOpenDate, SortPnL, SortReturnPct, SortHoldDays, SortSize:
		return SortKey(s), nil
	case "":
		return SortCloseDate, nil
	default:
		return "", fmt.Errorf("invalid sort key %q", s)
	}
}

// Service computes symbol reports.
type Service struct {
	log zerolog.Logger
}

// NewService creates a symbols service.
func NewService(log zerolog.Logger) *Service {
	return &Service{log: log.With().Str("service", "symbols").Logger()}
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// All aggregates every symbol, ordered by descending pnl.
func (s *Service) All(trades []domain.TradeRecord) []SymbolStats {
	type acc struct {
		stats     SymbolStats
		gains     float64
		giveBacks float64
		types     map[string]bool
		firstOpen time.Time
		lastOpen  time.Time
	}

	bySymbol := make(map[string]*acc)
	var order []string

	for _, trade := range trades {
		a, ok := bySymbol[trade.Symbol]
		if !ok {
			a = &acc{stats: SymbolStats{Symbol: trade.Symbol}, types: make(map[string]bool)}
			bySymbol[trade.Symbol] = a
			order = append(order, trade.Symbol)
		}

		a.stats.PnL += trade.TotalProfit
		a.stats.TradeCount++
		a.stats.TotalVolume += trade.PositionSizeUSD
		switch trade.WinLoss {
		case domain.OutcomeWin:
			a.stats.Wins++
		case domain.OutcomeLoss:
			a.stats.Losses++
		}
		if trade.TotalProfit > 0 {
			a.gains += trade.TotalProfit
		} else if trade.TotalProfit < 0 {
			a.giveBacks += -trade.TotalProfit
		}
		if trade.InstrumentType != "" {
			a.types[trade.InstrumentType] = true
		}
		if trade.HasOpenTime() {
			if a.firstOpen.IsZero() || trade.OpenTime.Before(a.firstOpen) {
				a.firstOpen = trade.OpenTime
			}
			if trade.OpenTime.After(a.lastOpen) {
				a.lastOpen = trade.OpenTime
			}
		}
	}

	result := make([]SymbolStats, 0, len(order))
	for _, symbol := range order {
		a := bySymbol[symbol]
		if decided := a.stats.Wins + a.stats.Losses; decided > 0 {
			a.stats.WinRatePct = round1(float64(a.stats.Wins) / float64(decided) * 100)
		}
		if a.stats.Wins > 0 {
			a.stats.AvgWin = a.gains / float64(a.stats.Wins)
		}
		if a.stats.Losses > 0 {
			a.stats.AvgLoss = a.giveBacks / float64(a.stats.Losses)
		}
		if a.stats.AvgLoss > 0 {
			a.stats.ProfitFactor = a.stats.AvgWin / a.stats.AvgLoss
		}
		for it := range a.types {
			a.stats.InstrumentTypes = append(a.stats.InstrumentTypes, it)
		}
		sort.Strings(a.stats.InstrumentTypes)
		if !a.firstOpen.IsZero() {
			a.stats.FirstOpen = a.firstOpen.UTC().Format("2006-01-02")
			a.stats.LastOpen = a.lastOpen.UTC().Format("2006-01-02")
		}
		result = append(result, a.stats)
	}

	sort.SliceStable(result, func(i, j int) bool {
		return result[i].PnL > result[j].PnL
	})
	return result
}

// Top returns the best n symbols by pnl.
func (s *Service) Top(trades []domain.TradeRecord, n int) []SymbolStats {
	all := s.All(trades)
	if n > 0 && len(all) > n {
		all = all[:n]
	}
	return all
}

// Detail returns one symbol's trades in the requested order, plus the
// symbol's aggregate row. The bool reports whether the symbol exists in
// the current set.
func (s *Service) Detail(trades []domain.TradeRecord, symbol string, key SortKey, descending bool) (SymbolStats, []domain.TradeRecord, bool) {
	var own []domain.TradeRecord
	for _, trade := range trades {
		if trade.Symbol == symbol {
			own = append(own, trade)
		}
	}
	if len(own) == 0 {
		return SymbolStats{}, nil, false
	}

	stats := s.All(own)[0]

	less := detailLess(key)
	sort.SliceStable(own, func(i, j int) bool {
		if descending {
			return less(&own[j], &own[i])
		}
		return less(&own[i], &own[j])
	})

	return stats, own, true
}

func detailLess(key SortKey) func(a, b *domain.TradeRecord) bool {
	switch key {
	case SortOpenDate:
		return func(a, b *domain.TradeRecord) bool { return a.OpenTime.Before(b.OpenTime) }
	case SortPnL:
		return func(a, b *domain.TradeRecord) bool { return a.TotalProfit < b.TotalProfit }
	case SortReturnPct:
		return func(a, b *domain.TradeRecord) bool { return a.ReturnPct < b.ReturnPct }
	case SortHoldDays:
		return func(a, b *domain.TradeRecord) bool { return a.Days() < b.Days() }
	case SortSize:
		return func(a, b *domain.TradeRecord) bool { return a.PositionSizeUSD < b.PositionSizeUSD }
	default:
		return func(a, b *domain.TradeRecord) bool { return a.CloseTime.Before(b.CloseTime) }
	}
}
