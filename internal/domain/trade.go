// Package domain contains the core trade-journal types shared by all modules.
// The domain layer is pure: no database, HTTP, or logging dependencies.
package domain

import (
	"regexp"
	"strings"
	"time"
)

// Outcome is the recorded result of a trade.
type Outcome string

const (
	OutcomeWin     Outcome = "Win"
	OutcomeLoss    Outcome = "Loss"
	OutcomeUnknown Outcome = ""
)

// ParseOutcome maps a raw Win_Loss column value to an Outcome.
// Anything other than the exact strings "Win" and "Loss" is Unknown.
func ParseOutcome(s string) Outcome {
	switch s {
	case "Win":
		return OutcomeWin
	case "Loss":
		return OutcomeLoss
	default:
		return OutcomeUnknown
	}
}

// TradeRecord is one imported position. Records are created once at import
// time and are immutable afterwards; a new import replaces the whole set.
//
// The typed fields are the ones aggregation depends on. Columns outside the
// known schema are preserved verbatim in Extra so extra CSV columns survive
// a round trip without weakening type safety on the numeric fields.
type TradeRecord struct {
	Symbol          string
	OpenTime        time.Time // zero when the column was absent or unparseable
	CloseTime       time.Time
	TotalProfit     float64
	PositionSizeUSD float64
	ReturnPct       float64
	HoldingDays     float64
	HoldingHours    float64
	WinLoss         Outcome
	InstrumentType  string
	EntryTrigger    string
	MarketRegime    string
	TradeThesis     string
	ProfitTargetHit bool
	StopLossHit     bool
	PositionName    string
	ContractName    string
	Description     string

	Extra map[string]string // passthrough columns, display only
}

// HasOpenTime reports whether the open timestamp parsed successfully.
func (t *TradeRecord) HasOpenTime() bool { return !t.OpenTime.IsZero() }

// HasCloseTime reports whether the close timestamp parsed successfully.
func (t *TradeRecord) HasCloseTime() bool { return !t.CloseTime.IsZero() }

// BucketTime returns the timestamp used for calendar bucketing:
// close time when present, open time otherwise. The zero time means
// the record has no usable date (never true for retained records).
func (t *TradeRecord) BucketTime() time.Time {
	if t.HasCloseTime() {
		return t.CloseTime
	}
	return t.OpenTime
}

// DateKey returns the ISO calendar date (YYYY-MM-DD, UTC) of BucketTime.
func (t *TradeRecord) DateKey() string {
	return t.BucketTime().UTC().Format("2006-01-02")
}

// MonthKey returns the YYYY-MM month (UTC) of BucketTime.
func (t *TradeRecord) MonthKey() string {
	return t.BucketTime().UTC().Format("2006-01")
}

// Days returns the holding period in days, deriving from Holding_Hours
// when the Holding_Days column was absent.
func (t *TradeRecord) Days() float64 {
	if t.HoldingDays != 0 {
		return t.HoldingDays
	}
	if t.HoldingHours != 0 {
		return t.HoldingHours / 24
	}
	return 0
}

// timestampLayouts are the accepted trade timestamp formats, tried in order.
// All layouts without an explicit offset are interpreted as UTC: the whole
// pipeline buckets days, weeks, months and hours in UTC so that a dataset
// produces identical reports regardless of the host timezone.
var timestampLayouts = []string{
	time.RFC3339,
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02 15:04",
	"2006-01-02",
	"01/02/2006 15:04:05",
	"01/02/2006 15:04",
	"01/02/2006",
}

// ParseTimestamp parses a trade timestamp in the journal's fixed UTC frame.
// Returns the zero time when the value is empty or matches no known layout.
func ParseTimestamp(s string) time.Time {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}
	}
	for _, layout := range timestampLayouts {
		if ts, err := time.ParseInLocation(layout, s, time.UTC); err == nil {
			return ts.UTC()
		}
	}
	return time.Time{}
}

// optionSymbolPattern matches OCC-style contract symbols, e.g. AAPL240315C150.
var optionSymbolPattern = regexp.MustCompile(`[A-Z]+\d{6}[CP]\d+`)

// IsOptionTrade classifies a record as an options trade. A record matches
// when any descriptive field mentions calls, puts or options, when the
// symbol looks like an option contract, or when the position or contract
// name carries an expiration marker.
func (t *TradeRecord) IsOptionTrade() bool {
	instrumentType := strings.ToLower(t.InstrumentType)
	positionName := strings.ToLower(t.PositionName)
	contractName := strings.ToLower(t.ContractName)
	description := strings.ToLower(t.Description)

	return strings.Contains(instrumentType, "option") ||
		strings.Contains(instrumentType, "call") ||
		strings.Contains(instrumentType, "put") ||
		strings.Contains(positionName, "call") ||
		strings.Contains(positionName, "put") ||
		strings.Contains(contractName, "call") ||
		strings.Contains(contractName, "put") ||
		strings.Contains(description, "call") ||
		strings.Contains(description, "put") ||
		optionSymbolPattern.MatchString(t.Symbol) ||
		strings.Contains(positionName, "exp") ||
		strings.Contains(contractName, "exp")
}

// SortByBucketTime returns a copy of trades ordered ascending by
// close-or-open time. The input slice is never mutated: reducers hand
// out fresh structures on every call.
func SortByBucketTime(trades []TradeRecord) []TradeRecord {
	sorted := make([]TradeRecord, len(trades))
	copy(sorted, trades)
	sortStable(sorted, func(a, b *TradeRecord) bool {
		return a.BucketTime().Before(b.BucketTime())
	})
	return sorted
}

// SortByOpenTime returns a copy of trades ordered ascending by open time.
func SortByOpenTime(trades []TradeRecord) []TradeRecord {
	sorted := make([]TradeRecord, len(trades))
	copy(sorted, trades)
	sortStable(sorted, func(a, b *TradeRecord) bool {
		return a.OpenTime.Before(b.OpenTime)
	})
	return sorted
}
