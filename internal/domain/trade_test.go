package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestParseTimestamp_Layouts(t *testing.T) {
	testCases := []struct {
		name  string
		input string
		want  time.Time
	}{
		{
			name:  "RFC3339 with UTC offset",
			input: "2024-01-02T10:00:00Z",
			want:  time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "ISO without offset is treated as UTC",
			input: "2024-01-02T10:00:00",
			want:  time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "space separated",
			input: "2024-01-02 10:30:00",
			want:  time.Date(2024, 1, 2, 10, 30, 0, 0, time.UTC),
		},
		{
			name:  "date only",
			input: "2024-01-02",
			want:  time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC),
		},
		{
			name:  "US style",
			input: "01/02/2024 10:00",
			want:  time.Date(2024, 1, 2, 10, 0, 0, 0, time.UTC),
		},
		{
			name:  "empty is zero",
			input: "",
			want:  time.Time{},
		},
		{
			name:  "garbage is zero",
			input: "not-a-date",
			want:  time.Time{},
		},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.True(t, ParseTimestamp(tc.input).Equal(tc.want))
		})
	}
}

func TestBucketTime_PrefersCloseTime(t *testing.T) {
	open := time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)
	close := time.Date(2024, 3, 5, 16, 0, 0, 0, time.UTC)

	trade := TradeRecord{OpenTime: open, CloseTime: close}
	assert.Equal(t, close, trade.BucketTime())
	assert.Equal(t, "2024-03-05", trade.DateKey())
	assert.Equal(t, "2024-03", trade.MonthKey())

	openOnly := TradeRecord{OpenTime: open}
	assert.Equal(t, open, openOnly.BucketTime())
	assert.Equal(t, "2024-03-01", openOnly.DateKey())
}

func TestDays_DerivesFromHoldingHours(t *testing.T) {
	assert.Equal(t, 2.5, (&TradeRecord{HoldingDays: 2.5}).Days())
	assert.Equal(t, 2.0, (&TradeRecord{HoldingHours: 48}).Days())
	assert.Equal(t, 0.0, (&TradeRecord{}).Days())
	// Holding_Days wins when both are present
	assert.Equal(t, 1.0, (&TradeRecord{HoldingDays: 1, HoldingHours: 96}).Days())
}

func TestIsOptionTrade(t *testing.T) {
	testCases := []struct {
		name  string
		trade TradeRecord
		want  bool
	}{
		{"plain stock", TradeRecord{Symbol: "AAPL", InstrumentType: "Stock"}, false},
		{"instrument type option", TradeRecord{Symbol: "AAPL", InstrumentType: "Option"}, true},
		{"instrument type call", TradeRecord{Symbol: "AAPL", InstrumentType: "CALL spread"}, true},
		{"position name put", TradeRecord{Symbol: "SPY", PositionName: "SPY Put 450"}, true},
		{"description mentions call", TradeRecord{Symbol: "TSLA", Description: "weekly call"}, true},
		{"OCC contract symbol", TradeRecord{Symbol: "AAPL240315C150"}, true},
		{"expiration marker", TradeRecord{Symbol: "NVDA", ContractName: "NVDA exp 03/15"}, true},
		{"empty record", TradeRecord{}, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.trade.IsOptionTrade())
		})
	}
}

func TestParseOutcome_ExactMatchOnly(t *testing.T) {
	assert.Equal(t, OutcomeWin, ParseOutcome("Win"))
	assert.Equal(t, OutcomeLoss, ParseOutcome("Loss"))
	assert.Equal(t, OutcomeUnknown, ParseOutcome("win"))
	assert.Equal(t, OutcomeUnknown, ParseOutcome("BREAKEVEN"))
	assert.Equal(t, OutcomeUnknown, ParseOutcome(""))
}

func TestSortByBucketTime_DoesNotMutateInput(t *testing.T) {
	a := TradeRecord{Symbol: "A", OpenTime: time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)}
	b := TradeRecord{Symbol: "B", OpenTime: time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)}
	trades := []TradeRecord{a, b}

	sorted := SortByBucketTime(trades)

	assert.Equal(t, "B", sorted[0].Symbol)
	assert.Equal(t, "A", sorted[1].Symbol)
	// original order untouched
	assert.Equal(t, "A", trades[0].Symbol)
}
