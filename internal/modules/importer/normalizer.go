package importer

import (
	"fmt"
	"strconv"
	"strings"

	"tradescope/internal/domain"
	"tradescope/internal/modules/session"
)

// Filter selects which instrument class of trades an import keeps.
type Filter string

const (
	FilterAll     Filter = "all"
	FilterOptions Filter = "options"
	FilterStocks  Filter = "stocks"
)

// ParseFilter validates a filter string from config or a request.
func ParseFilter(s string) (Filter, error) {
	switch Filter(s) {
	case FilterAll, FilterOptions, FilterStocks:
		return Filter(s), nil
	case "":
		return FilterAll, nil
	default:
		return "", fmt.Errorf("invalid import filter %q (must be all, options or stocks)", s)
	}
}

// numericHeaders are the columns coerced to float64, defaulting to 0.0
// when absent or unparseable.
var numericHeaders = map[string]bool{
	"Total_Profit":      true,
	"Position_Size_USD": true,
	"Return_Pct":        true,
	"Holding_Hours":     true,
	"Holding_Days":      true,
}

// Normalize maps the parsed rows into trade records.
//
// A row is retained only when it has a symbol and at least one parseable
// open or close timestamp; rows failing that are counted as invalid.
// After the retention test the instrument filter applies: filtered-out
// rows are counted but not kept. The accounting satisfies
// retained + rejected_invalid + rejected_filtered == data rows.
func Normalize(doc *Document, filter Filter) ([]domain.TradeRecord, session.ImportStats) {
	stats := session.ImportStats{
		Candidates:      doc.DataRowCount(),
		RejectedInvalid: doc.SkippedShort,
	}

	var trades []domain.TradeRecord
	for _, row := range doc.Rows {
		trade := buildRecord(doc.Headers, row)

		if trade.Symbol == "" || (!trade.HasOpenTime() && !trade.HasCloseTime()) {
			stats.RejectedInvalid++
			continue
		}

		if !filter.includes(&trade) {
			stats.RejectedFiltered++
			continue
		}

		trades = append(trades, trade)
	}

	stats.Retained = len(trades)
	return trades, stats
}

func (f Filter) includes(trade *domain.TradeRecord) bool {
	switch f {
	case FilterOptions:
		return trade.IsOptionTrade()
	case FilterStocks:
		return !trade.IsOptionTrade()
	default:
		return true
	}
}

// buildRecord maps one header/value row into a typed record. Unknown
// headers land in Extra so extra columns survive export unchanged.
func buildRecord(headers []string, row []string) domain.TradeRecord {
	var trade domain.TradeRecord

	for i, header := range headers {
		var value string
		if i < len(row) {
			value = row[i]
		}

		switch header {
		case "Symbol":
			trade.Symbol = value
		case "Open_Time":
			trade.OpenTime = domain.ParseTimestamp(value)
		case "Close_Time":
			trade.CloseTime = domain.ParseTimestamp(value)
		case "Total_Profit":
			trade.TotalProfit = parseFloat(value)
		case "Position_Size_USD":
			trade.PositionSizeUSD = parseFloat(value)
		case "Return_Pct":
			trade.ReturnPct = parseFloat(value)
		case "Holding_Days":
			trade.HoldingDays = parseFloat(value)
		case "Holding_Hours":
			trade.HoldingHours = parseFloat(value)
		case "Win_Loss":
			trade.WinLoss = domain.ParseOutcome(value)
		case "Instrument_Type":
			trade.InstrumentType = value
		case "Entry_Trigger":
			trade.EntryTrigger = value
		case "Market_Regime":
			trade.MarketRegime = value
		case "Trade_Thesis":
			trade.TradeThesis = value
		case "Profit_Target_Hit":
			trade.ProfitTargetHit = parseFlag(value)
		case "Stop_Loss_Hit":
			trade.StopLossHit = parseFlag(value)
		case "Position_Name":
			trade.PositionName = value
		case "Contract_Name":
			trade.ContractName = value
		case "Description":
			trade.Description = value
		default:
			if value != "" {
				if trade.Extra == nil {
					trade.Extra = make(map[string]string)
				}
				trade.Extra[header] = value
			}
		}
	}

	return trade
}

// parseFloat coerces numeric columns, falling back to 0.0. The fallback
// is deliberate (FieldCoercionFallback): a bad number never rejects a row.
func parseFloat(value string) float64 {
	if value == "" {
		return 0
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return f
}

// parseFlag reads the exit-quality boolean columns. Empty and explicit
// negatives are false; any other non-empty marker counts as set.
func parseFlag(value string) bool {
	switch strings.ToLower(strings.TrimSpace(value)) {
	case "", "false", "0", "no":
		return false
	default:
		return true
	}
}
