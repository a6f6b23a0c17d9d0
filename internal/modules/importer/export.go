package importer

import (
	"strconv"
	"strings"
	"time"

	"tradescope/internal/domain"
)

// exportHeaders is the fixed column set of a journal export. Re-importing
// an export with the same filter reproduces the same trade count and
// aggregate P&L.
var exportHeaders = []string{
	"Open_Time",
	"Close_Time",
	"Holding_Days",
	"Symbol",
	"Position_Name",
	"Total_Profit",
	"Return_Pct",
	"Win_Loss",
	"Instrument_Type",
}

// ExportCSV renders the trade set back to CSV with every field quoted.
func ExportCSV(trades []domain.TradeRecord) string {
	var b strings.Builder
	b.WriteString(strings.Join(exportHeaders, ","))
	b.WriteString("\n")

	for _, trade := range trades {
		fields := []string{
			formatTime(trade.OpenTime),
			formatTime(trade.CloseTime),
			formatFloat(trade.HoldingDays),
			trade.Symbol,
			trade.PositionName,
			formatFloat(trade.TotalProfit),
			formatFloat(trade.ReturnPct),
			string(trade.WinLoss),
			trade.InstrumentType,
		}

		for i, f := range fields {
			if i > 0 {
				b.WriteString(",")
			}
			b.WriteString(`"` + f + `"`)
		}
		b.WriteString("\n")
	}

	return b.String()
}

func formatTime(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}

func formatFloat(f float64) string {
	if f == 0 {
		return ""
	}
	return strconv.FormatFloat(f, 'f', -1, 64)
}
