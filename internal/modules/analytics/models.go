package analytics

// ReportBucket is one row of a grouped report. Every reducer produces
// the same shape: pnl, trade count, wins and a display win rate.
type ReportBucket struct {
	Key        string  `json:"key"`
	PnL        float64 `json:"pnl"`
	TradeCount int     `json:"trade_count"`
	Wins       int     `json:"wins"`
	WinRatePct float64 `json:"win_rate_pct"`
}

// Cluster is one run of trades opened in quick succession.
type Cluster struct {
	Start      string  `json:"start"`
	End        string  `json:"end"`
	TradeCount int     `json:"trade_count"`
	PnL        float64 `json:"pnl"`
	Wins       int     `json:"wins"`
	WinRatePct float64 `json:"win_rate_pct"`
}

// QuartileBucket is one position-size quartile. The label carries the
// bucket's size range for display.
type QuartileBucket struct {
	Label      string  `json:"label"`
	MinSize    float64 `json:"min_size"`
	MaxSize    float64 `json:"max_size"`
	PnL        float64 `json:"pnl"`
	TradeCount int     `json:"trade_count"`
	Wins       int     `json:"wins"`
	WinRatePct float64 `json:"win_rate_pct"`
}

// ExitQuality summarizes how trades ended, over the trades where at
// least one exit flag was recorded. The rates are independent: a trade
// hitting both its target and its stop counts toward both.
type ExitQuality struct {
	Considered    int     `json:"considered"`
	TargetHits    int     `json:"target_hits"`
	StopHits      int     `json:"stop_hits"`
	TargetRatePct float64 `json:"target_rate_pct"`
	StopRatePct   float64 `json:"stop_rate_pct"`
}

// TiltReport counts trades matching the discipline warning signs.
// A trade is flagged when it matches any of the three indicators.
type TiltReport struct {
	MeanPositionSize float64 `json:"mean_position_size"`
	LateEntries      int     `json:"late_entries"`
	Oversized        int     `json:"oversized"`
	NoThesis         int     `json:"no_thesis"`
	Flagged          int     `json:"flagged"`
	FlaggedPct       float64 `json:"flagged_pct"`
	TotalTrades      int     `json:"total_trades"`
}

// RollingPoint is one point of the rolling win-rate series, dated at
// the last trade of its window.
type RollingPoint struct {
	Date       string  `json:"date"`
	WinRatePct float64 `json:"win_rate_pct"`
}

// StreakReport holds the longest runs of identical outcomes.
type StreakReport struct {
	MaxWinStreak  int `json:"max_win_streak"`
	MaxLossStreak int `json:"max_loss_streak"`
}

// RiskMetrics are the global P&L distribution figures.
// StdDev is the population standard deviation.
type RiskMetrics struct {
	MaxWin     float64 `json:"max_win"`
	MaxLoss    float64 `json:"max_loss"`
	MeanPnL    float64 `json:"mean_pnl"`
	StdDevPnL  float64 `json:"stddev_pnl"`
	TradeCount int     `json:"trade_count"`
}
