package session

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/rs/zerolog"

	"tradescope/internal/database"
	"tradescope/internal/domain"
)

// JournalSchema creates the session and trade tables in journal.db.
// One sessions row exists at a time: imports replace the dataset wholesale.
const JournalSchema = `
CREATE TABLE IF NOT EXISTS sessions (
    id TEXT PRIMARY KEY,
    source_name TEXT NOT NULL,
    filter TEXT NOT NULL,
    imported_at TEXT NOT NULL,
    candidates INTEGER NOT NULL,
    retained INTEGER NOT NULL,
    rejected_invalid INTEGER NOT NULL,
    rejected_filtered INTEGER NOT NULL
);

CREATE TABLE IF NOT EXISTS trades (
    session_id TEXT NOT NULL,
    seq INTEGER NOT NULL,
    symbol TEXT NOT NULL,
    open_time TEXT,
    close_time TEXT,
    total_profit REAL NOT NULL,
    position_size_usd REAL NOT NULL,
    return_pct REAL NOT NULL,
    holding_days REAL NOT NULL,
    holding_hours REAL NOT NULL,
    win_loss TEXT NOT NULL,
    instrument_type TEXT,
    entry_trigger TEXT,
    market_regime TEXT,
    trade_thesis TEXT,
    profit_target_hit INTEGER NOT NULL,
    stop_loss_hit INTEGER NOT NULL,
    position_name TEXT,
    contract_name TEXT,
    description TEXT,
    extra_json TEXT,
    PRIMARY KEY (session_id, seq)
);

CREATE INDEX IF NOT EXISTS idx_trades_symbol ON trades(symbol);
`

// InitSchema ensures the journal tables exist.
func InitSchema(db *sql.DB) error {
	_, err := db.Exec(JournalSchema)
	return err
}

// tradeColumns is the column list for the trades table. Order must match
// insertTrade and scanTrade.
const tradeColumns = `session_id, seq, symbol, open_time, close_time, total_profit, position_size_usd, return_pct, holding_days, holding_hours, win_loss, instrument_type, entry_trigger, market_regime, trade_thesis, profit_target_hit, stop_loss_hit, position_name, contract_name, description, extra_json`

// Repository persists the current session to journal.db so the dashboard
// survives a restart without re-uploading the CSV. The journal is a derived
// cache of the user's export, never the source of truth.
type Repository struct {
	journalDB *sql.DB
	log       zerolog.Logger
}

// NewRepository creates a session repository.
func NewRepository(journalDB *sql.DB, log zerolog.Logger) *Repository {
	return &Repository{
		journalDB: journalDB,
		log:       log.With().Str("repo", "session").Logger(),
	}
}

// Replace persists a session wholesale inside one transaction: the previous
// session's rows are removed and the new set inserted. Nothing is partially
// applied on error, matching the import's all-or-nothing contract.
func (r *Repository) Replace(s *Session) error {
	err := database.WithTransaction(r.journalDB, func(tx *sql.Tx) error {
		if _, err := tx.Exec("DELETE FROM trades"); err != nil {
			return fmt.Errorf("failed to clear trades: %w", err)
		}
		if _, err := tx.Exec("DELETE FROM sessions"); err != nil {
			return fmt.Errorf("failed to clear sessions: %w", err)
		}

		_, err := tx.Exec(`
			INSERT INTO sessions
			(id, source_name, filter, imported_at, candidates, retained, rejected_invalid, rejected_filtered)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		`,
			s.ID,
			s.SourceName,
			s.Filter,
			s.ImportedAt.UTC().Format(time.RFC3339),
			s.Stats.Candidates,
			s.Stats.Retained,
			s.Stats.RejectedInvalid,
			s.Stats.RejectedFiltered,
		)
		if err != nil {
			return fmt.Errorf("failed to insert session: %w", err)
		}

		stmt, err := tx.Prepare(`
			INSERT INTO trades (` + tradeColumns + `)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare trade insert: %w", err)
		}
		defer stmt.Close()

		for seq, trade := range s.Trades {
			if err := insertTrade(stmt, s.ID, seq, &trade); err != nil {
				return fmt.Errorf("failed to insert trade %d: %w", seq, err)
			}
		}

		return nil
	})
	if err != nil {
		return err
	}

	r.log.Info().
		Str("session_id", s.ID).
		Int("trades", len(s.Trades)).
		Msg("Session persisted")

	return nil
}

// LoadCurrent restores the persisted session, or returns nil when the
// journal is empty.
func (r *Repository) LoadCurrent() (*Session, error) {
	row := r.journalDB.QueryRow(`
		SELECT id, source_name, filter, imported_at, candidates, retained, rejected_invalid, rejected_filtered
		FROM sessions LIMIT 1
	`)

	s := &Session{}
	var importedAt string
	err := row.Scan(
		&s.ID,
		&s.SourceName,
		&s.Filter,
		&importedAt,
		&s.Stats.Candidates,
		&s.Stats.Retained,
		&s.Stats.RejectedInvalid,
		&s.Stats.RejectedFiltered,
	)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load session: %w", err)
	}

	if ts, err := time.Parse(time.RFC3339, importedAt); err == nil {
		s.ImportedAt = ts
	}

	rows, err := r.journalDB.Query(
		"SELECT "+tradeColumns+" FROM trades WHERE session_id = ? ORDER BY seq", s.ID)
	if err != nil {
		return nil, fmt.Errorf("failed to load trades: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		trade, err := scanTrade(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan trade: %w", err)
		}
		s.Trades = append(s.Trades, trade)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate trades: %w", err)
	}

	s.Daily = BuildDailyIndex(s.Trades)

	r.log.Info().
		Str("session_id", s.ID).
		Int("trades", len(s.Trades)).
		Msg("Session restored from journal")

	return s, nil
}

func insertTrade(stmt *sql.Stmt, sessionID string, seq int, t *domain.TradeRecord) error {
	var extraJSON sql.NullString
	if len(t.Extra) > 0 {
		raw, err := json.Marshal(t.Extra)
		if err != nil {
			return fmt.Errorf("failed to marshal extra columns: %w", err)
		}
		extraJSON = sql.NullString{String: string(raw), Valid: true}
	}

	_, err := stmt.Exec(
		sessionID,
		seq,
		t.Symbol,
		nullTime(t.OpenTime),
		nullTime(t.CloseTime),
		t.TotalProfit,
		t.PositionSizeUSD,
		t.ReturnPct,
		t.HoldingDays,
		t.HoldingHours,
		string(t.WinLoss),
		nullString(t.InstrumentType),
		nullString(t.EntryTrigger),
		nullString(t.MarketRegime),
		nullString(t.TradeThesis),
		boolToInt(t.ProfitTargetHit),
		boolToInt(t.StopLossHit),
		nullString(t.PositionName),
		nullString(t.ContractName),
		nullString(t.Description),
		extraJSON,
	)
	return err
}

// rowScanner covers *sql.Row and *sql.Rows.
type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanTrade(row rowScanner) (domain.TradeRecord, error) {
	var (
		t                         domain.TradeRecord
		sessionID                 string
		seq                       int
		openTime, closeTime       sql.NullString
		winLoss                   string
		instrumentType            sql.NullString
		entryTrigger              sql.NullString
		marketRegime, tradeThesis sql.NullString
		profitTarget, stopLoss    int
		positionName              sql.NullString
		contractName, description sql.NullString
		extraJSON                 sql.NullString
	)

	err := row.Scan(
		&sessionID,
		&seq,
		&t.Symbol,
		&openTime,
		&closeTime,
		&t.TotalProfit,
		&t.PositionSizeUSD,
		&t.ReturnPct,
		&t.HoldingDays,
		&t.HoldingHours,
		&winLoss,
		&instrumentType,
		&entryTrigger,
		&marketRegime,
		&tradeThesis,
		&profitTarget,
		&stopLoss,
		&positionName,
		&contractName,
		&description,
		&extraJSON,
	)
	if err != nil {
		return t, err
	}

	t.OpenTime = parseStoredTime(openTime)
	t.CloseTime = parseStoredTime(closeTime)
	t.WinLoss = domain.Outcome(winLoss)
	t.InstrumentType = instrumentType.String
	t.EntryTrigger = entryTrigger.String
	t.MarketRegime = marketRegime.String
	t.TradeThesis = tradeThesis.String
	t.ProfitTargetHit = profitTarget != 0
	t.StopLossHit = stopLoss != 0
	t.PositionName = positionName.String
	t.ContractName = contractName.String
	t.Description = description.String

	if extraJSON.Valid && extraJSON.String != "" {
		if err := json.Unmarshal([]byte(extraJSON.String), &t.Extra); err != nil {
			return t, fmt.Errorf("failed to unmarshal extra columns: %w", err)
		}
	}

	return t, nil
}

func parseStoredTime(v sql.NullString) time.Time {
	if !v.Valid || v.String == "" {
		return time.Time{}
	}
	ts, err := time.Parse(time.RFC3339, v.String)
	if err != nil {
		return time.Time{}
	}
	return ts.UTC()
}

func nullTime(t time.Time) sql.NullString {
	if t.IsZero() {
		return sql.NullString{}
	}
	return sql.NullString{String: t.UTC().Format(time.RFC3339), Valid: true}
}

func nullString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
