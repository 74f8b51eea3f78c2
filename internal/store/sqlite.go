// Package store provides data persistence implementations.
package store

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"swing-trader/internal/models"
)

// SQLiteStore implements DataStore using SQLite.
type SQLiteStore struct {
	db        *sql.DB
	mu        sync.RWMutex
	syncTimes map[string]time.Time
}

// NewSQLiteStore creates a new SQLite-based data store.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_journal_mode=WAL&_busy_timeout=5000")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Configure connection pool for concurrent access
	db.SetMaxOpenConns(10)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(time.Hour)

	store := &SQLiteStore{
		db:        db,
		syncTimes: make(map[string]time.Time),
	}

	if err := store.initSchema(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to initialize schema: %w", err)
	}

	return store, nil
}

// initSchema creates all required tables and indexes. One table per
// workbook tab, except sector exposure which is derived from holdings.
func (s *SQLiteStore) initSchema() error {
	schema := `
	-- CacheDailyBars: OHLCV history plus cached indicator columns
	CREATE TABLE IF NOT EXISTS daily_bars (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		symbol TEXT NOT NULL,
		date DATE NOT NULL,
		open REAL NOT NULL,
		high REAL NOT NULL,
		low REAL NOT NULL,
		close REAL NOT NULL,
		volume INTEGER NOT NULL,
		rsi14 REAL DEFAULT 0,
		macd REAL DEFAULT 0,
		macd_signal REAL DEFAULT 0,
		macd_hist REAL DEFAULT 0,
		percent_b REAL DEFAULT 0,
		atr20 REAL DEFAULT 0,
		vol_z REAL DEFAULT 0,
		indicators_at DATETIME,
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE(symbol, date)
	);

	-- TickerMetadata
	CREATE TABLE IF NOT EXISTS ticker_metadata (
		symbol TEXT PRIMARY KEY,
		name TEXT,
		sector TEXT,
		avg_dollar_volume REAL DEFAULT 0,
		is_adr INTEGER DEFAULT 0,
		dedupe_of TEXT,
		added_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Validate: hygiene gate outcomes
	CREATE TABLE IF NOT EXISTS validations (
		symbol TEXT PRIMARY KEY,
		valid INTEGER NOT NULL,
		reason TEXT,
		checked_at DATETIME NOT NULL
	);

	-- MasterStockList
	CREATE TABLE IF NOT EXISTS master_list (
		symbol TEXT PRIMARY KEY,
		status TEXT NOT NULL,
		last_close REAL DEFAULT 0,
		rsi14 REAL DEFAULT 0,
		percent_b REAL DEFAULT 0,
		macd_hist REAL DEFAULT 0,
		atr20 REAL DEFAULT 0,
		vol_z REAL DEFAULT 0,
		earnings_safe INTEGER DEFAULT 0,
		sector_open INTEGER DEFAULT 0,
		updated_at DATETIME NOT NULL
	);

	-- EarningsMonitor
	CREATE TABLE IF NOT EXISTS earnings (
		symbol TEXT PRIMARY KEY,
		date DATETIME,
		timing TEXT DEFAULT 'UNKNOWN',
		delta_flag INTEGER DEFAULT 0,
		updated_at DATETIME NOT NULL
	);

	-- EarningsDeltaLog: append-only
	CREATE TABLE IF NOT EXISTS earnings_delta_log (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		old_date DATETIME,
		new_date DATETIME,
		logged_at DATETIME NOT NULL
	);

	-- OversoldTracker
	CREATE TABLE IF NOT EXISTS candidates (
		symbol TEXT PRIMARY KEY,
		stage TEXT NOT NULL,
		missing_signals TEXT,
		bounce_score REAL DEFAULT 0,
		next_check_at DATETIME,
		first_seen DATETIME NOT NULL,
		updated_at DATETIME NOT NULL
	);

	-- EntryWatchlist
	CREATE TABLE IF NOT EXISTS entry_watchlist (
		symbol TEXT PRIMARY KEY,
		signals TEXT,
		bounce_score REAL DEFAULT 0,
		entry_zone_low REAL DEFAULT 0,
		entry_zone_high REAL DEFAULT 0,
		proposed_size TEXT,
		proposed_shares INTEGER DEFAULT 0,
		earnings_safe INTEGER DEFAULT 0,
		added_at DATETIME NOT NULL
	);

	-- NextCycleQueue
	CREATE TABLE IF NOT EXISTS next_cycle_queue (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		reason TEXT NOT NULL,
		detail TEXT,
		queued_at DATETIME NOT NULL,
		released_at DATETIME
	);

	-- CurrentHoldings
	CREATE TABLE IF NOT EXISTS holdings (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		sector TEXT,
		shares INTEGER NOT NULL,
		entry_price TEXT NOT NULL,
		entry_date DATETIME NOT NULL,
		last_close REAL DEFAULT 0,
		rule_set TEXT NOT NULL,
		opened_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- ClosedTrades
	CREATE TABLE IF NOT EXISTS closed_trades (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		shares INTEGER NOT NULL,
		entry_price TEXT NOT NULL,
		exit_price TEXT NOT NULL,
		entry_date DATETIME NOT NULL,
		exit_date DATETIME NOT NULL,
		pnl TEXT NOT NULL,
		pnl_pct REAL NOT NULL,
		reason TEXT,
		wash_sale_until DATETIME
	);

	-- LongTermHoldings
	CREATE TABLE IF NOT EXISTS long_term_holdings (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		shares INTEGER NOT NULL,
		carved_from_id TEXT,
		carve_price TEXT NOT NULL,
		carved_at DATETIME NOT NULL,
		thesis TEXT,
		review_days INTEGER DEFAULT 90,
		next_review_at DATETIME
	);

	-- ExitMonitor
	CREATE TABLE IF NOT EXISTS exit_signals (
		holding_id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		triggers TEXT,
		action TEXT NOT NULL,
		rule_set TEXT NOT NULL,
		days_held INTEGER DEFAULT 0,
		return_pct REAL DEFAULT 0,
		days_to_earnings INTEGER DEFAULT -1,
		evaluated_at DATETIME NOT NULL
	);

	-- RiskMonitor
	CREATE TABLE IF NOT EXISTS risk_state (
		date DATE PRIMARY KEY,
		equity TEXT NOT NULL,
		drawdown_10d REAL DEFAULT 0,
		kill_switch TEXT NOT NULL,
		note TEXT,
		updated_at DATETIME NOT NULL
	);

	-- PortfolioEquity
	CREATE TABLE IF NOT EXISTS portfolio_equity (
		date DATE PRIMARY KEY,
		equity TEXT NOT NULL
	);

	-- BacktestQueue
	CREATE TABLE IF NOT EXISTS backtest_queue (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		from_date DATETIME,
		to_date DATETIME,
		min_window INTEGER DEFAULT 0,
		max_window INTEGER DEFAULT 0,
		status TEXT NOT NULL,
		error TEXT,
		queued_at DATETIME NOT NULL,
		completed_at DATETIME
	);

	-- BacktestResults
	CREATE TABLE IF NOT EXISTS backtest_results (
		id TEXT PRIMARY KEY,
		symbol TEXT NOT NULL,
		trades INTEGER DEFAULT 0,
		avg_return_pct REAL DEFAULT 0,
		hit_rate REAL DEFAULT 0,
		best_window INTEGER DEFAULT 0,
		from_date DATETIME,
		to_date DATETIME,
		computed_at DATETIME NOT NULL
	);

	-- AlertsLog
	CREATE TABLE IF NOT EXISTS alerts_log (
		id TEXT PRIMARY KEY,
		timestamp DATETIME NOT NULL,
		severity TEXT NOT NULL,
		source TEXT,
		message TEXT NOT NULL
	);

	-- APIBudget
	CREATE TABLE IF NOT EXISTS api_budget (
		date DATE PRIMARY KEY,
		calls_used INTEGER DEFAULT 0,
		call_limit INTEGER NOT NULL,
		fallback INTEGER DEFAULT 0
	);

	-- Settings
	CREATE TABLE IF NOT EXISTS settings (
		key TEXT PRIMARY KEY,
		value TEXT NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Sync status
	CREATE TABLE IF NOT EXISTS sync_status (
		data_type TEXT PRIMARY KEY,
		last_sync DATETIME NOT NULL,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	-- Indexes
	CREATE INDEX IF NOT EXISTS idx_bars_symbol ON daily_bars(symbol);
	CREATE INDEX IF NOT EXISTS idx_bars_date ON daily_bars(date);
	CREATE INDEX IF NOT EXISTS idx_candidates_stage ON candidates(stage);
	CREATE INDEX IF NOT EXISTS idx_queue_released ON next_cycle_queue(released_at);
	CREATE INDEX IF NOT EXISTS idx_holdings_symbol ON holdings(symbol);
	CREATE INDEX IF NOT EXISTS idx_holdings_sector ON holdings(sector);
	CREATE INDEX IF NOT EXISTS idx_closed_symbol ON closed_trades(symbol);
	CREATE INDEX IF NOT EXISTS idx_closed_exit_date ON closed_trades(exit_date);
	CREATE INDEX IF NOT EXISTS idx_deltas_symbol ON earnings_delta_log(symbol);
	CREATE INDEX IF NOT EXISTS idx_backtest_status ON backtest_queue(status);
	CREATE INDEX IF NOT EXISTS idx_alerts_timestamp ON alerts_log(timestamp);
	`

	_, err := s.db.Exec(schema)
	return err
}

// Close closes the database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// ============================================================================
// CacheDailyBars Methods
// ============================================================================

// SaveBars saves daily bars to the database.
func (s *SQLiteStore) SaveBars(ctx context.Context, symbol string, bars []models.DailyBar) error {
	if len(bars) == 0 {
		return nil
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `
		INSERT OR REPLACE INTO daily_bars (symbol, date, open, high, low, close, volume, rsi14, macd, macd_signal, macd_hist, percent_b, atr20, vol_z, indicators_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, b := range bars {
		var indicatorsAt interface{}
		if b.HasIndicators() {
			indicatorsAt = b.IndicatorsAt
		}
		_, err := stmt.ExecContext(ctx, symbol, b.Date, b.Open, b.High, b.Low, b.Close, b.Volume,
			b.RSI14, b.MACD, b.MACDSignal, b.MACDHist, b.PercentB, b.ATR20, b.VolZ, indicatorsAt)
		if err != nil {
			return fmt.Errorf("failed to insert bar: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}

	return nil
}

// GetBars retrieves daily bars from the database in ascending date order.
func (s *SQLiteStore) GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, date, open, high, low, close, volume, rsi14, macd, macd_signal, macd_hist, percent_b, atr20, vol_z, indicators_at
		FROM daily_bars
		WHERE symbol = ? AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, symbol, from, to)
	if err != nil {
		return nil, fmt.Errorf("failed to query bars: %w", err)
	}
	defer rows.Close()

	var bars []models.DailyBar
	for rows.Next() {
		b, err := scanBar(rows)
		if err != nil {
			return nil, err
		}
		bars = append(bars, *b)
	}

	return bars, rows.Err()
}

// GetLatestBar retrieves the most recent bar for a symbol.
func (s *SQLiteStore) GetLatestBar(ctx context.Context, symbol string) (*models.DailyBar, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT symbol, date, open, high, low, close, volume, rsi14, macd, macd_signal, macd_hist, percent_b, atr20, vol_z, indicators_at
		FROM daily_bars WHERE symbol = ? ORDER BY date DESC LIMIT 1
	`, symbol)

	b, err := scanBar(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return b, nil
}

// GetBarFreshness returns the date of the most recent bar.
func (s *SQLiteStore) GetBarFreshness(ctx context.Context, symbol string) (time.Time, error) {
	var date sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(date) FROM daily_bars WHERE symbol = ?
	`, symbol).Scan(&date)
	if err != nil && err != sql.ErrNoRows {
		return time.Time{}, fmt.Errorf("failed to get bar freshness: %w", err)
	}
	if !date.Valid {
		return time.Time{}, nil
	}
	return date.Time, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanBar(r rowScanner) (*models.DailyBar, error) {
	var b models.DailyBar
	var indicatorsAt sql.NullTime
	if err := r.Scan(&b.Symbol, &b.Date, &b.Open, &b.High, &b.Low, &b.Close, &b.Volume,
		&b.RSI14, &b.MACD, &b.MACDSignal, &b.MACDHist, &b.PercentB, &b.ATR20, &b.VolZ, &indicatorsAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan bar: %w", err)
	}
	if indicatorsAt.Valid {
		b.IndicatorsAt = indicatorsAt.Time
	}
	return &b, nil
}

// ============================================================================
// TickerMetadata Methods
// ============================================================================

// UpsertTicker saves ticker reference data.
func (s *SQLiteStore) UpsertTicker(ctx context.Context, info *models.TickerInfo) error {
	isADR := 0
	if info.IsADR {
		isADR = 1
	}
	addedAt := info.AddedAt
	if addedAt.IsZero() {
		addedAt = time.Now()
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO ticker_metadata (symbol, name, sector, avg_dollar_volume, is_adr, dedupe_of, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, info.Symbol, info.Name, info.Sector, info.AvgDollarVolume, isADR, info.DedupeOf, addedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert ticker: %w", err)
	}
	return nil
}

// GetTicker retrieves ticker reference data.
func (s *SQLiteStore) GetTicker(ctx context.Context, symbol string) (*models.TickerInfo, error) {
	var info models.TickerInfo
	var isADR int
	err := s.db.QueryRowContext(ctx, `
		SELECT symbol, COALESCE(name, ''), COALESCE(sector, ''), avg_dollar_volume, is_adr, COALESCE(dedupe_of, ''), added_at
		FROM ticker_metadata WHERE symbol = ?
	`, symbol).Scan(&info.Symbol, &info.Name, &info.Sector, &info.AvgDollarVolume, &isADR, &info.DedupeOf, &info.AddedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get ticker: %w", err)
	}
	info.IsADR = isADR == 1
	return &info, nil
}

// ListTickers retrieves all tickers in the universe.
func (s *SQLiteStore) ListTickers(ctx context.Context) ([]models.TickerInfo, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, COALESCE(name, ''), COALESCE(sector, ''), avg_dollar_volume, is_adr, COALESCE(dedupe_of, ''), added_at
		FROM ticker_metadata ORDER BY symbol ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query tickers: %w", err)
	}
	defer rows.Close()

	var tickers []models.TickerInfo
	for rows.Next() {
		var info models.TickerInfo
		var isADR int
		if err := rows.Scan(&info.Symbol, &info.Name, &info.Sector, &info.AvgDollarVolume, &isADR, &info.DedupeOf, &info.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan ticker: %w", err)
		}
		info.IsADR = isADR == 1
		tickers = append(tickers, info)
	}

	return tickers, rows.Err()
}

// RemoveTicker deletes a ticker from the universe.
func (s *SQLiteStore) RemoveTicker(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM ticker_metadata WHERE symbol = ?`, symbol)
	if err != nil {
		return fmt.Errorf("failed to remove ticker: %w", err)
	}
	return nil
}

// ============================================================================
// Validate Methods
// ============================================================================

// SaveValidation saves a hygiene gate outcome.
func (s *SQLiteStore) SaveValidation(ctx context.Context, v *models.Validation) error {
	valid := 0
	if v.Valid {
		valid = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO validations (symbol, valid, reason, checked_at)
		VALUES (?, ?, ?, ?)
	`, v.Symbol, valid, v.Reason, v.CheckedAt)
	if err != nil {
		return fmt.Errorf("failed to save validation: %w", err)
	}
	return nil
}

// GetValidation retrieves the validation outcome for a symbol.
func (s *SQLiteStore) GetValidation(ctx context.Context, symbol string) (*models.Validation, error) {
	var v models.Validation
	var valid int
	err := s.db.QueryRowContext(ctx, `
		SELECT symbol, valid, COALESCE(reason, ''), checked_at FROM validations WHERE symbol = ?
	`, symbol).Scan(&v.Symbol, &valid, &v.Reason, &v.CheckedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get validation: %w", err)
	}
	v.Valid = valid == 1
	return &v, nil
}

// ListValidations retrieves validation outcomes.
func (s *SQLiteStore) ListValidations(ctx context.Context, validOnly bool) ([]models.Validation, error) {
	query := `SELECT symbol, valid, COALESCE(reason, ''), checked_at FROM validations`
	if validOnly {
		query += ` WHERE valid = 1`
	}
	query += ` ORDER BY symbol ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query validations: %w", err)
	}
	defer rows.Close()

	var validations []models.Validation
	for rows.Next() {
		var v models.Validation
		var valid int
		if err := rows.Scan(&v.Symbol, &valid, &v.Reason, &v.CheckedAt); err != nil {
			return nil, fmt.Errorf("failed to scan validation: %w", err)
		}
		v.Valid = valid == 1
		validations = append(validations, v)
	}

	return validations, rows.Err()
}

// ============================================================================
// MasterStockList Methods
// ============================================================================

// UpsertMasterRow saves a master list row.
func (s *SQLiteStore) UpsertMasterRow(ctx context.Context, row *models.MasterRow) error {
	earningsSafe := 0
	if row.EarningsSafe {
		earningsSafe = 1
	}
	sectorOpen := 0
	if row.SectorOpen {
		sectorOpen = 1
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO master_list (symbol, status, last_close, rsi14, percent_b, macd_hist, atr20, vol_z, earnings_safe, sector_open, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, row.Symbol, row.Status, row.LastClose, row.RSI14, row.PercentB, row.MACDHist, row.ATR20, row.VolZ, earningsSafe, sectorOpen, row.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert master row: %w", err)
	}
	return nil
}

// ListMaster retrieves master list rows.
func (s *SQLiteStore) ListMaster(ctx context.Context, filter MasterFilter) ([]models.MasterRow, error) {
	query := `SELECT symbol, status, last_close, rsi14, percent_b, macd_hist, atr20, vol_z, earnings_safe, sector_open, updated_at FROM master_list WHERE 1=1`
	args := []interface{}{}

	if filter.Status != "" {
		query += " AND status = ?"
		args = append(args, filter.Status)
	}

	query += " ORDER BY symbol ASC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query master list: %w", err)
	}
	defer rows.Close()

	var result []models.MasterRow
	for rows.Next() {
		var r models.MasterRow
		var earningsSafe, sectorOpen int
		if err := rows.Scan(&r.Symbol, &r.Status, &r.LastClose, &r.RSI14, &r.PercentB, &r.MACDHist, &r.ATR20, &r.VolZ, &earningsSafe, &sectorOpen, &r.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan master row: %w", err)
		}
		r.EarningsSafe = earningsSafe == 1
		r.SectorOpen = sectorOpen == 1
		result = append(result, r)
	}

	return result, rows.Err()
}

// ============================================================================
// Earnings Methods
// ============================================================================

// SaveEarnings saves the tracked earnings event for a symbol.
func (s *SQLiteStore) SaveEarnings(ctx context.Context, event *models.EarningsEvent) error {
	deltaFlag := 0
	if event.DeltaFlag {
		deltaFlag = 1
	}
	var date interface{}
	if !event.Date.IsZero() {
		date = event.Date
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO earnings (symbol, date, timing, delta_flag, updated_at)
		VALUES (?, ?, ?, ?, ?)
	`, event.Symbol, date, event.Timing, deltaFlag, event.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save earnings: %w", err)
	}
	return nil
}

// GetEarnings retrieves the earnings event for a symbol.
func (s *SQLiteStore) GetEarnings(ctx context.Context, symbol string) (*models.EarningsEvent, error) {
	var e models.EarningsEvent
	var date sql.NullTime
	var deltaFlag int
	err := s.db.QueryRowContext(ctx, `
		SELECT symbol, date, timing, delta_flag, updated_at FROM earnings WHERE symbol = ?
	`, symbol).Scan(&e.Symbol, &date, &e.Timing, &deltaFlag, &e.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get earnings: %w", err)
	}
	if date.Valid {
		e.Date = date.Time
	}
	e.DeltaFlag = deltaFlag == 1
	return &e, nil
}

// ListEarningsWithin retrieves earnings events dated within the next
// given number of days, soonest first.
func (s *SQLiteStore) ListEarningsWithin(ctx context.Context, days int) ([]models.EarningsEvent, error) {
	now := time.Now()
	end := now.AddDate(0, 0, days)

	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, date, timing, delta_flag, updated_at
		FROM earnings WHERE date IS NOT NULL AND date >= ? AND date <= ?
		ORDER BY date ASC
	`, now, end)
	if err != nil {
		return nil, fmt.Errorf("failed to query earnings: %w", err)
	}
	defer rows.Close()

	var events []models.EarningsEvent
	for rows.Next() {
		var e models.EarningsEvent
		var date sql.NullTime
		var deltaFlag int
		if err := rows.Scan(&e.Symbol, &date, &e.Timing, &deltaFlag, &e.UpdatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan earnings: %w", err)
		}
		if date.Valid {
			e.Date = date.Time
		}
		e.DeltaFlag = deltaFlag == 1
		events = append(events, e)
	}

	return events, rows.Err()
}

// AppendEarningsDelta appends an immutable delta log row.
func (s *SQLiteStore) AppendEarningsDelta(ctx context.Context, delta *models.EarningsDelta) error {
	var oldDate, newDate interface{}
	if !delta.OldDate.IsZero() {
		oldDate = delta.OldDate
	}
	if !delta.NewDate.IsZero() {
		newDate = delta.NewDate
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO earnings_delta_log (id, symbol, old_date, new_date, logged_at)
		VALUES (?, ?, ?, ?, ?)
	`, delta.ID, delta.Symbol, oldDate, newDate, delta.LoggedAt)
	if err != nil {
		return fmt.Errorf("failed to append earnings delta: %w", err)
	}
	return nil
}

// ListEarningsDeltas retrieves delta log rows, newest first.
func (s *SQLiteStore) ListEarningsDeltas(ctx context.Context, filter DeltaFilter) ([]models.EarningsDelta, error) {
	query := `SELECT id, symbol, old_date, new_date, logged_at FROM earnings_delta_log WHERE 1=1`
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.Since.IsZero() {
		query += " AND logged_at >= ?"
		args = append(args, filter.Since)
	}

	query += " ORDER BY logged_at DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query earnings deltas: %w", err)
	}
	defer rows.Close()

	var deltas []models.EarningsDelta
	for rows.Next() {
		var d models.EarningsDelta
		var oldDate, newDate sql.NullTime
		if err := rows.Scan(&d.ID, &d.Symbol, &oldDate, &newDate, &d.LoggedAt); err != nil {
			return nil, fmt.Errorf("failed to scan earnings delta: %w", err)
		}
		if oldDate.Valid {
			d.OldDate = oldDate.Time
		}
		if newDate.Valid {
			d.NewDate = newDate.Time
		}
		deltas = append(deltas, d)
	}

	return deltas, rows.Err()
}

// ============================================================================
// APIBudget Methods
// ============================================================================

// GetBudget retrieves the API budget row for a date.
func (s *SQLiteStore) GetBudget(ctx context.Context, date time.Time) (*models.APIBudget, error) {
	var b models.APIBudget
	var fallback int
	err := s.db.QueryRowContext(ctx, `
		SELECT date, calls_used, call_limit, fallback FROM api_budget WHERE date = ?
	`, dateOnly(date)).Scan(&b.Date, &b.CallsUsed, &b.CallLimit, &fallback)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get budget: %w", err)
	}
	b.Fallback = fallback == 1
	return &b, nil
}

// SaveBudget saves the API budget row for a date.
func (s *SQLiteStore) SaveBudget(ctx context.Context, budget *models.APIBudget) error {
	fallback := 0
	if budget.Fallback {
		fallback = 1
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO api_budget (date, calls_used, call_limit, fallback)
		VALUES (?, ?, ?, ?)
	`, dateOnly(budget.Date), budget.CallsUsed, budget.CallLimit, fallback)
	if err != nil {
		return fmt.Errorf("failed to save budget: %w", err)
	}
	return nil
}

// ============================================================================
// Settings Methods
// ============================================================================

// SetSetting saves one settings tab entry.
func (s *SQLiteStore) SetSetting(ctx context.Context, key, value string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO settings (key, value, updated_at) VALUES (?, ?, ?)
	`, key, value, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set setting: %w", err)
	}
	return nil
}

// GetSetting retrieves one settings tab entry.
func (s *SQLiteStore) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.QueryRowContext(ctx, `SELECT value FROM settings WHERE key = ?`, key).Scan(&value)
	if err == sql.ErrNoRows {
		return "", nil
	}
	if err != nil {
		return "", fmt.Errorf("failed to get setting: %w", err)
	}
	return value, nil
}

// AllSettings retrieves the whole settings tab.
func (s *SQLiteStore) AllSettings(ctx context.Context) (map[string]string, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT key, value FROM settings ORDER BY key ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query settings: %w", err)
	}
	defer rows.Close()

	settings := make(map[string]string)
	for rows.Next() {
		var key, value string
		if err := rows.Scan(&key, &value); err != nil {
			return nil, fmt.Errorf("failed to scan setting: %w", err)
		}
		settings[key] = value
	}

	return settings, rows.Err()
}

// ============================================================================
// Sync Methods
// ============================================================================

// GetLastSync returns the last sync time for a data type.
func (s *SQLiteStore) GetLastSync(dataType string) time.Time {
	s.mu.RLock()
	if t, ok := s.syncTimes[dataType]; ok {
		s.mu.RUnlock()
		return t
	}
	s.mu.RUnlock()

	var lastSync time.Time
	err := s.db.QueryRow(`
		SELECT last_sync FROM sync_status WHERE data_type = ?
	`, dataType).Scan(&lastSync)
	if err != nil {
		return time.Time{}
	}

	s.mu.Lock()
	s.syncTimes[dataType] = lastSync
	s.mu.Unlock()

	return lastSync
}

// SetLastSync sets the last sync time for a data type.
func (s *SQLiteStore) SetLastSync(dataType string, t time.Time) error {
	_, err := s.db.Exec(`
		INSERT OR REPLACE INTO sync_status (data_type, last_sync, updated_at)
		VALUES (?, ?, ?)
	`, dataType, t, time.Now())
	if err != nil {
		return fmt.Errorf("failed to set last sync: %w", err)
	}

	s.mu.Lock()
	s.syncTimes[dataType] = t
	s.mu.Unlock()

	return nil
}

// dateOnly truncates a time to its calendar date in UTC.
func dateOnly(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
