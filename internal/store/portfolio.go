package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"swing-trader/internal/models"
)

// ============================================================================
// CurrentHoldings Methods
// ============================================================================

// SaveHolding saves an open position, assigning an ID when missing.
func (s *SQLiteStore) SaveHolding(ctx context.Context, h *models.Holding) error {
	if h.ID == "" {
		h.ID = uuid.New().String()
	}
	openedAt := h.OpenedAt
	if openedAt.IsZero() {
		openedAt = time.Now()
		h.OpenedAt = openedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO holdings (id, symbol, sector, shares, entry_price, entry_date, last_close, rule_set, opened_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, h.ID, h.Symbol, h.Sector, h.Shares, h.EntryPrice.String(), h.EntryDate, h.LastClose, h.RuleSet, openedAt)
	if err != nil {
		return fmt.Errorf("failed to save holding: %w", err)
	}
	return nil
}

// GetHolding retrieves a holding by ID.
func (s *SQLiteStore) GetHolding(ctx context.Context, id string) (*models.Holding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, COALESCE(sector, ''), shares, entry_price, entry_date, last_close, rule_set, opened_at
		FROM holdings WHERE id = ?
	`, id)
	return scanHoldingRow(row)
}

// GetHoldingBySymbol retrieves the most recent open position for a symbol.
func (s *SQLiteStore) GetHoldingBySymbol(ctx context.Context, symbol string) (*models.Holding, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, COALESCE(sector, ''), shares, entry_price, entry_date, last_close, rule_set, opened_at
		FROM holdings WHERE symbol = ? ORDER BY entry_date DESC LIMIT 1
	`, symbol)
	return scanHoldingRow(row)
}

func scanHoldingRow(row *sql.Row) (*models.Holding, error) {
	h, err := scanHolding(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return h, nil
}

// ListHoldings retrieves all open positions, oldest entry first.
func (s *SQLiteStore) ListHoldings(ctx context.Context) ([]models.Holding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, COALESCE(sector, ''), shares, entry_price, entry_date, last_close, rule_set, opened_at
		FROM holdings ORDER BY entry_date ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query holdings: %w", err)
	}
	defer rows.Close()

	var holdings []models.Holding
	for rows.Next() {
		h, err := scanHolding(rows)
		if err != nil {
			return nil, err
		}
		holdings = append(holdings, *h)
	}

	return holdings, rows.Err()
}

// RemoveHolding deletes an open position.
func (s *SQLiteStore) RemoveHolding(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM holdings WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to remove holding: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check remove result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("holding %s not found", id)
	}
	return nil
}

func scanHolding(r rowScanner) (*models.Holding, error) {
	var h models.Holding
	var entryPrice string
	if err := r.Scan(&h.ID, &h.Symbol, &h.Sector, &h.Shares, &entryPrice, &h.EntryDate, &h.LastClose, &h.RuleSet, &h.OpenedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan holding: %w", err)
	}
	price, err := decimal.NewFromString(entryPrice)
	if err != nil {
		return nil, fmt.Errorf("failed to parse entry price: %w", err)
	}
	h.EntryPrice = price
	return &h, nil
}

// ============================================================================
// ClosedTrades Methods
// ============================================================================

// SaveClosedTrade records a realized trade.
func (s *SQLiteStore) SaveClosedTrade(ctx context.Context, t *models.ClosedTrade) error {
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	var washSaleUntil interface{}
	if !t.WashSaleUntil.IsZero() {
		washSaleUntil = t.WashSaleUntil
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO closed_trades (id, symbol, shares, entry_price, exit_price, entry_date, exit_date, pnl, pnl_pct, reason, wash_sale_until)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, t.ID, t.Symbol, t.Shares, t.EntryPrice.String(), t.ExitPrice.String(), t.EntryDate, t.ExitDate,
		t.PnL.String(), t.PnLPct, t.Reason, washSaleUntil)
	if err != nil {
		return fmt.Errorf("failed to save closed trade: %w", err)
	}
	return nil
}

// ListClosedTrades retrieves realized trades, newest exit first.
func (s *SQLiteStore) ListClosedTrades(ctx context.Context, filter TradeFilter) ([]models.ClosedTrade, error) {
	query := `
		SELECT id, symbol, shares, entry_price, exit_price, entry_date, exit_date, pnl, pnl_pct, COALESCE(reason, ''), wash_sale_until
		FROM closed_trades WHERE 1=1`
	args := []interface{}{}

	if filter.Symbol != "" {
		query += " AND symbol = ?"
		args = append(args, filter.Symbol)
	}
	if !filter.StartDate.IsZero() {
		query += " AND exit_date >= ?"
		args = append(args, filter.StartDate)
	}
	if !filter.EndDate.IsZero() {
		query += " AND exit_date <= ?"
		args = append(args, filter.EndDate)
	}

	query += " ORDER BY exit_date DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query closed trades: %w", err)
	}
	defer rows.Close()

	var trades []models.ClosedTrade
	for rows.Next() {
		var t models.ClosedTrade
		var entryPrice, exitPrice, pnl string
		var washSaleUntil sql.NullTime
		if err := rows.Scan(&t.ID, &t.Symbol, &t.Shares, &entryPrice, &exitPrice, &t.EntryDate, &t.ExitDate, &pnl, &t.PnLPct, &t.Reason, &washSaleUntil); err != nil {
			return nil, fmt.Errorf("failed to scan closed trade: %w", err)
		}
		if t.EntryPrice, err = decimal.NewFromString(entryPrice); err != nil {
			return nil, fmt.Errorf("failed to parse entry price: %w", err)
		}
		if t.ExitPrice, err = decimal.NewFromString(exitPrice); err != nil {
			return nil, fmt.Errorf("failed to parse exit price: %w", err)
		}
		if t.PnL, err = decimal.NewFromString(pnl); err != nil {
			return nil, fmt.Errorf("failed to parse pnl: %w", err)
		}
		if washSaleUntil.Valid {
			t.WashSaleUntil = washSaleUntil.Time
		}
		trades = append(trades, t)
	}

	return trades, rows.Err()
}

// WashSaleUntil returns the latest wash-sale lockout date for a symbol,
// zero when the symbol carries none.
func (s *SQLiteStore) WashSaleUntil(ctx context.Context, symbol string) (time.Time, error) {
	var until sql.NullTime
	err := s.db.QueryRowContext(ctx, `
		SELECT MAX(wash_sale_until) FROM closed_trades WHERE symbol = ? AND wash_sale_until IS NOT NULL
	`, symbol).Scan(&until)
	if err != nil && err != sql.ErrNoRows {
		return time.Time{}, fmt.Errorf("failed to get wash sale date: %w", err)
	}
	if !until.Valid {
		return time.Time{}, nil
	}
	return until.Time, nil
}

// ============================================================================
// LongTermHoldings Methods
// ============================================================================

// SaveLongTermHolding saves a carved long-term lot.
func (s *SQLiteStore) SaveLongTermHolding(ctx context.Context, lth *models.LongTermHolding) error {
	if lth.ID == "" {
		lth.ID = uuid.New().String()
	}
	var nextReview interface{}
	if !lth.NextReviewAt.IsZero() {
		nextReview = lth.NextReviewAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO long_term_holdings (id, symbol, shares, carved_from_id, carve_price, carved_at, thesis, review_days, next_review_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, lth.ID, lth.Symbol, lth.Shares, lth.CarvedFromID, lth.CarvePrice.String(), lth.CarvedAt, lth.Thesis, lth.ReviewDays, nextReview)
	if err != nil {
		return fmt.Errorf("failed to save long-term holding: %w", err)
	}
	return nil
}

// ListLongTermHoldings retrieves carved lots, oldest carve first.
func (s *SQLiteStore) ListLongTermHoldings(ctx context.Context) ([]models.LongTermHolding, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, symbol, shares, COALESCE(carved_from_id, ''), carve_price, carved_at, COALESCE(thesis, ''), review_days, next_review_at
		FROM long_term_holdings ORDER BY carved_at ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query long-term holdings: %w", err)
	}
	defer rows.Close()

	var lots []models.LongTermHolding
	for rows.Next() {
		var l models.LongTermHolding
		var carvePrice string
		var nextReview sql.NullTime
		if err := rows.Scan(&l.ID, &l.Symbol, &l.Shares, &l.CarvedFromID, &carvePrice, &l.CarvedAt, &l.Thesis, &l.ReviewDays, &nextReview); err != nil {
			return nil, fmt.Errorf("failed to scan long-term holding: %w", err)
		}
		price, err := decimal.NewFromString(carvePrice)
		if err != nil {
			return nil, fmt.Errorf("failed to parse carve price: %w", err)
		}
		l.CarvePrice = price
		if nextReview.Valid {
			l.NextReviewAt = nextReview.Time
		}
		lots = append(lots, l)
	}

	return lots, rows.Err()
}

// ============================================================================
// ExitMonitor Methods
// ============================================================================

// ReplaceExitSignals atomically replaces the exit monitor with a fresh
// evaluation pass.
func (s *SQLiteStore) ReplaceExitSignals(ctx context.Context, signals []models.ExitSignal) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM exit_signals`); err != nil {
		return fmt.Errorf("failed to clear exit signals: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO exit_signals (holding_id, symbol, triggers, action, rule_set, days_held, return_pct, days_to_earnings, evaluated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, sig := range signals {
		triggers, err := marshalStrings(sig.Triggers)
		if err != nil {
			return err
		}
		_, err = stmt.ExecContext(ctx, sig.HoldingID, sig.Symbol, triggers, sig.Action, sig.RuleSet,
			sig.DaysHeld, sig.ReturnPct, sig.DaysToEarnings, sig.EvaluatedAt)
		if err != nil {
			return fmt.Errorf("failed to insert exit signal: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListExitSignals retrieves the current exit monitor state, actionable
// rows first.
func (s *SQLiteStore) ListExitSignals(ctx context.Context) ([]models.ExitSignal, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT holding_id, symbol, COALESCE(triggers, ''), action, rule_set, days_held, return_pct, days_to_earnings, evaluated_at
		FROM exit_signals
		ORDER BY CASE action WHEN 'EXIT' THEN 0 WHEN 'TRIM' THEN 1 WHEN 'CARVE' THEN 2 ELSE 3 END, symbol ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query exit signals: %w", err)
	}
	defer rows.Close()

	var signals []models.ExitSignal
	for rows.Next() {
		var sig models.ExitSignal
		var triggers string
		if err := rows.Scan(&sig.HoldingID, &sig.Symbol, &triggers, &sig.Action, &sig.RuleSet, &sig.DaysHeld, &sig.ReturnPct, &sig.DaysToEarnings, &sig.EvaluatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan exit signal: %w", err)
		}
		parsed, err := unmarshalStrings(triggers)
		if err != nil {
			return nil, err
		}
		sig.Triggers = parsed
		signals = append(signals, sig)
	}

	return signals, rows.Err()
}

// ============================================================================
// SectorExposure / RiskMonitor Methods
// ============================================================================

// SectorExposure counts open positions per sector. Derived from
// holdings, not stored.
func (s *SQLiteStore) SectorExposure(ctx context.Context, cap int) ([]models.SectorExposure, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT COALESCE(sector, ''), COUNT(*) FROM holdings GROUP BY sector ORDER BY sector ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query sector exposure: %w", err)
	}
	defer rows.Close()

	var exposures []models.SectorExposure
	for rows.Next() {
		e := models.SectorExposure{Cap: cap}
		if err := rows.Scan(&e.Sector, &e.OpenCount); err != nil {
			return nil, fmt.Errorf("failed to scan sector exposure: %w", err)
		}
		exposures = append(exposures, e)
	}

	return exposures, rows.Err()
}

// SaveRiskState saves the guardrail snapshot for its date.
func (s *SQLiteStore) SaveRiskState(ctx context.Context, state *models.RiskState) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO risk_state (date, equity, drawdown_10d, kill_switch, note, updated_at)
		VALUES (?, ?, ?, ?, ?, ?)
	`, dateOnly(state.Date), state.Equity.String(), state.Drawdown10D, state.KillSwitch, state.Note, state.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to save risk state: %w", err)
	}
	return nil
}

// GetRiskState retrieves the most recent guardrail snapshot.
func (s *SQLiteStore) GetRiskState(ctx context.Context) (*models.RiskState, error) {
	var state models.RiskState
	var equity string
	err := s.db.QueryRowContext(ctx, `
		SELECT date, equity, drawdown_10d, kill_switch, COALESCE(note, ''), updated_at
		FROM risk_state ORDER BY date DESC LIMIT 1
	`).Scan(&state.Date, &equity, &state.Drawdown10D, &state.KillSwitch, &state.Note, &state.UpdatedAt)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get risk state: %w", err)
	}
	state.Equity, err = decimal.NewFromString(equity)
	if err != nil {
		return nil, fmt.Errorf("failed to parse equity: %w", err)
	}
	return &state, nil
}

// AppendEquityPoint records one point of the equity curve, replacing
// any earlier point for the same date.
func (s *SQLiteStore) AppendEquityPoint(ctx context.Context, point *models.EquityPoint) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO portfolio_equity (date, equity) VALUES (?, ?)
	`, dateOnly(point.Date), point.Equity.String())
	if err != nil {
		return fmt.Errorf("failed to append equity point: %w", err)
	}
	return nil
}

// GetEquitySeries retrieves the last N daily equity points in ascending
// date order.
func (s *SQLiteStore) GetEquitySeries(ctx context.Context, days int) ([]models.EquityPoint, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT date, equity FROM (
			SELECT date, equity FROM portfolio_equity ORDER BY date DESC LIMIT ?
		) ORDER BY date ASC
	`, days)
	if err != nil {
		return nil, fmt.Errorf("failed to query equity series: %w", err)
	}
	defer rows.Close()

	var points []models.EquityPoint
	for rows.Next() {
		var p models.EquityPoint
		var equity string
		if err := rows.Scan(&p.Date, &equity); err != nil {
			return nil, fmt.Errorf("failed to scan equity point: %w", err)
		}
		p.Equity, err = decimal.NewFromString(equity)
		if err != nil {
			return nil, fmt.Errorf("failed to parse equity: %w", err)
		}
		points = append(points, p)
	}

	return points, rows.Err()
}
