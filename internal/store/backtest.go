package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"swing-trader/internal/models"
)

// ============================================================================
// BacktestQueue Methods
// ============================================================================

// EnqueueBacktest adds a request to the backtest queue in PENDING state.
func (s *SQLiteStore) EnqueueBacktest(ctx context.Context, req *models.BacktestRequest) error {
	if req.ID == "" {
		req.ID = uuid.New().String()
	}
	if req.Status == "" {
		req.Status = models.BacktestPending
	}
	queuedAt := req.QueuedAt
	if queuedAt.IsZero() {
		queuedAt = time.Now()
		req.QueuedAt = queuedAt
	}
	var from, to interface{}
	if !req.From.IsZero() {
		from = req.From
	}
	if !req.To.IsZero() {
		to = req.To
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO backtest_queue (id, symbol, from_date, to_date, min_window, max_window, status, queued_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
	`, req.ID, req.Symbol, from, to, req.MinWindow, req.MaxWindow, req.Status, queuedAt)
	if err != nil {
		return fmt.Errorf("failed to enqueue backtest: %w", err)
	}
	return nil
}

// NextPendingBacktest retrieves the oldest PENDING request, nil when the
// queue is drained.
func (s *SQLiteStore) NextPendingBacktest(ctx context.Context) (*models.BacktestRequest, error) {
	var req models.BacktestRequest
	var from, to, completed sql.NullTime
	var errMsg sql.NullString
	err := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, from_date, to_date, min_window, max_window, status, error, queued_at, completed_at
		FROM backtest_queue WHERE status = ? ORDER BY queued_at ASC LIMIT 1
	`, models.BacktestPending).Scan(&req.ID, &req.Symbol, &from, &to, &req.MinWindow, &req.MaxWindow, &req.Status, &errMsg, &req.QueuedAt, &completed)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get pending backtest: %w", err)
	}
	if from.Valid {
		req.From = from.Time
	}
	if to.Valid {
		req.To = to.Time
	}
	if completed.Valid {
		req.CompletedAt = completed.Time
	}
	if errMsg.Valid {
		req.Error = errMsg.String
	}
	return &req, nil
}

// UpdateBacktestStatus transitions a queued request. Terminal states
// record the completion time.
func (s *SQLiteStore) UpdateBacktestStatus(ctx context.Context, id string, status models.BacktestStatus, errMsg string) error {
	var completedAt interface{}
	if status == models.BacktestDone || status == models.BacktestFailed {
		completedAt = time.Now()
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE backtest_queue SET status = ?, error = ?, completed_at = ? WHERE id = ?
	`, status, errMsg, completedAt, id)
	if err != nil {
		return fmt.Errorf("failed to update backtest status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check update result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("backtest %s not found", id)
	}
	return nil
}

// ============================================================================
// BacktestResults Methods
// ============================================================================

// SaveBacktestResult records a completed backtest summary.
func (s *SQLiteStore) SaveBacktestResult(ctx context.Context, result *models.BacktestResult) error {
	if result.ID == "" {
		result.ID = uuid.New().String()
	}
	var from, to interface{}
	if !result.From.IsZero() {
		from = result.From
	}
	if !result.To.IsZero() {
		to = result.To
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT OR REPLACE INTO backtest_results (id, symbol, trades, avg_return_pct, hit_rate, best_window, from_date, to_date, computed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`, result.ID, result.Symbol, result.Trades, result.AvgReturnPct, result.HitRate, result.BestWindow, from, to, result.ComputedAt)
	if err != nil {
		return fmt.Errorf("failed to save backtest result: %w", err)
	}
	return nil
}

// GetBacktestResult retrieves the most recent result for a symbol.
func (s *SQLiteStore) GetBacktestResult(ctx context.Context, symbol string) (*models.BacktestResult, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT id, symbol, trades, avg_return_pct, hit_rate, best_window, from_date, to_date, computed_at
		FROM backtest_results WHERE symbol = ? ORDER BY computed_at DESC LIMIT 1
	`, symbol)

	r, err := scanBacktestResult(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return r, nil
}

// ListBacktestResults retrieves results, newest first.
func (s *SQLiteStore) ListBacktestResults(ctx context.Context, limit int) ([]models.BacktestResult, error) {
	query := `
		SELECT id, symbol, trades, avg_return_pct, hit_rate, best_window, from_date, to_date, computed_at
		FROM backtest_results ORDER BY computed_at DESC`
	args := []interface{}{}
	if limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query backtest results: %w", err)
	}
	defer rows.Close()

	var results []models.BacktestResult
	for rows.Next() {
		r, err := scanBacktestResult(rows)
		if err != nil {
			return nil, err
		}
		results = append(results, *r)
	}

	return results, rows.Err()
}

func scanBacktestResult(r rowScanner) (*models.BacktestResult, error) {
	var res models.BacktestResult
	var from, to sql.NullTime
	if err := r.Scan(&res.ID, &res.Symbol, &res.Trades, &res.AvgReturnPct, &res.HitRate, &res.BestWindow, &from, &to, &res.ComputedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan backtest result: %w", err)
	}
	if from.Valid {
		res.From = from.Time
	}
	if to.Valid {
		res.To = to.Time
	}
	return &res, nil
}

// ============================================================================
// AlertsLog Methods
// ============================================================================

// LogAlert appends an alert to the audit trail.
func (s *SQLiteStore) LogAlert(ctx context.Context, alert *models.AlertEntry) error {
	if alert.ID == "" {
		alert.ID = uuid.New().String()
	}
	timestamp := alert.Timestamp
	if timestamp.IsZero() {
		timestamp = time.Now()
		alert.Timestamp = timestamp
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO alerts_log (id, timestamp, severity, source, message)
		VALUES (?, ?, ?, ?, ?)
	`, alert.ID, timestamp, alert.Severity, alert.Source, alert.Message)
	if err != nil {
		return fmt.Errorf("failed to log alert: %w", err)
	}
	return nil
}

// ListAlerts retrieves alerts, newest first.
func (s *SQLiteStore) ListAlerts(ctx context.Context, filter AlertFilter) ([]models.AlertEntry, error) {
	query := `SELECT id, timestamp, severity, COALESCE(source, ''), message FROM alerts_log WHERE 1=1`
	args := []interface{}{}

	if filter.Severity != "" {
		query += " AND severity = ?"
		args = append(args, filter.Severity)
	}
	if filter.Source != "" {
		query += " AND source = ?"
		args = append(args, filter.Source)
	}
	if !filter.Since.IsZero() {
		query += " AND timestamp >= ?"
		args = append(args, filter.Since)
	}

	query += " ORDER BY timestamp DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.AlertEntry
	for rows.Next() {
		var a models.AlertEntry
		if err := rows.Scan(&a.ID, &a.Timestamp, &a.Severity, &a.Source, &a.Message); err != nil {
			return nil, fmt.Errorf("failed to scan alert: %w", err)
		}
		alerts = append(alerts, a)
	}

	return alerts, rows.Err()
}
