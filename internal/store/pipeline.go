package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"swing-trader/internal/models"
)

// marshalStrings encodes a string slice as a JSON column value. A nil
// slice round-trips as nil rather than "null".
func marshalStrings(ss []string) (string, error) {
	if len(ss) == 0 {
		return "[]", nil
	}
	data, err := json.Marshal(ss)
	if err != nil {
		return "", fmt.Errorf("failed to marshal strings: %w", err)
	}
	return string(data), nil
}

func unmarshalStrings(raw string) ([]string, error) {
	if raw == "" || raw == "[]" {
		return nil, nil
	}
	var ss []string
	if err := json.Unmarshal([]byte(raw), &ss); err != nil {
		return nil, fmt.Errorf("failed to unmarshal strings: %w", err)
	}
	return ss, nil
}

// ============================================================================
// OversoldTracker Methods
// ============================================================================

// UpsertCandidate saves an oversold tracker row, preserving FirstSeen
// when the symbol is already tracked.
func (s *SQLiteStore) UpsertCandidate(ctx context.Context, c *models.Candidate) error {
	missing, err := marshalStrings(c.MissingSignals)
	if err != nil {
		return err
	}

	firstSeen := c.FirstSeen
	if firstSeen.IsZero() {
		firstSeen = time.Now()
	}
	var nextCheck interface{}
	if !c.NextCheckAt.IsZero() {
		nextCheck = c.NextCheckAt
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO candidates (symbol, stage, missing_signals, bounce_score, next_check_at, first_seen, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(symbol) DO UPDATE SET
			stage = excluded.stage,
			missing_signals = excluded.missing_signals,
			bounce_score = excluded.bounce_score,
			next_check_at = excluded.next_check_at,
			updated_at = excluded.updated_at
	`, c.Symbol, c.Stage, missing, c.BounceScore, nextCheck, firstSeen, c.UpdatedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert candidate: %w", err)
	}
	return nil
}

// GetCandidate retrieves the tracker row for a symbol.
func (s *SQLiteStore) GetCandidate(ctx context.Context, symbol string) (*models.Candidate, error) {
	row := s.db.QueryRowContext(ctx, `
		SELECT symbol, stage, COALESCE(missing_signals, ''), bounce_score, next_check_at, first_seen, updated_at
		FROM candidates WHERE symbol = ?
	`, symbol)

	c, err := scanCandidate(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return c, nil
}

// ListCandidates retrieves tracker rows, highest bounce score first.
// An empty stage matches every row.
func (s *SQLiteStore) ListCandidates(ctx context.Context, stage models.Stage) ([]models.Candidate, error) {
	query := `
		SELECT symbol, stage, COALESCE(missing_signals, ''), bounce_score, next_check_at, first_seen, updated_at
		FROM candidates`
	args := []interface{}{}
	if stage != "" {
		query += ` WHERE stage = ?`
		args = append(args, stage)
	}
	query += ` ORDER BY bounce_score DESC, symbol ASC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query candidates: %w", err)
	}
	defer rows.Close()

	var candidates []models.Candidate
	for rows.Next() {
		c, err := scanCandidate(rows)
		if err != nil {
			return nil, err
		}
		candidates = append(candidates, *c)
	}

	return candidates, rows.Err()
}

// RemoveCandidate drops a symbol from the tracker.
func (s *SQLiteStore) RemoveCandidate(ctx context.Context, symbol string) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM candidates WHERE symbol = ?`, symbol)
	if err != nil {
		return fmt.Errorf("failed to remove candidate: %w", err)
	}
	return nil
}

func scanCandidate(r rowScanner) (*models.Candidate, error) {
	var c models.Candidate
	var missing string
	var nextCheck sql.NullTime
	if err := r.Scan(&c.Symbol, &c.Stage, &missing, &c.BounceScore, &nextCheck, &c.FirstSeen, &c.UpdatedAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to scan candidate: %w", err)
	}
	signals, err := unmarshalStrings(missing)
	if err != nil {
		return nil, err
	}
	c.MissingSignals = signals
	if nextCheck.Valid {
		c.NextCheckAt = nextCheck.Time
	}
	return &c, nil
}

// ============================================================================
// EntryWatchlist Methods
// ============================================================================

// ReplaceEntryWatchlist atomically replaces the watchlist with a new set
// of entries. The watchlist is rebuilt whole every evaluation, stale rows
// must not survive.
func (s *SQLiteStore) ReplaceEntryWatchlist(ctx context.Context, entries []models.EntryCandidate) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM entry_watchlist`); err != nil {
		return fmt.Errorf("failed to clear watchlist: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO entry_watchlist (symbol, signals, bounce_score, entry_zone_low, entry_zone_high, proposed_size, proposed_shares, earnings_safe, added_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, e := range entries {
		signals, err := marshalStrings(e.Signals)
		if err != nil {
			return err
		}
		earningsSafe := 0
		if e.EarningsSafe {
			earningsSafe = 1
		}
		addedAt := e.AddedAt
		if addedAt.IsZero() {
			addedAt = time.Now()
		}
		_, err = stmt.ExecContext(ctx, e.Symbol, signals, e.BounceScore, e.EntryZoneLow, e.EntryZoneHigh,
			e.ProposedSize.String(), e.ProposedShares, earningsSafe, addedAt)
		if err != nil {
			return fmt.Errorf("failed to insert watchlist entry: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// ListEntryWatchlist retrieves the watchlist, highest bounce score first.
func (s *SQLiteStore) ListEntryWatchlist(ctx context.Context) ([]models.EntryCandidate, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT symbol, COALESCE(signals, ''), bounce_score, entry_zone_low, entry_zone_high, COALESCE(proposed_size, '0'), proposed_shares, earnings_safe, added_at
		FROM entry_watchlist ORDER BY bounce_score DESC, symbol ASC
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query watchlist: %w", err)
	}
	defer rows.Close()

	var entries []models.EntryCandidate
	for rows.Next() {
		var e models.EntryCandidate
		var signals, size string
		var earningsSafe int
		if err := rows.Scan(&e.Symbol, &signals, &e.BounceScore, &e.EntryZoneLow, &e.EntryZoneHigh, &size, &e.ProposedShares, &earningsSafe, &e.AddedAt); err != nil {
			return nil, fmt.Errorf("failed to scan watchlist entry: %w", err)
		}
		parsed, err := unmarshalStrings(signals)
		if err != nil {
			return nil, err
		}
		e.Signals = parsed
		e.ProposedSize, err = decimal.NewFromString(size)
		if err != nil {
			return nil, fmt.Errorf("failed to parse proposed size: %w", err)
		}
		e.EarningsSafe = earningsSafe == 1
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// ============================================================================
// NextCycleQueue Methods
// ============================================================================

// DeferEntry queues a blocked entry for the next cycle.
func (s *SQLiteStore) DeferEntry(ctx context.Context, entry *models.DeferredEntry) error {
	if entry.ID == "" {
		entry.ID = uuid.New().String()
	}
	queuedAt := entry.QueuedAt
	if queuedAt.IsZero() {
		queuedAt = time.Now()
		entry.QueuedAt = queuedAt
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO next_cycle_queue (id, symbol, reason, detail, queued_at)
		VALUES (?, ?, ?, ?, ?)
	`, entry.ID, entry.Symbol, entry.Reason, entry.Detail, queuedAt)
	if err != nil {
		return fmt.Errorf("failed to defer entry: %w", err)
	}
	return nil
}

// ListDeferred retrieves queued entries, oldest first. With activeOnly,
// released entries are skipped.
func (s *SQLiteStore) ListDeferred(ctx context.Context, activeOnly bool) ([]models.DeferredEntry, error) {
	query := `SELECT id, symbol, reason, COALESCE(detail, ''), queued_at, released_at FROM next_cycle_queue`
	if activeOnly {
		query += ` WHERE released_at IS NULL`
	}
	query += ` ORDER BY queued_at ASC`

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query deferred entries: %w", err)
	}
	defer rows.Close()

	var entries []models.DeferredEntry
	for rows.Next() {
		var e models.DeferredEntry
		var released sql.NullTime
		if err := rows.Scan(&e.ID, &e.Symbol, &e.Reason, &e.Detail, &e.QueuedAt, &released); err != nil {
			return nil, fmt.Errorf("failed to scan deferred entry: %w", err)
		}
		if released.Valid {
			e.ReleasedAt = released.Time
		}
		entries = append(entries, e)
	}

	return entries, rows.Err()
}

// ReleaseDeferred marks a queued entry as processed.
func (s *SQLiteStore) ReleaseDeferred(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, `
		UPDATE next_cycle_queue SET released_at = ? WHERE id = ? AND released_at IS NULL
	`, time.Now(), id)
	if err != nil {
		return fmt.Errorf("failed to release deferred entry: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check release result: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("deferred entry %s not found or already released", id)
	}
	return nil
}
