package marketdata

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/google/uuid"

	"swing-trader/internal/errors"
	"swing-trader/internal/logging"
	"swing-trader/internal/models"
	"swing-trader/internal/store"
	"swing-trader/pkg/utils"
)

// Syncer refreshes the local bar cache and the earnings monitor from the
// provider, metered by the daily call budget.
type Syncer struct {
	provider Provider
	store    store.DataStore
	budget   *Budget
	lookback int // days of history to request on a cold cache
}

// NewSyncer creates a sync pipeline.
func NewSyncer(provider Provider, s store.DataStore, budget *Budget, lookbackDays int) *Syncer {
	return &Syncer{
		provider: provider,
		store:    s,
		budget:   budget,
		lookback: lookbackDays,
	}
}

// syncTarget returns the date the bar cache must reach to count as
// fresh. On weekends there is no bar for today, so a cache current
// through the last trading day is already fresh.
func syncTarget(now time.Time) time.Time {
	if wd := now.In(utils.EasternLocation).Weekday(); wd == time.Saturday || wd == time.Sunday {
		prev := utils.PreviousTradingDay(now)
		return time.Date(prev.Year(), prev.Month(), prev.Day(), 0, 0, 0, 0, time.UTC)
	}
	return now.UTC().Truncate(24 * time.Hour)
}

// SyncResult summarizes one sync pass.
type SyncResult struct {
	Synced   int
	Skipped  int // already fresh, no call spent
	Fallback int // budget exhausted, served from cache
	Failed   map[string]error
}

// SyncBars refreshes the daily bar cache for each symbol. Symbols whose
// cache already holds the latest trading day's bar are skipped without
// spending budget. Once the budget is exhausted the remaining symbols
// are left on cached data and counted as fallback.
func (s *Syncer) SyncBars(ctx context.Context, symbols []string) (*SyncResult, error) {
	log := logging.WithOperation(logging.FromContext(ctx), "sync_bars")
	result := &SyncResult{Failed: make(map[string]error)}
	now := time.Now()
	today := now.UTC().Truncate(24 * time.Hour)
	target := syncTarget(now)

	for _, symbol := range symbols {
		freshness, err := s.store.GetBarFreshness(ctx, symbol)
		if err != nil {
			result.Failed[symbol] = err
			continue
		}
		if !freshness.Before(target) {
			result.Skipped++
			continue
		}

		if err := s.budget.Acquire(ctx, 1); err != nil {
			if stderrors.Is(err, errors.ErrBudgetExhausted) {
				result.Fallback++
				continue
			}
			result.Failed[symbol] = err
			continue
		}

		from := freshness.AddDate(0, 0, 1)
		if freshness.IsZero() {
			from = today.AddDate(0, 0, -s.lookback)
		}

		bars, err := s.provider.DailyBars(ctx, symbol, from, today)
		if err != nil {
			result.Failed[symbol] = err
			log.Warn().Str("symbol", symbol).Err(err).Msg("bar sync failed")
			continue
		}
		if err := s.store.SaveBars(ctx, symbol, bars); err != nil {
			result.Failed[symbol] = err
			continue
		}
		result.Synced++
	}

	if result.Fallback > 0 {
		log.Warn().Int("fallback", result.Fallback).Msg("call budget exhausted, serving cached bars")
	}
	if err := s.store.SetLastSync("bars", time.Now()); err != nil {
		return result, err
	}
	return result, nil
}

// RefreshEarnings refreshes the earnings monitor for each symbol. A date
// that moved since the last refresh is recorded in the append-only delta
// log and flags the symbol for review.
func (s *Syncer) RefreshEarnings(ctx context.Context, symbols []string) (*SyncResult, error) {
	log := logging.WithOperation(logging.FromContext(ctx), "refresh_earnings")
	result := &SyncResult{Failed: make(map[string]error)}

	for _, symbol := range symbols {
		if err := s.budget.Acquire(ctx, 1); err != nil {
			if stderrors.Is(err, errors.ErrBudgetExhausted) {
				result.Fallback++
				continue
			}
			result.Failed[symbol] = err
			continue
		}

		event, err := s.provider.NextEarnings(ctx, symbol)
		if err != nil {
			result.Failed[symbol] = err
			log.Warn().Str("symbol", symbol).Err(err).Msg("earnings refresh failed")
			continue
		}
		if event == nil {
			result.Skipped++
			continue
		}

		previous, err := s.store.GetEarnings(ctx, symbol)
		if err != nil {
			result.Failed[symbol] = err
			continue
		}

		if previous != nil && !previous.Date.IsZero() && !previous.Date.Equal(event.Date) {
			event.DeltaFlag = true
			delta := &models.EarningsDelta{
				ID:       uuid.New().String(),
				Symbol:   symbol,
				OldDate:  previous.Date,
				NewDate:  event.Date,
				LoggedAt: time.Now(),
			}
			if err := s.store.AppendEarningsDelta(ctx, delta); err != nil {
				result.Failed[symbol] = err
				continue
			}
			logging.LogEarningsDelta(log, symbol, previous.Date, event.Date)
			if err := s.store.LogAlert(ctx, &models.AlertEntry{
				Severity: models.AlertWarning,
				Source:   "earnings",
				Message:  symbol + " earnings date moved",
			}); err != nil {
				result.Failed[symbol] = err
				continue
			}
		}

		if err := s.store.SaveEarnings(ctx, event); err != nil {
			result.Failed[symbol] = err
			continue
		}
		result.Synced++
	}

	if err := s.store.SetLastSync("earnings", time.Now()); err != nil {
		return result, err
	}
	return result, nil
}

// SyncUniverse refreshes ticker reference data for each symbol.
func (s *Syncer) SyncUniverse(ctx context.Context, symbols []string) (*SyncResult, error) {
	result := &SyncResult{Failed: make(map[string]error)}

	for _, symbol := range symbols {
		if err := s.budget.Acquire(ctx, 1); err != nil {
			if stderrors.Is(err, errors.ErrBudgetExhausted) {
				result.Fallback++
				continue
			}
			result.Failed[symbol] = err
			continue
		}

		info, err := s.provider.TickerDetails(ctx, symbol)
		if err != nil {
			result.Failed[symbol] = err
			continue
		}
		if err := s.store.UpsertTicker(ctx, info); err != nil {
			result.Failed[symbol] = err
			continue
		}
		result.Synced++
	}

	if err := s.store.SetLastSync("universe", time.Now()); err != nil {
		return result, err
	}
	return result, nil
}
