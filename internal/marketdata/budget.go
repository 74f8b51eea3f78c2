package marketdata

import (
	"context"
	"sync"
	"time"

	"swing-trader/internal/errors"
	"swing-trader/internal/models"
	"swing-trader/internal/store"
)

// Budget meters provider calls against the daily allowance. Once the
// allowance is gone the fallback flag latches for the rest of the day
// and callers degrade to cached data.
type Budget struct {
	store store.DataStore
	limit int

	mu    sync.Mutex
	today *models.APIBudget
}

// NewBudget creates a budget tracker with the given daily call limit.
func NewBudget(s store.DataStore, limit int) *Budget {
	return &Budget{store: s, limit: limit}
}

// Acquire reserves n provider calls for today. It returns
// ErrBudgetExhausted once the allowance is used up, after latching the
// fallback flag.
func (b *Budget) Acquire(ctx context.Context, n int) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	budget, err := b.loadLocked(ctx)
	if err != nil {
		return err
	}

	if budget.Fallback || budget.Remaining() < n {
		if !budget.Fallback {
			budget.Fallback = true
			if err := b.store.SaveBudget(ctx, budget); err != nil {
				return err
			}
		}
		return errors.ErrBudgetExhausted
	}

	budget.CallsUsed += n
	return b.store.SaveBudget(ctx, budget)
}

// Status returns a copy of today's budget row.
func (b *Budget) Status(ctx context.Context) (models.APIBudget, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	budget, err := b.loadLocked(ctx)
	if err != nil {
		return models.APIBudget{}, err
	}
	return *budget, nil
}

// InFallback reports whether today's allowance is exhausted.
func (b *Budget) InFallback(ctx context.Context) bool {
	status, err := b.Status(ctx)
	if err != nil {
		return false
	}
	return status.Fallback
}

func (b *Budget) loadLocked(ctx context.Context) (*models.APIBudget, error) {
	today := time.Now().UTC().Truncate(24 * time.Hour)
	if b.today != nil && b.today.Date.Equal(today) {
		return b.today, nil
	}

	budget, err := b.store.GetBudget(ctx, today)
	if err != nil {
		return nil, err
	}
	if budget == nil {
		budget = &models.APIBudget{Date: today, CallLimit: b.limit}
		if err := b.store.SaveBudget(ctx, budget); err != nil {
			return nil, err
		}
	}
	b.today = budget
	return budget, nil
}
