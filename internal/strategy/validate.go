package strategy

import (
	"context"
	"fmt"
	"time"

	"swing-trader/internal/config"
	"swing-trader/internal/models"
	"swing-trader/internal/store"
)

// minHistoryBars is the bar count below which indicators cannot be
// trusted and the symbol fails hygiene.
const minHistoryBars = 60

// Validator runs the universe hygiene gate: liquidity, price floor,
// ADR dedupe, and history sufficiency.
type Validator struct {
	store           store.DataStore
	minDollarVolume float64
	minPrice        float64
}

// NewValidator creates a hygiene validator from data config.
func NewValidator(s store.DataStore, cfg config.DataConfig) *Validator {
	return &Validator{
		store:           s,
		minDollarVolume: cfg.MinDollarVolume,
		minPrice:        cfg.MinPrice,
	}
}

// ValidateSymbol runs the hygiene checks for one symbol and persists
// the outcome.
func (v *Validator) ValidateSymbol(ctx context.Context, symbol string) (*models.Validation, error) {
	result := &models.Validation{Symbol: symbol, CheckedAt: time.Now()}

	info, err := v.store.GetTicker(ctx, symbol)
	if err != nil {
		return nil, err
	}

	switch {
	case info == nil:
		result.Reason = "no reference data"
	case info.DedupeOf != "":
		result.Reason = fmt.Sprintf("duplicate listing of %s", info.DedupeOf)
	case info.AvgDollarVolume < v.minDollarVolume:
		result.Reason = fmt.Sprintf("avg dollar volume %.0f below %.0f", info.AvgDollarVolume, v.minDollarVolume)
	default:
		latest, err := v.store.GetLatestBar(ctx, symbol)
		if err != nil {
			return nil, err
		}
		switch {
		case latest == nil:
			result.Reason = "no price history"
		case latest.Close < v.minPrice:
			result.Reason = fmt.Sprintf("price %.2f below %.2f floor", latest.Close, v.minPrice)
		default:
			from := time.Now().AddDate(-1, 0, 0)
			bars, err := v.store.GetBars(ctx, symbol, from, time.Now())
			if err != nil {
				return nil, err
			}
			if len(bars) < minHistoryBars {
				result.Reason = fmt.Sprintf("only %d bars of history, need %d", len(bars), minHistoryBars)
			} else {
				result.Valid = true
			}
		}
	}

	if err := v.store.SaveValidation(ctx, result); err != nil {
		return nil, err
	}
	return result, nil
}

// ValidateAll runs the hygiene gate for the whole universe and returns
// the symbols that passed.
func (v *Validator) ValidateAll(ctx context.Context) ([]string, error) {
	tickers, err := v.store.ListTickers(ctx)
	if err != nil {
		return nil, err
	}

	var valid []string
	for _, info := range tickers {
		result, err := v.ValidateSymbol(ctx, info.Symbol)
		if err != nil {
			return nil, err
		}
		if result.Valid {
			valid = append(valid, info.Symbol)
		}
	}
	return valid, nil
}
