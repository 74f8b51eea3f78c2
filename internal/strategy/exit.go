package strategy

import (
	"context"
	"time"

	"swing-trader/internal/config"
	"swing-trader/internal/logging"
	"swing-trader/internal/models"
	"swing-trader/internal/store"
)

// ExitEvaluator computes the exit monitor: per-holding triggers and the
// recommended action under the holding's rule set.
type ExitEvaluator struct {
	store    store.DataStore
	strategy config.StrategyConfig
}

// NewExitEvaluator creates an exit evaluator.
func NewExitEvaluator(s store.DataStore, cfg config.StrategyConfig) *ExitEvaluator {
	return &ExitEvaluator{store: s, strategy: cfg}
}

// EvaluateAll refreshes last closes from the bar cache, evaluates every
// open holding, and replaces the exit monitor with the result.
func (e *ExitEvaluator) EvaluateAll(ctx context.Context, now time.Time) ([]models.ExitSignal, error) {
	log := logging.WithOperation(logging.FromContext(ctx), "evaluate_exits")

	holdings, err := e.store.ListHoldings(ctx)
	if err != nil {
		return nil, err
	}

	var signals []models.ExitSignal
	for i := range holdings {
		h := &holdings[i]

		bar, err := e.store.GetLatestBar(ctx, h.Symbol)
		if err != nil {
			return nil, err
		}
		if bar != nil && bar.Close > 0 && bar.Close != h.LastClose {
			h.LastClose = bar.Close
			if err := e.store.SaveHolding(ctx, h); err != nil {
				return nil, err
			}
		}

		earnings, err := e.store.GetEarnings(ctx, h.Symbol)
		if err != nil {
			return nil, err
		}

		signal := e.evaluate(h, earnings, now)
		signals = append(signals, *signal)

		if signal.Action != models.ActionHold {
			logging.LogExitSignal(log, h.Symbol, string(signal.Action), signal.Triggers, signal.ReturnPct)
		}
	}

	if err := e.store.ReplaceExitSignals(ctx, signals); err != nil {
		return nil, err
	}
	return signals, nil
}

// evaluate computes the exit state of one holding. Standard lots follow
// the full rule set; long-term lots only surface their periodic review.
func (e *ExitEvaluator) evaluate(h *models.Holding, earnings *models.EarningsEvent, now time.Time) *models.ExitSignal {
	signal := &models.ExitSignal{
		Symbol:         h.Symbol,
		HoldingID:      h.ID,
		Action:         models.ActionHold,
		RuleSet:        h.RuleSet,
		DaysHeld:       h.DaysHeld(now),
		ReturnPct:      h.ReturnPct(),
		DaysToEarnings: earnings.DaysUntil(now),
		EvaluatedAt:    now,
	}

	if h.RuleSet == models.RuleSetLongTerm {
		return signal
	}

	// The stop is a hard exit regardless of where the lot sits in its
	// window. The earnings buffer forces the lot out too, but a winner
	// at the carve threshold carves instead so part of the gain stays.
	if signal.ReturnPct <= e.strategy.StopLossPct {
		signal.Triggers = append(signal.Triggers, models.TriggerStopLoss)
		signal.Action = models.ActionExit
		return signal
	}
	if signal.DaysToEarnings >= 0 && signal.DaysToEarnings < e.strategy.ExitBufferDays {
		signal.Triggers = append(signal.Triggers, models.TriggerEarningsBuffer)
		if signal.ReturnPct >= e.strategy.LTHGainThreshold {
			signal.Action = models.ActionCarve
		} else {
			signal.Action = models.ActionExit
		}
		return signal
	}

	switch {
	case signal.DaysHeld >= e.strategy.SellWindowEnd:
		signal.Triggers = append(signal.Triggers, models.TriggerWindowEnd)
		signal.Action = models.ActionExit
	case signal.DaysHeld >= e.strategy.SellWindowStart:
		signal.Triggers = append(signal.Triggers, models.TriggerSellWindow)
		if signal.ReturnPct >= e.strategy.LTHGainThreshold {
			signal.Action = models.ActionCarve
		} else {
			signal.Action = models.ActionExit
		}
	}

	return signal
}

// ReviewDueLongTerm returns long-term lots whose scheduled review date
// has arrived.
func (e *ExitEvaluator) ReviewDueLongTerm(ctx context.Context, now time.Time) ([]models.LongTermHolding, error) {
	lots, err := e.store.ListLongTermHoldings(ctx)
	if err != nil {
		return nil, err
	}

	var due []models.LongTermHolding
	for _, lot := range lots {
		if !lot.NextReviewAt.IsZero() && !lot.NextReviewAt.After(now) {
			due = append(due, lot)
		}
	}
	return due, nil
}
