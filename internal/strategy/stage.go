package strategy

import (
	"context"
	"time"

	"swing-trader/internal/config"
	"swing-trader/internal/logging"
	"swing-trader/internal/models"
	"swing-trader/internal/store"
)

// Tracker maintains the oversold tracker: the staging pipeline that
// carries a symbol from first oversold print to entry-ready.
type Tracker struct {
	store     store.DataStore
	evaluator *SignalEvaluator
	recheck   time.Duration
}

// NewTracker creates a staging tracker.
func NewTracker(s store.DataStore, evaluator *SignalEvaluator, cfg config.StrategyConfig) *Tracker {
	return &Tracker{
		store:     s,
		evaluator: evaluator,
		recheck:   time.Duration(cfg.RecheckHours) * time.Hour,
	}
}

// stageFor maps a signal count to a pipeline stage. All three signals
// are required for entry readiness; anything less is still cooking.
func stageFor(result *SignalResult) models.Stage {
	switch len(result.Confirmed()) {
	case 3:
		return models.StageEntryReady
	case 2:
		return models.StageBouncePending
	default:
		return models.StageOversold
	}
}

// UpdateSymbol re-evaluates one symbol against its latest bars and
// moves it through the pipeline. A symbol with no signals left is
// dropped from the tracker; the return is nil in that case.
func (t *Tracker) UpdateSymbol(ctx context.Context, symbol string, bars []models.DailyBar) (*models.Candidate, error) {
	log := logging.WithSymbol(logging.FromContext(ctx), symbol)
	result := t.evaluator.Evaluate(bars)

	existing, err := t.store.GetCandidate(ctx, symbol)
	if err != nil {
		return nil, err
	}

	if !result.AnyConfirmed() {
		if existing != nil {
			if err := t.store.RemoveCandidate(ctx, symbol); err != nil {
				return nil, err
			}
			logging.LogStageChange(log, symbol, string(existing.Stage), "dropped", nil)
		}
		return nil, nil
	}

	now := time.Now()
	candidate := &models.Candidate{
		Symbol:         symbol,
		Stage:          stageFor(result),
		MissingSignals: result.Missing(),
		BounceScore:    result.BounceScore,
		UpdatedAt:      now,
	}
	if candidate.Stage != models.StageEntryReady {
		candidate.NextCheckAt = now.Add(t.recheck)
	}
	if existing != nil {
		candidate.FirstSeen = existing.FirstSeen
	} else {
		candidate.FirstSeen = now
	}

	if err := t.store.UpsertCandidate(ctx, candidate); err != nil {
		return nil, err
	}

	if existing == nil {
		logging.LogStageChange(log, symbol, "", string(candidate.Stage), candidate.MissingSignals)
	} else if existing.Stage != candidate.Stage {
		logging.LogStageChange(log, symbol, string(existing.Stage), string(candidate.Stage), candidate.MissingSignals)
	}

	return candidate, nil
}

// Due returns tracked candidates whose recheck time has arrived.
// Entry-ready candidates are always due.
func (t *Tracker) Due(ctx context.Context, now time.Time) ([]models.Candidate, error) {
	all, err := t.store.ListCandidates(ctx, "")
	if err != nil {
		return nil, err
	}

	var due []models.Candidate
	for _, c := range all {
		if c.Stage == models.StageEntryReady || c.NextCheckAt.IsZero() || !c.NextCheckAt.After(now) {
			due = append(due, c)
		}
	}
	return due, nil
}
