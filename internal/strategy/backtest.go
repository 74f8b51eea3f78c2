package strategy

import (
	"context"
	"time"

	"swing-trader/internal/config"
	"swing-trader/internal/errors"
	"swing-trader/internal/logging"
	"swing-trader/internal/models"
	"swing-trader/internal/store"
)

// Backtester drains the backtest queue, replaying the signal rules over
// cached history to find the best hold window per symbol.
type Backtester struct {
	store     store.DataStore
	strategy  config.StrategyConfig
	evaluator *SignalEvaluator
}

// NewBacktester creates a backtest runner.
func NewBacktester(s store.DataStore, cfg config.StrategyConfig) *Backtester {
	return &Backtester{
		store:     s,
		strategy:  cfg,
		evaluator: NewSignalEvaluator(cfg),
	}
}

// DrainQueue runs every pending request in queue order. Failures mark
// the request FAILED and the drain continues.
func (b *Backtester) DrainQueue(ctx context.Context) (int, error) {
	log := logging.WithOperation(logging.FromContext(ctx), "backtest_drain")
	processed := 0

	for {
		select {
		case <-ctx.Done():
			return processed, ctx.Err()
		default:
		}

		req, err := b.store.NextPendingBacktest(ctx)
		if err != nil {
			return processed, err
		}
		if req == nil {
			return processed, nil
		}

		if err := b.store.UpdateBacktestStatus(ctx, req.ID, models.BacktestRunning, ""); err != nil {
			return processed, err
		}

		result, runErr := b.Run(ctx, req)
		if runErr != nil {
			log.Warn().Str("symbol", req.Symbol).Err(runErr).Msg("backtest failed")
			if err := b.store.UpdateBacktestStatus(ctx, req.ID, models.BacktestFailed, runErr.Error()); err != nil {
				return processed, err
			}
			continue
		}

		if err := b.store.SaveBacktestResult(ctx, result); err != nil {
			return processed, err
		}
		if err := b.store.UpdateBacktestStatus(ctx, req.ID, models.BacktestDone, ""); err != nil {
			return processed, err
		}
		processed++
	}
}

// Run simulates the strategy over cached history for one request and
// summarizes per-window performance.
func (b *Backtester) Run(ctx context.Context, req *models.BacktestRequest) (*models.BacktestResult, error) {
	from, to := req.From, req.To
	if to.IsZero() {
		to = time.Now()
	}
	if from.IsZero() {
		from = to.AddDate(-2, 0, 0)
	}
	minWindow, maxWindow := req.MinWindow, req.MaxWindow
	if minWindow <= 0 {
		minWindow = b.strategy.SellWindowStart
	}
	if maxWindow < minWindow {
		maxWindow = b.strategy.SellWindowEnd
	}

	bars, err := b.store.GetBars(ctx, req.Symbol, from, to)
	if err != nil {
		return nil, err
	}
	if len(bars) <= maxWindow {
		return nil, errors.ErrInsufficientData
	}

	entries := b.findEntries(bars, maxWindow)
	if len(entries) == 0 {
		return &models.BacktestResult{
			Symbol:     req.Symbol,
			BestWindow: minWindow,
			From:       from,
			To:         to,
			ComputedAt: time.Now(),
		}, nil
	}

	bestWindow, bestAvg, bestHits := minWindow, 0.0, 0.0
	for window := minWindow; window <= maxWindow; window++ {
		sum, hits := 0.0, 0
		for _, entry := range entries {
			ret := b.simulate(bars, entry, window)
			sum += ret
			if ret > 0 {
				hits++
			}
		}
		avg := sum / float64(len(entries))
		if window == minWindow || avg > bestAvg {
			bestWindow = window
			bestAvg = avg
			bestHits = float64(hits) / float64(len(entries)) * 100
		}
	}

	return &models.BacktestResult{
		Symbol:       req.Symbol,
		Trades:       len(entries),
		AvgReturnPct: bestAvg,
		HitRate:      bestHits,
		BestWindow:   bestWindow,
		From:         from,
		To:           to,
		ComputedAt:   time.Now(),
	}, nil
}

// findEntries returns bar indices where all three signals fired with
// enough runway left to exit at the longest window.
func (b *Backtester) findEntries(bars []models.DailyBar, maxWindow int) []int {
	var entries []int
	for i := 1; i < len(bars)-maxWindow; i++ {
		result := b.evaluator.Evaluate(bars[:i+1])
		if result.AllConfirmed() {
			entries = append(entries, i)
		}
	}
	return entries
}

// simulate replays one entry: exit at the stop if it prints first,
// otherwise at the close of the hold window. Returns percent.
func (b *Backtester) simulate(bars []models.DailyBar, entry, window int) float64 {
	entryPrice := bars[entry].Close
	if entryPrice <= 0 {
		return 0
	}
	stopPrice := entryPrice * (1 + b.strategy.StopLossPct/100)

	end := entry + window
	if end >= len(bars) {
		end = len(bars) - 1
	}
	for i := entry + 1; i <= end; i++ {
		if bars[i].Close <= stopPrice {
			return b.strategy.StopLossPct
		}
	}
	return (bars[end].Close - entryPrice) / entryPrice * 100
}
