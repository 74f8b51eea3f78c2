package strategy

import (
	"context"
	"os"
	"path/filepath"
	"time"

	"github.com/shopspring/decimal"

	"swing-trader/internal/analysis/indicators"
	"swing-trader/internal/config"
	"swing-trader/internal/digest"
	"swing-trader/internal/logging"
	"swing-trader/internal/marketdata"
	"swing-trader/internal/models"
	"swing-trader/internal/snapshot"
	"swing-trader/internal/store"
)

// Phase names of the daily cycle.
const (
	PhasePreOpen   = "pre-open"
	PhaseIntraday  = "intraday"
	PhasePreClose  = "pre-close"
	PhaseOvernight = "overnight"
)

// Cycle sequences the daily operational cadence: data refresh before
// the open, staging and watchlist work intraday, exit and risk checks
// before the close, and queue maintenance overnight.
type Cycle struct {
	store      store.DataStore
	syncer     *marketdata.Syncer
	engine     *indicators.Engine
	validator  *Validator
	tracker    *Tracker
	master     *MasterList
	gatekeeper *Gatekeeper
	exits      *ExitEvaluator
	riskMon    *RiskMonitor
	backtester *Backtester
	exporter   *snapshot.Exporter
	digest     *digest.Builder
	lookback   int
}

// CycleDeps bundles the components the cycle sequences.
type CycleDeps struct {
	Store      store.DataStore
	Syncer     *marketdata.Syncer
	Engine     *indicators.Engine
	Validator  *Validator
	Tracker    *Tracker
	Master     *MasterList
	Gatekeeper *Gatekeeper
	Exits      *ExitEvaluator
	Risk       *RiskMonitor
	Backtester *Backtester
	Snapshot   *snapshot.Exporter
	Digest     *digest.Builder
}

// NewCycle creates the daily cycle runner.
func NewCycle(deps CycleDeps, cfg config.DataConfig) *Cycle {
	return &Cycle{
		store:      deps.Store,
		syncer:     deps.Syncer,
		engine:     deps.Engine,
		validator:  deps.Validator,
		tracker:    deps.Tracker,
		master:     deps.Master,
		gatekeeper: deps.Gatekeeper,
		exits:      deps.Exits,
		riskMon:    deps.Risk,
		backtester: deps.Backtester,
		exporter:   deps.Snapshot,
		digest:     deps.Digest,
		lookback:   cfg.LookbackDays,
	}
}

// PhaseReport summarizes one phase run.
type PhaseReport struct {
	Phase    string
	Started  time.Time
	Finished time.Time
	Counts   map[string]int
	Errors   []error
}

func newReport(phase string) *PhaseReport {
	return &PhaseReport{Phase: phase, Started: time.Now(), Counts: make(map[string]int)}
}

func (r *PhaseReport) done() *PhaseReport {
	r.Finished = time.Now()
	return r
}

// PreOpen refreshes bars, earnings, and indicators, reruns hygiene, and
// rebuilds the master list. Deferred entries from yesterday are
// released back into consideration.
func (c *Cycle) PreOpen(ctx context.Context) (*PhaseReport, error) {
	ctx = logging.WithLogger(ctx, logging.WithPhase(logging.FromContext(ctx), PhasePreOpen))
	report := newReport(PhasePreOpen)

	tickers, err := c.store.ListTickers(ctx)
	if err != nil {
		return report.done(), err
	}
	symbols := make([]string, len(tickers))
	for i, t := range tickers {
		symbols[i] = t.Symbol
	}

	sync, err := c.syncer.SyncBars(ctx, symbols)
	if err != nil {
		return report.done(), err
	}
	report.Counts["bars_synced"] = sync.Synced
	report.Counts["bars_fallback"] = sync.Fallback
	for _, e := range sync.Failed {
		report.Errors = append(report.Errors, e)
	}

	earn, err := c.syncer.RefreshEarnings(ctx, symbols)
	if err != nil {
		return report.done(), err
	}
	report.Counts["earnings_refreshed"] = earn.Synced

	if err := c.applyIndicators(ctx, symbols); err != nil {
		return report.done(), err
	}

	valid, err := c.validator.ValidateAll(ctx)
	if err != nil {
		return report.done(), err
	}
	report.Counts["valid_symbols"] = len(valid)

	deferred, err := c.store.ListDeferred(ctx, true)
	if err != nil {
		return report.done(), err
	}
	for _, d := range deferred {
		if err := c.store.ReleaseDeferred(ctx, d.ID); err != nil {
			report.Errors = append(report.Errors, err)
		}
	}
	report.Counts["deferred_released"] = len(deferred)

	rows, err := c.master.Refresh(ctx, time.Now())
	if err != nil {
		return report.done(), err
	}
	report.Counts["master_rows"] = rows

	return report.done(), nil
}

// Intraday re-evaluates the staging pipeline for every valid symbol and
// rebuilds the entry watchlist against current equity.
func (c *Cycle) Intraday(ctx context.Context, equity decimal.Decimal) (*PhaseReport, error) {
	ctx = logging.WithLogger(ctx, logging.WithPhase(logging.FromContext(ctx), PhaseIntraday))
	report := newReport(PhaseIntraday)

	validations, err := c.store.ListValidations(ctx, true)
	if err != nil {
		return report.done(), err
	}

	now := time.Now()
	from := now.AddDate(0, 0, -c.lookback)
	tracked := 0
	for _, v := range validations {
		bars, err := c.store.GetBars(ctx, v.Symbol, from, now)
		if err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}
		candidate, err := c.tracker.UpdateSymbol(ctx, v.Symbol, bars)
		if err != nil {
			report.Errors = append(report.Errors, err)
			continue
		}
		if candidate != nil {
			tracked++
		}
	}
	report.Counts["tracked"] = tracked

	entries, err := c.gatekeeper.BuildWatchlist(ctx, equity)
	if err != nil {
		return report.done(), err
	}
	report.Counts["watchlist"] = len(entries)

	return report.done(), nil
}

// PreClose evaluates exits and records the equity point that drives the
// kill switch.
func (c *Cycle) PreClose(ctx context.Context, equity decimal.Decimal) (*PhaseReport, error) {
	ctx = logging.WithLogger(ctx, logging.WithPhase(logging.FromContext(ctx), PhasePreClose))
	report := newReport(PhasePreClose)

	signals, err := c.exits.EvaluateAll(ctx, time.Now())
	if err != nil {
		return report.done(), err
	}
	actionable := 0
	for _, s := range signals {
		if s.Action != models.ActionHold {
			actionable++
		}
	}
	report.Counts["exit_signals"] = len(signals)
	report.Counts["actionable"] = actionable

	state, err := c.riskMon.RecordEquity(ctx, equity, time.Now())
	if err != nil {
		return report.done(), err
	}
	if state.KillSwitch == models.KillSwitchEngaged {
		report.Counts["kill_switch"] = 1
	}

	return report.done(), nil
}

// Overnight drains the backtest queue, exports the JSON snapshot, and
// renders the digest next to it.
func (c *Cycle) Overnight(ctx context.Context) (*PhaseReport, error) {
	ctx = logging.WithLogger(ctx, logging.WithPhase(logging.FromContext(ctx), PhaseOvernight))
	report := newReport(PhaseOvernight)

	processed, err := c.backtester.DrainQueue(ctx)
	report.Counts["backtests"] = processed
	if err != nil {
		return report.done(), err
	}

	if c.exporter != nil {
		dir, err := c.exporter.Export(ctx, time.Now())
		if err != nil {
			return report.done(), err
		}
		report.Counts["snapshot_exported"] = 1

		if c.digest != nil {
			body, err := c.digest.Build(ctx, time.Now())
			if err != nil {
				return report.done(), err
			}
			if err := os.WriteFile(filepath.Join(dir, "digest.md"), []byte(body), 0o644); err != nil {
				return report.done(), err
			}
			report.Counts["digest_built"] = 1
		}
	}

	return report.done(), nil
}

// Run executes the full cadence in order. A phase error stops the run;
// the phases completed so far are returned with it.
func (c *Cycle) Run(ctx context.Context, equity decimal.Decimal) ([]*PhaseReport, error) {
	var reports []*PhaseReport

	preOpen, err := c.PreOpen(ctx)
	reports = append(reports, preOpen)
	if err != nil {
		return reports, err
	}

	intraday, err := c.Intraday(ctx, equity)
	reports = append(reports, intraday)
	if err != nil {
		return reports, err
	}

	preClose, err := c.PreClose(ctx, equity)
	reports = append(reports, preClose)
	if err != nil {
		return reports, err
	}

	overnight, err := c.Overnight(ctx)
	reports = append(reports, overnight)
	if err != nil {
		return reports, err
	}

	return reports, nil
}

// applyIndicators recomputes the indicator columns for each symbol's
// cached bars and writes them back.
func (c *Cycle) applyIndicators(ctx context.Context, symbols []string) error {
	now := time.Now()
	from := now.AddDate(0, 0, -c.lookback)

	series := make(map[string][]models.DailyBar, len(symbols))
	for _, symbol := range symbols {
		bars, err := c.store.GetBars(ctx, symbol, from, now)
		if err != nil {
			return err
		}
		if len(bars) > 0 {
			series[symbol] = bars
		}
	}

	failures := c.engine.ApplyAll(ctx, series)
	for symbol, bars := range series {
		if failures[symbol] != nil {
			continue
		}
		if err := c.store.SaveBars(ctx, symbol, bars); err != nil {
			return err
		}
	}
	return nil
}
