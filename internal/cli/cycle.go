package cli

import (
	"fmt"
	"sort"
	"time"

	"github.com/spf13/cobra"

	"swing-trader/internal/analysis/indicators"
	"swing-trader/internal/strategy"
	"swing-trader/pkg/utils"
)

// addCycleCommands adds the daily cadence commands.
func addCycleCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "cycle",
		Short: "Daily operational cycle",
		Long: `Run the daily cadence: pre-open data refresh, intraday staging and
watchlist work, pre-close exit and risk checks, and the overnight
backtest drain.`,
	}
	cmd.AddCommand(newCyclePhaseCmd(app, "run", "Run all four phases in order"))
	cmd.AddCommand(newCyclePhaseCmd(app, strategy.PhasePreOpen, "Sync data, validate and refresh the master list"))
	cmd.AddCommand(newCyclePhaseCmd(app, strategy.PhaseIntraday, "Restage candidates and rebuild the watchlist"))
	cmd.AddCommand(newCyclePhaseCmd(app, strategy.PhasePreClose, "Evaluate exits and record equity"))
	cmd.AddCommand(newCyclePhaseCmd(app, strategy.PhaseOvernight, "Drain the backtest queue"))
	rootCmd.AddCommand(cmd)
}

// buildCycle wires the full component set for the daily cycle.
func (a *App) buildCycle() (*strategy.Cycle, error) {
	s, err := a.requireStore()
	if err != nil {
		return nil, err
	}
	syncer, err := a.requireSyncer()
	if err != nil {
		return nil, err
	}

	exporter, err := a.snapshotExporter()
	if err != nil {
		return nil, err
	}
	builder, err := a.digestBuilder()
	if err != nil {
		return nil, err
	}

	cfg := a.Config
	deps := strategy.CycleDeps{
		Store:      s,
		Syncer:     syncer,
		Engine:     indicators.NewEngine(0),
		Validator:  strategy.NewValidator(s, cfg.Data),
		Tracker:    strategy.NewTracker(s, strategy.NewSignalEvaluator(cfg.Strategy), cfg.Strategy),
		Master:     strategy.NewMasterList(s, cfg.Strategy, cfg.Risk),
		Gatekeeper: strategy.NewGatekeeper(s, cfg.Strategy, cfg.Risk),
		Exits:      strategy.NewExitEvaluator(s, cfg.Strategy),
		Risk:       strategy.NewRiskMonitor(s, cfg.Risk),
		Backtester: strategy.NewBacktester(s, cfg.Strategy),
		Snapshot:   exporter,
		Digest:     builder,
	}
	return strategy.NewCycle(deps, cfg.Data), nil
}

func newCyclePhaseCmd(app *App, phase, short string) *cobra.Command {
	cmd := &cobra.Command{
		Use:   phase,
		Short: short,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			cycle, err := app.buildCycle()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if !output.IsJSON() {
				warnOffSession(output, phase)
			}

			var reports []*strategy.PhaseReport
			switch phase {
			case strategy.PhasePreOpen:
				report, runErr := cycle.PreOpen(ctx)
				reports, err = []*strategy.PhaseReport{report}, runErr
			case strategy.PhaseIntraday:
				equity, eqErr := app.resolveEquity(ctx, cmd)
				if eqErr != nil {
					return eqErr
				}
				report, runErr := cycle.Intraday(ctx, equity)
				reports, err = []*strategy.PhaseReport{report}, runErr
			case strategy.PhasePreClose:
				equity, eqErr := app.resolveEquity(ctx, cmd)
				if eqErr != nil {
					return eqErr
				}
				report, runErr := cycle.PreClose(ctx, equity)
				reports, err = []*strategy.PhaseReport{report}, runErr
			case strategy.PhaseOvernight:
				report, runErr := cycle.Overnight(ctx)
				reports, err = []*strategy.PhaseReport{report}, runErr
			default:
				equity, eqErr := app.resolveEquity(ctx, cmd)
				if eqErr != nil {
					return eqErr
				}
				reports, err = cycle.Run(ctx, equity)
			}

			if output.IsJSON() {
				if jsonErr := output.JSON(phaseSummaries(reports)); jsonErr != nil {
					return jsonErr
				}
				return err
			}
			for _, report := range reports {
				printPhaseReport(output, report)
			}
			if err != nil {
				output.Error("Cycle stopped: %v", err)
			}
			return err
		},
	}
	if phase == "run" || phase == strategy.PhaseIntraday || phase == strategy.PhasePreClose {
		cmd.Flags().String("equity", "", "account equity in dollars (defaults to the last recorded value)")
	}
	return cmd
}

// warnOffSession notes when a phase is run outside the market session
// it is designed for. Phases still run, the cadence is advisory.
func warnOffSession(output *Output, phase string) {
	session := utils.CurrentSession()
	now := time.Now()
	switch phase {
	case strategy.PhasePreOpen:
		if session != utils.SessionPreOpen && session != utils.SessionClosed {
			output.Warning("Market is %s, pre-open normally runs before the bell", session)
		}
	case strategy.PhaseIntraday:
		if !utils.IsMarketOpen() {
			output.Warning("Market is %s, intraday staging normally runs during the session (next open %s)",
				session, utils.NextMarketOpen(now).Format("Mon Jan 2 15:04 MST"))
		}
	case strategy.PhasePreClose:
		if session != utils.SessionPreClose {
			output.Warning("Market is %s, pre-close checks normally run in the last half hour (next close %s)",
				session, utils.NextMarketClose(now).Format("Mon Jan 2 15:04 MST"))
		}
	}
}

type phaseSummary struct {
	Phase    string         `json:"phase"`
	Duration string         `json:"duration"`
	Counts   map[string]int `json:"counts"`
	Errors   []string       `json:"errors,omitempty"`
}

func phaseSummaries(reports []*strategy.PhaseReport) []phaseSummary {
	out := make([]phaseSummary, 0, len(reports))
	for _, r := range reports {
		summary := phaseSummary{
			Phase:    r.Phase,
			Duration: r.Finished.Sub(r.Started).Round(1e6).String(),
			Counts:   r.Counts,
		}
		for _, e := range r.Errors {
			summary.Errors = append(summary.Errors, e.Error())
		}
		out = append(out, summary)
	}
	return out
}

func printPhaseReport(output *Output, r *strategy.PhaseReport) {
	output.Bold("Phase %s (%s)", r.Phase, r.Finished.Sub(r.Started).Round(1e6))
	keys := make([]string, 0, len(r.Counts))
	for k := range r.Counts {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		output.Printf("  %-20s %d\n", k+":", r.Counts[k])
	}
	for _, err := range r.Errors {
		output.Warning("  %s", fmt.Sprintf("%v", err))
	}
}
