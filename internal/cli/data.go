package cli

import (
	"context"
	"time"

	"github.com/spf13/cobra"

	"swing-trader/internal/analysis/indicators"
	"swing-trader/internal/marketdata"
	"swing-trader/internal/models"
)

// addDataCommands adds market data commands.
func addDataCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "data",
		Short: "Market data sync and budget",
		Long:  "Sync daily bars, earnings dates and reference data, and inspect the API call budget.",
	}

	cmd.AddCommand(newDataSyncCmd(app))
	cmd.AddCommand(newDataEarningsCmd(app))
	cmd.AddCommand(newDataUniverseCmd(app))
	cmd.AddCommand(newDataIndicatorsCmd(app))
	cmd.AddCommand(newDataBudgetCmd(app))

	rootCmd.AddCommand(cmd)
}

// universeSymbols returns the symbols to operate on: explicit args when
// given, otherwise the full universe.
func (a *App) universeSymbols(ctx context.Context, args []string) ([]string, error) {
	if len(args) > 0 {
		return normalizeSymbols(args), nil
	}
	s, err := a.requireStore()
	if err != nil {
		return nil, err
	}
	tickers, err := s.ListTickers(ctx)
	if err != nil {
		return nil, err
	}
	symbols := make([]string, 0, len(tickers))
	for _, t := range tickers {
		symbols = append(symbols, t.Symbol)
	}
	return symbols, nil
}

func newDataSyncCmd(app *App) *cobra.Command {
	var withIndicators bool
	cmd := &cobra.Command{
		Use:   "sync [SYMBOL...]",
		Short: "Sync daily bars",
		Long: `Fetch missing daily bars for the given symbols, or the whole
universe. Symbols already fresh for today are skipped without
spending API budget.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			syncer, err := app.requireSyncer()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			symbols, err := app.universeSymbols(ctx, args)
			if err != nil {
				return err
			}
			result, err := syncer.SyncBars(ctx, symbols)
			if err != nil {
				return err
			}

			if withIndicators {
				if err := app.recomputeIndicators(ctx, symbols); err != nil {
					return err
				}
			}

			if output.IsJSON() {
				return output.JSON(syncSummary(result))
			}
			printSyncResult(output, "Bars", result)
			return nil
		},
	}
	cmd.Flags().BoolVar(&withIndicators, "indicators", true, "recompute indicators after syncing")
	return cmd
}

func newDataEarningsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "earnings [SYMBOL...]",
		Short: "Refresh next-earnings dates",
		Long: `Refresh the next earnings date for the given symbols, or the whole
universe. Date moves are flagged and appended to the delta log.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			syncer, err := app.requireSyncer()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			symbols, err := app.universeSymbols(ctx, args)
			if err != nil {
				return err
			}
			result, err := syncer.RefreshEarnings(ctx, symbols)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(syncSummary(result))
			}
			printSyncResult(output, "Earnings", result)
			return nil
		},
	}
}

func newDataUniverseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "universe [SYMBOL...]",
		Short: "Refresh reference data",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			syncer, err := app.requireSyncer()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			symbols, err := app.universeSymbols(ctx, args)
			if err != nil {
				return err
			}
			result, err := syncer.SyncUniverse(ctx, symbols)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(syncSummary(result))
			}
			printSyncResult(output, "Reference data", result)
			return nil
		},
	}
}

func newDataIndicatorsCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "indicators [SYMBOL...]",
		Short: "Recompute cached indicators",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			ctx := cmd.Context()
			symbols, err := app.universeSymbols(ctx, args)
			if err != nil {
				return err
			}
			if err := app.recomputeIndicators(ctx, symbols); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]int{"symbols": len(symbols)})
			}
			output.Success("Indicators recomputed for %d symbol(s)", len(symbols))
			return nil
		},
	}
}

// recomputeIndicators loads cached bars, runs the indicator pass and
// writes the enriched bars back.
func (a *App) recomputeIndicators(ctx context.Context, symbols []string) error {
	s, err := a.requireStore()
	if err != nil {
		return err
	}

	from := time.Now().AddDate(0, 0, -a.Config.Data.LookbackDays)
	bySymbol := make(map[string][]models.DailyBar, len(symbols))
	for _, sym := range symbols {
		bars, err := s.GetBars(ctx, sym, from, time.Now())
		if err != nil {
			return err
		}
		if len(bars) > 0 {
			bySymbol[sym] = bars
		}
	}

	engine := indicators.NewEngine(0)
	for sym, applyErr := range engine.ApplyAll(ctx, bySymbol) {
		if applyErr != nil {
			a.Logger.Warn().Err(applyErr).Str("symbol", sym).Msg("Indicator pass failed")
			delete(bySymbol, sym)
		}
	}
	for sym, bars := range bySymbol {
		if err := s.SaveBars(ctx, sym, bars); err != nil {
			return err
		}
	}
	return nil
}

func newDataBudgetCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "budget",
		Short: "Show today's API call budget",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			budget, err := s.GetBudget(ctx, time.Now())
			if err != nil {
				return err
			}
			if budget == nil {
				budget = &models.APIBudget{
					Date:      time.Now(),
					CallLimit: app.Config.Data.DailyCallLimit,
				}
			}
			if output.IsJSON() {
				return output.JSON(budget)
			}

			output.Bold("API Budget %s", FormatDate(budget.Date))
			output.Printf("  Used:      %d / %d\n", budget.CallsUsed, budget.CallLimit)
			output.Printf("  Remaining: %d\n", budget.Remaining())
			if budget.Fallback {
				output.Warning("  Fallback engaged: sync is serving cached data only")
			}
			return nil
		},
	}
}

// syncSummary flattens a sync result for JSON output.
func syncSummary(r *marketdata.SyncResult) map[string]interface{} {
	failed := make(map[string]string, len(r.Failed))
	for sym, err := range r.Failed {
		failed[sym] = err.Error()
	}
	return map[string]interface{}{
		"synced":   r.Synced,
		"skipped":  r.Skipped,
		"fallback": r.Fallback,
		"failed":   failed,
	}
}

func printSyncResult(output *Output, what string, r *marketdata.SyncResult) {
	output.Bold("%s sync", what)
	output.Printf("  Synced:   %d\n", r.Synced)
	output.Printf("  Skipped:  %d (already fresh)\n", r.Skipped)
	if r.Fallback > 0 {
		output.Warning("  Fallback: %d (API budget exhausted, cached data served)", r.Fallback)
	}
	for sym, err := range r.Failed {
		output.Error("  %s: %v", sym, err)
	}
}
