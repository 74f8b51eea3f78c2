package cli

import (
	"time"

	"github.com/spf13/cobra"

	"swing-trader/internal/models"
	"swing-trader/internal/strategy"
)

// addBacktestCommands adds historical bounce analysis commands.
func addBacktestCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "backtest",
		Short: "Historical bounce analysis",
		Long: `Queue, run and inspect per-symbol backtests of the oversold
bounce setup over cached history.`,
	}
	cmd.AddCommand(newBacktestEnqueueCmd(app))
	cmd.AddCommand(newBacktestRunCmd(app))
	cmd.AddCommand(newBacktestDrainCmd(app))
	cmd.AddCommand(newBacktestResultsCmd(app))
	rootCmd.AddCommand(cmd)
}

func newBacktestEnqueueCmd(app *App) *cobra.Command {
	var years int
	cmd := &cobra.Command{
		Use:   "enqueue SYMBOL...",
		Short: "Queue symbols for the overnight backtest drain",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			to := time.Now()
			from := to.AddDate(-years, 0, 0)
			symbols := normalizeSymbols(args)
			for _, sym := range symbols {
				req := &models.BacktestRequest{
					Symbol: sym,
					From:   from,
					To:     to,
				}
				if err := s.EnqueueBacktest(ctx, req); err != nil {
					return err
				}
			}
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"queued": symbols})
			}
			output.Success("Queued %d backtest(s)", len(symbols))
			return nil
		},
	}
	cmd.Flags().IntVar(&years, "years", 2, "history depth in years")
	return cmd
}

func newBacktestRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run SYMBOL",
		Short: "Run a backtest immediately",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}

			backtester := strategy.NewBacktester(s, app.Config.Strategy)
			result, err := backtester.Run(cmd.Context(), &models.BacktestRequest{
				Symbol: normalizeSymbols(args)[0],
			})
			if err != nil {
				return err
			}
			if err := s.SaveBacktestResult(cmd.Context(), result); err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(result)
			}
			printBacktestResult(output, result)
			return nil
		},
	}
}

func newBacktestDrainCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "drain",
		Short: "Run every pending queued backtest",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			backtester := strategy.NewBacktester(s, app.Config.Strategy)
			n, err := backtester.DrainQueue(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]int{"completed": n})
			}
			output.Success("Drained %d backtest(s)", n)
			return nil
		},
	}
}

func newBacktestResultsCmd(app *App) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "results [SYMBOL]",
		Short: "Show backtest results",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if len(args) == 1 {
				result, err := s.GetBacktestResult(ctx, normalizeSymbols(args)[0])
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(result)
				}
				printBacktestResult(output, result)
				return nil
			}

			results, err := s.ListBacktestResults(ctx, limit)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(results)
			}
			if len(results) == 0 {
				output.Dim("No backtest results.")
				return nil
			}
			output.Bold("Backtest Results (%d)", len(results))
			output.Printf("%-8s %7s %10s %9s %8s  %s\n",
				"SYMBOL", "TRADES", "AVG RET", "HIT RATE", "WINDOW", "COMPUTED")
			for _, r := range results {
				output.Printf("%-8s %7d %10s %8.1f%% %7dd  %s\n",
					r.Symbol, r.Trades,
					output.Signed(r.AvgReturnPct, FormatPercent(r.AvgReturnPct)),
					r.HitRate, r.BestWindow, FormatDate(r.ComputedAt))
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}

func printBacktestResult(output *Output, r *models.BacktestResult) {
	output.Bold("Backtest %s (%s to %s)", r.Symbol, FormatDate(r.From), FormatDate(r.To))
	output.Printf("  Trades:      %d\n", r.Trades)
	output.Printf("  Avg Return:  %s\n", output.Signed(r.AvgReturnPct, FormatPercent(r.AvgReturnPct)))
	output.Printf("  Hit Rate:    %.1f%%\n", r.HitRate)
	output.Printf("  Best Window: %d days\n", r.BestWindow)
}
