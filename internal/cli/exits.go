package cli

import (
	"time"

	"github.com/spf13/cobra"

	"swing-trader/internal/models"
	"swing-trader/internal/store"
	"swing-trader/internal/strategy"
)

// addExitCommands adds exit monitor and earnings commands.
func addExitCommands(rootCmd *cobra.Command, app *App) {
	exits := &cobra.Command{
		Use:   "exits",
		Short: "Exit monitor",
		Long:  "Evaluate exit rules over the open book and inspect the results.",
	}
	exits.AddCommand(newExitsRunCmd(app))
	exits.AddCommand(newExitsListCmd(app))
	rootCmd.AddCommand(exits)

	earnings := &cobra.Command{
		Use:   "earnings",
		Short: "Earnings calendar",
		Long:  "Inspect tracked earnings dates and the delta audit log.",
	}
	earnings.AddCommand(newEarningsListCmd(app))
	earnings.AddCommand(newEarningsDeltasCmd(app))
	rootCmd.AddCommand(earnings)
}

func newExitsRunCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "run",
		Short: "Evaluate exit rules for every holding",
		Long: `Evaluate the sell window, stop loss, earnings exit buffer and
long-term carve rules against the latest closes and replace the
exit monitor with the results.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			evaluator := strategy.NewExitEvaluator(s, app.Config.Strategy)
			signals, err := evaluator.EvaluateAll(cmd.Context(), time.Now())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(signals)
			}
			actionable := 0
			for _, sig := range signals {
				if sig.Action != models.ActionHold {
					actionable++
				}
			}
			output.Success("Evaluated %d holding(s): %d actionable", len(signals), actionable)
			printExitSignals(output, signals, false)
			return nil
		},
	}
}

func newExitsListCmd(app *App) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "Show the exit monitor",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			signals, err := s.ListExitSignals(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(signals)
			}
			if len(signals) == 0 {
				output.Dim("Exit monitor is empty. Run 'swing-trader exits run'.")
				return nil
			}
			output.Bold("Exit Monitor (%d)", len(signals))
			printExitSignals(output, signals, !all)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include HOLD rows")
	return cmd
}

func printExitSignals(output *Output, signals []models.ExitSignal, hideHolds bool) {
	shown := 0
	for _, sig := range signals {
		if hideHolds && sig.Action == models.ActionHold {
			continue
		}
		if shown == 0 {
			output.Printf("%-8s %-7s %6s %8s %8s  %s\n",
				"SYMBOL", "ACTION", "DAYS", "RETURN", "TO-ER", "TRIGGERS")
		}
		shown++
		action := string(sig.Action)
		switch sig.Action {
		case models.ActionExit:
			action = output.Red(action)
		case models.ActionCarve:
			action = output.Green(action)
		case models.ActionTrim:
			action = output.Yellow(action)
		}
		output.Printf("%-8s %-7s %6d %8s %8s  %s\n",
			sig.Symbol, action, sig.DaysHeld,
			output.Signed(sig.ReturnPct, FormatPercent(sig.ReturnPct)),
			FormatDays(sig.DaysToEarnings), FormatSignals(sig.Triggers))
	}
	if shown == 0 {
		output.Dim("Nothing actionable, all holdings are HOLD.")
	}
}

func newEarningsListCmd(app *App) *cobra.Command {
	var horizon int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List upcoming earnings",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			days := horizon
			if days == 0 {
				days = app.Config.Digest.EarningsHorizonDays
			}
			events, err := s.ListEarningsWithin(cmd.Context(), days)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(events)
			}
			if len(events) == 0 {
				output.Dim("No earnings within %d days.", days)
				return nil
			}

			output.Bold("Earnings within %d days (%d)", days, len(events))
			output.Printf("%-8s %-13s %-8s %6s  %s\n", "SYMBOL", "DATE", "TIMING", "IN", "MOVED")
			now := time.Now()
			for _, e := range events {
				moved := ""
				if e.DeltaFlag {
					moved = output.Yellow("yes")
				}
				output.Printf("%-8s %-13s %-8s %6s  %s\n",
					e.Symbol, FormatDate(e.Date), e.Timing, FormatDays(e.DaysUntil(now)), moved)
			}
			return nil
		},
	}
	cmd.Flags().IntVar(&horizon, "days", 0, "horizon in days (default: digest horizon)")
	return cmd
}

func newEarningsDeltasCmd(app *App) *cobra.Command {
	var symbol string
	var limit int
	cmd := &cobra.Command{
		Use:   "deltas",
		Short: "Show the earnings delta log",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			deltas, err := s.ListEarningsDeltas(cmd.Context(), store.DeltaFilter{Symbol: symbol, Limit: limit})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(deltas)
			}
			if len(deltas) == 0 {
				output.Dim("No earnings date changes on record.")
				return nil
			}

			output.Bold("Earnings Delta Log (%d)", len(deltas))
			output.Printf("%-8s %-13s %-13s %s\n", "SYMBOL", "OLD", "NEW", "LOGGED")
			for _, d := range deltas {
				output.Printf("%-8s %-13s %-13s %s\n",
					d.Symbol, FormatDate(d.OldDate), FormatDate(d.NewDate), FormatDateTime(d.LoggedAt))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}
