package cli

import (
	"time"

	"github.com/spf13/cobra"

	"swing-trader/internal/models"
	"swing-trader/internal/strategy"
)

// addPipelineCommands adds staging pipeline commands.
func addPipelineCommands(rootCmd *cobra.Command, app *App) {
	tracker := &cobra.Command{
		Use:   "tracker",
		Short: "Oversold tracker",
		Long:  "Evaluate signals and move symbols through the staging pipeline.",
	}
	tracker.AddCommand(newTrackerUpdateCmd(app))
	tracker.AddCommand(newTrackerListCmd(app))
	rootCmd.AddCommand(tracker)

	watchlist := &cobra.Command{
		Use:   "watchlist",
		Short: "Entry watchlist",
		Long:  "Build and inspect the gated, sized entry watchlist.",
	}
	watchlist.AddCommand(newWatchlistBuildCmd(app))
	watchlist.AddCommand(newWatchlistListCmd(app))
	rootCmd.AddCommand(watchlist)

	queue := &cobra.Command{
		Use:   "queue",
		Short: "Next-cycle queue",
		Long:  "Inspect and release entries deferred by an entry gate.",
	}
	queue.AddCommand(newQueueListCmd(app))
	queue.AddCommand(newQueueReleaseCmd(app))
	rootCmd.AddCommand(queue)
}

func newTrackerUpdateCmd(app *App) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "update [SYMBOL...]",
		Short: "Re-evaluate signals and restage candidates",
		Long: `Re-evaluate RSI, %B and MACD hook signals against cached bars and
move symbols through the pipeline. Without --all, only symbols whose
recheck time has arrived plus any explicit arguments are evaluated.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			tracker := strategy.NewTracker(s, strategy.NewSignalEvaluator(app.Config.Strategy), app.Config.Strategy)

			var symbols []string
			if len(args) > 0 {
				symbols = normalizeSymbols(args)
			} else if all {
				symbols, err = app.universeSymbols(ctx, nil)
				if err != nil {
					return err
				}
			} else {
				due, err := tracker.Due(ctx, time.Now())
				if err != nil {
					return err
				}
				for _, c := range due {
					symbols = append(symbols, c.Symbol)
				}
			}

			from := time.Now().AddDate(0, 0, -app.Config.Data.LookbackDays)
			updated := make([]models.Candidate, 0, len(symbols))
			dropped := 0
			for _, sym := range symbols {
				bars, err := s.GetBars(ctx, sym, from, time.Now())
				if err != nil {
					return err
				}
				candidate, err := tracker.UpdateSymbol(ctx, sym, bars)
				if err != nil {
					return err
				}
				if candidate == nil {
					dropped++
					continue
				}
				updated = append(updated, *candidate)
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"evaluated": len(symbols),
					"tracked":   updated,
					"dropped":   dropped,
				})
			}
			output.Success("Evaluated %d symbol(s): %d tracked, %d dropped", len(symbols), len(updated), dropped)
			printCandidates(output, updated)
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "evaluate the whole universe, not just due candidates")
	return cmd
}

func newTrackerListCmd(app *App) *cobra.Command {
	var stage string
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List tracked candidates",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}

			candidates, err := s.ListCandidates(cmd.Context(), models.Stage(stage))
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(candidates)
			}
			if len(candidates) == 0 {
				output.Dim("No tracked candidates.")
				return nil
			}
			output.Bold("Oversold Tracker (%d candidates)", len(candidates))
			printCandidates(output, candidates)
			return nil
		},
	}
	cmd.Flags().StringVar(&stage, "stage", "", "filter by stage (OVERSOLD, BOUNCE_PENDING, ENTRY_READY)")
	return cmd
}

func printCandidates(output *Output, candidates []models.Candidate) {
	if len(candidates) == 0 {
		return
	}
	output.Printf("%-8s %-16s %6s  %-24s %-17s %s\n",
		"SYMBOL", "STAGE", "SCORE", "MISSING", "NEXT CHECK", "FIRST SEEN")
	for _, c := range candidates {
		output.Printf("%-8s %-16s %6.2f  %-24s %-17s %s\n",
			c.Symbol, output.StageTag(string(c.Stage)), c.BounceScore,
			FormatSignals(c.MissingSignals), FormatDateTime(c.NextCheckAt), FormatDate(c.FirstSeen))
	}
}

func newWatchlistBuildCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "build",
		Short: "Rebuild the entry watchlist",
		Long: `Run every entry-ready candidate through the entry gates (kill
switch, wash sale, earnings buffer, sector cap) and size the
survivors. Gated symbols are deferred to the next-cycle queue.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			equity, err := app.resolveEquity(ctx, cmd)
			if err != nil {
				return err
			}
			gatekeeper := strategy.NewGatekeeper(s, app.Config.Strategy, app.Config.Risk)
			entries, err := gatekeeper.BuildWatchlist(ctx, equity)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(entries)
			}
			output.Success("Watchlist rebuilt: %d entry candidate(s)", len(entries))
			printWatchlist(output, entries)
			return nil
		},
	}
	cmd.Flags().String("equity", "", "account equity in dollars (defaults to the last recorded value)")
	return cmd
}

func newWatchlistListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "Show the entry watchlist",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			entries, err := s.ListEntryWatchlist(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(entries)
			}
			if len(entries) == 0 {
				output.Dim("Entry watchlist is empty.")
				return nil
			}
			output.Bold("Entry Watchlist (%d)", len(entries))
			printWatchlist(output, entries)
			return nil
		},
	}
}

func printWatchlist(output *Output, entries []models.EntryCandidate) {
	if len(entries) == 0 {
		return
	}
	output.Printf("%-8s %6s  %-19s %10s %8s  %s\n",
		"SYMBOL", "SCORE", "ENTRY ZONE", "SIZE", "SHARES", "SIGNALS")
	for _, e := range entries {
		zone := FormatUSD(e.EntryZoneLow) + " - " + FormatUSD(e.EntryZoneHigh)
		output.Printf("%-8s %6.2f  %-19s %10s %8s  %s\n",
			e.Symbol, e.BounceScore, zone,
			FormatDecimalUSD(e.ProposedSize), FormatShares(e.ProposedShares),
			FormatSignals(e.Signals))
	}
}

func newQueueListCmd(app *App) *cobra.Command {
	var all bool
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List deferred entries",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			deferred, err := s.ListDeferred(cmd.Context(), !all)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(deferred)
			}
			if len(deferred) == 0 {
				output.Dim("Next-cycle queue is empty.")
				return nil
			}
			output.Bold("Next-Cycle Queue (%d)", len(deferred))
			output.Printf("%-38s %-8s %-16s %-17s %s\n", "ID", "SYMBOL", "REASON", "QUEUED", "DETAIL")
			for _, d := range deferred {
				released := ""
				if !d.ReleasedAt.IsZero() {
					released = output.DimText(" (released " + FormatDate(d.ReleasedAt) + ")")
				}
				output.Printf("%-38s %-8s %-16s %-17s %s%s\n",
					d.ID, d.Symbol, d.Reason, FormatDateTime(d.QueuedAt), d.Detail, released)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&all, "all", false, "include released entries")
	return cmd
}

func newQueueReleaseCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "release ID",
		Short: "Release a deferred entry back to the pipeline",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			if err := s.ReleaseDeferred(cmd.Context(), args[0]); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"released": args[0]})
			}
			output.Success("Released %s", args[0])
			return nil
		},
	}
}
