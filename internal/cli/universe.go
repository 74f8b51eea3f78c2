package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"swing-trader/internal/models"
	"swing-trader/internal/store"
	"swing-trader/internal/strategy"
)

// addUniverseCommands adds universe management commands.
func addUniverseCommands(rootCmd *cobra.Command, app *App) {
	cmd := &cobra.Command{
		Use:   "universe",
		Short: "Manage the tracked stock universe",
		Long:  "Add, remove, list and validate symbols in the tracked universe.",
	}

	cmd.AddCommand(newUniverseAddCmd(app))
	cmd.AddCommand(newUniverseRemoveCmd(app))
	cmd.AddCommand(newUniverseListCmd(app))
	cmd.AddCommand(newUniverseValidateCmd(app))
	cmd.AddCommand(newMasterCmd(app))

	rootCmd.AddCommand(cmd)
}

func newUniverseAddCmd(app *App) *cobra.Command {
	var sector string
	cmd := &cobra.Command{
		Use:   "add SYMBOL...",
		Short: "Add symbols to the universe",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			symbols := normalizeSymbols(args)
			for _, sym := range symbols {
				info := models.TickerInfo{
					Symbol:  sym,
					Sector:  sector,
					AddedAt: time.Now(),
				}
				if err := s.UpsertTicker(ctx, &info); err != nil {
					return fmt.Errorf("add %s: %w", sym, err)
				}
			}

			// Reference data fills in on the next universe sync.
			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"added": symbols})
			}
			output.Success("Added %d symbol(s) to the universe", len(symbols))
			output.Dim("Run 'swing-trader data universe' to fetch reference data.")
			return nil
		},
	}
	cmd.Flags().StringVar(&sector, "sector", "", "GICS sector (filled by universe sync when omitted)")
	return cmd
}

func newUniverseRemoveCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "remove SYMBOL...",
		Short: "Remove symbols from the universe",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			symbols := normalizeSymbols(args)
			for _, sym := range symbols {
				if err := s.RemoveTicker(ctx, sym); err != nil {
					return fmt.Errorf("remove %s: %w", sym, err)
				}
				if err := s.RemoveCandidate(ctx, sym); err != nil {
					app.Logger.Warn().Err(err).Str("symbol", sym).Msg("Failed to drop tracker row")
				}
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{"removed": symbols})
			}
			output.Success("Removed %d symbol(s)", len(symbols))
			return nil
		},
	}
}

func newUniverseListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List the tracked universe",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}

			tickers, err := s.ListTickers(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(tickers)
			}

			if len(tickers) == 0 {
				output.Warning("Universe is empty. Add symbols with 'swing-trader universe add'.")
				return nil
			}

			output.Bold("Universe (%d symbols)", len(tickers))
			output.Printf("%-8s %-28s %-22s %12s  %s\n", "SYMBOL", "NAME", "SECTOR", "AVG $VOL", "FLAGS")
			for _, t := range tickers {
				flags := ""
				if t.IsADR {
					flags = "ADR"
				}
				if t.DedupeOf != "" {
					flags += " dup-of:" + t.DedupeOf
				}
				output.Printf("%-8s %-28s %-22s %12s  %s\n",
					t.Symbol, truncate(t.Name, 28), orDash(t.Sector),
					FormatCompact(t.AvgDollarVolume), flags)
			}
			return nil
		},
	}
}

func newUniverseValidateCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "validate [SYMBOL]",
		Short: "Run hygiene checks on the universe",
		Long: `Run the data hygiene gates (reference data, duplicate listing,
dollar volume, price floor, history depth) over one symbol or the
whole universe.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			validator := strategy.NewValidator(s, app.Config.Data)

			if len(args) == 1 {
				sym := normalizeSymbols(args)[0]
				v, err := validator.ValidateSymbol(ctx, sym)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(v)
				}
				printValidation(output, v)
				return nil
			}

			valid, err := validator.ValidateAll(ctx)
			if err != nil {
				return err
			}
			all, err := s.ListValidations(ctx, false)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(all)
			}

			output.Bold("Validation: %d of %d symbols pass", len(valid), len(all))
			for _, v := range all {
				if !v.Valid {
					printValidation(output, &v)
				}
			}
			return nil
		},
	}
}

func printValidation(output *Output, v *models.Validation) {
	if v.Valid {
		output.Success("%s: valid", v.Symbol)
	} else {
		output.Error("%s: %s", v.Symbol, v.Reason)
	}
}

func newMasterCmd(app *App) *cobra.Command {
	var refresh bool
	var status string
	cmd := &cobra.Command{
		Use:   "master",
		Short: "Show the master stock list",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			if refresh {
				master := strategy.NewMasterList(s, app.Config.Strategy, app.Config.Risk)
				n, err := master.Refresh(ctx, time.Now())
				if err != nil {
					return err
				}
				if !output.IsJSON() {
					output.Info("Refreshed %d master rows", n)
				}
			}

			rows, err := s.ListMaster(ctx, store.MasterFilter{Status: models.MasterStatus(status)})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(rows)
			}

			if len(rows) == 0 {
				output.Warning("Master list is empty. Run 'swing-trader universe master --refresh'.")
				return nil
			}
			output.Bold("Master List (%d rows)", len(rows))
			output.Printf("%-8s %-10s %9s %7s %8s %9s %8s  %-8s %-6s\n",
				"SYMBOL", "STATUS", "CLOSE", "RSI14", "%B", "MACD-H", "ATR20", "ER-SAFE", "SECTOR")
			for _, r := range rows {
				erSafe := "yes"
				if !r.EarningsSafe {
					erSafe = output.Red("no")
				}
				sector := "open"
				if !r.SectorOpen {
					sector = output.Yellow("full")
				}
				output.Printf("%-8s %-10s %9.2f %7.1f %8.3f %9.3f %8.2f  %-8s %-6s\n",
					r.Symbol, r.Status, r.LastClose, r.RSI14, r.PercentB, r.MACDHist, r.ATR20, erSafe, sector)
			}
			return nil
		},
	}
	cmd.Flags().BoolVar(&refresh, "refresh", false, "recompute the master list before listing")
	cmd.Flags().StringVar(&status, "status", "", "filter by status (ACTIVE, EXCLUDED, DEFERRED)")
	return cmd
}

// truncate shortens a string to max runes.
func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	if max <= 3 {
		return s[:max]
	}
	return s[:max-3] + "..."
}
