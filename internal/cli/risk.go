package cli

import (
	"time"

	"github.com/spf13/cobra"

	"swing-trader/internal/models"
	"swing-trader/internal/store"
	"swing-trader/internal/strategy"
)

// addRiskCommands adds risk guardrail and alert commands.
func addRiskCommands(rootCmd *cobra.Command, app *App) {
	risk := &cobra.Command{
		Use:   "risk",
		Short: "Portfolio risk guardrails",
		Long:  "Record equity, inspect drawdown and kill switch state, and release the kill switch.",
	}
	risk.AddCommand(newRiskStatusCmd(app))
	risk.AddCommand(newRiskRecordCmd(app))
	risk.AddCommand(newRiskReleaseCmd(app))
	rootCmd.AddCommand(risk)

	alerts := &cobra.Command{
		Use:   "alerts",
		Short: "Warning audit trail",
	}
	alerts.AddCommand(newAlertsListCmd(app))
	rootCmd.AddCommand(alerts)
}

func newRiskStatusCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Show risk state and sector exposure",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			ctx := cmd.Context()

			state, err := s.GetRiskState(ctx)
			if err != nil {
				return err
			}
			exposure, err := s.SectorExposure(ctx, app.Config.Risk.SectorCap)
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(map[string]interface{}{
					"risk":    state,
					"sectors": exposure,
				})
			}

			output.Bold("Risk State")
			if state == nil {
				output.Dim("  No equity on record yet. Run 'swing-trader risk record --equity'.")
			} else {
				output.Printf("  Equity:       %s\n", FormatDecimalUSD(state.Equity))
				output.Printf("  10d Drawdown: %s\n", output.Signed(state.Drawdown10D, FormatPercent(state.Drawdown10D)))
				if state.KillSwitch == models.KillSwitchEngaged {
					output.Error("  Kill Switch:  ENGAGED (new entries blocked)")
					if state.Note != "" {
						output.Printf("  Note:         %s\n", state.Note)
					}
				} else {
					output.Printf("  Kill Switch:  OFF\n")
				}
				output.Printf("  As Of:        %s\n", FormatDate(state.Date))
			}

			output.Println()
			output.Bold("Sector Exposure (cap %d)", app.Config.Risk.SectorCap)
			if len(exposure) == 0 {
				output.Dim("  No open positions.")
			}
			for _, e := range exposure {
				if e.Full() {
					output.Warning("  %-22s %d/%d FULL", e.Sector, e.OpenCount, e.Cap)
				} else {
					output.Printf("  %-22s %d/%d\n", e.Sector, e.OpenCount, e.Cap)
				}
			}
			return nil
		},
	}
}

func newRiskRecordCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "record",
		Short: "Record end-of-day equity and update guardrails",
		Long: `Append today's equity to the curve, recompute the 10-day drawdown
and engage the kill switch when the drawdown threshold prints.`,
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
			monitor := strategy.NewRiskMonitor(s, app.Config.Risk)
			state, err := monitor.RecordEquity(ctx, equity, time.Now())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(state)
			}
			output.Success("Equity recorded: %s", FormatDecimalUSD(state.Equity))
			output.Printf("  10d Drawdown: %s\n", output.Signed(state.Drawdown10D, FormatPercent(state.Drawdown10D)))
			if state.KillSwitch == models.KillSwitchEngaged {
				output.Error("  Kill switch ENGAGED, new entries are blocked until a manual release")
			}
			return nil
		},
	}
	cmd.Flags().String("equity", "", "account equity in dollars (defaults to the last recorded value)")
	return cmd
}

func newRiskReleaseCmd(app *App) *cobra.Command {
	var note string
	cmd := &cobra.Command{
		Use:   "release",
		Short: "Manually release the kill switch",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			monitor := strategy.NewRiskMonitor(s, app.Config.Risk)
			state, err := monitor.ReleaseKillSwitch(cmd.Context(), note, time.Now())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(state)
			}
			output.Success("Kill switch released")
			return nil
		},
	}
	cmd.Flags().StringVar(&note, "note", "", "reason recorded with the release")
	return cmd
}

func newAlertsListCmd(app *App) *cobra.Command {
	var severity, source string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List logged alerts",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			alerts, err := s.ListAlerts(cmd.Context(), store.AlertFilter{
				Severity: models.AlertSeverity(severity),
				Source:   source,
				Limit:    limit,
			})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(alerts)
			}
			if len(alerts) == 0 {
				output.Dim("No alerts on record.")
				return nil
			}

			output.Bold("Alerts (%d)", len(alerts))
			for _, a := range alerts {
				sev := string(a.Severity)
				switch a.Severity {
				case models.AlertCritical:
					sev = output.Red(sev)
				case models.AlertWarning:
					sev = output.Yellow(sev)
				}
				output.Printf("%s  %-10s %-10s %s\n",
					FormatDateTime(a.Timestamp), sev, a.Source, a.Message)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&severity, "severity", "", "filter by severity (INFO, WARNING, CRITICAL)")
	cmd.Flags().StringVar(&source, "source", "", "filter by source subsystem")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}
