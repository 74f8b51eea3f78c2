package cli

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"swing-trader/internal/config"
	"swing-trader/internal/logging"
	"swing-trader/internal/marketdata"
	"swing-trader/internal/store"
)

// Version information
const (
	Version   = "0.1.0"
	BuildDate = "2026-08-01"
)

// equitySetting is the settings key holding the last reported account
// equity.
const equitySetting = "equity"

// App holds the application dependencies.
type App struct {
	Config   *config.Config
	Logger   zerolog.Logger
	Store    store.DataStore
	Provider marketdata.Provider
	Budget   *marketdata.Budget
	Syncer   *marketdata.Syncer
}

// NewRootCmd creates the root command for the CLI.
func NewRootCmd(cfg *config.Config, logger zerolog.Logger) *cobra.Command {
	app := &App{
		Config: cfg,
		Logger: logger,
	}

	// Initialize SQLite store
	dbPath := config.DefaultConfigDir() + "/swing.db"
	dataStore, err := store.NewSQLiteStore(dbPath)
	if err != nil {
		logger.Warn().Err(err).Msg("Failed to initialize store, most commands will be unavailable")
	} else {
		app.Store = dataStore
		logger.Debug().Msg("SQLite store initialized")
	}

	// Initialize market data provider if configured
	if cfg.Data.ProviderURL != "" && app.Store != nil {
		app.Provider = marketdata.NewClient(cfg.Data.ProviderURL, cfg.Credentials.Provider.APIKey)
		app.Budget = marketdata.NewBudget(app.Store, cfg.Data.DailyCallLimit)
		app.Syncer = marketdata.NewSyncer(app.Provider, app.Store, app.Budget, cfg.Data.LookbackDays)
		logger.Debug().Str("provider", cfg.Data.ProviderURL).Msg("Market data provider initialized")
	}

	rootCmd := &cobra.Command{
		Use:   "swing-trader",
		Short: "Swing trade manager for the oversold-bounce strategy",
		Long: `Swing Trader manages the daily workflow of a manually operated
swing trading strategy: universe hygiene, oversold staging, entry
gating, exit monitoring, risk guardrails, snapshots and the daily
watchlist digest.

Use 'swing-trader help <command>' for more information about a command.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Handle debug flag
			debug, _ := cmd.Flags().GetBool("debug")
			if debug {
				logging.SetDebugLevel()
				app.Logger = app.Logger.Level(zerolog.DebugLevel)
			}
			return nil
		},
	}

	// Global flags
	rootCmd.PersistentFlags().String("config", "", "config directory (default: ~/.config/swing-trader)")
	rootCmd.PersistentFlags().Bool("json", false, "output in JSON format")
	rootCmd.PersistentFlags().Bool("debug", false, "enable debug logging")

	// Add all command groups
	addCoreCommands(rootCmd, app)
	addUniverseCommands(rootCmd, app)
	addDataCommands(rootCmd, app)
	addPipelineCommands(rootCmd, app)
	addPortfolioCommands(rootCmd, app)
	addExitCommands(rootCmd, app)
	addRiskCommands(rootCmd, app)
	addBacktestCommands(rootCmd, app)
	addCycleCommands(rootCmd, app)
	addReportCommands(rootCmd, app)

	return rootCmd
}

// requireStore returns the data store or an error when the database
// could not be opened.
func (a *App) requireStore() (store.DataStore, error) {
	if a.Store == nil {
		return nil, fmt.Errorf("data store unavailable, check database path and permissions")
	}
	return a.Store, nil
}

// requireSyncer returns the market data syncer or an error when no
// provider is configured.
func (a *App) requireSyncer() (*marketdata.Syncer, error) {
	if a.Syncer == nil {
		return nil, fmt.Errorf("no market data provider configured, set data.provider_url")
	}
	return a.Syncer, nil
}

// resolveEquity reads account equity from the --equity flag, falling
// back to the last value saved in settings.
func (a *App) resolveEquity(ctx context.Context, cmd *cobra.Command) (decimal.Decimal, error) {
	raw, _ := cmd.Flags().GetString("equity")
	if raw != "" {
		equity, err := decimal.NewFromString(raw)
		if err != nil {
			return decimal.Zero, fmt.Errorf("invalid equity %q: %w", raw, err)
		}
		if s, err := a.requireStore(); err == nil {
			if err := s.SetSetting(ctx, equitySetting, equity.String()); err != nil {
				a.Logger.Warn().Err(err).Msg("Failed to save equity setting")
			}
		}
		return equity, nil
	}

	s, err := a.requireStore()
	if err != nil {
		return decimal.Zero, err
	}
	saved, err := s.GetSetting(ctx, equitySetting)
	if err != nil || saved == "" {
		return decimal.Zero, fmt.Errorf("no equity on record, pass --equity")
	}
	return decimal.NewFromString(saved)
}

// normalizeSymbols uppercases and dedupes a symbol argument list.
func normalizeSymbols(args []string) []string {
	seen := make(map[string]bool, len(args))
	out := make([]string, 0, len(args))
	for _, arg := range args {
		sym := strings.ToUpper(strings.TrimSpace(arg))
		if sym == "" || seen[sym] {
			continue
		}
		seen[sym] = true
		out = append(out, sym)
	}
	return out
}

// addCoreCommands adds core utility commands.
func addCoreCommands(rootCmd *cobra.Command, app *App) {
	rootCmd.AddCommand(newVersionCmd())
	rootCmd.AddCommand(newConfigCmd(app))
}

func newVersionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{
					"version":    Version,
					"build_date": BuildDate,
				})
			} else {
				output.Printf("Swing Trader v%s\n", Version)
				output.Dim("Build date: %s", BuildDate)
			}
		},
	}
}

func newConfigCmd(app *App) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: "Configuration management",
		Long:  "View and manage application configuration.",
	}

	cmd.AddCommand(&cobra.Command{
		Use:   "show",
		Short: "Show current configuration",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if output.IsJSON() {
				return output.JSON(app.Config)
			}
			showConfig(output, app.Config)
			return nil
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "path",
		Short: "Show configuration directory path",
		Run: func(cmd *cobra.Command, args []string) {
			output := NewOutput(cmd)
			if output.IsJSON() {
				output.JSON(map[string]string{"path": config.DefaultConfigDir()})
			} else {
				output.Println(config.DefaultConfigDir())
			}
		},
	})

	cmd.AddCommand(&cobra.Command{
		Use:   "validate",
		Short: "Validate configuration files",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			if err := app.Config.Validate(); err != nil {
				output.Error("Configuration validation failed: %v", err)
				return err
			}
			if output.IsJSON() {
				output.JSON(map[string]bool{"valid": true})
			} else {
				output.Success("Configuration is valid")
			}
			return nil
		},
	})

	return cmd
}

func showConfig(output *Output, cfg *config.Config) {
	s := cfg.Strategy
	output.Bold("Strategy Rules")
	output.Printf("  ER Buffer:       %d days\n", s.ERBufferDays)
	output.Printf("  Exit Buffer:     %d days\n", s.ExitBufferDays)
	output.Printf("  Sell Window:     day %d to %d\n", s.SellWindowStart, s.SellWindowEnd)
	output.Printf("  Stop Loss:       %.1f%%\n", s.StopLossPct)
	output.Printf("  LTH Carve:       %.0f%% at >= %s gain\n", s.LTHCarvePct, FormatPercent(s.LTHGainThreshold))
	output.Printf("  RSI Oversold:    < %.0f\n", s.RSIOversold)
	output.Printf("  %%B Floor:        <= %.2f\n", s.PercentBFloor)
	output.Printf("  Wash Sale:       %d days\n", s.WashSaleDays)
	output.Println()

	r := cfg.Risk
	output.Bold("Risk Guardrails")
	output.Printf("  Sector Cap:      %d positions\n", r.SectorCap)
	output.Printf("  Kill Switch DD:  %.1f%% over 10 days\n", r.KillSwitchDDPct)
	output.Printf("  Max Position:    %.1f%% of equity\n", r.MaxPositionPercent)
	output.Printf("  Risk Per Trade:  %.1f%% of equity\n", r.RiskPerTradePct)
	output.Println()

	d := cfg.Data
	output.Bold("Market Data")
	output.Printf("  Provider:        %s\n", orDash(d.ProviderURL))
	output.Printf("  Daily Limit:     %d calls\n", d.DailyCallLimit)
	output.Printf("  Lookback:        %d days\n", d.LookbackDays)
	output.Printf("  Min $ Volume:    %s\n", FormatCompact(d.MinDollarVolume))
	output.Printf("  Min Price:       %s\n", FormatUSD(d.MinPrice))
	output.Println()

	output.Bold("Snapshots & Digest")
	output.Printf("  Snapshot Dir:    %s\n", cfg.Snapshot.Dir)
	output.Printf("  Stale After:     %d min\n", cfg.Snapshot.StaleMinutes)
	output.Printf("  GitHub Repo:     %s\n", orDash(cfg.Digest.GitHubRepo))
	output.Printf("  Webhook:         %v\n", cfg.Digest.WebhookURL != "")
}

func orDash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}
