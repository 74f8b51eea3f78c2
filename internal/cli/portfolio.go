package cli

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/spf13/cobra"

	"swing-trader/internal/performance"
	"swing-trader/internal/store"
	"swing-trader/internal/strategy"
)

// addPortfolioCommands adds position management commands.
func addPortfolioCommands(rootCmd *cobra.Command, app *App) {
	position := &cobra.Command{
		Use:   "position",
		Short: "Manage open positions",
		Long:  "Record fills, exits and long-term carves for the managed book.",
	}
	position.AddCommand(newPositionOpenCmd(app))
	position.AddCommand(newPositionCloseCmd(app))
	position.AddCommand(newPositionCarveCmd(app))
	position.AddCommand(newPositionListCmd(app))
	rootCmd.AddCommand(position)

	trades := &cobra.Command{
		Use:   "trades",
		Short: "Closed trade history",
	}
	trades.AddCommand(newTradesListCmd(app))
	trades.AddCommand(newTradesStatsCmd(app))
	rootCmd.AddCommand(trades)

	lth := &cobra.Command{
		Use:   "lth",
		Short: "Long-term holdings",
		Long:  "List carved long-term lots and record thesis reviews.",
	}
	lth.AddCommand(newLTHListCmd(app))
	lth.AddCommand(newLTHReviewedCmd(app))
	rootCmd.AddCommand(lth)
}

func parsePrice(raw string) (decimal.Decimal, error) {
	price, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid price %q: %w", raw, err)
	}
	if price.IsNegative() || price.IsZero() {
		return decimal.Zero, fmt.Errorf("price must be positive, got %s", raw)
	}
	return price, nil
}

func newPositionOpenCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "open SYMBOL SHARES PRICE",
		Short: "Record a fill and open a position",
		Args:  cobra.ExactArgs(3),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}

			symbol := normalizeSymbols(args[:1])[0]
			shares, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil || shares <= 0 {
				return fmt.Errorf("invalid share count %q", args[1])
			}
			price, err := parsePrice(args[2])
			if err != nil {
				return err
			}

			portfolio := strategy.NewPortfolio(s, app.Config.Strategy)
			holding, err := portfolio.OpenPosition(cmd.Context(), symbol, shares, price, time.Now())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(holding)
			}
			output.Success("Opened %s: %s shares @ %s", holding.Symbol, FormatShares(holding.Shares), FormatDecimalUSD(holding.EntryPrice))
			output.Dim("Holding ID: %s", holding.ID)
			return nil
		},
	}
}

func newPositionCloseCmd(app *App) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "close HOLDING_ID PRICE",
		Short: "Close a position",
		Long: `Close a holding at the given fill price. Losing trades stamp a
wash-sale window blocking re-entry in that symbol.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			price, err := parsePrice(args[1])
			if err != nil {
				return err
			}

			portfolio := strategy.NewPortfolio(s, app.Config.Strategy)
			trade, err := portfolio.ClosePosition(cmd.Context(), args[0], price, reason, time.Now())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(trade)
			}
			pnl, _ := trade.PnL.Float64()
			output.Success("Closed %s: %s shares @ %s", trade.Symbol, FormatShares(trade.Shares), FormatDecimalUSD(trade.ExitPrice))
			output.Printf("  P&L: %s (%s)\n", output.Signed(pnl, FormatPnL(pnl)), FormatPercent(trade.PnLPct))
			if !trade.WashSaleUntil.IsZero() {
				output.Warning("  Wash sale: no re-entry in %s until %s", trade.Symbol, FormatDate(trade.WashSaleUntil))
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "manual", "exit reason recorded on the trade")
	return cmd
}

func newPositionCarveCmd(app *App) *cobra.Command {
	var thesis string
	cmd := &cobra.Command{
		Use:   "carve HOLDING_ID PRICE",
		Short: "Carve a long-term lot out of a winning position",
		Long: `Move the configured share fraction of a position into a long-term
lot exempt from the standard exit rules. The position must be at or
above the long-term gain threshold at the given price.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			price, err := parsePrice(args[1])
			if err != nil {
				return err
			}

			portfolio := strategy.NewPortfolio(s, app.Config.Strategy)
			lot, err := portfolio.Carve(cmd.Context(), args[0], price, thesis, time.Now())
			if err != nil {
				return err
			}

			if output.IsJSON() {
				return output.JSON(lot)
			}
			output.Success("Carved %s shares of %s to long-term", FormatShares(lot.Shares), lot.Symbol)
			output.Printf("  Next review: %s\n", FormatDate(lot.NextReviewAt))
			output.Dim("Lot ID: %s", lot.ID)
			return nil
		},
	}
	cmd.Flags().StringVar(&thesis, "thesis", "", "long-term thesis recorded on the lot")
	return cmd
}

func newPositionListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List open positions",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			holdings, err := s.ListHoldings(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(holdings)
			}
			if len(holdings) == 0 {
				output.Dim("No open positions.")
				return nil
			}

			output.Bold("Open Positions (%d)", len(holdings))
			output.Printf("%-8s %-22s %8s %10s %10s %8s %6s  %s\n",
				"SYMBOL", "SECTOR", "SHARES", "ENTRY", "LAST", "RETURN", "DAYS", "ID")
			now := time.Now()
			total := decimal.Zero
			for _, h := range holdings {
				ret := h.ReturnPct()
				output.Printf("%-8s %-22s %8s %10s %10s %8s %6d  %s\n",
					h.Symbol, orDash(h.Sector), FormatShares(h.Shares),
					FormatDecimalUSD(h.EntryPrice), FormatUSD(h.LastClose),
					output.Signed(ret, FormatPercent(ret)), h.DaysHeld(now), h.ID)
				total = total.Add(h.MarketValue())
			}
			output.Println()
			output.Printf("Market value: %s\n", FormatDecimalUSD(total))
			return nil
		},
	}
}

func newTradesListCmd(app *App) *cobra.Command {
	var symbol string
	var limit int
	cmd := &cobra.Command{
		Use:   "list",
		Short: "List closed trades",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			trades, err := s.ListClosedTrades(cmd.Context(), store.TradeFilter{Symbol: symbol, Limit: limit})
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(trades)
			}
			if len(trades) == 0 {
				output.Dim("No closed trades.")
				return nil
			}

			output.Bold("Closed Trades (%d)", len(trades))
			output.Printf("%-8s %8s %10s %10s %12s %8s  %-13s %s\n",
				"SYMBOL", "SHARES", "ENTRY", "EXIT", "P&L", "P&L%", "EXIT DATE", "REASON")
			for _, t := range trades {
				pnl, _ := t.PnL.Float64()
				output.Printf("%-8s %8s %10s %10s %12s %8s  %-13s %s\n",
					t.Symbol, FormatShares(t.Shares),
					FormatDecimalUSD(t.EntryPrice), FormatDecimalUSD(t.ExitPrice),
					output.Signed(pnl, FormatPnL(pnl)), FormatPercent(t.PnLPct),
					FormatDate(t.ExitDate), t.Reason)
			}
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	cmd.Flags().IntVar(&limit, "limit", 50, "maximum rows")
	return cmd
}

func newTradesStatsCmd(app *App) *cobra.Command {
	var symbol string
	var perSymbol bool
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Realized performance statistics",
		Long:  "Summarize win rate, expectancy, profit factor and drawdown over the closed trade history.",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			ctx := cmd.Context()
			analyzer := performance.NewAnalyzer(s)
			filter := store.TradeFilter{Symbol: symbol}

			if perSymbol {
				bySymbol, err := analyzer.BySymbol(ctx, filter)
				if err != nil {
					return err
				}
				if output.IsJSON() {
					return output.JSON(bySymbol)
				}
				if len(bySymbol) == 0 {
					output.Dim("No closed trades.")
					return nil
				}
				symbols := make([]string, 0, len(bySymbol))
				for sym := range bySymbol {
					symbols = append(symbols, sym)
				}
				sort.Strings(symbols)
				output.Bold("Per-Symbol Performance")
				output.Printf("%-8s %7s %9s %10s %12s\n", "SYMBOL", "TRADES", "WIN RATE", "AVG RET", "TOTAL P&L")
				for _, sym := range symbols {
					sum := bySymbol[sym]
					pnl, _ := sum.TotalPnL.Float64()
					output.Printf("%-8s %7d %8.1f%% %10s %12s\n",
						sym, sum.Trades, sum.WinRate,
						output.Signed(sum.AvgReturnPct, FormatPercent(sum.AvgReturnPct)),
						output.Signed(pnl, FormatPnL(pnl)))
				}
				return nil
			}

			summary, err := analyzer.Summarize(ctx, filter)
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(summary)
			}
			if summary.Trades == 0 {
				output.Dim("No closed trades.")
				return nil
			}

			pnl, _ := summary.TotalPnL.Float64()
			output.Bold("Realized Performance (%s to %s)", FormatDate(summary.From), FormatDate(summary.To))
			output.Printf("  Trades:         %d (%d wins, %d losses)\n", summary.Trades, summary.Wins, summary.Losses)
			output.Printf("  Win Rate:       %.1f%%\n", summary.WinRate)
			output.Printf("  Total P&L:      %s\n", output.Signed(pnl, FormatPnL(pnl)))
			output.Printf("  Expectancy:     %s per trade\n", output.Signed(summary.Expectancy, FormatPercent(summary.Expectancy)))
			output.Printf("  Avg Win/Loss:   %s / %s\n", FormatPercent(summary.AvgWinPct), FormatPercent(summary.AvgLossPct))
			output.Printf("  Best/Worst:     %s / %s\n", FormatPercent(summary.BestPct), FormatPercent(summary.WorstPct))
			if summary.ProfitFactor > 0 {
				output.Printf("  Profit Factor:  %.2f\n", summary.ProfitFactor)
			}
			output.Printf("  Avg Hold:       %.1f days\n", summary.AvgHoldDays)
			output.Printf("  Max Drawdown:   %s\n", output.Signed(summary.MaxDrawdown, FormatPercent(summary.MaxDrawdown)))
			return nil
		},
	}
	cmd.Flags().StringVar(&symbol, "symbol", "", "filter by symbol")
	cmd.Flags().BoolVar(&perSymbol, "by-symbol", false, "group statistics per symbol")
	return cmd
}

func newLTHListCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List long-term lots",
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			lots, err := s.ListLongTermHoldings(cmd.Context())
			if err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(lots)
			}
			if len(lots) == 0 {
				output.Dim("No long-term holdings.")
				return nil
			}

			output.Bold("Long-Term Holdings (%d)", len(lots))
			output.Printf("%-8s %8s %10s %-13s %-13s %s\n",
				"SYMBOL", "SHARES", "CARVE", "CARVED", "NEXT REVIEW", "THESIS")
			now := time.Now()
			for _, l := range lots {
				review := FormatDate(l.NextReviewAt)
				if !l.NextReviewAt.IsZero() && l.NextReviewAt.Before(now) {
					review = output.Yellow(review + " (due)")
				}
				output.Printf("%-8s %8s %10s %-13s %-13s %s\n",
					l.Symbol, FormatShares(l.Shares), FormatDecimalUSD(l.CarvePrice),
					FormatDate(l.CarvedAt), review, truncate(l.Thesis, 40))
			}
			return nil
		},
	}
}

func newLTHReviewedCmd(app *App) *cobra.Command {
	return &cobra.Command{
		Use:   "reviewed LOT_ID",
		Short: "Record a long-term thesis review",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			output := NewOutput(cmd)
			s, err := app.requireStore()
			if err != nil {
				return err
			}
			portfolio := strategy.NewPortfolio(s, app.Config.Strategy)
			if err := portfolio.MarkLongTermReviewed(cmd.Context(), args[0], time.Now()); err != nil {
				return err
			}
			if output.IsJSON() {
				return output.JSON(map[string]string{"reviewed": args[0]})
			}
			output.Success("Review recorded for %s", args[0])
			return nil
		},
	}
}
