// Package integration exercises the full daily workflow end to end
// against a real SQLite store: hygiene, staging, gating, fills, exits,
// risk, snapshots and the digest.
package integration

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swing-trader/internal/analysis/indicators"
	"swing-trader/internal/config"
	"swing-trader/internal/digest"
	"swing-trader/internal/models"
	"swing-trader/internal/performance"
	"swing-trader/internal/snapshot"
	"swing-trader/internal/store"
	"swing-trader/internal/strategy"
)

// seedSymbol writes a ticker plus a year of daily bars ending in an
// oversold state with a starting MACD bounce, then runs the indicator
// pass and pins the last two bars to a confirmed signal set.
func seedSymbol(t *testing.T, ctx context.Context, s store.DataStore, symbol, sector string) {
	t.Helper()

	require.NoError(t, s.UpsertTicker(ctx, &models.TickerInfo{
		Symbol:          symbol,
		Name:            symbol + " Inc",
		Sector:          sector,
		AvgDollarVolume: 50_000_000,
		AddedAt:         time.Now(),
	}))

	start := time.Now().AddDate(0, 0, -120)
	bars := make([]models.DailyBar, 0, 120)
	price := 100.0
	for i := 0; i < 120; i++ {
		// Drift up, then sell off hard over the last three weeks.
		if i < 100 {
			price *= 1.002
		} else {
			price *= 0.985
		}
		bars = append(bars, models.DailyBar{
			Symbol: symbol,
			Date:   start.AddDate(0, 0, i),
			Open:   price * 0.995,
			High:   price * 1.01,
			Low:    price * 0.985,
			Close:  price,
			Volume: 2_000_000,
		})
	}

	engine := indicators.NewEngine(2)
	failures := engine.ApplyAll(ctx, map[string][]models.DailyBar{symbol: bars})
	require.NoError(t, failures[symbol])

	// Pin the final bars so every entry signal is confirmed
	// regardless of the exact indicator trajectory.
	last := len(bars) - 1
	bars[last-1].MACDHist = -0.9
	bars[last].RSI14 = 38
	bars[last].PercentB = 0.02
	bars[last].MACDHist = -0.4
	bars[last].ATR20 = 2.5

	require.NoError(t, s.SaveBars(ctx, symbol, bars))
}

func TestDailyWorkflowEndToEnd(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "swing.db"))
	require.NoError(t, err)
	defer s.Close()

	seedSymbol(t, ctx, s, "ACME", "Industrials")

	// Hygiene gates pass for the seeded symbol.
	validator := strategy.NewValidator(s, cfg.Data)
	valid, err := validator.ValidateAll(ctx)
	require.NoError(t, err)
	require.Contains(t, valid, "ACME")

	// Staging picks the symbol up as entry ready.
	tracker := strategy.NewTracker(s, strategy.NewSignalEvaluator(cfg.Strategy), cfg.Strategy)
	bars, err := s.GetBars(ctx, "ACME", time.Now().AddDate(0, 0, -cfg.Data.LookbackDays), time.Now())
	require.NoError(t, err)
	candidate, err := tracker.UpdateSymbol(ctx, "ACME", bars)
	require.NoError(t, err)
	require.NotNil(t, candidate)
	require.Equal(t, models.StageEntryReady, candidate.Stage)

	// Gates clear (no earnings, no wash sale, kill switch off) and the
	// watchlist carries a sized proposal.
	gatekeeper := strategy.NewGatekeeper(s, cfg.Strategy, cfg.Risk)
	equity := decimal.NewFromInt(100_000)
	watchlist, err := gatekeeper.BuildWatchlist(ctx, equity)
	require.NoError(t, err)
	require.Len(t, watchlist, 1)
	assert.Equal(t, "ACME", watchlist[0].Symbol)
	assert.Greater(t, watchlist[0].ProposedShares, int64(0))

	// Manual fill opens the position and clears the tracker row.
	portfolio := strategy.NewPortfolio(s, cfg.Strategy)
	entryDate := time.Now().AddDate(0, 0, -34) // inside the sell window
	holding, err := portfolio.OpenPosition(ctx, "ACME", watchlist[0].ProposedShares, decimal.NewFromInt(80), entryDate)
	require.NoError(t, err)
	assert.Equal(t, "Industrials", holding.Sector)

	gone, err := s.GetCandidate(ctx, "ACME")
	require.NoError(t, err)
	assert.Nil(t, gone)

	// Pre-close: exits and risk. Day 34 inside the sell window with
	// the seeded decline means the stop or the window fires.
	exits := strategy.NewExitEvaluator(s, cfg.Strategy)
	signals, err := exits.EvaluateAll(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.NotEqual(t, models.ActionHold, signals[0].Action)

	riskMon := strategy.NewRiskMonitor(s, cfg.Risk)
	state, err := riskMon.RecordEquity(ctx, equity, time.Now())
	require.NoError(t, err)
	assert.Equal(t, models.KillSwitchOff, state.KillSwitch)

	// Master list rolls the symbol up as active.
	master := strategy.NewMasterList(s, cfg.Strategy, cfg.Risk)
	n, err := master.Refresh(ctx, time.Now())
	require.NoError(t, err)
	assert.Equal(t, 1, n)

	// Snapshot export is fresh and complete.
	snapDir := t.TempDir()
	exporter := snapshot.NewExporter(s, snapDir, cfg.Risk.SectorCap)
	dir, err := exporter.Export(ctx, time.Now())
	require.NoError(t, err)
	fresh, err := snapshot.CheckFreshness(dir, 2*time.Hour, time.Now())
	require.NoError(t, err)
	assert.False(t, fresh.Stale)

	// Digest renders every section with the live data.
	builder := digest.NewBuilder(s, cfg.Digest, cfg.Risk.SectorCap, cfg.Snapshot.StaleMinutes)
	body, err := builder.Build(ctx, time.Now())
	require.NoError(t, err)
	assert.Contains(t, body, "Daily Watchlist Digest")
	assert.Contains(t, body, "ACME")
	assert.Contains(t, body, "Risk & Quotas")

	// Close the trade and confirm the realized stats line up.
	trade, err := portfolio.ClosePosition(ctx, holding.ID, decimal.NewFromInt(88), "sell window", time.Now())
	require.NoError(t, err)
	assert.True(t, trade.PnL.IsPositive())
	assert.True(t, trade.WashSaleUntil.IsZero())

	summary, err := performance.NewAnalyzer(s).Summarize(ctx, store.TradeFilter{})
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Trades)
	assert.Equal(t, 100.0, summary.WinRate)
}

func TestSectorCapDefersFourthEntry(t *testing.T) {
	ctx := context.Background()
	cfg := config.Default()

	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "swing.db"))
	require.NoError(t, err)
	defer s.Close()

	// Three open Energy positions fill the sector quota.
	for _, sym := range []string{"XOM", "CVX", "COP"} {
		require.NoError(t, s.SaveHolding(ctx, &models.Holding{
			ID:         "h-" + strings.ToLower(sym),
			Symbol:     sym,
			Sector:     "Energy",
			Shares:     10,
			EntryPrice: decimal.NewFromInt(100),
			EntryDate:  time.Now().AddDate(0, 0, -5),
			RuleSet:    models.RuleSetStandard,
		}))
	}

	seedSymbol(t, ctx, s, "SLB", "Energy")
	tracker := strategy.NewTracker(s, strategy.NewSignalEvaluator(cfg.Strategy), cfg.Strategy)
	bars, err := s.GetBars(ctx, "SLB", time.Now().AddDate(0, 0, -cfg.Data.LookbackDays), time.Now())
	require.NoError(t, err)
	_, err = tracker.UpdateSymbol(ctx, "SLB", bars)
	require.NoError(t, err)

	gatekeeper := strategy.NewGatekeeper(s, cfg.Strategy, cfg.Risk)
	watchlist, err := gatekeeper.BuildWatchlist(ctx, decimal.NewFromInt(100_000))
	require.NoError(t, err)
	assert.Empty(t, watchlist)

	deferred, err := s.ListDeferred(ctx, true)
	require.NoError(t, err)
	require.Len(t, deferred, 1)
	assert.Equal(t, "SLB", deferred[0].Symbol)
	assert.Equal(t, models.DeferSectorCap, deferred[0].Reason)
}
