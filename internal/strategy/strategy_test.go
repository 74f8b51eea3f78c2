package strategy

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swing-trader/internal/config"
	"swing-trader/internal/digest"
	"swing-trader/internal/errors"
	"swing-trader/internal/models"
	"swing-trader/internal/snapshot"
	"swing-trader/internal/store"
)

func testConfig() *config.Config {
	return config.Default()
}

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

// indicatorBar builds a bar with indicator columns already computed.
func indicatorBar(symbol string, date time.Time, close, rsi, percentB, macdHist, atr float64) models.DailyBar {
	return models.DailyBar{
		Symbol:       symbol,
		Date:         date,
		Open:         close,
		High:         close * 1.01,
		Low:          close * 0.99,
		Close:        close,
		Volume:       1_000_000,
		RSI14:        rsi,
		PercentB:     percentB,
		MACDHist:     macdHist,
		ATR20:        atr,
		IndicatorsAt: date,
	}
}

func TestSignalEvaluatorAllConfirmed(t *testing.T) {
	cfg := testConfig()
	eval := NewSignalEvaluator(cfg.Strategy)
	day := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	bars := []models.DailyBar{
		indicatorBar("X", day, 100, 40, 0.10, -0.8, 2),
		indicatorBar("X", day.AddDate(0, 0, 1), 99, 38, 0.03, -0.5, 2),
	}
	result := eval.Evaluate(bars)
	assert.True(t, result.RSI)
	assert.True(t, result.PercentB)
	assert.True(t, result.MACDHook) // hist rose from -0.8 to -0.5, still negative
	assert.True(t, result.AllConfirmed())
	assert.Empty(t, result.Missing())
	assert.Greater(t, result.BounceScore, 3.0)
}

func TestSignalEvaluatorNoHookWhenHistogramPositive(t *testing.T) {
	cfg := testConfig()
	eval := NewSignalEvaluator(cfg.Strategy)
	day := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	bars := []models.DailyBar{
		indicatorBar("X", day, 100, 40, 0.03, -0.2, 2),
		indicatorBar("X", day.AddDate(0, 0, 1), 101, 44, 0.04, 0.1, 2),
	}
	result := eval.Evaluate(bars)
	assert.False(t, result.MACDHook) // crossed above zero, bounce already underway
	assert.Equal(t, []string{models.SignalMACDHook}, result.Missing())
}

func TestSignalEvaluatorIgnoresBarsWithoutIndicators(t *testing.T) {
	cfg := testConfig()
	eval := NewSignalEvaluator(cfg.Strategy)

	result := eval.Evaluate([]models.DailyBar{{Symbol: "X", Close: 100, RSI14: 10}})
	assert.False(t, result.AnyConfirmed())
}

func TestTrackerStageTransitions(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	tracker := NewTracker(s, NewSignalEvaluator(cfg.Strategy), cfg.Strategy)
	ctx := context.Background()
	day := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	// One signal: oversold RSI only.
	bars := []models.DailyBar{
		indicatorBar("X", day, 100, 50, 0.5, -0.5, 2),
		indicatorBar("X", day.AddDate(0, 0, 1), 99, 42, 0.5, -0.8, 2),
	}
	c, err := tracker.UpdateSymbol(ctx, "X", bars)
	require.NoError(t, err)
	require.NotNil(t, c)
	assert.Equal(t, models.StageOversold, c.Stage)
	assert.Len(t, c.MissingSignals, 2)
	assert.False(t, c.NextCheckAt.IsZero())
	firstSeen := c.FirstSeen

	// Two signals: RSI plus %B.
	bars = append(bars, indicatorBar("X", day.AddDate(0, 0, 2), 97, 40, 0.04, -0.9, 2))
	c, err = tracker.UpdateSymbol(ctx, "X", bars)
	require.NoError(t, err)
	assert.Equal(t, models.StageBouncePending, c.Stage)
	assert.Equal(t, []string{models.SignalMACDHook}, c.MissingSignals)

	// All three: the hook confirms.
	bars = append(bars, indicatorBar("X", day.AddDate(0, 0, 3), 98, 41, 0.05, -0.6, 2))
	c, err = tracker.UpdateSymbol(ctx, "X", bars)
	require.NoError(t, err)
	assert.Equal(t, models.StageEntryReady, c.Stage)
	assert.Empty(t, c.MissingSignals)
	assert.True(t, c.NextCheckAt.IsZero())
	assert.Equal(t, firstSeen.UTC().Format(time.RFC3339), c.FirstSeen.UTC().Format(time.RFC3339))

	// Signals gone: dropped from the tracker.
	bars = append(bars, indicatorBar("X", day.AddDate(0, 0, 4), 110, 65, 0.9, 0.4, 2))
	c, err = tracker.UpdateSymbol(ctx, "X", bars)
	require.NoError(t, err)
	assert.Nil(t, c)

	got, err := s.GetCandidate(ctx, "X")
	require.NoError(t, err)
	assert.Nil(t, got)
}

func seedReadyCandidate(t *testing.T, s *store.SQLiteStore, symbol, sector string, close, atr float64) {
	t.Helper()
	ctx := context.Background()
	require.NoError(t, s.UpsertTicker(ctx, &models.TickerInfo{Symbol: symbol, Sector: sector, AvgDollarVolume: 1e9}))
	require.NoError(t, s.SaveBars(ctx, symbol, []models.DailyBar{
		indicatorBar(symbol, time.Now().UTC().Truncate(24*time.Hour), close, 40, 0.03, -0.5, atr),
	}))
	require.NoError(t, s.UpsertCandidate(ctx, &models.Candidate{
		Symbol: symbol, Stage: models.StageEntryReady, BounceScore: 3, UpdatedAt: time.Now(),
	}))
}

func TestGatekeeperSizesClearedCandidate(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	gk := NewGatekeeper(s, cfg.Strategy, cfg.Risk)
	ctx := context.Background()

	seedReadyCandidate(t, s, "AAPL", "Information Technology", 100, 2)

	entries, err := gk.BuildWatchlist(ctx, decimal.NewFromInt(100_000))
	require.NoError(t, err)
	require.Len(t, entries, 1)

	e := entries[0]
	assert.Equal(t, "AAPL", e.Symbol)
	assert.True(t, e.EarningsSafe) // no earnings date known
	assert.Greater(t, e.ProposedShares, int64(0))
	assert.Less(t, e.EntryZoneLow, e.EntryZoneHigh)

	// Position value respects the max position cap.
	maxDollars := 100_000 * cfg.Risk.MaxPositionPercent / 100
	value, _ := e.ProposedSize.Float64()
	assert.LessOrEqual(t, value, maxDollars+100)
}

func TestGatekeeperDefersOnEarningsBuffer(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	gk := NewGatekeeper(s, cfg.Strategy, cfg.Risk)
	ctx := context.Background()

	seedReadyCandidate(t, s, "NVDA", "Information Technology", 100, 2)
	require.NoError(t, s.SaveEarnings(ctx, &models.EarningsEvent{
		Symbol: "NVDA", Date: time.Now().AddDate(0, 0, 10), Timing: models.EarningsAMC, UpdatedAt: time.Now(),
	}))

	entries, err := gk.BuildWatchlist(ctx, decimal.NewFromInt(100_000))
	require.NoError(t, err)
	assert.Empty(t, entries)

	deferred, err := s.ListDeferred(ctx, true)
	require.NoError(t, err)
	require.Len(t, deferred, 1)
	assert.Equal(t, models.DeferEarningsBuffer, deferred[0].Reason)
}

func TestGatekeeperDefersOnSectorCap(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	gk := NewGatekeeper(s, cfg.Strategy, cfg.Risk)
	ctx := context.Background()

	for _, sym := range []string{"H1", "H2", "H3"} {
		require.NoError(t, s.SaveHolding(ctx, &models.Holding{
			Symbol: sym, Sector: "Energy", Shares: 10,
			EntryPrice: decimal.NewFromInt(50), EntryDate: time.Now(), RuleSet: models.RuleSetStandard,
		}))
	}
	seedReadyCandidate(t, s, "XOM", "Energy", 100, 2)

	entries, err := gk.BuildWatchlist(ctx, decimal.NewFromInt(100_000))
	require.NoError(t, err)
	assert.Empty(t, entries)

	deferred, err := s.ListDeferred(ctx, true)
	require.NoError(t, err)
	require.Len(t, deferred, 1)
	assert.Equal(t, models.DeferSectorCap, deferred[0].Reason)
}

func TestGatekeeperDefersAllWhenKillSwitchEngaged(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	gk := NewGatekeeper(s, cfg.Strategy, cfg.Risk)
	ctx := context.Background()

	require.NoError(t, s.SaveRiskState(ctx, &models.RiskState{
		Date: time.Now(), Equity: decimal.NewFromInt(90_000),
		KillSwitch: models.KillSwitchEngaged, UpdatedAt: time.Now(),
	}))
	seedReadyCandidate(t, s, "AAPL", "Information Technology", 100, 2)

	entries, err := gk.BuildWatchlist(ctx, decimal.NewFromInt(90_000))
	require.NoError(t, err)
	assert.Empty(t, entries)

	deferred, err := s.ListDeferred(ctx, true)
	require.NoError(t, err)
	require.Len(t, deferred, 1)
	assert.Equal(t, models.DeferKillSwitch, deferred[0].Reason)
}

func TestGatekeeperDefersOnWashSale(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	gk := NewGatekeeper(s, cfg.Strategy, cfg.Risk)
	ctx := context.Background()

	require.NoError(t, s.SaveClosedTrade(ctx, &models.ClosedTrade{
		Symbol: "INTC", Shares: 10,
		EntryPrice: decimal.NewFromInt(40), ExitPrice: decimal.NewFromInt(35),
		EntryDate: time.Now().AddDate(0, 0, -20), ExitDate: time.Now().AddDate(0, 0, -5),
		PnL: decimal.NewFromInt(-50), PnLPct: -12.5,
		WashSaleUntil: time.Now().AddDate(0, 0, 25),
	}))
	seedReadyCandidate(t, s, "INTC", "Information Technology", 36, 1)

	entries, err := gk.BuildWatchlist(ctx, decimal.NewFromInt(100_000))
	require.NoError(t, err)
	assert.Empty(t, entries)

	deferred, err := s.ListDeferred(ctx, true)
	require.NoError(t, err)
	require.Len(t, deferred, 1)
	assert.Equal(t, models.DeferWashSale, deferred[0].Reason)
}

func holdingAgedDays(t *testing.T, s *store.SQLiteStore, symbol string, days int, entry, last float64) *models.Holding {
	t.Helper()
	h := &models.Holding{
		Symbol:     symbol,
		Sector:     "Industrials",
		Shares:     10,
		EntryPrice: decimal.NewFromFloat(entry),
		EntryDate:  time.Now().AddDate(0, 0, -days),
		LastClose:  last,
		RuleSet:    models.RuleSetStandard,
	}
	require.NoError(t, s.SaveHolding(context.Background(), h))
	return h
}

func TestExitEvaluatorSellWindow(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	ev := NewExitEvaluator(s, cfg.Strategy)
	ctx := context.Background()

	holdingAgedDays(t, s, "WIN", 35, 100, 104) // day 35, +4%, inside the window

	signals, err := ev.EvaluateAll(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, models.ActionExit, signals[0].Action)
	assert.Contains(t, signals[0].Triggers, models.TriggerSellWindow)
}

func TestExitEvaluatorCarveOnWinner(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	ev := NewExitEvaluator(s, cfg.Strategy)

	holdingAgedDays(t, s, "WIN", 34, 100, 112) // +12%, clears the carve threshold

	signals, err := ev.EvaluateAll(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, models.ActionCarve, signals[0].Action)
}

func TestExitEvaluatorStopLoss(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	ev := NewExitEvaluator(s, cfg.Strategy)

	holdingAgedDays(t, s, "DOWN", 5, 100, 88) // -12%, through the stop

	signals, err := ev.EvaluateAll(context.Background(), time.Now())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, models.ActionExit, signals[0].Action)
	assert.Contains(t, signals[0].Triggers, models.TriggerStopLoss)
}

func TestExitEvaluatorEarningsBuffer(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	ev := NewExitEvaluator(s, cfg.Strategy)
	ctx := context.Background()

	holdingAgedDays(t, s, "ER", 10, 100, 103)
	require.NoError(t, s.SaveEarnings(ctx, &models.EarningsEvent{
		Symbol: "ER", Date: time.Now().AddDate(0, 0, 4), Timing: models.EarningsBMO, UpdatedAt: time.Now(),
	}))

	signals, err := ev.EvaluateAll(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, models.ActionExit, signals[0].Action)
	assert.Contains(t, signals[0].Triggers, models.TriggerEarningsBuffer)
}

func TestExitEvaluatorEarningsBufferCarvesWinner(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	ev := NewExitEvaluator(s, cfg.Strategy)
	ctx := context.Background()

	holdingAgedDays(t, s, "ERW", 10, 100, 112) // +12%, earnings inside the buffer
	require.NoError(t, s.SaveEarnings(ctx, &models.EarningsEvent{
		Symbol: "ERW", Date: time.Now().AddDate(0, 0, 4), Timing: models.EarningsAMC, UpdatedAt: time.Now(),
	}))

	signals, err := ev.EvaluateAll(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, models.ActionCarve, signals[0].Action)
	assert.Contains(t, signals[0].Triggers, models.TriggerEarningsBuffer)
}

func TestExitEvaluatorStopBeatsEarningsBuffer(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	ev := NewExitEvaluator(s, cfg.Strategy)
	ctx := context.Background()

	holdingAgedDays(t, s, "ERD", 10, 100, 88) // -12%, earnings inside the buffer
	require.NoError(t, s.SaveEarnings(ctx, &models.EarningsEvent{
		Symbol: "ERD", Date: time.Now().AddDate(0, 0, 4), Timing: models.EarningsBMO, UpdatedAt: time.Now(),
	}))

	signals, err := ev.EvaluateAll(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, models.ActionExit, signals[0].Action)
	assert.Contains(t, signals[0].Triggers, models.TriggerStopLoss)
}

func TestExitEvaluatorLongTermLotExempt(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	ev := NewExitEvaluator(s, cfg.Strategy)
	ctx := context.Background()

	h := &models.Holding{
		Symbol: "LT", Sector: "Health Care", Shares: 5,
		EntryPrice: decimal.NewFromInt(100), EntryDate: time.Now().AddDate(0, 0, -90),
		LastClose: 80, RuleSet: models.RuleSetLongTerm,
	}
	require.NoError(t, s.SaveHolding(ctx, h))

	signals, err := ev.EvaluateAll(ctx, time.Now())
	require.NoError(t, err)
	require.Len(t, signals, 1)
	assert.Equal(t, models.ActionHold, signals[0].Action)
	assert.Empty(t, signals[0].Triggers)
}

func TestPortfolioCloseStampsWashSale(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	p := NewPortfolio(s, cfg.Strategy)
	ctx := context.Background()

	h, err := p.OpenPosition(ctx, "LOSS", 10, decimal.NewFromInt(100), time.Now().AddDate(0, 0, -20))
	require.NoError(t, err)

	trade, err := p.ClosePosition(ctx, h.ID, decimal.NewFromInt(90), models.TriggerStopLoss, time.Now())
	require.NoError(t, err)
	assert.True(t, trade.PnL.IsNegative())
	assert.False(t, trade.WashSaleUntil.IsZero())

	expected := time.Now().AddDate(0, 0, cfg.Strategy.WashSaleDays)
	assert.Equal(t, expected.Format("2006-01-02"), trade.WashSaleUntil.Format("2006-01-02"))

	// Winning closes carry no lockout.
	h2, err := p.OpenPosition(ctx, "WINR", 10, decimal.NewFromInt(100), time.Now().AddDate(0, 0, -35))
	require.NoError(t, err)
	trade2, err := p.ClosePosition(ctx, h2.ID, decimal.NewFromInt(110), models.TriggerSellWindow, time.Now())
	require.NoError(t, err)
	assert.True(t, trade2.WashSaleUntil.IsZero())
}

func TestPortfolioCarve(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	p := NewPortfolio(s, cfg.Strategy)
	ctx := context.Background()

	h, err := p.OpenPosition(ctx, "CARV", 100, decimal.NewFromInt(100), time.Now().AddDate(0, 0, -34))
	require.NoError(t, err)

	// Below the gain threshold the carve refuses.
	_, err = p.Carve(ctx, h.ID, decimal.NewFromInt(105), "thesis", time.Now())
	assert.Error(t, err)

	lot, err := p.Carve(ctx, h.ID, decimal.NewFromInt(112), "secular winner", time.Now())
	require.NoError(t, err)
	assert.Equal(t, int64(10), lot.Shares) // 10% of 100
	assert.Equal(t, h.ID, lot.CarvedFromID)
	assert.False(t, lot.NextReviewAt.IsZero())

	remaining, err := s.GetHolding(ctx, h.ID)
	require.NoError(t, err)
	assert.Equal(t, int64(90), remaining.Shares)
}

func TestRiskMonitorEngagesAndLatches(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	m := NewRiskMonitor(s, cfg.Risk)
	ctx := context.Background()
	day := time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC)

	state, err := m.RecordEquity(ctx, decimal.NewFromInt(100_000), day)
	require.NoError(t, err)
	assert.Equal(t, models.KillSwitchOff, state.KillSwitch)

	// A drop past the drawdown threshold engages the switch.
	state, err = m.RecordEquity(ctx, decimal.NewFromInt(90_000), day.AddDate(0, 0, 1))
	require.NoError(t, err)
	assert.Equal(t, models.KillSwitchEngaged, state.KillSwitch)
	assert.LessOrEqual(t, state.Drawdown10D, cfg.Risk.KillSwitchDDPct)

	// Recovery alone does not release it.
	state, err = m.RecordEquity(ctx, decimal.NewFromInt(101_000), day.AddDate(0, 0, 2))
	require.NoError(t, err)
	assert.Equal(t, models.KillSwitchEngaged, state.KillSwitch)

	state, err = m.ReleaseKillSwitch(ctx, "reviewed after recovery", day.AddDate(0, 0, 3))
	require.NoError(t, err)
	assert.Equal(t, models.KillSwitchOff, state.KillSwitch)
}

func TestBacktesterFindsBestWindow(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	bt := NewBacktester(s, cfg.Strategy)
	ctx := context.Background()
	day := time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC)

	// A long flat stretch, one full signal print, then a steady climb.
	var bars []models.DailyBar
	for i := 0; i < 30; i++ {
		bars = append(bars, indicatorBar("BT", day.AddDate(0, 0, i), 100, 55, 0.5, 0.2, 2))
	}
	bars = append(bars, indicatorBar("BT", day.AddDate(0, 0, 30), 95, 40, 0.02, -0.9, 2))
	bars = append(bars, indicatorBar("BT", day.AddDate(0, 0, 31), 96, 42, 0.04, -0.5, 2)) // entry: all signals
	for i := 32; i < 90; i++ {
		price := 96 + float64(i-31)*0.3
		bars = append(bars, indicatorBar("BT", day.AddDate(0, 0, i), price, 60, 0.7, 0.5, 2))
	}
	require.NoError(t, s.SaveBars(ctx, "BT", bars))

	req := &models.BacktestRequest{Symbol: "BT", From: day, To: day.AddDate(0, 0, 90), MinWindow: 33, MaxWindow: 40}
	require.NoError(t, s.EnqueueBacktest(ctx, req))

	processed, err := bt.DrainQueue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, processed)

	result, err := s.GetBacktestResult(ctx, "BT")
	require.NoError(t, err)
	require.NotNil(t, result)
	assert.Equal(t, 1, result.Trades)
	assert.Equal(t, 40, result.BestWindow) // steady climb favors the longest hold
	assert.Greater(t, result.AvgReturnPct, 0.0)
	assert.Equal(t, 100.0, result.HitRate)
}

func TestValidatorRejectsThinAndDuplicateListings(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	v := NewValidator(s, cfg.Data)
	ctx := context.Background()

	require.NoError(t, s.UpsertTicker(ctx, &models.TickerInfo{
		Symbol: "THIN", Sector: "Utilities", AvgDollarVolume: 1000,
	}))
	result, err := v.ValidateSymbol(ctx, "THIN")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Reason, "dollar volume")

	require.NoError(t, s.UpsertTicker(ctx, &models.TickerInfo{
		Symbol: "DUPE", Sector: "Utilities", AvgDollarVolume: 1e9, DedupeOf: "ORIG",
	}))
	result, err = v.ValidateSymbol(ctx, "DUPE")
	require.NoError(t, err)
	assert.False(t, result.Valid)
	assert.Contains(t, result.Reason, "duplicate")
}

func TestCycleOvernightExportsSnapshotAndDigest(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	dir := t.TempDir()

	cycle := NewCycle(CycleDeps{
		Store:      s,
		Backtester: NewBacktester(s, cfg.Strategy),
		Snapshot:   snapshot.NewExporter(s, dir, cfg.Risk.SectorCap),
		Digest:     digest.NewBuilder(s, cfg.Digest, cfg.Risk.SectorCap, cfg.Snapshot.StaleMinutes),
	}, cfg.Data)

	report, err := cycle.Overnight(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, report.Counts["snapshot_exported"])
	assert.Equal(t, 1, report.Counts["digest_built"])

	latest := snapshot.NewExporter(s, dir, cfg.Risk.SectorCap).LatestDir(time.Now())
	if _, err := os.Stat(filepath.Join(latest, "manifest.json")); err != nil {
		t.Fatalf("manifest not written: %v", err)
	}
	body, err := os.ReadFile(filepath.Join(latest, "digest.md"))
	require.NoError(t, err)
	assert.Contains(t, string(body), "Daily Watchlist Digest")
	assert.Contains(t, string(body), "Risk & Quotas")
}

func TestPortfolioOpenBlockedByKillSwitch(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	p := NewPortfolio(s, cfg.Strategy)
	ctx := context.Background()

	require.NoError(t, s.SaveRiskState(ctx, &models.RiskState{
		Date:       time.Now(),
		Equity:     decimal.NewFromInt(90_000),
		KillSwitch: models.KillSwitchEngaged,
		UpdatedAt:  time.Now(),
	}))

	_, err := p.OpenPosition(ctx, "BLOCK", 10, decimal.NewFromInt(50), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrKillSwitchEngaged)
}

func TestPortfolioOpenBlockedByWashSale(t *testing.T) {
	s := newTestStore(t)
	cfg := testConfig()
	p := NewPortfolio(s, cfg.Strategy)
	ctx := context.Background()

	require.NoError(t, s.SaveClosedTrade(ctx, &models.ClosedTrade{
		Symbol: "WASH", Shares: 10,
		EntryPrice: decimal.NewFromInt(60), ExitPrice: decimal.NewFromInt(50),
		EntryDate: time.Now().AddDate(0, 0, -40), ExitDate: time.Now().AddDate(0, 0, -10),
		PnL: decimal.NewFromInt(-100), PnLPct: -16.7,
		WashSaleUntil: time.Now().AddDate(0, 0, 20),
	}))

	_, err := p.OpenPosition(ctx, "WASH", 10, decimal.NewFromInt(48), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrWashSaleWindow)

	var gate *errors.GateError
	require.ErrorAs(t, err, &gate)
	assert.Equal(t, "WASH", gate.Symbol)
}
