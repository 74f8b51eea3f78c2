package marketdata

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swing-trader/internal/errors"
	"swing-trader/internal/models"
	"swing-trader/internal/store"
)

func newTestStore(t *testing.T) *store.SQLiteStore {
	t.Helper()
	s, err := store.NewSQLiteStore(filepath.Join(t.TempDir(), "test.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func newProviderServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/v1/bars/daily", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		symbol := r.URL.Query().Get("symbol")
		payload := barsResponse{
			Symbol: symbol,
			Bars: []wireBar{
				{Date: "2026-08-27", Open: 100, High: 102, Low: 99, Close: 101, Volume: 2_000_000},
				{Date: "2026-08-28", Open: 101, High: 103, Low: 100, Close: 102.5, Volume: 2_200_000},
			},
		}
		json.NewEncoder(w).Encode(payload)
	})

	mux.HandleFunc("/v1/reference/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		symbol := strings.TrimPrefix(r.URL.Path, "/v1/reference/")
		json.NewEncoder(w).Encode(detailsResponse{
			Symbol:          symbol,
			Name:            symbol + " Inc",
			Sector:          "Information Technology",
			AvgDollarVolume: 5_000_000_000,
		})
	})

	mux.HandleFunc("/v1/earnings/", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		parts := strings.Split(strings.TrimPrefix(r.URL.Path, "/v1/earnings/"), "/")
		json.NewEncoder(w).Encode(earningsResponse{
			Symbol: parts[0],
			Date:   "2026-10-15",
			Timing: "AMC",
		})
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestClientDailyBars(t *testing.T) {
	server := newProviderServer(t)
	client := NewClient(server.URL, "test-key")

	bars, err := client.DailyBars(context.Background(), "AAPL",
		time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC),
		time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, bars, 2)
	assert.Equal(t, "AAPL", bars[0].Symbol)
	assert.Equal(t, 102.5, bars[1].Close)
	assert.Equal(t, time.Date(2026, 8, 27, 0, 0, 0, 0, time.UTC), bars[0].Date)
}

func TestClientNextEarnings(t *testing.T) {
	server := newProviderServer(t)
	client := NewClient(server.URL, "")

	event, err := client.NextEarnings(context.Background(), "TSLA")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.Equal(t, models.EarningsAMC, event.Timing)
	assert.Equal(t, "2026-10-15", event.Date.Format("2006-01-02"))
}

func TestClientServerError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "")
	_, err := client.DailyBars(context.Background(), "AAPL", time.Now().AddDate(0, 0, -5), time.Now())
	require.Error(t, err)

	var provErr *errors.ProviderError
	assert.ErrorAs(t, err, &provErr)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
	}))
	t.Cleanup(server.Close)

	client := NewClient(server.URL, "")
	ctx := context.Background()

	// Drive the breaker past its failure threshold. Each call retries
	// internally, so consecutive failures accumulate fast.
	for i := 0; i < breakerFailures+1; i++ {
		_, _ = client.DailyBars(ctx, "AAPL", time.Now().AddDate(0, 0, -5), time.Now())
	}

	_, err := client.DailyBars(ctx, "AAPL", time.Now().AddDate(0, 0, -5), time.Now())
	require.Error(t, err)
	assert.ErrorIs(t, err, errors.ErrProviderUnavailable)
}

func TestBudgetExhaustionLatchesFallback(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	budget := NewBudget(s, 3)

	require.NoError(t, budget.Acquire(ctx, 2))
	require.NoError(t, budget.Acquire(ctx, 1))

	err := budget.Acquire(ctx, 1)
	assert.ErrorIs(t, err, errors.ErrBudgetExhausted)
	assert.True(t, budget.InFallback(ctx))

	status, err := budget.Status(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, status.CallsUsed)
	assert.Equal(t, 0, status.Remaining())
	assert.True(t, status.Fallback)
}

func TestSyncBarsSkipsFreshCache(t *testing.T) {
	server := newProviderServer(t)
	s := newTestStore(t)
	ctx := context.Background()

	today := time.Now().UTC().Truncate(24 * time.Hour)
	require.NoError(t, s.SaveBars(ctx, "FRESH", []models.DailyBar{
		{Symbol: "FRESH", Date: today, Open: 50, High: 51, Low: 49, Close: 50.5, Volume: 1_000_000},
	}))

	syncer := NewSyncer(NewClient(server.URL, ""), s, NewBudget(s, 100), 200)
	result, err := syncer.SyncBars(ctx, []string{"FRESH", "AAPL"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Skipped)
	assert.Equal(t, 1, result.Synced)
	assert.Empty(t, result.Failed)

	bars, err := s.GetBars(ctx, "AAPL", today.AddDate(0, -1, 0), today)
	require.NoError(t, err)
	assert.NotEmpty(t, bars)
}

func TestSyncBarsFallsBackWhenBudgetGone(t *testing.T) {
	server := newProviderServer(t)
	s := newTestStore(t)
	ctx := context.Background()

	syncer := NewSyncer(NewClient(server.URL, ""), s, NewBudget(s, 1), 200)
	result, err := syncer.SyncBars(ctx, []string{"A", "B", "C"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)
	assert.Equal(t, 2, result.Fallback)
}

func TestRefreshEarningsLogsDelta(t *testing.T) {
	server := newProviderServer(t)
	s := newTestStore(t)
	ctx := context.Background()

	// Seed an earlier date so the refreshed one registers as a move.
	oldDate := time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC)
	require.NoError(t, s.SaveEarnings(ctx, &models.EarningsEvent{
		Symbol: "TSLA", Date: oldDate, Timing: models.EarningsAMC, UpdatedAt: time.Now(),
	}))

	syncer := NewSyncer(NewClient(server.URL, ""), s, NewBudget(s, 100), 200)
	result, err := syncer.RefreshEarnings(ctx, []string{"TSLA"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)

	event, err := s.GetEarnings(ctx, "TSLA")
	require.NoError(t, err)
	require.NotNil(t, event)
	assert.True(t, event.DeltaFlag)
	assert.Equal(t, "2026-10-15", event.Date.Format("2006-01-02"))

	deltas, err := s.ListEarningsDeltas(ctx, store.DeltaFilter{Symbol: "TSLA"})
	require.NoError(t, err)
	require.Len(t, deltas, 1)
	assert.Equal(t, oldDate.Format("2006-01-02"), deltas[0].OldDate.UTC().Format("2006-01-02"))

	alerts, err := s.ListAlerts(ctx, store.AlertFilter{Source: "earnings"})
	require.NoError(t, err)
	assert.Len(t, alerts, 1)
}

func TestSyncUniverse(t *testing.T) {
	server := newProviderServer(t)
	s := newTestStore(t)
	ctx := context.Background()

	syncer := NewSyncer(NewClient(server.URL, ""), s, NewBudget(s, 100), 200)
	result, err := syncer.SyncUniverse(ctx, []string{"MSFT"})
	require.NoError(t, err)
	assert.Equal(t, 1, result.Synced)

	info, err := s.GetTicker(ctx, "MSFT")
	require.NoError(t, err)
	require.NotNil(t, info)
	assert.Equal(t, "Information Technology", info.Sector)
}

func TestSyncTargetUsesLastTradingDayOnWeekends(t *testing.T) {
	saturday := time.Date(2026, 8, 29, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), syncTarget(saturday))

	sunday := time.Date(2026, 8, 30, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 28, 0, 0, 0, 0, time.UTC), syncTarget(sunday))

	monday := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)
	assert.Equal(t, time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC), syncTarget(monday))
}
