package digest

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swing-trader/internal/config"
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

func newBuilder(s *store.SQLiteStore) *Builder {
	cfg := config.Default()
	return NewBuilder(s, cfg.Digest, cfg.Risk.SectorCap, cfg.Snapshot.StaleMinutes)
}

func TestBuildHasAllSections(t *testing.T) {
	s := newTestStore(t)
	b := newBuilder(s)

	out, err := b.Build(context.Background(), time.Date(2026, 8, 31, 16, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	assert.Contains(t, out, "## Daily Watchlist Digest 2026-08-31")
	assert.Contains(t, out, "### Buy Candidates")
	assert.Contains(t, out, "### Oversold, Not Ready")
	assert.Contains(t, out, "### Exits")
	assert.Contains(t, out, "### Risk & Quotas")
	assert.Contains(t, out, "### Upcoming Earnings")
	assert.Contains(t, out, "_None today._")
	assert.Contains(t, out, "_Pipeline empty._")
}

func TestBuildCapsBuyCandidates(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()

	var entries []models.EntryCandidate
	for i := 0; i < 12; i++ {
		entries = append(entries, models.EntryCandidate{
			Symbol:       string(rune('A'+i)) + "X",
			BounceScore:  float64(i),
			ProposedSize: decimal.NewFromInt(2500),
		})
	}
	require.NoError(t, s.ReplaceEntryWatchlist(ctx, entries))

	b := newBuilder(s)
	out, err := b.Build(ctx, time.Now())
	require.NoError(t, err)

	// Top 8 by score make the cut; the weakest four do not.
	assert.Contains(t, out, "| LX |")  // score 11
	assert.Contains(t, out, "| EX |")  // score 4
	assert.NotContains(t, out, "| DX |") // score 3
	assert.NotContains(t, out, "| AX |") // score 0
}

func TestBuildShowsActionableExitsAndRisk(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	now := time.Now()

	require.NoError(t, s.ReplaceExitSignals(ctx, []models.ExitSignal{
		{HoldingID: "h1", Symbol: "HOLD1", Action: models.ActionHold, RuleSet: models.RuleSetStandard, EvaluatedAt: now},
		{HoldingID: "h2", Symbol: "SELL1", Triggers: []string{models.TriggerWindowEnd}, Action: models.ActionExit, RuleSet: models.RuleSetStandard, DaysHeld: 41, ReturnPct: 2.5, EvaluatedAt: now},
	}))
	require.NoError(t, s.SaveRiskState(ctx, &models.RiskState{
		Date: now, Equity: decimal.NewFromInt(105_000), Drawdown10D: -1.2,
		KillSwitch: models.KillSwitchOff, UpdatedAt: now,
	}))
	require.NoError(t, s.SaveHolding(ctx, &models.Holding{
		Symbol: "XOM", Sector: "Energy", Shares: 10,
		EntryPrice: decimal.NewFromInt(100), EntryDate: now, RuleSet: models.RuleSetStandard,
	}))

	b := newBuilder(s)
	out, err := b.Build(ctx, now)
	require.NoError(t, err)

	assert.Contains(t, out, "SELL1")
	assert.NotContains(t, out, "HOLD1") // holds stay out of the digest
	assert.Contains(t, out, "WindowEnd")
	assert.Contains(t, out, "Kill switch: **OFF**")
	assert.Contains(t, out, "Energy: 1/3")
}

func TestBuildStalenessBanner(t *testing.T) {
	s := newTestStore(t)
	b := newBuilder(s)
	now := time.Now()

	b.SetSnapshotTimeFn(func() (time.Time, error) {
		return now.Add(-3 * time.Hour), nil
	})
	out, err := b.Build(context.Background(), now)
	require.NoError(t, err)
	assert.Contains(t, out, "stale")

	b.SetSnapshotTimeFn(func() (time.Time, error) {
		return now.Add(-10 * time.Minute), nil
	})
	out, err = b.Build(context.Background(), now)
	require.NoError(t, err)
	assert.NotContains(t, out, "stale")
}

func TestPublisherCreatesIssueAndComments(t *testing.T) {
	var createdIssue, commented bool

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/issues", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]map[string]interface{}{})
		case http.MethodPost:
			createdIssue = true
			json.NewEncoder(w).Encode(map[string]interface{}{"number": 7, "title": "Daily Watchlist Digest"})
		}
	})
	mux.HandleFunc("/repos/owner/repo/issues/7/comments", func(w http.ResponseWriter, r *http.Request) {
		commented = true
		var body map[string]string
		require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
		assert.Contains(t, body["body"], "Digest body")
		w.WriteHeader(http.StatusCreated)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	p := NewPublisher(PublisherOptions{
		APIBase: server.URL,
		Repo:    "owner/repo",
		Token:   "test-token",
	})
	require.NoError(t, p.Publish(context.Background(), "Digest body"))
	assert.True(t, createdIssue)
	assert.True(t, commented)
}

func TestPublisherReusesExistingIssue(t *testing.T) {
	var createdIssue bool

	mux := http.NewServeMux()
	mux.HandleFunc("/repos/owner/repo/issues", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch r.Method {
		case http.MethodGet:
			json.NewEncoder(w).Encode([]map[string]interface{}{
				{"number": 3, "title": "Daily Watchlist Digest", "state": "open"},
			})
		case http.MethodPost:
			createdIssue = true
		}
	})
	mux.HandleFunc("/repos/owner/repo/issues/3/comments", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
	})
	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)

	p := NewPublisher(PublisherOptions{
		APIBase: server.URL,
		Repo:    "owner/repo",
		Token:   "test-token",
	})
	require.NoError(t, p.Publish(context.Background(), "body"))
	assert.False(t, createdIssue)
}

func TestPublisherRequiresToken(t *testing.T) {
	p := NewPublisher(PublisherOptions{Repo: "owner/repo"})
	assert.Error(t, p.Publish(context.Background(), "body"))
}

func TestPublisherNoopWithoutTargets(t *testing.T) {
	p := NewPublisher(PublisherOptions{})
	assert.NoError(t, p.Publish(context.Background(), "body"))
}
