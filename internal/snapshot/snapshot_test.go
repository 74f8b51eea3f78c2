package snapshot

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/shopspring/decimal"
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

func TestExportWritesAllTabsAndManifest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()
	now := time.Date(2026, 8, 31, 14, 0, 0, 0, time.UTC)

	require.NoError(t, s.UpsertMasterRow(ctx, &models.MasterRow{
		Symbol: "AAPL", Status: models.MasterActive, LastClose: 180.5, RSI14: 42, UpdatedAt: now,
	}))
	require.NoError(t, s.SaveHolding(ctx, &models.Holding{
		Symbol: "GOOG", Sector: "Communication Services", Shares: 10,
		EntryPrice: decimal.NewFromInt(150), EntryDate: now.AddDate(0, 0, -10),
		LastClose: 155, RuleSet: models.RuleSetStandard,
	}))

	exporter := NewExporter(s, dir, 3)
	out, err := exporter.Export(ctx, now)
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(dir, "2026-08", "latest"), out)

	manifest, err := ReadManifest(out)
	require.NoError(t, err)
	assert.Equal(t, SchemaVersion, manifest.SchemaVersion)
	assert.Equal(t, "2026-08-31T14:00:00Z", manifest.SnapshotISO)
	assert.Len(t, manifest.Tabs, 16)

	for _, tab := range manifest.Tabs {
		_, err := os.Stat(filepath.Join(out, tab+".json"))
		assert.NoError(t, err, "tab file %s", tab)
	}

	// Tab files carry the columns/rows shape.
	data, err := os.ReadFile(filepath.Join(out, "master_list.json"))
	require.NoError(t, err)
	var master Tab
	require.NoError(t, json.Unmarshal(data, &master))
	assert.Contains(t, master.Columns, "RSI14")
	require.Len(t, master.Rows, 1)
	assert.Equal(t, "AAPL", master.Rows[0][0])

	data, err = os.ReadFile(filepath.Join(out, "current_holdings.json"))
	require.NoError(t, err)
	var holdings Tab
	require.NoError(t, json.Unmarshal(data, &holdings))
	require.Len(t, holdings.Rows, 1)
	assert.Equal(t, "GOOG", holdings.Rows[0][0])

	// No leftover temp files from the atomic writes.
	entries, err := os.ReadDir(out)
	require.NoError(t, err)
	for _, e := range entries {
		assert.NotContains(t, e.Name(), ".tmp")
	}
}

func TestExportOverwritesLatest(t *testing.T) {
	s := newTestStore(t)
	ctx := context.Background()
	dir := t.TempDir()
	exporter := NewExporter(s, dir, 3)

	first := time.Date(2026, 8, 10, 9, 0, 0, 0, time.UTC)
	_, err := exporter.Export(ctx, first)
	require.NoError(t, err)

	second := first.Add(6 * time.Hour)
	out, err := exporter.Export(ctx, second)
	require.NoError(t, err)

	manifest, err := ReadManifest(out)
	require.NoError(t, err)
	assert.Equal(t, second.Format(time.RFC3339), manifest.SnapshotISO)
}

func TestCheckFreshness(t *testing.T) {
	s := newTestStore(t)
	dir := t.TempDir()
	exporter := NewExporter(s, dir, 3)

	at := time.Date(2026, 8, 31, 12, 0, 0, 0, time.UTC)
	out, err := exporter.Export(context.Background(), at)
	require.NoError(t, err)

	budget := 120 * time.Minute

	fresh, err := CheckFreshness(out, budget, at.Add(90*time.Minute))
	require.NoError(t, err)
	assert.False(t, fresh.Stale)
	assert.Equal(t, 90*time.Minute, fresh.Age)

	stale, err := CheckFreshness(out, budget, at.Add(3*time.Hour))
	assert.ErrorIs(t, err, errors.ErrSnapshotStale)
	require.NotNil(t, stale)
	assert.True(t, stale.Stale)
}

func TestCheckFreshnessMissingManifest(t *testing.T) {
	_, err := CheckFreshness(t.TempDir(), time.Hour, time.Now())
	assert.Error(t, err)
}
