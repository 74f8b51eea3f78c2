// Package snapshot exports the workbook tabs as JSON under a dated
// directory tree and checks snapshot freshness for downstream readers.
package snapshot

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"swing-trader/internal/logging"
	"swing-trader/internal/store"
)

// SchemaVersion identifies the snapshot layout.
const SchemaVersion = "2.2"

// Tab is one exported table: column names plus row values in column
// order.
type Tab struct {
	Columns []string        `json:"columns"`
	Rows    [][]interface{} `json:"rows"`
}

// Manifest describes one snapshot directory.
type Manifest struct {
	SchemaVersion string   `json:"schema_version"`
	SnapshotISO   string   `json:"snapshot_iso"`
	Tabs          []string `json:"tabs"`
}

// Exporter writes tab snapshots under dir/YYYY-MM/latest/.
type Exporter struct {
	store     store.DataStore
	dir       string
	sectorCap int
}

// NewExporter creates a snapshot exporter rooted at dir.
func NewExporter(s store.DataStore, dir string, sectorCap int) *Exporter {
	return &Exporter{store: s, dir: dir, sectorCap: sectorCap}
}

// LatestDir returns the directory the current month's snapshot lives in.
func (e *Exporter) LatestDir(now time.Time) string {
	return filepath.Join(e.dir, now.Format("2006-01"), "latest")
}

// Export writes every tab plus the manifest. Files are written whole
// and renamed into place so a concurrent reader never sees a partial
// tab.
func (e *Exporter) Export(ctx context.Context, now time.Time) (string, error) {
	log := logging.WithOperation(logging.FromContext(ctx), "snapshot_export")

	dir := e.LatestDir(now)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return "", fmt.Errorf("creating snapshot dir: %w", err)
	}

	tabs := map[string]func(context.Context) (*Tab, error){
		"master_list":        e.masterTab,
		"oversold_tracker":   e.trackerTab,
		"entry_watchlist":    e.watchlistTab,
		"current_holdings":   e.holdingsTab,
		"closed_trades":      e.closedTradesTab,
		"long_term_holdings": e.longTermTab,
		"exit_monitor":       e.exitTab,
		"earnings_monitor":   e.earningsTab,
		"earnings_delta_log": e.deltaTab,
		"next_cycle_queue":   e.queueTab,
		"risk_monitor":       e.riskTab,
		"sector_exposure":    e.sectorTab,
		"backtest_results":   e.backtestTab,
		"alerts_log":         e.alertsTab,
		"api_budget":         e.budgetTab,
		"settings":           e.settingsTab,
	}

	names := make([]string, 0, len(tabs))
	for name, build := range tabs {
		tab, err := build(ctx)
		if err != nil {
			return "", fmt.Errorf("building %s tab: %w", name, err)
		}
		if err := writeJSON(filepath.Join(dir, name+".json"), tab); err != nil {
			return "", err
		}
		names = append(names, name)
	}

	manifest := &Manifest{
		SchemaVersion: SchemaVersion,
		SnapshotISO:   now.UTC().Format(time.RFC3339),
		Tabs:          names,
	}
	if err := writeJSON(filepath.Join(dir, "manifest.json"), manifest); err != nil {
		return "", err
	}

	log.Info().Str("dir", dir).Int("tabs", len(names)).Msg("snapshot exported")
	return dir, nil
}

// writeJSON writes v to path via a temp file rename.
func writeJSON(path string, v interface{}) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshaling %s: %w", filepath.Base(path), err)
	}

	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("writing %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("renaming %s: %w", filepath.Base(path), err)
	}
	return nil
}

func (e *Exporter) masterTab(ctx context.Context) (*Tab, error) {
	rows, err := e.store.ListMaster(ctx, store.MasterFilter{})
	if err != nil {
		return nil, err
	}
	tab := &Tab{Columns: []string{"Symbol", "Status", "LastClose", "RSI14", "PercentB", "MACDHist", "ATR20", "VolZ", "EarningsSafe", "SectorOpen", "UpdatedAt"}}
	for _, r := range rows {
		tab.Rows = append(tab.Rows, []interface{}{
			r.Symbol, string(r.Status), r.LastClose, r.RSI14, r.PercentB, r.MACDHist, r.ATR20, r.VolZ, r.EarningsSafe, r.SectorOpen, iso(r.UpdatedAt),
		})
	}
	return tab, nil
}

func (e *Exporter) trackerTab(ctx context.Context) (*Tab, error) {
	candidates, err := e.store.ListCandidates(ctx, "")
	if err != nil {
		return nil, err
	}
	tab := &Tab{Columns: []string{"Symbol", "Stage", "MissingSignals", "BounceScore", "NextCheckAt", "FirstSeen"}}
	for _, c := range candidates {
		tab.Rows = append(tab.Rows, []interface{}{
			c.Symbol, string(c.Stage), c.MissingSignals, c.BounceScore, iso(c.NextCheckAt), iso(c.FirstSeen),
		})
	}
	return tab, nil
}

func (e *Exporter) watchlistTab(ctx context.Context) (*Tab, error) {
	entries, err := e.store.ListEntryWatchlist(ctx)
	if err != nil {
		return nil, err
	}
	tab := &Tab{Columns: []string{"Symbol", "Signals", "BounceScore", "EntryZoneLow", "EntryZoneHigh", "ProposedSize", "ProposedShares", "EarningsSafe"}}
	for _, w := range entries {
		tab.Rows = append(tab.Rows, []interface{}{
			w.Symbol, w.Signals, w.BounceScore, w.EntryZoneLow, w.EntryZoneHigh, w.ProposedSize.String(), w.ProposedShares, w.EarningsSafe,
		})
	}
	return tab, nil
}

func (e *Exporter) holdingsTab(ctx context.Context) (*Tab, error) {
	holdings, err := e.store.ListHoldings(ctx)
	if err != nil {
		return nil, err
	}
	tab := &Tab{Columns: []string{"Symbol", "Sector", "Shares", "EntryPrice", "EntryDate", "LastClose", "ReturnPct", "DaysHeld", "RuleSet"}}
	now := time.Now()
	for i := range holdings {
		h := &holdings[i]
		tab.Rows = append(tab.Rows, []interface{}{
			h.Symbol, h.Sector, h.Shares, h.EntryPrice.String(), iso(h.EntryDate), h.LastClose, h.ReturnPct(), h.DaysHeld(now), string(h.RuleSet),
		})
	}
	return tab, nil
}

func (e *Exporter) closedTradesTab(ctx context.Context) (*Tab, error) {
	trades, err := e.store.ListClosedTrades(ctx, store.TradeFilter{})
	if err != nil {
		return nil, err
	}
	tab := &Tab{Columns: []string{"Symbol", "Shares", "EntryPrice", "ExitPrice", "EntryDate", "ExitDate", "PnL", "PnLPct", "Reason", "WashSaleUntil"}}
	for _, t := range trades {
		tab.Rows = append(tab.Rows, []interface{}{
			t.Symbol, t.Shares, t.EntryPrice.String(), t.ExitPrice.String(), iso(t.EntryDate), iso(t.ExitDate), t.PnL.String(), t.PnLPct, t.Reason, iso(t.WashSaleUntil),
		})
	}
	return tab, nil
}

func (e *Exporter) longTermTab(ctx context.Context) (*Tab, error) {
	lots, err := e.store.ListLongTermHoldings(ctx)
	if err != nil {
		return nil, err
	}
	tab := &Tab{Columns: []string{"Symbol", "Shares", "CarvePrice", "CarvedAt", "Thesis", "NextReviewAt"}}
	for _, l := range lots {
		tab.Rows = append(tab.Rows, []interface{}{
			l.Symbol, l.Shares, l.CarvePrice.String(), iso(l.CarvedAt), l.Thesis, iso(l.NextReviewAt),
		})
	}
	return tab, nil
}

func (e *Exporter) exitTab(ctx context.Context) (*Tab, error) {
	signals, err := e.store.ListExitSignals(ctx)
	if err != nil {
		return nil, err
	}
	tab := &Tab{Columns: []string{"Symbol", "Triggers", "Action", "RuleSet", "DaysHeld", "ReturnPct", "DaysToEarnings", "EvaluatedAt"}}
	for _, s := range signals {
		tab.Rows = append(tab.Rows, []interface{}{
			s.Symbol, s.Triggers, string(s.Action), string(s.RuleSet), s.DaysHeld, s.ReturnPct, s.DaysToEarnings, iso(s.EvaluatedAt),
		})
	}
	return tab, nil
}

func (e *Exporter) earningsTab(ctx context.Context) (*Tab, error) {
	events, err := e.store.ListEarningsWithin(ctx, 365)
	if err != nil {
		return nil, err
	}
	tab := &Tab{Columns: []string{"Symbol", "Date", "Timing", "DeltaFlag", "UpdatedAt"}}
	for _, ev := range events {
		tab.Rows = append(tab.Rows, []interface{}{
			ev.Symbol, iso(ev.Date), string(ev.Timing), ev.DeltaFlag, iso(ev.UpdatedAt),
		})
	}
	return tab, nil
}

func (e *Exporter) deltaTab(ctx context.Context) (*Tab, error) {
	deltas, err := e.store.ListEarningsDeltas(ctx, store.DeltaFilter{})
	if err != nil {
		return nil, err
	}
	tab := &Tab{Columns: []string{"Symbol", "OldDate", "NewDate", "LoggedAt"}}
	for _, d := range deltas {
		tab.Rows = append(tab.Rows, []interface{}{d.Symbol, iso(d.OldDate), iso(d.NewDate), iso(d.LoggedAt)})
	}
	return tab, nil
}

func (e *Exporter) queueTab(ctx context.Context) (*Tab, error) {
	entries, err := e.store.ListDeferred(ctx, false)
	if err != nil {
		return nil, err
	}
	tab := &Tab{Columns: []string{"Symbol", "Reason", "Detail", "QueuedAt", "ReleasedAt"}}
	for _, d := range entries {
		tab.Rows = append(tab.Rows, []interface{}{d.Symbol, string(d.Reason), d.Detail, iso(d.QueuedAt), iso(d.ReleasedAt)})
	}
	return tab, nil
}

func (e *Exporter) riskTab(ctx context.Context) (*Tab, error) {
	tab := &Tab{Columns: []string{"Date", "Equity", "DD", "KillSwitch", "Note"}}
	state, err := e.store.GetRiskState(ctx)
	if err != nil {
		return nil, err
	}
	if state != nil {
		tab.Rows = append(tab.Rows, []interface{}{
			iso(state.Date), state.Equity.String(), state.Drawdown10D, string(state.KillSwitch), state.Note,
		})
	}
	return tab, nil
}

func (e *Exporter) sectorTab(ctx context.Context) (*Tab, error) {
	exposures, err := e.store.SectorExposure(ctx, e.sectorCap)
	if err != nil {
		return nil, err
	}
	tab := &Tab{Columns: []string{"Sector", "OpenCount", "Cap", "Full"}}
	for i := range exposures {
		ex := &exposures[i]
		tab.Rows = append(tab.Rows, []interface{}{ex.Sector, ex.OpenCount, ex.Cap, ex.Full()})
	}
	return tab, nil
}

func (e *Exporter) backtestTab(ctx context.Context) (*Tab, error) {
	results, err := e.store.ListBacktestResults(ctx, 0)
	if err != nil {
		return nil, err
	}
	tab := &Tab{Columns: []string{"Symbol", "Trades", "AvgReturnPct", "HitRate", "BestWindow", "ComputedAt"}}
	for _, r := range results {
		tab.Rows = append(tab.Rows, []interface{}{r.Symbol, r.Trades, r.AvgReturnPct, r.HitRate, r.BestWindow, iso(r.ComputedAt)})
	}
	return tab, nil
}

func (e *Exporter) alertsTab(ctx context.Context) (*Tab, error) {
	alerts, err := e.store.ListAlerts(ctx, store.AlertFilter{})
	if err != nil {
		return nil, err
	}
	tab := &Tab{Columns: []string{"Timestamp", "Severity", "Source", "Message"}}
	for _, a := range alerts {
		tab.Rows = append(tab.Rows, []interface{}{iso(a.Timestamp), string(a.Severity), a.Source, a.Message})
	}
	return tab, nil
}

func (e *Exporter) budgetTab(ctx context.Context) (*Tab, error) {
	tab := &Tab{Columns: []string{"Date", "CallsUsed", "CallLimit", "Fallback"}}
	budget, err := e.store.GetBudget(ctx, time.Now())
	if err != nil {
		return nil, err
	}
	if budget != nil {
		tab.Rows = append(tab.Rows, []interface{}{iso(budget.Date), budget.CallsUsed, budget.CallLimit, budget.Fallback})
	}
	return tab, nil
}

func (e *Exporter) settingsTab(ctx context.Context) (*Tab, error) {
	settings, err := e.store.AllSettings(ctx)
	if err != nil {
		return nil, err
	}
	tab := &Tab{Columns: []string{"Key", "Value"}}
	for key, value := range settings {
		tab.Rows = append(tab.Rows, []interface{}{key, value})
	}
	return tab, nil
}

// iso formats a time as RFC 3339, empty string for the zero time.
func iso(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(time.RFC3339)
}
