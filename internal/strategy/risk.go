package strategy

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"swing-trader/internal/config"
	"swing-trader/internal/logging"
	"swing-trader/internal/models"
	"swing-trader/internal/store"
)

// drawdownWindow is the trailing window the kill switch watches, in
// equity points.
const drawdownWindow = 10

// RiskMonitor maintains the equity curve, the trailing drawdown, and
// the kill switch.
type RiskMonitor struct {
	store store.DataStore
	risk  config.RiskConfig
}

// NewRiskMonitor creates the portfolio guardrail monitor.
func NewRiskMonitor(s store.DataStore, cfg config.RiskConfig) *RiskMonitor {
	return &RiskMonitor{store: s, risk: cfg}
}

// RecordEquity appends today's equity point and re-evaluates the kill
// switch against the trailing drawdown.
func (m *RiskMonitor) RecordEquity(ctx context.Context, equity decimal.Decimal, now time.Time) (*models.RiskState, error) {
	log := logging.WithOperation(logging.FromContext(ctx), "record_equity")

	if err := m.store.AppendEquityPoint(ctx, &models.EquityPoint{Date: now, Equity: equity}); err != nil {
		return nil, err
	}

	series, err := m.store.GetEquitySeries(ctx, drawdownWindow)
	if err != nil {
		return nil, err
	}
	drawdown := trailingDrawdown(series)

	previous, err := m.store.GetRiskState(ctx)
	if err != nil {
		return nil, err
	}

	state := &models.RiskState{
		Date:        now,
		Equity:      equity,
		Drawdown10D: drawdown,
		KillSwitch:  models.KillSwitchOff,
		UpdatedAt:   now,
	}

	// The switch engages automatically but only releases by hand, so a
	// bounce off the low does not quietly reopen entries.
	if previous != nil && previous.KillSwitch == models.KillSwitchEngaged {
		state.KillSwitch = models.KillSwitchEngaged
		state.Note = previous.Note
	}
	if drawdown <= m.risk.KillSwitchDDPct && state.KillSwitch != models.KillSwitchEngaged {
		state.KillSwitch = models.KillSwitchEngaged
		state.Note = "engaged on trailing drawdown"
		logging.LogKillSwitch(log, string(state.KillSwitch), drawdown)
		if err := m.store.LogAlert(ctx, &models.AlertEntry{
			Severity: models.AlertCritical,
			Source:   "risk",
			Message:  "kill switch engaged on trailing drawdown",
		}); err != nil {
			return nil, err
		}
	}

	if err := m.store.SaveRiskState(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

// ReleaseKillSwitch clears the switch. This is a deliberate manual
// action with an audit note.
func (m *RiskMonitor) ReleaseKillSwitch(ctx context.Context, note string, now time.Time) (*models.RiskState, error) {
	state, err := m.store.GetRiskState(ctx)
	if err != nil {
		return nil, err
	}
	if state == nil || state.KillSwitch != models.KillSwitchEngaged {
		return state, nil
	}

	state.KillSwitch = models.KillSwitchOff
	state.Note = note
	state.UpdatedAt = now
	if err := m.store.SaveRiskState(ctx, state); err != nil {
		return nil, err
	}

	logging.LogKillSwitch(logging.FromContext(ctx), string(state.KillSwitch), state.Drawdown10D)
	if err := m.store.LogAlert(ctx, &models.AlertEntry{
		Severity: models.AlertInfo,
		Source:   "risk",
		Message:  "kill switch released: " + note,
	}); err != nil {
		return nil, err
	}
	return state, nil
}

// trailingDrawdown returns the percent decline of the last point from
// the highest point in the series. Zero or positive series give 0.
func trailingDrawdown(series []models.EquityPoint) float64 {
	if len(series) == 0 {
		return 0
	}

	peak := series[0].Equity
	for _, p := range series[1:] {
		if p.Equity.GreaterThan(peak) {
			peak = p.Equity
		}
	}
	if peak.LessThanOrEqual(decimal.Zero) {
		return 0
	}

	last := series[len(series)-1].Equity
	dd, _ := last.Sub(peak).Div(peak).Mul(decimal.NewFromInt(100)).Float64()
	if dd > 0 {
		return 0
	}
	return dd
}
