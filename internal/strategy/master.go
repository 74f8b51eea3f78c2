package strategy

import (
	"context"
	"time"

	"swing-trader/internal/config"
	"swing-trader/internal/models"
	"swing-trader/internal/store"
)

// MasterList maintains the per-symbol rollup the rest of the pipeline
// and the digest read from.
type MasterList struct {
	store    store.DataStore
	strategy config.StrategyConfig
	risk     config.RiskConfig
}

// NewMasterList creates the master list maintainer.
func NewMasterList(s store.DataStore, strategy config.StrategyConfig, risk config.RiskConfig) *MasterList {
	return &MasterList{store: s, strategy: strategy, risk: risk}
}

// Refresh rebuilds the master list from current validations, cached
// indicators, earnings dates, sector exposure, and the deferral queue.
func (m *MasterList) Refresh(ctx context.Context, now time.Time) (int, error) {
	validations, err := m.store.ListValidations(ctx, false)
	if err != nil {
		return 0, err
	}

	deferred, err := m.store.ListDeferred(ctx, true)
	if err != nil {
		return 0, err
	}
	deferredSet := make(map[string]bool, len(deferred))
	for _, d := range deferred {
		deferredSet[d.Symbol] = true
	}

	exposures, err := m.store.SectorExposure(ctx, m.risk.SectorCap)
	if err != nil {
		return 0, err
	}
	sectorFull := make(map[string]bool, len(exposures))
	for _, e := range exposures {
		sectorFull[e.Sector] = e.Full()
	}

	count := 0
	for _, v := range validations {
		row := &models.MasterRow{
			Symbol:    v.Symbol,
			Status:    models.MasterActive,
			UpdatedAt: now,
		}
		switch {
		case !v.Valid:
			row.Status = models.MasterExcluded
		case deferredSet[v.Symbol]:
			row.Status = models.MasterDeferred
		}

		bar, err := m.store.GetLatestBar(ctx, v.Symbol)
		if err != nil {
			return count, err
		}
		if bar != nil {
			row.LastClose = bar.Close
			row.RSI14 = bar.RSI14
			row.PercentB = bar.PercentB
			row.MACDHist = bar.MACDHist
			row.ATR20 = bar.ATR20
			row.VolZ = bar.VolZ
		}

		earnings, err := m.store.GetEarnings(ctx, v.Symbol)
		if err != nil {
			return count, err
		}
		days := earnings.DaysUntil(now)
		row.EarningsSafe = days < 0 || days >= m.strategy.ERBufferDays

		info, err := m.store.GetTicker(ctx, v.Symbol)
		if err != nil {
			return count, err
		}
		row.SectorOpen = info == nil || !sectorFull[info.Sector]

		if err := m.store.UpsertMasterRow(ctx, row); err != nil {
			return count, err
		}
		count++
	}

	return count, nil
}
