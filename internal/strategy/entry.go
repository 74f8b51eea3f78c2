package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"swing-trader/internal/config"
	"swing-trader/internal/logging"
	"swing-trader/internal/models"
	"swing-trader/internal/store"
)

// Gatekeeper turns entry-ready candidates into a sized entry watchlist,
// deferring anything a portfolio gate blocks to the next cycle.
type Gatekeeper struct {
	store    store.DataStore
	strategy config.StrategyConfig
	risk     config.RiskConfig
}

// NewGatekeeper creates an entry gatekeeper.
func NewGatekeeper(s store.DataStore, strategy config.StrategyConfig, risk config.RiskConfig) *Gatekeeper {
	return &Gatekeeper{store: s, strategy: strategy, risk: risk}
}

// BuildWatchlist evaluates every entry-ready candidate against the
// portfolio gates and rebuilds the entry watchlist with sized proposals.
// Blocked candidates land on the next-cycle queue instead.
func (g *Gatekeeper) BuildWatchlist(ctx context.Context, equity decimal.Decimal) ([]models.EntryCandidate, error) {
	log := logging.WithOperation(logging.FromContext(ctx), "build_watchlist")

	ready, err := g.store.ListCandidates(ctx, models.StageEntryReady)
	if err != nil {
		return nil, err
	}

	riskState, err := g.store.GetRiskState(ctx)
	if err != nil {
		return nil, err
	}
	killEngaged := riskState != nil && riskState.KillSwitch == models.KillSwitchEngaged

	exposures, err := g.store.SectorExposure(ctx, g.risk.SectorCap)
	if err != nil {
		return nil, err
	}
	sectorCount := make(map[string]int, len(exposures))
	for _, e := range exposures {
		sectorCount[e.Sector] = e.OpenCount
	}

	now := time.Now()
	var entries []models.EntryCandidate

	for _, candidate := range ready {
		held, err := g.store.GetHoldingBySymbol(ctx, candidate.Symbol)
		if err != nil {
			return nil, err
		}
		if held != nil {
			continue // already long, nothing to propose
		}

		reason, detail, err := g.checkGates(ctx, candidate.Symbol, sectorCount, killEngaged, now)
		if err != nil {
			return nil, err
		}
		if reason != "" {
			logging.LogGateBlock(log, candidate.Symbol, string(reason), detail)
			if err := g.store.DeferEntry(ctx, &models.DeferredEntry{
				Symbol: candidate.Symbol,
				Reason: reason,
				Detail: detail,
			}); err != nil {
				return nil, err
			}
			continue
		}

		entry, err := g.size(ctx, candidate, equity)
		if err != nil {
			return nil, err
		}
		if entry != nil {
			entries = append(entries, *entry)
		}
	}

	if err := g.store.ReplaceEntryWatchlist(ctx, entries); err != nil {
		return nil, err
	}
	return entries, nil
}

// checkGates returns a defer reason when a gate blocks the symbol, or
// empty when the entry is clear. Gate order matters: the kill switch
// blocks everything, then symbol-specific gates run.
func (g *Gatekeeper) checkGates(ctx context.Context, symbol string, sectorCount map[string]int, killEngaged bool, now time.Time) (models.DeferReason, string, error) {
	if killEngaged {
		return models.DeferKillSwitch, "kill switch engaged", nil
	}

	washUntil, err := g.store.WashSaleUntil(ctx, symbol)
	if err != nil {
		return "", "", err
	}
	if !washUntil.IsZero() && now.Before(washUntil) {
		return models.DeferWashSale, fmt.Sprintf("locked out until %s", washUntil.Format("2006-01-02")), nil
	}

	earnings, err := g.store.GetEarnings(ctx, symbol)
	if err != nil {
		return "", "", err
	}
	if days := earnings.DaysUntil(now); days >= 0 && days < g.strategy.ERBufferDays {
		return models.DeferEarningsBuffer, fmt.Sprintf("earnings in %d days, buffer is %d", days, g.strategy.ERBufferDays), nil
	}

	info, err := g.store.GetTicker(ctx, symbol)
	if err != nil {
		return "", "", err
	}
	if info != nil && sectorCount[info.Sector] >= g.risk.SectorCap {
		return models.DeferSectorCap, fmt.Sprintf("%s at %d/%d", info.Sector, sectorCount[info.Sector], g.risk.SectorCap), nil
	}

	return "", "", nil
}

// size builds a sized watchlist entry for a cleared candidate. Position
// size risks a fixed equity fraction against an ATR stop, capped at the
// max position share of equity.
func (g *Gatekeeper) size(ctx context.Context, candidate models.Candidate, equity decimal.Decimal) (*models.EntryCandidate, error) {
	bar, err := g.store.GetLatestBar(ctx, candidate.Symbol)
	if err != nil {
		return nil, err
	}
	if bar == nil || bar.Close <= 0 {
		return nil, nil
	}

	stopDistance := 2 * bar.ATR20
	if stopDistance <= 0 {
		stopDistance = bar.Close * -g.strategy.StopLossPct / 100
	}
	if stopDistance <= 0 {
		return nil, nil
	}

	equityF, _ := equity.Float64()
	riskDollars := equityF * g.risk.RiskPerTradePct / 100
	shares := int64(riskDollars / stopDistance)

	maxDollars := equityF * g.risk.MaxPositionPercent / 100
	if maxDollars > 0 && float64(shares)*bar.Close > maxDollars {
		shares = int64(maxDollars / bar.Close)
	}
	if shares <= 0 {
		return nil, nil
	}

	size := decimal.NewFromFloat(bar.Close).Mul(decimal.NewFromInt(shares)).Round(2)

	earnings, err := g.store.GetEarnings(ctx, candidate.Symbol)
	if err != nil {
		return nil, err
	}
	days := earnings.DaysUntil(time.Now())
	earningsSafe := days < 0 || days >= g.strategy.ERBufferDays

	return &models.EntryCandidate{
		Symbol:         candidate.Symbol,
		Signals:        []string{models.SignalRSI, models.SignalPercentB, models.SignalMACDHook},
		BounceScore:    candidate.BounceScore,
		EntryZoneLow:   bar.Close - 0.5*bar.ATR20,
		EntryZoneHigh:  bar.Close + 0.25*bar.ATR20,
		ProposedSize:   size,
		ProposedShares: shares,
		EarningsSafe:   earningsSafe,
		AddedAt:        time.Now(),
	}, nil
}
