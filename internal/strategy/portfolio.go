package strategy

import (
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"swing-trader/internal/config"
	"swing-trader/internal/errors"
	"swing-trader/internal/models"
	"swing-trader/internal/store"
)

// Portfolio records the manual trade operations: opening, closing, and
// carving lots. Orders are placed by hand at the broker; this is the
// book of record.
type Portfolio struct {
	store    store.DataStore
	strategy config.StrategyConfig
}

// NewPortfolio creates the portfolio recorder.
func NewPortfolio(s store.DataStore, cfg config.StrategyConfig) *Portfolio {
	return &Portfolio{store: s, strategy: cfg}
}

// OpenPosition records a fill as a new standard-rules holding.
func (p *Portfolio) OpenPosition(ctx context.Context, symbol string, shares int64, price decimal.Decimal, date time.Time) (*models.Holding, error) {
	if shares <= 0 {
		return nil, fmt.Errorf("shares must be positive, got %d", shares)
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("price must be positive, got %s", price)
	}

	existing, err := p.store.GetHoldingBySymbol(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if existing != nil {
		return nil, fmt.Errorf("already holding %s", symbol)
	}

	// Manual fills respect the hard gates too: no new lots while the
	// kill switch is on or inside the symbol's wash-sale lockout.
	state, err := p.store.GetRiskState(ctx)
	if err != nil {
		return nil, err
	}
	if state != nil && state.KillSwitch == models.KillSwitchEngaged {
		return nil, errors.NewGateError(symbol, "kill_switch", "release it before opening new lots", errors.ErrKillSwitchEngaged)
	}
	washUntil, err := p.store.WashSaleUntil(ctx, symbol)
	if err != nil {
		return nil, err
	}
	if !washUntil.IsZero() && date.Before(washUntil) {
		return nil, errors.NewGateError(symbol, "wash_sale",
			fmt.Sprintf("locked out until %s", washUntil.Format("2006-01-02")), errors.ErrWashSaleWindow)
	}

	sector := ""
	if info, err := p.store.GetTicker(ctx, symbol); err != nil {
		return nil, err
	} else if info != nil {
		sector = info.Sector
	}

	closeF, _ := price.Float64()
	h := &models.Holding{
		Symbol:     symbol,
		Sector:     sector,
		Shares:     shares,
		EntryPrice: price,
		EntryDate:  date,
		LastClose:  closeF,
		RuleSet:    models.RuleSetStandard,
	}
	if err := p.store.SaveHolding(ctx, h); err != nil {
		return nil, err
	}

	// The symbol leaves the staging pipeline once the position is on.
	if err := p.store.RemoveCandidate(ctx, symbol); err != nil {
		return nil, err
	}
	return h, nil
}

// ClosePosition records a fill that closes a holding. A losing close
// stamps the wash-sale lockout so re-entry stays blocked for the
// configured window.
func (p *Portfolio) ClosePosition(ctx context.Context, holdingID string, price decimal.Decimal, reason string, date time.Time) (*models.ClosedTrade, error) {
	h, err := p.store.GetHolding(ctx, holdingID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, errors.ErrHoldingNotFound
	}
	if price.LessThanOrEqual(decimal.Zero) {
		return nil, fmt.Errorf("price must be positive, got %s", price)
	}

	sharesDec := decimal.NewFromInt(h.Shares)
	pnl := price.Sub(h.EntryPrice).Mul(sharesDec).Round(2)

	entryF, _ := h.EntryPrice.Float64()
	exitF, _ := price.Float64()
	pnlPct := 0.0
	if entryF != 0 {
		pnlPct = (exitF - entryF) / entryF * 100
	}

	trade := &models.ClosedTrade{
		Symbol:     h.Symbol,
		Shares:     h.Shares,
		EntryPrice: h.EntryPrice,
		ExitPrice:  price,
		EntryDate:  h.EntryDate,
		ExitDate:   date,
		PnL:        pnl,
		PnLPct:     pnlPct,
		Reason:     reason,
	}
	if pnl.IsNegative() {
		trade.WashSaleUntil = date.AddDate(0, 0, p.strategy.WashSaleDays)
	}

	if err := p.store.SaveClosedTrade(ctx, trade); err != nil {
		return nil, err
	}
	if err := p.store.RemoveHolding(ctx, holdingID); err != nil {
		return nil, err
	}
	return trade, nil
}

// Carve splits the configured share of a winning lot into a long-term
// holding and leaves the remainder under standard rules. The carve
// requires the lot to clear the gain threshold.
func (p *Portfolio) Carve(ctx context.Context, holdingID string, price decimal.Decimal, thesis string, date time.Time) (*models.LongTermHolding, error) {
	h, err := p.store.GetHolding(ctx, holdingID)
	if err != nil {
		return nil, err
	}
	if h == nil {
		return nil, errors.ErrHoldingNotFound
	}

	entryF, _ := h.EntryPrice.Float64()
	priceF, _ := price.Float64()
	gainPct := 0.0
	if entryF != 0 {
		gainPct = (priceF - entryF) / entryF * 100
	}
	if gainPct < p.strategy.LTHGainThreshold {
		return nil, fmt.Errorf("gain %.1f%% below %.1f%% carve threshold", gainPct, p.strategy.LTHGainThreshold)
	}

	carveShares := h.Shares * int64(p.strategy.LTHCarvePct) / 100
	if carveShares < 1 {
		carveShares = 1
	}
	if carveShares >= h.Shares {
		return nil, fmt.Errorf("lot of %d shares too small to carve", h.Shares)
	}

	lot := &models.LongTermHolding{
		Symbol:       h.Symbol,
		Shares:       carveShares,
		CarvedFromID: h.ID,
		CarvePrice:   price,
		CarvedAt:     date,
		Thesis:       thesis,
		ReviewDays:   p.strategy.LTHReviewDays,
		NextReviewAt: date.AddDate(0, 0, p.strategy.LTHReviewDays),
	}
	if err := p.store.SaveLongTermHolding(ctx, lot); err != nil {
		return nil, err
	}

	h.Shares -= carveShares
	if err := p.store.SaveHolding(ctx, h); err != nil {
		return nil, err
	}
	return lot, nil
}

// MarkLongTermReviewed pushes a long-term lot's next review out by its
// review cadence.
func (p *Portfolio) MarkLongTermReviewed(ctx context.Context, lotID string, now time.Time) error {
	lots, err := p.store.ListLongTermHoldings(ctx)
	if err != nil {
		return err
	}
	for i := range lots {
		if lots[i].ID == lotID {
			lots[i].NextReviewAt = now.AddDate(0, 0, lots[i].ReviewDays)
			return p.store.SaveLongTermHolding(ctx, &lots[i])
		}
	}
	return errors.ErrHoldingNotFound
}
