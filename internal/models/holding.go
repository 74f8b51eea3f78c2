package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// RuleSet selects which exit rules apply to a lot.
type RuleSet string

const (
	RuleSetStandard RuleSet = "STANDARD"
	RuleSetLongTerm RuleSet = "LONG_TERM"
)

// Holding is an open position.
type Holding struct {
	ID         string
	Symbol     string
	Sector     string
	Shares     int64
	EntryPrice decimal.Decimal
	EntryDate  time.Time
	LastClose  float64
	RuleSet    RuleSet
	OpenedAt   time.Time
}

// CostBasis returns shares * entry price.
func (h *Holding) CostBasis() decimal.Decimal {
	return h.EntryPrice.Mul(decimal.NewFromInt(h.Shares))
}

// MarketValue returns shares * last close.
func (h *Holding) MarketValue() decimal.Decimal {
	return decimal.NewFromFloat(h.LastClose).Mul(decimal.NewFromInt(h.Shares))
}

// ReturnPct returns the unrealized return in percent against entry.
func (h *Holding) ReturnPct() float64 {
	entry, _ := h.EntryPrice.Float64()
	if entry == 0 {
		return 0
	}
	return (h.LastClose - entry) / entry * 100
}

// DaysHeld returns whole calendar days since entry as of ref.
func (h *Holding) DaysHeld(ref time.Time) int {
	return int(ref.Sub(h.EntryDate).Hours() / 24)
}

// ClosedTrade is a realized trade.
type ClosedTrade struct {
	ID            string
	Symbol        string
	Shares        int64
	EntryPrice    decimal.Decimal
	ExitPrice     decimal.Decimal
	EntryDate     time.Time
	ExitDate      time.Time
	PnL           decimal.Decimal
	PnLPct        float64
	Reason        string
	WashSaleUntil time.Time // zero unless closed at a loss
}

// LongTermHolding is a lot carved out of a standard position and held
// past the normal exit rules.
type LongTermHolding struct {
	ID           string
	Symbol       string
	Shares       int64
	CarvedFromID string // holding ID the lot was carved from
	CarvePrice   decimal.Decimal
	CarvedAt     time.Time
	Thesis       string
	ReviewDays   int // review cadence in days
	NextReviewAt time.Time
}

// ExitAction is the recommended action for a holding.
type ExitAction string

const (
	ActionHold  ExitAction = "HOLD"
	ActionTrim  ExitAction = "TRIM"
	ActionExit  ExitAction = "EXIT"
	ActionCarve ExitAction = "CARVE"
)

// Exit trigger names recorded on exit signals.
const (
	TriggerSellWindow     = "SellWindow"
	TriggerWindowEnd      = "WindowEnd"
	TriggerStopLoss       = "StopLoss"
	TriggerEarningsBuffer = "EarningsBuffer"
	TriggerLTHReview      = "LTHReview"
)

// ExitSignal is one row of the exit monitor: the computed exit state of
// a holding at evaluation time.
type ExitSignal struct {
	Symbol         string
	HoldingID      string
	Triggers       []string
	Action         ExitAction
	RuleSet        RuleSet
	DaysHeld       int
	ReturnPct      float64
	DaysToEarnings int // -1 when no earnings date is known
	EvaluatedAt    time.Time
}
