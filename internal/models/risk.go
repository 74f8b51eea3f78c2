package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// KillSwitchState is the portfolio kill switch state.
type KillSwitchState string

const (
	KillSwitchOff     KillSwitchState = "OFF"
	KillSwitchEngaged KillSwitchState = "ENGAGED"
)

// RiskState is the current portfolio guardrail snapshot.
type RiskState struct {
	Date        time.Time
	Equity      decimal.Decimal
	Drawdown10D float64 // percent, negative when under water
	KillSwitch  KillSwitchState
	Note        string
	UpdatedAt   time.Time
}

// SectorExposure is the open-position count for one GICS sector.
type SectorExposure struct {
	Sector    string
	OpenCount int
	Cap       int
}

// Full reports whether the sector quota is used up.
func (s *SectorExposure) Full() bool {
	return s.OpenCount >= s.Cap
}

// DeferReason explains why an entry was pushed to the next cycle.
type DeferReason string

const (
	DeferEarningsBuffer DeferReason = "EARNINGS_BUFFER"
	DeferSectorCap      DeferReason = "SECTOR_CAP"
	DeferKillSwitch     DeferReason = "KILL_SWITCH"
	DeferWashSale       DeferReason = "WASH_SALE"
)

// DeferredEntry is one row of the next-cycle queue.
type DeferredEntry struct {
	ID         string
	Symbol     string
	Reason     DeferReason
	Detail     string
	QueuedAt   time.Time
	ReleasedAt time.Time // zero while still queued
}

// EquityPoint is one point of the portfolio equity curve.
type EquityPoint struct {
	Date   time.Time
	Equity decimal.Decimal
}
