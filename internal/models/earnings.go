package models

import (
	"time"
)

// EarningsTiming is the intraday timing of an earnings event.
type EarningsTiming string

const (
	EarningsBMO     EarningsTiming = "BMO" // before market open
	EarningsAMC     EarningsTiming = "AMC" // after market close
	EarningsUnknown EarningsTiming = "UNKNOWN"
)

// EarningsEvent is the tracked next earnings date for a symbol.
type EarningsEvent struct {
	Symbol    string
	Date      time.Time
	Timing    EarningsTiming
	DeltaFlag bool // set when the date moved since the previous refresh
	UpdatedAt time.Time
}

// DaysUntil returns whole days from ref until the earnings date,
// or -1 when no date is known.
func (e *EarningsEvent) DaysUntil(ref time.Time) int {
	if e == nil || e.Date.IsZero() {
		return -1
	}
	return int(e.Date.Sub(ref).Hours() / 24)
}

// EarningsDelta is one append-only audit row recording an earnings date
// change.
type EarningsDelta struct {
	ID       string
	Symbol   string
	OldDate  time.Time
	NewDate  time.Time
	LoggedAt time.Time
}
