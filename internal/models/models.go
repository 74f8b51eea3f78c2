// Package models provides domain models for the swing trade manager.
package models

import (
	"time"
)

// DailyBar represents one day of OHLCV data for a symbol, together with
// the indicator columns cached alongside it.
type DailyBar struct {
	Symbol string
	Date   time.Time
	Open   float64
	High   float64
	Low    float64
	Close  float64
	Volume int64

	// Cached indicator values. Zero until the indicator pass has run
	// for this date; IndicatorsAt reports the computation time.
	RSI14        float64
	MACD         float64
	MACDSignal   float64
	MACDHist     float64
	PercentB     float64
	ATR20        float64
	VolZ         float64
	IndicatorsAt time.Time
}

// HasIndicators reports whether the indicator pass has run for this bar.
func (b *DailyBar) HasIndicators() bool {
	return !b.IndicatorsAt.IsZero()
}

// TickerInfo holds reference data for a symbol in the universe.
type TickerInfo struct {
	Symbol          string
	Name            string
	Sector          string // GICS sector
	AvgDollarVolume float64
	IsADR           bool
	DedupeOf        string // primary listing symbol when this is a duplicate ADR line
	AddedAt         time.Time
}

// Validation records the hygiene-gate outcome for a symbol.
type Validation struct {
	Symbol    string
	Valid     bool
	Reason    string // empty when valid
	CheckedAt time.Time
}

// MasterStatus is the lifecycle status of a symbol on the master list.
type MasterStatus string

const (
	MasterActive   MasterStatus = "ACTIVE"
	MasterExcluded MasterStatus = "EXCLUDED"
	MasterDeferred MasterStatus = "DEFERRED"
)

// MasterRow is one row of the master stock list: the per-symbol rollup of
// latest indicators and gate flags the rest of the pipeline reads.
type MasterRow struct {
	Symbol       string
	Status       MasterStatus
	LastClose    float64
	RSI14        float64
	PercentB     float64
	MACDHist     float64
	ATR20        float64
	VolZ         float64
	EarningsSafe bool // next earnings at least the ER buffer away
	SectorOpen   bool // sector cap not yet reached
	UpdatedAt    time.Time
}

// APIBudget tracks the daily market-data call allowance.
type APIBudget struct {
	Date      time.Time
	CallsUsed int
	CallLimit int
	Fallback  bool // set once the allowance is exhausted; sync degrades to cache-only
}

// Remaining returns the number of calls left today.
func (b *APIBudget) Remaining() int {
	r := b.CallLimit - b.CallsUsed
	if r < 0 {
		return 0
	}
	return r
}
