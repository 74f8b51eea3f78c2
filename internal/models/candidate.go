package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Stage is the position of a symbol in the staging pipeline.
type Stage string

const (
	StageOversold      Stage = "OVERSOLD"
	StageBouncePending Stage = "BOUNCE_PENDING"
	StageEntryReady    Stage = "ENTRY_READY"
)

// Signal names used in MissingSignals and entry reason tags.
const (
	SignalRSI      = "RSI oversold"
	SignalPercentB = "%B floor"
	SignalMACDHook = "MACD hook"
)

// Candidate is one row of the oversold tracker.
type Candidate struct {
	Symbol         string
	Stage          Stage
	MissingSignals []string
	BounceScore    float64
	NextCheckAt    time.Time
	FirstSeen      time.Time
	UpdatedAt      time.Time
}

// EntryCandidate is one row of the entry watchlist: a symbol that cleared
// every signal and every gate, with a sized proposal attached.
type EntryCandidate struct {
	Symbol         string
	Signals        []string
	BounceScore    float64
	EntryZoneLow   float64
	EntryZoneHigh  float64
	ProposedSize   decimal.Decimal // dollars
	ProposedShares int64
	EarningsSafe   bool
	AddedAt        time.Time
}
