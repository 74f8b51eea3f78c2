package models

import (
	"time"
)

// BacktestStatus is the lifecycle status of a queued backtest.
type BacktestStatus string

const (
	BacktestPending BacktestStatus = "PENDING"
	BacktestRunning BacktestStatus = "RUNNING"
	BacktestDone    BacktestStatus = "DONE"
	BacktestFailed  BacktestStatus = "FAILED"
)

// BacktestRequest is one row of the backtest queue.
type BacktestRequest struct {
	ID          string
	Symbol      string
	From        time.Time
	To          time.Time
	MinWindow   int // shortest hold window to test, in days
	MaxWindow   int // longest hold window to test, in days
	Status      BacktestStatus
	Error       string
	QueuedAt    time.Time
	CompletedAt time.Time
}

// BacktestResult summarizes historical bounce performance for a symbol.
type BacktestResult struct {
	ID           string
	Symbol       string
	Trades       int
	AvgReturnPct float64
	HitRate      float64 // percent of simulated entries that closed positive
	BestWindow   int     // hold window in days with the highest average return
	From         time.Time
	To           time.Time
	ComputedAt   time.Time
}
