// Package strategy implements the swing strategy rules: oversold signal
// detection, the staging pipeline, entry gates and sizing, exit
// evaluation, and the portfolio guardrails.
package strategy

import (
	"swing-trader/internal/config"
	"swing-trader/internal/models"
)

// SignalResult is the outcome of evaluating the three oversold signals
// for one symbol on the latest bar.
type SignalResult struct {
	Symbol      string
	RSI         bool // RSI14 below the oversold threshold
	PercentB    bool // %B at or below the floor
	MACDHook    bool // histogram still negative but turning up
	BounceScore float64
}

// Confirmed returns the names of the signals that fired.
func (r *SignalResult) Confirmed() []string {
	var signals []string
	if r.RSI {
		signals = append(signals, models.SignalRSI)
	}
	if r.PercentB {
		signals = append(signals, models.SignalPercentB)
	}
	if r.MACDHook {
		signals = append(signals, models.SignalMACDHook)
	}
	return signals
}

// Missing returns the names of the signals that have not fired yet.
func (r *SignalResult) Missing() []string {
	var signals []string
	if !r.RSI {
		signals = append(signals, models.SignalRSI)
	}
	if !r.PercentB {
		signals = append(signals, models.SignalPercentB)
	}
	if !r.MACDHook {
		signals = append(signals, models.SignalMACDHook)
	}
	return signals
}

// AllConfirmed reports whether every signal fired.
func (r *SignalResult) AllConfirmed() bool {
	return r.RSI && r.PercentB && r.MACDHook
}

// AnyConfirmed reports whether at least one signal fired.
func (r *SignalResult) AnyConfirmed() bool {
	return r.RSI || r.PercentB || r.MACDHook
}

// SignalEvaluator evaluates the oversold signals against cached
// indicator columns.
type SignalEvaluator struct {
	rsiOversold   float64
	percentBFloor float64
}

// NewSignalEvaluator creates a signal evaluator from strategy config.
func NewSignalEvaluator(cfg config.StrategyConfig) *SignalEvaluator {
	return &SignalEvaluator{
		rsiOversold:   cfg.RSIOversold,
		percentBFloor: cfg.PercentBFloor,
	}
}

// Evaluate checks the signals on the last bar of the series. The series
// must be in ascending date order with indicators computed; at least two
// indicator-bearing bars are needed for the MACD hook.
func (e *SignalEvaluator) Evaluate(bars []models.DailyBar) *SignalResult {
	if len(bars) == 0 {
		return &SignalResult{}
	}

	last := bars[len(bars)-1]
	result := &SignalResult{Symbol: last.Symbol}
	if !last.HasIndicators() {
		return result
	}

	result.RSI = last.RSI14 < e.rsiOversold
	result.PercentB = last.PercentB <= e.percentBFloor

	if len(bars) >= 2 {
		prev := bars[len(bars)-2]
		if prev.HasIndicators() {
			// A hook, not a crossover: the histogram turns up while
			// still below zero, catching the bounce before momentum
			// goes positive.
			result.MACDHook = last.MACDHist < 0 && last.MACDHist > prev.MACDHist
		}
	}

	result.BounceScore = e.score(result, &last)
	return result
}

// score ranks candidates for the digest. One point per confirmed
// signal, plus depth bonuses so the most washed-out names sort first
// among equals.
func (e *SignalEvaluator) score(r *SignalResult, bar *models.DailyBar) float64 {
	score := 0.0
	if r.RSI {
		score += 1 + (e.rsiOversold-bar.RSI14)/e.rsiOversold
	}
	if r.PercentB {
		score++
		if bar.PercentB < 0 {
			score += 0.5 // closed below the lower band
		}
	}
	if r.MACDHook {
		score++
	}
	if r.AllConfirmed() && bar.VolZ > 1 {
		score += 0.5 // capitulation volume on a full signal set
	}
	return score
}
