// Package errors provides custom error types for domain-specific errors.
package errors

import (
	"errors"
	"fmt"
)

// Standard sentinel errors
var (
	ErrInsufficientData    = errors.New("insufficient data")
	ErrBudgetExhausted     = errors.New("api call budget exhausted")
	ErrProviderUnavailable = errors.New("market data provider unavailable")
	ErrKillSwitchEngaged   = errors.New("kill switch engaged")
	ErrWashSaleWindow      = errors.New("wash sale window open")
	ErrHoldingNotFound     = errors.New("holding not found")
	ErrConfigInvalid       = errors.New("invalid configuration")
	ErrSnapshotStale       = errors.New("snapshot is stale")
)

// GateError reports an entry gate that blocked a candidate.
type GateError struct {
	Symbol string
	Gate   string
	Detail string
	Err    error
}

func (e *GateError) Error() string {
	if e.Detail != "" {
		return fmt.Sprintf("gate blocked [%s] %s: %s", e.Gate, e.Symbol, e.Detail)
	}
	return fmt.Sprintf("gate blocked [%s] %s", e.Gate, e.Symbol)
}

func (e *GateError) Unwrap() error {
	return e.Err
}

// NewGateError creates a new GateError.
func NewGateError(symbol, gate, detail string, err error) *GateError {
	return &GateError{
		Symbol: symbol,
		Gate:   gate,
		Detail: detail,
		Err:    err,
	}
}

// ProviderError represents an error from the market data provider.
type ProviderError struct {
	Provider string
	Endpoint string
	Status   int
	Err      error
}

func (e *ProviderError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("provider error [%s] %s (%d): %v", e.Provider, e.Endpoint, e.Status, e.Err)
	}
	return fmt.Sprintf("provider error [%s] %s (%d)", e.Provider, e.Endpoint, e.Status)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// NewProviderError creates a new ProviderError.
func NewProviderError(provider, endpoint string, status int, err error) *ProviderError {
	return &ProviderError{
		Provider: provider,
		Endpoint: endpoint,
		Status:   status,
		Err:      err,
	}
}

