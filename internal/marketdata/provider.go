// Package marketdata provides the market data provider client, the daily
// API call budget, and the cache sync pipeline built on top of them.
package marketdata

import (
	"context"
	"time"

	"swing-trader/internal/models"
)

// Provider defines the market data operations the pipeline needs.
type Provider interface {
	// DailyBars fetches daily OHLCV history for a symbol.
	DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error)

	// TickerDetails fetches reference data for a symbol.
	TickerDetails(ctx context.Context, symbol string) (*models.TickerInfo, error)

	// NextEarnings fetches the next scheduled earnings event for a symbol.
	// Returns nil when no event is scheduled.
	NextEarnings(ctx context.Context, symbol string) (*models.EarningsEvent, error)
}

// barsResponse is the provider's daily aggregates payload.
type barsResponse struct {
	Symbol string    `json:"symbol"`
	Bars   []wireBar `json:"bars"`
}

type wireBar struct {
	Date   string  `json:"date"` // YYYY-MM-DD
	Open   float64 `json:"open"`
	High   float64 `json:"high"`
	Low    float64 `json:"low"`
	Close  float64 `json:"close"`
	Volume int64   `json:"volume"`
}

// detailsResponse is the provider's ticker reference payload.
type detailsResponse struct {
	Symbol          string  `json:"symbol"`
	Name            string  `json:"name"`
	Sector          string  `json:"sector"`
	AvgDollarVolume float64 `json:"avg_dollar_volume"`
	IsADR           bool    `json:"is_adr"`
	PrimaryListing  string  `json:"primary_listing,omitempty"`
}

// earningsResponse is the provider's next-earnings payload.
type earningsResponse struct {
	Symbol string `json:"symbol"`
	Date   string `json:"date,omitempty"` // YYYY-MM-DD, empty when unscheduled
	Timing string `json:"timing,omitempty"`
}
