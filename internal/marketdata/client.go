package marketdata

import (
	"context"
	"fmt"
	"time"

	"github.com/go-resty/resty/v2"
	"github.com/sony/gobreaker/v2"

	"swing-trader/internal/errors"
	"swing-trader/internal/logging"
	"swing-trader/internal/models"
)

const (
	defaultTimeout    = 15 * time.Second
	defaultRetryCount = 2
	breakerFailures   = 5
	breakerCooldown   = 60 * time.Second
)

// Client is an HTTP market data provider. Requests run through a
// circuit breaker so a dead provider fails fast instead of burning the
// call budget on timeouts.
type Client struct {
	http    *resty.Client
	breaker *gobreaker.CircuitBreaker[*resty.Response]
}

// NewClient creates a provider client for the given base URL.
func NewClient(baseURL, apiKey string) *Client {
	http := resty.New().
		SetBaseURL(baseURL).
		SetTimeout(defaultTimeout).
		SetRetryCount(defaultRetryCount).
		SetRetryWaitTime(500 * time.Millisecond).
		SetHeader("Accept", "application/json")
	if apiKey != "" {
		http.SetHeader("Authorization", "Bearer "+apiKey)
	}

	breaker := gobreaker.NewCircuitBreaker[*resty.Response](gobreaker.Settings{
		Name:        "marketdata",
		MaxRequests: 1,
		Timeout:     breakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerFailures
		},
	})

	return &Client{http: http, breaker: breaker}
}

// do executes a prepared request through the circuit breaker and maps
// transport and HTTP failures onto provider errors.
func (c *Client) do(ctx context.Context, op string, req *resty.Request, path string) (*resty.Response, error) {
	start := time.Now()
	resp, err := c.breaker.Execute(func() (*resty.Response, error) {
		// Some providers serve JSON without a content type; force the
		// decode so SetResult still unmarshals.
		resp, err := req.SetContext(ctx).ForceContentType("application/json").Get(path)
		if err != nil {
			return nil, err
		}
		if resp.IsError() {
			return resp, fmt.Errorf("provider returned %d", resp.StatusCode())
		}
		return resp, nil
	})

	status := 0
	if resp != nil {
		status = resp.StatusCode()
	}
	logging.LogAPICall(logging.FromContext(ctx), op, path, time.Since(start), err)

	if err == gobreaker.ErrOpenState || err == gobreaker.ErrTooManyRequests {
		return nil, errors.NewProviderError("marketdata", path, status, errors.ErrProviderUnavailable)
	}
	if err != nil {
		return nil, errors.NewProviderError("marketdata", path, status, err)
	}
	return resp, nil
}

// DailyBars fetches daily OHLCV history for a symbol.
func (c *Client) DailyBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error) {
	var payload barsResponse
	req := c.http.R().
		SetQueryParams(map[string]string{
			"symbol": symbol,
			"from":   from.Format("2006-01-02"),
			"to":     to.Format("2006-01-02"),
		}).
		SetResult(&payload)

	if _, err := c.do(ctx, "daily_bars", req, "/v1/bars/daily"); err != nil {
		return nil, err
	}

	bars := make([]models.DailyBar, 0, len(payload.Bars))
	for _, w := range payload.Bars {
		date, err := time.Parse("2006-01-02", w.Date)
		if err != nil {
			return nil, errors.NewProviderError("marketdata", "/v1/bars/daily", 0, fmt.Errorf("bad bar date %q: %w", w.Date, err))
		}
		bars = append(bars, models.DailyBar{
			Symbol: symbol,
			Date:   date,
			Open:   w.Open,
			High:   w.High,
			Low:    w.Low,
			Close:  w.Close,
			Volume: w.Volume,
		})
	}
	return bars, nil
}

// TickerDetails fetches reference data for a symbol.
func (c *Client) TickerDetails(ctx context.Context, symbol string) (*models.TickerInfo, error) {
	var payload detailsResponse
	req := c.http.R().SetResult(&payload)

	if _, err := c.do(ctx, "ticker_details", req, "/v1/reference/"+symbol); err != nil {
		return nil, err
	}

	return &models.TickerInfo{
		Symbol:          payload.Symbol,
		Name:            payload.Name,
		Sector:          payload.Sector,
		AvgDollarVolume: payload.AvgDollarVolume,
		IsADR:           payload.IsADR,
		DedupeOf:        payload.PrimaryListing,
	}, nil
}

// NextEarnings fetches the next scheduled earnings event for a symbol.
func (c *Client) NextEarnings(ctx context.Context, symbol string) (*models.EarningsEvent, error) {
	var payload earningsResponse
	req := c.http.R().SetResult(&payload)

	if _, err := c.do(ctx, "next_earnings", req, "/v1/earnings/"+symbol+"/next"); err != nil {
		return nil, err
	}

	event := &models.EarningsEvent{
		Symbol:    symbol,
		Timing:    models.EarningsUnknown,
		UpdatedAt: time.Now(),
	}
	if payload.Date != "" {
		date, err := time.Parse("2006-01-02", payload.Date)
		if err != nil {
			return nil, errors.NewProviderError("marketdata", "/v1/earnings/"+symbol+"/next", 0, fmt.Errorf("bad earnings date %q: %w", payload.Date, err))
		}
		event.Date = date
	}
	switch payload.Timing {
	case "BMO":
		event.Timing = models.EarningsBMO
	case "AMC":
		event.Timing = models.EarningsAMC
	}
	return event, nil
}
