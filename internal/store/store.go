// Package store provides data persistence interfaces and implementations.
package store

import (
	"context"
	"time"

	"swing-trader/internal/models"
)

// DataStore defines the interface for data persistence. Each method
// group maps to one tab of the Schema v2.2 workbook.
type DataStore interface {
	// CacheDailyBars
	SaveBars(ctx context.Context, symbol string, bars []models.DailyBar) error
	GetBars(ctx context.Context, symbol string, from, to time.Time) ([]models.DailyBar, error)
	GetLatestBar(ctx context.Context, symbol string) (*models.DailyBar, error)
	GetBarFreshness(ctx context.Context, symbol string) (time.Time, error)

	// TickerMetadata
	UpsertTicker(ctx context.Context, info *models.TickerInfo) error
	GetTicker(ctx context.Context, symbol string) (*models.TickerInfo, error)
	ListTickers(ctx context.Context) ([]models.TickerInfo, error)
	RemoveTicker(ctx context.Context, symbol string) error

	// Validate
	SaveValidation(ctx context.Context, v *models.Validation) error
	GetValidation(ctx context.Context, symbol string) (*models.Validation, error)
	ListValidations(ctx context.Context, validOnly bool) ([]models.Validation, error)

	// MasterStockList
	UpsertMasterRow(ctx context.Context, row *models.MasterRow) error
	ListMaster(ctx context.Context, filter MasterFilter) ([]models.MasterRow, error)

	// EarningsMonitor & EarningsDeltaLog
	SaveEarnings(ctx context.Context, event *models.EarningsEvent) error
	GetEarnings(ctx context.Context, symbol string) (*models.EarningsEvent, error)
	ListEarningsWithin(ctx context.Context, days int) ([]models.EarningsEvent, error)
	AppendEarningsDelta(ctx context.Context, delta *models.EarningsDelta) error
	ListEarningsDeltas(ctx context.Context, filter DeltaFilter) ([]models.EarningsDelta, error)

	// OversoldTracker
	UpsertCandidate(ctx context.Context, c *models.Candidate) error
	GetCandidate(ctx context.Context, symbol string) (*models.Candidate, error)
	ListCandidates(ctx context.Context, stage models.Stage) ([]models.Candidate, error)
	RemoveCandidate(ctx context.Context, symbol string) error

	// EntryWatchlist (rebuilt every cycle)
	ReplaceEntryWatchlist(ctx context.Context, entries []models.EntryCandidate) error
	ListEntryWatchlist(ctx context.Context) ([]models.EntryCandidate, error)

	// NextCycleQueue
	DeferEntry(ctx context.Context, entry *models.DeferredEntry) error
	ListDeferred(ctx context.Context, activeOnly bool) ([]models.DeferredEntry, error)
	ReleaseDeferred(ctx context.Context, id string) error

	// CurrentHoldings
	SaveHolding(ctx context.Context, h *models.Holding) error
	GetHolding(ctx context.Context, id string) (*models.Holding, error)
	GetHoldingBySymbol(ctx context.Context, symbol string) (*models.Holding, error)
	ListHoldings(ctx context.Context) ([]models.Holding, error)
	RemoveHolding(ctx context.Context, id string) error

	// ClosedTrades
	SaveClosedTrade(ctx context.Context, t *models.ClosedTrade) error
	ListClosedTrades(ctx context.Context, filter TradeFilter) ([]models.ClosedTrade, error)
	WashSaleUntil(ctx context.Context, symbol string) (time.Time, error)

	// LongTermHoldings
	SaveLongTermHolding(ctx context.Context, lth *models.LongTermHolding) error
	ListLongTermHoldings(ctx context.Context) ([]models.LongTermHolding, error)

	// ExitMonitor (rebuilt every evaluation)
	ReplaceExitSignals(ctx context.Context, signals []models.ExitSignal) error
	ListExitSignals(ctx context.Context) ([]models.ExitSignal, error)

	// SectorExposure (derived from holdings)
	SectorExposure(ctx context.Context, cap int) ([]models.SectorExposure, error)

	// RiskMonitor
	SaveRiskState(ctx context.Context, state *models.RiskState) error
	GetRiskState(ctx context.Context) (*models.RiskState, error)

	// PortfolioEquity
	AppendEquityPoint(ctx context.Context, point *models.EquityPoint) error
	GetEquitySeries(ctx context.Context, days int) ([]models.EquityPoint, error)

	// BacktestQueue & BacktestResults
	EnqueueBacktest(ctx context.Context, req *models.BacktestRequest) error
	NextPendingBacktest(ctx context.Context) (*models.BacktestRequest, error)
	UpdateBacktestStatus(ctx context.Context, id string, status models.BacktestStatus, errMsg string) error
	SaveBacktestResult(ctx context.Context, result *models.BacktestResult) error
	GetBacktestResult(ctx context.Context, symbol string) (*models.BacktestResult, error)
	ListBacktestResults(ctx context.Context, limit int) ([]models.BacktestResult, error)

	// AlertsLog
	LogAlert(ctx context.Context, alert *models.AlertEntry) error
	ListAlerts(ctx context.Context, filter AlertFilter) ([]models.AlertEntry, error)

	// APIBudget
	GetBudget(ctx context.Context, date time.Time) (*models.APIBudget, error)
	SaveBudget(ctx context.Context, budget *models.APIBudget) error

	// Settings
	SetSetting(ctx context.Context, key, value string) error
	GetSetting(ctx context.Context, key string) (string, error)
	AllSettings(ctx context.Context) (map[string]string, error)

	// Sync
	GetLastSync(dataType string) time.Time
	SetLastSync(dataType string, t time.Time) error

	// Lifecycle
	Close() error
}

// MasterFilter represents filters for querying the master stock list.
type MasterFilter struct {
	Status models.MasterStatus
	Limit  int
}

// TradeFilter represents filters for querying closed trades.
type TradeFilter struct {
	Symbol    string
	StartDate time.Time
	EndDate   time.Time
	Limit     int
}

// DeltaFilter represents filters for querying the earnings delta log.
type DeltaFilter struct {
	Symbol string
	Since  time.Time
	Limit  int
}

// AlertFilter represents filters for querying the alerts log.
type AlertFilter struct {
	Severity models.AlertSeverity
	Source   string
	Since    time.Time
	Limit    int
}
