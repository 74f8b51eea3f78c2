// Package performance computes realized trade statistics for the
// managed book.
package performance

import (
	"context"
	"math"
	"sort"
	"time"

	"github.com/shopspring/decimal"

	"swing-trader/internal/models"
	"swing-trader/internal/store"
)

// Summary aggregates realized results over a set of closed trades.
type Summary struct {
	Trades       int
	Wins         int
	Losses       int
	WinRate      float64 // percent
	TotalPnL     decimal.Decimal
	AvgReturnPct float64
	AvgWinPct    float64
	AvgLossPct   float64
	BestPct      float64
	WorstPct     float64
	Expectancy   float64 // average percent return per trade
	ProfitFactor float64 // gross wins over gross losses, 0 when no losses
	AvgHoldDays  float64
	MaxDrawdown  float64 // percent, worst peak-to-trough on cumulative P&L
	From         time.Time
	To           time.Time
}

// Analyzer computes trade statistics from the closed trade history.
type Analyzer struct {
	store store.DataStore
}

// NewAnalyzer creates a performance analyzer.
func NewAnalyzer(s store.DataStore) *Analyzer {
	return &Analyzer{store: s}
}

// Summarize computes the realized summary for the matching trades.
func (a *Analyzer) Summarize(ctx context.Context, filter store.TradeFilter) (*Summary, error) {
	trades, err := a.store.ListClosedTrades(ctx, filter)
	if err != nil {
		return nil, err
	}
	return Summarize(trades), nil
}

// Summarize computes the realized summary over the given trades.
func Summarize(trades []models.ClosedTrade) *Summary {
	s := &Summary{TotalPnL: decimal.Zero}
	if len(trades) == 0 {
		return s
	}

	// Drawdown needs chronological order.
	ordered := make([]models.ClosedTrade, len(trades))
	copy(ordered, trades)
	sort.Slice(ordered, func(i, j int) bool {
		return ordered[i].ExitDate.Before(ordered[j].ExitDate)
	})

	var (
		sumReturn   float64
		sumWin      float64
		sumLoss     float64
		grossWin    float64
		grossLoss   float64
		sumHoldDays float64
	)
	s.BestPct = math.Inf(-1)
	s.WorstPct = math.Inf(1)
	s.From = ordered[0].ExitDate
	s.To = ordered[len(ordered)-1].ExitDate

	cumulative := 0.0
	peak := 0.0
	for _, t := range ordered {
		s.Trades++
		pnl, _ := t.PnL.Float64()
		s.TotalPnL = s.TotalPnL.Add(t.PnL)
		sumReturn += t.PnLPct
		sumHoldDays += t.ExitDate.Sub(t.EntryDate).Hours() / 24

		if pnl >= 0 {
			s.Wins++
			sumWin += t.PnLPct
			grossWin += pnl
		} else {
			s.Losses++
			sumLoss += t.PnLPct
			grossLoss += -pnl
		}
		if t.PnLPct > s.BestPct {
			s.BestPct = t.PnLPct
		}
		if t.PnLPct < s.WorstPct {
			s.WorstPct = t.PnLPct
		}

		cumulative += t.PnLPct
		if cumulative > peak {
			peak = cumulative
		}
		if dd := cumulative - peak; dd < s.MaxDrawdown {
			s.MaxDrawdown = dd
		}
	}

	s.WinRate = float64(s.Wins) / float64(s.Trades) * 100
	s.AvgReturnPct = sumReturn / float64(s.Trades)
	s.Expectancy = s.AvgReturnPct
	s.AvgHoldDays = sumHoldDays / float64(s.Trades)
	if s.Wins > 0 {
		s.AvgWinPct = sumWin / float64(s.Wins)
	}
	if s.Losses > 0 {
		s.AvgLossPct = sumLoss / float64(s.Losses)
	}
	if grossLoss > 0 {
		s.ProfitFactor = grossWin / grossLoss
	}
	return s
}

// BySymbol computes a per-symbol summary map for the matching trades.
func (a *Analyzer) BySymbol(ctx context.Context, filter store.TradeFilter) (map[string]*Summary, error) {
	trades, err := a.store.ListClosedTrades(ctx, filter)
	if err != nil {
		return nil, err
	}
	grouped := make(map[string][]models.ClosedTrade)
	for _, t := range trades {
		grouped[t.Symbol] = append(grouped[t.Symbol], t)
	}
	out := make(map[string]*Summary, len(grouped))
	for sym, group := range grouped {
		out[sym] = Summarize(group)
	}
	return out, nil
}
