package performance

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"swing-trader/internal/models"
)

func trade(symbol string, pnl float64, pnlPct float64, entry, exit time.Time) models.ClosedTrade {
	return models.ClosedTrade{
		Symbol:    symbol,
		Shares:    100,
		PnL:       decimal.NewFromFloat(pnl),
		PnLPct:    pnlPct,
		EntryDate: entry,
		ExitDate:  exit,
	}
}

func TestSummarizeEmpty(t *testing.T) {
	s := Summarize(nil)
	assert.Equal(t, 0, s.Trades)
	assert.True(t, s.TotalPnL.IsZero())
}

func TestSummarizeMixedBook(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 6, d, 0, 0, 0, 0, time.UTC)
	}
	trades := []models.ClosedTrade{
		trade("AAPL", 500, 10, day(1), day(35)),
		trade("MSFT", -200, -5, day(2), day(10)),
		trade("NVDA", 300, 8, day(5), day(40)),
		trade("XOM", -100, -10, day(6), day(12)),
	}

	s := Summarize(trades)
	assert.Equal(t, 4, s.Trades)
	assert.Equal(t, 2, s.Wins)
	assert.Equal(t, 2, s.Losses)
	assert.InDelta(t, 50.0, s.WinRate, 0.001)
	assert.True(t, s.TotalPnL.Equal(decimal.NewFromInt(500)))
	assert.InDelta(t, 0.75, s.AvgReturnPct, 0.001)
	assert.InDelta(t, 9.0, s.AvgWinPct, 0.001)
	assert.InDelta(t, -7.5, s.AvgLossPct, 0.001)
	assert.InDelta(t, 10.0, s.BestPct, 0.001)
	assert.InDelta(t, -10.0, s.WorstPct, 0.001)
	// gross wins 800 over gross losses 300
	assert.InDelta(t, 800.0/300.0, s.ProfitFactor, 0.001)
	assert.Equal(t, day(10), s.From)
	assert.Equal(t, day(40), s.To)
}

func TestSummarizeDrawdownUsesExitOrder(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 6, d, 0, 0, 0, 0, time.UTC)
	}
	// Exit order: +10, -5, -10, +8. Peak 10, trough -5, drawdown -15.
	trades := []models.ClosedTrade{
		trade("D", 300, 8, day(1), day(40)),
		trade("A", 500, 10, day(1), day(10)),
		trade("C", -100, -10, day(1), day(30)),
		trade("B", -200, -5, day(1), day(20)),
	}

	s := Summarize(trades)
	assert.InDelta(t, -15.0, s.MaxDrawdown, 0.001)
}

func TestSummarizeAllWinners(t *testing.T) {
	day := func(d int) time.Time {
		return time.Date(2026, 6, d, 0, 0, 0, 0, time.UTC)
	}
	trades := []models.ClosedTrade{
		trade("AAPL", 100, 4, day(1), day(34)),
		trade("MSFT", 250, 9, day(2), day(38)),
	}

	s := Summarize(trades)
	assert.Equal(t, 100.0, s.WinRate)
	assert.Equal(t, 0, s.Losses)
	assert.Zero(t, s.ProfitFactor)
	assert.Zero(t, s.AvgLossPct)
	assert.Zero(t, s.MaxDrawdown)
	assert.InDelta(t, 34.5, s.AvgHoldDays, 0.001)
}
