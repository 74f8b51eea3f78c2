package indicators

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"swing-trader/internal/models"
)

// trendBars builds n bars walking the close by step per day, with a
// small intraday range and constant volume.
func trendBars(n int, start, step float64) []models.DailyBar {
	bars := make([]models.DailyBar, n)
	base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
	for i := range bars {
		close := start + step*float64(i)
		bars[i] = models.DailyBar{
			Symbol: "TEST",
			Date:   base.AddDate(0, 0, i),
			Open:   close - step/2,
			High:   close + 1,
			Low:    close - 1,
			Close:  close,
			Volume: 1_000_000,
		}
	}
	return bars
}

func TestRSIUptrendNearHundred(t *testing.T) {
	bars := trendBars(60, 100, 1)
	rsi, err := NewRSI(14).Calculate(bars)
	require.NoError(t, err)

	// Monotonic gains: no losses, RSI pegs at 100.
	assert.InDelta(t, 100, rsi[len(rsi)-1], 0.01)
}

func TestRSIDowntrendNearZero(t *testing.T) {
	bars := trendBars(60, 200, -1)
	rsi, err := NewRSI(14).Calculate(bars)
	require.NoError(t, err)

	assert.Less(t, rsi[len(rsi)-1], 5.0)
}

func TestRSIInsufficientData(t *testing.T) {
	bars := trendBars(10, 100, 1)
	_, err := NewRSI(14).Calculate(bars)
	assert.ErrorIs(t, err, ErrInsufficientData)
}

func TestATRNonNegative(t *testing.T) {
	bars := trendBars(60, 100, 0.5)
	atr, err := NewATR(20).Calculate(bars)
	require.NoError(t, err)

	for i := 19; i < len(atr); i++ {
		assert.GreaterOrEqual(t, atr[i], 0.0)
	}
}

func TestBollingerPercentBAtBandEdges(t *testing.T) {
	bars := trendBars(60, 100, 1)
	out, err := NewBollingerBands(20, 2).Calculate(bars)
	require.NoError(t, err)

	pb := out["percent_b"]
	last := pb[len(pb)-1]
	// A steady uptrend closes near the upper band.
	assert.Greater(t, last, 0.5)

	for i := 19; i < len(pb); i++ {
		assert.False(t, math.IsNaN(pb[i]))
		assert.False(t, math.IsInf(pb[i], 0))
	}
}

func TestMACDHistogramIsMACDMinusSignal(t *testing.T) {
	bars := trendBars(80, 100, 0.7)
	out, err := NewMACD(12, 26, 9).Calculate(bars)
	require.NoError(t, err)

	for i := 34; i < len(bars); i++ {
		assert.InDelta(t, out["macd"][i]-out["signal"][i], out["histogram"][i], 1e-9)
	}
}

func TestVolumeZScoreFlatVolumeIsZero(t *testing.T) {
	bars := trendBars(40, 100, 0.2)
	volz, err := NewVolumeZScore(20).Calculate(bars)
	require.NoError(t, err)

	// Constant volume: zero standard deviation, z pinned to 0.
	assert.Equal(t, 0.0, volz[len(volz)-1])
}

func TestVolumeZScoreSpike(t *testing.T) {
	bars := trendBars(40, 100, 0.2)
	bars[len(bars)-1].Volume = 10_000_000
	volz, err := NewVolumeZScore(20).Calculate(bars)
	require.NoError(t, err)

	assert.Greater(t, volz[len(volz)-1], 2.0)
}

func TestSetApplyFillsColumns(t *testing.T) {
	bars := trendBars(80, 100, 0.5)
	set := NewSet()
	require.NoError(t, set.Apply(bars))

	last := bars[len(bars)-1]
	assert.True(t, last.HasIndicators())
	assert.Greater(t, last.RSI14, 0.0)
	assert.Greater(t, last.ATR20, 0.0)

	// Warmup bars stay uncomputed.
	assert.False(t, bars[0].HasIndicators())
}

func TestSetApplyInsufficientData(t *testing.T) {
	bars := trendBars(10, 100, 0.5)
	assert.ErrorIs(t, NewSet().Apply(bars), ErrInsufficientData)
}
