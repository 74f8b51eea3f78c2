package indicators

import (
	"math"
	"reflect"
	"testing"
	"time"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"

	"swing-trader/internal/models"
)

// Property: for any valid daily-bar history, the cached indicator
// columns stay within their mathematical bounds:
// - RSI14 in [0, 100]
// - ATR20 >= 0
// - %B finite (unbounded outside the band, but never NaN/Inf)
// - VolZ finite

// barGen generates valid daily bars with realistic OHLCV values.
func barGen() gopter.Gen {
	return gen.Struct(reflect.TypeOf(models.DailyBar{}), map[string]gopter.Gen{
		"Open":   gen.Float64Range(5.0, 500.0),
		"High":   gen.Float64Range(5.0, 500.0),
		"Low":    gen.Float64Range(5.0, 500.0),
		"Close":  gen.Float64Range(5.0, 500.0),
		"Volume": gen.Int64Range(10_000, 50_000_000),
	}).Map(func(b models.DailyBar) models.DailyBar {
		// Enforce OHLC constraints: High >= max(Open, Close), Low <= min(Open, Close)
		b.High = math.Max(b.High, math.Max(b.Open, b.Close))
		b.Low = math.Min(b.Low, math.Min(b.Open, b.Close))
		if b.Low > b.High {
			b.Low, b.High = b.High, b.Low
		}
		if b.High <= b.Low {
			b.High = b.Low + 0.01
		}
		return b
	})
}

// barSliceGen generates an ascending-dated history of valid bars.
func barSliceGen(minLen, maxLen int) gopter.Gen {
	return gen.SliceOfN(maxLen, barGen()).Map(func(bars []models.DailyBar) []models.DailyBar {
		for len(bars) < minLen {
			bars = append(bars, bars[len(bars)-1])
		}
		base := time.Date(2025, 1, 2, 0, 0, 0, 0, time.UTC)
		for i := range bars {
			bars[i].Symbol = "PROP"
			bars[i].Date = base.AddDate(0, 0, i)
		}
		return bars
	})
}

func TestIndicatorBoundsProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 100

	properties := gopter.NewProperties(parameters)
	set := NewSet()

	properties.Property("cached indicator columns within bounds", prop.ForAll(
		func(bars []models.DailyBar) bool {
			if err := set.Apply(bars); err != nil {
				return false
			}
			for _, b := range bars {
				if !b.HasIndicators() {
					continue
				}
				if b.RSI14 < 0 || b.RSI14 > 100 {
					return false
				}
				if b.ATR20 < 0 {
					return false
				}
				for _, v := range []float64{b.PercentB, b.MACD, b.MACDSignal, b.MACDHist, b.VolZ} {
					if math.IsNaN(v) || math.IsInf(v, 0) {
						return false
					}
				}
			}
			return true
		},
		barSliceGen(40, 120),
	))

	properties.TestingRun(t)
}
