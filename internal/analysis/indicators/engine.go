// Package indicators provides technical indicator calculations with parallel processing.
package indicators

import (
	"context"
	"fmt"
	"sync"
	"time"

	"swing-trader/internal/models"
)

// Indicator defines the interface for single-value technical indicators.
type Indicator interface {
	Name() string
	Calculate(bars []models.DailyBar) ([]float64, error)
	Period() int
}

// MultiValueIndicator defines the interface for indicators that return multiple values.
type MultiValueIndicator interface {
	Name() string
	Calculate(bars []models.DailyBar) (map[string][]float64, error)
	Period() int
}

// Strategy 4.1 indicator parameters.
const (
	RSIPeriod      = 14
	ATRPeriod      = 20
	BollingerPeriod = 20
	BollingerStdDev = 2.0
	MACDFast       = 12
	MACDSlow       = 26
	MACDSignal     = 9
	VolZPeriod     = 20
)

// Set computes the fixed indicator columns cached on daily bars.
type Set struct {
	rsi  *RSI
	atr  *ATR
	bb   *BollingerBands
	macd *MACD
	volz *VolumeZScore
}

// NewSet creates the standard Strategy 4.1 indicator set:
// RSI(14), ATR(20), %B(20,2), MACD(12,26,9), VolZ(20).
func NewSet() *Set {
	return &Set{
		rsi:  NewRSI(RSIPeriod),
		atr:  NewATR(ATRPeriod),
		bb:   NewBollingerBands(BollingerPeriod, BollingerStdDev),
		macd: NewMACD(MACDFast, MACDSlow, MACDSignal),
		volz: NewVolumeZScore(VolZPeriod),
	}
}

// MinBars returns the shortest bar history the set can be applied to.
func (s *Set) MinBars() int {
	min := s.rsi.Period() + 1
	for _, p := range []int{s.atr.Period() + 1, s.bb.Period(), s.macd.Period(), s.volz.Period()} {
		if p > min {
			min = p
		}
	}
	return min
}

// Apply computes every indicator in the set and writes the values into
// the bars' indicator columns. Bars must be in ascending date order.
func (s *Set) Apply(bars []models.DailyBar) error {
	if len(bars) < s.MinBars() {
		return ErrInsufficientData
	}

	rsi, err := s.rsi.Calculate(bars)
	if err != nil {
		return fmt.Errorf("rsi: %w", err)
	}
	atr, err := s.atr.Calculate(bars)
	if err != nil {
		return fmt.Errorf("atr: %w", err)
	}
	bb, err := s.bb.Calculate(bars)
	if err != nil {
		return fmt.Errorf("bollinger: %w", err)
	}
	macd, err := s.macd.Calculate(bars)
	if err != nil {
		return fmt.Errorf("macd: %w", err)
	}
	volz, err := s.volz.Calculate(bars)
	if err != nil {
		return fmt.Errorf("volz: %w", err)
	}

	now := time.Now()
	warmup := s.MinBars() - 1
	for i := range bars {
		if i < warmup {
			continue
		}
		bars[i].RSI14 = rsi[i]
		bars[i].ATR20 = atr[i]
		bars[i].PercentB = bb["percent_b"][i]
		bars[i].MACD = macd["macd"][i]
		bars[i].MACDSignal = macd["signal"][i]
		bars[i].MACDHist = macd["histogram"][i]
		bars[i].VolZ = volz[i]
		bars[i].IndicatorsAt = now
	}

	return nil
}

// Engine applies the indicator set to many symbols with a worker pool.
type Engine struct {
	set     *Set
	workers int
}

// NewEngine creates a new indicator engine with the specified number of workers.
func NewEngine(workers int) *Engine {
	if workers <= 0 {
		workers = 4
	}
	return &Engine{
		set:     NewSet(),
		workers: workers,
	}
}

// Set returns the engine's indicator set.
func (e *Engine) Set() *Set {
	return e.set
}

// ApplyAll applies the set to every symbol's bars in parallel and
// returns per-symbol errors for histories that could not be computed.
func (e *Engine) ApplyAll(ctx context.Context, bySymbol map[string][]models.DailyBar) map[string]error {
	type job struct {
		symbol string
		bars   []models.DailyBar
	}

	jobs := make(chan job)
	var mu sync.Mutex
	errs := make(map[string]error)

	var wg sync.WaitGroup
	for w := 0; w < e.workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for j := range jobs {
				if err := e.set.Apply(j.bars); err != nil {
					mu.Lock()
					errs[j.symbol] = err
					mu.Unlock()
				}
			}
		}()
	}

	for symbol, bars := range bySymbol {
		select {
		case <-ctx.Done():
			mu.Lock()
			errs[symbol] = ctx.Err()
			mu.Unlock()
		case jobs <- job{symbol: symbol, bars: bars}:
		}
	}
	close(jobs)
	wg.Wait()

	return errs
}
