package cli

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestFormatUSD(t *testing.T) {
	tests := []struct {
		amount   float64
		expected string
	}{
		{0, "$0.00"},
		{5, "$5.00"},
		{999.99, "$999.99"},
		{1000, "$1,000.00"},
		{1234567.89, "$1,234,567.89"},
		{-42.5, "-$42.50"},
		{-1000000, "-$1,000,000.00"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.expected, FormatUSD(tt.amount))
	}
}

func TestFormatPercent(t *testing.T) {
	assert.Equal(t, "+8.00%", FormatPercent(8))
	assert.Equal(t, "-10.00%", FormatPercent(-10))
	assert.Equal(t, "0.00%", FormatPercent(0))
}

func TestFormatPnL(t *testing.T) {
	assert.Equal(t, "+$120.00", FormatPnL(120))
	assert.Equal(t, "-$55.25", FormatPnL(-55.25))
	assert.Equal(t, "$0.00", FormatPnL(0))
}

func TestFormatShares(t *testing.T) {
	assert.Equal(t, "150", FormatShares(150))
	assert.Equal(t, "12,500", FormatShares(12500))
	assert.Equal(t, "-1,000", FormatShares(-1000))
}

func TestFormatCompact(t *testing.T) {
	assert.Equal(t, "$950.00", FormatCompact(950))
	assert.Equal(t, "$5.0K", FormatCompact(5000))
	assert.Equal(t, "$5.00M", FormatCompact(5_000_000))
	assert.Equal(t, "$1.20B", FormatCompact(1_200_000_000))
}

func TestFormatVolume(t *testing.T) {
	assert.Equal(t, "500", FormatVolume(500))
	assert.Equal(t, "8.5K", FormatVolume(8500))
	assert.Equal(t, "2.40M", FormatVolume(2_400_000))
}

func TestFormatDate(t *testing.T) {
	assert.Equal(t, "-", FormatDate(time.Time{}))
	d := time.Date(2026, 8, 31, 15, 4, 0, 0, time.UTC)
	assert.Equal(t, "2026-08-31", FormatDate(d))
	assert.Equal(t, "2026-08-31 15:04", FormatDateTime(d))
}

func TestFormatDays(t *testing.T) {
	assert.Equal(t, "-", FormatDays(-1))
	assert.Equal(t, "0d", FormatDays(0))
	assert.Equal(t, "12d", FormatDays(12))
}

func TestFormatSignals(t *testing.T) {
	assert.Equal(t, "-", FormatSignals(nil))
	assert.Equal(t, "RSI oversold, MACD hook", FormatSignals([]string{"RSI oversold", "MACD hook"}))
}

func TestNormalizeSymbols(t *testing.T) {
	got := normalizeSymbols([]string{" aapl ", "MSFT", "aapl", "", "msft"})
	assert.Equal(t, []string{"AAPL", "MSFT"}, got)
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "longer ...", truncate("longer string here", 10))
}
