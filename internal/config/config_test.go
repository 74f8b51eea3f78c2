package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func defaultConfig() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

func TestDefaultsMatchStrategyNorms(t *testing.T) {
	cfg := defaultConfig()

	// Core buffers
	assert.Equal(t, 35, cfg.Strategy.ERBufferDays)
	assert.Equal(t, 7, cfg.Strategy.ExitBufferDays)

	// Sell window and stop
	assert.Equal(t, 33, cfg.Strategy.SellWindowStart)
	assert.Equal(t, 40, cfg.Strategy.SellWindowEnd)
	assert.Equal(t, -10.0, cfg.Strategy.StopLossPct)

	// Long-term carve
	assert.Equal(t, 10.0, cfg.Strategy.LTHCarvePct)
	assert.Equal(t, 8.0, cfg.Strategy.LTHGainThreshold)

	// Quotas
	assert.Equal(t, 3, cfg.Risk.SectorCap)
}

func TestDefaultsValidate(t *testing.T) {
	cfg := defaultConfig()
	require.NoError(t, cfg.Validate())
}

func TestValidateRejectsBadBuffers(t *testing.T) {
	cfg := defaultConfig()
	cfg.Strategy.ERBufferDays = 5 // inside the exit buffer
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsInvertedSellWindow(t *testing.T) {
	cfg := defaultConfig()
	cfg.Strategy.SellWindowStart = 40
	cfg.Strategy.SellWindowEnd = 33
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsPositiveStop(t *testing.T) {
	cfg := defaultConfig()
	cfg.Strategy.StopLossPct = 10.0
	assert.Error(t, cfg.Validate())
}

func TestValidateRejectsZeroSectorCap(t *testing.T) {
	cfg := defaultConfig()
	cfg.Risk.SectorCap = -1
	assert.Error(t, cfg.Validate())
}
