package utils

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSessionAt(t *testing.T) {
	et := func(wd time.Weekday, hour, min int) time.Time {
		// 2026-08-24 is a Monday.
		day := 24 + int(wd-time.Monday)
		return time.Date(2026, 8, day, hour, min, 0, 0, EasternLocation)
	}

	assert.Equal(t, SessionClosed, SessionAt(et(time.Monday, 7, 59)))
	assert.Equal(t, SessionPreOpen, SessionAt(et(time.Monday, 8, 0)))
	assert.Equal(t, SessionPreOpen, SessionAt(et(time.Monday, 9, 29)))
	assert.Equal(t, SessionOpen, SessionAt(et(time.Monday, 9, 30)))
	assert.Equal(t, SessionOpen, SessionAt(et(time.Monday, 15, 29)))
	assert.Equal(t, SessionPreClose, SessionAt(et(time.Monday, 15, 30)))
	assert.Equal(t, SessionClosed, SessionAt(et(time.Monday, 16, 0)))
	assert.Equal(t, SessionClosed, SessionAt(et(time.Saturday, 11, 0)))
	assert.Equal(t, SessionClosed, SessionAt(et(time.Sunday, 11, 0)))
}

func TestNextMarketOpen(t *testing.T) {
	// Friday afternoon rolls to Monday.
	friday := time.Date(2026, 8, 28, 14, 0, 0, 0, EasternLocation)
	next := NextMarketOpen(friday)
	assert.Equal(t, time.Monday, next.Weekday())
	assert.Equal(t, 9, next.Hour())
	assert.Equal(t, 30, next.Minute())

	// Early morning opens the same day.
	monday := time.Date(2026, 8, 24, 7, 0, 0, 0, EasternLocation)
	assert.Equal(t, monday.Day(), NextMarketOpen(monday).Day())
}

func TestPreviousTradingDay(t *testing.T) {
	// Monday looks back to Friday.
	monday := time.Date(2026, 8, 24, 10, 0, 0, 0, EasternLocation)
	prev := PreviousTradingDay(monday)
	assert.Equal(t, time.Friday, prev.Weekday())
	assert.Equal(t, 21, prev.Day())
}

func TestRetrySucceedsAfterFailures(t *testing.T) {
	attempts := 0
	err := Retry(context.Background(), RetryConfig{
		MaxAttempts:   3,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1,
	}, func() error {
		attempts++
		if attempts < 3 {
			return errors.New("transient")
		}
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 3, attempts)
}

func TestRetryExhaustsAttempts(t *testing.T) {
	sentinel := errors.New("down")
	attempts := 0
	err := Retry(context.Background(), RetryConfig{
		MaxAttempts:   2,
		InitialDelay:  time.Millisecond,
		MaxDelay:      time.Millisecond,
		BackoffFactor: 1,
	}, func() error {
		attempts++
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
	assert.Equal(t, 2, attempts)
}

func TestRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err := Retry(ctx, DefaultRetryConfig(), func() error {
		return errors.New("always")
	})
	assert.ErrorIs(t, err, context.Canceled)
}
