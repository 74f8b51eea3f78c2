// Package utils provides shared utility functions.
package utils

import (
	"time"
)

// EasternLocation is the timezone for US equity markets.
var EasternLocation *time.Location

func init() {
	var err error
	EasternLocation, err = time.LoadLocation("America/New_York")
	if err != nil {
		// Fallback to UTC-5
		EasternLocation = time.FixedZone("ET", -5*60*60)
	}
}

// MarketSession is the current session of the US equity trading day.
type MarketSession string

const (
	SessionClosed   MarketSession = "CLOSED"
	SessionPreOpen  MarketSession = "PRE_OPEN"  // 8:00 - 9:30 ET
	SessionOpen     MarketSession = "OPEN"      // 9:30 - 16:00 ET
	SessionPreClose MarketSession = "PRE_CLOSE" // 15:30 - 16:00 ET, inside OPEN
)

// SessionAt returns the market session for the given instant.
func SessionAt(t time.Time) MarketSession {
	now := t.In(EasternLocation)

	if now.Weekday() == time.Saturday || now.Weekday() == time.Sunday {
		return SessionClosed
	}

	minutes := now.Hour()*60 + now.Minute()
	switch {
	case minutes >= 8*60 && minutes < 9*60+30:
		return SessionPreOpen
	case minutes >= 15*60+30 && minutes < 16*60:
		return SessionPreClose
	case minutes >= 9*60+30 && minutes < 16*60:
		return SessionOpen
	default:
		return SessionClosed
	}
}

// CurrentSession returns the market session right now.
func CurrentSession() MarketSession {
	return SessionAt(time.Now())
}

// IsMarketOpen returns true if the market is currently trading.
func IsMarketOpen() bool {
	s := CurrentSession()
	return s == SessionOpen || s == SessionPreClose
}

// NextMarketOpen returns the next regular session open after t.
func NextMarketOpen(t time.Time) time.Time {
	now := t.In(EasternLocation)

	next := time.Date(now.Year(), now.Month(), now.Day(), 9, 30, 0, 0, EasternLocation)
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// NextMarketClose returns the next regular session close after t.
func NextMarketClose(t time.Time) time.Time {
	now := t.In(EasternLocation)

	next := time.Date(now.Year(), now.Month(), now.Day(), 16, 0, 0, 0, EasternLocation)
	if !now.Before(next) {
		next = next.AddDate(0, 0, 1)
	}
	for next.Weekday() == time.Saturday || next.Weekday() == time.Sunday {
		next = next.AddDate(0, 0, 1)
	}
	return next
}

// PreviousTradingDay returns the most recent weekday before t's date.
func PreviousTradingDay(t time.Time) time.Time {
	day := t.In(EasternLocation).AddDate(0, 0, -1)
	for day.Weekday() == time.Saturday || day.Weekday() == time.Sunday {
		day = day.AddDate(0, 0, -1)
	}
	return time.Date(day.Year(), day.Month(), day.Day(), 0, 0, 0, 0, EasternLocation)
}
