package models

import (
	"time"
)

// AlertSeverity is the severity of a logged warning.
type AlertSeverity string

const (
	AlertInfo     AlertSeverity = "INFO"
	AlertWarning  AlertSeverity = "WARNING"
	AlertCritical AlertSeverity = "CRITICAL"
)

// AlertEntry is one row of the warning audit trail.
type AlertEntry struct {
	ID        string
	Timestamp time.Time
	Severity  AlertSeverity
	Source    string // subsystem that raised the alert
	Message   string
}
