package models

import (
	"time"
)

// NotificationMetadata summarizes what a notification is about
type NotificationMetadata struct {
	WatchID     string  `json:"watchId"`
	Route       string  `json:"route"`
	Price       int     `json:"price"`
	TargetPrice float64 `json:"targetPrice"`
	Savings     float64 `json:"savings"`
	AIGenerated bool    `json:"aiGenerated"`
}

// Notification represents a composed price alert
type Notification struct {
	To       string               `json:"to"`
	Subject  string               `json:"subject"`
	TextBody string               `json:"textBody"`
	HTMLBody string               `json:"htmlBody"`
	Metadata NotificationMetadata `json:"metadata"`
}

// CheckState is the outcome of checking one watch during a pass
type CheckState string

const (
	CheckPending      CheckState = "PENDING"
	CheckPriced       CheckState = "PRICED"
	CheckMatched      CheckState = "MATCHED"
	CheckNoMatch      CheckState = "NO_MATCH"
	CheckNotified     CheckState = "NOTIFIED"
	CheckNotifyFailed CheckState = "NOTIFY_FAILED"
	CheckSkipped      CheckState = "SKIPPED"
	CheckSuppressed   CheckState = "SUPPRESSED"
)

// WatchCheck records what happened to one watch during a pass
type WatchCheck struct {
	WatchID string     `json:"watchId"`
	Route   string     `json:"route"`
	Price   int        `json:"price,omitempty"`
	State   CheckState `json:"state"`
	Error   string     `json:"error,omitempty"`
}

// MonitorSummary is the result of one monitoring pass
type MonitorSummary struct {
	WatchesChecked    int          `json:"watchesChecked"`
	MatchesFound      int          `json:"matchesFound"`
	NotificationsSent int          `json:"notificationsSent"`
	Failures          int          `json:"failures"`
	Skipped           int          `json:"skipped"`
	Checks            []WatchCheck `json:"checks,omitempty"`
	Timestamp         time.Time    `json:"timestamp"`
}
