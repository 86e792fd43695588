package models

import (
	"time"
)

// RecoveryRequest represents the request payload for missed-flight recovery
type RecoveryRequest struct {
	FlightNumber string `json:"flightNumber"`
	OriginalDate string `json:"originalDate"`
	From         string `json:"from"`
	To           string `json:"to"`
	Reason       string `json:"reason,omitempty"`
}

// RecoveryOption is an alternative flight offered after a missed flight
type RecoveryOption struct {
	Flight

	Type     string `json:"type"`     // "same-day" or "next-day"
	Priority string `json:"priority"` // "high", "medium", "budget"
	Urgency  string `json:"urgency"`
}

// EmergencyContacts lists phone numbers useful after a missed flight
type EmergencyContacts struct {
	Airline   string `json:"airline"`
	Airport   string `json:"airport"`
	Insurance string `json:"insurance"`
	Embassy   string `json:"embassy"`
}

// RecoveryPlan represents the response payload for missed-flight recovery
type RecoveryPlan struct {
	Success           bool              `json:"success"`
	Options           []RecoveryOption  `json:"options"`
	EmergencyContacts EmergencyContacts `json:"emergencyContacts"`
	OriginalFlight    RecoveryRequest   `json:"originalFlight"`
	Recommendations   []string          `json:"recommendations"`
	SearchTime        time.Time         `json:"searchTime"`
}
