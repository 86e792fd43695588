package models

import (
	"time"
)

// BoardingPass represents fields read from a boarding pass image
type BoardingPass struct {
	PassengerName string `json:"passengerName" yaml:"passengerName"`
	FlightNumber  string `json:"flightNumber" yaml:"flightNumber"`
	Airline       string `json:"airline" yaml:"airline"`
	From          string `json:"from" yaml:"from"`
	To            string `json:"to" yaml:"to"`
	Date          string `json:"date" yaml:"date"`
	DepartureTime string `json:"departureTime" yaml:"departureTime"`
	Gate          string `json:"gate" yaml:"gate"`
	Seat          string `json:"seat" yaml:"seat"`
	BoardingGroup string `json:"boardingGroup" yaml:"boardingGroup"`
	Confidence    int    `json:"confidence" yaml:"confidence"`
}

// BoardingPassResponse represents the response payload for boarding pass OCR
type BoardingPassResponse struct {
	Success        bool         `json:"success"`
	Extracted      BoardingPass `json:"extracted"`
	FileName       string       `json:"fileName"`
	FileSize       int64        `json:"fileSize"`
	ProcessingTime string       `json:"processingTime"`
	OCREngine      string       `json:"ocrEngine"`
	Timestamp      time.Time    `json:"timestamp"`
}
