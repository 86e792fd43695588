package models

import (
	"time"
)

// Route identifies a watched or searched itinerary
type Route struct {
	From       string `json:"from"`
	To         string `json:"to"`
	DepartDate string `json:"departDate,omitempty"`
}

// String formats the route as "FROM → TO"
func (r Route) String() string {
	return r.From + " → " + r.To
}

// Quote represents a single priced offer for a route at a point in time
type Quote struct {
	ID            string    `json:"id"`
	From          string    `json:"from"`
	To            string    `json:"to"`
	Airline       string    `json:"airline"`
	AirlineCode   string    `json:"airlineCode"`
	FlightNumber  string    `json:"flightNumber"`
	DepartureTime string    `json:"departureTime"`
	Duration      string    `json:"duration,omitempty"`
	Price         int       `json:"price"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// PricePoint is one day of a flight's price history
type PricePoint struct {
	Date  string `json:"date"`
	Price int    `json:"price"`
}

// Availability describes remaining seats on a flight
type Availability struct {
	Seats   int    `json:"seats"`
	Message string `json:"message"`
}

// Flight represents a search result (a Quote with presentation details)
type Flight struct {
	Quote

	FromCity          string       `json:"fromCity"`
	ToCity            string       `json:"toCity"`
	ArrivalTime       string       `json:"arrivalTime"`
	Stops             int          `json:"stops"`
	Stopover          string       `json:"stopover,omitempty"`
	OriginalPrice     *int         `json:"originalPrice,omitempty"`
	Quality           string       `json:"quality"`
	Aircraft          string       `json:"aircraft"`
	Amenities         []string     `json:"amenities"`
	Baggage           string       `json:"baggage"`
	SeatPitch         string       `json:"seatPitch"`
	WiFi              bool         `json:"wifi"`
	Meals             string       `json:"meals"`
	OnTimePerformance int          `json:"onTimePerformance"`
	CarbonEmission    int          `json:"carbonEmission"`
	BookingClass      string       `json:"bookingClass"`
	AvailableSeats    int          `json:"availableSeats"`
	Refundable        bool         `json:"refundable"`
	PriceHistory      []PricePoint `json:"priceHistory,omitempty"`
	Availability      Availability `json:"availabilityStatus"`
	AboveMaxPrice     bool         `json:"aboveMaxPrice,omitempty"`
}

// SearchRequest represents the request payload for a flight search
type SearchRequest struct {
	From       string  `json:"from"`
	To         string  `json:"to"`
	DepartDate string  `json:"departDate"`
	ReturnDate string  `json:"returnDate,omitempty"`
	MaxPrice   float64 `json:"maxPrice,omitempty"`
	Passengers int     `json:"passengers,omitempty"`
}

// SearchResponse represents the response payload for a flight search
type SearchResponse struct {
	Success      bool          `json:"success"`
	Flights      []Flight      `json:"flights"`
	SearchParams SearchRequest `json:"searchParams"`
	TotalResults int           `json:"totalResults"`
	SearchID     string        `json:"searchId"`
	Currency     string        `json:"currency"`
	Notice       string        `json:"notice,omitempty"`
	Timestamp    time.Time     `json:"timestamp"`
}
