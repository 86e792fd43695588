package models

// FlightInfo is the flight metadata recommendations are derived from
type FlightInfo struct {
	From          string `json:"from"`
	To            string `json:"to"`
	Airline       string `json:"airline,omitempty"`
	FlightNumber  string `json:"flightNumber,omitempty"`
	DepartureTime string `json:"departureTime"`
	DepartDate    string `json:"departDate,omitempty"`
	Price         int    `json:"price,omitempty"`
}

// FlightInfoFromQuote converts a quote into recommendation input
func FlightInfoFromQuote(q Quote, departDate string) FlightInfo {
	return FlightInfo{
		From:          q.From,
		To:            q.To,
		Airline:       q.Airline,
		FlightNumber:  q.FlightNumber,
		DepartureTime: q.DepartureTime,
		DepartDate:    departDate,
		Price:         q.Price,
	}
}

// Preferences tune the recommendation prompt
type Preferences struct {
	TripType string `json:"tripType,omitempty"`
	Duration string `json:"duration,omitempty"`
}

// PackingList groups packing suggestions. It always has exactly these three categories.
type PackingList struct {
	Clothing   []string `json:"clothing" yaml:"clothing"`
	Weather    []string `json:"weather" yaml:"weather"`
	Essentials []string `json:"essentials" yaml:"essentials"`
}

// TravelTip is a single destination tip
type TravelTip struct {
	Category string `json:"category" yaml:"category"`
	Tip      string `json:"tip" yaml:"tip"`
}

// TimelineSegment is one stage between leaving home and boarding
type TimelineSegment struct {
	Task          string `json:"task"`
	Minutes       int    `json:"minutes"`
	Description   string `json:"description,omitempty"`
	OffsetMinutes int    `json:"offsetMinutes"`
	StartsAt      string `json:"startsAt"`
}

// TimeManagement is the leave-by budget for a departure
type TimeManagement struct {
	Timeline     []TimelineSegment `json:"timeline"`
	TotalMinutes int               `json:"totalMinutes"`
	LeaveBy      string            `json:"leaveBy"`
	Departure    string            `json:"departure"`
	PreviousDay  bool              `json:"previousDay"`
}

// WeatherInfo is the expected weather at the destination
type WeatherInfo struct {
	Temp      int    `json:"temp" yaml:"temp"`
	Condition string `json:"condition" yaml:"condition"`
	Humidity  int    `json:"humidity" yaml:"humidity"`
	Season    string `json:"season" yaml:"season"`
}

// Recommendation represents packing, tips, and time budget for a flight
type Recommendation struct {
	PackingList    PackingList    `json:"packingList"`
	TravelTips     []TravelTip    `json:"travelTips"`
	TimeManagement TimeManagement `json:"timeManagement"`
	WeatherInfo    WeatherInfo    `json:"weatherInfo"`
	Destination    string         `json:"destination"`
	International  bool           `json:"international"`
	AIGenerated    bool           `json:"aiGenerated"`
}

// RecommendationRequest represents the request payload for AI recommendations
type RecommendationRequest struct {
	FlightData  *FlightInfo  `json:"flightData"`
	Preferences *Preferences `json:"preferences,omitempty"`
}
