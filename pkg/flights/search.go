package flights

import (
	"context"
	"regexp"
	"sort"
	"strings"
	"time"

	"airease-backend/pkg/models"
	"airease-backend/pkg/utils"
)

const (
	// DefaultMaxPrice 未指定 maxPrice 时的上限
	DefaultMaxPrice = 1000
	// MaxResults 单次搜索返回的最大航班数
	MaxResults = 12

	recoveryMaxPrice = 1200
	maxRecoveryOpts  = 6
)

var airportCode = regexp.MustCompile(`^[A-Z]{3}$`)

// Searcher answers flight searches and missed-flight recovery requests.
type Searcher struct {
	gen *Generator
}

// NewSearcher creates a searcher over a generator.
func NewSearcher(gen *Generator) *Searcher {
	return &Searcher{gen: gen}
}

// NormalizeSearch upper-cases airport codes, applies the default max price
// and validates the request.
func NormalizeSearch(req models.SearchRequest) (models.SearchRequest, error) {
	req.From = strings.ToUpper(strings.TrimSpace(req.From))
	req.To = strings.ToUpper(strings.TrimSpace(req.To))
	req.DepartDate = strings.TrimSpace(req.DepartDate)

	if err := ValidateRoute(req.From, req.To, req.DepartDate); err != nil {
		return req, err
	}
	if req.MaxPrice < 0 {
		return req, utils.NewValidationError("maxPrice", "must be greater than 0")
	}
	if req.MaxPrice == 0 {
		req.MaxPrice = DefaultMaxPrice
	}
	if req.Passengers <= 0 {
		req.Passengers = 1
	}
	return req, nil
}

// ValidateRoute checks IATA codes and the YYYY-MM-DD departure date.
func ValidateRoute(from, to, departDate string) error {
	switch {
	case from == "":
		return utils.NewValidationError("from", "is required")
	case !airportCode.MatchString(from):
		return utils.NewValidationError("from", "must be a 3-letter airport code")
	case to == "":
		return utils.NewValidationError("to", "is required")
	case !airportCode.MatchString(to):
		return utils.NewValidationError("to", "must be a 3-letter airport code")
	case from == to:
		return utils.NewValidationError("to", "must differ from origin")
	case departDate == "":
		return utils.NewValidationError("departDate", "is required")
	}
	if _, err := time.Parse(dateLayout, departDate); err != nil {
		return utils.NewValidationError("departDate", "must be YYYY-MM-DD")
	}
	return nil
}

// Search returns up to MaxResults flights at or below the max price, cheapest
// first. When nothing qualifies the cheapest flight is returned flagged
// AboveMaxPrice.
func (s *Searcher) Search(ctx context.Context, req models.SearchRequest) ([]models.Flight, error) {
	req, err := NormalizeSearch(req)
	if err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	all := s.gen.Flights(req.From, req.To, req.DepartDate)
	sortFlights(all)

	var out []models.Flight
	for _, f := range all {
		if float64(f.Price) <= req.MaxPrice {
			out = append(out, f)
		}
	}
	if len(out) == 0 && len(all) > 0 {
		cheapest := all[0]
		cheapest.AboveMaxPrice = true
		return []models.Flight{cheapest}, nil
	}
	if len(out) > MaxResults {
		out = out[:MaxResults]
	}
	return out, nil
}

func sortFlights(fs []models.Flight) {
	sort.SliceStable(fs, func(i, j int) bool {
		if fs[i].Price != fs[j].Price {
			return fs[i].Price < fs[j].Price
		}
		return fs[i].DepartureTime < fs[j].DepartureTime
	})
}

var priorityRank = map[string]int{"high": 3, "medium": 2, "budget": 1}

// Recover builds a recovery plan for a missed flight: same-day alternatives
// departing more than two hours after now, next-day alternatives, emergency
// contacts and tips.
func (s *Searcher) Recover(ctx context.Context, req models.RecoveryRequest, now time.Time) (models.RecoveryPlan, error) {
	req.FlightNumber = strings.ToUpper(strings.TrimSpace(req.FlightNumber))
	req.From = strings.ToUpper(strings.TrimSpace(req.From))
	req.To = strings.ToUpper(strings.TrimSpace(req.To))

	switch {
	case req.FlightNumber == "":
		return models.RecoveryPlan{}, utils.NewValidationError("flightNumber", "is required")
	case req.From == "":
		return models.RecoveryPlan{}, utils.NewValidationError("from", "is required")
	case req.To == "":
		return models.RecoveryPlan{}, utils.NewValidationError("to", "is required")
	}
	if err := ctx.Err(); err != nil {
		return models.RecoveryPlan{}, err
	}

	today := now.Format(dateLayout)
	tomorrow := now.AddDate(0, 0, 1).Format(dateLayout)
	cutoff := now.Add(2 * time.Hour)

	var options []models.RecoveryOption

	sameDay := s.recoverySearch(req.From, req.To, today)
	taken := 0
	for _, f := range sameDay {
		if taken == 3 {
			break
		}
		dep, ok := departureOn(now, f.DepartureTime)
		if !ok || !dep.After(cutoff) {
			continue
		}
		priority := "medium"
		if f.Stops == 0 {
			priority = "high"
		}
		options = append(options, models.RecoveryOption{Flight: f, Type: "same-day", Priority: priority, Urgency: "urgent"})
		taken++
	}

	nextDay := s.recoverySearch(req.From, req.To, tomorrow)
	for i, f := range nextDay {
		if i == 2 {
			break
		}
		options = append(options, models.RecoveryOption{Flight: f, Type: "next-day", Priority: "budget", Urgency: "standard"})
	}

	sort.SliceStable(options, func(i, j int) bool {
		ri, rj := priorityRank[options[i].Priority], priorityRank[options[j].Priority]
		if ri != rj {
			return ri > rj
		}
		return options[i].Price < options[j].Price
	})
	if len(options) > maxRecoveryOpts {
		options = options[:maxRecoveryOpts]
	}
	if options == nil {
		options = []models.RecoveryOption{}
	}

	c := s.gen.Catalog()
	return models.RecoveryPlan{
		Success: true,
		Options: options,
		EmergencyContacts: models.EmergencyContacts{
			Airline:   c.AirlineContact(req.FlightNumber),
			Airport:   c.AirportContact(req.From),
			Insurance: c.Contacts.Insurance,
			Embassy:   c.EmbassyContact(req.From, req.To),
		},
		OriginalFlight:  req,
		Recommendations: RecoveryTips(req.Reason),
		SearchTime:      now.UTC(),
	}, nil
}

// recoverySearch lists flights at or below the recovery price cap, cheapest first.
func (s *Searcher) recoverySearch(from, to, date string) []models.Flight {
	all := s.gen.Flights(from, to, date)
	sortFlights(all)
	out := all[:0]
	for _, f := range all {
		if f.Price <= recoveryMaxPrice {
			out = append(out, f)
		}
	}
	return out
}

// departureOn places an "HH:MM" departure on now's calendar day.
func departureOn(now time.Time, hhmm string) (time.Time, bool) {
	t, err := time.Parse("15:04", hhmm)
	if err != nil {
		return time.Time{}, false
	}
	y, m, d := now.Date()
	return time.Date(y, m, d, t.Hour(), t.Minute(), 0, 0, now.Location()), true
}

// RecoveryTips returns the base rebooking tips plus reason-specific advice.
func RecoveryTips(reason string) []string {
	tips := []string{
		"Contact your airline immediately for rebooking options",
		"Check if you have travel insurance coverage for missed flights",
		"Keep all receipts for accommodation and meals",
		"Consider alternative airports in the same city",
	}
	r := strings.ToLower(reason)
	if strings.Contains(r, "weather") {
		tips = append(tips,
			"Weather delays may qualify for compensation",
			"Airlines often waive change fees for weather disruptions",
		)
	}
	if strings.Contains(r, "connection") {
		tips = append(tips,
			"Missed connections due to airline delays are usually rebooked free",
			"Request meal vouchers if waiting overnight",
		)
	}
	return tips
}
