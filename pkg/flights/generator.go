package flights

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sync"
	"time"

	"airease-backend/pkg/models"
)

const dateLayout = "2006-01-02"

var departureMinutes = [...]int{0, 15, 30, 45}

// Generator produces synthetic flight offers from the catalog.
// Output is deterministic for a given random source and clock.
type Generator struct {
	catalog *Catalog
	now     func() time.Time

	mu  sync.Mutex
	rng *rand.Rand
}

// NewGenerator creates a generator. A nil rng or clock uses a time-seeded
// source and time.Now.
func NewGenerator(catalog *Catalog, rng *rand.Rand, now func() time.Time) *Generator {
	if catalog == nil {
		catalog = DefaultCatalog()
	}
	if rng == nil {
		seed := uint64(time.Now().UnixNano())
		rng = rand.New(rand.NewPCG(seed, seed>>1|1))
	}
	if now == nil {
		now = time.Now
	}
	return &Generator{catalog: catalog, rng: rng, now: now}
}

// Catalog returns the generator's catalog.
func (g *Generator) Catalog() *Catalog { return g.catalog }

// Now returns the generator's clock reading.
func (g *Generator) Now() time.Time { return g.now() }

// isHighSeason reports Jun, Jul, Aug and Dec departures.
func isHighSeason(departDate string) bool {
	d, err := time.Parse(dateLayout, departDate)
	if err != nil {
		return false
	}
	switch d.Month() {
	case time.June, time.July, time.August, time.December:
		return true
	}
	return false
}

// Flights generates one or two offers per airline serving the route.
// The result is unsorted and unfiltered.
func (g *Generator) Flights(from, to, departDate string) []models.Flight {
	g.mu.Lock()
	defer g.mu.Unlock()

	basePrice := float64(g.catalog.BasePrice(from, to))
	if isHighSeason(departDate) {
		basePrice *= 1.3
	}

	airlines := g.catalog.AirlinesServing(from, to)
	if len(airlines) > 8 {
		airlines = airlines[:8]
	}

	var out []models.Flight
	for _, airline := range airlines {
		count := 1
		if g.rng.Float64() > 0.6 {
			count = 2
		}
		for i := 0; i < count; i++ {
			out = append(out, g.flight(airline, from, to, departDate, basePrice, i))
		}
	}
	return out
}

func (g *Generator) flight(airline Airline, from, to, departDate string, basePrice float64, index int) models.Flight {
	now := g.now().UTC()

	depHour := 6 + index*4 + g.rng.IntN(3)
	depMinute := departureMinutes[g.rng.IntN(len(departureMinutes))]

	flightDuration := g.catalog.Duration(from, to)

	variation := (g.rng.Float64() - 0.5) * 0.4 // ±20%
	price := int(math.Round(basePrice * (airline.PriceMultiplier + variation)))
	if price < 1 {
		price = 1
	}

	stops := 0
	if !g.isDirect(airline, from, to) && g.rng.Float64() > 0.7 {
		stops = 1
	}
	totalDuration := flightDuration
	if stops > 0 {
		totalDuration += 90 + g.rng.IntN(60)
	}

	flightNumber := fmt.Sprintf("%s%d", airline.Code, 100+g.rng.IntN(999))
	tier := g.catalog.Quality(airline.Quality)

	f := models.Flight{
		Quote: models.Quote{
			ID:            fmt.Sprintf("%s_%s_%d", flightNumber, departDate, index),
			From:          from,
			To:            to,
			Airline:       airline.Name,
			AirlineCode:   airline.Code,
			FlightNumber:  flightNumber,
			DepartureTime: fmt.Sprintf("%02d:%02d", depHour, depMinute),
			Duration:      formatDuration(totalDuration),
			Price:         price,
			LastUpdated:   now,
		},
		FromCity:          g.catalog.City(from),
		ToCity:            g.catalog.City(to),
		ArrivalTime:       arrivalTime(depHour, depMinute, totalDuration),
		Stops:             stops,
		Quality:           airline.Quality,
		Aircraft:          aircraftFor(flightDuration),
		Amenities:         tier.Amenities,
		Baggage:           tier.Baggage,
		SeatPitch:         tier.SeatPitch,
		WiFi:              airline.Quality != "budget",
		Meals:             tier.Meals,
		OnTimePerformance: 75 + g.rng.IntN(20),
		CarbonEmission:    totalDuration * 200 / 60,
		BookingClass:      "Economy",
		AvailableSeats:    5 + g.rng.IntN(50),
		Refundable:        airline.Quality == "premium",
	}
	if stops > 0 {
		original := price + 50
		f.OriginalPrice = &original
		f.Stopover = g.stopover(airline, from, to)
	}
	f.PriceHistory = g.priceHistory(price, now)
	f.Availability = g.availability()
	return f
}

// isDirect treats hub-to-hub routes and the airline's own network as non-stop.
func (g *Generator) isDirect(airline Airline, from, to string) bool {
	a, okA := g.catalog.Airport(from)
	b, okB := g.catalog.Airport(to)
	if okA && okB && a.Hub && b.Hub {
		return true
	}
	return airline.Serves(from) && airline.Serves(to)
}

func (g *Generator) stopover(airline Airline, from, to string) string {
	if airline.Hub != "" && airline.Hub != from && airline.Hub != to {
		return g.catalog.City(airline.Hub)
	}
	return "Frankfurt"
}

func (g *Generator) priceHistory(current int, now time.Time) []models.PricePoint {
	history := make([]models.PricePoint, 0, 8)
	for i := 7; i >= 0; i-- {
		variation := (g.rng.Float64() - 0.5) * 0.1 // ±5%
		history = append(history, models.PricePoint{
			Date:  now.AddDate(0, 0, -i).Format(dateLayout),
			Price: int(math.Round(float64(current) * (1 + variation))),
		})
	}
	return history
}

func (g *Generator) availability() models.Availability {
	switch g.rng.IntN(3) {
	case 0:
		return models.Availability{Seats: 1 + g.rng.IntN(9), Message: "Few seats left!"}
	case 1:
		return models.Availability{Seats: 10 + g.rng.IntN(20), Message: "Good availability"}
	default:
		return models.Availability{Seats: 25 + g.rng.IntN(50), Message: "Many seats available"}
	}
}

func aircraftFor(durationMinutes int) string {
	switch {
	case durationMinutes > 480:
		return "Boeing 777-300ER"
	case durationMinutes > 240:
		return "Airbus A350-900"
	default:
		return "Airbus A320"
	}
}

func formatDuration(minutes int) string {
	return fmt.Sprintf("%dh %dm", minutes/60, minutes%60)
}

// arrivalTime formats the arrival clock time, suffixed "+N" for later days.
func arrivalTime(depHour, depMinute, durationMinutes int) string {
	total := depHour*60 + depMinute + durationMinutes
	days := total / (24 * 60)
	total %= 24 * 60
	s := fmt.Sprintf("%02d:%02d", total/60, total%60)
	if days > 0 {
		s += fmt.Sprintf("+%d", days)
	}
	return s
}
