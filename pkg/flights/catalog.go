package flights

import (
	_ "embed"
	"fmt"
	"sync"

	"gopkg.in/yaml.v3"
)

//go:embed catalog.yaml
var catalogYAML []byte

// Airline is a carrier in the catalog.
type Airline struct {
	Code            string   `yaml:"code"`
	Name            string   `yaml:"name"`
	Logo            string   `yaml:"logo"`
	Quality         string   `yaml:"quality"`
	PriceMultiplier float64  `yaml:"priceMultiplier"`
	Hub             string   `yaml:"hub"`
	Routes          []string `yaml:"routes"`
}

// Serves reports whether the airline flies to or from code.
func (a Airline) Serves(code string) bool {
	for _, r := range a.Routes {
		if r == code {
			return true
		}
	}
	return false
}

// Airport is an airport in the catalog.
type Airport struct {
	City     string `yaml:"city"`
	Country  string `yaml:"country"`
	Timezone string `yaml:"timezone"`
	Hub      bool   `yaml:"hub"`
}

// QualityTier describes cabin service for an airline quality level.
type QualityTier struct {
	Amenities []string `yaml:"amenities"`
	Baggage   string   `yaml:"baggage"`
	SeatPitch string   `yaml:"seatPitch"`
	Meals     string   `yaml:"meals"`
}

// Contacts holds emergency phone numbers.
type Contacts struct {
	Airlines       map[string]string `yaml:"airlines"`
	Airports       map[string]string `yaml:"airports"`
	Embassies      map[string]string `yaml:"embassies"`
	Insurance      string            `yaml:"insurance"`
	DefaultAirline string            `yaml:"defaultAirline"`
	DefaultAirport string            `yaml:"defaultAirport"`
	DefaultEmbassy string            `yaml:"defaultEmbassy"`
}

// Catalog is the static airline, airport and fare data.
type Catalog struct {
	Airlines    []Airline              `yaml:"airlines"`
	Airports    map[string]Airport     `yaml:"airports"`
	RoutePrices map[string]int         `yaml:"routePrices"`
	Durations   map[string]int         `yaml:"durations"`
	Qualities   map[string]QualityTier `yaml:"qualities"`
	Contacts    Contacts               `yaml:"contacts"`
	Defaults    struct {
		BasePrice int `yaml:"basePrice"`
		Duration  int `yaml:"duration"`
	} `yaml:"defaults"`
}

// ParseCatalog decodes a catalog document.
func ParseCatalog(data []byte) (*Catalog, error) {
	var c Catalog
	if err := yaml.Unmarshal(data, &c); err != nil {
		return nil, fmt.Errorf("parsing flight catalog: %w", err)
	}
	if len(c.Airlines) == 0 {
		return nil, fmt.Errorf("parsing flight catalog: no airlines")
	}
	return &c, nil
}

var (
	defaultCatalog     *Catalog
	defaultCatalogOnce sync.Once
)

// DefaultCatalog returns the embedded catalog.
func DefaultCatalog() *Catalog {
	defaultCatalogOnce.Do(func() {
		c, err := ParseCatalog(catalogYAML)
		if err != nil {
			panic(err)
		}
		defaultCatalog = c
	})
	return defaultCatalog
}

func routeKey(from, to string) string { return from + "-" + to }

// BasePrice returns the fare for the route, falling back to the reverse
// route and then the default fare.
func (c *Catalog) BasePrice(from, to string) int {
	if p, ok := c.RoutePrices[routeKey(from, to)]; ok {
		return p
	}
	if p, ok := c.RoutePrices[routeKey(to, from)]; ok {
		return p
	}
	return c.Defaults.BasePrice
}

// Duration returns the flight time in minutes for the route.
func (c *Catalog) Duration(from, to string) int {
	if d, ok := c.Durations[routeKey(from, to)]; ok {
		return d
	}
	if d, ok := c.Durations[routeKey(to, from)]; ok {
		return d
	}
	return c.Defaults.Duration
}

// AirlinesServing returns the carriers flying both airports, or the first
// three carriers when none do.
func (c *Catalog) AirlinesServing(from, to string) []Airline {
	var out []Airline
	for _, a := range c.Airlines {
		if a.Serves(from) && a.Serves(to) {
			out = append(out, a)
		}
	}
	if len(out) == 0 {
		n := min(3, len(c.Airlines))
		out = append(out, c.Airlines[:n]...)
	}
	return out
}

// Airline looks up a carrier by IATA code.
func (c *Catalog) Airline(code string) (Airline, bool) {
	for _, a := range c.Airlines {
		if a.Code == code {
			return a, true
		}
	}
	return Airline{}, false
}

// Airport looks up an airport by IATA code.
func (c *Catalog) Airport(code string) (Airport, bool) {
	a, ok := c.Airports[code]
	return a, ok
}

// City returns the city served by code, or the code itself.
func (c *Catalog) City(code string) string {
	if a, ok := c.Airports[code]; ok {
		return a.City
	}
	return code
}

// IsInternational reports whether the two airports are in different countries.
// Unknown airports count as international unless the codes are equal.
func (c *Catalog) IsInternational(from, to string) bool {
	if from == to {
		return false
	}
	a, okA := c.Airports[from]
	b, okB := c.Airports[to]
	if !okA || !okB {
		return true
	}
	return a.Country != b.Country
}

// Quality returns the service tier, defaulting to standard.
func (c *Catalog) Quality(name string) QualityTier {
	if q, ok := c.Qualities[name]; ok {
		return q
	}
	return c.Qualities["standard"]
}

// AirlineContact returns the phone number for the carrier prefix of a flight number.
func (c *Catalog) AirlineContact(flightNumber string) string {
	if len(flightNumber) >= 2 {
		if phone, ok := c.Contacts.Airlines[flightNumber[:2]]; ok {
			return phone
		}
	}
	return c.Contacts.DefaultAirline
}

// AirportContact returns the phone number for an airport.
func (c *Catalog) AirportContact(code string) string {
	if phone, ok := c.Contacts.Airports[code]; ok {
		return phone
	}
	return c.Contacts.DefaultAirport
}

// EmbassyContact returns the consular number for the first route country
// with a listed embassy line.
func (c *Catalog) EmbassyContact(from, to string) string {
	for _, code := range []string{from, to} {
		if a, ok := c.Airports[code]; ok {
			if phone, ok := c.Contacts.Embassies[a.Country]; ok {
				return phone
			}
		}
	}
	return c.Contacts.DefaultEmbassy
}
