package flights

import (
	"context"
	"errors"
	"math/rand/v2"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"airease-backend/pkg/models"
	"airease-backend/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 16, 6, 0, 0, 0, time.UTC)

func seeded() *rand.Rand { return rand.New(rand.NewPCG(7, 11)) }

func newTestGenerator() *Generator {
	return NewGenerator(DefaultCatalog(), seeded(), func() time.Time { return fixedNow })
}

func TestCatalogLookups(t *testing.T) {
	c := DefaultCatalog()

	assert.Equal(t, 420, c.BasePrice("AMM", "LHR"))
	assert.Equal(t, 400, c.BasePrice("SIN", "NRT"))
	assert.Equal(t, 330, c.Duration("AMM", "LHR"))
	assert.Equal(t, 300, c.Duration("SIN", "NRT"))

	codes := func(as []Airline) []string {
		out := make([]string, len(as))
		for i, a := range as {
			out[i] = a.Code
		}
		return out
	}
	assert.Equal(t, []string{"QR", "LH", "TK", "BA", "AF", "KL"}, codes(c.AirlinesServing("AMM", "LHR")))
	assert.Equal(t, []string{"QR", "EK", "LH"}, codes(c.AirlinesServing("SIN", "SYD")))

	assert.Equal(t, "London", c.City("LHR"))
	assert.Equal(t, "XYZ", c.City("XYZ"))

	assert.True(t, c.IsInternational("AMM", "LHR"))
	assert.False(t, c.IsInternational("JFK", "LAX"))
	assert.True(t, c.IsInternational("JFK", "XYZ"))
	assert.False(t, c.IsInternational("XYZ", "XYZ"))

	assert.Equal(t, "Carry-on only (7kg)", c.Quality("budget").Baggage)
	assert.Equal(t, c.Quality("standard"), c.Quality("unknown"))
}

func TestCatalogReverseRouteFallback(t *testing.T) {
	c, err := ParseCatalog([]byte(`
airlines:
  - {code: XX, name: Test Air, quality: standard, priceMultiplier: 1, routes: [AAA, BBB]}
routePrices: {AAA-BBB: 250}
durations: {AAA-BBB: 95}
defaults: {basePrice: 400, duration: 300}
`))
	require.NoError(t, err)
	assert.Equal(t, 250, c.BasePrice("BBB", "AAA"))
	assert.Equal(t, 95, c.Duration("BBB", "AAA"))

	_, err = ParseCatalog([]byte(`airlines: []`))
	assert.Error(t, err)
}

func TestCatalogContacts(t *testing.T) {
	c := DefaultCatalog()
	assert.Equal(t, "+974 4023-0000", c.AirlineContact("QR401"))
	assert.Equal(t, "+1-800-555-AIRLINE", c.AirlineContact("ZZ1"))
	assert.Equal(t, "+962 6-445-1200", c.AirportContact("AMM"))
	assert.Equal(t, "+1-800-555-AIRPORT", c.AirportContact("SIN"))
	assert.Equal(t, "+44 20-7008-1500", c.EmbassyContact("AMM", "LHR"))
	assert.Equal(t, "+1-888-407-4747", c.EmbassyContact("JFK", "CDG"))
	assert.Equal(t, "+1-800-555-EMBASSY", c.EmbassyContact("AMM", "DXB"))
}

func TestGeneratorIsDeterministic(t *testing.T) {
	a := newTestGenerator().Flights("AMM", "LHR", "2026-11-03")
	b := newTestGenerator().Flights("AMM", "LHR", "2026-11-03")
	assert.Equal(t, a, b)

	require.GreaterOrEqual(t, len(a), 6)
	require.LessOrEqual(t, len(a), 12)
	for _, f := range a {
		assert.Positive(t, f.Price)
		assert.Equal(t, "AMM", f.From)
		assert.Equal(t, "LHR", f.To)
		assert.Equal(t, "London", f.ToCity)
		assert.Equal(t, "Airbus A350-900", f.Aircraft)
		assert.Len(t, f.PriceHistory, 8)
		assert.Equal(t, fixedNow.Format(dateLayout), f.PriceHistory[7].Date)
		assert.NotEmpty(t, f.Availability.Message)
		if f.Stops > 0 {
			require.NotNil(t, f.OriginalPrice)
			assert.Equal(t, f.Price+50, *f.OriginalPrice)
			assert.NotEmpty(t, f.Stopover)
		}
	}
}

func TestGeneratorHighSeason(t *testing.T) {
	march := newTestGenerator().Flights("AMM", "LHR", "2027-03-10")
	july := newTestGenerator().Flights("AMM", "LHR", "2027-07-10")
	require.Equal(t, len(march), len(july))

	for i := range march {
		assert.InDelta(t, float64(march[i].Price)*1.3, float64(july[i].Price), 2, "flight %d", i)
	}
}

func TestArrivalTimeRollsOver(t *testing.T) {
	assert.Equal(t, "11:30", arrivalTime(6, 0, 330))
	assert.Equal(t, "02:15+1", arrivalTime(20, 15, 360))
	assert.Equal(t, "5h 30m", formatDuration(330))
}

func TestSearch(t *testing.T) {
	s := NewSearcher(newTestGenerator())

	flights, err := s.Search(context.Background(), models.SearchRequest{From: "amm", To: "lhr", DepartDate: "2026-11-03"})
	require.NoError(t, err)
	require.NotEmpty(t, flights)
	assert.LessOrEqual(t, len(flights), MaxResults)
	for i, f := range flights {
		assert.LessOrEqual(t, f.Price, DefaultMaxPrice)
		assert.False(t, f.AboveMaxPrice)
		if i > 0 {
			prev := flights[i-1]
			assert.True(t, prev.Price < f.Price || (prev.Price == f.Price && prev.DepartureTime <= f.DepartureTime))
		}
	}
}

func TestSearchFallsBackToCheapestAboveMaxPrice(t *testing.T) {
	s := NewSearcher(newTestGenerator())

	flights, err := s.Search(context.Background(), models.SearchRequest{From: "AMM", To: "JFK", DepartDate: "2026-12-20", MaxPrice: 1})
	require.NoError(t, err)
	require.Len(t, flights, 1)
	assert.True(t, flights[0].AboveMaxPrice)
	assert.Greater(t, flights[0].Price, 1)
}

func TestSearchValidation(t *testing.T) {
	s := NewSearcher(newTestGenerator())
	tests := []struct {
		name  string
		req   models.SearchRequest
		field string
	}{
		{"missing from", models.SearchRequest{To: "LHR", DepartDate: "2026-11-03"}, "from"},
		{"bad from", models.SearchRequest{From: "AM", To: "LHR", DepartDate: "2026-11-03"}, "from"},
		{"missing to", models.SearchRequest{From: "AMM", DepartDate: "2026-11-03"}, "to"},
		{"same airports", models.SearchRequest{From: "AMM", To: "amm", DepartDate: "2026-11-03"}, "to"},
		{"missing date", models.SearchRequest{From: "AMM", To: "LHR"}, "departDate"},
		{"bad date", models.SearchRequest{From: "AMM", To: "LHR", DepartDate: "03/11/2026"}, "departDate"},
		{"negative price", models.SearchRequest{From: "AMM", To: "LHR", DepartDate: "2026-11-03", MaxPrice: -5}, "maxPrice"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := s.Search(context.Background(), tt.req)
			var verr *utils.ValidationError
			require.ErrorAs(t, err, &verr)
			assert.Equal(t, tt.field, verr.Field)
			assert.ErrorIs(t, err, utils.ErrValidation)
		})
	}
}

func TestRecover(t *testing.T) {
	s := NewSearcher(newTestGenerator())

	plan, err := s.Recover(context.Background(), models.RecoveryRequest{
		FlightNumber: "qr401",
		OriginalDate: "2026-10-16",
		From:         "AMM",
		To:           "LHR",
		Reason:       "Weather delay caused a missed connection",
	}, fixedNow)
	require.NoError(t, err)

	assert.True(t, plan.Success)
	require.NotEmpty(t, plan.Options)
	assert.LessOrEqual(t, len(plan.Options), 6)

	cutoff := fixedNow.Add(2 * time.Hour)
	for i, o := range plan.Options {
		switch o.Type {
		case "same-day":
			assert.Equal(t, "urgent", o.Urgency)
			dep, ok := departureOn(fixedNow, o.DepartureTime)
			require.True(t, ok)
			assert.True(t, dep.After(cutoff))
			if o.Stops == 0 {
				assert.Equal(t, "high", o.Priority)
			} else {
				assert.Equal(t, "medium", o.Priority)
			}
		case "next-day":
			assert.Equal(t, "budget", o.Priority)
			assert.Equal(t, "standard", o.Urgency)
		default:
			t.Fatalf("unexpected option type %q", o.Type)
		}
		assert.LessOrEqual(t, o.Price, recoveryMaxPrice)
		if i > 0 {
			prev := plan.Options[i-1]
			assert.GreaterOrEqual(t, priorityRank[prev.Priority], priorityRank[o.Priority])
			if prev.Priority == o.Priority {
				assert.LessOrEqual(t, prev.Price, o.Price)
			}
		}
	}

	assert.Equal(t, "+974 4023-0000", plan.EmergencyContacts.Airline)
	assert.Equal(t, "+962 6-445-1200", plan.EmergencyContacts.Airport)
	assert.Equal(t, "+1-800-555-HELP (4357)", plan.EmergencyContacts.Insurance)
	assert.Equal(t, "+44 20-7008-1500", plan.EmergencyContacts.Embassy)
	assert.Len(t, plan.Recommendations, 8)
	assert.Equal(t, "QR401", plan.OriginalFlight.FlightNumber)
	assert.Equal(t, fixedNow, plan.SearchTime)
}

func TestRecoverLateEveningOffersOnlyNextDay(t *testing.T) {
	late := time.Date(2026, 10, 16, 23, 0, 0, 0, time.UTC)
	s := NewSearcher(NewGenerator(DefaultCatalog(), seeded(), func() time.Time { return late }))

	plan, err := s.Recover(context.Background(), models.RecoveryRequest{FlightNumber: "BA117", From: "LHR", To: "JFK"}, late)
	require.NoError(t, err)
	require.NotEmpty(t, plan.Options)
	assert.LessOrEqual(t, len(plan.Options), 2)
	for _, o := range plan.Options {
		assert.Equal(t, "next-day", o.Type)
	}
	assert.Len(t, plan.Recommendations, 4)
}

func TestRecoverValidation(t *testing.T) {
	s := NewSearcher(newTestGenerator())
	_, err := s.Recover(context.Background(), models.RecoveryRequest{From: "AMM", To: "LHR"}, fixedNow)
	assert.ErrorIs(t, err, utils.ErrValidation)
}

func TestRecoveryTips(t *testing.T) {
	assert.Len(t, RecoveryTips(""), 4)
	assert.Len(t, RecoveryTips("bad WEATHER"), 6)
	assert.Len(t, RecoveryTips("missed connection"), 6)
}

func TestMockSourceQuotesCheapestOffer(t *testing.T) {
	src := NewMockSource(DefaultCatalog(), seeded(), func() time.Time { return fixedNow })
	route := models.Route{From: "AMM", To: "LHR", DepartDate: "2026-11-03"}

	q, err := src.CurrentPrice(context.Background(), route)
	require.NoError(t, err)

	offers := newTestGenerator().Flights(route.From, route.To, route.DepartDate)
	lowest := offers[0].Price
	for _, f := range offers {
		lowest = min(lowest, f.Price)
	}
	assert.Equal(t, lowest, q.Price)
	assert.Equal(t, "AMM", q.From)
	assert.Equal(t, fixedNow, q.LastUpdated)
}

func TestMockSourceCanceledContext(t *testing.T) {
	src := NewMockSource(nil, nil, nil)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := src.CurrentPrice(ctx, models.Route{From: "AMM", To: "LHR", DepartDate: "2026-11-03"})
	var perr *PriceSourceError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, "AMM", perr.Route.From)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestHTTPSource(t *testing.T) {
	route := models.Route{From: "AMM", To: "LHR", DepartDate: "2026-11-03"}

	t.Run("success", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			assert.Equal(t, "/v1/prices", r.URL.Path)
			assert.Equal(t, "AMM", r.URL.Query().Get("from"))
			assert.Equal(t, "LHR", r.URL.Query().Get("to"))
			assert.Equal(t, "2026-11-03", r.URL.Query().Get("date"))
			assert.Equal(t, "secret", r.Header.Get("X-API-Key"))
			w.Header().Set("Content-Type", "application/json")
			w.Write([]byte(`{"price":389,"airline":"Turkish Airlines","airlineCode":"TK","flightNumber":"TK813","departureTime":"10:15"}`))
		}))
		defer srv.Close()

		src := &HTTPSource{BaseURL: srv.URL + "/", APIKey: "secret"}
		q, err := src.CurrentPrice(context.Background(), route)
		require.NoError(t, err)
		assert.Equal(t, 389, q.Price)
		assert.Equal(t, "TK813", q.FlightNumber)
		assert.Equal(t, "LHR", q.To)
		assert.Equal(t, "10:15", q.DepartureTime)
		assert.False(t, q.LastUpdated.IsZero())
	})

	t.Run("normalises RFC3339 departure time", func(t *testing.T) {
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte(`{"price":445,"flightNumber":"QR401","departureTime":"2026-11-03T10:30:00+03:00"}`))
		}))
		defer srv.Close()

		q, err := (&HTTPSource{BaseURL: srv.URL}).CurrentPrice(context.Background(), route)
		require.NoError(t, err)
		assert.Equal(t, "10:30", q.DepartureTime)
	})

	t.Run("retries transient failures", func(t *testing.T) {
		var calls atomic.Int32
		srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if calls.Add(1) == 1 {
				http.Error(w, "upstream busy", http.StatusBadGateway)
				return
			}
			w.Write([]byte(`{"price":410,"departureTime":"08:05"}`))
		}))
		defer srv.Close()

		src := &HTTPSource{BaseURL: srv.URL, Retries: 1, Backoff: time.Millisecond}
		q, err := src.CurrentPrice(context.Background(), route)
		require.NoError(t, err)
		assert.Equal(t, 410, q.Price)
		assert.Equal(t, int32(2), calls.Load())
	})

	failures := []struct {
		name   string
		status int
		body   string
	}{
		{"not found", http.StatusNotFound, `{"error":"unknown route"}`},
		{"server error", http.StatusInternalServerError, `boom`},
		{"bad json", http.StatusOK, `{"price":`},
		{"zero price", http.StatusOK, `{"price":0,"departureTime":"10:15"}`},
		{"missing departure time", http.StatusOK, `{"price":445}`},
		{"unparseable departure time", http.StatusOK, `{"price":445,"departureTime":"half past ten"}`},
	}
	for _, tt := range failures {
		t.Run(tt.name, func(t *testing.T) {
			var calls atomic.Int32
			srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				calls.Add(1)
				w.WriteHeader(tt.status)
				w.Write([]byte(tt.body))
			}))
			defer srv.Close()

			src := &HTTPSource{BaseURL: srv.URL}
			_, err := src.CurrentPrice(context.Background(), route)
			var perr *PriceSourceError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, route, perr.Route)
			assert.Equal(t, int32(1), calls.Load())
		})
	}

	t.Run("unreachable", func(t *testing.T) {
		srv := httptest.NewServer(http.NotFoundHandler())
		url := srv.URL
		srv.Close()

		src := &HTTPSource{BaseURL: url, Timeout: time.Second}
		_, err := src.CurrentPrice(context.Background(), route)
		var perr *PriceSourceError
		assert.True(t, errors.As(err, &perr))
	})
}
