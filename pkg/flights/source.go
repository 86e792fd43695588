package flights

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math/rand/v2"
	"net"
	"net/http"
	"net/url"
	"strings"
	"time"

	"airease-backend/pkg/models"
)

// PriceSource quotes the current lowest price for a route.
type PriceSource interface {
	CurrentPrice(ctx context.Context, route models.Route) (models.Quote, error)
}

var (
	// ErrTransient 可重试的上游错误
	ErrTransient = errors.New("price source temporarily unavailable")
	// ErrRateLimited 上游限流
	ErrRateLimited = errors.New("price source rate limited")
)

// PriceSourceError wraps every failure to obtain a quote.
type PriceSourceError struct {
	Route models.Route
	Err   error
}

func (e *PriceSourceError) Error() string {
	return fmt.Sprintf("quote %s: %v", e.Route, e.Err)
}

func (e *PriceSourceError) Unwrap() error { return e.Err }

// MockSource quotes the cheapest generated offer for a route.
type MockSource struct {
	gen *Generator
}

// NewMockSource creates a mock source. A nil rng or clock falls back to
// time-based defaults.
func NewMockSource(catalog *Catalog, rng *rand.Rand, now func() time.Time) *MockSource {
	return &MockSource{gen: NewGenerator(catalog, rng, now)}
}

// CurrentPrice implements PriceSource.
func (s *MockSource) CurrentPrice(ctx context.Context, route models.Route) (models.Quote, error) {
	if err := ctx.Err(); err != nil {
		return models.Quote{}, &PriceSourceError{Route: route, Err: err}
	}
	offers := s.gen.Flights(route.From, route.To, route.DepartDate)
	if len(offers) == 0 {
		return models.Quote{}, &PriceSourceError{Route: route, Err: errors.New("no offers")}
	}
	cheapest := offers[0]
	for _, f := range offers[1:] {
		if f.Price < cheapest.Price {
			cheapest = f
		}
	}
	return cheapest.Quote, nil
}

// HTTPSource quotes prices from an upstream JSON price API.
type HTTPSource struct {
	BaseURL string
	APIKey  string
	Client  *http.Client
	Timeout time.Duration
	Retries int
	Backoff time.Duration
}

type priceResponse struct {
	Price         int       `json:"price"`
	Airline       string    `json:"airline"`
	AirlineCode   string    `json:"airlineCode"`
	FlightNumber  string    `json:"flightNumber"`
	DepartureTime string    `json:"departureTime"`
	Duration      string    `json:"duration"`
	LastUpdated   time.Time `json:"lastUpdated"`
}

// CurrentPrice implements PriceSource.
func (s *HTTPSource) CurrentPrice(ctx context.Context, route models.Route) (models.Quote, error) {
	q, err := s.fetchWithRetry(ctx, route)
	if err != nil {
		return models.Quote{}, &PriceSourceError{Route: route, Err: err}
	}
	return q, nil
}

func (s *HTTPSource) fetchWithRetry(ctx context.Context, route models.Route) (models.Quote, error) {
	attempts := s.resolvedRetries() + 1
	for attempt := 0; ; attempt++ {
		q, err := s.fetchOnce(ctx, route)
		if err == nil {
			return q, nil
		}
		if !isRetryable(err) || attempt == attempts-1 {
			return models.Quote{}, err
		}
		select {
		case <-ctx.Done():
			return models.Quote{}, ctx.Err()
		case <-time.After(s.retryDelay(attempt)):
		}
	}
}

func (s *HTTPSource) fetchOnce(ctx context.Context, route models.Route) (models.Quote, error) {
	v := url.Values{}
	v.Set("from", route.From)
	v.Set("to", route.To)
	v.Set("date", route.DepartDate)
	endpoint := strings.TrimRight(s.BaseURL, "/") + "/v1/prices?" + v.Encode()

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return models.Quote{}, err
	}
	req.Header.Set("Accept", "application/json")
	if s.APIKey != "" {
		req.Header.Set("X-API-Key", s.APIKey)
	}

	resp, err := s.client().Do(req)
	if err != nil {
		if ctx.Err() == nil && isNetworkTransient(err) {
			return models.Quote{}, fmt.Errorf("%w: %v", ErrTransient, err)
		}
		return models.Quote{}, fmt.Errorf("price request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 2048))
		msg := strings.TrimSpace(string(body))
		switch {
		case resp.StatusCode == http.StatusTooManyRequests:
			return models.Quote{}, fmt.Errorf("%w: %s: %s", ErrRateLimited, resp.Status, msg)
		case resp.StatusCode >= 500:
			return models.Quote{}, fmt.Errorf("%w: %s: %s", ErrTransient, resp.Status, msg)
		default:
			return models.Quote{}, fmt.Errorf("price request failed: %s: %s", resp.Status, msg)
		}
	}

	var payload priceResponse
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return models.Quote{}, fmt.Errorf("decode price response: %w", err)
	}
	if payload.Price <= 0 {
		return models.Quote{}, fmt.Errorf("price response: non-positive price %d", payload.Price)
	}
	departure, err := clockTime(payload.DepartureTime)
	if err != nil {
		return models.Quote{}, fmt.Errorf("price response: %w", err)
	}

	updated := payload.LastUpdated
	if updated.IsZero() {
		updated = time.Now()
	}
	return models.Quote{
		ID:            payload.FlightNumber,
		From:          route.From,
		To:            route.To,
		Airline:       payload.Airline,
		AirlineCode:   payload.AirlineCode,
		FlightNumber:  payload.FlightNumber,
		DepartureTime: departure,
		Duration:      payload.Duration,
		Price:         payload.Price,
		LastUpdated:   updated.UTC(),
	}, nil
}

// clockTime 将上游的出发时间规范为 HH:MM，支持 HH:MM 和 RFC3339
func clockTime(v string) (string, error) {
	v = strings.TrimSpace(v)
	if v == "" {
		return "", errors.New("missing departureTime")
	}
	if t, err := time.Parse("15:04", v); err == nil {
		return t.Format("15:04"), nil
	}
	if t, err := time.Parse(time.RFC3339, v); err == nil {
		return t.Format("15:04"), nil
	}
	return "", fmt.Errorf("unrecognised departureTime %q", v)
}

func (s *HTTPSource) client() *http.Client {
	if s.Client != nil {
		return s.Client
	}
	return &http.Client{Timeout: s.resolvedTimeout()}
}

func (s *HTTPSource) resolvedTimeout() time.Duration {
	if s.Timeout > 0 {
		return s.Timeout
	}
	return 10 * time.Second
}

func (s *HTTPSource) resolvedRetries() int {
	if s.Retries < 0 {
		return 0
	}
	return s.Retries
}

func (s *HTTPSource) retryDelay(attempt int) time.Duration {
	base := s.Backoff
	if base <= 0 {
		base = 300 * time.Millisecond
	}
	return base * time.Duration(1<<min(attempt, 5))
}

func isRetryable(err error) bool {
	return errors.Is(err, ErrTransient) || errors.Is(err, ErrRateLimited)
}

func isNetworkTransient(err error) bool {
	if errors.Is(err, io.EOF) {
		return true
	}
	var netErr net.Error
	return errors.As(err, &netErr)
}
