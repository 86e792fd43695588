package recommend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"regexp"
	"strings"
	"time"
)

const (
	defaultGeminiModel   = "gemini-2.0-flash"
	defaultGeminiBaseURL = "https://generativelanguage.googleapis.com"
)

// GeminiClient generates recommendations through the Gemini REST API.
type GeminiClient struct {
	apiKey     string
	model      string
	baseURL    string
	httpClient *http.Client
}

// GeminiOption configures a GeminiClient.
type GeminiOption func(*GeminiClient)

// WithModel sets the Gemini model to use.
func WithModel(model string) GeminiOption {
	return func(g *GeminiClient) {
		if model != "" {
			g.model = model
		}
	}
}

// WithBaseURL sets a custom base URL (for testing).
func WithBaseURL(url string) GeminiOption {
	return func(g *GeminiClient) {
		if url != "" {
			g.baseURL = strings.TrimRight(url, "/")
		}
	}
}

// WithHTTPClient replaces the HTTP client.
func WithHTTPClient(c *http.Client) GeminiOption {
	return func(g *GeminiClient) { g.httpClient = c }
}

// NewGeminiClient creates a Gemini-backed Augmenter.
func NewGeminiClient(apiKey string, opts ...GeminiOption) *GeminiClient {
	g := &GeminiClient{
		apiKey:     apiKey,
		model:      defaultGeminiModel,
		baseURL:    defaultGeminiBaseURL,
		httpClient: &http.Client{Timeout: 30 * time.Second},
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

// Augment implements Augmenter.
func (g *GeminiClient) Augment(ctx context.Context, in AugmentInput) (Augmentation, error) {
	reqBody := geminiRequest{
		Contents: []geminiContent{{Parts: []geminiPart{{Text: buildPrompt(in)}}}},
	}
	bodyBytes, err := json.Marshal(reqBody)
	if err != nil {
		return Augmentation{}, fmt.Errorf("marshal request: %w", err)
	}

	url := fmt.Sprintf("%s/v1beta/models/%s:generateContent", g.baseURL, g.model)
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(bodyBytes))
	if err != nil {
		return Augmentation{}, fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("x-goog-api-key", g.apiKey)

	resp, err := g.httpClient.Do(req)
	if err != nil {
		return Augmentation{}, fmt.Errorf("send request: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return Augmentation{}, fmt.Errorf("unexpected status: %d: %s", resp.StatusCode, strings.TrimSpace(string(body)))
	}

	var geminiResp geminiResponse
	if err := json.NewDecoder(resp.Body).Decode(&geminiResp); err != nil {
		return Augmentation{}, fmt.Errorf("decode response: %w", err)
	}
	return parseGeminiResponse(&geminiResp)
}

func buildPrompt(in AugmentInput) string {
	tripType := in.Preferences.TripType
	if tripType == "" {
		tripType = "leisure"
	}
	duration := in.Preferences.Duration
	if duration == "" {
		duration = "3-5 days"
	}
	scope := "domestic"
	if in.International {
		scope = "international"
	}

	return fmt.Sprintf(`As an expert travel advisor, prepare recommendations for a traveler.

TRIP DETAILS:
- Route: %s to %s (%s)
- Flight: %s %s departing %s
- Weather at destination: %d°C, %s, season %s
- Trip type: %s
- Duration: %s
- Itinerary: %s

Respond with JSON only, in this exact format:
{"packingList": {"clothing": ["..."], "weather": ["..."], "essentials": ["..."]},
 "travelTips": [{"category": "...", "tip": "..."}],
 "timeline": [{"task": "...", "minutes": 45, "description": "..."}]}

The timeline lists the steps from leaving home to boarding, in order, with whole minutes.`,
		in.Flight.From, in.Flight.To, in.Destination,
		in.Flight.Airline, in.Flight.FlightNumber, in.Flight.DepartureTime,
		in.Weather.Temp, in.Weather.Condition, in.Weather.Season,
		tripType, duration, scope)
}

var jsonObjectRegex = regexp.MustCompile(`\{[\s\S]*\}`)

func parseGeminiResponse(resp *geminiResponse) (Augmentation, error) {
	if len(resp.Candidates) == 0 {
		return Augmentation{}, fmt.Errorf("no candidates in response")
	}
	candidate := resp.Candidates[0]
	if len(candidate.Content.Parts) == 0 {
		return Augmentation{}, fmt.Errorf("no parts in candidate")
	}

	text := stripMarkdownCodeBlock(candidate.Content.Parts[0].Text)
	match := jsonObjectRegex.FindString(text)
	if match == "" {
		return Augmentation{}, fmt.Errorf("no JSON object in response")
	}

	var aug Augmentation
	if err := json.Unmarshal([]byte(match), &aug); err != nil {
		return Augmentation{}, fmt.Errorf("parse recommendation JSON: %w", err)
	}
	return aug, nil
}

var codeBlockRegex = regexp.MustCompile("(?s)^\\s*```(?:json)?\\s*(.+?)\\s*```\\s*$")

func stripMarkdownCodeBlock(s string) string {
	s = strings.TrimSpace(s)
	if matches := codeBlockRegex.FindStringSubmatch(s); len(matches) > 1 {
		return strings.TrimSpace(matches[1])
	}
	return s
}

// Gemini API types

type geminiRequest struct {
	Contents []geminiContent `json:"contents"`
}

type geminiContent struct {
	Parts []geminiPart `json:"parts"`
}

type geminiPart struct {
	Text string `json:"text"`
}

type geminiResponse struct {
	Candidates []geminiCandidate `json:"candidates"`
}

type geminiCandidate struct {
	Content geminiContent `json:"content"`
}
