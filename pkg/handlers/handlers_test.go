package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"airease-backend/pkg/config"
	"airease-backend/pkg/database"
	"airease-backend/pkg/database/dbtest"
	"airease-backend/pkg/flights"
	"airease-backend/pkg/logger"
	"airease-backend/pkg/models"
	"airease-backend/pkg/monitor"
	"airease-backend/pkg/notify"
	"airease-backend/pkg/recommend"
	"airease-backend/pkg/utils"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var fixedNow = time.Date(2026, 10, 16, 9, 0, 0, 0, time.UTC)

func fixedClock() time.Time { return fixedNow }

func newSearcher() *flights.Searcher {
	return flights.NewSearcher(flights.NewGenerator(nil, nil, fixedClock))
}

func jsonRequest(t *testing.T, method, target string, body interface{}) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	if s, ok := body.(string); ok {
		buf.WriteString(s)
	} else {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, target, &buf)
	req.Header.Set("Content-Type", "application/json")
	return req
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v), rec.Body.String())
	return v
}

func TestSearch(t *testing.T) {
	h := NewFlightsHandler(newSearcher(), recommend.NewEngine(), nil, logger.Discard())
	h.now = fixedClock

	rec := httptest.NewRecorder()
	h.Search(rec, jsonRequest(t, http.MethodPost, "/api/flights/search", map[string]interface{}{
		"from": "amm", "to": "lhr", "departDate": "2026-12-15",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[models.SearchResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "USD", resp.Currency)
	assert.NotEmpty(t, resp.SearchID)
	assert.Equal(t, "AMM", resp.SearchParams.From)
	assert.Equal(t, 1000.0, resp.SearchParams.MaxPrice)
	assert.Equal(t, 1, resp.SearchParams.Passengers)
	assert.Equal(t, len(resp.Flights), resp.TotalResults)
	require.NotEmpty(t, resp.Flights)
	assert.LessOrEqual(t, len(resp.Flights), flights.MaxResults)
	for i := 1; i < len(resp.Flights); i++ {
		assert.LessOrEqual(t, resp.Flights[i-1].Price, resp.Flights[i].Price)
	}
}

func TestSearchFallbackNotice(t *testing.T) {
	h := NewFlightsHandler(newSearcher(), recommend.NewEngine(), nil, logger.Discard())

	rec := httptest.NewRecorder()
	h.Search(rec, jsonRequest(t, http.MethodPost, "/api/flights/search", map[string]interface{}{
		"from": "AMM", "to": "JFK", "departDate": "2026-12-15", "maxPrice": 1,
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[models.SearchResponse](t, rec)
	require.Len(t, resp.Flights, 1)
	assert.True(t, resp.Flights[0].AboveMaxPrice)
	assert.Contains(t, resp.Notice, "$1")
}

func TestSearchValidation(t *testing.T) {
	h := NewFlightsHandler(newSearcher(), recommend.NewEngine(), nil, logger.Discard())

	tests := []struct {
		name string
		body interface{}
		want string
	}{
		{"missing from", map[string]string{"to": "LHR", "departDate": "2026-12-15"}, "from"},
		{"bad date", map[string]string{"from": "AMM", "to": "LHR", "departDate": "15/12/2026"}, "departDate"},
		{"negative max price", map[string]interface{}{"from": "AMM", "to": "LHR", "departDate": "2026-12-15", "maxPrice": -5}, "maxPrice"},
		{"broken json", `{"from":`, "body"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.Search(rec, jsonRequest(t, http.MethodPost, "/api/flights/search", tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			resp := decode[utils.ErrorResponse](t, rec)
			assert.False(t, resp.Success)
			assert.Contains(t, resp.Details, tt.want)
		})
	}
}

func TestAIRecommendations(t *testing.T) {
	h := NewFlightsHandler(newSearcher(), recommend.NewEngine(recommend.WithLogger(logger.Discard())), nil, logger.Discard())

	rec := httptest.NewRecorder()
	h.AIRecommendations(rec, jsonRequest(t, http.MethodPost, "/api/flights/ai-recommendations", map[string]interface{}{
		"flightData":  map[string]string{"from": "amm", "to": "lhr", "departureTime": "10:30"},
		"preferences": map[string]string{"tripType": "business"},
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success        bool                  `json:"success"`
		PackingList    models.PackingList    `json:"packingList"`
		TimeManagement models.TimeManagement `json:"timeManagement"`
		FlightInfo     models.FlightInfo     `json:"flightInfo"`
		AIGenerated    bool                  `json:"aiGenerated"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.False(t, resp.AIGenerated)
	assert.NotEmpty(t, resp.PackingList.Clothing)
	assert.Equal(t, "10:30", resp.TimeManagement.Departure)
	assert.NotEmpty(t, resp.TimeManagement.LeaveBy)
	assert.Equal(t, "LHR", resp.FlightInfo.To)
}

func TestAIRecommendationsValidation(t *testing.T) {
	h := NewFlightsHandler(newSearcher(), recommend.NewEngine(), nil, logger.Discard())

	for _, body := range []string{
		`{}`,
		`{"flightData":{"to":"LHR","departureTime":"10:30"}}`,
		`{"flightData":{"from":"AMM","to":"LHR","departureTime":"half past ten"}}`,
	} {
		rec := httptest.NewRecorder()
		h.AIRecommendations(rec, jsonRequest(t, http.MethodPost, "/api/flights/ai-recommendations", body))
		assert.Equal(t, http.StatusBadRequest, rec.Code, body)
	}
}

type fakeRunner struct {
	summary models.MonitorSummary
	err     error
}

func (f fakeRunner) RunPass(context.Context) (models.MonitorSummary, error) {
	return f.summary, f.err
}

func TestCheckPrices(t *testing.T) {
	summary := models.MonitorSummary{WatchesChecked: 3, MatchesFound: 1, NotificationsSent: 1, Checks: []models.WatchCheck{}, Timestamp: fixedNow}
	h := NewFlightsHandler(newSearcher(), recommend.NewEngine(), fakeRunner{summary: summary}, logger.Discard())

	rec := httptest.NewRecorder()
	h.CheckPrices(rec, httptest.NewRequest(http.MethodGet, "/api/flights/check-prices", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, true, resp["success"])
	assert.Equal(t, 3.0, resp["watchesChecked"])
	assert.Equal(t, 1.0, resp["notificationsSent"])
}

func TestCheckPricesStoreDown(t *testing.T) {
	err := fmt.Errorf("%w: %w", monitor.ErrPassAborted, database.ErrUnavailable)
	h := NewFlightsHandler(newSearcher(), recommend.NewEngine(), fakeRunner{err: err}, logger.Discard())
	h.now = fixedClock

	rec := httptest.NewRecorder()
	h.CheckPrices(rec, httptest.NewRequest(http.MethodGet, "/api/flights/check-prices", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, false, resp["success"])
	assert.Equal(t, 0.0, resp["watchesChecked"])
	assert.Equal(t, 0.0, resp["notificationsSent"])
	assert.Contains(t, resp["error"], "unavailable")
	assert.NotEmpty(t, resp["timestamp"])
}

// downStore fails every call.
type downStore struct {
	database.WatchStore
}

func (downStore) List(context.Context) ([]models.Watch, error) { return nil, database.ErrUnavailable }
func (downStore) Insert(context.Context, *models.Watch) error { return database.ErrUnavailable }

func TestWatchlistCreateAndList(t *testing.T) {
	store := dbtest.NewTestStore(t)
	tokens := utils.NewWatchTokenService("test-secret")
	h := NewWatchlistHandler(store, tokens, logger.Discard())
	h.now = fixedClock

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, http.MethodPost, "/api/watchlist", models.CreateWatchRequest{
		From: "amm", To: "lhr", DepartDate: "2026-12-15", TargetPrice: 500, Email: "Traveler <traveler@example.com>",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	created := decode[models.CreateWatchResponse](t, rec)
	assert.True(t, created.Success)
	assert.False(t, created.Watch.MockMode)
	assert.Equal(t, "AMM", created.Watch.From)
	assert.Equal(t, "traveler@example.com", created.Watch.Email)
	assert.True(t, created.Watch.Active)
	assert.Zero(t, created.Watch.NotificationCount)
	require.NoError(t, tokens.ValidateForWatch(created.ManageToken, created.Watch.ID))

	stored, err := store.Get(context.Background(), created.Watch.ID)
	require.NoError(t, err)
	assert.Equal(t, 500.0, stored.TargetPrice)

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/watchlist", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list struct {
		Watchlists []models.Watch `json:"watchlists"`
		Count      int            `json:"count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, 1, list.Count)
	assert.Equal(t, created.Watch.ID, list.Watchlists[0].ID)
}

func TestWatchlistCreateValidation(t *testing.T) {
	h := NewWatchlistHandler(dbtest.NewTestStore(t), utils.NewWatchTokenService("s"), logger.Discard())

	valid := models.CreateWatchRequest{From: "AMM", To: "LHR", DepartDate: "2026-12-15", TargetPrice: 500, Email: "a@example.com"}
	tests := []struct {
		name  string
		mod   func(*models.CreateWatchRequest)
		field string
	}{
		{"missing from", func(r *models.CreateWatchRequest) { r.From = "" }, "from"},
		{"missing date", func(r *models.CreateWatchRequest) { r.DepartDate = "" }, "departDate"},
		{"zero target", func(r *models.CreateWatchRequest) { r.TargetPrice = 0 }, "targetPrice"},
		{"negative target", func(r *models.CreateWatchRequest) { r.TargetPrice = -10 }, "targetPrice"},
		{"missing email", func(r *models.CreateWatchRequest) { r.Email = "" }, "email"},
		{"bad email", func(r *models.CreateWatchRequest) { r.Email = "not-an-email" }, "email"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			body := valid
			tt.mod(&body)
			rec := httptest.NewRecorder()
			h.Create(rec, jsonRequest(t, http.MethodPost, "/api/watchlist", body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode[utils.ErrorResponse](t, rec).Details, tt.field)
		})
	}
}

func TestWatchlistStoreDown(t *testing.T) {
	h := NewWatchlistHandler(downStore{}, utils.NewWatchTokenService("s"), logger.Discard())

	rec := httptest.NewRecorder()
	h.Create(rec, jsonRequest(t, http.MethodPost, "/api/watchlist", models.CreateWatchRequest{
		From: "AMM", To: "LHR", DepartDate: "2026-12-15", TargetPrice: 500, Email: "a@example.com",
	}))
	require.Equal(t, http.StatusOK, rec.Code)
	created := decode[models.CreateWatchResponse](t, rec)
	assert.True(t, created.Success)
	assert.True(t, created.Watch.MockMode)
	assert.NotEmpty(t, created.Watch.ID)
	assert.Empty(t, created.ManageToken)
	assert.Contains(t, created.Message, "mock mode")

	rec = httptest.NewRecorder()
	h.List(rec, httptest.NewRequest(http.MethodGet, "/api/watchlist", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var list map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &list))
	assert.Equal(t, []interface{}{}, list["watchlists"])
	assert.NotEmpty(t, list["error"])
}

func TestNotificationsTest(t *testing.T) {
	mailer := notify.NewLogMailer(logger.Discard())
	composer := notify.NewComposer("https://airease.example.com", utils.NewWatchTokenService("s"))
	h := NewNotificationsHandler(recommend.NewEngine(recommend.WithLogger(logger.Discard())), composer, mailer, time.Second, logger.Discard())
	h.now = fixedClock

	rec := httptest.NewRecorder()
	h.Test(rec, httptest.NewRequest(http.MethodGet, "/api/notifications/test", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp struct {
		Success         bool                  `json:"success"`
		Notification    models.Notification   `json:"notification"`
		Recommendations models.Recommendation `json:"recommendations"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.True(t, resp.Success)
	assert.Equal(t, "✈️ Price Alert: AMM → LHR now $445!", resp.Notification.Subject)
	assert.Equal(t, 55.0, resp.Notification.Metadata.Savings)
	assert.Equal(t, "London, UK", resp.Recommendations.Destination)
	require.Len(t, mailer.Sent(), 1)
	assert.Equal(t, "user@airease.com", mailer.Sent()[0].To)
}

type brokenMailer struct{}

func (brokenMailer) Send(context.Context, models.Notification) error {
	return errors.New("connection refused")
}

func TestNotificationsTestMailFailure(t *testing.T) {
	composer := notify.NewComposer("https://airease.example.com", nil)
	h := NewNotificationsHandler(recommend.NewEngine(), composer, brokenMailer{}, time.Second, logger.Discard())

	rec := httptest.NewRecorder()
	h.Test(rec, httptest.NewRequest(http.MethodGet, "/api/notifications/test", nil))
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	resp := decode[utils.ErrorResponse](t, rec)
	assert.Equal(t, "Test email failed", resp.Error)
	assert.Contains(t, resp.Details, "connection refused")
}

func TestRecover(t *testing.T) {
	h := NewRecoveryHandler(newSearcher(), logger.Discard())
	h.now = fixedClock

	rec := httptest.NewRecorder()
	h.Recover(rec, jsonRequest(t, http.MethodPost, "/api/missed-flight/recovery", models.RecoveryRequest{
		FlightNumber: "rj111", From: "AMM", To: "LHR", Reason: "weather",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	plan := decode[models.RecoveryPlan](t, rec)
	assert.True(t, plan.Success)
	assert.Equal(t, "RJ111", plan.OriginalFlight.FlightNumber)
	assert.LessOrEqual(t, len(plan.Options), 6)
	assert.NotEmpty(t, plan.EmergencyContacts.Airline)
	assert.Len(t, plan.Recommendations, 6)

	rec = httptest.NewRecorder()
	h.Recover(rec, jsonRequest(t, http.MethodPost, "/api/missed-flight/recovery", models.RecoveryRequest{From: "AMM", To: "LHR"}))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func multipartUpload(t *testing.T, field, filename string, content []byte) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	if field != "" {
		fw, err := mw.CreateFormFile(field, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	} else {
		require.NoError(t, mw.WriteField("note", "no file"))
	}
	require.NoError(t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/ocr/boarding-pass", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	return req
}

func TestBoardingPassOCR(t *testing.T) {
	h := NewOCRHandler(logger.Discard())
	image := []byte("\x89PNG fake boarding pass image bytes")

	rec := httptest.NewRecorder()
	h.BoardingPass(rec, multipartUpload(t, "boardingPass", "pass.png", image))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[models.BoardingPassResponse](t, rec)
	assert.True(t, resp.Success)
	assert.Equal(t, "pass.png", resp.FileName)
	assert.Equal(t, int64(len(image)), resp.FileSize)
	assert.Equal(t, "Mock OCR (Demo)", resp.OCREngine)
	assert.NotEmpty(t, resp.Extracted.FlightNumber)
	assert.Positive(t, resp.Extracted.Confidence)

	// Same upload, same extraction.
	rec = httptest.NewRecorder()
	h.BoardingPass(rec, multipartUpload(t, "boardingPass", "again.png", image))
	assert.Equal(t, resp.Extracted, decode[models.BoardingPassResponse](t, rec).Extracted)
}

func TestBoardingPassOCRRejectsMissingFile(t *testing.T) {
	h := NewOCRHandler(logger.Discard())

	tests := []struct {
		name string
		req  *http.Request
	}{
		{"no file field", multipartUpload(t, "", "", nil)},
		{"wrong field", multipartUpload(t, "image", "pass.png", []byte("data"))},
		{"empty file", multipartUpload(t, "boardingPass", "pass.png", nil)},
		{"not multipart", jsonRequest(t, http.MethodPost, "/api/ocr/boarding-pass", `{}`)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.BoardingPass(rec, tt.req)
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Equal(t, "No boarding pass image provided", decode[utils.ErrorResponse](t, rec).Error)
		})
	}
}

func TestExtractBoardingPassCoversSamples(t *testing.T) {
	seen := map[string]bool{}
	for i := 0; i < 64; i++ {
		bp, err := ExtractBoardingPass([]byte(fmt.Sprintf("image-%d", i)))
		require.NoError(t, err)
		seen[bp.FlightNumber] = true
	}
	assert.Len(t, seen, 3)
}

func TestSetupAutoPurchase(t *testing.T) {
	h := NewPaymentsHandler(logger.Discard())

	rec := httptest.NewRecorder()
	h.SetupAutoPurchase(rec, jsonRequest(t, http.MethodPost, "/api/stripe/setup-auto-purchase", map[string]interface{}{
		"paymentDetails":       map[string]string{"cardNumber": "4242 4242 4242 4242", "cardholderName": "Sarah Johnson", "email": "sarah@example.com"},
		"autoPurchaseSettings": map[string]interface{}{"enabled": true, "maxPrice": 450},
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	resp := decode[models.SetupAutoPurchaseResponse](t, rec)
	assert.True(t, resp.Success)
	assert.True(t, strings.HasPrefix(resp.Stripe.CustomerID, "cus_"))
	assert.True(t, strings.HasPrefix(resp.Stripe.PaymentMethodID, "pm_"))
	assert.Equal(t, "4242", resp.Stripe.CardLast4)
	assert.True(t, resp.Stripe.SetupComplete)
	assert.Equal(t, 450.0, resp.Settings.MaxPrice)
	assert.NotContains(t, rec.Body.String(), "4242 4242")
}

func TestSetupAutoPurchaseValidation(t *testing.T) {
	h := NewPaymentsHandler(logger.Discard())
	settings := map[string]interface{}{"enabled": true}

	tests := []struct {
		name  string
		body  map[string]interface{}
		field string
	}{
		{"missing details", map[string]interface{}{"autoPurchaseSettings": settings}, "paymentDetails"},
		{"short card", map[string]interface{}{"paymentDetails": map[string]string{"cardNumber": "4242", "cardholderName": "A", "email": "a@example.com"}, "autoPurchaseSettings": settings}, "cardNumber"},
		{"letters in card", map[string]interface{}{"paymentDetails": map[string]string{"cardNumber": "4242abcd42424242", "cardholderName": "A", "email": "a@example.com"}, "autoPurchaseSettings": settings}, "cardNumber"},
		{"missing name", map[string]interface{}{"paymentDetails": map[string]string{"cardNumber": "4242424242424242", "email": "a@example.com"}, "autoPurchaseSettings": settings}, "cardholderName"},
		{"bad email", map[string]interface{}{"paymentDetails": map[string]string{"cardNumber": "4242424242424242", "cardholderName": "A", "email": "nope"}, "autoPurchaseSettings": settings}, "email"},
		{"missing settings", map[string]interface{}{"paymentDetails": map[string]string{"cardNumber": "4242424242424242", "cardholderName": "A", "email": "a@example.com"}}, "autoPurchaseSettings"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			h.SetupAutoPurchase(rec, jsonRequest(t, http.MethodPost, "/api/stripe/setup-auto-purchase", tt.body))
			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, decode[utils.ErrorResponse](t, rec).Details, tt.field)
		})
	}
}

func TestTestPurchase(t *testing.T) {
	h := NewPaymentsHandler(logger.Discard())

	rec := httptest.NewRecorder()
	h.TestPurchase(rec, jsonRequest(t, http.MethodPost, "/api/stripe/test-purchase", models.TestPurchaseRequest{
		FlightID: "QR456_2026-12-20_0", Amount: 44500, Currency: "usd",
	}))
	require.Equal(t, http.StatusOK, rec.Code)

	resp := decode[models.TestPurchaseResponse](t, rec)
	assert.True(t, resp.Success)
	assert.True(t, resp.TestMode)
	assert.Equal(t, 445.0, resp.Amount)
	assert.Equal(t, "USD", resp.Currency)
	assert.True(t, strings.HasPrefix(resp.TransactionID, "pi_test_"))
	assert.True(t, strings.HasPrefix(resp.ChargeID, "ch_test_"))
	assert.True(t, strings.HasPrefix(resp.ReceiptURL, "https://pay.stripe.com/receipts/test_receipt_"))

	for _, bad := range []models.TestPurchaseRequest{
		{Amount: 100, Currency: "usd"},
		{FlightID: "x", Amount: 0, Currency: "usd"},
		{FlightID: "x", Amount: 100, Currency: "dollars"},
	} {
		rec := httptest.NewRecorder()
		h.TestPurchase(rec, jsonRequest(t, http.MethodPost, "/api/stripe/test-purchase", bad))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	}
}

func TestHealth(t *testing.T) {
	cfg := &config.Config{Environment: "development", StoreDriver: "sqlite", SQLitePath: ":memory:", MonitorEnabled: true, MonitorSchedule: "@every 30m", MonitorTimezone: "UTC"}
	h := NewHealthHandler(cfg, dbtest.NewTestStore(t), false)

	rec := httptest.NewRecorder()
	h.Health(rec, httptest.NewRequest(http.MethodGet, "/api/", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	var resp map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	assert.Equal(t, "Airease API is running!", resp["message"])
	assert.Equal(t, "2.0", resp["version"])
	assert.Equal(t, "simulated", resp["emailMode"])
	storage := resp["storage"].(map[string]interface{})
	assert.Equal(t, "healthy", storage["status"])
	mon := resp["monitor"].(map[string]interface{})
	assert.Equal(t, "@every 30m", mon["schedule"])
}
