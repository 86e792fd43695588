package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"airease-backend/pkg/flights"
	"airease-backend/pkg/models"
	"airease-backend/pkg/monitor"
	"airease-backend/pkg/notify"
	"airease-backend/pkg/utils"

	"github.com/google/uuid"
)

// PassRunner 执行一轮价格检查
type PassRunner interface {
	RunPass(ctx context.Context) (models.MonitorSummary, error)
}

// Recommender 生成出行建议
type Recommender interface {
	Recommend(ctx context.Context, info models.FlightInfo, prefs models.Preferences) (models.Recommendation, error)
}

type FlightsHandler struct {
	searcher    *flights.Searcher
	recommender Recommender
	monitor     PassRunner
	logger      *slog.Logger
	now         func() time.Time
}

func NewFlightsHandler(searcher *flights.Searcher, recommender Recommender, monitor PassRunner, logger *slog.Logger) *FlightsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &FlightsHandler{searcher: searcher, recommender: recommender, monitor: monitor, logger: logger, now: time.Now}
}

// POST /api/flights/search
func (h *FlightsHandler) Search(w http.ResponseWriter, r *http.Request) {
	var req models.SearchRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}
	req, err := flights.NormalizeSearch(req)
	if err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}

	results, err := h.searcher.Search(r.Context(), req)
	if err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}

	resp := models.SearchResponse{
		Success:      true,
		Flights:      results,
		SearchParams: req,
		TotalResults: len(results),
		SearchID:     uuid.NewString(),
		Currency:     "USD",
		Timestamp:    h.now().UTC(),
	}
	if len(results) == 1 && results[0].AboveMaxPrice {
		resp.Notice = fmt.Sprintf("No flights found under $%s; showing the cheapest available option", notify.FormatAmount(req.MaxPrice))
	}

	h.logger.Info("flight search", "route", req.From+" → "+req.To, "date", req.DepartDate, "results", len(results))
	utils.WriteSuccessResponse(w, resp)
}

type recommendationResponse struct {
	Success bool `json:"success"`
	models.Recommendation
	FlightInfo models.FlightInfo `json:"flightInfo"`
	Timestamp  time.Time         `json:"timestamp"`
}

// POST /api/flights/ai-recommendations
func (h *FlightsHandler) AIRecommendations(w http.ResponseWriter, r *http.Request) {
	var req models.RecommendationRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}
	if req.FlightData == nil {
		utils.WriteErrorFromErr(w, utils.NewValidationError("flightData", "is required"))
		return
	}

	info := *req.FlightData
	info.From = strings.ToUpper(strings.TrimSpace(info.From))
	info.To = strings.ToUpper(strings.TrimSpace(info.To))
	switch {
	case info.From == "":
		utils.WriteErrorFromErr(w, utils.NewValidationError("flightData.from", "is required"))
		return
	case info.To == "":
		utils.WriteErrorFromErr(w, utils.NewValidationError("flightData.to", "is required"))
		return
	}

	var prefs models.Preferences
	if req.Preferences != nil {
		prefs = *req.Preferences
	}

	rec, err := h.recommender.Recommend(r.Context(), info, prefs)
	if err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}

	utils.WriteSuccessResponse(w, recommendationResponse{
		Success:        true,
		Recommendation: rec,
		FlightInfo:     info,
		Timestamp:      h.now().UTC(),
	})
}

type checkPricesResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Error   string `json:"error,omitempty"`
	models.MonitorSummary
}

// GET /api/flights/check-prices
func (h *FlightsHandler) CheckPrices(w http.ResponseWriter, r *http.Request) {
	summary, err := h.monitor.RunPass(r.Context())
	if err != nil {
		if errors.Is(err, monitor.ErrPassAborted) {
			// 存储不可用时降级为空结果
			if summary.Timestamp.IsZero() {
				summary.Timestamp = h.now().UTC()
			}
			utils.WriteSuccessResponse(w, checkPricesResponse{
				Success:        false,
				Error:          "Price monitoring unavailable: " + err.Error(),
				MonitorSummary: summary,
			})
			return
		}
		h.logger.Error("price check failed", "error", err)
		utils.WriteErrorFromErr(w, err)
		return
	}

	utils.WriteSuccessResponse(w, checkPricesResponse{
		Success:        true,
		Message:        "Price check completed",
		MonitorSummary: summary,
	})
}
