package handlers

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"airease-backend/pkg/database"
	"airease-backend/pkg/flights"
	"airease-backend/pkg/models"
	"airease-backend/pkg/utils"

	"github.com/emersion/go-message/mail"
	chiRoute "github.com/go-chi/chi/v5"
	"github.com/google/uuid"
)

// TokenIssuer 签发提醒管理令牌
type TokenIssuer interface {
	Generate(watchID, email string) (string, error)
}

type WatchlistHandler struct {
	store  database.WatchStore
	tokens TokenIssuer
	logger *slog.Logger
	now    func() time.Time
}

func NewWatchlistHandler(store database.WatchStore, tokens TokenIssuer, logger *slog.Logger) *WatchlistHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &WatchlistHandler{store: store, tokens: tokens, logger: logger, now: time.Now}
}

// GET /api/watchlist
func (h *WatchlistHandler) List(w http.ResponseWriter, r *http.Request) {
	watches, err := h.store.List(r.Context())
	if err != nil {
		h.logger.Warn("watchlist fetch failed", "error", err)
		utils.WriteSuccessResponse(w, map[string]interface{}{
			"watchlists": []models.Watch{},
			"count":      0,
			"error":      "Database unavailable - using mock mode",
		})
		return
	}
	if watches == nil {
		watches = []models.Watch{}
	}
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"watchlists": watches,
		"count":      len(watches),
	})
}

// validateWatch 校验并规范化创建请求
func validateWatch(req models.CreateWatchRequest) (models.CreateWatchRequest, error) {
	req.From = strings.ToUpper(strings.TrimSpace(req.From))
	req.To = strings.ToUpper(strings.TrimSpace(req.To))
	req.DepartDate = strings.TrimSpace(req.DepartDate)
	req.Email = strings.TrimSpace(req.Email)

	if err := flights.ValidateRoute(req.From, req.To, req.DepartDate); err != nil {
		return req, err
	}
	if req.TargetPrice <= 0 {
		return req, utils.NewValidationError("targetPrice", "must be greater than 0")
	}
	if req.Email == "" {
		return req, utils.NewValidationError("email", "is required")
	}
	addr, err := mail.ParseAddress(req.Email)
	if err != nil {
		return req, utils.NewValidationError("email", "must be a valid email address")
	}
	req.Email = addr.Address
	return req, nil
}

// POST /api/watchlist
func (h *WatchlistHandler) Create(w http.ResponseWriter, r *http.Request) {
	var req models.CreateWatchRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}
	req, err := validateWatch(req)
	if err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}

	watch := models.Watch{
		ID:          uuid.NewString(),
		From:        req.From,
		To:          req.To,
		DepartDate:  req.DepartDate,
		TargetPrice: req.TargetPrice,
		Email:       req.Email,
		Active:      true,
		CreatedAt:   h.now().UTC(),
	}

	if err := h.store.Insert(r.Context(), &watch); err != nil {
		// 存储不可用时返回未持久化的模拟提醒
		h.logger.Warn("watch not persisted, using mock mode", "error", err, "route", watch.Route().String())
		watch.MockMode = true
		utils.WriteSuccessResponse(w, models.CreateWatchResponse{
			Success: true,
			Watch:   watch,
			Message: "Price watch created (mock mode)! Database unavailable.",
		})
		return
	}

	token, err := h.tokens.Generate(watch.ID, watch.Email)
	if err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}

	h.logger.Info("watch created", "watch_id", watch.ID, "route", watch.Route().String(), "target_price", watch.TargetPrice)
	utils.WriteCreatedResponse(w, models.CreateWatchResponse{
		Success:     true,
		Watch:       watch,
		ManageToken: token,
		Message:     "Price watch created! You'll receive smart notifications with travel recommendations.",
	})
}

// PUT /api/watchlist/{id}
func (h *WatchlistHandler) Update(w http.ResponseWriter, r *http.Request) {
	id := chiRoute.URLParam(r, "id")

	var req models.UpdateWatchRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}
	if req.Active == nil {
		utils.WriteErrorFromErr(w, utils.NewValidationError("active", "is required"))
		return
	}

	if err := h.store.SetActive(r.Context(), id, *req.Active); err != nil {
		h.writeStoreError(w, err)
		return
	}
	watch, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"success": true,
		"watch":   watch,
	})
}

// DELETE /api/watchlist/{id}
func (h *WatchlistHandler) Delete(w http.ResponseWriter, r *http.Request) {
	id := chiRoute.URLParam(r, "id")
	if err := h.store.Delete(r.Context(), id); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.logger.Info("watch deleted", "watch_id", id)
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"success": true,
		"message": "Price watch deleted",
	})
}

// GET /api/watchlist/{id}/unsubscribe?token=
func (h *WatchlistHandler) Unsubscribe(w http.ResponseWriter, r *http.Request) {
	id := chiRoute.URLParam(r, "id")
	watch, err := h.store.Get(r.Context(), id)
	if err != nil {
		h.writeStoreError(w, err)
		return
	}
	if err := h.store.SetActive(r.Context(), id, false); err != nil {
		h.writeStoreError(w, err)
		return
	}
	h.logger.Info("watch unsubscribed", "watch_id", id)
	utils.WriteSuccessResponse(w, map[string]interface{}{
		"success": true,
		"message": "You will no longer receive price alerts for " + watch.Route().String(),
	})
}

// writeStoreError 未找到返回404，存储不可用返回503
func (h *WatchlistHandler) writeStoreError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, database.ErrNotFound):
		utils.WriteNotFoundResponse(w, "Price watch not found")
	case errors.Is(err, database.ErrUnavailable):
		h.logger.Warn("watch store unavailable", "error", err)
		utils.WriteErrorResponse(w, http.StatusServiceUnavailable, "Database unavailable", "try again later")
	default:
		h.logger.Error("watch store error", "error", err)
		utils.WriteErrorFromErr(w, err)
	}
}
