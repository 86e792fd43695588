package handlers

import (
	"context"
	"net/http"
	"time"

	"airease-backend/pkg/config"
	"airease-backend/pkg/database"
	"airease-backend/pkg/utils"
)

// APIVersion 接口版本
const APIVersion = "2.0"

type HealthHandler struct {
	config    *config.Config
	store     database.WatchStore
	aiEnabled bool
	now       func() time.Time
}

func NewHealthHandler(cfg *config.Config, store database.WatchStore, aiEnabled bool) *HealthHandler {
	return &HealthHandler{config: cfg, store: store, aiEnabled: aiEnabled, now: time.Now}
}

// storeStats 由 database.Manager 实现
type storeStats interface {
	Stats() database.ManagerStats
}

// GET /api/
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 3*time.Second)
	defer cancel()

	storage := map[string]interface{}{
		"driver": h.config.StoreDriver,
		"target": h.config.StoreTarget(),
		"status": "healthy",
	}
	if err := h.store.Ping(ctx); err != nil {
		storage["status"] = "unavailable"
		storage["error"] = err.Error()
	}
	if s, ok := h.store.(storeStats); ok {
		storage["connection"] = s.Stats()
	}

	monitor := map[string]interface{}{"enabled": h.config.MonitorEnabled}
	if h.config.MonitorEnabled {
		monitor["schedule"] = h.config.MonitorSchedule
		monitor["timezone"] = h.config.MonitorTimezone
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"message":     "Airease API is running!",
		"version":     APIVersion,
		"status":      "healthy",
		"environment": h.config.Environment,
		"features":    []string{"Flight Search", "AI Recommendations", "Price Monitoring", "Email Alerts", "Missed Flight Recovery"},
		"geminiAI":    h.aiEnabled,
		"emailMode":   emailMode(h.config),
		"storage":     storage,
		"monitor":     monitor,
		"timestamp":   h.now().UTC(),
	})
}

func emailMode(cfg *config.Config) string {
	if cfg.SMTPConfigured() {
		return "smtp"
	}
	return "simulated"
}
