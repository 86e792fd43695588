package handlers

import (
	"log/slog"
	"net/http"
	"time"

	"airease-backend/pkg/flights"
	"airease-backend/pkg/models"
	"airease-backend/pkg/utils"
)

type RecoveryHandler struct {
	searcher *flights.Searcher
	logger   *slog.Logger
	now      func() time.Time
}

func NewRecoveryHandler(searcher *flights.Searcher, logger *slog.Logger) *RecoveryHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &RecoveryHandler{searcher: searcher, logger: logger, now: time.Now}
}

// POST /api/missed-flight/recovery
func (h *RecoveryHandler) Recover(w http.ResponseWriter, r *http.Request) {
	var req models.RecoveryRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}

	plan, err := h.searcher.Recover(r.Context(), req, h.now())
	if err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}

	h.logger.Info("missed flight recovery", "flight", plan.OriginalFlight.FlightNumber, "options", len(plan.Options))
	utils.WriteSuccessResponse(w, plan)
}
