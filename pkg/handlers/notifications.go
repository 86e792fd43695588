package handlers

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"airease-backend/pkg/models"
	"airease-backend/pkg/notify"
	"airease-backend/pkg/utils"
)

// AlertComposer 组装提醒邮件
type AlertComposer interface {
	Compose(w models.Watch, q models.Quote, rec models.Recommendation) (models.Notification, error)
}

type NotificationsHandler struct {
	recommender Recommender
	composer    AlertComposer
	mailer      notify.Mailer
	mailTimeout time.Duration
	logger      *slog.Logger
	now         func() time.Time
}

func NewNotificationsHandler(recommender Recommender, composer AlertComposer, mailer notify.Mailer, mailTimeout time.Duration, logger *slog.Logger) *NotificationsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	if mailTimeout <= 0 {
		mailTimeout = 20 * time.Second
	}
	return &NotificationsHandler{
		recommender: recommender,
		composer:    composer,
		mailer:      mailer,
		mailTimeout: mailTimeout,
		logger:      logger,
		now:         time.Now,
	}
}

// sampleAlert 测试邮件使用的示例提醒和报价
func sampleAlert(now time.Time) (models.Watch, models.Quote) {
	departDate := now.AddDate(0, 0, 30).Format("2006-01-02")
	watch := models.Watch{
		ID:          "sample-watch",
		From:        "AMM",
		To:          "LHR",
		DepartDate:  departDate,
		TargetPrice: 500,
		Email:       "user@airease.com",
		Active:      true,
		CreatedAt:   now.UTC(),
	}
	quote := models.Quote{
		ID:            "QR123_" + departDate + "_0",
		From:          "AMM",
		To:            "LHR",
		Airline:       "Qatar Airways",
		AirlineCode:   "QR",
		FlightNumber:  "QR123",
		DepartureTime: "14:30",
		Price:         445,
		LastUpdated:   now.UTC(),
	}
	return watch, quote
}

// GET /api/notifications/test
func (h *NotificationsHandler) Test(w http.ResponseWriter, r *http.Request) {
	watch, quote := sampleAlert(h.now())

	rec, err := h.recommender.Recommend(r.Context(), models.FlightInfoFromQuote(quote, watch.DepartDate), models.Preferences{})
	if err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}

	n, err := h.composer.Compose(watch, quote, rec)
	if err != nil {
		h.logger.Error("compose test alert failed", "error", err)
		utils.WriteInternalServerErrorResponse(w, "Test email failed", err.Error())
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), h.mailTimeout)
	defer cancel()
	if err := h.mailer.Send(ctx, n); err != nil {
		h.logger.Error("send test alert failed", "error", err)
		utils.WriteInternalServerErrorResponse(w, "Test email failed", err.Error())
		return
	}

	utils.WriteSuccessResponse(w, map[string]interface{}{
		"success":         true,
		"message":         "AI-enhanced test email sent",
		"notification":    n,
		"recommendations": rec,
		"timestamp":       h.now().UTC(),
	})
}
