package handlers

import (
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"airease-backend/pkg/models"
	"airease-backend/pkg/utils"

	"github.com/emersion/go-message/mail"
)

var currencyCode = regexp.MustCompile(`^[A-Za-z]{3}$`)

// PaymentsHandler 模拟 Stripe 自动购票接口，不发起任何真实扣款
type PaymentsHandler struct {
	logger *slog.Logger
	now    func() time.Time
}

func NewPaymentsHandler(logger *slog.Logger) *PaymentsHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &PaymentsHandler{logger: logger, now: time.Now}
}

// cardDigits 去掉空格和连字符后的卡号
func cardDigits(number string) string {
	return strings.NewReplacer(" ", "", "-", "").Replace(number)
}

func validatePaymentDetails(p *models.PaymentDetails) error {
	if p == nil {
		return utils.NewValidationError("paymentDetails", "is required")
	}
	digits := cardDigits(p.CardNumber)
	if digits == "" {
		return utils.NewValidationError("paymentDetails.cardNumber", "is required")
	}
	if len(digits) < 12 || len(digits) > 19 || strings.Trim(digits, "0123456789") != "" {
		return utils.NewValidationError("paymentDetails.cardNumber", "must be 12-19 digits")
	}
	if strings.TrimSpace(p.CardholderName) == "" {
		return utils.NewValidationError("paymentDetails.cardholderName", "is required")
	}
	if strings.TrimSpace(p.Email) == "" {
		return utils.NewValidationError("paymentDetails.email", "is required")
	}
	if _, err := mail.ParseAddress(p.Email); err != nil {
		return utils.NewValidationError("paymentDetails.email", "must be a valid email address")
	}
	return nil
}

// POST /api/stripe/setup-auto-purchase
func (h *PaymentsHandler) SetupAutoPurchase(w http.ResponseWriter, r *http.Request) {
	var req models.SetupAutoPurchaseRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}
	if err := validatePaymentDetails(req.PaymentDetails); err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}
	if req.AutoPurchaseSettings == nil {
		utils.WriteErrorFromErr(w, utils.NewValidationError("autoPurchaseSettings", "is required"))
		return
	}
	if req.AutoPurchaseSettings.MaxPrice < 0 {
		utils.WriteErrorFromErr(w, utils.NewValidationError("autoPurchaseSettings.maxPrice", "must not be negative"))
		return
	}

	customerID, err := utils.GenerateID("cus_mock_", 14)
	if err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}
	paymentMethodID, err := utils.GenerateID("pm_mock_", 14)
	if err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}
	setupIntentID, err := utils.GenerateID("seti_mock_", 14)
	if err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}

	digits := cardDigits(req.PaymentDetails.CardNumber)
	last4 := digits[len(digits)-4:]

	h.logger.Info("auto-purchase setup simulated",
		"card", "**** **** **** "+last4,
		"email", req.PaymentDetails.Email,
		"customer_id", customerID,
	)
	utils.WriteSuccessResponse(w, models.SetupAutoPurchaseResponse{
		Success: true,
		Message: "Auto-purchase setup completed successfully",
		Stripe: models.StripeSetup{
			CustomerID:      customerID,
			PaymentMethodID: paymentMethodID,
			SetupIntentID:   setupIntentID,
			CardLast4:       last4,
			SetupComplete:   true,
		},
		Settings:  *req.AutoPurchaseSettings,
		Timestamp: h.now().UTC(),
	})
}

// POST /api/stripe/test-purchase
func (h *PaymentsHandler) TestPurchase(w http.ResponseWriter, r *http.Request) {
	var req models.TestPurchaseRequest
	if err := utils.ParseJSONBody(r, &req); err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}
	req.FlightID = strings.TrimSpace(req.FlightID)
	switch {
	case req.FlightID == "":
		utils.WriteErrorFromErr(w, utils.NewValidationError("flightId", "is required"))
		return
	case req.Amount <= 0:
		utils.WriteErrorFromErr(w, utils.NewValidationError("amount", "must be a positive number of cents"))
		return
	case !currencyCode.MatchString(req.Currency):
		utils.WriteErrorFromErr(w, utils.NewValidationError("currency", "must be a 3-letter currency code"))
		return
	}

	intentID, err := utils.GenerateID("pi_test_", 16)
	if err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}
	chargeID, err := utils.GenerateID("ch_test_", 16)
	if err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}
	receipt, err := utils.GenerateURLToken(12)
	if err != nil {
		utils.WriteErrorFromErr(w, err)
		return
	}

	currency := strings.ToUpper(req.Currency)
	h.logger.Info("test purchase simulated", "flight_id", req.FlightID, "amount_cents", req.Amount, "currency", currency, "payment_intent", intentID)
	utils.WriteSuccessResponse(w, models.TestPurchaseResponse{
		Success:       true,
		Message:       "Test purchase completed successfully",
		TransactionID: intentID,
		ChargeID:      chargeID,
		ReceiptURL:    "https://pay.stripe.com/receipts/test_receipt_" + receipt,
		Amount:        float64(req.Amount) / 100,
		Currency:      currency,
		FlightID:      req.FlightID,
		TestMode:      true,
		Timestamp:     h.now().UTC(),
	})
}
