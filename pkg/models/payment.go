package models

import (
	"time"
)

// PaymentDetails is the card data submitted for auto-purchase setup
type PaymentDetails struct {
	CardNumber     string `json:"cardNumber"`
	CardholderName string `json:"cardholderName"`
	Email          string `json:"email"`
	ExpiryDate     string `json:"expiryDate,omitempty"`
}

// AutoPurchaseSettings describes when a matched fare may be bought automatically
type AutoPurchaseSettings struct {
	Enabled        bool    `json:"enabled"`
	MaxPrice       float64 `json:"maxPrice,omitempty"`
	PreferredClass string  `json:"preferredClass,omitempty"`
	Route          string  `json:"route,omitempty"`
}

// SetupAutoPurchaseRequest represents the request payload for auto-purchase setup
type SetupAutoPurchaseRequest struct {
	PaymentDetails       *PaymentDetails       `json:"paymentDetails"`
	AutoPurchaseSettings *AutoPurchaseSettings `json:"autoPurchaseSettings"`
}

// StripeSetup is the mocked payment-provider acknowledgement
type StripeSetup struct {
	CustomerID      string `json:"customerId"`
	PaymentMethodID string `json:"paymentMethodId"`
	SetupIntentID   string `json:"setupIntentId"`
	CardLast4       string `json:"cardLast4"`
	SetupComplete   bool   `json:"setupComplete"`
}

// SetupAutoPurchaseResponse represents the response payload for auto-purchase setup
type SetupAutoPurchaseResponse struct {
	Success   bool                 `json:"success"`
	Message   string               `json:"message"`
	Stripe    StripeSetup          `json:"stripe"`
	Settings  AutoPurchaseSettings `json:"settings"`
	Timestamp time.Time            `json:"timestamp"`
}

// TestPurchaseRequest represents the request payload for a test charge
type TestPurchaseRequest struct {
	FlightID string `json:"flightId"`
	Amount   int64  `json:"amount"` // cents
	Currency string `json:"currency"`
}

// TestPurchaseResponse represents the response payload for a test charge
type TestPurchaseResponse struct {
	Success       bool      `json:"success"`
	Message       string    `json:"message"`
	TransactionID string    `json:"transactionId"`
	ChargeID      string    `json:"chargeId"`
	ReceiptURL    string    `json:"receiptUrl"`
	Amount        float64   `json:"amount"`
	Currency      string    `json:"currency"`
	FlightID      string    `json:"flightId"`
	TestMode      bool      `json:"testMode"`
	Timestamp     time.Time `json:"timestamp"`
}
