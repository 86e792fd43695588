package models

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Watch represents a persisted price watch on a single route
type Watch struct {
	ID                string     `json:"id" db:"id" bson:"id"`
	From              string     `json:"from" db:"from_code" bson:"from"`
	To                string     `json:"to" db:"to_code" bson:"to"`
	DepartDate        string     `json:"departDate" db:"depart_date" bson:"departDate"`
	TargetPrice       float64    `json:"targetPrice" db:"target_price" bson:"targetPrice"`
	Email             string     `json:"email" db:"email" bson:"email"`
	Active            bool       `json:"active" db:"active" bson:"active"`
	CreatedAt         time.Time  `json:"createdAt" db:"created_at" bson:"createdAt"`
	LastCheck         *time.Time `json:"lastCheck" db:"last_check" bson:"lastCheck,omitempty"`
	LastMatch         *time.Time `json:"lastMatch" db:"last_match" bson:"lastMatch,omitempty"`
	MatchedPrice      *int       `json:"matchedPrice" db:"matched_price" bson:"matchedPrice,omitempty"`
	LastNotification  *time.Time `json:"lastNotification,omitempty" db:"last_notification" bson:"lastNotification,omitempty"`
	NotificationCount int        `json:"notificationCount" db:"notification_count" bson:"notificationCount"`
	DispatchFailures  int        `json:"dispatchFailures" db:"dispatch_failures" bson:"dispatchFailures"`

	// MockMode marks a watch that could not be persisted. Never stored.
	MockMode bool `json:"mockMode,omitempty" db:"-" bson:"-"`
}

// Route returns the watch's route
func (w Watch) Route() Route {
	return Route{From: w.From, To: w.To, DepartDate: w.DepartDate}
}

// CreateWatchRequest represents the request payload for creating a watch
type CreateWatchRequest struct {
	From        string  `json:"from"`
	To          string  `json:"to"`
	DepartDate  string  `json:"departDate"`
	TargetPrice float64 `json:"targetPrice"`
	Email       string  `json:"email"`
}

// CreateWatchResponse represents the response payload for a created watch
type CreateWatchResponse struct {
	Success     bool   `json:"success"`
	Watch       Watch  `json:"watch"`
	ManageToken string `json:"manageToken,omitempty"`
	Message     string `json:"message"`
}

// UpdateWatchRequest represents the request payload for toggling a watch
type UpdateWatchRequest struct {
	Active *bool `json:"active"`
}

// Watch token scopes. A manage token may do anything an unsubscribe token can.
const (
	ScopeManage      = "manage"
	ScopeUnsubscribe = "unsubscribe"
)

// WatchTokenClaims represents the claims of a watch token.
// Tokens carry no timestamps so the same watch always yields the same token.
type WatchTokenClaims struct {
	WatchID string `json:"wid"`
	Email   string `json:"email"`
	Scope   string `json:"scope"`
	Issuer  string `json:"iss"`
}

// Allows reports whether the token grants the given scope.
func (c *WatchTokenClaims) Allows(scope string) bool {
	return c.Scope == scope || c.Scope == ScopeManage
}

// GetExpirationTime implements jwt.Claims interface
func (c *WatchTokenClaims) GetExpirationTime() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuedAt implements jwt.Claims interface
func (c *WatchTokenClaims) GetIssuedAt() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetNotBefore implements jwt.Claims interface
func (c *WatchTokenClaims) GetNotBefore() (*jwt.NumericDate, error) {
	return nil, nil
}

// GetIssuer implements jwt.Claims interface
func (c *WatchTokenClaims) GetIssuer() (string, error) {
	return c.Issuer, nil
}

// GetSubject implements jwt.Claims interface
func (c *WatchTokenClaims) GetSubject() (string, error) {
	return c.WatchID, nil
}

// GetAudience implements jwt.Claims interface
func (c *WatchTokenClaims) GetAudience() (jwt.ClaimStrings, error) {
	return nil, nil
}
