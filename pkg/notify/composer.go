package notify

import (
	"bytes"
	"embed"
	"fmt"
	htmltemplate "html/template"
	"net/url"
	"strconv"
	"strings"
	texttemplate "text/template"

	"airease-backend/pkg/models"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

var (
	textTemplate = texttemplate.Must(texttemplate.ParseFS(templateFS, "templates/alert.txt.tmpl"))
	htmlTemplate = htmltemplate.Must(htmltemplate.ParseFS(templateFS, "templates/alert.html.tmpl"))
)

// TokenSigner signs the unsubscribe-only token embedded in alert emails.
type TokenSigner interface {
	GenerateUnsubscribe(watchID, email string) (string, error)
}

// Composer turns a matched watch into an alert email. It performs no I/O
// and yields identical output for identical input.
type Composer struct {
	BaseURL string
	Tokens  TokenSigner
}

// NewComposer creates a composer linking to baseURL.
func NewComposer(baseURL string, tokens TokenSigner) *Composer {
	return &Composer{BaseURL: strings.TrimRight(baseURL, "/"), Tokens: tokens}
}

type alertData struct {
	Watch          models.Watch
	Quote          models.Quote
	Rec            models.Recommendation
	Route          string
	Target         string
	Savings        string
	BookURL        string
	WatchlistURL   string
	UnsubscribeURL string
}

// Subject formats the alert subject line.
func Subject(from, to string, price int) string {
	return fmt.Sprintf("✈️ Price Alert: %s → %s now $%d!", from, to, price)
}

// Savings returns targetPrice - price, clamped at zero.
func Savings(targetPrice float64, price int) float64 {
	return max(0, targetPrice-float64(price))
}

// FormatAmount prints a dollar amount without a trailing ".00".
func FormatAmount(v float64) string {
	s := strconv.FormatFloat(v, 'f', 2, 64)
	return strings.TrimSuffix(s, ".00")
}

// Compose builds the notification for a watch whose target was hit.
func (c *Composer) Compose(w models.Watch, q models.Quote, rec models.Recommendation) (models.Notification, error) {
	route := w.Route().String()
	savings := Savings(w.TargetPrice, q.Price)

	unsubscribe, err := c.unsubscribeURL(w)
	if err != nil {
		return models.Notification{}, err
	}

	data := alertData{
		Watch:          w,
		Quote:          q,
		Rec:            rec,
		Route:          route,
		Target:         FormatAmount(w.TargetPrice),
		Savings:        FormatAmount(savings),
		BookURL:        c.BaseURL + "/book/" + url.PathEscape(q.ID),
		WatchlistURL:   c.BaseURL + "/watchlist",
		UnsubscribeURL: unsubscribe,
	}

	var text, html bytes.Buffer
	if err := textTemplate.Execute(&text, data); err != nil {
		return models.Notification{}, fmt.Errorf("render text alert: %w", err)
	}
	if err := htmlTemplate.Execute(&html, data); err != nil {
		return models.Notification{}, fmt.Errorf("render html alert: %w", err)
	}

	return models.Notification{
		To:       w.Email,
		Subject:  Subject(w.From, w.To, q.Price),
		TextBody: text.String(),
		HTMLBody: html.String(),
		Metadata: models.NotificationMetadata{
			WatchID:     w.ID,
			Route:       route,
			Price:       q.Price,
			TargetPrice: w.TargetPrice,
			Savings:     savings,
			AIGenerated: rec.AIGenerated,
		},
	}, nil
}

func (c *Composer) unsubscribeURL(w models.Watch) (string, error) {
	link := c.BaseURL + "/api/watchlist/" + url.PathEscape(w.ID) + "/unsubscribe"
	if c.Tokens == nil {
		return link, nil
	}
	token, err := c.Tokens.GenerateUnsubscribe(w.ID, w.Email)
	if err != nil {
		return "", fmt.Errorf("sign unsubscribe token: %w", err)
	}
	return link + "?token=" + url.QueryEscape(token), nil
}
