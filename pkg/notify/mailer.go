package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/smtp"
	"strconv"
	"sync"
	"time"

	"airease-backend/pkg/models"

	"github.com/emersion/go-message/mail"
)

// Mailer delivers a composed notification.
type Mailer interface {
	Send(ctx context.Context, n models.Notification) error
}

// SMTPMailer sends notifications over SMTP as multipart/alternative messages.
type SMTPMailer struct {
	Host     string
	Port     int
	Username string
	Password string
	Sender   string

	// TLSConfig overrides the STARTTLS configuration.
	TLSConfig *tls.Config
	now       func() time.Time
}

// NewSMTPMailer creates an SMTP mailer.
func NewSMTPMailer(host string, port int, username, password, sender string) *SMTPMailer {
	return &SMTPMailer{Host: host, Port: port, Username: username, Password: password, Sender: sender, now: time.Now}
}

// Send implements Mailer. The context bounds dialing and the whole SMTP
// conversation.
func (m *SMTPMailer) Send(ctx context.Context, n models.Notification) error {
	if m.Host == "" || m.Sender == "" {
		return errors.New("email not configured: set SMTP_HOST and SMTP_SENDER")
	}
	if n.To == "" {
		return errors.New("missing email recipient")
	}

	now := time.Now
	if m.now != nil {
		now = m.now
	}
	msg, err := BuildMessage(n, m.Sender, now())
	if err != nil {
		return err
	}

	addr := net.JoinHostPort(m.Host, strconv.Itoa(m.Port))
	var d net.Dialer
	conn, err := d.DialContext(ctx, "tcp", addr)
	if err != nil {
		return fmt.Errorf("dial smtp %s: %w", addr, err)
	}
	if deadline, ok := ctx.Deadline(); ok {
		conn.SetDeadline(deadline)
	}
	stop := context.AfterFunc(ctx, func() { conn.Close() })
	defer stop()

	c, err := smtp.NewClient(conn, m.Host)
	if err != nil {
		conn.Close()
		return fmt.Errorf("smtp handshake: %w", err)
	}
	defer c.Close()

	if ok, _ := c.Extension("STARTTLS"); ok {
		cfg := m.TLSConfig
		if cfg == nil {
			cfg = &tls.Config{ServerName: m.Host}
		}
		if err := c.StartTLS(cfg); err != nil {
			return fmt.Errorf("smtp starttls: %w", err)
		}
	}
	if m.Username != "" {
		if ok, _ := c.Extension("AUTH"); !ok {
			return errors.New("smtp: server doesn't support AUTH")
		}
		if err := c.Auth(smtp.PlainAuth("", m.Username, m.Password, m.Host)); err != nil {
			return fmt.Errorf("smtp auth: %w", err)
		}
	}

	if err := c.Mail(m.Sender); err != nil {
		return fmt.Errorf("smtp MAIL FROM: %w", err)
	}
	if err := c.Rcpt(n.To); err != nil {
		return fmt.Errorf("smtp RCPT TO: %w", err)
	}
	w, err := c.Data()
	if err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	if _, err := w.Write(msg); err != nil {
		return fmt.Errorf("write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("smtp DATA: %w", err)
	}
	return c.Quit()
}

// BuildMessage renders n as a MIME multipart/alternative message.
func BuildMessage(n models.Notification, sender string, date time.Time) ([]byte, error) {
	from, err := mail.ParseAddress(sender)
	if err != nil {
		return nil, fmt.Errorf("parse sender: %w", err)
	}
	to, err := mail.ParseAddress(n.To)
	if err != nil {
		return nil, fmt.Errorf("parse recipient: %w", err)
	}

	var h mail.Header
	h.SetDate(date)
	h.SetAddressList("From", []*mail.Address{from})
	h.SetAddressList("To", []*mail.Address{to})
	h.SetSubject(n.Subject)
	if err := h.GenerateMessageID(); err != nil {
		return nil, fmt.Errorf("generate message id: %w", err)
	}
	if n.Metadata.WatchID != "" {
		h.Set("X-Airease-Watch", n.Metadata.WatchID)
	}

	var buf bytes.Buffer
	iw, err := mail.CreateInlineWriter(&buf, h)
	if err != nil {
		return nil, fmt.Errorf("create message: %w", err)
	}
	if err := writePart(iw, "text/plain", n.TextBody); err != nil {
		return nil, err
	}
	if n.HTMLBody != "" {
		if err := writePart(iw, "text/html", n.HTMLBody); err != nil {
			return nil, err
		}
	}
	if err := iw.Close(); err != nil {
		return nil, fmt.Errorf("close message: %w", err)
	}
	return buf.Bytes(), nil
}

func writePart(iw *mail.InlineWriter, contentType, body string) error {
	var ph mail.InlineHeader
	ph.SetContentType(contentType, map[string]string{"charset": "utf-8"})
	ph.Set("Content-Transfer-Encoding", "quoted-printable")
	pw, err := iw.CreatePart(ph)
	if err != nil {
		return fmt.Errorf("create %s part: %w", contentType, err)
	}
	if _, err := io.WriteString(pw, body); err != nil {
		return fmt.Errorf("write %s part: %w", contentType, err)
	}
	return pw.Close()
}

// logMailerHistory 最多保留的最近通知数
const logMailerHistory = 100

// LogMailer logs notifications instead of sending them. Used when SMTP is
// not configured. Only the most recent logMailerHistory notifications are kept.
type LogMailer struct {
	logger *slog.Logger

	mu   sync.Mutex
	sent []models.Notification
}

// NewLogMailer creates a LogMailer.
func NewLogMailer(logger *slog.Logger) *LogMailer {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMailer{logger: logger}
}

// Send implements Mailer.
func (m *LogMailer) Send(ctx context.Context, n models.Notification) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	if len(m.sent) == logMailerHistory {
		copy(m.sent, m.sent[1:])
		m.sent = m.sent[:len(m.sent)-1]
	}
	m.sent = append(m.sent, n)
	m.mu.Unlock()

	m.logger.Info("price alert email simulated",
		"to", n.To,
		"subject", n.Subject,
		"watch_id", n.Metadata.WatchID,
		"price", n.Metadata.Price,
	)
	return nil
}

// Sent returns the most recent notifications, oldest first.
func (m *LogMailer) Sent() []models.Notification {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]models.Notification(nil), m.sent...)
}
