// Package smtp delivers price alerts as HTML email over SMTP.
package smtp

import (
	"context"
	"fmt"
	"net/smtp"
	"strings"

	"github.com/dealwatch/pricewatch/internal/metrics"
)

// Config holds SMTP connection settings.
type Config struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
}

// Notifier sends alert email through a single SMTP relay.
type Notifier struct {
	cfg  Config
	send func(addr string, auth smtp.Auth, from string, to []string, msg []byte) error
}

// New builds a Notifier.
func New(cfg Config) *Notifier {
	return &Notifier{cfg: cfg, send: smtp.SendMail}
}

// Send delivers one message to the destination address. The smtp package has
// no context support, so the call runs in a goroutine bounded by ctx.
func (n *Notifier) Send(ctx context.Context, destination, subject, body string) error {
	msg := BuildMessage(n.cfg.From, destination, subject, body)
	addr := fmt.Sprintf("%s:%d", n.cfg.Host, n.cfg.Port)
	var auth smtp.Auth
	if n.cfg.Username != "" {
		auth = smtp.PlainAuth("", n.cfg.Username, n.cfg.Password, n.cfg.Host)
	}

	done := make(chan error, 1)
	go func() {
		done <- n.send(addr, auth, n.cfg.From, []string{destination}, msg)
	}()

	select {
	case <-ctx.Done():
		metrics.ObserveNotification("smtp", "timeout")
		return fmt.Errorf("send mail canceled: %w", ctx.Err())
	case err := <-done:
		if err != nil {
			metrics.ObserveNotification("smtp", "error")
			return fmt.Errorf("send mail to %s: %w", destination, err)
		}
		metrics.ObserveNotification("smtp", "ok")
		return nil
	}
}

// BuildMessage assembles the RFC 822 message bytes for an HTML email.
func BuildMessage(from, to, subject, body string) []byte {
	var b strings.Builder
	fmt.Fprintf(&b, "From: %s\r\n", from)
	fmt.Fprintf(&b, "To: %s\r\n", to)
	fmt.Fprintf(&b, "Subject: %s\r\n", subject)
	b.WriteString("MIME-Version: 1.0\r\n")
	b.WriteString("Content-Type: text/html; charset=\"UTF-8\"\r\n")
	b.WriteString("\r\n")
	b.WriteString(body)
	b.WriteString("\r\n")
	return []byte(b.String())
}
