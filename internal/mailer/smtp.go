package mailer

import (
	"context"
	"fmt"
	"time"

	"github.com/go-gomail/gomail"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SMTPSender delivers through an SMTP relay. Each message dials its own
// connection so concurrent sends in a batch do not share a session.
type SMTPSender struct {
	dialer *gomail.Dialer
	domain string
	logger *zap.Logger
}

// NewSMTPSender creates an SMTP sender. Port 465 uses implicit TLS.
func NewSMTPSender(host string, port int, user, pass string, logger *zap.Logger) *SMTPSender {
	d := gomail.NewDialer(host, port, user, pass)
	d.SSL = port == 465
	return &SMTPSender{dialer: d, domain: host, logger: logger}
}

// Send dials the relay and submits msg. gomail has no context support, so a
// cancelled ctx abandons the wait while the dial finishes in the background.
func (s *SMTPSender) Send(ctx context.Context, msg Message) (Result, error) {
	id := fmt.Sprintf("<%s@%s>", uuid.NewString(), s.domain)
	m := gomail.NewMessage()
	m.SetHeader("From", msg.From)
	m.SetHeader("To", msg.To)
	m.SetHeader("Subject", msg.Subject)
	m.SetHeader("Message-ID", id)
	m.SetBody("text/html", msg.HTML)

	done := make(chan error, 1)
	go func() { done <- s.dialer.DialAndSend(m) }()

	select {
	case err := <-done:
		if err != nil {
			return Result{}, fmt.Errorf("%w: %v", ErrProviderRejected, err)
		}
		s.logger.Debug("email relayed", zap.String("to", msg.To), zap.String("message_id", id))
		return Result{MessageID: id, SentAt: time.Now()}, nil
	case <-ctx.Done():
		return Result{}, fmt.Errorf("smtp send: %w", ctx.Err())
	}
}
