// Package mailer delivers rendered emails through the configured provider.
package mailer

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/hackhub-cms/backend/config"
)

// ErrProviderRejected wraps errors reported by the delivery provider.
var ErrProviderRejected = errors.New("email provider rejected message")

// Message is one rendered email.
type Message struct {
	From    string `json:"from"`
	To      string `json:"to"`
	Subject string `json:"subject"`
	HTML    string `json:"html"`
}

// Result is the provider acknowledgement.
type Result struct {
	MessageID string    `json:"message_id"`
	SentAt    time.Time `json:"sent_at"`
}

// Sender delivers a single message.
type Sender interface {
	Send(ctx context.Context, msg Message) (Result, error)
}

// NewSender builds the Sender selected by cfg.Provider.
func NewSender(cfg config.EmailConfig, logger *zap.Logger) (Sender, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	switch cfg.Provider {
	case "resend":
		return NewResendSender(cfg.APIKey, cfg.APIBaseURL, logger)
	case "smtp":
		return NewSMTPSender(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, logger), nil
	case "log", "":
		return NewLogSender(logger), nil
	}
	return nil, fmt.Errorf("unknown email provider %q", cfg.Provider)
}
