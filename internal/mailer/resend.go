package mailer

import (
	"context"
	"fmt"
	"net/url"
	"time"

	"github.com/resend/resend-go/v2"
	"go.uber.org/zap"
)

// ResendSender delivers through the Resend transactional email API.
type ResendSender struct {
	client *resend.Client
	logger *zap.Logger
}

// NewResendSender creates a Resend-backed sender. baseURL overrides the API endpoint when set.
func NewResendSender(apiKey, baseURL string, logger *zap.Logger) (*ResendSender, error) {
	client := resend.NewClient(apiKey)
	if baseURL != "" {
		u, err := url.Parse(baseURL)
		if err != nil {
			return nil, fmt.Errorf("parse email api base url: %w", err)
		}
		client.BaseURL = u
	}
	return &ResendSender{client: client, logger: logger}, nil
}

// Send posts one message and returns the provider's id.
func (s *ResendSender) Send(ctx context.Context, msg Message) (Result, error) {
	sent, err := s.client.Emails.SendWithContext(ctx, &resend.SendEmailRequest{
		From:    msg.From,
		To:      []string{msg.To},
		Subject: msg.Subject,
		Html:    msg.HTML,
	})
	if err != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrProviderRejected, err)
	}
	if sent == nil || sent.Id == "" {
		return Result{}, fmt.Errorf("%w: empty acknowledgement", ErrProviderRejected)
	}
	s.logger.Debug("email accepted", zap.String("to", msg.To), zap.String("message_id", sent.Id))
	return Result{MessageID: sent.Id, SentAt: time.Now()}, nil
}
