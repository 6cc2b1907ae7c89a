package mailer

import (
	"context"
	"fmt"

	"github.com/hackhub-cms/backend/internal/compose"
	"github.com/hackhub-cms/backend/internal/models"
)

// Outbox renders a template into the HTML envelope and hands it to a Sender.
type Outbox struct {
	Sender   Sender
	Envelope compose.Envelope
	From     string
}

// Render builds the message for to without sending it. from overrides the
// default sender address when non-empty.
func (o *Outbox) Render(to, from string, tpl compose.Template, logos []models.PartnerLogo) (Message, error) {
	html, err := o.Envelope.Wrap(tpl.Body, logos)
	if err != nil {
		return Message{}, fmt.Errorf("render email: %w", err)
	}
	if from == "" {
		from = o.From
	}
	return Message{From: from, To: to, Subject: tpl.Subject, HTML: html}, nil
}

// Deliver renders and sends one message.
func (o *Outbox) Deliver(ctx context.Context, to string, tpl compose.Template, logos []models.PartnerLogo) (Result, error) {
	msg, err := o.Render(to, "", tpl, logos)
	if err != nil {
		return Result{}, err
	}
	return o.Sender.Send(ctx, msg)
}
