// Package campaigns runs bulk email campaigns against a hackathon's registrations.
package campaigns

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/hackhub-cms/backend/internal/models"
	"github.com/hackhub-cms/backend/internal/registrations"
)

// ErrInvalidTarget is returned for an unknown status filter.
var ErrInvalidTarget = errors.New("invalid campaign target")

// Recipient is one resolved addressee.
type Recipient struct {
	Name             string               `json:"name"`
	Email            string               `json:"email"`
	RegistrationID   uuid.UUID            `json:"registration_id"`
	PartnershipLogos []models.PartnerLogo `json:"-"`
}

// Target selects the recipients of a campaign.
type Target struct {
	HackathonID uuid.UUID
	Status      string // all, pending, confirmed or rejected
}

// Validate checks the status filter.
func (t Target) Validate() error {
	switch t.Status {
	case registrations.StatusAll, string(models.StatusPending), string(models.StatusConfirmed), string(models.StatusRejected):
	default:
		return fmt.Errorf("%w: status %q", ErrInvalidTarget, t.Status)
	}
	if t.HackathonID == uuid.Nil {
		return fmt.Errorf("%w: missing hackathon", ErrInvalidTarget)
	}
	return nil
}

// RegistrationSource lists registrations under a filter.
type RegistrationSource interface {
	List(ctx context.Context, f registrations.Filter) ([]models.Registration, error)
}

// EventSource loads a hackathon.
type EventSource interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Hackathon, error)
}

// Resolver turns a Target into recipients.
type Resolver struct {
	regs   RegistrationSource
	events EventSource
}

// NewResolver creates a Resolver.
func NewResolver(regs RegistrationSource, events EventSource) *Resolver {
	return &Resolver{regs: regs, events: events}
}

// Resolve returns the event and the recipients matching t, each carrying the
// event's partnership logos. Any store error aborts with no partial list.
func (r *Resolver) Resolve(ctx context.Context, t Target) (*models.Hackathon, []Recipient, error) {
	if err := t.Validate(); err != nil {
		return nil, nil, err
	}
	event, err := r.events.GetByID(ctx, t.HackathonID)
	if err != nil {
		return nil, nil, fmt.Errorf("load hackathon: %w", err)
	}
	regs, err := r.regs.List(ctx, registrations.Filter{HackathonID: t.HackathonID, Status: t.Status})
	if err != nil {
		return nil, nil, fmt.Errorf("list registrations: %w", err)
	}
	out := make([]Recipient, 0, len(regs))
	for _, reg := range regs {
		out = append(out, Recipient{
			Name:             reg.Name,
			Email:            reg.Email,
			RegistrationID:   reg.ID,
			PartnershipLogos: event.PartnershipLogos,
		})
	}
	return event, out, nil
}
