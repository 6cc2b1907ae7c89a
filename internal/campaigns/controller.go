package campaigns

import (
	"context"
	"errors"
	"fmt"
	"maps"

	"github.com/hackhub-cms/backend/internal/compose"
	"github.com/hackhub-cms/backend/internal/mailer"
	"github.com/hackhub-cms/backend/internal/models"
)

var (
	// ErrInvalidTransition is returned when an action is not allowed in the current state.
	ErrInvalidTransition = errors.New("invalid campaign transition")
	// ErrNoRecipients is returned when a send is requested for an empty recipient set.
	ErrNoRecipients = errors.New("no recipients match the campaign target")
	// ErrUnknownPreset is returned for a preset name outside the catalogue.
	ErrUnknownPreset = errors.New("unknown preset")
)

// State is a step of the compose-and-send flow.
type State string

const (
	StateIdle                  State = "idle"
	StateResolving             State = "resolving"
	StateEditing               State = "editing"
	StateConfirming            State = "confirming"
	StateSending               State = "sending"
	StateCompleted             State = "completed"
	StateCompletedWithFailures State = "completed_with_failures"
	StateCancelled             State = "cancelled"
)

// Terminal reports whether no further transition is possible.
func (s State) Terminal() bool {
	return s == StateCompleted || s == StateCompletedWithFailures || s == StateCancelled
}

// Controller drives one campaign from target selection to the final report.
// It is not safe for concurrent use.
type Controller struct {
	resolver   *Resolver
	outbox     *mailer.Outbox
	dispatcher *Dispatcher
	siteURL    string

	state      State
	target     Target
	event      *models.Hackathon
	recipients []Recipient
	tpl        compose.Template
	sender     string
	preview    bool
	report     Report
}

// NewController creates an idle controller.
func NewController(resolver *Resolver, outbox *mailer.Outbox, dispatcher *Dispatcher, siteURL string) *Controller {
	return &Controller{resolver: resolver, outbox: outbox, dispatcher: dispatcher, siteURL: siteURL, state: StateIdle}
}

// State returns the current state.
func (c *Controller) State() State { return c.state }

// Recipients returns the resolved recipients.
func (c *Controller) Recipients() []Recipient { return c.recipients }

// Template returns the template being edited.
func (c *Controller) Template() compose.Template { return c.tpl }

// Previewing reports whether the preview pane is shown.
func (c *Controller) Previewing() bool { return c.preview }

// Report returns the result of a finished send.
func (c *Controller) Report() Report { return c.report }

func (c *Controller) expect(states ...State) error {
	for _, s := range states {
		if c.state == s {
			return nil
		}
	}
	return fmt.Errorf("%w: from %s", ErrInvalidTransition, c.state)
}

// Open resolves the target's recipients and enters editing. A resolution
// error returns the controller to idle so the admin may retry.
func (c *Controller) Open(ctx context.Context, t Target) error {
	if err := c.expect(StateIdle); err != nil {
		return err
	}
	c.state = StateResolving
	event, recipients, err := c.resolver.Resolve(ctx, t)
	if err != nil {
		c.state = StateIdle
		return err
	}
	c.target, c.event, c.recipients = t, event, recipients
	c.state = StateEditing
	return nil
}

func (c *Controller) eventVars() map[string]string {
	if c.event == nil {
		return nil
	}
	return compose.DetailsFor(c.event, c.siteURL).Vars()
}

// SelectPreset replaces the subject and body with a preset's text.
func (c *Controller) SelectPreset(name string) error {
	if err := c.expect(StateEditing); err != nil {
		return err
	}
	p, ok := compose.LookupPreset(name)
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownPreset, name)
	}
	c.tpl = p.Template(c.eventVars())
	return nil
}

// Edit sets the subject and body. sender overrides the default From when set.
func (c *Controller) Edit(t compose.Template, sender string) error {
	if err := c.expect(StateEditing); err != nil {
		return err
	}
	c.tpl, c.sender = t, sender
	return nil
}

// TogglePreview flips the preview pane.
func (c *Controller) TogglePreview() error {
	if err := c.expect(StateEditing, StateConfirming); err != nil {
		return err
	}
	c.preview = !c.preview
	return nil
}

// render expands the template for r: event tokens, then name and email.
func (c *Controller) render(r Recipient) (mailer.Message, error) {
	vars := maps.Clone(c.eventVars())
	if vars == nil {
		vars = map[string]string{}
	}
	maps.Copy(vars, compose.RecipientVars(r.Name, r.Email))
	return c.outbox.Render(r.Email, c.sender, compose.Expand(c.tpl, vars), r.PartnershipLogos)
}

// Preview renders the message for the first recipient. With no recipients
// the template is rendered with empty recipient fields.
func (c *Controller) Preview() (mailer.Message, error) {
	if err := c.expect(StateEditing, StateConfirming); err != nil {
		return mailer.Message{}, err
	}
	r := Recipient{}
	if len(c.recipients) > 0 {
		r = c.recipients[0]
	} else if c.event != nil {
		r.PartnershipLogos = c.event.PartnershipLogos
	}
	return c.render(r)
}

// RequestSend asks for confirmation. An empty recipient list is reported
// before the draft is validated.
func (c *Controller) RequestSend() error {
	if err := c.expect(StateEditing); err != nil {
		return err
	}
	if len(c.recipients) == 0 {
		return ErrNoRecipients
	}
	if err := c.tpl.Validate(); err != nil {
		return err
	}
	c.state = StateConfirming
	return nil
}

// Back returns from confirmation to editing.
func (c *Controller) Back() error {
	if err := c.expect(StateConfirming); err != nil {
		return err
	}
	c.state = StateEditing
	return nil
}

// Cancel abandons the campaign. Once sending has started it is refused.
func (c *Controller) Cancel() error {
	if err := c.expect(StateIdle, StateEditing, StateConfirming); err != nil {
		return err
	}
	c.state = StateCancelled
	return nil
}

// Confirm renders every message and dispatches them. In-flight sends are
// awaited, not cancelled; the final state reflects the report.
func (c *Controller) Confirm(ctx context.Context) (Report, error) {
	if err := c.expect(StateConfirming); err != nil {
		return Report{}, err
	}
	jobs := make([]Job, 0, len(c.recipients))
	for _, r := range c.recipients {
		msg, err := c.render(r)
		if err != nil {
			return Report{}, err
		}
		jobs = append(jobs, Job{Recipient: r, Message: msg})
	}

	c.state = StateSending
	c.report = c.dispatcher.Run(ctx, jobs)
	if c.report.Failed > 0 {
		c.state = StateCompletedWithFailures
	} else {
		c.state = StateCompleted
	}
	return c.report, nil
}
