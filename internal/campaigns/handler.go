package campaigns

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub-cms/backend/internal/compose"
	"github.com/hackhub-cms/backend/internal/emailtemplates"
	"github.com/hackhub-cms/backend/internal/hackathons"
	"github.com/hackhub-cms/backend/internal/mailer"
	"github.com/hackhub-cms/backend/internal/notices"
	"github.com/hackhub-cms/backend/internal/realtime"
	"github.com/hackhub-cms/backend/internal/registrations"
	"github.com/hackhub-cms/backend/pkg/redis"
	"github.com/hackhub-cms/backend/pkg/response"
)

// Deps groups the collaborators of Handler. Templates, Locker and Hub are optional.
type Deps struct {
	Resolver    *Resolver
	Outbox      *mailer.Outbox
	Templates   emailtemplates.Store
	Locker      registrations.Locker
	Hub         registrations.Broadcaster
	Translator  *notices.Translator
	BatchSize   int
	SendTimeout time.Duration
	SiteURL     string
	Logger      *zap.Logger
}

// Handler handles campaign endpoints.
type Handler struct {
	Deps
}

// NewHandler creates a campaign handler.
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	if d.BatchSize <= 0 {
		d.BatchSize = DefaultBatchSize
	}
	return &Handler{Deps: d}
}

// Request is the body for preview and send. The stored template, then the
// preset, then explicit subject and body are applied in that order.
type Request struct {
	Status     string     `json:"status" binding:"omitempty,oneof=all pending confirmed rejected"`
	Preset     string     `json:"preset"`
	TemplateID *uuid.UUID `json:"template_id"`
	Subject    string     `json:"subject"`
	Body       string     `json:"body"`
	Sender     string     `json:"sender"`
}

// PreviewResponse is returned by the preview endpoint.
type PreviewResponse struct {
	State      State          `json:"state"`
	Recipients int            `json:"recipients"`
	Preview    mailer.Message `json:"preview"`
}

// SendResponse is returned by the send endpoint.
type SendResponse struct {
	State  State  `json:"state"`
	Report Report `json:"report"`
}

// Presets handles GET /admin/campaigns/presets.
func (h *Handler) Presets(c *gin.Context) {
	response.OK(c, compose.Presets())
}

func (h *Handler) newController(hackathonID uuid.UUID) *Controller {
	d := &Dispatcher{
		Sender:      h.Outbox.Sender,
		BatchSize:   h.BatchSize,
		SendTimeout: h.SendTimeout,
		Logger:      h.Logger.With(zap.String("hackathon_id", hackathonID.String())),
	}
	if h.Hub != nil {
		d.OnBatch = func(p Progress) {
			h.Hub.Broadcast(hackathonID, realtime.EventCampaignProgress, p)
		}
	}
	return NewController(h.Resolver, h.Outbox, d, h.SiteURL)
}

// prepare binds the request, resolves recipients and applies the draft.
// It writes the error response itself and returns nil on failure.
func (h *Handler) prepare(c *gin.Context) (*Controller, uuid.UUID) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid hackathon id")
		return nil, uuid.Nil
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return nil, uuid.Nil
	}
	if req.Status == "" {
		req.Status = registrations.StatusAll
	}

	ctx := c.Request.Context()
	ctrl := h.newController(id)
	if err := ctrl.Open(ctx, Target{HackathonID: id, Status: req.Status}); err != nil {
		switch {
		case errors.Is(err, hackathons.ErrNotFound):
			response.NotFound(c, "hackathon not found")
		case errors.Is(err, ErrInvalidTarget):
			response.BadRequest(c, err.Error())
		default:
			h.Logger.Error("resolve recipients failed", zap.String("hackathon_id", id.String()), zap.Error(err))
			response.Internal(c, h.Translator.For(c, notices.CampaignResolveFailed, nil))
		}
		return nil, uuid.Nil
	}

	if err := h.applyDraft(ctx, ctrl, req); err != nil {
		switch {
		case errors.Is(err, emailtemplates.ErrNotFound):
			response.NotFound(c, "email template not found")
		case errors.Is(err, emailtemplates.ErrInactive), errors.Is(err, ErrUnknownPreset):
			response.BadRequest(c, err.Error())
		default:
			h.Logger.Error("load email template failed", zap.Error(err))
			response.Internal(c, "failed to load email template")
		}
		return nil, uuid.Nil
	}
	return ctrl, id
}

func (h *Handler) applyDraft(ctx context.Context, ctrl *Controller, req Request) error {
	tpl := compose.Template{}
	sender := req.Sender
	if req.TemplateID != nil {
		if h.Templates == nil {
			return emailtemplates.ErrNotFound
		}
		stored, err := emailtemplates.Usable(ctx, h.Templates, *req.TemplateID)
		if err != nil {
			return err
		}
		tpl = compose.Template{Subject: stored.Subject, Body: stored.Body}
		if sender == "" {
			sender = stored.Sender
		}
	}
	if req.Preset != "" {
		if err := ctrl.SelectPreset(req.Preset); err != nil {
			return err
		}
		tpl = ctrl.Template()
	}
	if req.Subject != "" {
		tpl.Subject = req.Subject
	}
	if req.Body != "" {
		tpl.Body = req.Body
	}
	return ctrl.Edit(tpl, sender)
}

// Preview handles POST /admin/hackathons/:id/campaigns/preview.
func (h *Handler) Preview(c *gin.Context) {
	ctrl, _ := h.prepare(c)
	if ctrl == nil {
		return
	}
	if err := ctrl.TogglePreview(); err != nil {
		response.Internal(c, err.Error())
		return
	}
	msg, err := ctrl.Preview()
	if err != nil {
		h.Logger.Error("render preview failed", zap.Error(err))
		response.Internal(c, "failed to render preview")
		return
	}
	response.OK(c, PreviewResponse{State: ctrl.State(), Recipients: len(ctrl.Recipients()), Preview: msg})
}

// Send handles POST /admin/hackathons/:id/campaigns/send. Only one bulk
// operation per hackathon runs at a time.
func (h *Handler) Send(c *gin.Context) {
	ctrl, id := h.prepare(c)
	if ctrl == nil {
		return
	}

	if h.Locker != nil {
		release, err := h.Locker.Acquire(c.Request.Context(), registrations.LockName(id))
		switch {
		case errors.Is(err, redis.ErrLockHeld):
			response.Conflict(c, h.Translator.For(c, notices.CampaignInFlight, nil))
			return
		case err != nil:
			h.Logger.Warn("campaign lock unavailable", zap.String("hackathon_id", id.String()), zap.Error(err))
		default:
			defer release()
		}
	}

	if err := ctrl.RequestSend(); err != nil {
		switch {
		case errors.Is(err, ErrNoRecipients):
			rep := Report{Outcome: OutcomeNothingToDo}
			response.OKWithNotice(c, SendResponse{State: ctrl.State(), Report: rep},
				h.Translator.For(c, notices.CampaignNothingToDo, nil))
		case errors.Is(err, compose.ErrMissingSubject), errors.Is(err, compose.ErrMissingBody):
			response.BadRequest(c, h.Translator.For(c, notices.CampaignInvalid, nil))
		default:
			response.Internal(c, err.Error())
		}
		return
	}

	// The report is written after the whole run, which may exceed the
	// server write timeout.
	if err := http.NewResponseController(c.Writer).SetWriteDeadline(time.Time{}); err != nil {
		h.Logger.Warn("clear write deadline failed", zap.String("hackathon_id", id.String()), zap.Error(err))
	}

	// The run outlives a dropped admin connection; in-flight sends are awaited.
	rep, err := ctrl.Confirm(context.WithoutCancel(c.Request.Context()))
	if err != nil {
		h.Logger.Error("campaign render failed", zap.String("hackathon_id", id.String()), zap.Error(err))
		response.Internal(c, "failed to render campaign")
		return
	}
	if h.Hub != nil {
		h.Hub.Broadcast(id, realtime.EventCampaignCompleted, rep)
	}

	data := map[string]any{"Sent": rep.Sent, "Failed": rep.Failed, "Total": rep.Total}
	key := notices.CampaignSentAll
	if rep.Outcome == OutcomePartial {
		key = notices.CampaignPartial
	}
	response.OKWithNotice(c, SendResponse{State: ctrl.State(), Report: rep}, h.Translator.For(c, key, data))
}
