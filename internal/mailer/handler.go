package mailer

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/hackhub-cms/backend/internal/compose"
	"github.com/hackhub-cms/backend/internal/models"
)

// SendEmailRequest is the body for POST /api/send-email.
type SendEmailRequest struct {
	To   string        `json:"to" binding:"required,email"`
	Data SendEmailData `json:"data"`
}

// SendEmailData carries either registration-confirmation fields or a custom message.
type SendEmailData struct {
	IsCustomEmail    bool                 `json:"isCustomEmail"`
	CustomSubject    string               `json:"customSubject"`
	CustomContent    string               `json:"customContent"`
	PartnershipLogos []models.PartnerLogo `json:"partnershipLogos"`

	Name           string `json:"name"`
	HackathonTitle string `json:"hackathonTitle"`
	HackathonDate  string `json:"hackathonDate"`
	Location       string `json:"location"`
	Slug           string `json:"slug"`
}

// SendEmailResponse mirrors the shape the CMS front-end expects.
type SendEmailResponse struct {
	Success   bool   `json:"success"`
	MessageID string `json:"messageId,omitempty"`
	Error     string `json:"error,omitempty"`
}

// Handler exposes the internal send endpoint.
type Handler struct {
	outbox  *Outbox
	siteURL string
	logger  *zap.Logger
}

// NewHandler creates a send-email handler.
func NewHandler(sender Sender, envelope compose.Envelope, from, siteURL string, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{
		outbox:  &Outbox{Sender: sender, Envelope: envelope, From: from},
		siteURL: siteURL,
		logger:  logger,
	}
}

// Register mounts POST /api/send-email behind the given auth chain. The
// endpoint sends admin-authored HTML from the organization's sender, so
// authn is required.
func (h *Handler) Register(r gin.IRouter, authn gin.HandlerFunc, authz ...gin.HandlerFunc) {
	chain := append([]gin.HandlerFunc{authn}, authz...)
	r.POST("/api/send-email", append(chain, h.Send)...)
}

// Send handles POST /api/send-email.
func (h *Handler) Send(c *gin.Context) {
	var req SendEmailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, SendEmailResponse{Error: "invalid request: " + err.Error()})
		return
	}

	tpl, logos, err := h.content(req)
	if err != nil {
		c.JSON(http.StatusBadRequest, SendEmailResponse{Error: err.Error()})
		return
	}
	msg, err := h.outbox.Render(req.To, "", tpl, logos)
	if err != nil {
		h.logger.Error("render email failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, SendEmailResponse{Error: "failed to render email"})
		return
	}

	res, err := h.outbox.Sender.Send(c.Request.Context(), msg)
	if err != nil {
		h.logger.Warn("send email failed", zap.String("to", req.To), zap.Error(err))
		status := http.StatusInternalServerError
		if errors.Is(err, ErrProviderRejected) {
			status = http.StatusBadGateway
		}
		c.JSON(status, SendEmailResponse{Error: "failed to send email"})
		return
	}
	c.JSON(http.StatusOK, SendEmailResponse{Success: true, MessageID: res.MessageID})
}

func (h *Handler) content(req SendEmailRequest) (compose.Template, []models.PartnerLogo, error) {
	d := req.Data
	if d.IsCustomEmail {
		tpl := compose.Template{Subject: d.CustomSubject, Body: d.CustomContent}
		if err := tpl.Validate(); err != nil {
			return tpl, nil, err
		}
		return tpl, d.PartnershipLogos, nil
	}
	if strings.TrimSpace(d.HackathonTitle) == "" {
		return compose.Template{}, nil, errors.New("hackathonTitle is required")
	}
	details := compose.EventDetails{
		Title:    d.HackathonTitle,
		Date:     d.HackathonDate,
		Location: d.Location,
		Link:     h.siteURL + "/hackathons/" + d.Slug,
	}
	return compose.RegistrationReceived(details, d.Name, req.To), d.PartnershipLogos, nil
}
