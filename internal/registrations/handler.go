package registrations

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub-cms/backend/internal/compose"
	"github.com/hackhub-cms/backend/internal/hackathons"
	"github.com/hackhub-cms/backend/internal/mailer"
	"github.com/hackhub-cms/backend/internal/models"
	"github.com/hackhub-cms/backend/internal/notices"
	"github.com/hackhub-cms/backend/internal/realtime"
	"github.com/hackhub-cms/backend/pkg/redis"
	"github.com/hackhub-cms/backend/pkg/response"
	"github.com/hackhub-cms/backend/pkg/storage"
)

var (
	// ErrDuplicateRegistration is returned when the email or phone is already registered.
	ErrDuplicateRegistration = errors.New("already registered")
	// ErrRegistrationClosed is returned when the event no longer accepts registrations.
	ErrRegistrationClosed = errors.New("registration closed")
)

// receivedTimeout bounds the best-effort acknowledgement email.
const receivedTimeout = 10 * time.Second

// Store is the registration persistence the handler needs.
type Store interface {
	StatusStore
	List(ctx context.Context, f Filter) ([]models.Registration, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.Registration, error)
	ExistsForContact(ctx context.Context, hackathonID uuid.UUID, email, phone string) (bool, error)
	Create(ctx context.Context, reg *models.Registration) error
	UpdateStatus(ctx context.Context, id uuid.UUID, status models.RegistrationStatus) error
}

// Events resolves the hackathon a registration belongs to.
type Events interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Hackathon, error)
	GetBySlug(ctx context.Context, slug string) (*models.Hackathon, error)
}

// Locker serialises bulk operations per hackathon.
type Locker interface {
	Acquire(ctx context.Context, name string) (func(), error)
}

// Broadcaster pushes events to admin dashboards.
type Broadcaster interface {
	Broadcast(hackathonID uuid.UUID, event string, payload interface{})
}

// Archiver uploads an export and returns a download URL.
type Archiver interface {
	ArchiveExport(ctx context.Context, key, contentType string, data []byte) (string, error)
}

// LockName is the lock shared by every bulk operation on one hackathon.
func LockName(hackathonID uuid.UUID) string {
	return "bulk:" + hackathonID.String()
}

// Deps groups the collaborators of Handler. Locker, Hub, Outbox and
// Archiver are optional.
type Deps struct {
	Store      Store
	Events     Events
	Translator *notices.Translator
	Locker     Locker
	Hub        Broadcaster
	Outbox     *mailer.Outbox
	Archiver   Archiver
	SiteURL    string
	Logger     *zap.Logger
}

// Handler handles public registration and admin registration endpoints.
type Handler struct {
	Deps
	updater *BulkUpdater
	now     func() time.Time
}

// NewHandler creates a registrations handler.
func NewHandler(d Deps) *Handler {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	return &Handler{Deps: d, updater: NewBulkUpdater(d.Store, d.Logger), now: time.Now}
}

// RegisterRequest is the body for POST /public/hackathons/:slug/register.
type RegisterRequest struct {
	Name  string `json:"name" binding:"required,max=200"`
	Email string `json:"email" binding:"required,email"`
	Phone string `json:"phone" binding:"omitempty,phone"`
}

// StatusRequest is the body for PATCH /admin/registrations/:id/status.
type StatusRequest struct {
	Status string `json:"status" binding:"required,regstatus"`
}

// BulkStatusRequest is the body for POST /admin/hackathons/:id/registrations/bulk-status.
type BulkStatusRequest struct {
	IDs    []uuid.UUID `json:"ids" binding:"required,min=1"`
	Status string      `json:"status" binding:"required,regstatus"`
}

// ViewResponse is a filtered listing plus per-status counts.
type ViewResponse struct {
	Filter        Filter                `json:"filter"`
	Registrations []models.Registration `json:"registrations"`
	Counts        Counts                `json:"counts"`
	Updated       int64                 `json:"updated,omitempty"`
}

func respondView(v View, updated int64) ViewResponse {
	return ViewResponse{
		Filter:        v.Filter,
		Registrations: v.Visible(),
		Counts:        v.Counts(v.Filter.HackathonID),
		Updated:       updated,
	}
}

// parseFilter reads hackathon_id, status and q from the query string.
func parseFilter(c *gin.Context) (Filter, error) {
	var f Filter
	if s := c.Query("hackathon_id"); s != "" {
		id, err := uuid.Parse(s)
		if err != nil {
			return f, errors.New("invalid hackathon_id")
		}
		f.HackathonID = id
	}
	f.Status = strings.ToLower(c.Query("status"))
	if f.Status != "" && f.Status != StatusAll && !models.RegistrationStatus(f.Status).Valid() {
		return f, errors.New("invalid status")
	}
	f.Query = c.Query("q")
	return f, nil
}

// Register handles POST /public/hackathons/:slug/register.
func (h *Handler) Register(c *gin.Context) {
	var req RegisterRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	event, err := h.Events.GetBySlug(ctx, c.Param("slug"))
	if err != nil || event.EventStatus == models.HackathonDraft {
		if err != nil && !errors.Is(err, hackathons.ErrNotFound) {
			h.Logger.Error("load hackathon failed", zap.Error(err))
			response.Internal(c, "failed to load hackathon")
			return
		}
		response.NotFound(c, "hackathon not found")
		return
	}

	reg := &models.Registration{
		Name:        strings.TrimSpace(req.Name),
		Email:       strings.TrimSpace(req.Email),
		Phone:       strings.TrimSpace(req.Phone),
		HackathonID: event.ID,
	}
	switch err := h.submit(ctx, event, reg); {
	case errors.Is(err, ErrRegistrationClosed):
		response.Forbidden(c, h.Translator.For(c, notices.RegistrationClosed, nil))
		return
	case errors.Is(err, ErrDuplicateRegistration):
		response.Conflict(c, h.Translator.For(c, notices.RegistrationDuplicate, nil))
		return
	case err != nil:
		h.Logger.Error("create registration failed", zap.String("hackathon_id", event.ID.String()), zap.Error(err))
		response.Internal(c, "failed to register")
		return
	}
	reg.HackathonTitle = event.Title
	h.sendReceived(ctx, event, reg)
	response.CreatedWithNotice(c, reg, h.Translator.For(c, notices.RegistrationReceived, nil))
}

// submit checks the event window and duplicates, then inserts. The check and
// the insert are separate statements.
func (h *Handler) submit(ctx context.Context, event *models.Hackathon, reg *models.Registration) error {
	if !event.RegistrationOpen(h.now()) {
		return ErrRegistrationClosed
	}
	dup, err := h.Store.ExistsForContact(ctx, event.ID, reg.Email, reg.Phone)
	if err != nil {
		return fmt.Errorf("duplicate check: %w", err)
	}
	if dup {
		return ErrDuplicateRegistration
	}
	return h.Store.Create(ctx, reg)
}

// sendReceived emails the acknowledgement. Failures are only logged.
func (h *Handler) sendReceived(ctx context.Context, event *models.Hackathon, reg *models.Registration) {
	if h.Outbox == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), receivedTimeout)
	defer cancel()
	tpl := compose.RegistrationReceived(compose.DetailsFor(event, h.SiteURL), reg.Name, reg.Email)
	res, err := h.Outbox.Deliver(ctx, reg.Email, tpl, event.PartnershipLogos)
	if err != nil {
		h.Logger.Warn("registration email failed",
			zap.String("registration_id", reg.ID.String()),
			zap.String("to", reg.Email),
			zap.Error(err))
		return
	}
	h.Logger.Info("registration email sent",
		zap.String("registration_id", reg.ID.String()),
		zap.String("message_id", res.MessageID))
}

// List handles GET /admin/registrations.
func (h *Handler) List(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	regs, err := h.Store.List(c.Request.Context(), f)
	if err != nil {
		h.Logger.Error("list registrations failed", zap.Error(err))
		response.Internal(c, "failed to list registrations")
		return
	}
	response.OK(c, respondView(NewView(f, regs), 0))
}

// UpdateStatus handles PATCH /admin/registrations/:id/status.
func (h *Handler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid registration id")
		return
	}
	var req StatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	ctx := c.Request.Context()
	reg, err := h.Store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			response.NotFound(c, "registration not found")
			return
		}
		h.Logger.Error("load registration failed", zap.Error(err))
		response.Internal(c, "failed to load registration")
		return
	}
	status := models.RegistrationStatus(req.Status)
	if err := h.Store.UpdateStatus(ctx, id, status); err != nil {
		h.Logger.Error("update registration status failed", zap.String("registration_id", id.String()), zap.Error(err))
		response.Internal(c, h.Translator.For(c, notices.BulkFailed, nil))
		return
	}
	reg.Status = status
	h.broadcast(reg.HackathonID, 1, status)
	response.OK(c, reg)
}

// lock takes the per-hackathon bulk lock, writing 409 when it is held.
func (h *Handler) lock(c *gin.Context, hackathonID uuid.UUID) (func(), bool) {
	if h.Locker == nil {
		return func() {}, true
	}
	release, err := h.Locker.Acquire(c.Request.Context(), LockName(hackathonID))
	if err != nil {
		if errors.Is(err, redis.ErrLockHeld) {
			response.Conflict(c, h.Translator.For(c, notices.CampaignInFlight, nil))
			return nil, false
		}
		// Redis trouble must not block admins; run unguarded.
		h.Logger.Warn("bulk lock unavailable", zap.String("hackathon_id", hackathonID.String()), zap.Error(err))
		return func() {}, true
	}
	return release, true
}

// loadView parses the hackathon id from the path and loads its registrations
// under the query-string filter.
func (h *Handler) loadView(c *gin.Context) (uuid.UUID, View, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid hackathon id")
		return uuid.Nil, View{}, false
	}
	f, err := parseFilter(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return uuid.Nil, View{}, false
	}
	all, err := h.Store.List(c.Request.Context(), Filter{HackathonID: id})
	if err != nil {
		h.Logger.Error("list registrations failed", zap.Error(err))
		response.Internal(c, h.Translator.For(c, notices.BulkFailed, nil))
		return uuid.Nil, View{}, false
	}
	f.HackathonID = id
	return id, NewView(f, all), true
}

// BulkStatus handles POST /admin/hackathons/:id/registrations/bulk-status.
func (h *Handler) BulkStatus(c *gin.Context) {
	var req BulkStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	id, view, ok := h.loadView(c)
	if !ok {
		return
	}
	release, ok := h.lock(c, id)
	if !ok {
		return
	}
	defer release()

	status := models.RegistrationStatus(req.Status)
	next, n, err := h.updater.Apply(c.Request.Context(), view, id, req.IDs, status)
	if err != nil {
		response.Internal(c, h.Translator.For(c, notices.BulkFailed, nil))
		return
	}
	h.broadcast(id, n, status)
	notice := h.Translator.For(c, notices.BulkUpdated, map[string]any{"Count": n, "Status": string(status)})
	response.OKWithNotice(c, respondView(next, n), notice)
}

// ConfirmPending handles POST /admin/hackathons/:id/registrations/confirm-pending.
func (h *Handler) ConfirmPending(c *gin.Context) {
	id, view, ok := h.loadView(c)
	if !ok {
		return
	}
	release, ok := h.lock(c, id)
	if !ok {
		return
	}
	defer release()

	next, n, err := h.updater.ConfirmPending(c.Request.Context(), view, id)
	switch {
	case errors.Is(err, ErrNothingPending):
		response.OKWithNotice(c, respondView(view, 0), h.Translator.For(c, notices.BulkNothingPending, nil))
		return
	case err != nil:
		response.Internal(c, h.Translator.For(c, notices.BulkFailed, nil))
		return
	}
	h.broadcast(id, n, models.StatusConfirmed)
	notice := h.Translator.For(c, notices.BulkUpdated, map[string]any{"Count": n, "Status": string(models.StatusConfirmed)})
	response.OKWithNotice(c, respondView(next, n), notice)
}

func (h *Handler) broadcast(hackathonID uuid.UUID, n int64, status models.RegistrationStatus) {
	if h.Hub == nil {
		return
	}
	h.Hub.Broadcast(hackathonID, realtime.EventRegistrationsUpdated, map[string]interface{}{
		"updated": n,
		"status":  status,
	})
}

// ExportResponse is returned when an export is archived instead of downloaded.
type ExportResponse struct {
	Filename string `json:"filename"`
	URL      string `json:"url"`
	Count    int    `json:"count"`
}

// Export handles GET /admin/registrations/export. With archive=1 and storage
// configured, the file is uploaded and a download link is returned instead.
func (h *Handler) Export(c *gin.Context) {
	f, err := parseFilter(c)
	if err != nil {
		response.BadRequest(c, err.Error())
		return
	}
	ctx := c.Request.Context()
	regs, err := h.Store.List(ctx, f)
	if err != nil {
		h.Logger.Error("list registrations failed", zap.Error(err))
		response.Internal(c, "failed to export registrations")
		return
	}
	data, err := Serialize(regs)
	if errors.Is(err, ErrNothingToExport) {
		response.OKWithNotice(c, nil, h.Translator.For(c, notices.ExportEmpty, nil))
		return
	}

	title := ""
	if f.HackathonID != uuid.Nil {
		if event, err := h.Events.GetByID(ctx, f.HackathonID); err == nil {
			title = event.Title
		}
	}
	now := h.now()
	filename := Filename(now, title)

	if c.Query("archive") == "1" && h.Archiver != nil {
		url, err := h.Archiver.ArchiveExport(ctx, storage.ExportKey(now, filename), ExportContentType, data)
		if err != nil {
			h.Logger.Error("archive export failed", zap.String("filename", filename), zap.Error(err))
			response.Internal(c, "failed to archive export")
			return
		}
		notice := h.Translator.For(c, notices.ExportReady, map[string]any{"Count": len(regs)})
		response.OKWithNotice(c, ExportResponse{Filename: filename, URL: url, Count: len(regs)}, notice)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, filename))
	c.Data(http.StatusOK, ExportContentType, data)
}
