package emailtemplates

import (
	"context"
	"errors"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/hackhub-cms/backend/internal/models"
	"github.com/hackhub-cms/backend/pkg/response"
)

// ErrInactive is returned when a disabled template is requested for sending.
var ErrInactive = errors.New("email template is inactive")

// Store is the persistence the handler needs; *Repository implements it.
type Store interface {
	List(ctx context.Context, activeOnly bool) ([]models.EmailTemplate, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.EmailTemplate, error)
	Create(ctx context.Context, t *models.EmailTemplate) error
	Update(ctx context.Context, t *models.EmailTemplate) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// Request is the body for POST and PUT /admin/email-templates.
type Request struct {
	Name     string `json:"name" binding:"required,max=120"`
	Subject  string `json:"subject" binding:"required"`
	Body     string `json:"body" binding:"required"`
	Sender   string `json:"sender"`
	IsActive *bool  `json:"is_active"`
}

func (r Request) apply(t *models.EmailTemplate) {
	t.Name, t.Subject, t.Body, t.Sender = r.Name, r.Subject, r.Body, r.Sender
	t.IsActive = r.IsActive == nil || *r.IsActive
}

// Handler handles email template endpoints.
type Handler struct {
	store  Store
	logger *zap.Logger
}

// NewHandler creates an email templates handler.
func NewHandler(store Store, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{store: store, logger: logger}
}

// Usable loads a template for sending; inactive templates yield ErrInactive.
func Usable(ctx context.Context, store Store, id uuid.UUID) (*models.EmailTemplate, error) {
	t, err := store.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !t.IsActive {
		return nil, ErrInactive
	}
	return t, nil
}

func (h *Handler) fail(c *gin.Context, op string, err error) {
	if errors.Is(err, ErrNotFound) {
		response.NotFound(c, "email template not found")
		return
	}
	h.logger.Error(op+" failed", zap.Error(err))
	response.Internal(c, "failed to "+op)
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.BadRequest(c, "invalid template id")
		return uuid.Nil, false
	}
	return id, true
}

// List handles GET /admin/email-templates?active=1.
func (h *Handler) List(c *gin.Context) {
	list, err := h.store.List(c.Request.Context(), c.Query("active") == "1")
	if err != nil {
		h.fail(c, "list email templates", err)
		return
	}
	response.OK(c, list)
}

// Get handles GET /admin/email-templates/:id.
func (h *Handler) Get(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	t, err := h.store.GetByID(c.Request.Context(), id)
	if err != nil {
		h.fail(c, "load email template", err)
		return
	}
	response.OK(c, t)
}

// Create handles POST /admin/email-templates.
func (h *Handler) Create(c *gin.Context) {
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	var t models.EmailTemplate
	req.apply(&t)
	if err := h.store.Create(c.Request.Context(), &t); err != nil {
		h.fail(c, "create email template", err)
		return
	}
	response.Created(c, t)
}

// Update handles PUT /admin/email-templates/:id.
func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	var req Request
	if err := c.ShouldBindJSON(&req); err != nil {
		response.BadRequest(c, "invalid request: "+err.Error())
		return
	}
	t := models.EmailTemplate{ID: id}
	req.apply(&t)
	if err := h.store.Update(c.Request.Context(), &t); err != nil {
		h.fail(c, "update email template", err)
		return
	}
	response.OK(c, t)
}

// Delete handles DELETE /admin/email-templates/:id.
func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}
	if err := h.store.Delete(c.Request.Context(), id); err != nil {
		h.fail(c, "delete email template", err)
		return
	}
	response.NoContent(c)
}
